package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopsignal/attribution-backend/pkg/logger"
)

func TestAbandonSweepUsesStalenessCutoff(t *testing.T) {
	now := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	marker := &fakeAbandonedMarker{marked: []int64{12}}
	job := newAbandonSweepJob(t, marker, 30*24*time.Hour, 500)
	job.now = func() time.Time { return now }

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	expectedCutoff := now.Add(-30 * 24 * time.Hour)
	if !marker.lastCutoff.Equal(expectedCutoff) {
		t.Fatalf("expected cutoff %s, got %s", expectedCutoff, marker.lastCutoff)
	}
	if marker.calls != 1 {
		t.Fatalf("expected one batch, got %d", marker.calls)
	}
}

func TestAbandonSweepDrainsFullBatches(t *testing.T) {
	marker := &fakeAbandonedMarker{marked: []int64{500, 500, 3}}
	job := newAbandonSweepJob(t, marker, time.Hour, 500)

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if marker.calls != 3 {
		t.Fatalf("expected three batches, got %d", marker.calls)
	}
}

func TestAbandonSweepPropagatesErrors(t *testing.T) {
	marker := &fakeAbandonedMarker{err: errors.New("boom")}
	job := newAbandonSweepJob(t, marker, time.Hour, 500)

	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func newAbandonSweepJob(t *testing.T, marker *fakeAbandonedMarker, window time.Duration, batchSize int) *abandonSweepJob {
	t.Helper()
	jobIface, err := NewAbandonSweepJob(AbandonSweepJobParams{
		Logger:          logger.New(logger.Options{ServiceName: "test"}),
		Clicks:          marker,
		StalenessWindow: window,
		BatchSize:       batchSize,
	})
	if err != nil {
		t.Fatalf("NewAbandonSweepJob: %v", err)
	}
	job, ok := jobIface.(*abandonSweepJob)
	if !ok {
		t.Fatalf("expected abandonSweepJob, got %T", jobIface)
	}
	return job
}

type fakeAbandonedMarker struct {
	marked     []int64
	err        error
	calls      int
	lastCutoff time.Time
}

func (f *fakeAbandonedMarker) MarkAbandonedBefore(ctx context.Context, cutoff time.Time, batchSize int) (int64, error) {
	f.lastCutoff = cutoff
	if f.err != nil {
		return 0, f.err
	}
	idx := f.calls
	f.calls++
	if idx >= len(f.marked) {
		return 0, nil
	}
	return f.marked[idx], nil
}
