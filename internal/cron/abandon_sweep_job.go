package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/shopsignal/attribution-backend/pkg/logger"
)

const (
	defaultStalenessWindow = 30 * 24 * time.Hour
	defaultSweepBatchSize  = 500
)

type abandonedMarker interface {
	MarkAbandonedBefore(ctx context.Context, cutoff time.Time, batchSize int) (int64, error)
}

// AbandonSweepJobParams configure the stale-click sweeper.
type AbandonSweepJobParams struct {
	Logger          *logger.Logger
	Clicks          abandonedMarker
	StalenessWindow time.Duration
	BatchSize       int
}

// NewAbandonSweepJob builds the cron job that retires pending clicks older
// than the staleness window. Abandoned clicks leave the matcher's candidate
// set, which keeps candidate scans bounded as click volume grows.
func NewAbandonSweepJob(params AbandonSweepJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Clicks == nil {
		return nil, fmt.Errorf("clicks marker required")
	}
	window := params.StalenessWindow
	if window <= 0 {
		window = defaultStalenessWindow
	}
	batchSize := params.BatchSize
	if batchSize <= 0 {
		batchSize = defaultSweepBatchSize
	}
	return &abandonSweepJob{
		logg:      params.Logger,
		clicks:    params.Clicks,
		window:    window,
		batchSize: batchSize,
		now:       time.Now,
	}, nil
}

type abandonSweepJob struct {
	logg      *logger.Logger
	clicks    abandonedMarker
	window    time.Duration
	batchSize int
	now       func() time.Time
}

func (j *abandonSweepJob) Name() string { return "abandon-sweep" }

func (j *abandonSweepJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.window)
	var total int64
	for {
		marked, err := j.clicks.MarkAbandonedBefore(ctx, cutoff, j.batchSize)
		if err != nil {
			return fmt.Errorf("mark abandoned clicks: %w", err)
		}
		total += marked
		if marked < int64(j.batchSize) {
			break
		}
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{"count": total})
	j.logg.Info(logCtx, "abandon sweep complete")
	return nil
}
