package aggregates

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/shopsignal/attribution-backend/pkg/db/models"
	"github.com/shopsignal/attribution-backend/pkg/enums"
	pkgerrors "github.com/shopsignal/attribution-backend/pkg/errors"
	"github.com/shopsignal/attribution-backend/pkg/logger"
)

func TestIncrementRejectsUnknownField(t *testing.T) {
	svc := newTestAggregates(t, &fakeAggregatesRepo{})

	err := svc.Increment(context.Background(), uuid.New(), time.Now(), enums.AggregateField("visits"))
	if err == nil {
		t.Fatal("expected error")
	}
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestIncrementDelegatesToRepo(t *testing.T) {
	repo := &fakeAggregatesRepo{}
	svc := newTestAggregates(t, repo)

	if err := svc.Increment(context.Background(), uuid.New(), time.Now(), enums.AggregateFieldSessions); err != nil {
		t.Fatalf("Increment: %v", err)
	}
	if repo.increments != 1 {
		t.Fatalf("expected one increment, got %d", repo.increments)
	}
}

func TestRecomputeStoresBatchDerivedTotals(t *testing.T) {
	repo := &fakeAggregatesRepo{sessions: 7, productViews: 19}
	svc := newTestAggregates(t, repo)

	tenantID := uuid.New()
	day := time.Date(2026, 3, 1, 15, 30, 0, 0, time.UTC)
	row, err := svc.Recompute(context.Background(), tenantID, day)
	if err != nil {
		t.Fatalf("Recompute: %v", err)
	}

	if row.Sessions != 7 || row.ProductViews != 19 {
		t.Fatalf("expected totals 7/19, got %d/%d", row.Sessions, row.ProductViews)
	}
	wantDay := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	if !repo.upsertDate.Equal(wantDay) {
		t.Fatalf("expected recompute for %s, got %s", wantDay, repo.upsertDate)
	}
}

func TestListRejectsInvertedRange(t *testing.T) {
	svc := newTestAggregates(t, &fakeAggregatesRepo{})

	from := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	if _, err := svc.List(context.Background(), uuid.New(), from, from.AddDate(0, 0, -1)); err == nil {
		t.Fatal("expected error for inverted range")
	}
}

func newTestAggregates(t *testing.T, repo Repository) Service {
	t.Helper()
	svc, err := NewService(repo, logger.New(logger.Options{ServiceName: "test"}))
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

type fakeAggregatesRepo struct {
	increments   int
	sessions     int64
	productViews int64
	upsertDate   time.Time
}

func (f *fakeAggregatesRepo) Increment(ctx context.Context, tenantID uuid.UUID, date time.Time, field enums.AggregateField, delta int64) error {
	f.increments++
	return nil
}

func (f *fakeAggregatesRepo) UpsertTotals(ctx context.Context, tenantID uuid.UUID, date time.Time, sessions, productViews int64) (*models.DailyAggregate, error) {
	f.upsertDate = date
	return &models.DailyAggregate{
		TenantID:     tenantID,
		Date:         date,
		Sessions:     sessions,
		ProductViews: productViews,
	}, nil
}

func (f *fakeAggregatesRepo) FindByDay(ctx context.Context, tenantID uuid.UUID, date time.Time) (*models.DailyAggregate, error) {
	return nil, nil
}

func (f *fakeAggregatesRepo) ListRange(ctx context.Context, tenantID uuid.UUID, from, to time.Time) ([]models.DailyAggregate, error) {
	return nil, nil
}

func (f *fakeAggregatesRepo) CountDistinctPageViewSessions(ctx context.Context, tenantID uuid.UUID, dayStart, dayEnd time.Time) (int64, error) {
	return f.sessions, nil
}

func (f *fakeAggregatesRepo) CountProductViews(ctx context.Context, tenantID uuid.UUID, dayStart, dayEnd time.Time) (int64, error) {
	return f.productViews, nil
}

func (f *fakeAggregatesRepo) DeleteByTenant(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	return 0, nil
}
