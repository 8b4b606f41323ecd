package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/shopsignal/attribution-backend/pkg/db/models"
	"github.com/shopsignal/attribution-backend/pkg/logger"
)

const defaultRecomputeLookback = 2

type tenantLister interface {
	ListActive(ctx context.Context) ([]models.Tenant, error)
}

type aggregateRecomputer interface {
	Recompute(ctx context.Context, tenantID uuid.UUID, date time.Time) (*models.DailyAggregate, error)
}

// AggregateRecomputeJobParams configure the rollup healer.
type AggregateRecomputeJobParams struct {
	Logger       *logger.Logger
	Tenants      tenantLister
	Aggregates   aggregateRecomputer
	LookbackDays int
}

// NewAggregateRecomputeJob builds the cron job that rebuilds recent daily
// rollups from raw events. The incremental counters written at intake can
// drift under races; rebuilding the last few days converges them onto the
// batch-derived truth.
func NewAggregateRecomputeJob(params AggregateRecomputeJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Tenants == nil {
		return nil, fmt.Errorf("tenant lister required")
	}
	if params.Aggregates == nil {
		return nil, fmt.Errorf("aggregates recomputer required")
	}
	lookback := params.LookbackDays
	if lookback <= 0 {
		lookback = defaultRecomputeLookback
	}
	return &aggregateRecomputeJob{
		logg:     params.Logger,
		tenants:  params.Tenants,
		rollups:  params.Aggregates,
		lookback: lookback,
		now:      time.Now,
	}, nil
}

type aggregateRecomputeJob struct {
	logg     *logger.Logger
	tenants  tenantLister
	rollups  aggregateRecomputer
	lookback int
	now      func() time.Time
}

func (j *aggregateRecomputeJob) Name() string { return "aggregate-recompute" }

func (j *aggregateRecomputeJob) Run(ctx context.Context) error {
	tenants, err := j.tenants.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("list tenants: %w", err)
	}

	today := j.now().UTC().Truncate(24 * time.Hour)
	var errs []error
	recomputed := 0
	for _, tenant := range tenants {
		for offset := 0; offset < j.lookback; offset++ {
			day := today.AddDate(0, 0, -offset)
			if _, err := j.rollups.Recompute(ctx, tenant.ID, day); err != nil {
				errs = append(errs, fmt.Errorf("recompute tenant %s day %s: %w",
					tenant.ID, day.Format("2006-01-02"), err))
				continue
			}
			recomputed++
		}
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"tenants": len(tenants),
		"days":    recomputed,
	})
	j.logg.Info(logCtx, "aggregate recompute loop complete")
	return multierr.Combine(errs...)
}
