package aggregates

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/shopsignal/attribution-backend/pkg/db/models"
	"github.com/shopsignal/attribution-backend/pkg/enums"
	pkgerrors "github.com/shopsignal/attribution-backend/pkg/errors"
	"github.com/shopsignal/attribution-backend/pkg/logger"
)

// Service maintains the per-tenant daily rollups. The incremental path is
// driven by event intake; Recompute rebuilds a day from raw events and must
// land on the same counts.
type Service interface {
	Increment(ctx context.Context, tenantID uuid.UUID, date time.Time, field enums.AggregateField) error
	Recompute(ctx context.Context, tenantID uuid.UUID, date time.Time) (*models.DailyAggregate, error)
	List(ctx context.Context, tenantID uuid.UUID, from, to time.Time) ([]models.DailyAggregate, error)
}

type service struct {
	repo Repository
	logg *logger.Logger
}

// NewService builds the aggregates service.
func NewService(repo Repository, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("aggregates repository required")
	}
	return &service{repo: repo, logg: logg}, nil
}

func (s *service) Increment(ctx context.Context, tenantID uuid.UUID, date time.Time, field enums.AggregateField) error {
	if !field.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown aggregate field %q", field))
	}
	if err := s.repo.Increment(ctx, tenantID, date, field, 1); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "increment daily aggregate")
	}
	return nil
}

func (s *service) Recompute(ctx context.Context, tenantID uuid.UUID, date time.Time) (*models.DailyAggregate, error) {
	dayStart := truncateToDay(date)
	dayEnd := dayStart.Add(24 * time.Hour)

	sessions, err := s.repo.CountDistinctPageViewSessions(ctx, tenantID, dayStart, dayEnd)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count sessions")
	}
	productViews, err := s.repo.CountProductViews(ctx, tenantID, dayStart, dayEnd)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count product views")
	}

	row, err := s.repo.UpsertTotals(ctx, tenantID, dayStart, sessions, productViews)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store recomputed aggregate")
	}

	if s.logg != nil {
		rctx := s.logg.WithFields(ctx, map[string]any{
			"tenant_id":     tenantID.String(),
			"date":          dayStart.Format("2006-01-02"),
			"sessions":      sessions,
			"product_views": productViews,
		})
		s.logg.Info(rctx, "daily aggregate recomputed")
	}
	return row, nil
}

func (s *service) List(ctx context.Context, tenantID uuid.UUID, from, to time.Time) ([]models.DailyAggregate, error) {
	if to.Before(from) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "date range end precedes start")
	}
	rows, err := s.repo.ListRange(ctx, tenantID, from, to)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return []models.DailyAggregate{}, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list daily aggregates")
	}
	return rows, nil
}
