package erasure

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	pkgerrors "github.com/shopsignal/attribution-backend/pkg/errors"
	"github.com/shopsignal/attribution-backend/pkg/logger"
)

type clicksEraser interface {
	DeleteByUser(ctx context.Context, tenantID uuid.UUID, userID string) (int64, error)
	DeleteByTenant(ctx context.Context, tenantID uuid.UUID) (int64, error)
}

type eventsEraser interface {
	DeleteByUser(ctx context.Context, tenantID uuid.UUID, userID string) (int64, error)
	DeleteByTenant(ctx context.Context, tenantID uuid.UUID) (int64, error)
}

type aggregatesEraser interface {
	DeleteByTenant(ctx context.Context, tenantID uuid.UUID) (int64, error)
}

type tenantAnonymizer interface {
	Anonymize(ctx context.Context, id uuid.UUID) error
}

// Service handles data-erasure requests arriving from the privacy
// collaborator. User-level erasure removes rows referencing the identifier;
// tenant-level erasure cascades across every tenant-scoped table and
// anonymizes the tenant record itself.
type Service interface {
	DeleteByUser(ctx context.Context, tenantID uuid.UUID, userID string) (*Report, error)
	DeleteTenant(ctx context.Context, tenantID uuid.UUID) (*Report, error)
}

// Report summarizes how many rows each table lost.
type Report struct {
	ReferralClicks int64 `json:"referralClicks"`
	TrackingEvents int64 `json:"trackingEvents"`
	Aggregates     int64 `json:"aggregates,omitempty"`
}

// ServiceParams configure the erasure service.
type ServiceParams struct {
	Clicks     clicksEraser
	Events     eventsEraser
	Aggregates aggregatesEraser
	Tenants    tenantAnonymizer
	Logger     *logger.Logger
}

type service struct {
	clicks     clicksEraser
	events     eventsEraser
	aggregates aggregatesEraser
	tenants    tenantAnonymizer
	logg       *logger.Logger
}

// NewService builds the erasure service.
func NewService(params ServiceParams) (Service, error) {
	if params.Clicks == nil {
		return nil, fmt.Errorf("clicks eraser required")
	}
	if params.Events == nil {
		return nil, fmt.Errorf("events eraser required")
	}
	if params.Aggregates == nil {
		return nil, fmt.Errorf("aggregates eraser required")
	}
	if params.Tenants == nil {
		return nil, fmt.Errorf("tenant anonymizer required")
	}
	return &service{
		clicks:     params.Clicks,
		events:     params.Events,
		aggregates: params.Aggregates,
		tenants:    params.Tenants,
		logg:       params.Logger,
	}, nil
}

func (s *service) DeleteByUser(ctx context.Context, tenantID uuid.UUID, userID string) (*Report, error) {
	trimmed := strings.TrimSpace(userID)
	if trimmed == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}

	clicks, err := s.clicks.DeleteByUser(ctx, tenantID, trimmed)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "erase referral clicks")
	}
	events, err := s.events.DeleteByUser(ctx, tenantID, trimmed)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "erase tracking events")
	}

	if s.logg != nil {
		ectx := s.logg.WithFields(ctx, map[string]any{
			"tenant_id":     tenantID.String(),
			"clicks_erased": clicks,
			"events_erased": events,
		})
		s.logg.Info(ectx, "user erasure completed")
	}
	return &Report{ReferralClicks: clicks, TrackingEvents: events}, nil
}

func (s *service) DeleteTenant(ctx context.Context, tenantID uuid.UUID) (*Report, error) {
	clicks, err := s.clicks.DeleteByTenant(ctx, tenantID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "erase referral clicks")
	}
	events, err := s.events.DeleteByTenant(ctx, tenantID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "erase tracking events")
	}
	aggregates, err := s.aggregates.DeleteByTenant(ctx, tenantID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "erase daily aggregates")
	}
	if err := s.tenants.Anonymize(ctx, tenantID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "anonymize tenant")
	}

	if s.logg != nil {
		ectx := s.logg.WithFields(ctx, map[string]any{
			"tenant_id":         tenantID.String(),
			"clicks_erased":     clicks,
			"events_erased":     events,
			"aggregates_erased": aggregates,
		})
		s.logg.Info(ectx, "tenant erasure completed")
	}
	return &Report{ReferralClicks: clicks, TrackingEvents: events, Aggregates: aggregates}, nil
}
