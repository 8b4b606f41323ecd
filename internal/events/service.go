package events

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/shopsignal/attribution-backend/internal/attribution"
	"github.com/shopsignal/attribution-backend/internal/consent"
	"github.com/shopsignal/attribution-backend/pkg/db/models"
	"github.com/shopsignal/attribution-backend/pkg/enums"
	pkgerrors "github.com/shopsignal/attribution-backend/pkg/errors"
	"github.com/shopsignal/attribution-backend/pkg/logger"
	"github.com/shopsignal/attribution-backend/pkg/types"
)

type aggregator interface {
	Increment(ctx context.Context, tenantID uuid.UUID, date time.Time, field enums.AggregateField) error
}

// Service is the event intake.
type Service interface {
	RecordEvent(ctx context.Context, input RecordEventInput) (*RecordEventResult, error)
}

// RecordEventInput carries one behavioral or commerce event.
type RecordEventInput struct {
	TenantID     uuid.UUID
	EventType    string
	SessionID    string
	OccurredAt   time.Time
	URL          string
	PageTitle    *string
	Referrer     *string
	UserAgent    *string
	UserID       *string
	ProductID    *string
	OrderID      *string
	CheckoutID   *string
	DiscountCode *string
	Price        *decimal.Decimal
	Payload      types.JSONMap
}

// RecordEventResult reports the stored event id, or that consent blocked the
// write. A denied write is still a success toward the caller.
type RecordEventResult struct {
	ConsentDenied bool
	EventID       uuid.UUID
	Match         *attribution.MatchResult
}

// ServiceParams configure event intake.
type ServiceParams struct {
	Repo       Repository
	Gate       consent.Gate
	Aggregator aggregator
	Matcher    attribution.Service
	Logger     *logger.Logger
}

type service struct {
	repo       Repository
	gate       consent.Gate
	aggregator aggregator
	matcher    attribution.Service
	logg       *logger.Logger
	now        func() time.Time
}

// NewService builds the event intake service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("events repository required")
	}
	if params.Gate == nil {
		return nil, fmt.Errorf("consent gate required")
	}
	if params.Aggregator == nil {
		return nil, fmt.Errorf("aggregator required")
	}
	return &service{
		repo:       params.Repo,
		gate:       params.Gate,
		aggregator: params.Aggregator,
		matcher:    params.Matcher,
		logg:       params.Logger,
		now:        time.Now,
	}, nil
}

// RecordEvent validates and persists one event, feeds the daily rollups, and
// kicks the attribution matcher for commerce completions. Everything past the
// insert is best-effort: rollups are healed by recompute and a matcher
// failure must never fail the event write.
func (s *service) RecordEvent(ctx context.Context, input RecordEventInput) (*RecordEventResult, error) {
	eventType, err := enums.ParseEventType(strings.TrimSpace(input.EventType))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid event type")
	}
	sessionID := strings.TrimSpace(input.SessionID)
	if sessionID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "session id is required")
	}
	if input.TenantID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tenant id is required")
	}

	allowed, err := s.gate.IsTrackingAllowed(ctx, input.TenantID)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return &RecordEventResult{ConsentDenied: true}, nil
	}

	occurredAt := input.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = s.now()
	}
	occurredAt = occurredAt.UTC()

	event := &models.TrackingEvent{
		TenantID:     input.TenantID,
		SessionID:    sessionID,
		EventType:    eventType,
		OccurredAt:   occurredAt,
		URL:          input.URL,
		PageTitle:    input.PageTitle,
		Referrer:     input.Referrer,
		UserAgent:    input.UserAgent,
		UserID:       input.UserID,
		ProductID:    input.ProductID,
		OrderID:      input.OrderID,
		CheckoutID:   input.CheckoutID,
		DiscountCode: input.DiscountCode,
		Price:        input.Price,
		Payload:      input.Payload,
	}
	stored, err := s.repo.Create(ctx, event)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist tracking event")
	}

	ctx = s.eventLogContext(ctx, stored)
	result := &RecordEventResult{EventID: stored.ID}

	s.applyAggregates(ctx, stored)

	if eventType.IsCommerceCompletion() {
		result.Match = s.triggerAttribution(ctx, stored)
	}

	return result, nil
}

func (s *service) applyAggregates(ctx context.Context, event *models.TrackingEvent) {
	switch event.EventType {
	case enums.EventTypePageView:
		// The sessions counter only moves on the first page view of a
		// session each day. The claim insert names a single winner, so
		// concurrent page views of one session cannot double-count it.
		claimed, err := s.repo.ClaimSessionDay(ctx, event.TenantID, event.SessionID, truncateToDay(event.OccurredAt))
		if err != nil {
			s.logError(ctx, "session day claim failed", err)
			return
		}
		if !claimed {
			return
		}
		if err := s.aggregator.Increment(ctx, event.TenantID, event.OccurredAt, enums.AggregateFieldSessions); err != nil {
			s.logError(ctx, "session rollup increment failed", err)
		}
	case enums.EventTypeProductView:
		if err := s.aggregator.Increment(ctx, event.TenantID, event.OccurredAt, enums.AggregateFieldProductViews); err != nil {
			s.logError(ctx, "product view rollup increment failed", err)
		}
	}
}

// triggerAttribution runs the matcher after a commerce completion event. The
// order id from the event keys idempotency; events without one fall back to
// their own id so redeliveries of the same event stay idempotent too.
func (s *service) triggerAttribution(ctx context.Context, event *models.TrackingEvent) *attribution.MatchResult {
	if s.matcher == nil {
		return nil
	}

	orderID := ""
	if event.OrderID != nil {
		orderID = strings.TrimSpace(*event.OrderID)
	}
	if orderID == "" {
		orderID = "event:" + event.ID.String()
	}

	value := decimal.Zero
	if event.Price != nil {
		value = *event.Price
	}

	match, err := s.matcher.AttemptMatch(ctx, attribution.MatchInput{
		TenantID:       event.TenantID,
		OrderID:        orderID,
		OrderCreatedAt: event.OccurredAt,
		OrderValue:     value,
	})
	if err != nil {
		s.logError(ctx, "attribution trigger degraded to no match", err)
		return nil
	}
	return match
}

func (s *service) eventLogContext(ctx context.Context, event *models.TrackingEvent) context.Context {
	if s.logg == nil {
		return ctx
	}
	return s.logg.WithFields(ctx, map[string]any{
		"tenant_id":  event.TenantID.String(),
		"session_id": event.SessionID,
		"event_id":   event.ID.String(),
		"event_type": event.EventType.String(),
	})
}

func (s *service) logError(ctx context.Context, msg string, err error) {
	if s.logg != nil {
		s.logg.Error(ctx, msg, err)
	}
}

func truncateToDay(t time.Time) time.Time {
	utc := t.UTC()
	return time.Date(utc.Year(), utc.Month(), utc.Day(), 0, 0, 0, 0, time.UTC)
}
