package events

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/shopsignal/attribution-backend/internal/attribution"
	"github.com/shopsignal/attribution-backend/pkg/db/models"
	"github.com/shopsignal/attribution-backend/pkg/enums"
	pkgerrors "github.com/shopsignal/attribution-backend/pkg/errors"
	"github.com/shopsignal/attribution-backend/pkg/logger"
)

func TestRecordEventRejectsUnknownEventType(t *testing.T) {
	svc, _, _, _ := newTestIntake(t, true)

	_, err := svc.RecordEvent(context.Background(), RecordEventInput{
		TenantID:  uuid.New(),
		EventType: "telepathy",
		SessionID: "s-1",
	})
	if err == nil {
		t.Fatal("expected error")
	}
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestRecordEventRequiresSession(t *testing.T) {
	svc, _, _, _ := newTestIntake(t, true)

	_, err := svc.RecordEvent(context.Background(), RecordEventInput{
		TenantID:  uuid.New(),
		EventType: "page_view",
	})
	if err == nil {
		t.Fatal("expected error for missing session id")
	}
}

func TestRecordEventConsentDeniedIsSuccessShaped(t *testing.T) {
	svc, repo, _, _ := newTestIntake(t, false)

	result, err := svc.RecordEvent(context.Background(), RecordEventInput{
		TenantID:  uuid.New(),
		EventType: "page_view",
		SessionID: "s-1",
	})
	if err != nil {
		t.Fatalf("RecordEvent: %v", err)
	}
	if !result.ConsentDenied {
		t.Fatal("expected consent denied")
	}
	if len(repo.created) != 0 {
		t.Fatal("denied events must not be stored")
	}
}

func TestRecordEventCountsSessionOncePerDay(t *testing.T) {
	svc, repo, agg, _ := newTestIntake(t, true)

	input := RecordEventInput{
		TenantID:   uuid.New(),
		EventType:  "page_view",
		SessionID:  "s-1",
		OccurredAt: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
	}
	if _, err := svc.RecordEvent(context.Background(), input); err != nil {
		t.Fatalf("first RecordEvent: %v", err)
	}
	input.OccurredAt = input.OccurredAt.Add(time.Hour)
	if _, err := svc.RecordEvent(context.Background(), input); err != nil {
		t.Fatalf("second RecordEvent: %v", err)
	}

	if len(repo.created) != 2 {
		t.Fatalf("expected both events stored, got %d", len(repo.created))
	}
	if agg.counts[enums.AggregateFieldSessions] != 1 {
		t.Fatalf("expected one session increment, got %d", agg.counts[enums.AggregateFieldSessions])
	}
}

func TestRecordEventIncrementsProductViews(t *testing.T) {
	svc, _, agg, _ := newTestIntake(t, true)

	_, err := svc.RecordEvent(context.Background(), RecordEventInput{
		TenantID:  uuid.New(),
		EventType: "product_view",
		SessionID: "s-1",
	})
	if err != nil {
		t.Fatalf("RecordEvent: %v", err)
	}
	if agg.counts[enums.AggregateFieldProductViews] != 1 {
		t.Fatalf("expected one product view increment, got %d", agg.counts[enums.AggregateFieldProductViews])
	}
}

func TestRecordEventTriggersMatcherOnPurchase(t *testing.T) {
	svc, _, _, matcher := newTestIntake(t, true)

	orderID := "shop-order-9"
	price := decimal.NewFromInt(42)
	result, err := svc.RecordEvent(context.Background(), RecordEventInput{
		TenantID:  uuid.New(),
		EventType: "purchase",
		SessionID: "s-1",
		OrderID:   &orderID,
		Price:     &price,
	})
	if err != nil {
		t.Fatalf("RecordEvent: %v", err)
	}
	if matcher.lastInput.OrderID != orderID {
		t.Fatalf("expected matcher keyed on %q, got %q", orderID, matcher.lastInput.OrderID)
	}
	if !matcher.lastInput.OrderValue.Equal(price) {
		t.Fatalf("expected order value %s, got %s", price, matcher.lastInput.OrderValue)
	}
	if result.Match == nil || result.Match.Status != attribution.MatchStatusConverted {
		t.Fatal("expected the matcher result on the response")
	}
}

func TestRecordEventFallsBackToEventIDWhenOrderMissing(t *testing.T) {
	svc, _, _, matcher := newTestIntake(t, true)

	_, err := svc.RecordEvent(context.Background(), RecordEventInput{
		TenantID:  uuid.New(),
		EventType: "checkout_complete",
		SessionID: "s-1",
	})
	if err != nil {
		t.Fatalf("RecordEvent: %v", err)
	}
	if !strings.HasPrefix(matcher.lastInput.OrderID, "event:") {
		t.Fatalf("expected event-id fallback, got %q", matcher.lastInput.OrderID)
	}
}

func TestRecordEventSurvivesMatcherFailure(t *testing.T) {
	svc, repo, _, matcher := newTestIntake(t, true)
	matcher.err = errors.New("matcher down")

	result, err := svc.RecordEvent(context.Background(), RecordEventInput{
		TenantID:  uuid.New(),
		EventType: "purchase",
		SessionID: "s-1",
	})
	if err != nil {
		t.Fatalf("RecordEvent must not fail on matcher errors: %v", err)
	}
	if result.Match != nil {
		t.Fatal("expected no match on matcher failure")
	}
	if len(repo.created) != 1 {
		t.Fatal("event must still be stored")
	}
}

func newTestIntake(t *testing.T, allowed bool) (Service, *fakeEventsRepo, *fakeAggregator, *fakeMatcher) {
	t.Helper()
	repo := &fakeEventsRepo{}
	agg := &fakeAggregator{counts: map[enums.AggregateField]int{}}
	matcher := &fakeMatcher{}
	svc, err := NewService(ServiceParams{
		Repo:       repo,
		Gate:       fakeGate{allowed: allowed},
		Aggregator: agg,
		Matcher:    matcher,
		Logger:     logger.New(logger.Options{ServiceName: "test"}),
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc, repo, agg, matcher
}

type fakeGate struct {
	allowed bool
}

func (f fakeGate) IsTrackingAllowed(ctx context.Context, tenantID uuid.UUID) (bool, error) {
	return f.allowed, nil
}

type fakeEventsRepo struct {
	created []*models.TrackingEvent
	claimed map[string]bool
}

func (f *fakeEventsRepo) Create(ctx context.Context, event *models.TrackingEvent) (*models.TrackingEvent, error) {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	f.created = append(f.created, event)
	return event, nil
}

func (f *fakeEventsRepo) ClaimSessionDay(ctx context.Context, tenantID uuid.UUID, sessionID string, day time.Time) (bool, error) {
	if f.claimed == nil {
		f.claimed = map[string]bool{}
	}
	key := tenantID.String() + "|" + sessionID + "|" + day.Format("2006-01-02")
	if f.claimed[key] {
		return false, nil
	}
	f.claimed[key] = true
	return true, nil
}

func (f *fakeEventsRepo) DeleteByUser(ctx context.Context, tenantID uuid.UUID, userID string) (int64, error) {
	return 0, nil
}

func (f *fakeEventsRepo) DeleteByTenant(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	return 0, nil
}

type fakeAggregator struct {
	counts map[enums.AggregateField]int
}

func (f *fakeAggregator) Increment(ctx context.Context, tenantID uuid.UUID, date time.Time, field enums.AggregateField) error {
	f.counts[field]++
	return nil
}

type fakeMatcher struct {
	lastInput attribution.MatchInput
	err       error
}

func (f *fakeMatcher) AttemptMatch(ctx context.Context, input attribution.MatchInput) (*attribution.MatchResult, error) {
	f.lastInput = input
	if f.err != nil {
		return nil, f.err
	}
	referralID := uuid.New()
	return &attribution.MatchResult{
		Status:            attribution.MatchStatusConverted,
		MatchedReferralID: &referralID,
	}, nil
}
