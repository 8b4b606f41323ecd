package attribution

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/shopsignal/attribution-backend/pkg/db/models"
	"github.com/shopsignal/attribution-backend/pkg/logger"
)

func TestAttemptMatchConvertsClickInsideWindow(t *testing.T) {
	clickedAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	click := pendingClick(clickedAt)
	repo := &fakeAttributionRepo{pending: []models.ReferralClick{click}}
	svc := newTestMatcher(t, repo)

	result, err := svc.AttemptMatch(context.Background(), MatchInput{
		TenantID:       click.TenantID,
		OrderID:        "order-1",
		OrderCreatedAt: clickedAt.Add(23*time.Hour + 59*time.Minute),
		OrderValue:     decimal.NewFromInt(100),
	})
	if err != nil {
		t.Fatalf("AttemptMatch: %v", err)
	}
	if result.Status != MatchStatusConverted {
		t.Fatalf("expected converted, got %s", result.Status)
	}
	if result.MatchedReferralID == nil || *result.MatchedReferralID != click.ReferralID {
		t.Fatalf("expected referral %s to win", click.ReferralID)
	}
	if len(repo.claimed) != 1 || repo.claimed[0] != click.ID {
		t.Fatalf("expected click %s claimed, got %v", click.ID, repo.claimed)
	}
	if len(repo.createdOrders) != 1 {
		t.Fatalf("expected one attributed order, got %d", len(repo.createdOrders))
	}
}

func TestAttemptMatchRejectsClickOutsideWindow(t *testing.T) {
	clickedAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	repo := &fakeAttributionRepo{pending: []models.ReferralClick{pendingClick(clickedAt)}}
	svc := newTestMatcher(t, repo)

	result, err := svc.AttemptMatch(context.Background(), MatchInput{
		TenantID:       repo.pending[0].TenantID,
		OrderID:        "order-late",
		OrderCreatedAt: clickedAt.Add(24*time.Hour + time.Minute),
		OrderValue:     decimal.NewFromInt(50),
	})
	if err != nil {
		t.Fatalf("AttemptMatch: %v", err)
	}
	if result.Status != MatchStatusNoMatch {
		t.Fatalf("expected no_match, got %s", result.Status)
	}
	if len(repo.claimed) != 0 {
		t.Fatalf("expected no claims, got %v", repo.claimed)
	}
	if len(repo.createdOrders) != 1 {
		t.Fatal("no-match outcomes still record the order for idempotency")
	}
}

func TestAttemptMatchRejectsClickAfterOrder(t *testing.T) {
	orderAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	repo := &fakeAttributionRepo{pending: []models.ReferralClick{pendingClick(orderAt.Add(time.Hour))}}
	svc := newTestMatcher(t, repo)

	result, err := svc.AttemptMatch(context.Background(), MatchInput{
		TenantID:       repo.pending[0].TenantID,
		OrderID:        "order-early",
		OrderCreatedAt: orderAt,
	})
	if err != nil {
		t.Fatalf("AttemptMatch: %v", err)
	}
	if result.Status != MatchStatusNoMatch {
		t.Fatalf("expected no_match for click after order, got %s", result.Status)
	}
}

func TestAttemptMatchSkipsClaimedCandidateAndContinues(t *testing.T) {
	clickedAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tenantID := uuid.New()
	first := pendingClick(clickedAt.Add(time.Hour))
	second := pendingClick(clickedAt)
	first.TenantID = tenantID
	second.TenantID = tenantID

	repo := &fakeAttributionRepo{
		pending:     []models.ReferralClick{first, second},
		claimDenied: map[uuid.UUID]bool{first.ID: true},
	}
	svc := newTestMatcher(t, repo)

	result, err := svc.AttemptMatch(context.Background(), MatchInput{
		TenantID:       tenantID,
		OrderID:        "order-race",
		OrderCreatedAt: clickedAt.Add(2 * time.Hour),
	})
	if err != nil {
		t.Fatalf("AttemptMatch: %v", err)
	}
	if result.Status != MatchStatusConverted {
		t.Fatalf("expected converted via second candidate, got %s", result.Status)
	}
	if result.MatchedReferralID == nil || *result.MatchedReferralID != second.ReferralID {
		t.Fatal("expected the second candidate to win after the first claim failed")
	}
}

func TestAttemptMatchReturnsStoredOutcomeForDuplicateOrder(t *testing.T) {
	tenantID := uuid.New()
	referralID := uuid.New()
	repo := &fakeAttributionRepo{
		existingOrder: &models.AttributedOrder{
			TenantID:          tenantID,
			OrderID:           "order-dup",
			MatchedReferralID: &referralID,
		},
	}
	svc := newTestMatcher(t, repo)

	result, err := svc.AttemptMatch(context.Background(), MatchInput{
		TenantID:       tenantID,
		OrderID:        "order-dup",
		OrderCreatedAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("AttemptMatch: %v", err)
	}
	if result.Status != MatchStatusDuplicate {
		t.Fatalf("expected duplicate, got %s", result.Status)
	}
	if result.MatchedReferralID == nil || *result.MatchedReferralID != referralID {
		t.Fatal("duplicate must carry the stored referral id")
	}
	if len(repo.claimed) != 0 {
		t.Fatal("duplicate notifications must not claim clicks")
	}
}

func TestAttemptMatchValidatesInput(t *testing.T) {
	svc := newTestMatcher(t, &fakeAttributionRepo{})

	if _, err := svc.AttemptMatch(context.Background(), MatchInput{TenantID: uuid.New()}); err == nil {
		t.Fatal("expected error for missing order id")
	}
	if _, err := svc.AttemptMatch(context.Background(), MatchInput{OrderID: "o"}); err == nil {
		t.Fatal("expected error for missing tenant id")
	}
}

func newTestMatcher(t *testing.T, repo *fakeAttributionRepo) Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		DB:     fakeTxRunner{},
		Repo:   repo,
		Logger: logger.New(logger.Options{ServiceName: "test"}),
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func pendingClick(clickedAt time.Time) models.ReferralClick {
	return models.ReferralClick{
		ID:               uuid.New(),
		ReferralID:       uuid.New(),
		TenantID:         uuid.New(),
		ClickedAt:        clickedAt,
		ConversionStatus: "pending",
	}
}

type fakeTxRunner struct{}

func (fakeTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type fakeAttributionRepo struct {
	pending       []models.ReferralClick
	claimDenied   map[uuid.UUID]bool
	existingOrder *models.AttributedOrder
	claimed       []uuid.UUID
	createdOrders []*models.AttributedOrder
}

func (f *fakeAttributionRepo) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakeAttributionRepo) FindPendingClicks(ctx context.Context, tenantID uuid.UUID, limit int) ([]models.ReferralClick, error) {
	return f.pending, nil
}

func (f *fakeAttributionRepo) ClaimPending(ctx context.Context, clickID uuid.UUID, value decimal.Decimal, at time.Time) (bool, error) {
	if f.claimDenied[clickID] {
		return false, nil
	}
	f.claimed = append(f.claimed, clickID)
	return true, nil
}

func (f *fakeAttributionRepo) FindAttributedOrder(ctx context.Context, tenantID uuid.UUID, orderID string) (*models.AttributedOrder, error) {
	if f.existingOrder != nil && f.existingOrder.OrderID == orderID {
		return f.existingOrder, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeAttributionRepo) CreateAttributedOrder(ctx context.Context, order *models.AttributedOrder) (*models.AttributedOrder, error) {
	f.createdOrders = append(f.createdOrders, order)
	return order, nil
}

func (f *fakeAttributionRepo) MarkAbandonedBefore(ctx context.Context, cutoff time.Time, batchSize int) (int64, error) {
	return 0, errors.New("not used")
}
