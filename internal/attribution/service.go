package attribution

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/shopsignal/attribution-backend/pkg/db"
	"github.com/shopsignal/attribution-backend/pkg/db/models"
	pkgerrors "github.com/shopsignal/attribution-backend/pkg/errors"
	"github.com/shopsignal/attribution-backend/pkg/logger"
	"github.com/shopsignal/attribution-backend/pkg/metrics"
)

const (
	defaultConversionWindow  = 24 * time.Hour
	defaultCandidatePageSize = 250
)

// MatchStatus reports how an order notification was resolved.
type MatchStatus string

const (
	MatchStatusConverted MatchStatus = "converted"
	MatchStatusNoMatch   MatchStatus = "no_match"
	MatchStatusDuplicate MatchStatus = "duplicate"
)

// MatchInput is one order-completion notification.
type MatchInput struct {
	TenantID       uuid.UUID
	OrderID        string
	OrderCreatedAt time.Time
	OrderValue     decimal.Decimal
	Currency       string
}

// MatchResult is the matcher outcome. MatchedReferralID is set only when this
// notification converted a pending click.
type MatchResult struct {
	Status            MatchStatus `json:"status"`
	MatchedReferralID *uuid.UUID  `json:"matchedReferralId,omitempty"`
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service is the attribution matcher.
type Service interface {
	AttemptMatch(ctx context.Context, input MatchInput) (*MatchResult, error)
}

// ServiceParams configure the matcher.
type ServiceParams struct {
	DB                txRunner
	Repo              Repository
	Guard             *IdempotencyGuard
	Metrics           *metrics.AttributionMetrics
	Logger            *logger.Logger
	ConversionWindow  time.Duration
	CandidatePageSize int
}

type service struct {
	db       txRunner
	repo     Repository
	guard    *IdempotencyGuard
	metrics  *metrics.AttributionMetrics
	logg     *logger.Logger
	window   time.Duration
	pageSize int
}

// NewService builds the attribution matcher.
func NewService(params ServiceParams) (Service, error) {
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Repo == nil {
		return nil, fmt.Errorf("attribution repository required")
	}
	window := params.ConversionWindow
	if window <= 0 {
		window = defaultConversionWindow
	}
	pageSize := params.CandidatePageSize
	if pageSize <= 0 {
		pageSize = defaultCandidatePageSize
	}
	return &service{
		db:       params.DB,
		repo:     params.Repo,
		guard:    params.Guard,
		metrics:  params.Metrics,
		logg:     params.Logger,
		window:   window,
		pageSize: pageSize,
	}, nil
}

var errDuplicateOrder = errors.New("order already attributed")

// AttemptMatch resolves one order notification against the tenant's pending
// referral clicks. The first candidate clicked within the conversion window
// before the order wins; a conditional update guarantees only one
// notification can claim any given click. Duplicate order ids collapse onto
// the stored outcome.
func (s *service) AttemptMatch(ctx context.Context, input MatchInput) (*MatchResult, error) {
	orderID := strings.TrimSpace(input.OrderID)
	if orderID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	if input.TenantID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tenant id is required")
	}

	ctx = s.logContext(ctx, input.TenantID, orderID)
	guardKey := input.TenantID.String() + ":" + orderID

	if s.guard != nil {
		seen, err := s.guard.CheckAndMark(ctx, guardKey)
		if err != nil {
			// Guard is an optimization only; the unique order row still
			// protects against double conversion.
			s.logWarn(ctx, "idempotency guard unavailable")
		} else if seen {
			if stored, findErr := s.repo.FindAttributedOrder(ctx, input.TenantID, orderID); findErr == nil {
				s.metrics.IncDuplicate()
				return s.finish(ctx, duplicateResult(stored)), nil
			}
		}
	}

	var result *MatchResult
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)

		if stored, findErr := txRepo.FindAttributedOrder(ctx, input.TenantID, orderID); findErr == nil {
			result = duplicateResult(stored)
			return nil
		} else if !errors.Is(findErr, gorm.ErrRecordNotFound) {
			return findErr
		}

		matched, matchErr := s.claimFirstInWindow(ctx, txRepo, input)
		if matchErr != nil {
			return matchErr
		}

		order := &models.AttributedOrder{
			TenantID:       input.TenantID,
			OrderID:        orderID,
			OrderCreatedAt: input.OrderCreatedAt.UTC(),
			OrderValue:     input.OrderValue,
			Currency:       valueOrUSD(input.Currency),
		}
		if matched != nil {
			order.MatchedReferralID = &matched.ReferralID
		}
		if _, createErr := txRepo.CreateAttributedOrder(ctx, order); createErr != nil {
			if db.IsUniqueViolation(createErr, "idx_attributed_orders_order") {
				// A concurrent notification for the same order got there
				// first; rolling back releases any click claimed here.
				return errDuplicateOrder
			}
			return createErr
		}

		if matched != nil {
			result = &MatchResult{
				Status:            MatchStatusConverted,
				MatchedReferralID: &matched.ReferralID,
			}
		} else {
			result = &MatchResult{Status: MatchStatusNoMatch}
		}
		return nil
	})

	if errors.Is(err, errDuplicateOrder) {
		s.metrics.IncDuplicate()
		stored, findErr := s.repo.FindAttributedOrder(ctx, input.TenantID, orderID)
		if findErr != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, findErr, "load attributed order")
		}
		return s.finish(ctx, duplicateResult(stored)), nil
	}
	if err != nil {
		if s.guard != nil {
			// Clear the mark so a redelivered notification is not ignored.
			_ = s.guard.Delete(ctx, guardKey)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "attempt attribution match")
	}

	if result.Status == MatchStatusConverted {
		s.metrics.IncConversion()
	}
	return s.finish(ctx, result), nil
}

// claimFirstInWindow walks the pending candidates and claims the first one
// whose click fell inside the conversion window before the order. A failed
// claim means a concurrent notification took that click; selection simply
// continues among the remaining candidates.
func (s *service) claimFirstInWindow(ctx context.Context, repo Repository, input MatchInput) (*models.ReferralClick, error) {
	candidates, err := repo.FindPendingClicks(ctx, input.TenantID, s.pageSize)
	if err != nil {
		return nil, err
	}

	orderAt := input.OrderCreatedAt.UTC()
	for i := range candidates {
		candidate := &candidates[i]
		elapsed := orderAt.Sub(candidate.ClickedAt.UTC())
		if elapsed < 0 || elapsed > s.window {
			continue
		}
		claimed, claimErr := repo.ClaimPending(ctx, candidate.ID, input.OrderValue, orderAt)
		if claimErr != nil {
			return nil, claimErr
		}
		if claimed {
			return candidate, nil
		}
	}
	return nil, nil
}

func (s *service) finish(ctx context.Context, result *MatchResult) *MatchResult {
	s.metrics.IncAttempt(string(result.Status))
	if s.logg != nil {
		fields := map[string]any{"outcome": string(result.Status)}
		if result.MatchedReferralID != nil {
			fields["referral_id"] = result.MatchedReferralID.String()
		}
		s.logg.Info(s.logg.WithFields(ctx, fields), "attribution match resolved")
	}
	return result
}

func (s *service) logContext(ctx context.Context, tenantID uuid.UUID, orderID string) context.Context {
	if s.logg == nil {
		return ctx
	}
	ctx = s.logg.WithTenantID(ctx, tenantID.String())
	return s.logg.WithOrderID(ctx, orderID)
}

func (s *service) logWarn(ctx context.Context, msg string) {
	if s.logg != nil {
		s.logg.Warn(ctx, msg)
	}
}

func duplicateResult(stored *models.AttributedOrder) *MatchResult {
	result := &MatchResult{Status: MatchStatusDuplicate}
	if stored != nil {
		result.MatchedReferralID = stored.MatchedReferralID
	}
	return result
}

func valueOrUSD(currency string) string {
	if trimmed := strings.TrimSpace(currency); trimmed != "" {
		return strings.ToUpper(trimmed)
	}
	return "USD"
}
