package consent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/shopsignal/attribution-backend/pkg/db/models"
	"github.com/shopsignal/attribution-backend/pkg/enums"
	pkgerrors "github.com/shopsignal/attribution-backend/pkg/errors"
	"github.com/shopsignal/attribution-backend/pkg/logger"
)

// Gate is the read surface the click registry and event intake consult before
// every tracked write. Implementations must read fresh state on each call;
// nothing may be cached beyond the current request.
type Gate interface {
	IsTrackingAllowed(ctx context.Context, tenantID uuid.UUID) (bool, error)
}

// Service exposes consent management operations.
type Service interface {
	Gate
	Get(ctx context.Context, tenantID uuid.UUID) (*AuthorizationDTO, error)
	UpdateScope(ctx context.Context, tenantID uuid.UUID, input UpdateScopeInput) (*AuthorizationDTO, error)
	Revoke(ctx context.Context, tenantID uuid.UUID, reason string) (*AuthorizationDTO, error)
	Grant(ctx context.Context, tenantID uuid.UUID, scope enums.TrackingScope) (*AuthorizationDTO, error)
}

// UpdateScopeInput captures the mutable authorization fields.
type UpdateScopeInput struct {
	IsTrackingEnabled *bool
	TrackingScope     *string
}

// AuthorizationDTO is the external shape of a tracking authorization.
type AuthorizationDTO struct {
	TenantID          uuid.UUID           `json:"tenantId"`
	IsTrackingEnabled bool                `json:"isTrackingEnabled"`
	TrackingScope     enums.TrackingScope `json:"trackingScope"`
	ConsentGivenAt    time.Time           `json:"consentGivenAt"`
	RevokedAt         *time.Time          `json:"revokedAt,omitempty"`
	RevokedReason     *string             `json:"revokedReason,omitempty"`
}

type service struct {
	repo Repository
	logg *logger.Logger
	now  func() time.Time
}

// NewService builds the consent service.
func NewService(repo Repository, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("consent repository required")
	}
	return &service{repo: repo, logg: logg, now: time.Now}, nil
}

func (s *service) IsTrackingAllowed(ctx context.Context, tenantID uuid.UUID) (bool, error) {
	auth, err := s.repo.FindByTenant(ctx, tenantID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load tracking authorization")
	}
	return auth.Allows(), nil
}

func (s *service) Get(ctx context.Context, tenantID uuid.UUID) (*AuthorizationDTO, error) {
	auth, err := s.repo.FindByTenant(ctx, tenantID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no tracking authorization for tenant")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load tracking authorization")
	}
	return toDTO(auth), nil
}

func (s *service) Grant(ctx context.Context, tenantID uuid.UUID, scope enums.TrackingScope) (*AuthorizationDTO, error) {
	if !scope.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown tracking scope %q", scope))
	}

	existing, err := s.repo.FindByTenant(ctx, tenantID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load tracking authorization")
	}
	if existing != nil {
		if updErr := s.repo.Update(ctx, tenantID, map[string]any{
			"is_tracking_enabled": true,
			"tracking_scope":      scope,
			"consent_given_at":    s.now().UTC(),
			"revoked_at":          nil,
			"revoked_reason":      nil,
		}); updErr != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, updErr, "update tracking authorization")
		}
		return s.Get(ctx, tenantID)
	}

	auth, err := s.repo.Create(ctx, &models.TrackingAuthorization{
		TenantID:          tenantID,
		IsTrackingEnabled: true,
		TrackingScope:     scope,
		ConsentGivenAt:    s.now().UTC(),
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create tracking authorization")
	}
	return toDTO(auth), nil
}

func (s *service) UpdateScope(ctx context.Context, tenantID uuid.UUID, input UpdateScopeInput) (*AuthorizationDTO, error) {
	updates := map[string]any{}
	if input.TrackingScope != nil {
		scope, err := enums.ParseTrackingScope(strings.TrimSpace(*input.TrackingScope))
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid tracking scope")
		}
		updates["tracking_scope"] = scope
	}
	if input.IsTrackingEnabled != nil {
		updates["is_tracking_enabled"] = *input.IsTrackingEnabled
	}
	if len(updates) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "no authorization fields to update")
	}

	if err := s.repo.Update(ctx, tenantID, updates); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no tracking authorization for tenant")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update tracking authorization")
	}
	return s.Get(ctx, tenantID)
}

func (s *service) Revoke(ctx context.Context, tenantID uuid.UUID, reason string) (*AuthorizationDTO, error) {
	now := s.now().UTC()
	updates := map[string]any{
		"is_tracking_enabled": false,
		"revoked_at":          now,
		"revoked_reason":      strings.TrimSpace(reason),
	}
	if err := s.repo.Update(ctx, tenantID, updates); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no tracking authorization for tenant")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "revoke tracking authorization")
	}

	if s.logg != nil {
		rctx := s.logg.WithTenantID(ctx, tenantID.String())
		s.logg.Info(rctx, "tracking authorization revoked")
	}
	return s.Get(ctx, tenantID)
}

func toDTO(auth *models.TrackingAuthorization) *AuthorizationDTO {
	return &AuthorizationDTO{
		TenantID:          auth.TenantID,
		IsTrackingEnabled: auth.IsTrackingEnabled,
		TrackingScope:     auth.TrackingScope,
		ConsentGivenAt:    auth.ConsentGivenAt,
		RevokedAt:         auth.RevokedAt,
		RevokedReason:     auth.RevokedReason,
	}
}
