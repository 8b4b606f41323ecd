package clicks

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/shopsignal/attribution-backend/internal/consent"
	"github.com/shopsignal/attribution-backend/pkg/db/models"
	"github.com/shopsignal/attribution-backend/pkg/enums"
	pkgerrors "github.com/shopsignal/attribution-backend/pkg/errors"
	"github.com/shopsignal/attribution-backend/pkg/logger"
	"github.com/shopsignal/attribution-backend/pkg/pagination"
)

const (
	defaultUTMSource   = "affiliate"
	defaultUTMMedium   = "suggestion"
	defaultUTMCampaign = "business_tracking"
)

type tenantResolver interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Tenant, error)
	FindByDomain(ctx context.Context, host string) (*models.Tenant, error)
}

// Service is the click registry.
type Service interface {
	CreateClick(ctx context.Context, input CreateClickInput) (*CreateClickResult, error)
	List(ctx context.Context, tenantID uuid.UUID, params pagination.Params) (*ClickList, error)
}

// CreateClickInput carries one outbound click. TenantID wins when set;
// otherwise the tenant is resolved from the target URL's host.
type CreateClickInput struct {
	TenantID    *uuid.UUID
	TargetURL   string
	SourceURL   *string
	ProductName *string
	UTMSource   string
	UTMMedium   string
	UTMCampaign string
	UserID      *string
}

// CreateClickResult reports the stored click, or that consent blocked the
// write. ConsentDenied is a success-shaped outcome, not an error.
type CreateClickResult struct {
	ConsentDenied bool
	ReferralID    uuid.UUID
	TrackableURL  string
	Click         *models.ReferralClick
}

type service struct {
	repo    Repository
	tenants tenantResolver
	gate    consent.Gate
	logg    *logger.Logger
	now     func() time.Time
}

// NewService builds the click registry service.
func NewService(repo Repository, tenants tenantResolver, gate consent.Gate, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("clicks repository required")
	}
	if tenants == nil {
		return nil, fmt.Errorf("tenant resolver required")
	}
	if gate == nil {
		return nil, fmt.Errorf("consent gate required")
	}
	return &service{
		repo:    repo,
		tenants: tenants,
		gate:    gate,
		logg:    logg,
		now:     time.Now,
	}, nil
}

func (s *service) CreateClick(ctx context.Context, input CreateClickInput) (*CreateClickResult, error) {
	target, err := parseAbsoluteURL(input.TargetURL)
	if err != nil {
		return nil, err
	}

	tenant, err := s.resolveTenant(ctx, input.TenantID, target.Hostname())
	if err != nil {
		return nil, err
	}

	allowed, err := s.gate.IsTrackingAllowed(ctx, tenant.ID)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return &CreateClickResult{ConsentDenied: true}, nil
	}

	click := &models.ReferralClick{
		ReferralID:       uuid.New(),
		TenantID:         tenant.ID,
		TargetURL:        target.String(),
		SourceURL:        input.SourceURL,
		ProductName:      input.ProductName,
		UTMSource:        valueOrDefault(input.UTMSource, defaultUTMSource),
		UTMMedium:        valueOrDefault(input.UTMMedium, defaultUTMMedium),
		UTMCampaign:      valueOrDefault(input.UTMCampaign, defaultUTMCampaign),
		UserID:           input.UserID,
		ClickedAt:        s.now().UTC(),
		ConversionStatus: enums.ConversionStatusPending,
	}

	stored, err := s.repo.Create(ctx, click)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist referral click")
	}

	if s.logg != nil {
		cctx := s.logg.WithFields(ctx, map[string]any{
			"tenant_id":   tenant.ID.String(),
			"referral_id": stored.ReferralID.String(),
		})
		s.logg.Info(cctx, "referral click recorded")
	}

	return &CreateClickResult{
		ReferralID:   stored.ReferralID,
		TrackableURL: buildTrackableURL(target, stored),
		Click:        stored,
	}, nil
}

func (s *service) List(ctx context.Context, tenantID uuid.UUID, params pagination.Params) (*ClickList, error) {
	list, err := s.repo.ListByTenant(ctx, tenantID, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list referral clicks")
	}
	return list, nil
}

func (s *service) resolveTenant(ctx context.Context, tenantID *uuid.UUID, host string) (*models.Tenant, error) {
	if tenantID != nil {
		tenant, err := s.tenants.FindByID(ctx, *tenantID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, pkgerrors.New(pkgerrors.CodeNotFound, "unknown tenant")
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve tenant by id")
		}
		return tenant, nil
	}

	tenant, err := s.tenants.FindByDomain(ctx, host)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("no tenant registered for domain %q", host))
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve tenant by domain")
	}
	return tenant, nil
}

func parseAbsoluteURL(raw string) (*url.URL, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "target url is required")
	}
	parsed, err := url.Parse(trimmed)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid target url")
	}
	if !parsed.IsAbs() || parsed.Host == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "target url must be absolute")
	}
	return parsed, nil
}

// buildTrackableURL appends the attribution query parameters to the target.
func buildTrackableURL(target *url.URL, click *models.ReferralClick) string {
	trackable := *target
	query := trackable.Query()
	query.Set("utm_source", click.UTMSource)
	query.Set("utm_medium", click.UTMMedium)
	query.Set("utm_campaign", click.UTMCampaign)
	query.Set("referral_id", click.ReferralID.String())
	trackable.RawQuery = query.Encode()
	return trackable.String()
}

func valueOrDefault(value, fallback string) string {
	if trimmed := strings.TrimSpace(value); trimmed != "" {
		return trimmed
	}
	return fallback
}
