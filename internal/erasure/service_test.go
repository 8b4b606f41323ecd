package erasure

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	pkgerrors "github.com/shopsignal/attribution-backend/pkg/errors"
	"github.com/shopsignal/attribution-backend/pkg/logger"
)

func TestDeleteByUserRequiresUserID(t *testing.T) {
	svc, _ := newTestErasure(t)

	_, err := svc.DeleteByUser(context.Background(), uuid.New(), "  ")
	if err == nil {
		t.Fatal("expected error")
	}
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestDeleteByUserReportsCounts(t *testing.T) {
	svc, stores := newTestErasure(t)
	stores.clicks.deletedByUser = 3
	stores.events.deletedByUser = 11

	report, err := svc.DeleteByUser(context.Background(), uuid.New(), "user-42")
	if err != nil {
		t.Fatalf("DeleteByUser: %v", err)
	}
	if report.ReferralClicks != 3 || report.TrackingEvents != 11 {
		t.Fatalf("unexpected report: %+v", report)
	}
	if stores.tenants.anonymized {
		t.Fatal("user erasure must not anonymize the tenant")
	}
}

func TestDeleteTenantCascades(t *testing.T) {
	svc, stores := newTestErasure(t)
	stores.clicks.deletedByTenant = 5
	stores.events.deletedByTenant = 20
	stores.aggregates.deleted = 7

	report, err := svc.DeleteTenant(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("DeleteTenant: %v", err)
	}
	if report.ReferralClicks != 5 || report.TrackingEvents != 20 || report.Aggregates != 7 {
		t.Fatalf("unexpected report: %+v", report)
	}
	if !stores.tenants.anonymized {
		t.Fatal("tenant erasure must anonymize the tenant record")
	}
}

func TestDeleteTenantStopsOnStoreFailure(t *testing.T) {
	svc, stores := newTestErasure(t)
	stores.events.err = errors.New("db down")

	_, err := svc.DeleteTenant(context.Background(), uuid.New())
	if err == nil {
		t.Fatal("expected error")
	}
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeDependency {
		t.Fatalf("expected dependency error, got %v", err)
	}
	if stores.tenants.anonymized {
		t.Fatal("a failed cascade must not anonymize the tenant")
	}
}

type erasureStores struct {
	clicks     *fakeClicksEraser
	events     *fakeEventsEraser
	aggregates *fakeAggregatesEraser
	tenants    *fakeTenantAnonymizer
}

func newTestErasure(t *testing.T) (Service, *erasureStores) {
	t.Helper()
	stores := &erasureStores{
		clicks:     &fakeClicksEraser{},
		events:     &fakeEventsEraser{},
		aggregates: &fakeAggregatesEraser{},
		tenants:    &fakeTenantAnonymizer{},
	}
	svc, err := NewService(ServiceParams{
		Clicks:     stores.clicks,
		Events:     stores.events,
		Aggregates: stores.aggregates,
		Tenants:    stores.tenants,
		Logger:     logger.New(logger.Options{ServiceName: "test"}),
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc, stores
}

type fakeClicksEraser struct {
	deletedByUser   int64
	deletedByTenant int64
	err             error
}

func (f *fakeClicksEraser) DeleteByUser(ctx context.Context, tenantID uuid.UUID, userID string) (int64, error) {
	return f.deletedByUser, f.err
}

func (f *fakeClicksEraser) DeleteByTenant(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	return f.deletedByTenant, f.err
}

type fakeEventsEraser struct {
	deletedByUser   int64
	deletedByTenant int64
	err             error
}

func (f *fakeEventsEraser) DeleteByUser(ctx context.Context, tenantID uuid.UUID, userID string) (int64, error) {
	return f.deletedByUser, f.err
}

func (f *fakeEventsEraser) DeleteByTenant(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	return f.deletedByTenant, f.err
}

type fakeAggregatesEraser struct {
	deleted int64
	err     error
}

func (f *fakeAggregatesEraser) DeleteByTenant(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	return f.deleted, f.err
}

type fakeTenantAnonymizer struct {
	anonymized bool
	err        error
}

func (f *fakeTenantAnonymizer) Anonymize(ctx context.Context, id uuid.UUID) error {
	if f.err != nil {
		return f.err
	}
	f.anonymized = true
	return nil
}
