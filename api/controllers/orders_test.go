package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/shopsignal/attribution-backend/internal/attribution"
)

func TestOrderWebhookMatcherFailureStillOK(t *testing.T) {
	matcher := &fakeMatcherService{err: errors.New("db down")}
	handler := OrderWebhook(matcher, nil, testLogger())

	body := `{"orderId":"ord-1","createdAt":"2026-03-01T12:00:00Z","totalPrice":"10.00"}`
	req := withTenant(httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/orders", strings.NewReader(body)))
	rec := httptest.NewRecorder()
	handler(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("matcher failures must not surface to the platform, got %d", rec.Code)
	}
	var envelope struct {
		Data attribution.MatchResult `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.Status != attribution.MatchStatusNoMatch {
		t.Fatalf("expected no_match, got %q", envelope.Data.Status)
	}
}

func TestOrderWebhookRejectsMalformedBody(t *testing.T) {
	handler := OrderWebhook(&fakeMatcherService{}, nil, testLogger())

	req := withTenant(httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/orders", strings.NewReader(`{}`)))
	rec := httptest.NewRecorder()
	handler(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing orderId, got %d", rec.Code)
	}
}

func TestOrderWebhookReturnsMatchOutcome(t *testing.T) {
	referralID := uuid.New()
	matcher := &fakeMatcherService{result: &attribution.MatchResult{
		Status:            attribution.MatchStatusConverted,
		MatchedReferralID: &referralID,
	}}
	handler := OrderWebhook(matcher, nil, testLogger())

	body := `{"orderId":"ord-2","createdAt":"2026-03-01T12:00:00Z","totalPrice":"25.50"}`
	req := withTenant(httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/orders", strings.NewReader(body)))
	rec := httptest.NewRecorder()
	handler(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var envelope struct {
		Data attribution.MatchResult `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.Status != attribution.MatchStatusConverted {
		t.Fatalf("expected converted, got %q", envelope.Data.Status)
	}
	if matcher.lastInput.OrderID != "ord-2" {
		t.Fatalf("expected order forwarded, got %q", matcher.lastInput.OrderID)
	}
}

type fakeMatcherService struct {
	result    *attribution.MatchResult
	err       error
	lastInput attribution.MatchInput
}

func (f *fakeMatcherService) AttemptMatch(ctx context.Context, input attribution.MatchInput) (*attribution.MatchResult, error) {
	f.lastInput = input
	if f.err != nil {
		return nil, f.err
	}
	if f.result != nil {
		return f.result, nil
	}
	return &attribution.MatchResult{Status: attribution.MatchStatusNoMatch}, nil
}
