//go:build !integration

package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"sportshub-payments/internal/domain/model"
	"sportshub-payments/internal/infra/web"
	"sportshub-payments/internal/usecase"
)

func TestNewRouter_Mounts(t *testing.T) {
	l := zerolog.Nop()
	h := NewRouter(RouterDeps{
		Auth:           web.NewAuthManager("secret", false, "", time.Hour),
		RequestTimeout: time.Second,
		CallbackPath:   "/payments/callback",
		Logger:         &l,
	})

	cases := []struct {
		method, path string
		want         int
	}{
		{http.MethodGet, "/health", http.StatusOK},
		{http.MethodGet, "/metrics", http.StatusOK},
		{http.MethodGet, "/payments/callback", http.StatusBadRequest},
		{http.MethodGet, "/api/v1/payments/stats", http.StatusUnauthorized},
		{http.MethodPost, "/api/v1/payments/advertisement", http.StatusUnauthorized},
		{http.MethodGet, "/nope", http.StatusNotFound},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(tc.method, tc.path, nil))
		if rec.Code != tc.want {
			t.Errorf("%s %s: want %d, got %d", tc.method, tc.path, tc.want, rec.Code)
		}
		if rec.Header().Get("X-Request-Id") == "" {
			t.Errorf("%s %s: missing request id", tc.method, tc.path)
		}
	}
}

type webhookOnlyUC struct {
	usecase.PaymentUseCase
	calls int
}

func (w *webhookOnlyUC) HandleWebhook(ctx context.Context, payload []byte, sig string) error {
	w.calls++
	return nil
}

func TestNewRouter_WebhookIsPublic(t *testing.T) {
	l := zerolog.Nop()
	uc := &webhookOnlyUC{}
	h := NewRouter(RouterDeps{Payments: uc, RequestTimeout: time.Second, Logger: &l})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/webhook", strings.NewReader(`{}`))
	req.Header.Set("x-paystack-signature", "sig")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || uc.calls != 1 {
		t.Fatalf("want 200 and one call, got %d and %d", rec.Code, uc.calls)
	}
}

type keyRecorder struct{ keys []string }

func (k *keyRecorder) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	k.keys = append(k.keys, key)
	return true, nil
}

type verifyOnlyUC struct{ usecase.PaymentUseCase }

func (verifyOnlyUC) VerifyPayment(ctx context.Context, ref string) (*usecase.VerifyResult, error) {
	return &usecase.VerifyResult{Payment: &model.Payment{Reference: ref, Status: model.PaymentStatusPending}}, nil
}

func TestNewRouter_ForwardedForOnlyBehindTrustedProxy(t *testing.T) {
	l := zerolog.Nop()
	for _, tc := range []struct {
		trust bool
		want  string
	}{
		{false, "rate_limit:verify:192.0.2.1"},
		{true, "rate_limit:verify:203.0.113.7"},
	} {
		lim := &keyRecorder{}
		h := NewRouter(RouterDeps{
			Payments:       verifyOnlyUC{},
			Limiter:        lim,
			RateLimit:      10,
			RateWindow:     time.Minute,
			RequestTimeout: time.Second,
			TrustProxy:     tc.trust,
			Logger:         &l,
		})
		req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/verify/PAY-1", nil)
		req.RemoteAddr = "192.0.2.1:4321"
		req.Header.Set("X-Forwarded-For", "203.0.113.7")
		h.ServeHTTP(httptest.NewRecorder(), req)
		if len(lim.keys) != 1 || lim.keys[0] != tc.want {
			t.Errorf("trust=%v: want key %q, got %v", tc.trust, tc.want, lim.keys)
		}
	}
}
