//go:build !integration

package apiv1_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	apiv1 "sportshub-payments/internal/infra/api/apiv1"
	"sportshub-payments/internal/infra/web"
	"sportshub-payments/internal/usecase"

	"sportshub-payments/internal/domain"
	"sportshub-payments/internal/domain/model"
)

//
// ---------------- use case stubs ----------------
//

type stubPaymentUC struct {
	createAd       func(ctx context.Context, in usecase.CreateAdvertisementInput) (*usecase.CreatePaymentResult, error)
	createDonation func(ctx context.Context, in usecase.CreateDonationInput) (*usecase.CreatePaymentResult, error)
	verify         func(ctx context.Context, ref string) (*usecase.VerifyResult, error)
	webhook        func(ctx context.Context, payload []byte, sig string) error
	refund         func(ctx context.Context, id string) (*model.Payment, error)
	payments       map[string]*model.Payment

	lastList struct {
		userID        string
		offset, limit int
	}
}

func (s *stubPaymentUC) CreateAdvertisementPayment(ctx context.Context, in usecase.CreateAdvertisementInput) (*usecase.CreatePaymentResult, error) {
	return s.createAd(ctx, in)
}
func (s *stubPaymentUC) CreateDonationPayment(ctx context.Context, in usecase.CreateDonationInput) (*usecase.CreatePaymentResult, error) {
	return s.createDonation(ctx, in)
}
func (s *stubPaymentUC) VerifyPayment(ctx context.Context, ref string) (*usecase.VerifyResult, error) {
	return s.verify(ctx, ref)
}
func (s *stubPaymentUC) HandleWebhook(ctx context.Context, payload []byte, sig string) error {
	return s.webhook(ctx, payload, sig)
}
func (s *stubPaymentUC) RefundPayment(ctx context.Context, id string) (*model.Payment, error) {
	return s.refund(ctx, id)
}
func (s *stubPaymentUC) GetByID(ctx context.Context, id string) (*model.Payment, error) {
	p, ok := s.payments[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return p, nil
}
func (s *stubPaymentUC) ListByUser(ctx context.Context, userID string, offset, limit int) ([]*model.Payment, error) {
	s.lastList.userID, s.lastList.offset, s.lastList.limit = userID, offset, limit
	var out []*model.Payment
	for _, p := range s.payments {
		if p.UserID == userID {
			out = append(out, p)
		}
	}
	return out, nil
}
func (s *stubPaymentUC) ReconcileStale(ctx context.Context, cutoff time.Time, limit int, run func(task func(ctx context.Context) error) error) (int, error) {
	return 0, nil
}

type stubStatsUC struct{}

func (stubStatsUC) GetRevenueStats(ctx context.Context) (*model.RevenueStats, error) {
	return &model.RevenueStats{
		Currency:      model.CurrencyNGN,
		TotalRevenue:  decimal.RequireFromString("50000"),
		RevenueByType: map[model.PaymentType]decimal.Decimal{model.PaymentTypeAdvertisement: decimal.RequireFromString("50000")},
	}, nil
}

type denyLimiter struct{}

func (denyLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	return false, nil
}

//
// -------------------- test helpers --------------------
//

func newLogger() *zerolog.Logger { l := zerolog.Nop(); return &l }

var testAuth = web.NewAuthManager("api-test-secret", false, "", time.Hour)

func tokenFor(t *testing.T, id string, role model.Role) string {
	t.Helper()
	tok, err := testAuth.Issue(&model.User{ID: id, Email: id + "@example.com", Role: role})
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return "Bearer " + tok
}

func samplePayment() *model.Payment {
	cid := "42"
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	return &model.Payment{
		ID: "p1", Reference: "PAY-1-ABC", UserID: "adv-1", Amount: 5000000, Currency: model.CurrencyNGN,
		Type: model.PaymentTypeAdvertisement, Status: model.PaymentStatusPending, Provider: model.ProviderPaystack,
		AdCampaignID: &cid, CustomerEmail: "adv@example.com", CustomerName: "Ada", CreatedAt: now, UpdatedAt: now,
	}
}

func newStubUC() *stubPaymentUC {
	p := samplePayment()
	return &stubPaymentUC{
		createAd: func(ctx context.Context, in usecase.CreateAdvertisementInput) (*usecase.CreatePaymentResult, error) {
			return &usecase.CreatePaymentResult{Payment: p, PaymentURL: "https://checkout.paystack.com/abc", Reference: p.Reference}, nil
		},
		createDonation: func(ctx context.Context, in usecase.CreateDonationInput) (*usecase.CreatePaymentResult, error) {
			return nil, domain.ErrNotFound
		},
		verify: func(ctx context.Context, ref string) (*usecase.VerifyResult, error) {
			return nil, domain.ErrNotFound
		},
		webhook: func(ctx context.Context, payload []byte, sig string) error { return nil },
		refund: func(ctx context.Context, id string) (*model.Payment, error) {
			return nil, fmt.Errorf("%w: payment %s is PENDING", domain.ErrInvalidState, id)
		},
		payments: map[string]*model.Payment{p.ID: p},
	}
}

func newRouter(uc *stubPaymentUC, opts apiv1.Options) *chi.Mux {
	r := chi.NewRouter()
	apiv1.RegisterAPIV1(r, apiv1.NewServer(uc, stubStatsUC{}, testAuth, opts, newLogger()))
	return r
}

func do(r http.Handler, method, path, auth string, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

//
// -------------------- tests --------------------
//

func TestPayments_CreateAdvertisement(t *testing.T) {
	body := []byte(`{"adCampaignId":"42","amount":50000.00,"customerEmail":"adv@example.com","customerName":"Ada","metadata":{"slot":"home"}}`)

	t.Run("requires a session", func(t *testing.T) {
		rec := do(newRouter(newStubUC(), apiv1.Options{}), http.MethodPost, "/api/v1/payments/advertisement", "", body)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("want 401, got %d", rec.Code)
		}
	})

	t.Run("201 with major-unit amount and payer from token", func(t *testing.T) {
		uc := newStubUC()
		var got usecase.CreateAdvertisementInput
		inner := uc.createAd
		uc.createAd = func(ctx context.Context, in usecase.CreateAdvertisementInput) (*usecase.CreatePaymentResult, error) {
			got = in
			return inner(ctx, in)
		}
		rec := do(newRouter(uc, apiv1.Options{}), http.MethodPost, "/api/v1/payments/advertisement", tokenFor(t, "adv-1", model.RoleAdvertiser), body)
		if rec.Code != http.StatusCreated {
			t.Fatalf("want 201, got %d, body=%s", rec.Code, rec.Body.String())
		}
		var resp apiv1.CreatePaymentResponse
		if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if resp.Payment.Amount != "50000.00" || resp.PaymentURL == "" || resp.Reference != "PAY-1-ABC" {
			t.Fatalf("unexpected response %+v", resp)
		}
		if got.UserID != "adv-1" || !got.Amount.Equal(decimal.RequireFromString("50000")) || got.AdCampaignID != "42" {
			t.Fatalf("unexpected input %+v", got)
		}
	})

	t.Run("malformed json is 400", func(t *testing.T) {
		rec := do(newRouter(newStubUC(), apiv1.Options{}), http.MethodPost, "/api/v1/payments/advertisement", tokenFor(t, "adv-1", model.RoleAdvertiser), []byte(`{"amount":`))
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("want 400, got %d", rec.Code)
		}
	})

	t.Run("validation failure is 422", func(t *testing.T) {
		bad := []byte(`{"adCampaignId":"42","amount":10,"customerEmail":"not-an-email","customerName":"Ada"}`)
		rec := do(newRouter(newStubUC(), apiv1.Options{}), http.MethodPost, "/api/v1/payments/advertisement", tokenFor(t, "adv-1", model.RoleAdvertiser), bad)
		if rec.Code != http.StatusUnprocessableEntity {
			t.Fatalf("want 422, got %d", rec.Code)
		}
		if !strings.Contains(rec.Body.String(), "CustomerEmail") {
			t.Fatalf("error should name the field, got %s", rec.Body.String())
		}
	})

	t.Run("domain errors map to status codes", func(t *testing.T) {
		cases := map[error]int{
			domain.ErrNotFound:        http.StatusNotFound,
			domain.ErrInvalidState:    http.StatusConflict,
			domain.ErrInvalidArgument: http.StatusUnprocessableEntity,
			domain.ErrGateway:         http.StatusBadGateway,
			errors.New("boom"):        http.StatusInternalServerError,
		}
		for e, want := range cases {
			uc := newStubUC()
			uc.createAd = func(ctx context.Context, in usecase.CreateAdvertisementInput) (*usecase.CreatePaymentResult, error) {
				return nil, fmt.Errorf("wrapped: %w", e)
			}
			rec := do(newRouter(uc, apiv1.Options{}), http.MethodPost, "/api/v1/payments/advertisement", tokenFor(t, "adv-1", model.RoleAdvertiser), body)
			if rec.Code != want {
				t.Errorf("%v: want %d, got %d", e, want, rec.Code)
			}
		}
	})

	t.Run("rate limited is 429", func(t *testing.T) {
		r := newRouter(newStubUC(), apiv1.Options{Limiter: denyLimiter{}, RateLimit: 1, RateWindow: time.Minute})
		rec := do(r, http.MethodPost, "/api/v1/payments/advertisement", tokenFor(t, "adv-1", model.RoleAdvertiser), body)
		if rec.Code != http.StatusTooManyRequests {
			t.Fatalf("want 429, got %d", rec.Code)
		}
	})
}

func TestPayments_Verify(t *testing.T) {
	uc := newStubUC()
	uc.verify = func(ctx context.Context, ref string) (*usecase.VerifyResult, error) {
		if ref != "PAY-1-ABC" {
			return nil, domain.ErrNotFound
		}
		p := samplePayment()
		p.Status = model.PaymentStatusSuccessful
		return &usecase.VerifyResult{Payment: p, IsSuccessful: true, Message: "Payment verified successfully"}, nil
	}
	r := newRouter(uc, apiv1.Options{})

	rec := do(r, http.MethodPost, "/api/v1/payments/verify/PAY-1-ABC", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("want 200, got %d", rec.Code)
	}
	var resp apiv1.VerifyPaymentResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.IsSuccessful || resp.Payment.Status != "SUCCESSFUL" {
		t.Fatalf("unexpected response %+v", resp)
	}

	if rec := do(r, http.MethodPost, "/api/v1/payments/verify/PAY-nope", "", nil); rec.Code != http.StatusNotFound {
		t.Fatalf("want 404, got %d", rec.Code)
	}
}

func TestPayments_Webhook(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"processed", nil, http.StatusOK},
		{"bad signature", domain.ErrAuthentication, http.StatusUnauthorized},
		{"storage failure asks for retry", errors.New("db down"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			uc := newStubUC()
			var gotSig string
			var gotBody []byte
			uc.webhook = func(ctx context.Context, payload []byte, sig string) error {
				gotSig, gotBody = sig, payload
				return tc.err
			}
			req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/webhook", strings.NewReader(`{"event":"charge.success"}`))
			req.Header.Set("x-paystack-signature", "abc123")
			rec := httptest.NewRecorder()
			newRouter(uc, apiv1.Options{}).ServeHTTP(rec, req)

			if rec.Code != tc.want {
				t.Fatalf("want %d, got %d", tc.want, rec.Code)
			}
			if gotSig != "abc123" || string(gotBody) != `{"event":"charge.success"}` {
				t.Fatalf("raw body and signature must reach the use case, got %q %q", gotSig, gotBody)
			}
		})
	}
}

func TestPayments_GetAndList(t *testing.T) {
	uc := newStubUC()
	r := newRouter(uc, apiv1.Options{})

	t.Run("owner can read", func(t *testing.T) {
		rec := do(r, http.MethodGet, "/api/v1/payments/p1", tokenFor(t, "adv-1", model.RoleAdvertiser), nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("want 200, got %d", rec.Code)
		}
		var p apiv1.Payment
		_ = json.NewDecoder(rec.Body).Decode(&p)
		if p.Amount != "50000.00" || p.AdCampaignID == nil || *p.AdCampaignID != "42" {
			t.Fatalf("unexpected payment %+v", p)
		}
	})

	t.Run("other users are forbidden, admin is not", func(t *testing.T) {
		if rec := do(r, http.MethodGet, "/api/v1/payments/p1", tokenFor(t, "patron-9", model.RolePatron), nil); rec.Code != http.StatusForbidden {
			t.Fatalf("want 403, got %d", rec.Code)
		}
		if rec := do(r, http.MethodGet, "/api/v1/payments/p1", tokenFor(t, "root", model.RoleAdmin), nil); rec.Code != http.StatusOK {
			t.Fatalf("want 200, got %d", rec.Code)
		}
	})

	t.Run("unknown id is 404", func(t *testing.T) {
		if rec := do(r, http.MethodGet, "/api/v1/payments/nope", tokenFor(t, "root", model.RoleAdmin), nil); rec.Code != http.StatusNotFound {
			t.Fatalf("want 404, got %d", rec.Code)
		}
	})

	t.Run("list defaults to the caller", func(t *testing.T) {
		rec := do(r, http.MethodGet, "/api/v1/payments?offset=0&limit=5", tokenFor(t, "adv-1", model.RoleAdvertiser), nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("want 200, got %d", rec.Code)
		}
		var list apiv1.PaymentList
		_ = json.NewDecoder(rec.Body).Decode(&list)
		if len(list.Items) != 1 || list.Limit != 5 || uc.lastList.userID != "adv-1" {
			t.Fatalf("unexpected list %+v (uc saw %+v)", list, uc.lastList)
		}
	})

	t.Run("oversized limit is clamped and echoed", func(t *testing.T) {
		rec := do(r, http.MethodGet, "/api/v1/payments?limit=500", tokenFor(t, "adv-1", model.RoleAdvertiser), nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("want 200, got %d", rec.Code)
		}
		var list apiv1.PaymentList
		_ = json.NewDecoder(rec.Body).Decode(&list)
		if list.Limit != 100 || uc.lastList.limit != 100 {
			t.Fatalf("expected limit 100 in response and use case, got %d and %d", list.Limit, uc.lastList.limit)
		}
	})

	t.Run("listing someone else needs admin", func(t *testing.T) {
		if rec := do(r, http.MethodGet, "/api/v1/payments?userId=adv-1", tokenFor(t, "patron-9", model.RolePatron), nil); rec.Code != http.StatusForbidden {
			t.Fatalf("want 403, got %d", rec.Code)
		}
	})

	t.Run("bad paging is 400", func(t *testing.T) {
		if rec := do(r, http.MethodGet, "/api/v1/payments?limit=abc", tokenFor(t, "adv-1", model.RoleAdvertiser), nil); rec.Code != http.StatusBadRequest {
			t.Fatalf("want 400, got %d", rec.Code)
		}
	})
}

func TestPayments_AdminRoutes(t *testing.T) {
	uc := newStubUC()
	r := newRouter(uc, apiv1.Options{})

	t.Run("stats require admin", func(t *testing.T) {
		if rec := do(r, http.MethodGet, "/api/v1/payments/stats", tokenFor(t, "adv-1", model.RoleAdvertiser), nil); rec.Code != http.StatusForbidden {
			t.Fatalf("want 403, got %d", rec.Code)
		}
		rec := do(r, http.MethodGet, "/api/v1/payments/stats", tokenFor(t, "root", model.RoleAdmin), nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("want 200, got %d", rec.Code)
		}
		if !strings.Contains(rec.Body.String(), `"totalRevenue":"50000"`) {
			t.Fatalf("unexpected stats body %s", rec.Body.String())
		}
	})

	t.Run("refund of non-successful payment is 409", func(t *testing.T) {
		if rec := do(r, http.MethodPost, "/api/v1/payments/p1/refund", tokenFor(t, "root", model.RoleAdmin), nil); rec.Code != http.StatusConflict {
			t.Fatalf("want 409, got %d", rec.Code)
		}
	})

	t.Run("refund requires admin", func(t *testing.T) {
		if rec := do(r, http.MethodPost, "/api/v1/payments/p1/refund", tokenFor(t, "adv-1", model.RoleAdvertiser), nil); rec.Code != http.StatusForbidden {
			t.Fatalf("want 403, got %d", rec.Code)
		}
	})
}
