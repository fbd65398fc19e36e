package apiv1

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"sportshub-payments/internal/domain"
	"sportshub-payments/internal/domain/model"
	"sportshub-payments/internal/infra/adapters/payment"
	"sportshub-payments/internal/infra/api"
	"sportshub-payments/internal/infra/logging"
	"sportshub-payments/internal/infra/web"
	"sportshub-payments/internal/usecase"
)

const maxWebhookBody = 1 << 20

// Options tunes the per-IP limiter on create and verify routes. A nil Limiter
// disables it.
type Options struct {
	Limiter    api.Limiter
	RateLimit  int
	RateWindow time.Duration
}

type Server struct {
	payUC    usecase.PaymentUseCase
	statsUC  usecase.StatsUseCase
	auth     *web.AuthManager
	validate *validator.Validate
	opts     Options
	log      *zerolog.Logger
}

func NewServer(payUC usecase.PaymentUseCase, statsUC usecase.StatsUseCase, auth *web.AuthManager, opts Options, logger *zerolog.Logger) *Server {
	if logger == nil {
		l := zerolog.Nop()
		logger = &l
	}
	return &Server{
		payUC:    payUC,
		statsUC:  statsUC,
		auth:     auth,
		validate: validator.New(),
		opts:     opts,
		log:      logger,
	}
}

// RegisterAPIV1 mounts every payment route under /api/v1/payments.
func RegisterAPIV1(r chi.Router, s *Server) {
	r.Route("/api/v1/payments", func(r chi.Router) {
		r.With(s.limit("verify")).Post("/verify/{reference}", s.verifyPayment)
		r.Post("/webhook", s.webhook)

		r.Group(func(r chi.Router) {
			r.Use(s.auth.Authenticate)
			r.With(s.limit("create")).Post("/advertisement", s.createAdvertisementPayment)
			r.With(s.limit("create")).Post("/donation", s.createDonationPayment)
			r.With(web.RequireAdmin).Get("/stats", s.revenueStats)
			r.Get("/", s.listPayments)
			r.Get("/{id}", s.getPayment)
			r.With(web.RequireAdmin).Post("/{id}/refund", s.refundPayment)
		})
	})
}

func (s *Server) limit(route string) func(http.Handler) http.Handler {
	return api.RateLimit(s.opts.Limiter, route, s.opts.RateLimit, s.opts.RateWindow, s.log)
}

// ===== DTOs =====

type createAdvertisementRequest struct {
	AdCampaignID  string          `json:"adCampaignId" validate:"required,max=64"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency" validate:"omitempty,len=3"`
	CustomerEmail string          `json:"customerEmail" validate:"required,email"`
	CustomerName  string          `json:"customerName" validate:"required,max=200"`
	CustomerPhone *string         `json:"customerPhone" validate:"omitempty,max=32"`
	Metadata      map[string]any  `json:"metadata"`
}

type createDonationRequest struct {
	SubscriptionID *string         `json:"subscriptionId" validate:"omitempty,max=64"`
	Amount         decimal.Decimal `json:"amount"`
	Currency       string          `json:"currency" validate:"omitempty,len=3"`
	CustomerEmail  string          `json:"customerEmail" validate:"required,email"`
	CustomerName   string          `json:"customerName" validate:"required,max=200"`
	CustomerPhone  *string         `json:"customerPhone" validate:"omitempty,max=32"`
	Metadata       map[string]any  `json:"metadata"`
}

// Payment is the wire view. Amount is a major-unit decimal string.
type Payment struct {
	ID                string         `json:"id"`
	Reference         string         `json:"reference"`
	UserID            string         `json:"userId"`
	Amount            string         `json:"amount"`
	Currency          string         `json:"currency"`
	Type              string         `json:"type"`
	Status            string         `json:"status"`
	Provider          string         `json:"provider"`
	ProviderReference *string        `json:"providerReference,omitempty"`
	AdCampaignID      *string        `json:"adCampaignId,omitempty"`
	SubscriptionID    *string        `json:"subscriptionId,omitempty"`
	CustomerEmail     string         `json:"customerEmail"`
	CustomerName      string         `json:"customerName"`
	CustomerPhone     *string        `json:"customerPhone,omitempty"`
	Metadata          map[string]any `json:"metadata,omitempty"`
	PaidAt            *time.Time     `json:"paidAt,omitempty"`
	CreatedAt         time.Time      `json:"createdAt"`
	UpdatedAt         time.Time      `json:"updatedAt"`
}

type CreatePaymentResponse struct {
	Payment    Payment `json:"payment"`
	PaymentURL string  `json:"paymentUrl"`
	Reference  string  `json:"reference"`
}

type VerifyPaymentResponse struct {
	Payment      Payment `json:"payment"`
	IsSuccessful bool    `json:"isSuccessful"`
	Message      string  `json:"message"`
}

type PaymentList struct {
	Items  []Payment `json:"items"`
	Offset int       `json:"offset"`
	Limit  int       `json:"limit"`
}

type errorBody struct {
	Error string `json:"error"`
}

func toPayment(p *model.Payment) Payment {
	return Payment{
		ID:                p.ID,
		Reference:         p.Reference,
		UserID:            p.UserID,
		Amount:            p.MajorAmount(),
		Currency:          string(p.Currency),
		Type:              string(p.Type),
		Status:            string(p.Status),
		Provider:          string(p.Provider),
		ProviderReference: p.ProviderReference,
		AdCampaignID:      p.AdCampaignID,
		SubscriptionID:    p.SubscriptionID,
		CustomerEmail:     p.CustomerEmail,
		CustomerName:      p.CustomerName,
		CustomerPhone:     p.CustomerPhone,
		Metadata:          p.Metadata,
		PaidAt:            p.PaidAt,
		CreatedAt:         p.CreatedAt,
		UpdatedAt:         p.UpdatedAt,
	}
}

func payerFrom(r *http.Request, email, name string, phone *string) usecase.Payer {
	var userID string
	if c := web.ClaimsFrom(r.Context()); c != nil {
		userID = c.Subject
	}
	return usecase.Payer{
		UserID:        userID,
		CustomerEmail: email,
		CustomerName:  name,
		CustomerPhone: phone,
		IPAddress:     api.ClientIP(r),
		UserAgent:     r.UserAgent(),
	}
}

// ===== handlers =====

func (s *Server) createAdvertisementPayment(w http.ResponseWriter, r *http.Request) {
	var req createAdvertisementRequest
	if !s.decode(w, r, &req) {
		return
	}
	res, err := s.payUC.CreateAdvertisementPayment(r.Context(), usecase.CreateAdvertisementInput{
		Payer:        payerFrom(r, req.CustomerEmail, req.CustomerName, req.CustomerPhone),
		AdCampaignID: req.AdCampaignID,
		Amount:       req.Amount,
		Currency:     model.Currency(strings.ToUpper(req.Currency)),
		Metadata:     req.Metadata,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, CreatePaymentResponse{Payment: toPayment(res.Payment), PaymentURL: res.PaymentURL, Reference: res.Reference})
}

func (s *Server) createDonationPayment(w http.ResponseWriter, r *http.Request) {
	var req createDonationRequest
	if !s.decode(w, r, &req) {
		return
	}
	res, err := s.payUC.CreateDonationPayment(r.Context(), usecase.CreateDonationInput{
		Payer:          payerFrom(r, req.CustomerEmail, req.CustomerName, req.CustomerPhone),
		SubscriptionID: req.SubscriptionID,
		Amount:         req.Amount,
		Currency:       model.Currency(strings.ToUpper(req.Currency)),
		Metadata:       req.Metadata,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, CreatePaymentResponse{Payment: toPayment(res.Payment), PaymentURL: res.PaymentURL, Reference: res.Reference})
}

func (s *Server) verifyPayment(w http.ResponseWriter, r *http.Request) {
	ref := chi.URLParam(r, "reference")
	res, err := s.payUC.VerifyPayment(r.Context(), ref)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, VerifyPaymentResponse{Payment: toPayment(res.Payment), IsSuccessful: res.IsSuccessful, Message: res.Message})
}

// webhook answers 200 for every authenticated delivery it processed or chose
// to ignore, 401 for a bad signature and 500 when storage failed so the
// gateway retries.
func (s *Server) webhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "unreadable body"})
		return
	}
	err = s.payUC.HandleWebhook(r.Context(), body, r.Header.Get(payment.SignatureHeader))
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	case errors.Is(err, domain.ErrAuthentication):
		writeJSON(w, http.StatusUnauthorized, errorBody{Error: "invalid signature"})
	default:
		logging.With(r.Context(), s.log).Error().Err(err).Msg("webhook not processed")
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "webhook not processed"})
	}
}

func (s *Server) getPayment(w http.ResponseWriter, r *http.Request) {
	p, err := s.payUC.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if !web.ClaimsFrom(r.Context()).CanAccess(p.UserID) {
		writeJSON(w, http.StatusForbidden, errorBody{Error: "forbidden"})
		return
	}
	writeJSON(w, http.StatusOK, toPayment(p))
}

func (s *Server) listPayments(w http.ResponseWriter, r *http.Request) {
	claims := web.ClaimsFrom(r.Context())
	q := r.URL.Query()

	userID := q.Get("userId")
	if userID == "" && claims != nil {
		userID = claims.Subject
	}
	if !claims.CanAccess(userID) {
		writeJSON(w, http.StatusForbidden, errorBody{Error: "forbidden"})
		return
	}

	offset, err := intParam(q.Get("offset"), 0)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid offset"})
		return
	}
	limit, err := intParam(q.Get("limit"), usecase.DefaultPageLimit)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid limit"})
		return
	}
	limit = usecase.ClampPageLimit(limit)

	items, err := s.payUC.ListByUser(r.Context(), userID, offset, limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out := PaymentList{Items: make([]Payment, 0, len(items)), Offset: offset, Limit: limit}
	for _, p := range items {
		out.Items = append(out.Items, toPayment(p))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) refundPayment(w http.ResponseWriter, r *http.Request) {
	p, err := s.payUC.RefundPayment(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toPayment(p))
}

func (s *Server) revenueStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.statsUC.GetRevenueStats(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// ===== helpers =====

func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid request body"})
		return false
	}
	if err := s.validate.Struct(dst); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, errorBody{Error: validationMessage(err)})
		return false
	}
	return true
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fe.Field()+" failed "+fe.Tag())
	}
	return strings.Join(parts, "; ")
}

// writeError maps domain errors onto status codes. Unknown errors are 500 and
// their text is not echoed.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidArgument):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrInvalidState), errors.Is(err, domain.ErrAlreadyExists):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrAuthentication):
		status = http.StatusUnauthorized
	case errors.Is(err, domain.ErrGateway):
		status = http.StatusBadGateway
	}
	if status == http.StatusInternalServerError {
		logging.With(r.Context(), s.log).Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		writeJSON(w, status, errorBody{Error: "internal error"})
		return
	}
	writeJSON(w, status, errorBody{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func intParam(s string, def int) (int, error) {
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, errors.New("invalid integer")
	}
	return n, nil
}
