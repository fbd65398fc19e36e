package api

import (
	"context"
	"errors"
	"html/template"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"sportshub-payments/internal/domain"
	"sportshub-payments/internal/domain/model"
	"sportshub-payments/internal/infra/i18n"
	"sportshub-payments/internal/infra/logging"
	"sportshub-payments/internal/usecase"
)

// Server renders the page the gateway redirects the payer's browser to after
// checkout. It completes the payment through VerifyPayment.
type Server struct {
	payUC     usecase.PaymentUseCase
	cbPath    string
	returnURL string
	catalog   *i18n.Catalog
	log       *zerolog.Logger
}

// NewServer constructs the callback page handler. callbackPath must match the
// path portion of payment.callback_url in config (e.g. /payments/callback).
func NewServer(payUC usecase.PaymentUseCase, callbackPath, returnURL string, catalog *i18n.Catalog, logger *zerolog.Logger) *Server {
	if callbackPath == "" {
		callbackPath = "/payments/callback"
	}
	if catalog == nil {
		c, err := i18n.LoadCatalog(i18n.LocalesFS)
		if err != nil {
			panic(err) // embedded locales are part of the binary
		}
		catalog = c
	}
	return &Server{payUC: payUC, cbPath: callbackPath, returnURL: returnURL, catalog: catalog, log: logger}
}

func (s *Server) Register(r chi.Router) {
	r.Get(s.cbPath, s.handleCallback)
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
}

func (s *Server) handleCallback(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 20*time.Second)
	defer cancel()
	tr := s.catalog.Negotiate(r.Header.Get("Accept-Language"))

	// Paystack appends both; they carry the same value.
	ref := r.URL.Query().Get("reference")
	if ref == "" {
		ref = r.URL.Query().Get("trxref")
	}
	if ref == "" {
		s.renderHTML(w, tr, http.StatusBadRequest, false, tr.T("missing_reference"), "")
		return
	}

	res, err := s.payUC.VerifyPayment(ctx, ref)
	if err != nil {
		logging.With(logging.WithReference(ctx, ref), s.log).Warn().Err(err).Msg("callback verification failed")
		switch {
		case errors.Is(err, domain.ErrNotFound):
			s.renderHTML(w, tr, http.StatusNotFound, false, tr.T("not_found"), ref)
		case res != nil:
			s.renderHTML(w, tr, http.StatusOK, false, statusMessage(tr, res.Payment.Status), ref)
		default:
			s.renderHTML(w, tr, http.StatusBadGateway, false, tr.T("unavailable"), ref)
		}
		return
	}
	s.renderHTML(w, tr, http.StatusOK, res.IsSuccessful, statusMessage(tr, res.Payment.Status), ref)
}

func statusMessage(tr *i18n.Translator, st model.PaymentStatus) string {
	switch st {
	case model.PaymentStatusSuccessful:
		return tr.T("msg_successful")
	case model.PaymentStatusFailed:
		return tr.T("msg_failed")
	case model.PaymentStatusRefunded:
		return tr.T("msg_refunded")
	default:
		return tr.T("msg_pending")
	}
}

var page = template.Must(template.New("cb").Parse(`<!doctype html>
<html lang="{{.Lang}}">
<head>
<meta charset="utf-8" />
<meta name="viewport" content="width=device-width,initial-scale=1" />
<title>{{.Title}}</title>
<style>
body{font-family:system-ui,Arial,sans-serif;margin:2rem;}
.card{max-width:560px;border:1px solid #ddd;border-radius:12px;padding:24px;}
.ok{color:#057a55} .fail{color:#b00020}
.btn{display:inline-block;margin-top:16px;padding:10px 16px;border-radius:8px;border:1px solid #888;text-decoration:none}
.small{font-size:12px;color:#666}
</style>
</head>
<body>
<div class="card">
  <h2 class="{{if .OK}}ok{{else}}fail{{end}}">{{.Title}}</h2>
  <p>{{.Msg}}</p>
  {{if .Reference}}<div class="small">{{.Reference}}</div>{{end}}
  {{if .ReturnURL}}<a class="btn" href="{{.ReturnURL}}">{{.Back}}</a>{{end}}
</div>
</body>
</html>`))

func (s *Server) renderHTML(w http.ResponseWriter, tr *i18n.Translator, code int, ok bool, msg, ref string) {
	title := tr.T("title_result")
	if ok {
		title = tr.T("title_success")
	}
	var refLine string
	if ref != "" {
		refLine = tr.T("reference", ref)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Content-Language", tr.Lang())
	w.WriteHeader(code)
	_ = page.Execute(w, struct {
		OK        bool
		Lang      string
		Title     string
		Msg       string
		Reference string
		ReturnURL string
		Back      string
	}{
		OK:        ok,
		Lang:      tr.Lang(),
		Title:     title,
		Msg:       msg,
		Reference: refLine,
		ReturnURL: s.returnURL,
		Back:      tr.T("back"),
	})
}
