package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"sportshub-payments/internal/infra/api"
	"sportshub-payments/internal/infra/api/apiv1"
	"sportshub-payments/internal/infra/i18n"
	"sportshub-payments/internal/infra/web"
	"sportshub-payments/internal/usecase"
)

// RouterDeps is everything the public HTTP surface needs.
type RouterDeps struct {
	Payments       usecase.PaymentUseCase
	Stats          usecase.StatsUseCase
	Auth           *web.AuthManager
	Limiter        api.Limiter
	RateLimit      int
	RateWindow     time.Duration
	RequestTimeout time.Duration
	TrustProxy     bool // rewrite RemoteAddr from forwarding headers
	CallbackPath   string
	ReturnURL      string
	Catalog        *i18n.Catalog // nil loads the embedded locales
	Logger         *zerolog.Logger
}

// NewRouter mounts the callback page, the v1 payments API, /health and /metrics
// behind the shared middleware chain.
func NewRouter(d RouterDeps) http.Handler {
	r := chi.NewRouter()
	if d.TrustProxy {
		r.Use(middleware.RealIP)
	}
	r.Use(
		api.TraceID(d.Logger),
		api.RequestLog(d.Logger),
		api.Recover(d.Logger),
		api.Timeout(d.RequestTimeout),
	)

	api.NewServer(d.Payments, d.CallbackPath, d.ReturnURL, d.Catalog, d.Logger).Register(r)
	apiv1.RegisterAPIV1(r, apiv1.NewServer(d.Payments, d.Stats, d.Auth, apiv1.Options{
		Limiter:    d.Limiter,
		RateLimit:  d.RateLimit,
		RateWindow: d.RateWindow,
	}, d.Logger))
	r.Handle("/metrics", promhttp.Handler())
	return r
}

type Server struct {
	server *http.Server
	log    *zerolog.Logger
}

func NewServer(port int, handler http.Handler, logger *zerolog.Logger) *Server {
	return &Server{
		server: &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		},
		log: logger,
	}
}

// Start blocks until the listener fails or Shutdown is called.
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.server.Addr).Msg("http server listening")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
