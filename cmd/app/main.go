// File: cmd/app/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"sportshub-payments/internal/config"
	"sportshub-payments/internal/domain/model"
	"sportshub-payments/internal/domain/ports/adapter"
	"sportshub-payments/internal/infra/adapters/funding"
	payAdapters "sportshub-payments/internal/infra/adapters/payment"
	pg "sportshub-payments/internal/infra/db/postgres"
	httpapi "sportshub-payments/internal/infra/http"
	"sportshub-payments/internal/infra/i18n"
	"sportshub-payments/internal/infra/logging"
	"sportshub-payments/internal/infra/metrics"
	red "sportshub-payments/internal/infra/redis"
	"sportshub-payments/internal/infra/sched"
	"sportshub-payments/internal/infra/web"
	"sportshub-payments/internal/infra/worker"
	"sportshub-payments/internal/usecase"
)

var (
	version = "dev"
	commit  = "none"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (noop gateway allowed, PII unredacted)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Warn().Msg("[DEV MODE] enabled")
	}

	metrics.MustRegister()
	metrics.SetBuildInfo(version, commit)

	// ---- Postgres ----
	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, cfg.Database.MaxConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres")
	}
	defer pool.Close()
	go pg.ReportPoolStats(ctx, pool, 15*time.Second)

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis")
	}
	defer redisClient.Close()
	rateLimiter := red.NewRateLimiter(redisClient)
	locker := red.NewLocker(redisClient)

	// ---- Payment gateway ----
	gateway, err := newGateway(cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("payment gateway")
	}

	// ---- Repositories ----
	userRepo := pg.NewPostgresUserRepo(pool)
	campaignRepo := pg.NewAdCampaignRepo(pool)
	donationRepo := pg.NewDonationRepo(pool)
	payRepo := pg.NewPaymentRepo(pool)
	statsRepo := pg.NewPaymentStatsCacheDecorator(payRepo, redisClient, cfg.Redis.TTL, logger)

	// ---- Use cases ----
	dispatcher := usecase.NewDispatcher(
		funding.NewCampaignActivator(campaignRepo, logger),
		funding.NewDonationAcknowledger(donationRepo, logger),
		logger,
	)
	paymentUC := usecase.NewPaymentUseCase(payRepo, campaignRepo, userRepo, gateway, dispatcher, usecase.PaymentOptions{
		CallbackURL:     cfg.Payment.CallbackURL,
		DefaultCurrency: model.Currency(cfg.Payment.Currency),
		GatewayTimeout:  cfg.Payment.GatewayTimeout,
		Dev:             cfg.Runtime.Dev,
	}, logger)
	statsUC := usecase.NewStatsUseCase(statsRepo, model.Currency(cfg.Payment.Currency), logger)

	// ---- Reconciler ----
	workers := worker.NewPoolWithQueue(cfg.Reconciler.Workers, cfg.Reconciler.BatchSize, logger)
	workers.Start(ctx)
	reconciler := sched.NewPaymentReconciler(paymentUC, workers, locker,
		cfg.Reconciler.Interval, cfg.Reconciler.StaleAfter, cfg.Reconciler.BatchSize, logger)
	go reconciler.Start(ctx)

	// ---- HTTP ----
	cbPath := "/payments/callback"
	if parsed, err := url.Parse(strings.TrimSpace(cfg.Payment.CallbackURL)); err == nil && parsed.Path != "" {
		cbPath = parsed.Path
	}
	catalog, err := i18n.LoadCatalog(i18n.LocalesFS)
	if err != nil {
		logger.Fatal().Err(err).Msg("load locales")
	}
	router := httpapi.NewRouter(httpapi.RouterDeps{
		Payments:       paymentUC,
		Stats:          statsUC,
		Auth:           web.NewAuthManager(cfg.Auth.HMACSecret, !cfg.Runtime.Dev, "", cfg.Auth.TokenTTL),
		Limiter:        rateLimiter,
		RateLimit:      cfg.HTTP.RateLimit,
		RateWindow:     cfg.HTTP.RateWindow,
		RequestTimeout: cfg.HTTP.RequestTimeout,
		TrustProxy:     cfg.HTTP.TrustProxy,
		CallbackPath:   cbPath,
		ReturnURL:      cfg.Payment.ReturnURL,
		Catalog:        catalog,
		Logger:         logger,
	})
	server := httpapi.NewServer(cfg.HTTP.Port, router, logger)
	go func() {
		if err := server.Start(); err != nil {
			logger.Error().Err(err).Msg("http server stopped")
			cancel()
		}
	}()

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigc:
		logger.Info().Msg("shutdown requested")
	case <-ctx.Done():
	}

	shutdownCtx, stop := context.WithTimeout(context.Background(), 15*time.Second)
	defer stop()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("http shutdown")
	}
	cancel()
	workers.Stop()
	logger.Info().Msg("bye")
}

func newGateway(cfg *config.Config, logger *zerolog.Logger) (adapter.PaymentGateway, error) {
	switch strings.ToLower(cfg.Payment.Provider) {
	case "paystack":
		gw, err := payAdapters.NewPaystackGateway(cfg.Payment.Paystack.SecretKey, cfg.Payment.Paystack.BaseURL, cfg.Payment.GatewayTimeout)
		if err != nil {
			return nil, err
		}
		return gw, nil
	case "noop":
		if !cfg.Runtime.Dev {
			return nil, fmt.Errorf("noop gateway requires -dev")
		}
		logger.Warn().Msg("using noop payment gateway; every charge succeeds")
		return payAdapters.NewNoopPaymentGateway(cfg.Auth.HMACSecret), nil
	default:
		return nil, fmt.Errorf("unknown payment provider %q", cfg.Payment.Provider)
	}
}
