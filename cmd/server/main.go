package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	authhandler "reliefhub/internal/auth/handler"
	authservice "reliefhub/internal/auth/service"
	userstore "reliefhub/internal/auth/store/user"
	eventhandler "reliefhub/internal/event/handler"
	eventservice "reliefhub/internal/event/service"
	eventstore "reliefhub/internal/event/store/event"
	apphttp "reliefhub/internal/http"
	jwttoken "reliefhub/internal/jwt_token"
	"reliefhub/internal/ledger/adapters"
	ledgerhandler "reliefhub/internal/ledger/handler"
	ledgermetrics "reliefhub/internal/ledger/metrics"
	ledgerservice "reliefhub/internal/ledger/service"
	donationstore "reliefhub/internal/ledger/store/donation"
	newshandler "reliefhub/internal/news/handler"
	newsprovider "reliefhub/internal/news/provider"
	newsservice "reliefhub/internal/news/service"
	"reliefhub/internal/payments"
	"reliefhub/internal/platform/config"
	"reliefhub/internal/platform/httpserver"
	"reliefhub/internal/platform/logger"
	platformmetrics "reliefhub/internal/platform/metrics"
	"reliefhub/internal/platform/middleware"
	"reliefhub/internal/platform/postgres"
	platformredis "reliefhub/internal/platform/redis"
	requesthandler "reliefhub/internal/request/handler"
	requestmetrics "reliefhub/internal/request/metrics"
	requestservice "reliefhub/internal/request/service"
	requeststore "reliefhub/internal/request/store/request"
	auditpublisher "reliefhub/pkg/platform/audit/publisher"
	auditpg "reliefhub/pkg/platform/audit/store/postgres"
)

func main() {
	if err := run(); err != nil {
		os.Exit(1)
	}
}

func run() error {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := postgres.Connect(ctx, cfg.Database)
	if err != nil {
		log.Error("postgres connect failed", "error", err)
		return err
	}
	defer pool.Close()

	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		log.Error("redis connect failed", "error", err)
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	// Audit trail: async so the donation path never blocks on audit I/O.
	auditor := auditpublisher.NewPublisher(auditpg.New(pool),
		auditpublisher.WithAsyncBuffer(256),
		auditpublisher.WithLogger(log),
	)
	defer auditor.Close()

	tokens := jwttoken.NewJWTService(cfg.JWT.SigningKey, cfg.JWT.Issuer, cfg.JWT.Audience)
	validator := jwttoken.NewJWTServiceAdapter(tokens)

	users := userstore.NewPostgres(pool)
	requests := requeststore.NewPostgres(pool)
	donations := donationstore.NewPostgres(pool)
	events := eventstore.NewPostgres(pool)

	userDirectory := adapters.NewUserDirectory(users)

	authSvc := authservice.New(users, tokens, cfg.JWT.TTL, log,
		authservice.WithAuditPublisher(auditor),
	)
	requestSvc := requestservice.New(requests,
		requestservice.WithLogger(log),
		requestservice.WithAuditPublisher(auditor),
		requestservice.WithMetrics(requestmetrics.New()),
	)
	ledgerSvc := ledgerservice.New(donations,
		ledgerservice.WithLogger(log),
		ledgerservice.WithAuditPublisher(auditor),
		ledgerservice.WithMetrics(ledgermetrics.New()),
		ledgerservice.WithDonorDirectory(userDirectory),
	)
	eventSvc := eventservice.New(events,
		eventservice.WithLogger(log),
		eventservice.WithAuditPublisher(auditor),
		eventservice.WithAuthorDirectory(userDirectory),
	)

	var verifier payments.Verifier = payments.Noop{}
	if cfg.Payments.ProviderURL != "" {
		verifier = payments.NewHTTPVerifier(cfg.Payments.ProviderURL, cfg.Payments.APIKey, cfg.Payments.Timeout)
	} else {
		log.Warn("no payment provider configured, trusting client confirmations")
	}

	var limiter middleware.Limiter = middleware.NewMemoryLimiter()
	if redisClient != nil {
		limiter = middleware.NewRedisLimiter(redisClient)
	}

	var feed newsservice.Provider = newsprovider.Static{}
	if cfg.News.FeedURL != "" {
		feed = newsprovider.NewHTTP(cfg.News.FeedURL, cfg.News.FetchTimeout)
	}
	newsSvc := newsservice.New(feed, redisClient, cfg.News.CacheTTL, log)

	checks := map[string]apphttp.HealthChecker{
		"postgres": poolHealth{pool: pool},
	}
	if redisClient != nil {
		checks["redis"] = redisClient
	}

	router := apphttp.NewRouter(apphttp.Config{
		Logger:  log,
		Metrics: platformmetrics.New(),
		Timeout: cfg.Server.RequestTimeout,
		Handlers: []apphttp.Registrar{
			authhandler.New(authSvc, validator, cfg.JWT.TTL, log),
			requesthandler.New(requestSvc, ledgerSvc, validator, log),
			ledgerhandler.New(ledgerSvc, verifier, validator, log,
				ledgerhandler.WithRateLimiter(limiter, cfg.RateLimit.DonationLimit, cfg.RateLimit.DonationWindow, log)),
			eventhandler.New(eventSvc, validator, log),
			newshandler.New(newsSvc),
		},
		Checks: checks,
	})

	srv := httpserver.New(cfg.Server.Addr, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("server listening", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		log.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server exited with error", "error", err)
		return err
	}
	return nil
}

type poolHealth struct {
	pool interface {
		Ping(ctx context.Context) error
	}
}

func (p poolHealth) Health(ctx context.Context) error {
	return p.pool.Ping(ctx)
}
