package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/rs/cors"

	"github.com/rajulearn/backend/internal/auth"
	"github.com/rajulearn/backend/internal/commission"
	"github.com/rajulearn/backend/internal/config"
	"github.com/rajulearn/backend/internal/database"
	"github.com/rajulearn/backend/internal/earnings"
	"github.com/rajulearn/backend/internal/execution"
	"github.com/rajulearn/backend/internal/handlers"
	"github.com/rajulearn/backend/internal/ledger"
	"github.com/rajulearn/backend/internal/metrics"
	"github.com/rajulearn/backend/internal/payments"
	"github.com/rajulearn/backend/internal/repository"
	"github.com/rajulearn/backend/internal/router"
	"github.com/rajulearn/backend/internal/validate"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := database.ConnectPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("Cannot reach PostgreSQL. Ensure Postgres is running and DATABASE_URL is set", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool); err != nil {
		slog.Error("Migrations failed", "error", err)
		os.Exit(1)
	}

	rates, err := commission.NewRateTable(commission.DefaultRates())
	if err != nil {
		slog.Error("Invalid commission rate table", "error", err)
		os.Exit(1)
	}

	// Redis is optional: without it earnings reads go straight to Postgres.
	var overviewCache earnings.Cache
	notifiers := commission.Notifiers{metrics.Notifier{}}
	rdb, err := database.ConnectRedis(ctx, cfg.RedisAddr, cfg.RedisPassword)
	if err != nil {
		slog.Warn("Redis unavailable, earnings cache disabled", "error", err)
	} else {
		defer rdb.Close()
		rc := earnings.NewRedisCache(rdb, cfg.EarningsCacheTTL, logger)
		overviewCache = rc
		notifiers = append(notifiers, rc)
	}

	profileRepo := repository.NewProfileRepo(pool)
	orderRepo := repository.NewOrderRepo(pool)
	ledgerRepo := ledger.NewRepository(pool)

	engine := commission.NewEngine(pool, profileRepo, ledgerRepo, rates, commission.Options{
		StoreTimeout: cfg.StoreTimeout,
		Notifier:     notifiers,
		Logger:       logger,
	})

	workers := river.NewWorkers()
	river.AddWorker(workers, execution.NewProcessCommissionWorker(engine, logger))

	riverClient, err := river.NewClient(riverpgxv5.New(pool), &river.Config{
		Queues: map[string]river.QueueConfig{
			river.QueueDefault: {MaxWorkers: cfg.RiverMaxWorkers},
		},
		Workers: workers,
		Logger:  logger,
	})
	if err != nil {
		slog.Error("Failed to create River client", "error", err)
		os.Exit(1)
	}
	insertCommissionJob := func(ctx context.Context, tx pgx.Tx, args execution.ProcessCommissionArgs) error {
		_, err := riverClient.InsertTx(ctx, tx, args, nil)
		return err
	}

	authSvc, err := auth.NewService(cfg.JWTSecret)
	if err != nil {
		slog.Error("JWT_SECRET is required", "error", err)
		os.Exit(1)
	}
	paymentSvc, err := payments.NewService(pool, orderRepo, profileRepo, ledgerRepo, insertCommissionJob, cfg.PaymentKeySecret, logger)
	if err != nil {
		slog.Error("PAYMENT_KEY_SECRET is required", "error", err)
		os.Exit(1)
	}
	if cfg.InternalKeyHash == "" {
		slog.Warn("INTERNAL_KEY_HASH not set, direct commission trigger disabled")
	}
	validator, err := validate.New()
	if err != nil {
		slog.Error("Request schemas failed to compile", "error", err)
		os.Exit(1)
	}

	earningsSvc := earnings.NewService(profileRepo, ledgerRepo, overviewCache, logger)

	apiV1Router := router.New(router.Config{
		Commissions:     &handlers.CommissionHandler{Engine: engine, Rates: rates, Logger: logger},
		Payments:        &handlers.PaymentHandler{Payments: paymentSvc, Logger: logger},
		Earnings:        earnings.NewHandler(earningsSvc, logger),
		Tokens:          authSvc,
		Validator:       validator,
		InternalKeyHash: cfg.InternalKeyHash,
	})

	mux := http.NewServeMux()
	mux.Handle("/api/", apiV1Router)
	RegisterOpsRoutes(mux, pool, rdb)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		AllowCredentials: true,
	}).Handler(metrics.Instrument(mux))

	// Start River client (processes commission jobs)
	if err := riverClient.Start(ctx); err != nil {
		slog.Error("River client failed to start", "error", err)
		os.Exit(1)
	}

	serverAddr := "0.0.0.0:" + cfg.Port
	srv := &http.Server{
		Addr:              serverAddr,
		Handler:           corsHandler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		slog.Info("Starting HTTP server", "addr", serverAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP shutdown", "error", err)
	}
	if err := riverClient.Stop(shutdownCtx); err != nil {
		slog.Error("River shutdown", "error", err)
	}
}
