package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/telcocash/walletd/internal/platform/config"
	"github.com/telcocash/walletd/internal/platform/database"
	"github.com/telcocash/walletd/internal/platform/logger"
	"github.com/telcocash/walletd/internal/platform/messagebroker"
	httptransport "github.com/telcocash/walletd/internal/wallet_service/adapters/http"
	"github.com/telcocash/walletd/internal/wallet_service/app"
	"github.com/telcocash/walletd/internal/wallet_service/repository"
	"github.com/telcocash/walletd/internal/wallet_service/repository/postgres"
)

const serviceName = "walletd"

func main() {
	cfg, err := config.Load(serviceName)
	if err != nil {
		slog.Error("Failed to load configuration", "service", serviceName, "error", err)
		os.Exit(1)
	}

	appLogger := logger.New(cfg.LogLevel)
	appLogger.Info("Wallet ledger service starting...", "http_port", cfg.HTTPPort)

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dbPool, err := database.NewDBPool(rootCtx, cfg.PostgresDSN, appLogger)
	if err != nil {
		appLogger.Error("Failed to connect to PostgreSQL", "error", err)
		os.Exit(1)
	}
	defer dbPool.Close()
	appLogger.Info("Connected to PostgreSQL database")

	natsClient, err := messagebroker.NewNatsClient(cfg.NATSUrl, serviceName, appLogger)
	if err != nil {
		appLogger.Error("Failed to connect to NATS", "error", err)
		os.Exit(1)
	}
	defer natsClient.Close()
	appLogger.Info("Connected to NATS")

	if err := natsClient.EnsureStream(cfg.LedgerStreamName, []string{
		cfg.RechargeRequestSubject,
		cfg.RechargeResponseSubject,
		cfg.NotificationSubject,
	}); err != nil {
		appLogger.Error("Failed to ensure JetStream stream", "error", err)
		os.Exit(1)
	}

	// Repositories
	walletRepo := postgres.NewPgWalletRepository()
	txnRepo := postgres.NewPgTransactionRepository()
	purchaseRepo := postgres.NewPgPurchaseRequestRepository()
	rechargeRepo := postgres.NewPgRechargeRequestRepository()
	withdrawalRepo := postgres.NewPgWithdrawalRepository()
	incomeRepo := postgres.NewPgIncomeRepository()
	offerRepo := postgres.NewPgOfferRepository()
	operatorRepo := postgres.NewPgOperatorRepository()
	accountDir := postgres.NewPgAccountDirectory()
	txRunner := repository.NewPgxTxRunner(dbPool)

	// Application services
	notifier := app.NewQueueNotifier(natsClient, cfg.NotificationSubject, appLogger)
	ledgerSvc := app.NewLedgerService(dbPool, txRunner, walletRepo, txnRepo, accountDir, appLogger)
	purchaseSvc := app.NewPurchaseService(txRunner, dbPool, ledgerSvc, purchaseRepo, txnRepo, offerRepo, notifier, appLogger)
	rechargeSvc := app.NewRechargeService(txRunner, dbPool, ledgerSvc, rechargeRepo, txnRepo, operatorRepo,
		natsClient, cfg.RechargeRequestSubject, notifier, appLogger)
	withdrawalSvc := app.NewWithdrawalService(txRunner, dbPool, ledgerSvc, withdrawalRepo, txnRepo,
		walletRepo, incomeRepo, notifier, appLogger)
	incomeSvc := app.NewIncomeService(txRunner, dbPool, incomeRepo, txnRepo, walletRepo, appLogger)

	consumer := app.NewReconcileConsumer(natsClient, rechargeSvc,
		cfg.RechargeResponseSubject, cfg.ReconcilerDurableName, appLogger)

	// HTTP API
	validate := validator.New()
	walletHandler := httptransport.NewWalletHandler(ledgerSvc, purchaseSvc, rechargeSvc, withdrawalSvc, incomeSvc, appLogger, validate)
	adminHandler := httptransport.NewAdminHandler(ledgerSvc, purchaseSvc, rechargeSvc, withdrawalSvc, incomeSvc, appLogger, validate)
	authMW := httptransport.AuthMiddleware(cfg.JWTAccessSecret, appLogger)
	adminMW := httptransport.AdminOnlyMiddleware(appLogger)

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(60 * time.Second))
	r.Use(httptransport.PrometheusMetricsMiddleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "walletd is healthy"})
	})

	r.Route("/api/v1", func(v1 chi.Router) {
		v1.Group(func(protected chi.Router) {
			protected.Use(authMW)
			walletHandler.RegisterRoutes(protected)
		})
		v1.Route("/admin", func(admin chi.Router) {
			admin.Use(authMW)
			admin.Use(adminMW)
			adminHandler.RegisterRoutes(admin)
		})
	})

	httpServer := &http.Server{Addr: fmt.Sprintf(":%d", cfg.HTTPPort), Handler: r}

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())
	metricsServer := &http.Server{Addr: fmt.Sprintf(":%d", cfg.MetricsPort), Handler: metricsMux}

	g, gCtx := errgroup.WithContext(rootCtx)

	g.Go(func() error {
		appLogger.Info("HTTP server listening", "port", cfg.HTTPPort)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		appLogger.Info("Metrics server listening", "port", cfg.MetricsPort)
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("metrics server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		err := consumer.Run(gCtx)
		if err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("reconcile consumer: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gCtx.Done()
		appLogger.Info("Shutdown signal received, shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			appLogger.Error("HTTP server shutdown failed", "error", err)
		}
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			appLogger.Error("Metrics server shutdown failed", "error", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		appLogger.Error("Service exited with error", "error", err)
		os.Exit(1)
	}
	appLogger.Info("Wallet ledger service shut down gracefully.")
}
