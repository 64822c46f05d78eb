package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/josh-kwaku/paysettle/internal/config"
	"github.com/josh-kwaku/paysettle/internal/handler"
	"github.com/josh-kwaku/paysettle/internal/logging"
	"github.com/josh-kwaku/paysettle/internal/middleware"
	"github.com/josh-kwaku/paysettle/internal/notify"
	"github.com/josh-kwaku/paysettle/internal/repository"
	"github.com/josh-kwaku/paysettle/internal/service"
	"github.com/josh-kwaku/paysettle/internal/service/ledger"
	"github.com/josh-kwaku/paysettle/internal/service/settlement"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := logging.Init("paysettle-api", cfg.LogLevel, cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := repository.NewPostgresDB(ctx, cfg.DatabaseURL, repository.PoolConfig{
		MaxOpenConns:     cfg.DBMaxOpenConns,
		MaxIdleConns:     cfg.DBMaxIdleConns,
		ConnMaxLifetimeS: cfg.DBConnMaxLifetimeS,
		ConnMaxIdleTimeS: cfg.DBConnMaxIdleTimeS,
		PingAttempts:     30,
	})
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer db.Close()

	wallets, closeCache, err := newWalletCache(ctx, cfg)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	defer closeCache()

	events, closeEvents := newPublisher(cfg, logger)
	defer closeEvents()

	queue := notify.NewQueue(newNotifySender(cfg, events, logger), logger, cfg.NotifyWorkers, cfg.NotifyQueueSize, cfg.NotifySendTimeout)
	defer queue.Close()

	uow := repository.NewDB(db)
	payments := repository.NewPaymentRepository(db)
	paymentEvents := repository.NewPaymentEventRepository(db)
	webhookEvents := repository.NewWebhookEventRepository(db)

	walletLedger := ledger.New(repository.NewWalletRepository(db), wallets)
	records := settlement.NewRecords(uow, payments, paymentEvents)
	dispatcher := settlement.NewDispatcher(
		uow,
		repository.NewActivationCodeRepository(db),
		repository.NewBookingRepository(db),
		repository.NewOrderRepository(db),
		repository.NewBusinessRepository(db),
		walletLedger,
		paymentEvents,
	)
	verifier := settlement.NewService(
		service.NewGatewayClient(cfg.GatewayBaseURL, cfg.GatewaySecretKey, cfg.GatewayTimeout),
		records,
		dispatcher,
		repository.NewUserRepository(db),
		queue,
		wallets,
		events,
		cfg.KafkaSettlementTopic,
	)

	processor := service.NewWebhookProcessor(webhookEvents, verifier, logger, cfg.WebhookPollInterval, cfg.WebhookBatchSize)
	processorDone := make(chan struct{})
	go func() {
		defer close(processorDone)
		processor.Start(ctx)
	}()

	mux := routes(cfg,
		handler.NewHealthHandler(db, wallets),
		handler.NewPaymentHandler(verifier, settlement.NewQuery(records, paymentEvents)),
		handler.NewWalletHandler(walletLedger),
		handler.NewWebhookHandler(webhookEvents, cfg.GatewaySecretKey),
	)

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           middleware.Tracing(middleware.Logging(logger)(middleware.Recovery(mux))),
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("server started", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	var runErr error
	select {
	case err := <-serverErr:
		runErr = fmt.Errorf("listen: %w", err)
		stop()
	case <-ctx.Done():
	}

	slog.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil && runErr == nil {
		runErr = fmt.Errorf("shutdown: %w", err)
	}

	<-processorDone
	verifier.Wait()

	slog.Info("server stopped")
	return runErr
}

func routes(
	cfg *config.Config,
	health *handler.HealthHandler,
	payments *handler.PaymentHandler,
	wallets *handler.WalletHandler,
	webhooks *handler.WebhookHandler,
) *http.ServeMux {
	authed := middleware.Auth(cfg.JWTSecret)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", health.Liveness)
	mux.HandleFunc("GET /health/ready", health.Readiness)

	mux.Handle("POST /api/v1/payment/verify", authed(http.HandlerFunc(payments.Verify)))
	mux.Handle("POST /payment/verify", authed(http.HandlerFunc(payments.Verify)))
	mux.Handle("GET /api/v1/payments/{reference}", authed(http.HandlerFunc(payments.Get)))

	mux.Handle("GET /api/v1/wallets/me", authed(http.HandlerFunc(wallets.Get)))
	mux.Handle("GET /api/v1/wallets/me/transactions", authed(http.HandlerFunc(wallets.ListTransactions)))

	mux.HandleFunc("POST /api/v1/webhooks/gateway", webhooks.ReceiveGatewayWebhook)

	return mux
}
