package main

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/josh-kwaku/paysettle/internal/cache"
	"github.com/josh-kwaku/paysettle/internal/config"
	"github.com/josh-kwaku/paysettle/internal/domain"
	"github.com/josh-kwaku/paysettle/internal/notify"
	"github.com/josh-kwaku/paysettle/internal/publisher"
)

type walletCache interface {
	Get(ctx context.Context, managerID uuid.UUID) (*domain.Wallet, bool, error)
	Set(ctx context.Context, w *domain.Wallet) error
	Invalidate(ctx context.Context, managerID uuid.UUID) error
	Ping(ctx context.Context) error
}

type eventPublisher interface {
	Publish(ctx context.Context, topic, key string, message any) error
}

func newWalletCache(ctx context.Context, cfg *config.Config) (walletCache, func(), error) {
	if cfg.RedisURL == "" {
		slog.Info("REDIS_URL not set, wallet cache disabled")
		return cache.Nop{}, func() {}, nil
	}

	client, err := cache.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		return nil, nil, err
	}
	return cache.NewWalletCache(client, cfg.WalletCacheTTL), func() { client.Close() }, nil
}

func newPublisher(cfg *config.Config, logger *slog.Logger) (eventPublisher, func()) {
	if len(cfg.KafkaBrokers) == 0 {
		slog.Info("KAFKA_BROKERS not set, settlement events disabled")
		return publisher.Nop{}, func() {}
	}

	p := publisher.NewKafkaPublisher(cfg.KafkaBrokers, publisher.RetryConfig{
		MaxAttempts: cfg.KafkaRetryMaxAttempts,
		BaseDelay:   cfg.KafkaRetryBaseDelay,
		MaxDelay:    cfg.KafkaRetryMaxDelay,
		Jitter:      true,
	}, logger)
	return p, func() {
		if err := p.Close(); err != nil {
			slog.Error("failed to close kafka publisher", "error", err)
		}
	}
}

func newNotifySender(cfg *config.Config, events eventPublisher, logger *slog.Logger) notify.Sender {
	switch cfg.NotifyBackend {
	case "kafka":
		return notify.NewKafkaSender(events, cfg.KafkaNotificationTopic)
	case "log":
		return notify.NewLogSender(logger)
	default:
		return notify.NewExpoSender(cfg.ExpoPushURL, cfg.ExpoAccessToken, cfg.NotifySendTimeout)
	}
}
