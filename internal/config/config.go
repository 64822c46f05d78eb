package config

import (
	"fmt"
	"os"
	"time"

	env "github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	DatabaseURL string `env:"DATABASE_URL,required"`
	JWTSecret   string `env:"JWT_SECRET,required"`
	Port        int    `env:"PORT" envDefault:"8080"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	AppEnv      string `env:"APP_ENV" envDefault:"production"`

	GatewayBaseURL   string        `env:"GATEWAY_BASE_URL" envDefault:"https://api.paystack.co"`
	GatewaySecretKey string        `env:"GATEWAY_SECRET_KEY,required"`
	GatewayTimeout   time.Duration `env:"GATEWAY_TIMEOUT" envDefault:"10s"`

	RedisURL       string        `env:"REDIS_URL"`
	WalletCacheTTL time.Duration `env:"WALLET_CACHE_TTL" envDefault:"5m"`

	KafkaBrokers           []string      `env:"KAFKA_BROKERS" envSeparator:","`
	KafkaSettlementTopic   string        `env:"KAFKA_SETTLEMENT_TOPIC" envDefault:"payments.settled"`
	KafkaNotificationTopic string        `env:"KAFKA_NOTIFICATION_TOPIC" envDefault:"notifications.push"`
	KafkaRetryMaxAttempts  int           `env:"KAFKA_RETRY_MAX_ATTEMPTS" envDefault:"5"`
	KafkaRetryBaseDelay    time.Duration `env:"KAFKA_RETRY_BASE_DELAY" envDefault:"100ms"`
	KafkaRetryMaxDelay     time.Duration `env:"KAFKA_RETRY_MAX_DELAY" envDefault:"10s"`

	NotifyBackend     string        `env:"NOTIFY_BACKEND" envDefault:"expo"`
	ExpoPushURL       string        `env:"EXPO_PUSH_URL" envDefault:"https://exp.host/--/api/v2/push/send"`
	ExpoAccessToken   string        `env:"EXPO_ACCESS_TOKEN"`
	NotifyWorkers     int           `env:"NOTIFY_WORKERS" envDefault:"4"`
	NotifyQueueSize   int           `env:"NOTIFY_QUEUE_SIZE" envDefault:"256"`
	NotifySendTimeout time.Duration `env:"NOTIFY_SEND_TIMEOUT" envDefault:"5s"`

	WebhookPollInterval time.Duration `env:"WEBHOOK_POLL_INTERVAL" envDefault:"2s"`
	WebhookBatchSize    int           `env:"WEBHOOK_BATCH_SIZE" envDefault:"10"`

	DBMaxOpenConns     int `env:"DB_MAX_OPEN_CONNS" envDefault:"25"`
	DBMaxIdleConns     int `env:"DB_MAX_IDLE_CONNS" envDefault:"10"`
	DBConnMaxLifetimeS int `env:"DB_CONN_MAX_LIFETIME_S" envDefault:"300"`
	DBConnMaxIdleTimeS int `env:"DB_CONN_MAX_IDLE_TIME_S" envDefault:"60"`
}

// Load reads the environment. In development a local .env file is applied
// first; variables already set in the environment win.
func Load() (*Config, error) {
	if os.Getenv("APP_ENV") == "development" {
		_ = godotenv.Load(".env")
	}

	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	return &cfg, nil
}
