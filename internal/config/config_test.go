package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("APP_ENV", "test")
	t.Setenv("DATABASE_URL", "postgres://localhost/paysettle")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("GATEWAY_SECRET_KEY", "sk_test")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092,kafka-2:9092")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "https://api.paystack.co", cfg.GatewayBaseURL)
	assert.Equal(t, 10*time.Second, cfg.GatewayTimeout)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "payments.settled", cfg.KafkaSettlementTopic)
	assert.Equal(t, "expo", cfg.NotifyBackend)
	assert.Equal(t, 5*time.Second, cfg.NotifySendTimeout)
	assert.Empty(t, cfg.RedisURL)
}

func TestLoad_MissingRequired(t *testing.T) {
	t.Setenv("APP_ENV", "test")
	for _, key := range []string{"DATABASE_URL", "JWT_SECRET", "GATEWAY_SECRET_KEY"} {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}

	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_NotifyTimeoutIndependentOfGateway(t *testing.T) {
	t.Setenv("APP_ENV", "test")
	t.Setenv("DATABASE_URL", "postgres://localhost/paysettle")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("GATEWAY_SECRET_KEY", "sk_test")
	t.Setenv("GATEWAY_TIMEOUT", "30s")
	t.Setenv("NOTIFY_SEND_TIMEOUT", "2s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 30*time.Second, cfg.GatewayTimeout)
	assert.Equal(t, 2*time.Second, cfg.NotifySendTimeout)
}
