package config_test

import (
	"testing"
	"time"
	_ "time/tzdata"

	"ocha/internal/config"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newViper(overrides map[string]any) *viper.Viper {
	v := viper.New()
	config.SetDefaults(v)
	for k, val := range overrides {
		v.Set(k, val)
	}
	return v
}

func TestFromViperDefaults(t *testing.T) {
	cfg, err := config.FromViper(newViper(map[string]any{"JWT_SECRET": "s3cret"}))
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.AppPort)
	assert.Equal(t, "sqlite", cfg.DatabaseDriver)
	assert.Equal(t, config.BrokerNone, cfg.EventsBroker)
	assert.Equal(t, 7*24*time.Hour, cfg.TokenTTL)
	assert.Equal(t, 24*time.Hour, cfg.IdempotencyTTL)
	assert.Equal(t, []string{"localhost:9092"}, cfg.KafkaBrokers)
	assert.False(t, cfg.AllowStatusRollback)
	assert.Empty(t, cfg.RedisAddr)
	assert.Equal(t, "Europe/Zurich", cfg.StoreTimeZone)
}

func TestFromViperOverrides(t *testing.T) {
	cfg, err := config.FromViper(newViper(map[string]any{
		"JWT_SECRET":                  "s3cret",
		"DATABASE_DRIVER":             "Postgres",
		"EVENTS_BROKER":               "kafka",
		"KAFKA_BROKERS":               "k1:9092, k2:9092,",
		"ORDER_STATUS_ALLOW_ROLLBACK": "true",
	}))
	require.NoError(t, err)
	assert.Equal(t, "postgres", cfg.DatabaseDriver)
	assert.Equal(t, config.BrokerKafka, cfg.EventsBroker)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.True(t, cfg.AllowStatusRollback)
}

func TestFromViperRejectsBadSettings(t *testing.T) {
	_, err := config.FromViper(newViper(nil))
	assert.ErrorContains(t, err, "JWT_SECRET")

	_, err = config.FromViper(newViper(map[string]any{"JWT_SECRET": "x", "DATABASE_DRIVER": "mysql"}))
	assert.ErrorContains(t, err, "DATABASE_DRIVER")

	_, err = config.FromViper(newViper(map[string]any{"JWT_SECRET": "x", "EVENTS_BROKER": "nats"}))
	assert.ErrorContains(t, err, "EVENTS_BROKER")

	_, err = config.FromViper(newViper(map[string]any{"JWT_SECRET": "x", "STORE_TIME_ZONE": "Mars/Olympus"}))
	assert.ErrorContains(t, err, "STORE_TIME_ZONE")
}
