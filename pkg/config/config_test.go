package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromViper_Defaults(t *testing.T) {
	cfg, err := fromViper(viper.New())
	require.NoError(t, err)

	assert.Equal(t, StoragePostgres, cfg.StorageDriver)
	assert.Equal(t, "0.0.0.0:8080", cfg.HTTP.Addr())
	assert.Equal(t, 3, cfg.Ledger.MaxRetries)
	assert.Equal(t, 20*time.Millisecond, cfg.Ledger.InitialInterval)
	assert.Equal(t, time.Second, cfg.Outbox.PollInterval)
	assert.Equal(t, 30*time.Second, cfg.Redis.TTL)
	assert.Empty(t, cfg.Kafka.Brokers)
	assert.True(t, cfg.Fulfillment.RequireAllPicked)
	assert.False(t, cfg.Fulfillment.ReleaseOnCancel)
	assert.Equal(t, "postgres://postgres:@localhost:5432/stockflow?sslmode=disable", cfg.DB.ConnectionString())
}

func TestFromViper_Overrides(t *testing.T) {
	v := viper.New()
	v.Set("STORAGE_DRIVER", "Memory")
	v.Set("HTTP_PORT", " 9090 ")
	v.Set("KAFKA_BROKERS", "k1:9092, ,k2:9092")
	v.Set("FULFILLMENT_RELEASE_ON_CANCEL", "true")
	v.Set("FULFILLMENT_REQUIRE_ALL_PICKED", "no-es-bool")
	v.Set("LEDGER_MAX_RETRIES", 7)
	v.Set("DATABASE_URL", "postgres://u:p@db/x")
	v.Set("DB_PASSWORD", "p@ss word")

	cfg, err := fromViper(v)
	require.NoError(t, err)
	assert.Equal(t, StorageMemory, cfg.StorageDriver)
	assert.Equal(t, 9090, cfg.HTTP.Port)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.True(t, cfg.Fulfillment.ReleaseOnCancel)
	assert.True(t, cfg.Fulfillment.RequireAllPicked, "valor inválido conserva el default")
	assert.Equal(t, 7, cfg.Ledger.MaxRetries)
	assert.Equal(t, "postgres://u:p@db/x", cfg.DB.ConnectionString())
	assert.Contains(t, cfg.DB.DSN(), "p%40ss%20word")
}

func TestFromViper_Invalid(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  any
	}{
		{"driver desconocido", "STORAGE_DRIVER", "mysql"},
		{"reintentos negativos", "LEDGER_MAX_RETRIES", -1},
		{"lote vacío", "OUTBOX_BATCH_SIZE", 0},
		{"sin intentos", "OUTBOX_MAX_ATTEMPTS", "0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := viper.New()
			v.Set(tt.key, tt.val)
			_, err := fromViper(v)
			assert.Error(t, err)
		})
	}
}
