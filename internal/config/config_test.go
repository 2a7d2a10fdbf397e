package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("DATABASE_URL", "file:test.db")
	t.Setenv("DB_DRIVER", "sqlite")
}

func TestLoad_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8787", cfg.Port)
	assert.Equal(t, "sqlite", cfg.DBDriver)
	assert.Equal(t, 4, cfg.DeliveryWorkers)
	assert.Equal(t, 1000, cfg.DeliveryBuffer)
	assert.Equal(t, 20, cfg.PageSize)
	assert.Equal(t, 5*time.Minute, cfg.UnreadTTL)
	assert.Equal(t, []string{"new_follower"}, cfg.GlobalVerbs)
	assert.False(t, cfg.EmailEnabled())
	assert.False(t, cfg.PushEnabled())
	assert.False(t, cfg.EventsEnabled())
}

func TestLoad_Overrides(t *testing.T) {
	setRequired(t)
	t.Setenv("DELIVERY_WORKERS", "8")
	t.Setenv("NOTIFICATION_GLOBAL_VERBS", "new_follower, new_message")
	t.Setenv("KAFKA_BROKERS", "kafka:9092")
	t.Setenv("BASE_URL", "https://example.com/")
	t.Setenv("UNREAD_CACHE_TTL", "30s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8, cfg.DeliveryWorkers)
	assert.Equal(t, []string{"new_follower", "new_message"}, cfg.GlobalVerbs)
	assert.True(t, cfg.EventsEnabled())
	assert.Equal(t, "https://example.com", cfg.BaseURL)
	assert.Equal(t, 30*time.Second, cfg.UnreadTTL)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"missing secret", map[string]string{"JWT_SECRET": ""}, "JWT_SECRET"},
		{"missing dsn", map[string]string{"DATABASE_URL": ""}, "DATABASE_URL"},
		{"bad driver", map[string]string{"DB_DRIVER": "mysql"}, "DB_DRIVER"},
		{"bad int", map[string]string{"DELIVERY_WORKERS": "many"}, "DELIVERY_WORKERS"},
		{"half vapid", map[string]string{"VAPID_PUBLIC_KEY": "pub"}, "VAPID"},
		{"page size", map[string]string{"NOTIFICATIONS_PAGE_SIZE": "500"}, "NOTIFICATIONS_PAGE_SIZE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequired(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
