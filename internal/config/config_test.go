package config_test

import (
	"testing"
	"time"

	"github.com/ksred/order-bot/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("BOT_TOKEN", "123:abc")
	t.Setenv("ADMIN_IDS", "11, 22")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, []int64{11, 22}, cfg.AdminIDs)
	assert.Equal(t, "orders.db", cfg.DBPath)
	assert.Equal(t, "polling", cfg.Transport)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "Orders", cfg.OrdersSheet)
	assert.Equal(t, "Platforms", cfg.PlatformsSheet)
	assert.Equal(t, 3, cfg.ReportUTCOffsetHours)
	assert.Equal(t, 256, cfg.ReplicationQueueSize)
	assert.Equal(t, 5*time.Second, cfg.ReplicationDrainTimeout)
	assert.Equal(t, 15*time.Second, cfg.ReplicationCallTimeout)
	assert.Equal(t, 5, cfg.OrdersPerPage)
	assert.Equal(t, "memory", cfg.SessionBackend)
	assert.Zero(t, cfg.SessionTTL)
	assert.Equal(t, 60, cfg.UserRateLimitPerMin)
	assert.Empty(t, cfg.SheetURL())
	assert.False(t, cfg.IsProduction())
}

func TestLoadRequiresToken(t *testing.T) {
	t.Setenv("BOT_TOKEN", "")
	t.Setenv("ADMIN_IDS", "1")

	_, err := config.Load()

	assert.Error(t, err)
}

func TestLoadRequiresAdmins(t *testing.T) {
	t.Setenv("BOT_TOKEN", "123:abc")
	t.Setenv("ADMIN_IDS", "")

	_, err := config.Load()
	assert.Error(t, err)

	t.Setenv("ADMIN_IDS", "1,abc")
	_, err = config.Load()
	assert.Error(t, err)
}

func TestLoadWebhookNeedsURL(t *testing.T) {
	setRequired(t)
	t.Setenv("TRANSPORT", "webhook")

	_, err := config.Load()
	assert.Error(t, err)

	t.Setenv("WEBHOOK_URL", "https://bot.example.com/telegram/webhook")
	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, "webhook", cfg.Transport)
}

func TestLoadRedisBackend(t *testing.T) {
	setRequired(t)
	t.Setenv("SESSION_BACKEND", "redis")

	_, err := config.Load()
	assert.Error(t, err)

	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("SESSION_TTL", "24h")
	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, 24*time.Hour, cfg.SessionTTL)
}

func TestLoadSheet(t *testing.T) {
	setRequired(t)
	t.Setenv("GOOGLE_SHEET_KEY", "sheet-key")

	_, err := config.Load()
	assert.Error(t, err, "credentials are required with a sheet key")

	t.Setenv("GOOGLE_SHEETS_CREDENTIALS", "creds.json")
	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, "https://docs.google.com/spreadsheets/d/sheet-key", cfg.SheetURL())
}

func TestLoadRejectsBadNumbers(t *testing.T) {
	setRequired(t)
	t.Setenv("ORDERS_PER_PAGE", "0")

	_, err := config.Load()
	assert.Error(t, err)
}
