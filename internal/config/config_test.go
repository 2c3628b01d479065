package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("ENV", "development")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 3000, cfg.HTTPPort)
	assert.Equal(t, "hospital.db", cfg.DatabasePath)
	assert.Equal(t, 24*time.Hour, cfg.SessionTTL)
	assert.Equal(t, 2*time.Minute, cfg.ReplyCheckInterval)
	assert.Equal(t, 50, cfg.ReplyBatchSize)
	assert.Equal(t, 6, cfg.ReplyMinLength)
	assert.Equal(t, "[Gmail]/Sent Mail", cfg.IMAPSentFolder)
	assert.NotEmpty(t, cfg.SessionSecret)
	assert.False(t, cfg.MailEnabled())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("ENV", "production")
	t.Setenv("SESSION_SECRET", "s3cret")
	t.Setenv("HTTP_PORT", "8088")
	t.Setenv("REPLY_CHECK_INTERVAL", "30s")
	t.Setenv("SMTP_USERNAME", "clinic@example.com")
	t.Setenv("SMTP_PASSWORD", "app-password")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8088, cfg.HTTPPort)
	assert.Equal(t, 30*time.Second, cfg.ReplyCheckInterval)
	assert.True(t, cfg.MailEnabled())
	assert.Equal(t, "clinic@example.com", cfg.HospitalEmail)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
}

func TestLoadRequiresSecretInProduction(t *testing.T) {
	t.Setenv("ENV", "production")
	t.Setenv("SESSION_SECRET", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SESSION_SECRET")
}
