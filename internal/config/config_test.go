package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
bot:
  token: "123:abc"
  webhook:
    endpoint: "https://bot.example.com/webhook"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "123:abc", cfg.Bot.Token)
	assert.Equal(t, "8443", cfg.Bot.Webhook.ListenPort)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, 5, cfg.Moderation.MaxWarns)
	assert.Equal(t, []time.Duration{
		time.Hour,
		2*time.Hour + 30*time.Minute,
		4 * time.Hour,
		24 * time.Hour,
		72 * time.Hour,
	}, cfg.Moderation.MuteSteps)
	assert.Equal(t, 1.2, cfg.Moderation.GrowthFactor)
	assert.Equal(t, 300*time.Second, cfg.Moderation.CaptchaTimeout)
	assert.Equal(t, 24*time.Hour, cfg.Moderation.CaptchaBan)
	assert.Equal(t, 10, cfg.Moderation.HistoryPageSize)
}

func TestLoadOverrides(t *testing.T) {
	path := writeConfig(t, `
bot:
  token: "123:abc"
moderation:
  max_warns: 3
  mute_steps: ["30m", "1h", "6h"]
  growth_factor: 1.5
  captcha_timeout: "120s"
database:
  driver: mysql
  host: localhost
  port: 3306
  username: warden
  dbname: warden
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.Moderation.MaxWarns)
	assert.Equal(t, []time.Duration{30 * time.Minute, time.Hour, 6 * time.Hour}, cfg.Moderation.MuteSteps)
	assert.Equal(t, 1.5, cfg.Moderation.GrowthFactor)
	assert.Equal(t, 120*time.Second, cfg.Moderation.CaptchaTimeout)
	assert.Equal(t, "mysql", cfg.Database.Driver)
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"zero max_warns", "moderation:\n  max_warns: 0\n"},
		{"decreasing steps", "moderation:\n  mute_steps: [\"4h\", \"1h\"]\n"},
		{"shrinking growth", "moderation:\n  growth_factor: 0.5\n"},
		{"unknown driver", "database:\n  driver: postgres\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			assert.Error(t, err)
		})
	}
}

func TestLoadMissingPath(t *testing.T) {
	_, err := Load("")
	assert.Error(t, err)

	_, err = Load("/nonexistent/config.yaml")
	assert.Error(t, err)
}
