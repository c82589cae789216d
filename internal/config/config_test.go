package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bookerd.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
booking:
  url: https://booking.example.com/dr-strange
  preferences:
    - Tuesday 3pm
    - Wednesday 4pm
user:
  first_name: Ada
  last_name: Lovelace
  email: ada@example.com
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://booking.example.com/dr-strange", cfg.Booking.URL)
	assert.Equal(t, []string{"Tuesday 3pm", "Wednesday 4pm"}, cfg.Booking.Preferences)
	assert.Equal(t, 6, cfg.Booking.SearchHorizon)
	assert.Equal(t, "09:00", cfg.Schedule.AttemptTime)
	assert.Equal(t, 587, cfg.Email.SMTP.Port)
	assert.False(t, cfg.Browser.Headful)
	assert.False(t, cfg.Notify())
}

func TestLoadReadsSMTPPasswordFromEnv(t *testing.T) {
	t.Setenv("SMTP_PASSWORD", "hunter2")
	path := writeConfig(t, `
booking:
  url: https://booking.example.com/x
  preferences: ["Friday 10am"]
email:
  smtp:
    host: smtp.example.com
    username: mailer
  from: bookerd@example.com
  to: [ops@example.com]
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "hunter2", cfg.Email.SMTP.Password)
	assert.True(t, cfg.Notify())
}

func TestLoadRejectsMissingURL(t *testing.T) {
	path := writeConfig(t, `
booking:
  preferences: ["Friday 10am"]
`)
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "booking.url")
}

func TestLoadRejectsEmptyPreferences(t *testing.T) {
	path := writeConfig(t, `
booking:
  url: https://booking.example.com/x
`)
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "preferences")
}

func TestLoadRejectsBadAttemptTime(t *testing.T) {
	path := writeConfig(t, `
booking:
  url: https://booking.example.com/x
  preferences: ["Friday 10am"]
schedule:
  attempt_time: quarter past nine
`)
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "attempt_time")
}

func TestScheduleClock(t *testing.T) {
	h, m, err := ScheduleConfig{AttemptTime: "07:45"}.Clock()
	require.NoError(t, err)
	assert.Equal(t, 7, h)
	assert.Equal(t, 45, m)
}

func TestScheduleLocation(t *testing.T) {
	loc, err := ScheduleConfig{Timezone: "America/New_York"}.Location()
	require.NoError(t, err)
	assert.Equal(t, "America/New_York", loc.String())

	_, err = ScheduleConfig{Timezone: "Mars/Olympus"}.Location()
	assert.Error(t, err)
}

func TestServerFromEnvRequiresCookieKeys(t *testing.T) {
	t.Setenv("COOKIE_HASH_KEY", "")
	t.Setenv("COOKIE_BLOCK_KEY", "")
	_, err := ServerFromEnv()
	require.Error(t, err)
}

func TestServerFromEnvDecodesKeys(t *testing.T) {
	t.Setenv("COOKIE_HASH_KEY", "YWFhYWFhYWFhYWFhYWFhYQ==") // "a" x16
	t.Setenv("COOKIE_BLOCK_KEY", "YmJiYmJiYmJiYmJiYmJiYg==") // "b" x16
	t.Setenv("LISTEN_ADDR", ":9090")

	srv, err := ServerFromEnv()
	require.NoError(t, err)
	assert.Equal(t, ":9090", srv.ListenAddr)
	assert.Len(t, srv.CookieHashKey, 16)
	assert.Len(t, srv.CookieBlockKey, 16)
}
