package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unclebandit/coldmail-backend/internal/config"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:8080", cfg.Server.Addr())
	assert.Equal(t, "memory", cfg.Store.Backend)
	assert.Equal(t, "simulated", cfg.Mail.Provider)
	assert.Equal(t, 25, cfg.Scheduler.DefaultDailyLimit)
	assert.True(t, cfg.Scheduler.RunTrigger)
	assert.Equal(t, "campaign_batches", cfg.AMQP.Queue)
	assert.Equal(t, time.UTC, cfg.Scheduler.Location())
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	t.Setenv("COLDMAIL_SERVER_PORT", "9090")
	t.Setenv("COLDMAIL_MAIL_PROVIDER", "resend")
	t.Setenv("COLDMAIL_SCHEDULER_TIMEZONE", "Europe/Berlin")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "resend", cfg.Mail.Provider)
	assert.Equal(t, "Europe/Berlin", cfg.Scheduler.Location().String())
}

func TestLoadRejectsZeroDailyLimit(t *testing.T) {
	t.Setenv("COLDMAIL_SCHEDULER_DEFAULT_DAILY_LIMIT", "0")
	_, err := config.Load()
	assert.Error(t, err)
}

func TestDatabaseDSN(t *testing.T) {
	c := config.DatabaseConfig{User: "u", Password: "p", Host: "db", Port: 5432, Name: "coldmail", SSLMode: "disable"}
	assert.Equal(t, "postgres://u:p@db:5432/coldmail?sslmode=disable", c.DSN())
}
