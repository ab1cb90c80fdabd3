package app_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unclebandit/coldmail-backend/internal/app"
	"github.com/unclebandit/coldmail-backend/internal/config"
	"github.com/unclebandit/coldmail-backend/internal/logger"
	"github.com/unclebandit/coldmail-backend/internal/model"
	"github.com/unclebandit/coldmail-backend/internal/service"
)

func memoryConfig() *config.Config {
	return &config.Config{
		Store: config.StoreConfig{Backend: "memory"},
		Mail: config.MailConfig{
			Provider:                         "simulated",
			SimulateUnauthenticatedTestSends: true,
		},
		AMQP:      config.AMQPConfig{Queue: "campaign_batches"},
		Scheduler: config.SchedulerConfig{DefaultDailyLimit: 25, Timezone: "UTC", Cron: "5 0 * * *"},
	}
}

func TestNewWiresInMemoryStack(t *testing.T) {
	ctx := context.Background()
	a, err := app.New(ctx, memoryConfig(), logger.Nop())
	require.NoError(t, err)
	defer a.Close()

	assert.False(t, a.Remote)
	assert.Equal(t, "simulated", a.Transport.Name())
	assert.NotNil(t, a.Scheduler.TestFallback)

	c, err := a.Contacts.CreateContact(ctx, model.ContactInput{FirstName: "Ann", Email: "ann@x.com"})
	require.NoError(t, err)

	entry, err := a.Scheduler.SendEmail(ctx, service.SendEmailRequest{ContactID: c.ID, Subject: "Hi {{firstName}}", Body: "Hello"})
	require.NoError(t, err)
	assert.Equal(t, "Hi Ann", entry.Subject)

	export, err := a.Data.Export(ctx)
	require.NoError(t, err)
	assert.Len(t, export.EmailLogs, 1)
}

func TestNewRejectsUnknownStore(t *testing.T) {
	cfg := memoryConfig()
	cfg.Store.Backend = "cassandra"
	_, err := app.New(context.Background(), cfg, logger.Nop())
	assert.Error(t, err)
}
