package service_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/unclebandit/coldmail-backend/internal/logger"
	"github.com/unclebandit/coldmail-backend/internal/mailer"
	"github.com/unclebandit/coldmail-backend/internal/model"
	"github.com/unclebandit/coldmail-backend/internal/repository"
	"github.com/unclebandit/coldmail-backend/internal/service"
	"github.com/unclebandit/coldmail-backend/internal/store"
)

var fixedNow = time.Date(2026, 3, 1, 14, 30, 0, 0, time.UTC)

type fixture struct {
	store     *store.Memory
	contacts  *repository.ContactRepository
	templates *repository.TemplateRepository
	campaigns *repository.CampaignRepository
	logs      *repository.DeliveryLogRepository
	transport *mailer.Simulated
	scheduler *service.CampaignScheduler
	now       time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	s := store.NewMemory()
	f := &fixture{
		store:     s,
		contacts:  repository.NewContactRepository(s),
		templates: repository.NewTemplateRepository(s),
		campaigns: repository.NewCampaignRepository(s),
		logs:      repository.NewDeliveryLogRepository(s),
		transport: mailer.NewSimulated(),
		now:       fixedNow,
	}
	f.scheduler = &service.CampaignScheduler{
		CampaignRepo: f.campaigns,
		TemplateRepo: f.templates,
		ContactRepo:  f.contacts,
		DeliveryRepo: f.logs,
		Transport:    f.transport,
		Location:     time.UTC,
		Now:          func() time.Time { return f.now },
		Log:          logger.Nop(),
		Locks:        s,
	}
	return f
}

// addContacts creates n contacts named c0..c(n-1) and returns their ids
func (f *fixture) addContacts(t *testing.T, n int) []string {
	t.Helper()

	ids := make([]string, n)
	for i := 0; i < n; i++ {
		c := &model.Contact{
			FirstName: fmt.Sprintf("c%d", i),
			Email:     fmt.Sprintf("c%d@example.com", i),
			Company:   "Acme",
		}
		require.NoError(t, f.contacts.Create(context.Background(), c))
		ids[i] = c.ID
	}
	return ids
}
