package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/unclebandit/coldmail-backend/internal/errors"
	"github.com/unclebandit/coldmail-backend/internal/mailer"
	"github.com/unclebandit/coldmail-backend/internal/model"
	"github.com/unclebandit/coldmail-backend/internal/service"
)

func scheduleRequest(ids []string, limit int) service.ScheduleRequest {
	return service.ScheduleRequest{
		Contacts:              ids,
		Subject:               "Hi {{firstName}}",
		Body:                  "<p>Hello from {{company}}</p>",
		DailyLimit:            limit,
		StartDate:             "2026-03-02",
		UseProviderScheduling: true,
	}
}

func TestScheduleCampaignFirstBatch(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	ids := f.addContacts(t, 12)

	res, err := f.scheduler.ScheduleCampaign(ctx, scheduleRequest(ids, 5))
	require.NoError(t, err)

	assert.Equal(t, 5, res.Attempted)
	assert.Equal(t, 5, res.Scheduled)
	assert.Empty(t, res.Failures)
	assert.Equal(t, 7, res.Remaining)
	assert.Equal(t, 3, res.DurationDays)
	assert.Equal(t, "2026-03-04", res.CompletionDate)
	assert.False(t, res.Completed)
	assert.Equal(t, "Successfully scheduled 5 emails with simulated", res.Message)
	assert.Equal(t, "The remaining 7 emails will be sent in batches of 5 per day", res.Note)

	c := res.Campaign
	assert.Equal(t, model.CampaignActive, c.Status)
	assert.Equal(t, "Email Campaign 2026-03-01", c.Name)
	assert.Equal(t, "Sending 12 emails with daily limit of 5", c.Description)
	assert.Equal(t, 5, c.Progress.Cursor)
	assert.Equal(t, 1, c.Progress.BatchesDispatched)

	tpl, err := f.templates.GetByID(ctx, res.TemplateID)
	require.NoError(t, err)
	assert.Equal(t, "Campaign Template 2026-03-01", tpl.Name)

	entries, err := f.logs.ListByCampaign(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, entries, 5)

	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	for i, e := range entries {
		assert.Equal(t, ids[i], e.ContactID)
		assert.Equal(t, model.DeliverySent, e.Status)
		require.NotNil(t, e.ScheduledFor)
		assert.True(t, day.Add(time.Duration(i)*5*time.Minute).Equal(*e.ScheduledFor), "entry %d scheduled for %s", i, e.ScheduledFor)
		assert.Equal(t, "Hi c"+string(rune('0'+i)), e.Subject)
		assert.Equal(t, "<p>Hello from Acme</p>", e.Body)
		assert.NotEmpty(t, e.ProviderMessageID)
	}

	// rendered snapshots are what the transport saw
	sent := f.transport.Sent()
	require.Len(t, sent, 5)
	assert.Equal(t, "c0@example.com", sent[0].To)
	assert.Equal(t, entries[0].ProviderMessageID, sent[0].MessageID)
}

func TestDispatchNextBatchRunsToCompletion(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	ids := f.addContacts(t, 12)

	res, err := f.scheduler.ScheduleCampaign(ctx, scheduleRequest(ids, 5))
	require.NoError(t, err)
	id := res.Campaign.ID

	res, err = f.scheduler.DispatchNextBatch(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 5, res.Scheduled)
	assert.Equal(t, 2, res.Remaining)

	res, err = f.scheduler.DispatchNextBatch(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Scheduled)
	assert.Equal(t, 0, res.Remaining)
	assert.True(t, res.Completed)
	assert.Empty(t, res.Note)
	assert.Equal(t, model.CampaignCompleted, res.Campaign.Status)
	assert.Equal(t, "2026-03-04", res.Campaign.EndDate)

	entries, err := f.logs.ListByCampaign(ctx, id)
	require.NoError(t, err)
	require.Len(t, entries, 12)
	assert.True(t, time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC).Equal(*entries[5].ScheduledFor))
	assert.True(t, time.Date(2026, 3, 4, 0, 5, 0, 0, time.UTC).Equal(*entries[11].ScheduledFor))

	_, err = f.scheduler.DispatchNextBatch(ctx, id)
	assert.ErrorIs(t, err, appErrors.ErrCampaignCompleted)
}

func TestScheduleCampaignRequiresAuthentication(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	ids := f.addContacts(t, 3)
	f.transport.SetAuthenticated(false, false)

	_, err := f.scheduler.ScheduleCampaign(ctx, scheduleRequest(ids, 5))
	require.Error(t, err)
	assert.True(t, appErrors.IsAuthRequired(err))

	templates, err := f.templates.ListAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, templates)
	campaigns, err := f.campaigns.ListAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, campaigns)
	logs, err := f.logs.ListAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, logs)
}

func TestScheduleCampaignAuthenticatesOnce(t *testing.T) {
	f := newFixture(t)
	ids := f.addContacts(t, 1)
	f.transport.SetAuthenticated(false, true)

	res, err := f.scheduler.ScheduleCampaign(context.Background(), scheduleRequest(ids, 5))
	require.NoError(t, err)
	assert.Equal(t, 1, res.Scheduled)
}

func TestScheduleCampaignValidation(t *testing.T) {
	f := newFixture(t)
	ids := f.addContacts(t, 1)

	tests := []struct {
		name   string
		modify func(r *service.ScheduleRequest)
		field  string
	}{
		{"blank subject", func(r *service.ScheduleRequest) { r.Subject = "  " }, "subject"},
		{"blank body", func(r *service.ScheduleRequest) { r.Body = "" }, "body"},
		{"no contacts", func(r *service.ScheduleRequest) { r.Contacts = nil }, "contacts"},
		{"zero limit", func(r *service.ScheduleRequest) { r.DailyLimit = 0 }, "daily_limit"},
		{"bad date", func(r *service.ScheduleRequest) { r.StartDate = "03/02/2026" }, "start_date"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := scheduleRequest(ids, 5)
			tt.modify(&req)

			_, err := f.scheduler.ScheduleCampaign(context.Background(), req)
			var verr *appErrors.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}

	campaigns, err := f.campaigns.ListAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, campaigns)
}

func TestSendNowModeLeavesScheduledForUnset(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	ids := f.addContacts(t, 2)

	req := scheduleRequest(ids, 5)
	req.UseProviderScheduling = false
	res, err := f.scheduler.ScheduleCampaign(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, "Successfully sent 2 emails with simulated", res.Message)

	entries, err := f.logs.ListByCampaign(ctx, res.Campaign.ID)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	for _, e := range entries {
		assert.Nil(t, e.ScheduledFor)
		assert.True(t, fixedNow.Equal(e.SentAt))
	}
	for _, s := range f.transport.Sent() {
		assert.Nil(t, s.ScheduledAt)
	}
}

func TestDeletedContactIsSkipped(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	ids := f.addContacts(t, 3)
	require.NoError(t, f.contacts.Delete(ctx, ids[1]))

	res, err := f.scheduler.ScheduleCampaign(ctx, scheduleRequest(ids, 2))
	require.NoError(t, err)

	assert.Equal(t, 2, res.Attempted)
	assert.Equal(t, 2, res.Scheduled)
	assert.Equal(t, 1, res.Skipped)
	assert.True(t, res.Completed)
	assert.Equal(t, 1, res.Campaign.Progress.SkippedCount)

	entries, err := f.logs.ListByCampaign(ctx, res.Campaign.ID)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, ids[0], entries[0].ContactID)
	assert.Equal(t, ids[2], entries[1].ContactID)
	// a skipped contact does not use a stagger slot
	assert.True(t, time.Date(2026, 3, 2, 0, 5, 0, 0, time.UTC).Equal(*entries[1].ScheduledFor))
}

func TestFailedContactIsReportedNotLogged(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	ids := f.addContacts(t, 3)
	f.transport.FailFor("c1@example.com", errors.New("mailbox unavailable"))

	res, err := f.scheduler.ScheduleCampaign(ctx, scheduleRequest(ids, 5))
	require.NoError(t, err)

	assert.Equal(t, 3, res.Attempted)
	assert.Equal(t, 2, res.Scheduled)
	require.Len(t, res.Failures, 1)
	assert.Equal(t, service.DispatchFailure{ContactID: ids[1], Email: "c1@example.com", Reason: "mailbox unavailable"}, res.Failures[0])
	assert.Equal(t, "Scheduled 2 of 3 emails; 1 failed", res.Message)
	assert.Equal(t, 1, res.Campaign.Progress.FailedCount)

	entries, err := f.logs.ListByCampaign(ctx, res.Campaign.ID)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	// the failed attempt still used the second slot
	assert.True(t, time.Date(2026, 3, 2, 0, 10, 0, 0, time.UTC).Equal(*entries[1].ScheduledFor))

	failed, err := f.contacts.GetByID(ctx, ids[1])
	require.NoError(t, err)
	assert.Equal(t, model.ContactNew, failed.Status)
}

func TestDispatchMarksContactsContacted(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	ids := f.addContacts(t, 2)

	converted, err := f.contacts.GetByID(ctx, ids[1])
	require.NoError(t, err)
	converted.Status = model.ContactConverted
	require.NoError(t, f.contacts.Update(ctx, converted))

	_, err = f.scheduler.ScheduleCampaign(ctx, scheduleRequest(ids, 5))
	require.NoError(t, err)

	first, err := f.contacts.GetByID(ctx, ids[0])
	require.NoError(t, err)
	assert.Equal(t, model.ContactContacted, first.Status)
	require.NotNil(t, first.LastContacted)
	assert.True(t, fixedNow.Equal(*first.LastContacted))

	second, err := f.contacts.GetByID(ctx, ids[1])
	require.NoError(t, err)
	assert.Equal(t, model.ContactConverted, second.Status)
	assert.NotNil(t, second.LastContacted)
}

// cancellingTransport cancels the dispatch context after n accepted messages
type cancellingTransport struct {
	*mailer.Simulated
	after  int
	cancel context.CancelFunc
	count  int
}

func (c *cancellingTransport) ScheduleAt(ctx context.Context, msg mailer.Message, when time.Time) (*mailer.Receipt, error) {
	r, err := c.Simulated.ScheduleAt(ctx, msg, when)
	c.count++
	if c.count == c.after {
		c.cancel()
	}
	return r, err
}

func TestCancellationKeepsPartialProgress(t *testing.T) {
	f := newFixture(t)
	ids := f.addContacts(t, 6)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f.scheduler.Transport = &cancellingTransport{Simulated: f.transport, after: 2, cancel: cancel}

	res, err := f.scheduler.ScheduleCampaign(ctx, scheduleRequest(ids, 5))
	require.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, res)
	assert.Equal(t, 2, res.Scheduled)
	assert.Equal(t, 4, res.Remaining)

	stored, err := f.campaigns.GetByID(context.Background(), res.Campaign.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, stored.Progress.Cursor)
	assert.Equal(t, 2, stored.Progress.ScheduledCount)

	entries, err := f.logs.ListByCampaign(context.Background(), stored.ID)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestDispatchRequiresActiveCampaign(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	ids := f.addContacts(t, 4)

	res, err := f.scheduler.ScheduleCampaign(ctx, scheduleRequest(ids, 2))
	require.NoError(t, err)

	_, err = f.campaigns.UpdateStatus(ctx, res.Campaign.ID, model.CampaignPaused)
	require.NoError(t, err)

	_, err = f.scheduler.DispatchNextBatch(ctx, res.Campaign.ID)
	assert.ErrorIs(t, err, appErrors.ErrCampaignNotDispatchable)

	_, err = f.scheduler.DispatchNextBatch(ctx, "missing")
	assert.True(t, appErrors.IsNotFound(err))
}

func TestConcurrentDispatchNeverRepeatsContacts(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	ids := f.addContacts(t, 20)

	req := scheduleRequest(ids, 4)
	res, err := f.scheduler.ScheduleCampaign(ctx, req)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = f.scheduler.DispatchNextBatch(ctx, res.Campaign.ID)
		}()
	}
	wg.Wait()

	entries, err := f.logs.ListByCampaign(ctx, res.Campaign.ID)
	require.NoError(t, err)
	require.Len(t, entries, 20)

	seen := map[string]bool{}
	for _, e := range entries {
		assert.False(t, seen[e.ContactID], "contact %s dispatched twice", e.ContactID)
		seen[e.ContactID] = true
	}

	stored, err := f.campaigns.GetByID(ctx, res.Campaign.ID)
	require.NoError(t, err)
	assert.Equal(t, model.CampaignCompleted, stored.Status)
	assert.Equal(t, 5, stored.Progress.BatchesDispatched)
}

func TestDueCampaigns(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	ids := f.addContacts(t, 4)

	req := scheduleRequest(ids, 2)
	req.UseProviderScheduling = false
	req.StartDate = "2026-03-01"
	res, err := f.scheduler.ScheduleCampaign(ctx, req)
	require.NoError(t, err)

	// already dispatched today
	due, err := f.scheduler.DueCampaigns(ctx, fixedNow)
	require.NoError(t, err)
	assert.Empty(t, due)

	due, err = f.scheduler.DueCampaigns(ctx, fixedNow.Add(24*time.Hour))
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, res.Campaign.ID, due[0].ID)

	_, err = f.campaigns.UpdateStatus(ctx, res.Campaign.ID, model.CampaignPaused)
	require.NoError(t, err)
	due, err = f.scheduler.DueCampaigns(ctx, fixedNow.Add(24*time.Hour))
	require.NoError(t, err)
	assert.Empty(t, due)
}

func TestSendTestEmail(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	contact := &model.Contact{FirstName: "Ann", Email: "ann@acme.io"}

	r, err := f.scheduler.SendTestEmail(ctx, "Hi {{firstName}}", "body", contact)
	require.NoError(t, err)
	assert.NotEmpty(t, r.MessageID)
	assert.Equal(t, "Hi Ann", f.transport.Sent()[0].Subject)

	logs, err := f.logs.ListAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, logs)

	f.transport.SetAuthenticated(false, false)
	_, err = f.scheduler.SendTestEmail(ctx, "Hi", "body", contact)
	assert.True(t, appErrors.IsAuthRequired(err))

	fallback := mailer.NewSimulated()
	f.scheduler.TestFallback = fallback
	_, err = f.scheduler.SendTestEmail(ctx, "Hi", "body", contact)
	require.NoError(t, err)
	assert.Len(t, fallback.Sent(), 1)
}

func TestSendEmailLogsWithoutCampaign(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	ids := f.addContacts(t, 1)

	entry, err := f.scheduler.SendEmail(ctx, service.SendEmailRequest{
		ContactID: ids[0],
		Subject:   "Quick question for {{company}}",
		Body:      "Hi {{firstName}}",
	})
	require.NoError(t, err)
	assert.Empty(t, entry.CampaignID)
	assert.Equal(t, "Quick question for Acme", entry.Subject)
	assert.Equal(t, "sim-1", entry.ProviderMessageID)

	c, err := f.contacts.GetByID(ctx, ids[0])
	require.NoError(t, err)
	assert.Equal(t, model.ContactContacted, c.Status)

	f.transport.SetAuthenticated(false, false)
	_, err = f.scheduler.SendEmail(ctx, service.SendEmailRequest{ContactID: ids[0], Subject: "s", Body: "b"})
	assert.True(t, appErrors.IsAuthRequired(err))
}
