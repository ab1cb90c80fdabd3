package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	appErrors "github.com/unclebandit/coldmail-backend/internal/errors"
	"github.com/unclebandit/coldmail-backend/internal/logger"
	"github.com/unclebandit/coldmail-backend/internal/mailer"
	"github.com/unclebandit/coldmail-backend/internal/model"
	"github.com/unclebandit/coldmail-backend/internal/repository"
	"github.com/unclebandit/coldmail-backend/internal/store"
)

// StaggerInterval separates consecutive messages of one batch
const StaggerInterval = 5 * time.Minute

const dateLayout = "2006-01-02"

// ScheduleRequest is everything needed to start a campaign
type ScheduleRequest struct {
	Name                  string   `json:"name,omitempty"`
	Description           string   `json:"description,omitempty"`
	Contacts              []string `json:"contacts"`
	Subject               string   `json:"subject"`
	Body                  string   `json:"body"`
	DailyLimit            int      `json:"daily_limit"`
	StartDate             string   `json:"start_date"`
	UseProviderScheduling bool     `json:"use_provider_scheduling"`
}

// DispatchFailure is one contact the transport refused
type DispatchFailure struct {
	ContactID string `json:"contact_id"`
	Email     string `json:"email"`
	Reason    string `json:"reason"`
}

// CampaignResult reports one dispatched batch
type CampaignResult struct {
	Campaign       *model.Campaign   `json:"campaign"`
	TemplateID     string            `json:"template_id"`
	Attempted      int               `json:"attempted"`
	Scheduled      int               `json:"scheduled"`
	Failures       []DispatchFailure `json:"failures"`
	Skipped        int               `json:"skipped"`
	Remaining      int               `json:"remaining"`
	DurationDays   int               `json:"duration_days"`
	CompletionDate string            `json:"completion_date"`
	Completed      bool              `json:"completed"`
	Message        string            `json:"message"`
	Note           string            `json:"note,omitempty"`
}

// SendEmailRequest is a one-off message from the composer
type SendEmailRequest struct {
	ContactID  string `json:"contact_id"`
	TemplateID string `json:"template_id,omitempty"`
	Subject    string `json:"subject"`
	Body       string `json:"body"`
}

// CampaignScheduler turns campaigns into daily batches of send or schedule
// calls on the mail transport.
type CampaignScheduler struct {
	CampaignRepo repository.CampaignRepositoryInterface
	TemplateRepo repository.TemplateRepositoryInterface
	ContactRepo  repository.ContactRepositoryInterface
	DeliveryRepo repository.DeliveryLogRepositoryInterface
	Transport    mailer.Transport
	// TestFallback, when set, takes test sends the real transport cannot
	// authenticate for.
	TestFallback mailer.Transport
	Location     *time.Location
	Now          func() time.Time
	Log          *logger.Logger
	// Locks serialises batches of one campaign. Pass the shared store so
	// every process dispatching from it is covered; nil locks per process.
	Locks store.Locker

	local store.LocalLocker
}

func (s *CampaignScheduler) lockCampaign(ctx context.Context, id string) (func(), error) {
	var l store.Locker = &s.local
	if s.Locks != nil {
		l = s.Locks
	}
	unlock, err := l.Lock(ctx, "campaign:"+id)
	if err != nil {
		return nil, fmt.Errorf("lock campaign %s: %w", id, err)
	}
	return unlock, nil
}

func (s *CampaignScheduler) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *CampaignScheduler) location() *time.Location {
	if s.Location != nil {
		return s.Location
	}
	return time.UTC
}

func (s *CampaignScheduler) today() time.Time {
	return startOfDay(s.now().In(s.location()))
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// parseStartDate accepts YYYY-MM-DD or RFC3339 and returns midnight of that
// day in the scheduler's timezone. Empty means today.
func (s *CampaignScheduler) parseStartDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return s.today(), nil
	}
	if d, err := time.ParseInLocation(dateLayout, raw, s.location()); err == nil {
		return d, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return startOfDay(t.In(s.location())), nil
	}
	return time.Time{}, appErrors.NewValidation("start_date", "%q is not a YYYY-MM-DD date", raw)
}

// ensureAuthenticated gives the transport one chance to authenticate
func (s *CampaignScheduler) ensureAuthenticated(ctx context.Context, operation string) error {
	if s.Transport.IsAuthenticated(ctx) || s.Transport.Authenticate(ctx) {
		return nil
	}
	return appErrors.NewAuthRequired(s.Transport.Name(), operation)
}

func validateScheduleRequest(req ScheduleRequest) error {
	if strings.TrimSpace(req.Subject) == "" {
		return appErrors.NewValidation("subject", "subject is required")
	}
	if strings.TrimSpace(req.Body) == "" {
		return appErrors.NewValidation("body", "body is required")
	}
	if len(req.Contacts) == 0 {
		return appErrors.NewValidation("contacts", "at least one contact is required")
	}
	if req.DailyLimit < 1 {
		return appErrors.NewValidation("daily_limit", "daily limit must be at least 1, got %d", req.DailyLimit)
	}
	return nil
}

// ScheduleCampaign stores a template and an active campaign for the request
// and dispatches its first batch. Validation and authentication failures
// persist nothing.
func (s *CampaignScheduler) ScheduleCampaign(ctx context.Context, req ScheduleRequest) (*CampaignResult, error) {
	req.Contacts = uniqueIDs(req.Contacts)
	if err := validateScheduleRequest(req); err != nil {
		return nil, err
	}
	start, err := s.parseStartDate(req.StartDate)
	if err != nil {
		return nil, err
	}
	if err := s.ensureAuthenticated(ctx, "scheduling a campaign"); err != nil {
		return nil, err
	}

	// the campaign is locked before it becomes visible, so no other
	// dispatcher can take its first batch
	campaignID := uuid.NewString()
	unlock, err := s.lockCampaign(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	stamp := s.today().Format(dateLayout)

	tpl := &model.EmailTemplate{
		Name:    "Campaign Template " + stamp,
		Subject: req.Subject,
		Body:    req.Body,
	}
	if err := s.TemplateRepo.Create(ctx, tpl); err != nil {
		return nil, err
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = "Email Campaign " + stamp
	}
	description := strings.TrimSpace(req.Description)
	if description == "" {
		description = fmt.Sprintf("Sending %d emails with daily limit of %d", len(req.Contacts), req.DailyLimit)
	}

	campaign := &model.Campaign{
		ID:                    campaignID,
		Name:                  name,
		Description:           description,
		TemplateID:            tpl.ID,
		Contacts:              req.Contacts,
		Status:                model.CampaignActive,
		StartDate:             start.Format(dateLayout),
		DailyLimit:            req.DailyLimit,
		UseProviderScheduling: req.UseProviderScheduling,
	}
	if err := s.CampaignRepo.Create(ctx, campaign); err != nil {
		return nil, err
	}

	s.Log.WithComponent("scheduler").WithCampaign(campaign.ID).Info().
		Int("contacts", len(campaign.Contacts)).
		Int("daily_limit", campaign.DailyLimit).
		Str("start_date", campaign.StartDate).
		Bool("provider_scheduling", campaign.UseProviderScheduling).
		Msg("campaign created")

	return s.dispatch(ctx, campaign, tpl)
}

// DispatchNextBatch sends or schedules the next batch of an active campaign
func (s *CampaignScheduler) DispatchNextBatch(ctx context.Context, campaignID string) (*CampaignResult, error) {
	unlock, err := s.lockCampaign(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	campaign, err := s.CampaignRepo.GetByID(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	switch campaign.Status {
	case model.CampaignActive:
	case model.CampaignCompleted:
		return nil, appErrors.ErrCampaignCompleted
	default:
		return nil, fmt.Errorf("%w: campaign %s is %s", appErrors.ErrCampaignNotDispatchable, campaignID, campaign.Status)
	}

	if err := s.ensureAuthenticated(ctx, "dispatching a campaign batch"); err != nil {
		return nil, err
	}

	tpl, err := s.TemplateRepo.GetByID(ctx, campaign.TemplateID)
	if err != nil {
		return nil, err
	}
	return s.dispatch(ctx, campaign, tpl)
}

// dispatch runs one batch. The caller holds the campaign lock.
func (s *CampaignScheduler) dispatch(ctx context.Context, campaign *model.Campaign, tpl *model.EmailTemplate) (*CampaignResult, error) {
	log := s.Log.WithComponent("scheduler").WithCampaign(campaign.ID)

	start, err := time.ParseInLocation(dateLayout, campaign.StartDate, s.location())
	if err != nil {
		start = s.today()
	}
	batch := campaign.Progress.BatchesDispatched
	day := start.AddDate(0, 0, batch)

	cursor := campaign.Progress.Cursor
	contacts, err := s.ContactRepo.GetByIDs(ctx, campaign.Contacts[min(cursor, len(campaign.Contacts)):])
	if err != nil {
		return nil, err
	}

	result := &CampaignResult{TemplateID: tpl.ID, Failures: []DispatchFailure{}}
	var reached []*model.Contact
	var ctxErr error

	for cursor < len(campaign.Contacts) && result.Attempted < campaign.DailyLimit {
		if err := ctx.Err(); err != nil {
			ctxErr = err
			break
		}

		id := campaign.Contacts[cursor]
		cursor++

		contact, ok := contacts[id]
		if !ok {
			result.Skipped++
			log.Warn().Str("contact_id", id).Msg("contact no longer exists, skipping")
			continue
		}

		when := day.Add(time.Duration(result.Attempted) * StaggerInterval)
		result.Attempted++

		rendered := RenderMessage(tpl.Subject, tpl.Body, contact)
		msg := mailer.Message{
			To:       contact.Email,
			ToName:   strings.TrimSpace(contact.FullName()),
			Subject:  rendered.Subject,
			HTMLBody: rendered.Body,
		}

		var receipt *mailer.Receipt
		var sendErr error
		if campaign.UseProviderScheduling {
			receipt, sendErr = s.Transport.ScheduleAt(ctx, msg, when)
		} else {
			receipt, sendErr = s.Transport.SendNow(ctx, msg)
		}
		if sendErr != nil {
			derr := &appErrors.DispatchError{ContactID: contact.ID, Email: contact.Email, Err: sendErr}
			log.Warn().Err(derr).Msg("dispatch failed")
			result.Failures = append(result.Failures, DispatchFailure{
				ContactID: contact.ID,
				Email:     contact.Email,
				Reason:    sendErr.Error(),
			})
			continue
		}

		entry := &model.DeliveryLogEntry{
			ContactID:  contact.ID,
			CampaignID: campaign.ID,
			TemplateID: tpl.ID,
			Subject:    rendered.Subject,
			Body:       rendered.Body,
			Status:     model.DeliverySent,
			SentAt:     s.now(),
		}
		if receipt != nil {
			entry.ProviderMessageID = receipt.MessageID
		}
		if campaign.UseProviderScheduling {
			scheduled := when
			entry.ScheduledFor = &scheduled
		}
		if err := s.DeliveryRepo.Add(context.WithoutCancel(ctx), entry); err != nil {
			// the message is out; keep going so progress still covers it
			log.Error().Err(err).Str("contact_id", contact.ID).Msg("failed to record delivery")
		}
		result.Scheduled++
		reached = append(reached, contact)
	}

	s.markContacted(ctx, reached, log)

	now := s.now()
	dispatchedOn := day.Format(dateLayout)
	updated, err := s.CampaignRepo.Modify(context.WithoutCancel(ctx), campaign.ID, func(c *model.Campaign) error {
		c.Progress.Cursor = cursor
		c.Progress.ScheduledCount += result.Scheduled
		c.Progress.FailedCount += len(result.Failures)
		c.Progress.SkippedCount += result.Skipped
		if result.Attempted > 0 || result.Skipped > 0 {
			c.Progress.BatchesDispatched = batch + 1
			c.Progress.LastDispatchedAt = &now
		}
		if cursor >= len(c.Contacts) && c.Status.CanTransition(model.CampaignCompleted) {
			c.Status = model.CampaignCompleted
			c.EndDate = dispatchedOn
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	total := len(updated.Contacts)
	result.Campaign = updated
	result.Remaining = updated.Remaining()
	result.Completed = updated.Status == model.CampaignCompleted
	result.DurationDays = model.DurationDays(total, updated.DailyLimit)
	if result.DurationDays > 0 {
		result.CompletionDate = start.AddDate(0, 0, result.DurationDays-1).Format(dateLayout)
	}
	result.Message, result.Note = s.summarize(result, updated)

	log.Info().
		Int("batch", batch).
		Int("attempted", result.Attempted).
		Int("scheduled", result.Scheduled).
		Int("failed", len(result.Failures)).
		Int("skipped", result.Skipped).
		Int("remaining", result.Remaining).
		Bool("completed", result.Completed).
		Msg("batch dispatched")

	if ctxErr != nil {
		return result, ctxErr
	}
	return result, nil
}

func (s *CampaignScheduler) summarize(r *CampaignResult, c *model.Campaign) (message, note string) {
	verb := "sent"
	if c.UseProviderScheduling {
		verb = "scheduled"
	}

	switch {
	case r.Attempted == 0:
		message = fmt.Sprintf("No emails %s", verb)
	case len(r.Failures) == 0:
		message = fmt.Sprintf("Successfully %s %d emails with %s", verb, r.Scheduled, s.Transport.Name())
	default:
		message = fmt.Sprintf("%s %d of %d emails; %d failed", capitalize(verb), r.Scheduled, r.Attempted, len(r.Failures))
	}

	if r.Remaining > 0 {
		note = fmt.Sprintf("The remaining %d emails will be sent in batches of %d per day", r.Remaining, c.DailyLimit)
	}
	return message, note
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// markContacted moves new contacts to contacted and stamps last_contacted
func (s *CampaignScheduler) markContacted(ctx context.Context, contacts []*model.Contact, log *logger.Logger) {
	if len(contacts) == 0 {
		return
	}
	ids := make([]string, len(contacts))
	for i, c := range contacts {
		ids[i] = c.ID
	}
	if err := s.ContactRepo.MarkContacted(context.WithoutCancel(ctx), ids, s.now()); err != nil {
		log.Warn().Err(err).Int("contacts", len(ids)).Msg("failed to mark contacts as contacted")
	}
}

// SendTestEmail renders subject and body for contact and sends it now. Test
// sends are not logged and do not touch the contact.
func (s *CampaignScheduler) SendTestEmail(ctx context.Context, subject, body string, contact *model.Contact) (*mailer.Receipt, error) {
	if strings.TrimSpace(subject) == "" && strings.TrimSpace(body) == "" {
		return nil, appErrors.NewValidation("body", "subject or body is required")
	}
	if contact == nil || strings.TrimSpace(contact.Email) == "" {
		return nil, appErrors.NewValidation("email", "a recipient email address is required")
	}

	transport := s.Transport
	if err := s.ensureAuthenticated(ctx, "sending a test email"); err != nil {
		if s.TestFallback == nil {
			return nil, err
		}
		s.Log.WithComponent("scheduler").Warn().
			Str("provider", s.Transport.Name()).
			Msg("provider not authenticated, test email goes through the simulated transport")
		transport = s.TestFallback
	}

	rendered := RenderMessage(subject, body, contact)
	receipt, err := transport.SendNow(ctx, mailer.Message{
		To:       contact.Email,
		ToName:   strings.TrimSpace(contact.FullName()),
		Subject:  rendered.Subject,
		HTMLBody: rendered.Body,
	})
	if err != nil {
		return nil, &appErrors.DispatchError{ContactID: contact.ID, Email: contact.Email, Err: err}
	}
	return receipt, nil
}

// SendEmail sends one composed message to a stored contact and records it
// in the delivery log without a campaign.
func (s *CampaignScheduler) SendEmail(ctx context.Context, req SendEmailRequest) (*model.DeliveryLogEntry, error) {
	if strings.TrimSpace(req.Subject) == "" {
		return nil, appErrors.NewValidation("subject", "subject is required")
	}
	if strings.TrimSpace(req.Body) == "" {
		return nil, appErrors.NewValidation("body", "body is required")
	}

	contact, err := s.ContactRepo.GetByID(ctx, req.ContactID)
	if err != nil {
		return nil, err
	}
	if req.TemplateID != "" {
		if _, err := s.TemplateRepo.GetByID(ctx, req.TemplateID); err != nil {
			return nil, err
		}
	}
	if err := s.ensureAuthenticated(ctx, "sending an email"); err != nil {
		return nil, err
	}

	rendered := RenderMessage(req.Subject, req.Body, contact)
	receipt, err := s.Transport.SendNow(ctx, mailer.Message{
		To:       contact.Email,
		ToName:   strings.TrimSpace(contact.FullName()),
		Subject:  rendered.Subject,
		HTMLBody: rendered.Body,
	})
	if err != nil {
		return nil, &appErrors.DispatchError{ContactID: contact.ID, Email: contact.Email, Err: err}
	}

	entry := &model.DeliveryLogEntry{
		ContactID:         contact.ID,
		TemplateID:        req.TemplateID,
		Subject:           rendered.Subject,
		Body:              rendered.Body,
		Status:            model.DeliverySent,
		SentAt:            s.now(),
		ProviderMessageID: receipt.MessageID,
	}
	if err := s.DeliveryRepo.Add(ctx, entry); err != nil {
		return nil, err
	}

	log := s.Log.WithComponent("scheduler")
	s.markContacted(ctx, []*model.Contact{contact}, log)
	log.Info().Str("contact_id", contact.ID).Str("email_id", entry.ID).Msg("email sent")
	return entry, nil
}

// DueCampaigns lists active campaigns whose next batch day has arrived and
// that have not been dispatched yet today.
func (s *CampaignScheduler) DueCampaigns(ctx context.Context, now time.Time) ([]*model.Campaign, error) {
	active, err := s.CampaignRepo.ListByStatus(ctx, model.CampaignActive)
	if err != nil {
		return nil, err
	}

	today := startOfDay(now.In(s.location()))
	var due []*model.Campaign
	for _, c := range active {
		if c.Remaining() == 0 {
			continue
		}
		start, err := time.ParseInLocation(dateLayout, c.StartDate, s.location())
		if err != nil {
			continue
		}
		if start.AddDate(0, 0, c.Progress.BatchesDispatched).After(today) {
			continue
		}
		if last := c.Progress.LastDispatchedAt; last != nil && !startOfDay(last.In(s.location())).Before(today) {
			continue
		}
		due = append(due, c)
	}
	return due, nil
}

// IsPermanent reports whether retrying a dispatch cannot help
func IsPermanent(err error) bool {
	return errors.Is(err, appErrors.ErrCampaignCompleted) ||
		errors.Is(err, appErrors.ErrCampaignNotDispatchable) ||
		appErrors.IsNotFound(err) ||
		appErrors.IsAuthRequired(err) ||
		appErrors.IsValidation(err)
}
