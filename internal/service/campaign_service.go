// internal/service/campaign_service.go
package service

import (
	"context"
	"strings"
	"time"

	appErrors "github.com/unclebandit/coldmail-backend/internal/errors"
	"github.com/unclebandit/coldmail-backend/internal/logger"
	"github.com/unclebandit/coldmail-backend/internal/model"
	"github.com/unclebandit/coldmail-backend/internal/queue"
	"github.com/unclebandit/coldmail-backend/internal/repository"
)

type CampaignService struct {
	CampaignRepo repository.CampaignRepositoryInterface
	TemplateRepo repository.TemplateRepositoryInterface
	DeliveryRepo repository.DeliveryLogRepositoryInterface
	Queue        queue.Queue
	Topic        string
	Log          *logger.Logger
}

// CampaignInput is the editable part of a campaign
type CampaignInput struct {
	Name                  string   `json:"name"`
	Description           string   `json:"description,omitempty"`
	TemplateID            string   `json:"template_id"`
	Contacts              []string `json:"contacts"`
	StartDate             string   `json:"start_date,omitempty"`
	DailyLimit            int      `json:"daily_limit,omitempty"`
	UseProviderScheduling bool     `json:"use_provider_scheduling"`
}

type CampaignDetails struct {
	*model.Campaign
	Stats map[string]int `json:"stats"`
}

func (s *CampaignService) validate(ctx context.Context, in CampaignInput) error {
	if strings.TrimSpace(in.Name) == "" {
		return appErrors.NewValidation("name", "campaign name is required")
	}
	if in.DailyLimit < 0 {
		return appErrors.NewValidation("daily_limit", "daily limit must be at least 1, got %d", in.DailyLimit)
	}
	if in.StartDate != "" {
		if _, err := time.Parse(dateLayout, in.StartDate); err != nil {
			return appErrors.NewValidation("start_date", "%q is not a YYYY-MM-DD date", in.StartDate)
		}
	}
	if in.TemplateID == "" {
		return appErrors.NewValidation("template_id", "template is required")
	}
	if _, err := s.TemplateRepo.GetByID(ctx, in.TemplateID); err != nil {
		return err
	}
	return nil
}

// CreateCampaign stores a draft campaign
func (s *CampaignService) CreateCampaign(ctx context.Context, in CampaignInput) (*model.Campaign, error) {
	in.Contacts = uniqueIDs(in.Contacts)
	if err := s.validate(ctx, in); err != nil {
		return nil, err
	}

	c := &model.Campaign{
		Name:                  in.Name,
		Description:           in.Description,
		TemplateID:            in.TemplateID,
		Contacts:              in.Contacts,
		Status:                model.CampaignDraft,
		StartDate:             in.StartDate,
		DailyLimit:            in.DailyLimit,
		UseProviderScheduling: in.UseProviderScheduling,
	}
	if c.StartDate == "" {
		c.StartDate = time.Now().Format(dateLayout)
	}

	if err := s.CampaignRepo.Create(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// UpdateCampaign edits the fields of a campaign. Status only changes
// through ToggleStatus and CompleteCampaign; the contact list is frozen
// once dispatch has started.
func (s *CampaignService) UpdateCampaign(ctx context.Context, id string, in CampaignInput) (*model.Campaign, error) {
	in.Contacts = uniqueIDs(in.Contacts)
	if err := s.validate(ctx, in); err != nil {
		return nil, err
	}

	return s.CampaignRepo.Modify(ctx, id, func(c *model.Campaign) error {
		if c.Status == model.CampaignCompleted {
			return appErrors.ErrCampaignCompleted
		}
		if c.Progress.Cursor > 0 && !equalIDs(c.Contacts, in.Contacts) {
			return appErrors.NewValidation("contacts", "contacts cannot change after dispatch has started")
		}

		c.Name = in.Name
		c.Description = in.Description
		c.TemplateID = in.TemplateID
		c.Contacts = append([]string{}, in.Contacts...)
		if in.StartDate != "" {
			c.StartDate = in.StartDate
		}
		if in.DailyLimit > 0 {
			c.DailyLimit = in.DailyLimit
		}
		c.UseProviderScheduling = in.UseProviderScheduling
		return nil
	})
}

// uniqueIDs returns a copy of ids without repeats, keeping first occurrences
// in order.
func uniqueIDs(ids []string) []string {
	out := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func equalIDs(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func (s *CampaignService) DeleteCampaign(ctx context.Context, id string) error {
	return s.CampaignRepo.Delete(ctx, id)
}

// ListCampaigns fetches campaigns with pagination
func (s *CampaignService) ListCampaigns(ctx context.Context, page, pageSize int, status string) ([]model.Campaign, map[string]int, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}
	offset := (page - 1) * pageSize

	ptrs, total, err := s.CampaignRepo.ListCampaigns(ctx, offset, pageSize, status)
	if err != nil {
		return nil, nil, err
	}

	campaigns := make([]model.Campaign, len(ptrs))
	for i, c := range ptrs {
		campaigns[i] = *c
	}

	totalPages := (total + pageSize - 1) / pageSize
	pagination := map[string]int{
		"page":        page,
		"page_size":   pageSize,
		"total_count": total,
		"total_pages": totalPages,
	}

	return campaigns, pagination, nil
}

// GetCampaignDetails fetches a campaign by ID
func (s *CampaignService) GetCampaignDetails(ctx context.Context, id string) (*model.Campaign, error) {
	return s.CampaignRepo.GetByID(ctx, id)
}

func (s *CampaignService) GetCampaignDetailsWithStats(ctx context.Context, campaignID string) (*CampaignDetails, error) {
	campaign, err := s.CampaignRepo.GetByID(ctx, campaignID)
	if err != nil {
		return nil, err
	}

	stats, err := s.DeliveryRepo.GetCampaignStats(ctx, campaignID)
	if err != nil {
		s.Log.WithComponent("campaigns").Error().Err(err).Str("campaign_id", campaignID).Msg("failed to load campaign stats")
		return nil, err
	}
	stats["contacts"] = len(campaign.Contacts)
	stats["remaining"] = campaign.Remaining()
	stats["failed"] = campaign.Progress.FailedCount
	stats["skipped"] = campaign.Progress.SkippedCount

	return &CampaignDetails{Campaign: campaign, Stats: stats}, nil
}

// CampaignEmails lists the delivery-log entries of a campaign
func (s *CampaignService) CampaignEmails(ctx context.Context, campaignID string) ([]model.DeliveryLogEntry, error) {
	if _, err := s.CampaignRepo.GetByID(ctx, campaignID); err != nil {
		return nil, err
	}
	return s.DeliveryRepo.ListByCampaign(ctx, campaignID)
}

// ToggleStatus starts a draft, pauses an active campaign and resumes a
// paused one.
func (s *CampaignService) ToggleStatus(ctx context.Context, id string) (*model.Campaign, error) {
	c, err := s.CampaignRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	var next model.CampaignStatus
	switch c.Status {
	case model.CampaignDraft, model.CampaignPaused:
		next = model.CampaignActive
	case model.CampaignActive:
		next = model.CampaignPaused
	default:
		return nil, appErrors.NewInvalidTransition("campaign", id, string(c.Status), string(model.CampaignActive))
	}
	return s.CampaignRepo.UpdateStatus(ctx, id, next)
}

// CompleteCampaign ends a campaign early. Undispatched contacts are never sent.
func (s *CampaignService) CompleteCampaign(ctx context.Context, id string) (*model.Campaign, error) {
	return s.CampaignRepo.Modify(ctx, id, func(c *model.Campaign) error {
		if !c.Status.CanTransition(model.CampaignCompleted) {
			return appErrors.NewInvalidTransition("campaign", id, string(c.Status), string(model.CampaignCompleted))
		}
		c.Status = model.CampaignCompleted
		c.EndDate = time.Now().Format(dateLayout)
		return nil
	})
}

// EnqueueNextBatch asks the worker to dispatch the campaign's next batch
func (s *CampaignService) EnqueueNextBatch(ctx context.Context, id string) error {
	c, err := s.CampaignRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	switch c.Status {
	case model.CampaignActive:
	case model.CampaignCompleted:
		return appErrors.ErrCampaignCompleted
	default:
		return appErrors.ErrCampaignNotDispatchable
	}

	topic := s.Topic
	if topic == "" {
		topic = queue.DefaultTopic
	}
	return s.Queue.Publish(topic, queue.BatchJob{CampaignID: id, EnqueuedAt: time.Now()})
}
