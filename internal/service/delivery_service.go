package service

import (
	"context"
	"time"

	"github.com/unclebandit/coldmail-backend/internal/logger"
	"github.com/unclebandit/coldmail-backend/internal/model"
	"github.com/unclebandit/coldmail-backend/internal/repository"
)

// DeliveryService tracks what happened to sent messages
type DeliveryService struct {
	DeliveryRepo repository.DeliveryLogRepositoryInterface
	ContactRepo  repository.ContactRepositoryInterface
	Log          *logger.Logger
}

// UpdateStatus records a delivery event for an entry. at defaults to now.
// A reply also moves the contact to replied unless it is already further
// along.
func (s *DeliveryService) UpdateStatus(ctx context.Context, id string, status model.DeliveryStatus, at *time.Time) (*model.DeliveryLogEntry, error) {
	when := time.Now()
	if at != nil {
		when = *at
	}

	entry, err := s.DeliveryRepo.UpdateStatus(ctx, id, status, when)
	if err != nil {
		return nil, err
	}

	if status == model.DeliveryReplied {
		s.markReplied(ctx, entry.ContactID)
	}
	return entry, nil
}

func (s *DeliveryService) markReplied(ctx context.Context, contactID string) {
	log := s.Log.WithComponent("delivery")

	c, err := s.ContactRepo.GetByID(ctx, contactID)
	if err != nil {
		// deleted contacts keep their history
		log.Debug().Err(err).Str("contact_id", contactID).Msg("reply for unknown contact")
		return
	}
	if c.Status != model.ContactNew && c.Status != model.ContactContacted {
		return
	}

	c.Status = model.ContactReplied
	c.UpdatedAt = time.Now()
	if err := s.ContactRepo.Update(ctx, c); err != nil {
		log.Warn().Err(err).Str("contact_id", contactID).Msg("failed to mark contact as replied")
	}
}

func (s *DeliveryService) GetEntry(ctx context.Context, id string) (*model.DeliveryLogEntry, error) {
	return s.DeliveryRepo.GetByID(ctx, id)
}

func (s *DeliveryService) ListByContact(ctx context.Context, contactID string) ([]model.DeliveryLogEntry, error) {
	return s.DeliveryRepo.ListByContact(ctx, contactID)
}

func (s *DeliveryService) ListByCampaign(ctx context.Context, campaignID string) ([]model.DeliveryLogEntry, error) {
	return s.DeliveryRepo.ListByCampaign(ctx, campaignID)
}

// StatsByCampaign counts a campaign's entries per status
func (s *DeliveryService) StatsByCampaign(ctx context.Context, campaignID string) (map[string]int, error) {
	return s.DeliveryRepo.GetCampaignStats(ctx, campaignID)
}
