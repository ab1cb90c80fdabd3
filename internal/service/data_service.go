package service

import (
	"context"
	"time"

	"github.com/unclebandit/coldmail-backend/internal/logger"
	"github.com/unclebandit/coldmail-backend/internal/model"
	"github.com/unclebandit/coldmail-backend/internal/repository"
	"github.com/unclebandit/coldmail-backend/internal/store"
)

// Export is a full snapshot of every collection
type Export struct {
	Contacts   []model.Contact          `json:"contacts"`
	Templates  []model.EmailTemplate    `json:"templates"`
	Campaigns  []model.Campaign         `json:"campaigns"`
	EmailLogs  []model.DeliveryLogEntry `json:"email_logs"`
	ExportedAt time.Time                `json:"exported_at"`
}

// DataService exports and wipes the stored data
type DataService struct {
	Store        store.Store
	ContactRepo  repository.ContactRepositoryInterface
	TemplateRepo repository.TemplateRepositoryInterface
	CampaignRepo repository.CampaignRepositoryInterface
	DeliveryRepo repository.DeliveryLogRepositoryInterface
	Log          *logger.Logger
}

func (s *DataService) Export(ctx context.Context) (*Export, error) {
	contacts, err := s.ContactRepo.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	templates, err := s.TemplateRepo.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	campaigns, err := s.CampaignRepo.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	logs, err := s.DeliveryRepo.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	out := &Export{
		Contacts:   contacts,
		Templates:  templates,
		Campaigns:  campaigns,
		EmailLogs:  logs,
		ExportedAt: time.Now(),
	}
	return out, nil
}

// ClearAll deletes every collection in one store call. It waits for
// in-flight repository writes so none of them lands after the wipe.
func (s *DataService) ClearAll(ctx context.Context) error {
	unlock, err := repository.LockCollections(ctx, s.Store)
	if err != nil {
		return err
	}
	defer unlock()

	if err := s.Store.Delete(ctx, repository.CollectionKeys()...); err != nil {
		return err
	}
	s.Log.WithComponent("data").Warn().Msg("all data cleared")
	return nil
}
