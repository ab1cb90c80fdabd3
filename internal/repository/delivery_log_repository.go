package repository

import (
	"context"
	"time"

	appErrors "github.com/unclebandit/coldmail-backend/internal/errors"
	"github.com/unclebandit/coldmail-backend/internal/model"
	"github.com/unclebandit/coldmail-backend/internal/store"
)

// DeliveryLogRepositoryInterface is the append-only delivery log. Entries
// change only through UpdateStatus.
type DeliveryLogRepositoryInterface interface {
	Add(ctx context.Context, e *model.DeliveryLogEntry) error
	UpdateStatus(ctx context.Context, id string, status model.DeliveryStatus, at time.Time) (*model.DeliveryLogEntry, error)
	GetByID(ctx context.Context, id string) (*model.DeliveryLogEntry, error)
	ListByContact(ctx context.Context, contactID string) ([]model.DeliveryLogEntry, error)
	ListByCampaign(ctx context.Context, campaignID string) ([]model.DeliveryLogEntry, error)
	CountByTemplate(ctx context.Context, templateID string) (int, error)
	GetCampaignStats(ctx context.Context, campaignID string) (map[string]int, error)
	ListAll(ctx context.Context) ([]model.DeliveryLogEntry, error)
}

type DeliveryLogRepository struct {
	items *collection[model.DeliveryLogEntry]
}

func NewDeliveryLogRepository(s store.Store) *DeliveryLogRepository {
	return &DeliveryLogRepository{items: newCollection[model.DeliveryLogEntry](s, DeliveryLogKey)}
}

// Add appends a new entry
func (r *DeliveryLogRepository) Add(ctx context.Context, e *model.DeliveryLogEntry) error {
	if e.ID == "" {
		e.ID = newID()
	}
	if e.Status == "" {
		e.Status = model.DeliverySent
	}
	if !e.Status.Valid() {
		return appErrors.NewValidation("status", "unknown delivery status %q", e.Status)
	}
	if e.SentAt.IsZero() {
		e.SentAt = time.Now()
	}
	return r.items.mutate(ctx, func(items []model.DeliveryLogEntry) ([]model.DeliveryLogEntry, error) {
		return append(items, *e), nil
	})
}

// UpdateStatus moves an entry forward, stamping opened_at / replied_at with
// at. Backward moves and moves out of bounced fail with an
// InvalidTransitionError and leave the entry as it was. Re-applying the
// current status is a no-op.
func (r *DeliveryLogRepository) UpdateStatus(ctx context.Context, id string, status model.DeliveryStatus, at time.Time) (*model.DeliveryLogEntry, error) {
	if !status.Valid() {
		return nil, appErrors.NewValidation("status", "unknown delivery status %q", status)
	}

	var updated *model.DeliveryLogEntry
	err := r.items.mutate(ctx, func(items []model.DeliveryLogEntry) ([]model.DeliveryLogEntry, error) {
		for i := range items {
			if items[i].ID != id {
				continue
			}
			e := &items[i]
			if e.Status == status {
				out := *e
				updated = &out
				return items, nil
			}
			if !e.Status.CanTransition(status) {
				return nil, appErrors.NewInvalidTransition("email", id, string(e.Status), string(status))
			}

			e.Status = status
			stamp := at
			switch status {
			case model.DeliveryOpened:
				e.OpenedAt = &stamp
			case model.DeliveryReplied:
				e.RepliedAt = &stamp
			}
			out := *e
			updated = &out
			return items, nil
		}
		return nil, appErrors.NewNotFound("email", id)
	})
	return updated, err
}

func (r *DeliveryLogRepository) GetByID(ctx context.Context, id string) (*model.DeliveryLogEntry, error) {
	var found *model.DeliveryLogEntry
	err := r.items.read(ctx, func(items []model.DeliveryLogEntry) error {
		for i := range items {
			if items[i].ID == id {
				e := items[i]
				found = &e
				return nil
			}
		}
		return appErrors.NewNotFound("email", id)
	})
	return found, err
}

func (r *DeliveryLogRepository) filter(ctx context.Context, keep func(e *model.DeliveryLogEntry) bool) ([]model.DeliveryLogEntry, error) {
	out := []model.DeliveryLogEntry{}
	err := r.items.read(ctx, func(items []model.DeliveryLogEntry) error {
		for i := range items {
			if keep(&items[i]) {
				out = append(out, items[i])
			}
		}
		return nil
	})
	return out, err
}

// ListByContact returns a contact's entries in insertion order
func (r *DeliveryLogRepository) ListByContact(ctx context.Context, contactID string) ([]model.DeliveryLogEntry, error) {
	return r.filter(ctx, func(e *model.DeliveryLogEntry) bool { return e.ContactID == contactID })
}

// ListByCampaign returns a campaign's entries in insertion order
func (r *DeliveryLogRepository) ListByCampaign(ctx context.Context, campaignID string) ([]model.DeliveryLogEntry, error) {
	return r.filter(ctx, func(e *model.DeliveryLogEntry) bool { return e.CampaignID == campaignID })
}

// CountByTemplate counts entries that were rendered from the template
func (r *DeliveryLogRepository) CountByTemplate(ctx context.Context, templateID string) (int, error) {
	entries, err := r.filter(ctx, func(e *model.DeliveryLogEntry) bool { return e.TemplateID == templateID })
	return len(entries), err
}

// GetCampaignStats counts a campaign's entries per status plus a total
func (r *DeliveryLogRepository) GetCampaignStats(ctx context.Context, campaignID string) (map[string]int, error) {
	stats := map[string]int{
		"total":                         0,
		string(model.DeliverySent):      0,
		string(model.DeliveryDelivered): 0,
		string(model.DeliveryOpened):    0,
		string(model.DeliveryClicked):   0,
		string(model.DeliveryReplied):   0,
		string(model.DeliveryBounced):   0,
	}

	entries, err := r.ListByCampaign(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		stats[string(e.Status)]++
		stats["total"]++
	}
	return stats, nil
}

func (r *DeliveryLogRepository) ListAll(ctx context.Context) ([]model.DeliveryLogEntry, error) {
	return r.filter(ctx, func(*model.DeliveryLogEntry) bool { return true })
}

var _ DeliveryLogRepositoryInterface = (*DeliveryLogRepository)(nil)
