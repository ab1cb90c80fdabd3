package repository

import (
	"context"
	"sort"
	"time"

	appErrors "github.com/unclebandit/coldmail-backend/internal/errors"
	"github.com/unclebandit/coldmail-backend/internal/model"
	"github.com/unclebandit/coldmail-backend/internal/store"
)

type CampaignRepositoryInterface interface {
	// Campaign CRUD
	ListCampaigns(ctx context.Context, offset, limit int, status string) ([]*model.Campaign, int, error)
	ListByStatus(ctx context.Context, status model.CampaignStatus) ([]*model.Campaign, error)
	ListAll(ctx context.Context) ([]model.Campaign, error)
	GetByID(ctx context.Context, id string) (*model.Campaign, error)
	UpdateStatus(ctx context.Context, campaignID string, status model.CampaignStatus) (*model.Campaign, error)
	Update(ctx context.Context, c *model.Campaign) error
	Modify(ctx context.Context, id string, fn func(c *model.Campaign) error) (*model.Campaign, error)
	Create(ctx context.Context, c *model.Campaign) error
	Delete(ctx context.Context, id string) error
}

type CampaignRepository struct {
	items *collection[model.Campaign]
}

func NewCampaignRepository(s store.Store) *CampaignRepository {
	return &CampaignRepository{items: newCollection[model.Campaign](s, CampaignsKey)}
}

// ====================== Campaign CRUD ======================

func (r *CampaignRepository) Create(ctx context.Context, c *model.Campaign) error {
	if c.ID == "" {
		c.ID = newID()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}
	if c.UpdatedAt.IsZero() {
		c.UpdatedAt = c.CreatedAt
	}
	if c.Status == "" {
		c.Status = model.CampaignDraft
	}
	if c.DailyLimit == 0 {
		c.DailyLimit = model.DefaultDailyLimit
	}
	return r.items.mutate(ctx, func(items []model.Campaign) ([]model.Campaign, error) {
		return append(items, *c), nil
	})
}

// Update replaces every field of the stored campaign
func (r *CampaignRepository) Update(ctx context.Context, c *model.Campaign) error {
	return r.items.mutate(ctx, func(items []model.Campaign) ([]model.Campaign, error) {
		for i := range items {
			if items[i].ID == c.ID {
				c.CreatedAt = items[i].CreatedAt
				c.UpdatedAt = time.Now()
				items[i] = *c
				return items, nil
			}
		}
		return nil, appErrors.NewCampaignNotFound(c.ID)
	})
}

// Modify applies fn to the stored campaign and saves the result in one
// step, so concurrent status changes are not lost. Nothing is written when
// fn fails.
func (r *CampaignRepository) Modify(ctx context.Context, id string, fn func(c *model.Campaign) error) (*model.Campaign, error) {
	var updated *model.Campaign
	err := r.items.mutate(ctx, func(items []model.Campaign) ([]model.Campaign, error) {
		for i := range items {
			if items[i].ID != id {
				continue
			}
			c := items[i]
			if err := fn(&c); err != nil {
				return nil, err
			}
			c.ID = items[i].ID
			c.CreatedAt = items[i].CreatedAt
			c.UpdatedAt = time.Now()
			items[i] = c
			updated = &c
			return items, nil
		}
		return nil, appErrors.NewCampaignNotFound(id)
	})
	return updated, err
}

// UpdateStatus moves a campaign along the status machine and returns the
// updated campaign. Illegal moves leave it unchanged.
func (r *CampaignRepository) UpdateStatus(ctx context.Context, campaignID string, status model.CampaignStatus) (*model.Campaign, error) {
	var updated *model.Campaign
	err := r.items.mutate(ctx, func(items []model.Campaign) ([]model.Campaign, error) {
		for i := range items {
			if items[i].ID != campaignID {
				continue
			}
			if !items[i].Status.CanTransition(status) {
				return nil, appErrors.NewInvalidTransition("campaign", campaignID, string(items[i].Status), string(status))
			}
			items[i].Status = status
			items[i].UpdatedAt = time.Now()
			c := items[i]
			updated = &c
			return items, nil
		}
		return nil, appErrors.NewCampaignNotFound(campaignID)
	})
	return updated, err
}

func (r *CampaignRepository) Delete(ctx context.Context, id string) error {
	return r.items.mutate(ctx, func(items []model.Campaign) ([]model.Campaign, error) {
		for i := range items {
			if items[i].ID == id {
				return append(items[:i], items[i+1:]...), nil
			}
		}
		return nil, appErrors.NewCampaignNotFound(id)
	})
}

func (r *CampaignRepository) GetByID(ctx context.Context, id string) (*model.Campaign, error) {
	var found *model.Campaign
	err := r.items.read(ctx, func(items []model.Campaign) error {
		for i := range items {
			if items[i].ID == id {
				c := items[i]
				found = &c
				return nil
			}
		}
		return appErrors.NewCampaignNotFound(id)
	})
	return found, err
}

// ListCampaigns returns one page of campaigns, newest first, optionally
// filtered by status, plus the total number of matches.
func (r *CampaignRepository) ListCampaigns(ctx context.Context, offset, limit int, status string) ([]*model.Campaign, int, error) {
	campaigns := []*model.Campaign{}
	total := 0

	err := r.items.read(ctx, func(items []model.Campaign) error {
		filtered := make([]model.Campaign, 0, len(items))
		for _, c := range items {
			if status != "" && string(c.Status) != status {
				continue
			}
			filtered = append(filtered, c)
		}

		// stored in insertion order; newest first means reversed, with
		// created_at as the tie-breaker for collections merged from elsewhere
		for i, j := 0, len(filtered)-1; i < j; i, j = i+1, j-1 {
			filtered[i], filtered[j] = filtered[j], filtered[i]
		}
		sort.SliceStable(filtered, func(i, j int) bool {
			return filtered[i].CreatedAt.After(filtered[j].CreatedAt)
		})

		total = len(filtered)
		if offset >= total {
			return nil
		}
		end := min(offset+limit, total)
		for i := offset; i < end; i++ {
			c := filtered[i]
			campaigns = append(campaigns, &c)
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	return campaigns, total, nil
}

// ListByStatus returns every campaign in the given status, oldest first
func (r *CampaignRepository) ListByStatus(ctx context.Context, status model.CampaignStatus) ([]*model.Campaign, error) {
	var out []*model.Campaign
	err := r.items.read(ctx, func(items []model.Campaign) error {
		for _, c := range items {
			if c.Status == status {
				c := c
				out = append(out, &c)
			}
		}
		return nil
	})
	return out, err
}

// ListAll returns every campaign in insertion order
func (r *CampaignRepository) ListAll(ctx context.Context) ([]model.Campaign, error) {
	var out []model.Campaign
	err := r.items.read(ctx, func(items []model.Campaign) error {
		out = append([]model.Campaign{}, items...)
		return nil
	})
	return out, err
}

var _ CampaignRepositoryInterface = (*CampaignRepository)(nil)
