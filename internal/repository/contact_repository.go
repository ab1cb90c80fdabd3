package repository

import (
	"context"
	"time"

	appErrors "github.com/unclebandit/coldmail-backend/internal/errors"
	"github.com/unclebandit/coldmail-backend/internal/model"
	"github.com/unclebandit/coldmail-backend/internal/store"
)

// ContactRepositoryInterface defines methods used by the services
type ContactRepositoryInterface interface {
	Create(ctx context.Context, c *model.Contact) error
	InsertUnique(ctx context.Context, contacts []*model.Contact) (map[int]error, error)
	Update(ctx context.Context, c *model.Contact) error
	MarkContacted(ctx context.Context, ids []string, at time.Time) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*model.Contact, error)
	GetByIDs(ctx context.Context, ids []string) (map[string]*model.Contact, error)
	ListAll(ctx context.Context) ([]model.Contact, error)
}

// ContactRepository stores contacts under ContactsKey
type ContactRepository struct {
	items *collection[model.Contact]
}

// NewContactRepository creates a repository over s
func NewContactRepository(s store.Store) *ContactRepository {
	return &ContactRepository{items: newCollection[model.Contact](s, ContactsKey)}
}

func prepareContact(c *model.Contact) {
	if c.ID == "" {
		c.ID = newID()
	}
	if c.Status == "" {
		c.Status = model.ContactNew
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}
	if c.UpdatedAt.IsZero() {
		c.UpdatedAt = c.CreatedAt
	}
}

// Create inserts c, rejecting an email that already exists (case-insensitive)
func (r *ContactRepository) Create(ctx context.Context, c *model.Contact) error {
	rejected, err := r.InsertUnique(ctx, []*model.Contact{c})
	if err != nil {
		return err
	}
	if e, ok := rejected[0]; ok {
		return e
	}
	return nil
}

// InsertUnique inserts every contact whose email is not taken by an
// existing contact or by an earlier contact in the same call. Rejected
// contacts are reported by index with a DuplicateError; the rest are
// written in one step.
func (r *ContactRepository) InsertUnique(ctx context.Context, contacts []*model.Contact) (map[int]error, error) {
	rejected := map[int]error{}

	err := r.items.mutate(ctx, func(items []model.Contact) ([]model.Contact, error) {
		seen := make(map[string]struct{}, len(items)+len(contacts))
		for _, existing := range items {
			seen[model.NormalizeEmail(existing.Email)] = struct{}{}
		}

		for i, c := range contacts {
			key := model.NormalizeEmail(c.Email)
			if _, dup := seen[key]; dup {
				rejected[i] = appErrors.NewDuplicate(c.Email)
				continue
			}
			seen[key] = struct{}{}
			prepareContact(c)
			items = append(items, *c)
		}
		return items, nil
	})
	if err != nil {
		return nil, err
	}
	return rejected, nil
}

// Update replaces the stored contact with the same ID
func (r *ContactRepository) Update(ctx context.Context, c *model.Contact) error {
	return r.items.mutate(ctx, func(items []model.Contact) ([]model.Contact, error) {
		idx := -1
		key := model.NormalizeEmail(c.Email)
		for i := range items {
			if items[i].ID == c.ID {
				idx = i
				continue
			}
			if model.NormalizeEmail(items[i].Email) == key {
				return nil, appErrors.NewDuplicate(c.Email)
			}
		}
		if idx < 0 {
			return nil, appErrors.NewNotFound("contact", c.ID)
		}
		c.CreatedAt = items[idx].CreatedAt
		if c.UpdatedAt.IsZero() {
			c.UpdatedAt = time.Now()
		}
		items[idx] = *c
		return items, nil
	})
}

// MarkContacted stamps last_contacted on the given contacts and moves new
// ones to contacted. Other fields are left as stored; unknown ids are ignored.
func (r *ContactRepository) MarkContacted(ctx context.Context, ids []string, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	want := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}

	return r.items.mutate(ctx, func(items []model.Contact) ([]model.Contact, error) {
		for i := range items {
			if _, ok := want[items[i].ID]; !ok {
				continue
			}
			stamp := at
			items[i].LastContacted = &stamp
			if items[i].Status == model.ContactNew {
				items[i].Status = model.ContactContacted
			}
			items[i].UpdatedAt = at
		}
		return items, nil
	})
}

// Delete removes a contact. Campaigns referencing it are left untouched.
func (r *ContactRepository) Delete(ctx context.Context, id string) error {
	return r.items.mutate(ctx, func(items []model.Contact) ([]model.Contact, error) {
		for i := range items {
			if items[i].ID == id {
				return append(items[:i], items[i+1:]...), nil
			}
		}
		return nil, appErrors.NewNotFound("contact", id)
	})
}

// GetByID fetches a contact by ID
func (r *ContactRepository) GetByID(ctx context.Context, id string) (*model.Contact, error) {
	var found *model.Contact
	err := r.items.read(ctx, func(items []model.Contact) error {
		for i := range items {
			if items[i].ID == id {
				c := items[i]
				found = &c
				return nil
			}
		}
		return appErrors.NewNotFound("contact", id)
	})
	return found, err
}

// GetByIDs resolves ids in one read. Unknown ids are simply absent from the map.
func (r *ContactRepository) GetByIDs(ctx context.Context, ids []string) (map[string]*model.Contact, error) {
	want := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}

	out := make(map[string]*model.Contact, len(ids))
	err := r.items.read(ctx, func(items []model.Contact) error {
		for i := range items {
			if _, ok := want[items[i].ID]; ok {
				c := items[i]
				out[c.ID] = &c
			}
		}
		return nil
	})
	return out, err
}

// ListAll returns every contact in insertion order
func (r *ContactRepository) ListAll(ctx context.Context) ([]model.Contact, error) {
	var out []model.Contact
	err := r.items.read(ctx, func(items []model.Contact) error {
		out = append([]model.Contact{}, items...)
		return nil
	})
	return out, err
}

var _ ContactRepositoryInterface = (*ContactRepository)(nil)
