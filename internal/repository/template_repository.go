package repository

import (
	"context"
	"time"

	appErrors "github.com/unclebandit/coldmail-backend/internal/errors"
	"github.com/unclebandit/coldmail-backend/internal/model"
	"github.com/unclebandit/coldmail-backend/internal/store"
)

type TemplateRepositoryInterface interface {
	Create(ctx context.Context, t *model.EmailTemplate) error
	Update(ctx context.Context, t *model.EmailTemplate) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*model.EmailTemplate, error)
	ListAll(ctx context.Context) ([]model.EmailTemplate, error)
}

type TemplateRepository struct {
	items *collection[model.EmailTemplate]
}

func NewTemplateRepository(s store.Store) *TemplateRepository {
	return &TemplateRepository{items: newCollection[model.EmailTemplate](s, TemplatesKey)}
}

func (r *TemplateRepository) Create(ctx context.Context, t *model.EmailTemplate) error {
	if t.ID == "" {
		t.ID = newID()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now()
	}
	if t.UpdatedAt.IsZero() {
		t.UpdatedAt = t.CreatedAt
	}
	return r.items.mutate(ctx, func(items []model.EmailTemplate) ([]model.EmailTemplate, error) {
		return append(items, *t), nil
	})
}

func (r *TemplateRepository) Update(ctx context.Context, t *model.EmailTemplate) error {
	return r.items.mutate(ctx, func(items []model.EmailTemplate) ([]model.EmailTemplate, error) {
		for i := range items {
			if items[i].ID == t.ID {
				t.CreatedAt = items[i].CreatedAt
				if t.UpdatedAt.IsZero() {
					t.UpdatedAt = time.Now()
				}
				items[i] = *t
				return items, nil
			}
		}
		return nil, appErrors.NewNotFound("template", t.ID)
	})
}

func (r *TemplateRepository) Delete(ctx context.Context, id string) error {
	return r.items.mutate(ctx, func(items []model.EmailTemplate) ([]model.EmailTemplate, error) {
		for i := range items {
			if items[i].ID == id {
				return append(items[:i], items[i+1:]...), nil
			}
		}
		return nil, appErrors.NewNotFound("template", id)
	})
}

func (r *TemplateRepository) GetByID(ctx context.Context, id string) (*model.EmailTemplate, error) {
	var found *model.EmailTemplate
	err := r.items.read(ctx, func(items []model.EmailTemplate) error {
		for i := range items {
			if items[i].ID == id {
				t := items[i]
				found = &t
				return nil
			}
		}
		return appErrors.NewNotFound("template", id)
	})
	return found, err
}

func (r *TemplateRepository) ListAll(ctx context.Context) ([]model.EmailTemplate, error) {
	var out []model.EmailTemplate
	err := r.items.read(ctx, func(items []model.EmailTemplate) error {
		out = append([]model.EmailTemplate{}, items...)
		return nil
	})
	return out, err
}

var _ TemplateRepositoryInterface = (*TemplateRepository)(nil)
