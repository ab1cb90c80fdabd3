package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	appErrors "github.com/unclebandit/coldmail-backend/internal/errors"
	"github.com/unclebandit/coldmail-backend/internal/logger"
	"github.com/unclebandit/coldmail-backend/internal/model"
	"github.com/unclebandit/coldmail-backend/internal/repository"
)

// ContactService owns contact records and imports
type ContactService struct {
	ContactRepo  repository.ContactRepositoryInterface
	DeliveryRepo repository.DeliveryLogRepositoryInterface
	Log          *logger.Logger
}

// ImportContacts adds every row that has an email not already taken by an
// existing contact or an earlier row. Problems are reported per row with
// 1-based row numbers; the rest of the batch still goes in.
func (s *ContactService) ImportContacts(ctx context.Context, rows []model.ContactInput) (*model.ImportResult, error) {
	rowErrors := make(map[int]string)
	candidates := make([]*model.Contact, 0, len(rows))
	rowNumbers := make([]int, 0, len(rows))
	for i, row := range rows {
		if strings.TrimSpace(row.Email) == "" {
			rowErrors[i+1] = fmt.Sprintf("Row %d: Missing email address", i+1)
			continue
		}
		candidates = append(candidates, newContact(row))
		rowNumbers = append(rowNumbers, i+1)
	}

	rejected, err := s.ContactRepo.InsertUnique(ctx, candidates)
	if err != nil {
		return nil, err
	}
	for i, e := range rejected {
		n := rowNumbers[i]
		if appErrors.IsDuplicate(e) {
			rowErrors[n] = fmt.Sprintf("Row %d: Duplicate email address - %s", n, candidates[i].Email)
		} else {
			rowErrors[n] = fmt.Sprintf("Row %d: %v", n, e)
		}
	}

	result := &model.ImportResult{
		Count:  len(candidates) - len(rejected),
		Errors: []string{},
	}
	for n := 1; n <= len(rows); n++ {
		if msg, ok := rowErrors[n]; ok {
			result.Errors = append(result.Errors, msg)
		}
	}
	result.Success = result.Count > 0

	s.Log.WithComponent("contacts").Info().
		Int("rows", len(rows)).
		Int("imported", result.Count).
		Int("errors", len(result.Errors)).
		Msg("contacts imported")

	return result, nil
}

func newContact(in model.ContactInput) *model.Contact {
	c := &model.Contact{
		FirstName: strings.TrimSpace(in.FirstName),
		LastName:  strings.TrimSpace(in.LastName),
		Email:     strings.TrimSpace(in.Email),
		Company:   strings.TrimSpace(in.Company),
		Position:  strings.TrimSpace(in.Position),
		Phone:     strings.TrimSpace(in.Phone),
		Status:    in.Status,
		Notes:     in.Notes,
		Tags:      in.Tags,
	}
	if c.Status == "" {
		c.Status = model.ContactNew
	}
	return c
}

func validateContactInput(in model.ContactInput) error {
	if strings.TrimSpace(in.Email) == "" {
		return appErrors.NewValidation("email", "email address is required")
	}
	if !strings.Contains(in.Email, "@") {
		return appErrors.NewValidation("email", "%q is not an email address", in.Email)
	}
	if in.Status != "" && !in.Status.Valid() {
		return appErrors.NewValidation("status", "unknown contact status %q", in.Status)
	}
	return nil
}

func (s *ContactService) CreateContact(ctx context.Context, in model.ContactInput) (*model.Contact, error) {
	if err := validateContactInput(in); err != nil {
		return nil, err
	}
	c := newContact(in)
	if err := s.ContactRepo.Create(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// UpdateContact replaces the editable fields of a contact
func (s *ContactService) UpdateContact(ctx context.Context, id string, in model.ContactInput) (*model.Contact, error) {
	if err := validateContactInput(in); err != nil {
		return nil, err
	}

	existing, err := s.ContactRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	updated := newContact(in)
	updated.ID = existing.ID
	updated.LastContacted = existing.LastContacted
	if in.Status == "" {
		updated.Status = existing.Status
	}
	updated.UpdatedAt = time.Now()

	if err := s.ContactRepo.Update(ctx, updated); err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteContact removes a contact. Campaigns that list it skip it on
// their next batch.
func (s *ContactService) DeleteContact(ctx context.Context, id string) error {
	return s.ContactRepo.Delete(ctx, id)
}

func (s *ContactService) GetContact(ctx context.Context, id string) (*model.Contact, error) {
	return s.ContactRepo.GetByID(ctx, id)
}

func (s *ContactService) ListContacts(ctx context.Context) ([]model.Contact, error) {
	return s.ContactRepo.ListAll(ctx)
}

// ContactEmails returns the delivery history of a contact
func (s *ContactService) ContactEmails(ctx context.Context, id string) ([]model.DeliveryLogEntry, error) {
	if _, err := s.ContactRepo.GetByID(ctx, id); err != nil {
		return nil, err
	}
	return s.DeliveryRepo.ListByContact(ctx, id)
}
