// internal/service/template_service.go
package service

import (
	"context"
	"strings"
	"time"

	appErrors "github.com/unclebandit/coldmail-backend/internal/errors"
	"github.com/unclebandit/coldmail-backend/internal/model"
	"github.com/unclebandit/coldmail-backend/internal/repository"
)

// PlaceholderTokens lists the tokens RenderTemplate understands, in the
// order they are offered to template authors.
func PlaceholderTokens() []string {
	return []string{
		"{{firstName}}",
		"{{lastName}}",
		"{{fullName}}",
		"{{email}}",
		"{{company}}",
		"{{position}}",
		"{{phone}}",
	}
}

// RenderTemplate substitutes the contact's fields for the placeholder
// tokens in a single left-to-right pass. Substituted values are never
// scanned again, unknown tokens stay as written and missing optional
// fields render as empty strings.
func RenderTemplate(template string, c *model.Contact) string {
	if c == nil {
		c = &model.Contact{}
	}
	r := strings.NewReplacer(
		"{{firstName}}", c.FirstName,
		"{{lastName}}", c.LastName,
		"{{fullName}}", c.FullName(),
		"{{email}}", c.Email,
		"{{company}}", c.Company,
		"{{position}}", c.Position,
		"{{phone}}", c.Phone,
	)
	return r.Replace(template)
}

// RenderedMessage is a subject/body pair rendered for one contact
type RenderedMessage struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// RenderMessage renders subject and body for c
func RenderMessage(subject, body string, c *model.Contact) RenderedMessage {
	return RenderedMessage{
		Subject: RenderTemplate(subject, c),
		Body:    RenderTemplate(body, c),
	}
}

// TemplateService manages email templates
type TemplateService struct {
	TemplateRepo repository.TemplateRepositoryInterface
	ContactRepo  repository.ContactRepositoryInterface
	DeliveryRepo repository.DeliveryLogRepositoryInterface
}

// TemplateInput is the editable part of a template
type TemplateInput struct {
	Name    string `json:"name"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

func (in TemplateInput) validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return appErrors.NewValidation("name", "template name is required")
	}
	if strings.TrimSpace(in.Subject) == "" {
		return appErrors.NewValidation("subject", "subject is required")
	}
	if strings.TrimSpace(in.Body) == "" {
		return appErrors.NewValidation("body", "body is required")
	}
	return nil
}

func (s *TemplateService) CreateTemplate(ctx context.Context, in TemplateInput) (*model.EmailTemplate, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	t := &model.EmailTemplate{Name: in.Name, Subject: in.Subject, Body: in.Body}
	if err := s.TemplateRepo.Create(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// UpdateTemplate edits a template. Templates that sent mail already
// references are locked so history keeps matching its template.
func (s *TemplateService) UpdateTemplate(ctx context.Context, id string, in TemplateInput) (*model.EmailTemplate, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	t, err := s.TemplateRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	used, err := s.DeliveryRepo.CountByTemplate(ctx, id)
	if err != nil {
		return nil, err
	}
	if used > 0 {
		return nil, appErrors.ErrTemplateLocked
	}

	t.Name, t.Subject, t.Body = in.Name, in.Subject, in.Body
	t.UpdatedAt = time.Now()
	if err := s.TemplateRepo.Update(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// DeleteTemplate removes a template. Delivery-log entries keep their
// rendered snapshots.
func (s *TemplateService) DeleteTemplate(ctx context.Context, id string) error {
	return s.TemplateRepo.Delete(ctx, id)
}

func (s *TemplateService) GetTemplate(ctx context.Context, id string) (*model.EmailTemplate, error) {
	return s.TemplateRepo.GetByID(ctx, id)
}

func (s *TemplateService) ListTemplates(ctx context.Context) ([]model.EmailTemplate, error) {
	return s.TemplateRepo.ListAll(ctx)
}

// PreviewRequest selects what to render: a stored template or an ad-hoc
// subject/body, for a stored contact or a sample one.
type PreviewRequest struct {
	TemplateID string         `json:"template_id,omitempty"`
	Subject    string         `json:"subject,omitempty"`
	Body       string         `json:"body,omitempty"`
	ContactID  string         `json:"contact_id,omitempty"`
	Contact    *model.Contact `json:"contact,omitempty"`
}

// RenderPreview renders a template for one contact without sending anything
func (s *TemplateService) RenderPreview(ctx context.Context, req PreviewRequest) (*RenderedMessage, error) {
	subject, body := req.Subject, req.Body
	if req.TemplateID != "" {
		t, err := s.TemplateRepo.GetByID(ctx, req.TemplateID)
		if err != nil {
			return nil, err
		}
		subject, body = t.Subject, t.Body
	}
	if strings.TrimSpace(subject) == "" && strings.TrimSpace(body) == "" {
		return nil, appErrors.NewValidation("template", "template cannot be empty")
	}

	contact := req.Contact
	if req.ContactID != "" {
		c, err := s.ContactRepo.GetByID(ctx, req.ContactID)
		if err != nil {
			return nil, err
		}
		contact = c
	}

	msg := RenderMessage(subject, body, contact)
	return &msg, nil
}
