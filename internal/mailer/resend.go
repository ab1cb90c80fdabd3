package mailer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/resend/resend-go/v3"
)

// ResendConfig holds the Resend API key and sender identity
type ResendConfig struct {
	APIKey        string
	SenderAddress string
	SenderName    string
}

// Resend sends through the Resend API, using its native scheduled delivery
type Resend struct {
	client *resend.Client
	config ResendConfig
}

// NewResend creates a Resend transport
func NewResend(cfg ResendConfig) *Resend {
	return &Resend{
		client: resend.NewClient(cfg.APIKey),
		config: cfg,
	}
}

func (s *Resend) Name() string { return "resend" }

// IsAuthenticated reports whether an API key is configured
func (s *Resend) IsAuthenticated(ctx context.Context) bool {
	return strings.TrimSpace(s.config.APIKey) != ""
}

// Authenticate has nothing to exchange; an API key either exists or not
func (s *Resend) Authenticate(ctx context.Context) bool {
	return s.IsAuthenticated(ctx)
}

func (s *Resend) SendNow(ctx context.Context, msg Message) (*Receipt, error) {
	return s.send(ctx, msg, "")
}

func (s *Resend) ScheduleAt(ctx context.Context, msg Message, when time.Time) (*Receipt, error) {
	return s.send(ctx, msg, when.UTC().Format(time.RFC3339))
}

func (s *Resend) send(ctx context.Context, msg Message, scheduledAt string) (*Receipt, error) {
	if err := msg.validate(); err != nil {
		return nil, fmt.Errorf("resend: %w", err)
	}
	if !s.IsAuthenticated(ctx) {
		return nil, fmt.Errorf("resend: %w", ErrNotAuthenticated)
	}

	req := &resend.SendEmailRequest{
		From:        sender(s.config.SenderAddress, s.config.SenderName),
		To:          []string{msg.recipient()},
		Subject:     msg.Subject,
		Html:        msg.HTMLBody,
		Text:        PlainText(msg.HTMLBody),
		Headers:     msg.Headers,
		ScheduledAt: scheduledAt,
	}

	resp, err := s.client.Emails.SendWithContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("resend: failed to send email: %w", err)
	}
	return &Receipt{MessageID: resp.Id}, nil
}

var _ Transport = (*Resend)(nil)
