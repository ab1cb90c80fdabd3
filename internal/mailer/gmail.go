package mailer

import (
	"context"
	"encoding/base64"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

// ScheduledForHeader carries the intended delivery time on Gmail drafts
const ScheduledForHeader = "X-Scheduled-For"

// GmailConfig holds the OAuth2 client credentials and the refresh token of
// the sending mailbox.
type GmailConfig struct {
	ClientID      string
	ClientSecret  string
	RefreshToken  string
	SenderAddress string
	SenderName    string
}

// Gmail sends through the Gmail API. Scheduling creates a draft carrying the
// intended time; the draft id is returned as the message id.
type Gmail struct {
	service       *gmail.Service
	tokens        oauth2.TokenSource
	senderAddress string
	senderName    string

	mu            sync.Mutex
	authenticated bool
}

// NewGmail creates a Gmail transport. No network call is made until the
// first Authenticate or send.
func NewGmail(ctx context.Context, cfg GmailConfig) (*Gmail, error) {
	if cfg.SenderAddress == "" {
		return nil, fmt.Errorf("gmail: sender address is required")
	}

	oauthCfg := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       []string{gmail.GmailComposeScope},
	}
	tokens := oauthCfg.TokenSource(ctx, &oauth2.Token{RefreshToken: cfg.RefreshToken})

	svc, err := gmail.NewService(ctx, option.WithHTTPClient(oauth2.NewClient(ctx, tokens)))
	if err != nil {
		return nil, fmt.Errorf("gmail: failed to create service: %w", err)
	}

	return &Gmail{
		service:       svc,
		tokens:        tokens,
		senderAddress: cfg.SenderAddress,
		senderName:    cfg.SenderName,
	}, nil
}

func (g *Gmail) Name() string { return "gmail" }

func (g *Gmail) IsAuthenticated(ctx context.Context) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.authenticated
}

// Authenticate exchanges the refresh token for an access token
func (g *Gmail) Authenticate(ctx context.Context) bool {
	tok, err := g.tokens.Token()

	g.mu.Lock()
	defer g.mu.Unlock()
	g.authenticated = err == nil && tok.Valid()
	return g.authenticated
}

func (g *Gmail) ensureAuthenticated(ctx context.Context) error {
	if g.IsAuthenticated(ctx) || g.Authenticate(ctx) {
		return nil
	}
	return fmt.Errorf("gmail: %w", ErrNotAuthenticated)
}

func (g *Gmail) SendNow(ctx context.Context, msg Message) (*Receipt, error) {
	if err := msg.validate(); err != nil {
		return nil, fmt.Errorf("gmail: %w", err)
	}
	if err := g.ensureAuthenticated(ctx); err != nil {
		return nil, err
	}

	raw := g.encode(msg)
	sent, err := g.service.Users.Messages.Send("me", &gmail.Message{Raw: raw}).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("gmail: failed to send email: %w", err)
	}
	return &Receipt{MessageID: sent.Id}, nil
}

func (g *Gmail) ScheduleAt(ctx context.Context, msg Message, when time.Time) (*Receipt, error) {
	if err := msg.validate(); err != nil {
		return nil, fmt.Errorf("gmail: %w", err)
	}
	if err := g.ensureAuthenticated(ctx); err != nil {
		return nil, err
	}

	headers := make(map[string]string, len(msg.Headers)+1)
	for k, v := range msg.Headers {
		headers[k] = v
	}
	headers[ScheduledForHeader] = when.UTC().Format(time.RFC3339)
	msg.Headers = headers

	draft := &gmail.Draft{Message: &gmail.Message{Raw: g.encode(msg)}}
	created, err := g.service.Users.Drafts.Create("me", draft).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("gmail: failed to create scheduled draft: %w", err)
	}
	return &Receipt{MessageID: created.Id}, nil
}

func (g *Gmail) encode(msg Message) string {
	return base64.URLEncoding.EncodeToString(buildMIME(sender(g.senderAddress, g.senderName), msg))
}

// buildMIME renders msg as a multipart/alternative message with a plain-text
// part derived from the HTML body.
func buildMIME(from string, msg Message) []byte {
	const boundary = "boundary_coldmail_email"

	lines := []string{
		"From: " + from,
		"To: " + msg.recipient(),
		"Subject: " + msg.Subject,
		"MIME-Version: 1.0",
	}

	keys := make([]string, 0, len(msg.Headers))
	for k := range msg.Headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		lines = append(lines, k+": "+msg.Headers[k])
	}

	lines = append(lines,
		"Content-Type: multipart/alternative; boundary="+boundary,
		"",
		"--"+boundary,
		"Content-Type: text/plain; charset=UTF-8",
		"Content-Transfer-Encoding: 7bit",
		"",
		PlainText(msg.HTMLBody),
		"",
		"--"+boundary,
		"Content-Type: text/html; charset=UTF-8",
		"Content-Transfer-Encoding: 7bit",
		"",
		msg.HTMLBody,
		"",
		"--"+boundary+"--",
	)
	return []byte(strings.Join(lines, "\r\n"))
}

var _ Transport = (*Gmail)(nil)
