package mailer

import (
	"context"
	"crypto/tls"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	mail "gopkg.in/gomail.v2"
)

// SMTPConfig holds relay settings
type SMTPConfig struct {
	Host          string
	Port          int
	Username      string
	Password      string
	SkipTLSVerify bool
	SenderAddress string
	SenderName    string
}

// SMTP sends through a relay. It cannot defer delivery.
type SMTP struct {
	dialer *mail.Dialer
	config SMTPConfig

	mu            sync.Mutex
	authenticated bool
}

// NewSMTP creates an SMTP transport
func NewSMTP(cfg SMTPConfig) *SMTP {
	d := mail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	d.TLSConfig = &tls.Config{
		ServerName:         cfg.Host,
		InsecureSkipVerify: cfg.SkipTLSVerify,
	}
	return &SMTP{dialer: d, config: cfg}
}

func (s *SMTP) Name() string { return "smtp" }

func (s *SMTP) IsAuthenticated(ctx context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.authenticated
}

// Authenticate dials the relay with the configured credentials and hangs up
func (s *SMTP) Authenticate(ctx context.Context) bool {
	ok := false
	if conn, err := s.dialer.Dial(); err == nil {
		ok = conn.Close() == nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.authenticated = ok
	return ok
}

func (s *SMTP) SendNow(ctx context.Context, msg Message) (*Receipt, error) {
	if err := msg.validate(); err != nil {
		return nil, fmt.Errorf("smtp: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	id := fmt.Sprintf("<%s@%s>", uuid.NewString(), s.messageDomain())

	m := mail.NewMessage()
	m.SetHeader("From", sender(s.config.SenderAddress, s.config.SenderName))
	m.SetHeader("To", msg.recipient())
	m.SetHeader("Subject", msg.Subject)
	m.SetHeader("Message-ID", id)
	for k, v := range msg.Headers {
		m.SetHeader(k, v)
	}
	m.SetBody("text/plain", PlainText(msg.HTMLBody))
	m.AddAlternative("text/html", msg.HTMLBody)

	if err := s.dialer.DialAndSend(m); err != nil {
		return nil, fmt.Errorf("smtp: could not send email: %w", err)
	}

	s.mu.Lock()
	s.authenticated = true
	s.mu.Unlock()

	return &Receipt{MessageID: id}, nil
}

func (s *SMTP) ScheduleAt(ctx context.Context, msg Message, when time.Time) (*Receipt, error) {
	return nil, fmt.Errorf("smtp: %w", ErrSchedulingUnsupported)
}

func (s *SMTP) messageDomain() string {
	if i := strings.LastIndex(s.config.SenderAddress, "@"); i >= 0 {
		return s.config.SenderAddress[i+1:]
	}
	return s.config.Host
}

var _ Transport = (*SMTP)(nil)
