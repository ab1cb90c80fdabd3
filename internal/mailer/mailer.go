// Package mailer adapts mail providers to the Transport the scheduler uses.
package mailer

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"
	"sync"
	"time"

	"github.com/microcosm-cc/bluemonday"
)

// ErrSchedulingUnsupported is returned by transports that can only send now
var ErrSchedulingUnsupported = errors.New("mail transport does not support scheduled delivery")

// ErrNotAuthenticated is returned when a send is attempted on a transport
// that could not authenticate.
var ErrNotAuthenticated = errors.New("mail transport is not authenticated")

// Transport sends or schedules a single rendered message. Implementations
// report failures as errors; they never panic on provider errors.
type Transport interface {
	Name() string
	IsAuthenticated(ctx context.Context) bool
	// Authenticate makes one attempt to obtain provider credentials
	Authenticate(ctx context.Context) bool
	SendNow(ctx context.Context, msg Message) (*Receipt, error)
	ScheduleAt(ctx context.Context, msg Message, when time.Time) (*Receipt, error)
}

// Message is one rendered email. HTMLBody is sent as is; the plain-text
// alternative is derived from it.
type Message struct {
	To       string
	ToName   string
	Subject  string
	HTMLBody string
	Headers  map[string]string
}

// Receipt identifies an accepted message at the provider
type Receipt struct {
	MessageID string `json:"message_id"`
}

func (m Message) validate() error {
	if strings.TrimSpace(m.To) == "" {
		return fmt.Errorf("recipient is required")
	}
	return nil
}

func (m Message) recipient() string {
	if m.ToName == "" {
		return m.To
	}
	return fmt.Sprintf("%s <%s>", m.ToName, m.To)
}

var (
	strictPolicy *bluemonday.Policy
	policyOnce   sync.Once
)

// PlainText strips every tag from an HTML body, keeping line breaks for
// block elements.
func PlainText(body string) string {
	policyOnce.Do(func() {
		strictPolicy = bluemonday.StrictPolicy()
	})

	r := strings.NewReplacer(
		"<br>", "\n", "<br/>", "\n", "<br />", "\n",
		"</p>", "</p>\n", "</div>", "</div>\n", "</li>", "</li>\n",
	)
	text := html.UnescapeString(strictPolicy.Sanitize(r.Replace(body)))

	lines := strings.Split(text, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSpace(l)
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

func sender(address, name string) string {
	if name == "" {
		return address
	}
	return fmt.Sprintf("%s <%s>", name, address)
}
