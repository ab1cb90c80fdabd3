package mailer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// SentMessage is a message accepted by the simulated transport
type SentMessage struct {
	Message
	MessageID   string
	ScheduledAt *time.Time
}

// Simulated accepts every message without delivering it. Recipients listed
// with FailFor are rejected.
type Simulated struct {
	mu            sync.Mutex
	authenticated bool
	canAuth       bool
	failures      map[string]error
	sent          []SentMessage
	next          int
}

// NewSimulated returns an authenticated simulated transport
func NewSimulated() *Simulated {
	return &Simulated{authenticated: true, canAuth: true, failures: map[string]error{}}
}

// NewUnauthenticatedSimulated returns a simulated transport that is not
// authenticated and fails every Authenticate attempt.
func NewUnauthenticatedSimulated() *Simulated {
	return &Simulated{failures: map[string]error{}}
}

func (s *Simulated) Name() string { return "simulated" }

func (s *Simulated) IsAuthenticated(ctx context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.authenticated
}

func (s *Simulated) Authenticate(ctx context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.canAuth {
		s.authenticated = true
	}
	return s.authenticated
}

// SetAuthenticated forces the authentication state
func (s *Simulated) SetAuthenticated(authenticated, canAuthenticate bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.authenticated = authenticated
	s.canAuth = canAuthenticate
}

// FailFor makes every send to address fail
func (s *Simulated) FailFor(address string, err error) {
	if err == nil {
		err = errors.New("simulated delivery failure")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[address] = err
}

// Sent returns a copy of every accepted message in order
func (s *Simulated) Sent() []SentMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]SentMessage, len(s.sent))
	copy(out, s.sent)
	return out
}

func (s *Simulated) SendNow(ctx context.Context, msg Message) (*Receipt, error) {
	return s.accept(ctx, msg, nil)
}

func (s *Simulated) ScheduleAt(ctx context.Context, msg Message, when time.Time) (*Receipt, error) {
	return s.accept(ctx, msg, &when)
}

func (s *Simulated) accept(ctx context.Context, msg Message, when *time.Time) (*Receipt, error) {
	if err := msg.validate(); err != nil {
		return nil, fmt.Errorf("simulated: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err, ok := s.failures[msg.To]; ok {
		return nil, err
	}

	s.next++
	id := fmt.Sprintf("sim-%d", s.next)
	s.sent = append(s.sent, SentMessage{Message: msg, MessageID: id, ScheduledAt: when})
	return &Receipt{MessageID: id}, nil
}

var _ Transport = (*Simulated)(nil)
