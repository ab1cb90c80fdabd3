package queue

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/unclebandit/coldmail-backend/internal/logger"
)

// DefaultTopic carries "send next batch" jobs
const DefaultTopic = "campaign_batches"

// DefaultMaxRetries is how many times a failed job is retried before it is dropped
const DefaultMaxRetries = 3

// Handler processes one JSON-encoded job. Returning an error asks for a retry.
type Handler func(body []byte) error

// Queue interface
type Queue interface {
	Publish(topic string, payload any) error
	Subscribe(topic string, handler Handler) error
}

// BatchJob asks a worker to dispatch the next batch of a campaign
type BatchJob struct {
	CampaignID string    `json:"campaign_id"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}

// InMemoryQueue is an in-process queue with retry
type InMemoryQueue struct {
	mu         sync.Mutex
	handlers   map[string][]Handler
	log        *logger.Logger
	maxRetries int
	backoff    time.Duration
	wg         sync.WaitGroup
}

// NewInMemoryQueue creates a new queue
func NewInMemoryQueue(log *logger.Logger) *InMemoryQueue {
	return &InMemoryQueue{
		handlers:   make(map[string][]Handler),
		log:        log.WithComponent("queue"),
		maxRetries: DefaultMaxRetries,
		backoff:    500 * time.Millisecond,
	}
}

// JobPayload wraps a message payload with retry info
type JobPayload struct {
	Topic      string
	Body       []byte
	RetryCount int
	MaxRetries int
}

// Publish sends a message to all subscribers
func (q *InMemoryQueue) Publish(topic string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode job for %s: %w", topic, err)
	}

	q.mu.Lock()
	handlers := q.handlers[topic]
	q.mu.Unlock()

	if len(handlers) == 0 {
		return fmt.Errorf("no subscribers for topic %s", topic)
	}

	for _, handler := range handlers {
		job := JobPayload{
			Topic:      topic,
			Body:       body,
			RetryCount: 0,
			MaxRetries: q.maxRetries,
		}
		q.wg.Add(1)
		go q.processJob(handler, job)
	}

	return nil
}

// processJob handles retries and errors
func (q *InMemoryQueue) processJob(handler Handler, job JobPayload) {
	defer q.wg.Done()

	for job.RetryCount <= job.MaxRetries {
		err := handler(job.Body)
		if err == nil {
			q.log.Debug().Str("topic", job.Topic).RawJSON("job", job.Body).Msg("job processed")
			return // ACK
		}

		job.RetryCount++
		q.log.Warn().Err(err).
			Str("topic", job.Topic).
			RawJSON("job", job.Body).
			Int("attempt", job.RetryCount).
			Int("max_retries", job.MaxRetries).
			Msg("job failed")

		if job.RetryCount > job.MaxRetries {
			q.log.Error().Str("topic", job.Topic).RawJSON("job", job.Body).Msg("job permanently failed")
			return // No requeue
		}

		// Linear backoff before retry
		time.Sleep(time.Duration(job.RetryCount) * q.backoff)
	}
}

// Subscribe adds a handler for a topic
func (q *InMemoryQueue) Subscribe(topic string, handler Handler) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.handlers[topic] = append(q.handlers[topic], handler)
	return nil
}

// Wait blocks until every published job has finished or been dropped
func (q *InMemoryQueue) Wait() {
	q.wg.Wait()
}

var _ Queue = (*InMemoryQueue)(nil)
