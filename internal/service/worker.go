package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/unclebandit/coldmail-backend/internal/logger"
	"github.com/unclebandit/coldmail-backend/internal/queue"
)

// BatchDispatcher is the part of the scheduler the worker needs
type BatchDispatcher interface {
	DispatchNextBatch(ctx context.Context, campaignID string) (*CampaignResult, error)
}

// Worker consumes "send next batch" jobs
type Worker struct {
	Dispatcher BatchDispatcher
	Queue      queue.Queue
	Topic      string
	Timeout    time.Duration
	Log        *logger.Logger
}

// Constructor
func NewWorker(dispatcher BatchDispatcher, q queue.Queue, topic string, log *logger.Logger) *Worker {
	if topic == "" {
		topic = queue.DefaultTopic
	}
	return &Worker{
		Dispatcher: dispatcher,
		Queue:      q,
		Topic:      topic,
		Timeout:    10 * time.Minute,
		Log:        log.WithComponent("worker"),
	}
}

// Start subscribes the worker to its topic
func (w *Worker) Start() error {
	return w.Queue.Subscribe(w.Topic, w.Handle)
}

// Handle processes one job. Errors retrying cannot fix are logged and
// acknowledged.
func (w *Worker) Handle(body []byte) error {
	var job queue.BatchJob
	if err := json.Unmarshal(body, &job); err != nil {
		w.Log.Error().Err(err).Msg("invalid job")
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), w.Timeout)
	defer cancel()

	log := w.Log.WithCampaign(job.CampaignID)
	result, err := w.Dispatcher.DispatchNextBatch(ctx, job.CampaignID)
	if err != nil {
		if result != nil {
			// partial batch; progress is saved and the next trigger carries on
			log.Warn().Err(err).Int("scheduled", result.Scheduled).Msg("batch interrupted")
			return nil
		}
		if IsPermanent(err) {
			log.Warn().Err(err).Msg("batch not dispatched")
			return nil
		}
		return err
	}

	log.Info().
		Int("scheduled", result.Scheduled).
		Int("failed", len(result.Failures)).
		Int("remaining", result.Remaining).
		Msg(result.Message)
	return nil
}
