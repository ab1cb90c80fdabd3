package service

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/unclebandit/coldmail-backend/internal/logger"
	"github.com/unclebandit/coldmail-backend/internal/model"
	"github.com/unclebandit/coldmail-backend/internal/queue"
)

// DueLister finds campaigns whose next batch should go out
type DueLister interface {
	DueCampaigns(ctx context.Context, now time.Time) ([]*model.Campaign, error)
}

// BatchTrigger enqueues a batch job for every due campaign on a cron schedule
type BatchTrigger struct {
	Due   DueLister
	Queue queue.Queue
	Topic string
	Now   func() time.Time
	Log   *logger.Logger
}

// Run enqueues the due campaigns once and returns how many were enqueued
func (t *BatchTrigger) Run(ctx context.Context) (int, error) {
	now := time.Now()
	if t.Now != nil {
		now = t.Now()
	}
	topic := t.Topic
	if topic == "" {
		topic = queue.DefaultTopic
	}

	due, err := t.Due.DueCampaigns(ctx, now)
	if err != nil {
		return 0, err
	}

	log := t.Log.WithComponent("trigger")
	enqueued := 0
	for _, c := range due {
		if err := t.Queue.Publish(topic, queue.BatchJob{CampaignID: c.ID, EnqueuedAt: now}); err != nil {
			log.Error().Err(err).Str("campaign_id", c.ID).Msg("failed to enqueue batch")
			continue
		}
		enqueued++
	}
	log.Info().Int("due", len(due)).Int("enqueued", enqueued).Msg("due batches enqueued")
	return enqueued, nil
}

// Start schedules Run on spec, a standard five-field cron expression
func (t *BatchTrigger) Start(spec string, loc *time.Location) (*cron.Cron, error) {
	if loc == nil {
		loc = time.UTC
	}
	c := cron.New(cron.WithLocation(loc))
	_, err := c.AddFunc(spec, func() {
		if _, err := t.Run(context.Background()); err != nil {
			t.Log.WithComponent("trigger").Error().Err(err).Msg("due batch scan failed")
		}
	})
	if err != nil {
		return nil, fmt.Errorf("invalid cron spec %q: %w", spec, err)
	}
	c.Start()
	return c, nil
}
