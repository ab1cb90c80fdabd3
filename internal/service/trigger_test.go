package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unclebandit/coldmail-backend/internal/logger"
	"github.com/unclebandit/coldmail-backend/internal/queue"
	"github.com/unclebandit/coldmail-backend/internal/service"
)

func TestBatchTriggerEnqueuesDueCampaigns(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	ids := f.addContacts(t, 4)

	res, err := f.scheduler.ScheduleCampaign(ctx, scheduleRequest(ids, 2))
	require.NoError(t, err)

	q := &MockQueue{}
	trigger := &service.BatchTrigger{
		Due:   f.scheduler,
		Queue: q,
		Now:   func() time.Time { return time.Date(2026, 3, 3, 0, 5, 0, 0, time.UTC) },
		Log:   logger.Nop(),
	}

	n, err := trigger.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	require.Len(t, q.published, 1)
	job, ok := q.published[0].(queue.BatchJob)
	require.True(t, ok)
	assert.Equal(t, res.Campaign.ID, job.CampaignID)

	// nothing is due the day the first batch went out
	trigger.Now = func() time.Time { return fixedNow }
	n, err = trigger.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	_, err = trigger.Start("not a cron spec", time.UTC)
	assert.Error(t, err)
}
