package service_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/unclebandit/coldmail-backend/internal/errors"
	"github.com/unclebandit/coldmail-backend/internal/logger"
	"github.com/unclebandit/coldmail-backend/internal/queue"
	"github.com/unclebandit/coldmail-backend/internal/service"
)

// MockDispatcher returns a canned result or error
type MockDispatcher struct {
	calls  []string
	result *service.CampaignResult
	err    error
}

func (m *MockDispatcher) DispatchNextBatch(ctx context.Context, campaignID string) (*service.CampaignResult, error) {
	m.calls = append(m.calls, campaignID)
	return m.result, m.err
}

func jobBody(t *testing.T, id string) []byte {
	t.Helper()
	b, err := json.Marshal(queue.BatchJob{CampaignID: id})
	require.NoError(t, err)
	return b
}

func TestWorkerHandle(t *testing.T) {
	d := &MockDispatcher{result: &service.CampaignResult{Scheduled: 3, Message: "ok"}}
	w := service.NewWorker(d, nil, "", logger.Nop())

	require.NoError(t, w.Handle(jobBody(t, "c1")))
	assert.Equal(t, []string{"c1"}, d.calls)
	assert.Equal(t, queue.DefaultTopic, w.Topic)
}

func TestWorkerDropsPermanentFailures(t *testing.T) {
	for _, err := range []error{
		appErrors.ErrCampaignCompleted,
		appErrors.ErrCampaignNotDispatchable,
		appErrors.NewCampaignNotFound("c1"),
		appErrors.NewAuthRequired("gmail", "scheduling"),
	} {
		w := service.NewWorker(&MockDispatcher{err: err}, nil, "", logger.Nop())
		assert.NoError(t, w.Handle(jobBody(t, "c1")), err.Error())
	}

	w := service.NewWorker(&MockDispatcher{}, nil, "", logger.Nop())
	assert.NoError(t, w.Handle([]byte("not json")))
}

func TestWorkerRetriesTransientFailures(t *testing.T) {
	w := service.NewWorker(&MockDispatcher{err: errors.New("store unavailable")}, nil, "", logger.Nop())
	assert.Error(t, w.Handle(jobBody(t, "c1")))
}

func TestWorkerThroughInMemoryQueue(t *testing.T) {
	f := newFixture(t)
	ids := f.addContacts(t, 4)

	res, err := f.scheduler.ScheduleCampaign(context.Background(), scheduleRequest(ids, 2))
	require.NoError(t, err)

	q := queue.NewInMemoryQueue(logger.Nop())
	w := service.NewWorker(f.scheduler, q, "", logger.Nop())
	require.NoError(t, w.Start())

	require.NoError(t, q.Publish(queue.DefaultTopic, queue.BatchJob{CampaignID: res.Campaign.ID}))
	q.Wait()

	entries, err := f.logs.ListByCampaign(context.Background(), res.Campaign.ID)
	require.NoError(t, err)
	assert.Len(t, entries, 4)
}
