package queue

import (
	"encoding/json"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/streadway/amqp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unclebandit/coldmail-backend/internal/logger"
)

func newTestQueue() *InMemoryQueue {
	q := NewInMemoryQueue(logger.Nop())
	q.backoff = time.Millisecond
	return q
}

func TestPublishWithoutSubscribers(t *testing.T) {
	q := newTestQueue()
	err := q.Publish(DefaultTopic, BatchJob{CampaignID: "c1"})
	assert.Error(t, err)
}

func TestPublishDeliversJSON(t *testing.T) {
	q := newTestQueue()

	got := make(chan BatchJob, 1)
	require.NoError(t, q.Subscribe(DefaultTopic, func(body []byte) error {
		var job BatchJob
		if err := json.Unmarshal(body, &job); err != nil {
			return err
		}
		got <- job
		return nil
	}))

	require.NoError(t, q.Publish(DefaultTopic, BatchJob{CampaignID: "c1"}))
	q.Wait()

	select {
	case job := <-got:
		assert.Equal(t, "c1", job.CampaignID)
	default:
		t.Fatal("job was not delivered")
	}
}

func TestProcessJobRetriesThenSucceeds(t *testing.T) {
	q := newTestQueue()

	var calls int32
	require.NoError(t, q.Subscribe("t", func(body []byte) error {
		if atomic.AddInt32(&calls, 1) < 3 {
			return errors.New("transient")
		}
		return nil
	}))

	require.NoError(t, q.Publish("t", "x"))
	q.Wait()
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestProcessJobGivesUp(t *testing.T) {
	q := newTestQueue()

	var calls int32
	require.NoError(t, q.Subscribe("t", func(body []byte) error {
		atomic.AddInt32(&calls, 1)
		return errors.New("always")
	}))

	require.NoError(t, q.Publish("t", "x"))
	q.Wait()
	assert.Equal(t, int32(DefaultMaxRetries+1), atomic.LoadInt32(&calls))
}

func TestRetryCountHeader(t *testing.T) {
	assert.Equal(t, 0, retryCount(nil))
	assert.Equal(t, 2, retryCount(amqp.Table{retryHeader: int32(2)}))
	assert.Equal(t, 3, retryCount(amqp.Table{retryHeader: int64(3)}))
	assert.Equal(t, 0, retryCount(amqp.Table{retryHeader: "oops"}))
}
