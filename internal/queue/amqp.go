package queue

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/streadway/amqp"

	"github.com/unclebandit/coldmail-backend/internal/logger"
)

const retryHeader = "x-retry-count"

// AMQPQueue publishes and consumes jobs on RabbitMQ durable queues named
// after the topic. Deliveries are handled one at a time and acknowledged
// manually; failures are republished with an incremented retry count.
type AMQPQueue struct {
	conn       *amqp.Connection
	log        *logger.Logger
	maxRetries int

	mu sync.Mutex
	ch *amqp.Channel
}

// DialAMQP connects to RabbitMQ
func DialAMQP(url string, log *logger.Logger) (*AMQPQueue, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open a channel: %w", err)
	}

	return &AMQPQueue{
		conn:       conn,
		ch:         ch,
		log:        log.WithComponent("queue"),
		maxRetries: DefaultMaxRetries,
	}, nil
}

func (q *AMQPQueue) declare(topic string) error {
	_, err := q.ch.QueueDeclare(
		topic, // name
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		return fmt.Errorf("failed to declare queue %s: %w", topic, err)
	}
	return nil
}

// Publish sends payload as a persistent JSON message
func (q *AMQPQueue) Publish(topic string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode job for %s: %w", topic, err)
	}
	return q.publish(topic, body, 0)
}

func (q *AMQPQueue) publish(topic string, body []byte, retries int) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if err := q.declare(topic); err != nil {
		return err
	}
	return q.ch.Publish("", topic, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Headers:      amqp.Table{retryHeader: int32(retries)},
		Body:         body,
	})
}

// Subscribe starts consuming topic in a background goroutine
func (q *AMQPQueue) Subscribe(topic string, handler Handler) error {
	q.mu.Lock()
	if err := q.declare(topic); err != nil {
		q.mu.Unlock()
		return err
	}
	if err := q.ch.Qos(1, 0, false); err != nil {
		q.mu.Unlock()
		return fmt.Errorf("failed to set prefetch: %w", err)
	}
	msgs, err := q.ch.Consume(
		topic,
		"",
		false, // autoAck = false for reliability
		false,
		false,
		false,
		nil,
	)
	q.mu.Unlock()
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	go func() {
		for d := range msgs {
			q.handle(topic, d, handler)
		}
		q.log.Info().Str("topic", topic).Msg("consumer stopped")
	}()
	return nil
}

func (q *AMQPQueue) handle(topic string, d amqp.Delivery, handler Handler) {
	err := handler(d.Body)
	if err == nil {
		d.Ack(false)
		return
	}

	retries := retryCount(d.Headers) + 1
	q.log.Warn().Err(err).Str("topic", topic).Int("attempt", retries).Msg("job failed")

	if retries > q.maxRetries {
		q.log.Error().Str("topic", topic).RawJSON("job", d.Body).Msg("job permanently failed")
		d.Ack(false)
		return
	}

	if perr := q.publish(topic, d.Body, retries); perr != nil {
		q.log.Error().Err(perr).Str("topic", topic).Msg("failed to requeue job")
		d.Nack(false, true)
		return
	}
	d.Ack(false)
}

// retryCount reads the retry header, whatever integer type the broker
// handed it back as.
func retryCount(h amqp.Table) int {
	switch v := h[retryHeader].(type) {
	case int32:
		return int(v)
	case int64:
		return int(v)
	case int:
		return v
	case int16:
		return int(v)
	case int8:
		return int(v)
	}
	return 0
}

// Close closes the channel and the connection
func (q *AMQPQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if err := q.ch.Close(); err != nil {
		q.conn.Close()
		return err
	}
	return q.conn.Close()
}

var _ Queue = (*AMQPQueue)(nil)
