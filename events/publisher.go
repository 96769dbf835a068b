package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

var ErrNotAcked = errors.New("broker did not acknowledge the message")

type Publisher interface {
	Publish(ctx context.Context, key string, msg Envelope) error
	Close() error
}

type rmqClient struct {
	conn     *amqp.Connection
	exchange string
	log      *logrus.Entry
}

// NewRMQ dials url and declares a durable topic exchange.
func NewRMQ(url, exchange string, logger *logrus.Entry) (Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial amqp: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	defer ch.Close()

	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", exchange, err)
	}

	return &rmqClient{conn: conn, exchange: exchange, log: logger}, nil
}

// Publish sends msg on a confirm-mode channel and waits for the ack.
func (r *rmqClient) Publish(ctx context.Context, key string, msg Envelope) error {
	ch, err := r.conn.Channel()
	if err != nil {
		return err
	}
	defer ch.Close()

	if err := ch.Confirm(false); err != nil {
		return err
	}

	publishing, err := newPublishing(msg, time.Now())
	if err != nil {
		return err
	}

	confirm, err := ch.PublishWithDeferredConfirmWithContext(ctx, r.exchange, key, false, false, publishing)
	if err != nil {
		return err
	}
	acked, err := confirm.WaitContext(ctx)
	if err != nil {
		return err
	}
	if !acked {
		return fmt.Errorf("%w: %s", ErrNotAcked, key)
	}

	r.log.WithFields(logrus.Fields{"key": key, "exchange": r.exchange}).Info("published")
	return nil
}

func (r *rmqClient) Close() error {
	return r.conn.Close()
}

func newPublishing(msg Envelope, now time.Time) (amqp.Publishing, error) {
	body, err := json.Marshal(msg)
	if err != nil {
		return amqp.Publishing{}, err
	}

	msgID := msg.Meta.ID
	if msgID == "" {
		msgID = uuid.NewString()
	}
	cid := msgID
	if msg.Meta.CorrelationID != nil {
		cid = *msg.Meta.CorrelationID
	}

	return amqp.Publishing{
		ContentType:   "application/json",
		DeliveryMode:  amqp.Persistent,
		MessageId:     msgID,
		CorrelationId: cid,
		Type:          msg.Meta.Type,
		Timestamp:     now,
		Body:          body,
	}, nil
}

// FallbackPublisher drops events. Used when no broker is configured.
type FallbackPublisher struct {
	log *logrus.Entry
}

func NewFallback(logger *logrus.Entry) Publisher {
	return &FallbackPublisher{log: logger}
}

func (p *FallbackPublisher) Publish(_ context.Context, key string, _ Envelope) error {
	p.log.WithField("key", key).Debug("FallbackPublisher: skipped publish")
	return nil
}

func (p *FallbackPublisher) Close() error { return nil }

// Recorder keeps published envelopes in memory.
type Recorder struct {
	mu   sync.Mutex
	sent []Recorded
}

type Recorded struct {
	Key      string
	Envelope Envelope
}

func (r *Recorder) Publish(_ context.Context, key string, msg Envelope) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, Recorded{Key: key, Envelope: msg})
	return nil
}

func (r *Recorder) Close() error { return nil }

// Sent returns a copy of what has been published so far.
func (r *Recorder) Sent() []Recorded {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Recorded(nil), r.sent...)
}

// Emit wraps data and publishes it under its event type. Failures are
// logged and returned; callers treat events as best effort.
func Emit(ctx context.Context, p Publisher, eventType, correlationID string, data any) error {
	if err := p.Publish(ctx, eventType, NewEnvelope(eventType, correlationID, data)); err != nil {
		logrus.WithFields(logrus.Fields{
			"event_type": eventType,
			"error":      err.Error(),
		}).Warn("Failed to publish event")
		return err
	}
	return nil
}
