// Package event publishes account lifecycle events to Kafka. Publishing is
// best-effort: the account flows never fail because the broker is down.
package event

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/avelkov/account-service/internal/domain"
)

const (
	TypeUserRegistered = "user.registered"
	TypeUserLoggedIn   = "user.logged_in"
)

// Producer writes account events to a single topic, keyed by user id so
// events for one user stay ordered.
type Producer struct {
	writer *kafka.Writer
	logger *slog.Logger
}

// NewProducer creates a producer for the given brokers and topic.
func NewProducer(brokers []string, topic string, logger *slog.Logger) *Producer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
	}
	return &Producer{writer: writer, logger: logger}
}

type envelope struct {
	EventType  string    `json:"event_type"`
	OccurredAt time.Time `json:"occurred_at"`
	Payload    any       `json:"payload"`
}

type userPayload struct {
	UserID   string `json:"user_id"`
	Email    string `json:"email"`
	UserName string `json:"user_name"`
}

// PublishUserRegistered emits a user.registered event.
func (p *Producer) PublishUserRegistered(ctx context.Context, user *domain.User) error {
	return p.publish(ctx, TypeUserRegistered, user)
}

// PublishUserLoggedIn emits a user.logged_in event.
func (p *Producer) PublishUserLoggedIn(ctx context.Context, user *domain.User) error {
	return p.publish(ctx, TypeUserLoggedIn, user)
}

func (p *Producer) publish(ctx context.Context, eventType string, user *domain.User) error {
	msg := envelope{
		EventType:  eventType,
		OccurredAt: time.Now().UTC(),
		Payload: userPayload{
			UserID:   user.ID,
			Email:    user.Email,
			UserName: user.UserName,
		},
	}

	value, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(user.ID),
		Value: value,
	})
	if err != nil {
		p.logger.Warn("failed to publish event",
			slog.String("event_type", eventType),
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("write event: %w", err)
	}
	return nil
}

// Close flushes and closes the underlying writer.
func (p *Producer) Close() error {
	return p.writer.Close()
}
