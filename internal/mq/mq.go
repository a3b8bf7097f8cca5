package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/oficina-virtual/apiserver/config"
	"github.com/oficina-virtual/apiserver/types"
)

// Backend defines the broker-agnostic operations used by the app.
type Backend interface {
	Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error)
	Close() error
}

// MQ wraps a backend with a stable API.
type MQ struct {
	backend Backend
}

// New constructs an MQ wrapper for the provided backend.
func New(backend Backend) *MQ {
	return &MQ{backend: backend}
}

// Open connects to the backend selected in cfg. It returns nil, nil when
// publishing is disabled.
func Open(ctx context.Context, cfg config.MQConfig) (*MQ, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "", "none":
		return nil, nil
	case "rabbitmq":
		client, err := NewRabbitMQClient(cfg.RabbitMQ)
		if err != nil {
			return nil, err
		}
		return New(client), nil
	case "pubsub":
		client, err := NewPubSubClient(ctx, cfg.PubSub)
		if err != nil {
			return nil, err
		}
		return New(client), nil
	default:
		return nil, fmt.Errorf("unknown mq backend %q", cfg.Backend)
	}
}

// Publish sends a message to the named channel.
func (m *MQ) Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error) {
	return m.backend.Publish(ctx, channel, data, attrs)
}

// Close closes the underlying backend.
func (m *MQ) Close() error {
	return m.backend.Close()
}

// UserEvents publishes user directory changes as JSON messages.
type UserEvents struct {
	mq      *MQ
	channel string
}

func NewUserEvents(mq *MQ, channel string) *UserEvents {
	return &UserEvents{mq: mq, channel: channel}
}

func (u *UserEvents) PublishUserEvent(ctx context.Context, event types.UserEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	_, err = u.mq.Publish(ctx, u.channel, data, map[string]string{
		"event_type": string(event.Type),
		"user_id":    event.User.ID.String(),
	})
	return err
}
