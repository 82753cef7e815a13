package messaging

import (
	"context"
	"encoding/json"
	"time"
)

// Broker defines the interface for message brokers
type Broker interface {
	Publish(ctx context.Context, channel string, message interface{}) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
	Close() error
}

// Publisher defines the interface for publishing messages
type Publisher interface {
	Publish(ctx context.Context, eventType string, payload interface{}) error
}

// Message is the envelope every published event travels in
type Message struct {
	Type        string          `json:"type"`
	Payload     json.RawMessage `json:"payload"`
	PublishedAt time.Time       `json:"published_at"`
}

type MessageBroker interface {
	Publish(ctx context.Context, topic string, payload []byte) error
	Subscribe(ctx context.Context, topic string, handler func([]byte) error) error
	Close() error
}

// Event types published on the audit channel
const (
	EventPolicyEvaluated  = "policy.evaluated"
	EventLockoutEvaluated = "policy.lockout_evaluated"
	EventAccountUnlocked  = "policy.unlock_requested"
)

// TopicPublisher wraps each payload in a Message and publishes it on a
// fixed channel.
type TopicPublisher struct {
	broker  Broker
	channel string
	now     func() time.Time
}

func NewTopicPublisher(broker Broker, channel string) *TopicPublisher {
	return &TopicPublisher{broker: broker, channel: channel, now: time.Now}
}

func (p *TopicPublisher) Publish(ctx context.Context, eventType string, payload interface{}) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return p.broker.Publish(ctx, p.channel, Message{
		Type:        eventType,
		Payload:     raw,
		PublishedAt: p.now().UTC(),
	})
}
