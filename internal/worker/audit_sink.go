package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jwalitptl/account-policy/internal/model"
	"github.com/jwalitptl/account-policy/internal/repository"
	"github.com/jwalitptl/account-policy/pkg/logger"
	"github.com/jwalitptl/account-policy/pkg/messaging"
	"github.com/jwalitptl/account-policy/pkg/metrics"
)

type AuditSinkConfig struct {
	Channel       string
	RetryAttempts int
	RetryDelay    time.Duration
}

// AuditSink persists policy.evaluated events from the audit channel.
// Other event types on the channel are acknowledged and dropped.
type AuditSink struct {
	repo    repository.AuditRepository
	broker  messaging.MessageBroker
	config  AuditSinkConfig
	logger  *logger.Logger
	metrics *metrics.Metrics
}

func NewAuditSink(
	repo repository.AuditRepository,
	broker messaging.MessageBroker,
	config AuditSinkConfig,
	log *logger.Logger,
	m *metrics.Metrics,
) *AuditSink {
	if config.RetryAttempts <= 0 {
		config.RetryAttempts = 3
	}
	if config.RetryDelay <= 0 {
		config.RetryDelay = 500 * time.Millisecond
	}
	if log == nil {
		log = logger.Nop()
	}
	return &AuditSink{
		repo:    repo,
		broker:  broker,
		config:  config,
		logger:  log,
		metrics: m,
	}
}

// Start subscribes and returns once the subscription is live. Messages are
// handled in the background until ctx is cancelled.
func (s *AuditSink) Start(ctx context.Context) error {
	if err := s.broker.Subscribe(ctx, s.config.Channel, func(raw []byte) error {
		return s.handle(ctx, raw)
	}); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", s.config.Channel, err)
	}
	s.logger.Info("audit sink started", "channel", s.config.Channel)
	return nil
}

func (s *AuditSink) handle(ctx context.Context, raw []byte) error {
	var msg messaging.Message
	if err := json.Unmarshal(raw, &msg); err != nil {
		s.failed()
		return fmt.Errorf("failed to decode message: %w", err)
	}

	if msg.Type != messaging.EventPolicyEvaluated {
		s.logger.Debug("skipping event", "event_type", msg.Type)
		return nil
	}

	var entry model.PolicyAuditLog
	if err := json.Unmarshal(msg.Payload, &entry); err != nil {
		s.failed()
		return fmt.Errorf("failed to decode audit payload: %w", err)
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = msg.PublishedAt
	}

	err := retry(ctx, s.config.RetryAttempts, s.config.RetryDelay, func() error {
		return s.repo.Create(ctx, &entry)
	})
	if err != nil {
		s.failed()
		return fmt.Errorf("failed to store audit entry %s: %w", entry.ID, err)
	}

	if s.metrics != nil {
		s.metrics.AuditEventsStored.Inc()
	}
	return nil
}

func (s *AuditSink) failed() {
	if s.metrics != nil {
		s.metrics.AuditEventsFailed.Inc()
	}
}

func retry(ctx context.Context, attempts int, delay time.Duration, fn func() error) error {
	var err error
	for i := 0; i < attempts; i++ {
		if err = fn(); err == nil {
			return nil
		}
		if i < attempts-1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}
	return err
}
