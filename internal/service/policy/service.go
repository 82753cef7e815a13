package policy

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/account-policy/internal/model"
	"github.com/jwalitptl/account-policy/internal/repository"
	"github.com/jwalitptl/account-policy/pkg/errors"
	"github.com/jwalitptl/account-policy/pkg/logger"
	"github.com/jwalitptl/account-policy/pkg/messaging"
	"github.com/jwalitptl/account-policy/pkg/metrics"
)

// Engine is the decision surface of policy.Manager the service depends on.
type Engine interface {
	EvaluateUserAction(ctx context.Context, req *model.ActionRequest) (*model.PolicyEvaluationResult, error)
	ValidatePassword(ctx context.Context, userID uuid.UUID, newPassword, currentPassword string) (*model.PasswordValidationResult, error)
	EvaluateLockout(ctx context.Context, userID uuid.UUID, ipAddress, userAgent string) (*model.LockoutDecision, error)
	UnlockAccount(ctx context.Context, userID, adminID uuid.UUID, reason string) (*model.UnlockResult, error)
	PasswordExpirationFor(ctx context.Context, userID uuid.UUID) (model.PasswordExpirationInfo, error)
	AuthorizeAdmin(ctx context.Context, userID uuid.UUID, operation *model.AdminOperation) (*model.PolicyEvaluation, error)
}

// Service adds auditing, metrics and logging around the policy engine.
// Audit publishing is best effort: a broker failure never changes a decision.
type Service struct {
	engine    Engine
	audits    repository.AuditRepository
	publisher messaging.Publisher
	metrics   *metrics.Metrics
	logger    *logger.Logger
}

// NewService wires the service. audits and publisher may be nil, which
// disables the audit trail and decision publishing respectively.
func NewService(engine Engine, audits repository.AuditRepository, publisher messaging.Publisher, m *metrics.Metrics, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		engine:    engine,
		audits:    audits,
		publisher: publisher,
		metrics:   m,
		logger:    log,
	}
}

func (s *Service) observe(operation string, start time.Time) {
	if s.metrics != nil {
		s.metrics.DecisionLatency.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	}
}

func requestID(ctx context.Context) string {
	id, _ := ctx.Value(logger.RequestIDKey).(string)
	return id
}

func (s *Service) Evaluate(ctx context.Context, req *model.ActionRequest) (*model.PolicyEvaluationResult, error) {
	defer s.observe("evaluate", time.Now())
	log := s.logger.WithRequestID(ctx)

	result, err := s.engine.EvaluateUserAction(ctx, req)
	if err != nil {
		log.Error(err, "policy evaluation failed", "action", actionOf(req))
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.Decisions.WithLabelValues(result.Action, metrics.Outcome(result.IsAllowed)).Inc()
		for _, e := range result.Evaluations {
			if !e.IsAllowed {
				s.metrics.Denials.WithLabelValues(e.PolicyType).Inc()
			}
		}
	}

	if !result.IsAllowed {
		log.Info("action denied",
			"user_id", result.UserID.String(),
			"action", result.Action,
			"reason", result.PrimaryReason,
		)
	}

	s.publishDecision(ctx, req, result)
	return result, nil
}

func actionOf(req *model.ActionRequest) string {
	if req == nil {
		return ""
	}
	return req.Action
}

func (s *Service) publishDecision(ctx context.Context, req *model.ActionRequest, result *model.PolicyEvaluationResult) {
	if s.publisher == nil {
		return
	}
	entry, err := model.NewPolicyAuditLog(req, result, requestID(ctx))
	if err != nil {
		s.auditFailed(ctx, err, messaging.EventPolicyEvaluated)
		return
	}
	s.publish(ctx, messaging.EventPolicyEvaluated, entry)
}

func (s *Service) publish(ctx context.Context, eventType string, payload interface{}) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, eventType, payload); err != nil {
		s.auditFailed(ctx, err, eventType)
		return
	}
	if s.metrics != nil {
		s.metrics.AuditEventsPublished.Inc()
	}
}

func (s *Service) auditFailed(ctx context.Context, err error, eventType string) {
	if s.metrics != nil {
		s.metrics.AuditEventsFailed.Inc()
	}
	s.logger.WithRequestID(ctx).Error(err, "failed to publish audit event", "event_type", eventType)
}

func (s *Service) ValidatePassword(ctx context.Context, userID uuid.UUID, newPassword, currentPassword string) (*model.PasswordValidationResult, error) {
	defer s.observe("validate_password", time.Now())

	result, err := s.engine.ValidatePassword(ctx, userID, newPassword, currentPassword)
	if err != nil {
		s.logger.WithRequestID(ctx).Error(err, "password validation failed", "user_id", userID.String())
		return nil, err
	}
	return result, nil
}

func (s *Service) EvaluateLockout(ctx context.Context, userID uuid.UUID, ipAddress, userAgent string) (*model.LockoutDecision, error) {
	defer s.observe("evaluate_lockout", time.Now())
	log := s.logger.WithRequestID(ctx)

	decision, err := s.engine.EvaluateLockout(ctx, userID, ipAddress, userAgent)
	if err != nil {
		log.Error(err, "lockout evaluation failed", "user_id", userID.String())
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.LockoutDecisions.WithLabelValues(decision.LockoutType.String()).Inc()
	}

	if decision.ShouldLockout {
		log.Warn("lockout required",
			"user_id", userID.String(),
			"type", decision.LockoutType.String(),
			"reason", decision.Reason,
		)
		s.publish(ctx, messaging.EventLockoutEvaluated, decision)
	}
	return decision, nil
}

// Unlock requires the actor to hold the UnlockAccounts admin operation
// before the lockout policy decides whether the account may be unlocked.
func (s *Service) Unlock(ctx context.Context, userID, actorID uuid.UUID, reason string) (*model.UnlockResult, error) {
	defer s.observe("unlock", time.Now())
	log := s.logger.WithRequestID(ctx)

	op := model.AdminOperationUnlockAccounts
	authz, err := s.engine.AuthorizeAdmin(ctx, actorID, &op)
	if err != nil {
		return nil, err
	}
	if !authz.IsAllowed {
		s.countUnlock("forbidden")
		log.Warn("unlock rejected", "user_id", userID.String(), "actor_id", actorID.String())
		return nil, errors.Forbidden(authz.Reason, nil)
	}

	result, err := s.engine.UnlockAccount(ctx, userID, actorID, reason)
	if err != nil {
		log.Error(err, "unlock failed", "user_id", userID.String())
		return nil, err
	}

	s.countUnlock(metrics.Outcome(result.Success))
	log.Info("unlock evaluated",
		"user_id", userID.String(),
		"actor_id", actorID.String(),
		"success", result.Success,
		"message", result.Message,
	)
	if result.Success {
		s.publish(ctx, messaging.EventAccountUnlocked, result)
	}
	return result, nil
}

func (s *Service) countUnlock(outcome string) {
	if s.metrics != nil {
		s.metrics.Unlocks.WithLabelValues(outcome).Inc()
	}
}

func (s *Service) PasswordExpiration(ctx context.Context, userID uuid.UUID) (model.PasswordExpirationInfo, error) {
	return s.engine.PasswordExpirationFor(ctx, userID)
}

// AuditTrail lists stored decisions. The actor needs ViewAuditLogs.
func (s *Service) AuditTrail(ctx context.Context, actorID uuid.UUID, filters *model.AuditFilters) ([]*model.PolicyAuditLog, error) {
	if s.audits == nil {
		return nil, errors.NewNotFound("audit trail", nil)
	}

	op := model.AdminOperationViewAuditLogs
	authz, err := s.engine.AuthorizeAdmin(ctx, actorID, &op)
	if err != nil {
		return nil, err
	}
	if !authz.IsAllowed {
		return nil, errors.Forbidden(authz.Reason, nil)
	}

	logs, err := s.audits.List(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit trail: %w", err)
	}
	return logs, nil
}
