package policy_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/account-policy/internal/model"
	"github.com/jwalitptl/account-policy/internal/service/policy"
	apperrors "github.com/jwalitptl/account-policy/pkg/errors"
	"github.com/jwalitptl/account-policy/pkg/logger"
	"github.com/jwalitptl/account-policy/pkg/messaging"
	"github.com/jwalitptl/account-policy/pkg/metrics"
)

type MockEngine struct {
	mock.Mock
}

func (m *MockEngine) EvaluateUserAction(ctx context.Context, req *model.ActionRequest) (*model.PolicyEvaluationResult, error) {
	args := m.Called(ctx, req)
	result, _ := args.Get(0).(*model.PolicyEvaluationResult)
	return result, args.Error(1)
}

func (m *MockEngine) ValidatePassword(ctx context.Context, userID uuid.UUID, newPassword, currentPassword string) (*model.PasswordValidationResult, error) {
	args := m.Called(ctx, userID, newPassword, currentPassword)
	result, _ := args.Get(0).(*model.PasswordValidationResult)
	return result, args.Error(1)
}

func (m *MockEngine) EvaluateLockout(ctx context.Context, userID uuid.UUID, ipAddress, userAgent string) (*model.LockoutDecision, error) {
	args := m.Called(ctx, userID, ipAddress, userAgent)
	result, _ := args.Get(0).(*model.LockoutDecision)
	return result, args.Error(1)
}

func (m *MockEngine) UnlockAccount(ctx context.Context, userID, adminID uuid.UUID, reason string) (*model.UnlockResult, error) {
	args := m.Called(ctx, userID, adminID, reason)
	result, _ := args.Get(0).(*model.UnlockResult)
	return result, args.Error(1)
}

func (m *MockEngine) PasswordExpirationFor(ctx context.Context, userID uuid.UUID) (model.PasswordExpirationInfo, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(model.PasswordExpirationInfo), args.Error(1)
}

func (m *MockEngine) AuthorizeAdmin(ctx context.Context, userID uuid.UUID, operation *model.AdminOperation) (*model.PolicyEvaluation, error) {
	args := m.Called(ctx, userID, operation)
	result, _ := args.Get(0).(*model.PolicyEvaluation)
	return result, args.Error(1)
}

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, eventType string, payload interface{}) error {
	return m.Called(ctx, eventType, payload).Error(0)
}

type MockAuditRepository struct {
	mock.Mock
}

func (m *MockAuditRepository) Create(ctx context.Context, log *model.PolicyAuditLog) error {
	return m.Called(ctx, log).Error(0)
}

func (m *MockAuditRepository) List(ctx context.Context, filters *model.AuditFilters) ([]*model.PolicyAuditLog, error) {
	args := m.Called(ctx, filters)
	logs, _ := args.Get(0).([]*model.PolicyAuditLog)
	return logs, args.Error(1)
}

func (m *MockAuditRepository) Cleanup(ctx context.Context, before time.Time) (int64, error) {
	args := m.Called(ctx, before)
	return args.Get(0).(int64), args.Error(1)
}

type fixture struct {
	engine    *MockEngine
	publisher *MockPublisher
	audits    *MockAuditRepository
	registry  *prometheus.Registry
	svc       *policy.Service
}

func newFixture() *fixture {
	f := &fixture{
		engine:    &MockEngine{},
		publisher: &MockPublisher{},
		audits:    &MockAuditRepository{},
		registry:  prometheus.NewRegistry(),
	}
	m := metrics.NewMetrics(f.registry, "account_policy", "engine")
	f.svc = policy.NewService(f.engine, f.audits, f.publisher, m, logger.Nop())
	return f
}

func (f *fixture) counter(t *testing.T, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := f.registry.Gather()
	require.NoError(t, err)
	for _, family := range families {
		if family.GetName() != name {
			continue
		}
		for _, metric := range family.GetMetric() {
			if matchLabels(metric, labels) {
				return metric.GetCounter().GetValue()
			}
		}
	}
	return 0
}

func matchLabels(metric *dto.Metric, labels map[string]string) bool {
	matched := 0
	for _, pair := range metric.GetLabel() {
		if want, ok := labels[pair.GetName()]; ok {
			if want != pair.GetValue() {
				return false
			}
			matched++
		}
	}
	return matched == len(labels)
}

func deniedResult(userID uuid.UUID) *model.PolicyEvaluationResult {
	return &model.PolicyEvaluationResult{
		UserID:        userID,
		Action:        "DeleteAccount",
		IsAllowed:     false,
		PrimaryReason: "Account is currently locked",
		Evaluations: []model.PolicyEvaluation{
			{PolicyType: "Lockout", IsAllowed: false, Reason: "Account is currently locked"},
			{PolicyType: "MFA", IsAllowed: true, Reason: "MFA requirements satisfied"},
		},
		EvaluatedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestService_Evaluate_PublishesAuditAndCountsDenials(t *testing.T) {
	f := newFixture()
	userID := uuid.New()
	req := &model.ActionRequest{UserID: userID, Action: "DeleteAccount", IPAddress: "10.0.0.1"}
	ctx := context.WithValue(context.Background(), logger.RequestIDKey, "req-1")

	f.engine.On("EvaluateUserAction", ctx, req).Return(deniedResult(userID), nil)
	f.publisher.On("Publish", ctx, messaging.EventPolicyEvaluated, mock.MatchedBy(func(entry *model.PolicyAuditLog) bool {
		return entry.UserID == userID &&
			entry.DeniedBy == "Lockout" &&
			entry.RequestID == "req-1" &&
			entry.IPAddress == "10.0.0.1"
	})).Return(nil)

	result, err := f.svc.Evaluate(ctx, req)
	require.NoError(t, err)
	assert.False(t, result.IsAllowed)

	f.engine.AssertExpectations(t)
	f.publisher.AssertExpectations(t)
	assert.Equal(t, 1.0, f.counter(t, "account_policy_engine_decisions_total", map[string]string{"action": "DeleteAccount", "outcome": "denied"}))
	assert.Equal(t, 1.0, f.counter(t, "account_policy_engine_denials_total", map[string]string{"policy": "Lockout"}))
	assert.Equal(t, 0.0, f.counter(t, "account_policy_engine_denials_total", map[string]string{"policy": "MFA"}))
	assert.Equal(t, 1.0, f.counter(t, "account_policy_engine_audit_events_published_total", nil))
}

func TestService_Evaluate_PublishFailureDoesNotChangeDecision(t *testing.T) {
	f := newFixture()
	userID := uuid.New()
	req := &model.ActionRequest{UserID: userID, Action: "DeleteAccount"}
	ctx := context.Background()

	f.engine.On("EvaluateUserAction", ctx, req).Return(deniedResult(userID), nil)
	f.publisher.On("Publish", ctx, messaging.EventPolicyEvaluated, mock.Anything).Return(errors.New("broker down"))

	result, err := f.svc.Evaluate(ctx, req)
	require.NoError(t, err)
	assert.False(t, result.IsAllowed)
	assert.Equal(t, 1.0, f.counter(t, "account_policy_engine_audit_events_failed_total", nil))
}

func TestService_Evaluate_EngineError(t *testing.T) {
	f := newFixture()
	req := &model.ActionRequest{UserID: uuid.New(), Action: "Login"}
	ctx := context.Background()
	boom := errors.New("provider down")

	f.engine.On("EvaluateUserAction", ctx, req).Return(nil, boom)

	_, err := f.svc.Evaluate(ctx, req)
	assert.ErrorIs(t, err, boom)
	f.publisher.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything)
}

func TestService_Evaluate_WithoutPublisher(t *testing.T) {
	engine := &MockEngine{}
	svc := policy.NewService(engine, nil, nil, nil, nil)
	userID := uuid.New()
	req := &model.ActionRequest{UserID: userID, Action: "DeleteAccount"}

	engine.On("EvaluateUserAction", mock.Anything, req).Return(deniedResult(userID), nil)

	result, err := svc.Evaluate(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, result.IsAllowed)
}

func TestService_EvaluateLockout(t *testing.T) {
	f := newFixture()
	userID := uuid.New()
	ctx := context.Background()
	decision := &model.LockoutDecision{
		UserID:        userID,
		ShouldLockout: true,
		LockoutType:   model.LockoutTypeTemporary,
		Reason:        "Too many failed login attempts",
	}

	f.engine.On("EvaluateLockout", ctx, userID, "1.2.3.4", "curl").Return(decision, nil)
	f.publisher.On("Publish", ctx, messaging.EventLockoutEvaluated, decision).Return(nil)

	got, err := f.svc.EvaluateLockout(ctx, userID, "1.2.3.4", "curl")
	require.NoError(t, err)
	assert.Same(t, decision, got)
	f.publisher.AssertExpectations(t)
	assert.Equal(t, 1.0, f.counter(t, "account_policy_engine_lockout_decisions_total", map[string]string{"type": "Temporary"}))
}

func TestService_EvaluateLockout_NoLockoutIsNotPublished(t *testing.T) {
	f := newFixture()
	userID := uuid.New()
	ctx := context.Background()

	f.engine.On("EvaluateLockout", ctx, userID, "", "").Return(&model.LockoutDecision{UserID: userID}, nil)

	_, err := f.svc.EvaluateLockout(ctx, userID, "", "")
	require.NoError(t, err)
	f.publisher.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything)
}

func TestService_Unlock(t *testing.T) {
	unlockOp := mock.MatchedBy(func(op *model.AdminOperation) bool {
		return op != nil && *op == model.AdminOperationUnlockAccounts
	})

	t.Run("forbidden without unlock permission", func(t *testing.T) {
		f := newFixture()
		userID, actorID := uuid.New(), uuid.New()
		ctx := context.Background()

		f.engine.On("AuthorizeAdmin", ctx, actorID, unlockOp).Return(&model.PolicyEvaluation{
			PolicyType: "Admin",
			IsAllowed:  false,
			Reason:     "User lacks required admin privileges for this operation",
		}, nil)

		_, err := f.svc.Unlock(ctx, userID, actorID, "support ticket")
		require.Error(t, err)
		assert.True(t, apperrors.IsCode(err, apperrors.ErrForbidden))
		f.engine.AssertNotCalled(t, "UnlockAccount", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		assert.Equal(t, 1.0, f.counter(t, "account_policy_engine_unlock_requests_total", map[string]string{"outcome": "forbidden"}))
	})

	t.Run("authorized unlock is published", func(t *testing.T) {
		f := newFixture()
		userID, actorID := uuid.New(), uuid.New()
		ctx := context.Background()
		result := &model.UnlockResult{UserID: userID, Success: true, Message: "Account unlocked successfully", UnlockedBy: &actorID}

		f.engine.On("AuthorizeAdmin", ctx, actorID, unlockOp).Return(&model.PolicyEvaluation{PolicyType: "Admin", IsAllowed: true}, nil)
		f.engine.On("UnlockAccount", ctx, userID, actorID, "support ticket").Return(result, nil)
		f.publisher.On("Publish", ctx, messaging.EventAccountUnlocked, result).Return(nil)

		got, err := f.svc.Unlock(ctx, userID, actorID, "support ticket")
		require.NoError(t, err)
		assert.True(t, got.Success)
		f.publisher.AssertExpectations(t)
		assert.Equal(t, 1.0, f.counter(t, "account_policy_engine_unlock_requests_total", map[string]string{"outcome": "allowed"}))
	})

	t.Run("refused unlock is not published", func(t *testing.T) {
		f := newFixture()
		userID, actorID := uuid.New(), uuid.New()
		ctx := context.Background()

		f.engine.On("AuthorizeAdmin", ctx, actorID, unlockOp).Return(&model.PolicyEvaluation{PolicyType: "Admin", IsAllowed: true}, nil)
		f.engine.On("UnlockAccount", ctx, userID, actorID, "").Return(&model.UnlockResult{UserID: userID, Message: "Account is not locked"}, nil)

		got, err := f.svc.Unlock(ctx, userID, actorID, "")
		require.NoError(t, err)
		assert.False(t, got.Success)
		f.publisher.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything)
		assert.Equal(t, 1.0, f.counter(t, "account_policy_engine_unlock_requests_total", map[string]string{"outcome": "denied"}))
	})
}

func TestService_AuditTrail(t *testing.T) {
	viewOp := mock.MatchedBy(func(op *model.AdminOperation) bool {
		return op != nil && *op == model.AdminOperationViewAuditLogs
	})

	t.Run("lists for authorized actor", func(t *testing.T) {
		f := newFixture()
		actorID := uuid.New()
		ctx := context.Background()
		filters := &model.AuditFilters{Limit: 10}
		logs := []*model.PolicyAuditLog{{ID: uuid.New(), Action: "Login"}}

		f.engine.On("AuthorizeAdmin", ctx, actorID, viewOp).Return(&model.PolicyEvaluation{IsAllowed: true}, nil)
		f.audits.On("List", ctx, filters).Return(logs, nil)

		got, err := f.svc.AuditTrail(ctx, actorID, filters)
		require.NoError(t, err)
		assert.Equal(t, logs, got)
	})

	t.Run("forbidden", func(t *testing.T) {
		f := newFixture()
		actorID := uuid.New()
		ctx := context.Background()

		f.engine.On("AuthorizeAdmin", ctx, actorID, viewOp).Return(&model.PolicyEvaluation{IsAllowed: false, Reason: "User lacks required admin privileges for this operation"}, nil)

		_, err := f.svc.AuditTrail(ctx, actorID, &model.AuditFilters{})
		assert.True(t, apperrors.IsCode(err, apperrors.ErrForbidden))
		f.audits.AssertNotCalled(t, "List", mock.Anything, mock.Anything)
	})

	t.Run("disabled without repository", func(t *testing.T) {
		svc := policy.NewService(&MockEngine{}, nil, nil, nil, nil)
		_, err := svc.AuditTrail(context.Background(), uuid.New(), nil)
		assert.True(t, apperrors.IsCode(err, apperrors.ErrNotFound))
	})
}
