package policy

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/account-policy/internal/model"
	apperrors "github.com/jwalitptl/account-policy/pkg/errors"
	"github.com/jwalitptl/account-policy/pkg/logger"
)

// Policy type names recorded on each evaluation.
const (
	PolicyTypeLockout  = "Lockout"
	PolicyTypeAdmin    = "Admin"
	PolicyTypeMFA      = "MFA"
	PolicyTypePassword = "Password"

	ReasonPasswordValid   = "Password meets policy requirements"
	ReasonPasswordInvalid = "Password does not meet policy requirements"
)

// step is one named stage of an evaluation. A nil evaluation means the step
// does not apply to the request and is skipped.
type step struct {
	name string
	eval func(ctx context.Context, req *model.ActionRequest) (*model.PolicyEvaluation, error)
}

// Manager sequences the policies into one decision per action.
type Manager struct {
	password *PasswordPolicy
	lockout  *LockoutPolicy
	mfa      *MFAPolicy
	admin    *AdminPolicy
	steps    []step
	now      func() time.Time
	logger   *logger.Logger
}

func NewManager(password *PasswordPolicy, lockout *LockoutPolicy, mfa *MFAPolicy, admin *AdminPolicy, opts ...Option) *Manager {
	o := newOptions(opts)
	m := &Manager{
		password: password,
		lockout:  lockout,
		mfa:      mfa,
		admin:    admin,
		now:      o.now,
		logger:   o.logger,
	}
	m.steps = []step{
		{name: PolicyTypeLockout, eval: m.evaluateLockout},
		{name: PolicyTypeAdmin, eval: m.evaluateAdmin},
		{name: PolicyTypeMFA, eval: m.evaluateMFA},
		{name: PolicyTypePassword, eval: m.evaluatePassword},
	}
	return m
}

// Steps returns the evaluation order.
func (m *Manager) Steps() []string {
	names := make([]string, len(m.steps))
	for i, s := range m.steps {
		names[i] = s.name
	}
	return names
}

// EvaluateUserAction runs every applicable step in order. Each evaluated
// step is recorded; the first failure sets PrimaryReason.
func (m *Manager) EvaluateUserAction(ctx context.Context, req *model.ActionRequest) (*model.PolicyEvaluationResult, error) {
	if req == nil {
		return nil, apperrors.NewBadRequest("action request is required", nil)
	}

	result := &model.PolicyEvaluationResult{
		UserID:      req.UserID,
		Action:      req.Action,
		IsAllowed:   true,
		Evaluations: make([]model.PolicyEvaluation, 0, len(m.steps)),
		EvaluatedAt: m.now(),
	}

	for _, s := range m.steps {
		eval, err := s.eval(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("%s policy: %w", s.name, err)
		}
		if eval == nil {
			continue
		}

		result.Evaluations = append(result.Evaluations, *eval)
		if !eval.IsAllowed {
			result.IsAllowed = false
			if result.PrimaryReason == "" {
				result.PrimaryReason = eval.Reason
			}
		}
	}

	m.logger.Debug("policy evaluated",
		"user_id", req.UserID.String(),
		"action", req.Action,
		"allowed", result.IsAllowed,
		"steps", len(result.Evaluations),
	)
	return result, nil
}

func (m *Manager) evaluateLockout(ctx context.Context, req *model.ActionRequest) (*model.PolicyEvaluation, error) {
	ok, err := m.lockout.CanAccess(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	eval := &model.PolicyEvaluation{PolicyType: PolicyTypeLockout, IsAllowed: ok, Reason: ReasonAccountNotLocked}
	if !ok {
		eval.Reason = ReasonAccountLocked
	}
	return eval, nil
}

func (m *Manager) evaluateAdmin(ctx context.Context, req *model.ActionRequest) (*model.PolicyEvaluation, error) {
	if !req.RequiresAdmin {
		return nil, nil
	}
	return m.admin.Evaluate(ctx, req.UserID, req.RequiredAdminOperation)
}

func (m *Manager) evaluateMFA(ctx context.Context, req *model.ActionRequest) (*model.PolicyEvaluation, error) {
	requirement, err := m.mfa.RequirementFor(ctx, req.UserID, req.Action)
	if err != nil {
		return nil, err
	}
	if requirement <= model.MFARequirementOptional {
		return nil, nil
	}
	return m.mfa.Evaluate(ctx, req.UserID, requirement)
}

func (m *Manager) evaluatePassword(ctx context.Context, req *model.ActionRequest) (*model.PolicyEvaluation, error) {
	if !IsPasswordAction(req.Action) {
		return nil, nil
	}

	validation, err := m.password.Validate(ctx, req.UserID, req.NewPassword, req.CurrentPassword)
	if err != nil {
		return nil, err
	}
	eval := &model.PolicyEvaluation{
		PolicyType: PolicyTypePassword,
		IsAllowed:  validation.IsValid,
		Reason:     ReasonPasswordValid,
		Details:    validation.Errors,
	}
	if !validation.IsValid {
		eval.Reason = ReasonPasswordInvalid
	}
	return eval, nil
}

func (m *Manager) ValidatePassword(ctx context.Context, userID uuid.UUID, newPassword, currentPassword string) (*model.PasswordValidationResult, error) {
	return m.password.Validate(ctx, userID, newPassword, currentPassword)
}

func (m *Manager) EvaluateLockout(ctx context.Context, userID uuid.UUID, ipAddress, userAgent string) (*model.LockoutDecision, error) {
	return m.lockout.EvaluateLockout(ctx, userID, ipAddress, userAgent)
}

func (m *Manager) UnlockAccount(ctx context.Context, userID, adminID uuid.UUID, reason string) (*model.UnlockResult, error) {
	return m.lockout.UnlockAccount(ctx, userID, adminID, reason)
}

func (m *Manager) PasswordExpiration(lastChangeAt *time.Time) model.PasswordExpirationInfo {
	return m.password.ExpirationInfo(lastChangeAt)
}

func (m *Manager) PasswordExpirationFor(ctx context.Context, userID uuid.UUID) (model.PasswordExpirationInfo, error) {
	return m.password.ExpirationFor(ctx, userID)
}

// AuthorizeAdmin evaluates the admin step on its own, for callers that gate
// an operation without a full action request.
func (m *Manager) AuthorizeAdmin(ctx context.Context, userID uuid.UUID, operation *model.AdminOperation) (*model.PolicyEvaluation, error) {
	return m.admin.Evaluate(ctx, userID, operation)
}

func (m *Manager) IsFailureHistoryStale(info *model.LockoutInfo) bool {
	return m.lockout.IsFailureHistoryStale(info)
}
