package policy

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/account-policy/internal/model"
	"github.com/jwalitptl/account-policy/internal/repository"
)

const (
	ReasonAccountLocked          = "Account is currently locked"
	ReasonAccountNotLocked       = "Account is not locked"
	ReasonNotCurrentlyLocked     = "Account is not currently locked"
	ReasonInsufficientPrivileges = "Insufficient privileges to unlock permanently locked account"
	ReasonUnlocked               = "Account unlocked successfully"

	reasonExempt             = "Account is exempt from lockout"
	reasonTooManyAttempts    = "Too many failed login attempts"
	reasonPermanentLockout   = "Account permanently locked after repeated failed login attempts"
	reasonSuspiciousActivity = "Suspicious login activity detected"
	reasonNoLockout          = "No lockout required"
)

// LockoutPolicy turns lockout snapshots into decisions. It never writes
// state back; the account store applies the decision.
type LockoutPolicy struct {
	settings model.LockoutPolicySettings
	lockouts repository.LockoutInfoProvider
	roles    repository.RoleProvider
	risk     *riskScorer
	now      func() time.Time
}

func NewLockoutPolicy(
	settings model.LockoutPolicySettings,
	lockouts repository.LockoutInfoProvider,
	roles repository.RoleProvider,
	opts ...Option,
) *LockoutPolicy {
	o := newOptions(opts)
	return &LockoutPolicy{
		settings: settings,
		lockouts: lockouts,
		roles:    roles,
		risk:     newRiskScorer(settings.StaleLoginThreshold),
		now:      o.now,
	}
}

func (p *LockoutPolicy) Settings() model.LockoutPolicySettings {
	return p.settings
}

// CanAccess is the simple gate: an account may act unless it is locked.
func (p *LockoutPolicy) CanAccess(ctx context.Context, userID uuid.UUID) (bool, error) {
	info, err := p.lockouts.GetLockoutInfo(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("failed to get lockout info: %w", err)
	}
	return p.CanAccessSnapshot(info), nil
}

func (p *LockoutPolicy) CanAccessSnapshot(info *model.LockoutInfo) bool {
	return !info.IsLockedAt(p.now())
}

// EvaluateLockout fetches the snapshot and the actor's roles, then decides.
func (p *LockoutPolicy) EvaluateLockout(ctx context.Context, userID uuid.UUID, ipAddress, userAgent string) (*model.LockoutDecision, error) {
	info, err := p.lockouts.GetLockoutInfo(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get lockout info: %w", err)
	}
	roles, err := p.roles.GetUserRoles(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user roles: %w", err)
	}
	return p.Decide(userID, info, roles, ipAddress, userAgent), nil
}

// Decide applies, in order: current lock, role exemption, failed-attempt
// escalation and suspicious-login risk. When both of the last two fire the
// more severe lockout type wins and the later end time is kept.
func (p *LockoutPolicy) Decide(userID uuid.UUID, info *model.LockoutInfo, roles []string, ipAddress, userAgent string) *model.LockoutDecision {
	now := p.now()
	if info == nil {
		info = &model.LockoutInfo{UserID: userID}
	}

	decision := &model.LockoutDecision{UserID: userID}

	if info.IsLockedAt(now) {
		decision.ShouldLockout = true
		decision.Reason = ReasonAccountLocked
		if info.IsPermanentlyLocked {
			decision.LockoutType = model.LockoutTypePermanent
		} else {
			end := *info.LockoutEndTime
			decision.LockoutType = model.LockoutTypeTemporary
			decision.LockoutEndTime = &end
		}
		return decision
	}

	decision.IsExempt = hasAnyRole(roles, p.settings.ExemptRoles)
	if decision.IsExempt {
		decision.Reason = reasonExempt
		return decision
	}

	if p.settings.MaxFailedAttempts > 0 && info.FailedAttempts >= p.settings.MaxFailedAttempts {
		multiplier := p.Multiplier(info.FailedAttempts)
		decision.ShouldLockout = true
		decision.Multiplier = multiplier

		if p.isPermanent(info) {
			decision.LockoutType = model.LockoutTypePermanent
			decision.Reason = reasonPermanentLockout
		} else {
			end := now.Add(p.settings.LockoutDuration * time.Duration(multiplier))
			decision.LockoutType = model.LockoutTypeTemporary
			decision.LockoutEndTime = &end
			decision.Reason = reasonTooManyAttempts
		}
	}

	if ipAddress != "" && userAgent != "" {
		level, _, signals := p.risk.assess(loginAttempt{IPAddress: ipAddress, UserAgent: userAgent, At: now}, info)
		decision.RiskLevel = level
		decision.RiskSignals = signals

		if level >= model.LoginRiskHigh && p.settings.LockoutOnSuspiciousActivity {
			end := now.Add(p.settings.SecurityLockoutDuration)
			combineLockout(decision, model.LockoutTypeSecurity, &end, reasonSuspiciousActivity)
		}
	}

	if !decision.ShouldLockout {
		decision.Reason = reasonNoLockout
	}
	return decision
}

// Multiplier returns the escalation factor for a failure count at or past
// the threshold, capped at MaxLockoutMultiplier.
func (p *LockoutPolicy) Multiplier(failedAttempts int) int {
	if !p.settings.EnableProgressiveLockout {
		return 1
	}
	multiplier := failedAttempts - p.settings.MaxFailedAttempts + 1
	if multiplier < 1 {
		multiplier = 1
	}
	if p.settings.MaxLockoutMultiplier > 0 && multiplier > p.settings.MaxLockoutMultiplier {
		multiplier = p.settings.MaxLockoutMultiplier
	}
	return multiplier
}

func (p *LockoutPolicy) isPermanent(info *model.LockoutInfo) bool {
	if p.settings.PermanentLockoutThreshold > 0 && info.FailedAttempts >= p.settings.PermanentLockoutThreshold {
		return true
	}
	return p.settings.MaxLockoutCount > 0 && info.LockoutCount >= p.settings.MaxLockoutCount
}

func combineLockout(decision *model.LockoutDecision, lockoutType model.LockoutType, end *time.Time, reason string) {
	if !decision.ShouldLockout {
		decision.ShouldLockout = true
		decision.LockoutType = lockoutType
		decision.LockoutEndTime = end
		decision.Reason = reason
		return
	}

	if lockoutType > decision.LockoutType {
		decision.LockoutType = lockoutType
		decision.Reason = reason
	}
	if decision.LockoutType == model.LockoutTypePermanent {
		decision.LockoutEndTime = nil
		return
	}
	if decision.LockoutEndTime == nil || end.After(*decision.LockoutEndTime) {
		decision.LockoutEndTime = end
	}
}

// IsFailureHistoryStale reports whether the last failure is older than
// LockoutResetPeriod, so the store can reset its failure counter.
func (p *LockoutPolicy) IsFailureHistoryStale(info *model.LockoutInfo) bool {
	if info == nil || info.LastFailedAttempt == nil || p.settings.LockoutResetPeriod <= 0 {
		return false
	}
	return p.now().Sub(*info.LastFailedAttempt) > p.settings.LockoutResetPeriod
}

// UnlockAccount authorizes an unlock by adminID. It reports the outcome
// and leaves all state changes to the caller.
func (p *LockoutPolicy) UnlockAccount(ctx context.Context, userID, adminID uuid.UUID, reason string) (*model.UnlockResult, error) {
	info, err := p.lockouts.GetLockoutInfo(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get lockout info: %w", err)
	}

	now := p.now()
	result := &model.UnlockResult{UserID: userID}

	if !info.IsLockedAt(now) {
		result.Message = ReasonNotCurrentlyLocked
		return result, nil
	}

	if info.IsPermanentlyLocked {
		adminRoles, err := p.roles.GetUserRoles(ctx, adminID)
		if err != nil {
			return nil, fmt.Errorf("failed to get admin roles: %w", err)
		}
		if !hasAnyRole(adminRoles, p.settings.PermanentUnlockRoles) {
			result.Message = ReasonInsufficientPrivileges
			return result, nil
		}
	}

	result.Success = true
	result.Message = ReasonUnlocked
	result.UnlockedBy = &adminID
	result.UnlockReason = reason
	result.UnlockTime = &now
	return result, nil
}
