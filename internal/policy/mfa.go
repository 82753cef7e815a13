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
	ReasonMFASatisfied = "MFA requirements satisfied"
	ReasonMFARequired  = "Multi-factor authentication is required for this action"
	ReasonMFAEnforced  = "Multi-factor authentication is enforced for this action and cannot be bypassed"
)

// MFAPolicy maps actions and roles to an MFA requirement and checks an
// actor's MFA posture against it.
type MFAPolicy struct {
	settings model.MFASettings
	status   repository.MFAStatusProvider
	roles    repository.RoleProvider
	now      func() time.Time
}

func NewMFAPolicy(
	settings model.MFASettings,
	status repository.MFAStatusProvider,
	roles repository.RoleProvider,
	opts ...Option,
) *MFAPolicy {
	o := newOptions(opts)
	return &MFAPolicy{
		settings: settings,
		status:   status,
		roles:    roles,
		now:      o.now,
	}
}

func (p *MFAPolicy) Settings() model.MFASettings {
	return p.settings
}

// RequirementFor classifies the action first; roles are only consulted
// when the action alone does not demand MFA.
func (p *MFAPolicy) RequirementFor(ctx context.Context, userID uuid.UUID, action string) (model.MFARequirement, error) {
	if containsFold(p.settings.HighSecurityActions, action) {
		return model.MFARequirementEnforced, nil
	}
	if containsFold(p.settings.SensitiveActions, action) {
		return model.MFARequirementRequired, nil
	}

	roles, err := p.roles.GetUserRoles(ctx, userID)
	if err != nil {
		return model.MFARequirementOptional, fmt.Errorf("failed to get user roles: %w", err)
	}
	if hasAnyRole(roles, p.settings.PrivilegedRoles) {
		return model.MFARequirementRequired, nil
	}
	return model.MFARequirementOptional, nil
}

// Check reports whether the actor satisfies requirement. Enforced needs a
// verification inside FreshnessWindow; an older one never qualifies.
func (p *MFAPolicy) Check(ctx context.Context, userID uuid.UUID, requirement model.MFARequirement) (bool, error) {
	if requirement <= model.MFARequirementOptional {
		return true, nil
	}

	if reader, ok := p.status.(repository.MFAStatusReader); ok {
		status, err := reader.GetMFAStatus(ctx, userID)
		if err != nil {
			return false, fmt.Errorf("failed to get mfa status: %w", err)
		}
		if !status.Enabled {
			return false, nil
		}
		if requirement == model.MFARequirementRequired {
			return status.Verified, nil
		}
		return p.isFresh(status.LastVerificationAt), nil
	}

	enabled, err := p.status.IsMFAEnabled(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("failed to get mfa status: %w", err)
	}
	if !enabled {
		return false, nil
	}

	if requirement == model.MFARequirementRequired {
		verified, err := p.status.IsMFAVerified(ctx, userID)
		if err != nil {
			return false, fmt.Errorf("failed to get mfa verification: %w", err)
		}
		return verified, nil
	}

	last, err := p.status.LastMFAVerification(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("failed to get last mfa verification: %w", err)
	}
	return p.isFresh(last), nil
}

func (p *MFAPolicy) isFresh(last *time.Time) bool {
	if last == nil {
		return false
	}
	age := p.now().Sub(*last)
	return age >= 0 && age <= p.settings.FreshnessWindow
}

// Evaluate runs Check and words the outcome for the given requirement.
func (p *MFAPolicy) Evaluate(ctx context.Context, userID uuid.UUID, requirement model.MFARequirement) (*model.PolicyEvaluation, error) {
	ok, err := p.Check(ctx, userID, requirement)
	if err != nil {
		return nil, err
	}

	eval := &model.PolicyEvaluation{
		PolicyType:       PolicyTypeMFA,
		IsAllowed:        ok,
		Reason:           ReasonMFASatisfied,
		RequirementLevel: requirement.String(),
	}
	if !ok {
		eval.Reason = ReasonMFARequired
		if requirement == model.MFARequirementEnforced {
			eval.Reason = ReasonMFAEnforced
		}
	}
	return eval, nil
}
