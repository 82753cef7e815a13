package policy

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/jwalitptl/account-policy/internal/model"
	"github.com/jwalitptl/account-policy/internal/repository"
)

const (
	ReasonAdmin                = "User has admin privileges"
	ReasonNotAdmin             = "User lacks admin privileges"
	ReasonAdminOperation       = "User has required admin privileges"
	ReasonAdminOperationDenied = "User lacks required admin privileges for this operation"
)

// AdminPolicy checks admin standing and, optionally, a specific operation.
type AdminPolicy struct {
	settings    model.AdminSettings
	admins      repository.AdminChecker
	roles       repository.RoleProvider
	permissions repository.PermissionProvider
}

func NewAdminPolicy(
	settings model.AdminSettings,
	admins repository.AdminChecker,
	roles repository.RoleProvider,
	permissions repository.PermissionProvider,
) *AdminPolicy {
	return &AdminPolicy{
		settings:    settings,
		admins:      admins,
		roles:       roles,
		permissions: permissions,
	}
}

// IsAdmin is true for the coarse admin flag or any configured admin role.
func (p *AdminPolicy) IsAdmin(ctx context.Context, userID uuid.UUID) (bool, error) {
	admin, err := p.admins.IsAdmin(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("failed to check admin flag: %w", err)
	}
	if admin || len(p.settings.AdminRoles) == 0 {
		return admin, nil
	}

	roles, err := p.roles.GetUserRoles(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("failed to get user roles: %w", err)
	}
	return hasAnyRole(roles, p.settings.AdminRoles), nil
}

// CanAccess checks the admin flag alone when operation is nil, otherwise
// admin standing plus the permission named by the operation.
func (p *AdminPolicy) CanAccess(ctx context.Context, userID uuid.UUID, operation *model.AdminOperation) (bool, error) {
	eval, err := p.Evaluate(ctx, userID, operation)
	if err != nil {
		return false, err
	}
	return eval.IsAllowed, nil
}

func (p *AdminPolicy) Evaluate(ctx context.Context, userID uuid.UUID, operation *model.AdminOperation) (*model.PolicyEvaluation, error) {
	eval := &model.PolicyEvaluation{PolicyType: PolicyTypeAdmin}

	admin, err := p.IsAdmin(ctx, userID)
	if err != nil {
		return nil, err
	}

	if operation == nil {
		eval.IsAllowed = admin
		eval.Reason = ReasonNotAdmin
		if admin {
			eval.Reason = ReasonAdmin
		}
		return eval, nil
	}

	eval.Reason = ReasonAdminOperationDenied
	if !admin {
		return eval, nil
	}

	permissions, err := p.permissions.GetUserPermissions(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user permissions: %w", err)
	}
	if containsFold(permissions, string(*operation)) {
		eval.IsAllowed = true
		eval.Reason = ReasonAdminOperation
	}
	return eval, nil
}
