package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/jwalitptl/account-policy/internal/repository"
	apperrors "github.com/jwalitptl/account-policy/pkg/errors"
)

type RBACRepository struct {
	BaseRepository
}

var (
	_ repository.AdminChecker       = (*RBACRepository)(nil)
	_ repository.RoleProvider       = (*RBACRepository)(nil)
	_ repository.PermissionProvider = (*RBACRepository)(nil)
)

func NewRBACRepository(base BaseRepository) *RBACRepository {
	return &RBACRepository{base}
}

func (r *RBACRepository) IsAdmin(ctx context.Context, userID uuid.UUID) (bool, error) {
	query := `SELECT is_admin FROM users WHERE id = $1 AND deleted_at IS NULL`

	var isAdmin bool
	if err := r.db.GetContext(ctx, &isAdmin, query, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, apperrors.NotFound("user", err)
		}
		return false, fmt.Errorf("failed to check admin flag: %w", err)
	}
	return isAdmin, nil
}

func (r *RBACRepository) GetUserRoles(ctx context.Context, userID uuid.UUID) ([]string, error) {
	query := `
		SELECT DISTINCT r.name
		FROM roles r
		JOIN user_roles ur ON ur.role_id = r.id
		WHERE ur.user_id = $1
		ORDER BY r.name
	`

	var roles []string
	if err := r.db.SelectContext(ctx, &roles, query, userID); err != nil {
		return nil, fmt.Errorf("failed to list user roles: %w", err)
	}
	return roles, nil
}

func (r *RBACRepository) GetUserPermissions(ctx context.Context, userID uuid.UUID) ([]string, error) {
	query := `
		SELECT DISTINCT p.name
		FROM permissions p
		JOIN role_permissions rp ON rp.permission_id = p.id
		JOIN user_roles ur ON ur.role_id = rp.role_id
		WHERE ur.user_id = $1
		ORDER BY p.name
	`

	var permissions []string
	if err := r.db.SelectContext(ctx, &permissions, query, userID); err != nil {
		return nil, fmt.Errorf("failed to list user permissions: %w", err)
	}
	return permissions, nil
}
