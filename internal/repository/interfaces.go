package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/account-policy/internal/model"
)

// All provider and repository interfaces in one file
type (
	// AdminChecker reports the coarse admin flag of an actor
	AdminChecker interface {
		IsAdmin(ctx context.Context, userID uuid.UUID) (bool, error)
	}

	RoleProvider interface {
		GetUserRoles(ctx context.Context, userID uuid.UUID) ([]string, error)
	}

	PermissionProvider interface {
		GetUserPermissions(ctx context.Context, userID uuid.UUID) ([]string, error)
	}

	// MFAStatusProvider exposes an actor's multi-factor enrollment. A nil
	// LastMFAVerification means the actor never completed a verification.
	MFAStatusProvider interface {
		IsMFAEnabled(ctx context.Context, userID uuid.UUID) (bool, error)
		IsMFAVerified(ctx context.Context, userID uuid.UUID) (bool, error)
		LastMFAVerification(ctx context.Context, userID uuid.UUID) (*time.Time, error)
	}

	// MFAStatusReader is an optional extension of MFAStatusProvider that
	// returns the whole status in one read
	MFAStatusReader interface {
		GetMFAStatus(ctx context.Context, userID uuid.UUID) (*model.MFAStatus, error)
	}

	// LockoutInfoProvider returns the current lockout snapshot. A nil info
	// with a nil error means the account has no recorded failures.
	LockoutInfoProvider interface {
		GetLockoutInfo(ctx context.Context, userID uuid.UUID) (*model.LockoutInfo, error)
	}

	// PasswordHistoryProvider returns previous password hashes, newest first
	PasswordHistoryProvider interface {
		GetPasswordHistory(ctx context.Context, userID uuid.UUID) ([]string, error)
	}

	CommonPasswordChecker interface {
		IsCommonPassword(ctx context.Context, password string) (bool, error)
	}

	ProfileProvider interface {
		GetUserProfile(ctx context.Context, userID uuid.UUID) (*model.UserProfile, error)
	}

	// AuditRepository stores policy decision audit records
	AuditRepository interface {
		Create(ctx context.Context, log *model.PolicyAuditLog) error
		List(ctx context.Context, filters *model.AuditFilters) ([]*model.PolicyAuditLog, error)
		Cleanup(ctx context.Context, before time.Time) (int64, error)
	}
)
