package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/account-policy/internal/model"
	"github.com/jwalitptl/account-policy/internal/repository"
	apperrors "github.com/jwalitptl/account-policy/pkg/errors"
)

// passwordHistoryLimit bounds how many previous hashes are loaded. It is
// above the reuse window of every preset.
const passwordHistoryLimit = 24

// AccountSecurityRepository reads the account state the policies evaluate.
// It never writes; the identity service owns these tables.
type AccountSecurityRepository struct {
	BaseRepository
}

var (
	_ repository.LockoutInfoProvider     = (*AccountSecurityRepository)(nil)
	_ repository.MFAStatusProvider       = (*AccountSecurityRepository)(nil)
	_ repository.MFAStatusReader         = (*AccountSecurityRepository)(nil)
	_ repository.PasswordHistoryProvider = (*AccountSecurityRepository)(nil)
	_ repository.ProfileProvider         = (*AccountSecurityRepository)(nil)
)

func NewAccountSecurityRepository(base BaseRepository) *AccountSecurityRepository {
	return &AccountSecurityRepository{base}
}

func (r *AccountSecurityRepository) GetLockoutInfo(ctx context.Context, userID uuid.UUID) (*model.LockoutInfo, error) {
	query := `
		SELECT user_id, failed_attempts, last_failed_attempt, lockout_end_time,
			is_permanently_locked, lockout_count, last_successful_login,
			COALESCE(last_known_ip_address, '') AS last_known_ip_address,
			COALESCE(last_known_user_agent, '') AS last_known_user_agent,
			is_from_new_location, is_from_new_device
		FROM account_lockouts
		WHERE user_id = $1
	`

	var info model.LockoutInfo
	if err := r.db.GetContext(ctx, &info, query, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get lockout info: %w", err)
	}

	return &info, nil
}

// GetMFAStatus reads the MFA columns once. The single-field getters below
// each issue the same SELECT, so callers needing several fields use this.
func (r *AccountSecurityRepository) GetMFAStatus(ctx context.Context, userID uuid.UUID) (*model.MFAStatus, error) {
	query := `
		SELECT mfa_enabled, mfa_verified, last_mfa_verification_at
		FROM users
		WHERE id = $1 AND deleted_at IS NULL
	`

	var row model.MFAStatus
	if err := r.db.GetContext(ctx, &row, query, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("user", err)
		}
		return nil, fmt.Errorf("failed to get mfa status: %w", err)
	}
	return &row, nil
}

func (r *AccountSecurityRepository) IsMFAEnabled(ctx context.Context, userID uuid.UUID) (bool, error) {
	row, err := r.GetMFAStatus(ctx, userID)
	if err != nil {
		return false, err
	}
	return row.Enabled, nil
}

func (r *AccountSecurityRepository) IsMFAVerified(ctx context.Context, userID uuid.UUID) (bool, error) {
	row, err := r.GetMFAStatus(ctx, userID)
	if err != nil {
		return false, err
	}
	return row.Verified, nil
}

func (r *AccountSecurityRepository) LastMFAVerification(ctx context.Context, userID uuid.UUID) (*time.Time, error) {
	row, err := r.GetMFAStatus(ctx, userID)
	if err != nil {
		return nil, err
	}
	return row.LastVerificationAt, nil
}

func (r *AccountSecurityRepository) GetPasswordHistory(ctx context.Context, userID uuid.UUID) ([]string, error) {
	query := `
		SELECT password_hash
		FROM password_history
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	var hashes []string
	if err := r.db.SelectContext(ctx, &hashes, query, userID, passwordHistoryLimit); err != nil {
		return nil, fmt.Errorf("failed to get password history: %w", err)
	}

	return hashes, nil
}

func (r *AccountSecurityRepository) GetUserProfile(ctx context.Context, userID uuid.UUID) (*model.UserProfile, error) {
	query := `
		SELECT id, username, email, COALESCE(name, '') AS name, last_password_change_at
		FROM users
		WHERE id = $1 AND deleted_at IS NULL
	`

	var profile model.UserProfile
	if err := r.db.GetContext(ctx, &profile, query, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("user", err)
		}
		return nil, fmt.Errorf("failed to get user profile: %w", err)
	}

	return &profile, nil
}
