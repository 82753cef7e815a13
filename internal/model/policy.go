package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// MFARequirement is the assurance level an action needs. Levels are ordered.
type MFARequirement int

const (
	MFARequirementOptional MFARequirement = iota
	MFARequirementRequired
	MFARequirementEnforced
)

func (r MFARequirement) String() string {
	switch r {
	case MFARequirementRequired:
		return "Required"
	case MFARequirementEnforced:
		return "Enforced"
	default:
		return "Optional"
	}
}

// LockoutType is ordered by severity so decisions can be combined with a
// simple comparison.
type LockoutType int

const (
	LockoutTypeNone LockoutType = iota
	LockoutTypeTemporary
	LockoutTypeSecurity
	LockoutTypePermanent
)

func (t LockoutType) String() string {
	switch t {
	case LockoutTypeTemporary:
		return "Temporary"
	case LockoutTypeSecurity:
		return "Security"
	case LockoutTypePermanent:
		return "Permanent"
	default:
		return "None"
	}
}

func (t LockoutType) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// LoginRiskLevel classifies how far a login attempt deviates from the
// account's known history.
type LoginRiskLevel int

const (
	LoginRiskLow LoginRiskLevel = iota
	LoginRiskModerate
	LoginRiskHigh
	LoginRiskSevere
)

func (l LoginRiskLevel) String() string {
	switch l {
	case LoginRiskModerate:
		return "Moderate"
	case LoginRiskHigh:
		return "High"
	case LoginRiskSevere:
		return "Severe"
	default:
		return "Low"
	}
}

func (l LoginRiskLevel) MarshalJSON() ([]byte, error) {
	return json.Marshal(l.String())
}

// PasswordStrength is the qualitative scale for a password strength score.
type PasswordStrength int

const (
	PasswordStrengthVeryLow PasswordStrength = iota
	PasswordStrengthLow
	PasswordStrengthMedium
	PasswordStrengthHigh
	PasswordStrengthVeryHigh
)

func (s PasswordStrength) String() string {
	switch s {
	case PasswordStrengthLow:
		return "Low"
	case PasswordStrengthMedium:
		return "Medium"
	case PasswordStrengthHigh:
		return "High"
	case PasswordStrengthVeryHigh:
		return "VeryHigh"
	default:
		return "VeryLow"
	}
}

func (s PasswordStrength) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// AdminOperation names a privileged operation. The value doubles as the
// permission name that grants it.
type AdminOperation string

const (
	AdminOperationManageUsers    AdminOperation = "ManageUsers"
	AdminOperationManageRoles    AdminOperation = "ManageRoles"
	AdminOperationUnlockAccounts AdminOperation = "UnlockAccounts"
	AdminOperationViewAuditLogs  AdminOperation = "ViewAuditLogs"
	AdminOperationManageSettings AdminOperation = "ManageSettings"
	AdminOperationDeleteContent  AdminOperation = "DeleteContent"
)

// LockoutInfo is a read snapshot of an account's lockout state supplied by
// the account store.
type LockoutInfo struct {
	UserID              uuid.UUID  `json:"user_id" db:"user_id"`
	FailedAttempts      int        `json:"failed_attempts" db:"failed_attempts"`
	LastFailedAttempt   *time.Time `json:"last_failed_attempt" db:"last_failed_attempt"`
	LockoutEndTime      *time.Time `json:"lockout_end_time" db:"lockout_end_time"`
	IsPermanentlyLocked bool       `json:"is_permanently_locked" db:"is_permanently_locked"`
	LockoutCount        int        `json:"lockout_count" db:"lockout_count"`
	LastSuccessfulLogin *time.Time `json:"last_successful_login" db:"last_successful_login"`
	LastKnownIPAddress  string     `json:"last_known_ip_address" db:"last_known_ip_address"`
	LastKnownUserAgent  string     `json:"last_known_user_agent" db:"last_known_user_agent"`
	IsFromNewLocation   bool       `json:"is_from_new_location" db:"is_from_new_location"`
	IsFromNewDevice     bool       `json:"is_from_new_device" db:"is_from_new_device"`
}

// IsLockedAt reports whether the account is locked at the given instant.
func (l *LockoutInfo) IsLockedAt(now time.Time) bool {
	if l == nil {
		return false
	}
	return l.IsPermanentlyLocked || (l.LockoutEndTime != nil && now.Before(*l.LockoutEndTime))
}

// MFAStatus is an actor's full multi-factor state as stored in one row.
type MFAStatus struct {
	Enabled            bool       `json:"enabled" db:"mfa_enabled"`
	Verified           bool       `json:"verified" db:"mfa_verified"`
	LastVerificationAt *time.Time `json:"last_verification_at" db:"last_mfa_verification_at"`
}

// UserProfile carries the personal data a password must not contain.
type UserProfile struct {
	UserID               uuid.UUID  `json:"user_id" db:"id"`
	Username             string     `json:"username" db:"username"`
	Email                string     `json:"email" db:"email"`
	DisplayName          string     `json:"display_name" db:"name"`
	LastPasswordChangeAt *time.Time `json:"last_password_change_at" db:"last_password_change_at"`
}

// LockoutDecision is the outcome of evaluating an account's lockout state.
type LockoutDecision struct {
	UserID         uuid.UUID      `json:"user_id"`
	ShouldLockout  bool           `json:"should_lockout"`
	LockoutType    LockoutType    `json:"lockout_type"`
	LockoutEndTime *time.Time     `json:"lockout_end_time,omitempty"`
	Reason         string         `json:"reason"`
	IsExempt       bool           `json:"is_exempt"`
	Multiplier     int            `json:"multiplier,omitempty"`
	RiskLevel      LoginRiskLevel `json:"risk_level"`
	RiskSignals    []string       `json:"risk_signals,omitempty"`
}

// UnlockResult reports whether an unlock request was authorized.
type UnlockResult struct {
	UserID       uuid.UUID  `json:"user_id"`
	Success      bool       `json:"success"`
	Message      string     `json:"message"`
	UnlockedBy   *uuid.UUID `json:"unlocked_by,omitempty"`
	UnlockReason string     `json:"unlock_reason,omitempty"`
	UnlockTime   *time.Time `json:"unlock_time,omitempty"`
}

// PasswordValidationResult lists every rule a candidate password broke.
type PasswordValidationResult struct {
	IsValid       bool             `json:"is_valid"`
	Errors        []string         `json:"errors"`
	StrengthScore int              `json:"strength_score"`
	StrengthLevel PasswordStrength `json:"strength_level"`
}

// PasswordExpirationInfo describes how close a password is to expiring.
type PasswordExpirationInfo struct {
	IsExpiring          bool          `json:"is_expiring"`
	IsExpired           bool          `json:"is_expired"`
	TimeUntilExpiration time.Duration `json:"time_until_expiration"`
	ExpirationDate      *time.Time    `json:"expiration_date,omitempty"`
}

// ActionRequest describes a user action to evaluate.
type ActionRequest struct {
	UserID                 uuid.UUID       `json:"user_id" binding:"required"`
	Action                 string          `json:"action" binding:"required,action_name"`
	RequiresAdmin          bool            `json:"requires_admin"`
	RequiredAdminOperation *AdminOperation `json:"required_admin_operation,omitempty"`
	IPAddress              string          `json:"ip_address"`
	UserAgent              string          `json:"user_agent"`
	NewPassword            string          `json:"new_password,omitempty"`
	CurrentPassword        string          `json:"current_password,omitempty"`
}

// PolicyEvaluation is the outcome of a single named policy step.
type PolicyEvaluation struct {
	PolicyType       string   `json:"policy_type"`
	IsAllowed        bool     `json:"is_allowed"`
	Reason           string   `json:"reason"`
	RequirementLevel string   `json:"requirement_level,omitempty"`
	Details          []string `json:"details,omitempty"`
}

// PolicyEvaluationResult aggregates every step evaluated for one request.
type PolicyEvaluationResult struct {
	UserID        uuid.UUID          `json:"user_id"`
	Action        string             `json:"action"`
	IsAllowed     bool               `json:"is_allowed"`
	PrimaryReason string             `json:"primary_reason,omitempty"`
	Evaluations   []PolicyEvaluation `json:"evaluations"`
	EvaluatedAt   time.Time          `json:"evaluated_at"`
}
