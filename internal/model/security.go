package model

import "time"

// PasswordPolicySettings configures password strength, reuse and expiration rules.
type PasswordPolicySettings struct {
	MinLength               int           `json:"min_length" mapstructure:"min_length"`
	MaxLength               int           `json:"max_length" mapstructure:"max_length"`
	RequireUppercase        bool          `json:"require_uppercase" mapstructure:"require_uppercase"`
	RequireLowercase        bool          `json:"require_lowercase" mapstructure:"require_lowercase"`
	RequireDigit            bool          `json:"require_digit" mapstructure:"require_digit"`
	RequireSpecialChar      bool          `json:"require_special_char" mapstructure:"require_special_char"`
	PreventPasswordReuse    int           `json:"prevent_password_reuse" mapstructure:"prevent_password_reuse"` // Number of previous passwords to reject
	PreventSimilarPasswords bool          `json:"prevent_similar_passwords" mapstructure:"prevent_similar_passwords"`
	PreventPersonalInfo     bool          `json:"prevent_personal_info" mapstructure:"prevent_personal_info"`
	CheckCommonPasswords    bool          `json:"check_common_passwords" mapstructure:"check_common_passwords"`
	MinPasswordAge          time.Duration `json:"min_password_age" mapstructure:"min_password_age"`
	MaxPasswordAge          time.Duration `json:"max_password_age" mapstructure:"max_password_age"` // 0 = never expires
	ExpirationWarningPeriod time.Duration `json:"expiration_warning_period" mapstructure:"expiration_warning_period"`
}

// LockoutPolicySettings configures failed-attempt lockout, escalation and
// suspicious-activity handling.
type LockoutPolicySettings struct {
	MaxFailedAttempts           int           `json:"max_failed_attempts" mapstructure:"max_failed_attempts"`
	LockoutDuration             time.Duration `json:"lockout_duration" mapstructure:"lockout_duration"`
	MaxLockoutMultiplier        int           `json:"max_lockout_multiplier" mapstructure:"max_lockout_multiplier"`
	PermanentLockoutThreshold   int           `json:"permanent_lockout_threshold" mapstructure:"permanent_lockout_threshold"`
	MaxLockoutCount             int           `json:"max_lockout_count" mapstructure:"max_lockout_count"`
	LockoutOnSuspiciousActivity bool          `json:"lockout_on_suspicious_activity" mapstructure:"lockout_on_suspicious_activity"`
	SecurityLockoutDuration     time.Duration `json:"security_lockout_duration" mapstructure:"security_lockout_duration"`
	ExemptRoles                 []string      `json:"exempt_roles" mapstructure:"exempt_roles"`
	PermanentUnlockRoles        []string      `json:"permanent_unlock_roles" mapstructure:"permanent_unlock_roles"`
	EnableProgressiveLockout    bool          `json:"enable_progressive_lockout" mapstructure:"enable_progressive_lockout"`
	LockoutResetPeriod          time.Duration `json:"lockout_reset_period" mapstructure:"lockout_reset_period"`
	StaleLoginThreshold         time.Duration `json:"stale_login_threshold" mapstructure:"stale_login_threshold"`
}

// MFASettings configures which actions and roles need multi-factor
// authentication and how fresh a verification must be for enforced actions.
type MFASettings struct {
	FreshnessWindow     time.Duration `json:"freshness_window" mapstructure:"freshness_window"`
	HighSecurityActions []string      `json:"high_security_actions" mapstructure:"high_security_actions"`
	SensitiveActions    []string      `json:"sensitive_actions" mapstructure:"sensitive_actions"`
	PrivilegedRoles     []string      `json:"privileged_roles" mapstructure:"privileged_roles"`
}

// AdminSettings lists the roles that count as administrators when the
// admin checker alone does not grant the flag.
type AdminSettings struct {
	AdminRoles []string `json:"admin_roles" mapstructure:"admin_roles"`
}
