package policy

import (
	"errors"

	"github.com/jwalitptl/account-policy/internal/repository"
	apperrors "github.com/jwalitptl/account-policy/pkg/errors"
)

// Config selects a preset, or carries full settings when Preset is custom.
type Config struct {
	Preset Preset
	Custom *Settings
}

// Providers supplies account state to the policies. PasswordHistory,
// CommonPasswords and Profiles are optional.
type Providers struct {
	Admins          repository.AdminChecker
	Roles           repository.RoleProvider
	Permissions     repository.PermissionProvider
	MFA             repository.MFAStatusProvider
	Lockouts        repository.LockoutInfoProvider
	PasswordHistory repository.PasswordHistoryProvider
	CommonPasswords repository.CommonPasswordChecker
	Profiles        repository.ProfileProvider
}

func (p Providers) validate() error {
	var errs []error
	if p.Admins == nil {
		errs = append(errs, errors.New("admin checker is required"))
	}
	if p.Roles == nil {
		errs = append(errs, errors.New("role provider is required"))
	}
	if p.Permissions == nil {
		errs = append(errs, errors.New("permission provider is required"))
	}
	if p.MFA == nil {
		errs = append(errs, errors.New("mfa status provider is required"))
	}
	if p.Lockouts == nil {
		errs = append(errs, errors.New("lockout info provider is required"))
	}
	return errors.Join(errs...)
}

// Validate rejects settings no policy can run with.
func (s Settings) Validate() error {
	var errs []error

	pw := s.Password
	if pw.MinLength < 1 {
		errs = append(errs, errors.New("password min_length must be at least 1"))
	}
	if pw.MaxLength > 0 && pw.MaxLength < pw.MinLength {
		errs = append(errs, errors.New("password max_length must not be below min_length"))
	}
	if pw.PreventPasswordReuse < 0 {
		errs = append(errs, errors.New("password prevent_password_reuse must not be negative"))
	}
	if pw.MinPasswordAge < 0 || pw.MaxPasswordAge < 0 || pw.ExpirationWarningPeriod < 0 {
		errs = append(errs, errors.New("password ages must not be negative"))
	}
	if pw.MaxPasswordAge > 0 && pw.MinPasswordAge > pw.MaxPasswordAge {
		errs = append(errs, errors.New("password min_password_age must not exceed max_password_age"))
	}

	lo := s.Lockout
	if lo.MaxFailedAttempts < 1 {
		errs = append(errs, errors.New("lockout max_failed_attempts must be at least 1"))
	}
	if lo.LockoutDuration <= 0 {
		errs = append(errs, errors.New("lockout lockout_duration must be positive"))
	}
	if lo.MaxLockoutMultiplier < 1 {
		errs = append(errs, errors.New("lockout max_lockout_multiplier must be at least 1"))
	}
	if lo.PermanentLockoutThreshold > 0 && lo.PermanentLockoutThreshold < lo.MaxFailedAttempts {
		errs = append(errs, errors.New("lockout permanent_lockout_threshold must not be below max_failed_attempts"))
	}
	if lo.LockoutOnSuspiciousActivity && lo.SecurityLockoutDuration <= 0 {
		errs = append(errs, errors.New("lockout security_lockout_duration must be positive when suspicious activity lockout is on"))
	}

	if s.MFA.FreshnessWindow <= 0 {
		errs = append(errs, errors.New("mfa freshness_window must be positive"))
	}

	return errors.Join(errs...)
}

// New resolves the settings, checks the providers and returns a ready
// manager. Every failure is a configuration error.
func New(cfg Config, providers Providers, opts ...Option) (*Manager, error) {
	settings, err := resolveSettings(cfg)
	if err != nil {
		return nil, apperrors.NewConfiguration("invalid policy preset", err)
	}
	if err := providers.validate(); err != nil {
		return nil, apperrors.NewConfiguration("missing policy provider", err)
	}
	if err := settings.Validate(); err != nil {
		return nil, apperrors.NewConfiguration("invalid policy settings", err)
	}

	password := NewPasswordPolicy(settings.Password, providers.PasswordHistory, providers.CommonPasswords, providers.Profiles, opts...)
	lockout := NewLockoutPolicy(settings.Lockout, providers.Lockouts, providers.Roles, opts...)
	mfa := NewMFAPolicy(settings.MFA, providers.MFA, providers.Roles, opts...)
	admin := NewAdminPolicy(settings.Admin, providers.Admins, providers.Roles, providers.Permissions)

	return NewManager(password, lockout, mfa, admin, opts...), nil
}

func resolveSettings(cfg Config) (Settings, error) {
	if cfg.Preset == PresetCustom {
		if cfg.Custom == nil {
			return Settings{}, errors.New("custom preset requires settings")
		}
		return *cfg.Custom, nil
	}
	return SettingsFor(cfg.Preset)
}
