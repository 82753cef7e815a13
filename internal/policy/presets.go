package policy

import (
	"fmt"
	"strings"
	"time"

	"github.com/jwalitptl/account-policy/internal/model"
)

const day = 24 * time.Hour

// Preset names a pre-tuned settings bundle.
type Preset string

const (
	PresetDefault Preset = "default"
	PresetStrict  Preset = "strict"
	PresetRelaxed Preset = "relaxed"
	PresetCustom  Preset = "custom"
)

// ParsePreset accepts preset names case-insensitively; empty means default.
func ParsePreset(name string) (Preset, error) {
	switch p := Preset(strings.ToLower(strings.TrimSpace(name))); p {
	case "":
		return PresetDefault, nil
	case PresetDefault, PresetStrict, PresetRelaxed, PresetCustom:
		return p, nil
	default:
		return "", fmt.Errorf("unknown policy preset %q", name)
	}
}

// Settings bundles the configuration of every policy.
type Settings struct {
	Password model.PasswordPolicySettings `json:"password" mapstructure:"password"`
	Lockout  model.LockoutPolicySettings  `json:"lockout" mapstructure:"lockout"`
	MFA      model.MFASettings            `json:"mfa" mapstructure:"mfa"`
	Admin    model.AdminSettings          `json:"admin" mapstructure:"admin"`
}

func DefaultSettings() Settings {
	return Settings{
		Password: DefaultPasswordSettings(),
		Lockout:  DefaultLockoutSettings(),
		MFA:      DefaultMFASettings(),
		Admin:    DefaultAdminSettings(),
	}
}

func StrictSettings() Settings {
	return Settings{
		Password: StrictPasswordSettings(),
		Lockout:  StrictLockoutSettings(),
		MFA:      StrictMFASettings(),
		Admin:    DefaultAdminSettings(),
	}
}

func RelaxedSettings() Settings {
	return Settings{
		Password: RelaxedPasswordSettings(),
		Lockout:  RelaxedLockoutSettings(),
		MFA:      RelaxedMFASettings(),
		Admin:    DefaultAdminSettings(),
	}
}

// SettingsFor resolves a named preset. Custom has no built-in values.
func SettingsFor(preset Preset) (Settings, error) {
	switch preset {
	case PresetDefault, "":
		return DefaultSettings(), nil
	case PresetStrict:
		return StrictSettings(), nil
	case PresetRelaxed:
		return RelaxedSettings(), nil
	default:
		return Settings{}, fmt.Errorf("preset %q has no built-in settings", preset)
	}
}

func DefaultPasswordSettings() model.PasswordPolicySettings {
	return model.PasswordPolicySettings{
		MinLength:               8,
		MaxLength:               128,
		RequireUppercase:        true,
		RequireLowercase:        true,
		RequireDigit:            true,
		RequireSpecialChar:      true,
		PreventPasswordReuse:    5,
		PreventSimilarPasswords: true,
		PreventPersonalInfo:     true,
		CheckCommonPasswords:    true,
		MinPasswordAge:          1 * day,
		MaxPasswordAge:          90 * day,
		ExpirationWarningPeriod: 14 * day,
	}
}

func StrictPasswordSettings() model.PasswordPolicySettings {
	s := DefaultPasswordSettings()
	s.MinLength = 12
	s.PreventPasswordReuse = 10
	s.MaxPasswordAge = 60 * day
	s.ExpirationWarningPeriod = 7 * day
	return s
}

func RelaxedPasswordSettings() model.PasswordPolicySettings {
	return model.PasswordPolicySettings{
		MinLength:            6,
		MaxLength:            128,
		RequireLowercase:     true,
		RequireDigit:         true,
		PreventPasswordReuse: 3,
	}
}

func DefaultLockoutSettings() model.LockoutPolicySettings {
	return model.LockoutPolicySettings{
		MaxFailedAttempts:           5,
		LockoutDuration:             30 * time.Minute,
		MaxLockoutMultiplier:        10,
		PermanentLockoutThreshold:   20,
		MaxLockoutCount:             5,
		LockoutOnSuspiciousActivity: true,
		SecurityLockoutDuration:     24 * time.Hour,
		ExemptRoles:                 []string{"SystemAdmin"},
		PermanentUnlockRoles:        []string{"SuperAdmin", "SystemAdmin"},
		EnableProgressiveLockout:    true,
		LockoutResetPeriod:          30 * day,
		StaleLoginThreshold:         30 * day,
	}
}

func StrictLockoutSettings() model.LockoutPolicySettings {
	return model.LockoutPolicySettings{
		MaxFailedAttempts:           3,
		LockoutDuration:             time.Hour,
		MaxLockoutMultiplier:        5,
		PermanentLockoutThreshold:   10,
		MaxLockoutCount:             3,
		LockoutOnSuspiciousActivity: true,
		SecurityLockoutDuration:     48 * time.Hour,
		PermanentUnlockRoles:        []string{"SuperAdmin", "SystemAdmin"},
		EnableProgressiveLockout:    true,
		LockoutResetPeriod:          7 * day,
		StaleLoginThreshold:         14 * day,
	}
}

func RelaxedLockoutSettings() model.LockoutPolicySettings {
	return model.LockoutPolicySettings{
		MaxFailedAttempts:         10,
		LockoutDuration:           15 * time.Minute,
		MaxLockoutMultiplier:      3,
		PermanentLockoutThreshold: 50,
		MaxLockoutCount:           10,
		SecurityLockoutDuration:   6 * time.Hour,
		ExemptRoles:               []string{"SystemAdmin", "SuperAdmin", "Admin"},
		PermanentUnlockRoles:      []string{"SuperAdmin", "SystemAdmin"},
		LockoutResetPeriod:        90 * day,
		StaleLoginThreshold:       90 * day,
	}
}

func DefaultMFASettings() model.MFASettings {
	return model.MFASettings{
		FreshnessWindow:     12 * time.Hour,
		HighSecurityActions: []string{"DeleteAccount", "ChangeEmail", "AdminAction", "FinancialTransaction"},
		SensitiveActions:    []string{"DisableMfa", "ChangePhoneNumber", "ManageApiKeys"},
		PrivilegedRoles:     []string{"Admin", "SuperAdmin", "SystemAdmin"},
	}
}

func StrictMFASettings() model.MFASettings {
	s := DefaultMFASettings()
	s.FreshnessWindow = 4 * time.Hour
	s.SensitiveActions = append(s.SensitiveActions, PasswordActionChange)
	return s
}

func RelaxedMFASettings() model.MFASettings {
	s := DefaultMFASettings()
	s.FreshnessWindow = 24 * time.Hour
	s.PrivilegedRoles = []string{"SuperAdmin", "SystemAdmin"}
	return s
}

func DefaultAdminSettings() model.AdminSettings {
	return model.AdminSettings{
		AdminRoles: []string{"Admin", "SuperAdmin", "SystemAdmin"},
	}
}
