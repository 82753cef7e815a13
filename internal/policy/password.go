package policy

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"

	"github.com/jwalitptl/account-policy/internal/model"
	"github.com/jwalitptl/account-policy/internal/repository"
	apperrors "github.com/jwalitptl/account-policy/pkg/errors"
	"github.com/jwalitptl/account-policy/pkg/security"
)

const (
	PasswordActionChange = "ChangePassword"
	PasswordActionReset  = "ResetPassword"
	PasswordActionSet    = "SetPassword"

	minPersonalTokenLength = 3
)

var passwordActions = []string{PasswordActionChange, PasswordActionReset, PasswordActionSet}

// IsPasswordAction reports whether action changes a password. Matching is
// case-insensitive.
func IsPasswordAction(action string) bool {
	return containsFold(passwordActions, action)
}

// PasswordPolicy validates candidate passwords and computes expiration.
type PasswordPolicy struct {
	settings model.PasswordPolicySettings
	history  repository.PasswordHistoryProvider
	common   repository.CommonPasswordChecker
	profiles repository.ProfileProvider
	hasher   security.PasswordHasher
	now      func() time.Time
}

// NewPasswordPolicy builds a password policy. history, common and profiles
// are optional; a nil provider disables only the rule it backs.
func NewPasswordPolicy(
	settings model.PasswordPolicySettings,
	history repository.PasswordHistoryProvider,
	common repository.CommonPasswordChecker,
	profiles repository.ProfileProvider,
	opts ...Option,
) *PasswordPolicy {
	o := newOptions(opts)
	return &PasswordPolicy{
		settings: settings,
		history:  history,
		common:   common,
		profiles: profiles,
		hasher:   o.hasher,
		now:      o.now,
	}
}

func (p *PasswordPolicy) Settings() model.PasswordPolicySettings {
	return p.settings
}

// Validate runs every rule and collects all violations in rule order.
func (p *PasswordPolicy) Validate(ctx context.Context, userID uuid.UUID, newPassword, currentPassword string) (*model.PasswordValidationResult, error) {
	var violations []string

	if msg := p.strengthViolation(newPassword); msg != "" {
		violations = append(violations, msg)
	}

	if p.history != nil && p.settings.PreventPasswordReuse > 0 {
		hashes, err := p.history.GetPasswordHistory(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("failed to get password history: %w", err)
		}
		if security.MatchesAny(p.hasher, hashes, newPassword, p.settings.PreventPasswordReuse) {
			violations = append(violations, fmt.Sprintf("Password cannot be the same as any of your last %d passwords", p.settings.PreventPasswordReuse))
		}
	}

	if p.common != nil && p.settings.CheckCommonPasswords {
		common, err := p.common.IsCommonPassword(ctx, newPassword)
		if err != nil {
			return nil, fmt.Errorf("failed to check common passwords: %w", err)
		}
		if common {
			violations = append(violations, "Password is too common and easily guessable")
		}
	}

	if p.settings.PreventSimilarPasswords && security.AreSimilarPasswords(currentPassword, newPassword) {
		violations = append(violations, "Password is too similar to your current password")
	}

	if p.profiles != nil && p.settings.PreventPersonalInfo {
		profile, err := p.profiles.GetUserProfile(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("failed to get user profile: %w", err)
		}
		if containsPersonalInfo(newPassword, profile) {
			violations = append(violations, "Password must not contain your username, email or name")
		}
	}

	score := security.StrengthScore(newPassword)
	return &model.PasswordValidationResult{
		IsValid:       len(violations) == 0,
		Errors:        violations,
		StrengthScore: score,
		StrengthLevel: model.PasswordStrength(security.StrengthLevel(score)),
	}, nil
}

// strengthViolation describes the length problem and the missing classes
// in a single message, or returns "" when the password is strong enough.
func (p *PasswordPolicy) strengthViolation(password string) string {
	var parts []string

	length := len([]rune(password))
	switch {
	case length < p.settings.MinLength:
		parts = append(parts, fmt.Sprintf("be at least %d characters long", p.settings.MinLength))
	case p.settings.MaxLength > 0 && length > p.settings.MaxLength:
		parts = append(parts, fmt.Sprintf("be at most %d characters long", p.settings.MaxLength))
	}

	classes := security.Classes(password)
	var missing []string
	if p.settings.RequireUppercase && !classes.Has(security.ClassUpper) {
		missing = append(missing, "uppercase letter")
	}
	if p.settings.RequireLowercase && !classes.Has(security.ClassLower) {
		missing = append(missing, "lowercase letter")
	}
	if p.settings.RequireDigit && !classes.Has(security.ClassDigit) {
		missing = append(missing, "digit")
	}
	if p.settings.RequireSpecialChar && !classes.Has(security.ClassSpecial) {
		missing = append(missing, "special character")
	}
	if len(missing) > 0 {
		parts = append(parts, "contain at least one of each: "+strings.Join(missing, ", "))
	}

	if len(parts) == 0 {
		return ""
	}
	return "Password must " + strings.Join(parts, " and ")
}

func containsPersonalInfo(password string, profile *model.UserProfile) bool {
	if profile == nil || password == "" {
		return false
	}

	tokens := []string{profile.Username}
	if at := strings.IndexByte(profile.Email, '@'); at >= 0 {
		tokens = append(tokens, profile.Email[:at])
	} else {
		tokens = append(tokens, profile.Email)
	}
	tokens = append(tokens, strings.FieldsFunc(profile.DisplayName, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})...)

	lower := strings.ToLower(password)
	for _, token := range tokens {
		token = strings.ToLower(strings.TrimSpace(token))
		if len([]rune(token)) < minPersonalTokenLength {
			continue
		}
		if strings.Contains(lower, token) {
			return true
		}
	}
	return false
}

// IsChangeRequired is true when no change was ever recorded or the password
// is older than MaxPasswordAge. A zero MaxPasswordAge never expires.
func (p *PasswordPolicy) IsChangeRequired(lastChangeAt *time.Time) bool {
	if lastChangeAt == nil {
		return true
	}
	if p.settings.MaxPasswordAge <= 0 {
		return false
	}
	return p.now().Sub(*lastChangeAt) > p.settings.MaxPasswordAge
}

// CanChange enforces MinPasswordAge between two changes.
func (p *PasswordPolicy) CanChange(lastChangeAt *time.Time) bool {
	if lastChangeAt == nil || p.settings.MinPasswordAge <= 0 {
		return true
	}
	return p.now().Sub(*lastChangeAt) >= p.settings.MinPasswordAge
}

func (p *PasswordPolicy) ExpirationInfo(lastChangeAt *time.Time) model.PasswordExpirationInfo {
	var info model.PasswordExpirationInfo
	if p.settings.MaxPasswordAge <= 0 {
		return info
	}
	if lastChangeAt == nil {
		info.IsExpired = true
		return info
	}

	expiresAt := lastChangeAt.Add(p.settings.MaxPasswordAge)
	info.ExpirationDate = &expiresAt

	remaining := expiresAt.Sub(p.now())
	if remaining < 0 {
		info.IsExpired = true
		return info
	}
	info.TimeUntilExpiration = remaining
	info.IsExpiring = remaining <= p.settings.ExpirationWarningPeriod
	return info
}

// ExpirationFor looks up the last change through the profile provider.
func (p *PasswordPolicy) ExpirationFor(ctx context.Context, userID uuid.UUID) (model.PasswordExpirationInfo, error) {
	if p.profiles == nil {
		return model.PasswordExpirationInfo{}, apperrors.NewConfiguration("profile provider is not configured", nil)
	}
	profile, err := p.profiles.GetUserProfile(ctx, userID)
	if err != nil {
		return model.PasswordExpirationInfo{}, fmt.Errorf("failed to get user profile: %w", err)
	}
	if profile == nil {
		return p.ExpirationInfo(nil), nil
	}
	return p.ExpirationInfo(profile.LastPasswordChangeAt), nil
}
