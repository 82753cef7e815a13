package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPresetOrdering(t *testing.T) {
	strict, def, relaxed := StrictSettings(), DefaultSettings(), RelaxedSettings()

	assert.GreaterOrEqual(t, strict.Password.MinLength, def.Password.MinLength)
	assert.GreaterOrEqual(t, def.Password.MinLength, relaxed.Password.MinLength)

	assert.GreaterOrEqual(t, strict.Password.PreventPasswordReuse, def.Password.PreventPasswordReuse)
	assert.GreaterOrEqual(t, def.Password.PreventPasswordReuse, relaxed.Password.PreventPasswordReuse)

	assert.LessOrEqual(t, strict.Lockout.MaxFailedAttempts, def.Lockout.MaxFailedAttempts)
	assert.LessOrEqual(t, def.Lockout.MaxFailedAttempts, relaxed.Lockout.MaxFailedAttempts)

	assert.LessOrEqual(t, strict.MFA.FreshnessWindow, def.MFA.FreshnessWindow)
	assert.LessOrEqual(t, def.MFA.FreshnessWindow, relaxed.MFA.FreshnessWindow)
}

func TestPresetsAreValid(t *testing.T) {
	for name, s := range map[string]Settings{
		"default": DefaultSettings(),
		"strict":  StrictSettings(),
		"relaxed": RelaxedSettings(),
	} {
		assert.NoError(t, s.Validate(), name)
	}
}

func TestPresetsAreIndependentValues(t *testing.T) {
	a := DefaultSettings()
	a.Lockout.ExemptRoles[0] = "Changed"
	a.MFA.SensitiveActions = append(a.MFA.SensitiveActions, "Extra")

	b := DefaultSettings()
	assert.Equal(t, "SystemAdmin", b.Lockout.ExemptRoles[0])
	assert.NotContains(t, b.MFA.SensitiveActions, "Extra")
}
