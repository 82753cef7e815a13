package policy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/jwalitptl/account-policy/internal/model"
)

func TestRiskLevel(t *testing.T) {
	tests := []struct {
		score int
		want  model.LoginRiskLevel
	}{
		{0, model.LoginRiskLow},
		{29, model.LoginRiskLow},
		{30, model.LoginRiskModerate},
		{59, model.LoginRiskModerate},
		{60, model.LoginRiskHigh},
		{89, model.LoginRiskHigh},
		{90, model.LoginRiskSevere},
		{125, model.LoginRiskSevere},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, riskLevel(tt.score), "score=%d", tt.score)
	}
}

func TestRiskScorer(t *testing.T) {
	scorer := newRiskScorer(30 * day)
	attempt := loginAttempt{IPAddress: "203.0.113.9", UserAgent: "curl/8.0", At: testNow}

	t.Run("matching history", func(t *testing.T) {
		info := &model.LockoutInfo{
			LastKnownIPAddress:  "203.0.113.9",
			LastKnownUserAgent:  "CURL/8.0",
			LastSuccessfulLogin: ago(time.Hour),
		}
		level, score, signals := scorer.assess(attempt, info)
		assert.Equal(t, model.LoginRiskLow, level)
		assert.Zero(t, score)
		assert.Empty(t, signals)
	})

	t.Run("no history yet", func(t *testing.T) {
		level, score, _ := scorer.assess(attempt, &model.LockoutInfo{})
		assert.Equal(t, model.LoginRiskLow, level)
		assert.Zero(t, score)
	})

	t.Run("every signal", func(t *testing.T) {
		info := &model.LockoutInfo{
			IsFromNewLocation:   true,
			IsFromNewDevice:     true,
			LastKnownIPAddress:  "198.51.100.1",
			LastKnownUserAgent:  "Mozilla/5.0",
			LastSuccessfulLogin: ago(45 * day),
		}
		level, score, signals := scorer.assess(attempt, info)
		assert.Equal(t, model.LoginRiskSevere, level)
		assert.Equal(t, 125, score)
		assert.Equal(t, []string{"new_location", "new_device", "ip_changed", "user_agent_changed", "stale_login"}, signals)
	})

	t.Run("stale login alone", func(t *testing.T) {
		level, score, signals := scorer.assess(attempt, &model.LockoutInfo{LastSuccessfulLogin: ago(31 * day)})
		assert.Equal(t, model.LoginRiskLow, level)
		assert.Equal(t, 20, score)
		assert.Equal(t, []string{"stale_login"}, signals)
	})
}
