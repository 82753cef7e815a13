package policy

import (
	"strings"
	"time"

	"github.com/jwalitptl/account-policy/internal/model"
)

// loginAttempt is the context of the attempt being scored.
type loginAttempt struct {
	IPAddress string
	UserAgent string
	At        time.Time
}

// riskRule scores one signal of a login attempt against the account's
// known history. A zero score means the signal is absent.
type riskRule interface {
	Name() string
	Score(attempt loginAttempt, info *model.LockoutInfo) int
}

type newLocationRule struct{ points int }

func (r newLocationRule) Name() string { return "new_location" }

func (r newLocationRule) Score(_ loginAttempt, info *model.LockoutInfo) int {
	if info.IsFromNewLocation {
		return r.points
	}
	return 0
}

type newDeviceRule struct{ points int }

func (r newDeviceRule) Name() string { return "new_device" }

func (r newDeviceRule) Score(_ loginAttempt, info *model.LockoutInfo) int {
	if info.IsFromNewDevice {
		return r.points
	}
	return 0
}

// ipChangeRule fires when a known address exists and differs.
type ipChangeRule struct{ points int }

func (r ipChangeRule) Name() string { return "ip_changed" }

func (r ipChangeRule) Score(attempt loginAttempt, info *model.LockoutInfo) int {
	if info.LastKnownIPAddress != "" && attempt.IPAddress != info.LastKnownIPAddress {
		return r.points
	}
	return 0
}

type userAgentChangeRule struct{ points int }

func (r userAgentChangeRule) Name() string { return "user_agent_changed" }

func (r userAgentChangeRule) Score(attempt loginAttempt, info *model.LockoutInfo) int {
	if info.LastKnownUserAgent != "" && !strings.EqualFold(attempt.UserAgent, info.LastKnownUserAgent) {
		return r.points
	}
	return 0
}

type staleLoginRule struct {
	points    int
	threshold time.Duration
}

func (r staleLoginRule) Name() string { return "stale_login" }

func (r staleLoginRule) Score(attempt loginAttempt, info *model.LockoutInfo) int {
	if r.threshold <= 0 || info.LastSuccessfulLogin == nil {
		return 0
	}
	if attempt.At.Sub(*info.LastSuccessfulLogin) > r.threshold {
		return r.points
	}
	return 0
}

// Risk score cut points: below 30 Low, below 60 Moderate, below 90 High.
const (
	moderateRiskScore = 30
	highRiskScore     = 60
	severeRiskScore   = 90
)

type riskScorer struct {
	rules []riskRule
}

func newRiskScorer(staleAfter time.Duration) *riskScorer {
	return &riskScorer{
		rules: []riskRule{
			newLocationRule{points: 40},
			newDeviceRule{points: 30},
			ipChangeRule{points: 20},
			userAgentChangeRule{points: 15},
			staleLoginRule{points: 20, threshold: staleAfter},
		},
	}
}

// assess sums every rule and returns the level with the names of the
// rules that fired.
func (s *riskScorer) assess(attempt loginAttempt, info *model.LockoutInfo) (model.LoginRiskLevel, int, []string) {
	total := 0
	var signals []string
	for _, rule := range s.rules {
		if points := rule.Score(attempt, info); points > 0 {
			total += points
			signals = append(signals, rule.Name())
		}
	}
	return riskLevel(total), total, signals
}

func riskLevel(score int) model.LoginRiskLevel {
	switch {
	case score >= severeRiskScore:
		return model.LoginRiskSevere
	case score >= highRiskScore:
		return model.LoginRiskHigh
	case score >= moderateRiskScore:
		return model.LoginRiskModerate
	default:
		return model.LoginRiskLow
	}
}
