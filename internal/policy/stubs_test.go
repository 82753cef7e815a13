package policy

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/account-policy/internal/model"
)

var (
	testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	errProviderDown = errors.New("provider unavailable")
)

func fixedClock() time.Time { return testNow }

func ago(d time.Duration) *time.Time {
	t := testNow.Add(-d)
	return &t
}

func in(d time.Duration) *time.Time {
	t := testNow.Add(d)
	return &t
}

// stubAccount implements every provider interface with fixed values.
type stubAccount struct {
	admin       bool
	roles       []string
	rolesByUser map[uuid.UUID][]string
	permissions []string

	mfaEnabled  bool
	mfaVerified bool
	lastMFA     *time.Time

	lockout *model.LockoutInfo
	history []string
	common  map[string]bool
	profile *model.UserProfile

	err   error
	calls int
}

func (s *stubAccount) call() error {
	s.calls++
	return s.err
}

func (s *stubAccount) IsAdmin(context.Context, uuid.UUID) (bool, error) {
	return s.admin, s.call()
}

func (s *stubAccount) GetUserRoles(_ context.Context, userID uuid.UUID) ([]string, error) {
	if err := s.call(); err != nil {
		return nil, err
	}
	if roles, ok := s.rolesByUser[userID]; ok {
		return roles, nil
	}
	return s.roles, nil
}

func (s *stubAccount) GetUserPermissions(context.Context, uuid.UUID) ([]string, error) {
	return s.permissions, s.call()
}

func (s *stubAccount) IsMFAEnabled(context.Context, uuid.UUID) (bool, error) {
	return s.mfaEnabled, s.call()
}

func (s *stubAccount) IsMFAVerified(context.Context, uuid.UUID) (bool, error) {
	return s.mfaVerified, s.call()
}

func (s *stubAccount) LastMFAVerification(context.Context, uuid.UUID) (*time.Time, error) {
	return s.lastMFA, s.call()
}

func (s *stubAccount) GetLockoutInfo(context.Context, uuid.UUID) (*model.LockoutInfo, error) {
	return s.lockout, s.call()
}

func (s *stubAccount) GetPasswordHistory(context.Context, uuid.UUID) ([]string, error) {
	return s.history, s.call()
}

func (s *stubAccount) IsCommonPassword(_ context.Context, password string) (bool, error) {
	return s.common[password], s.call()
}

func (s *stubAccount) GetUserProfile(context.Context, uuid.UUID) (*model.UserProfile, error) {
	return s.profile, s.call()
}

func providersFor(s *stubAccount) Providers {
	return Providers{
		Admins:          s,
		Roles:           s,
		Permissions:     s,
		MFA:             s,
		Lockouts:        s,
		PasswordHistory: s,
		CommonPasswords: s,
		Profiles:        s,
	}
}
