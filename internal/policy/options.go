package policy

import (
	"strings"
	"time"

	"github.com/jwalitptl/account-policy/pkg/logger"
	"github.com/jwalitptl/account-policy/pkg/security"
)

// Option customizes a policy or the manager at construction time.
type Option func(*options)

type options struct {
	now    func() time.Time
	logger *logger.Logger
	hasher security.PasswordHasher
}

func newOptions(opts []Option) options {
	o := options{
		now:    time.Now,
		logger: logger.Nop(),
		hasher: security.NewBcryptHasher(0),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

func WithLogger(l *logger.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithHasher sets the hasher used to match candidates against password history.
func WithHasher(h security.PasswordHasher) Option {
	return func(o *options) {
		if h != nil {
			o.hasher = h
		}
	}
}

func containsFold(values []string, target string) bool {
	for _, v := range values {
		if strings.EqualFold(v, target) {
			return true
		}
	}
	return false
}

func hasAnyRole(roles, wanted []string) bool {
	for _, r := range roles {
		if containsFold(wanted, r) {
			return true
		}
	}
	return false
}
