package security

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrHashingFailed = errors.New("password hashing failed")
	ErrEmptyPassword = errors.New("password is empty")
)

// PasswordHasher hashes passwords and matches candidates against stored
// hashes, such as entries of a password history.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hashedPassword, password string) error
}

type bcryptHasher struct {
	cost int
}

// NewBcryptHasher creates a new password hasher using bcrypt
func NewBcryptHasher(cost int) PasswordHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &bcryptHasher{cost: cost}
}

func (b *bcryptHasher) Hash(password string) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}

	bytes, err := bcrypt.GenerateFromPassword([]byte(password), b.cost)
	if err != nil {
		return "", ErrHashingFailed
	}
	return string(bytes), nil
}

func (b *bcryptHasher) Compare(hashedPassword, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
}

// MatchesAny reports whether password matches one of the first limit hashes.
// A limit of zero or less checks nothing.
func MatchesAny(h PasswordHasher, hashes []string, password string, limit int) bool {
	if h == nil || limit <= 0 {
		return false
	}
	if len(hashes) < limit {
		limit = len(hashes)
	}
	for _, hashed := range hashes[:limit] {
		if hashed == "" {
			continue
		}
		if h.Compare(hashed, password) == nil {
			return true
		}
	}
	return false
}
