package redis

import (
	"context"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/jwalitptl/account-policy/internal/repository"
)

const defaultCommonPasswordsKey = "policy:common_passwords"

// CommonPasswordStore checks candidates against a Redis set of lowercased
// common passwords.
type CommonPasswordStore struct {
	client *redis.Client
	key    string
}

var _ repository.CommonPasswordChecker = (*CommonPasswordStore)(nil)

func NewCommonPasswordStore(client *redis.Client, key string) *CommonPasswordStore {
	if key == "" {
		key = defaultCommonPasswordsKey
	}
	return &CommonPasswordStore{client: client, key: key}
}

func normalize(password string) string {
	return strings.ToLower(strings.TrimSpace(password))
}

func (s *CommonPasswordStore) IsCommonPassword(ctx context.Context, password string) (bool, error) {
	candidate := normalize(password)
	if candidate == "" {
		return false, nil
	}

	found, err := s.client.SIsMember(ctx, s.key, candidate).Result()
	if err != nil {
		return false, fmt.Errorf("common password lookup failed: %w", err)
	}
	return found, nil
}

// Add loads passwords into the set. Blank entries are skipped.
func (s *CommonPasswordStore) Add(ctx context.Context, passwords ...string) (int64, error) {
	members := make([]interface{}, 0, len(passwords))
	for _, p := range passwords {
		if n := normalize(p); n != "" {
			members = append(members, n)
		}
	}
	if len(members) == 0 {
		return 0, nil
	}

	added, err := s.client.SAdd(ctx, s.key, members...).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to add common passwords: %w", err)
	}
	return added, nil
}

func (s *CommonPasswordStore) Count(ctx context.Context) (int64, error) {
	return s.client.SCard(ctx, s.key).Result()
}
