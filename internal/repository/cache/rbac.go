package cache

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"github.com/jwalitptl/account-policy/internal/repository"
)

// Authorizations is the read side the RBAC cache wraps.
type Authorizations interface {
	repository.AdminChecker
	repository.RoleProvider
	repository.PermissionProvider
}

// RBACCache memoizes role, permission and admin lookups for a short TTL.
// Lockout and MFA state are never cached since they change on every login.
type RBACCache struct {
	next  Authorizations
	cache *cache.Cache
}

var _ Authorizations = (*RBACCache)(nil)

// NewRBACCache wraps next. A non-positive ttl falls back to one minute.
func NewRBACCache(next Authorizations, ttl, cleanupInterval time.Duration) *RBACCache {
	if ttl <= 0 {
		ttl = time.Minute
	}
	if cleanupInterval <= 0 {
		cleanupInterval = 5 * ttl
	}
	return &RBACCache{
		next:  next,
		cache: cache.New(ttl, cleanupInterval),
	}
}

func key(kind string, userID uuid.UUID) string {
	return kind + ":" + userID.String()
}

func (c *RBACCache) IsAdmin(ctx context.Context, userID uuid.UUID) (bool, error) {
	k := key("admin", userID)
	if cached, found := c.cache.Get(k); found {
		return cached.(bool), nil
	}

	isAdmin, err := c.next.IsAdmin(ctx, userID)
	if err != nil {
		return false, err
	}
	c.cache.Set(k, isAdmin, cache.DefaultExpiration)
	return isAdmin, nil
}

func (c *RBACCache) GetUserRoles(ctx context.Context, userID uuid.UUID) ([]string, error) {
	return c.cachedList(key("roles", userID), func() ([]string, error) {
		return c.next.GetUserRoles(ctx, userID)
	})
}

func (c *RBACCache) GetUserPermissions(ctx context.Context, userID uuid.UUID) ([]string, error) {
	return c.cachedList(key("permissions", userID), func() ([]string, error) {
		return c.next.GetUserPermissions(ctx, userID)
	})
}

// Invalidate drops every cached entry for the user.
func (c *RBACCache) Invalidate(userID uuid.UUID) {
	for _, kind := range []string{"admin", "roles", "permissions"} {
		c.cache.Delete(key(kind, userID))
	}
}

// Errors are not cached. Callers get a copy so they cannot mutate the entry.
func (c *RBACCache) cachedList(k string, load func() ([]string, error)) ([]string, error) {
	if cached, found := c.cache.Get(k); found {
		return append([]string(nil), cached.([]string)...), nil
	}

	values, err := load()
	if err != nil {
		return nil, err
	}
	c.cache.Set(k, append([]string(nil), values...), cache.DefaultExpiration)
	return values, nil
}
