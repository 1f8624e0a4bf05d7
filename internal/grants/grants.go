// Package grants looks up per-subject grants in an external store and turns
// them into asynchronous permissions.
package grants

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	actor "github.com/hanpama/permgraph/internal/actor"
	future "github.com/hanpama/permgraph/internal/future"
	permission "github.com/hanpama/permgraph/internal/permission"
)

// ErrStoreUnavailable wraps failures of the backing store.
var ErrStoreUnavailable = errors.New("grants: store unavailable")

// Store answers whether subject holds grant.
type Store interface {
	HasGrant(ctx context.Context, subject, grant string) (bool, error)
}

// RedisStore keeps the grants of each subject in a redis set keyed
// "<prefix>:<subject>".
type RedisStore struct {
	rdb    redis.UniversalClient
	prefix string
}

// NewRedisStore returns a store reading sets under prefix.
func NewRedisStore(rdb redis.UniversalClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "grants"
	}
	return &RedisStore{rdb: rdb, prefix: prefix}
}

func (s *RedisStore) key(subject string) string { return s.prefix + ":" + subject }

func (s *RedisStore) HasGrant(ctx context.Context, subject, grant string) (bool, error) {
	ok, err := s.rdb.SIsMember(ctx, s.key(subject), grant).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return ok, nil
}

// Grant adds grants to subject.
func (s *RedisStore) Grant(ctx context.Context, subject string, grants ...string) error {
	if len(grants) == 0 {
		return nil
	}
	members := make([]any, len(grants))
	for i, g := range grants {
		members[i] = g
	}
	if err := s.rdb.SAdd(ctx, s.key(subject), members...).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// Revoke removes grants from subject.
func (s *RedisStore) Revoke(ctx context.Context, subject string, grants ...string) error {
	if len(grants) == 0 {
		return nil
	}
	members := make([]any, len(grants))
	for i, g := range grants {
		members[i] = g
	}
	if err := s.rdb.SRem(ctx, s.key(subject), members...).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// Permission returns an asynchronous permission passing when the request's
// actor holds grant. Anonymous requests are denied without a lookup.
func Permission(name, grant string, store Store, opts ...permission.Option) *permission.Permission {
	return permission.NewAsync(name, func(ctx context.Context, _ any, _ map[string]any) *future.Future[bool] {
		a, ok := actor.FromContext(ctx)
		if !ok {
			return future.Resolved(false, nil)
		}
		return future.Go(ctx, func(ctx context.Context) (bool, error) {
			return store.HasGrant(ctx, a.Subject, grant)
		})
	}, opts...)
}
