package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrUnavailable wraps every Redis transport failure. Callers must fail
// closed: a refresh that cannot consult the ledger is rejected, never waved
// through.
var ErrUnavailable = errors.New("ledger unavailable")

const minMarkerTTL = time.Second

// Store is the narrow atomic-operation interface over the shared Redis
// instance. It is stateless and safe for concurrent use from any number of
// engine instances.
type Store struct {
	redis  redis.UniversalClient
	prefix string
}

func NewStore(redisClient redis.UniversalClient, prefix string) *Store {
	if prefix == "" {
		prefix = "rt"
	}
	return &Store{
		redis:  redisClient,
		prefix: prefix,
	}
}

func (s *Store) consumedKey(jti string) string {
	return s.prefix + ":consumed:" + jti
}

func (s *Store) familyKey(family string) string {
	return s.prefix + ":invalidated_family:" + family
}

// MarkConsumed atomically flips a jti from unconsumed to consumed. The first
// caller wins and gets true; every later caller gets false and must classify
// the presentation as a replay.
func (s *Store) MarkConsumed(ctx context.Context, jti string, ttl time.Duration) (bool, error) {
	if ttl < minMarkerTTL {
		ttl = minMarkerTTL
	}

	ok, err := s.redis.SetNX(ctx, s.consumedKey(jti), "1", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return ok, nil
}

// IsConsumed reports whether the jti has already been rotated or revoked.
func (s *Store) IsConsumed(ctx context.Context, jti string) (bool, error) {
	n, err := s.redis.Exists(ctx, s.consumedKey(jti)).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return n > 0, nil
}

// InvalidateFamily poisons an entire lineage. Idempotent: re-invalidating an
// already-dead family refreshes the marker TTL and nothing else.
func (s *Store) InvalidateFamily(ctx context.Context, family string, ttl time.Duration) error {
	if ttl < minMarkerTTL {
		ttl = minMarkerTTL
	}

	if err := s.redis.Set(ctx, s.familyKey(family), "1", ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// IsFamilyInvalidated reports whether the lineage has been poisoned.
func (s *Store) IsFamilyInvalidated(ctx context.Context, family string) (bool, error) {
	n, err := s.redis.Exists(ctx, s.familyKey(family)).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return n > 0, nil
}
