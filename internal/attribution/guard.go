package attribution

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopsignal/attribution-backend/pkg/redis"
)

// IdempotencyGuard short-circuits repeated order notifications before they
// reach the database. The unique index on attributed_orders stays the source
// of truth; the guard only saves work on the hot path.
type IdempotencyGuard struct {
	store redis.IdempotencyStore
	ttl   time.Duration
	scope string
}

func NewIdempotencyGuard(store redis.IdempotencyStore, ttl time.Duration, scope string) (*IdempotencyGuard, error) {
	if store == nil {
		return nil, errors.New("idempotency store is required")
	}
	if ttl < 0 {
		return nil, errors.New("ttl must be non-negative")
	}
	if scope == "" {
		return nil, errors.New("scope is required")
	}
	return &IdempotencyGuard{
		store: store,
		ttl:   ttl,
		scope: scope,
	}, nil
}

// CheckAndMark returns true when the order was already seen.
func (g *IdempotencyGuard) CheckAndMark(ctx context.Context, orderKey string) (bool, error) {
	if orderKey == "" {
		return false, errors.New("order key is required")
	}
	key := g.store.IdempotencyKey(g.scope, orderKey)
	set, err := g.store.SetNX(ctx, key, "1", g.ttl)
	if err != nil {
		return false, fmt.Errorf("set idempotency key: %w", err)
	}
	return !set, nil
}

// Delete clears the mark so a failed attempt can be retried.
func (g *IdempotencyGuard) Delete(ctx context.Context, orderKey string) error {
	if orderKey == "" {
		return errors.New("order key is required")
	}
	key := g.store.IdempotencyKey(g.scope, orderKey)
	return g.store.Del(ctx, key)
}
