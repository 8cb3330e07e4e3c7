package refguard

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store is the subset of redis.Cmdable the guard needs.
type Store interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// RedisGuard shares claims between client processes through Redis.
type RedisGuard struct {
	store  Store
	prefix string
}

// NewRedisGuard connects to addr. The connection is not checked until the
// first claim.
func NewRedisGuard(addr, password string, db int) *RedisGuard {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return NewRedisGuardFromStore(rdb)
}

func NewRedisGuardFromStore(store Store) *RedisGuard {
	return &RedisGuard{store: store, prefix: "checkout:ref:"}
}

func (g *RedisGuard) key(reference string) string {
	return g.prefix + reference
}

// Claim uses SET NX, so two processes racing on one reference cannot both
// win.
func (g *RedisGuard) Claim(ctx context.Context, reference string) error {
	set, err := g.store.SetNX(ctx, g.key(reference), StatusInProgress, InProgressExpiry).Result()
	if err != nil {
		return fmt.Errorf("redis SETNX error: %w", err)
	}
	if !set {
		return ErrDuplicate
	}
	return nil
}

func (g *RedisGuard) Complete(ctx context.Context, reference string) error {
	if err := g.store.Set(ctx, g.key(reference), StatusCompleted, CompletedExpiry).Err(); err != nil {
		return fmt.Errorf("redis SET error: %w", err)
	}
	return nil
}
