package refguard

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryGuard_ClaimOnce(t *testing.T) {
	ctx := context.Background()
	g := NewMemoryGuard()

	require.NoError(t, g.Claim(ctx, "INV-1"))
	assert.Equal(t, StatusInProgress, g.status("INV-1"))
	assert.ErrorIs(t, g.Claim(ctx, "INV-1"), ErrDuplicate)

	require.NoError(t, g.Complete(ctx, "INV-1"))
	assert.Equal(t, StatusCompleted, g.status("INV-1"))
	assert.ErrorIs(t, g.Claim(ctx, "INV-1"), ErrDuplicate)

	assert.NoError(t, g.Claim(ctx, "INV-2"))
}

func TestMemoryGuard_Expiry(t *testing.T) {
	ctx := context.Background()
	now := time.Unix(1700000000, 0)
	g := NewMemoryGuard()
	g.now = func() time.Time { return now }

	require.NoError(t, g.Claim(ctx, "INV-1"))
	now = now.Add(InProgressExpiry)
	assert.Equal(t, "", g.status("INV-1"))
	assert.NoError(t, g.Claim(ctx, "INV-1"))
}

func TestMemoryGuard_ConcurrentClaims(t *testing.T) {
	g := NewMemoryGuard()
	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if g.Claim(context.Background(), "INV-1") == nil {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), wins.Load())
}

type fakeStore struct {
	mu   sync.Mutex
	keys map[string]any
	ttl  map[string]time.Duration
	err  error
}

func newFakeStore() *fakeStore {
	return &fakeStore{keys: map[string]any{}, ttl: map[string]time.Duration{}}
}

func (f *fakeStore) SetNX(_ context.Context, key string, value interface{}, exp time.Duration) *redis.BoolCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return redis.NewBoolResult(false, f.err)
	}
	if _, ok := f.keys[key]; ok {
		return redis.NewBoolResult(false, nil)
	}
	f.keys[key] = value
	f.ttl[key] = exp
	return redis.NewBoolResult(true, nil)
}

func (f *fakeStore) Set(_ context.Context, key string, value interface{}, exp time.Duration) *redis.StatusCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return redis.NewStatusResult("", f.err)
	}
	f.keys[key] = value
	f.ttl[key] = exp
	return redis.NewStatusResult("OK", nil)
}

func TestRedisGuard(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	g := NewRedisGuardFromStore(store)

	require.NoError(t, g.Claim(ctx, "INV-1"))
	assert.Equal(t, StatusInProgress, store.keys["checkout:ref:INV-1"])
	assert.Equal(t, InProgressExpiry, store.ttl["checkout:ref:INV-1"])
	assert.ErrorIs(t, g.Claim(ctx, "INV-1"), ErrDuplicate)

	require.NoError(t, g.Complete(ctx, "INV-1"))
	assert.Equal(t, StatusCompleted, store.keys["checkout:ref:INV-1"])
	assert.Equal(t, CompletedExpiry, store.ttl["checkout:ref:INV-1"])
}

func TestRedisGuard_StoreError(t *testing.T) {
	store := newFakeStore()
	store.err = errors.New("connection refused")
	g := NewRedisGuardFromStore(store)

	err := g.Claim(context.Background(), "INV-1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrDuplicate)
	assert.Contains(t, err.Error(), "connection refused")

	assert.Error(t, g.Complete(context.Background(), "INV-1"))
}

func TestRedisGuard_ImplementsGuard(t *testing.T) {
	var _ Guard = NewRedisGuard("localhost:6379", "", 0)
	var _ Guard = NewMemoryGuard()
}
