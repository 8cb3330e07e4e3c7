// Package refguard flags reuse of a merchant reference across payment
// attempts. The gateway may treat a repeated reference as a duplicate or
// as an attempt to settle twice, so a claimed reference stays claimed
// until it expires whatever the outcome was.
package refguard

import (
	"context"
	"errors"
	"sync"
	"time"
)

// Reference states.
const (
	StatusInProgress = "IN_PROGRESS"
	StatusCompleted  = "COMPLETED"
)

const (
	// InProgressExpiry bounds how long an abandoned attempt holds its claim.
	InProgressExpiry = 15 * time.Minute
	CompletedExpiry  = 24 * time.Hour
)

// ErrDuplicate is returned by Claim when the reference was already used.
var ErrDuplicate = errors.New("merchant reference already used")

// Guard records merchant references seen by this client.
type Guard interface {
	// Claim marks reference as in progress. It returns ErrDuplicate if the
	// reference is in progress or completed.
	Claim(ctx context.Context, reference string) error
	// Complete marks reference as finished. The claim is kept.
	Complete(ctx context.Context, reference string) error
}

type entry struct {
	status  string
	expires time.Time
}

// MemoryGuard is a process-local Guard.
type MemoryGuard struct {
	mu   sync.Mutex
	refs map[string]entry
	now  func() time.Time
}

func NewMemoryGuard() *MemoryGuard {
	return &MemoryGuard{
		refs: make(map[string]entry),
		now:  time.Now,
	}
}

func (g *MemoryGuard) Claim(_ context.Context, reference string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	if e, ok := g.refs[reference]; ok && now.Before(e.expires) {
		return ErrDuplicate
	}
	g.refs[reference] = entry{status: StatusInProgress, expires: now.Add(InProgressExpiry)}
	return nil
}

func (g *MemoryGuard) Complete(_ context.Context, reference string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.refs[reference] = entry{status: StatusCompleted, expires: g.now().Add(CompletedExpiry)}
	return nil
}

// status returns the recorded state of reference, or "" if unknown or
// expired.
func (g *MemoryGuard) status(reference string) string {
	g.mu.Lock()
	defer g.mu.Unlock()

	e, ok := g.refs[reference]
	if !ok || !g.now().Before(e.expires) {
		return ""
	}
	return e.status
}
