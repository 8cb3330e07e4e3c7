package clients

import (
	"context"
)

// Callbacks receive the terminal events of an embedded checkout session.
// A channel may invoke them more than once; callers guard with a Latch.
type Callbacks struct {
	OnComplete func(payload map[string]any)
	OnError    func(payload map[string]any)
	OnCancel   func()
}

// EmbeddedCheckout hosts the gateway's checkout page and reports the
// outcome asynchronously through Callbacks.
type EmbeddedCheckout interface {
	Open(ctx context.Context, cfg EmbeddedConfig, cb Callbacks) error
	// Close stops delivery for the session opened with reference.
	Close(reference string) error
}

// PrimarySDK is the native payment SDK bridge.
type PrimarySDK interface {
	IsAvailable(ctx context.Context) (bool, error)
	GetVersion(ctx context.Context) (map[string]any, error)
	Pay(ctx context.Context, args map[string]any) (map[string]any, error)
}
