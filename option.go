package checkout

import (
	"time"

	"github.com/vitwit/checkout/clients"
	"github.com/vitwit/checkout/logger"
	"github.com/vitwit/checkout/metrics"
	"github.com/vitwit/checkout/refguard"
	"github.com/vitwit/checkout/types"
)

type Option func(*Checkout)

func WithLogger(l logger.Logger) Option {
	return func(c *Checkout) {
		c.logger = l
	}
}

func WithMetrics(r metrics.Recorder) Option {
	return func(c *Checkout) {
		c.metrics = r
	}
}

// WithSDK configures the native payment SDK bridge.
func WithSDK(sdk clients.PrimarySDK) Option {
	return func(c *Checkout) {
		c.sdk = sdk
	}
}

// WithEmbedded configures the hosted checkout page.
func WithEmbedded(e clients.EmbeddedCheckout) Option {
	return func(c *Checkout) {
		c.embedded = e
	}
}

// WithCapability reports whether the platform can run the primary SDK at
// all. Without it the SDK is considered supported whenever one is set.
func WithCapability(fn func() bool) Option {
	return func(c *Checkout) {
		c.capability = fn
	}
}

func WithClock(now func() time.Time) Option {
	return func(c *Checkout) {
		c.clock = now
	}
}

// WithReferenceGuard rejects payments whose merchant reference was already
// claimed.
func WithReferenceGuard(g refguard.Guard) Option {
	return func(c *Checkout) {
		c.guard = g
	}
}

func WithSignatureFormat(f types.SignatureFormat) Option {
	return func(c *Checkout) {
		c.format = f
	}
}
