package clients

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/vitwit/checkout/logger"
	"github.com/vitwit/checkout/types"
)

// SelectorState is the resolution state of a Selector.
type SelectorState int

const (
	StateUnresolved SelectorState = iota
	StateResolving
	StateResolved
	StateUnavailable
)

func (s SelectorState) String() string {
	switch s {
	case StateUnresolved:
		return "unresolved"
	case StateResolving:
		return "resolving"
	case StateResolved:
		return "resolved"
	case StateUnavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}

// ProbeFunc asks the native layer whether the primary SDK can take a
// payment right now.
type ProbeFunc func(ctx context.Context) (bool, error)

// SelectorConfig carries the inputs of one resolution.
type SelectorConfig struct {
	// Override forces a method; nil lets the selector decide.
	Override *types.TransportMethod
	// Capability reports whether this platform can run the primary SDK.
	Capability func() bool
	// Probe is nil when no SDK bridge is configured.
	Probe             ProbeFunc
	EmbeddedAvailable bool
	ProbeTimeout      time.Duration
	Logger            logger.Logger
}

// Selector picks the transport for a single orchestration. It is not
// reused across payments because SDK availability can change between
// attempts.
type Selector struct {
	cfg SelectorConfig

	mu     sync.Mutex
	state  SelectorState
	method types.TransportMethod
	err    error
	probes int
}

func NewSelector(cfg SelectorConfig) *Selector {
	if cfg.ProbeTimeout <= 0 {
		cfg.ProbeTimeout = types.DefaultProbeTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.NoopLogger{}
	}
	if cfg.Capability == nil {
		cfg.Capability = func() bool { return false }
	}
	return &Selector{cfg: cfg}
}

// State returns the current resolution state.
func (s *Selector) State() SelectorState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Probes returns how many times the availability probe ran.
func (s *Selector) Probes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.probes
}

// Resolve runs the selection algorithm once; later calls return the same
// answer. The error is a *types.CheckoutError with code METHOD_UNAVAILABLE.
func (s *Selector) Resolve(ctx context.Context) (types.TransportMethod, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StateResolved:
		return s.method, nil
	case StateUnavailable:
		return "", s.err
	}

	s.state = StateResolving
	method, err := s.resolve(ctx)
	if err != nil {
		s.state = StateUnavailable
		s.err = err
		s.cfg.Logger.Warn("transport unavailable", map[string]any{"error": err.Error()})
		return "", err
	}

	s.state = StateResolved
	s.method = method
	s.cfg.Logger.Debug("transport resolved", map[string]any{"transport": method.String()})
	return method, nil
}

func (s *Selector) resolve(ctx context.Context) (types.TransportMethod, error) {
	if o := s.cfg.Override; o != nil {
		switch *o {
		case types.TransportEmbeddedCheckout:
			return s.embedded()
		case types.TransportPrimarySDK:
			if !s.cfg.Capability() {
				return "", unavailable(ReasonNoCapability, "primary SDK transport is not supported on this platform")
			}
			return s.sdkOrFallback(ctx)
		default:
			return "", unavailable(ReasonUnknownTransport, "unknown transport %q", string(*o))
		}
	}

	if s.cfg.Capability() {
		return s.sdkOrFallback(ctx)
	}
	return s.embedded()
}

func (s *Selector) sdkOrFallback(ctx context.Context) (types.TransportMethod, error) {
	if s.probe(ctx) {
		return types.TransportPrimarySDK, nil
	}
	return s.embedded()
}

func (s *Selector) embedded() (types.TransportMethod, error) {
	if !s.cfg.EmbeddedAvailable {
		return "", unavailable(ReasonEmbeddedMissing, "no payment transport is available")
	}
	return types.TransportEmbeddedCheckout, nil
}

// probe never blocks longer than ProbeTimeout; errors and timeouts count as
// unavailable.
func (s *Selector) probe(ctx context.Context) bool {
	if s.cfg.Probe == nil {
		s.cfg.Logger.Debug("primary SDK not configured", map[string]any{"reason": ReasonSDKMissing})
		return false
	}
	s.probes++

	probeCtx, cancel := context.WithTimeout(ctx, s.cfg.ProbeTimeout)
	defer cancel()

	type answer struct {
		ok  bool
		err error
	}
	ch := make(chan answer, 1)
	go func() {
		ok, err := s.cfg.Probe(probeCtx)
		ch <- answer{ok, err}
	}()

	select {
	case a := <-ch:
		if a.err != nil {
			s.cfg.Logger.Warn("availability probe failed", map[string]any{
				"reason": ReasonProbeFailed,
				"error":  a.err.Error(),
			})
			return false
		}
		return a.ok
	case <-probeCtx.Done():
		reason := ReasonProbeTimeout
		if errors.Is(ctx.Err(), context.Canceled) {
			reason = ReasonProbeFailed
		}
		s.cfg.Logger.Warn("availability probe did not answer", map[string]any{
			"reason":  reason,
			"timeout": s.cfg.ProbeTimeout.String(),
		})
		return false
	}
}
