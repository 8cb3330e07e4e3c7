// Package checkout is the client core of a hosted card and wallet payment
// gateway. It converts amounts, signs requests, picks a transport for each
// payment and turns whatever the transport reports into one canonical
// result.
package checkout

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/vitwit/checkout/amount"
	"github.com/vitwit/checkout/clients"
	"github.com/vitwit/checkout/logger"
	"github.com/vitwit/checkout/metrics"
	"github.com/vitwit/checkout/normalize"
	"github.com/vitwit/checkout/refguard"
	"github.com/vitwit/checkout/signer"
	"github.com/vitwit/checkout/types"
	"github.com/vitwit/checkout/utils"
)

// Checkout orchestrates payments. It holds configuration and transport
// bridges only; every payment gets its own selector, signing context and
// latch, so concurrent payments share no mutable state.
type Checkout struct {
	config     *types.Config
	logger     logger.Logger
	metrics    metrics.Recorder
	sdk        clients.PrimarySDK
	embedded   clients.EmbeddedCheckout
	capability func() bool
	clock      func() time.Time
	guard      refguard.Guard
	format     types.SignatureFormat
}

// New creates a Checkout. A nil cfg means DefaultConfig.
func New(cfg *types.Config, opts ...Option) *Checkout {
	if cfg == nil {
		cfg = types.DefaultConfig()
	}

	c := &Checkout{
		config:  cfg,
		logger:  logger.NoopLogger{},
		metrics: metrics.NoopRecorder{},
		clock:   time.Now,
		format:  cfg.SignatureFormat,
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.format == "" {
		c.format = types.SignatureRaw
	}
	if c.capability == nil {
		c.capability = func() bool { return c.sdk != nil }
	}
	return c
}

// NewFromEnv loads configuration from CHECKOUT_* variables and wires a zap
// logger at the configured level. When metrics are enabled the Prometheus
// recorder is registered with reg. Options are applied last.
func NewFromEnv(reg prometheus.Registerer, opts ...Option) (*Checkout, error) {
	cfg, err := types.LoadConfigFromEnv()
	if err != nil {
		return nil, err
	}

	log, err := logger.NewZapLogger(cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	base := []Option{WithLogger(log)}
	if cfg.EnableMetrics {
		rec, err := metrics.NewPrometheusRecorder(reg)
		if err != nil {
			return nil, err
		}
		base = append(base, WithMetrics(rec))
	}

	return New(cfg, append(base, opts...)...), nil
}

// Execute runs one payment and blocks until its single terminal outcome.
// It never returns an error: every problem is reported as a Failure.
//
// Execute does not retry. A retry must use a new MerchantReference;
// resubmitting a signed request under a reference the gateway has already
// seen is unsafe. NewMerchantReference generates one.
//
// If ctx ends first the payment is cancelled and a CANCELLED failure is
// returned, unless an outcome was already being delivered.
func (c *Checkout) Execute(ctx context.Context, req *types.TransactionRequest, override *types.TransportMethod) *types.TransactionResult {
	s := c.Start(ctx, req, override, Callbacks{})

	select {
	case <-s.Done():
	case <-ctx.Done():
		s.Cancel()
		<-s.Done()
	}
	return s.Result()
}

// Start begins a payment and returns immediately. Exactly one of
// cb.OnSuccess or cb.OnError is called unless the session is cancelled
// first, either through Session.Cancel or by ctx ending.
func (c *Checkout) Start(ctx context.Context, req *types.TransactionRequest, override *types.TransportMethod, cb Callbacks) *Session {
	runCtx, cancel := context.WithCancel(ctx)

	s := newSession(req, cancel, cb)
	s.onCancel = func() {
		if c.embedded != nil && s.opened.Load() {
			_ = c.embedded.Close(s.reference)
		}
		c.logger.Info("payment cancelled", map[string]any{"merchantReference": s.reference})
	}

	go func() {
		<-runCtx.Done()
		s.Cancel()
	}()
	go c.run(runCtx, s, req, override)
	return s
}

func (c *Checkout) run(ctx context.Context, s *Session, req *types.TransactionRequest, override *types.TransportMethod) {
	started := c.clock()
	c.metrics.IncCounter(metrics.EventPaymentStarted, nil)

	if err := utils.ValidateForExecution(req); err != nil {
		c.fail(s, types.ErrInvalidRequest, err)
		return
	}
	r := *req
	if r.CurrencyCode == "" {
		r.CurrencyCode = c.config.CurrencyCode
	}
	r = r.WithDefaults()

	if c.guard != nil {
		if err := c.guard.Claim(ctx, r.MerchantReference); err != nil {
			if errors.Is(err, refguard.ErrDuplicate) {
				c.fail(s, types.ErrDuplicateReference, types.NewError(types.ErrDuplicateReference,
					"merchant reference %s was already used; a retry needs a new merchant reference", r.MerchantReference))
				return
			}
			c.fail(s, types.ErrTransportFailure, types.NewError(types.ErrTransportFailure, "reference guard unavailable: %v", err))
			return
		}
		s.claimed = true
	}

	s.fc.LocalTimestamp = strconv.FormatInt(c.clock().Unix(), 10)

	method, err := c.resolve(ctx, override)
	if err != nil {
		c.fail(s, types.ErrMethodUnavailable, err)
		return
	}
	s.fc.Transport = method

	sc, err := signer.Sign(&r, s.fc.LocalTimestamp)
	if err != nil {
		c.fail(s, types.ErrSigning, err)
		return
	}

	c.logger.Info("payment dispatched", map[string]any{
		"merchantReference": r.MerchantReference,
		"transport":         method.String(),
		"environment":       string(types.EnvironmentFor(r.IsTestEnvironment)),
	})

	finish := func(o normalize.Outcome) {
		res := normalize.Normalize(method, o, s.fc)
		c.complete(s, res, started)
	}

	// cancelled while resolving; Cancel already resolved the session
	if ctx.Err() != nil {
		return
	}

	switch method {
	case types.TransportPrimarySDK:
		c.paySDK(ctx, s, &r, finish)
	case types.TransportEmbeddedCheckout:
		c.openEmbedded(ctx, s, &r, sc, finish)
	}
}

func (c *Checkout) resolve(ctx context.Context, override *types.TransportMethod) (types.TransportMethod, error) {
	var probe clients.ProbeFunc
	if c.sdk != nil {
		probe = func(ctx context.Context) (bool, error) {
			start := time.Now()
			ok, err := c.sdk.IsAvailable(ctx)
			c.metrics.ObserveLatency(metrics.OpProbe, time.Since(start), map[string]string{
				metrics.LabelTransport: types.TransportPrimarySDK.String(),
			})
			return ok, err
		}
	}

	sel := clients.NewSelector(clients.SelectorConfig{
		Override:          override,
		Capability:        c.capability,
		Probe:             probe,
		EmbeddedAvailable: c.embedded != nil,
		ProbeTimeout:      c.config.ProbeTimeout,
		Logger:            c.logger,
	})

	method, err := sel.Resolve(ctx)
	c.logger.Debug("transport selection finished", map[string]any{
		"state":  sel.State().String(),
		"probes": sel.Probes(),
	})
	if err == nil && method == types.TransportEmbeddedCheckout && sel.Probes() > 0 {
		c.metrics.IncCounter(metrics.EventTransportFallback, map[string]string{
			metrics.LabelTransport: method.String(),
		})
	}
	return method, err
}

func (c *Checkout) paySDK(ctx context.Context, s *Session, r *types.TransactionRequest, finish func(normalize.Outcome)) {
	args, err := clients.SDKArgs(r)
	if err != nil {
		if s.latch.Fire() {
			finish(normalize.Outcome{Err: err})
		}
		return
	}

	resp, err := c.sdk.Pay(ctx, args)
	if err != nil && ctx.Err() != nil {
		s.Cancel()
		return
	}
	if !s.latch.Fire() {
		c.dropped(s)
		return
	}
	finish(normalize.Outcome{Payload: resp, Err: err})
}

func (c *Checkout) openEmbedded(ctx context.Context, s *Session, r *types.TransactionRequest, sc *types.SigningContext, finish func(normalize.Outcome)) {
	endpoint := c.config.Endpoints.For(types.EnvironmentFor(r.IsTestEnvironment))
	cfg := clients.NewEmbeddedConfig(r, sc, endpoint, c.format)

	ref := r.MerchantReference
	closeChannel := func() {
		if err := c.embedded.Close(ref); err != nil {
			c.logger.Debug("embedded checkout already closed", map[string]any{"merchantReference": ref})
		}
	}

	cb := s.latch.GuardWithDrop(clients.Callbacks{
		OnComplete: func(p map[string]any) {
			closeChannel()
			finish(normalize.Outcome{Kind: normalize.OutcomeSuccess, Payload: p})
		},
		OnError: func(p map[string]any) {
			closeChannel()
			finish(normalize.Outcome{Kind: normalize.OutcomeError, Payload: p})
		},
		OnCancel: func() {
			closeChannel()
			finish(normalize.Outcome{Kind: normalize.OutcomeCancelled})
		},
	}, func() { c.dropped(s) })

	if err := c.embedded.Open(ctx, cfg, cb); err != nil {
		if s.latch.Fire() {
			finish(normalize.Outcome{Err: err})
		}
		return
	}
	s.opened.Store(true)

	// Cancel may have run before the channel was registered.
	if ctx.Err() != nil && !s.latch.Fired() {
		closeChannel()
	}
}

// fail delivers a pre-dispatch failure. err is usually a
// *types.CheckoutError whose message is used as is.
func (c *Checkout) fail(s *Session, code string, err error) {
	if !s.latch.Fire() {
		return
	}
	msg := err.Error()
	var ce *types.CheckoutError
	if errors.As(err, &ce) {
		msg = ce.Message
	}
	c.complete(s, types.NewFailure(types.FailureRecord{
		Code:              code,
		Message:           msg,
		AmountMinorUnits:  s.fc.AmountMinorUnits,
		MerchantReference: s.fc.MerchantReference,
		LocalTimestamp:    s.fc.LocalTimestamp,
		Transport:         s.fc.Transport,
	}), time.Time{})
}

// complete is called at most once per session, by whoever won the latch.
func (c *Checkout) complete(s *Session, res *types.TransactionResult, started time.Time) {
	labels := map[string]string{metrics.LabelTransport: s.fc.Transport.String()}
	if !started.IsZero() {
		c.metrics.ObserveLatency(metrics.OpExecute, c.clock().Sub(started), labels)
	}

	if s.claimed {
		if err := c.guard.Complete(context.Background(), s.fc.MerchantReference); err != nil {
			c.logger.Warn("failed to record completed reference", map[string]any{
				"merchantReference": s.fc.MerchantReference,
				"error":             err.Error(),
			})
		}
	}

	if res.IsSuccess() {
		c.metrics.IncCounter(metrics.EventPaymentSucceeded, labels)
		c.logger.Info("payment succeeded", map[string]any{
			"merchantReference": res.Success.MerchantReference,
			"systemReference":   res.Success.SystemReference,
			"transport":         res.Success.Transport.String(),
		})
	} else {
		c.metrics.IncCounter(metrics.EventPaymentFailed, labels)
		c.logger.Warn("payment failed", map[string]any{
			"merchantReference": res.Failure.MerchantReference,
			"code":              res.Failure.Code,
			"message":           res.Failure.Message,
			"transport":         res.Failure.Transport.String(),
		})
	}

	s.deliver(res)
}

// dropped records an event that lost the latch to an earlier outcome.
// Events that arrive after Cancel are not counted.
func (c *Checkout) dropped(s *Session) {
	if !s.latch.Fired() {
		return
	}
	c.metrics.IncCounter(metrics.EventDuplicateDropped, map[string]string{
		metrics.LabelTransport: s.fc.Transport.String(),
	})
	c.logger.Debug("dropped outcome after terminal event", map[string]any{"merchantReference": s.fc.MerchantReference})
}

// SDKVersion returns the primary SDK's version diagnostics.
func (c *Checkout) SDKVersion(ctx context.Context) (map[string]any, error) {
	if c.sdk == nil {
		return nil, types.NewError(types.ErrMethodUnavailable, "primary SDK is not configured")
	}
	return c.sdk.GetVersion(ctx)
}

// Endpoint returns the gateway checkout script URL for the environment.
func (c *Checkout) Endpoint(isTest bool) string {
	return c.config.Endpoints.For(types.EnvironmentFor(isTest))
}

// NewMerchantReference returns a fresh reference suitable for one attempt.
func NewMerchantReference() string {
	return uuid.NewString()
}

// Version information
const Version = "1.0.0"

// GetVersion returns version information
func GetVersion() map[string]interface{} {
	return map[string]interface{}{
		"library_version": Version,
		"transports": []string{
			types.TransportPrimarySDK.String(),
			types.TransportEmbeddedCheckout.String(),
		},
		"signature_algorithm": "HMAC-SHA256",
		"currency_decimals":   amount.Decimals,
	}
}
