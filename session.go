package checkout

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/vitwit/checkout/clients"
	"github.com/vitwit/checkout/normalize"
	"github.com/vitwit/checkout/types"
)

// CancelledByCallerMessage is the failure message of a session cancelled
// through Session.Cancel or its context.
const CancelledByCallerMessage = "Payment cancelled by caller"

// Callbacks receive the single outcome of a session started with Start.
// Either may be nil.
type Callbacks struct {
	OnSuccess func(*types.SuccessRecord)
	OnError   func(*types.FailureRecord)
}

// Session is one in-flight payment.
type Session struct {
	latch clients.Latch
	cb    Callbacks

	// set at construction and never written again
	reference string
	amount    string

	// owned by the goroutine driving the payment until the latch fires
	fc      normalize.Context
	claimed bool

	// set once this session registered its embedded channel; Cancel only
	// closes a channel it owns
	opened atomic.Bool

	cancel   context.CancelFunc
	onCancel func()

	done     chan struct{}
	doneOnce sync.Once
	result   *types.TransactionResult
}

func newSession(req *types.TransactionRequest, cancel context.CancelFunc, cb Callbacks) *Session {
	s := &Session{
		cb:     cb,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	if req != nil {
		s.reference = req.MerchantReference
		s.amount = req.AmountMinorUnits
	}
	s.fc = normalize.Context{
		AmountMinorUnits:  s.amount,
		MerchantReference: s.reference,
	}
	return s
}

// Reference returns the merchant reference of the payment.
func (s *Session) Reference() string {
	return s.reference
}

// Done is closed once the session has a result.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Result returns the outcome, or nil while the payment is in flight.
func (s *Session) Result() *types.TransactionResult {
	select {
	case <-s.done:
		return s.result
	default:
		return nil
	}
}

// Cancel stops the payment. If no outcome has been delivered yet, none
// will be: the session resolves to a CANCELLED failure and no callback
// runs. If delivery already started Cancel does nothing. Safe to call
// more than once and from inside a callback.
func (s *Session) Cancel() {
	if !s.latch.Close() {
		s.cancel()
		return
	}
	s.cancel()
	if s.onCancel != nil {
		s.onCancel()
	}
	s.finish(types.NewFailure(types.FailureRecord{
		Code:              types.ErrCancelled,
		Message:           CancelledByCallerMessage,
		AmountMinorUnits:  s.amount,
		MerchantReference: s.reference,
	}))
}

// deliver runs the winning callback and resolves the session.
func (s *Session) deliver(res *types.TransactionResult) {
	switch {
	case res.IsSuccess():
		if s.cb.OnSuccess != nil {
			s.cb.OnSuccess(res.Success)
		}
	case res.Failure != nil:
		if s.cb.OnError != nil {
			s.cb.OnError(res.Failure)
		}
	}
	s.cancel()
	s.finish(res)
}

func (s *Session) finish(res *types.TransactionResult) {
	s.doneOnce.Do(func() {
		s.result = res
		close(s.done)
	})
}
