package metrics

import "time"

type Recorder interface {
	IncCounter(name string, labels map[string]string)
	ObserveLatency(name string, duration time.Duration, labels map[string]string)
}

// Event names recorded by the orchestrator.
const (
	EventPaymentStarted    = "payment_started"
	EventPaymentSucceeded  = "payment_succeeded"
	EventPaymentFailed     = "payment_failed"
	EventDuplicateDropped  = "duplicate_outcome_dropped"
	EventTransportFallback = "transport_fallback"

	OpExecute = "execute"
	OpProbe   = "probe"
)

// LabelTransport is the only label dimension besides the event name.
const LabelTransport = "transport"

// NoopRecorder discards everything; it is the default.
type NoopRecorder struct{}

func (NoopRecorder) IncCounter(string, map[string]string)                    {}
func (NoopRecorder) ObserveLatency(string, time.Duration, map[string]string) {}
