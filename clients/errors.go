package clients

import (
	"fmt"

	"github.com/vitwit/checkout/types"
)

const (
	// -----------------------------
	// SELECTION
	// -----------------------------
	ReasonNoCapability     = "primary_sdk_not_supported_on_platform"
	ReasonEmbeddedMissing  = "embedded_checkout_not_configured"
	ReasonSDKMissing       = "primary_sdk_not_configured"
	ReasonUnknownTransport = "unknown_transport"

	// -----------------------------
	// PROBE
	// -----------------------------
	ReasonProbeFailed  = "availability_probe_failed"
	ReasonProbeTimeout = "availability_probe_timeout"
)

func unavailable(reason string, format string, args ...any) *types.CheckoutError {
	return &types.CheckoutError{
		Code:    types.ErrMethodUnavailable,
		Field:   reason,
		Message: fmt.Sprintf(format, args...),
	}
}
