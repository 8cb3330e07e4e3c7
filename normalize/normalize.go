// Package normalize turns raw transport payloads into the canonical
// TransactionResult. Each transport has its own adapter; neither ever
// panics or returns an error, every unexpected shape becomes a Failure.
package normalize

import (
	"encoding/json"
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/vitwit/checkout/types"
	"github.com/vitwit/checkout/utils"
)

const (
	DefaultFailureMessage = "Payment failed"
	CancelledMessage      = "Payment cancelled by user"
)

// OutcomeKind is the discriminant a transport attaches to a raw payload.
type OutcomeKind int

const (
	OutcomeSuccess OutcomeKind = iota
	OutcomeError
	OutcomeCancelled
)

// Outcome is one raw terminal event from a transport. Err is set when the
// transport itself failed and Payload is meaningless.
type Outcome struct {
	Kind    OutcomeKind
	Payload map[string]any
	Err     error
}

// Context carries the request-side values echoed in every failure.
type Context struct {
	AmountMinorUnits  string
	MerchantReference string
	LocalTimestamp    string
	Transport         types.TransportMethod
}

// Normalize routes to the adapter for method.
func Normalize(method types.TransportMethod, o Outcome, fc Context) *types.TransactionResult {
	fc.Transport = method
	switch method {
	case types.TransportEmbeddedCheckout:
		return Embedded(o, fc)
	case types.TransportPrimarySDK:
		return SDK(o, fc)
	default:
		return fc.failure(types.ErrTransportFailure, fmt.Sprintf("unknown transport %q", string(method)), "")
	}
}

func (fc Context) failure(code, msg, secureHash string) *types.TransactionResult {
	return types.NewFailure(types.FailureRecord{
		Code:              code,
		Message:           msg,
		AmountMinorUnits:  fc.AmountMinorUnits,
		MerchantReference: fc.MerchantReference,
		LocalTimestamp:    fc.LocalTimestamp,
		SecureHash:        secureHash,
		Transport:         fc.Transport,
	})
}

func (fc Context) malformed(format string, args ...any) *types.TransactionResult {
	return fc.failure(types.ErrMalformedResponse, fmt.Sprintf(format, args...), "")
}

// recoverMalformed converts a panic inside an adapter into a Failure.
func recoverMalformed(fc Context, res **types.TransactionResult) {
	if r := recover(); r != nil {
		*res = fc.malformed("unexpected payload shape: %v", r)
	}
}

// declined builds the failure for an error payload.
func declined(fc Context, payload map[string]any, hashKeys ...string) *types.TransactionResult {
	return fc.failure(types.ErrGatewayDeclined, errorMessage(payload), str(payload, hashKeys...))
}

// errorMessage reads "error" then "message", falling back to the default.
func errorMessage(payload map[string]any) string {
	for _, k := range []string{"error", "message"} {
		v, ok := payload[k]
		if !ok || v == nil {
			continue
		}
		if s := strings.TrimSpace(scalar(v)); s != "" {
			return s
		}
	}
	return DefaultFailureMessage
}

// str returns the first non-empty value among keys rendered as a string.
func str(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if v, ok := m[k]; ok && v != nil {
			if s := scalar(v); s != "" {
				return s
			}
		}
	}
	return ""
}

func scalar(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprintf("%v", t)
	}
}

// number parses a numeric field that may arrive as a string or a native
// number. The error names the offending type for diagnosis.
func number(m map[string]any, key string) (decimal.Decimal, error) {
	v, ok := m[key]
	if !ok || v == nil {
		return decimal.Zero, fmt.Errorf("missing %s field", key)
	}

	var (
		d   decimal.Decimal
		err error
	)
	switch t := v.(type) {
	case string:
		d, err = plain(strings.TrimSpace(t))
		if err != nil {
			return decimal.Zero, fmt.Errorf("%s %q (%T) is not numeric", key, t, v)
		}
	case json.Number:
		d, err = plain(t.String())
		if err != nil {
			return decimal.Zero, fmt.Errorf("%s %q (%T) is not numeric", key, t.String(), v)
		}
	case float64:
		d = decimal.NewFromFloat(t)
	case float32:
		d = decimal.NewFromFloat32(t)
	case int:
		d = decimal.NewFromInt(int64(t))
	case int8:
		d = decimal.NewFromInt(int64(t))
	case int16:
		d = decimal.NewFromInt(int64(t))
	case int32:
		d = decimal.NewFromInt32(t)
	case int64:
		d = decimal.NewFromInt(t)
	case uint:
		d = fromUint(uint64(t))
	case uint8:
		d = fromUint(uint64(t))
	case uint16:
		d = fromUint(uint64(t))
	case uint32:
		d = fromUint(uint64(t))
	case uint64:
		d = fromUint(t)
	default:
		return decimal.Zero, fmt.Errorf("%s has unexpected type %T (%v)", key, v, v)
	}

	if d.IsNegative() {
		return decimal.Zero, fmt.Errorf("%s %s is negative", key, d.String())
	}
	return d, nil
}

func fromUint(u uint64) decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(u), 0)
}

// plain parses digits with an optional fraction. Exponent notation is
// refused so a short string cannot expand into an unbounded integer.
func plain(s string) (decimal.Decimal, error) {
	if !utils.IsPlainDecimal(s) {
		return decimal.Zero, fmt.Errorf("not a plain decimal")
	}
	return decimal.NewFromString(s)
}

// reference checks that the gateway echoed the reference we sent.
func reference(fc Context, got string) (string, error) {
	switch {
	case got == "":
		return fc.MerchantReference, nil
	case fc.MerchantReference != "" && got != fc.MerchantReference:
		return "", fmt.Errorf("merchant reference mismatch: sent %q, gateway returned %q", fc.MerchantReference, got)
	default:
		return got, nil
	}
}

// classify maps the gateway's instrument label onto PaidThrough.
func classify(raw string) types.PaidThrough {
	r := strings.ToLower(strings.TrimSpace(raw))
	switch {
	case r == "":
		return ""
	case strings.Contains(r, "card"), strings.Contains(r, "visa"), strings.Contains(r, "master"):
		return types.PaidThroughCard
	case strings.Contains(r, "wallet"), strings.Contains(r, "mobile"), strings.Contains(r, "tahweel"):
		return types.PaidThroughWallet
	default:
		return types.PaidThroughOther
	}
}
