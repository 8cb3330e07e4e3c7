package types

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// DefaultCurrencyCode is the ISO 4217 numeric code applied when a request
// leaves CurrencyCode empty (Libyan dinar).
const DefaultCurrencyCode = "434"

// TransportMethod identifies the channel that carries a signed request to
// the gateway.
type TransportMethod string

const (
	TransportPrimarySDK       TransportMethod = "primary_sdk"
	TransportEmbeddedCheckout TransportMethod = "embedded_checkout"
)

func (m TransportMethod) String() string {
	return string(m)
}

// Ptr is a convenience for passing an explicit override.
func (m TransportMethod) Ptr() *TransportMethod {
	return &m
}

// PaidThrough classifies the payment instrument reported by the gateway.
type PaidThrough string

const (
	PaidThroughCard   PaidThrough = "card"
	PaidThroughWallet PaidThrough = "wallet"
	PaidThroughOther  PaidThrough = "other"
)

// TransactionRequest is the immutable input of one payment attempt.
//
// MerchantReference must be unique per attempt. Reusing a reference for a
// retried signed request is unsafe from the gateway's point of view; callers
// that retry must generate a new one.
type TransactionRequest struct {
	MerchantID        string `json:"merchantId" validate:"required"`
	TerminalID        string `json:"terminalId" validate:"required"`
	MerchantReference string `json:"merchantReference" validate:"required"`

	// Amount in minor units (1 major unit = 1000 minor units), digits only.
	AmountMinorUnits string `json:"amountMinorUnits" validate:"required,digits"`

	// Merchant secret, hex encoded or raw. Never logged or persisted.
	MerchantSecret string `json:"-" validate:"required"`

	CurrencyCode      string `json:"currencyCode,omitempty" validate:"omitempty,digits,len=3"`
	IsTestEnvironment bool   `json:"isTestEnvironment"`
}

// WithDefaults returns a copy of the request with the default currency
// applied.
func (r TransactionRequest) WithDefaults() TransactionRequest {
	if r.CurrencyCode == "" {
		r.CurrencyCode = DefaultCurrencyCode
	}
	return r
}

// SigningContext is derived once per request and discarded after dispatch.
type SigningContext struct {
	// Unix seconds, used both in the canonical string and in the payload.
	LocalTimestamp  string `json:"localTimestamp"`
	CanonicalString string `json:"canonicalString"`
	// Uppercase hex HMAC-SHA256 digest.
	Signature string `json:"signature"`
}

// ResultKind discriminates TransactionResult.
type ResultKind string

const (
	ResultSuccess ResultKind = "success"
	ResultFailure ResultKind = "failure"
)

// SuccessRecord is the canonical success outcome. Everything except Amount
// and MerchantReference is transport dependent and may be empty.
type SuccessRecord struct {
	TransactionDate    string          `json:"transactionDate,omitempty"`
	SystemReference    string          `json:"systemReference,omitempty"`
	NetworkReference   string          `json:"networkReference,omitempty"`
	MerchantReference  string          `json:"merchantReference"`
	Amount             decimal.Decimal `json:"amount"`
	CurrencyCode       string          `json:"currencyCode,omitempty"`
	PaidThrough        PaidThrough     `json:"paidThrough,omitempty"`
	PaidThroughRaw     string          `json:"paidThroughRaw,omitempty"`
	PayerAccount       string          `json:"payerAccount,omitempty"`
	PayerName          string          `json:"payerName,omitempty"`
	ProviderSchemeName string          `json:"providerSchemeName,omitempty"`
	SecureHash         string          `json:"secureHash,omitempty"`
	DisplayData        string          `json:"displayData,omitempty"`
	TokenCustomerID    string          `json:"tokenCustomerId,omitempty"`
	TokenCard          string          `json:"tokenCard,omitempty"`
	AuthCode           string          `json:"authCode,omitempty"`
	Transport          TransportMethod `json:"transport"`
}

// FailureRecord is the canonical failure outcome.
type FailureRecord struct {
	Code              string          `json:"code"`
	Message           string          `json:"message"`
	AmountMinorUnits  string          `json:"amountMinorUnits"`
	MerchantReference string          `json:"merchantReference"`
	LocalTimestamp    string          `json:"localTimestamp,omitempty"`
	SecureHash        string          `json:"secureHash,omitempty"`
	Transport         TransportMethod `json:"transport,omitempty"`
}

// TransactionResult holds exactly one of Success or Failure.
type TransactionResult struct {
	Kind    ResultKind     `json:"kind"`
	Success *SuccessRecord `json:"success,omitempty"`
	Failure *FailureRecord `json:"failure,omitempty"`
}

func NewSuccess(rec SuccessRecord) *TransactionResult {
	return &TransactionResult{Kind: ResultSuccess, Success: &rec}
}

func NewFailure(rec FailureRecord) *TransactionResult {
	return &TransactionResult{Kind: ResultFailure, Failure: &rec}
}

func (r *TransactionResult) IsSuccess() bool {
	return r != nil && r.Kind == ResultSuccess && r.Success != nil
}

func (r *TransactionResult) String() string {
	switch {
	case r == nil:
		return "<nil>"
	case r.IsSuccess():
		return fmt.Sprintf("success ref=%s amount=%s via %s",
			r.Success.MerchantReference, r.Success.Amount.String(), r.Success.Transport)
	case r.Failure != nil:
		return fmt.Sprintf("failure ref=%s code=%s: %s",
			r.Failure.MerchantReference, r.Failure.Code, r.Failure.Message)
	default:
		return "empty result"
	}
}

// CheckoutError carries a taxonomy code. Helpers that run before dispatch
// return it; after dispatch it is folded into a FailureRecord.
type CheckoutError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

func (e *CheckoutError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return e.Message
}

func NewError(code, format string, args ...any) *CheckoutError {
	return &CheckoutError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Error codes
const (
	ErrInvalidAmount      = "INVALID_AMOUNT"
	ErrSigning            = "SIGNING_ERROR"
	ErrMethodUnavailable  = "METHOD_UNAVAILABLE"
	ErrMalformedResponse  = "MALFORMED_RESPONSE"
	ErrTransportFailure   = "TRANSPORT_FAILURE"
	ErrGatewayDeclined    = "GATEWAY_DECLINED"
	ErrInvalidRequest     = "INVALID_REQUEST"
	ErrDuplicateReference = "DUPLICATE_REFERENCE"
	ErrCancelled          = "CANCELLED"
)
