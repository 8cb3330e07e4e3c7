package clients

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/vitwit/checkout/amount"
	"github.com/vitwit/checkout/signer"
	"github.com/vitwit/checkout/types"
)

// EmbeddedConfig is the configuration handed to the hosted checkout page.
type EmbeddedConfig struct {
	MerchantID        string `json:"MID"`
	TerminalID        string `json:"TID"`
	AmountMinorUnits  string `json:"AmountTrxn"`
	MerchantReference string `json:"MerchantReference"`
	LocalTimestamp    string `json:"TrxDateTime"`
	// SecureHash as rendered by the configured SignatureFormat.
	SecureHash string `json:"SecureHash"`
	// Endpoint of the checkout script for the selected environment.
	Endpoint string `json:"-"`
}

// NewEmbeddedConfig builds the embedded checkout configuration from a
// request and its signing context.
func NewEmbeddedConfig(req *types.TransactionRequest, sc *types.SigningContext, endpoint string, format types.SignatureFormat) EmbeddedConfig {
	return EmbeddedConfig{
		MerchantID:        req.MerchantID,
		TerminalID:        req.TerminalID,
		AmountMinorUnits:  req.AmountMinorUnits,
		MerchantReference: req.MerchantReference,
		LocalTimestamp:    sc.LocalTimestamp,
		SecureHash:        signer.Render(sc.Signature, format),
		Endpoint:          endpoint,
	}
}

// Fields returns the configuration as flat key/values with the hash
// unquoted, for the alternate embedding path.
func (c EmbeddedConfig) Fields() map[string]string {
	return map[string]string{
		"MID":               c.MerchantID,
		"TID":               c.TerminalID,
		"AmountTrxn":        c.AmountMinorUnits,
		"MerchantReference": c.MerchantReference,
		"TrxDateTime":       c.LocalTimestamp,
		"SecureHash":        signer.Unquote(c.SecureHash),
	}
}

// Script renders the configuration as a JavaScript object literal with the
// hash quoted, as the checkout script expects.
func (c EmbeddedConfig) Script() string {
	var b strings.Builder
	b.WriteString("{\n")
	fmt.Fprintf(&b, "  MID: %s,\n", strconv.Quote(c.MerchantID))
	fmt.Fprintf(&b, "  TID: %s,\n", strconv.Quote(c.TerminalID))
	fmt.Fprintf(&b, "  AmountTrxn: %s,\n", c.AmountMinorUnits)
	fmt.Fprintf(&b, "  MerchantReference: %s,\n", strconv.Quote(c.MerchantReference))
	fmt.Fprintf(&b, "  TrxDateTime: %s,\n", strconv.Quote(c.LocalTimestamp))
	fmt.Fprintf(&b, "  SecureHash: %s\n", signer.Render(signer.Unquote(c.SecureHash), types.SignatureQuoted))
	b.WriteString("}")
	return b.String()
}

// SDK argument keys.
const (
	ArgMerchantID        = "merchantId"
	ArgTerminalID        = "terminalId"
	ArgSecureKey         = "secureKey"
	ArgAmount            = "amount"
	ArgMerchantReference = "merchantReference"
	ArgCurrencyCode      = "currencyCode"
	ArgIsProduction      = "isProduction"
)

// SDKArgs builds the flat argument map for PrimarySDK.Pay. The SDK signs
// on its own, so it receives the secret rather than our signature, and the
// amount in major units.
func SDKArgs(req *types.TransactionRequest) (map[string]any, error) {
	major, err := amount.ToMajorFloat(req.AmountMinorUnits)
	if err != nil {
		return nil, err
	}

	currency := req.CurrencyCode
	if currency == "" {
		currency = types.DefaultCurrencyCode
	}

	return map[string]any{
		ArgMerchantID:        req.MerchantID,
		ArgTerminalID:        req.TerminalID,
		ArgSecureKey:         req.MerchantSecret,
		ArgAmount:            major,
		ArgMerchantReference: req.MerchantReference,
		ArgCurrencyCode:      currency,
		ArgIsProduction:      !req.IsTestEnvironment,
	}, nil
}
