package normalize

import (
	"fmt"

	"github.com/vitwit/checkout/types"
)

// Embedded checkout payload keys.
const (
	KeyTxnDate            = "TxnDate"
	KeySystemReference    = "SystemReference"
	KeyNetworkReference   = "NetworkReference"
	KeyMerchantReference  = "MerchantReference"
	KeyAmount             = "Amount"
	KeyCurrency           = "Currency"
	KeyPaidThrough        = "PaidThrough"
	KeyPayerAccount       = "PayerAccount"
	KeyPayerName          = "PayerName"
	KeyProviderSchemeName = "ProviderSchemeName"
	KeySecureHash         = "SecureHash"
	KeyDisplayData        = "DisplayData"
	KeyTokenCustomerID    = "TokenCustomerId"
	KeyTokenCard          = "TokenCard"
)

// Embedded normalizes an outcome of the hosted checkout page. Amount is in
// minor units.
func Embedded(o Outcome, fc Context) (res *types.TransactionResult) {
	fc.Transport = types.TransportEmbeddedCheckout
	defer recoverMalformed(fc, &res)

	if o.Err != nil {
		return fc.failure(types.ErrTransportFailure, fmt.Sprintf("embedded checkout failed: %v", o.Err), "")
	}

	switch o.Kind {
	case OutcomeCancelled:
		return fc.failure(types.ErrCancelled, CancelledMessage, "")
	case OutcomeError:
		return declined(fc, o.Payload, KeySecureHash)
	case OutcomeSuccess:
	default:
		return fc.malformed("unexpected outcome kind %d", o.Kind)
	}

	p := o.Payload
	if p == nil {
		return fc.malformed("empty success payload")
	}

	amt, err := number(p, KeyAmount)
	if err != nil {
		return fc.malformed("malformed amount in success payload: %v", err)
	}
	if !amt.IsInteger() {
		return fc.malformed("malformed amount in success payload: %s is not a whole number of minor units", amt.String())
	}

	ref, err := reference(fc, str(p, KeyMerchantReference))
	if err != nil {
		return fc.malformed("%v", err)
	}

	paid := str(p, KeyPaidThrough)

	return types.NewSuccess(types.SuccessRecord{
		TransactionDate:    str(p, KeyTxnDate),
		SystemReference:    str(p, KeySystemReference),
		NetworkReference:   str(p, KeyNetworkReference),
		MerchantReference:  ref,
		Amount:             amt,
		CurrencyCode:       str(p, KeyCurrency),
		PaidThrough:        classify(paid),
		PaidThroughRaw:     paid,
		PayerAccount:       str(p, KeyPayerAccount),
		PayerName:          str(p, KeyPayerName),
		ProviderSchemeName: str(p, KeyProviderSchemeName),
		SecureHash:         str(p, KeySecureHash),
		DisplayData:        str(p, KeyDisplayData),
		TokenCustomerID:    str(p, KeyTokenCustomerID),
		TokenCard:          str(p, KeyTokenCard),
		Transport:          types.TransportEmbeddedCheckout,
	})
}
