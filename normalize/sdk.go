package normalize

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/vitwit/checkout/amount"
	"github.com/vitwit/checkout/types"
)

// KeySuccess is the discriminant of every primary SDK response.
const KeySuccess = "success"

// SDK normalizes a primary SDK response. Fields may sit at the top level
// or under "data" / "transaction"; the amount comes back in major units,
// as a string or a native number, and is converted to minor units.
func SDK(o Outcome, fc Context) (res *types.TransactionResult) {
	fc.Transport = types.TransportPrimarySDK
	defer recoverMalformed(fc, &res)

	if o.Err != nil {
		return fc.failure(types.ErrTransportFailure, fmt.Sprintf("primary SDK call failed: %v", o.Err), "")
	}
	if o.Kind == OutcomeCancelled {
		return fc.failure(types.ErrCancelled, CancelledMessage, "")
	}
	if o.Payload == nil {
		return fc.malformed("empty SDK response")
	}

	raw, ok := o.Payload[KeySuccess]
	if !ok {
		return fc.malformed("SDK response has no %q discriminant", KeySuccess)
	}
	success, ok := raw.(bool)
	if !ok {
		return fc.malformed("SDK %q discriminant has unexpected type %T (%v)", KeySuccess, raw, raw)
	}

	p := flatten(o.Payload)
	if !success {
		return declined(fc, p, "secureHash")
	}

	major, err := number(p, "amount")
	if err != nil {
		return fc.malformed("malformed amount in SDK response: %v", err)
	}
	minor, err := amount.FromDecimal(major)
	if err != nil {
		return fc.malformed("malformed amount in SDK response: %v", err)
	}

	ref, err := reference(fc, str(p, "merchantReference"))
	if err != nil {
		return fc.malformed("%v", err)
	}

	paid := str(p, "type", "paidThrough")

	return types.NewSuccess(types.SuccessRecord{
		TransactionDate:    str(p, "transactionDate", "txnDate"),
		SystemReference:    str(p, "systemReference", "referenceNumber"),
		NetworkReference:   str(p, "networkReference"),
		MerchantReference:  ref,
		Amount:             decimal.RequireFromString(minor),
		CurrencyCode:       str(p, "currency", "currencyCode"),
		PaidThrough:        classify(paid),
		PaidThroughRaw:     paid,
		PayerAccount:       str(p, "payerAccount", "cardNumber"),
		PayerName:          str(p, "payerName", "cardHolderName"),
		ProviderSchemeName: str(p, "providerSchemeName", "scheme"),
		SecureHash:         str(p, "secureHash"),
		DisplayData:        str(p, "displayData"),
		TokenCustomerID:    str(p, "tokenCustomerId"),
		TokenCard:          str(p, "tokenCard"),
		AuthCode:           str(p, "authCode"),
		Transport:          types.TransportPrimarySDK,
	})
}

// flatten lifts a nested "data" or "transaction" object over the top-level
// keys so both shapes read the same way.
func flatten(p map[string]any) map[string]any {
	out := make(map[string]any, len(p))
	for k, v := range p {
		out[k] = v
	}
	for _, key := range []string{"transaction", "data"} {
		nested, ok := p[key].(map[string]any)
		if !ok {
			continue
		}
		for k, v := range nested {
			out[k] = v
		}
	}
	return out
}
