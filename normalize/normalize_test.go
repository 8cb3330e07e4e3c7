package normalize

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vitwit/checkout/types"
)

var fc = Context{
	AmountMinorUnits:  "10500",
	MerchantReference: "INV-1",
	LocalTimestamp:    "1700000000",
}

func embeddedSuccessPayload() map[string]any {
	return map[string]any{
		"TxnDate":            "231114120000",
		"SystemReference":    "123456",
		"NetworkReference":   "987654321",
		"MerchantReference":  "INV-1",
		"Amount":             "10500",
		"Currency":           "434",
		"PaidThrough":        "Card",
		"PayerAccount":       "400000******0002",
		"PayerName":          "A Customer",
		"ProviderSchemeName": "VISA",
		"SecureHash":         "ABCDEF",
		"DisplayData":        "",
		"TokenCustomerId":    "",
		"TokenCard":          "",
	}
}

func requireFailure(t *testing.T, res *types.TransactionResult, code string) *types.FailureRecord {
	t.Helper()
	require.NotNil(t, res)
	require.Equal(t, types.ResultFailure, res.Kind)
	require.Nil(t, res.Success)
	require.NotNil(t, res.Failure)
	assert.Equal(t, code, res.Failure.Code)
	assert.Equal(t, fc.MerchantReference, res.Failure.MerchantReference)
	assert.Equal(t, fc.AmountMinorUnits, res.Failure.AmountMinorUnits)
	assert.Equal(t, fc.LocalTimestamp, res.Failure.LocalTimestamp)
	return res.Failure
}

func TestEmbedded_Success(t *testing.T) {
	res := Embedded(Outcome{Kind: OutcomeSuccess, Payload: embeddedSuccessPayload()}, fc)
	require.True(t, res.IsSuccess())
	require.Nil(t, res.Failure)

	s := res.Success
	assert.True(t, s.Amount.Equal(decimal.NewFromInt(10500)))
	assert.Equal(t, "INV-1", s.MerchantReference)
	assert.Equal(t, "123456", s.SystemReference)
	assert.Equal(t, "987654321", s.NetworkReference)
	assert.Equal(t, types.PaidThroughCard, s.PaidThrough)
	assert.Equal(t, "Card", s.PaidThroughRaw)
	assert.Equal(t, "VISA", s.ProviderSchemeName)
	assert.Equal(t, "ABCDEF", s.SecureHash)
	assert.Equal(t, types.TransportEmbeddedCheckout, s.Transport)
}

func TestEmbedded_Idempotent(t *testing.T) {
	payload := embeddedSuccessPayload()
	a := Embedded(Outcome{Kind: OutcomeSuccess, Payload: payload}, fc)
	b := Embedded(Outcome{Kind: OutcomeSuccess, Payload: payload}, fc)
	assert.Equal(t, a, b)
}

func TestEmbedded_AmountAsJSONNumber(t *testing.T) {
	var payload map[string]any
	require.NoError(t, json.Unmarshal([]byte(`{"Amount": 10500, "MerchantReference": "INV-1"}`), &payload))

	res := Embedded(Outcome{Kind: OutcomeSuccess, Payload: payload}, fc)
	require.True(t, res.IsSuccess())
	assert.True(t, res.Success.Amount.Equal(decimal.NewFromInt(10500)))
}

func TestEmbedded_MissingAmount(t *testing.T) {
	payload := embeddedSuccessPayload()
	delete(payload, "Amount")

	res := Embedded(Outcome{Kind: OutcomeSuccess, Payload: payload}, fc)
	f := requireFailure(t, res, types.ErrMalformedResponse)
	assert.Contains(t, f.Message, "malformed amount")
}

func TestEmbedded_AmountWrongType(t *testing.T) {
	payload := embeddedSuccessPayload()
	payload["Amount"] = true

	f := requireFailure(t, Embedded(Outcome{Kind: OutcomeSuccess, Payload: payload}, fc), types.ErrMalformedResponse)
	assert.Contains(t, f.Message, "malformed amount")
	assert.Contains(t, f.Message, "bool")

	payload["Amount"] = "ten"
	f = requireFailure(t, Embedded(Outcome{Kind: OutcomeSuccess, Payload: payload}, fc), types.ErrMalformedResponse)
	assert.Contains(t, f.Message, `"ten"`)
	assert.Contains(t, f.Message, "string")

	payload["Amount"] = json.Number("12x")
	f = requireFailure(t, Embedded(Outcome{Kind: OutcomeSuccess, Payload: payload}, fc), types.ErrMalformedResponse)
	assert.Contains(t, f.Message, "json.Number")

	payload["Amount"] = "1e2147483646"
	requireFailure(t, Embedded(Outcome{Kind: OutcomeSuccess, Payload: payload}, fc), types.ErrMalformedResponse)
}

func TestEmbedded_FractionalMinorAmount(t *testing.T) {
	payload := embeddedSuccessPayload()
	payload["Amount"] = "1000.5"

	f := requireFailure(t, Embedded(Outcome{Kind: OutcomeSuccess, Payload: payload}, fc), types.ErrMalformedResponse)
	assert.Contains(t, f.Message, "whole number")

	payload["Amount"] = "1000.000"
	assert.True(t, Embedded(Outcome{Kind: OutcomeSuccess, Payload: payload}, fc).IsSuccess())
}

func TestEmbedded_ReferenceMismatch(t *testing.T) {
	payload := embeddedSuccessPayload()
	payload["MerchantReference"] = "INV-2"

	f := requireFailure(t, Embedded(Outcome{Kind: OutcomeSuccess, Payload: payload}, fc), types.ErrMalformedResponse)
	assert.Contains(t, f.Message, "mismatch")
}

func TestEmbedded_ErrorPayloads(t *testing.T) {
	f := requireFailure(t, Embedded(Outcome{Kind: OutcomeError, Payload: map[string]any{"error": "Insufficient funds", "SecureHash": "FF"}}, fc), types.ErrGatewayDeclined)
	assert.Equal(t, "Insufficient funds", f.Message)
	assert.Equal(t, "FF", f.SecureHash)

	f = requireFailure(t, Embedded(Outcome{Kind: OutcomeError, Payload: map[string]any{"message": "Expired card"}}, fc), types.ErrGatewayDeclined)
	assert.Equal(t, "Expired card", f.Message)

	f = requireFailure(t, Embedded(Outcome{Kind: OutcomeError, Payload: map[string]any{}}, fc), types.ErrGatewayDeclined)
	assert.Equal(t, DefaultFailureMessage, f.Message)

	f = requireFailure(t, Embedded(Outcome{Kind: OutcomeError}, fc), types.ErrGatewayDeclined)
	assert.Equal(t, DefaultFailureMessage, f.Message)
}

func TestEmbedded_CancelAndTransportError(t *testing.T) {
	f := requireFailure(t, Embedded(Outcome{Kind: OutcomeCancelled}, fc), types.ErrCancelled)
	assert.Equal(t, CancelledMessage, f.Message)

	f = requireFailure(t, Embedded(Outcome{Err: errors.New("channel not configured")}, fc), types.ErrTransportFailure)
	assert.Contains(t, f.Message, "channel not configured")
}

func TestSDK_Success(t *testing.T) {
	payload := map[string]any{
		"success":          true,
		"networkReference": "NR-1",
		"authCode":         "A1B2",
		"type":             "wallet",
		"amount":           10.5,
		"currency":         "434",
	}
	res := SDK(Outcome{Payload: payload}, fc)
	require.True(t, res.IsSuccess())
	s := res.Success
	assert.True(t, s.Amount.Equal(decimal.NewFromInt(10500)), "got %s", s.Amount)
	assert.Equal(t, "INV-1", s.MerchantReference)
	assert.Equal(t, "A1B2", s.AuthCode)
	assert.Equal(t, types.PaidThroughWallet, s.PaidThrough)
	assert.Equal(t, types.TransportPrimarySDK, s.Transport)

	payload["amount"] = "10.5"
	again := SDK(Outcome{Payload: payload}, fc)
	require.True(t, again.IsSuccess())
	assert.True(t, again.Success.Amount.Equal(s.Amount))

	for _, native := range []any{int8(10), int16(10), int32(10), int64(10), 10, uint(10), uint8(10), uint16(10), uint32(10), uint64(10)} {
		payload["amount"] = native
		res := SDK(Outcome{Payload: payload}, fc)
		require.True(t, res.IsSuccess(), "%T: %s", native, res)
		assert.True(t, res.Success.Amount.Equal(decimal.NewFromInt(10000)), "%T: got %s", native, res.Success.Amount)
	}

	payload["amount"] = "1e2147483646"
	requireFailure(t, SDK(Outcome{Payload: payload}, fc), types.ErrMalformedResponse)
}

func TestSDK_NestedData(t *testing.T) {
	payload := map[string]any{
		"success": true,
		"data": map[string]any{
			"amount":            "1.234",
			"merchantReference": "INV-1",
			"referenceNumber":   "SYS-9",
			"cardHolderName":    "A Customer",
		},
	}
	res := SDK(Outcome{Payload: payload}, fc)
	require.True(t, res.IsSuccess())
	assert.True(t, res.Success.Amount.Equal(decimal.NewFromInt(1234)))
	assert.Equal(t, "SYS-9", res.Success.SystemReference)
	assert.Equal(t, "A Customer", res.Success.PayerName)
}

func TestSDK_Failures(t *testing.T) {
	f := requireFailure(t, SDK(Outcome{Payload: map[string]any{"success": false, "message": "Declined"}}, fc), types.ErrGatewayDeclined)
	assert.Equal(t, "Declined", f.Message)

	f = requireFailure(t, SDK(Outcome{Payload: map[string]any{"success": "yes"}}, fc), types.ErrMalformedResponse)
	assert.Contains(t, f.Message, "string")

	requireFailure(t, SDK(Outcome{Payload: map[string]any{"amount": 1}}, fc), types.ErrMalformedResponse)
	requireFailure(t, SDK(Outcome{}, fc), types.ErrMalformedResponse)

	f = requireFailure(t, SDK(Outcome{Payload: map[string]any{"success": true, "amount": []int{1}}}, fc), types.ErrMalformedResponse)
	assert.Contains(t, f.Message, "[]int")

	f = requireFailure(t, SDK(Outcome{Err: errors.New("bridge closed")}, fc), types.ErrTransportFailure)
	assert.Contains(t, f.Message, "bridge closed")
}

func TestNormalize_Routes(t *testing.T) {
	res := Normalize(types.TransportEmbeddedCheckout, Outcome{Kind: OutcomeSuccess, Payload: embeddedSuccessPayload()}, fc)
	require.True(t, res.IsSuccess())

	res = Normalize(types.TransportMethod("fax"), Outcome{}, fc)
	requireFailure(t, res, types.ErrTransportFailure)
}

func TestClassify(t *testing.T) {
	assert.Equal(t, types.PaidThroughCard, classify("MasterCard"))
	assert.Equal(t, types.PaidThroughWallet, classify("Mobile Wallet"))
	assert.Equal(t, types.PaidThroughOther, classify("QR"))
	assert.Equal(t, types.PaidThrough(""), classify(""))
}
