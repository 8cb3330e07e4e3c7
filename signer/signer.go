// Package signer builds the gateway's canonical signing string and computes
// the SecureHash that accompanies every payment request.
package signer

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"

	"github.com/vitwit/checkout/types"
	"github.com/vitwit/checkout/utils"
)

// KeyEncoding reports how a merchant secret was interpreted.
type KeyEncoding string

const (
	KeyHex KeyEncoding = "hex"
	KeyRaw KeyEncoding = "raw"
)

// Field names of the canonical string, in wire order. Order and casing are
// part of the gateway contract.
const (
	FieldAmount            = "Amount"
	FieldDateTimeLocalTrxn = "DateTimeLocalTrxn"
	FieldMerchantID        = "MerchantId"
	FieldMerchantReference = "MerchantReference"
	FieldTerminalID        = "TerminalId"
)

func signingError(format string, args ...any) error {
	return types.NewError(types.ErrSigning, format, args...)
}

// CanonicalString joins the signed fields as key=value pairs with '&'.
func CanonicalString(amount, timestamp, merchantID, reference, terminalID string) string {
	var b strings.Builder
	pairs := [...][2]string{
		{FieldAmount, amount},
		{FieldDateTimeLocalTrxn, timestamp},
		{FieldMerchantID, merchantID},
		{FieldMerchantReference, reference},
		{FieldTerminalID, terminalID},
	}
	for i, p := range pairs {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(p[0])
		b.WriteByte('=')
		b.WriteString(p[1])
	}
	return b.String()
}

// DeriveKey turns a merchant secret into HMAC key bytes.
//
// A secret of even length made only of hex digits is hex-decoded; anything
// else is used as raw UTF-8. This dual mode is kept for compatibility with
// existing integrations: a passphrase that happens to be valid hex (for
// example "CAFE") is silently decoded rather than used literally.
func DeriveKey(secret string) ([]byte, KeyEncoding, error) {
	if secret == "" {
		return nil, "", signingError("merchant secret is empty")
	}

	if len(secret)%2 == 0 && utils.IsHexString(secret) {
		key, err := hex.DecodeString(secret)
		if err != nil {
			return nil, "", signingError("failed to decode hex secret: %v", err)
		}
		return key, KeyHex, nil
	}

	return []byte(secret), KeyRaw, nil
}

// Digest computes the uppercase hex HMAC-SHA256 of msg.
func Digest(key []byte, msg string) string {
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(msg))
	return strings.ToUpper(hex.EncodeToString(mac.Sum(nil)))
}

// Sign derives the signing context for req at the given local timestamp
// (unix seconds). It performs no I/O.
func Sign(req *types.TransactionRequest, timestamp string) (*types.SigningContext, error) {
	if req == nil {
		return nil, signingError("request is required")
	}

	var missing []string
	for _, f := range [...][2]string{
		{FieldAmount, req.AmountMinorUnits},
		{FieldDateTimeLocalTrxn, timestamp},
		{FieldMerchantID, req.MerchantID},
		{FieldMerchantReference, req.MerchantReference},
		{FieldTerminalID, req.TerminalID},
	} {
		if f[1] == "" {
			missing = append(missing, f[0])
		}
	}
	if len(missing) > 0 {
		return nil, signingError("missing signing fields: %s", strings.Join(missing, ", "))
	}

	key, _, err := DeriveKey(req.MerchantSecret)
	if err != nil {
		return nil, err
	}

	canonical := CanonicalString(req.AmountMinorUnits, timestamp, req.MerchantID, req.MerchantReference, req.TerminalID)

	return &types.SigningContext{
		LocalTimestamp:  timestamp,
		CanonicalString: canonical,
		Signature:       Digest(key, canonical),
	}, nil
}

// Verify reports whether signature matches the canonical string under
// secret. Comparison is case-insensitive and constant time.
func Verify(canonical, signature, secret string) (bool, error) {
	key, _, err := DeriveKey(secret)
	if err != nil {
		return false, err
	}
	want := Digest(key, canonical)
	got := strings.ToUpper(Unquote(signature))
	return hmac.Equal([]byte(want), []byte(got)), nil
}

// Render formats a signature for a transport payload.
func Render(signature string, format types.SignatureFormat) string {
	if format == types.SignatureQuoted {
		return strconv.Quote(signature)
	}
	return signature
}

// Unquote strips the quoting added by Render, if any.
func Unquote(signature string) string {
	s := strings.TrimSpace(signature)
	if len(s) >= 2 && (s[0] == '\'' || s[0] == '"') && s[len(s)-1] == s[0] {
		return s[1 : len(s)-1]
	}
	return s
}
