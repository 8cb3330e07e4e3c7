// Package amount converts between major currency units (dinar) and the
// integer minor-unit strings the gateway expects on the wire.
//
// The scale is fixed at three fractional digits. Conversions round half up,
// so 1.0005 becomes "1001" and 1.0004 becomes "1000".
package amount

import (
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/vitwit/checkout/types"
	"github.com/vitwit/checkout/utils"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Decimals is the number of minor-unit digits in one major unit.
const Decimals = 3

// Symbol is appended by the Format helpers when withSymbol is set.
const Symbol = "LYD"

var printer = message.NewPrinter(language.English)

func invalid(format string, args ...any) error {
	return types.NewError(types.ErrInvalidAmount, format, args...)
}

// ToMinorUnits converts a major-unit float into a minor-unit string.
func ToMinorUnits(major float64) (string, error) {
	if math.IsNaN(major) || math.IsInf(major, 0) {
		return "", invalid("amount must be a finite number, got %v", major)
	}
	return FromDecimal(decimal.NewFromFloat(major))
}

// ToMinorUnitsString parses a decimal string and converts it to minor units.
func ToMinorUnitsString(major string) (string, error) {
	major = strings.TrimSpace(major)
	if major == "" {
		return "", invalid("amount cannot be empty")
	}

	if !utils.IsPlainDecimal(major) {
		return "", invalid("invalid amount format %q: expected digits with an optional fraction", major)
	}

	dec, err := decimal.NewFromString(major)
	if err != nil {
		return "", invalid("invalid amount format %q: %v", major, err)
	}

	return FromDecimal(dec)
}

// FromDecimal converts a major-unit decimal into a minor-unit string.
func FromDecimal(major decimal.Decimal) (string, error) {
	if major.IsNegative() {
		return "", invalid("amount cannot be negative: %s", major.String())
	}

	minor := major.Shift(Decimals).Round(0)
	return minor.BigInt().String(), nil
}

// ToMajorUnits converts a minor-unit string back into major units.
func ToMajorUnits(minor string) (decimal.Decimal, error) {
	if !utils.IsDigits(minor) {
		return decimal.Zero, invalid("minor amount must be a non-negative integer, got %q", minor)
	}

	dec, err := decimal.NewFromString(minor)
	if err != nil {
		return decimal.Zero, invalid("invalid minor amount %q: %v", minor, err)
	}

	return dec.Shift(-Decimals), nil
}

// ToMajorFloat is ToMajorUnits for callers that need a float, such as the
// native SDK argument map.
func ToMajorFloat(minor string) (float64, error) {
	dec, err := ToMajorUnits(minor)
	if err != nil {
		return 0, err
	}
	f, _ := dec.Float64()
	return f, nil
}

// IsValidMinorAmount reports whether s is a non-negative integer without
// separators.
func IsValidMinorAmount(s string) bool {
	return utils.IsDigits(s)
}

// IsValidMajorAmount reports whether s is a plain non-negative decimal.
// Exponent notation is rejected.
func IsValidMajorAmount(s string) bool {
	return utils.IsPlainDecimal(strings.TrimSpace(s))
}

// FormatMajor renders a major-unit amount for display, e.g. "1,234.500 LYD".
// The result is never used for signing or transport.
func FormatMajor(major decimal.Decimal, withSymbol bool) string {
	fixed := major.StringFixed(Decimals)

	neg := strings.HasPrefix(fixed, "-")
	fixed = strings.TrimPrefix(fixed, "-")

	intPart, frac, _ := strings.Cut(fixed, ".")
	out := groupThousands(intPart) + "." + frac
	if neg {
		out = "-" + out
	}
	if withSymbol {
		out += " " + Symbol
	}
	return out
}

// FormatMinor renders a minor-unit string for display.
func FormatMinor(minor string, withSymbol bool) (string, error) {
	major, err := ToMajorUnits(minor)
	if err != nil {
		return "", err
	}
	return FormatMajor(major, withSymbol), nil
}

func groupThousands(digits string) string {
	n, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		// beyond int64; not a realistic payment amount
		return digits
	}
	return printer.Sprintf("%d", n)
}
