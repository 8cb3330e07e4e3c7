package amount

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vitwit/checkout/types"
)

func requireInvalidAmount(t *testing.T, err error) {
	t.Helper()
	var cerr *types.CheckoutError
	require.True(t, errors.As(err, &cerr), "expected CheckoutError, got %v", err)
	assert.Equal(t, types.ErrInvalidAmount, cerr.Code)
}

func TestToMinorUnits(t *testing.T) {
	got, err := ToMinorUnits(10.5)
	require.NoError(t, err)
	assert.Equal(t, "10500", got)

	got, err = ToMinorUnits(0)
	require.NoError(t, err)
	assert.Equal(t, "0", got)

	got, err = ToMinorUnits(1234.567)
	require.NoError(t, err)
	assert.Equal(t, "1234567", got)
}

func TestToMinorUnits_RoundHalfUp(t *testing.T) {
	cases := map[float64]string{
		1.0005: "1001",
		1.0004: "1000",
		2.0015: "2002",
		0.0005: "1",
		0.0004: "0",
	}
	for in, want := range cases {
		got, err := ToMinorUnits(in)
		require.NoError(t, err)
		assert.Equal(t, want, got, "ToMinorUnits(%v)", in)
	}

	got, err := ToMinorUnitsString("3.2225")
	require.NoError(t, err)
	assert.Equal(t, "3223", got)
}

func TestToMinorUnits_Invalid(t *testing.T) {
	_, err := ToMinorUnits(-1.0)
	requireInvalidAmount(t, err)

	_, err = ToMinorUnits(math.NaN())
	requireInvalidAmount(t, err)

	_, err = ToMinorUnits(math.Inf(1))
	requireInvalidAmount(t, err)

	_, err = ToMinorUnitsString("ten")
	requireInvalidAmount(t, err)

	_, err = ToMinorUnitsString("")
	requireInvalidAmount(t, err)

	_, err = ToMinorUnitsString("-0.5")
	requireInvalidAmount(t, err)
}

func TestToMinorUnitsString_RejectsExponent(t *testing.T) {
	for _, in := range []string{"1e2147483646", "1E3", "1.5e-2", "+1", ".5", "1."} {
		_, err := ToMinorUnitsString(in)
		requireInvalidAmount(t, err)
		assert.False(t, IsValidMajorAmount(in), in)
	}
}

func TestToMajorUnits(t *testing.T) {
	got, err := ToMajorUnits("10500")
	require.NoError(t, err)
	assert.True(t, got.Equal(decimal.NewFromFloat(10.5)), "got %s", got)

	f, err := ToMajorFloat("10500")
	require.NoError(t, err)
	assert.Equal(t, 10.5, f)

	for _, bad := range []string{"", "-1", "10.5", "1,000", "abc"} {
		_, err := ToMajorUnits(bad)
		requireInvalidAmount(t, err)
	}
}

func TestRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 500; i++ {
		// non-negative with at most three fractional digits
		d := decimal.New(rng.Int63n(1_000_000_000), -int32(rng.Intn(4)))

		minor, err := FromDecimal(d)
		require.NoError(t, err)
		back, err := ToMajorUnits(minor)
		require.NoError(t, err)
		assert.True(t, back.Equal(d), "round trip %s -> %s -> %s", d, minor, back)
	}
}

func TestValidators(t *testing.T) {
	assert.True(t, IsValidMinorAmount("0"))
	assert.True(t, IsValidMinorAmount("10500"))
	assert.False(t, IsValidMinorAmount("-10"))
	assert.False(t, IsValidMinorAmount("10.5"))
	assert.False(t, IsValidMinorAmount("1 000"))

	assert.True(t, IsValidMajorAmount("10.5"))
	assert.True(t, IsValidMajorAmount("0"))
	assert.False(t, IsValidMajorAmount("-0.001"))
	assert.False(t, IsValidMajorAmount("abc"))
	assert.False(t, IsValidMajorAmount("1e2147483646"))
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "1,234,567.890 LYD", FormatMajor(decimal.RequireFromString("1234567.89"), true))
	assert.Equal(t, "0.500", FormatMajor(decimal.RequireFromString("0.5"), false))

	s, err := FormatMinor("10500", true)
	require.NoError(t, err)
	assert.Equal(t, "10.500 LYD", s)

	_, err = FormatMinor("x", false)
	requireInvalidAmount(t, err)
}
