package money_test

import (
	"encoding/json"
	"testing"

	"wallet_ledger/internal/apperrors"
	"wallet_ledger/internal/money"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_RoundsHalfEven(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"100.125", "100.12"},
		{"100.135", "100.14"},
		{"0.005", "0.00"},
		{"0.015", "0.02"},
		{"-2.345", "-2.34"},
		{"7", "7.00"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			m, err := money.Parse(tt.in, "usd")
			require.NoError(t, err)
			assert.Equal(t, tt.want, m.Amount().StringFixed(2))
			assert.Equal(t, "USD", m.Currency())
		})
	}
}

func TestParse_InvalidInput(t *testing.T) {
	_, err := money.Parse("12.3.4", "USD")
	assert.ErrorIs(t, err, apperrors.ErrFormat)

	_, err = money.Parse("10", "US")
	assert.ErrorIs(t, err, apperrors.ErrFormat)

	_, err = money.Parse("10", "U5D")
	assert.ErrorIs(t, err, apperrors.ErrFormat)
}

func TestAddSubtract(t *testing.T) {
	a := money.MustParse("10.10", "EUR")
	b := money.MustParse("0.95", "EUR")

	sum, err := a.Add(b)
	require.NoError(t, err)
	assert.Equal(t, "11.05 EUR", sum.String())

	diff, err := b.Subtract(a)
	require.NoError(t, err)
	assert.Equal(t, "-9.15 EUR", diff.String())
	assert.True(t, diff.IsNegative())
	assert.Equal(t, "9.15 EUR", diff.Abs().String())
	assert.Equal(t, "9.15 EUR", diff.Negate().String())
}

func TestCurrencyMismatch(t *testing.T) {
	usd := money.MustParse("1", "USD")
	eur := money.MustParse("1", "EUR")

	_, err := usd.Add(eur)
	assert.ErrorIs(t, err, apperrors.ErrCurrencyMismatch)

	_, err = usd.Subtract(eur)
	assert.ErrorIs(t, err, apperrors.ErrCurrencyMismatch)

	_, err = usd.GreaterThan(eur)
	assert.ErrorIs(t, err, apperrors.ErrCurrencyMismatch)

	eq, err := usd.Equal(eur)
	assert.False(t, eq)
	assert.ErrorIs(t, err, apperrors.ErrCurrencyMismatch)
}

func TestMultiply(t *testing.T) {
	m := money.MustParse("100.00", "USD")

	fee := m.Multiply(decimal.RequireFromString("0.015"))
	assert.Equal(t, "1.50 USD", fee.String())

	converted := money.MustParse("10.05", "USD").Multiply(decimal.RequireFromString("0.5"))
	assert.Equal(t, "5.02 USD", converted.String())
}

func TestDivide(t *testing.T) {
	tests := []struct {
		amount  string
		divisor string
		want    string
	}{
		{"10.00", "3", "3.33"},
		{"10.00", "4", "2.50"},
		{"0.25", "10", "0.02"},
		{"0.35", "10", "0.04"},
		{"-0.35", "10", "-0.04"},
		{"1.00", "-3", "-0.33"},
		{"2.00", "3", "0.67"},
	}

	for _, tt := range tests {
		t.Run(tt.amount+"/"+tt.divisor, func(t *testing.T) {
			got, err := money.MustParse(tt.amount, "USD").Divide(decimal.RequireFromString(tt.divisor))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Amount().StringFixed(2))
		})
	}
}

func TestDivide_ByZero(t *testing.T) {
	_, err := money.MustParse("1", "USD").Divide(decimal.Zero)
	assert.ErrorIs(t, err, apperrors.ErrArithmetic)
}

func TestComparisons(t *testing.T) {
	small := money.MustParse("5.00", "MXN")
	big := money.MustParse("5.01", "MXN")

	gt, err := big.GreaterThan(small)
	require.NoError(t, err)
	assert.True(t, gt)

	lt, err := big.LessThan(small)
	require.NoError(t, err)
	assert.False(t, lt)

	ge, err := small.GreaterOrEqual(money.MustParse("5", "MXN"))
	require.NoError(t, err)
	assert.True(t, ge)

	le, err := small.LessOrEqual(big)
	require.NoError(t, err)
	assert.True(t, le)

	assert.True(t, money.Zero("mxn").IsZero())
	assert.False(t, money.Zero("MXN").IsPositive())
}

func TestJSON(t *testing.T) {
	m := money.MustParse("100.1", "USD")

	data, err := json.Marshal(m)
	require.NoError(t, err)
	assert.JSONEq(t, `{"amount":"100.10","currency":"USD"}`, string(data))

	var back money.Money
	require.NoError(t, json.Unmarshal([]byte(`{"amount":"3.335","currency":"eur"}`), &back))
	assert.Equal(t, "3.34 EUR", back.String())
}
