package money

import (
	"encoding/json"
	"fmt"
	"strings"

	"wallet_ledger/internal/apperrors"

	"github.com/shopspring/decimal"
)

// Scale is the number of fractional digits every Money amount carries.
const Scale int32 = 2

var (
	two  = decimal.NewFromInt(2)
	unit = decimal.New(1, -Scale)
)

// Money is an immutable currency-tagged amount with exactly two fractional
// digits. Every constructing operation rounds half-to-even.
type Money struct {
	amount   decimal.Decimal
	currency string
}

// New builds Money from a decimal amount and a three-letter currency code.
func New(amount decimal.Decimal, currency string) (Money, error) {
	code, err := NormalizeCurrency(currency)
	if err != nil {
		return Money{}, err
	}
	return Money{amount: amount.RoundBank(Scale), currency: code}, nil
}

// Parse builds Money from a decimal string such as "100.125".
func Parse(amount, currency string) (Money, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(amount))
	if err != nil {
		return Money{}, apperrors.Wrap(apperrors.KindFormat, err, "invalid amount format: '%s'", amount)
	}
	return New(d, currency)
}

// MustParse is like Parse but panics on error. Intended for constants and tests.
func MustParse(amount, currency string) Money {
	m, err := Parse(amount, currency)
	if err != nil {
		panic(err)
	}
	return m
}

// Zero returns a zero amount in currency. The code is normalized but not
// validated, so a wallet lookup for an unknown code still yields zero.
func Zero(currency string) Money {
	return Money{amount: decimal.Zero.RoundBank(Scale), currency: strings.ToUpper(strings.TrimSpace(currency))}
}

// NormalizeCurrency trims and uppercases a currency code and checks that it
// is three ASCII letters.
func NormalizeCurrency(currency string) (string, error) {
	code := strings.ToUpper(strings.TrimSpace(currency))
	if len(code) != 3 {
		return "", apperrors.New(apperrors.KindFormat, "invalid currency code: '%s'", currency)
	}
	for _, r := range code {
		if r < 'A' || r > 'Z' {
			return "", apperrors.New(apperrors.KindFormat, "invalid currency code: '%s'", currency)
		}
	}
	return code, nil
}

func (m Money) Amount() decimal.Decimal { return m.amount }

func (m Money) Currency() string { return m.currency }

func (m Money) Add(other Money) (Money, error) {
	if err := m.sameCurrency(other); err != nil {
		return Money{}, err
	}
	return Money{amount: m.amount.Add(other.amount).RoundBank(Scale), currency: m.currency}, nil
}

func (m Money) Subtract(other Money) (Money, error) {
	if err := m.sameCurrency(other); err != nil {
		return Money{}, err
	}
	return Money{amount: m.amount.Sub(other.amount).RoundBank(Scale), currency: m.currency}, nil
}

// Multiply scales the amount by factor and rounds the product half-to-even.
func (m Money) Multiply(factor decimal.Decimal) Money {
	return Money{amount: m.amount.Mul(factor).RoundBank(Scale), currency: m.currency}
}

// Divide divides the amount by divisor, rounding the exact quotient
// half-to-even at two places.
func (m Money) Divide(divisor decimal.Decimal) (Money, error) {
	if divisor.IsZero() {
		return Money{}, apperrors.New(apperrors.KindArithmetic, "cannot divide %s by zero", m)
	}
	return Money{amount: divRoundBank(m.amount, divisor), currency: m.currency}, nil
}

func (m Money) Negate() Money {
	return Money{amount: m.amount.Neg(), currency: m.currency}
}

func (m Money) Abs() Money {
	return Money{amount: m.amount.Abs(), currency: m.currency}
}

// Cmp compares two amounts of the same currency, returning -1, 0 or +1.
func (m Money) Cmp(other Money) (int, error) {
	if err := m.sameCurrency(other); err != nil {
		return 0, err
	}
	return m.amount.Cmp(other.amount), nil
}

func (m Money) GreaterThan(other Money) (bool, error) {
	c, err := m.Cmp(other)
	return c > 0, err
}

func (m Money) LessThan(other Money) (bool, error) {
	c, err := m.Cmp(other)
	return c < 0, err
}

func (m Money) Equal(other Money) (bool, error) {
	c, err := m.Cmp(other)
	return c == 0 && err == nil, err
}

func (m Money) GreaterOrEqual(other Money) (bool, error) {
	c, err := m.Cmp(other)
	return c >= 0 && err == nil, err
}

func (m Money) LessOrEqual(other Money) (bool, error) {
	c, err := m.Cmp(other)
	return c <= 0 && err == nil, err
}

func (m Money) IsZero() bool { return m.amount.IsZero() }

func (m Money) IsPositive() bool { return m.amount.IsPositive() }

func (m Money) IsNegative() bool { return m.amount.IsNegative() }

// String renders the amount with exactly two decimals followed by the code,
// e.g. "100.12 USD".
func (m Money) String() string {
	return fmt.Sprintf("%s %s", m.amount.StringFixed(Scale), m.currency)
}

type moneyJSON struct {
	Amount   string `json:"amount"`
	Currency string `json:"currency"`
}

func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(moneyJSON{Amount: m.amount.StringFixed(Scale), Currency: m.currency})
}

func (m *Money) UnmarshalJSON(data []byte) error {
	var raw moneyJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := Parse(raw.Amount, raw.Currency)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

func (m Money) sameCurrency(other Money) error {
	if m.currency != other.currency {
		return apperrors.New(apperrors.KindCurrencyMismatch,
			"cannot operate on different currencies: %s vs %s", m.currency, other.currency)
	}
	return nil
}

// divRoundBank computes a/b rounded half-to-even at Scale places without an
// intermediate truncated quotient.
func divRoundBank(a, b decimal.Decimal) decimal.Decimal {
	q, r := a.QuoRem(b, Scale)
	if r.IsZero() {
		return q.RoundBank(Scale)
	}
	half := b.Abs().Mul(unit)
	c := r.Abs().Mul(two).Cmp(half)
	odd := !q.Shift(Scale).Mod(two).IsZero()
	if c > 0 || (c == 0 && odd) {
		if a.Sign()*b.Sign() < 0 {
			q = q.Sub(unit)
		} else {
			q = q.Add(unit)
		}
	}
	return q.RoundBank(Scale)
}
