package rates

import (
	"wallet_ledger/internal/apperrors"
	"wallet_ledger/internal/money"

	"github.com/shopspring/decimal"
)

type pair struct {
	from, to string
}

var defaultRates = map[pair]decimal.Decimal{
	{"USD", "EUR"}: decimal.RequireFromString("0.92"),
	{"USD", "MXN"}: decimal.RequireFromString("17.50"),
	{"EUR", "USD"}: decimal.RequireFromString("1.09"),
	{"EUR", "MXN"}: decimal.RequireFromString("19.02"),
	{"MXN", "USD"}: decimal.RequireFromString("0.057"),
	{"MXN", "EUR"}: decimal.RequireFromString("0.053"),
}

// StaticResolver serves exchange rates from a fixed table.
type StaticResolver struct {
	rates map[pair]decimal.Decimal
}

func NewStaticResolver() *StaticResolver {
	return &StaticResolver{rates: defaultRates}
}

// Rate returns how many units of to one unit of from buys. Identical
// currencies always resolve to 1.
func (r *StaticResolver) Rate(from, to string) (decimal.Decimal, error) {
	src, err := money.NormalizeCurrency(from)
	if err != nil {
		return decimal.Zero, err
	}
	dst, err := money.NormalizeCurrency(to)
	if err != nil {
		return decimal.Zero, err
	}
	if src == dst {
		return decimal.NewFromInt(1), nil
	}
	rate, ok := r.rates[pair{src, dst}]
	if !ok {
		return decimal.Zero, apperrors.New(apperrors.KindInvalidOperation,
			"no exchange rate available for %s to %s", src, dst)
	}
	return rate, nil
}
