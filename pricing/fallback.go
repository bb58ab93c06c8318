package pricing

import (
	"context"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// FallbackRates serves pairs involving the anchor currency from the anchor
// source and everything else from the primary rate source.
type FallbackRates struct {
	primary RateProvider
	anchor  AnchorProvider
}

// NewFallbackRates creates a rate provider that routes anchor pairs to the secondary source
func NewFallbackRates(primary RateProvider, anchor AnchorProvider) *FallbackRates {
	return &FallbackRates{
		primary: primary,
		anchor:  anchor,
	}
}

// Name returns the composed provider name
func (f *FallbackRates) Name() string {
	return f.primary.Name() + "+" + f.anchor.Name()
}

// Rates resolves base -> quotes. Any sub-request failing fails the whole call,
// so the caller treats the base group as one unit.
func (f *FallbackRates) Rates(ctx context.Context, base string, quotes []string) (map[string]decimal.Decimal, error) {
	base = NormalizeCode(base)
	anchor := NormalizeCode(f.anchor.Anchor())

	out := make(map[string]decimal.Decimal)
	var direct []string

	// 1 base in anchor units, fetched at most once per call
	var baseInAnchor *decimal.Decimal

	for _, quote := range NormalizeCodes(quotes) {
		switch {
		case quote == base:
			out[quote] = decimal.NewFromInt(1)

		case base == anchor:
			rate, err := f.anchor.RateToAnchor(ctx, quote)
			if err != nil {
				return nil, errors.Wrapf(err, "%s/%s via %s", base, quote, f.anchor.Name())
			}
			inv, err := Reciprocal(rate)
			if err != nil {
				return nil, errors.Wrapf(err, "%s/%s via %s", base, quote, f.anchor.Name())
			}
			out[quote] = inv

		case quote == anchor:
			if baseInAnchor == nil {
				rate, err := f.anchor.RateToAnchor(ctx, base)
				if err != nil {
					return nil, errors.Wrapf(err, "%s/%s via %s", base, quote, f.anchor.Name())
				}
				baseInAnchor = &rate
			}
			out[quote] = *baseInAnchor

		default:
			direct = append(direct, quote)
		}
	}

	if len(direct) == 0 {
		return out, nil
	}

	rates, err := f.primary.Rates(ctx, base, direct)
	if err != nil {
		return nil, errors.Wrapf(err, "%s via %s", base, f.primary.Name())
	}
	for _, quote := range direct {
		if rate, ok := rates[quote]; ok {
			out[quote] = rate
		}
	}

	return out, nil
}
