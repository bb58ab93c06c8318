package pricing

import (
	"context"

	"github.com/shopspring/decimal"
)

// Limiter decides whether one more outbound request for key may be sent now.
// A refusal is reported as ErrRateLimited; callers do not wait.
type Limiter interface {
	Allow(ctx context.Context, key string) error
}

type limitedCrypto struct {
	CryptoProvider
	limiter Limiter
}

// LimitCrypto wraps a crypto provider with a limiter; a nil limiter returns p unchanged
func LimitCrypto(p CryptoProvider, limiter Limiter) CryptoProvider {
	if limiter == nil {
		return p
	}
	return &limitedCrypto{CryptoProvider: p, limiter: limiter}
}

func (l *limitedCrypto) Prices(ctx context.Context, assets []Asset, quote string) (map[string]decimal.Decimal, error) {
	if err := l.limiter.Allow(ctx, l.Name()); err != nil {
		return nil, err
	}
	return l.CryptoProvider.Prices(ctx, assets, quote)
}

type limitedRates struct {
	RateProvider
	limiter Limiter
}

// LimitRates wraps a rate provider with a limiter
func LimitRates(p RateProvider, limiter Limiter) RateProvider {
	if limiter == nil {
		return p
	}
	return &limitedRates{RateProvider: p, limiter: limiter}
}

func (l *limitedRates) Rates(ctx context.Context, base string, quotes []string) (map[string]decimal.Decimal, error) {
	if err := l.limiter.Allow(ctx, l.Name()); err != nil {
		return nil, err
	}
	return l.RateProvider.Rates(ctx, base, quotes)
}

type limitedAnchor struct {
	AnchorProvider
	limiter Limiter
}

// LimitAnchor wraps an anchor provider with a limiter
func LimitAnchor(p AnchorProvider, limiter Limiter) AnchorProvider {
	if limiter == nil {
		return p
	}
	return &limitedAnchor{AnchorProvider: p, limiter: limiter}
}

func (l *limitedAnchor) RateToAnchor(ctx context.Context, currency string) (decimal.Decimal, error) {
	if err := l.limiter.Allow(ctx, l.Name()); err != nil {
		return decimal.Zero, err
	}
	return l.AnchorProvider.RateToAnchor(ctx, currency)
}
