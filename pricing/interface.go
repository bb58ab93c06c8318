package pricing

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/shopspring/decimal"
)

// CryptoProvider returns spot prices for a batch of assets against one quote currency
type CryptoProvider interface {
	// Name returns the name of the provider
	Name() string

	// Prices returns Asset.ID -> price. Assets missing from the
	// upstream answer are simply absent from the map.
	Prices(ctx context.Context, assets []Asset, quote string) (map[string]decimal.Decimal, error)
}

// RateProvider returns exchange rates from one base currency to many quotes
type RateProvider interface {
	Name() string

	// Rates returns quote -> units of quote per 1 base.
	Rates(ctx context.Context, base string, quotes []string) (map[string]decimal.Decimal, error)
}

// AnchorProvider is a single-pair source expressing any currency in the anchor currency
type AnchorProvider interface {
	Name() string
	Anchor() string

	// RateToAnchor returns the value of 1 unit of currency in anchor units.
	RateToAnchor(ctx context.Context, currency string) (decimal.Decimal, error)
}

// CryptoFactory is a factory function type for creating crypto providers
type CryptoFactory func(opts Options) (CryptoProvider, error)

var (
	registryMu sync.RWMutex
	registry   = make(map[string]CryptoFactory)
)

// RegisterCrypto registers a crypto provider factory
func RegisterCrypto(name string, factory CryptoFactory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = factory
}

// NewCrypto creates a crypto provider instance by name
func NewCrypto(name string, opts Options) (CryptoProvider, error) {
	registryMu.RLock()
	factory, exists := registry[name]
	registryMu.RUnlock()
	if !exists {
		return nil, NewProviderError(name, "NOT_FOUND",
			"no such crypto provider, registered: "+strings.Join(RegisteredCrypto(), ", "), ErrProviderNotFound)
	}
	return factory(opts)
}

// RegisteredCrypto returns the sorted names of all registered crypto providers
func RegisteredCrypto() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
