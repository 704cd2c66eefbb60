// Package refdata defines the reference-data collaborator consumed by
// chainclient and exchange. Strategy and pricing logic are out of scope
// for this module; only the lookup interface and an in-memory stub
// sufficient for tests live here.
package refdata

import (
	"fmt"

	"github.com/banky/relay/config"
)

// Lookup resolves the trading pairs and currencies configured for this
// runtime. Implementations may be backed by config, a database, or a
// remote service; this module only depends on the interface.
type Lookup interface {
	TradingPair(ftxMarketName string) (config.TradingPair, bool)
	Currency(currencyName string) (config.Currency, bool)
}

// Static is an in-memory Lookup backed by the slices loaded into Config.
type Static struct {
	pairs      map[string]config.TradingPair
	currencies map[string]config.Currency
}

// NewStatic indexes cfg's trading pairs and currencies by name.
func NewStatic(cfg *config.Config) *Static {
	s := &Static{
		pairs:      make(map[string]config.TradingPair, len(cfg.TradingPairs)),
		currencies: make(map[string]config.Currency, len(cfg.Currencies)),
	}
	for _, p := range cfg.TradingPairs {
		s.pairs[p.FtxMarketName] = p
	}
	for _, c := range cfg.Currencies {
		s.currencies[c.CurrencyName] = c
	}
	return s
}

// TradingPair resolves ftxMarketName to its configured pair.
func (s *Static) TradingPair(ftxMarketName string) (config.TradingPair, bool) {
	p, ok := s.pairs[ftxMarketName]
	return p, ok
}

// Currency resolves currencyName to its configured entry.
func (s *Static) Currency(currencyName string) (config.Currency, bool) {
	c, ok := s.currencies[currencyName]
	return c, ok
}

// ErrNotFound is returned by helper lookups that need an error rather
// than a boolean when a name is unrecognized.
type ErrNotFound struct {
	Kind string
	Name string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("refdata: unknown %s %q", e.Kind, e.Name)
}

// MustTradingPair resolves ftxMarketName or returns ErrNotFound.
func MustTradingPair(l Lookup, ftxMarketName string) (config.TradingPair, error) {
	p, ok := l.TradingPair(ftxMarketName)
	if !ok {
		return config.TradingPair{}, &ErrNotFound{Kind: "trading pair", Name: ftxMarketName}
	}
	return p, nil
}

// MustCurrency resolves currencyName or returns ErrNotFound.
func MustCurrency(l Lookup, currencyName string) (config.Currency, error) {
	c, ok := l.Currency(currencyName)
	if !ok {
		return config.Currency{}, &ErrNotFound{Kind: "currency", Name: currencyName}
	}
	return c, nil
}
