package refdata

import (
	"testing"

	"github.com/banky/relay/config"
	"github.com/maxatome/go-testdeep/td"
)

func testConfig() *config.Config {
	return &config.Config{
		TradingPairs: []config.TradingPair{
			{FtxMarketName: "SOL/USD", SerumMarketAddress: "abc123"},
		},
		Currencies: []config.Currency{
			{CurrencyName: "USDC", MintAddress: "def456"},
		},
	}
}

func TestStaticResolvesKnownNames(t *testing.T) {
	s := NewStatic(testConfig())

	pair, ok := s.TradingPair("SOL/USD")
	td.Cmp(t, ok, true)
	td.Cmp(t, pair.SerumMarketAddress, "abc123")

	cur, ok := s.Currency("USDC")
	td.Cmp(t, ok, true)
	td.Cmp(t, cur.MintAddress, "def456")
}

func TestMustLookupReturnsNotFoundError(t *testing.T) {
	s := NewStatic(testConfig())

	_, err := MustTradingPair(s, "BTC/USD")
	td.Require(t).CmpError(err)

	_, err = MustCurrency(s, "USDT")
	td.Require(t).CmpError(err)
}
