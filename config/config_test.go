package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/maxatome/go-testdeep/td"
)

func TestLoadAppliesFileThenEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env")
	err := os.WriteFile(envPath, []byte("FTX_KEY=file-key\nFTX_SECRET=file-secret\n"), 0o600)
	td.Require(t).CmpNoError(err)

	t.Setenv("FTX_KEY", "env-key")

	cfg, err := Load(envPath)
	td.CmpNoError(t, err)
	td.Cmp(t, cfg.Ftx.Key, "env-key")
	td.Cmp(t, cfg.Ftx.Secret, "file-secret")
}

func TestLoadDefaultsWhenFileMissing(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	td.CmpNoError(t, err)
	td.Cmp(t, cfg.SolanaMaxMultipleAccounts, 100)
}

func TestParseTradingPairsAndCurrencies(t *testing.T) {
	t.Setenv("TRADING_PAIRS", "BTC/USD:serumAddr1, ETH/USD:serumAddr2")
	t.Setenv("CURRENCIES", "BTC:mintAddr1,ETH:mintAddr2")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	td.CmpNoError(t, err)
	td.Cmp(t, cfg.TradingPairs, []TradingPair{
		{FtxMarketName: "BTC/USD", SerumMarketAddress: "serumAddr1"},
		{FtxMarketName: "ETH/USD", SerumMarketAddress: "serumAddr2"},
	})
	td.Cmp(t, cfg.Currencies, []Currency{
		{CurrencyName: "BTC", MintAddress: "mintAddr1"},
		{CurrencyName: "ETH", MintAddress: "mintAddr2"},
	})
}
