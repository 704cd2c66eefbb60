// Package config loads the runtime configuration shared by every client
// constructor in this module. Values come from a .env-style file with
// environment-variable overrides, following the teacher's own use of
// godotenv for its integration test credentials.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/banky/relay/constants"
	"github.com/joho/godotenv"
)

// SolanaEndpointConfig describes one endpoint of the chain node. HTTP and
// WS are configured as distinct instances even when they share a host.
type SolanaEndpointConfig struct {
	Host    string
	Service string
	Target  string
}

// URL renders the endpoint as a single URL string.
func (e SolanaEndpointConfig) URL() string {
	return fmt.Sprintf("%s://%s/%s", e.Service, e.Host, strings.TrimPrefix(e.Target, "/"))
}

// FtxAuthenticationConfig carries the credentials used to sign REST and WS
// login requests against the exchange venue.
type FtxAuthenticationConfig struct {
	Host       string
	Key        string
	Secret     string
	Subaccount string
}

// TradingPair maps an exchange market name to its on-chain market address,
// consumed by the out-of-scope reference-data collaborator.
type TradingPair struct {
	FtxMarketName      string
	SerumMarketAddress string
}

// Currency maps a currency name to its on-chain mint address, also
// consumed only by the reference-data collaborator.
type Currency struct {
	CurrencyName string
	MintAddress  string
}

// Config is the full set of values every client constructor in this module
// takes as an explicit dependency.
type Config struct {
	SolanaHTTP SolanaEndpointConfig
	SolanaWS   SolanaEndpointConfig
	Ftx        FtxAuthenticationConfig

	SolanaMaxMultipleAccounts int
	KeyStoreDir               string

	TradingPairs []TradingPair
	Currencies   []Currency
}

// Load reads path as a .env-style file (if present) via godotenv, then
// resolves every field from the process environment, environment variables
// taking precedence over values defined in the file itself.
func Load(path string) (*Config, error) {
	fileVals, err := godotenv.Read(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config file %q: %w", path, err)
	}

	get := func(key, fallback string) string {
		if v, ok := os.LookupEnv(key); ok {
			return v
		}
		if v, ok := fileVals[key]; ok {
			return v
		}
		return fallback
	}

	maxAccounts := constants.SolanaMaxMultipleAccountsDefault
	if raw := get("SOLANA_MAX_MULTIPLE_ACCOUNTS", ""); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("parse SOLANA_MAX_MULTIPLE_ACCOUNTS: %w", err)
		}
		maxAccounts = n
	}

	cfg := &Config{
		SolanaHTTP: SolanaEndpointConfig{
			Host:    get("SOLANA_HTTP_HOST", "api.mainnet-beta.solana.com"),
			Service: get("SOLANA_HTTP_SERVICE", "https"),
			Target:  get("SOLANA_HTTP_TARGET", "/"),
		},
		SolanaWS: SolanaEndpointConfig{
			Host:    get("SOLANA_WS_HOST", "api.mainnet-beta.solana.com"),
			Service: get("SOLANA_WS_SERVICE", "wss"),
			Target:  get("SOLANA_WS_TARGET", "/"),
		},
		Ftx: FtxAuthenticationConfig{
			Host:       get("FTX_HOST", constants.FtxMainnetAPIURL),
			Key:        get("FTX_KEY", ""),
			Secret:     get("FTX_SECRET", ""),
			Subaccount: get("FTX_SUBACCOUNT", ""),
		},
		SolanaMaxMultipleAccounts: maxAccounts,
		KeyStoreDir:               get("KEY_STORE_DIR", ""),
	}

	cfg.TradingPairs = parseTradingPairs(get("TRADING_PAIRS", ""))
	cfg.Currencies = parseCurrencies(get("CURRENCIES", ""))

	return cfg, nil
}

// parseTradingPairs parses a comma-separated list of
// "ftxMarketName:serumMarketAddress" entries.
func parseTradingPairs(raw string) []TradingPair {
	if raw == "" {
		return nil
	}
	var pairs []TradingPair
	for _, entry := range strings.Split(raw, ",") {
		parts := strings.SplitN(strings.TrimSpace(entry), ":", 2)
		if len(parts) != 2 {
			continue
		}
		pairs = append(pairs, TradingPair{FtxMarketName: parts[0], SerumMarketAddress: parts[1]})
	}
	return pairs
}

// parseCurrencies parses a comma-separated list of
// "currencyName:mintAddress" entries.
func parseCurrencies(raw string) []Currency {
	if raw == "" {
		return nil
	}
	var currencies []Currency
	for _, entry := range strings.Split(raw, ",") {
		parts := strings.SplitN(strings.TrimSpace(entry), ":", 2)
		if len(parts) != 2 {
			continue
		}
		currencies = append(currencies, Currency{CurrencyName: parts[0], MintAddress: parts[1]})
	}
	return currencies
}
