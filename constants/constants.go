// Package constants holds fixed venue and protocol values shared across the
// relay module.
package constants

import "time"

const (
	// FtxMainnetAPIURL is the default Ftx-style exchange REST base URL.
	FtxMainnetAPIURL = "https://ftx.com/api"
	// FtxMainnetWSURL is the default Ftx-style exchange WebSocket URL.
	FtxMainnetWSURL = "wss://ftx.com/ws"
	// FtxTestnetAPIURL is the sandbox REST base URL.
	FtxTestnetAPIURL = "https://ftxus.com/api"

	// SolanaMaxMultipleAccountsDefault is the default cap on accounts
	// batched into a single getMultipleAccounts call, matching the chain
	// node's own limit.
	SolanaMaxMultipleAccountsDefault = 100

	// SubscribeTimeout is the generous rendezvous timeout a leader's
	// SUBSCRIBE RPC has to complete before followers give up.
	SubscribeTimeout = 30 * time.Second

	// SignatureConfirmationTimeout bounds how long a signature subscription
	// waits for its one notification before failing.
	SignatureConfirmationTimeout = 60 * time.Second

	// TokenMintAccountDataLen is the fixed SPL mint account byte length;
	// anything else decodes to relayerr.KindInvalidData.
	TokenMintAccountDataLen = 82
)
