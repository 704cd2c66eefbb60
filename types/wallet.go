package types

// WalletBalance is one currency's balance within a Wallet snapshot.
type WalletBalance struct {
	Currency string
	Total    FloatString
	Free     FloatString
}

// Wallet is a point-in-time snapshot pushed to subscribe_wallet callbacks,
// sourced from exchange WS position events (Ftx) or from account
// subscriptions over a margin account (Mango).
type Wallet struct {
	Balances []WalletBalance
}
