package exchange

import (
	"context"

	"github.com/banky/relay/config"
	"github.com/banky/relay/relayerr"
	"github.com/banky/relay/strand"
	"github.com/banky/relay/types"
	"github.com/banky/relay/ws"
)

// FtxWalletClient exposes subscribe_wallet, deriving Wallet snapshots from
// the venue's private "positions" WS channel.
type FtxWalletClient struct {
	strand *strand.Strand
	cfg    config.FtxAuthenticationConfig
	ws     *ws.Manager
}

// NewFtxWalletClient wires a FtxWalletClient to an already-constructed WS
// manager.
func NewFtxWalletClient(cfg config.FtxAuthenticationConfig, wsManager *ws.Manager) *FtxWalletClient {
	return &FtxWalletClient{
		strand: strand.New("ftx-wallet-client"),
		cfg:    cfg,
		ws:     wsManager,
	}
}

// Login authenticates the WS connection for the private positions channel.
func (c *FtxWalletClient) Login(ctx context.Context) error {
	if err := c.ws.Login(ctx, wsLoginArgs(c.cfg)); err != nil {
		return relayerr.New(relayerr.KindAuth, err)
	}
	return nil
}

// SubscribeWallet registers cb to be invoked with every Wallet snapshot
// pushed on the positions channel.
func (c *FtxWalletClient) SubscribeWallet(cb func(types.Wallet)) int {
	return c.ws.SubscribePositions(func(msg ws.PositionsMessage) {
		c.strand.Go(func() {
			cb(walletFromMessage(msg))
		})
	})
}

func walletFromMessage(msg ws.PositionsMessage) types.Wallet {
	balances := make([]types.WalletBalance, 0, len(msg.Balances))
	for _, b := range msg.Balances {
		balances = append(balances, types.WalletBalance{
			Currency: b.Coin,
			Total:    b.Total,
			Free:     b.Free,
		})
	}
	return types.Wallet{Balances: balances}
}

// Close tears down the wallet client's strand.
func (c *FtxWalletClient) Close() {
	c.strand.Close()
}
