package chainclient

import (
	"context"
	"errors"

	"github.com/banky/relay/relayerr"
	"github.com/banky/relay/strand"
	"github.com/banky/relay/submux"
	"github.com/banky/relay/types"
	"github.com/gagliardetto/solana-go"
)

// MarginAccountDecoder decodes a venue margin account's raw bytes into the
// balances a Wallet snapshot carries. Decoding the Mango margin account
// layout itself is out of scope (§1 Non-goals); callers supply the
// decoder appropriate to their venue program version.
type MarginAccountDecoder func(data []byte) ([]types.WalletBalance, error)

// accountSubscriber is the slice of chainsub.Account that
// MangoWalletClient needs. Expressed as an interface so tests can drive
// account pushes without a real chain node.
type accountSubscriber interface {
	Subscribe(ctx context.Context, pubkey string, commitment types.Commitment, cb func(types.AccountInfo)) (submux.Handle, error)
	Unsubscribe(ctx context.Context, handle submux.Handle) error
}

// MangoWalletClient exposes subscribe_wallet, deriving Wallet snapshots
// from an Account subscription over the caller's margin account.
type MangoWalletClient struct {
	strand  *strand.Strand
	account accountSubscriber
	decode  MarginAccountDecoder

	handle submux.Handle
	hasSub bool
}

// NewMangoWalletClient wires a MangoWalletClient to an Account subscriber
// and the margin-account decoder for the configured venue program.
func NewMangoWalletClient(account accountSubscriber, decode MarginAccountDecoder) *MangoWalletClient {
	return &MangoWalletClient{
		strand:  strand.New("mango-wallet-client"),
		account: account,
		decode:  decode,
	}
}

// SubscribeWallet subscribes to marginAccount's data at confirmed
// commitment and invokes cb with every decoded Wallet snapshot.
func (c *MangoWalletClient) SubscribeWallet(ctx context.Context, marginAccount solana.PublicKey, cb func(types.Wallet)) (submux.Handle, error) {
	handle, err := c.account.Subscribe(ctx, marginAccount.String(), types.CommitmentConfirmed, func(info types.AccountInfo) {
		balances, err := c.decode(info.Data)
		if err != nil {
			return
		}
		c.strand.Go(func() {
			cb(types.Wallet{Balances: balances})
		})
	})
	if err != nil {
		return submux.Handle{}, err
	}

	c.strand.Go(func() {
		c.handle = handle
		c.hasSub = true
	})
	return handle, nil
}

var errNotSubscribed = errors.New("chainclient: wallet client has no active subscription")

// Unsubscribe tears down the margin-account subscription established by
// SubscribeWallet.
func (c *MangoWalletClient) Unsubscribe(ctx context.Context) error {
	handle, err := strand.Call(c.strand, func() (submux.Handle, error) {
		if !c.hasSub {
			return submux.Handle{}, relayerr.New(relayerr.KindShutdown, errNotSubscribed)
		}
		h := c.handle
		c.hasSub = false
		return h, nil
	})
	if err != nil {
		return err
	}
	return c.account.Unsubscribe(ctx, handle)
}

// Close tears down the wallet client's strand.
func (c *MangoWalletClient) Close() {
	c.strand.Close()
}
