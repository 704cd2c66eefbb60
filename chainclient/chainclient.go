// Package chainclient implements the order and wallet clients bound to the
// on-chain Mango-style venue: MangoOrderClient drives the submit ->
// confirm state machine over chainhttp and chainsub; MangoWalletClient
// derives Wallet snapshots from account subscriptions over a margin
// account. Both follow the same strand-owned-state shape as exchange's
// Ftx clients, substituting chainhttp/chainsub for REST/WS.
package chainclient

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/banky/relay/chainhttp"
	"github.com/banky/relay/chainsub"
	"github.com/banky/relay/relayerr"
	"github.com/banky/relay/statsink"
	"github.com/banky/relay/strand"
	"github.com/banky/relay/types"
	"github.com/gagliardetto/solana-go"
)

var zeroHash solana.Hash

func encodeTransaction(tx *solana.Transaction) (string, error) {
	raw, err := tx.MarshalBinary()
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

// orderConfirmTimeout bounds how long send_order waits for the signature
// subscription to resolve, beyond the subscriber's own confirmation
// timeout, so a caller never hangs past a bounded budget.
const orderConfirmTimeout = 90 * time.Second

// TransactionBuilder builds the instruction(s) addressing the venue
// program for an order; the multiplexer only needs to correlate the
// resulting signature with its confirmation, so full instruction encoding
// for the Mango program is left to the caller via this seam.
type TransactionBuilder func(order types.Order, payer solana.PublicKey, recentBlockhash solana.Hash) (*solana.Transaction, error)

// signatureAwaiter is the slice of chainsub.Signature that
// MangoOrderClient needs: awaiting exactly one confirmation notification
// per submitted transaction. Expressed as an interface so tests can drive
// the confirm step without a real chain node.
type signatureAwaiter interface {
	Await(ctx context.Context, signature string, commitment types.Commitment) (chainsub.SignatureResult, error)
}

// blockhashSource is the slice of chainsub.Slot that MangoOrderClient
// needs: a polling adapter feeding the strand-local blockhash cache.
type blockhashSource interface {
	SubscribeRecentBlockhash(ctx context.Context, cadence time.Duration, cb func(string, error)) *chainsub.RecentBlockhashSubscription
}

// MangoOrderClient exposes load_mango_account, send_order, and
// cancel_order against the on-chain venue, using a recent-blockhash cache
// fed by a Slot subscriber callback and confirming submissions through a
// Signature subscriber.
type MangoOrderClient struct {
	strand *strand.Strand

	http    *chainhttp.Client
	sig     signatureAwaiter
	signer  solana.PrivateKey
	payer   solana.PublicKey
	buildTx TransactionBuilder
	stats   *statsink.Sink

	// recentBlockhash is strand-local, fed only by the Slot subscriber's
	// recent-blockhash callback delivered as a task on this strand; no
	// other goroutine writes it directly.
	recentBlockhash solana.Hash

	blockhashSub *chainsub.RecentBlockhashSubscription
}

// MangoAccount is the venue margin account resolved by
// LoadMangoAccount, opaque beyond the fields a caller needs to place
// orders against it.
type MangoAccount struct {
	Address solana.PublicKey
	Owner   solana.PublicKey
	Data    []byte
}

// NewMangoOrderClient wires a MangoOrderClient to its collaborators.
// signer is the keypair used to sign submitted transactions; buildTx
// encodes the venue-specific instruction(s) for one order.
func NewMangoOrderClient(httpClient *chainhttp.Client, sig signatureAwaiter, slot blockhashSource, signer solana.PrivateKey, stats *statsink.Sink, buildTx TransactionBuilder) *MangoOrderClient {
	c := &MangoOrderClient{
		strand:  strand.New("mango-order-client"),
		http:    httpClient,
		sig:     sig,
		signer:  signer,
		payer:   signer.PublicKey(),
		buildTx: buildTx,
		stats:   stats,
	}
	c.blockhashSub = slot.SubscribeRecentBlockhash(context.Background(), 2*time.Second, c.onRecentBlockhash)
	return c
}

func (c *MangoOrderClient) onRecentBlockhash(encoded string, err error) {
	if err != nil {
		return
	}
	hash, err := solana.HashFromBase58(encoded)
	if err != nil {
		return
	}
	c.strand.Go(func() {
		c.recentBlockhash = hash
	})
}

// LoadMangoAccount fetches the caller's margin account data at confirmed
// commitment.
func (c *MangoOrderClient) LoadMangoAccount(ctx context.Context, address solana.PublicKey) (MangoAccount, error) {
	info, err := c.http.GetAccountInfo(ctx, address.String(), types.CommitmentConfirmed)
	if err != nil {
		return MangoAccount{}, err
	}
	owner, err := solana.PublicKeyFromBase58(info.Owner)
	if err != nil {
		return MangoAccount{}, relayerr.New(relayerr.KindInvalidData, fmt.Errorf("mango account owner: %w", err))
	}
	return MangoAccount{Address: address, Owner: owner, Data: info.Data}, nil
}

// LoadTokenMint fetches a currency's SPL mint account at confirmed
// commitment and decodes it, surfacing relayerr.KindInvalidData if the
// chain node returns anything other than the fixed 82-byte mint layout.
func (c *MangoOrderClient) LoadTokenMint(ctx context.Context, mintAddress solana.PublicKey) (types.TokenMintAccount, error) {
	info, err := c.http.GetAccountInfo(ctx, mintAddress.String(), types.CommitmentConfirmed)
	if err != nil {
		return types.TokenMintAccount{}, err
	}
	return types.DecodeTokenMintAccount(info.Data)
}

func (c *MangoOrderClient) emit(metric string, value float64, order types.Order) {
	if c.stats == nil {
		return
	}
	c.stats.Emit(statsink.Record{
		Component: "chainclient.MangoOrderClient",
		Metric:    metric,
		Value:     value,
		Tags: map[string]string{
			"market": order.Market,
			"state":  string(order.State),
		},
	})
}

// buildSignAndSubmit builds order's transaction against the cached recent
// blockhash, signs it with the client's key, and submits it over HTTP,
// returning the resulting transaction signature. Shared by SendOrder and
// CancelOrder, which differ only in what they do once a signature is in
// hand.
func (c *MangoOrderClient) buildSignAndSubmit(ctx context.Context, order types.Order) (string, error) {
	blockhash, err := strand.Call(c.strand, func() (solana.Hash, error) {
		return c.recentBlockhash, nil
	})
	if err != nil {
		return "", err
	}
	if blockhash == zeroHash {
		return "", relayerr.Newf(relayerr.KindInvalidData, "no recent blockhash cached yet")
	}

	tx, err := c.buildTx(order, c.payer, blockhash)
	if err != nil {
		return "", relayerr.New(relayerr.KindSerialize, err)
	}
	if _, err := tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(c.payer) {
			return &c.signer
		}
		return nil
	}); err != nil {
		return "", relayerr.New(relayerr.KindSerialize, err)
	}

	encoded, err := encodeTransaction(tx)
	if err != nil {
		return "", relayerr.New(relayerr.KindSerialize, err)
	}

	return c.http.SendTransaction(ctx, encoded)
}

// SendOrder runs the submit/confirm flow described in the source design:
// read the cached recent blockhash, build and sign a transaction
// addressing the venue program, submit it over HTTP, then await its
// signature confirmation at confirmed commitment.
func (c *MangoOrderClient) SendOrder(ctx context.Context, order types.Order) (types.Order, error) {
	order.State = types.OrderStateNew
	c.emit("order_state", 0, order)

	signature, err := c.buildSignAndSubmit(ctx, order)
	if err != nil {
		return order, err
	}
	order.VenueOrderID = signature
	order.State = types.OrderStateSubmitted
	c.emit("order_state", 1, order)

	confirmCtx, cancel := context.WithTimeout(ctx, orderConfirmTimeout)
	defer cancel()

	result, err := c.sig.Await(confirmCtx, signature, types.CommitmentConfirmed)
	if err != nil {
		if relayerr.Is(err, relayerr.KindConfirmationTimeout) {
			order.State = types.OrderStateTimeout
			c.emit("order_state", 2, order)
		}
		return order, err
	}

	if result.Err == nil {
		order.State = types.OrderStateConfirmed
		c.emit("order_state", 3, order)
		return order, nil
	}

	order.State = types.OrderStateRejected
	order.RejectReason = *result.Err
	c.emit("order_state", 4, order)
	return order, relayerr.Newf(relayerr.KindVenueError, "order %s rejected: %s", signature, *result.Err)
}

// CancelOrder cancels a previously submitted order by building and
// submitting the venue's cancel instruction through the same
// build/sign/submit path as SendOrder, using buildTx with a marker order
// whose VenueOrderID identifies the order to cancel.
func (c *MangoOrderClient) CancelOrder(ctx context.Context, order types.Order) (types.Order, error) {
	signature, err := c.buildSignAndSubmit(ctx, order)
	if err != nil {
		return order, err
	}

	confirmCtx, cancel := context.WithTimeout(ctx, orderConfirmTimeout)
	defer cancel()

	result, err := c.sig.Await(confirmCtx, signature, types.CommitmentConfirmed)
	if err != nil {
		return order, err
	}
	if result.Err != nil {
		return order, relayerr.Newf(relayerr.KindVenueError, "cancel %s rejected: %s", signature, *result.Err)
	}
	return order, nil
}

// Close tears down the recent-blockhash poller and the order client's
// strand.
func (c *MangoOrderClient) Close() {
	c.blockhashSub.Stop()
	c.strand.Close()
}
