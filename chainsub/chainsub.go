// Package chainsub implements the three specialized subscribers layered
// on top of submux: Account (persistent), Signature (one-shot), and Slot
// (persistent, plus a polling adapter for recent-blockhash fetches).
package chainsub

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/banky/relay/chainhttp"
	"github.com/banky/relay/constants"
	"github.com/banky/relay/relayerr"
	"github.com/banky/relay/rpcws"
	"github.com/banky/relay/submux"
	"github.com/banky/relay/types"
)

// Account is the persistent account-data subscriber. Its ResourceKey is
// (PublicKey, Commitment).
type Account struct {
	mux    *submux.Mux
	client *rpcws.Client
}

// NewAccount wires an Account subscriber to the given mux and transport.
func NewAccount(mux *submux.Mux, client *rpcws.Client) *Account {
	return &Account{mux: mux, client: client}
}

func accountKey(pubkey string, commitment types.Commitment) submux.ResourceKey {
	return submux.ResourceKey(fmt.Sprintf("account:%s:%s", pubkey, commitment))
}

// Subscribe subscribes to pubkey's account data at commitment, invoking cb
// with every decoded AccountInfo push.
func (a *Account) Subscribe(ctx context.Context, pubkey string, commitment types.Commitment, cb func(types.AccountInfo)) (submux.Handle, error) {
	key := accountKey(pubkey, commitment)

	wrapped := func(raw json.RawMessage) {
		var note struct {
			Value types.AccountInfo `json:"value"`
		}
		if err := json.Unmarshal(raw, &note); err != nil {
			return
		}
		cb(note.Value)
	}

	subscribeFn := func(ctx context.Context, onNote func(json.RawMessage)) (uint64, error) {
		return rpcws.SendSubscribe(ctx, a.client, "accountSubscribe", []any{
			pubkey,
			map[string]any{"commitment": commitment.String(), "encoding": "base64"},
		}, onNote)
	}

	return a.mux.Subscribe(ctx, key, wrapped, subscribeFn)
}

// Unsubscribe cancels handle, issuing accountUnsubscribe upstream only once
// the resource's last local callback is removed.
func (a *Account) Unsubscribe(ctx context.Context, handle submux.Handle) error {
	return a.mux.Unsubscribe(ctx, handle, func(ctx context.Context, serverID uint64) error {
		return rpcws.Unsubscribe(ctx, a.client, "accountUnsubscribe", serverID)
	})
}

// Signature is the one-shot transaction-confirmation subscriber: it
// expects exactly one notification, then tears itself down.
type Signature struct {
	mux    *submux.Mux
	client *rpcws.Client
}

// NewSignature wires a Signature subscriber to the given mux and transport.
func NewSignature(mux *submux.Mux, client *rpcws.Client) *Signature {
	return &Signature{mux: mux, client: client}
}

// SignatureResult is the outcome of awaiting one signature confirmation.
// Err is nil when the transaction landed without error.
type SignatureResult struct {
	Err *string
}

func signatureKey(signature string, commitment types.Commitment) submux.ResourceKey {
	return submux.ResourceKey(fmt.Sprintf("signature:%s:%s", signature, commitment))
}

// Await subscribes to signature at commitment and blocks until the single
// expected notification arrives or the confirmation timeout elapses.
func (s *Signature) Await(ctx context.Context, signature string, commitment types.Commitment) (SignatureResult, error) {
	subscribeFn := func(ctx context.Context, onNote func(json.RawMessage)) (uint64, error) {
		return rpcws.SendSubscribe(ctx, s.client, "signatureSubscribe", []any{
			signature,
			map[string]any{"commitment": commitment.String()},
		}, onNote)
	}
	return s.awaitWithTimeout(ctx, signature, commitment, subscribeFn, constants.SignatureConfirmationTimeout)
}

// awaitWith runs the one-shot wait with the default confirmation timeout
// and a caller-supplied subscribeFn, split out from Await so tests can
// drive the notification without a real transport.
func (s *Signature) awaitWith(ctx context.Context, signature string, commitment types.Commitment, subscribeFn submux.SubscribeFunc) (SignatureResult, error) {
	return s.awaitWithTimeout(ctx, signature, commitment, subscribeFn, constants.SignatureConfirmationTimeout)
}

func (s *Signature) awaitWithTimeout(ctx context.Context, signature string, commitment types.Commitment, subscribeFn submux.SubscribeFunc, timeout time.Duration) (SignatureResult, error) {
	key := signatureKey(signature, commitment)
	noteCh := make(chan json.RawMessage, 1)

	cb := func(raw json.RawMessage) {
		select {
		case noteCh <- raw:
		default:
		}
	}

	handle, err := s.mux.Subscribe(ctx, key, cb, subscribeFn)
	if err != nil {
		return SignatureResult{}, err
	}

	select {
	case raw := <-noteCh:
		// The server removes this subscription itself after one delivery;
		// never issue a client-side UNSUBSCRIBE for it.
		s.mux.RemoveTerminated(key)

		var note struct {
			Value struct {
				Err *json.RawMessage `json:"err"`
			} `json:"value"`
		}
		if err := json.Unmarshal(raw, &note); err != nil {
			return SignatureResult{}, relayerr.New(relayerr.KindSerialize, err)
		}
		if note.Value.Err == nil {
			return SignatureResult{}, nil
		}
		errText := string(*note.Value.Err)
		return SignatureResult{Err: &errText}, nil

	case <-time.After(timeout):
		s.mux.Unsubscribe(ctx, handle, func(ctx context.Context, serverID uint64) error {
			return rpcws.Unsubscribe(ctx, s.client, "signatureUnsubscribe", serverID)
		})
		return SignatureResult{}, relayerr.Newf(relayerr.KindConfirmationTimeout, "signature %s unconfirmed after %s", signature, timeout)

	case <-ctx.Done():
		return SignatureResult{}, relayerr.New(relayerr.KindConfirmationTimeout, ctx.Err())
	}
}

// SlotNotification is one (parent, root, slot) tuple pushed by the node.
type SlotNotification struct {
	Parent uint64 `json:"parent"`
	Root   uint64 `json:"root"`
	Slot   uint64 `json:"slot"`
}

// Slot is the persistent slot subscriber. Its ResourceKey is the unit
// value: there is only ever one slot subscription.
type Slot struct {
	mux    *submux.Mux
	client *rpcws.Client
	http   *chainhttp.Client
}

// NewSlot wires a Slot subscriber to the given mux, transport, and HTTP
// client (used only by SubscribeRecentBlockhash's polling adapter).
func NewSlot(mux *submux.Mux, client *rpcws.Client, httpClient *chainhttp.Client) *Slot {
	return &Slot{mux: mux, client: client, http: httpClient}
}

const slotKey submux.ResourceKey = "slot"

// Subscribe subscribes to the node's slot stream.
func (s *Slot) Subscribe(ctx context.Context, cb func(SlotNotification)) (submux.Handle, error) {
	wrapped := func(raw json.RawMessage) {
		var note SlotNotification
		if err := json.Unmarshal(raw, &note); err != nil {
			return
		}
		cb(note)
	}

	subscribeFn := func(ctx context.Context, onNote func(json.RawMessage)) (uint64, error) {
		return rpcws.SendSubscribe(ctx, s.client, "slotSubscribe", nil, onNote)
	}

	return s.mux.Subscribe(ctx, slotKey, wrapped, subscribeFn)
}

// Unsubscribe cancels handle, issuing slotUnsubscribe upstream only once
// the last local callback is removed.
func (s *Slot) Unsubscribe(ctx context.Context, handle submux.Handle) error {
	return s.mux.Unsubscribe(ctx, handle, func(ctx context.Context, serverID uint64) error {
		return rpcws.Unsubscribe(ctx, s.client, "slotUnsubscribe", serverID)
	})
}

// RecentBlockhashSubscription is the handle returned by
// SubscribeRecentBlockhash; Stop tears down only the polling adapter, not
// the underlying slot subscription.
type RecentBlockhashSubscription struct {
	stop chan struct{}
}

// Stop ends the polling adapter.
func (r *RecentBlockhashSubscription) Stop() {
	close(r.stop)
}

// SubscribeRecentBlockhash is not a server push: on cadence, it fetches a
// recent blockhash over HTTP and invokes cb, presented with the same
// subscription shape as a real push subscriber.
func (s *Slot) SubscribeRecentBlockhash(ctx context.Context, cadence time.Duration, cb func(string, error)) *RecentBlockhashSubscription {
	sub := &RecentBlockhashSubscription{stop: make(chan struct{})}

	go func() {
		ticker := time.NewTicker(cadence)
		defer ticker.Stop()
		for {
			select {
			case <-sub.stop:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				hash, err := s.http.GetRecentBlockhash(ctx)
				cb(hash, err)
			}
		}
	}()

	return sub
}
