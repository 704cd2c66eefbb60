// Package submux implements the subscription multiplexer: the algorithm
// guaranteeing at most one upstream SUBSCRIBE RPC per resource, fan-out of
// notifications to every local subscriber, and rendezvous coalescing of
// concurrent local subscribe calls issued while the leader's RPC is still
// in flight.
package submux

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/banky/relay/constants"
	"github.com/banky/relay/relayerr"
	"github.com/banky/relay/strand"
	"github.com/rs/zerolog/log"
)

// ResourceKey identifies the subscription target: (account, commitment)
// encoded as a string, a transaction signature, or the fixed sentinel for
// the unit-valued slot subscription.
type ResourceKey string

// SubscribeFunc performs the upstream SUBSCRIBE RPC and returns the
// server-assigned subscription id. onNote is invoked once per inbound
// notification for that id; it may be called from any goroutine.
type SubscribeFunc func(ctx context.Context, onNote func(json.RawMessage)) (uint64, error)

// UnsubscribeFunc performs the upstream UNSUBSCRIBE RPC for a previously
// returned server id.
type UnsubscribeFunc func(ctx context.Context, serverID uint64) error

// Handle identifies one local subscriber's place in a ResourceKey's
// callback list. It is opaque outside this package.
type Handle struct {
	Key ResourceKey
	id  uint64
}

type callbackEntry struct {
	id uint64
	cb func(json.RawMessage)
}

type activeSubscription struct {
	serverID  uint64
	callbacks []callbackEntry
}

type pendingWaiter struct {
	cb      func(json.RawMessage)
	outcome chan subscribeOutcome
}

type pendingSubscription struct {
	waiters []pendingWaiter
	timer   *strand.Timer
	// buffered holds notifications that arrive after subscribeFn has
	// registered its upstream handler but before the promotion task below
	// has run: the ActiveSubscription doesn't exist yet, so dispatch
	// parks them here instead of dropping them, and they are replayed
	// once the ActiveSubscription is installed.
	buffered []json.RawMessage
}

type subscribeOutcome struct {
	handleID uint64
	err      error
}

// Mux is a strand-bound subscription multiplexer. Every exported method
// submits its state mutation as a closure onto the owning strand.
type Mux struct {
	strand *strand.Strand

	active    map[ResourceKey]*activeSubscription
	pending   map[ResourceKey]*pendingSubscription
	handleSeq uint64
}

// New creates an empty Mux with its own strand.
func New(name string) *Mux {
	return &Mux{
		strand:  strand.New(name),
		active:  make(map[ResourceKey]*activeSubscription),
		pending: make(map[ResourceKey]*pendingSubscription),
	}
}

// Close tears down the mux's strand.
func (m *Mux) Close() { m.strand.Close() }

type decisionKind int

const (
	decisionActive decisionKind = iota
	decisionPending
	decisionLead
)

type decision struct {
	kind     decisionKind
	handleID uint64
}

// Subscribe runs the algorithm in full: fan-out onto an existing
// ActiveSubscription, coalescing onto an in-flight PendingSubscription, or
// leading a fresh upstream SUBSCRIBE via subscribeFn.
func (m *Mux) Subscribe(ctx context.Context, key ResourceKey, cb func(json.RawMessage), subscribeFn SubscribeFunc) (Handle, error) {
	outcomeCh := make(chan subscribeOutcome, 1)

	dec, err := strand.Call(m.strand, func() (decision, error) {
		if as, ok := m.active[key]; ok {
			m.handleSeq++
			id := m.handleSeq
			as.callbacks = append(as.callbacks, callbackEntry{id: id, cb: cb})
			return decision{kind: decisionActive, handleID: id}, nil
		}

		if ps, ok := m.pending[key]; ok {
			ps.waiters = append(ps.waiters, pendingWaiter{cb: cb, outcome: outcomeCh})
			return decision{kind: decisionPending}, nil
		}

		ps := &pendingSubscription{waiters: []pendingWaiter{{cb: cb, outcome: outcomeCh}}}
		m.pending[key] = ps
		ps.timer = m.strand.After(constants.SubscribeTimeout, func(timerErr error) {
			m.onRendezvousTimer(key, ps, timerErr)
		})
		return decision{kind: decisionLead}, nil
	})
	if err != nil {
		return Handle{}, err
	}

	switch dec.kind {
	case decisionActive:
		return Handle{Key: key, id: dec.handleID}, nil
	case decisionPending:
		return m.awaitOutcome(ctx, key, outcomeCh)
	case decisionLead:
		serverID, subErr := subscribeFn(ctx, func(raw json.RawMessage) {
			m.dispatch(key, raw)
		})
		m.strand.Go(func() {
			ps, ok := m.pending[key]
			if !ok {
				return
			}
			delete(m.pending, key)
			ps.timer.Cancel()

			if subErr != nil {
				for _, w := range ps.waiters {
					w.outcome <- subscribeOutcome{err: subErr}
				}
				return
			}

			as := &activeSubscription{serverID: serverID}
			ids := make([]uint64, len(ps.waiters))
			for i, w := range ps.waiters {
				m.handleSeq++
				ids[i] = m.handleSeq
				as.callbacks = append(as.callbacks, callbackEntry{id: ids[i], cb: w.cb})
			}
			m.active[key] = as

			// Replay anything dispatch parked while this subscription was
			// still pending, in arrival order, before waking waiters.
			for _, raw := range ps.buffered {
				for _, entry := range as.callbacks {
					entry.cb(raw)
				}
			}

			for i, w := range ps.waiters {
				w.outcome <- subscribeOutcome{handleID: ids[i]}
			}
		})
		return m.awaitOutcome(ctx, key, outcomeCh)
	default:
		return Handle{}, fmt.Errorf("submux: unreachable decision kind %d", dec.kind)
	}
}

func (m *Mux) awaitOutcome(ctx context.Context, key ResourceKey, outcomeCh chan subscribeOutcome) (Handle, error) {
	select {
	case outcome := <-outcomeCh:
		if outcome.err != nil {
			return Handle{}, outcome.err
		}
		return Handle{Key: key, id: outcome.handleID}, nil
	case <-ctx.Done():
		return Handle{}, relayerr.New(relayerr.KindTimeout, ctx.Err())
	}
}

// onRendezvousTimer runs on the strand (After delivers it there). A nil err
// is natural rendezvous expiry; relayerr.ErrAborted is the leader's own
// cancellation on success or failure, already handled by its own task.
func (m *Mux) onRendezvousTimer(key ResourceKey, ps *pendingSubscription, err error) {
	if err == relayerr.ErrAborted {
		return
	}
	if m.pending[key] != ps {
		return
	}
	delete(m.pending, key)
	timeoutErr := relayerr.Newf(relayerr.KindSubscribeTimeout, "rendezvous for %s timed out", key)
	for _, w := range ps.waiters {
		w.outcome <- subscribeOutcome{err: timeoutErr}
	}
}

// dispatch fans a notification out to every callback on key's
// ActiveSubscription, in append order, synchronously within the strand.
// A notification can arrive after subscribeFn's onNote handler is live but
// before the strand has run the closure that installs the
// ActiveSubscription (the two race independently for the strand's task
// queue). When that happens there is no active[key] yet, but pending[key]
// is still the authoritative record of this subscription in flight, so the
// notification is buffered there instead of being dropped.
func (m *Mux) dispatch(key ResourceKey, raw json.RawMessage) {
	m.strand.Go(func() {
		if as, ok := m.active[key]; ok {
			for _, entry := range as.callbacks {
				entry.cb(raw)
			}
			return
		}
		if ps, ok := m.pending[key]; ok {
			ps.buffered = append(ps.buffered, raw)
			return
		}
		log.Warn().Str("key", string(key)).Msg("submux notification for unknown resource")
	})
}

// Unsubscribe removes exactly one callback — the one identified by
// handle — from its ActiveSubscription. Only when the callback list
// empties is unsubscribeFn invoked; the ActiveSubscription is erased only
// once that call succeeds.
func (m *Mux) Unsubscribe(ctx context.Context, handle Handle, unsubscribeFn UnsubscribeFunc) error {
	type removal struct {
		shouldUnsub bool
		serverID    uint64
	}

	rem, err := strand.Call(m.strand, func() (removal, error) {
		as, ok := m.active[handle.Key]
		if !ok {
			return removal{}, nil
		}
		for i, entry := range as.callbacks {
			if entry.id == handle.id {
				as.callbacks = append(as.callbacks[:i], as.callbacks[i+1:]...)
				break
			}
		}
		if len(as.callbacks) == 0 {
			return removal{shouldUnsub: true, serverID: as.serverID}, nil
		}
		return removal{}, nil
	})
	if err != nil {
		return err
	}
	if !rem.shouldUnsub {
		return nil
	}

	if err := unsubscribeFn(ctx, rem.serverID); err != nil {
		return err
	}

	_, err = strand.Call(m.strand, func() (bool, error) {
		delete(m.active, handle.Key)
		return true, nil
	})
	return err
}

// RemoveTerminated erases key's ActiveSubscription without issuing an
// upstream UNSUBSCRIBE, for resources the server itself tears down after
// one delivery (e.g. a signature subscription).
func (m *Mux) RemoveTerminated(key ResourceKey) {
	strand.Call(m.strand, func() (bool, error) {
		delete(m.active, key)
		return true, nil
	})
}

// ActiveServerID returns the server-assigned subscription id for key, if
// an ActiveSubscription currently exists.
func (m *Mux) ActiveServerID(key ResourceKey) (uint64, bool) {
	type result struct {
		id uint64
		ok bool
	}
	r, _ := strand.Call(m.strand, func() (result, error) {
		as, ok := m.active[key]
		if !ok {
			return result{}, nil
		}
		return result{id: as.serverID, ok: true}, nil
	})
	return r.id, r.ok
}
