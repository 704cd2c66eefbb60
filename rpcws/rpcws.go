// Package rpcws is the JSON-RPC-2.0-over-WebSocket transport and request
// correlator bound to the chain node, merging the roles the distilled spec
// calls WsTransport and RpcCorrelator into a single strand-bound Client —
// the teacher's Manager/WSClient split collapsed onto one connection.
package rpcws

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/banky/relay/config"
	"github.com/banky/relay/relayerr"
	"github.com/banky/relay/strand"
	"github.com/cenkalti/backoff/v4"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// CallTimeout bounds every request awaiting its correlated response.
const CallTimeout = 15 * time.Second

type pendingRequest struct {
	resultCh chan json.RawMessage
	errCh    chan error
}

// Client is a single outbound WebSocket connection to a configured chain
// endpoint, with request/response correlation by numeric id and
// notification routing by params.subscription. All mutable state is
// confined to its strand.
type Client struct {
	endpoint config.SolanaEndpointConfig
	strand   *strand.Strand

	conn   *websocket.Conn
	nextID uint64

	pending       map[uint64]*pendingRequest
	subscriptions map[uint64]func(json.RawMessage)

	// OnInvalidate, if set, is invoked with every subscription id still
	// registered at the moment a reconnect tears down the connection.
	// submux does not set it and has no invalidation hook: its
	// ActiveSubscription entries stay in place across a reconnect.
	OnInvalidate func(ids []uint64)

	stopCh  chan struct{}
	closed  atomic.Bool
	writeMu chan struct{}
}

// New creates a Client bound to endpoint. Connect must be called before use.
func New(endpoint config.SolanaEndpointConfig) *Client {
	return &Client{
		endpoint:      endpoint,
		strand:        strand.New("rpcws-client"),
		pending:       make(map[uint64]*pendingRequest),
		subscriptions: make(map[uint64]func(json.RawMessage)),
		stopCh:        make(chan struct{}),
		writeMu:       make(chan struct{}, 1),
	}
}

// Connect dials the endpoint and starts the read loop. On read failure the
// client reconnects in the background with bounded exponential backoff;
// every outstanding request fails with relayerr.KindTransport and every
// registered subscription is reported via OnInvalidate.
func (c *Client) Connect(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.endpoint.URL(), nil)
	if err != nil {
		return relayerr.New(relayerr.KindTransport, fmt.Errorf("dial %s: %w", c.endpoint.URL(), err))
	}

	done, err := strand.Call(c.strand, func() (bool, error) {
		c.conn = conn
		return true, nil
	})
	if err != nil || !done {
		return relayerr.New(relayerr.KindTransport, err)
	}

	go c.readLoop()
	return nil
}

// setConn installs conn directly, bypassing endpoint dialing; used by tests
// that dial a local server under a URL the endpoint config doesn't compose.
func (c *Client) setConn(conn *websocket.Conn) {
	strand.Call(c.strand, func() (bool, error) {
		c.conn = conn
		return true, nil
	})
}

// Close tears down the connection and the owning strand.
func (c *Client) Close() {
	if c.closed.CompareAndSwap(false, true) {
		close(c.stopCh)
	}
	strand.Call(c.strand, func() (bool, error) {
		if c.conn != nil {
			c.conn.Close()
		}
		return true, nil
	})
	c.strand.Close()
}

func (c *Client) readLoop() {
	for {
		select {
		case <-c.stopCh:
			return
		default:
		}

		conn, _ := strand.Call(c.strand, func() (*websocket.Conn, error) { return c.conn, nil })
		if conn == nil {
			return
		}

		_, data, err := conn.ReadMessage()
		if err != nil {
			if c.closed.Load() {
				return
			}
			c.reconnect()
			continue
		}

		c.handleInbound(data)
	}
}

func (c *Client) reconnect() {
	c.strand.Go(func() {
		ids := make([]uint64, 0, len(c.subscriptions))
		for id := range c.subscriptions {
			ids = append(ids, id)
		}
		c.subscriptions = make(map[uint64]func(json.RawMessage))

		for _, p := range c.pending {
			p.errCh <- relayerr.New(relayerr.KindTransport, fmt.Errorf("connection reset"))
		}
		c.pending = make(map[uint64]*pendingRequest)

		if c.conn != nil {
			c.conn.Close()
			c.conn = nil
		}

		if c.OnInvalidate != nil && len(ids) > 0 {
			c.OnInvalidate(ids)
		}
	})

	bo := backoff.NewExponentialBackOff()
	bo.MaxInterval = 30 * time.Second
	bo.MaxElapsedTime = 0

	err := backoff.Retry(func() error {
		select {
		case <-c.stopCh:
			return backoff.Permanent(fmt.Errorf("closed"))
		default:
		}
		conn, _, dialErr := websocket.DefaultDialer.Dial(c.endpoint.URL(), nil)
		if dialErr != nil {
			log.Warn().Err(dialErr).Str("endpoint", c.endpoint.URL()).Msg("rpcws reconnect attempt failed")
			return dialErr
		}
		strand.Call(c.strand, func() (bool, error) {
			c.conn = conn
			return true, nil
		})
		return nil
	}, bo)
	if err != nil {
		log.Error().Err(err).Msg("rpcws giving up reconnecting")
	}
}

type inboundFrame struct {
	ID     *json.RawMessage   `json:"id"`
	Result json.RawMessage    `json:"result"`
	Error  *rpcErrorObj       `json:"error"`
	Method string             `json:"method"`
	Params *notificationShape `json:"params"`
}

type notificationShape struct {
	Subscription uint64          `json:"subscription"`
	Result       json.RawMessage `json:"result"`
}

type rpcErrorObj struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (c *Client) handleInbound(data []byte) {
	var frame inboundFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		log.Warn().Err(err).Msg("rpcws malformed inbound frame")
		return
	}

	if frame.ID != nil {
		var id uint64
		if err := json.Unmarshal(*frame.ID, &id); err != nil {
			log.Warn().Err(err).Msg("rpcws non-numeric response id")
			return
		}
		c.strand.Go(func() {
			p, ok := c.pending[id]
			if !ok {
				log.Warn().Uint64("id", id).Msg("rpcws response for unknown request id")
				return
			}
			delete(c.pending, id)
			if frame.Error != nil {
				p.errCh <- relayerr.ServerError(frame.Error.Code, frame.Error.Message)
				return
			}
			p.resultCh <- frame.Result
		})
		return
	}

	if frame.Method != "" && frame.Params != nil {
		c.strand.Go(func() {
			cb, ok := c.subscriptions[frame.Params.Subscription]
			if !ok {
				log.Warn().Uint64("subscription", frame.Params.Subscription).Msg("rpcws notification for unknown subscription")
				return
			}
			cb(frame.Params.Result)
		})
	}
}

func (c *Client) send(data []byte) error {
	c.writeMu <- struct{}{}
	defer func() { <-c.writeMu }()

	conn, _ := strand.Call(c.strand, func() (*websocket.Conn, error) { return c.conn, nil })
	if conn == nil {
		return relayerr.New(relayerr.KindTransport, fmt.Errorf("not connected"))
	}
	return conn.WriteMessage(websocket.TextMessage, data)
}

type request struct {
	Jsonrpc string `json:"jsonrpc"`
	ID      uint64 `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

// Call issues a JSON-RPC request and decodes the result into T.
func Call[T any](ctx context.Context, c *Client, method string, params any) (T, error) {
	var zero T

	id, err := strand.Call(c.strand, func() (uint64, error) {
		c.nextID++
		return c.nextID, nil
	})
	if err != nil {
		return zero, relayerr.New(relayerr.KindSerialize, err)
	}

	req := request{Jsonrpc: "2.0", ID: id, Method: method, Params: params}
	data, err := json.Marshal(req)
	if err != nil {
		return zero, relayerr.New(relayerr.KindSerialize, err)
	}

	pr := &pendingRequest{resultCh: make(chan json.RawMessage, 1), errCh: make(chan error, 1)}
	if _, err := strand.Call(c.strand, func() (bool, error) {
		c.pending[id] = pr
		return true, nil
	}); err != nil {
		return zero, relayerr.New(relayerr.KindShutdown, err)
	}

	if err := c.send(data); err != nil {
		strand.Call(c.strand, func() (bool, error) { delete(c.pending, id); return true, nil })
		return zero, err
	}

	select {
	case raw := <-pr.resultCh:
		if err := json.Unmarshal(raw, &zero); err != nil {
			return zero, relayerr.New(relayerr.KindSerialize, err)
		}
		return zero, nil
	case err := <-pr.errCh:
		return zero, err
	case <-time.After(CallTimeout):
		strand.Call(c.strand, func() (bool, error) { delete(c.pending, id); return true, nil })
		return zero, relayerr.Newf(relayerr.KindTimeout, "%s timed out after %s", method, CallTimeout)
	case <-ctx.Done():
		strand.Call(c.strand, func() (bool, error) { delete(c.pending, id); return true, nil })
		return zero, relayerr.New(relayerr.KindTimeout, ctx.Err())
	}
}

// SendSubscribe issues a SUBSCRIBE-style JSON-RPC request (method names
// like "accountSubscribe"); on success the server-assigned subscription id
// is registered so future notifications are routed to onNote.
func SendSubscribe(ctx context.Context, c *Client, method string, params any, onNote func(json.RawMessage)) (uint64, error) {
	subID, err := Call[uint64](ctx, c, method, params)
	if err != nil {
		return 0, err
	}

	strand.Call(c.strand, func() (bool, error) {
		c.subscriptions[subID] = onNote
		return true, nil
	})
	return subID, nil
}

// Unsubscribe removes the notification route for subID and issues the
// corresponding unsubscribe RPC (e.g. "accountUnsubscribe").
func Unsubscribe(ctx context.Context, c *Client, method string, subID uint64) error {
	strand.Call(c.strand, func() (bool, error) {
		delete(c.subscriptions, subID)
		return true, nil
	})
	_, err := Call[bool](ctx, c, method, []uint64{subID})
	return err
}
