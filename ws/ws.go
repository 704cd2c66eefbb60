// Package ws is the push-side transport for the Ftx-style exchange venue:
// a single WebSocket carrying private order, fill and position updates,
// fanned out to the callbacks registered for each channel.
package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/rs/zerolog/log"
)

// Manager owns one WebSocket connection and routes inbound frames to the
// callbacks registered per channel.
type Manager struct {
	baseURL string

	mu                  sync.RWMutex
	conn                *websocket.Conn
	ready               bool
	queued              []queuedSubscription
	activeSubscriptions map[string][]subscription
	subscriptionIDSeq   int

	stopChan chan struct{}
	wg       sync.WaitGroup
}

type subscription struct {
	id       int
	callback any
}

type queuedSubscription struct {
	channel  string
	callback any
	id       int
}

// New creates a Manager bound to baseURL (e.g. constants.FtxMainnetWSURL).
func New(baseURL string) *Manager {
	return &Manager{
		baseURL:             baseURL,
		activeSubscriptions: make(map[string][]subscription),
		stopChan:            make(chan struct{}),
	}
}

// Start dials the WebSocket and begins the read/ping loops.
func (m *Manager) Start(ctx context.Context) error {
	if _, err := url.Parse(m.baseURL); err != nil {
		return fmt.Errorf("parse ws base url %q: %w", m.baseURL, err)
	}

	conn, _, err := websocket.Dial(ctx, m.baseURL, nil)
	if err != nil {
		return fmt.Errorf("dial exchange websocket: %w", err)
	}

	m.mu.Lock()
	m.conn = conn
	m.ready = true
	queued := m.queued
	m.queued = nil
	m.mu.Unlock()

	m.wg.Add(2)
	go m.readLoop()
	go m.pingLoop()

	for _, qs := range queued {
		m.subscribeChannel(qs.channel, qs.callback, qs.id)
	}

	return nil
}

// Stop closes the connection and waits for the background loops to exit.
func (m *Manager) Stop() {
	close(m.stopChan)

	m.mu.Lock()
	if m.conn != nil {
		m.conn.Close(websocket.StatusNormalClosure, "closing")
	}
	m.mu.Unlock()

	m.wg.Wait()
}

// Login sends the authenticated "login" op required before the private
// orders/fills/positions channels accept subscriptions.
func (m *Manager) Login(ctx context.Context, args map[string]any) error {
	msg := map[string]any{"op": "login", "args": args}
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal login op: %w", err)
	}
	return m.write(ctx, data)
}

func (m *Manager) write(ctx context.Context, data []byte) error {
	m.mu.RLock()
	conn := m.conn
	m.mu.RUnlock()

	if conn == nil {
		return fmt.Errorf("websocket not connected")
	}
	return conn.Write(ctx, websocket.MessageText, data)
}

func (m *Manager) readLoop() {
	defer m.wg.Done()

	for {
		select {
		case <-m.stopChan:
			return
		default:
		}

		m.mu.RLock()
		conn := m.conn
		m.mu.RUnlock()
		if conn == nil {
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		_, data, err := conn.Read(ctx)
		cancel()

		if err != nil {
			if websocket.CloseStatus(err) == websocket.StatusNormalClosure {
				return
			}
			log.Warn().Err(err).Msg("exchange websocket read error")
			return
		}

		m.handleMessage(data)
	}
}

func (m *Manager) pingLoop() {
	defer m.wg.Done()

	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-m.stopChan:
			return
		case <-ticker.C:
			msg := map[string]string{"op": "ping"}
			data, _ := json.Marshal(msg)
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			err := m.write(ctx, data)
			cancel()
			if err != nil {
				log.Warn().Err(err).Msg("exchange websocket ping error")
				return
			}
		}
	}
}

func (m *Manager) handleMessage(data []byte) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		log.Warn().Err(err).Msg("unmarshal exchange ws envelope")
		return
	}

	switch env.Type {
	case "pong", "subscribed", "unsubscribed", "info":
		return
	case "error":
		log.Warn().RawJSON("frame", data).Msg("exchange websocket error frame")
		return
	}

	switch env.Channel {
	case "orders":
		var msg OrdersMessage
		if err := json.Unmarshal(data, &rawChannelWrap{Data: &msg}); err != nil {
			log.Warn().Err(err).Msg("unmarshal orders message")
			return
		}
		m.routeMessage("orders", msg)
	case "fills":
		var msg FillsMessage
		if err := json.Unmarshal(data, &rawChannelWrap{Data: &msg}); err != nil {
			log.Warn().Err(err).Msg("unmarshal fills message")
			return
		}
		m.routeMessage("fills", msg)
	case "positions":
		var msg PositionsMessage
		if err := json.Unmarshal(data, &rawChannelWrap{Data: &msg}); err != nil {
			log.Warn().Err(err).Msg("unmarshal positions message")
			return
		}
		m.routeMessage("positions", msg)
	default:
		log.Warn().Str("channel", env.Channel).Msg("exchange websocket unknown channel")
	}
}

// rawChannelWrap unmarshals the venue's {"channel":...,"data":...} envelope
// directly into Data.
type rawChannelWrap struct {
	Data any `json:"data"`
}

func (w *rawChannelWrap) UnmarshalJSON(b []byte) error {
	var raw struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	return json.Unmarshal(raw.Data, w.Data)
}

func (m *Manager) routeMessage(channel string, msg any) {
	m.mu.RLock()
	callbacks := m.activeSubscriptions[channel]
	m.mu.RUnlock()

	if len(callbacks) == 0 {
		log.Warn().Str("channel", channel).Msg("exchange websocket message from unexpected subscription")
		return
	}

	for _, sub := range callbacks {
		callCallback(sub.callback, msg)
	}
}

func callCallback(callback any, msg any) {
	switch cb := callback.(type) {
	case func(OrdersMessage):
		if m, ok := msg.(OrdersMessage); ok {
			go cb(m)
		}
	case func(FillsMessage):
		if m, ok := msg.(FillsMessage); ok {
			go cb(m)
		}
	case func(PositionsMessage):
		if m, ok := msg.(PositionsMessage); ok {
			go cb(m)
		}
	default:
		log.Warn().Str("type", fmt.Sprintf("%T", callback)).Msg("unknown ws callback type")
	}
}

// SubscribeOrders subscribes the "orders" private channel.
func (m *Manager) SubscribeOrders(callback func(OrdersMessage)) int {
	return m.subscribe("orders", callback)
}

// SubscribeFills subscribes the "fills" private channel.
func (m *Manager) SubscribeFills(callback func(FillsMessage)) int {
	return m.subscribe("fills", callback)
}

// SubscribePositions subscribes the "positions" private channel that backs
// subscribe_wallet.
func (m *Manager) SubscribePositions(callback func(PositionsMessage)) int {
	return m.subscribe("positions", callback)
}

func (m *Manager) subscribe(channel string, callback any) int {
	m.mu.Lock()
	m.subscriptionIDSeq++
	id := m.subscriptionIDSeq
	m.mu.Unlock()

	m.subscribeChannel(channel, callback, id)
	return id
}

func (m *Manager) subscribeChannel(channel string, callback any, id int) {
	m.mu.Lock()
	if !m.ready {
		m.queued = append(m.queued, queuedSubscription{channel: channel, callback: callback, id: id})
		m.mu.Unlock()
		return
	}
	m.activeSubscriptions[channel] = append(m.activeSubscriptions[channel], subscription{id: id, callback: callback})
	m.mu.Unlock()

	msg := map[string]any{"op": "subscribe", "channel": channel}
	data, _ := json.Marshal(msg)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := m.write(ctx, data); err != nil {
		log.Warn().Err(err).Str("channel", channel).Msg("exchange websocket subscribe failed")
	}
}

// Unsubscribe removes the subscription identified by id from channel's
// callback list, issuing an UNSUBSCRIBE op once the list empties.
func (m *Manager) Unsubscribe(channel string, id int) bool {
	m.mu.Lock()
	subs := m.activeSubscriptions[channel]
	kept := subs[:0]
	removed := false
	for _, s := range subs {
		if s.id == id && !removed {
			removed = true
			continue
		}
		kept = append(kept, s)
	}
	m.activeSubscriptions[channel] = kept
	empty := len(kept) == 0
	m.mu.Unlock()

	if !removed {
		return false
	}
	if empty {
		msg := map[string]any{"op": "unsubscribe", "channel": channel}
		data, _ := json.Marshal(msg)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		m.write(ctx, data)
	}
	return true
}
