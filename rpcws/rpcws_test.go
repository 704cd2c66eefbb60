package rpcws

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/banky/relay/config"
	"github.com/gorilla/websocket"
	"github.com/maxatome/go-testdeep/td"
)

var upgrader = websocket.Upgrader{}

// newEchoSlotServer answers getSlot calls with a fixed height and, on a
// slotSubscribe call, pushes exactly one notification back.
func newEchoSlotServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var req map[string]any
			json.Unmarshal(data, &req)

			switch req["method"] {
			case "getSlot":
				resp := map[string]any{"jsonrpc": "2.0", "id": req["id"], "result": 42}
				b, _ := json.Marshal(resp)
				conn.WriteMessage(websocket.TextMessage, b)
			case "slotSubscribe":
				resp := map[string]any{"jsonrpc": "2.0", "id": req["id"], "result": 7}
				b, _ := json.Marshal(resp)
				conn.WriteMessage(websocket.TextMessage, b)

				note := map[string]any{
					"jsonrpc": "2.0",
					"method":  "slotNotification",
					"params": map[string]any{
						"subscription": 7,
						"result":       map[string]any{"parent": 1, "root": 1, "slot": 2},
					},
				}
				nb, _ := json.Marshal(note)
				conn.WriteMessage(websocket.TextMessage, nb)
			}
		}
	}))
}

// dialDirect bypasses endpoint.URL() composition, dialing the httptest
// server's literal ws:// URL directly and starting the read loop.
func dialDirect(t *testing.T, wsURL string) *Client {
	t.Helper()
	c := New(config.SolanaEndpointConfig{})
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	td.Require(t).CmpNoError(err)
	c.setConn(conn)
	go c.readLoop()
	return c
}

func TestCallDecodesResult(t *testing.T) {
	server := newEchoSlotServer(t)
	defer server.Close()

	client := dialDirect(t, "ws"+strings.TrimPrefix(server.URL, "http"))
	defer client.Close()

	slot, err := Call[int](context.Background(), client, "getSlot", nil)
	td.CmpNoError(t, err)
	td.Cmp(t, slot, 42)
}

func TestSendSubscribeRoutesNotification(t *testing.T) {
	server := newEchoSlotServer(t)
	defer server.Close()

	client := dialDirect(t, "ws"+strings.TrimPrefix(server.URL, "http"))
	defer client.Close()

	received := make(chan json.RawMessage, 1)
	_, err := SendSubscribe(context.Background(), client, "slotSubscribe", nil, func(raw json.RawMessage) {
		received <- raw
	})
	td.CmpNoError(t, err)

	select {
	case raw := <-received:
		var result struct {
			Slot int `json:"slot"`
		}
		json.Unmarshal(raw, &result)
		td.Cmp(t, result.Slot, 2)
	case <-time.After(2 * time.Second):
		t.Fatal("notification was never routed")
	}
}
