package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/maxatome/go-testdeep/td"
)

// newEchoFillsServer starts a server that accepts the connection and pushes
// a single "fills" frame as soon as it sees a subscribe op for "fills".
func newEchoFillsServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "")

		ctx := context.Background()
		for {
			_, data, err := conn.Read(ctx)
			if err != nil {
				return
			}
			var op struct {
				Op      string `json:"op"`
				Channel string `json:"channel"`
			}
			if json.Unmarshal(data, &op) != nil {
				continue
			}
			if op.Op == "subscribe" && op.Channel == "fills" {
				frame, _ := json.Marshal(map[string]any{
					"type":    "update",
					"channel": "fills",
					"data": map[string]any{
						"orderId": 7,
						"market":  "BTC/USD",
						"price":   "100.5",
						"size":    "1",
						"side":    "buy",
					},
				})
				conn.Write(ctx, websocket.MessageText, frame)
				return
			}
		}
	}))
}

func TestManagerRoutesFillsToCallback(t *testing.T) {
	server := newEchoFillsServer(t)
	defer server.Close()

	wsURL := "ws" + server.URL[len("http"):]
	m := New(wsURL)
	err := m.Start(context.Background())
	td.Require(t).CmpNoError(err)
	defer m.Stop()

	received := make(chan FillsMessage, 1)
	m.SubscribeFills(func(msg FillsMessage) {
		received <- msg
	})

	select {
	case msg := <-received:
		td.Cmp(t, msg.OrderID, int64(7))
		td.Cmp(t, msg.Market, "BTC/USD")
	case <-time.After(2 * time.Second):
		t.Fatal("fills callback was never invoked")
	}
}

func TestManagerQueuesSubscriptionsBeforeReady(t *testing.T) {
	m := New("ws://unused")
	td.Cmp(t, m.ready, false)

	m.SubscribeOrders(func(OrdersMessage) {})
	td.Cmp(t, len(m.queued), 1)
	td.Cmp(t, len(m.activeSubscriptions["orders"]), 0)
}

func TestUnsubscribeRemovesExactlyOneHandle(t *testing.T) {
	m := New("ws://unused")
	m.ready = true
	m.activeSubscriptions["fills"] = []subscription{{id: 1}, {id: 2}}

	ok := m.Unsubscribe("fills", 1)
	td.Cmp(t, ok, true)
	td.Cmp(t, len(m.activeSubscriptions["fills"]), 1)
	td.Cmp(t, m.activeSubscriptions["fills"][0].id, 2)
}
