// Package exchange implements the order and wallet clients bound to the
// Ftx-style centralized venue: REST for login and order placement, push
// WebSocket for execution reports and position snapshots.
package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/banky/relay/config"
	"github.com/banky/relay/relayerr"
	"github.com/banky/relay/rest"
	"github.com/banky/relay/strand"
	"github.com/banky/relay/types"
	"github.com/banky/relay/ws"
)

// orderResultTimeout bounds how long send_order waits for a terminal
// execution report to correlate with the REST order id.
const orderResultTimeout = 30 * time.Second

// FtxOrderClient exposes login and send_order against the venue's REST+WS
// pair, strand-bound like every other client in this module.
type FtxOrderClient struct {
	strand *strand.Strand
	cfg    config.FtxAuthenticationConfig
	rest   *rest.Client
	ws     *ws.Manager

	pending map[int64]chan types.Order
}

// NewFtxOrderClient wires a FtxOrderClient to an already-constructed REST
// client and WS manager, registering the order-update callback that drives
// send_order correlation.
func NewFtxOrderClient(cfg config.FtxAuthenticationConfig, restClient *rest.Client, wsManager *ws.Manager) *FtxOrderClient {
	c := &FtxOrderClient{
		strand:  strand.New("ftx-order-client"),
		cfg:     cfg,
		rest:    restClient,
		ws:      wsManager,
		pending: make(map[int64]chan types.Order),
	}
	wsManager.SubscribeOrders(c.handleOrderUpdate)
	return c
}

// login authenticates the WS connection; REST calls are signed per-request
// and need no separate login step.
func (c *FtxOrderClient) login(ctx context.Context) error {
	if err := c.ws.Login(ctx, wsLoginArgs(c.cfg)); err != nil {
		return relayerr.New(relayerr.KindAuth, err)
	}
	return nil
}

// Login is the exported entry point for login().
func (c *FtxOrderClient) Login(ctx context.Context) error {
	return c.login(ctx)
}

type orderRequest struct {
	Market   string  `json:"market"`
	Side     string  `json:"side"`
	Price    float64 `json:"price"`
	Type     string  `json:"type"`
	Size     float64 `json:"size"`
	ClientID string  `json:"clientId"`
}

type orderAck struct {
	ID     int64  `json:"id"`
	Status string `json:"status"`
}

// SendOrder posts order via REST, then waits for the WS execution report
// carrying a terminal status to fill in the result before returning.
func (c *FtxOrderClient) SendOrder(ctx context.Context, order types.Order) (types.Order, error) {
	body := orderRequest{
		Market:   order.Market,
		Side:     string(order.Side),
		Price:    order.Price.Raw(),
		Type:     string(order.Type),
		Size:     order.Size.Raw(),
		ClientID: order.ClientOrderTag.Hex(),
	}
	data, err := json.Marshal(body)
	if err != nil {
		return order, relayerr.New(relayerr.KindSerialize, err)
	}

	headers := authHeaders(c.cfg, "POST", "/orders", data)
	resp, err := rest.Post[Response[orderAck]](ctx, c.rest, "/orders", headers, body)
	if err != nil {
		return order, relayerr.New(relayerr.KindVenueError, err)
	}
	if !resp.IsOK() {
		return order, relayerr.Newf(relayerr.KindRejected, "%s", resp.Error)
	}

	ack := *resp.Result
	order.VenueOrderID = strconv.FormatInt(ack.ID, 10)
	order.State = types.OrderStateSubmitted

	done := make(chan types.Order, 1)
	c.strand.Go(func() {
		c.pending[ack.ID] = done
	})

	select {
	case final := <-done:
		return final, nil
	case <-time.After(orderResultTimeout):
		order.State = types.OrderStateTimeout
		return order, relayerr.Newf(relayerr.KindTimeout, "no execution report for order %d within %s", ack.ID, orderResultTimeout)
	case <-ctx.Done():
		return order, relayerr.New(relayerr.KindTimeout, ctx.Err())
	}
}

func (c *FtxOrderClient) handleOrderUpdate(msg ws.OrdersMessage) {
	c.strand.Go(func() {
		done, ok := c.pending[msg.ID]
		if !ok {
			return
		}
		if !isTerminalStatus(msg.Status) {
			return
		}
		delete(c.pending, msg.ID)
		done <- orderFromMessage(msg)
	})
}

func isTerminalStatus(status string) bool {
	switch status {
	case "closed":
		return true
	default:
		return false
	}
}

func orderFromMessage(msg ws.OrdersMessage) types.Order {
	state := types.OrderStateConfirmed
	if msg.FilledSize == 0 {
		state = types.OrderStateRejected
	}
	return types.Order{
		Market:       msg.Market,
		Side:         msg.Side,
		Price:        msg.Price,
		State:        state,
		FilledSize:   msg.FilledSize,
		AvgPrice:     msg.AvgFillPx,
		VenueOrderID: fmt.Sprintf("%d", msg.ID),
	}
}

// Close tears down the order client's strand.
func (c *FtxOrderClient) Close() {
	c.strand.Close()
}
