package ws

import "github.com/banky/relay/types"

// envelope is the shape common to every inbound Ftx-style WS frame.
type envelope struct {
	Type    string `json:"type"`
	Channel string `json:"channel"`
	Market  string `json:"market"`
}

// OrdersMessage is a single order-update push on the private "orders"
// channel.
type OrdersMessage struct {
	ID         int64             `json:"id"`
	ClientID   string            `json:"clientId"`
	Market     string            `json:"market"`
	Side       types.OrderSide   `json:"side"`
	Status     string            `json:"status"`
	Price      types.FloatString `json:"price"`
	Size       types.FloatString `json:"size"`
	FilledSize types.FloatString `json:"filledSize"`
	AvgFillPx  types.FloatString `json:"avgFillPrice"`
}

// FillsMessage is a single execution report on the private "fills" channel.
type FillsMessage struct {
	OrderID int64             `json:"orderId"`
	Market  string            `json:"market"`
	Price   types.FloatString `json:"price"`
	Size    types.FloatString `json:"size"`
	Side    types.OrderSide   `json:"side"`
}

// PositionsMessage is a snapshot of account balances/positions pushed on
// the private "positions" channel that backs subscribe_wallet.
type PositionsMessage struct {
	Balances []struct {
		Coin  string            `json:"coin"`
		Total types.FloatString `json:"total"`
		Free  types.FloatString `json:"free"`
	} `json:"balances"`
}
