package api

import (
	"github.com/shopspring/decimal"

	"github.com/openbookd/bookd/pkg/book"
)

// ==============================
// REST Request Types
// ==============================

// OrderRequestModel is the payload for POST /api/orders/bid and /ask.
// A pair that doesn't match the partition is rewritten to the partition's
// pair before the request reaches the core.
type OrderRequestModel struct {
	Pair     string          `json:"pair"`
	Price    decimal.Decimal `json:"price"`
	Quantity decimal.Decimal `json:"quantity"`
}

// ==============================
// REST Response Types
// ==============================

// OrderModel is a resting order as presented to clients.
type OrderModel struct {
	ID        string          `json:"id"`
	Pair      string          `json:"pair"`
	Price     decimal.Decimal `json:"price"`
	Quantity  decimal.Decimal `json:"quantity"`
	Timestamp int64           `json:"timestamp"` // unix nanos at acceptance
}

// OrderBookViewModel is the combined book returned by GET /api/orders.
// Bids are price high to low, asks price low to high, both from one
// consistent snapshot.
type OrderBookViewModel struct {
	CurrencyPair string       `json:"currencyPair"`
	Bids         []OrderModel `json:"bids"`
	Asks         []OrderModel `json:"asks"`
	BidsCount    int          `json:"bidsCount"`
	AsksCount    int          `json:"asksCount"`
}

// AddOrderResponse carries the id assigned by the store.
type AddOrderResponse struct {
	OrderID string `json:"orderId"`
}

// ErrorResponse is returned for all errors
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// ==============================
// WebSocket Message Types
// ==============================

// WSSubscribeRequest is sent by client to subscribe to channels
type WSSubscribeRequest struct {
	Op       string   `json:"op"`       // "subscribe" or "unsubscribe"
	Channels []string `json:"channels"` // e.g., ["book:GBPUSD"]
}

// BookUpdate is broadcast to subscribers after every successful mutation.
type BookUpdate struct {
	Type      string       `json:"type"` // "book"
	Pair      string       `json:"pair"`
	Bids      []OrderModel `json:"bids"`
	Asks      []OrderModel `json:"asks"`
	Timestamp int64        `json:"timestamp"` // unix milliseconds
}

func toOrderModel(o book.Order) OrderModel {
	return OrderModel{
		ID:        o.ID.String(),
		Pair:      o.Pair,
		Price:     o.Price,
		Quantity:  o.Quantity,
		Timestamp: o.Timestamp,
	}
}

func toOrderModels(orders []book.Order) []OrderModel {
	out := make([]OrderModel, len(orders))
	for i, o := range orders {
		out[i] = toOrderModel(o)
	}
	return out
}
