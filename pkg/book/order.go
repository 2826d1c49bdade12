package book

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Side of the book an order rests on.
type Side int

const (
	Bid Side = iota
	Ask
)

func (s Side) String() string {
	if s == Bid {
		return "bid"
	}
	return "ask"
}

// Order is a single resting bid or ask. ID, Timestamp and Sequence are
// assigned by the partition inside the accepting transaction; Sequence is
// strictly increasing per partition and never reused, so (Timestamp,
// Sequence) is a deterministic time-priority key.
type Order struct {
	ID        uuid.UUID       `json:"id"`
	Pair      string          `json:"pair"`
	Price     decimal.Decimal `json:"price"`
	Quantity  decimal.Decimal `json:"quantity"`
	Timestamp int64           `json:"timestamp"` // unix nanos at acceptance
	Sequence  uint64          `json:"sequence"`
}

// OrderRequest is what the boundary hands the core: no identity, no timing.
type OrderRequest struct {
	Pair     string          `json:"pair"`
	Price    decimal.Decimal `json:"price"`
	Quantity decimal.Decimal `json:"quantity"`
}

// bidLess orders best bid first: price high to low, then time priority.
func bidLess(a, b Order) bool {
	if !a.Price.Equal(b.Price) {
		return a.Price.GreaterThan(b.Price)
	}
	if a.Timestamp != b.Timestamp {
		return a.Timestamp < b.Timestamp
	}
	return a.Sequence < b.Sequence
}

// askLess orders best ask first: price low to high, then time priority.
func askLess(a, b Order) bool {
	if !a.Price.Equal(b.Price) {
		return a.Price.LessThan(b.Price)
	}
	if a.Timestamp != b.Timestamp {
		return a.Timestamp < b.Timestamp
	}
	return a.Sequence < b.Sequence
}

func lessFor(s Side) func(a, b Order) bool {
	if s == Bid {
		return bidLess
	}
	return askLess
}
