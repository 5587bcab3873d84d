package types

import "time"

type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

type OrderType string

const (
	OrderTypeLimit  OrderType = "limit"
	OrderTypeMarket OrderType = "market"
)

type OrderStatus string

const (
	OrderStatusNew             OrderStatus = "new"
	OrderStatusPartiallyFilled OrderStatus = "partially_filled"
	OrderStatusFilled          OrderStatus = "filled"
	OrderStatusCanceled        OrderStatus = "canceled"
	OrderStatusExpired         OrderStatus = "expired"
	OrderStatusRejected        OrderStatus = "rejected"
)

// Terminal reports whether no further transition is legal out of s.
func (s OrderStatus) Terminal() bool {
	switch s {
	case OrderStatusFilled, OrderStatusCanceled, OrderStatusExpired, OrderStatusRejected:
		return true
	}
	return false
}

// PriceUpdate is one market event from the data feed.
// A zero Bid/Ask/LastTrade means that side was absent from the update.
type PriceUpdate struct {
	Symbol    string
	Bid       float64
	Ask       float64
	LastTrade float64
	Ts        time.Time
}

// LegPlan is one of the three trades composing a triangular path.
type LegPlan struct {
	Symbol   string    `json:"symbol"`
	Side     Side      `json:"side"`
	Type     OrderType `json:"type"`
	Price    float64   `json:"price"`
	Quantity float64   `json:"quantity"`

	// params carried to the execution boundary
	LegIndex int    `json:"leg_index"`
	Path     string `json:"path"`
}

// Signal is a proposed multi-leg trade produced by a strategy.
// A triangular signal always carries exactly 3 ordered actions.
type Signal struct {
	StrategyID string    `json:"strategy_id"`
	Timestamp  time.Time `json:"timestamp"`
	Actions    []LegPlan `json:"actions"`
}

type Order struct {
	ID                string
	Symbol            string
	Side              Side
	Type              OrderType
	QuantityRequested float64
	QuantityExecuted  float64
	Price             float64
	Status            OrderStatus
}

// OrderUpdate is a lifecycle event for a previously placed order.
type OrderUpdate struct {
	ID               string
	Symbol           string
	Side             Side
	Status           OrderStatus
	QuantityExecuted float64
	Price            float64
}
