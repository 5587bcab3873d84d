package exchange

import (
	"context"

	"github.com/b8kings0ga/ctrader/internal/types"
)

// OrderRequest is a submission toward the exchange.
type OrderRequest struct {
	Symbol   string
	Side     types.Side
	Type     types.OrderType
	Quantity float64
	Price    float64 // required for limit orders
	ClientID string
}

// Exchange is the connector surface the execution layer depends on.
type Exchange interface {
	CreateOrder(ctx context.Context, req OrderRequest) (types.Order, error)
	CancelOrder(ctx context.Context, orderID, symbol string) error
	GetOrder(ctx context.Context, orderID, symbol string) (types.Order, error)
	GetOpenOrders(ctx context.Context, symbol string) ([]types.Order, error)
}
