package execution

import (
	"context"
	"fmt"
	"sync"

	"github.com/b8kings0ga/ctrader/internal/exchange"
	imetrics "github.com/b8kings0ga/ctrader/internal/metrics"
	"github.com/b8kings0ga/ctrader/internal/types"
	"go.uber.org/zap"
)

// positionTracker receives confirmed fills. Position updates never happen
// on submission, only after a fill confirmation.
type positionTracker interface {
	ApplyFill(symbol string, side types.Side, quantity float64)
}

// Router submits validated legs to the exchange and tracks order lifecycle
// in an active-order index. Orders enter the index in the new state via
// Place only; every other transition goes through Update, and a terminal
// status removes the entry.
type Router struct {
	ex        exchange.Exchange
	positions positionTracker

	mu     sync.Mutex
	active map[string]types.Order

	log *zap.Logger
}

func NewRouter(ex exchange.Exchange, positions positionTracker, log *zap.Logger) *Router {
	return &Router{
		ex:        ex,
		positions: positions,
		active:    make(map[string]types.Order),
		log:       log,
	}
}

// Place submits action to the exchange. On failure it returns an error and
// creates no entry; the leg stays unexecuted and is not retried here.
func (r *Router) Place(ctx context.Context, action types.LegPlan) (string, error) {
	resp, err := r.ex.CreateOrder(ctx, exchange.OrderRequest{
		Symbol:   action.Symbol,
		Side:     action.Side,
		Type:     action.Type,
		Quantity: action.Quantity,
		Price:    action.Price,
	})
	if err != nil {
		imetrics.OrderErrorsTotal.Inc()
		r.log.Error("exchange submission failed",
			zap.String("symbol", action.Symbol),
			zap.String("side", string(action.Side)),
			zap.Error(err),
		)
		return "", err
	}

	order := resp
	reported := order.Status
	order.Status = types.OrderStatusNew

	r.mu.Lock()
	r.active[order.ID] = order
	imetrics.ActiveOrders.Set(float64(len(r.active)))
	r.mu.Unlock()

	// An IOC submission can come back already filled or expired; route the
	// reported state through the normal lifecycle path.
	if reported != "" && reported != types.OrderStatusNew {
		_ = r.Update(types.OrderUpdate{
			ID:               order.ID,
			Symbol:           order.Symbol,
			Side:             order.Side,
			Status:           reported,
			QuantityExecuted: resp.QuantityExecuted,
			Price:            resp.Price,
		})
	}
	return order.ID, nil
}

// Update applies a lifecycle event. Terminal statuses remove the order
// from the active index; non-terminal statuses upsert the entry. A
// terminal update for an id not in the index is a replay of an already
// completed transition and is dropped, so a duplicate fill confirmation
// cannot move the position twice. An update without an order id is an
// error for this call only.
func (r *Router) Update(u types.OrderUpdate) error {
	if u.ID == "" {
		return fmt.Errorf("order update without order id")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	order, known := r.active[u.ID]
	if !known {
		if u.Status.Terminal() {
			r.log.Debug("terminal update for untracked order ignored",
				zap.String("order_id", u.ID),
				zap.String("status", string(u.Status)),
			)
			return nil
		}
		order = types.Order{
			ID:     u.ID,
			Symbol: u.Symbol,
			Side:   u.Side,
			Status: types.OrderStatusNew,
		}
	}
	if u.QuantityExecuted > 0 {
		order.QuantityExecuted = u.QuantityExecuted
	}
	if u.Price > 0 {
		order.Price = u.Price
	}
	order.Status = u.Status

	if u.Status.Terminal() {
		delete(r.active, u.ID)
		imetrics.ActiveOrders.Set(float64(len(r.active)))
		r.log.Info("order reached terminal state",
			zap.String("order_id", u.ID),
			zap.String("status", string(u.Status)),
			zap.Float64("executed", order.QuantityExecuted),
		)
		if r.positions != nil && order.QuantityExecuted > 0 {
			r.positions.ApplyFill(order.Symbol, order.Side, order.QuantityExecuted)
		}
		return nil
	}

	r.active[u.ID] = order
	imetrics.ActiveOrders.Set(float64(len(r.active)))
	r.log.Debug("order state updated",
		zap.String("order_id", u.ID),
		zap.String("status", string(u.Status)),
	)
	return nil
}

// SyncActive reconciles the active index against the exchange: every
// tracked order is re-queried and the reported state routed through the
// normal lifecycle path. A failed query leaves the entry as it was until
// the next poll.
func (r *Router) SyncActive(ctx context.Context) {
	r.mu.Lock()
	tracked := make(map[string]string, len(r.active))
	for id, o := range r.active {
		tracked[id] = o.Symbol
	}
	r.mu.Unlock()

	for id, symbol := range tracked {
		o, err := r.ex.GetOrder(ctx, id, symbol)
		if err != nil {
			r.log.Warn("order status poll failed",
				zap.String("order_id", id),
				zap.String("symbol", symbol),
				zap.Error(err),
			)
			continue
		}
		_ = r.Update(types.OrderUpdate{
			ID:               id,
			Symbol:           o.Symbol,
			Side:             o.Side,
			Status:           o.Status,
			QuantityExecuted: o.QuantityExecuted,
			Price:            o.Price,
		})
	}
}

// GetStatus returns the active-index entry when present, otherwise asks
// the exchange.
func (r *Router) GetStatus(ctx context.Context, orderID, symbol string) (types.Order, error) {
	r.mu.Lock()
	order, ok := r.active[orderID]
	r.mu.Unlock()
	if ok {
		return order, nil
	}
	return r.ex.GetOrder(ctx, orderID, symbol)
}

// OpenOrders queries the exchange and refreshes the active index with any
// non-terminal orders it reports.
func (r *Router) OpenOrders(ctx context.Context, symbol string) ([]types.Order, error) {
	orders, err := r.ex.GetOpenOrders(ctx, symbol)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	for _, o := range orders {
		if !o.Status.Terminal() {
			r.active[o.ID] = o
		}
	}
	imetrics.ActiveOrders.Set(float64(len(r.active)))
	r.mu.Unlock()
	return orders, nil
}

// ActiveCount is the number of orders in the active index.
func (r *Router) ActiveCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.active)
}
