package execution

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/b8kings0ga/ctrader/internal/exchange"
	"github.com/b8kings0ga/ctrader/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeExchange struct {
	nextStatus types.OrderStatus
	nextExec   float64
	failCreate error
	created    []exchange.OrderRequest
	orders     map[string]types.Order
}

func newFakeExchange() *fakeExchange {
	return &fakeExchange{nextStatus: types.OrderStatusNew, orders: make(map[string]types.Order)}
}

func (f *fakeExchange) CreateOrder(_ context.Context, req exchange.OrderRequest) (types.Order, error) {
	if f.failCreate != nil {
		return types.Order{}, f.failCreate
	}
	f.created = append(f.created, req)
	o := types.Order{
		ID:                fmt.Sprintf("ord-%d", len(f.created)),
		Symbol:            req.Symbol,
		Side:              req.Side,
		Type:              req.Type,
		QuantityRequested: req.Quantity,
		QuantityExecuted:  f.nextExec,
		Price:             req.Price,
		Status:            f.nextStatus,
	}
	f.orders[o.ID] = o
	return o, nil
}

func (f *fakeExchange) CancelOrder(context.Context, string, string) error { return nil }

func (f *fakeExchange) GetOrder(_ context.Context, orderID, _ string) (types.Order, error) {
	o, ok := f.orders[orderID]
	if !ok {
		return types.Order{}, errors.New("order not found")
	}
	return o, nil
}

func (f *fakeExchange) GetOpenOrders(context.Context, string) ([]types.Order, error) {
	var out []types.Order
	for _, o := range f.orders {
		if !o.Status.Terminal() {
			out = append(out, o)
		}
	}
	return out, nil
}

type fakeTracker struct {
	fills []types.OrderUpdate
}

func (f *fakeTracker) ApplyFill(symbol string, side types.Side, quantity float64) {
	f.fills = append(f.fills, types.OrderUpdate{Symbol: symbol, Side: side, QuantityExecuted: quantity})
}

func TestRouter_PlaceTracksActiveOrder(t *testing.T) {
	ex := newFakeExchange()
	r := NewRouter(ex, &fakeTracker{}, zap.NewNop())

	id, err := r.Place(context.Background(), types.LegPlan{
		Symbol: "BTC/USDT", Side: types.SideBuy, Type: types.OrderTypeLimit, Price: 10000, Quantity: 0.01,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.Equal(t, 1, r.ActiveCount())

	o, err := r.GetStatus(context.Background(), id, "BTC/USDT")
	require.NoError(t, err)
	assert.Equal(t, types.OrderStatusNew, o.Status)
}

func TestRouter_PlaceFailureCreatesNoEntry(t *testing.T) {
	ex := newFakeExchange()
	ex.failCreate = errors.New("insufficient balance")
	r := NewRouter(ex, &fakeTracker{}, zap.NewNop())

	_, err := r.Place(context.Background(), types.LegPlan{
		Symbol: "BTC/USDT", Side: types.SideBuy, Type: types.OrderTypeLimit, Price: 10000, Quantity: 0.01,
	})
	assert.Error(t, err)
	assert.Equal(t, 0, r.ActiveCount())
}

func TestRouter_TerminalUpdateRemovesAndAppliesFill(t *testing.T) {
	ex := newFakeExchange()
	tracker := &fakeTracker{}
	r := NewRouter(ex, tracker, zap.NewNop())

	id, err := r.Place(context.Background(), types.LegPlan{
		Symbol: "BTC/USDT", Side: types.SideBuy, Type: types.OrderTypeLimit, Price: 10000, Quantity: 0.01,
	})
	require.NoError(t, err)
	require.Empty(t, tracker.fills, "no position change on submission")

	require.NoError(t, r.Update(types.OrderUpdate{
		ID: id, Status: types.OrderStatusPartiallyFilled, QuantityExecuted: 0.004,
	}))
	assert.Equal(t, 1, r.ActiveCount())
	require.Empty(t, tracker.fills)

	require.NoError(t, r.Update(types.OrderUpdate{
		ID: id, Status: types.OrderStatusFilled, QuantityExecuted: 0.01,
	}))
	assert.Equal(t, 0, r.ActiveCount())
	require.Len(t, tracker.fills, 1)
	assert.Equal(t, "BTC/USDT", tracker.fills[0].Symbol)
	assert.Equal(t, types.SideBuy, tracker.fills[0].Side)
	assert.Equal(t, 0.01, tracker.fills[0].QuantityExecuted)
}

func TestRouter_CancelWithoutFillSkipsPosition(t *testing.T) {
	ex := newFakeExchange()
	tracker := &fakeTracker{}
	r := NewRouter(ex, tracker, zap.NewNop())

	id, err := r.Place(context.Background(), types.LegPlan{
		Symbol: "ETH/USDT", Side: types.SideSell, Type: types.OrderTypeLimit, Price: 600, Quantity: 1,
	})
	require.NoError(t, err)

	require.NoError(t, r.Update(types.OrderUpdate{ID: id, Status: types.OrderStatusCanceled}))
	assert.Equal(t, 0, r.ActiveCount())
	assert.Empty(t, tracker.fills)
}

func TestRouter_ImmediateFillRoutesThroughLifecycle(t *testing.T) {
	ex := newFakeExchange()
	ex.nextStatus = types.OrderStatusFilled
	ex.nextExec = 0.01
	tracker := &fakeTracker{}
	r := NewRouter(ex, tracker, zap.NewNop())

	id, err := r.Place(context.Background(), types.LegPlan{
		Symbol: "BTC/USDT", Side: types.SideBuy, Type: types.OrderTypeLimit, Price: 10000, Quantity: 0.01,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	// The fill reported on submission is treated as a lifecycle event.
	assert.Equal(t, 0, r.ActiveCount())
	require.Len(t, tracker.fills, 1)
	assert.Equal(t, 0.01, tracker.fills[0].QuantityExecuted)
}

func TestRouter_ReplayedTerminalUpdateIgnored(t *testing.T) {
	ex := newFakeExchange()
	tracker := &fakeTracker{}
	r := NewRouter(ex, tracker, zap.NewNop())

	id, err := r.Place(context.Background(), types.LegPlan{
		Symbol: "BTC/USDT", Side: types.SideBuy, Type: types.OrderTypeLimit, Price: 10000, Quantity: 0.01,
	})
	require.NoError(t, err)

	fill := types.OrderUpdate{ID: id, Status: types.OrderStatusFilled, QuantityExecuted: 0.01}
	require.NoError(t, r.Update(fill))
	require.Len(t, tracker.fills, 1)
	require.Equal(t, 0, r.ActiveCount())

	// A duplicate confirmation for the completed order must not re-create
	// the entry or move the position again.
	require.NoError(t, r.Update(fill))
	assert.Len(t, tracker.fills, 1)
	assert.Equal(t, 0, r.ActiveCount())
}

func TestRouter_TerminalUpdateForUntrackedOrderDropped(t *testing.T) {
	tracker := &fakeTracker{}
	r := NewRouter(newFakeExchange(), tracker, zap.NewNop())

	require.NoError(t, r.Update(types.OrderUpdate{
		ID: "ghost-1", Symbol: "BTC/USDT", Side: types.SideBuy,
		Status: types.OrderStatusFilled, QuantityExecuted: 0.5,
	}))
	assert.Equal(t, 0, r.ActiveCount())
	assert.Empty(t, tracker.fills)
}

func TestRouter_SyncActiveAppliesExchangeState(t *testing.T) {
	ex := newFakeExchange()
	tracker := &fakeTracker{}
	r := NewRouter(ex, tracker, zap.NewNop())

	id, err := r.Place(context.Background(), types.LegPlan{
		Symbol: "BTC/USDT", Side: types.SideBuy, Type: types.OrderTypeLimit, Price: 10000, Quantity: 0.01,
	})
	require.NoError(t, err)
	require.Equal(t, 1, r.ActiveCount())

	// The exchange fills the order between polls.
	filled := ex.orders[id]
	filled.Status = types.OrderStatusFilled
	filled.QuantityExecuted = 0.01
	ex.orders[id] = filled

	r.SyncActive(context.Background())
	assert.Equal(t, 0, r.ActiveCount())
	require.Len(t, tracker.fills, 1)
	assert.Equal(t, 0.01, tracker.fills[0].QuantityExecuted)
}

func TestRouter_SyncActiveKeepsEntryOnQueryFailure(t *testing.T) {
	ex := newFakeExchange()
	r := NewRouter(ex, &fakeTracker{}, zap.NewNop())

	id, err := r.Place(context.Background(), types.LegPlan{
		Symbol: "BTC/USDT", Side: types.SideBuy, Type: types.OrderTypeLimit, Price: 10000, Quantity: 0.01,
	})
	require.NoError(t, err)

	delete(ex.orders, id)
	r.SyncActive(context.Background())
	assert.Equal(t, 1, r.ActiveCount())
}

func TestRouter_UpdateWithoutIDFails(t *testing.T) {
	r := NewRouter(newFakeExchange(), &fakeTracker{}, zap.NewNop())
	assert.Error(t, r.Update(types.OrderUpdate{Status: types.OrderStatusFilled}))
}

func TestRouter_UnknownUpdateUpserts(t *testing.T) {
	r := NewRouter(newFakeExchange(), &fakeTracker{}, zap.NewNop())

	require.NoError(t, r.Update(types.OrderUpdate{
		ID: "ext-1", Symbol: "BTC/USDT", Side: types.SideBuy,
		Status: types.OrderStatusPartiallyFilled, QuantityExecuted: 0.5,
	}))
	assert.Equal(t, 1, r.ActiveCount())

	o, err := r.GetStatus(context.Background(), "ext-1", "BTC/USDT")
	require.NoError(t, err)
	assert.Equal(t, types.OrderStatusPartiallyFilled, o.Status)
	assert.Equal(t, 0.5, o.QuantityExecuted)
}

func TestRouter_GetStatusFallsBackToExchange(t *testing.T) {
	ex := newFakeExchange()
	ex.orders["remote-1"] = types.Order{ID: "remote-1", Symbol: "BTC/USDT", Status: types.OrderStatusFilled}
	r := NewRouter(ex, &fakeTracker{}, zap.NewNop())

	o, err := r.GetStatus(context.Background(), "remote-1", "BTC/USDT")
	require.NoError(t, err)
	assert.Equal(t, types.OrderStatusFilled, o.Status)

	_, err = r.GetStatus(context.Background(), "missing", "BTC/USDT")
	assert.Error(t, err)
}

func TestRouter_OpenOrdersRefreshesIndex(t *testing.T) {
	ex := newFakeExchange()
	ex.orders["a"] = types.Order{ID: "a", Symbol: "BTC/USDT", Status: types.OrderStatusNew}
	ex.orders["b"] = types.Order{ID: "b", Symbol: "BTC/USDT", Status: types.OrderStatusFilled}
	r := NewRouter(ex, &fakeTracker{}, zap.NewNop())

	orders, err := r.OpenOrders(context.Background(), "BTC/USDT")
	require.NoError(t, err)
	assert.Len(t, orders, 1)
	assert.Equal(t, 1, r.ActiveCount())
}
