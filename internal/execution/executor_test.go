package execution

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/b8kings0ga/ctrader/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeRisk struct {
	deny map[string]bool
}

func (f *fakeRisk) Check(action types.LegPlan, _ map[string]float64) bool {
	return !f.deny[action.Symbol]
}

type fakePrices struct{}

func (fakePrices) Latest() map[string]float64 {
	return map[string]float64{"BTC/USDT": 10000, "ETH/BTC": 0.06, "ETH/USDT": 612}
}

func triangularSignal() types.Signal {
	return types.Signal{
		StrategyID: "simple_arbitrage",
		Timestamp:  time.Now(),
		Actions: []types.LegPlan{
			{Symbol: "BTC/USDT", Side: types.SideBuy, Type: types.OrderTypeLimit, Price: 10000, Quantity: 0.01, LegIndex: 0, Path: "USDT->BTC->ETH->USDT"},
			{Symbol: "ETH/BTC", Side: types.SideBuy, Type: types.OrderTypeLimit, Price: 0.06, Quantity: 0.1665, LegIndex: 1, Path: "USDT->BTC->ETH->USDT"},
			{Symbol: "ETH/USDT", Side: types.SideSell, Type: types.OrderTypeLimit, Price: 612, Quantity: 0.1663, LegIndex: 2, Path: "USDT->BTC->ETH->USDT"},
		},
	}
}

func TestExecutor_SubmitsLegsInOrder(t *testing.T) {
	ex := newFakeExchange()
	router := NewRouter(ex, &fakeTracker{}, zap.NewNop())
	e := NewExecutor(&fakeRisk{}, router, fakePrices{}, zap.NewNop())

	e.Handle(context.Background(), triangularSignal())

	require.Len(t, ex.created, 3)
	assert.Equal(t, "BTC/USDT", ex.created[0].Symbol)
	assert.Equal(t, "ETH/BTC", ex.created[1].Symbol)
	assert.Equal(t, "ETH/USDT", ex.created[2].Symbol)
	assert.Equal(t, 3, router.ActiveCount())
}

func TestExecutor_DeniedLegSkippedOthersStillRun(t *testing.T) {
	ex := newFakeExchange()
	router := NewRouter(ex, &fakeTracker{}, zap.NewNop())
	risk := &fakeRisk{deny: map[string]bool{"ETH/BTC": true}}
	e := NewExecutor(risk, router, fakePrices{}, zap.NewNop())

	e.Handle(context.Background(), triangularSignal())

	// The middle leg is left unexecuted, the final leg still goes out.
	require.Len(t, ex.created, 2)
	assert.Equal(t, "BTC/USDT", ex.created[0].Symbol)
	assert.Equal(t, "ETH/USDT", ex.created[1].Symbol)
}

func TestExecutor_PlacementFailureDoesNotRollBack(t *testing.T) {
	ex := newFakeExchange()
	router := NewRouter(ex, &fakeTracker{}, zap.NewNop())
	e := NewExecutor(&fakeRisk{}, router, fakePrices{}, zap.NewNop())

	sig := triangularSignal()
	e.Handle(context.Background(), types.Signal{
		StrategyID: sig.StrategyID,
		Actions:    sig.Actions[:1],
	})
	require.Len(t, ex.created, 1)

	// The second signal fails entirely at the exchange. The order placed
	// before stays as it was: there is no cross-leg rollback.
	ex.failCreate = errors.New("exchange down")
	e.Handle(context.Background(), sig)

	assert.Len(t, ex.created, 1)
	assert.Equal(t, 1, router.ActiveCount())
}

func TestExecutor_RunStopsOnContextCancel(t *testing.T) {
	ex := newFakeExchange()
	router := NewRouter(ex, &fakeTracker{}, zap.NewNop())
	e := NewExecutor(&fakeRisk{}, router, fakePrices{}, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	in := make(chan types.Signal, 1)
	done := make(chan struct{})
	go func() {
		e.Run(ctx, in)
		close(done)
	}()

	in <- triangularSignal()
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("executor did not stop after cancellation")
	}
}
