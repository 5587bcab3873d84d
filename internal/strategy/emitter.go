package strategy

import (
	"time"

	"github.com/b8kings0ga/ctrader/internal/types"
	"go.uber.org/zap"
)

// Emitter converts a profitable path into an ordered 3-leg signal and hands
// it to the registered callback. Without a callback the signal is dropped
// and emission reports failure, so nothing counts it as delivered.
type Emitter struct {
	strategyID     string
	tradeAmount    float64
	maxTradeAmount float64
	feePct         float64
	callback       func(types.Signal)
	log            *zap.Logger
}

func NewEmitter(strategyID string, tradeAmount, maxTradeAmount, feePct float64, log *zap.Logger) *Emitter {
	return &Emitter{
		strategyID:     strategyID,
		tradeAmount:    tradeAmount,
		maxTradeAmount: maxTradeAmount,
		feePct:         feePct,
		log:            log,
	}
}

// SetCallback registers the signal sink. The callback runs on the caller's
// goroutine; leg order inside the signal is fixed at build time.
func (e *Emitter) SetCallback(cb func(types.Signal)) { e.callback = cb }

// Emit builds a signal for res and delivers it. The first leg's quantity
// comes from the configured trade amount capped by maxTradeAmount; every
// subsequent leg's quantity derives from the post-fee output of the
// previous leg, in base-currency units for sells and as the converted
// amount for buys.
func (e *Emitter) Emit(res PathResult) (types.Signal, bool) {
	amount := e.tradeAmount
	if amount > e.maxTradeAmount {
		amount = e.maxTradeAmount
	}
	if amount <= 0 {
		e.log.Warn("trade amount not positive, signal dropped", zap.Float64("amount", amount))
		return types.Signal{}, false
	}

	actions := make([]types.LegPlan, 0, 3)
	for i, leg := range res.Legs {
		if leg.Price <= 0 {
			e.log.Warn("degenerate leg price, signal dropped",
				zap.String("symbol", leg.Symbol),
				zap.Float64("price", leg.Price),
			)
			return types.Signal{}, false
		}

		var qty, out float64
		if leg.Side == types.SideSell {
			qty = amount
			out = amount * leg.Price
		} else {
			qty = amount / leg.Price
			out = qty
		}
		amount = out * (1 - e.feePct)

		actions = append(actions, types.LegPlan{
			Symbol:   leg.Symbol,
			Side:     leg.Side,
			Type:     types.OrderTypeLimit,
			Price:    leg.Price,
			Quantity: qty,
			LegIndex: i,
			Path:     res.Path,
		})
	}

	sig := types.Signal{
		StrategyID: e.strategyID,
		Timestamp:  time.Now().UTC(),
		Actions:    actions,
	}

	if e.callback == nil {
		e.log.Warn("no signal callback registered, dropping signal",
			zap.String("path", res.Path),
			zap.Float64("profit_pct", res.ProfitPct),
		)
		return sig, false
	}

	e.log.Info("signal emitted",
		zap.String("strategy", e.strategyID),
		zap.String("path", res.Path),
		zap.Float64("profit_pct", res.ProfitPct),
	)
	e.callback(sig)
	return sig, true
}
