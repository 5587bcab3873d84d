package execution

import (
	"context"

	"github.com/b8kings0ga/ctrader/internal/types"
	"go.uber.org/zap"
)

type riskChecker interface {
	Check(action types.LegPlan, latestPrices map[string]float64) bool
}

type priceSource interface {
	Latest() map[string]float64
}

// Executor consumes emitted signals and routes each leg, in leg order,
// through the risk gate to the order router. Legs are independent: a
// denied or failed leg is left unexecuted and later legs still run; there
// is no cross-leg rollback.
type Executor struct {
	risk   riskChecker
	router *Router
	prices priceSource
	log    *zap.Logger
}

func NewExecutor(risk riskChecker, router *Router, prices priceSource, log *zap.Logger) *Executor {
	return &Executor{risk: risk, router: router, prices: prices, log: log}
}

func (e *Executor) Run(ctx context.Context, in <-chan types.Signal) {
	for {
		select {
		case <-ctx.Done():
			return
		case sig := <-in:
			e.Handle(ctx, sig)
		}
	}
}

// Handle processes one signal to completion. A panic while handling one
// signal is contained here.
func (e *Executor) Handle(ctx context.Context, sig types.Signal) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Error("signal handling panicked",
				zap.Any("panic", r),
				zap.String("strategy", sig.StrategyID),
			)
		}
	}()

	latest := e.prices.Latest()
	submitted := 0

	for _, leg := range sig.Actions {
		if !e.risk.Check(leg, latest) {
			e.log.Warn("leg denied by risk gate",
				zap.String("symbol", leg.Symbol),
				zap.Int("leg_index", leg.LegIndex),
				zap.String("path", leg.Path),
			)
			continue
		}

		orderID, err := e.router.Place(ctx, leg)
		if err != nil {
			e.log.Error("leg left unexecuted",
				zap.String("symbol", leg.Symbol),
				zap.Int("leg_index", leg.LegIndex),
				zap.String("path", leg.Path),
				zap.Error(err),
			)
			continue
		}
		submitted++
		e.log.Info("leg submitted",
			zap.String("order_id", orderID),
			zap.String("symbol", leg.Symbol),
			zap.Int("leg_index", leg.LegIndex),
		)
	}

	if submitted > 0 && submitted < len(sig.Actions) {
		e.log.Warn("signal partially executed",
			zap.String("strategy", sig.StrategyID),
			zap.Int("submitted", submitted),
			zap.Int("legs", len(sig.Actions)),
		)
	}
}
