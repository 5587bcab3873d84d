package risk

import (
	"strings"
	"sync"

	"github.com/b8kings0ga/ctrader/internal/config"
	imetrics "github.com/b8kings0ga/ctrader/internal/metrics"
	"github.com/b8kings0ga/ctrader/internal/types"
	"go.uber.org/zap"
)

// stableQuotes are the quote currencies treated as USD-equivalent for
// notional estimates. Symbols quoted in anything else are allowed with a
// warning: the notional cap cannot be applied without a conversion rate,
// while the position cap still is.
var stableQuotes = []string{"USD", "USDT", "BUSD"}

// Gate validates proposed legs against notional and position limits.
// It never propagates an error: any internal failure is a deny.
type Gate struct {
	maxOrderValueUSD float64
	maxPositionSize  float64
	maxOrderQuantity float64

	mu        sync.Mutex
	positions map[string]float64

	log *zap.Logger
}

func NewGate(cfg *config.Config, log *zap.Logger) *Gate {
	return &Gate{
		maxOrderValueUSD: cfg.Risk.MaxOrderValueUSD,
		maxPositionSize:  cfg.Risk.MaxPositionSize,
		maxOrderQuantity: cfg.Risk.MaxOrderQuantity,
		positions:        make(map[string]float64),
		log:              log,
	}
}

// Check reports whether action is acceptable given the latest prices.
// Rejections are logged at warning level; the order of checks is required
// fields, quantity cap, symbol shape, notional cap, position cap.
func (g *Gate) Check(action types.LegPlan, latestPrices map[string]float64) (allowed bool) {
	defer func() {
		if r := recover(); r != nil {
			g.log.Error("risk check panicked, denying", zap.Any("panic", r))
			allowed = false
		}
		if !allowed {
			imetrics.RiskRejectionsTotal.Inc()
		}
	}()

	if action.Symbol == "" || (action.Side != types.SideBuy && action.Side != types.SideSell) || action.Quantity <= 0 {
		g.log.Warn("risk check failed: invalid order parameters",
			zap.String("symbol", action.Symbol),
			zap.String("side", string(action.Side)),
			zap.Float64("quantity", action.Quantity),
		)
		return false
	}

	if g.maxOrderQuantity > 0 && action.Quantity > g.maxOrderQuantity {
		g.log.Warn("risk check failed: quantity above cap",
			zap.String("symbol", action.Symbol),
			zap.Float64("quantity", action.Quantity),
			zap.Float64("max", g.maxOrderQuantity),
		)
		return false
	}

	parts := strings.Split(action.Symbol, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		g.log.Warn("risk check failed: malformed symbol", zap.String("symbol", action.Symbol))
		return false
	}
	quote := strings.ToUpper(parts[1])

	price, ok := latestPrices[action.Symbol]
	if !ok || price <= 0 {
		g.log.Warn("risk check failed: no price available", zap.String("symbol", action.Symbol))
		return false
	}

	if isStableQuote(quote) {
		notional := action.Quantity * price
		if notional > g.maxOrderValueUSD {
			g.log.Warn("risk check failed: notional above cap",
				zap.String("symbol", action.Symbol),
				zap.Float64("notional_usd", notional),
				zap.Float64("max_usd", g.maxOrderValueUSD),
			)
			return false
		}
	} else {
		g.log.Warn("quote currency is not USD-equivalent, notional cap skipped",
			zap.String("symbol", action.Symbol),
			zap.String("quote", quote),
		)
	}

	g.mu.Lock()
	current := g.positions[action.Symbol]
	g.mu.Unlock()

	next := current
	if action.Side == types.SideBuy {
		next += action.Quantity
	} else {
		next -= action.Quantity
	}
	if abs(next) > g.maxPositionSize {
		g.log.Warn("risk check failed: position above cap",
			zap.String("symbol", action.Symbol),
			zap.Float64("position", next),
			zap.Float64("max", g.maxPositionSize),
		)
		return false
	}

	g.log.Debug("risk check passed",
		zap.String("symbol", action.Symbol),
		zap.String("side", string(action.Side)),
		zap.Float64("quantity", action.Quantity),
	)
	return true
}

// ApplyFill moves the net position for symbol. Called only after an order
// reached a fill confirmation, never on submission.
func (g *Gate) ApplyFill(symbol string, side types.Side, quantity float64) {
	if quantity <= 0 {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if side == types.SideBuy {
		g.positions[symbol] += quantity
	} else {
		g.positions[symbol] -= quantity
	}
	g.log.Debug("position updated",
		zap.String("symbol", symbol),
		zap.Float64("position", g.positions[symbol]),
	)
}

// Position returns the signed net quantity for symbol.
func (g *Gate) Position(symbol string) float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.positions[symbol]
}

func isStableQuote(quote string) bool {
	for _, s := range stableQuotes {
		if strings.HasPrefix(quote, s) {
			return true
		}
	}
	return false
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
