package strategy

import (
	"errors"
	"testing"

	"github.com/b8kings0ga/ctrader/internal/config"
	"github.com/b8kings0ga/ctrader/internal/predict"
	"github.com/b8kings0ga/ctrader/internal/pricebook"
	"github.com/b8kings0ga/ctrader/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Symbols = []string{"BTC/USDT", "ETH/USDT", "ETH/BTC"}
	cfg.Strategy.ID = "simple_arbitrage"
	cfg.Strategy.MinProfitThreshold = 0.001
	cfg.Strategy.FeePct = 0.001
	cfg.Strategy.TradeAmount = 100
	cfg.Strategy.MaxTradeAmount = 100
	cfg.Strategy.StartCurrency = "USDT"
	return cfg
}

func newTestStrategy(cfg *config.Config, scorer predict.Scorer) (*Arbitrage, *[]types.Signal) {
	book := pricebook.New(cfg.Symbols, zap.NewNop())
	s := NewArbitrage(cfg, book, scorer, zap.NewNop())
	signals := &[]types.Signal{}
	s.SetSignalCallback(func(sig types.Signal) { *signals = append(*signals, sig) })
	return s, signals
}

func TestArbitrage_EmitsOneSignalOnEdge(t *testing.T) {
	s, signals := newTestStrategy(newTestConfig(), nil)

	s.OnTick(types.PriceUpdate{Symbol: "BTC/USDT", LastTrade: 10000})
	s.OnTick(types.PriceUpdate{Symbol: "ETH/BTC", LastTrade: 0.06})
	assert.Empty(t, *signals, "incomplete book must not trigger a scan")

	// ETH/USDT 2% above parity
	s.OnTick(types.PriceUpdate{Symbol: "ETH/USDT", LastTrade: 612})

	require.Len(t, *signals, 1)
	sig := (*signals)[0]
	require.Len(t, sig.Actions, 3)

	q0 := 100.0 / 10000.0
	q1 := q0 * 0.999 / 0.06
	q2 := q1 * 0.999
	assert.InDelta(t, q0, sig.Actions[0].Quantity, 1e-12)
	assert.InDelta(t, q1, sig.Actions[1].Quantity, 1e-12)
	assert.InDelta(t, q2, sig.Actions[2].Quantity, 1e-12)
	assert.Equal(t, types.SideBuy, sig.Actions[0].Side)
	assert.Equal(t, types.SideBuy, sig.Actions[1].Side)
	assert.Equal(t, types.SideSell, sig.Actions[2].Side)
}

func TestArbitrage_BalancedPricesEmitNothing(t *testing.T) {
	s, signals := newTestStrategy(newTestConfig(), nil)

	s.OnTick(types.PriceUpdate{Symbol: "BTC/USDT", LastTrade: 10000})
	s.OnTick(types.PriceUpdate{Symbol: "ETH/BTC", LastTrade: 0.06})
	s.OnTick(types.PriceUpdate{Symbol: "ETH/USDT", LastTrade: 600})

	assert.Empty(t, *signals)
}

func TestArbitrage_MissingPriceEmitsNothing(t *testing.T) {
	s, signals := newTestStrategy(newTestConfig(), nil)

	assert.NotPanics(t, func() {
		s.OnTick(types.PriceUpdate{Symbol: "BTC/USDT", LastTrade: 10000})
		s.OnTick(types.PriceUpdate{Symbol: "ETH/USDT", LastTrade: 612})
		// ETH/BTC never arrives
		s.OnTick(types.PriceUpdate{Symbol: "BTC/USDT", LastTrade: 10001})
	})
	assert.Empty(t, *signals)
}

func TestArbitrage_RepeatedTicksKeepEmitting(t *testing.T) {
	s, signals := newTestStrategy(newTestConfig(), nil)

	s.OnTick(types.PriceUpdate{Symbol: "BTC/USDT", LastTrade: 10000})
	s.OnTick(types.PriceUpdate{Symbol: "ETH/BTC", LastTrade: 0.06})
	s.OnTick(types.PriceUpdate{Symbol: "ETH/USDT", LastTrade: 612})
	s.OnTick(types.PriceUpdate{Symbol: "ETH/USDT", LastTrade: 612})

	assert.Len(t, *signals, 2, "each completed tick scan emits independently")
}

type fixedScorer struct {
	score float64
	err   error
}

func (f fixedScorer) Score(map[string]float64) (float64, error) { return f.score, f.err }

func TestArbitrage_PredictionGate(t *testing.T) {
	cfg := newTestConfig()
	cfg.Strategy.PredictionThreshold = 0.6

	feed := func(s *Arbitrage) {
		s.OnTick(types.PriceUpdate{Symbol: "BTC/USDT", LastTrade: 10000})
		s.OnTick(types.PriceUpdate{Symbol: "ETH/BTC", LastTrade: 0.06})
		s.OnTick(types.PriceUpdate{Symbol: "ETH/USDT", LastTrade: 612})
	}

	// score below the threshold blocks emission
	s, signals := newTestStrategy(cfg, fixedScorer{score: 0.5})
	feed(s)
	assert.Empty(t, *signals)

	// a score exactly at the threshold also blocks (strictly greater)
	s, signals = newTestStrategy(cfg, fixedScorer{score: 0.6})
	feed(s)
	assert.Empty(t, *signals)

	s, signals = newTestStrategy(cfg, fixedScorer{score: 0.7})
	feed(s)
	assert.Len(t, *signals, 1)

	// scoring failure vetoes the path
	s, signals = newTestStrategy(cfg, fixedScorer{err: errors.New("model offline")})
	feed(s)
	assert.Empty(t, *signals)

	// no scorer configured: gate disabled
	s, signals = newTestStrategy(cfg, nil)
	feed(s)
	assert.Len(t, *signals, 1)
}

func TestArbitrage_ConstScorerPlaceholder(t *testing.T) {
	cfg := newTestConfig()
	cfg.Strategy.PredictionThreshold = 0.4

	s, signals := newTestStrategy(cfg, predict.NewConstScorer())
	s.OnTick(types.PriceUpdate{Symbol: "BTC/USDT", LastTrade: 10000})
	s.OnTick(types.PriceUpdate{Symbol: "ETH/BTC", LastTrade: 0.06})
	s.OnTick(types.PriceUpdate{Symbol: "ETH/USDT", LastTrade: 612})

	assert.Len(t, *signals, 1, "placeholder score 0.5 clears a 0.4 threshold")
}
