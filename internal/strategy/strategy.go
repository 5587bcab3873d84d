package strategy

import (
	"time"

	"github.com/b8kings0ga/ctrader/internal/config"
	imetrics "github.com/b8kings0ga/ctrader/internal/metrics"
	"github.com/b8kings0ga/ctrader/internal/predict"
	"github.com/b8kings0ga/ctrader/internal/pricebook"
	"github.com/b8kings0ga/ctrader/internal/types"
	"go.uber.org/zap"
)

// Strategy consumes the market event stream and emits trade signals.
type Strategy interface {
	OnTick(u types.PriceUpdate)
	OnOrderUpdate(u types.OrderUpdate)
	SetSignalCallback(cb func(types.Signal))
}

// Arbitrage scans the configured symbol universe for closed 3-cycles and
// emits a signal for every path whose post-fee profit clears the threshold.
// Ticks are processed one at a time; no two scans of the same book overlap.
type Arbitrage struct {
	id            string
	symbols       []string
	minProfit     float64
	startCurrency string

	book    *pricebook.Book
	finder  *Finder
	eval    *Evaluator
	emitter *Emitter

	scorer              predict.Scorer
	predictionThreshold float64

	log *zap.Logger
}

// NewArbitrage wires the scan pipeline from explicit collaborators.
func NewArbitrage(cfg *config.Config, book *pricebook.Book, scorer predict.Scorer, log *zap.Logger) *Arbitrage {
	id := cfg.Strategy.ID
	return &Arbitrage{
		id:                  id,
		symbols:             cfg.Symbols,
		minProfit:           cfg.Strategy.MinProfitThreshold,
		startCurrency:       cfg.Strategy.StartCurrency,
		book:                book,
		finder:              NewFinder(log),
		eval:                NewEvaluator(cfg.Strategy.FeePct, log),
		emitter:             NewEmitter(id, cfg.Strategy.TradeAmount, cfg.Strategy.MaxTradeAmount, cfg.Strategy.FeePct, log),
		scorer:              scorer,
		predictionThreshold: cfg.Strategy.PredictionThreshold,
		log:                 log.With(zap.String("strategy", id)),
	}
}

func (s *Arbitrage) SetSignalCallback(cb func(types.Signal)) {
	s.emitter.SetCallback(cb)
}

// OnTick processes one market event to completion: book update,
// completeness check, full scan, signal delivery. A panic inside one tick
// is contained here so a malformed event cannot halt the stream.
func (s *Arbitrage) OnTick(u types.PriceUpdate) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("tick evaluation panicked", zap.Any("panic", r), zap.String("symbol", u.Symbol))
		}
	}()

	imetrics.TicksTotal.Inc()
	s.book.Update(u)
	if !s.book.HasCompleteData(s.symbols) {
		return
	}
	s.scan()
}

// OnOrderUpdate is informational for this strategy; order lifecycle is
// owned by the router.
func (s *Arbitrage) OnOrderUpdate(u types.OrderUpdate) {
	s.log.Debug("order update",
		zap.String("order_id", u.ID),
		zap.String("status", string(u.Status)),
	)
}

func (s *Arbitrage) scan() {
	start := time.Now()
	imetrics.ScansTotal.Inc()

	for _, tri := range s.finder.Triangles(s.symbols) {
		// Anchor paths at the funding currency so leg sizing stays in its
		// unit; triangles not touching it fall back to the canonical pair.
		ords := OrderingsFrom(tri, s.startCurrency)
		if ords == nil {
			ords = CanonicalOrderings(tri)
		}
		for _, res := range s.eval.EvaluateOrderings(tri, s.book, ords) {
			if !res.Viable || res.ProfitPct <= s.minProfit {
				continue
			}
			imetrics.OpportunitiesTotal.Inc()
			imetrics.LastProfitPct.Set(res.ProfitPct)

			if !s.gatePasses(res) {
				continue
			}
			if _, ok := s.emitter.Emit(res); ok {
				imetrics.SignalsTotal.Inc()
			}
		}
	}

	imetrics.ScanLatency.Observe(time.Since(start).Seconds())
}

// gatePasses applies the optional prediction gate. Without a configured
// scorer the gate is disabled and every profitable path passes. A scoring
// failure vetoes the path: a configured model that cannot score should not
// let trades through.
func (s *Arbitrage) gatePasses(res PathResult) bool {
	if s.scorer == nil {
		return true
	}
	score, err := s.scorer.Score(map[string]float64{
		"profit_pct": res.ProfitPct,
	})
	if err != nil {
		s.log.Warn("prediction failed, path vetoed", zap.String("path", res.Path), zap.Error(err))
		return false
	}
	if score <= s.predictionThreshold {
		s.log.Debug("prediction gate rejected path",
			zap.String("path", res.Path),
			zap.Float64("score", score),
			zap.Float64("threshold", s.predictionThreshold),
		)
		return false
	}
	return true
}
