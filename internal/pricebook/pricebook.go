package pricebook

import (
	"sync"
	"time"

	"github.com/b8kings0ga/ctrader/internal/types"
	"go.uber.org/zap"
)

// Quote is the latest known price data for one symbol. Zero fields mean
// the side has never been seen.
type Quote struct {
	Bid       float64
	Ask       float64
	LastTrade float64
	Ts        time.Time
}

// HasPrice reports whether at least one price is stored.
func (q Quote) HasPrice() bool {
	return q.Bid != 0 || q.Ask != 0 || q.LastTrade != 0
}

// SellPrice is the price at which the base currency can be sold: the bid,
// falling back to the last trade when only one-sided data arrived. The
// bool is false only when no price at all is stored; a stored quote whose
// relevant side is unknown reports a zero price, which evaluation treats
// as degenerate rather than missing.
func (q Quote) SellPrice() (float64, bool) {
	if !q.HasPrice() {
		return 0, false
	}
	if q.Bid != 0 {
		return q.Bid, true
	}
	return q.LastTrade, true
}

// BuyPrice is the price at which the base currency can be bought: the ask,
// falling back to the last trade. Presence semantics match SellPrice.
func (q Quote) BuyPrice() (float64, bool) {
	if !q.HasPrice() {
		return 0, false
	}
	if q.Ask != 0 {
		return q.Ask, true
	}
	return q.LastTrade, true
}

// Mid is the best single-number estimate of the current price.
func (q Quote) Mid() float64 {
	if q.Bid != 0 && q.Ask != 0 {
		return 0.5 * (q.Bid + q.Ask)
	}
	if q.LastTrade != 0 {
		return q.LastTrade
	}
	if q.Bid != 0 {
		return q.Bid
	}
	return q.Ask
}

// Book holds the latest known quote per configured symbol.
// Updates for symbols outside the configured universe are ignored.
type Book struct {
	mu     sync.RWMutex
	known  map[string]struct{}
	quotes map[string]Quote
	log    *zap.Logger
}

func New(symbols []string, log *zap.Logger) *Book {
	known := make(map[string]struct{}, len(symbols))
	for _, s := range symbols {
		known[s] = struct{}{}
	}
	return &Book{
		known:  known,
		quotes: make(map[string]Quote, len(symbols)),
		log:    log,
	}
}

// Update stores the latest quote for u.Symbol. Unknown symbols are logged
// and dropped, never rejected with an error. Absent (zero) sides keep the
// previously stored value.
func (b *Book) Update(u types.PriceUpdate) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.known[u.Symbol]; !ok {
		b.log.Debug("price update for unknown symbol ignored", zap.String("symbol", u.Symbol))
		return
	}

	q := b.quotes[u.Symbol]
	if u.Bid != 0 {
		q.Bid = u.Bid
	}
	if u.Ask != 0 {
		q.Ask = u.Ask
	}
	if u.LastTrade != 0 {
		q.LastTrade = u.LastTrade
	}
	ts := u.Ts
	if ts.IsZero() {
		ts = time.Now()
	}
	q.Ts = ts
	b.quotes[u.Symbol] = q
}

// Quote returns the stored quote for symbol.
func (b *Book) Quote(symbol string) (Quote, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	q, ok := b.quotes[symbol]
	return q, ok && q.HasPrice()
}

// HasCompleteData reports whether every required symbol has at least one
// stored price. Callers use a completed data set as the trigger to scan.
func (b *Book) HasCompleteData(required []string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, s := range required {
		if q, ok := b.quotes[s]; !ok || !q.HasPrice() {
			return false
		}
	}
	return true
}

// Missing returns the required symbols that have no stored price yet.
func (b *Book) Missing(required []string) []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	var out []string
	for _, s := range required {
		if q, ok := b.quotes[s]; !ok || !q.HasPrice() {
			out = append(out, s)
		}
	}
	return out
}

// Latest returns a point-in-time map symbol -> mid price for every symbol
// that has data. Used for risk notional estimates.
func (b *Book) Latest() map[string]float64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make(map[string]float64, len(b.quotes))
	for s, q := range b.quotes {
		if q.HasPrice() {
			out[s] = q.Mid()
		}
	}
	return out
}

// Symbols returns the configured symbol universe.
func (b *Book) Symbols() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]string, 0, len(b.known))
	for s := range b.known {
		out = append(out, s)
	}
	return out
}
