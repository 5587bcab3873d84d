package strategy

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// Symbol is a parsed BASE/QUOTE trading pair.
type Symbol struct {
	Name  string
	Base  string
	Quote string
}

// ParseSymbol splits "BTC/USDT" into base and quote. Anything that does not
// split into exactly two non-empty parts is a configuration error.
func ParseSymbol(s string) (Symbol, error) {
	parts := strings.Split(s, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return Symbol{}, fmt.Errorf("malformed symbol %q: want BASE/QUOTE", s)
	}
	return Symbol{Name: s, Base: parts[0], Quote: parts[1]}, nil
}

// Triangle is a set of three distinct symbols whose currencies form a
// closed 3-cycle over exactly three distinct currencies.
type Triangle struct {
	Symbols    [3]Symbol
	Currencies [3]string
	key        string
}

// Key identifies the triangle by its symbol set, order-independent.
func (t Triangle) Key() string { return t.key }

func (t Triangle) String() string { return t.key }

// Finder derives the triangle set from the configured symbol universe and
// caches it across scans; the set is recomputed only when the universe
// changes.
type Finder struct {
	log *zap.Logger

	mu          sync.Mutex
	universeKey string
	cached      []Triangle
}

func NewFinder(log *zap.Logger) *Finder {
	return &Finder{log: log}
}

// Triangles returns the deduplicated triangle set for symbols.
func (f *Finder) Triangles(symbols []string) []Triangle {
	key := universeKey(symbols)

	f.mu.Lock()
	defer f.mu.Unlock()
	if key == f.universeKey && f.cached != nil {
		return f.cached
	}

	f.cached = f.find(symbols)
	f.universeKey = key
	f.log.Info("triangle universe rebuilt",
		zap.Int("symbols", len(symbols)),
		zap.Int("triangles", len(f.cached)),
	)
	return f.cached
}

func (f *Finder) find(symbols []string) []Triangle {
	// adjacency: currency -> set of directly tradable currencies,
	// plus a lookup from an unordered currency pair to its symbol
	adj := make(map[string]map[string]struct{})
	bySides := make(map[string]Symbol)
	parsed := make([]Symbol, 0, len(symbols))

	for _, raw := range symbols {
		sym, err := ParseSymbol(raw)
		if err != nil {
			f.log.Warn("skipping malformed symbol", zap.String("symbol", raw), zap.Error(err))
			continue
		}
		parsed = append(parsed, sym)
		if adj[sym.Base] == nil {
			adj[sym.Base] = make(map[string]struct{})
		}
		if adj[sym.Quote] == nil {
			adj[sym.Quote] = make(map[string]struct{})
		}
		adj[sym.Base][sym.Quote] = struct{}{}
		adj[sym.Quote][sym.Base] = struct{}{}
		bySides[sidesKey(sym.Base, sym.Quote)] = sym
	}

	seen := make(map[string]struct{})
	var out []Triangle

	for _, sym := range parsed {
		c1, c2 := sym.Base, sym.Quote
		for c3 := range adj[c1] {
			if c3 == c1 || c3 == c2 {
				continue
			}
			if _, ok := adj[c2][c3]; !ok {
				continue
			}
			s31, ok1 := bySides[sidesKey(c3, c1)]
			s32, ok2 := bySides[sidesKey(c3, c2)]
			if !ok1 || !ok2 {
				continue
			}
			tri := newTriangle([3]Symbol{sym, s31, s32}, [3]string{c1, c2, c3})
			if _, dup := seen[tri.key]; dup {
				continue
			}
			seen[tri.key] = struct{}{}
			out = append(out, tri)
		}
	}
	return out
}

func newTriangle(syms [3]Symbol, currencies [3]string) Triangle {
	names := []string{syms[0].Name, syms[1].Name, syms[2].Name}
	sort.Strings(names)
	sort.Strings(currencies[:])
	return Triangle{
		Symbols:    syms,
		Currencies: currencies,
		key:        strings.Join(names, "|"),
	}
}

func sidesKey(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return a + "|" + b
}

func universeKey(symbols []string) string {
	cp := append([]string(nil), symbols...)
	sort.Strings(cp)
	return strings.Join(cp, ",")
}
