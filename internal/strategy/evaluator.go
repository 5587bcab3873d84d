package strategy

import (
	"errors"
	"fmt"

	"github.com/b8kings0ga/ctrader/internal/pricebook"
	"github.com/b8kings0ga/ctrader/internal/types"
	"go.uber.org/zap"
)

// ErrDataGap marks a path that cannot be evaluated because a required leg
// price is missing. It aborts only the affected path, never the scan.
var ErrDataGap = errors.New("missing leg price")

// QuoteSource is the read side of the price book the evaluator needs.
type QuoteSource interface {
	Quote(symbol string) (pricebook.Quote, bool)
}

// Ordering is a chosen (start, middle, end) currency traversal of a triangle.
type Ordering struct {
	Start string
	Mid   string
	End   string
}

func (o Ordering) String() string {
	return o.Start + "->" + o.Mid + "->" + o.End + "->" + o.Start
}

// PathLeg is a priced, directed leg of an evaluated path.
type PathLeg struct {
	Symbol string
	Side   types.Side
	Price  float64
}

// PathResult is the outcome of evaluating one path of a triangle.
type PathResult struct {
	Triangle  Triangle
	Ordering  Ordering
	Path      string
	Legs      [3]PathLeg
	ProfitPct float64
	Viable    bool
}

// Evaluator computes multi-leg conversion profit for triangle paths.
// The taker fee is applied multiplicatively after every leg.
type Evaluator struct {
	feePct float64
	log    *zap.Logger
}

func NewEvaluator(feePct float64, log *zap.Logger) *Evaluator {
	return &Evaluator{feePct: feePct, log: log}
}

// EvaluateTriangle evaluates every ordering of tri: each of the three
// currencies as start, times both orderings of the remaining two. Paths
// with data gaps are skipped; the rest are returned, profitable or not.
func (e *Evaluator) EvaluateTriangle(tri Triangle, book QuoteSource) []PathResult {
	return e.EvaluateOrderings(tri, book, Orderings(tri))
}

// EvaluateCanonical evaluates only the two canonical directions of tri:
// the lexicographically smallest currency is the fixed start.
func (e *Evaluator) EvaluateCanonical(tri Triangle, book QuoteSource) []PathResult {
	return e.EvaluateOrderings(tri, book, CanonicalOrderings(tri))
}

// EvaluateOrderings evaluates the given traversals of tri.
func (e *Evaluator) EvaluateOrderings(tri Triangle, book QuoteSource, orderings []Ordering) []PathResult {
	out := make([]PathResult, 0, len(orderings))
	for _, ord := range orderings {
		res, err := e.EvaluatePath(tri, ord, book)
		if err != nil {
			e.log.Debug("path skipped",
				zap.String("triangle", tri.Key()),
				zap.String("path", ord.String()),
				zap.Error(err),
			)
			continue
		}
		out = append(out, res)
	}
	return out
}

// EvaluatePath walks one conversion cycle start->mid->end->start with a
// unit amount. Selling the base currency of a leg uses the bid and
// multiplies the running amount; buying the base uses the ask and divides.
// profit_pct is invariant to the unit choice. A leg price of exactly zero
// makes the path non-viable without attempting a division; a missing leg
// price returns ErrDataGap.
func (e *Evaluator) EvaluatePath(tri Triangle, ord Ordering, book QuoteSource) (PathResult, error) {
	return e.evaluatePathFrom(tri, ord, book, 1.0)
}

func (e *Evaluator) evaluatePathFrom(tri Triangle, ord Ordering, book QuoteSource, initial float64) (PathResult, error) {
	res := PathResult{Triangle: tri, Ordering: ord, Path: ord.String()}

	hops := [3][2]string{
		{ord.Start, ord.Mid},
		{ord.Mid, ord.End},
		{ord.End, ord.Start},
	}

	amount := initial
	for i, hop := range hops {
		from, to := hop[0], hop[1]
		sym, ok := tri.symbolFor(from, to)
		if !ok {
			return PathResult{}, fmt.Errorf("%w: no symbol links %s and %s", ErrDataGap, from, to)
		}
		q, ok := book.Quote(sym.Name)
		if !ok {
			return PathResult{}, fmt.Errorf("%w: %s", ErrDataGap, sym.Name)
		}

		var (
			price float64
			side  types.Side
			have  bool
		)
		if sym.Base == from {
			// holding the base: sell it for the quote at the bid
			side = types.SideSell
			price, have = q.SellPrice()
		} else {
			// holding the quote: buy the base at the ask
			side = types.SideBuy
			price, have = q.BuyPrice()
		}
		if !have {
			return PathResult{}, fmt.Errorf("%w: %s has no %s price", ErrDataGap, sym.Name, side)
		}

		res.Legs[i] = PathLeg{Symbol: sym.Name, Side: side, Price: price}

		if price == 0 {
			return res, nil
		}
		if side == types.SideSell {
			amount *= price
		} else {
			amount /= price
		}
		amount *= 1 - e.feePct
	}

	res.ProfitPct = (amount - initial) / initial
	res.Viable = true
	return res, nil
}

// Orderings returns all six traversals of tri.
func Orderings(tri Triangle) []Ordering {
	c := tri.Currencies
	out := make([]Ordering, 0, 6)
	for i := 0; i < 3; i++ {
		a, b := c[(i+1)%3], c[(i+2)%3]
		out = append(out,
			Ordering{Start: c[i], Mid: a, End: b},
			Ordering{Start: c[i], Mid: b, End: a},
		)
	}
	return out
}

// CanonicalOrderings returns the two canonical directions of tri, anchored
// at its lexicographically smallest currency.
func CanonicalOrderings(tri Triangle) []Ordering {
	c := tri.Currencies // sorted at construction
	return []Ordering{
		{Start: c[0], Mid: c[1], End: c[2]},
		{Start: c[0], Mid: c[2], End: c[1]},
	}
}

// OrderingsFrom returns the two traversals of tri anchored at start, or
// nil when start is not one of the triangle's currencies.
func OrderingsFrom(tri Triangle, start string) []Ordering {
	var rest []string
	for _, c := range tri.Currencies {
		if c != start {
			rest = append(rest, c)
		}
	}
	if len(rest) != 2 {
		return nil
	}
	return []Ordering{
		{Start: start, Mid: rest[0], End: rest[1]},
		{Start: start, Mid: rest[1], End: rest[0]},
	}
}

func (t Triangle) symbolFor(a, b string) (Symbol, bool) {
	for _, s := range t.Symbols {
		if (s.Base == a && s.Quote == b) || (s.Base == b && s.Quote == a) {
			return s, true
		}
	}
	return Symbol{}, false
}
