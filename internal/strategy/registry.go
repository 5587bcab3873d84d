package strategy

import (
	"fmt"
	"sort"

	"github.com/b8kings0ga/ctrader/internal/config"
	"github.com/b8kings0ga/ctrader/internal/predict"
	"github.com/b8kings0ga/ctrader/internal/pricebook"
	"go.uber.org/zap"
)

// Registry is a closed table of strategy constructors, validated at
// startup. Unknown and duplicate names fail the affected call only.
type Registry struct {
	constructors map[string]Constructor
}

// Constructor builds a strategy from explicit collaborators.
type Constructor func(cfg *config.Config, book *pricebook.Book, scorer predict.Scorer, log *zap.Logger) Strategy

// NewRegistry returns the registry pre-populated with the built-in set.
func NewRegistry() *Registry {
	r := &Registry{constructors: make(map[string]Constructor)}
	must(r.Register("simple_arbitrage", func(cfg *config.Config, book *pricebook.Book, scorer predict.Scorer, log *zap.Logger) Strategy {
		return NewArbitrage(cfg, book, scorer, log)
	}))
	return r
}

func (r *Registry) Register(name string, c Constructor) error {
	if _, ok := r.constructors[name]; ok {
		return fmt.Errorf("strategy %q already registered", name)
	}
	if c == nil {
		return fmt.Errorf("strategy %q has nil constructor", name)
	}
	r.constructors[name] = c
	return nil
}

func (r *Registry) New(name string, cfg *config.Config, book *pricebook.Book, scorer predict.Scorer, log *zap.Logger) (Strategy, error) {
	c, ok := r.constructors[name]
	if !ok {
		return nil, fmt.Errorf("strategy %q is not registered", name)
	}
	return c(cfg, book, scorer, log), nil
}

func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.constructors))
	for name := range r.constructors {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func must(err error) {
	if err != nil {
		panic(err)
	}
}
