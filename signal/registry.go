package signal

import (
	"fmt"

	"github.com/quantlab/breakout/features"
)

// Registry holds strategies in their registration order. Order matters:
// the risk controller uses it as the final tie-break when strategies
// disagree, so the set must be fixed before the first tick.
type Registry struct {
	strategies []Strategy
	names      map[string]struct{}
}

func NewRegistry() *Registry {
	return &Registry{names: make(map[string]struct{})}
}

// Register appends a strategy. Duplicate names are refused so a
// (symbol, timestamp, strategy) key is never emitted twice.
func (r *Registry) Register(s Strategy) error {
	if _, dup := r.names[s.Name()]; dup {
		return fmt.Errorf("signal: strategy %q already registered", s.Name())
	}
	r.names[s.Name()] = struct{}{}
	r.strategies = append(r.strategies, s)
	return nil
}

// Strategies returns the registered strategies in order.
func (r *Registry) Strategies() []Strategy { return r.strategies }

func (r *Registry) Len() int { return len(r.strategies) }

// Evaluate fans the vector out to every registered strategy and returns
// one signal per strategy, in registration order. The registry never
// arbitrates between them; conflicting directions ride through to the
// risk controller.
func (r *Registry) Evaluate(v features.Vector) []Signal {
	out := make([]Signal, 0, len(r.strategies))
	for _, s := range r.strategies {
		out = append(out, s.Evaluate(v))
	}
	return out
}
