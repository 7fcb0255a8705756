package signal

import (
	"fmt"
	"math"
	"os"
	"sort"
	"sync/atomic"

	"gopkg.in/yaml.v3"

	"github.com/quantlab/breakout/features"
)

// Weights is one immutable parameter set for the model strategy: a
// logistic regression over named features. A loaded set is never mutated;
// reloads swap the whole set atomically.
type Weights struct {
	Bias     float64            `yaml:"bias"`
	Features map[string]float64 `yaml:"features"`
}

// Validate rejects parameter sets the scorer cannot use.
func (w *Weights) Validate() error {
	if len(w.Features) == 0 {
		return fmt.Errorf("model weights: no features")
	}
	for name, coef := range w.Features {
		if math.IsNaN(coef) || math.IsInf(coef, 0) {
			return fmt.Errorf("model weights: coefficient for %q is not finite", name)
		}
	}
	if math.IsNaN(w.Bias) || math.IsInf(w.Bias, 0) {
		return fmt.Errorf("model weights: bias is not finite")
	}
	return nil
}

// ModelConfig parameterizes the model strategy's decision thresholds.
type ModelConfig struct {
	// LongThreshold is the minimum probability for a long classification.
	// The short threshold is symmetric: p below 1-LongThreshold is short.
	LongThreshold float64 `yaml:"long_threshold"`
}

func ModelDefaults() ModelConfig {
	return ModelConfig{LongThreshold: 0.5}
}

// Model scores feature vectors with a pretrained logistic parameter set.
// Inference only reads the current weights pointer; Reload publishes a
// new set without blocking in-flight evaluations.
type Model struct {
	name    string
	cfg     ModelConfig
	weights atomic.Pointer[Weights]
}

func NewModel(name string, cfg ModelConfig, w Weights) (*Model, error) {
	if err := w.Validate(); err != nil {
		return nil, err
	}
	if cfg.LongThreshold <= 0 || cfg.LongThreshold >= 1 {
		cfg.LongThreshold = ModelDefaults().LongThreshold
	}
	m := &Model{name: name, cfg: cfg}
	m.weights.Store(&w)
	return m, nil
}

// LoadModel reads a YAML weights file and builds the strategy.
func LoadModel(name string, cfg ModelConfig, path string) (*Model, error) {
	w, err := readWeights(path)
	if err != nil {
		return nil, err
	}
	return NewModel(name, cfg, w)
}

// Reload replaces the parameter set from path. Readers observe either
// the old or the new set, never a mix.
func (m *Model) Reload(path string) error {
	w, err := readWeights(path)
	if err != nil {
		return err
	}
	m.weights.Store(&w)
	return nil
}

func readWeights(path string) (Weights, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Weights{}, fmt.Errorf("read model weights: %w", err)
	}
	var w Weights
	if err := yaml.Unmarshal(data, &w); err != nil {
		return Weights{}, fmt.Errorf("parse model weights: %w", err)
	}
	if err := w.Validate(); err != nil {
		return Weights{}, err
	}
	return w, nil
}

func (m *Model) Name() string   { return m.name }
func (m *Model) Source() Source { return SourceML }

func (m *Model) Evaluate(v features.Vector) Signal {
	w := m.weights.Load()

	// The dot product accumulates in sorted name order. Float addition is
	// not associative, and identical vectors must score identically on
	// every evaluation.
	names := make([]string, 0, len(w.Features))
	for name := range w.Features {
		names = append(names, name)
	}
	sort.Strings(names)

	z := w.Bias
	for _, name := range names {
		x, ok := v.Get(name)
		if !ok {
			return hold(v, m.name, SourceML, fmt.Sprintf("feature %q undefined", name))
		}
		z += w.Features[name] * x
	}

	p := 1 / (1 + math.Exp(-z))
	long := m.cfg.LongThreshold
	short := 1 - long

	switch {
	case p > long:
		return Signal{
			Symbol:    v.Symbol,
			Time:      v.Time,
			Type:      BreakoutLong,
			Strength:  clamp01(p),
			Source:    SourceML,
			Strategy:  m.name,
			Rationale: fmt.Sprintf("p=%.4f above %.2f", p, long),
		}
	case p < short:
		return Signal{
			Symbol:    v.Symbol,
			Time:      v.Time,
			Type:      BreakoutShort,
			Strength:  clamp01(1 - p),
			Source:    SourceML,
			Strategy:  m.name,
			Rationale: fmt.Sprintf("p=%.4f below %.2f", p, short),
		}
	}
	return hold(v, m.name, SourceML, fmt.Sprintf("p=%.4f inside band", p))
}
