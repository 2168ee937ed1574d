package rules

import (
	"github.com/okian/doccheck/internal/domain/fuzzy"
	model "github.com/okian/doccheck/internal/domain/model"
)

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithRules replaces the rule list. An empty list keeps the defaults.
func WithRules(rules []Rule) Option {
	return func(e *Engine) {
		if len(rules) > 0 {
			e.rules = append([]Rule(nil), rules...)
		}
	}
}

// WithVocabulary sets the vocabulary that rule fields are checked against.
func WithVocabulary(v model.Vocabulary) Option {
	return func(e *Engine) {
		if len(v) > 0 {
			e.vocab = append(model.Vocabulary(nil), v...)
		}
	}
}

// WithTopology sets the cross-document comparison topology.
func WithTopology(t Topology) Option {
	return func(e *Engine) {
		if t != nil {
			e.topology = t
		}
	}
}

// WithScorer sets the fuzzy scorer.
func WithScorer(s fuzzy.Scorer) Option {
	return func(e *Engine) {
		if s != nil {
			e.scorer = s
		}
	}
}

// EvalOption adjusts a single Evaluate call.
type EvalOption func(*evalOptions)

type evalOptions struct {
	thresholds map[string]float64
}

// WithThreshold overrides the threshold of one fuzzy rule for this call.
func WithThreshold(rule string, threshold float64) EvalOption {
	return func(o *evalOptions) {
		if o.thresholds == nil {
			o.thresholds = make(map[string]float64)
		}
		o.thresholds[rule] = threshold
	}
}
