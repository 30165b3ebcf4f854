// Package scoring combines evaluator scores into the aggregate score of a
// round and decides whether a scenario is accepted or refined.
package scoring

import (
	"fmt"
	"math"

	"mercator-hq/polyglot/pkg/config"
)

// weightTolerance absorbs float rounding in weights such as 0.3/0.4/0.3.
const weightTolerance = 1e-6

// Decision is the outcome of a round.
type Decision string

const (
	Accept Decision = "accept"
	Refine Decision = "refine"
)

// Weight is the share of one evaluator in the aggregate score.
type Weight struct {
	Evaluator string
	Weight    float64
}

// Policy is a weighted sum over named evaluator scores plus the
// accept/refine rule. A Policy is immutable and safe for concurrent use.
type Policy struct {
	weights   []Weight
	threshold float64
	maxRefine int
}

// NewPolicy validates weights and returns a policy. Weights must be
// non-negative, name distinct evaluators and sum to 1 so the aggregate of
// scores in [0, 10] stays in [0, 10].
func NewPolicy(weights []Weight, threshold float64, maxRefine int) (*Policy, error) {
	if len(weights) == 0 {
		return nil, fmt.Errorf("scoring policy needs at least one evaluator")
	}
	if maxRefine < 0 {
		return nil, fmt.Errorf("max refine must be non-negative, got %d", maxRefine)
	}

	seen := make(map[string]bool, len(weights))
	var sum float64
	for _, w := range weights {
		if w.Weight < 0 {
			return nil, fmt.Errorf("evaluator %q has negative weight %g", w.Evaluator, w.Weight)
		}
		if seen[w.Evaluator] {
			return nil, fmt.Errorf("duplicate evaluator %q", w.Evaluator)
		}
		seen[w.Evaluator] = true
		sum += w.Weight
	}
	if math.Abs(sum-1) > weightTolerance {
		return nil, fmt.Errorf("evaluator weights must sum to 1, got %g", sum)
	}

	out := make([]Weight, len(weights))
	copy(out, weights)
	return &Policy{weights: out, threshold: threshold, maxRefine: maxRefine}, nil
}

// FromConfig builds the policy of a workflow configuration.
func FromConfig(cfg config.WorkflowConfig) (*Policy, error) {
	weights := make([]Weight, 0, len(cfg.Evaluators))
	for _, ev := range cfg.Evaluators {
		weights = append(weights, Weight{Evaluator: ev.Name, Weight: ev.Weight})
	}
	return NewPolicy(weights, cfg.AcceptThreshold, cfg.RefineLimit())
}

// Default returns accuracy 0.3, fluency 0.4, naturalness 0.3 with threshold
// 8 and one refinement.
func Default() *Policy {
	p, err := NewPolicy([]Weight{
		{Evaluator: "accuracy", Weight: 0.3},
		{Evaluator: "fluency", Weight: 0.4},
		{Evaluator: "naturalness", Weight: 0.3},
	}, config.DefaultAcceptThreshold, config.DefaultMaxRefine)
	if err != nil {
		panic(err)
	}
	return p
}

// Evaluators returns the evaluator names in configured order.
func (p *Policy) Evaluators() []string {
	names := make([]string, len(p.weights))
	for i, w := range p.weights {
		names[i] = w.Evaluator
	}
	return names
}

// Threshold returns the acceptance threshold.
func (p *Policy) Threshold() float64 { return p.threshold }

// MaxRefine returns the refinement cap.
func (p *Policy) MaxRefine() int { return p.maxRefine }

// Score returns the weighted sum of scores. Every configured evaluator must
// have a score; extra entries are ignored.
func (p *Policy) Score(scores map[string]float64) (float64, error) {
	var total float64
	for _, w := range p.weights {
		s, ok := scores[w.Evaluator]
		if !ok {
			return 0, fmt.Errorf("missing score for evaluator %q", w.Evaluator)
		}
		if s < 0 || s > 10 {
			return 0, fmt.Errorf("evaluator %q score %g outside [0, 10]", w.Evaluator, s)
		}
		total += w.Weight * s
	}
	// Clamp rounding drift at the range ends.
	return math.Min(10, math.Max(0, total)), nil
}

// Decide refines iff score is below the threshold and the refinement
// budget is not spent. A score equal to the threshold is accepted.
func (p *Policy) Decide(score float64, refineCount int) Decision {
	if score < p.threshold && refineCount < p.maxRefine {
		return Refine
	}
	return Accept
}
