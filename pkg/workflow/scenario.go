package workflow

import (
	"fmt"

	"mercator-hq/polyglot/pkg/agent"
)

// Stage is a state of the scenario machine.
type Stage string

const (
	StageGenerating  Stage = "generating"
	StageEvaluating  Stage = "evaluating"
	StageAggregating Stage = "aggregating"
	StageRefining    Stage = "refining"
	StageAccepting   Stage = "accepting"
	StageDone        Stage = "done"
	StageFailed      Stage = "failed"
)

// Terminal reports whether s ends the machine.
func (s Stage) Terminal() bool {
	return s == StageDone || s == StageFailed
}

// Scenario is the state of one hypothesis moving through the workflow.
// Only the machine running it mutates it.
type Scenario struct {
	// ID is the index of the hypothesis in the input batch.
	ID int `json:"id"`

	Hypothesis     string `json:"hypothesis"`
	FirstLanguage  string `json:"first_language"`
	SecondLanguage string `json:"second_language"`
	CSRatio        string `json:"cs_ratio"`

	// RefineCount starts at 0 and only increases.
	RefineCount int `json:"refine_count"`

	// Translation is the current candidate, replaced by generate and refine.
	Translation string `json:"translation,omitempty"`

	// Evaluations are the scores of the latest round, in configured
	// evaluator order.
	Evaluations []agent.Evaluation `json:"evaluations,omitempty"`

	AggregateScore float64 `json:"aggregate_score"`
	Summary        string  `json:"summary,omitempty"`
}

// NewScenario seeds a scenario for hypothesis id of a batch.
func NewScenario(id int, hypothesis string, s Settings) Scenario {
	return Scenario{
		ID:             id,
		Hypothesis:     hypothesis,
		FirstLanguage:  s.FirstLanguage,
		SecondLanguage: s.SecondLanguage,
		CSRatio:        s.CSRatio,
	}
}

// Scores returns the latest evaluation scores by evaluator name.
func (s *Scenario) Scores() map[string]float64 {
	out := make(map[string]float64, len(s.Evaluations))
	for _, ev := range s.Evaluations {
		out[ev.Evaluator] = ev.Score
	}
	return out
}

func (s *Scenario) input() agent.Input {
	return agent.Input{
		FirstLanguage:  s.FirstLanguage,
		SecondLanguage: s.SecondLanguage,
		CSRatio:        s.CSRatio,
		Hypothesis:     s.Hypothesis,
		Translation:    s.Translation,
		Summary:        s.Summary,
	}
}

// update is the partial state change produced by a stage.
type update func(*Scenario)

func setTranslation(t string) update {
	return func(s *Scenario) { s.Translation = t }
}

func setEvaluations(evs []agent.Evaluation) update {
	return func(s *Scenario) {
		s.Evaluations = evs
		s.AggregateScore = 0
		s.Summary = ""
	}
}

func setAggregate(score float64, summary string) update {
	return func(s *Scenario) {
		s.AggregateScore = score
		s.Summary = summary
	}
}

func refined(t string) update {
	return func(s *Scenario) {
		s.Translation = t
		s.RefineCount++
		s.Evaluations = nil
	}
}

// StageError reports the stage a scenario failed in.
type StageError struct {
	Stage      Stage
	ScenarioID int
	Cause      error
}

// Error implements the error interface.
func (e *StageError) Error() string {
	return fmt.Sprintf("scenario %d failed in %s: %v", e.ScenarioID, e.Stage, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *StageError) Unwrap() error {
	return e.Cause
}
