package agent

import (
	"context"
	"fmt"

	"mercator-hq/polyglot/pkg/prompts"
)

// Role is an agent role.
type Role string

// Generation roles.
const (
	RoleTranslate Role = "translate"
	RoleRefine    Role = "refine"
)

// Evaluator names. An evaluator named N runs as role "evaluate_N".
const (
	EvaluatorAccuracy      = "accuracy"
	EvaluatorFluency       = "fluency"
	EvaluatorNaturalness   = "naturalness"
	EvaluatorCSRatio       = "cs_ratio"
	EvaluatorSocioCultural = "socio_cultural"
)

// EvaluatorRole returns the role of the named evaluator.
func EvaluatorRole(evaluator string) Role {
	return Role("evaluate_" + evaluator)
}

// Input is the structured input of every role.
type Input struct {
	FirstLanguage  string
	SecondLanguage string
	CSRatio        string
	Hypothesis     string

	// Translation is the candidate under evaluation. Unused by translate.
	Translation string

	// Summary is the critique handed to refine.
	Summary string
}

func (in Input) promptData() prompts.Data {
	return prompts.Data{
		FirstLanguage:  in.FirstLanguage,
		SecondLanguage: in.SecondLanguage,
		CSRatio:        in.CSRatio,
		Hypothesis:     in.Hypothesis,
		Translation:    in.Translation,
		Summary:        in.Summary,
	}
}

// Agent runs generation and evaluation roles.
//
// Implementations must honor ctx cancellation and be safe for concurrent
// use; the evaluators of a round run in parallel.
type Agent interface {
	// Generate runs translate or refine and returns the candidate sentence.
	// An empty sentence is reported as *EmptyResponseError.
	Generate(ctx context.Context, role Role, in Input) (string, error)

	// Evaluate runs the named evaluator against in.Translation.
	Evaluate(ctx context.Context, evaluator string, in Input) (*Evaluation, error)
}

// Evaluation is the result of one evaluator.
type Evaluation struct {
	// Evaluator is the evaluator name, e.g. "fluency".
	Evaluator string `json:"evaluator"`

	// Score is in [0, 10].
	Score float64 `json:"score"`

	// Annotations holds per-issue notes (errors, observations, issues).
	Annotations map[string]string `json:"annotations,omitempty"`

	// Summary is the evaluator's free-text verdict.
	Summary string `json:"summary"`

	// Raw is the evaluator response as returned, kept for the audit log.
	Raw map[string]any `json:"raw,omitempty"`
}

// Title returns the label used for this evaluator in workflow summaries,
// e.g. "Accuracy" or "Socio Cultural".
func Title(evaluator string) string {
	if spec, ok := evaluators[evaluator]; ok {
		return spec.title
	}
	return evaluator
}

// validateScore rejects scores outside [0, 10].
func validateScore(evaluator string, score float64) error {
	if score < 0 || score > 10 {
		return &MalformedResponseError{
			Role:   EvaluatorRole(evaluator),
			Reason: fmt.Sprintf("score %v outside [0, 10]", score),
		}
	}
	return nil
}
