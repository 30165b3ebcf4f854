package agent

import (
	"encoding/json"
	"strings"

	"mercator-hq/polyglot/pkg/prompts"
)

// generationResponse is the output of translate and refine.
type generationResponse struct {
	Hypo string `json:"hypo"`
}

// Only the score fields are strict; annotations and prose accept any shape.
type accuracyResponse struct {
	AccuracyScore float64     `json:"accuracy_score"`
	Errors        annotations `json:"errors"`
	Summary       freeText    `json:"summary"`
}

type fluencyResponse struct {
	FluencyScore float64     `json:"fluency_score"`
	Errors       annotations `json:"errors"`
	Summary      freeText    `json:"summary"`
}

type naturalnessResponse struct {
	NaturalnessScore float64     `json:"naturalness_score"`
	Observations     annotations `json:"observations"`
	Summary          freeText    `json:"summary"`
}

type csRatioResponse struct {
	RatioScore    float64  `json:"ratio_score"`
	ComputedRatio freeText `json:"computed_ratio"`
	Notes         freeText `json:"notes"`
}

type socioCulturalResponse struct {
	SocioCulturalScore float64  `json:"socio_cultural_score"`
	Issues             freeText `json:"issues"`
	Summary            freeText `json:"summary"`
}

// evaluatorSpec binds an evaluator to its template, the JSON key that must
// carry its score and a decoder into Evaluation.
type evaluatorSpec struct {
	template string
	title    string
	scoreKey string
	decode   func(data []byte) (Evaluation, error)
}

var evaluators = map[string]evaluatorSpec{
	EvaluatorAccuracy: {
		template: prompts.Accuracy,
		title:    "Accuracy",
		scoreKey: "accuracy_score",
		decode: func(data []byte) (Evaluation, error) {
			var r accuracyResponse
			if err := json.Unmarshal(data, &r); err != nil {
				return Evaluation{}, err
			}
			return Evaluation{Score: r.AccuracyScore, Annotations: r.Errors, Summary: string(r.Summary)}, nil
		},
	},
	EvaluatorFluency: {
		template: prompts.Fluency,
		title:    "Fluency",
		scoreKey: "fluency_score",
		decode: func(data []byte) (Evaluation, error) {
			var r fluencyResponse
			if err := json.Unmarshal(data, &r); err != nil {
				return Evaluation{}, err
			}
			return Evaluation{Score: r.FluencyScore, Annotations: r.Errors, Summary: string(r.Summary)}, nil
		},
	},
	EvaluatorNaturalness: {
		template: prompts.Naturalness,
		title:    "Naturalness",
		scoreKey: "naturalness_score",
		decode: func(data []byte) (Evaluation, error) {
			var r naturalnessResponse
			if err := json.Unmarshal(data, &r); err != nil {
				return Evaluation{}, err
			}
			return Evaluation{Score: r.NaturalnessScore, Annotations: r.Observations, Summary: string(r.Summary)}, nil
		},
	},
	EvaluatorCSRatio: {
		template: prompts.CSRatio,
		title:    "CS Ratio",
		scoreKey: "ratio_score",
		decode: func(data []byte) (Evaluation, error) {
			var r csRatioResponse
			if err := json.Unmarshal(data, &r); err != nil {
				return Evaluation{}, err
			}
			ev := Evaluation{Score: r.RatioScore, Summary: string(r.Notes)}
			if r.ComputedRatio != "" {
				ev.Annotations = map[string]string{"computed_ratio": string(r.ComputedRatio)}
			}
			return ev, nil
		},
	},
	EvaluatorSocioCultural: {
		template: prompts.SocioCultural,
		title:    "Socio Cultural",
		scoreKey: "socio_cultural_score",
		decode: func(data []byte) (Evaluation, error) {
			var r socioCulturalResponse
			if err := json.Unmarshal(data, &r); err != nil {
				return Evaluation{}, err
			}
			ev := Evaluation{Score: r.SocioCulturalScore, Summary: string(r.Summary)}
			if r.Issues != "" {
				ev.Annotations = map[string]string{"issues": string(r.Issues)}
			}
			return ev, nil
		},
	},
}

// Evaluators returns the registered evaluator names.
func Evaluators() []string {
	return []string{EvaluatorAccuracy, EvaluatorFluency, EvaluatorNaturalness, EvaluatorCSRatio, EvaluatorSocioCultural}
}

// extractJSON returns the JSON object in content, tolerating surrounding
// prose and markdown code fences.
func extractJSON(content string) string {
	s := strings.TrimSpace(content)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
		s = strings.TrimSpace(s)
	}
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end < start {
		return s
	}
	return s[start : end+1]
}
