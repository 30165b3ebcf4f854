package dataset

import (
	"encoding/json"
	"time"

	"mercator-hq/polyglot/pkg/agent"
)

// Record is one audit log entry: the final state of an accepted scenario.
type Record struct {
	RunID          string             `json:"run_id,omitempty"`
	ScenarioID     int                `json:"scenario_id"`
	Hypothesis     string             `json:"hypothesis"`
	FirstLanguage  string             `json:"first_language"`
	SecondLanguage string             `json:"second_language"`
	CSRatio        string             `json:"cs_ratio"`
	Translation    string             `json:"data_translation_result"`
	Evaluations    []agent.Evaluation `json:"evaluations,omitempty"`
	Score          float64            `json:"score"`
	Summary        string             `json:"summary"`
	RefineCount    int                `json:"refine_count"`
	PromptRevision string             `json:"prompt_revision,omitempty"`
	AcceptedAt     time.Time          `json:"accepted_at"`
}

// UnmarshalJSON also accepts audit lines written by earlier pipelines,
// where hypothesis was {"hypo": ...} and the translation was an object
// keyed by hypo, translated_sentence or translation.
func (r *Record) UnmarshalJSON(data []byte) error {
	type plain Record
	var aux struct {
		plain
		Hypothesis  json.RawMessage `json:"hypothesis"`
		Translation json.RawMessage `json:"data_translation_result"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*r = Record(aux.plain)
	r.Hypothesis = flexText(aux.Hypothesis, "hypo")
	r.Translation = flexText(aux.Translation, "hypo", "translated_sentence", "translation")
	return nil
}

// flexText decodes a JSON string, or the first non-empty of keys of a JSON
// object.
func flexText(raw json.RawMessage, keys ...string) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err != nil {
		return ""
	}
	for _, k := range keys {
		if v, ok := obj[k].(string); ok && v != "" {
			return v
		}
	}
	return ""
}
