package agent

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// annotations decodes the optional per-issue section of an evaluator reply.
// Models answer with an object of notes, a list of {"error", "description"}
// entries, a plain string or null; every shape decodes without error.
type annotations map[string]string

func (a *annotations) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	out := annotations{}
	switch x := v.(type) {
	case map[string]any:
		for k, val := range x {
			out[k] = text(val)
		}
	case []any:
		for i, item := range x {
			key, val := listEntry(item)
			if key == "" {
				key = strconv.Itoa(i + 1)
			}
			out[key] = val
		}
	case string:
		if x != "" {
			out["note"] = x
		}
	}
	if len(out) == 0 {
		*a = nil
		return nil
	}
	*a = out
	return nil
}

// listEntry splits one list item into a key and a note. An object keyed
// by "error" uses its "description" as the note.
func listEntry(item any) (string, string) {
	obj, ok := item.(map[string]any)
	if !ok {
		return "", text(item)
	}
	errText, _ := obj["error"].(string)
	desc, _ := obj["description"].(string)
	switch {
	case errText != "" && desc != "":
		return errText, desc
	case errText != "":
		return "", errText
	case desc != "":
		return "", desc
	default:
		return "", text(obj)
	}
}

// freeText decodes a prose field. Non-string replies are kept as their
// compact JSON text.
type freeText string

func (f *freeText) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = freeText(s)
		return nil
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*f = freeText(text(v))
	return nil
}

func text(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return ""
	}
	return string(bytes.TrimSpace(buf.Bytes()))
}
