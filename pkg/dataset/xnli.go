package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
)

// NLI labels.
const (
	LabelEntailment    = "entailment"
	LabelContradictory = "contradictory"
	LabelNeutral       = "neutral"
)

// LabelIDs maps labels to their numeric class.
var LabelIDs = map[string]int{
	LabelEntailment:    0,
	LabelContradictory: 1,
	LabelNeutral:       2,
}

// Source column names of an XNLI TSV file.
const (
	colLanguage   = "language"
	colPremise    = "sentence1"
	colHypothesis = "sentence2"
	colLabel      = "gold_label"
)

// Example is one NLI pair.
type Example struct {
	Premise    string `json:"premise"`
	Hypothesis string `json:"hypo"`
	Label      string `json:"label"`
}

// Key identifies where an example lives in the output TSV.
type Key struct {
	Premise string
	Label   string
}

// Source is an XNLI split filtered to one language.
type Source struct {
	Language string
	Examples []Example

	lookup map[string]Key
}

// LoadXNLI reads an XNLI TSV file and keeps the rows of language. Rows
// whose column count differs from the header are skipped and logged.
// "contradiction" labels are normalized to "contradictory".
func LoadXNLI(path, language string, logger *slog.Logger) (*Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, storageError(path, "open", err)
	}
	defer f.Close()

	src, err := ReadXNLI(f, language, logger)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return src, nil
}

// ReadXNLI is LoadXNLI over a reader.
func ReadXNLI(r io.Reader, language string, logger *slog.Logger) (*Source, error) {
	if logger == nil {
		logger = slog.Default()
	}

	reader := csv.NewReader(r)
	reader.Comma = '\t'
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("empty XNLI file")
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	idx := make(map[string]int, len(header))
	for i, name := range header {
		idx[name] = i
	}
	for _, col := range []string{colLanguage, colPremise, colHypothesis, colLabel} {
		if _, ok := idx[col]; !ok {
			return nil, fmt.Errorf("missing column %q", col)
		}
	}

	src := &Source{Language: language}
	line := 1
	skipped := 0
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if len(row) != len(header) {
			skipped++
			logger.Debug("skipping malformed XNLI row", "line", line, "columns", len(row), "expected", len(header))
			continue
		}
		if row[idx[colLanguage]] != language {
			continue
		}

		label := row[idx[colLabel]]
		if label == "contradiction" {
			label = LabelContradictory
		}
		src.Examples = append(src.Examples, Example{
			Premise:    row[idx[colPremise]],
			Hypothesis: row[idx[colHypothesis]],
			Label:      label,
		})
	}

	src.index()
	logger.Info("XNLI dataset loaded",
		"language", language,
		"examples", len(src.Examples),
		"skipped_rows", skipped,
	)
	return src, nil
}

// NewSource builds a Source from examples already in memory.
func NewSource(language string, examples []Example) *Source {
	src := &Source{Language: language, Examples: examples}
	src.index()
	return src
}

// index builds the hypothesis lookup. A hypothesis that occurs more than
// once resolves to its last occurrence.
func (s *Source) index() {
	s.lookup = make(map[string]Key, len(s.Examples))
	for _, ex := range s.Examples {
		if ex.Hypothesis == "" {
			continue
		}
		s.lookup[ex.Hypothesis] = Key{Premise: ex.Premise, Label: ex.Label}
	}
}

// Lookup resolves a hypothesis to its premise and label.
func (s *Source) Lookup(hypothesis string) (Key, bool) {
	k, ok := s.lookup[hypothesis]
	return k, ok
}

// Hypotheses returns the hypotheses in file order.
func (s *Source) Hypotheses() []string {
	out := make([]string, len(s.Examples))
	for i, ex := range s.Examples {
		out[i] = ex.Hypothesis
	}
	return out
}
