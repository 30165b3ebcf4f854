package dataset

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
)

// TableHeader is the header row of the output TSV.
var TableHeader = []string{"sentence1", "sentence2", "gold_label"}

// Row is one output TSV row.
type Row struct {
	Premise     string // sentence1
	Translation string // sentence2
	Label       string // gold_label
}

// Table is the output TSV held in memory. Rows keep file order.
type Table struct {
	Rows []Row
}

// ReadTable loads a TSV written by Table.Write. A missing file is an empty
// table.
func ReadTable(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return &Table{}, nil
	}
	if err != nil {
		return nil, storageError(path, "read", err)
	}
	t, err := parseTable(data)
	if err != nil {
		return nil, storageError(path, "decode", err)
	}
	return t, nil
}

func parseTable(data []byte) (*Table, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = '\t'
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return &Table{}, nil
	}
	if err != nil {
		return nil, err
	}
	idx := map[string]int{}
	for i, name := range header {
		idx[name] = i
	}
	for _, col := range TableHeader {
		if _, ok := idx[col]; !ok {
			return nil, fmt.Errorf("missing column %q", col)
		}
	}

	t := &Table{}
	for {
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		t.Rows = append(t.Rows, Row{
			Premise:     field(rec, idx["sentence1"]),
			Translation: field(rec, idx["sentence2"]),
			Label:       field(rec, idx["gold_label"]),
		})
	}
	return t, nil
}

func field(rec []string, i int) string {
	if i < len(rec) {
		return rec[i]
	}
	return ""
}

// Upsert sets sentence2 of the first row matching key, or appends a new
// row. It reports whether a row was inserted.
func (t *Table) Upsert(key Key, translation string) (inserted bool) {
	for i := range t.Rows {
		if t.Rows[i].Premise == key.Premise && t.Rows[i].Label == key.Label {
			t.Rows[i].Translation = translation
			return false
		}
	}
	t.Rows = append(t.Rows, Row{Premise: key.Premise, Translation: translation, Label: key.Label})
	return true
}

// Encode renders the table with its header.
func (t *Table) Encode() ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	w.Comma = '\t'
	if err := w.Write(TableHeader); err != nil {
		return nil, err
	}
	for _, r := range t.Rows {
		if err := w.Write([]string{r.Premise, r.Translation, r.Label}); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Write persists the table atomically.
func (t *Table) Write(path string) error {
	data, err := t.Encode()
	if err != nil {
		return storageError(path, "encode", err)
	}
	if err := writeFileAtomic(path, data); err != nil {
		return storageError(path, "write", err)
	}
	return nil
}
