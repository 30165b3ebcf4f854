package dataset

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// Artifact file names for an embedded language.
func auditFileName(language string) string        { return language + ".jsonl" }
func translationsFileName(language string) string { return language + "_dataset.json" }
func tableFileName(language string) string        { return "cs_" + language + "_test.tsv" }

// maxLineSize bounds one jsonl line of the audit and translations files.
const maxLineSize = 16 * 1024 * 1024

func newLineScanner(r io.Reader) *bufio.Scanner {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	return scanner
}

// appendJSONLine appends v as one JSON line to path.
func appendJSONLine(path string, v any) error {
	line, err := json.Marshal(v)
	if err != nil {
		return storageError(path, "encode", err)
	}
	line = append(line, '\n')

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return storageError(path, "append", err)
	}
	if _, err := f.Write(line); err != nil {
		f.Close()
		return storageError(path, "append", err)
	}
	if err := f.Close(); err != nil {
		return storageError(path, "append", err)
	}
	return nil
}

// ReadAudit returns the records of an audit log in append order. A missing
// file is an empty log.
func ReadAudit(path string) ([]Record, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, storageError(path, "read", err)
	}
	defer f.Close()

	var records []Record
	scanner := newLineScanner(f)
	line := 0
	for scanner.Scan() {
		line++
		if len(scanner.Bytes()) == 0 {
			continue
		}
		var rec Record
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			return nil, storageError(path, "decode", fmt.Errorf("line %d: %w", line, err))
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, storageError(path, "read", err)
	}
	return records, nil
}

// ReadTranslations returns the translations list in append order.
func ReadTranslations(path string) ([]string, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, storageError(path, "read", err)
	}
	defer f.Close()

	var out []string
	scanner := newLineScanner(f)
	for scanner.Scan() {
		if len(scanner.Bytes()) == 0 {
			continue
		}
		var s string
		if err := json.Unmarshal(scanner.Bytes(), &s); err != nil {
			return nil, storageError(path, "decode", err)
		}
		out = append(out, s)
	}
	if err := scanner.Err(); err != nil {
		return nil, storageError(path, "read", err)
	}
	return out, nil
}

// writeFileAtomic replaces path with data through a temp file in the same
// directory and a rename.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
