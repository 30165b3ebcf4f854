package dataset

import (
	"encoding/json"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
)

type cachedHypothesis struct {
	Hypo string `json:"hypo"`
}

// LoadHypotheses returns the ordered hypothesis list. The JSON cache at
// cachePath ([{"hypo": "..."}]) is used when it exists; otherwise the list
// is taken from src and written to the cache.
func LoadHypotheses(cachePath string, src *Source, logger *slog.Logger) ([]string, error) {
	if logger == nil {
		logger = slog.Default()
	}

	data, err := os.ReadFile(cachePath)
	switch {
	case err == nil:
		var cached []cachedHypothesis
		if err := json.Unmarshal(data, &cached); err != nil {
			return nil, storageError(cachePath, "decode", err)
		}
		out := make([]string, len(cached))
		for i, c := range cached {
			out[i] = c.Hypo
		}
		logger.Debug("hypotheses loaded from cache", "path", cachePath, "count", len(out))
		return out, nil

	case errors.Is(err, fs.ErrNotExist):
		if src == nil {
			return nil, storageError(cachePath, "read", err)
		}
		hypos := src.Hypotheses()
		if err := SaveHypotheses(cachePath, hypos); err != nil {
			return nil, err
		}
		logger.Info("hypotheses cache written", "path", cachePath, "count", len(hypos))
		return hypos, nil

	default:
		return nil, storageError(cachePath, "read", err)
	}
}

// SaveHypotheses writes the hypothesis cache.
func SaveHypotheses(path string, hypotheses []string) error {
	cached := make([]cachedHypothesis, len(hypotheses))
	for i, h := range hypotheses {
		cached[i] = cachedHypothesis{Hypo: h}
	}
	data, err := json.MarshalIndent(cached, "", "  ")
	if err != nil {
		return storageError(path, "encode", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return storageError(path, "mkdir", err)
		}
	}
	if err := writeFileAtomic(path, data); err != nil {
		return storageError(path, "write", err)
	}
	return nil
}
