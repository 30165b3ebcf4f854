package prompts

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"text/template"
)

// Template names. Each maps to <name>.tmpl.
const (
	Translate     = "translate"
	Refine        = "refine"
	Accuracy      = "accuracy"
	Fluency       = "fluency"
	Naturalness   = "naturalness"
	CSRatio       = "cs_ratio"
	SocioCultural = "socio_cultural"
)

// Names lists every template a Store must provide.
var Names = []string{Translate, Refine, Accuracy, Fluency, Naturalness, CSRatio, SocioCultural}

const templateExt = ".tmpl"

//go:embed templates/*.tmpl
var builtin embed.FS

// Data is the input of every template.
type Data struct {
	FirstLanguage  string
	SecondLanguage string
	CSRatio        string
	Hypothesis     string
	Translation    string
	Summary        string
}

// ErrUnknownTemplate is returned by Render for a name the store does not hold.
var ErrUnknownTemplate = errors.New("unknown prompt template")

// Store holds the parsed prompt templates. Built-in templates are always
// loaded; files in the override directory replace them by name.
//
// Store is safe for concurrent use. Reload swaps the whole set atomically,
// so a render never mixes old and new templates.
type Store struct {
	dir    string
	logger *slog.Logger

	mu        sync.RWMutex
	templates map[string]*template.Template
	revision  string
}

// NewStore loads the built-in templates and any overrides found in dir.
// An empty dir uses the built-ins only.
func NewStore(dir string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Store{
		dir:    dir,
		logger: logger.With("component", "prompts"),
	}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// Dir returns the override directory.
func (s *Store) Dir() string {
	return s.dir
}

// Reload re-reads the override directory. On error the previous set stays
// active.
func (s *Store) Reload() error {
	set := make(map[string]*template.Template, len(Names))

	for _, name := range Names {
		data, err := fs.ReadFile(builtin, "templates/"+name+templateExt)
		if err != nil {
			return fmt.Errorf("built-in template %q: %w", name, err)
		}
		tmpl, err := parse(name, string(data))
		if err != nil {
			return err
		}
		set[name] = tmpl
	}

	overridden := 0
	if s.dir != "" {
		for _, name := range Names {
			path := filepath.Join(s.dir, name+templateExt)
			data, err := os.ReadFile(path)
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			if err != nil {
				return fmt.Errorf("failed to read template %q: %w", path, err)
			}
			tmpl, err := parse(name, string(data))
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			set[name] = tmpl
			overridden++
		}
	}

	revision := "builtin"
	if s.dir != "" {
		revision = Revision(s.dir)
	}

	s.mu.Lock()
	s.templates = set
	s.revision = revision
	s.mu.Unlock()

	s.logger.Debug("prompt templates loaded",
		"dir", s.dir,
		"overridden", overridden,
		"revision", revision,
	)
	return nil
}

// Render executes the named template.
func (s *Store) Render(name string, data Data) (string, error) {
	s.mu.RLock()
	tmpl, ok := s.templates[name]
	s.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownTemplate, name)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render template %q: %w", name, err)
	}
	return strings.TrimSpace(buf.String()), nil
}

// Revision identifies the template set in effect: "builtin", a git commit
// of the override directory, or "unversioned".
func (s *Store) Revision() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.revision
}

func parse(name, text string) (*template.Template, error) {
	tmpl, err := template.New(name).Option("missingkey=error").Parse(text)
	if err != nil {
		return nil, fmt.Errorf("parse template %q: %w", name, err)
	}
	return tmpl, nil
}
