package prompts

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func sampleData() Data {
	return Data{
		FirstLanguage:  "English",
		SecondLanguage: "Japanese",
		CSRatio:        "7:3",
		Hypothesis:     "The cat sat on the mat.",
		Translation:    "The neko sat on the mat.",
		Summary:        "Accuracy Result: fine",
	}
}

func TestStore_BuiltinTemplates(t *testing.T) {
	store, err := NewStore("", nil)
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	if got := store.Revision(); got != "builtin" {
		t.Errorf("Revision() = %q, want builtin", got)
	}

	for _, name := range Names {
		t.Run(name, func(t *testing.T) {
			out, err := store.Render(name, sampleData())
			if err != nil {
				t.Fatalf("Render(%q) error = %v", name, err)
			}
			if out == "" {
				t.Fatalf("Render(%q) returned empty prompt", name)
			}
			if strings.Contains(out, "{{") {
				t.Errorf("Render(%q) left unexpanded actions: %s", name, out)
			}
		})
	}
}

func TestStore_RenderInterpolates(t *testing.T) {
	store, err := NewStore("", nil)
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}

	out, err := store.Render(Translate, sampleData())
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	for _, want := range []string{"English", "Japanese", "7:3", "The cat sat on the mat.", `"hypo"`} {
		if !strings.Contains(out, want) {
			t.Errorf("translate prompt missing %q", want)
		}
	}

	out, err = store.Render(Refine, sampleData())
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	for _, want := range []string{"The neko sat on the mat.", "Accuracy Result: fine"} {
		if !strings.Contains(out, want) {
			t.Errorf("refine prompt missing %q", want)
		}
	}
}

func TestStore_UnknownTemplate(t *testing.T) {
	store, err := NewStore("", nil)
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	_, err = store.Render("summarize", sampleData())
	if !errors.Is(err, ErrUnknownTemplate) {
		t.Fatalf("Render() error = %v, want ErrUnknownTemplate", err)
	}
}

func TestStore_Override(t *testing.T) {
	dir := t.TempDir()
	writeTemplate(t, dir, Fluency, "Rate {{.Translation}} in {{.SecondLanguage}}.")

	store, err := NewStore(dir, nil)
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}

	out, err := store.Render(Fluency, sampleData())
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if want := "Rate The neko sat on the mat. in Japanese."; out != want {
		t.Errorf("Render() = %q, want %q", out, want)
	}

	// Other roles keep the built-in text.
	out, err = store.Render(Accuracy, sampleData())
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if !strings.Contains(out, "accuracy_score") {
		t.Errorf("accuracy prompt should be built-in, got %q", out)
	}

	if got := store.Revision(); got != "unversioned" {
		t.Errorf("Revision() = %q, want unversioned", got)
	}
}

func TestStore_ReloadKeepsPreviousOnError(t *testing.T) {
	dir := t.TempDir()
	writeTemplate(t, dir, Translate, "first {{.Hypothesis}}")

	store, err := NewStore(dir, nil)
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}

	writeTemplate(t, dir, Translate, "broken {{.Hypothesis")
	if err := store.Reload(); err == nil {
		t.Fatal("Reload() expected parse error")
	}

	out, err := store.Render(Translate, sampleData())
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if out != "first The cat sat on the mat." {
		t.Errorf("Render() = %q, want previous template", out)
	}
}

func TestStore_InvalidOverrideFailsConstruction(t *testing.T) {
	dir := t.TempDir()
	writeTemplate(t, dir, Naturalness, "{{.Unknown")

	if _, err := NewStore(dir, nil); err == nil {
		t.Fatal("NewStore() expected error for invalid template")
	}
}

func TestDebouncer_CollapsesTriggers(t *testing.T) {
	d := NewDebouncer(20 * time.Millisecond)
	defer d.Stop()

	var calls int32
	done := make(chan struct{}, 1)
	for i := 0; i < 5; i++ {
		d.Trigger(func() {
			atomic.AddInt32(&calls, 1)
			done <- struct{}{}
		})
	}

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("debounced callback never fired")
	}
	time.Sleep(50 * time.Millisecond)

	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("callback ran %d times, want 1", got)
	}
}

func TestDebouncer_StopCancelsPending(t *testing.T) {
	d := NewDebouncer(20 * time.Millisecond)

	var calls int32
	d.Trigger(func() { atomic.AddInt32(&calls, 1) })
	d.Stop()
	d.Trigger(func() { atomic.AddInt32(&calls, 1) })

	time.Sleep(60 * time.Millisecond)
	if got := atomic.LoadInt32(&calls); got != 0 {
		t.Errorf("callback ran %d times after Stop, want 0", got)
	}
}

func TestWatcher_ReloadsOnChange(t *testing.T) {
	dir := t.TempDir()
	writeTemplate(t, dir, Translate, "v1 {{.Hypothesis}}")

	store, err := NewStore(dir, nil)
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}

	w, err := NewWatcher(store, 10*time.Millisecond)
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reloaded := make(chan error, 4)
	started := make(chan struct{})
	go func() {
		close(started)
		_ = w.Watch(ctx, func(err error) { reloaded <- err })
	}()
	<-started
	// Give fsnotify time to register the directory.
	time.Sleep(50 * time.Millisecond)

	writeTemplate(t, dir, Translate, "v2 {{.Hypothesis}}")

	select {
	case err := <-reloaded:
		if err != nil {
			t.Fatalf("reload error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not reload")
	}

	out, err := store.Render(Translate, sampleData())
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if !strings.HasPrefix(out, "v2 ") {
		t.Errorf("Render() = %q, want reloaded template", out)
	}
}

func TestNewWatcher_RequiresDir(t *testing.T) {
	store, err := NewStore("", nil)
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	if _, err := NewWatcher(store, 0); err == nil {
		t.Fatal("NewWatcher() expected error without override dir")
	}
}

func TestRevision_NotARepository(t *testing.T) {
	if got := Revision(t.TempDir()); got != "unversioned" {
		t.Errorf("Revision() = %q, want unversioned", got)
	}
}

func writeTemplate(t *testing.T, dir, name, text string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name+templateExt), []byte(text), 0o644); err != nil {
		t.Fatalf("write template: %v", err)
	}
}
