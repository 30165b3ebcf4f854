package main

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func checkByName(checks []validationCheck, name string) (validationCheck, bool) {
	for _, c := range checks {
		if c.Name == name {
			return c, true
		}
	}
	return validationCheck{}, false
}

func TestValidateConfig_Defaults(t *testing.T) {
	cfg := testConfig(t)

	checks := validateConfig(cfg, false, slog.Default())
	for _, c := range checks {
		if !c.OK {
			t.Errorf("check %s failed: %s", c.Name, c.Detail)
		}
	}
	if _, ok := checkByName(checks, "source"); ok {
		t.Error("source check should only run with loadSource")
	}
	scoring, _ := checkByName(checks, "scoring")
	if want := "accuracy=0.30 fluency=0.40 naturalness=0.30"; len(scoring.Detail) < len(want) || scoring.Detail[:len(want)] != want {
		t.Errorf("scoring detail = %q", scoring.Detail)
	}
}

func TestValidateConfig_Failures(t *testing.T) {
	cfg := testConfig(t)
	cfg.Schedule.Cron = "every tuesday"
	cfg.Dataset.SourcePath = filepath.Join(t.TempDir(), "missing.tsv")

	checks := validateConfig(cfg, true, slog.Default())
	for _, name := range []string{"schedule", "source"} {
		c, ok := checkByName(checks, name)
		if !ok || c.OK {
			t.Errorf("check %s = %+v, want failure", name, c)
		}
	}
}

func TestValidateConfig_Source(t *testing.T) {
	path := filepath.Join(t.TempDir(), "xnli.tsv")
	data := "language\tgold_label\tsentence1\tsentence2\n" +
		"en\tneutral\tA man sleeps.\tA man is tired.\n" +
		"fr\tneutral\tUn homme dort.\tUn homme est fatigué.\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := testConfig(t)
	cfg.Dataset.SourcePath = path

	c, ok := checkByName(validateConfig(cfg, true, slog.Default()), "source")
	if !ok || !c.OK {
		t.Fatalf("source check = %+v", c)
	}
	if want := path + ": 1 en hypotheses"; c.Detail != want {
		t.Errorf("source detail = %q, want %q", c.Detail, want)
	}
}
