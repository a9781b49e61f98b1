package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formflow/pkg/testsupport"
	"github.com/goliatone/go-formflow/pkg/wizard"
)

// execute runs the root command with args and returns stdout. Flag variables
// are package level, so they are reset before each run.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	runFile, runValues, runOutput, runFormat = "", "", "", ""
	checkFile, checkWatch = "", false
	evalFile, evalValues, evalStep = "", "", 0

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs(append([]string{"--config", filepath.Join(t.TempDir(), "none.yaml")}, args...))
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func writeForm(t *testing.T, name string) string {
	t.Helper()
	return testsupport.WriteFixture(t, name, testsupport.MustReadForm(t, name))
}

func TestCheckValidForm(t *testing.T) {
	out, err := execute(t, "check", "-f", writeForm(t, testsupport.SignupForm))
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if !strings.Contains(out, "✓ signup (3 steps, 6 fields)") {
		t.Fatalf("unexpected output: %s", out)
	}
}

func TestCheckReportsCycle(t *testing.T) {
	path := testsupport.WriteFixture(t, "broken.yaml", []byte(`
steps:
  - fields:
      - name: a
        dependents: [b]
      - name: b
        dependents: [a]
`))
	out, err := execute(t, "check", "-f", path)
	if err == nil {
		t.Fatalf("expected check to fail")
	}
	if !strings.Contains(out, "cycle") {
		t.Fatalf("expected cycle in output: %s", out)
	}
}

func TestCheckDirectoryFromConfig(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{testsupport.SignupForm, testsupport.AccountForm} {
		if err := os.WriteFile(filepath.Join(dir, name), testsupport.MustReadForm(t, name), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	t.Setenv("FORMFLOW_FORMS_DIR", dir)

	out, err := execute(t, "check")
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	want := "  ✓ account (3 steps, 5 fields)\n  ✓ signup (3 steps, 6 fields)\n"
	if diff := cmp.Diff(want, out); diff != "" {
		t.Fatalf("output mismatch (-want +got):\n%s", diff)
	}
}

func TestCheckWatchRequiresFile(t *testing.T) {
	if _, err := execute(t, "check", "--watch"); err == nil {
		t.Fatalf("expected error without --file")
	}
}

func TestEvalReport(t *testing.T) {
	values := testsupport.WriteFixture(t, "values.json", []byte(`{"userType":"business","phone":"+351912345678"}`))

	out, err := execute(t, "eval", "-f", writeForm(t, testsupport.AccountForm), "--values", values)
	if err != nil {
		t.Fatalf("eval: %v", err)
	}
	report := testsupport.DecodeJSON(t, []byte(out))

	want := map[string]any{
		"form":       "account",
		"active":     []any{"userType", "companyName", "vatNumber", "phone", "newsletter"},
		"unlocked":   []any{},
		"errors":     map[string]any{"companyName": "required", "vatNumber": "required"},
		"step":       float64(0),
		"canAdvance": false,
		"steps": []any{
			map[string]any{"name": "account", "visible": true, "canAdvance": false},
			map[string]any{"name": "business", "visible": true, "canAdvance": false},
			map[string]any{"name": "contact", "visible": true, "canAdvance": false},
		},
	}
	if diff := cmp.Diff(want, report); diff != "" {
		t.Fatalf("report mismatch (-want +got):\n%s", diff)
	}
}

func TestEvalRejectsUnknownValues(t *testing.T) {
	values := testsupport.WriteFixture(t, "values.json", []byte(`{"nope":"x"}`))
	if _, err := execute(t, "eval", "-f", writeForm(t, testsupport.SignupForm), "--values", values); err == nil {
		t.Fatalf("expected unknown field error")
	}
}

func TestEvalRejectsStepOutOfRange(t *testing.T) {
	if _, err := execute(t, "eval", "-f", writeForm(t, testsupport.SignupForm), "--step", "7"); err == nil {
		t.Fatalf("expected step error")
	}
}

type scriptedDriver struct {
	inputs  []string
	selects []string
}

func (s *scriptedDriver) Input(_ context.Context, cfg wizard.InputConfig) (string, error) {
	if len(s.inputs) == 0 {
		return "", fmt.Errorf("no input scripted for %q", cfg.Message)
	}
	val := s.inputs[0]
	s.inputs = s.inputs[1:]
	return val, nil
}

func (s *scriptedDriver) Confirm(context.Context, wizard.ConfirmConfig) (bool, error) {
	return false, nil
}

func (s *scriptedDriver) Select(_ context.Context, cfg wizard.SelectConfig) (int, error) {
	if len(s.selects) == 0 {
		return -1, fmt.Errorf("no select scripted for %q", cfg.Message)
	}
	want := s.selects[0]
	s.selects = s.selects[1:]
	for i, option := range cfg.Options {
		if option == want {
			return i, nil
		}
	}
	return -1, fmt.Errorf("option %q not offered: %v", want, cfg.Options)
}

func (s *scriptedDriver) Info(context.Context, string) error {
	return nil
}

func TestRunWritesOutputFile(t *testing.T) {
	driver := &scriptedDriver{
		// The prefilled name is offered as the default and confirmed as typed.
		inputs:  []string{"Alice", "alice@example.com", "30", "1 Main St", "Lisbon"},
		selects: []string{wizard.ActionNext, "other", wizard.ActionNext, wizard.ActionSubmit},
	}
	previous := newPromptDriver
	newPromptDriver = func(io.Writer) wizard.PromptDriver { return driver }
	t.Cleanup(func() { newPromptDriver = previous })

	prefill := testsupport.WriteFixture(t, "prefill.json", []byte(`{"name":"Alice"}`))
	output := filepath.Join(t.TempDir(), "out.json")

	out, err := execute(t, "run", "-f", writeForm(t, testsupport.SignupForm), "--values", prefill, "--output", output)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(out, "Values written to") {
		t.Fatalf("unexpected output: %s", out)
	}

	got := testsupport.DecodeJSON(t, testsupport.MustReadFile(t, output))
	want := map[string]any{
		"name":    "Alice",
		"email":   "alice@example.com",
		"age":     float64(30),
		"gender":  "other",
		"address": "1 Main St",
		"city":    "Lisbon",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("submitted values mismatch (-want +got):\n%s", diff)
	}
}

func TestRunRejectsUnknownFormat(t *testing.T) {
	if _, err := execute(t, "run", "-f", writeForm(t, testsupport.SignupForm), "--format", "xml"); err == nil {
		t.Fatalf("expected format error")
	}
}
