package testsupport

import (
	"bytes"
	"context"
	"embed"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/google/go-cmp/cmp"
)

// Form fixture names available through Forms.
const (
	SignupForm  = "signup.yaml"
	AccountForm = "account.json"
)

//go:embed forms/*
var forms embed.FS

// Forms returns the embedded form definitions rooted at the forms directory.
func Forms() fs.FS {
	sub, err := fs.Sub(forms, "forms")
	if err != nil {
		panic(err)
	}
	return sub
}

// MustReadForm returns the raw bytes of a fixture definition.
func MustReadForm(t *testing.T, name string) []byte {
	t.Helper()

	data, err := fs.ReadFile(Forms(), name)
	if err != nil {
		t.Fatalf("read form fixture %s: %v", name, err)
	}
	return data
}

// WriteFixture writes data to name inside a fresh temp dir and returns the
// path, for code that only accepts file paths.
func WriteFixture(t *testing.T, name string, data []byte) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return path
}

// MustReadFile returns the contents of path, failing the test on error.
func MustReadFile(t *testing.T, path string) []byte {
	t.Helper()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return data
}

// DecodeJSON unmarshals data into a generic map, failing the test on error.
func DecodeJSON(t *testing.T, data []byte) map[string]any {
	t.Helper()

	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("decode json: %v\n%s", err, data)
	}
	return out
}

// WriteMaybeGolden updates a golden file when UPDATE_GOLDENS is set. Returns
// true if the golden was written (test should exit early).
func WriteMaybeGolden(t *testing.T, path string, data []byte) bool {
	t.Helper()
	if os.Getenv("UPDATE_GOLDENS") == "" {
		return false
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir golden dir: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write golden: %v", err)
	}
	return true
}

// MustReadGolden reads a golden file and returns its raw bytes.
func MustReadGolden(t *testing.T, path string) []byte {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read golden: %v", err)
	}
	return data
}

// CompareGolden returns a diff string if the values differ. Trailing newlines
// are ignored so editors that append one do not break snapshots.
func CompareGolden(want, got []byte) string {
	return cmp.Diff(string(bytes.TrimRight(want, "\n")), string(bytes.TrimRight(got, "\n")))
}

// Context returns a background context for tests.
func Context() context.Context {
	return context.Background()
}
