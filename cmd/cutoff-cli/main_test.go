package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jamesainslie/go-cutoff/internal/report"
)

func writeCSV(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "preds.csv")
	data := "label,spam\nspam,0.9\nspam,0.8\nham,0.3\nham,0.1\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("writing csv: %v", err)
	}
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append(args, "--log-level", "error"))
	err := root.Execute()
	return out.String(), err
}

func TestFindCommand_JSON(t *testing.T) {
	out, err := execute(t, "find", "--input", writeCSV(t), "--json")
	if err != nil {
		t.Fatalf("find failed: %v", err)
	}

	cutoffs, err := report.DecodeCutoffs([]byte(out))
	if err != nil {
		t.Fatalf("decoding output: %v\n%s", err, out)
	}
	if got := cutoffs["spam"]; got != 0.8 {
		t.Errorf("cutoff = %v, want 0.8", got)
	}
}

func TestFindCommand_InvalidWeight(t *testing.T) {
	if _, err := execute(t, "find", "--input", writeCSV(t), "--weight=-1"); err == nil {
		t.Error("expected error for negative weight")
	}
}

func TestRunsSaveAndList(t *testing.T) {
	db := filepath.Join(t.TempDir(), "runs.db")

	out, err := execute(t, "runs", "save", "--db", db, "--experiment", "spam", "--model-version", "1.2", "--metric", "auc=0.9")
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}
	id := strings.TrimSpace(out)
	if id == "" {
		t.Fatal("save printed no run id")
	}

	out, err = execute(t, "runs", "list", "--db", db, "--experiment", "spam", "--model-version", "1.2")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if !strings.Contains(out, id) || !strings.Contains(out, "new") {
		t.Errorf("list output missing run:\n%s", out)
	}

	if _, err := execute(t, "runs", "status", "--db", db, id, "active"); err != nil {
		t.Fatalf("status failed: %v", err)
	}
	out, err = execute(t, "runs", "list", "--db", db, "--experiment", "spam", "--model-version", "1.2", "--status", "active")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if !strings.Contains(out, id) {
		t.Errorf("run not active:\n%s", out)
	}
}

func TestParseAssignments(t *testing.T) {
	got, err := parseAssignments([]string{"a=1", "b=0.5"})
	if err != nil {
		t.Fatalf("parseAssignments failed: %v", err)
	}
	if got["a"] != 1 || got["b"] != 0.5 {
		t.Errorf("got %v", got)
	}
	for _, bad := range [][]string{{"a"}, {"=1"}, {"a=x"}} {
		if _, err := parseAssignments(bad); err == nil {
			t.Errorf("expected error for %v", bad)
		}
	}
}
