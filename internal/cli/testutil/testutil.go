// Package testutil provides a sample project and output assertions for CLI tests.
package testutil

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
)

// SalesCSV is the raw sample written by SetupTestProject. It holds one
// duplicated row.
const SalesCSV = `id,email,amount
1,a@x.com,10
2,b@x.com,12
2,b@x.com,12
3,c@x.com,11
`

// salesConfig defines a cleaning job and a downstream job that copies the
// cleaned file to JSON.
const salesConfig = `state_path: .leapetl/state.db
parallelism: 2

jobs:
  - name: sales
    source:
      type: file
      path: data/sales.csv
    sink:
      type: file
      path: out/sales.csv

  - name: sales_json
    depends_on: [sales]
    source:
      type: file
      path: out/sales.csv
    skip_clean: true
    sink:
      type: file
      path: out/sales.json
`

// SetupTestProject creates a temporary project with a leapetl.yaml and
// sample data. It returns the project directory.
func SetupTestProject(t *testing.T) string {
	t.Helper()

	tmpDir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(tmpDir, "data"), 0755); err != nil {
		t.Fatalf("failed to create data directory: %v", err)
	}

	if err := os.WriteFile(filepath.Join(tmpDir, "data", "sales.csv"),
		[]byte(SalesCSV), 0644); err != nil {
		t.Fatalf("failed to create sales.csv: %v", err)
	}
	if err := os.WriteFile(filepath.Join(tmpDir, "leapetl.yaml"),
		[]byte(salesConfig), 0644); err != nil {
		t.Fatalf("failed to create leapetl.yaml: %v", err)
	}

	return tmpDir
}

// ansiPattern matches ANSI escape codes.
var ansiPattern = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)

// AssertNoANSI fails when s contains ANSI escape codes.
func AssertNoANSI(t *testing.T, s string) {
	t.Helper()
	if ansiPattern.MatchString(s) {
		t.Errorf("output contains ANSI escape codes: %q", s)
	}
}

// AssertValidMarkdown checks code fences are balanced, headers have text
// and every row of a pipe table has as many cells as its header.
func AssertValidMarkdown(t *testing.T, md string) {
	t.Helper()

	if n := strings.Count(md, "```"); n%2 != 0 {
		t.Errorf("unbalanced code fences in markdown: found %d occurrences", n)
	}

	cells := -1
	for i, line := range strings.Split(md, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "#") && strings.TrimLeft(trimmed, "# ") == "" {
			t.Errorf("empty header at line %d: %q", i+1, line)
		}

		if !strings.HasPrefix(trimmed, "|") {
			cells = -1
			continue
		}
		n := strings.Count(strings.ReplaceAll(trimmed, `\|`, ""), "|") - 1
		if cells == -1 {
			cells = n
		} else if n != cells {
			t.Errorf("table row at line %d has %d cells, header has %d: %q", i+1, n, cells, line)
		}
	}
}
