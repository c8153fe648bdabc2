// Package main provides tests for the LeapETL CLI.
package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/leapstack-labs/leapetl/internal/cli"
	"github.com/leapstack-labs/leapetl/internal/cli/testutil"
	"github.com/leapstack-labs/leapetl/pkg/adapter"
)

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := cli.NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestAdaptersRegistered(t *testing.T) {
	for _, name := range []string{"duckdb", "postgres", "sqlite"} {
		if !adapter.IsRegistered(name) {
			t.Errorf("adapter %q should be registered", name)
		}
	}
}

func TestVersionCommand(t *testing.T) {
	output, err := runCLI(t, "version")
	if err != nil {
		t.Errorf("version command error = %v", err)
	}
	if !strings.Contains(output, "LeapETL") {
		t.Errorf("version output should contain 'LeapETL', got: %s", output)
	}
}

func TestHelpCommand(t *testing.T) {
	output, err := runCLI(t, "--help")
	if err != nil {
		t.Errorf("help command error = %v", err)
	}

	for _, cmd := range []string{"run", "clean", "preview", "dag", "runs", "schedule", "watch", "init"} {
		if !strings.Contains(output, cmd) {
			t.Errorf("help output should contain %q command", cmd)
		}
	}
}

func TestRunCommandSelect(t *testing.T) {
	dir := testutil.SetupTestProject(t)
	cfg := filepath.Join(dir, "leapetl.yaml")

	output, err := runCLI(t, "run", "--config", cfg, "--select", "sales", "-o", "markdown")
	if err != nil {
		t.Fatalf("run command error = %v", err)
	}
	if !strings.Contains(output, "- sales: success") {
		t.Errorf("run output should report sales, got: %s", output)
	}
	if strings.Contains(output, "sales_json") {
		t.Errorf("downstream job should not run without --downstream, got: %s", output)
	}
	if _, err := os.Stat(filepath.Join(dir, "out", "sales.json")); !os.IsNotExist(err) {
		t.Errorf("out/sales.json should not exist")
	}
}

func TestRunCommandSelectWithDownstream(t *testing.T) {
	dir := testutil.SetupTestProject(t)
	cfg := filepath.Join(dir, "leapetl.yaml")

	output, err := runCLI(t, "run", "--config", cfg, "--select", "sales", "--downstream", "-o", "markdown")
	if err != nil {
		t.Fatalf("run command error = %v", err)
	}
	if !strings.Contains(output, "- sales_json: success") {
		t.Errorf("run output should report the downstream job, got: %s", output)
	}
	if _, err := os.Stat(filepath.Join(dir, "out", "sales.json")); err != nil {
		t.Errorf("out/sales.json should exist: %v", err)
	}
}

func TestCleanCommand(t *testing.T) {
	dir := testutil.SetupTestProject(t)
	in := filepath.Join(dir, "data", "sales.csv")
	out := filepath.Join(dir, "clean.xlsx")

	output, err := runCLI(t, "clean", "--config", filepath.Join(dir, "leapetl.yaml"), "--input", in, "--output", out)
	if err != nil {
		t.Fatalf("clean command error = %v", err)
	}
	if !strings.Contains(output, "Wrote 3 of 4 rows") {
		t.Errorf("clean output should summarize rows, got: %s", output)
	}
	if _, err := os.Stat(out); err != nil {
		t.Errorf("clean.xlsx should exist: %v", err)
	}
}

func TestUnknownCommand(t *testing.T) {
	if _, err := runCLI(t, "seed"); err == nil {
		t.Error("unknown command should fail")
	}
}
