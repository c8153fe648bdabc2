package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/leapstack-labs/leapetl/internal/cli/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func executeRoot(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	out, errOut := new(bytes.Buffer), new(bytes.Buffer)
	cmd := NewRootCmd()
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func TestNewRootCmd_Subcommands(t *testing.T) {
	cmd := NewRootCmd()

	want := []string{"run", "clean", "preview", "dag", "runs", "schedule", "watch", "init", "version", "completion"}
	for _, name := range want {
		sub, _, err := cmd.Find([]string{name})
		require.NoError(t, err, "command %q should exist", name)
		assert.Equal(t, name, sub.Name())
	}

	for _, flag := range []string{"config", "state", "log-level", "log-format", "output", "verbose"} {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(flag), "persistent flag %q should exist", flag)
	}
}

func TestRoot_RunProject(t *testing.T) {
	dir := testutil.SetupTestProject(t)

	out, _, err := executeRoot(t, "run", "--config", filepath.Join(dir, "leapetl.yaml"), "-o", "json")
	require.NoError(t, err)

	var got struct {
		Status string `json:"status"`
		Jobs   []struct {
			Job    string `json:"job"`
			Status string `json:"status"`
		} `json:"jobs"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "completed", got.Status)
	require.Len(t, got.Jobs, 2)
	for _, jr := range got.Jobs {
		assert.Equal(t, "success", jr.Status, "job %s", jr.Job)
	}

	assert.FileExists(t, filepath.Join(dir, "out", "sales.json"))
	assert.FileExists(t, filepath.Join(dir, ".leapetl", "state.db"))
}

func TestRoot_StateFlag(t *testing.T) {
	dir := testutil.SetupTestProject(t)
	state := filepath.Join(t.TempDir(), "custom", "state.db")

	_, _, err := executeRoot(t, "run", "--config", filepath.Join(dir, "leapetl.yaml"), "--state", state, "-o", "json")
	require.NoError(t, err)
	assert.FileExists(t, state)
	assert.NoFileExists(t, filepath.Join(dir, ".leapetl", "state.db"))
}

func TestRoot_Verbose(t *testing.T) {
	dir := testutil.SetupTestProject(t)
	cfgPath := filepath.Join(dir, "leapetl.yaml")

	_, errOut, err := executeRoot(t, "dag", "--config", cfgPath, "-v", "-o", "markdown")
	require.NoError(t, err)
	assert.Contains(t, errOut, "Using config file: "+cfgPath)
}

func TestRoot_InvalidConfig(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		args    []string
		wantErr string
	}{
		{
			name:    "bad log level flag",
			yaml:    "jobs: []\n",
			args:    []string{"--log-level", "loud"},
			wantErr: "log_level",
		},
		{
			name: "unknown dependency",
			yaml: `jobs:
  - name: a
    depends_on: [missing]
    source: {type: file, path: a.csv}
    sink: {type: file, path: b.csv}
`,
			wantErr: `unknown dependency "missing"`,
		},
		{
			name:    "malformed yaml",
			yaml:    "jobs: [\n",
			wantErr: "error reading config file",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			cfgPath := filepath.Join(dir, "leapetl.yaml")
			require.NoError(t, os.WriteFile(cfgPath, []byte(tt.yaml), 0o600))

			args := append([]string{"dag", "--config", cfgPath}, tt.args...)
			_, _, err := executeRoot(t, args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestRoot_VersionSkipsConfig(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "leapetl.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("jobs: [\n"), 0o600))

	out, _, err := executeRoot(t, "version", "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "LeapETL v"+Version)
}

func TestCompletionCommand(t *testing.T) {
	for _, shell := range []string{"bash", "zsh", "fish", "powershell"} {
		t.Run(shell, func(t *testing.T) {
			out, _, err := executeRoot(t, "completion", shell)
			require.NoError(t, err)
			assert.Contains(t, out, "leapetl")
		})
	}

	_, _, err := executeRoot(t, "completion", "tcsh")
	assert.Error(t, err)
}
