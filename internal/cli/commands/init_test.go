package commands

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/leapstack-labs/leapetl/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewInitCommand(t *testing.T) {
	tests := []struct {
		name      string
		setupDir  func(t *testing.T, dir string) // setup before running
		args      []string
		wantErr   bool
		wantFiles []string
	}{
		{
			name: "init empty directory",
			args: []string{},
			wantFiles: []string{
				"leapetl.yaml",
				".gitignore",
				"data/transactions.csv",
			},
		},
		{
			name: "init example",
			args: []string{"--example"},
			wantFiles: []string{
				"leapetl.yaml",
				"data/transactions.csv",
				"data/customers.json",
			},
		},
		{
			name: "init into new directory",
			args: []string{"pipeline"},
			wantFiles: []string{
				"pipeline/leapetl.yaml",
				"pipeline/data/transactions.csv",
			},
		},
		{
			name: "init existing config without force",
			setupDir: func(_ *testing.T, dir string) {
				_ = os.WriteFile(filepath.Join(dir, "leapetl.yaml"), []byte("existing"), 0600)
			},
			args:    []string{},
			wantErr: true,
		},
		{
			name: "init existing config with force",
			setupDir: func(_ *testing.T, dir string) {
				_ = os.WriteFile(filepath.Join(dir, "leapetl.yaml"), []byte("existing"), 0600)
			},
			args: []string{"--force"},
			wantFiles: []string{
				"leapetl.yaml",
				"data",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Create temp directory and change to it
			tmpDir := t.TempDir()
			oldWd, _ := os.Getwd()
			require.NoError(t, os.Chdir(tmpDir))
			defer func() { _ = os.Chdir(oldWd) }()

			if tt.setupDir != nil {
				tt.setupDir(t, tmpDir)
			}

			cmd := NewInitCommand()
			buf := new(bytes.Buffer)
			cmd.SetOut(buf)
			cmd.SetErr(buf)
			cmd.SetArgs(tt.args)

			err := cmd.Execute()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Contains(t, buf.String(), "LeapETL project initialized!")

			for _, f := range tt.wantFiles {
				_, err := os.Stat(filepath.Join(tmpDir, f))
				assert.False(t, os.IsNotExist(err), "expected file/dir %q to exist", f)
			}
		})
	}
}

func TestInitCommandMetadata(t *testing.T) {
	cmd := NewInitCommand()

	assert.Equal(t, "init [directory]", cmd.Use)
	assert.NotEmpty(t, cmd.Short, "Short should not be empty")
	assert.NotNil(t, cmd.Flags().Lookup("force"), "--force flag should exist")
	assert.NotNil(t, cmd.Flags().Lookup("example"), "--example flag should exist")
}

func TestInitCreatesValidConfig(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		wantJobs []string
	}{
		{"minimal", nil, []string{"transactions"}},
		{"example", []string{"--example"}, []string{"transactions", "load_transactions", "customers"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpDir := t.TempDir()

			cmd := NewInitCommand()
			cmd.SetOut(new(bytes.Buffer))
			cmd.SetErr(new(bytes.Buffer))
			cmd.SetArgs(append([]string{tmpDir}, tt.args...))
			require.NoError(t, cmd.Execute())

			cfg, err := config.LoadAndValidate(filepath.Join(tmpDir, "leapetl.yaml"), nil)
			require.NoError(t, err)
			assert.Equal(t, tt.wantJobs, cfg.JobNames())

			job, ok := cfg.Job("transactions")
			require.True(t, ok)
			assert.Equal(t, filepath.Join(tmpDir, "data", "transactions.csv"), job.Source.Path)
			assert.FileExists(t, job.Source.Path)
		})
	}
}
