package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/leapstack-labs/leapetl/internal/dag"
	"github.com/leapstack-labs/leapetl/pkg/clean"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	// Import adapter packages to ensure adapters are registered via init()
	_ "github.com/leapstack-labs/leapetl/pkg/adapters/duckdb"
	_ "github.com/leapstack-labs/leapetl/pkg/adapters/postgres"
	_ "github.com/leapstack-labs/leapetl/pkg/adapters/sqlite"
)

const projectYAML = `log_level: debug
parallelism: 2
connections:
  warehouse:
    type: postgres
    host: ${LEAPETL_TEST_PGHOST}
    database: analytics
    user: etl
    password: ${LEAPETL_TEST_PGPASSWORD}
    max_conns: 5
  local:
    type: duckdb
    path: data/etl.duckdb
jobs:
  - name: extract_sales
    source:
      type: file
      path: input/sales.csv
    clean:
      critical_columns: [id]
      missing_threshold: 0.4
    sink:
      type: database
      connection: local
      table: sales
  - name: publish
    depends_on: [extract_sales]
    retries: 2
    source:
      type: database
      connection: local
      table: sales
    skip_clean: true
    sink:
      type: file
      path: out/sales.xlsx
  - name: rates
    source:
      type: api
      url: https://api.example.com/rates
      timeout: 3s
      headers:
        Authorization: Bearer ${LEAPETL_TEST_TOKEN}
    sink:
      type: database
      connection: warehouse
      table: rates
      mode: append
schedule:
  at: "00:00"
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), ConfigFileName)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_ProjectFile(t *testing.T) {
	t.Setenv("LEAPETL_TEST_PGHOST", "db.internal")
	t.Setenv("LEAPETL_TEST_PGPASSWORD", "s3cret")
	t.Setenv("LEAPETL_TEST_TOKEN", "abc")
	path := writeConfig(t, projectYAML)
	root := filepath.Dir(path)

	cfg, err := LoadAndValidate(path, nil)
	require.NoError(t, err)

	assert.Equal(t, root, cfg.ProjectRoot)
	assert.Equal(t, path, cfg.FileUsed)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, DefaultLogFormat, cfg.LogFormat)
	assert.Equal(t, 2, cfg.Parallelism)
	assert.Equal(t, filepath.Join(root, DefaultStateFile), cfg.StatePath)
	assert.Equal(t, DefaultServerAddr, cfg.Server.Addr)
	assert.Equal(t, DefaultDebounce, cfg.Watch.Debounce)
	assert.Equal(t, "00:00", cfg.Schedule.At)
	assert.Equal(t, []string{"extract_sales", "publish", "rates"}, cfg.JobNames())

	wh := cfg.Connections["warehouse"]
	require.NotNil(t, wh)
	assert.Equal(t, "db.internal", wh.Host)
	assert.Equal(t, "s3cret", wh.Password)
	assert.Equal(t, DefaultPostgresPort, wh.Port)
	ac := wh.ToAdapterConfig()
	assert.Equal(t, "etl", ac.Username)
	assert.Equal(t, 5, ac.MaxConns)

	assert.Equal(t, filepath.Join(root, "data", "etl.duckdb"), cfg.Connections["local"].Path)

	sales, ok := cfg.Job("extract_sales")
	require.True(t, ok)
	assert.Equal(t, filepath.Join(root, "input", "sales.csv"), sales.Source.Path)
	assert.Equal(t, "replace", sales.Sink.Mode)
	opts := sales.CleanOptions()
	assert.Equal(t, []string{"id"}, opts.CriticalColumns)
	assert.InDelta(t, 0.4, opts.MissingThreshold, 1e-9)

	publish, _ := cfg.Job("publish")
	assert.True(t, publish.SkipClean)
	assert.Equal(t, DefaultRetryDelay, publish.RetryDelay)
	assert.Equal(t, filepath.Join(root, "out", "sales.xlsx"), publish.Sink.Path)
	assert.Equal(t, "amount", publish.CleanOptions().OutlierColumn)

	rates, _ := cfg.Job("rates")
	assert.Equal(t, 3*time.Second, rates.Source.Timeout)
	assert.Equal(t, "Bearer abc", rates.Source.Headers["Authorization"])
	assert.Equal(t, "append", rates.Sink.Mode)

	_, ok = cfg.Job("missing")
	assert.False(t, ok)
}

func TestLoad_NoConfigFile(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := LoadAndValidate("", nil)
	require.NoError(t, err)
	assert.Empty(t, cfg.FileUsed)
	assert.Empty(t, cfg.Jobs)
	assert.Equal(t, DefaultParallelism, cfg.Parallelism)
	assert.Equal(t, DefaultLogLevel, cfg.LogLevel)
}

func TestLoad_FindsConfigUpward(t *testing.T) {
	path := writeConfig(t, "log_level: warn\n")
	root := filepath.Dir(path)
	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0o755))
	t.Chdir(nested)

	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, root, cfg.ProjectRoot)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), nil)
	require.Error(t, err)
}

func TestLoad_Precedence(t *testing.T) {
	path := writeConfig(t, "log_level: warn\nparallelism: 3\n")

	tests := []struct {
		name      string
		env       string
		flag      string
		wantLevel string
	}{
		{name: "file", wantLevel: "warn"},
		{name: "env over file", env: "error", wantLevel: "error"},
		{name: "flag over env", env: "error", flag: "debug", wantLevel: "debug"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.env != "" {
				t.Setenv("LEAPETL_LOG_LEVEL", tt.env)
			}
			flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
			flags.String("log-level", "", "log level")
			flags.Int("parallelism", 1, "parallelism")
			if tt.flag != "" {
				require.NoError(t, flags.Set("log-level", tt.flag))
			}

			cfg, err := Load(path, flags)
			require.NoError(t, err)
			assert.Equal(t, tt.wantLevel, cfg.LogLevel)
			assert.Equal(t, 3, cfg.Parallelism, "unset flags keep lower layers")
		})
	}
}

func TestLoad_NestedEnvKey(t *testing.T) {
	path := writeConfig(t, "server:\n  addr: \":8080\"\n")
	t.Setenv("LEAPETL_SERVER__ADDR", "127.0.0.1:9999")

	cfg, err := Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9999", cfg.Server.Addr)
}

func TestLoad_StateFlagIsRelativeToWorkingDir(t *testing.T) {
	path := writeConfig(t, "")
	wd := t.TempDir()
	t.Chdir(wd)

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("state", "", "state")
	require.NoError(t, flags.Set("state", "run/state.db"))

	cfg, err := Load(path, flags)
	require.NoError(t, err)

	want, err := filepath.Abs(filepath.Join("run", "state.db"))
	require.NoError(t, err)
	assert.Equal(t, want, cfg.StatePath)
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("LEAPETL_TEST_USER", "alice")
	t.Setenv("LEAPETL_TEST_EMPTY", "")

	tests := []struct {
		in   string
		want string
	}{
		{in: "${LEAPETL_TEST_USER}", want: "alice"},
		{in: "postgres://${LEAPETL_TEST_USER}@host/db", want: "postgres://alice@host/db"},
		{in: "${LEAPETL_TEST_EMPTY}", want: ""},
		{in: "${LEAPETL_TEST_UNSET_VAR}", want: "${LEAPETL_TEST_UNSET_VAR}"},
		{in: "plain", want: "plain"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, expandEnvVars(tt.in))
		})
	}
}

func TestConfig_Validate(t *testing.T) {
	fileJob := func(name string, deps ...string) *JobConfig {
		return &JobConfig{
			Name:      name,
			DependsOn: deps,
			Source:    SourceConfig{Type: SourceFile, Path: "in.csv"},
			Sink:      SinkConfig{Type: SinkFile, Path: "out.csv"},
		}
	}
	base := func() *Config {
		return &Config{
			StatePath:    "state.db",
			LogLevel:     "info",
			LogFormat:    "text",
			OutputFormat: "auto",
			Parallelism:  1,
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr []string
	}{
		{
			name:   "valid",
			mutate: func(c *Config) { c.Jobs = []*JobConfig{fileJob("a"), fileJob("b", "a")} },
		},
		{
			name: "drop any missing threshold",
			mutate: func(c *Config) {
				j := fileJob("a")
				j.Clean = &clean.Options{MissingThreshold: clean.DropAnyMissing}
				c.Jobs = []*JobConfig{j}
			},
		},
		{
			name:    "bad log level",
			mutate:  func(c *Config) { c.LogLevel = "loud" },
			wantErr: []string{"log_level must be one of: debug, info, warn, error"},
		},
		{
			name:    "zero parallelism",
			mutate:  func(c *Config) { c.Parallelism = 0 },
			wantErr: []string{"parallelism must be greater than or equal to 1"},
		},
		{
			name: "file source without path",
			mutate: func(c *Config) {
				j := fileJob("a")
				j.Source.Path = ""
				c.Jobs = []*JobConfig{j}
			},
			wantErr: []string{"jobs[0].source.path is required"},
		},
		{
			name: "api source with bad url",
			mutate: func(c *Config) {
				j := fileJob("a")
				j.Source = SourceConfig{Type: SourceAPI, URL: "not a url"}
				c.Jobs = []*JobConfig{j}
			},
			wantErr: []string{"jobs[0].source.url must be a valid URL"},
		},
		{
			name: "bad sink mode",
			mutate: func(c *Config) {
				j := fileJob("a")
				j.Sink = SinkConfig{Type: SinkDatabase, Connection: "db", Table: "t", Mode: "merge"}
				c.Connections = map[string]*ConnectionConfig{"db": {Type: "sqlite", Path: "x.db"}}
				c.Jobs = []*JobConfig{j}
			},
			wantErr: []string{"jobs[0].sink.mode must be one of: replace, append"},
		},
		{
			name: "threshold out of range",
			mutate: func(c *Config) {
				j := fileJob("a")
				j.Clean = &clean.Options{MissingThreshold: 1.5}
				c.Jobs = []*JobConfig{j}
			},
			wantErr: []string{"jobs[0].clean.missing_threshold must be between 0 and 1, or -1 to drop any column with a missing value"},
		},
		{
			name: "negative threshold other than drop-any",
			mutate: func(c *Config) {
				j := fileJob("a")
				j.Clean = &clean.Options{MissingThreshold: -0.5}
				c.Jobs = []*JobConfig{j}
			},
			wantErr: []string{"jobs[0].clean.missing_threshold must be between 0 and 1, or -1 to drop any column with a missing value"},
		},
		{
			name:    "bad schedule time",
			mutate:  func(c *Config) { c.Schedule.At = "25:00" },
			wantErr: []string{"schedule.at must match the layout 15:04"},
		},
		{
			name: "unknown connection type",
			mutate: func(c *Config) {
				c.Connections = map[string]*ConnectionConfig{"dw": {Type: "oracle"}}
			},
			wantErr: []string{`connections.dw: unknown adapter type "oracle"`},
		},
		{
			name:    "duplicate job names",
			mutate:  func(c *Config) { c.Jobs = []*JobConfig{fileJob("a"), fileJob("a")} },
			wantErr: []string{`duplicate job name "a"`},
		},
		{
			name:    "unknown dependency",
			mutate:  func(c *Config) { c.Jobs = []*JobConfig{fileJob("a", "ghost")} },
			wantErr: []string{`jobs.a: unknown dependency "ghost"`},
		},
		{
			name:    "self dependency",
			mutate:  func(c *Config) { c.Jobs = []*JobConfig{fileJob("a", "a")} },
			wantErr: []string{"jobs.a: job depends on itself"},
		},
		{
			name:    "cycle",
			mutate:  func(c *Config) { c.Jobs = []*JobConfig{fileJob("a", "b"), fileJob("b", "a")} },
			wantErr: []string{"dependency cycle"},
		},
		{
			name: "unknown job connection",
			mutate: func(c *Config) {
				j := fileJob("a")
				j.Source = SourceConfig{Type: SourceDatabase, Connection: "nope", Table: "t"}
				c.Jobs = []*JobConfig{j}
			},
			wantErr: []string{`jobs.a.source: unknown connection "nope"`},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)

			err := cfg.Validate()
			if len(tt.wantErr) == 0 {
				require.NoError(t, err)
				return
			}
			var verrs ValidationErrors
			require.True(t, errors.As(err, &verrs), "got %v", err)
			for _, want := range tt.wantErr {
				assert.Contains(t, err.Error(), want)
			}
		})
	}
}

func TestConfig_Graph(t *testing.T) {
	path := writeConfig(t, projectYAML)
	cfg, err := Load(path, nil)
	require.NoError(t, err)

	g, err := cfg.Graph()
	require.NoError(t, err)
	levels, err := g.Levels()
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"extract_sales", "rates"}, {"publish"}}, levels)

	job, ok := g.Node("publish")
	require.True(t, ok)
	assert.Equal(t, []string{"extract_sales"}, job.DependsOn)
}

func TestConfig_Graph_Cycle(t *testing.T) {
	cfg := &Config{Jobs: []*JobConfig{
		{Name: "a", DependsOn: []string{"b"}},
		{Name: "b", DependsOn: []string{"a"}},
	}}
	_, err := cfg.Graph()
	var cycleErr *dag.CycleError
	assert.True(t, errors.As(err, &cycleErr))
}

func TestValidationErrors_Error(t *testing.T) {
	assert.Equal(t, "invalid configuration: x", ValidationErrors{"x"}.Error())
	assert.Equal(t, "invalid configuration (2 problems):\n  - x\n  - y", ValidationErrors{"x", "y"}.Error())
}
