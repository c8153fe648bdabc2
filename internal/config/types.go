// Package config loads and validates the LeapETL project configuration.
//
// Configuration is layered with koanf: built-in defaults, then leapetl.yaml,
// then LEAPETL_* environment variables, then explicitly set CLI flags.
package config

import (
	"strings"
	"time"

	"github.com/leapstack-labs/leapetl/pkg/clean"
	"github.com/leapstack-labs/leapetl/pkg/core"
)

// Config holds the whole project configuration.
type Config struct {
	// ProjectRoot is the directory relative paths are resolved against.
	ProjectRoot string `koanf:"-"`
	// FileUsed is the config file that was read, if any.
	FileUsed string `koanf:"-"`

	StatePath    string `koanf:"state_path" validate:"required"`
	LogLevel     string `koanf:"log_level" validate:"oneof=debug info warn error"`
	LogFormat    string `koanf:"log_format" validate:"oneof=text json"`
	OutputFormat string `koanf:"output" validate:"oneof=auto text markdown json"`
	Verbose      bool   `koanf:"verbose"`

	// Parallelism bounds how many jobs of one level run at once.
	Parallelism int `koanf:"parallelism" validate:"gte=1"`

	Connections map[string]*ConnectionConfig `koanf:"connections" validate:"dive"`
	Jobs        []*JobConfig                 `koanf:"jobs" validate:"dive"`
	Schedule    ScheduleConfig               `koanf:"schedule"`
	Server      ServerConfig                 `koanf:"server"`
	Watch       WatchConfig                  `koanf:"watch"`
}

// ConnectionConfig describes a named database connection.
type ConnectionConfig struct {
	Type string `koanf:"type" validate:"required"`

	// File-based databases (DuckDB, SQLite)
	Path string `koanf:"path"`

	// Network databases
	DSN      string `koanf:"dsn"`
	Host     string `koanf:"host"`
	Port     int    `koanf:"port" validate:"gte=0,lte=65535"`
	Database string `koanf:"database"`
	User     string `koanf:"user"`
	Password string `koanf:"password"`
	Schema   string `koanf:"schema"`

	MinConns int `koanf:"min_conns" validate:"gte=0"`
	MaxConns int `koanf:"max_conns" validate:"gte=0"`

	// Additional driver-specific options
	Options map[string]string `koanf:"options"`

	// Params holds adapter-specific configuration (e.g. DuckDB extensions, secrets, settings)
	Params map[string]any `koanf:"params"`
}

// ToAdapterConfig converts the connection into an adapter config.
func (c *ConnectionConfig) ToAdapterConfig() core.AdapterConfig {
	return core.AdapterConfig{
		Type:     strings.ToLower(c.Type),
		Path:     c.Path,
		DSN:      c.DSN,
		Host:     c.Host,
		Port:     c.Port,
		Database: c.Database,
		Username: c.User,
		Password: c.Password,
		Schema:   c.Schema,
		Options:  c.Options,
		Params:   c.Params,
		MinConns: c.MinConns,
		MaxConns: c.MaxConns,
	}
}

// Source types.
const (
	SourceFile     = "file"
	SourceDatabase = "database"
	SourceAPI      = "api"
)

// SourceConfig describes where a job reads its table from.
type SourceConfig struct {
	Type string `koanf:"type" validate:"required,oneof=file database api"`

	// file
	Path       string `koanf:"path" validate:"required_if=Type file"`
	Sheet      string `koanf:"sheet"`
	RecordPath string `koanf:"record_path"`

	// database
	Connection string         `koanf:"connection" validate:"required_if=Type database"`
	Table      string         `koanf:"table" validate:"required_if=Type database"`
	Filter     map[string]any `koanf:"filter"`

	// api
	URL     string            `koanf:"url" validate:"required_if=Type api,omitempty,url"`
	Headers map[string]string `koanf:"headers"`
	Timeout time.Duration     `koanf:"timeout" validate:"gte=0"`
}

// Sink types.
const (
	SinkFile     = "file"
	SinkDatabase = "database"
)

// SinkConfig describes where a job writes the cleaned table.
type SinkConfig struct {
	Type string `koanf:"type" validate:"required,oneof=file database"`

	// file
	Path  string `koanf:"path" validate:"required_if=Type file"`
	Sheet string `koanf:"sheet"`

	// database
	Connection string `koanf:"connection" validate:"required_if=Type database"`
	Table      string `koanf:"table" validate:"required_if=Type database"`
	Mode       string `koanf:"mode" validate:"omitempty,oneof=replace append"`
}

// JobConfig describes one extract, clean, load job.
type JobConfig struct {
	Name      string   `koanf:"name" validate:"required"`
	DependsOn []string `koanf:"depends_on"`

	Source SourceConfig   `koanf:"source"`
	Clean  *clean.Options `koanf:"clean"`
	// SkipClean loads the extracted table unchanged.
	SkipClean bool       `koanf:"skip_clean"`
	Sink      SinkConfig `koanf:"sink"`

	Retries    int           `koanf:"retries" validate:"gte=0"`
	RetryDelay time.Duration `koanf:"retry_delay" validate:"gte=0"`
}

// CleanOptions returns the job's cleaning options with defaults applied.
func (j *JobConfig) CleanOptions() clean.Options {
	if j.Clean == nil {
		return clean.DefaultOptions()
	}
	return *j.Clean
}

// ScheduleConfig configures the scheduler. At wins over Every.
type ScheduleConfig struct {
	At    string        `koanf:"at" validate:"omitempty,datetime=15:04"`
	Every time.Duration `koanf:"every" validate:"gte=0"`
}

// ServerConfig configures the status server.
type ServerConfig struct {
	Addr string `koanf:"addr" validate:"omitempty,hostname_port"`
}

// WatchConfig configures watch mode.
type WatchConfig struct {
	Debounce time.Duration `koanf:"debounce" validate:"gte=0"`
}

// Job returns the named job.
func (c *Config) Job(name string) (*JobConfig, bool) {
	for _, j := range c.Jobs {
		if j.Name == name {
			return j, true
		}
	}
	return nil, false
}

// JobNames returns job names in declaration order.
func (c *Config) JobNames() []string {
	names := make([]string, len(c.Jobs))
	for i, j := range c.Jobs {
		names[i] = j.Name
	}
	return names
}
