package config

import "time"

// Default configuration values.
const (
	DefaultStateFile    = ".leapetl/state.db"
	DefaultLogLevel     = "info"
	DefaultLogFormat    = "text"
	DefaultOutput       = "auto" // TTY=text, non-TTY=markdown
	DefaultParallelism  = 4
	DefaultServerAddr   = ":9090"
	DefaultDebounce     = 500 * time.Millisecond
	DefaultRetryDelay   = 5 * time.Minute
	DefaultPostgresPort = 5432
)

// defaults is the lowest configuration layer.
func defaults() map[string]any {
	return map[string]any{
		"state_path":     DefaultStateFile,
		"log_level":      DefaultLogLevel,
		"log_format":     DefaultLogFormat,
		"output":         DefaultOutput,
		"verbose":        false,
		"parallelism":    DefaultParallelism,
		"server.addr":    DefaultServerAddr,
		"watch.debounce": DefaultDebounce.String(),
	}
}

// applyDefaults fills per-connection and per-job values that the flat
// defaults layer cannot express.
func applyDefaults(c *Config) {
	for _, conn := range c.Connections {
		if conn.Type == "postgres" && conn.Port == 0 && conn.DSN == "" {
			conn.Port = DefaultPostgresPort
		}
	}
	for _, j := range c.Jobs {
		if j.Retries > 0 && j.RetryDelay == 0 {
			j.RetryDelay = DefaultRetryDelay
		}
		if j.Sink.Type == SinkDatabase && j.Sink.Mode == "" {
			j.Sink.Mode = "replace"
		}
	}
}
