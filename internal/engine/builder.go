package engine

// builder.go - turns job configuration into extractors and loaders

import (
	"fmt"
	"log/slog"

	"github.com/leapstack-labs/leapetl/internal/config"
	"github.com/leapstack-labs/leapetl/internal/extract"
	"github.com/leapstack-labs/leapetl/internal/load"
	"github.com/leapstack-labs/leapetl/pkg/core"
)

// NewExtractor builds the extractor for a job source.
func NewExtractor(project *config.Config, job *config.JobConfig, logger *slog.Logger) (extract.Extractor, error) {
	src := job.Source
	switch src.Type {
	case config.SourceFile:
		return &extract.FileExtractor{
			Path:       src.Path,
			Sheet:      src.Sheet,
			RecordPath: src.RecordPath,
			Logger:     logger,
		}, nil
	case config.SourceDatabase:
		conn, err := connection(project, src.Connection)
		if err != nil {
			return nil, fmt.Errorf("job %s source: %w", job.Name, err)
		}
		return &extract.DatabaseExtractor{
			Connection: conn,
			Table:      src.Table,
			Filter:     src.Filter,
			Logger:     logger,
		}, nil
	case config.SourceAPI:
		return &extract.APIExtractor{
			URL:        src.URL,
			Headers:    src.Headers,
			Timeout:    src.Timeout,
			RecordPath: src.RecordPath,
			Logger:     logger,
		}, nil
	default:
		return nil, fmt.Errorf("job %s: unknown source type %q", job.Name, src.Type)
	}
}

// NewLoader builds the loader for a job sink.
func NewLoader(project *config.Config, job *config.JobConfig, logger *slog.Logger) (load.Loader, error) {
	sink := job.Sink
	switch sink.Type {
	case config.SinkFile:
		return &load.FileLoader{
			Path:   sink.Path,
			Sheet:  sink.Sheet,
			Logger: logger,
		}, nil
	case config.SinkDatabase:
		conn, err := connection(project, sink.Connection)
		if err != nil {
			return nil, fmt.Errorf("job %s sink: %w", job.Name, err)
		}
		return &load.DatabaseLoader{
			Connection: conn,
			Table:      sink.Table,
			Mode:       core.WriteMode(sink.Mode),
			Logger:     logger,
		}, nil
	default:
		return nil, fmt.Errorf("job %s: unknown sink type %q", job.Name, sink.Type)
	}
}

func connection(project *config.Config, name string) (core.AdapterConfig, error) {
	conn, ok := project.Connections[name]
	if !ok || conn == nil {
		return core.AdapterConfig{}, fmt.Errorf("unknown connection %q", name)
	}
	return conn.ToAdapterConfig(), nil
}
