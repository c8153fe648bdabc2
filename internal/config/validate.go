package config

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/leapstack-labs/leapetl/internal/dag"
	"github.com/leapstack-labs/leapetl/pkg/adapter"
	"github.com/leapstack-labs/leapetl/pkg/clean"
)

// ValidationErrors collects every problem found in a configuration.
type ValidationErrors []string

func (e ValidationErrors) Error() string {
	if len(e) == 1 {
		return "invalid configuration: " + e[0]
	}
	return fmt.Sprintf("invalid configuration (%d problems):\n  - %s", len(e), strings.Join(e, "\n  - "))
}

func newValidator() *validator.Validate {
	v := validator.New()
	// Use koanf key names in error messages
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("koanf"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	// A missing threshold is a fraction, or clean.DropAnyMissing.
	_ = v.RegisterValidation("threshold", func(fl validator.FieldLevel) bool {
		f := fl.Field().Float()
		return f == clean.DropAnyMissing || (f >= 0 && f <= 1)
	})
	return v
}

// Validate checks field constraints, connection types and the job graph.
func (c *Config) Validate() error {
	var problems ValidationErrors

	if err := newValidator().Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return err
		}
		for _, fe := range fieldErrs {
			problems = append(problems, formatFieldError(fe))
		}
	}

	names := make([]string, 0, len(c.Connections))
	for name := range c.Connections {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		conn := c.Connections[name]
		if conn == nil {
			problems = append(problems, fmt.Sprintf("connections.%s: empty connection", name))
			continue
		}
		if conn.Type != "" && !adapter.IsRegistered(strings.ToLower(conn.Type)) {
			unknown := &adapter.UnknownAdapterError{Type: conn.Type, Available: adapter.ListAdapters()}
			problems = append(problems, fmt.Sprintf("connections.%s: %s", name, firstLine(unknown.Error())))
		}
	}

	problems = append(problems, c.validateJobs()...)

	if len(problems) > 0 {
		return problems
	}
	return nil
}

func (c *Config) validateJobs() []string {
	var problems []string
	seen := make(map[string]bool, len(c.Jobs))
	for i, j := range c.Jobs {
		if j == nil {
			problems = append(problems, fmt.Sprintf("jobs[%d]: empty job", i))
			continue
		}
		if j.Name == "" {
			continue
		}
		if seen[j.Name] {
			problems = append(problems, fmt.Sprintf("jobs[%d]: duplicate job name %q", i, j.Name))
		}
		seen[j.Name] = true

		if j.Source.Type == SourceDatabase && j.Source.Connection != "" {
			if _, ok := c.Connections[j.Source.Connection]; !ok {
				problems = append(problems, fmt.Sprintf("jobs.%s.source: unknown connection %q", j.Name, j.Source.Connection))
			}
		}
		if j.Sink.Type == SinkDatabase && j.Sink.Connection != "" {
			if _, ok := c.Connections[j.Sink.Connection]; !ok {
				problems = append(problems, fmt.Sprintf("jobs.%s.sink: unknown connection %q", j.Name, j.Sink.Connection))
			}
		}
	}

	for _, j := range c.Jobs {
		if j == nil {
			continue
		}
		for _, dep := range j.DependsOn {
			switch {
			case dep == j.Name:
				problems = append(problems, fmt.Sprintf("jobs.%s: job depends on itself", j.Name))
			case !seen[dep]:
				problems = append(problems, fmt.Sprintf("jobs.%s: unknown dependency %q", j.Name, dep))
			}
		}
	}
	if len(problems) > 0 {
		return problems
	}

	if _, err := c.Graph(); err != nil {
		problems = append(problems, err.Error())
	}
	return problems
}

// Graph builds the job dependency graph.
func (c *Config) Graph() (*dag.Graph[*JobConfig], error) {
	g := dag.NewGraph[*JobConfig]()
	for _, j := range c.Jobs {
		g.AddNode(j.Name, j)
	}
	for _, j := range c.Jobs {
		for _, dep := range j.DependsOn {
			if err := g.AddEdge(dep, j.Name); err != nil {
				return nil, fmt.Errorf("jobs.%s: %w", j.Name, err)
			}
		}
	}
	if cycle := g.FindCycle(); cycle != nil {
		return nil, &dag.CycleError{Path: cycle}
	}
	return g, nil
}

// formatFieldError renders a validator error with its koanf key path.
func formatFieldError(fe validator.FieldError) string {
	field := fe.Namespace()
	if i := strings.Index(field, "."); i >= 0 {
		field = field[i+1:]
	}
	param := fe.Param()

	switch fe.Tag() {
	case "required", "required_if":
		return fmt.Sprintf("%s is required", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(param, " ", ", "))
	case "url":
		return fmt.Sprintf("%s must be a valid URL", field)
	case "datetime":
		return fmt.Sprintf("%s must match the layout %s", field, param)
	case "hostname_port":
		return fmt.Sprintf("%s must be a host:port address", field)
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", field, param)
	case "lte":
		return fmt.Sprintf("%s must be less than or equal to %s", field, param)
	case "threshold":
		return fmt.Sprintf("%s must be between 0 and 1, or %g to drop any column with a missing value", field, clean.DropAnyMissing)
	default:
		return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
	}
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
