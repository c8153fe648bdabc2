package commands

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/leapetl/internal/cli/output"
	"github.com/leapstack-labs/leapetl/internal/config"
	"github.com/leapstack-labs/leapetl/internal/dag"
	"github.com/spf13/cobra"
)

// NewDAGCommand creates the dag command.
func NewDAGCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dag",
		Short: "Show the job dependency graph",
		Long: `Display the dependency graph (DAG) of all jobs.

Jobs are grouped by execution level, showing which jobs can run
in parallel and their dependency relationships.

Output adapts to environment:
  - Terminal: Styled output with colors
  - Piped/Scripted: Markdown format (agent-friendly)`,
		Example: `  # Show the DAG
  leapetl dag

  # Output as JSON
  leapetl dag --output json

  # Output as Markdown
  leapetl dag --output markdown`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDAG(cmd)
		},
	}

	return cmd
}

func runDAG(cmd *cobra.Command) error {
	cmdCtx, err := NewCommandContextWithoutEngine(cmd)
	if err != nil {
		return err
	}
	r := cmdCtx.Renderer

	graph, err := cmdCtx.Cfg.Graph()
	if err != nil {
		return err
	}
	levels, err := graph.Levels()
	if err != nil {
		return fmt.Errorf("failed to get execution levels: %w", err)
	}

	switch r.EffectiveMode() {
	case output.ModeJSON:
		return dagJSON(r, graph, levels)
	case output.ModeMarkdown:
		return dagMarkdown(r, graph, levels)
	default:
		return dagText(r, graph, levels)
	}
}

// dagText outputs the DAG in styled text format.
func dagText(r *output.Renderer, graph *dag.Graph[*config.JobConfig], levels [][]string) error {
	styles := r.Styles()

	for i, level := range levels {
		levelName := fmt.Sprintf("Level %d", i)
		if i == 0 {
			levelName = "Level 0 (Sources)"
		}
		r.Println(styles.Header2.Render(levelName))

		for _, name := range level {
			job, _ := graph.Node(name)
			r.Printf("  %s %s\n", styles.JobName.Render(name),
				styles.Muted.Render(describeSource(job)+" → "+describeSink(job)))
			if deps := graph.Parents(name); len(deps) > 0 {
				r.Printf("    %s %s\n", styles.Muted.Render("depends on:"), strings.Join(deps, ", "))
			}
			if children := graph.Children(name); len(children) > 0 {
				r.Printf("    %s %s\n", styles.Muted.Render("used by:"), strings.Join(children, ", "))
			}
		}
		r.Println("")
	}

	r.Println(styles.Muted.Render(fmt.Sprintf("Total: %d jobs, %d dependencies", graph.Len(), graph.EdgeCount())))
	return nil
}

// dagMarkdown outputs the DAG in markdown format.
func dagMarkdown(r *output.Renderer, graph *dag.Graph[*config.JobConfig], levels [][]string) error {
	r.Println(output.FormatHeader(1, "Job Graph"))
	r.Println("")

	for i, level := range levels {
		levelName := fmt.Sprintf("Level %d", i)
		if i == 0 {
			levelName = "Level 0 (Sources)"
		}
		r.Println(output.FormatHeader(2, levelName))

		for _, name := range level {
			job, _ := graph.Node(name)
			r.Printf("- %s: %s → %s\n", name, describeSource(job), describeSink(job))
			if deps := graph.Parents(name); len(deps) > 0 {
				r.Printf("  - depends on: %s\n", strings.Join(deps, ", "))
			}
			if children := graph.Children(name); len(children) > 0 {
				r.Printf("  - used by: %s\n", strings.Join(children, ", "))
			}
		}
		r.Println("")
	}

	r.Println(output.FormatHeader(2, "Summary"))
	r.Println(output.FormatKeyValue("Total Jobs", fmt.Sprintf("%d", graph.Len())))
	r.Println(output.FormatKeyValue("Total Dependencies", fmt.Sprintf("%d", graph.EdgeCount())))
	return nil
}

// dagJSON outputs the DAG in JSON format.
func dagJSON(r *output.Renderer, graph *dag.Graph[*config.JobConfig], levels [][]string) error {
	out := output.DAGOutput{
		Levels:    make([]output.DAGLevel, 0, len(levels)),
		TotalJobs: graph.Len(),
		TotalDeps: graph.EdgeCount(),
	}

	for i, level := range levels {
		dl := output.DAGLevel{
			Level: i,
			Jobs:  make([]output.DAGNode, 0, len(level)),
		}
		for _, name := range level {
			job, _ := graph.Node(name)
			dl.Jobs = append(dl.Jobs, output.DAGNode{
				Name:      name,
				Source:    describeSource(job),
				Sink:      describeSink(job),
				DependsOn: graph.Parents(name),
				UsedBy:    graph.Children(name),
			})
		}
		out.Levels = append(out.Levels, dl)
	}

	return r.JSON(out)
}

func describeSource(job *config.JobConfig) string {
	if job == nil {
		return ""
	}
	switch job.Source.Type {
	case config.SourceDatabase:
		return job.Source.Connection + "." + job.Source.Table
	case config.SourceAPI:
		return job.Source.URL
	default:
		return job.Source.Path
	}
}

func describeSink(job *config.JobConfig) string {
	if job == nil {
		return ""
	}
	if job.Sink.Type == config.SinkDatabase {
		return job.Sink.Connection + "." + job.Sink.Table
	}
	return job.Sink.Path
}
