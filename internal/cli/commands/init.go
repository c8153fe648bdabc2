package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/leapstack-labs/leapetl/internal/cli/output"
	"github.com/leapstack-labs/leapetl/internal/config"
	"github.com/spf13/cobra"
)

// NewInitCommand creates the init command.
func NewInitCommand() *cobra.Command {
	var force bool
	var example bool

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Initialize a new LeapETL project",
		Long: `Initialize a new LeapETL project with a configuration file and sample data.

This creates:
  - leapetl.yaml configuration file with one file-to-file job
  - data/ directory with a sample CSV export

Use --example to create a full demo project with dependent jobs, a SQLite
warehouse sink, a JSON source and a daily schedule.`,
		Example: `  # Initialize in current directory
  leapetl init

  # Initialize with a full working example
  leapetl init --example

  # Initialize in a new directory
  leapetl init my-pipeline --example

  # Force overwrite existing config
  leapetl init --force`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}

			mode, _ := cmd.Flags().GetString("output")
			r := output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.Mode(mode))

			template := "minimal"
			if example {
				template = "example"
			}
			return runInit(r, dir, template, force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing configuration")
	cmd.Flags().BoolVar(&example, "example", false, "Create a full example project with dependent jobs")

	return cmd
}

func runInit(r *output.Renderer, dir, template string, force bool) error {
	if dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	configPath := filepath.Join(dir, config.ConfigFileName)
	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("%s already exists. Use --force to overwrite", config.ConfigFileName)
	}

	if err := copyTemplate(template, dir, force); err != nil {
		return fmt.Errorf("failed to initialize project: %w", err)
	}

	files, _ := listTemplateFiles(template)
	groups := groupTemplateFiles(files)

	r.Header(2, "Configuration")
	for _, f := range groups["config"] {
		r.StatusLine(f, "success", "")
	}
	r.Println("")
	r.Header(2, "Data")
	for _, f := range groups["data"] {
		r.StatusLine(f, "success", "")
	}

	r.Println("")
	r.Success("LeapETL project initialized!")
	r.Println("")
	r.Println("Next steps:")
	r.Println("  leapetl dag                  Show the job graph")
	r.Println("  leapetl preview transactions Inspect the raw source")
	r.Println("  leapetl run                  Run every job")
	r.Println("  leapetl runs                 Review run history")

	return nil
}
