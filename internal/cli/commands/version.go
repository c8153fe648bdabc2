package commands

import (
	"github.com/leapstack-labs/leapetl/internal/cli/output"
	"github.com/spf13/cobra"
)

// versionInfo is the JSON form of the version command.
type versionInfo struct {
	Version   string `json:"version"`
	BuildDate string `json:"build_date"`
	GitCommit string `json:"git_commit"`
}

// NewVersionCommand creates the version command.
func NewVersionCommand(version, buildDate, gitCommit string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  `Display LeapETL version and build information.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			mode, _ := cmd.Flags().GetString("output")
			r := output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.Mode(mode))
			if r.EffectiveMode() == output.ModeJSON {
				return r.JSON(versionInfo{Version: version, BuildDate: buildDate, GitCommit: gitCommit})
			}
			r.Println("LeapETL v" + version)
			r.Printf("Built %s from %s\n", buildDate, gitCommit)
			r.Println("Extract, clean and load pipelines built with Go")
			return nil
		},
	}
}
