package commands

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/leapstack-labs/leapetl/internal/cli/output"
	"github.com/leapstack-labs/leapetl/internal/extract"
	"github.com/leapstack-labs/leapetl/internal/load"
	"github.com/leapstack-labs/leapetl/pkg/clean"
	"github.com/spf13/cobra"
)

// CleanOptions holds options for the clean command.
type CleanOptions struct {
	Input       string
	Output      string
	Sheet       string
	OutputSheet string
	RecordPath  string

	Critical         []string
	OutlierColumn    string
	MissingThreshold float64
	EmailPlaceholder string
	TitleCase        []string
	YearSource       string
}

// NewCleanCommand creates the clean command.
func NewCleanCommand() *cobra.Command {
	opts := &CleanOptions{}

	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Clean a single file",
		Long: `Run the cleaning pipeline on one file and write the result.

The pipeline removes duplicate rows, fills missing values, filters outliers
of the amount column, sanitizes text, normalizes dates, derives the squared
amount and the transaction year, validates critical columns and finally drops
sparse columns. Input and output formats follow the file extension
(.csv, .xlsx, .json, .parquet).`,
		Example: `  # Clean a CSV file
  leapetl clean --input data/raw.csv --output data/clean.csv

  # Clean an Excel sheet into Parquet
  leapetl clean --input raw.xlsx --sheet Sales --output clean.parquet

  # Customize the rules
  leapetl clean --input raw.csv --output clean.csv \
    --critical id,email --outlier-column price --title-case name,city`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runClean(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Input, "input", "i", "", "Input file")
	cmd.Flags().StringVar(&opts.Output, "output", "", "Output file")
	cmd.Flags().StringVar(&opts.Sheet, "sheet", "", "Worksheet to read from an .xlsx input")
	cmd.Flags().StringVar(&opts.OutputSheet, "output-sheet", "", "Worksheet name of an .xlsx output")
	cmd.Flags().StringVar(&opts.RecordPath, "record-path", "", "Dotted path to the records of a .json input")
	cmd.Flags().StringSliceVar(&opts.Critical, "critical", nil, "Columns that must never be missing (default id,email)")
	cmd.Flags().StringVar(&opts.OutlierColumn, "outlier-column", "", "Numeric column filtered with the IQR rule (default amount)")
	cmd.Flags().Float64Var(&opts.MissingThreshold, "missing-threshold", 0, "Drop columns missing more than this fraction (default 0.5); 0 drops any column with a missing value")
	cmd.Flags().StringVar(&opts.EmailPlaceholder, "email-placeholder", "", "Replacement for missing email addresses")
	cmd.Flags().StringSliceVar(&opts.TitleCase, "title-case", nil, "Text columns to title-case")
	cmd.Flags().StringVar(&opts.YearSource, "year-source", "", "Date column whose year is derived (default transaction_date)")
	_ = cmd.MarkFlagRequired("input")
	_ = cmd.MarkFlagRequired("output")

	return cmd
}

// pipelineOptions builds pipeline options from the flags that were set.
func (o *CleanOptions) pipelineOptions(cmd *cobra.Command) (clean.Options, error) {
	opts := clean.DefaultOptions()
	flags := cmd.Flags()

	if flags.Changed("critical") {
		opts.CriticalColumns = nonEmpty(o.Critical)
	}
	if flags.Changed("outlier-column") {
		opts.OutlierColumn = o.OutlierColumn
	}
	if flags.Changed("missing-threshold") {
		if o.MissingThreshold < 0 || o.MissingThreshold > 1 {
			return opts, fmt.Errorf("--missing-threshold must be between 0 and 1, got %s",
				strconv.FormatFloat(o.MissingThreshold, 'g', -1, 64))
		}
		opts.MissingThreshold = o.MissingThreshold
		if o.MissingThreshold == 0 {
			opts.MissingThreshold = clean.DropAnyMissing
		}
	}
	if flags.Changed("email-placeholder") {
		opts.EmailPlaceholder = o.EmailPlaceholder
	}
	if flags.Changed("title-case") {
		opts.TitleCase = nonEmpty(o.TitleCase)
	}
	if flags.Changed("year-source") {
		opts.YearSource = o.YearSource
	}
	return opts, nil
}

func runClean(cmd *cobra.Command, opts *CleanOptions) error {
	cmdCtx, err := NewCommandContextWithoutEngine(cmd)
	if err != nil {
		return err
	}
	r := cmdCtx.Renderer
	ctx := cmd.Context()

	pipelineOpts, err := opts.pipelineOptions(cmd)
	if err != nil {
		return err
	}

	ext := &extract.FileExtractor{
		Path:       opts.Input,
		Sheet:      opts.Sheet,
		RecordPath: opts.RecordPath,
		Logger:     cmdCtx.Logger,
	}
	tbl, err := ext.Extract(ctx)
	if err != nil {
		return err
	}

	cleaned, report, cleanErr := clean.New(pipelineOpts, cmdCtx.Logger).Run(tbl)
	if cleanErr != nil {
		var verr *clean.ValidationError
		if report != nil && errors.As(cleanErr, &verr) {
			renderReport(r, opts.Input, "", tbl.NumRows(), 0, report)
		}
		return cleanErr
	}

	loader := &load.FileLoader{Path: opts.Output, Sheet: opts.OutputSheet, Logger: cmdCtx.Logger}
	if err := loader.Load(ctx, cleaned); err != nil {
		return err
	}

	return renderReport(r, opts.Input, opts.Output, tbl.NumRows(), cleaned.NumRows(), report)
}

func renderReport(r *output.Renderer, input, out string, rowsIn, rowsOut int, report *clean.Report) error {
	steps := make([]output.StepOutput, 0, len(report.Steps))
	for _, s := range report.Steps {
		steps = append(steps, output.StepOutput{
			Step:       s.Step,
			RowsIn:     s.RowsIn,
			RowsOut:    s.RowsOut,
			ColsIn:     s.ColsIn,
			ColsOut:    s.ColsOut,
			DurationMS: s.Duration.Milliseconds(),
		})
	}

	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(output.CleanOutput{
			Input:   input,
			Output:  out,
			RowsIn:  rowsIn,
			RowsOut: rowsOut,
			Steps:   steps,
			Dropped: report.Dropped,
		})
	}

	rows := make([][]string, 0, len(steps))
	for _, s := range steps {
		rows = append(rows, []string{
			s.Step,
			strconv.Itoa(s.RowsIn),
			strconv.Itoa(s.RowsOut),
			strconv.Itoa(s.ColsIn),
			strconv.Itoa(s.ColsOut),
		})
	}
	r.Header(2, "Cleaning report")
	r.Table([]string{"step", "rows in", "rows out", "cols in", "cols out"}, rows)
	if len(report.Dropped) > 0 {
		r.Muted("dropped sparse columns: " + strings.Join(report.Dropped, ", "))
	}
	if out != "" {
		r.Success(fmt.Sprintf("Wrote %d of %d rows to %s", rowsOut, rowsIn, out))
	}
	return nil
}

func nonEmpty(items []string) []string {
	out := []string{}
	for _, s := range items {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
