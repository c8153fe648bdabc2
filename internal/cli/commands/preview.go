package commands

import (
	"fmt"
	"strconv"

	"github.com/leapstack-labs/leapetl/internal/cli/output"
	"github.com/leapstack-labs/leapetl/internal/engine"
	"github.com/leapstack-labs/leapetl/internal/extract"
	"github.com/leapstack-labs/leapetl/pkg/clean"
	"github.com/leapstack-labs/leapetl/pkg/core"
	"github.com/spf13/cobra"
)

// DefaultPreviewLimit is the number of rows shown by preview.
const DefaultPreviewLimit = 10

// PreviewOptions holds options for the preview command.
type PreviewOptions struct {
	Clean bool
	Limit int
	Sheet string
}

// NewPreviewCommand creates the preview command.
func NewPreviewCommand() *cobra.Command {
	opts := &PreviewOptions{}

	cmd := &cobra.Command{
		Use:   "preview <job|file>",
		Short: "Show the first rows of a job source or a file",
		Long: `Extract a job's source, or read a file, and print its first rows along
with the inferred column types and missing counts.

With --clean the table is run through the cleaning pipeline first, using
the job's cleaning options when a job is given.`,
		Example: `  # Preview a job's source
  leapetl preview orders

  # Preview a file after cleaning
  leapetl preview data/raw.csv --clean --limit 5`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPreview(cmd, args[0], opts)
		},
	}

	cmd.Flags().BoolVar(&opts.Clean, "clean", false, "Run the cleaning pipeline before previewing")
	cmd.Flags().IntVarP(&opts.Limit, "limit", "n", DefaultPreviewLimit, "Number of rows to show")
	cmd.Flags().StringVar(&opts.Sheet, "sheet", "", "Worksheet to read from an .xlsx file")

	return cmd
}

func runPreview(cmd *cobra.Command, target string, opts *PreviewOptions) error {
	cmdCtx, err := NewCommandContextWithoutEngine(cmd)
	if err != nil {
		return err
	}
	r := cmdCtx.Renderer
	if opts.Limit < 0 {
		return fmt.Errorf("--limit must not be negative")
	}

	var (
		ext       extract.Extractor
		cleanOpts = clean.DefaultOptions()
	)
	if job, ok := cmdCtx.Cfg.Job(target); ok {
		ext, err = engine.NewExtractor(cmdCtx.Cfg, job, cmdCtx.Logger)
		if err != nil {
			return err
		}
		cleanOpts = job.CleanOptions()
	} else {
		ext = &extract.FileExtractor{Path: target, Sheet: opts.Sheet, Logger: cmdCtx.Logger}
	}

	tbl, err := ext.Extract(cmd.Context())
	if err != nil {
		return err
	}
	if opts.Clean {
		tbl, _, err = clean.New(cleanOpts, cmdCtx.Logger).Run(tbl)
		if err != nil {
			return err
		}
	}

	return renderPreview(r, ext.Describe(), tbl, opts.Limit)
}

func renderPreview(r *output.Renderer, source string, tbl *core.Table, limit int) error {
	head := tbl.Head(limit)

	if r.EffectiveMode() == output.ModeJSON {
		out := output.PreviewOutput{
			Source:    source,
			TotalRows: tbl.NumRows(),
			Columns:   make([]output.PreviewColumn, 0, tbl.NumCols()),
			Rows:      make([]map[string]string, 0, head.NumRows()),
		}
		for _, c := range tbl.Columns() {
			out.Columns = append(out.Columns, output.PreviewColumn{Name: c.Name, Kind: c.Kind.String(), Missing: c.MissingCount()})
		}
		for i := 0; i < head.NumRows(); i++ {
			row := make(map[string]string, head.NumCols())
			for _, c := range head.Columns() {
				row[c.Name] = c.Values[i].Format(c.Kind)
			}
			out.Rows = append(out.Rows, row)
		}
		return r.JSON(out)
	}

	r.Header(2, source)
	r.Muted(fmt.Sprintf("%d rows, %d columns", tbl.NumRows(), tbl.NumCols()))
	r.Println("")

	rows := make([][]string, 0, head.NumRows())
	for i := 0; i < head.NumRows(); i++ {
		row := make([]string, 0, head.NumCols())
		for _, c := range head.Columns() {
			row = append(row, c.Values[i].Format(c.Kind))
		}
		rows = append(rows, row)
	}
	r.Table(head.ColumnNames(), rows)
	r.Println("")

	colRows := make([][]string, 0, tbl.NumCols())
	for _, c := range tbl.Columns() {
		colRows = append(colRows, []string{c.Name, c.Kind.String(), strconv.Itoa(c.MissingCount())})
	}
	r.Table([]string{"column", "type", "missing"}, colRows)
	return nil
}
