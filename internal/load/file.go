package load

import (
	"bufio"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/leapstack-labs/leapetl/pkg/adapters/duckdb"
	"github.com/leapstack-labs/leapetl/pkg/core"
	"github.com/xuri/excelize/v2"
)

// DefaultSheet is the worksheet name used when none is configured.
const DefaultSheet = "Sheet1"

// FileLoader writes a table to a local file. The format follows the
// extension: .csv, .xlsx, .json or .parquet. Existing files are replaced.
type FileLoader struct {
	Path string
	// Sheet names the worksheet of an .xlsx file.
	Sheet string

	Logger *slog.Logger
}

// Describe returns the file path.
func (l *FileLoader) Describe() string { return l.Path }

// Load writes t to the file, creating parent directories as needed.
func (l *FileLoader) Load(ctx context.Context, t *core.Table) error {
	if dir := filepath.Dir(l.Path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}

	var err error
	switch ext := strings.ToLower(filepath.Ext(l.Path)); ext {
	case ".csv":
		err = writeCSV(l.Path, t)
	case ".xlsx":
		err = writeXLSX(l.Path, l.Sheet, t)
	case ".json":
		err = writeJSON(l.Path, t)
	case ".parquet":
		err = writeParquet(ctx, l.Path, t, l.Logger)
	default:
		return fmt.Errorf("unsupported output format %q", ext)
	}
	if err != nil {
		return fmt.Errorf("write %s: %w", l.Path, err)
	}

	if l.Logger != nil {
		l.Logger.Debug("loaded file",
			slog.String("path", l.Path),
			slog.Int("rows", t.NumRows()),
			slog.Int("columns", t.NumCols()))
	}
	return nil
}

func writeCSV(path string, t *core.Table) error {
	f, err := os.Create(path) //nolint:gosec // path comes from job configuration
	if err != nil {
		return err
	}

	w := csv.NewWriter(f)
	if err := w.Write(t.ColumnNames()); err != nil {
		_ = f.Close()
		return err
	}
	cols := t.Columns()
	record := make([]string, len(cols))
	for i := 0; i < t.NumRows(); i++ {
		for j, c := range cols {
			record[j] = c.Values[i].Format(c.Kind)
		}
		if err := w.Write(record); err != nil {
			_ = f.Close()
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func writeXLSX(path, sheet string, t *core.Table) error {
	if sheet == "" {
		sheet = DefaultSheet
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if sheet != DefaultSheet {
		if err := f.SetSheetName(DefaultSheet, sheet); err != nil {
			return err
		}
	}

	for j, c := range t.Columns() {
		cell, err := excelize.CoordinatesToCellName(j+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, c.Name); err != nil {
			return err
		}
		for i, v := range c.Values {
			if v.IsMissing() {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(j+1, i+2)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(sheet, cell, cellValue(v, c.Kind)); err != nil {
				return err
			}
		}
	}
	return f.SaveAs(path)
}

// cellValue keeps numbers numeric in the workbook and renders dates as text.
func cellValue(v core.Value, k core.Kind) any {
	if k == core.KindNumber {
		return v.Num()
	}
	return v.Format(k)
}

// writeJSON writes an array of objects with keys in column order. Missing
// values are written as null.
func writeJSON(path string, t *core.Table) error {
	f, err := os.Create(path) //nolint:gosec // path comes from job configuration
	if err != nil {
		return err
	}
	w := bufio.NewWriter(f)

	if err := encodeRecords(w, t); err != nil {
		_ = f.Close()
		return err
	}
	if err := w.Flush(); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func encodeRecords(w *bufio.Writer, t *core.Table) error {
	cols := t.Columns()
	keys := make([][]byte, len(cols))
	for j, c := range cols {
		k, err := json.Marshal(c.Name)
		if err != nil {
			return err
		}
		keys[j] = k
	}

	_, _ = w.WriteString("[")
	for i := 0; i < t.NumRows(); i++ {
		if i > 0 {
			_, _ = w.WriteString(",")
		}
		_, _ = w.WriteString("\n  {")
		for j, c := range cols {
			if j > 0 {
				_, _ = w.WriteString(", ")
			}
			_, _ = w.Write(keys[j])
			_, _ = w.WriteString(": ")
			b, err := json.Marshal(jsonValue(c.Values[i], c.Kind))
			if err != nil {
				return err
			}
			_, _ = w.Write(b)
		}
		_, _ = w.WriteString("}")
	}
	if t.NumRows() > 0 {
		_, _ = w.WriteString("\n")
	}
	_, err := w.WriteString("]\n")
	return err
}

func jsonValue(v core.Value, k core.Kind) any {
	switch {
	case v.IsMissing():
		return nil
	case k == core.KindNumber:
		return v.Num()
	default:
		return v.Format(k)
	}
}

func writeParquet(ctx context.Context, path string, t *core.Table, logger *slog.Logger) error {
	if t.NumCols() == 0 {
		return fmt.Errorf("cannot write parquet without columns")
	}

	db := duckdb.New(logger)
	if err := db.Connect(ctx, core.AdapterConfig{Path: ":memory:"}); err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	if err := db.WriteTable(ctx, "export", t, core.WriteReplace); err != nil {
		return err
	}
	return db.ExportParquet(ctx, "export", path)
}
