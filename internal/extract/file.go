package extract

import (
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/leapstack-labs/leapetl/pkg/adapters/duckdb"
	"github.com/leapstack-labs/leapetl/pkg/core"
	"github.com/xuri/excelize/v2"
)

// FileExtractor reads a local file. The format follows the extension:
// .csv, .xlsx, .json or .parquet.
type FileExtractor struct {
	Path string
	// Sheet selects the worksheet of an .xlsx file; the first sheet by default.
	Sheet string
	// RecordPath is the dotted path to the record array inside a .json file.
	RecordPath string

	Logger *slog.Logger
}

// Describe returns the file path.
func (e *FileExtractor) Describe() string { return e.Path }

// Extract reads the file into a table.
func (e *FileExtractor) Extract(ctx context.Context) (*core.Table, error) {
	if _, err := os.Stat(e.Path); err != nil {
		return nil, fmt.Errorf("source file: %w", err)
	}

	var (
		t   *core.Table
		err error
	)
	switch ext := strings.ToLower(filepath.Ext(e.Path)); ext {
	case ".csv":
		t, err = readCSV(e.Path)
	case ".xlsx":
		t, err = readXLSX(e.Path, e.Sheet)
	case ".json":
		t, err = readJSON(e.Path, e.RecordPath)
	case ".parquet":
		t, err = readParquet(ctx, e.Path, e.Logger)
	default:
		return nil, fmt.Errorf("unsupported source format %q", ext)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", e.Path, err)
	}

	if e.Logger != nil {
		e.Logger.Debug("extracted file",
			slog.String("path", e.Path),
			slog.Int("rows", t.NumRows()),
			slog.Int("columns", t.NumCols()))
	}
	return t, nil
}

func readCSV(path string) (*core.Table, error) {
	f, err := os.Open(path) //nolint:gosec // path comes from job configuration
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) > 0 && len(records[0]) > 0 {
		records[0][0] = strings.TrimPrefix(records[0][0], "\ufeff")
	}
	return fromRecords(records)
}

func readXLSX(path, sheet string) (*core.Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("workbook has no sheets")
		}
		sheet = sheets[0]
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("sheet %q: %w", sheet, err)
	}

	records := make([][]string, 0, len(rows))
	for _, row := range rows {
		if isBlank(row) {
			continue
		}
		records = append(records, row)
	}
	return fromRecords(records)
}

func isBlank(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

func readJSON(path, recordPath string) (*core.Table, error) {
	f, err := os.Open(path) //nolint:gosec // path comes from job configuration
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	doc, err := decodeOrdered(f)
	if err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	objs, err := recordsAt(doc, recordPath)
	if err != nil {
		return nil, err
	}
	return tableFromObjects(objs)
}

func readParquet(ctx context.Context, path string, logger *slog.Logger) (*core.Table, error) {
	db := duckdb.New(logger)
	if err := db.Connect(ctx, core.AdapterConfig{Path: ":memory:"}); err != nil {
		return nil, err
	}
	defer func() { _ = db.Close() }()
	return db.ReadFile(ctx, path)
}
