package clean

import (
	"errors"
	"log/slog"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/leapstack-labs/leapetl/pkg/core"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Step names in execution order.
const (
	StepDeduplicate    = "deduplicate"
	StepFillMissing    = "fill_missing"
	StepFilterOutliers = "filter_outliers"
	StepSanitizeText   = "sanitize_text"
	StepNormalizeDates = "normalize_dates"
	StepDeriveColumns  = "derive_columns"
	StepValidate       = "validate"
	StepDropSparse     = "drop_sparse"
)

// Steps lists the step names in the order they run.
var Steps = []string{
	StepDeduplicate,
	StepFillMissing,
	StepFilterOutliers,
	StepSanitizeText,
	StepNormalizeDates,
	StepDeriveColumns,
	StepValidate,
	StepDropSparse,
}

// disallowedText matches everything sanitization removes.
var disallowedText = regexp.MustCompile(`[^A-Za-z0-9@._\-\s]`)

// stepper carries the state shared by the steps of one run.
type stepper struct {
	opts   Options
	schema *Schema
	logger *slog.Logger
}

// deduplicate removes rows identical across all columns, keeping the first.
func (s *stepper) deduplicate(t *core.Table) (*core.Table, error) {
	seen := make(map[string]struct{}, t.NumRows())
	keep := make([]bool, t.NumRows())
	removed := 0
	for i := 0; i < t.NumRows(); i++ {
		key := rowKey(t, i)
		if _, dup := seen[key]; dup {
			removed++
			continue
		}
		seen[key] = struct{}{}
		keep[i] = true
	}
	if removed == 0 {
		return t, nil
	}
	s.logger.Debug("removed duplicate rows", slog.Int("rows", removed))
	return t.Filter(keep), nil
}

// rowKey encodes a row so that equal rows produce equal keys.
func rowKey(t *core.Table, i int) string {
	var b strings.Builder
	for _, col := range t.Columns() {
		v := col.Values[i]
		if v.IsMissing() {
			b.WriteString("\x00")
		} else {
			b.WriteString(strconv.Quote(v.Format(col.Kind)))
		}
		b.WriteByte('\x1f')
	}
	return b.String()
}

// fillMissing fills emails and every numeric column with its mean, the
// identifier included, then drops rows still missing a critical value.
func (s *stepper) fillMissing(t *core.Table) (*core.Table, error) {
	out := t

	if name := s.schema.Email(); name != "" {
		col, _ := out.Column(name)
		if col.HasMissing() {
			filled := col.Clone()
			if filled.Kind != core.KindString {
				filled = asStrings(filled)
			}
			for i, v := range filled.Values {
				if v.IsMissing() {
					filled.Values[i] = core.String(s.opts.EmailPlaceholder)
				}
			}
			var err error
			if out, err = out.WithColumn(filled); err != nil {
				return nil, err
			}
		}
	}

	for _, col := range t.Columns() {
		if col.Kind != core.KindNumber || !col.HasMissing() {
			continue
		}
		present := presentNumbers(col)
		if len(present) == 0 {
			continue
		}
		m := mean(present)
		filled := col.Clone()
		for i, v := range filled.Values {
			if v.IsMissing() {
				filled.Values[i] = core.Number(m)
			}
		}
		s.logger.Debug("filled missing values with mean", slog.String("column", col.Name), slog.Float64("mean", m))
		var err error
		if out, err = out.WithColumn(filled); err != nil {
			return nil, err
		}
	}

	critical := s.schema.Critical()
	if len(critical) == 0 {
		return out, nil
	}
	keep := make([]bool, out.NumRows())
	dropped := 0
	for i := range keep {
		keep[i] = true
		for _, name := range critical {
			col, _ := out.Column(name)
			if col.Values[i].IsMissing() {
				keep[i] = false
				dropped++
				break
			}
		}
	}
	if dropped == 0 {
		return out, nil
	}
	s.logger.Debug("dropped rows missing critical values", slog.Int("rows", dropped))
	return out.Filter(keep), nil
}

// filterOutliers keeps rows whose amount lies within the IQR bounds.
func (s *stepper) filterOutliers(t *core.Table) (*core.Table, error) {
	name := s.schema.Amount()
	if name == "" {
		return t, nil
	}
	col, _ := t.Column(name)
	if col.Kind != core.KindNumber {
		return t, nil
	}
	present := presentNumbers(col)
	if distinct(present) < 4 {
		return t, nil
	}

	lower, upper := IQRBounds(present)
	keep := make([]bool, t.NumRows())
	dropped := 0
	for i, v := range col.Values {
		keep[i] = v.IsMissing() || (v.Num() >= lower && v.Num() <= upper)
		if !keep[i] {
			dropped++
		}
	}
	if dropped == 0 {
		return t, nil
	}
	s.logger.Debug("filtered outliers",
		slog.String("column", name),
		slog.Float64("lower", lower),
		slog.Float64("upper", upper),
		slog.Int("rows", dropped))
	return t.Filter(keep), nil
}

// sanitizeText strips disallowed characters from every text column, date
// columns included.
func (s *stepper) sanitizeText(t *core.Table) (*core.Table, error) {
	title := make(map[string]bool, len(s.opts.TitleCase))
	for _, name := range s.opts.TitleCase {
		title[name] = true
	}
	caser := cases.Title(language.Und)

	out := t
	for _, col := range t.Columns() {
		if col.Kind != core.KindString {
			continue
		}
		cleaned := col.Clone()
		changed := false
		for i, v := range cleaned.Values {
			if v.IsMissing() {
				continue
			}
			str := strings.TrimSpace(disallowedText.ReplaceAllString(v.Str(), ""))
			if title[col.Name] {
				str = caser.String(str)
			}
			if str != v.Str() {
				cleaned.Values[i] = core.String(str)
				changed = true
			}
		}
		if !changed {
			continue
		}
		var err error
		if out, err = out.WithColumn(cleaned); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// normalizeDates parses date columns. Unparseable values become missing.
func (s *stepper) normalizeDates(t *core.Table) (*core.Table, error) {
	out := t
	for _, name := range s.schema.Dates() {
		col, _ := t.Column(name)
		if col.Kind == core.KindDate {
			continue
		}
		parsed := &core.Column{Name: name, Kind: core.KindDate, Values: make([]core.Value, len(col.Values))}
		failed := 0
		for i, v := range col.Values {
			if v.IsMissing() {
				continue
			}
			input := v.Format(col.Kind)
			d, ok := ParseDate(input)
			if !ok {
				failed++
				s.logger.Debug("coerced value to missing", slog.Any("error", &ParseError{Column: name, Row: i, Input: input}))
				continue
			}
			parsed.Values[i] = core.Date(d)
		}
		if failed > 0 {
			s.logger.Info("unparseable dates set to missing", slog.String("column", name), slog.Int("values", failed))
		}
		var err error
		if out, err = out.WithColumn(parsed); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// deriveColumns adds the squared amount and the year of the year source.
func (s *stepper) deriveColumns(t *core.Table) (*core.Table, error) {
	out := t

	if name := s.schema.Amount(); name != "" {
		col, _ := t.Column(name)
		squared := &core.Column{Name: name + "_squared", Kind: core.KindNumber, Values: make([]core.Value, len(col.Values))}
		if col.Kind == core.KindNumber {
			for i, v := range col.Values {
				if !v.IsMissing() {
					squared.Values[i] = core.Number(math.Pow(v.Num(), 2))
				}
			}
		}
		var err error
		if out, err = out.WithColumn(squared); err != nil {
			return nil, err
		}
	}

	if col, ok := t.Column(s.opts.YearSource); ok && col.Kind == core.KindDate {
		year := &core.Column{Name: yearColumnName(col.Name), Kind: core.KindNumber, Values: make([]core.Value, len(col.Values))}
		for i, v := range col.Values {
			if !v.IsMissing() {
				year.Values[i] = core.Number(float64(v.Time().Year()))
			}
		}
		var err error
		if out, err = out.WithColumn(year); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// yearColumnName maps transaction_date to transaction_year.
func yearColumnName(source string) string {
	return strings.TrimSuffix(source, "_date") + "_year"
}

// validate checks critical completeness and email shape.
func (s *stepper) validate(t *core.Table) (*core.Table, error) {
	required := append([]string(nil), s.schema.Critical()...)
	if id := s.schema.Identifier(); id != "" && !contains(required, id) {
		required = append(required, id)
	}

	var errs []error
	for _, name := range required {
		col, ok := t.Column(name)
		if !ok {
			continue
		}
		var rows []int
		for i, v := range col.Values {
			if v.IsMissing() {
				rows = append(rows, i)
			}
		}
		if len(rows) > 0 {
			errs = append(errs, &ValidationError{Column: name, Reason: "missing values", Rows: rows})
		}
	}

	if name := s.schema.Email(); name != "" {
		col, _ := t.Column(name)
		var rows []int
		for i, v := range col.Values {
			if !v.IsMissing() && !strings.Contains(v.Format(col.Kind), "@") {
				rows = append(rows, i)
			}
		}
		if len(rows) > 0 {
			errs = append(errs, &ValidationError{Column: name, Reason: "invalid email address", Rows: rows})
		}
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return t, nil
}

// dropSparse removes columns whose missing fraction exceeds the threshold.
// Critical columns are not exempt. A table with no rows has no missing
// fraction, so it keeps every column.
func (s *stepper) dropSparse(t *core.Table) (*core.Table, error) {
	if t.NumRows() == 0 {
		return t, nil
	}
	var drop []string
	for _, col := range t.Columns() {
		frac := float64(col.MissingCount()) / float64(t.NumRows())
		if frac > s.opts.MissingThreshold {
			drop = append(drop, col.Name)
			if f, ok := s.schema.Field(col.Name); ok && f.Critical {
				s.logger.Warn("dropping sparse critical column", slog.String("column", col.Name), slog.Float64("missing", frac))
			}
		}
	}
	if len(drop) == 0 {
		return t, nil
	}
	s.logger.Debug("dropped sparse columns", slog.Any("columns", drop))
	return t.Without(drop...), nil
}

// asStrings converts a column to a string column.
func asStrings(col *core.Column) *core.Column {
	out := &core.Column{Name: col.Name, Kind: core.KindString, Values: make([]core.Value, len(col.Values))}
	for i, v := range col.Values {
		if !v.IsMissing() {
			out.Values[i] = core.String(v.Format(col.Kind))
		}
	}
	return out
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
