package clean

// Default option values.
const (
	DefaultOutlierColumn    = "amount"
	DefaultMissingThreshold = 0.5
	DefaultEmailPlaceholder = "unknown@example.com"
	DefaultYearSource       = "transaction_date"
)

// DropAnyMissing is the MissingThreshold that drops every column with at
// least one missing value. A literal zero cannot say this since it selects
// the default.
const DropAnyMissing = -1.0

// DefaultCriticalColumns are the columns whose completeness is mandatory.
var DefaultCriticalColumns = []string{"id", "email"}

// Options configures a pipeline run.
type Options struct {
	// CriticalColumns must never be missing. Nil selects DefaultCriticalColumns;
	// an empty non-nil slice disables the rule.
	CriticalColumns []string `koanf:"critical_columns" json:"critical_columns"`

	// OutlierColumn is the numeric column filtered with the IQR rule and squared
	// by the derive step.
	OutlierColumn string `koanf:"outlier_column" json:"outlier_column"`

	// MissingThreshold drops columns whose missing fraction is strictly
	// greater than it. Zero selects DefaultMissingThreshold; DropAnyMissing
	// (or any negative value) is a threshold of exactly zero.
	MissingThreshold float64 `koanf:"missing_threshold" json:"missing_threshold" validate:"threshold"`

	// EmailPlaceholder replaces missing email addresses.
	EmailPlaceholder string `koanf:"email_placeholder" json:"email_placeholder"`

	// TitleCase lists text columns title-cased after sanitization.
	TitleCase []string `koanf:"title_case" json:"title_case"`

	// YearSource is the date column whose calendar year is derived.
	YearSource string `koanf:"year_source" json:"year_source"`
}

// DefaultOptions returns the default pipeline options.
func DefaultOptions() Options {
	return Options{
		CriticalColumns:  append([]string(nil), DefaultCriticalColumns...),
		OutlierColumn:    DefaultOutlierColumn,
		MissingThreshold: DefaultMissingThreshold,
		EmailPlaceholder: DefaultEmailPlaceholder,
		YearSource:       DefaultYearSource,
	}
}

// withDefaults fills unset fields.
func (o Options) withDefaults() Options {
	if o.CriticalColumns == nil {
		o.CriticalColumns = append([]string(nil), DefaultCriticalColumns...)
	}
	if o.OutlierColumn == "" {
		o.OutlierColumn = DefaultOutlierColumn
	}
	switch {
	case o.MissingThreshold == 0:
		o.MissingThreshold = DefaultMissingThreshold
	case o.MissingThreshold < 0:
		o.MissingThreshold = 0
	}
	if o.EmailPlaceholder == "" {
		o.EmailPlaceholder = DefaultEmailPlaceholder
	}
	if o.YearSource == "" {
		o.YearSource = DefaultYearSource
	}
	return o
}
