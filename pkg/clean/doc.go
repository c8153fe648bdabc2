// Package clean implements the tabular cleaning pipeline.
//
// A pipeline run applies a fixed sequence of steps to a core.Table and returns
// a new table; the input is never modified:
//
//	deduplicate → fill_missing → filter_outliers → sanitize_text →
//	normalize_dates → derive_columns → validate → drop_sparse
//
// Column behaviour is driven by a Schema inferred once from column names and
// kinds at the start of the run (identifier, email, amount, date, text,
// numeric), so individual steps never inspect column names themselves.
//
// Basic usage:
//
//	out, err := clean.Clean(tbl, clean.DefaultOptions())
//	var verr *clean.ValidationError
//	if errors.As(err, &verr) {
//	    // the table violated a cleaning rule; no output is produced
//	}
//
// Use New to get a Pipeline that also reports per-step row and column counts.
package clean
