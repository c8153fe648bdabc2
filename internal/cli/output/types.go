package output

// RunEvent is one JSON line emitted by `run --json`.
type RunEvent struct {
	Event     string   `json:"event"`
	Timestamp string   `json:"timestamp"`
	RunID     string   `json:"run_id,omitempty"`
	Jobs      []string `json:"jobs,omitempty"`
	Job       string   `json:"job,omitempty"`
	Status    string   `json:"status,omitempty"`
	Attempts  int      `json:"attempts,omitempty"`
	RowsIn    int64    `json:"rows_in,omitempty"`
	RowsOut   int64    `json:"rows_out,omitempty"`
	Error     string   `json:"error,omitempty"`

	// run_complete only
	TotalJobs  int   `json:"total_jobs,omitempty"`
	Successful int   `json:"successful,omitempty"`
	Failed     int   `json:"failed,omitempty"`
	Skipped    int   `json:"skipped,omitempty"`
	TotalMS    int64 `json:"total_ms,omitempty"`
}

// DAGOutput is the JSON form of the job graph.
type DAGOutput struct {
	Levels    []DAGLevel `json:"levels"`
	TotalJobs int        `json:"total_jobs"`
	TotalDeps int        `json:"total_dependencies"`
}

// DAGLevel groups jobs that can run in parallel.
type DAGLevel struct {
	Level int       `json:"level"`
	Jobs  []DAGNode `json:"jobs"`
}

// DAGNode is one job in the graph.
type DAGNode struct {
	Name      string   `json:"name"`
	Source    string   `json:"source"`
	Sink      string   `json:"sink"`
	DependsOn []string `json:"depends_on,omitempty"`
	UsedBy    []string `json:"used_by,omitempty"`
}

// CleanOutput is the JSON form of a `clean` result.
type CleanOutput struct {
	Input   string       `json:"input"`
	Output  string       `json:"output"`
	RowsIn  int          `json:"rows_in"`
	RowsOut int          `json:"rows_out"`
	Steps   []StepOutput `json:"steps"`
	Dropped []string     `json:"dropped_columns,omitempty"`
}

// StepOutput is one cleaning step of a report.
type StepOutput struct {
	Step       string `json:"step"`
	RowsIn     int    `json:"rows_in"`
	RowsOut    int    `json:"rows_out"`
	ColsIn     int    `json:"cols_in"`
	ColsOut    int    `json:"cols_out"`
	DurationMS int64  `json:"duration_ms"`
}

// PreviewOutput is the JSON form of a table preview.
type PreviewOutput struct {
	Source    string              `json:"source"`
	TotalRows int                 `json:"total_rows"`
	Columns   []PreviewColumn     `json:"columns"`
	Rows      []map[string]string `json:"rows"`
}

// PreviewColumn describes one previewed column.
type PreviewColumn struct {
	Name    string `json:"name"`
	Kind    string `json:"kind"`
	Missing int    `json:"missing"`
}
