package models

// Row is one result row keyed by column name.
type Row map[string]any

// ResultSet holds rows together with the column order the server returned.
type ResultSet struct {
	Columns []string `json:"columns" yaml:"columns"`
	Rows    []Row    `json:"rows" yaml:"rows"`
}

// RowCount returns the number of rows, tolerating a nil receiver.
func (r *ResultSet) RowCount() int {
	if r == nil {
		return 0
	}
	return len(r.Rows)
}

// StatementStatus is the outcome of one generated statement in an ask.
type StatementStatus string

const (
	StatementSucceeded StatementStatus = "succeeded"
	StatementRejected  StatementStatus = "rejected" // filtered by the safety validator, never sent
	StatementFailed    StatementStatus = "failed"
)

// StatementResult records what happened to one generated SQL statement.
type StatementResult struct {
	SQL       string          `json:"sql"`
	Status    StatementStatus `json:"status"`
	Columns   []string        `json:"columns,omitempty"`
	Rows      []Row           `json:"rows,omitempty"`
	RowCount  int             `json:"row_count"`
	ErrorKind string          `json:"error_kind,omitempty"`
	Error     string          `json:"error,omitempty"`
}

// AskRequest is one natural-language question against one database.
type AskRequest struct {
	Prompt     string           `json:"prompt"`
	Connection ConnectionConfig `json:"connection"`
}

// AskResult is everything an ask produced.
type AskResult struct {
	RequestID   string            `json:"request_id"`
	Prompt      string            `json:"prompt"`
	Schema      *SchemaGraph      `json:"schema,omitempty"`
	Statements  []StatementResult `json:"statements"`
	Summary     string            `json:"summary"`
	Suggestions []string          `json:"suggestions"`
}
