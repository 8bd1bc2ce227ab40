package cellwire

import (
	"github.com/tuannm99/cellstore/internal/dberr"
	"github.com/tuannm99/cellstore/internal/sql/statement"
)

// ExecuteRequest is a single statement batch request.
type ExecuteRequest struct {
	ID   uint64 `json:"id"`
	Stmt string `json:"stmt"`
}

// StatementResult is one statement's outcome with the row stream drained.
type StatementResult struct {
	Message  string   `json:"message,omitempty"`
	RowCount int      `json:"row_count,omitempty"`
	Columns  []string `json:"columns,omitempty"`
	Rows     [][]any  `json:"rows,omitempty"`
}

// ExecuteResponse answers a request ID with per-statement results or an
// error plus its category.
type ExecuteResponse struct {
	ID       uint64            `json:"id"`
	Results  []StatementResult `json:"results,omitempty"`
	Error    string            `json:"error,omitempty"`
	Category string            `json:"category,omitempty"`
}

// errorResponse builds the failure response for a request.
func errorResponse(id uint64, err error) ExecuteResponse {
	return ExecuteResponse{
		ID:       id,
		Error:    err.Error(),
		Category: dberr.Category(err),
	}
}

// toWire drains each result's row stream into a transportable form.
func toWire(results []*statement.Result) ([]StatementResult, error) {
	out := make([]StatementResult, 0, len(results))
	for _, r := range results {
		rows, err := statement.Collect(r)
		if err != nil {
			return nil, err
		}
		count := r.RowCount
		if rows != nil {
			count = len(rows)
		}
		out = append(out, StatementResult{
			Message:  r.Message,
			RowCount: count,
			Columns:  r.Columns,
			Rows:     rows,
		})
	}
	return out, nil
}
