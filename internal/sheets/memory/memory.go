package memory

import (
	"context"
	"fmt"
	"sync"

	"fintrack/internal/sheets"
)

// Writer keeps exported rows in memory. Used when no spreadsheet is
// configured and in tests.
type Writer struct {
	mu   sync.Mutex
	rows []sheets.ProjectionRow
}

var _ sheets.ProjectionWriter = (*Writer)(nil)

func New() *Writer { return &Writer{} }

// AppendProjection stores rows and returns a synthetic row reference.
func (w *Writer) AppendProjection(ctx context.Context, rows []sheets.ProjectionRow) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	start := len(w.rows) + 1
	w.rows = append(w.rows, rows...)
	return fmt.Sprintf("mem:%d-%d", start, len(w.rows)), nil
}

// Rows returns a copy of everything written so far.
func (w *Writer) Rows() []sheets.ProjectionRow {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]sheets.ProjectionRow(nil), w.rows...)
}
