// Package memory is an in-process export target used when no spreadsheet is
// configured, and by tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"fintrack/internal/core"
	ports "fintrack/internal/sheets"
)

var (
	_ ports.TransactionExporter = (*Exporter)(nil)
	_ ports.MonthLister         = (*Exporter)(nil)
)

type Exporter struct {
	mu   sync.Mutex
	rows map[string]ports.Row
	seq  int
}

func New() *Exporter {
	return &Exporter{rows: make(map[string]ports.Row)}
}

// ExportTransaction stores the row, replacing an earlier export of the same
// id, and returns a synthetic row reference.
func (e *Exporter) ExportTransaction(_ context.Context, row ports.Row) (string, error) {
	if row.ID == "" {
		return "", fmt.Errorf("row without id")
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.seq++
	e.rows[row.ID] = row
	return fmt.Sprintf("mem:%d", e.seq), nil
}

func (e *Exporter) RemoveTransaction(_ context.Context, id string, _ core.Date) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.rows, id)
	return nil
}

// ListMonth returns the rows of month sorted by date.
func (e *Exporter) ListMonth(_ context.Context, month core.Month) ([]ports.Row, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	var out []ports.Row
	for _, r := range e.rows {
		if r.Date.Month() == month {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// Len returns the number of exported rows.
func (e *Exporter) Len() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.rows)
}
