// Package memory is an in-memory sheets.RowWriter for tests and local
// development without Google credentials.
package memory

import (
	"context"
	"fmt"
	"sync"

	"fintrack/internal/core"
	"fintrack/internal/sheets"
)

// Row is one mirrored record.
type Row struct {
	TransactionID string
	AccountID     string
	Kind          string
	Date          string
	Category      string
	Amount        string
	Description   string
}

// Writer collects appended rows. FailNext makes the next n Append calls
// fail, which the worker tests use to exercise the retry path.
type Writer struct {
	mu       sync.Mutex
	rows     []Row
	FailNext int
}

var _ sheets.RowWriter = (*Writer)(nil)

func NewWriter() *Writer {
	return &Writer{}
}

func (w *Writer) Append(_ context.Context, t core.Transaction) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.FailNext > 0 {
		w.FailNext--
		return "", fmt.Errorf("simulated append failure")
	}

	w.rows = append(w.rows, Row{
		TransactionID: t.ID,
		AccountID:     t.AccountID,
		Kind:          string(t.Kind),
		Date:          t.Date.Format("2006-01-02"),
		Category:      t.Category,
		Amount:        t.Amount.String(),
		Description:   t.Description,
	})
	return fmt.Sprintf("memory!A%d", len(w.rows)), nil
}

func (w *Writer) Remove(_ context.Context, transactionID string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	kept := w.rows[:0]
	for _, r := range w.rows {
		if r.TransactionID != transactionID {
			kept = append(kept, r)
		}
	}
	w.rows = kept
	return nil
}

// Rows returns a copy of everything appended so far.
func (w *Writer) Rows() []Row {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]Row, len(w.rows))
	copy(out, w.rows)
	return out
}
