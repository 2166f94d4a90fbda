// Package sheets defines the outbound port for mirroring transactions
// to a spreadsheet, with a Google Sheets adapter and an in-memory one
// for tests.
package sheets

import (
	"context"

	"fintrack/internal/core"
)

// RowWriter mirrors transaction records into a spreadsheet.
type RowWriter interface {
	// Append writes one record and returns a reference to the written
	// row.
	Append(ctx context.Context, t core.Transaction) (rowRef string, err error)

	// Remove clears the row holding the record with the given ID. A
	// record that was never mirrored is not an error.
	Remove(ctx context.Context, transactionID string) error
}
