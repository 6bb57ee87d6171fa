package types

import (
	"context"
)

// SpreadsheetQueue is the values API the queue is stored behind.
// Ranges use A1 notation with a sheet name, e.g. "Scrape Requests!A:E".
type SpreadsheetQueue interface {
	// Get returns the rows of a range. Trailing empty rows and cells are omitted.
	Get(ctx context.Context, a1Range string) ([][]string, error)
	// Append adds rows after the last non-empty row of the range. Existing rows are never overwritten.
	Append(ctx context.Context, a1Range string, rows [][]string) error
	// Update writes rows starting at the top-left cell of the range.
	Update(ctx context.Context, a1Range string, rows [][]string) error
}
