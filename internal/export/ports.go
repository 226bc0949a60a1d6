// Package export defines the outbound port for the bookkeeping ledger.
// The google subpackage writes to a spreadsheet, the memory subpackage
// backs tests.
package export

import (
	"context"
	"time"
)

// LedgerRow is one exported bookkeeping line. Cents is signed the same
// way as in the finance ledger: income positive, expenses negative.
type LedgerRow struct {
	Date        time.Time
	Description string
	Cents       int64
	Category    string
	Source      string // "Rechnung" or "Buchung"
}

type LedgerWriter interface {
	AppendRow(ctx context.Context, row LedgerRow) error
}
