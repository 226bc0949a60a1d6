// Package memory is an in-process ledger writer for tests and local
// runs without a configured spreadsheet.
package memory

import (
	"context"
	"sync"

	"rechnerei/internal/export"
)

type Store struct {
	mu   sync.Mutex
	rows []export.LedgerRow
}

var _ export.LedgerWriter = (*Store)(nil)

func New() *Store {
	return &Store{}
}

func (s *Store) AppendRow(_ context.Context, row export.LedgerRow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = append(s.rows, row)
	return nil
}

// Rows returns a copy of everything appended so far.
func (s *Store) Rows() []export.LedgerRow {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]export.LedgerRow(nil), s.rows...)
}
