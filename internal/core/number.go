package core

import (
	"fmt"
	"strconv"
	"strings"
)

// Invoice numbers have the form "<year>-<sequence>" with the sequence
// zero-padded to at least three digits ("2025-003"). Uniqueness and
// monotonic increase are scoped per calendar year; the sequence resets
// each January because the lookup filters by year prefix.

// FormatInvoiceNumber renders year and sequence. Padding grows beyond
// three digits once the value exceeds 999; it is never truncated.
func FormatInvoiceNumber(year, sequence int) string {
	return fmt.Sprintf("%d-%03d", year, sequence)
}

// SequenceSuffix extracts the numeric sequence from an invoice number
// for the given year. Numbers from other years or with a malformed
// suffix report ok=false.
func SequenceSuffix(number string, year int) (seq int, ok bool) {
	prefix := strconv.Itoa(year) + "-"
	rest, found := strings.CutPrefix(number, prefix)
	if !found || rest == "" {
		return 0, false
	}
	n, err := strconv.Atoi(rest)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// NextInvoiceNumber computes the next sequential number from the set of
// existing numbers. Cross-year numbers are ignored; an empty set yields
// "<year>-001". This is a pure preview — persisted allocation goes
// through the storage layer's atomic per-year sequence, which wins under
// concurrent creation.
func NextInvoiceNumber(existing []string, year int) string {
	max := 0
	for _, num := range existing {
		if seq, ok := SequenceSuffix(num, year); ok && seq > max {
			max = seq
		}
	}
	return FormatInvoiceNumber(year, max+1)
}
