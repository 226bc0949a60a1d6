package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"rechnerei/internal/storage"
)

// RecurringProcessor materializes due recurring transactions into
// concrete ledger rows. The worker runs it once per tick.
type RecurringProcessor struct {
	repo *storage.Repository
}

func NewRecurringProcessor(repo *storage.Repository) *RecurringProcessor {
	return &RecurringProcessor{repo: repo}
}

// ProcessDue walks all recurring transactions and executes each one
// that is due at now. It returns how many were executed; a failure on
// one template does not stop the others.
func (p *RecurringProcessor) ProcessDue(ctx context.Context, now time.Time) (int, error) {
	recurring, err := p.repo.ListRecurringTransactions(ctx)
	if err != nil {
		return 0, fmt.Errorf("list recurring transactions: %w", err)
	}

	slog.InfoContext(ctx, "Processing recurring transactions",
		"total", len(recurring),
		"processing_date", now.Format("2006-01-02"))

	processed := 0
	for _, rt := range recurring {
		if now.Before(rt.StartDate) {
			continue
		}
		if !rt.EndDate.IsZero() && now.After(rt.EndDate.AddDate(0, 0, 1)) {
			continue
		}

		checker, err := GetDuenessChecker(rt.Every)
		if err != nil {
			slog.ErrorContext(ctx, "Skipping recurring transaction",
				"id", rt.ID, "error", err)
			continue
		}
		if !checker.IsDue(rt.LastExecution, now, rt.StartDate) {
			continue
		}

		if err := p.repo.ExecuteRecurringTransaction(ctx, rt, now.Format("2006-01-02")); err != nil {
			slog.ErrorContext(ctx, "Failed to execute recurring transaction",
				"id", rt.ID, "description", rt.Description, "error", err)
			continue
		}
		processed++
	}

	slog.InfoContext(ctx, "Recurring transaction processing complete",
		"processed", processed, "total_checked", len(recurring))
	return processed, nil
}
