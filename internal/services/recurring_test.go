package services

import (
	"context"
	"testing"
	"time"

	"rechnerei/internal/core"
)

func TestProcessDueExecutesDueTransactions(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	_, err := repo.CreateRecurringTransaction(ctx, core.RecurringTransaction{
		StartDate:   time.Date(2025, 9, 1, 0, 0, 0, 0, time.Local),
		Every:       core.Monthly,
		Description: "Studio Miete",
		Amount:      core.Money{Cents: 45000},
		Type:        core.Expense,
		Category:    "Miete",
	})
	if err != nil {
		t.Fatalf("CreateRecurringTransaction: %v", err)
	}

	now := time.Date(2025, 10, 1, 8, 0, 0, 0, time.Local)
	processor := NewRecurringProcessor(repo)

	count, err := processor.ProcessDue(ctx, now)
	if err != nil {
		t.Fatalf("ProcessDue: %v", err)
	}
	if count != 1 {
		t.Fatalf("processed = %d, want 1", count)
	}

	transactions, err := repo.ListTransactionsInRange(ctx,
		time.Date(2025, 10, 1, 0, 0, 0, 0, time.Local),
		time.Date(2025, 11, 1, 0, 0, 0, 0, time.Local))
	if err != nil {
		t.Fatalf("ListTransactionsInRange: %v", err)
	}
	if len(transactions) != 1 {
		t.Fatalf("got %d transactions, want 1", len(transactions))
	}
	if transactions[0].Description != "Studio Miete" || transactions[0].Amount.Cents != 45000 {
		t.Errorf("transaction = %+v", transactions[0])
	}

	// The same day must not book twice.
	count, err = processor.ProcessDue(ctx, now)
	if err != nil {
		t.Fatalf("second ProcessDue: %v", err)
	}
	if count != 0 {
		t.Errorf("second run processed = %d, want 0", count)
	}
}

func TestProcessDueSkipsOutsideWindow(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	_, err := repo.CreateRecurringTransaction(ctx, core.RecurringTransaction{
		StartDate:   time.Date(2025, 11, 1, 0, 0, 0, 0, time.Local),
		Every:       core.Monthly,
		Description: "Hosting",
		Amount:      core.Money{Cents: 1500},
		Type:        core.Expense,
		Category:    "IT",
	})
	if err != nil {
		t.Fatalf("CreateRecurringTransaction: %v", err)
	}

	processor := NewRecurringProcessor(repo)
	count, err := processor.ProcessDue(ctx, time.Date(2025, 10, 1, 8, 0, 0, 0, time.Local))
	if err != nil {
		t.Fatalf("ProcessDue: %v", err)
	}
	if count != 0 {
		t.Errorf("processed before start date = %d, want 0", count)
	}
}
