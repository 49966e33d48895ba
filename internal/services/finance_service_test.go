package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/gateway"
	"fintrack/internal/gateway/memory"
)

// fakePublisher records published events and can be told to fail.
type fakePublisher struct {
	kinds []string
	err   error
}

func (p *fakePublisher) PublishLedgerEvent(_ context.Context, kind, _, _ string) error {
	if p.err != nil {
		return p.err
	}
	p.kinds = append(p.kinds, kind)
	return nil
}

func newFixture(t *testing.T) (*FinanceService, *memory.Store, *fakePublisher) {
	t.Helper()
	store := memory.New()
	pub := &fakePublisher{}
	svc := NewFinanceService(store, pub)
	svc.now = func() time.Time {
		return time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)
	}
	return svc, store, pub
}

func TestCreateTransactionDerivesStatus(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name  string
		input TransactionInput
		want  core.Status
	}{
		{
			name: "income settles immediately",
			input: TransactionInput{
				Description: "Salary", Amount: core.Money{Cents: 500000},
				Type: core.Income, Category: core.CategorySalary,
				Date: core.NewDate(2024, 3, 1),
			},
			want: core.StatusIncomeSettled,
		},
		{
			name: "expense without due date settles immediately",
			input: TransactionInput{
				Description: "Groceries", Amount: core.Money{Cents: 4500},
				Type: core.Expense, Category: core.CategoryFood,
				Date: core.NewDate(2024, 3, 2),
			},
			want: core.StatusExpenseSettled,
		},
		{
			name: "expense due in the future is pending",
			input: TransactionInput{
				Description: "Rent", Amount: core.Money{Cents: 120000},
				Type: core.Expense, Category: core.CategoryHousing,
				Date: core.NewDate(2024, 3, 2), DueDate: core.NewDate(2024, 3, 20),
			},
			want: core.StatusPending,
		},
		{
			name: "expense already past due is overdue",
			input: TransactionInput{
				Description: "Bill", Amount: core.Money{Cents: 8000},
				Type: core.Expense, Category: core.CategoryOther,
				Date: core.NewDate(2024, 2, 1), DueDate: core.NewDate(2024, 2, 20),
			},
			want: core.StatusOverdue,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, store, _ := newFixture(t)
			id, err := svc.CreateTransaction(ctx, tt.input)
			if err != nil {
				t.Fatalf("create: %v", err)
			}
			if id == "" {
				t.Fatal("expected a generated id")
			}
			txs, _, _ := store.LoadCollections(ctx)
			if len(txs) != 1 || txs[0].Status != tt.want {
				t.Fatalf("stored status = %s, want %s", txs[0].Status, tt.want)
			}
		})
	}
}

func TestCreateTransactionRejectsInvalidInput(t *testing.T) {
	svc, store, pub := newFixture(t)
	_, err := svc.CreateTransaction(context.Background(), TransactionInput{
		Description: "", Amount: core.Money{Cents: 100},
		Type: core.Expense, Category: core.CategoryOther,
		Date: core.NewDate(2024, 3, 1),
	})
	if !errors.Is(err, core.ErrEmptyDescription) {
		t.Fatalf("expected validation error, got %v", err)
	}
	txs, _, _ := store.LoadCollections(context.Background())
	if len(txs) != 0 {
		t.Fatal("nothing should be stored on validation failure")
	}
	if len(pub.kinds) != 0 {
		t.Fatal("nothing should be published on validation failure")
	}
}

func TestCreateRecurringPersistsWholeGroup(t *testing.T) {
	ctx := context.Background()
	svc, store, pub := newFixture(t)

	ids, err := svc.CreateRecurring(ctx, RecurringInput{
		Description: "Car loan", Amount: core.Money{Cents: 30000},
		Category: core.CategoryDebts,
		Date:     core.NewDate(2024, 3, 10), FirstDueDate: core.NewDate(2024, 3, 15),
		Installments: 3,
	})
	if err != nil {
		t.Fatalf("create recurring: %v", err)
	}
	if len(ids) != 3 {
		t.Fatalf("expected 3 ids, got %d", len(ids))
	}

	txs, _, _ := store.LoadCollections(ctx)
	if len(txs) != 3 {
		t.Fatalf("expected 3 stored installments, got %d", len(txs))
	}
	group := txs[0].RecurringGroupID
	for i, tx := range txs {
		if tx.RecurringGroupID != group {
			t.Fatalf("installment %d has group %q, want %q", i, tx.RecurringGroupID, group)
		}
		if tx.Amount.Cents != 30000 {
			t.Fatalf("installment %d amount %d, want the full 30000", i, tx.Amount.Cents)
		}
		if tx.ID != ids[i] {
			t.Fatalf("stored id %q does not match returned id %q", tx.ID, ids[i])
		}
	}
	if len(pub.kinds) != 1 || pub.kinds[0] != "group.created" {
		t.Fatalf("expected one group.created event, got %v", pub.kinds)
	}
}

func TestCreateRecurringRejectsSingleInstallment(t *testing.T) {
	svc, _, _ := newFixture(t)
	_, err := svc.CreateRecurring(context.Background(), RecurringInput{
		Description: "One-off", Amount: core.Money{Cents: 100},
		Category: core.CategoryOther,
		Date:     core.NewDate(2024, 3, 10), FirstDueDate: core.NewDate(2024, 3, 15),
		Installments: 1,
	})
	if !errors.Is(err, core.ErrTooFewInstallments) {
		t.Fatalf("expected ErrTooFewInstallments, got %v", err)
	}
}

func TestUpdateTransactionRederivesStatus(t *testing.T) {
	ctx := context.Background()
	svc, store, _ := newFixture(t)
	store.Seed([]core.Transaction{{
		ID: "t1", Description: "Bill", Amount: core.Money{Cents: 8000},
		Type: core.Expense, Category: core.CategoryOther,
		Date: core.NewDate(2024, 3, 1), DueDate: core.NewDate(2024, 3, 20),
		Status: core.StatusPending,
	}}, nil)

	// Moving the due date into the past flips the status to overdue.
	err := svc.UpdateTransaction(ctx, "t1", TransactionInput{
		Description: "Bill", Amount: core.Money{Cents: 8000},
		Type: core.Expense, Category: core.CategoryOther,
		Date: core.NewDate(2024, 3, 1), DueDate: core.NewDate(2024, 3, 5),
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	txs, _, _ := store.LoadCollections(ctx)
	if txs[0].Status != core.StatusOverdue {
		t.Fatalf("status = %s, want overdue", txs[0].Status)
	}
}

func TestUpdateTransactionKeepsPaidStatus(t *testing.T) {
	ctx := context.Background()
	svc, store, _ := newFixture(t)
	store.Seed([]core.Transaction{{
		ID: "t1", Description: "Bill", Amount: core.Money{Cents: 8000},
		Type: core.Expense, Category: core.CategoryOther,
		Date: core.NewDate(2024, 3, 1), DueDate: core.NewDate(2024, 3, 20),
		Status: core.StatusPaid,
	}}, nil)

	err := svc.UpdateTransaction(ctx, "t1", TransactionInput{
		Description: "Bill revised", Amount: core.Money{Cents: 9000},
		Type: core.Expense, Category: core.CategoryOther,
		Date: core.NewDate(2024, 3, 1), DueDate: core.NewDate(2024, 4, 20),
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	txs, _, _ := store.LoadCollections(ctx)
	if txs[0].Status != core.StatusPaid {
		t.Fatalf("payment should survive edits, got %s", txs[0].Status)
	}
	if txs[0].Description != "Bill revised" || txs[0].Amount.Cents != 9000 {
		t.Fatalf("fields not updated: %+v", txs[0])
	}
}

func TestUpdateTransactionNotFound(t *testing.T) {
	svc, _, _ := newFixture(t)
	err := svc.UpdateTransaction(context.Background(), "missing", TransactionInput{
		Description: "x", Amount: core.Money{Cents: 100},
		Type: core.Expense, Category: core.CategoryOther,
		Date: core.NewDate(2024, 3, 1),
	})
	if !errors.Is(err, gateway.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMarkPaid(t *testing.T) {
	ctx := context.Background()
	svc, store, pub := newFixture(t)
	store.Seed([]core.Transaction{
		{
			ID: "pending", Description: "Rent", Amount: core.Money{Cents: 120000},
			Type: core.Expense, Category: core.CategoryHousing,
			Date: core.NewDate(2024, 3, 1), DueDate: core.NewDate(2024, 3, 20),
			Status: core.StatusPending,
		},
		{
			ID: "settled", Description: "Groceries", Amount: core.Money{Cents: 4500},
			Type: core.Expense, Category: core.CategoryFood,
			Date: core.NewDate(2024, 3, 2), Status: core.StatusExpenseSettled,
		},
	}, nil)

	if err := svc.MarkPaid(ctx, "pending"); err != nil {
		t.Fatalf("mark paid: %v", err)
	}
	txs, _, _ := store.LoadCollections(ctx)
	if txs[0].Status != core.StatusPaid {
		t.Fatalf("status = %s, want paid", txs[0].Status)
	}
	if len(pub.kinds) != 1 {
		t.Fatalf("expected one event, got %v", pub.kinds)
	}

	// Paying again is a no-op and publishes nothing.
	if err := svc.MarkPaid(ctx, "pending"); err != nil {
		t.Fatalf("second mark paid: %v", err)
	}
	if len(pub.kinds) != 1 {
		t.Fatalf("no-op should not publish, got %v", pub.kinds)
	}

	if err := svc.MarkPaid(ctx, "settled"); !errors.Is(err, core.ErrNotPayable) {
		t.Fatalf("expected ErrNotPayable, got %v", err)
	}
}

func TestAdjustAmountRequiresPositiveDelta(t *testing.T) {
	ctx := context.Background()
	svc, store, _ := newFixture(t)
	store.Seed([]core.Transaction{{
		ID: "t1", Description: "Loan (1/2)", Amount: core.Money{Cents: 10000},
		Type: core.Expense, Category: core.CategoryDebts,
		Date: core.NewDate(2024, 3, 1), DueDate: core.NewDate(2024, 3, 20),
		RecurringGroupID: "g1", InstallmentIndex: 1, InstallmentCount: 2,
		Status: core.StatusPending,
	}}, nil)

	if err := svc.AdjustAmount(ctx, "t1", core.Money{Cents: 0}); !errors.Is(err, ErrNonPositiveDelta) {
		t.Fatalf("expected ErrNonPositiveDelta, got %v", err)
	}
	if err := svc.AdjustAmount(ctx, "t1", core.Money{Cents: -500}); !errors.Is(err, ErrNonPositiveDelta) {
		t.Fatalf("expected ErrNonPositiveDelta, got %v", err)
	}

	if err := svc.AdjustAmount(ctx, "t1", core.Money{Cents: 2500}); err != nil {
		t.Fatalf("adjust: %v", err)
	}
	txs, _, _ := store.LoadCollections(ctx)
	if txs[0].Amount.Cents != 12500 {
		t.Fatalf("amount = %d, want 12500", txs[0].Amount.Cents)
	}
}

func TestDeleteGroupNotFound(t *testing.T) {
	svc, _, pub := newFixture(t)
	if err := svc.DeleteGroup(context.Background(), "missing"); !errors.Is(err, gateway.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if len(pub.kinds) != 0 {
		t.Fatal("failed delete should not publish")
	}
}

func TestSnapshotNormalizesStatuses(t *testing.T) {
	ctx := context.Background()
	svc, store, _ := newFixture(t)
	store.Seed([]core.Transaction{{
		ID: "t1", Description: "Bill", Amount: core.Money{Cents: 8000},
		Type: core.Expense, Category: core.CategoryOther,
		Date: core.NewDate(2024, 2, 1), DueDate: core.NewDate(2024, 2, 20),
		Status: core.StatusPending,
	}}, nil)

	txs, _, err := svc.Snapshot(ctx)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if txs[0].Status != core.StatusOverdue {
		t.Fatalf("snapshot status = %s, want overdue", txs[0].Status)
	}

	// The stored row is untouched; only the sweeper persists the flip.
	stored, _, _ := store.LoadCollections(ctx)
	if stored[0].Status != core.StatusPending {
		t.Fatalf("stored status changed to %s", stored[0].Status)
	}
}

func TestExportImportRoundTrip(t *testing.T) {
	ctx := context.Background()
	svc, store, _ := newFixture(t)
	store.Seed([]core.Transaction{{
		ID: "t1", Description: "Salary", Amount: core.Money{Cents: 500000},
		Type: core.Income, Category: core.CategorySalary,
		Date: core.NewDate(2024, 3, 1), Status: core.StatusIncomeSettled,
	}}, []core.Investment{{
		ID: "i1", Name: "Fund", Type: core.InvestmentStocks,
		InitialValue: core.Money{Cents: 100000}, CurrentValue: core.Money{Cents: 110000},
		PurchaseDate: core.NewDate(2023, 6, 1),
	}})

	data, err := svc.Export(ctx)
	if err != nil {
		t.Fatalf("export: %v", err)
	}

	// Import into a fresh store.
	svc2, store2, _ := newFixture(t)
	store2.Seed([]core.Transaction{{
		ID: "stale", Description: "Old", Amount: core.Money{Cents: 1},
		Type: core.Expense, Category: core.CategoryOther,
		Date: core.NewDate(2020, 1, 1), Status: core.StatusExpenseSettled,
	}}, nil)

	if err := svc2.Import(ctx, data); err != nil {
		t.Fatalf("import: %v", err)
	}
	txs, invs, _ := store2.LoadCollections(ctx)
	if len(txs) != 1 || txs[0].ID != "t1" {
		t.Fatalf("import did not replace transactions: %+v", txs)
	}
	if len(invs) != 1 || invs[0].ID != "i1" {
		t.Fatalf("import did not replace investments: %+v", invs)
	}
}

func TestImportRejectsBadDocumentWithoutChanges(t *testing.T) {
	ctx := context.Background()
	svc, store, _ := newFixture(t)
	store.Seed([]core.Transaction{{
		ID: "keep", Description: "Keep", Amount: core.Money{Cents: 100},
		Type: core.Expense, Category: core.CategoryOther,
		Date: core.NewDate(2024, 1, 1), Status: core.StatusExpenseSettled,
	}}, nil)

	if err := svc.Import(ctx, []byte(`{"transactions": []}`)); err == nil {
		t.Fatal("expected an error for a document missing the investments key")
	}
	txs, _, _ := store.LoadCollections(ctx)
	if len(txs) != 1 || txs[0].ID != "keep" {
		t.Fatalf("failed import must not change state: %+v", txs)
	}
}

func TestPublishFailureDoesNotFailRequests(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	pub := &fakePublisher{err: errors.New("broker down")}
	svc := NewFinanceService(store, pub)

	id, err := svc.CreateTransaction(ctx, TransactionInput{
		Description: "Groceries", Amount: core.Money{Cents: 4500},
		Type: core.Expense, Category: core.CategoryFood,
		Date: core.NewDate(2024, 3, 2),
	})
	if err != nil {
		t.Fatalf("create should succeed despite publish failure: %v", err)
	}
	if id == "" {
		t.Fatal("expected an id")
	}
}

func TestNilPublisherIsAllowed(t *testing.T) {
	svc := NewFinanceService(memory.New(), nil)
	if _, err := svc.CreateTransaction(context.Background(), TransactionInput{
		Description: "Groceries", Amount: core.Money{Cents: 4500},
		Type: core.Expense, Category: core.CategoryFood,
		Date: core.NewDate(2024, 3, 2),
	}); err != nil {
		t.Fatalf("create with nil publisher: %v", err)
	}
}
