package core

import "testing"

func TestStatusOnCreate(t *testing.T) {
	today := NewDate(2024, 3, 15)
	cases := []struct {
		name string
		typ  TransactionType
		due  Date
		want Status
	}{
		{"income", Income, Date{}, StatusIncomeSettled},
		{"expense without due date", Expense, Date{}, StatusExpenseSettled},
		{"expense due in the future", Expense, NewDate(2024, 4, 1), StatusPending},
		{"expense due today", Expense, NewDate(2024, 3, 15), StatusPending},
		{"expense due yesterday", Expense, NewDate(2024, 3, 14), StatusOverdue},
	}
	for _, tc := range cases {
		if got := StatusOnCreate(tc.typ, tc.due, today); got != tc.want {
			t.Fatalf("%s: got %s, want %s", tc.name, got, tc.want)
		}
	}
}

func TestNormalizeMovesPastDuePendingToOverdue(t *testing.T) {
	tx := Transaction{
		ID: "t1", Description: "Electricity", Amount: Money{Cents: 5000},
		Type: Expense, Category: CategoryHousing,
		Date: NewDate(2024, 1, 1), DueDate: NewDate(2024, 1, 10),
		Status: StatusPending,
	}

	got := tx.Normalize(NewDate(2024, 1, 11))
	if got.Status != StatusOverdue {
		t.Fatalf("expected overdue after due date, got %s", got.Status)
	}

	// Due today stays pending.
	got = tx.Normalize(NewDate(2024, 1, 10))
	if got.Status != StatusPending {
		t.Fatalf("expected pending on the due day, got %s", got.Status)
	}
}

func TestNormalizeLeavesOtherStatusesAlone(t *testing.T) {
	today := NewDate(2024, 6, 1)
	for _, status := range []Status{StatusPaid, StatusIncomeSettled, StatusExpenseSettled, StatusOverdue} {
		tx := Transaction{Status: status, DueDate: NewDate(2024, 1, 1)}
		if got := tx.Normalize(today); got.Status != status {
			t.Fatalf("status %s changed to %s", status, got.Status)
		}
	}
}

func TestNormalizeAllDoesNotMutateInput(t *testing.T) {
	txs := []Transaction{
		{ID: "a", Status: StatusPending, DueDate: NewDate(2024, 1, 1)},
		{ID: "b", Status: StatusPaid},
	}
	out := NormalizeAll(txs, NewDate(2024, 2, 1))
	if out[0].Status != StatusOverdue {
		t.Fatalf("expected first transaction overdue, got %s", out[0].Status)
	}
	if txs[0].Status != StatusPending {
		t.Fatalf("input slice was mutated")
	}
}

func TestMarkPaid(t *testing.T) {
	for _, from := range []Status{StatusPending, StatusOverdue} {
		tx := Transaction{Status: from}
		got, err := tx.MarkPaid()
		if err != nil {
			t.Fatalf("mark paid from %s: %v", from, err)
		}
		if got.Status != StatusPaid {
			t.Fatalf("mark paid from %s: got %s", from, got.Status)
		}
	}
}

func TestMarkPaidIdempotent(t *testing.T) {
	tx := Transaction{Status: StatusPaid}
	got, err := tx.MarkPaid()
	if err != nil {
		t.Fatalf("marking a paid transaction should be a no-op, got %v", err)
	}
	if got.Status != StatusPaid {
		t.Fatalf("got %s, want paid", got.Status)
	}
}

func TestMarkPaidRejectsSettled(t *testing.T) {
	for _, status := range []Status{StatusIncomeSettled, StatusExpenseSettled} {
		tx := Transaction{Status: status}
		if _, err := tx.MarkPaid(); err == nil {
			t.Fatalf("expected error marking %s paid", status)
		}
	}
}
