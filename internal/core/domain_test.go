package core

import (
	"encoding/json"
	"testing"
)

func validTransaction() Transaction {
	return Transaction{
		ID:          "t1",
		Description: "Groceries",
		Amount:      Money{Cents: 2500},
		Type:        Expense,
		Category:    CategoryFood,
		Date:        NewDate(2024, 1, 5),
		Status:      StatusExpenseSettled,
	}
}

func TestTransactionValidate(t *testing.T) {
	if err := validTransaction().Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*Transaction)
	}{
		{"empty description", func(tx *Transaction) { tx.Description = "  " }},
		{"zero amount", func(tx *Transaction) { tx.Amount = Money{} }},
		{"negative amount", func(tx *Transaction) { tx.Amount = Money{Cents: -100} }},
		{"bad type", func(tx *Transaction) { tx.Type = "transfer" }},
		{"bad category", func(tx *Transaction) { tx.Category = "Misc" }},
		{"missing date", func(tx *Transaction) { tx.Date = Date{} }},
		{"bad status", func(tx *Transaction) { tx.Status = "open" }},
		{"income with due date", func(tx *Transaction) {
			tx.Type = Income
			tx.Status = StatusIncomeSettled
			tx.DueDate = NewDate(2024, 2, 1)
		}},
		{"installment without due date", func(tx *Transaction) { tx.RecurringGroupID = "g" }},
	}
	for _, tc := range cases {
		tx := validTransaction()
		tc.mutate(&tx)
		if err := tx.Validate(); err == nil {
			t.Fatalf("%s: expected error", tc.name)
		}
	}
}

func TestInvestmentValidate(t *testing.T) {
	good := Investment{
		ID: "i1", Name: "Index fund", Type: InvestmentStocks,
		InitialValue: Money{Cents: 100000}, CurrentValue: Money{Cents: 110000},
		PurchaseDate: NewDate(2023, 6, 1),
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := []Investment{
		{Name: "", Type: InvestmentStocks, InitialValue: Money{Cents: 1}, CurrentValue: Money{Cents: 1}, PurchaseDate: NewDate(2023, 1, 1)},
		{Name: "x", Type: "Bonds", InitialValue: Money{Cents: 1}, CurrentValue: Money{Cents: 1}, PurchaseDate: NewDate(2023, 1, 1)},
		{Name: "x", Type: InvestmentCrypto, InitialValue: Money{}, CurrentValue: Money{Cents: 1}, PurchaseDate: NewDate(2023, 1, 1)},
		{Name: "x", Type: InvestmentCrypto, InitialValue: Money{Cents: 1}, CurrentValue: Money{}, PurchaseDate: NewDate(2023, 1, 1)},
		{Name: "x", Type: InvestmentCrypto, InitialValue: Money{Cents: 1}, CurrentValue: Money{Cents: 1}},
	}
	for i, inv := range bads {
		if err := inv.Validate(); err == nil {
			t.Fatalf("case %d: expected error", i)
		}
	}
}

func TestDateJSONRoundTrip(t *testing.T) {
	d := NewDate(2024, 1, 15)
	data, err := json.Marshal(d)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != `"2024-01-15"` {
		t.Fatalf("marshal form %s", data)
	}
	var back Date
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !back.Equal(d.Time) {
		t.Fatalf("round trip mismatch: %s != %s", back, d)
	}
}

func TestDateParseLegacyTimestamps(t *testing.T) {
	// Documents exported by the original client carried full timestamps.
	d, err := ParseDate("2024-01-15T03:00:00.000Z")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if d.String() != "2024-01-15" {
		t.Fatalf("got %s", d)
	}

	if _, err := ParseDate("15/01/2024"); err == nil {
		t.Fatalf("expected error for unsupported format")
	}
}

func TestEmptyDateMarshalsAsNull(t *testing.T) {
	data, err := json.Marshal(Date{})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != "null" {
		t.Fatalf("got %s, want null", data)
	}
	var d Date
	if err := json.Unmarshal([]byte("null"), &d); err != nil {
		t.Fatalf("unmarshal null: %v", err)
	}
	if !d.IsEmpty() {
		t.Fatalf("expected empty date")
	}
}

func TestDateAddMonths(t *testing.T) {
	cases := []struct {
		start Date
		n     int
		want  string
	}{
		{NewDate(2024, 1, 15), 1, "2024-02-15"},
		{NewDate(2024, 12, 15), 1, "2025-01-15"}, // year rollover
		{NewDate(2024, 1, 31), 1, "2024-03-02"},  // Feb overflow, leap year
		{NewDate(2023, 1, 31), 1, "2023-03-03"},  // Feb overflow, common year
	}
	for _, tc := range cases {
		if got := tc.start.AddMonths(tc.n).String(); got != tc.want {
			t.Fatalf("%s + %d months = %s, want %s", tc.start, tc.n, got, tc.want)
		}
	}
}
