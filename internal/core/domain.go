package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	Income  TransactionType = "income"
	Expense TransactionType = "expense"
)

const (
	CategoryHousing     Category = "Housing"
	CategoryTransport   Category = "Transport"
	CategoryFood        Category = "Food"
	CategoryHealth      Category = "Health"
	CategoryLeisure     Category = "Leisure"
	CategoryEducation   Category = "Education"
	CategoryInvestments Category = "Investments"
	CategorySalary      Category = "Salary"
	CategoryDebts       Category = "Debts"
	CategoryOther       Category = "Other"
)

const (
	// StatusIncomeSettled is the terminal status of every income transaction.
	StatusIncomeSettled Status = "income_settled"
	// StatusExpenseSettled is the terminal status of an expense with no due date.
	StatusExpenseSettled Status = "expense_settled"
	StatusPending        Status = "pending"
	StatusOverdue        Status = "overdue"
	StatusPaid           Status = "paid"
)

const (
	InvestmentStocks          InvestmentType = "Stocks"
	InvestmentFixedIncome     InvestmentType = "FixedIncome"
	InvestmentRealEstateFunds InvestmentType = "RealEstateFunds"
	InvestmentCrypto          InvestmentType = "Crypto"
	InvestmentOther           InvestmentType = "Other"
)

type (
	TransactionType string
	Category        string
	Status          string
	InvestmentType  string

	// Date is a calendar day. Time-of-day is always midnight UTC; the zero
	// value means "no date".
	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	Transaction struct {
		ID          string          `json:"id"`
		Description string          `json:"description"`
		Amount      Money           `json:"amount"`
		Type        TransactionType `json:"type"`
		Category    Category        `json:"category"`
		Date        Date            `json:"date"`
		// DueDate is only meaningful for expenses; zero when absent.
		DueDate Date `json:"dueDate,omitempty"`
		// RecurringGroupID ties together all installments created from one
		// recurring submission; empty for singletons.
		RecurringGroupID string `json:"recurringGroupId,omitempty"`
		// InstallmentIndex is 1-based within the group; both fields are zero
		// for singletons.
		InstallmentIndex int    `json:"installmentIndex,omitempty"`
		InstallmentCount int    `json:"installmentCount,omitempty"`
		Status           Status `json:"status"`
	}

	Investment struct {
		ID           string         `json:"id"`
		Name         string         `json:"name"`
		Type         InvestmentType `json:"type"`
		InitialValue Money          `json:"initialValue"`
		CurrentValue Money          `json:"currentValue"`
		PurchaseDate Date           `json:"purchaseDate"`
	}
)

var (
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrEmptyDescription = errors.New("empty description")
	ErrInvalidType      = errors.New("invalid transaction type")
	ErrInvalidCategory  = errors.New("invalid category")
	ErrInvalidStatus    = errors.New("invalid status")
	ErrMissingDate      = errors.New("missing date")
	ErrMissingDueDate   = errors.New("missing due date")
	ErrNotPayable       = errors.New("transaction cannot be marked paid")
	ErrEmptyName        = errors.New("empty name")
)

// Categories lists every transaction category in display order.
var Categories = []Category{
	CategoryHousing, CategoryTransport, CategoryFood, CategoryHealth,
	CategoryLeisure, CategoryEducation, CategoryInvestments, CategorySalary,
	CategoryDebts, CategoryOther,
}

// InvestmentTypes lists every investment type in display order.
var InvestmentTypes = []InvestmentType{
	InvestmentStocks, InvestmentFixedIncome, InvestmentRealEstateFunds,
	InvestmentCrypto, InvestmentOther,
}

const dateFormat = "2006-01-02"

// NewDate creates a Date from year, month, day.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DayOf truncates an arbitrary instant to its calendar day.
func DayOf(t time.Time) Date {
	return NewDate(t.Year(), int(t.Month()), t.Day())
}

// IsEmpty returns true when no date was set.
func (d Date) IsEmpty() bool { return d.IsZero() }

// AddMonths advances the date by n calendar months using native date
// normalization: Jan 31 plus one month rolls into early March.
func (d Date) AddMonths(n int) Date {
	return Date{Time: d.AddDate(0, n, 0)}
}

// AddDays advances the date by n days.
func (d Date) AddDays(n int) Date {
	return Date{Time: d.AddDate(0, 0, n)}
}

// SameMonth reports whether two dates fall in the same calendar month and year.
func (d Date) SameMonth(x Date) bool {
	return d.Year() == x.Year() && d.Month() == x.Month()
}

func (d Date) String() string {
	if d.IsEmpty() {
		return ""
	}
	return d.Format(dateFormat)
}

// ParseDate accepts the canonical "2006-01-02" form and, for compatibility
// with documents exported by older clients, full RFC 3339 timestamps.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(dateFormat, s); err == nil {
		return DayOf(t), nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return DayOf(t), nil
	}
	return Date{}, fmt.Errorf("invalid date %q: want %q or RFC 3339", s, dateFormat)
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsEmpty() {
		return []byte("null"), nil
	}
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*d = Date{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

var (
	_ json.Marshaler   = Date{}
	_ json.Unmarshaler = (*Date)(nil)
)

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

// Add returns the sum of two amounts.
func (m Money) Add(x Money) Money { return Money{Cents: m.Cents + x.Cents} }

// Sub returns the difference of two amounts.
func (m Money) Sub(x Money) Money { return Money{Cents: m.Cents - x.Cents} }

func (t TransactionType) Valid() bool {
	return t == Income || t == Expense
}

func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

func (s Status) Valid() bool {
	switch s {
	case StatusIncomeSettled, StatusExpenseSettled, StatusPending, StatusOverdue, StatusPaid:
		return true
	}
	return false
}

func (it InvestmentType) Valid() bool {
	for _, known := range InvestmentTypes {
		if it == known {
			return true
		}
	}
	return false
}

func (t Transaction) Validate() error {
	if len(strings.TrimSpace(t.Description)) == 0 {
		return ErrEmptyDescription
	}
	if err := t.Amount.Validate(); err != nil {
		return err
	}
	if !t.Type.Valid() {
		return ErrInvalidType
	}
	if !t.Category.Valid() {
		return ErrInvalidCategory
	}
	if t.Date.IsEmpty() {
		return ErrMissingDate
	}
	if !t.Status.Valid() {
		return ErrInvalidStatus
	}
	if t.Type == Income && !t.DueDate.IsEmpty() {
		return errors.New("income transactions cannot carry a due date")
	}
	if t.RecurringGroupID != "" && t.DueDate.IsEmpty() {
		return ErrMissingDueDate
	}
	return nil
}

// IsInstallment reports whether the transaction belongs to a recurring group.
func (t Transaction) IsInstallment() bool { return t.RecurringGroupID != "" }

func (i Investment) Validate() error {
	if len(strings.TrimSpace(i.Name)) == 0 {
		return ErrEmptyName
	}
	if !i.Type.Valid() {
		return errors.New("invalid investment type")
	}
	if err := i.InitialValue.Validate(); err != nil {
		return fmt.Errorf("initial value: %w", err)
	}
	if err := i.CurrentValue.Validate(); err != nil {
		return fmt.Errorf("current value: %w", err)
	}
	if i.PurchaseDate.IsEmpty() {
		return ErrMissingDate
	}
	return nil
}

// Profit is currentValue minus initialValue; it may be negative.
func (i Investment) Profit() Money {
	return i.CurrentValue.Sub(i.InitialValue)
}

// ProfitPercent is the profit relative to the initial value, in percent.
// Zero when the initial value is zero.
func (i Investment) ProfitPercent() float64 {
	if i.InitialValue.Cents == 0 {
		return 0
	}
	return float64(i.Profit().Cents) / float64(i.InitialValue.Cents) * 100
}
