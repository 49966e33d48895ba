package core

// CategoryAmount is an expense total for one category.
type CategoryAmount struct {
	Category Category
	Amount   Money
}

// Summary holds the dashboard figures for the reference month.
type Summary struct {
	Year  int
	Month int // 1-12

	MonthlyIncome  Money
	MonthlyExpense Money
	Balance        Money

	InvestmentInitial Money
	InvestmentCurrent Money
	InvestmentProfit  Money
}

// referenceDate is the date an expense is attributed to: its due date when
// present, its transaction date otherwise. Income always uses the
// transaction date.
func referenceDate(t Transaction) Date {
	if t.Type == Expense && !t.DueDate.IsEmpty() {
		return t.DueDate
	}
	return t.Date
}

// Summarize computes the monthly income, expense and balance for the
// calendar month of the reference day, along with the investment totals.
func Summarize(txs []Transaction, invs []Investment, today Date) Summary {
	s := Summary{Year: today.Year(), Month: int(today.Month())}

	for _, t := range txs {
		switch t.Type {
		case Income:
			if t.Date.SameMonth(today) {
				s.MonthlyIncome = s.MonthlyIncome.Add(t.Amount)
			}
		case Expense:
			if referenceDate(t).SameMonth(today) {
				s.MonthlyExpense = s.MonthlyExpense.Add(t.Amount)
			}
		}
	}
	s.Balance = s.MonthlyIncome.Sub(s.MonthlyExpense)

	for _, inv := range invs {
		s.InvestmentInitial = s.InvestmentInitial.Add(inv.InitialValue)
		s.InvestmentCurrent = s.InvestmentCurrent.Add(inv.CurrentValue)
	}
	s.InvestmentProfit = s.InvestmentCurrent.Sub(s.InvestmentInitial)

	return s
}

// MonthExpenses returns the expense transactions attributed to the calendar
// month of the reference day.
func MonthExpenses(txs []Transaction, today Date) []Transaction {
	var out []Transaction
	for _, t := range txs {
		if t.Type == Expense && referenceDate(t).SameMonth(today) {
			out = append(out, t)
		}
	}
	return out
}

// CategoryBreakdown sums expense amounts per category for the given set.
// Categories appear in first-seen order; categories with no expenses are
// omitted.
func CategoryBreakdown(txs []Transaction) []CategoryAmount {
	totals := make(map[Category]int64)
	var order []Category
	for _, t := range txs {
		if t.Type != Expense {
			continue
		}
		if _, seen := totals[t.Category]; !seen {
			order = append(order, t.Category)
		}
		totals[t.Category] += t.Amount.Cents
	}
	out := make([]CategoryAmount, 0, len(order))
	for _, c := range order {
		out = append(out, CategoryAmount{Category: c, Amount: Money{Cents: totals[c]}})
	}
	return out
}

// dueSoonWindowDays is the look-ahead for payment reminders.
const dueSoonWindowDays = 7

// Notifications returns the payment reminders: every overdue transaction,
// followed by every pending one due within the next seven days (inclusive
// on both ends). Statuses are mutually exclusive, so no duplicates.
func Notifications(txs []Transaction, today Date) []Transaction {
	var out []Transaction
	for _, t := range txs {
		if t.Status == StatusOverdue {
			out = append(out, t)
		}
	}
	horizon := today.AddDays(dueSoonWindowDays)
	for _, t := range txs {
		if t.Status != StatusPending || t.DueDate.IsEmpty() {
			continue
		}
		if !t.DueDate.Before(today.Time) && !t.DueDate.After(horizon.Time) {
			out = append(out, t)
		}
	}
	return out
}

// recentActivityLimit caps the dashboard's latest-transactions list.
const recentActivityLimit = 5

// RecentActivity is the combined ledger listing truncated for the dashboard:
// recurring groups collapse to their representative, the merged list is
// sorted by date descending, and at most five entries are returned.
func RecentActivity(txs []Transaction, today Date) []Entry {
	entries := GroupLedger(txs, today)
	if len(entries) > recentActivityLimit {
		entries = entries[:recentActivityLimit]
	}
	return entries
}
