package core

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
)

// RecurringSubmission is one user request to create a monthly installment
// plan. Any expense with a due date may be submitted as recurring; there is
// no category restriction.
type RecurringSubmission struct {
	Description  string
	Amount       Money
	Category     Category
	Date         Date
	FirstDueDate Date
	Installments int
}

var ErrTooFewInstallments = errors.New("installment count must be at least 2")

// ExpandInstallments converts a recurring submission into its installment
// transactions. Every installment carries the full submitted amount (the
// amount is not divided), a due date one calendar month after the previous
// one, the shared group id, and a " (i/N)" description suffix. Month advance
// follows native date normalization; see Date.AddMonths.
//
// IDs are left empty; callers assign them when persisting. The returned
// transactions form one indivisible batch.
func ExpandInstallments(sub RecurringSubmission, groupID string, today Date) ([]Transaction, error) {
	if sub.Installments < 2 {
		return nil, ErrTooFewInstallments
	}
	if sub.FirstDueDate.IsEmpty() {
		return nil, ErrMissingDueDate
	}
	if groupID == "" {
		return nil, errors.New("missing recurring group id")
	}

	txs := make([]Transaction, 0, sub.Installments)
	for i := 0; i < sub.Installments; i++ {
		due := sub.FirstDueDate.AddMonths(i)
		tx := Transaction{
			Description:      fmt.Sprintf("%s (%d/%d)", sub.Description, i+1, sub.Installments),
			Amount:           sub.Amount,
			Type:             Expense,
			Category:         sub.Category,
			Date:             sub.Date,
			DueDate:          due,
			RecurringGroupID: groupID,
			InstallmentIndex: i + 1,
			InstallmentCount: sub.Installments,
			Status:           StatusOnCreate(Expense, due, today),
		}
		if err := tx.Validate(); err != nil {
			return nil, fmt.Errorf("installment %d: %w", i+1, err)
		}
		txs = append(txs, tx)
	}
	return txs, nil
}

// Entry is one row of the combined ledger listing: either a standalone
// transaction or a collapsed recurring group.
type Entry struct {
	// Representative is the transaction shown for the row. For groups its
	// description is collapsed to "base (Nx)".
	Representative Transaction
	// GroupID is empty for standalone transactions.
	GroupID string
	// Installments holds the group members in due-date ascending order;
	// nil for standalone transactions.
	Installments []Transaction
}

// Size returns the number of transactions behind the entry.
func (e Entry) Size() int {
	if e.GroupID == "" {
		return 1
	}
	return len(e.Installments)
}

var installmentSuffix = regexp.MustCompile(`\s\(\d+/\d+\)$`)

// BaseDescription strips a trailing " (i/N)" installment suffix.
func BaseDescription(desc string) string {
	return installmentSuffix.ReplaceAllString(desc, "")
}

// CollapsedLabel is the display description for a whole group: the base
// description with an "(Nx)" badge when the group has more than one member.
func CollapsedLabel(rep Transaction, size int) string {
	base := BaseDescription(rep.Description)
	if size > 1 {
		return fmt.Sprintf("%s (%dx)", base, size)
	}
	return base
}

// Representative picks the transaction that summarizes a recurring group,
// in priority order: the earliest pending installment not yet due, then the
// earliest overdue one, then the most recently paid one, then the first
// member. The group must already be sorted by due date ascending.
func Representative(group []Transaction, today Date) Transaction {
	for _, t := range group {
		if t.Status == StatusPending && !t.DueDate.IsEmpty() && !t.DueDate.Before(today.Time) {
			return t
		}
	}
	for _, t := range group {
		if t.Status == StatusOverdue {
			return t
		}
	}
	for i := len(group) - 1; i >= 0; i-- {
		if group[i].Status == StatusPaid {
			return group[i]
		}
	}
	return group[0]
}

// GroupLedger partitions transactions into standalone entries and recurring
// groups and merges them into one listing sorted by date descending. A
// group's position in the merged order is taken from its first installment.
// The input is not mutated.
func GroupLedger(txs []Transaction, today Date) []Entry {
	var singles []Transaction
	groups := make(map[string][]Transaction)
	var groupOrder []string

	for _, t := range txs {
		if !t.IsInstallment() {
			singles = append(singles, t)
			continue
		}
		if _, seen := groups[t.RecurringGroupID]; !seen {
			groupOrder = append(groupOrder, t.RecurringGroupID)
		}
		groups[t.RecurringGroupID] = append(groups[t.RecurringGroupID], t)
	}

	entries := make([]Entry, 0, len(singles)+len(groupOrder))
	for _, t := range singles {
		entries = append(entries, Entry{Representative: t})
	}
	for _, id := range groupOrder {
		group := append([]Transaction(nil), groups[id]...)
		sort.SliceStable(group, func(i, j int) bool {
			return group[i].DueDate.Before(group[j].DueDate.Time)
		})
		rep := Representative(group, today)
		rep.Description = CollapsedLabel(rep, len(group))
		entries = append(entries, Entry{
			Representative: rep,
			GroupID:        id,
			Installments:   group,
		})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[j].sortDate().Before(entries[i].sortDate().Time)
	})
	return entries
}

func (e Entry) sortDate() Date {
	if e.GroupID != "" && len(e.Installments) > 0 {
		return e.Installments[0].Date
	}
	return e.Representative.Date
}
