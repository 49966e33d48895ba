package core

// StatusOnCreate derives the initial status of a transaction from its type
// and due date, relative to the reference day:
//
//   - income is settled immediately
//   - an expense without a due date is settled immediately
//   - an expense due before today starts overdue, otherwise pending
//
// An expense due exactly today is pending, not overdue.
func StatusOnCreate(typ TransactionType, dueDate Date, today Date) Status {
	if typ == Income {
		return StatusIncomeSettled
	}
	if dueDate.IsEmpty() {
		return StatusExpenseSettled
	}
	if dueDate.Before(today.Time) {
		return StatusOverdue
	}
	return StatusPending
}

// Normalize recomputes a pending transaction whose due date has passed to
// overdue. All other statuses are left untouched; in particular a paid
// transaction never reverts. Safe to call on every read.
func (t Transaction) Normalize(today Date) Transaction {
	if t.Status == StatusPending && !t.DueDate.IsEmpty() && t.DueDate.Before(today.Time) {
		t.Status = StatusOverdue
	}
	return t
}

// NormalizeAll returns a copy of the list with every status normalized
// against the reference day. The input slice is not mutated.
func NormalizeAll(txs []Transaction, today Date) []Transaction {
	out := make([]Transaction, len(txs))
	for i, t := range txs {
		out[i] = t.Normalize(today)
	}
	return out
}

// MarkPaid transitions a pending or overdue transaction to paid. Marking an
// already paid transaction is a no-op; settled transactions are not payable.
func (t Transaction) MarkPaid() (Transaction, error) {
	switch t.Status {
	case StatusPending, StatusOverdue:
		t.Status = StatusPaid
		return t, nil
	case StatusPaid:
		return t, nil
	default:
		return t, ErrNotPayable
	}
}
