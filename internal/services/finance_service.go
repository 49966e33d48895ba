// Package services orchestrates the ledger operations: validation, id
// assignment, status derivation, persistence, and change-event publication.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
	"fintrack/internal/gateway"
	"fintrack/internal/interchange"
)

// EventPublisher is the slice of the AMQP client the service needs.
// A nil publisher disables events without disabling the service.
type EventPublisher interface {
	PublishLedgerEvent(ctx context.Context, kind, entityID, groupID string) error
}

var (
	ErrNonPositiveDelta = errors.New("adjustment delta must be positive")
	ErrInvalidDocument  = errors.New("invalid backup document")
)

// TransactionInput carries the user-editable fields of a transaction.
// IDs and statuses are never accepted from callers; the service derives them.
type TransactionInput struct {
	Description string
	Amount      core.Money
	Type        core.TransactionType
	Category    core.Category
	Date        core.Date
	DueDate     core.Date
}

// RecurringInput is a monthly installment plan submission.
type RecurringInput struct {
	Description  string
	Amount       core.Money
	Category     core.Category
	Date         core.Date
	FirstDueDate core.Date
	Installments int
}

// InvestmentInput carries the user-editable fields of an investment.
type InvestmentInput struct {
	Name         string
	Type         core.InvestmentType
	InitialValue core.Money
	CurrentValue core.Money
	PurchaseDate core.Date
}

// FinanceService coordinates the store and the event publisher. Persistence
// comes first; a failed event publish is logged and never fails the request.
type FinanceService struct {
	store  gateway.Store
	events EventPublisher
	now    func() time.Time
}

// Option customizes a FinanceService.
type Option func(*FinanceService)

// WithClock replaces the wall clock; tests pin it for deterministic status
// derivation.
func WithClock(now func() time.Time) Option {
	return func(s *FinanceService) { s.now = now }
}

func NewFinanceService(store gateway.Store, events EventPublisher, opts ...Option) *FinanceService {
	s := &FinanceService{
		store:  store,
		events: events,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *FinanceService) today() core.Date {
	return core.DayOf(s.now())
}

// CreateTransaction validates the input, assigns an id, derives the initial
// status, and persists a single transaction.
func (s *FinanceService) CreateTransaction(ctx context.Context, in TransactionInput) (string, error) {
	tx := core.Transaction{
		ID:          uuid.NewString(),
		Description: in.Description,
		Amount:      in.Amount,
		Type:        in.Type,
		Category:    in.Category,
		Date:        in.Date,
		DueDate:     in.DueDate,
		Status:      core.StatusOnCreate(in.Type, in.DueDate, s.today()),
	}
	if err := tx.Validate(); err != nil {
		return "", fmt.Errorf("validate transaction: %w", err)
	}
	if err := s.store.CreateTransaction(ctx, tx); err != nil {
		return "", fmt.Errorf("save transaction: %w", err)
	}
	s.publish(ctx, amqp.ChangeTransactionCreated, tx.ID, "")
	return tx.ID, nil
}

// CreateRecurring expands a submission into its installments and persists
// them as one batch. Either every installment is saved or none is.
func (s *FinanceService) CreateRecurring(ctx context.Context, in RecurringInput) ([]string, error) {
	groupID := uuid.NewString()
	txs, err := core.ExpandInstallments(core.RecurringSubmission{
		Description:  in.Description,
		Amount:       in.Amount,
		Category:     in.Category,
		Date:         in.Date,
		FirstDueDate: in.FirstDueDate,
		Installments: in.Installments,
	}, groupID, s.today())
	if err != nil {
		return nil, fmt.Errorf("expand installments: %w", err)
	}

	ids := make([]string, len(txs))
	for i := range txs {
		txs[i].ID = uuid.NewString()
		ids[i] = txs[i].ID
	}
	if err := s.store.CreateTransactionGroup(ctx, txs); err != nil {
		return nil, fmt.Errorf("save installment group: %w", err)
	}
	s.publish(ctx, amqp.ChangeGroupCreated, "", groupID)
	return ids, nil
}

// UpdateTransaction replaces the editable fields of an existing transaction.
// Status is re-derived from the new type and due date unless the transaction
// was already paid; payment survives edits.
func (s *FinanceService) UpdateTransaction(ctx context.Context, id string, in TransactionInput) error {
	existing, err := s.findTransaction(ctx, id)
	if err != nil {
		return err
	}

	updated := existing
	updated.Description = in.Description
	updated.Amount = in.Amount
	updated.Type = in.Type
	updated.Category = in.Category
	updated.Date = in.Date
	updated.DueDate = in.DueDate
	if existing.Status != core.StatusPaid {
		updated.Status = core.StatusOnCreate(in.Type, in.DueDate, s.today())
	}
	if err := updated.Validate(); err != nil {
		return fmt.Errorf("validate transaction: %w", err)
	}
	if err := s.store.UpdateTransaction(ctx, updated); err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}
	s.publish(ctx, amqp.ChangeTransactionUpdated, id, "")
	return nil
}

// DeleteTransaction removes one transaction by id.
func (s *FinanceService) DeleteTransaction(ctx context.Context, id string) error {
	if err := s.store.DeleteTransaction(ctx, id); err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	s.publish(ctx, amqp.ChangeTransactionDeleted, id, "")
	return nil
}

// DeleteGroup removes every installment of a recurring group at once.
func (s *FinanceService) DeleteGroup(ctx context.Context, groupID string) error {
	if err := s.store.DeleteTransactionGroup(ctx, groupID); err != nil {
		return fmt.Errorf("delete group: %w", err)
	}
	s.publish(ctx, amqp.ChangeGroupDeleted, "", groupID)
	return nil
}

// AdjustAmount adds a positive delta to a single transaction's amount.
// Installment siblings in the same group are never touched.
func (s *FinanceService) AdjustAmount(ctx context.Context, id string, delta core.Money) error {
	if delta.Cents <= 0 {
		return ErrNonPositiveDelta
	}
	if err := s.store.AdjustTransactionAmount(ctx, id, delta); err != nil {
		return fmt.Errorf("adjust amount: %w", err)
	}
	s.publish(ctx, amqp.ChangeTransactionUpdated, id, "")
	return nil
}

// MarkPaid settles a pending or overdue transaction. Marking a transaction
// that is already paid is a no-op and publishes nothing.
func (s *FinanceService) MarkPaid(ctx context.Context, id string) error {
	existing, err := s.findTransaction(ctx, id)
	if err != nil {
		return err
	}

	paid, err := existing.MarkPaid()
	if err != nil {
		return fmt.Errorf("mark paid: %w", err)
	}
	if paid.Status == existing.Status {
		return nil
	}
	if err := s.store.SetTransactionStatus(ctx, id, paid.Status); err != nil {
		return fmt.Errorf("persist paid status: %w", err)
	}
	s.publish(ctx, amqp.ChangeTransactionUpdated, id, "")
	return nil
}

// CreateInvestment validates and persists a new investment.
func (s *FinanceService) CreateInvestment(ctx context.Context, in InvestmentInput) (string, error) {
	inv := core.Investment{
		ID:           uuid.NewString(),
		Name:         in.Name,
		Type:         in.Type,
		InitialValue: in.InitialValue,
		CurrentValue: in.CurrentValue,
		PurchaseDate: in.PurchaseDate,
	}
	if err := inv.Validate(); err != nil {
		return "", fmt.Errorf("validate investment: %w", err)
	}
	if err := s.store.CreateInvestment(ctx, inv); err != nil {
		return "", fmt.Errorf("save investment: %w", err)
	}
	s.publish(ctx, amqp.ChangeInvestmentCreated, inv.ID, "")
	return inv.ID, nil
}

// DeleteInvestment removes one investment by id.
func (s *FinanceService) DeleteInvestment(ctx context.Context, id string) error {
	if err := s.store.DeleteInvestment(ctx, id); err != nil {
		return fmt.Errorf("delete investment: %w", err)
	}
	s.publish(ctx, amqp.ChangeInvestmentDeleted, id, "")
	return nil
}

// Snapshot loads both collections with statuses normalized against today.
// The persisted rows are untouched; the sweeper owns persisted recomputes.
func (s *FinanceService) Snapshot(ctx context.Context) ([]core.Transaction, []core.Investment, error) {
	txs, invs, err := s.store.LoadCollections(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("load collections: %w", err)
	}
	return core.NormalizeAll(txs, s.today()), invs, nil
}

// Export renders the current collections as a backup document.
func (s *FinanceService) Export(ctx context.Context) ([]byte, error) {
	txs, invs, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return interchange.Export(txs, invs)
}

// Import replaces both collections with the contents of a backup document.
// A document that fails validation is rejected whole.
func (s *FinanceService) Import(ctx context.Context, data []byte) error {
	txs, invs, err := interchange.Import(data)
	if err != nil {
		return errors.Join(ErrInvalidDocument, err)
	}
	if err := s.store.ReplaceAll(ctx, txs, invs); err != nil {
		return fmt.Errorf("replace collections: %w", err)
	}
	s.publish(ctx, amqp.ChangeImported, "", "")
	return nil
}

func (s *FinanceService) findTransaction(ctx context.Context, id string) (core.Transaction, error) {
	txs, _, err := s.store.LoadCollections(ctx)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("load collections: %w", err)
	}
	for _, t := range txs {
		if t.ID == id {
			return t.Normalize(s.today()), nil
		}
	}
	return core.Transaction{}, fmt.Errorf("transaction %s: %w", id, gateway.ErrNotFound)
}

func (s *FinanceService) publish(ctx context.Context, kind, entityID, groupID string) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishLedgerEvent(ctx, kind, entityID, groupID); err != nil {
		slog.ErrorContext(ctx, "Failed to publish ledger event",
			"kind", kind,
			"entity_id", entityID,
			"group_id", groupID,
			"error", err)
	}
}
