// Package gateway defines the persistence ports the core depends on. The
// tracker never mutates its own snapshot: it issues mutations through these
// interfaces and re-derives every view from the collections the store hands
// back. Conflict resolution between concurrent sessions is the store's
// problem (last write wins); no merge logic lives above this boundary.
package gateway

import (
	"context"
	"errors"

	"fintrack/internal/core"
)

// ErrNotFound is returned by stores when the targeted record does not exist.
var ErrNotFound = errors.New("record not found")

type (
	// Loader returns a full replacement snapshot of both collections.
	Loader interface {
		LoadCollections(ctx context.Context) ([]core.Transaction, []core.Investment, error)
	}

	// Snapshot is what a live subscription pushes on every change.
	Snapshot struct {
		Transactions []core.Transaction
		Investments  []core.Investment
	}

	// Subscriber is an optional capability: stores that can push change
	// notifications implement it. The returned cancel function detaches
	// the listener.
	Subscriber interface {
		Subscribe(fn func(Snapshot)) (cancel func())
	}

	// TransactionStore accepts fire-and-forget transaction mutations.
	// Records arrive fully formed (id and status already assigned).
	TransactionStore interface {
		CreateTransaction(ctx context.Context, tx core.Transaction) error
		// CreateTransactionGroup persists a whole installment batch
		// atomically; a partially written group must never be observable.
		CreateTransactionGroup(ctx context.Context, txs []core.Transaction) error
		UpdateTransaction(ctx context.Context, tx core.Transaction) error
		DeleteTransaction(ctx context.Context, id string) error
		// DeleteTransactionGroup removes every transaction sharing the
		// recurring group id in one atomic operation.
		DeleteTransactionGroup(ctx context.Context, groupID string) error
		// AdjustTransactionAmount adds delta cents to one transaction.
		AdjustTransactionAmount(ctx context.Context, id string, delta core.Money) error
		SetTransactionStatus(ctx context.Context, id string, status core.Status) error
	}

	InvestmentStore interface {
		CreateInvestment(ctx context.Context, inv core.Investment) error
		DeleteInvestment(ctx context.Context, id string) error
	}

	// Replacer swaps both collections in one atomic operation; used by
	// document import.
	Replacer interface {
		ReplaceAll(ctx context.Context, txs []core.Transaction, invs []core.Investment) error
	}

	// Store is the full persistence gateway contract.
	Store interface {
		Loader
		TransactionStore
		InvestmentStore
		Replacer
	}
)
