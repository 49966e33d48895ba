package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
	"fintrack/internal/gateway"
)

// OverdueSweeper persists the Pending to Overdue transition for past-due
// expenses. Reads already normalize statuses on the fly, so the sweep is an
// optimization that keeps the stored rows honest for other consumers.
type OverdueSweeper struct {
	store  gateway.Store
	events EventPublisher
}

func NewOverdueSweeper(store gateway.Store, events EventPublisher) *OverdueSweeper {
	return &OverdueSweeper{store: store, events: events}
}

// Sweep flips every stored pending transaction whose due date is before the
// reference day to overdue, and reports how many rows changed. One change
// event is published when anything moved.
func (w *OverdueSweeper) Sweep(ctx context.Context, now time.Time) (int, error) {
	txs, _, err := w.store.LoadCollections(ctx)
	if err != nil {
		return 0, fmt.Errorf("load collections: %w", err)
	}

	today := core.DayOf(now)
	swept := 0
	for _, t := range txs {
		normalized := t.Normalize(today)
		if normalized.Status == t.Status {
			continue
		}
		if err := w.store.SetTransactionStatus(ctx, t.ID, normalized.Status); err != nil {
			return swept, fmt.Errorf("set status of %s: %w", t.ID, err)
		}
		swept++
	}

	if swept > 0 {
		slog.InfoContext(ctx, "Swept overdue transactions", "count", swept)
		if w.events != nil {
			if err := w.events.PublishLedgerEvent(ctx, amqp.ChangeStatusSwept, "", ""); err != nil {
				slog.ErrorContext(ctx, "Failed to publish sweep event", "error", err)
			}
		}
	}
	return swept, nil
}
