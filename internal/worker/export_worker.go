// Package worker contains the background jobs consumed from AMQP and run
// on timers: the transaction export mirror, the recurring materializer, and
// the budget alert monitor.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"budgetgate/internal/amqp"
	"budgetgate/internal/core"
)

// TransactionGetter loads a committed transaction by ID.
type TransactionGetter interface {
	GetTransaction(ctx context.Context, id int64) (*core.Transaction, error)
}

// TransactionExporter mirrors a transaction into an external ledger.
type TransactionExporter interface {
	Append(ctx context.Context, tx core.Transaction) error
}

// ExportWorker consumes transaction-created events and mirrors each
// transaction into the export ledger. A nil exporter disables the mirror
// but still drains the queue so messages do not pile up.
type ExportWorker struct {
	store    TransactionGetter
	exporter TransactionExporter
}

func NewExportWorker(store TransactionGetter, exporter TransactionExporter) *ExportWorker {
	return &ExportWorker{store: store, exporter: exporter}
}

// HandleTransactionCreated processes one transaction-created event. The
// event carries only the ID; the row is always re-read from the store so
// the mirror reflects the committed state, not the message payload.
func (w *ExportWorker) HandleTransactionCreated(ctx context.Context, msg *amqp.TransactionCreatedMessage) error {
	tx, err := w.store.GetTransaction(ctx, msg.ID)
	if err != nil {
		return fmt.Errorf("get transaction %d: %w", msg.ID, err)
	}
	if tx == nil {
		// Deleted between publish and consume. Nothing to mirror.
		slog.WarnContext(ctx, "Transaction gone before export", "id", msg.ID)
		return nil
	}

	if w.exporter == nil {
		slog.InfoContext(ctx, "No exporter configured, skipping export", "id", msg.ID)
		return nil
	}

	if err := w.exporter.Append(ctx, *tx); err != nil {
		return fmt.Errorf("export transaction %d: %w", msg.ID, err)
	}

	slog.InfoContext(ctx, "Transaction exported",
		"id", tx.ID,
		"principal", string(tx.Owner),
		"amount_cents", tx.Amount.Cents,
		"lag", time.Since(msg.Timestamp).Round(time.Millisecond).String())
	return nil
}
