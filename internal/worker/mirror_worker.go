// Package worker consumes ledger events and mirrors them to a spreadsheet.
package worker

import (
	"context"
	"fmt"
	"log/slog"

	"cashplet/internal/amqp"
	"cashplet/internal/sheets"
)

// MirrorWorker turns consumed ledger events into mirror rows. Handler
// errors propagate so the consumer can nack and requeue.
type MirrorWorker struct {
	mirror sheets.RecordMirror
}

func NewMirrorWorker(mirror sheets.RecordMirror) *MirrorWorker {
	return &MirrorWorker{mirror: mirror}
}

// HandleLedgerEvent mirrors one event. Used as the AMQP consume handler.
func (w *MirrorWorker) HandleLedgerEvent(ctx context.Context, msg *amqp.LedgerEventMessage) error {
	slog.InfoContext(ctx, "Processing ledger event",
		"op", msg.Op,
		"record_id", msg.RecordID)

	row := sheets.Row{
		Op:        msg.Op,
		RecordID:  msg.RecordID,
		Owner:     msg.Owner,
		Amount:    msg.Amount,
		Kind:      msg.Kind,
		Category:  msg.Category,
		AccountID: msg.AccountID,
		Note:      msg.Note,
		Timestamp: msg.Timestamp,
	}

	if err := w.mirror.MirrorRow(ctx, row); err != nil {
		return fmt.Errorf("mirror ledger event: %w", err)
	}

	slog.InfoContext(ctx, "Mirrored ledger event",
		"op", msg.Op,
		"record_id", msg.RecordID)
	return nil
}
