// Package worker mirrors saved transactions into the spreadsheet,
// driven by AMQP messages with a periodic pending scan as backup.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
	"fintrack/internal/sheets"
	"fintrack/internal/storage"
)

// SyncWorker pushes pending transactions to the sheet.
type SyncWorker struct {
	storage     *storage.Repository
	sheet       sheets.RowWriter
	backoff     time.Duration
	maxAttempts int
	batchSize   int
}

func NewSyncWorker(st *storage.Repository, sheet sheets.RowWriter, backoff time.Duration, maxAttempts int) *SyncWorker {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &SyncWorker{
		storage:     st,
		sheet:       sheet,
		backoff:     backoff,
		maxAttempts: maxAttempts,
		batchSize:   50,
	}
}

// HandleSyncMessage processes one queue message. Messages for records
// that no longer exist are dropped; a record that keeps failing its
// upload is marked so it does not poison the queue.
func (w *SyncWorker) HandleSyncMessage(ctx context.Context, msg *amqp.SyncMessage) error {
	slog.InfoContext(ctx, "Processing sync message",
		"transaction_id", msg.TransactionID,
		"event", msg.Event,
		"version", msg.Version)

	if msg.Event == amqp.EventDeleted {
		if err := w.sheet.Remove(ctx, msg.TransactionID); err != nil {
			return fmt.Errorf("remove sheet row: %w", err)
		}
		return nil
	}

	t, err := w.storage.GetTransaction(ctx, msg.TransactionID)
	if errors.Is(err, core.ErrNotFound) {
		// Deleted between publish and delivery.
		slog.WarnContext(ctx, "Transaction gone, dropping sync message",
			"transaction_id", msg.TransactionID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("load transaction: %w", err)
	}

	if err := w.upload(ctx, t); err != nil {
		if ctx.Err() != nil {
			return err
		}
		// The record is flagged sync_status=error; requeueing the
		// message would just loop on the same failure.
		return nil
	}
	return nil
}

// upload appends the record with bounded retries and fixed backoff,
// then records the outcome on the row.
func (w *SyncWorker) upload(ctx context.Context, t core.Transaction) error {
	var lastErr error
	for attempt := 1; attempt <= w.maxAttempts; attempt++ {
		ref, err := w.sheet.Append(ctx, t)
		if err == nil {
			if err := w.storage.MarkSynced(ctx, t.ID, t.Version); err != nil {
				// The upload itself worked; the pending scan will retry
				// the bookkeeping.
				slog.ErrorContext(ctx, "Failed to mark transaction synced",
					"transaction_id", t.ID, "error", err)
			}
			slog.InfoContext(ctx, "Transaction mirrored to sheet",
				"transaction_id", t.ID,
				"sheet_ref", ref,
				"attempt", attempt)
			return nil
		}

		lastErr = err
		slog.WarnContext(ctx, "Sheet append failed",
			"transaction_id", t.ID,
			"attempt", attempt,
			"max_attempts", w.maxAttempts,
			"error", err)

		if attempt < w.maxAttempts {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(w.backoff):
			}
		}
	}

	if err := w.storage.MarkSyncError(ctx, t.ID); err != nil {
		slog.ErrorContext(ctx, "Failed to mark sync error",
			"transaction_id", t.ID, "error", err)
	}
	return fmt.Errorf("append to sheet after %d attempts: %w", w.maxAttempts, lastErr)
}

// ProcessPending uploads records still waiting for sync. This is the
// backup path for messages lost while the worker was down.
func (w *SyncWorker) ProcessPending(ctx context.Context) error {
	pending, err := w.storage.GetPendingSync(ctx, w.batchSize)
	if err != nil {
		return fmt.Errorf("get pending transactions: %w", err)
	}
	if len(pending) == 0 {
		return nil
	}

	slog.InfoContext(ctx, "Processing pending transactions", "count", len(pending))

	for _, t := range pending {
		if err := w.upload(ctx, t); err != nil {
			slog.ErrorContext(ctx, "Failed to sync pending transaction",
				"transaction_id", t.ID, "error", err)
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	return nil
}

// RunPendingScan runs ProcessPending on an interval until ctx ends. An
// immediate first pass recovers anything missed while the worker was
// down.
func (w *SyncWorker) RunPendingScan(ctx context.Context, interval time.Duration) error {
	if err := w.ProcessPending(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.ErrorContext(ctx, "Startup pending scan failed", "error", err)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := w.ProcessPending(ctx); err != nil && !errors.Is(err, context.Canceled) {
				slog.ErrorContext(ctx, "Pending scan failed", "error", err)
			}
		}
	}
}
