package voucher

import (
	"context"
	"fmt"

	"github.com/toyohara-midori/dcin/internal/core/tx"
	"github.com/toyohara-midori/dcin/internal/ingest"
	"github.com/toyohara-midori/dcin/pkg/logger"
	"github.com/toyohara-midori/dcin/pkg/sequence"
)

// Writer commits chunks to the ledgers: one transaction per chunk covering
// the purchase rows, the optional discount rows and the batch-log entry.
//
// Document numbers are issued outside the chunk transaction, under the
// allocator's own short critical section. A rolled-back chunk therefore
// burns its numbers; the counters never move backwards.
type Writer struct {
	repo      LedgerRepository
	alloc     *sequence.Allocator
	txManager tx.Manager
}

var _ ingest.ChunkWriter = (*Writer)(nil)

// NewWriter creates a ledger writer.
func NewWriter(repo LedgerRepository, alloc *sequence.Allocator, txManager tx.Manager) *Writer {
	return &Writer{repo: repo, alloc: alloc, txManager: txManager}
}

// WriteChunk commits one chunk.
//
// On any failure the chunk's transaction rolls back as a whole and the
// error propagates; the caller aborts the rest of the batch. Chunks already
// committed by earlier calls stay committed.
func (w *Writer) WriteChunk(ctx context.Context, batchID, userID string, c ingest.Chunk) error {
	purchaseNo, err := w.alloc.NextNumber(ctx, sequence.SeriesPurchase)
	if err != nil {
		return fmt.Errorf("allocate purchase number: %w", err)
	}

	v := FromChunk(purchaseNo, userID, c)

	var discount *DiscountVoucher
	if c.DiscountSum().IsPositive() {
		discountNo, err := w.alloc.NextNumber(ctx, sequence.SeriesDiscount)
		if err != nil {
			return fmt.Errorf("allocate discount number: %w", err)
		}
		discount = &DiscountVoucher{
			Number:     discountNo,
			PurchaseNo: purchaseNo,
			Center:     c.Key.Center,
			Lines:      DiscountLinesFor(c),
		}
	}

	entry := BatchLogEntry{
		BatchID:    batchID,
		UserID:     userID,
		PurchaseNo: purchaseNo,
		Center:     c.Key.Center,
	}
	if discount != nil {
		entry.DiscountNo = discount.Number
	}

	err = w.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := w.repo.InsertVoucher(ctx, v); err != nil {
			return fmt.Errorf("insert voucher %s: %w", purchaseNo, err)
		}
		if discount != nil {
			if err := w.repo.InsertDiscount(ctx, *discount); err != nil {
				return fmt.Errorf("insert discount %s: %w", discount.Number, err)
			}
		}
		if err := w.repo.InsertBatchLog(ctx, entry); err != nil {
			return fmt.Errorf("insert batch log: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	logger.Info(ctx, "chunk committed",
		"batch_id", batchID,
		"voucher_no", purchaseNo,
		"discount_no", entry.DiscountNo,
		"center", c.Key.Center,
		"lines", len(c.Rows))

	return nil
}
