package ingest

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/toyohara-midori/dcin/internal/core/apperror"
	"github.com/toyohara-midori/dcin/pkg/logger"
	"github.com/toyohara-midori/dcin/pkg/sequence"
)

// ChunkWriter commits one chunk to the ledgers. Implemented by
// voucher.Writer; kept as an interface here so the pipeline stays
// independent of the ledger schema.
type ChunkWriter interface {
	WriteChunk(ctx context.Context, batchID, userID string, c Chunk) error
}

// Service drives the five-stage pipeline: parse/enrich, stage, bulk check,
// chunk, commit.
type Service struct {
	validator *Validator
	staging   StagingStore
	checker   BulkChecker
	gate      *HoursGate
	writer    ChunkWriter
}

// NewService wires the pipeline.
func NewService(validator *Validator, staging StagingStore, checker BulkChecker, gate *HoursGate, writer ChunkWriter) *Service {
	return &Service{
		validator: validator,
		staging:   staging,
		checker:   checker,
		gate:      gate,
		writer:    writer,
	}
}

// StageResult reports a successful staging.
type StageResult struct {
	BatchID  string `json:"batchId"`
	RowCount int    `json:"rowCount"`
}

// Stage parses, validates and enriches the uploaded file and stages the
// batch for userID, replacing any batch that user had staged before.
//
// The gate check here is advisory; Commit re-checks authoritatively.
// Staging is all-or-nothing: a single bad row rejects the whole upload with
// the complete error list.
func (s *Service) Stage(ctx context.Context, mode Mode, userID string, file []byte) (*StageResult, error) {
	if err := s.gate.Check(ctx, mode); err != nil {
		return nil, err
	}

	text, err := DecodeUpload(file)
	if err != nil {
		return nil, err
	}

	raw, err := ParseRows(text)
	if err != nil {
		return nil, err
	}

	rows, rowErrs := s.validator.EnrichRows(ctx, raw)
	if len(rowErrs) > 0 {
		return nil, apperror.NewRowErrors(rowErrs)
	}

	batchID := uuid.NewString()
	if err := s.staging.Stage(ctx, batchID, userID, rows); err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("stage batch: %w", err))
	}

	logger.Info(ctx, "batch staged",
		"batch_id", batchID,
		"user_id", userID,
		"rows", len(rows),
		"mode", mode)

	return &StageResult{BatchID: batchID, RowCount: len(rows)}, nil
}

// ConfirmResult is what the confirmation screen renders: every staged row,
// bad ones annotated inline, plus the batch-level error flag.
type ConfirmResult struct {
	BatchID   string      `json:"batchId"`
	HasErrors bool        `json:"hasErrors"`
	Rows      []StagedRow `json:"rows"`
}

// Confirm runs the bulk business-rule check against the staged rows and
// returns the full annotated list. It never stops at the first failure.
func (s *Service) Confirm(ctx context.Context, batchID string, mode Mode) (*ConfirmResult, error) {
	hasErrors, rows, err := s.checker.Check(ctx, batchID, mode)
	if err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("bulk check: %w", err))
	}
	if len(rows) == 0 {
		return nil, apperror.NewNotFound("batch", batchID)
	}
	return &ConfirmResult{BatchID: batchID, HasErrors: hasErrors, Rows: rows}, nil
}

// Commit turns the staged batch into numbered vouchers.
//
// The reception window is re-checked authoritatively and the bulk check is
// re-run; any outstanding row error refuses the commit. Each chunk commits
// in its own transaction: a failure aborts the remaining chunks but leaves
// earlier ones committed, and the batch stays staged so the user can retry
// without re-uploading.
func (s *Service) Commit(ctx context.Context, batchID, userID string, mode Mode) (int, error) {
	if err := s.gate.Check(ctx, mode); err != nil {
		return 0, err
	}

	hasErrors, rows, err := s.checker.Check(ctx, batchID, mode)
	if err != nil {
		return 0, apperror.NewInternal(fmt.Errorf("bulk check: %w", err))
	}
	if len(rows) == 0 {
		return 0, apperror.NewNotFound("batch", batchID)
	}
	if hasErrors {
		return 0, apperror.NewBusinessRule(apperror.CodeBatchHasErrors,
			"batch has outstanding row errors and cannot be committed")
	}

	chunks := BuildChunks(rows)

	for i, c := range chunks {
		if err := s.writer.WriteChunk(ctx, batchID, userID, c); err != nil {
			if errors.Is(err, sequence.ErrBusy) {
				return i, apperror.NewNumberingBusy().WithCause(err).
					WithDetail("committed_chunks", i)
			}
			return i, apperror.NewBusinessRule(apperror.CodeCommitFailed,
				"commit failed; the batch remains staged, please retry").
				WithCause(err).
				WithDetail("committed_chunks", i)
		}
	}

	if err := s.staging.Discard(ctx, batchID); err != nil {
		// The vouchers are written; a failed cleanup must not fail the
		// commit. The next staging by this user overwrites the leftovers.
		logger.Warn(ctx, "staged batch cleanup failed", "batch_id", batchID, "error", err)
	}

	logger.Info(ctx, "batch committed",
		"batch_id", batchID,
		"user_id", userID,
		"vouchers", len(chunks))

	return len(chunks), nil
}

// Discard abandons a staged batch.
func (s *Service) Discard(ctx context.Context, batchID string) error {
	if err := s.staging.Discard(ctx, batchID); err != nil {
		return apperror.NewInternal(fmt.Errorf("discard batch: %w", err))
	}
	return nil
}
