package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/toyohara-midori/dcin/pkg/sequence"
)

const (
	sequenceLockTable = "doc_sequence_lock"
	sequencesTable    = "doc_sequences"
)

// SequenceStore backs the numbering allocator with two small tables:
// doc_sequence_lock holds exactly one row whose holder column is '' when the
// lock is free, and doc_sequences keeps the last issued number per series.
//
// Mutual exclusion comes from the conditional UPDATE in TryAcquire; the
// database's row-level atomicity guarantees at most one caller wins.
type SequenceStore struct {
	txm *TxManager
}

var _ sequence.Store = (*SequenceStore)(nil)

// NewSequenceStore creates the numbering store.
func NewSequenceStore(txm *TxManager) *SequenceStore {
	return &SequenceStore{txm: txm}
}

// TryAcquire transitions the lock record from free to held by token. Returns
// false without error when another holder has it.
func (s *SequenceStore) TryAcquire(ctx context.Context, token string) (bool, error) {
	tag, err := s.txm.GetQuerier(ctx).Exec(ctx,
		"UPDATE "+sequenceLockTable+" SET holder = $1, acquired_at = CURRENT_TIMESTAMP WHERE holder = ''",
		token)
	if err != nil {
		return false, fmt.Errorf("try acquire: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// Release frees the lock only while it is still held by token. A release
// after losing the lock affects zero rows and is not an error.
func (s *SequenceStore) Release(ctx context.Context, token string) error {
	_, err := s.txm.GetQuerier(ctx).Exec(ctx,
		"UPDATE "+sequenceLockTable+" SET holder = '', acquired_at = NULL WHERE holder = $1",
		token)
	if err != nil {
		return fmt.Errorf("release: %w", err)
	}
	return nil
}

// ReadCounter returns the last number issued for the series.
func (s *SequenceStore) ReadCounter(ctx context.Context, series sequence.Series) (int64, error) {
	var last int64
	err := s.txm.GetQuerier(ctx).QueryRow(ctx,
		"SELECT last_no FROM "+sequencesTable+" WHERE series = $1",
		string(series)).Scan(&last)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, fmt.Errorf("series %q not seeded", series)
		}
		return 0, fmt.Errorf("read counter: %w", err)
	}
	return last, nil
}

// WriteCounter records the last number issued for the series.
func (s *SequenceStore) WriteCounter(ctx context.Context, series sequence.Series, value int64) error {
	tag, err := s.txm.GetQuerier(ctx).Exec(ctx,
		"UPDATE "+sequencesTable+" SET last_no = $2 WHERE series = $1",
		string(series), value)
	if err != nil {
		return fmt.Errorf("write counter: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("series %q not seeded", series)
	}
	return nil
}
