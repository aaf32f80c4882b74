// Package sequence provides document number allocation shared across many
// client processes.
//
// Correctness rests entirely on the store's conditional-update semantics:
// a single shared lock record guards both numbering series, and a number is
// only ever read-incremented-written while that lock is held. Lock hold
// time per number is one read plus one write; callers re-acquire for every
// number rather than holding the lock across a whole commit.
package sequence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/toyohara-midori/dcin/pkg/logger"
)

// Series is one of the two independent numbering sequences.
type Series string

const (
	SeriesPurchase Series = "purchase"
	SeriesDiscount Series = "discount"
)

// spec describes the fixed-width numbering of a series. Numbers wrap to 1
// at Max; zero is never issued because it represents "unset".
type spec struct {
	Width int
	Max   int64
}

var seriesSpecs = map[Series]spec{
	SeriesPurchase: {Width: 6, Max: 999999},
	SeriesDiscount: {Width: 6, Max: 999999},
}

// ErrBusy is returned when the lock could not be acquired within the
// maximum wait. It is fatal for the in-progress commit; callers surface it
// as a "try again" condition and must not retry silently.
var ErrBusy = errors.New("numbering lock held by another terminal")

// ErrNotHeld is returned when Next is called on a released lease.
var ErrNotHeld = errors.New("numbering lock not held")

// Store abstracts the shared lock record and the per-series counters.
//
// TryAcquire must atomically transition the lock record from free to held
// by token, returning false without error when the lock is already held.
// Release must clear the record only when it is still held by token: a
// crashed holder is never "unlocked" by an unrelated caller's cleanup.
type Store interface {
	TryAcquire(ctx context.Context, token string) (bool, error)
	Release(ctx context.Context, token string) error
	ReadCounter(ctx context.Context, series Series) (int64, error)
	WriteCounter(ctx context.Context, series Series, value int64) error
}

// Allocator hands out the next free document number for either series,
// enforcing exclusive access across all concurrent callers.
type Allocator struct {
	store        Store
	pollInterval time.Duration
	maxWait      time.Duration
}

// Option configures an Allocator.
type Option func(*Allocator)

// WithPollInterval overrides the lock polling interval (default 500ms).
func WithPollInterval(d time.Duration) Option {
	return func(a *Allocator) { a.pollInterval = d }
}

// WithMaxWait overrides the acquisition timeout (default 20s).
func WithMaxWait(d time.Duration) Option {
	return func(a *Allocator) { a.maxWait = d }
}

// New creates an allocator over the given store.
func New(store Store, opts ...Option) *Allocator {
	a := &Allocator{
		store:        store,
		pollInterval: 500 * time.Millisecond,
		maxWait:      20 * time.Second,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Lease represents a held lock. Exactly one Release must follow every
// successful Acquire, on failure paths included.
type Lease struct {
	alloc    *Allocator
	token    string
	released bool
}

// Acquire polls the lock record until it is held or the maximum wait
// elapses. There is no push notification; this is a synchronous blocking
// operation cancellable by ctx or by timeout (ErrBusy).
func (a *Allocator) Acquire(ctx context.Context) (*Lease, error) {
	token := uuid.NewString()
	deadline := time.Now().Add(a.maxWait)

	for {
		ok, err := a.store.TryAcquire(ctx, token)
		if err != nil {
			return nil, fmt.Errorf("acquire numbering lock: %w", err)
		}
		if ok {
			return &Lease{alloc: a, token: token}, nil
		}
		if time.Now().After(deadline) {
			return nil, ErrBusy
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(a.pollInterval):
		}
	}
}

// Release sets the lock back to free. It is scoped to this lease's token:
// releasing a lease that has lost the lock (or releasing twice) is a no-op.
func (l *Lease) Release(ctx context.Context) error {
	if l.released {
		return nil
	}
	l.released = true
	if err := l.alloc.store.Release(ctx, l.token); err != nil {
		return fmt.Errorf("release numbering lock: %w", err)
	}
	return nil
}

// Next issues the next number of the series as a fixed-width zero-padded
// string. Numbers wrap to 1 at the series maximum.
func (l *Lease) Next(ctx context.Context, series Series) (string, error) {
	if l.released {
		return "", ErrNotHeld
	}
	sp, ok := seriesSpecs[series]
	if !ok {
		return "", fmt.Errorf("unknown series %q", series)
	}

	last, err := l.alloc.store.ReadCounter(ctx, series)
	if err != nil {
		return "", fmt.Errorf("read %s counter: %w", series, err)
	}

	next := last + 1
	if next > sp.Max {
		next = 1
	}

	if err := l.alloc.store.WriteCounter(ctx, series, next); err != nil {
		return "", fmt.Errorf("write %s counter: %w", series, err)
	}

	return fmt.Sprintf("%0*d", sp.Width, next), nil
}

// NextNumber acquires the lock, issues one number and releases the lock.
// This is the serialization discipline for commit loops: back-to-back
// numbers re-acquire each time, keeping each critical section to a handful
// of milliseconds.
func (a *Allocator) NextNumber(ctx context.Context, series Series) (string, error) {
	lease, err := a.Acquire(ctx)
	if err != nil {
		return "", err
	}
	defer func() {
		if rerr := lease.Release(context.WithoutCancel(ctx)); rerr != nil {
			logger.Error(ctx, "numbering lock release failed", "error", rerr)
		}
	}()

	return lease.Next(ctx, series)
}
