// Package clock provides the authoritative time source for the service.
//
// Reception-window checks and date-range validation must use the shared
// database server's clock so every terminal agrees on "now"; the local
// process clock is only a fail-safe when the database is unreachable.
package clock

import (
	"context"
	"time"
)

// Clock returns the current authoritative time.
type Clock interface {
	Now(ctx context.Context) time.Time
}

// Local is a Clock backed by the process clock. Used in tests and as the
// innermost fallback.
type Local struct{}

func (Local) Now(ctx context.Context) time.Time { return time.Now() }

// Fixed is a Clock frozen at a single instant, for tests.
type Fixed struct {
	T time.Time
}

func (f Fixed) Now(ctx context.Context) time.Time { return f.T }
