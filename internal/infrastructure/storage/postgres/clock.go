package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/toyohara-midori/dcin/internal/core/clock"
	"github.com/toyohara-midori/dcin/pkg/logger"
)

var _ clock.Clock = (*DBClock)(nil)

// DBClock reads the shared database server's clock so every terminal agrees
// on "now". When the read fails it falls back to the local process clock.
type DBClock struct {
	pool *pgxpool.Pool
}

// NewDBClock creates a clock backed by the database server.
func NewDBClock(pool *Pool) *DBClock {
	return &DBClock{pool: pool.Pool}
}

// Now returns the database server's current timestamp, or the local time if
// the database is unreachable.
func (c *DBClock) Now(ctx context.Context) time.Time {
	var now time.Time
	err := c.pool.QueryRow(ctx, "SELECT CURRENT_TIMESTAMP").Scan(&now)
	if err != nil {
		logger.Warn(ctx, "db clock read failed, using local time", "error", err)
		return time.Now()
	}
	return now
}
