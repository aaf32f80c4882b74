package ingest

import (
	"context"
)

// ItemRecord is the reference-data shape for one item master entry.
type ItemRecord struct {
	Name         string `db:"name"`
	Spec         string `db:"spec"`
	Manufacturer string `db:"manufacturer"`
	DeptCode     string `db:"dept_code"`
	JAN          string `db:"jan"`
	ItemsPerCase int64  `db:"items_per_case"`
}

// RefDataGateway provides read-only master-data lookups.
// Missing records are reported as (nil/"" , false), never as errors:
// downstream validation turns absence into row errors.
type RefDataGateway interface {
	LookupItem(ctx context.Context, code string) (*ItemRecord, bool, error)
	LookupVendor(ctx context.Context, code string) (string, bool, error)
	LookupDepartment(ctx context.Context, code string) (string, bool, error)
	LookupStoreName(ctx context.Context, code string) (string, bool, error)
}

// StagingStore is the durable holding area for an enriched batch.
type StagingStore interface {
	// Stage replaces any previous staging data owned by userID
	// (delete-then-insert, not merge) and writes rows tagged with batchID.
	Stage(ctx context.Context, batchID, userID string, rows []StagedRow) error

	// Load returns all rows for a batch in original line-number order.
	Load(ctx context.Context, batchID string) ([]StagedRow, error)

	// Discard deletes all rows for the batch.
	Discard(ctx context.Context, batchID string) error
}

// BulkChecker runs the second, set-based validation round directly against
// the staged rows and annotates them with bracketed error tags.
type BulkChecker interface {
	// Check returns whether the batch has at least one failing row plus the
	// full annotated row list, so the confirmation view can render every row
	// with inline errors.
	Check(ctx context.Context, batchID string, mode Mode) (bool, []StagedRow, error)
}
