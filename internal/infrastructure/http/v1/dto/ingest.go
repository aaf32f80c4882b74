// Package dto defines the HTTP request/response shapes for API v1.
package dto

import "github.com/toyohara-midori/dcin/internal/ingest"

// StageResponse reports a staged batch.
type StageResponse struct {
	BatchID  string `json:"batchId"`
	RowCount int    `json:"rowCount"`
}

// ConfirmResponse is the confirmation screen payload: every staged row with
// inline error annotations plus the batch-level flag.
type ConfirmResponse struct {
	BatchID   string             `json:"batchId"`
	HasErrors bool               `json:"hasErrors"`
	Rows      []ingest.StagedRow `json:"rows"`
}

// CommitResponse reports a completed commit.
type CommitResponse struct {
	BatchID  string `json:"batchId"`
	Vouchers int    `json:"vouchers"`
}
