package ingest

import (
	"sort"
)

// BuildChunks partitions a validated batch into voucher-sized chunks.
//
// Precedence is fixed:
//  1. group by (vendor, delivery date, center, department), groups ordered
//     by first appearance in the input;
//  2. within a group, sort rows by item code ascending;
//  3. split into consecutive chunks of at most MaxChunkLines rows.
//
// The function is pure and deterministic for a given input ordering. The
// caller must have passed the bulk check: rows are assumed error-free.
func BuildChunks(rows []StagedRow) []Chunk {
	groups := groupRows(rows)

	var chunks []Chunk
	for _, g := range groups {
		for start := 0; start < len(g.Rows); start += MaxChunkLines {
			end := start + MaxChunkLines
			if end > len(g.Rows) {
				end = len(g.Rows)
			}
			chunks = append(chunks, Chunk{Key: g.Key, Rows: g.Rows[start:end]})
		}
	}
	return chunks
}

// groupRows partitions rows by GroupKey, preserving first-seen group order,
// and sorts each group's rows by item code.
func groupRows(rows []StagedRow) []VoucherGroup {
	index := make(map[GroupKey]int)
	var groups []VoucherGroup

	for _, r := range rows {
		key := GroupKey{
			VendorCode:   r.VendorCode,
			DeliveryDate: r.DeliveryDate,
			Center:       r.Center,
			DeptCode:     r.DeptCode,
		}
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, VoucherGroup{Key: key})
		}
		groups[i].Rows = append(groups[i].Rows, r)
	}

	for i := range groups {
		rows := groups[i].Rows
		sort.SliceStable(rows, func(a, b int) bool {
			return rows[a].ItemCode < rows[b].ItemCode
		})
	}
	return groups
}
