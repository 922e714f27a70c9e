//-------------------------------------------------------------------------
//
// Minimart Data Warehouse ETL
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package etl

import (
	"fmt"
	"time"

	"github.com/pgEdge/minimart-etl/internal/logging"
)

// timestampLayouts are the accepted tanggal_waktu formats, tried in order.
var timestampLayouts = []string{
	"2006-01-02 15:04:05",
	time.RFC3339,
}

// ParseTimestamp parses a raw tanggal_waktu value. Empty or unparseable
// input is an error; transactions never get a fabricated timestamp.
func ParseTimestamp(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable timestamp %q", s)
}

// TransformResult is the conformed output of one transform pass.
type TransformResult struct {
	Records []StagingRecord
	Lines   []StagingLine

	// DuplicatesDropped counts transactions discarded because an earlier
	// row in the batch carried the same transaction id.
	DuplicatesDropped int
}

// Transform conforms a raw extraction batch into staging shape. It is a
// pure function of the batch: no I/O, no clock, no mutation of the input.
//
// Line totals are quantity times unit price; the per-transaction
// total_amount is the sum of its line totals, so a transaction with no
// lines totals zero rather than inheriting the source's figure. A raw
// timestamp that fails to parse aborts the pass with a SchemaError.
// Duplicate transaction ids keep the first occurrence.
func Transform(batch *ExtractionBatch) (*TransformResult, error) {
	result := &TransformResult{}

	lineTotals := make(map[int64]float64)
	lineSeen := make(map[int64]map[int]bool)
	for _, l := range batch.Lines {
		if lineSeen[l.TransactionID] == nil {
			lineSeen[l.TransactionID] = make(map[int]bool)
		}
		if lineSeen[l.TransactionID][l.LineSeq] {
			continue
		}
		lineSeen[l.TransactionID][l.LineSeq] = true

		itemTotal := float64(l.Quantity) * l.UnitPrice
		lineTotals[l.TransactionID] += itemTotal
		result.Lines = append(result.Lines, StagingLine{
			TransactionID: l.TransactionID,
			LineSeq:       l.LineSeq,
			BarangID:      l.BarangID,
			QuantitySold:  l.Quantity,
			ItemTotal:     itemTotal,
		})
	}

	seen := make(map[int64]bool)
	for _, t := range batch.Transactions {
		if seen[t.TransactionID] {
			result.DuplicatesDropped++
			continue
		}
		seen[t.TransactionID] = true

		ts, err := ParseTimestamp(t.TanggalWaktu)
		if err != nil {
			return nil, &SchemaError{
				Detail: fmt.Sprintf("transaction %d has invalid tanggal_waktu", t.TransactionID),
				Err:    err,
			}
		}

		total := lineTotals[t.TransactionID]
		result.Records = append(result.Records, StagingRecord{
			TransactionID:       t.TransactionID,
			MinimartID:          t.MinimartID,
			CashierID:           t.CashierID,
			MinimartNama:        t.MinimartNama,
			KotaID:              t.KotaID,
			GudangID:            t.GudangID,
			MinimartAlamat:      t.MinimartAlamat,
			PegawaiNama:         t.PegawaiNama,
			OriginalTotalAmount: t.OriginalTotal,
			PaymentAmount:       t.PaymentAmount,
			ChangeAmount:        t.ChangeAmount,
			TotalAmount:         total,
			Profit:              total,
			TransactionDatetime: ts,
			HourOfDay:           ts.Hour(),
		})
	}

	// Orphan lines belong to transactions absent from this batch. They
	// cannot be staged without violating the line table's parent key.
	if orphans := countOrphanLines(result, seen); orphans > 0 {
		kept := result.Lines[:0]
		for _, l := range result.Lines {
			if seen[l.TransactionID] {
				kept = append(kept, l)
			}
		}
		result.Lines = kept
		logging.Warn().Int("lines", orphans).Msg("Dropped lines without a matching transaction")
	}

	if result.DuplicatesDropped > 0 {
		logging.Warn().
			Int("dropped", result.DuplicatesDropped).
			Msg("Dropped duplicate transactions, kept first occurrence")
	}

	return result, nil
}

func countOrphanLines(result *TransformResult, seen map[int64]bool) int {
	n := 0
	for _, l := range result.Lines {
		if !seen[l.TransactionID] {
			n++
		}
	}
	return n
}
