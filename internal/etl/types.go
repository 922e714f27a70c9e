//-------------------------------------------------------------------------
//
// Minimart Data Warehouse ETL
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package etl implements the staged pipeline that moves retail transaction
// data from the operational source through staging into the star-schema
// warehouse.
package etl

import "time"

// RawTransaction is an immutable snapshot row from the operational
// transaksi table, enriched with outlet and employee attributes joined
// read-only at extraction time.
type RawTransaction struct {
	TransactionID  int64
	MinimartID     int64
	CashierID      int64
	TanggalWaktu   string // raw timestamp text, parsed by the Transformer
	OriginalTotal  float64
	PaymentAmount  float64
	ChangeAmount   float64
	MinimartNama   string
	KotaID         int64
	GudangID       int64
	MinimartAlamat string
	PegawaiNama    string
}

// RawTransactionLine is an immutable snapshot row from isi_transaksi.
// LineSeq is the ordinal of the line within its transaction, assigned
// during extraction because the source table has no line key.
type RawTransactionLine struct {
	TransactionID int64
	LineSeq       int
	BarangID      int64
	Quantity      int64
	UnitPrice     float64
}

// ExtractionBatch is a timestamped, immutable collection of raw rows for
// one run window. It is created once per extraction and consumed exactly
// once by the Transformer; the audit copy on disk is never read back.
type ExtractionBatch struct {
	Transactions []RawTransaction
	Lines        []RawTransactionLine

	// ExtractedAt is when the batch was pulled.
	ExtractedAt time.Time

	// MaxSourceTime is the newest parseable tanggal_waktu in the batch,
	// used to advance the extraction watermark. Zero for empty batches.
	MaxSourceTime time.Time
}

// Empty reports whether the batch contains no transactions.
func (b *ExtractionBatch) Empty() bool {
	return len(b.Transactions) == 0
}

// StagingRecord is one conformed row per transaction, unique by
// TransactionID.
type StagingRecord struct {
	TransactionID       int64
	MinimartID          int64
	CashierID           int64
	MinimartNama        string
	KotaID              int64
	GudangID            int64
	MinimartAlamat      string
	PegawaiNama         string
	OriginalTotalAmount float64
	PaymentAmount       float64
	ChangeAmount        float64

	// TotalAmount is computed from the transaction's lines, not copied
	// from the source's transaksi_total.
	TotalAmount float64

	// Profit is currently defined as the computed TotalAmount. This is a
	// placeholder, not a margin calculation; callers must not treat it as
	// true profit.
	Profit float64

	TransactionDatetime time.Time
	HourOfDay           int
}

// StagingLine is one conformed row per transaction line, unique by
// (TransactionID, LineSeq).
type StagingLine struct {
	TransactionID int64
	LineSeq       int
	BarangID      int64
	QuantitySold  int64
	ItemTotal     float64
}
