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
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pgEdge/minimart-etl/internal/logging"
)

// TimeKey derives the dim_waktu surrogate key from a transaction
// timestamp. The same instant always maps to the same key, which is what
// makes repeated loads converge on one time row per instant.
func TimeKey(t time.Time) int64 {
	return t.Unix()
}

// CalendarAttrs are the descriptive attributes of one dim_waktu row.
type CalendarAttrs struct {
	Tanggal time.Time
	Jam     int
	Hari    string
	Minggu  int
	Bulan   int
	Tahun   int
}

// Calendar derives the calendar attributes for a timestamp.
func Calendar(t time.Time) CalendarAttrs {
	_, week := t.ISOWeek()
	return CalendarAttrs{
		Tanggal: time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location()),
		Jam:     t.Hour(),
		Hari:    t.Weekday().String(),
		Minggu:  week,
		Bulan:   int(t.Month()),
		Tahun:   t.Year(),
	}
}

const selectStagingRecordsSQL = `
SELECT transaction_id, minimart_id, cashier_id,
       minimart_nama, kota_id, gudang_id, minimart_alamat, pegawai_nama,
       original_total_amount, payment_amount, change_amount,
       total_amount, profit, original_transaction_datetime, hour_of_day
FROM staging_transaksi
ORDER BY transaction_id`

const selectStagingLinesSQL = `
SELECT transaction_id, line_seq, barang_id, quantity_sold, item_total
FROM staging_isi_transaksi
ORDER BY transaction_id, line_seq`

const upsertDimMinimartSQL = `
INSERT INTO dim_minimart (minimart_id, minimart_nama, kota_id, gudang_id, minimart_alamat)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (minimart_id) DO UPDATE SET
    minimart_nama   = EXCLUDED.minimart_nama,
    kota_id         = EXCLUDED.kota_id,
    gudang_id       = EXCLUDED.gudang_id,
    minimart_alamat = EXCLUDED.minimart_alamat`

const upsertDimCashierSQL = `
INSERT INTO dim_cashier (cashier_id, cashier_nama, minimart_id)
VALUES ($1, $2, $3)
ON CONFLICT (cashier_id) DO UPDATE SET
    cashier_nama = EXCLUDED.cashier_nama,
    minimart_id  = EXCLUDED.minimart_id`

const upsertDimWaktuSQL = `
INSERT INTO dim_waktu (waktu_id, tanggal, jam, hari, minggu, bulan, tahun)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (waktu_id) DO NOTHING`

const upsertFactSalesSQL = `
INSERT INTO fact_sales (
    transaction_id, minimart_id, cashier_id, waktu_id,
    original_total_amount, payment_amount, change_amount,
    total_amount, profit, sales_datetime
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
ON CONFLICT (transaction_id) DO UPDATE SET
    minimart_id           = EXCLUDED.minimart_id,
    cashier_id            = EXCLUDED.cashier_id,
    waktu_id              = EXCLUDED.waktu_id,
    original_total_amount = EXCLUDED.original_total_amount,
    payment_amount        = EXCLUDED.payment_amount,
    change_amount         = EXCLUDED.change_amount,
    total_amount          = EXCLUDED.total_amount,
    profit                = EXCLUDED.profit,
    sales_datetime        = EXCLUDED.sales_datetime`

const upsertFactSalesItemSQL = `
INSERT INTO fact_sales_item (transaction_id, line_seq, barang_id, quantity_sold, item_total)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (transaction_id, line_seq) DO UPDATE SET
    barang_id     = EXCLUDED.barang_id,
    quantity_sold = EXCLUDED.quantity_sold,
    item_total    = EXCLUDED.item_total`

// LoadSummary reports per-step row counts for one warehouse load.
type LoadSummary struct {
	Minimarts int
	Cashiers  int
	TimeRows  int
	Facts     int
	FactLines int
}

// Loader moves conformed staging rows into the star-schema warehouse.
type Loader struct {
	staging   *pgxpool.Pool
	warehouse *pgxpool.Pool
}

// NewLoader creates a Loader reading from staging and writing to the
// warehouse.
func NewLoader(staging, warehouse *pgxpool.Pool) *Loader {
	return &Loader{staging: staging, warehouse: warehouse}
}

// Load reads the full staging content and upserts it into the warehouse
// inside one transaction, dimensions strictly before facts so every fact
// row lands with its references already present. A failed step rolls the
// whole load back and reports which step broke.
func (l *Loader) Load(ctx context.Context) (*LoadSummary, error) {
	records, err := l.readStagingRecords(ctx)
	if err != nil {
		return nil, err
	}
	lines, err := l.readStagingLines(ctx)
	if err != nil {
		return nil, err
	}

	if len(records) == 0 {
		logging.Info().Msg("Staging is empty, nothing to load")
		return &LoadSummary{}, nil
	}

	tx, err := l.warehouse.Begin(ctx)
	if err != nil {
		return nil, &ConnectionError{Target: "warehouse", Err: err}
	}
	defer tx.Rollback(ctx)

	summary := &LoadSummary{}

	// dim_minimart
	seenMinimart := make(map[int64]bool)
	for _, r := range records {
		if seenMinimart[r.MinimartID] {
			continue
		}
		seenMinimart[r.MinimartID] = true
		_, err := tx.Exec(ctx, upsertDimMinimartSQL,
			r.MinimartID, r.MinimartNama, r.KotaID, r.GudangID, r.MinimartAlamat)
		if err != nil {
			return nil, &PartialLoadError{Step: "dim_minimart", Err: err}
		}
		summary.Minimarts++
	}

	// dim_cashier
	seenCashier := make(map[int64]bool)
	for _, r := range records {
		if seenCashier[r.CashierID] {
			continue
		}
		seenCashier[r.CashierID] = true
		_, err := tx.Exec(ctx, upsertDimCashierSQL, r.CashierID, r.PegawaiNama, r.MinimartID)
		if err != nil {
			return nil, &PartialLoadError{Step: "dim_cashier", Err: err}
		}
		summary.Cashiers++
	}

	// dim_waktu
	seenWaktu := make(map[int64]bool)
	for _, r := range records {
		key := TimeKey(r.TransactionDatetime)
		if seenWaktu[key] {
			continue
		}
		seenWaktu[key] = true
		cal := Calendar(r.TransactionDatetime)
		_, err := tx.Exec(ctx, upsertDimWaktuSQL,
			key, cal.Tanggal, cal.Jam, cal.Hari, cal.Minggu, cal.Bulan, cal.Tahun)
		if err != nil {
			return nil, &PartialLoadError{Step: "dim_waktu", Err: err}
		}
		summary.TimeRows++
	}

	// fact_sales
	for _, r := range records {
		_, err := tx.Exec(ctx, upsertFactSalesSQL,
			r.TransactionID, r.MinimartID, r.CashierID, TimeKey(r.TransactionDatetime),
			r.OriginalTotalAmount, r.PaymentAmount, r.ChangeAmount,
			r.TotalAmount, r.Profit, r.TransactionDatetime)
		if err != nil {
			return nil, &PartialLoadError{Step: "fact_sales", Err: err}
		}
		summary.Facts++
	}

	// fact_sales_item
	for _, li := range lines {
		_, err := tx.Exec(ctx, upsertFactSalesItemSQL,
			li.TransactionID, li.LineSeq, li.BarangID, li.QuantitySold, li.ItemTotal)
		if err != nil {
			return nil, &PartialLoadError{Step: "fact_sales_item", Err: err}
		}
		summary.FactLines++
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, &ConnectionError{Target: "warehouse", Err: err}
	}

	logging.Info().
		Int("minimarts", summary.Minimarts).
		Int("cashiers", summary.Cashiers).
		Int("time_rows", summary.TimeRows).
		Int("facts", summary.Facts).
		Int("fact_lines", summary.FactLines).
		Msg("Warehouse load completed")

	return summary, nil
}

func (l *Loader) readStagingRecords(ctx context.Context) ([]StagingRecord, error) {
	rows, err := l.staging.Query(ctx, selectStagingRecordsSQL)
	if err != nil {
		return nil, &ConnectionError{Target: "staging", Err: err}
	}
	defer rows.Close()

	var records []StagingRecord
	for rows.Next() {
		var r StagingRecord
		if err := rows.Scan(
			&r.TransactionID, &r.MinimartID, &r.CashierID,
			&r.MinimartNama, &r.KotaID, &r.GudangID, &r.MinimartAlamat, &r.PegawaiNama,
			&r.OriginalTotalAmount, &r.PaymentAmount, &r.ChangeAmount,
			&r.TotalAmount, &r.Profit, &r.TransactionDatetime, &r.HourOfDay,
		); err != nil {
			return nil, &ConnectionError{Target: "staging", Err: err}
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, &ConnectionError{Target: "staging", Err: err}
	}
	return records, nil
}

func (l *Loader) readStagingLines(ctx context.Context) ([]StagingLine, error) {
	rows, err := l.staging.Query(ctx, selectStagingLinesSQL)
	if err != nil {
		return nil, &ConnectionError{Target: "staging", Err: err}
	}
	defer rows.Close()

	var lines []StagingLine
	for rows.Next() {
		var li StagingLine
		if err := rows.Scan(&li.TransactionID, &li.LineSeq, &li.BarangID, &li.QuantitySold, &li.ItemTotal); err != nil {
			return nil, &ConnectionError{Target: "staging", Err: err}
		}
		lines = append(lines, li)
	}
	if err := rows.Err(); err != nil {
		return nil, &ConnectionError{Target: "staging", Err: err}
	}
	return lines, nil
}
