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

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pgEdge/minimart-etl/internal/logging"
)

const upsertStagingTransactionSQL = `
INSERT INTO staging_transaksi (
    transaction_id, minimart_id, cashier_id,
    minimart_nama, kota_id, gudang_id, minimart_alamat, pegawai_nama,
    original_total_amount, payment_amount, change_amount,
    total_amount, profit, original_transaction_datetime, hour_of_day
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
ON CONFLICT (transaction_id) DO UPDATE SET
    minimart_id                   = EXCLUDED.minimart_id,
    cashier_id                    = EXCLUDED.cashier_id,
    minimart_nama                 = EXCLUDED.minimart_nama,
    kota_id                       = EXCLUDED.kota_id,
    gudang_id                     = EXCLUDED.gudang_id,
    minimart_alamat               = EXCLUDED.minimart_alamat,
    pegawai_nama                  = EXCLUDED.pegawai_nama,
    original_total_amount         = EXCLUDED.original_total_amount,
    payment_amount                = EXCLUDED.payment_amount,
    change_amount                 = EXCLUDED.change_amount,
    total_amount                  = EXCLUDED.total_amount,
    profit                        = EXCLUDED.profit,
    original_transaction_datetime = EXCLUDED.original_transaction_datetime,
    hour_of_day                   = EXCLUDED.hour_of_day`

const upsertStagingLineSQL = `
INSERT INTO staging_isi_transaksi (
    transaction_id, line_seq, barang_id, quantity_sold, item_total
) VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (transaction_id, line_seq) DO UPDATE SET
    barang_id     = EXCLUDED.barang_id,
    quantity_sold = EXCLUDED.quantity_sold,
    item_total    = EXCLUDED.item_total`

// Stager writes conformed records into the staging database.
type Stager struct {
	staging *pgxpool.Pool
}

// NewStager creates a Stager writing to the given staging pool.
func NewStager(staging *pgxpool.Pool) *Stager {
	return &Stager{staging: staging}
}

// Stage upserts the records and lines in one transaction, keyed by
// transaction id so re-staging the same batch converges instead of
// duplicating. Either everything commits or nothing does.
func (s *Stager) Stage(ctx context.Context, records []StagingRecord, lines []StagingLine) (int, error) {
	if len(records) == 0 {
		logging.Info().Msg("Nothing to stage")
		return 0, nil
	}

	tx, err := s.staging.Begin(ctx)
	if err != nil {
		return 0, &ConnectionError{Target: "staging", Err: err}
	}
	defer tx.Rollback(ctx)

	for _, r := range records {
		_, err := tx.Exec(ctx, upsertStagingTransactionSQL,
			r.TransactionID, r.MinimartID, r.CashierID,
			r.MinimartNama, r.KotaID, r.GudangID, r.MinimartAlamat, r.PegawaiNama,
			r.OriginalTotalAmount, r.PaymentAmount, r.ChangeAmount,
			r.TotalAmount, r.Profit, r.TransactionDatetime, r.HourOfDay,
		)
		if err != nil {
			return 0, &ConnectionError{Target: "staging", Err: err}
		}
	}

	for _, l := range lines {
		_, err := tx.Exec(ctx, upsertStagingLineSQL,
			l.TransactionID, l.LineSeq, l.BarangID, l.QuantitySold, l.ItemTotal,
		)
		if err != nil {
			return 0, &ConnectionError{Target: "staging", Err: err}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, &ConnectionError{Target: "staging", Err: err}
	}

	logging.Info().
		Int("records", len(records)).
		Int("lines", len(lines)).
		Msg("Staged batch")

	return len(records), nil
}
