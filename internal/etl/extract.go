package etl

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pgEdge/minimart-etl/internal/logging"
)

// Extraction pulls the raw tables with outlet and employee attributes
// joined in read-only, bounded below by the watermark. A nil watermark
// means a full pull.
const extractTransactionsSQL = `
SELECT t.transaksi_id,
       t.minimart_id,
       t.pegawai_id,
       t.tanggal_waktu::text,
       t.transaksi_total,
       t.transaksi_pembayaran,
       t.transaksi_kembalian,
       m.minimart_nama,
       m.kota_id,
       m.gudang_id,
       COALESCE(m.minimart_alamat, ''),
       p.pegawai_nama
FROM transaksi t
JOIN minimart m ON m.minimart_id = t.minimart_id
JOIN pegawai  p ON p.pegawai_id  = t.pegawai_id
WHERE ($1::timestamp IS NULL OR t.tanggal_waktu > $1)
ORDER BY t.transaksi_id`

const extractLinesSQL = `
SELECT i.transaksi_id,
       i.barang_id,
       i.isi_transaksi_jumlah,
       i.harga_satuan
FROM isi_transaksi i
JOIN transaksi t ON t.transaksi_id = i.transaksi_id
WHERE ($1::timestamp IS NULL OR t.tanggal_waktu > $1)
ORDER BY i.transaksi_id, i.barang_id`

// Extractor pulls raw transaction rows from the operational source and
// materializes them as an immutable extraction batch. It owns batch
// creation and nothing else; staging and warehouse state are never
// touched here.
type Extractor struct {
	source  *pgxpool.Pool
	dataDir string
}

// NewExtractor creates an Extractor reading from the given source pool.
// Audit copies of each non-empty batch are written under dataDir.
func NewExtractor(source *pgxpool.Pool, dataDir string) *Extractor {
	return &Extractor{source: source, dataDir: dataDir}
}

// Extract pulls all raw rows newer than since. A zero since means a full
// pull. Zero matching rows yields an empty batch, not an error; a source
// failure yields a ConnectionError and no batch.
func (e *Extractor) Extract(ctx context.Context, since time.Time) (*ExtractionBatch, error) {
	var sinceArg *time.Time
	if !since.IsZero() {
		sinceArg = &since
	}

	batch := &ExtractionBatch{ExtractedAt: time.Now()}

	rows, err := e.source.Query(ctx, extractTransactionsSQL, sinceArg)
	if err != nil {
		return nil, &ConnectionError{Target: "source", Err: err}
	}
	for rows.Next() {
		var t RawTransaction
		if err := rows.Scan(
			&t.TransactionID, &t.MinimartID, &t.CashierID, &t.TanggalWaktu,
			&t.OriginalTotal, &t.PaymentAmount, &t.ChangeAmount,
			&t.MinimartNama, &t.KotaID, &t.GudangID, &t.MinimartAlamat,
			&t.PegawaiNama,
		); err != nil {
			rows.Close()
			return nil, &ConnectionError{Target: "source", Err: err}
		}
		// Track the newest timestamp for the watermark. The strict parse
		// policy belongs to the Transformer; here an unparseable value
		// just doesn't advance the watermark.
		if ts, perr := ParseTimestamp(t.TanggalWaktu); perr == nil && ts.After(batch.MaxSourceTime) {
			batch.MaxSourceTime = ts
		}
		batch.Transactions = append(batch.Transactions, t)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, &ConnectionError{Target: "source", Err: err}
	}

	rows, err = e.source.Query(ctx, extractLinesSQL, sinceArg)
	if err != nil {
		return nil, &ConnectionError{Target: "source", Err: err}
	}
	seq := make(map[int64]int)
	for rows.Next() {
		var l RawTransactionLine
		if err := rows.Scan(&l.TransactionID, &l.BarangID, &l.Quantity, &l.UnitPrice); err != nil {
			rows.Close()
			return nil, &ConnectionError{Target: "source", Err: err}
		}
		seq[l.TransactionID]++
		l.LineSeq = seq[l.TransactionID]
		batch.Lines = append(batch.Lines, l)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, &ConnectionError{Target: "source", Err: err}
	}

	logging.Info().
		Int("transactions", len(batch.Transactions)).
		Int("lines", len(batch.Lines)).
		Time("since", since).
		Msg("Extraction completed")

	if !batch.Empty() && e.dataDir != "" {
		if err := e.writeAudit(batch); err != nil {
			return nil, fmt.Errorf("failed to write extraction audit: %w", err)
		}
	}

	return batch, nil
}

// writeAudit persists the batch as two CSV files keyed by the extraction
// timestamp. The files are an audit trail; nothing reads them back.
func (e *Extractor) writeAudit(batch *ExtractionBatch) error {
	if err := os.MkdirAll(e.dataDir, 0755); err != nil {
		return err
	}

	stamp := batch.ExtractedAt.Format("20060102_150405")

	txnPath := filepath.Join(e.dataDir, fmt.Sprintf("extracted_transaksi_%s.csv", stamp))
	txnRows := [][]string{{
		"transaksi_id", "minimart_id", "pegawai_id", "tanggal_waktu",
		"transaksi_total", "transaksi_pembayaran", "transaksi_kembalian",
		"minimart_nama", "kota_id", "gudang_id", "minimart_alamat", "pegawai_nama",
	}}
	for _, t := range batch.Transactions {
		txnRows = append(txnRows, []string{
			strconv.FormatInt(t.TransactionID, 10),
			strconv.FormatInt(t.MinimartID, 10),
			strconv.FormatInt(t.CashierID, 10),
			t.TanggalWaktu,
			strconv.FormatFloat(t.OriginalTotal, 'f', 2, 64),
			strconv.FormatFloat(t.PaymentAmount, 'f', 2, 64),
			strconv.FormatFloat(t.ChangeAmount, 'f', 2, 64),
			t.MinimartNama,
			strconv.FormatInt(t.KotaID, 10),
			strconv.FormatInt(t.GudangID, 10),
			t.MinimartAlamat,
			t.PegawaiNama,
		})
	}
	if err := writeCSV(txnPath, txnRows); err != nil {
		return err
	}

	linePath := filepath.Join(e.dataDir, fmt.Sprintf("extracted_isi_transaksi_%s.csv", stamp))
	lineRows := [][]string{{
		"transaksi_id", "line_seq", "barang_id", "isi_transaksi_jumlah", "harga_satuan",
	}}
	for _, l := range batch.Lines {
		lineRows = append(lineRows, []string{
			strconv.FormatInt(l.TransactionID, 10),
			strconv.Itoa(l.LineSeq),
			strconv.FormatInt(l.BarangID, 10),
			strconv.FormatInt(l.Quantity, 10),
			strconv.FormatFloat(l.UnitPrice, 'f', 2, 64),
		})
	}
	if err := writeCSV(linePath, lineRows); err != nil {
		return err
	}

	logging.Debug().
		Str("transactions", txnPath).
		Str("lines", linePath).
		Msg("Wrote extraction audit files")

	return nil
}

func writeCSV(path string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := csv.NewWriter(f)
	if err := w.WriteAll(rows); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
