//-------------------------------------------------------------------------
//
// Minimart Data Warehouse ETL
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package report implements the warehouse-reading jobs: the restock
// export, the delivery plan and the investor mail report.
package report

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pgEdge/minimart-etl/internal/logging"
)

// RestockFileName returns the restock export filename for a gudang.
// The delivery planner reads the same name back.
func RestockFileName(gudangID int64) string {
	return fmt.Sprintf("restock_data_gudang_%d.csv", gudangID)
}

// DeliveryFileName returns the delivery plan filename for a gudang.
func DeliveryFileName(gudangID int64) string {
	return fmt.Sprintf("delivery_plan_gudang_%d.csv", gudangID)
}

const restockSQL = `
SELECT f.minimart_id,
       m.minimart_nama,
       i.barang_id,
       SUM(i.quantity_sold) AS total_sold,
       COALESCE(s.stok, 0) AS current_stock
FROM fact_sales_item i
JOIN fact_sales f ON f.transaction_id = i.transaction_id
JOIN dim_minimart m ON m.minimart_id = f.minimart_id
LEFT JOIN stok_gudang s ON s.gudang_id = m.gudang_id AND s.barang_id = i.barang_id
WHERE m.gudang_id = $1
GROUP BY f.minimart_id, m.minimart_nama, i.barang_id, s.stok
ORDER BY f.minimart_id, i.barang_id`

// RestockExporter aggregates item sales per outlet for one gudang and
// writes them as a CSV handed to the delivery planner.
type RestockExporter struct {
	warehouse *pgxpool.Pool
	exportDir string
	gudangID  int64
}

// NewRestockExporter creates a RestockExporter for the given gudang.
func NewRestockExporter(warehouse *pgxpool.Pool, exportDir string, gudangID int64) *RestockExporter {
	return &RestockExporter{warehouse: warehouse, exportDir: exportDir, gudangID: gudangID}
}

// Export writes the restock CSV and returns its path. Zero matching rows
// write no file and return an empty path, which downstream treats as
// "nothing to deliver".
func (e *RestockExporter) Export(ctx context.Context) (string, error) {
	rows, err := e.warehouse.Query(ctx, restockSQL, e.gudangID)
	if err != nil {
		return "", fmt.Errorf("restock query failed: %w", err)
	}
	defer rows.Close()

	records := [][]string{{"minimart_id", "minimart_nama", "barang_id", "total_sold", "current_stock"}}
	for rows.Next() {
		var (
			minimartID   int64
			minimartNama string
			barangID     int64
			totalSold    int64
			currentStock int64
		)
		if err := rows.Scan(&minimartID, &minimartNama, &barangID, &totalSold, &currentStock); err != nil {
			return "", fmt.Errorf("restock scan failed: %w", err)
		}
		records = append(records, []string{
			strconv.FormatInt(minimartID, 10),
			minimartNama,
			strconv.FormatInt(barangID, 10),
			strconv.FormatInt(totalSold, 10),
			strconv.FormatInt(currentStock, 10),
		})
	}
	if err := rows.Err(); err != nil {
		return "", fmt.Errorf("restock query failed: %w", err)
	}

	if len(records) == 1 {
		logging.Info().Int64("gudang_id", e.gudangID).Msg("No sales to restock, skipping export")
		return "", nil
	}

	if err := os.MkdirAll(e.exportDir, 0755); err != nil {
		return "", err
	}
	path := filepath.Join(e.exportDir, RestockFileName(e.gudangID))
	if err := writeCSVFile(path, records); err != nil {
		return "", err
	}

	logging.Info().
		Str("file", path).
		Int("rows", len(records)-1).
		Msg("Restock export written")

	return path, nil
}

func writeCSVFile(path string, records [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := csv.NewWriter(f)
	if err := w.WriteAll(records); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
