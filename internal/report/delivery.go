//-------------------------------------------------------------------------
//
// Minimart Data Warehouse ETL
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package report

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/pgEdge/minimart-etl/internal/etl"
	"github.com/pgEdge/minimart-etl/internal/logging"
)

// DeliveryPlanner turns the restock export into delivery quantities.
// Target stock is twice what an outlet sold; the delivery tops the
// current stock up to that target, never below zero.
type DeliveryPlanner struct {
	exportDir string
	gudangID  int64
}

// NewDeliveryPlanner creates a DeliveryPlanner for the given gudang.
func NewDeliveryPlanner(exportDir string, gudangID int64) *DeliveryPlanner {
	return &DeliveryPlanner{exportDir: exportDir, gudangID: gudangID}
}

// GeneratePlan reads the restock CSV for the gudang and writes the
// delivery plan next to it, returning the plan path. A missing input
// yields an InputNotFoundError; an input without the expected columns
// yields a SchemaError.
func (p *DeliveryPlanner) GeneratePlan() (string, error) {
	inPath := filepath.Join(p.exportDir, RestockFileName(p.gudangID))

	f, err := os.Open(inPath)
	if err != nil {
		if os.IsNotExist(err) {
			return "", &InputNotFoundError{Path: inPath, Err: err}
		}
		return "", err
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return "", &etl.SchemaError{Detail: fmt.Sprintf("malformed restock file %s", inPath), Err: err}
	}
	if len(records) == 0 {
		return "", &etl.SchemaError{Detail: fmt.Sprintf("restock file %s has no header", inPath)}
	}

	cols := make(map[string]int, len(records[0]))
	for i, name := range records[0] {
		cols[name] = i
	}
	for _, required := range []string{"minimart_id", "barang_id", "total_sold", "current_stock"} {
		if _, ok := cols[required]; !ok {
			return "", &etl.SchemaError{
				Detail: fmt.Sprintf("restock file %s is missing column %s", inPath, required),
			}
		}
	}

	plan := [][]string{{"minimart_id", "barang_id", "quantity_to_deliver", "gudang_id"}}
	for n, row := range records[1:] {
		totalSold, err := strconv.ParseInt(row[cols["total_sold"]], 10, 64)
		if err != nil {
			return "", &etl.SchemaError{
				Detail: fmt.Sprintf("restock file %s row %d has invalid total_sold", inPath, n+1),
				Err:    err,
			}
		}
		currentStock, err := strconv.ParseInt(row[cols["current_stock"]], 10, 64)
		if err != nil {
			return "", &etl.SchemaError{
				Detail: fmt.Sprintf("restock file %s row %d has invalid current_stock", inPath, n+1),
				Err:    err,
			}
		}

		quantity := DeliveryQuantity(totalSold, currentStock)
		plan = append(plan, []string{
			row[cols["minimart_id"]],
			row[cols["barang_id"]],
			strconv.FormatInt(quantity, 10),
			strconv.FormatInt(p.gudangID, 10),
		})
	}

	outPath := filepath.Join(p.exportDir, DeliveryFileName(p.gudangID))
	if err := writeCSVFile(outPath, plan); err != nil {
		return "", err
	}

	logging.Info().
		Str("file", outPath).
		Int("rows", len(plan)-1).
		Msg("Delivery plan written")

	return outPath, nil
}

// DeliveryQuantity computes how many units to deliver so stock reaches
// twice the sold volume. Outlets already above target get nothing.
func DeliveryQuantity(totalSold, currentStock int64) int64 {
	target := 2 * totalSold
	if currentStock >= target {
		return 0
	}
	return target - currentStock
}
