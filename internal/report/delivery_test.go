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
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/pgEdge/minimart-etl/internal/etl"
)

func TestDeliveryQuantity(t *testing.T) {
	tests := []struct {
		name         string
		totalSold    int64
		currentStock int64
		want         int64
	}{
		{"empty stock", 10, 0, 20},
		{"partial stock", 10, 5, 15},
		{"at target", 10, 20, 0},
		{"above target", 10, 50, 0},
		{"nothing sold", 0, 5, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DeliveryQuantity(tt.totalSold, tt.currentStock); got != tt.want {
				t.Errorf("DeliveryQuantity(%d, %d) = %d, want %d",
					tt.totalSold, tt.currentStock, got, tt.want)
			}
		})
	}
}

func writeRestockFile(t *testing.T, dir string, gudangID int64, records [][]string) {
	t.Helper()
	f, err := os.Create(filepath.Join(dir, RestockFileName(gudangID)))
	if err != nil {
		t.Fatalf("Failed to create restock file: %v", err)
	}
	defer f.Close()
	w := csv.NewWriter(f)
	if err := w.WriteAll(records); err != nil {
		t.Fatalf("Failed to write restock file: %v", err)
	}
}

func TestGeneratePlan(t *testing.T) {
	dir := t.TempDir()
	writeRestockFile(t, dir, 3, [][]string{
		{"minimart_id", "minimart_nama", "barang_id", "total_sold", "current_stock"},
		{"5", "Minimart Lima", "10", "8", "4"},
		{"5", "Minimart Lima", "11", "2", "20"},
	})

	planner := NewDeliveryPlanner(dir, 3)
	path, err := planner.GeneratePlan()
	if err != nil {
		t.Fatalf("GeneratePlan() error: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("Failed to open plan: %v", err)
	}
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("Failed to read plan: %v", err)
	}

	want := [][]string{
		{"minimart_id", "barang_id", "quantity_to_deliver", "gudang_id"},
		{"5", "10", "12", "3"},
		{"5", "11", "0", "3"},
	}
	if len(records) != len(want) {
		t.Fatalf("plan has %d rows, want %d", len(records), len(want))
	}
	for i := range want {
		for j := range want[i] {
			if records[i][j] != want[i][j] {
				t.Errorf("plan[%d][%d] = %q, want %q", i, j, records[i][j], want[i][j])
			}
		}
	}
}

func TestGeneratePlanMissingInput(t *testing.T) {
	planner := NewDeliveryPlanner(t.TempDir(), 3)
	_, err := planner.GeneratePlan()
	if err == nil {
		t.Fatal("expected error for missing restock file")
	}
	var notFound *InputNotFoundError
	if !errors.As(err, &notFound) {
		t.Errorf("error %v is not an InputNotFoundError", err)
	}
}

func TestGeneratePlanMissingColumn(t *testing.T) {
	dir := t.TempDir()
	writeRestockFile(t, dir, 3, [][]string{
		{"minimart_id", "barang_id", "total_sold"}, // no current_stock
		{"5", "10", "8"},
	})

	planner := NewDeliveryPlanner(dir, 3)
	_, err := planner.GeneratePlan()
	if err == nil {
		t.Fatal("expected error for missing column")
	}
	var schemaErr *etl.SchemaError
	if !errors.As(err, &schemaErr) {
		t.Errorf("error %v is not a SchemaError", err)
	}
}

func TestGeneratePlanInvalidNumber(t *testing.T) {
	dir := t.TempDir()
	writeRestockFile(t, dir, 3, [][]string{
		{"minimart_id", "minimart_nama", "barang_id", "total_sold", "current_stock"},
		{"5", "Minimart Lima", "10", "lots", "4"},
	})

	planner := NewDeliveryPlanner(dir, 3)
	_, err := planner.GeneratePlan()
	var schemaErr *etl.SchemaError
	if !errors.As(err, &schemaErr) {
		t.Errorf("error %v is not a SchemaError", err)
	}
}
