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
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pgEdge/minimart-etl/internal/etl"
	"github.com/pgEdge/minimart-etl/internal/testutil"
)

func setupWarehouse(t *testing.T) *pgxpool.Pool {
	t.Helper()

	baseConnStr := testutil.SkipIfNoPostgres(t)
	connStr := testutil.CreateTestDB(t, baseConnStr, "report")
	dbName := testutil.GetDBNameFromConnStr(connStr)
	cleanup := testutil.NewTestCleanup(t, baseConnStr, dbName)
	pool := testutil.ConnectTestDB(t, connStr)
	cleanup.SetPool(pool)
	t.Cleanup(cleanup.Cleanup)

	ctx := context.Background()
	if err := etl.CreateWarehouseSchema(ctx, pool); err != nil {
		t.Fatalf("Failed to create warehouse schema: %v", err)
	}

	now := time.Now()
	waktuID := etl.TimeKey(now)
	cal := etl.Calendar(now)

	stmts := []struct {
		sql  string
		args []any
	}{
		{`INSERT INTO dim_minimart (minimart_id, minimart_nama, kota_id, gudang_id, minimart_alamat)
          VALUES (5, 'Minimart Lima', 1, 3, '')`, nil},
		{`INSERT INTO dim_cashier (cashier_id, cashier_nama, minimart_id) VALUES (7, 'Budi', 5)`, nil},
		{`INSERT INTO dim_waktu (waktu_id, tanggal, jam, hari, minggu, bulan, tahun)
          VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			[]any{waktuID, cal.Tanggal, cal.Jam, cal.Hari, cal.Minggu, cal.Bulan, cal.Tahun}},
		{`INSERT INTO fact_sales (transaction_id, minimart_id, cashier_id, waktu_id,
              original_total_amount, payment_amount, change_amount, total_amount, profit, sales_datetime)
          VALUES (1, 5, 7, $1, 100, 120, 20, 40, 40, $2)`, []any{waktuID, now}},
		{`INSERT INTO fact_sales_item (transaction_id, line_seq, barang_id, quantity_sold, item_total)
          VALUES (1, 1, 10, 3, 30), (1, 2, 11, 2, 10)`, nil},
		{`INSERT INTO stok_gudang (gudang_id, barang_id, stok) VALUES (3, 10, 2)`, nil},
		{`INSERT INTO pemilik (minimart_id, pemilik_email)
          VALUES (5, 'owner@example.com'), (5, 'bad@example.com')`, nil},
	}
	for _, s := range stmts {
		if _, err := pool.Exec(ctx, s.sql, s.args...); err != nil {
			t.Fatalf("Failed to seed warehouse row: %v", err)
		}
	}

	return pool
}

func TestRestockExport(t *testing.T) {
	pool := setupWarehouse(t)
	dir := t.TempDir()

	path, err := NewRestockExporter(pool, dir, 3).Export(context.Background())
	if err != nil {
		t.Fatalf("Export() error: %v", err)
	}
	if path != filepath.Join(dir, RestockFileName(3)) {
		t.Errorf("unexpected export path %s", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read export: %v", err)
	}
	got := string(data)
	want := "minimart_id,minimart_nama,barang_id,total_sold,current_stock\n" +
		"5,Minimart Lima,10,3,2\n" +
		"5,Minimart Lima,11,2,0\n"
	if got != want {
		t.Errorf("export content mismatch:\ngot:\n%s\nwant:\n%s", got, want)
	}
}

func TestRestockExportNoSales(t *testing.T) {
	pool := setupWarehouse(t)
	dir := t.TempDir()

	// Gudang 9 has no outlets, so there is nothing to export.
	path, err := NewRestockExporter(pool, dir, 9).Export(context.Background())
	if err != nil {
		t.Fatalf("Export() error: %v", err)
	}
	if path != "" {
		t.Errorf("expected no file for empty export, got %s", path)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("Failed to list export dir: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("export dir should be empty, found %d entries", len(entries))
	}
}

func TestRestockThenDeliveryPlan(t *testing.T) {
	pool := setupWarehouse(t)
	dir := t.TempDir()

	if _, err := NewRestockExporter(pool, dir, 3).Export(context.Background()); err != nil {
		t.Fatalf("Export() error: %v", err)
	}
	path, err := NewDeliveryPlanner(dir, 3).GeneratePlan()
	if err != nil {
		t.Fatalf("GeneratePlan() error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read plan: %v", err)
	}
	// barang 10: target 6, stock 2 -> deliver 4. barang 11: target 4, stock 0 -> deliver 4.
	want := "minimart_id,barang_id,quantity_to_deliver,gudang_id\n" +
		"5,10,4,3\n" +
		"5,11,4,3\n"
	if string(data) != want {
		t.Errorf("plan content mismatch:\ngot:\n%s\nwant:\n%s", string(data), want)
	}
}

func TestSendReportsIsolatesFailures(t *testing.T) {
	pool := setupWarehouse(t)
	sender := &fakeSender{failFor: map[string]bool{"bad@example.com": true}}

	err := NewInvestorReporter(pool, sender).SendReports(context.Background(), time.Now())
	if err == nil {
		t.Fatal("expected an error reporting the failed delivery")
	}
	if len(sender.sent) != 1 || sender.sent[0] != "owner@example.com" {
		t.Errorf("delivered recipients = %v, want [owner@example.com]", sender.sent)
	}
}

func TestSendReportsNoSalesStillSends(t *testing.T) {
	pool := setupWarehouse(t)
	ctx := context.Background()
	if _, err := pool.Exec(ctx, "DELETE FROM fact_sales_item"); err != nil {
		t.Fatalf("Failed to clear facts: %v", err)
	}
	if _, err := pool.Exec(ctx, "DELETE FROM fact_sales"); err != nil {
		t.Fatalf("Failed to clear facts: %v", err)
	}

	sender := &fakeSender{}
	if err := NewInvestorReporter(pool, sender).SendReports(ctx, time.Now()); err != nil {
		t.Fatalf("SendReports() error: %v", err)
	}
	if len(sender.sent) != 2 {
		t.Errorf("delivered recipients = %d, want 2", len(sender.sent))
	}
}
