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
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pgEdge/minimart-etl/internal/datagen"
	"github.com/pgEdge/minimart-etl/internal/db"
	"github.com/pgEdge/minimart-etl/internal/testutil"
)

type pipelineEnv struct {
	source    *pgxpool.Pool
	staging   *pgxpool.Pool
	warehouse *pgxpool.Pool
	pipeline  *Pipeline
}

func setupPipelineEnv(t *testing.T) *pipelineEnv {
	t.Helper()

	baseConnStr := testutil.SkipIfNoPostgres(t)
	ctx := context.Background()

	env := &pipelineEnv{}
	for _, role := range []struct {
		name string
		pool **pgxpool.Pool
	}{
		{"source", &env.source},
		{"staging", &env.staging},
		{"warehouse", &env.warehouse},
	} {
		connStr := testutil.CreateTestDB(t, baseConnStr, role.name)
		dbName := testutil.GetDBNameFromConnStr(connStr)
		cleanup := testutil.NewTestCleanup(t, baseConnStr, dbName)
		pool := testutil.ConnectTestDB(t, connStr)
		cleanup.SetPool(pool)
		t.Cleanup(cleanup.Cleanup)
		*role.pool = pool
	}

	if err := datagen.CreateSourceSchema(ctx, env.source); err != nil {
		t.Fatalf("Failed to create source schema: %v", err)
	}
	if err := CreateStagingSchema(ctx, env.staging); err != nil {
		t.Fatalf("Failed to create staging schema: %v", err)
	}
	if err := db.EnsureMetadata(ctx, env.staging); err != nil {
		t.Fatalf("Failed to create metadata table: %v", err)
	}
	if err := CreateWarehouseSchema(ctx, env.warehouse); err != nil {
		t.Fatalf("Failed to create warehouse schema: %v", err)
	}

	env.pipeline = NewPipeline(env.source, env.staging, env.warehouse, t.TempDir())
	return env
}

func (env *pipelineEnv) seedScenario(t *testing.T) {
	t.Helper()
	ctx := context.Background()

	stmts := []struct {
		sql  string
		args []any
	}{
		{`INSERT INTO minimart (minimart_id, minimart_nama, kota_id, gudang_id, minimart_alamat)
          VALUES ($1, $2, $3, $4, $5)`, []any{int64(5), "Minimart Lima", int64(1), int64(3), "Jl. Merdeka 5"}},
		{`INSERT INTO pegawai (pegawai_id, pegawai_nama, minimart_id)
          VALUES ($1, $2, $3)`, []any{int64(7), "Budi", int64(5)}},
		{`INSERT INTO barang (barang_id, barang_nama, harga_satuan) VALUES ($1, $2, $3)`,
			[]any{int64(10), "Kopi", 10.0}},
		{`INSERT INTO barang (barang_id, barang_nama, harga_satuan) VALUES ($1, $2, $3)`,
			[]any{int64(11), "Teh", 5.0}},
		{`INSERT INTO transaksi (transaksi_id, minimart_id, pegawai_id, tanggal_waktu,
              transaksi_total, transaksi_pembayaran, transaksi_kembalian)
          VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			[]any{int64(1), int64(5), int64(7), time.Date(2024, 1, 1, 14, 0, 0, 0, time.UTC), 100.0, 120.0, 20.0}},
		{`INSERT INTO isi_transaksi (transaksi_id, barang_id, isi_transaksi_jumlah, harga_satuan)
          VALUES ($1, $2, $3, $4)`, []any{int64(1), int64(10), int64(3), 10.0}},
		{`INSERT INTO isi_transaksi (transaksi_id, barang_id, isi_transaksi_jumlah, harga_satuan)
          VALUES ($1, $2, $3, $4)`, []any{int64(1), int64(11), int64(2), 5.0}},
	}
	for _, s := range stmts {
		if _, err := env.source.Exec(ctx, s.sql, s.args...); err != nil {
			t.Fatalf("Failed to seed source row: %v", err)
		}
	}
}

func countRows(t *testing.T, pool *pgxpool.Pool, table string) int {
	t.Helper()
	var n int
	if err := pool.QueryRow(context.Background(), "SELECT COUNT(*) FROM "+table).Scan(&n); err != nil {
		t.Fatalf("Failed to count %s: %v", table, err)
	}
	return n
}

func TestPipelineEndToEnd(t *testing.T) {
	env := setupPipelineEnv(t)
	env.seedScenario(t)
	ctx := context.Background()

	if err := env.pipeline.Run(ctx); err != nil {
		t.Fatalf("Pipeline run failed: %v", err)
	}

	var (
		minimartID  int64
		waktuID     int64
		origTotal   float64
		totalAmount float64
	)
	err := env.warehouse.QueryRow(ctx, `
        SELECT minimart_id, waktu_id, original_total_amount, total_amount
        FROM fact_sales WHERE transaction_id = 1
    `).Scan(&minimartID, &waktuID, &origTotal, &totalAmount)
	if err != nil {
		t.Fatalf("fact_sales row missing: %v", err)
	}
	if minimartID != 5 {
		t.Errorf("minimart_id = %d, want 5", minimartID)
	}
	if origTotal != 100 {
		t.Errorf("original_total_amount = %v, want 100", origTotal)
	}
	if totalAmount != 40 {
		t.Errorf("total_amount = %v, want 40", totalAmount)
	}

	wantKey := TimeKey(time.Date(2024, 1, 1, 14, 0, 0, 0, time.UTC))
	if waktuID != wantKey {
		t.Errorf("waktu_id = %d, want %d", waktuID, wantKey)
	}

	var jam int
	var hari string
	err = env.warehouse.QueryRow(ctx, `SELECT jam, hari FROM dim_waktu WHERE waktu_id = $1`, waktuID).Scan(&jam, &hari)
	if err != nil {
		t.Fatalf("dim_waktu row missing: %v", err)
	}
	if jam != 14 {
		t.Errorf("jam = %d, want 14", jam)
	}
	if hari != "Monday" {
		t.Errorf("hari = %q, want Monday", hari)
	}

	if n := countRows(t, env.warehouse, "fact_sales_item"); n != 2 {
		t.Errorf("fact_sales_item rows = %d, want 2", n)
	}

	watermark, err := db.GetMetadataValue(ctx, env.staging, db.KeyWatermark)
	if err != nil {
		t.Fatalf("Failed to read watermark: %v", err)
	}
	if watermark == "" {
		t.Error("watermark not advanced after successful run")
	}
}

func TestPipelineIdempotent(t *testing.T) {
	env := setupPipelineEnv(t)
	env.seedScenario(t)
	ctx := context.Background()

	if err := env.pipeline.Run(ctx); err != nil {
		t.Fatalf("First run failed: %v", err)
	}

	before := map[string]int{}
	for _, table := range []string{"dim_minimart", "dim_cashier", "dim_waktu", "fact_sales", "fact_sales_item"} {
		before[table] = countRows(t, env.warehouse, table)
	}

	// Clear the watermark so the second run re-extracts the same window.
	if err := db.SetMetadataValue(ctx, env.staging, db.KeyWatermark, ""); err != nil {
		t.Fatalf("Failed to reset watermark: %v", err)
	}
	if err := env.pipeline.Run(ctx); err != nil {
		t.Fatalf("Second run failed: %v", err)
	}

	for table, want := range before {
		if got := countRows(t, env.warehouse, table); got != want {
			t.Errorf("%s rows after re-run = %d, want %d", table, got, want)
		}
	}
}

func TestPipelineReferentialIntegrity(t *testing.T) {
	env := setupPipelineEnv(t)
	env.seedScenario(t)
	ctx := context.Background()

	if err := env.pipeline.Run(ctx); err != nil {
		t.Fatalf("Pipeline run failed: %v", err)
	}

	var orphans int
	err := env.warehouse.QueryRow(ctx, `
        SELECT COUNT(*) FROM fact_sales f
        LEFT JOIN dim_minimart m ON m.minimart_id = f.minimart_id
        LEFT JOIN dim_cashier c ON c.cashier_id = f.cashier_id
        LEFT JOIN dim_waktu w ON w.waktu_id = f.waktu_id
        WHERE m.minimart_id IS NULL OR c.cashier_id IS NULL OR w.waktu_id IS NULL
    `).Scan(&orphans)
	if err != nil {
		t.Fatalf("Failed to check references: %v", err)
	}
	if orphans != 0 {
		t.Errorf("found %d fact rows with dangling dimension references", orphans)
	}
}

func TestLoaderPartialFailureLeavesWarehouseUnchanged(t *testing.T) {
	env := setupPipelineEnv(t)
	env.seedScenario(t)
	ctx := context.Background()

	batch, err := NewExtractor(env.source, "").Extract(ctx, time.Time{})
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	result, err := Transform(batch)
	if err != nil {
		t.Fatalf("Transform failed: %v", err)
	}
	if _, err := NewStager(env.staging).Stage(ctx, result.Records, result.Lines); err != nil {
		t.Fatalf("Stage failed: %v", err)
	}

	// Break a mid-sequence step so the load fails after earlier steps ran.
	if _, err := env.warehouse.Exec(ctx, "DROP TABLE dim_waktu CASCADE"); err != nil {
		t.Fatalf("Failed to drop dim_waktu: %v", err)
	}

	_, err = NewLoader(env.staging, env.warehouse).Load(ctx)
	if err == nil {
		t.Fatal("Load should fail without dim_waktu")
	}
	var partial *PartialLoadError
	if !errors.As(err, &partial) {
		t.Fatalf("error %v is not a PartialLoadError", err)
	}
	if partial.Step != "dim_waktu" {
		t.Errorf("failed step = %q, want dim_waktu", partial.Step)
	}

	// Earlier steps ran inside the same transaction, so nothing persists.
	if n := countRows(t, env.warehouse, "dim_minimart"); n != 0 {
		t.Errorf("dim_minimart rows after aborted load = %d, want 0", n)
	}
	if n := countRows(t, env.warehouse, "fact_sales"); n != 0 {
		t.Errorf("fact_sales rows after aborted load = %d, want 0", n)
	}
}
