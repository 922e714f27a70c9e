//-------------------------------------------------------------------------
//
// Minimart Data Warehouse ETL
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package etl

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Staging schema. Conformed tables between the raw source and the
// warehouse, upserted idempotently by natural key.
const createStagingSchemaSQL = `
CREATE TABLE IF NOT EXISTS staging_transaksi (
    transaction_id                BIGINT PRIMARY KEY,
    minimart_id                   BIGINT NOT NULL,
    cashier_id                    BIGINT NOT NULL,
    minimart_nama                 VARCHAR(100) NOT NULL,
    kota_id                       BIGINT NOT NULL,
    gudang_id                     BIGINT NOT NULL,
    minimart_alamat               VARCHAR(200) NOT NULL DEFAULT '',
    pegawai_nama                  VARCHAR(100) NOT NULL,
    original_total_amount         NUMERIC(14,2) NOT NULL DEFAULT 0,
    payment_amount                NUMERIC(14,2) NOT NULL DEFAULT 0,
    change_amount                 NUMERIC(14,2) NOT NULL DEFAULT 0,
    total_amount                  NUMERIC(14,2) NOT NULL DEFAULT 0,
    profit                        NUMERIC(14,2) NOT NULL DEFAULT 0,
    original_transaction_datetime TIMESTAMP NOT NULL,
    hour_of_day                   INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS staging_isi_transaksi (
    transaction_id BIGINT NOT NULL,
    line_seq       INTEGER NOT NULL,
    barang_id      BIGINT NOT NULL,
    quantity_sold  BIGINT NOT NULL,
    item_total     NUMERIC(14,2) NOT NULL,
    PRIMARY KEY (transaction_id, line_seq)
);
`

const dropStagingSchemaSQL = `
DROP TABLE IF EXISTS staging_isi_transaksi CASCADE;
DROP TABLE IF EXISTS staging_transaksi CASCADE;
`

// Warehouse schema. Dimensions carry business keys so repeated loads
// upsert in place instead of growing. Facts reference dimensions with
// foreign keys, which makes the load order (dimensions first) a hard
// constraint rather than a convention.
//
// stok_gudang and pemilik are owned by external processes; this pipeline
// creates them empty for convenience and only ever reads them.
const createWarehouseSchemaSQL = `
CREATE TABLE IF NOT EXISTS dim_minimart (
    minimart_id     BIGINT PRIMARY KEY,
    minimart_nama   VARCHAR(100) NOT NULL,
    kota_id         BIGINT NOT NULL,
    gudang_id       BIGINT NOT NULL,
    minimart_alamat VARCHAR(200) NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS dim_cashier (
    cashier_id   BIGINT PRIMARY KEY,
    cashier_nama VARCHAR(100) NOT NULL,
    minimart_id  BIGINT NOT NULL REFERENCES dim_minimart (minimart_id)
);

CREATE TABLE IF NOT EXISTS dim_waktu (
    waktu_id BIGINT PRIMARY KEY,
    tanggal  DATE NOT NULL,
    jam      INTEGER NOT NULL,
    hari     VARCHAR(9) NOT NULL,
    minggu   INTEGER NOT NULL,
    bulan    INTEGER NOT NULL,
    tahun    INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS fact_sales (
    transaction_id        BIGINT PRIMARY KEY,
    minimart_id           BIGINT NOT NULL REFERENCES dim_minimart (minimart_id),
    cashier_id            BIGINT NOT NULL REFERENCES dim_cashier (cashier_id),
    waktu_id              BIGINT NOT NULL REFERENCES dim_waktu (waktu_id),
    original_total_amount NUMERIC(14,2) NOT NULL,
    payment_amount        NUMERIC(14,2) NOT NULL,
    change_amount         NUMERIC(14,2) NOT NULL,
    total_amount          NUMERIC(14,2) NOT NULL,
    profit                NUMERIC(14,2) NOT NULL,
    sales_datetime        TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS fact_sales_item (
    transaction_id BIGINT NOT NULL REFERENCES fact_sales (transaction_id),
    line_seq       INTEGER NOT NULL,
    barang_id      BIGINT NOT NULL,
    quantity_sold  BIGINT NOT NULL,
    item_total     NUMERIC(14,2) NOT NULL,
    PRIMARY KEY (transaction_id, line_seq)
);

CREATE TABLE IF NOT EXISTS stok_gudang (
    gudang_id BIGINT NOT NULL,
    barang_id BIGINT NOT NULL,
    stok      BIGINT NOT NULL DEFAULT 0,
    PRIMARY KEY (gudang_id, barang_id)
);

CREATE TABLE IF NOT EXISTS pemilik (
    minimart_id   BIGINT NOT NULL,
    pemilik_email VARCHAR(200) NOT NULL,
    PRIMARY KEY (minimart_id, pemilik_email)
);

CREATE INDEX IF NOT EXISTS idx_fact_sales_minimart ON fact_sales (minimart_id);
CREATE INDEX IF NOT EXISTS idx_fact_sales_datetime ON fact_sales (sales_datetime);
CREATE INDEX IF NOT EXISTS idx_fact_sales_item_barang ON fact_sales_item (barang_id);
`

const dropWarehouseSchemaSQL = `
DROP TABLE IF EXISTS fact_sales_item CASCADE;
DROP TABLE IF EXISTS fact_sales CASCADE;
DROP TABLE IF EXISTS dim_waktu CASCADE;
DROP TABLE IF EXISTS dim_cashier CASCADE;
DROP TABLE IF EXISTS dim_minimart CASCADE;
DROP TABLE IF EXISTS stok_gudang CASCADE;
DROP TABLE IF EXISTS pemilik CASCADE;
`

// CreateStagingSchema creates the staging tables.
func CreateStagingSchema(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, createStagingSchemaSQL)
	return err
}

// DropStagingSchema drops the staging tables.
func DropStagingSchema(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, dropStagingSchemaSQL)
	return err
}

// CreateWarehouseSchema creates the warehouse tables.
func CreateWarehouseSchema(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, createWarehouseSchemaSQL)
	return err
}

// DropWarehouseSchema drops the warehouse tables.
func DropWarehouseSchema(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, dropWarehouseSchemaSQL)
	return err
}
