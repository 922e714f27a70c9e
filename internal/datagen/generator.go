//-------------------------------------------------------------------------
//
// Minimart Data Warehouse ETL
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package datagen

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pgEdge/minimart-etl/internal/config"
	"github.com/pgEdge/minimart-etl/internal/logging"
)

// Operational source schema. The pipeline only ever reads these tables;
// the seeder creates and fills them for demos and integration tests.
const createSourceSchemaSQL = `
CREATE TABLE IF NOT EXISTS minimart (
    minimart_id     BIGSERIAL PRIMARY KEY,
    minimart_nama   VARCHAR(100) NOT NULL,
    kota_id         BIGINT NOT NULL,
    gudang_id       BIGINT NOT NULL,
    minimart_alamat VARCHAR(200)
);

CREATE TABLE IF NOT EXISTS pegawai (
    pegawai_id   BIGSERIAL PRIMARY KEY,
    pegawai_nama VARCHAR(100) NOT NULL,
    minimart_id  BIGINT NOT NULL REFERENCES minimart (minimart_id)
);

CREATE TABLE IF NOT EXISTS barang (
    barang_id    BIGSERIAL PRIMARY KEY,
    barang_nama  VARCHAR(100) NOT NULL,
    harga_satuan NUMERIC(14,2) NOT NULL
);

CREATE TABLE IF NOT EXISTS transaksi (
    transaksi_id         BIGSERIAL PRIMARY KEY,
    minimart_id          BIGINT NOT NULL REFERENCES minimart (minimart_id),
    pegawai_id           BIGINT NOT NULL REFERENCES pegawai (pegawai_id),
    tanggal_waktu        TIMESTAMP NOT NULL,
    transaksi_total      NUMERIC(14,2) NOT NULL,
    transaksi_pembayaran NUMERIC(14,2) NOT NULL,
    transaksi_kembalian  NUMERIC(14,2) NOT NULL
);

CREATE TABLE IF NOT EXISTS isi_transaksi (
    transaksi_id         BIGINT NOT NULL REFERENCES transaksi (transaksi_id),
    barang_id            BIGINT NOT NULL REFERENCES barang (barang_id),
    isi_transaksi_jumlah BIGINT NOT NULL,
    harga_satuan         NUMERIC(14,2) NOT NULL
);
`

// CreateSourceSchema creates the operational source tables.
func CreateSourceSchema(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, createSourceSchemaSQL)
	return err
}

// Seeder fills the operational source with generated retail data.
type Seeder struct {
	pool  *pgxpool.Pool
	faker *Faker
	cfg   config.SeedConfig
}

// NewSeeder creates a Seeder. A non-zero RandomSeed makes runs
// reproducible.
func NewSeeder(pool *pgxpool.Pool, cfg config.SeedConfig) *Seeder {
	faker := NewFaker()
	if cfg.RandomSeed != 0 {
		faker = NewFakerWithSeed(uint64(cfg.RandomSeed))
	}
	return &Seeder{pool: pool, faker: faker, cfg: cfg}
}

// Seed creates the source schema and fills it: outlets, cashiers, a
// product catalog, then transactions with one to five lines each spread
// over the last 30 days.
func (s *Seeder) Seed(ctx context.Context) error {
	if err := CreateSourceSchema(ctx, s.pool); err != nil {
		return fmt.Errorf("failed to create source schema: %w", err)
	}

	minimartIDs, err := s.seedMinimarts(ctx)
	if err != nil {
		return err
	}
	cashiersByMinimart, err := s.seedCashiers(ctx, minimartIDs)
	if err != nil {
		return err
	}
	items, err := s.seedItems(ctx)
	if err != nil {
		return err
	}
	if err := s.seedTransactions(ctx, minimartIDs, cashiersByMinimart, items); err != nil {
		return err
	}

	logging.Info().
		Int("minimarts", s.cfg.Minimarts).
		Int("cashiers", s.cfg.Cashiers).
		Int("items", s.cfg.Items).
		Int("transactions", s.cfg.Transactions).
		Msg("Seeded operational source")

	return nil
}

func (s *Seeder) seedMinimarts(ctx context.Context) ([]int64, error) {
	ids := make([]int64, 0, s.cfg.Minimarts)
	for i := 0; i < s.cfg.Minimarts; i++ {
		var id int64
		err := s.pool.QueryRow(ctx, `
            INSERT INTO minimart (minimart_nama, kota_id, gudang_id, minimart_alamat)
            VALUES ($1, $2, $3, $4)
            RETURNING minimart_id`,
			Truncate("Minimart "+s.faker.City(), 100),
			s.faker.Int64(1, 10),
			s.faker.Int64(1, 3),
			Truncate(s.faker.Street(), 200),
		).Scan(&id)
		if err != nil {
			return nil, fmt.Errorf("failed to seed minimart: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (s *Seeder) seedCashiers(ctx context.Context, minimartIDs []int64) (map[int64][]int64, error) {
	byMinimart := make(map[int64][]int64)
	for i := 0; i < s.cfg.Cashiers; i++ {
		minimartID := Choose(s.faker, minimartIDs)
		var id int64
		err := s.pool.QueryRow(ctx, `
            INSERT INTO pegawai (pegawai_nama, minimart_id)
            VALUES ($1, $2)
            RETURNING pegawai_id`,
			Truncate(s.faker.Name(), 100),
			minimartID,
		).Scan(&id)
		if err != nil {
			return nil, fmt.Errorf("failed to seed pegawai: %w", err)
		}
		byMinimart[minimartID] = append(byMinimart[minimartID], id)
	}
	return byMinimart, nil
}

type seedItem struct {
	id    int64
	price float64
}

func (s *Seeder) seedItems(ctx context.Context) ([]seedItem, error) {
	items := make([]seedItem, 0, s.cfg.Items)
	for i := 0; i < s.cfg.Items; i++ {
		price := s.faker.Price(1, 100)
		var id int64
		err := s.pool.QueryRow(ctx, `
            INSERT INTO barang (barang_nama, harga_satuan)
            VALUES ($1, $2)
            RETURNING barang_id`,
			Truncate(s.faker.ProductName(), 100),
			price,
		).Scan(&id)
		if err != nil {
			return nil, fmt.Errorf("failed to seed barang: %w", err)
		}
		items = append(items, seedItem{id: id, price: price})
	}
	return items, nil
}

func (s *Seeder) seedTransactions(ctx context.Context, minimartIDs []int64, cashiersByMinimart map[int64][]int64, items []seedItem) error {
	now := time.Now()
	start := now.AddDate(0, 0, -30)

	for i := 0; i < s.cfg.Transactions; i++ {
		minimartID := Choose(s.faker, minimartIDs)
		cashiers := cashiersByMinimart[minimartID]
		if len(cashiers) == 0 {
			// An outlet with no cashiers can't sell anything.
			continue
		}
		cashierID := Choose(s.faker, cashiers)

		lineCount := s.faker.Int(1, 5)
		type line struct {
			item seedItem
			qty  int64
		}
		lines := make([]line, 0, lineCount)
		total := 0.0
		for j := 0; j < lineCount; j++ {
			it := Choose(s.faker, items)
			qty := s.faker.Int64(1, 10)
			lines = append(lines, line{item: it, qty: qty})
			total += float64(qty) * it.price
		}
		payment := total + s.faker.Price(0, 50)

		var txnID int64
		err := s.pool.QueryRow(ctx, `
            INSERT INTO transaksi (minimart_id, pegawai_id, tanggal_waktu,
                transaksi_total, transaksi_pembayaran, transaksi_kembalian)
            VALUES ($1, $2, $3, $4, $5, $6)
            RETURNING transaksi_id`,
			minimartID, cashierID, s.faker.DateRange(start, now),
			total, payment, payment-total,
		).Scan(&txnID)
		if err != nil {
			return fmt.Errorf("failed to seed transaksi: %w", err)
		}

		for _, l := range lines {
			_, err := s.pool.Exec(ctx, `
                INSERT INTO isi_transaksi (transaksi_id, barang_id, isi_transaksi_jumlah, harga_satuan)
                VALUES ($1, $2, $3, $4)`,
				txnID, l.item.id, l.qty, l.item.price,
			)
			if err != nil {
				return fmt.Errorf("failed to seed isi_transaksi: %w", err)
			}
		}
	}

	return nil
}
