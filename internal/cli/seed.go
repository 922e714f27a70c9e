package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/pgEdge/minimart-etl/internal/datagen"
	"github.com/pgEdge/minimart-etl/internal/db"
)

var (
	seedMinimarts    int
	seedCashiers     int
	seedItems        int
	seedTransactions int
	seedRandomSeed   uint64
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create and fill a demo operational source database",
	Long: `Create the operational source schema (minimart, pegawai, barang,
transaksi, isi_transaksi) and fill it with generated retail data. Use a
fixed --random-seed for reproducible datasets.

Example:
  minimart-etl seed --source-connection "postgres://..." --transactions 5000`,
	RunE: runSeed,
}

func init() {
	seedCmd.Flags().IntVar(&seedMinimarts, "minimarts", 0, "number of outlets to create")
	seedCmd.Flags().IntVar(&seedCashiers, "cashiers", 0, "number of cashiers to create")
	seedCmd.Flags().IntVar(&seedItems, "items", 0, "number of products to create")
	seedCmd.Flags().IntVar(&seedTransactions, "transactions", 0, "number of transactions to create")
	seedCmd.Flags().Uint64Var(&seedRandomSeed, "random-seed", 0, "seed for reproducible generation")
}

func runSeed(cmd *cobra.Command, args []string) error {
	// Override config with CLI flags
	if seedMinimarts > 0 {
		cfg.Seed.Minimarts = seedMinimarts
	}
	if seedCashiers > 0 {
		cfg.Seed.Cashiers = seedCashiers
	}
	if seedItems > 0 {
		cfg.Seed.Items = seedItems
	}
	if seedTransactions > 0 {
		cfg.Seed.Transactions = seedTransactions
	}
	if seedRandomSeed != 0 {
		cfg.Seed.RandomSeed = seedRandomSeed
	}

	if err := cfg.ValidateSeed(); err != nil {
		return err
	}

	ctx := context.Background()
	source, err := db.Connect(ctx, cfg.SourceConnection, "source")
	if err != nil {
		return err
	}
	defer source.Close()

	return datagen.NewSeeder(source, cfg.Seed).Seed(ctx)
}
