package cli

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/pgEdge/minimart-etl/internal/db"
	"github.com/pgEdge/minimart-etl/internal/etl"
)

var etlCmd = &cobra.Command{
	Use:   "etl",
	Short: "Run one pipeline pass now",
	Long: `Run a single extract-transform-stage-load pass: pull source
transactions newer than the watermark, conform them, upsert them into
staging, load the warehouse and advance the watermark.`,
	RunE: runETL,
}

func runETL(cmd *cobra.Command, args []string) error {
	if err := cfg.ValidateETL(); err != nil {
		return err
	}

	ctx := context.Background()
	pipeline, cleanup, err := buildPipeline(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	return pipeline.Run(ctx)
}

// buildPipeline connects the three pools and wires a Pipeline over them.
// The returned cleanup closes the pools.
func buildPipeline(ctx context.Context) (*etl.Pipeline, func(), error) {
	var pools []*pgxpool.Pool
	cleanup := func() {
		for _, p := range pools {
			p.Close()
		}
	}

	source, err := db.Connect(ctx, cfg.SourceConnection, "source")
	if err != nil {
		return nil, nil, err
	}
	pools = append(pools, source)

	staging, err := db.Connect(ctx, cfg.StagingConnection, "staging")
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	pools = append(pools, staging)

	warehouse, err := db.Connect(ctx, cfg.WarehouseConnection, "warehouse")
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	pools = append(pools, warehouse)

	if err := db.EnsureMetadata(ctx, staging); err != nil {
		cleanup()
		return nil, nil, err
	}

	return etl.NewPipeline(source, staging, warehouse, cfg.DataDir), cleanup, nil
}
