package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pgEdge/minimart-etl/internal/db"
	"github.com/pgEdge/minimart-etl/internal/etl"
	"github.com/pgEdge/minimart-etl/internal/logging"
)

var initDropExisting bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the staging and warehouse schemas",
	Long: `Create the staging tables, the run metadata table and the star-schema
warehouse tables. Existing tables are left untouched unless
--drop-existing is given.

Example:
  minimart-etl init --staging-connection "postgres://..." --warehouse-connection "postgres://..."`,
	RunE: runInitCmd,
}

func init() {
	initCmd.Flags().BoolVar(&initDropExisting, "drop-existing", false,
		"drop existing staging and warehouse tables first")
}

func runInitCmd(cmd *cobra.Command, args []string) error {
	if cfg.StagingConnection == "" {
		return fmt.Errorf("staging connection string is required")
	}
	if cfg.WarehouseConnection == "" {
		return fmt.Errorf("warehouse connection string is required")
	}

	ctx := context.Background()

	staging, err := db.Connect(ctx, cfg.StagingConnection, "staging")
	if err != nil {
		return err
	}
	defer staging.Close()

	warehouse, err := db.Connect(ctx, cfg.WarehouseConnection, "warehouse")
	if err != nil {
		return err
	}
	defer warehouse.Close()

	if initDropExisting {
		logging.Warn().Msg("Dropping existing schemas")
		if err := etl.DropWarehouseSchema(ctx, warehouse); err != nil {
			return fmt.Errorf("failed to drop warehouse schema: %w", err)
		}
		if err := etl.DropStagingSchema(ctx, staging); err != nil {
			return fmt.Errorf("failed to drop staging schema: %w", err)
		}
		if err := db.DropMetadata(ctx, staging); err != nil {
			logging.Debug().Err(err).Msg("No metadata table to drop")
		}
	}

	logging.Info().Msg("Creating staging schema")
	if err := etl.CreateStagingSchema(ctx, staging); err != nil {
		return fmt.Errorf("failed to create staging schema: %w", err)
	}
	if err := db.EnsureMetadata(ctx, staging); err != nil {
		return err
	}

	logging.Info().Msg("Creating warehouse schema")
	if err := etl.CreateWarehouseSchema(ctx, warehouse); err != nil {
		return fmt.Errorf("failed to create warehouse schema: %w", err)
	}

	logging.Info().Msg("Initialization complete")
	return nil
}
