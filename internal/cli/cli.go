//-------------------------------------------------------------------------
//
// Minimart Data Warehouse ETL
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package cli implements the command-line interface for minimart-etl.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/pgEdge/minimart-etl/internal/config"
	"github.com/pgEdge/minimart-etl/internal/logging"
	"github.com/pgEdge/minimart-etl/pkg/version"
)

var (
	// Global flags
	cfgFile             string
	sourceConnection    string
	stagingConnection   string
	warehouseConnection string
	logLevel            string

	// Global config
	cfg *config.Config

	rootCmd = &cobra.Command{
		Use:   "minimart-etl",
		Short: "Staged ETL pipeline for minimart retail analytics",
		Long: `minimart-etl moves retail transactions from an operational PostgreSQL
database through a staging area into a star-schema data warehouse, and
runs the downstream jobs that feed on the warehouse: restock exports,
delivery plans and daily investor reports.

The pipeline is incremental and idempotent: each run extracts only
transactions newer than the stored watermark, and re-running a window
converges on the same warehouse state.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig()
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default: ./minimart-etl.yaml)")
	rootCmd.PersistentFlags().StringVar(&sourceConnection, "source-connection", "",
		"connection string for the operational source database")
	rootCmd.PersistentFlags().StringVar(&stagingConnection, "staging-connection", "",
		"connection string for the staging database")
	rootCmd.PersistentFlags().StringVar(&warehouseConnection, "warehouse-connection", "",
		"connection string for the warehouse database")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "",
		"log level (debug, info, warn, error)")

	// Add subcommands
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(etlCmd)
	rootCmd.AddCommand(restockCmd)
	rootCmd.AddCommand(deliveryCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(runCmd)
}

func initConfig() error {
	var err error
	cfg, err = config.Load(cfgFile)
	if err != nil {
		return err
	}

	// Override with CLI flags
	if sourceConnection != "" {
		cfg.SourceConnection = sourceConnection
	}
	if stagingConnection != "" {
		cfg.StagingConnection = stagingConnection
	}
	if warehouseConnection != "" {
		cfg.WarehouseConnection = warehouseConnection
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}

	// Reinitialize logger with config
	logging.Init(logging.Config{
		Level:  cfg.LogLevel,
		Pretty: true,
	})

	return nil
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Println(version.Info())
	},
}
