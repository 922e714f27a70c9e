//-------------------------------------------------------------------------
//
// Minimart Data Warehouse ETL
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package config handles configuration management for minimart-etl.
// Configuration is loaded from config files and CLI flags (no environment
// variables). CLI flags take precedence over config file values.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Config holds all configuration for minimart-etl.
type Config struct {
	// SourceConnection is the connection string for the operational
	// (OLTP) database. The pipeline only ever reads from it.
	SourceConnection string `mapstructure:"source_connection"`

	// StagingConnection is the connection string for the staging database.
	StagingConnection string `mapstructure:"staging_connection"`

	// WarehouseConnection is the connection string for the data warehouse.
	WarehouseConnection string `mapstructure:"warehouse_connection"`

	// LogLevel controls logging verbosity (debug, info, warn, error).
	LogLevel string `mapstructure:"log_level"`

	// DataDir is where extraction audit batches are written.
	DataDir string `mapstructure:"data_dir"`

	// ExportDir is where restock and delivery plan files are written.
	ExportDir string `mapstructure:"export_dir"`

	// GudangID identifies the warehouse node this instance exports for.
	GudangID int64 `mapstructure:"gudang_id"`

	// Schedule holds the job cadences for the run subcommand.
	Schedule ScheduleConfig `mapstructure:"schedule"`

	// Mail holds SMTP settings for investor report dispatch.
	Mail MailConfig `mapstructure:"mail"`

	// Seed holds configuration for the seed subcommand.
	Seed SeedConfig `mapstructure:"seed"`
}

// ScheduleConfig holds the cron cadences for the scheduler daemon.
type ScheduleConfig struct {
	// ETL is the cadence of the extract-transform-stage-load pipeline.
	ETL string `mapstructure:"etl"`

	// Warehouse is the cadence of the restock export followed by
	// delivery plan generation. The two run as one job because the
	// delivery plan reads the restock export.
	Warehouse string `mapstructure:"warehouse"`

	// Report is the cadence of investor report dispatch.
	Report string `mapstructure:"report"`

	// JobTimeoutMinutes bounds each job invocation. A job past its
	// deadline is cancelled and logged, never left running indefinitely.
	JobTimeoutMinutes int `mapstructure:"job_timeout_minutes"`
}

// MailConfig holds SMTP settings for outbound mail.
type MailConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
}

// SeedConfig holds configuration for demo source data generation.
type SeedConfig struct {
	// Minimarts is the number of outlets to create.
	Minimarts int `mapstructure:"minimarts"`

	// Cashiers is the number of employees to create.
	Cashiers int `mapstructure:"cashiers"`

	// Items is the number of products to create.
	Items int `mapstructure:"items"`

	// Transactions is the number of sales transactions to create.
	Transactions int `mapstructure:"transactions"`

	// RandomSeed makes generation reproducible when non-zero.
	RandomSeed uint64 `mapstructure:"random_seed"`
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		LogLevel:  "info",
		DataDir:   "data",
		ExportDir: "exports",
		GudangID:  1,
		Schedule: ScheduleConfig{
			ETL:               "0 2 * * *",
			Warehouse:         "@every 6h",
			Report:            "0 22 * * *",
			JobTimeoutMinutes: 30,
		},
		Mail: MailConfig{
			Port: 587,
		},
		Seed: SeedConfig{
			Minimarts:    5,
			Cashiers:     20,
			Items:        200,
			Transactions: 1000,
		},
	}
}

// Load reads configuration from config files.
// Config file locations (in order of precedence):
// 1. Path specified by configFile parameter
// 2. ./minimart-etl.yaml
// 3. ~/.config/minimart-etl/config.yaml
func Load(configFile string) (*Config, error) {
	v := viper.New()

	v.SetConfigName("minimart-etl")
	v.SetConfigType("yaml")

	v.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".config", "minimart-etl"))
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
	}

	// Read config file (ignore if not found)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	// Start with defaults
	cfg := DefaultConfig()

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}

	return cfg, nil
}

// ValidateETL checks configuration required for a pipeline run.
func (c *Config) ValidateETL() error {
	if c.SourceConnection == "" {
		return fmt.Errorf("source connection string is required")
	}
	if c.StagingConnection == "" {
		return fmt.Errorf("staging connection string is required")
	}
	if c.WarehouseConnection == "" {
		return fmt.Errorf("warehouse connection string is required")
	}
	return nil
}

// ValidateWarehouseJobs checks configuration required for the restock
// export and delivery plan jobs.
func (c *Config) ValidateWarehouseJobs() error {
	if c.WarehouseConnection == "" {
		return fmt.Errorf("warehouse connection string is required")
	}
	if c.ExportDir == "" {
		return fmt.Errorf("export directory is required")
	}
	if c.GudangID < 1 {
		return fmt.Errorf("gudang_id must be at least 1")
	}
	return nil
}

// ValidateReport checks configuration required for investor report dispatch.
func (c *Config) ValidateReport() error {
	if c.WarehouseConnection == "" {
		return fmt.Errorf("warehouse connection string is required")
	}
	if c.Mail.From == "" {
		return fmt.Errorf("mail from address is required")
	}
	return nil
}

// ValidateSeed checks configuration required for the seed command.
func (c *Config) ValidateSeed() error {
	if c.SourceConnection == "" {
		return fmt.Errorf("source connection string is required")
	}
	if c.Seed.Minimarts < 1 || c.Seed.Cashiers < 1 || c.Seed.Items < 1 {
		return fmt.Errorf("seed counts must be at least 1")
	}
	if c.Seed.Transactions < 0 {
		return fmt.Errorf("seed transactions must be non-negative")
	}
	return nil
}

// ValidateRun checks configuration required for the scheduler daemon.
func (c *Config) ValidateRun() error {
	if err := c.ValidateETL(); err != nil {
		return err
	}
	if err := c.ValidateWarehouseJobs(); err != nil {
		return err
	}
	if c.Schedule.ETL == "" || c.Schedule.Warehouse == "" || c.Schedule.Report == "" {
		return fmt.Errorf("all job schedules are required")
	}
	if c.Schedule.JobTimeoutMinutes < 1 {
		return fmt.Errorf("job_timeout_minutes must be at least 1")
	}
	return nil
}
