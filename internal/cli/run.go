package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/pgEdge/minimart-etl/internal/db"
	"github.com/pgEdge/minimart-etl/internal/logging"
	"github.com/pgEdge/minimart-etl/internal/report"
	"github.com/pgEdge/minimart-etl/internal/scheduler"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the scheduler daemon",
	Long: `Run all jobs on their configured schedules until interrupted:
the ETL pipeline, the restock export followed by delivery plan
generation, and the daily investor report. A failed or overrunning job
is logged and retried at its next tick; it never stops the daemon.

Example:
  minimart-etl run --config minimart-etl.yaml`,
	RunE: runDaemon,
}

func runDaemon(cmd *cobra.Command, args []string) error {
	if err := cfg.ValidateRun(); err != nil {
		return err
	}

	ctx := context.Background()

	pipeline, cleanup, err := buildPipeline(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	warehouse, err := db.Connect(ctx, cfg.WarehouseConnection, "warehouse")
	if err != nil {
		return err
	}
	defer warehouse.Close()

	exporter := report.NewRestockExporter(warehouse, cfg.ExportDir, cfg.GudangID)
	planner := report.NewDeliveryPlanner(cfg.ExportDir, cfg.GudangID)
	reporter := report.NewInvestorReporter(warehouse, report.NewSMTPSender(cfg.Mail))

	sched := scheduler.New(time.Duration(cfg.Schedule.JobTimeoutMinutes) * time.Minute)

	if err := sched.AddJob("etl", cfg.Schedule.ETL, pipeline.Run); err != nil {
		return err
	}

	// Restock and delivery run as one job: the plan reads the export, so
	// scheduling them separately would just race the file.
	if err := sched.AddJob("warehouse", cfg.Schedule.Warehouse, func(ctx context.Context) error {
		path, err := exporter.Export(ctx)
		if err != nil {
			return err
		}
		if path == "" {
			return nil
		}
		_, err = planner.GeneratePlan()
		return err
	}); err != nil {
		return err
	}

	if err := sched.AddJob("report", cfg.Schedule.Report, func(ctx context.Context) error {
		return reporter.SendReports(ctx, time.Now())
	}); err != nil {
		return err
	}

	sched.Start()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logging.Info().Str("signal", sig.String()).Msg("Shutting down")

	sched.Stop()
	return nil
}
