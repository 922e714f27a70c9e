package cli

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/pgEdge/minimart-etl/internal/db"
	"github.com/pgEdge/minimart-etl/internal/report"
)

var restockCmd = &cobra.Command{
	Use:   "restock",
	Short: "Export restock data for the configured gudang",
	Long: `Aggregate warehouse item sales per outlet for the configured gudang
and write them to restock_data_gudang_<id>.csv in the export directory.
The delivery command reads this file.`,
	RunE: runRestock,
}

var deliveryCmd = &cobra.Command{
	Use:   "delivery",
	Short: "Generate a delivery plan from the restock export",
	Long: `Read the restock export for the configured gudang and write
delivery_plan_gudang_<id>.csv. Delivery quantity tops each outlet's stock
up to twice its sold volume.`,
	RunE: runDelivery,
}

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Send today's sales report to outlet owners",
	Long: `Build each registered owner's daily sales summary from the warehouse
and mail it through the configured SMTP relay.`,
	RunE: runReport,
}

func runRestock(cmd *cobra.Command, args []string) error {
	if err := cfg.ValidateWarehouseJobs(); err != nil {
		return err
	}

	ctx := context.Background()
	warehouse, err := db.Connect(ctx, cfg.WarehouseConnection, "warehouse")
	if err != nil {
		return err
	}
	defer warehouse.Close()

	_, err = report.NewRestockExporter(warehouse, cfg.ExportDir, cfg.GudangID).Export(ctx)
	return err
}

func runDelivery(cmd *cobra.Command, args []string) error {
	if err := cfg.ValidateWarehouseJobs(); err != nil {
		return err
	}

	_, err := report.NewDeliveryPlanner(cfg.ExportDir, cfg.GudangID).GeneratePlan()
	return err
}

func runReport(cmd *cobra.Command, args []string) error {
	if err := cfg.ValidateReport(); err != nil {
		return err
	}

	ctx := context.Background()
	warehouse, err := db.Connect(ctx, cfg.WarehouseConnection, "warehouse")
	if err != nil {
		return err
	}
	defer warehouse.Close()

	sender := report.NewSMTPSender(cfg.Mail)
	return report.NewInvestorReporter(warehouse, sender).SendReports(ctx, time.Now())
}
