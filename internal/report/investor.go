//-------------------------------------------------------------------------
//
// Minimart Data Warehouse ETL
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package report

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pgEdge/minimart-etl/internal/logging"
)

const recipientsSQL = `
SELECT p.minimart_id, m.minimart_nama, p.pemilik_email
FROM pemilik p
JOIN dim_minimart m ON m.minimart_id = p.minimart_id
ORDER BY p.minimart_id, p.pemilik_email`

const dailySummarySQL = `
SELECT COUNT(*), COALESCE(SUM(total_amount), 0), COALESCE(SUM(profit), 0)
FROM fact_sales
WHERE minimart_id = $1 AND sales_datetime >= $2 AND sales_datetime < $3`

const cashierSummarySQL = `
SELECT c.cashier_nama, COUNT(*), COALESCE(SUM(f.total_amount), 0)
FROM fact_sales f
JOIN dim_cashier c ON c.cashier_id = f.cashier_id
WHERE f.minimart_id = $1 AND f.sales_datetime >= $2 AND f.sales_datetime < $3
GROUP BY c.cashier_nama
ORDER BY SUM(f.total_amount) DESC`

const hourlySummarySQL = `
SELECT w.jam, COALESCE(SUM(f.total_amount), 0)
FROM fact_sales f
JOIN dim_waktu w ON w.waktu_id = f.waktu_id
WHERE f.minimart_id = $1 AND f.sales_datetime >= $2 AND f.sales_datetime < $3
GROUP BY w.jam
ORDER BY w.jam`

// DailySummary aggregates one outlet's sales for one day.
type DailySummary struct {
	MinimartID   int64
	MinimartNama string
	Date         time.Time
	Transactions int64
	Revenue      float64
	Profit       float64
	Cashiers     []CashierSummary
	Hours        []HourSummary
}

// CashierSummary is one cashier's contribution to the day.
type CashierSummary struct {
	Name         string
	Transactions int64
	Revenue      float64
}

// HourSummary is the revenue of one hour of the day.
type HourSummary struct {
	Hour    int
	Revenue float64
}

// InvestorReporter mails each outlet owner a daily sales summary.
type InvestorReporter struct {
	warehouse *pgxpool.Pool
	sender    Sender
}

// NewInvestorReporter creates an InvestorReporter using the given sender.
func NewInvestorReporter(warehouse *pgxpool.Pool, sender Sender) *InvestorReporter {
	return &InvestorReporter{warehouse: warehouse, sender: sender}
}

// SendReports builds and mails today's summary to every registered owner.
// A failed send is logged and counted but never stops the remaining
// recipients; the error reports how many sends failed.
func (r *InvestorReporter) SendReports(ctx context.Context, day time.Time) error {
	recipients, err := r.recipients(ctx)
	if err != nil {
		return err
	}
	if len(recipients) == 0 {
		logging.Info().Msg("No report recipients registered")
		return nil
	}

	failed := 0
	for _, rec := range recipients {
		summary, err := r.summarize(ctx, rec.minimartID, rec.minimartNama, day)
		if err != nil {
			return err
		}

		subject := fmt.Sprintf("Daily sales report: %s (%s)",
			rec.minimartNama, day.Format("2006-01-02"))
		body := RenderSummary(summary)

		if err := r.sender.Send(rec.email, subject, body); err != nil {
			sendErr := &SendError{Recipient: rec.email, Err: err}
			logging.Error().Err(sendErr).Int64("minimart_id", rec.minimartID).Msg("Report delivery failed")
			failed++
			continue
		}
		logging.Info().Str("recipient", rec.email).Int64("minimart_id", rec.minimartID).Msg("Report sent")
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d report deliveries failed", failed, len(recipients))
	}
	return nil
}

type recipient struct {
	minimartID   int64
	minimartNama string
	email        string
}

func (r *InvestorReporter) recipients(ctx context.Context) ([]recipient, error) {
	rows, err := r.warehouse.Query(ctx, recipientsSQL)
	if err != nil {
		return nil, fmt.Errorf("recipient query failed: %w", err)
	}
	defer rows.Close()

	var recipients []recipient
	for rows.Next() {
		var rec recipient
		if err := rows.Scan(&rec.minimartID, &rec.minimartNama, &rec.email); err != nil {
			return nil, err
		}
		recipients = append(recipients, rec)
	}
	return recipients, rows.Err()
}

func (r *InvestorReporter) summarize(ctx context.Context, minimartID int64, minimartNama string, day time.Time) (*DailySummary, error) {
	from := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	to := from.AddDate(0, 0, 1)

	summary := &DailySummary{
		MinimartID:   minimartID,
		MinimartNama: minimartNama,
		Date:         from,
	}

	err := r.warehouse.QueryRow(ctx, dailySummarySQL, minimartID, from, to).
		Scan(&summary.Transactions, &summary.Revenue, &summary.Profit)
	if err != nil {
		return nil, fmt.Errorf("daily summary query failed: %w", err)
	}

	rows, err := r.warehouse.Query(ctx, cashierSummarySQL, minimartID, from, to)
	if err != nil {
		return nil, fmt.Errorf("cashier summary query failed: %w", err)
	}
	for rows.Next() {
		var c CashierSummary
		if err := rows.Scan(&c.Name, &c.Transactions, &c.Revenue); err != nil {
			rows.Close()
			return nil, err
		}
		summary.Cashiers = append(summary.Cashiers, c)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = r.warehouse.Query(ctx, hourlySummarySQL, minimartID, from, to)
	if err != nil {
		return nil, fmt.Errorf("hourly summary query failed: %w", err)
	}
	for rows.Next() {
		var h HourSummary
		if err := rows.Scan(&h.Hour, &h.Revenue); err != nil {
			rows.Close()
			return nil, err
		}
		summary.Hours = append(summary.Hours, h)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return summary, nil
}

// RenderSummary renders a daily summary as the plain-text mail body. A
// day without sales still produces a message so owners can tell "no
// sales" apart from "no report".
func RenderSummary(s *DailySummary) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Daily sales report for %s\n", s.MinimartNama)
	fmt.Fprintf(&b, "Date: %s\n\n", s.Date.Format("2006-01-02"))

	if s.Transactions == 0 {
		b.WriteString("No sales were recorded today.\n")
		return b.String()
	}

	b.WriteString("Summary\n")
	fmt.Fprintf(&b, "  Transactions: %d\n", s.Transactions)
	fmt.Fprintf(&b, "  Revenue:      %.2f\n", s.Revenue)
	fmt.Fprintf(&b, "  Profit:       %.2f\n\n", s.Profit)

	if len(s.Cashiers) > 0 {
		b.WriteString("Cashier performance\n")
		for _, c := range s.Cashiers {
			fmt.Fprintf(&b, "  %-20s %4d transactions  %10.2f\n", c.Name, c.Transactions, c.Revenue)
		}
		b.WriteString("\n")
	}

	if len(s.Hours) > 0 {
		b.WriteString("Revenue by hour\n")
		for _, h := range s.Hours {
			fmt.Fprintf(&b, "  %02d:00  %10.2f\n", h.Hour, h.Revenue)
		}
	}

	return b.String()
}
