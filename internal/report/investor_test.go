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
	"errors"
	"strings"
	"testing"
	"time"
)

func TestRenderSummary(t *testing.T) {
	summary := &DailySummary{
		MinimartID:   5,
		MinimartNama: "Minimart Lima",
		Date:         time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Transactions: 12,
		Revenue:      340.50,
		Profit:       340.50,
		Cashiers: []CashierSummary{
			{Name: "Budi", Transactions: 8, Revenue: 220.50},
			{Name: "Sari", Transactions: 4, Revenue: 120.00},
		},
		Hours: []HourSummary{
			{Hour: 9, Revenue: 100.00},
			{Hour: 14, Revenue: 240.50},
		},
	}

	body := RenderSummary(summary)

	for _, want := range []string{
		"Minimart Lima",
		"2024-01-01",
		"Transactions: 12",
		"340.50",
		"Budi",
		"Sari",
		"14:00",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("report body missing %q:\n%s", want, body)
		}
	}
}

func TestRenderSummaryNoSales(t *testing.T) {
	summary := &DailySummary{
		MinimartID:   5,
		MinimartNama: "Minimart Lima",
		Date:         time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}

	body := RenderSummary(summary)
	if !strings.Contains(body, "No sales were recorded today.") {
		t.Errorf("empty day should render the no-sales notice:\n%s", body)
	}
	if strings.Contains(body, "Cashier performance") {
		t.Error("empty day should not render cashier section")
	}
}

type fakeSender struct {
	sent    []string
	failFor map[string]bool
}

func (f *fakeSender) Send(to, subject, body string) error {
	if f.failFor[to] {
		return errFake
	}
	f.sent = append(f.sent, to)
	return nil
}

var errFake = errors.New("relay refused")
