package service

import (
	"fmt"
	"strconv"
	"time"

	"github.com/rl1809/stockdesk/internal/core/domain"
)

const (
	ReportTitle    = "Inventory Report"
	StatusLowStock = "LOW STOCK"
	StatusInStock  = "IN STOCK"
)

var ReportColumns = []string{"ID", "Name", "Quantity", "Description", "Stock Status"}

type ReportRow struct {
	ID          int64
	Name        string
	Quantity    int
	Description string
	StockStatus string
}

func (r ReportRow) Cells() []string {
	return []string{strconv.FormatInt(r.ID, 10), r.Name, strconv.Itoa(r.Quantity), r.Description, r.StockStatus}
}

// InventoryReport is the fixed printable layout: title, generation date,
// one row per item and a two line summary.
type InventoryReport struct {
	Title         string
	GeneratedAt   time.Time
	Columns       []string
	Rows          []ReportRow
	TotalItems    int
	LowStockItems int
}

func BuildInventoryReport(items []domain.InventoryItem, generatedAt time.Time) InventoryReport {
	stats := ComputeInventoryStats(items)
	report := InventoryReport{
		Title:         ReportTitle,
		GeneratedAt:   generatedAt,
		Columns:       append([]string(nil), ReportColumns...),
		Rows:          make([]ReportRow, 0, len(items)),
		TotalItems:    stats.Total,
		LowStockItems: stats.LowStockCount,
	}
	for _, item := range items {
		row := ReportRow{
			ID:          item.ID,
			Name:        item.Name,
			Quantity:    item.Quantity,
			Description: item.Description,
			StockStatus: StatusInStock,
		}
		if row.Description == "" {
			row.Description = "N/A"
		}
		if item.IsLowStock() {
			row.StockStatus = StatusLowStock
		}
		report.Rows = append(report.Rows, row)
	}
	return report
}

func (r InventoryReport) GeneratedLine() string {
	return "Generated: " + r.GeneratedAt.Format("2006-01-02")
}

func (r InventoryReport) SummaryLines() []string {
	return []string{
		fmt.Sprintf("Total Items: %d", r.TotalItems),
		fmt.Sprintf("Low Stock Items: %d", r.LowStockItems),
	}
}
