package report

import (
	"fmt"
	"io"

	"github.com/go-pdf/fpdf"

	"github.com/rl1809/stockdesk/internal/core/service"
)

var columnWidths = []float64{15, 50, 22, 73, 30}

const (
	fontFamily = "Helvetica"
	rowHeight  = 7
)

// WritePDF renders r as a single A4 table document.
func WritePDF(w io.Writer, r service.InventoryReport) error {
	if len(r.Columns) != len(columnWidths) {
		return fmt.Errorf("report has %d columns, layout expects %d", len(r.Columns), len(columnWidths))
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	// Core fonts are cp1252; item text arrives as UTF-8.
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle(r.Title, true)
	pdf.SetCreationDate(r.GeneratedAt)
	pdf.SetMargins(10, 12, 10)
	pdf.SetAutoPageBreak(true, 15)
	pdf.AddPage()

	pdf.SetFont(fontFamily, "B", 18)
	pdf.CellFormat(0, 12, tr(r.Title), "", 1, "C", false, 0, "")
	pdf.SetFont(fontFamily, "", 10)
	pdf.CellFormat(0, 6, tr(r.GeneratedLine()), "", 1, "L", false, 0, "")
	pdf.Ln(4)

	header := func() {
		pdf.SetFont(fontFamily, "B", 10)
		pdf.SetFillColor(230, 230, 230)
		for i, col := range r.Columns {
			pdf.CellFormat(columnWidths[i], rowHeight, tr(col), "1", 0, "C", true, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetFont(fontFamily, "", 9)
	}
	pdf.SetHeaderFunc(func() {
		if pdf.PageNo() > 1 {
			header()
		}
	})
	header()

	for _, row := range r.Rows {
		cells := row.Cells()
		for i, cell := range cells {
			align := "L"
			if i == 0 || i == 2 {
				align = "R"
			}
			if i == len(cells)-1 && row.StockStatus == service.StatusLowStock {
				pdf.SetTextColor(200, 0, 0)
			}
			pdf.CellFormat(columnWidths[i], rowHeight, fit(pdf, tr, cell, columnWidths[i]-2), "1", 0, align, false, 0, "")
			pdf.SetTextColor(0, 0, 0)
		}
		pdf.Ln(-1)
	}

	pdf.Ln(6)
	pdf.SetFont(fontFamily, "B", 11)
	for _, line := range r.SummaryLines() {
		pdf.CellFormat(0, 6, tr(line), "", 1, "L", false, 0, "")
	}

	if err := pdf.Error(); err != nil {
		return fmt.Errorf("render pdf: %w", err)
	}
	return pdf.Output(w)
}

// fit translates s with tr and shortens it with an ellipsis until it fits in
// width. Truncation works on the UTF-8 runes of s.
func fit(pdf *fpdf.Fpdf, tr func(string) string, s string, width float64) string {
	out := tr(s)
	if pdf.GetStringWidth(out) <= width {
		return out
	}
	runes := []rune(s)
	for len(runes) > 0 {
		runes = runes[:len(runes)-1]
		out = tr(string(runes) + "...")
		if pdf.GetStringWidth(out) <= width {
			return out
		}
	}
	return "..."
}
