package report

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"

	"github.com/rl1809/stockdesk/internal/core/service"
)

// WriteText prints r as an aligned plain-text table for terminals.
func WriteText(w io.Writer, r service.InventoryReport) error {
	if _, err := fmt.Fprintf(w, "%s\n%s\n\n", r.Title, r.GeneratedLine()); err != nil {
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(r.Columns, "\t"))
	for _, row := range r.Rows {
		cells := row.Cells()
		cells[2] = humanize.Comma(int64(row.Quantity))
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	_, err := fmt.Fprintf(w, "\n%s\n", strings.Join(r.SummaryLines(), "\n"))
	return err
}
