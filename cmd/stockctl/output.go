package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"text/tabwriter"

	"github.com/dustin/go-humanize"

	"github.com/rl1809/stockdesk/internal/core/domain"
	"github.com/rl1809/stockdesk/internal/core/service"
)

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
}

func printItems(w io.Writer, items []domain.InventoryItem) error {
	if len(items) == 0 {
		fmt.Fprintln(w, "No items.")
		return nil
	}
	tw := newTable(w)
	fmt.Fprintln(tw, "ID\tNAME\tQUANTITY\tSTOCK\tDESCRIPTION")
	for _, item := range items {
		stock := "ok"
		if item.IsLowStock() {
			stock = "LOW"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", item.ID, item.Name, humanize.Comma(int64(item.Quantity)), stock, item.Description)
	}
	return tw.Flush()
}

func printRequests(w io.Writer, records []domain.RequestRecord) error {
	if len(records) == 0 {
		fmt.Fprintln(w, "No requests.")
		return nil
	}
	tw := newTable(w)
	fmt.Fprintln(tw, "ID\tITEM\tQUANTITY\tSTATUS\tUSER")
	for _, r := range records {
		name := r.Inventory.Name
		if name == "" {
			name = "#" + strconv.FormatInt(r.InventoryID, 10)
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", r.ID, name, humanize.Comma(int64(r.Quantity)), r.Status, r.UserID)
	}
	return tw.Flush()
}

func printSeries(w io.Writer, s domain.Series) {
	fmt.Fprintf(w, "%s:\n", s.Name)
	if len(s.Points) == 0 {
		fmt.Fprintln(w, "  (no data)")
		return
	}
	tw := newTable(w)
	for _, p := range s.Points {
		fmt.Fprintf(tw, "  %s\t%s\t%s%%\n", p.Label, humanize.Comma(int64(p.Value)), p.Share.String())
	}
	_ = tw.Flush()
	if s.Ignored > 0 {
		fmt.Fprintf(w, "  (%d with unknown status not shown)\n", s.Ignored)
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printDashboard(w io.Writer, snap service.Snapshot) {
	fmt.Fprintln(w, snap.Welcome)
	fmt.Fprintln(w)
	printSummary(w, snap)
	fmt.Fprintln(w)

	if snap.Role == domain.RoleAdmin {
		printSeries(w, snap.StockStatus)
		printSeries(w, snap.TopQuantity)
	}
	printSeries(w, snap.RequestStatus)

	if len(snap.Failures) > 0 {
		fmt.Fprintln(w)
		printFailures(w, snap)
	}
}

func printSummary(w io.Writer, snap service.Snapshot) {
	if snap.Role == domain.RoleAdmin {
		fmt.Fprintf(w, "Items: %d   Low stock: %d\n", snap.InventoryStats.Total, snap.InventoryStats.LowStockCount)
	}
	fmt.Fprintf(w, "Requests: %d   Pending: %d\n", snap.RequestStats.Total, snap.RequestStats.Pending)
}

// printFailures lists the fetch steps of snap that did not load, in name order.
func printFailures(w io.Writer, snap service.Snapshot) {
	steps := make([]string, 0, len(snap.Failures))
	for step := range snap.Failures {
		steps = append(steps, string(step))
	}
	sort.Strings(steps)
	for _, step := range steps {
		fmt.Fprintf(w, "warning: %s could not be loaded: %v\n", step, snap.Failures[service.FetchStep(step)])
	}
}
