package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/rl1809/stockdesk/internal/adapter/report"
	"github.com/rl1809/stockdesk/internal/core/domain"
	"github.com/rl1809/stockdesk/internal/core/service"
)

func (a *app) inventoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "inventory",
		Aliases: []string{"inv"},
		Short:   "Manage inventory items",
	}
	cmd.AddCommand(
		a.inventoryListCmd(),
		a.inventoryAddCmd(),
		a.inventoryUpdateCmd(),
		a.inventoryDeleteCmd(),
		a.inventorySearchCmd(),
		a.inventoryExportCmd(),
		a.inventoryImportCmd(),
		a.inventoryReportCmd(),
	)
	return cmd
}

func (a *app) inventoryListCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List inventory items",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			items, err := a.gw.ListInventory(cmd.Context())
			if err != nil {
				return a.check(cmd.Context(), err)
			}
			if asJSON {
				return printJSON(cmd.OutOrStdout(), items)
			}
			return printItems(cmd.OutOrStdout(), items)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func (a *app) inventoryAddCmd() *cobra.Command {
	var draft domain.InventoryDraft
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create an inventory item",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			item, err := a.gw.CreateInventory(cmd.Context(), draft)
			if err != nil {
				return a.check(cmd.Context(), err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created item %d (%s)\n", item.ID, item.Name)
			a.refresh(cmd)
			return nil
		},
	}
	cmd.Flags().StringVar(&draft.Name, "name", "", "item name")
	cmd.Flags().IntVar(&draft.Quantity, "quantity", 0, "quantity on hand")
	cmd.Flags().StringVar(&draft.Description, "description", "", "description")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func (a *app) inventoryUpdateCmd() *cobra.Command {
	var (
		name, description string
		quantity          int
	)
	cmd := &cobra.Command{
		Use:   "update ID",
		Short: "Change fields of an inventory item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			var patch domain.InventoryPatch
			flags := cmd.Flags()
			if flags.Changed("name") {
				patch.Name = &name
			}
			if flags.Changed("quantity") {
				patch.Quantity = &quantity
			}
			if flags.Changed("description") {
				patch.Description = &description
			}
			if patch.IsEmpty() {
				return fmt.Errorf("nothing to update; pass --name, --quantity or --description")
			}

			item, err := a.gw.UpdateInventory(cmd.Context(), id, patch)
			if err != nil {
				return a.check(cmd.Context(), err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated item %d (%s, quantity %d)\n", item.ID, item.Name, item.Quantity)
			a.refresh(cmd)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "new name")
	cmd.Flags().IntVar(&quantity, "quantity", 0, "new quantity")
	cmd.Flags().StringVar(&description, "description", "", "new description")
	return cmd
}

func (a *app) inventoryDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete an inventory item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := a.gw.DeleteInventory(cmd.Context(), id); err != nil {
				return a.check(cmd.Context(), err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted item %d\n", id)
			a.refresh(cmd)
			return nil
		},
	}
}

func (a *app) inventorySearchCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "search TERM",
		Short: "Find items whose name contains TERM",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			items, err := a.gw.ListInventory(cmd.Context())
			if err != nil {
				return a.check(cmd.Context(), err)
			}
			return printItems(cmd.OutOrStdout(), service.SearchInventory(items, strings.Join(args, " "), limit))
		},
	}
	cmd.Flags().IntVar(&limit, "limit", service.TypeaheadLimit, "maximum results; 0 for no limit")
	return cmd
}

func (a *app) inventoryExportCmd() *cobra.Command {
	var format, output string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the inventory as CSV or JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			exporter := service.NewExporter(a.gw)

			var (
				write   func(io.Writer) error
				used    string
				skipped error
			)
			switch format {
			case "csv":
				res, err := exporter.CSV(ctx)
				if err != nil {
					return a.check(ctx, err)
				}
				used, skipped = res.Used, res.Skipped
				write = func(w io.Writer) error {
					_, err := w.Write(res.Value)
					return err
				}
			case "json":
				res, err := exporter.JSON(ctx)
				if err != nil {
					return a.check(ctx, err)
				}
				used, skipped = res.Used, res.Skipped
				write = func(w io.Writer) error { return printJSON(w, res.Value) }
			default:
				return fmt.Errorf("unknown format %q; use csv or json", format)
			}

			if skipped != nil {
				a.logger.Warn().Err(skipped).Str("used", used).Msg("export fell back")
			}
			return writeOutput(cmd.OutOrStdout(), output, write)
		},
	}
	cmd.Flags().StringVar(&format, "format", "csv", "csv or json")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (stdout when empty)")
	return cmd
}

func (a *app) inventoryImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import FILE",
		Short: "Bulk import items from a CSV or JSON file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			format, err := service.FormatFromFilename(args[0])
			if err != nil {
				return err
			}
			payload, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}

			pipeline := service.NewImportPipeline(a.gw, a.logger)
			parsed, err := pipeline.Parse(payload, format)
			for _, r := range parsed.Rejected {
				fmt.Fprintf(out, "skipped record %d: %s\n", r.Record, r.Reason)
			}
			if err != nil {
				return err
			}

			outcome, err := pipeline.Submit(ctx, parsed.Valid)
			if err != nil {
				return a.check(ctx, err)
			}
			for _, f := range outcome.Result.Failures {
				fmt.Fprintf(out, "failed %q: %s\n", f.Name, f.Reason)
			}
			fmt.Fprintln(out, outcome.Message())
			if outcome.Refetch() {
				a.refresh(cmd)
			}
			return nil
		},
	}
}

func (a *app) inventoryReportCmd() *cobra.Command {
	var format, output string
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Render the inventory report as PDF or text",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			items, err := a.gw.ListInventory(cmd.Context())
			if err != nil {
				return a.check(cmd.Context(), err)
			}
			r := service.BuildInventoryReport(items, time.Now())

			switch format {
			case "pdf":
				if output == "" {
					output = "inventory-report.pdf"
				}
				if err := writeOutput(cmd.OutOrStdout(), output, func(w io.Writer) error { return report.WritePDF(w, r) }); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", output)
				return nil
			case "text":
				return writeOutput(cmd.OutOrStdout(), output, func(w io.Writer) error { return report.WriteText(w, r) })
			default:
				return fmt.Errorf("unknown format %q; use pdf or text", format)
			}
		},
	}
	cmd.Flags().StringVar(&format, "format", "pdf", "pdf or text")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file")
	return cmd
}

// writeOutput writes to path, or to stdout when path is empty. A file is
// written next to its final name and renamed into place.
func writeOutput(stdout io.Writer, path string, write func(io.Writer) error) error {
	if path == "" {
		return write(stdout)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".stockctl-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := write(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}
