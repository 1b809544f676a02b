package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/rl1809/stockdesk/internal/core/service"
)

func (a *app) dashboardCmd() *cobra.Command {
	var watch time.Duration
	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Show the dashboard for your role",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			s, err := a.session(ctx)
			if err != nil {
				return err
			}

			view := service.NewView(ctx, service.NewDashboard(a.gw, a.logger), s.Claims)
			defer view.Close()

			out := cmd.OutOrStdout()
			for {
				snap, err := view.Refresh()
				if err != nil {
					if watch > 0 && ctx.Err() != nil {
						return nil
					}
					return a.check(ctx, err)
				}
				printDashboard(out, snap)
				if watch <= 0 {
					return nil
				}

				select {
				case <-ctx.Done():
					return nil
				case <-time.After(watch):
				}
				fmt.Fprintf(out, "\n--- %s ---\n", time.Now().Format(time.TimeOnly))
			}
		},
	}
	cmd.Flags().DurationVar(&watch, "watch", 0, "reload at this interval until interrupted")
	return cmd
}

// refresh reloads the session's view after a change and prints the new
// totals. The change has already been applied, so a failed reload is only
// reported.
func (a *app) refresh(cmd *cobra.Command) {
	ctx := cmd.Context()
	s, err := a.owner.Current(ctx)
	if err != nil {
		return
	}

	view := service.NewView(ctx, service.NewDashboard(a.gw, a.logger), s.Claims)
	defer view.Close()

	snap, err := view.Refresh()
	if err != nil {
		a.owner.Observe(ctx, err)
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: could not reload totals: %v\n", err)
		return
	}
	printSummary(cmd.OutOrStdout(), snap)
	printFailures(cmd.ErrOrStderr(), snap)
}
