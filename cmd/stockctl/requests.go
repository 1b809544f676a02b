package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rl1809/stockdesk/internal/core/domain"
	"github.com/rl1809/stockdesk/internal/core/service"
)

func (a *app) requestsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "requests",
		Aliases: []string{"req"},
		Short:   "Create and process stock requests",
	}
	cmd.AddCommand(
		a.requestsListCmd(),
		a.requestsAvailableCmd(),
		a.requestsCreateCmd(),
		a.requestsTransitionCmd("cancel", "Cancel one of your pending requests", domain.ActionCancel),
		a.requestsTransitionCmd("accept", "Approve a pending request", domain.ActionAccept),
		a.requestsTransitionCmd("decline", "Decline a pending request", domain.ActionDecline),
	)
	return cmd
}

// visibleRequests is the request set of the session's role: pending and
// history for an admin, the requester's own records otherwise. A feed that
// fails is reported on stderr and the others are still used.
func (a *app) visibleRequests(cmd *cobra.Command, claims domain.SessionClaims) ([]domain.RequestRecord, error) {
	snap, err := service.NewDashboard(a.gw, a.logger).LoadRequests(cmd.Context(), claims)
	if err != nil {
		return nil, err
	}
	printFailures(cmd.ErrOrStderr(), snap)
	return snap.Requests, nil
}

func (a *app) requestsListCmd() *cobra.Command {
	var (
		status string
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the requests visible to you",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			s, err := a.session(ctx)
			if err != nil {
				return err
			}
			records, err := a.visibleRequests(cmd, s.Claims)
			if err != nil {
				return a.check(ctx, err)
			}

			if status != "" {
				filtered := records[:0:0]
				for _, r := range records {
					if string(r.Status) == status {
						filtered = append(filtered, r)
					}
				}
				records = filtered
			}
			if asJSON {
				return printJSON(cmd.OutOrStdout(), records)
			}
			return printRequests(cmd.OutOrStdout(), records)
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "only show requests with this status")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func (a *app) requestsAvailableCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "available",
		Short: "List items that can be requested",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			items, err := a.gw.ListAvailable(cmd.Context())
			if err != nil {
				return a.check(cmd.Context(), err)
			}
			return printItems(cmd.OutOrStdout(), items)
		},
	}
}

func (a *app) requestsCreateCmd() *cobra.Command {
	var draft domain.RequestDraft
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Request a quantity of an item",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			s, err := a.session(ctx)
			if err != nil {
				return err
			}
			rec, err := service.NewLifecycleManager(a.gw, a.logger).Create(ctx, s.Claims, draft)
			if err != nil {
				return a.check(ctx, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created request %d (%s)\n", rec.ID, rec.Status)
			a.refresh(cmd)
			return nil
		},
	}
	cmd.Flags().Int64Var(&draft.InventoryID, "item", 0, "inventory item id")
	cmd.Flags().IntVar(&draft.Quantity, "quantity", 1, "quantity requested")
	_ = cmd.MarkFlagRequired("item")
	return cmd
}

func (a *app) requestsTransitionCmd(use, short string, action domain.Action) *cobra.Command {
	return &cobra.Command{
		Use:   use + " ID",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			s, err := a.session(ctx)
			if err != nil {
				return err
			}

			records, err := a.visibleRequests(cmd, s.Claims)
			if err != nil {
				return a.check(ctx, err)
			}
			record, ok := findRequest(records, id)
			if !ok {
				return fmt.Errorf("request %d: %w", id, domain.ErrNotFound)
			}

			rec, err := service.NewLifecycleManager(a.gw, a.logger).Apply(ctx, s.Claims, record, action)
			switch {
			case errors.Is(err, domain.ErrInvalidTransition):
				return fmt.Errorf("request %d was already processed", id)
			case errors.Is(err, domain.ErrInsufficientStock):
				return fmt.Errorf("request %d is still pending: %w", id, err)
			}
			if err != nil {
				return a.check(ctx, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Request %d is now %s\n", rec.ID, rec.Status)
			a.refresh(cmd)
			return nil
		},
	}
}

func findRequest(records []domain.RequestRecord, id int64) (domain.RequestRecord, bool) {
	for _, r := range records {
		if r.ID == id {
			return r, true
		}
	}
	return domain.RequestRecord{}, false
}
