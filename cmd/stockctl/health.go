package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/rl1809/stockdesk/internal/adapter/gateway"
)

func (a *app) healthCmd() *cobra.Command {
	var addr, svc string
	cmd := &cobra.Command{
		Use:   "health",
		Short: "Query the service's gRPC health endpoint",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if addr == "" {
				addr = a.cfg.HealthAddr
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
			defer cancel()

			status, err := gateway.CheckHealth(ctx, addr, svc)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", addr, status)
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "health endpoint address (defaults to config)")
	cmd.Flags().StringVar(&svc, "service", "stockdesk", "service name to check; empty checks the whole server")
	return cmd
}
