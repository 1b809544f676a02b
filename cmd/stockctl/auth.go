package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/rl1809/stockdesk/internal/core/domain"
)

func (a *app) loginCmd() *cobra.Command {
	var username, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and store the session credential",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if password == "" {
				var err error
				if password, err = readLine(cmd.InOrStdin(), cmd.OutOrStdout(), "Password: "); err != nil {
					return err
				}
			}

			s, err := a.owner.Login(ctx, a.gw, username, password)
			if err != nil {
				return a.check(ctx, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s (%s)\n", s.Claims.Subject, s.Claims.Role)
			return nil
		},
	}
	cmd.Flags().StringVarP(&username, "username", "u", "", "username")
	cmd.Flags().StringVarP(&password, "password", "p", "", "password (prompted when omitted)")
	_ = cmd.MarkFlagRequired("username")
	return cmd
}

func (a *app) registerCmd() *cobra.Command {
	var reg domain.Registration
	var role string
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create a user account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			r, err := domain.ParseRole(role)
			if err != nil {
				return err
			}
			reg.Role = r
			if err := a.gw.Register(cmd.Context(), reg); err != nil {
				return a.check(cmd.Context(), err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Registered %s as %s\n", reg.Username, reg.Role)
			return nil
		},
	}
	cmd.Flags().StringVarP(&reg.Username, "username", "u", "", "username")
	cmd.Flags().StringVarP(&reg.Password, "password", "p", "", "password")
	cmd.Flags().StringVar(&reg.Email, "email", "", "email address")
	cmd.Flags().StringVar(&role, "role", string(domain.RoleRequester), "admin or user")
	for _, f := range []string{"username", "password", "email"} {
		_ = cmd.MarkFlagRequired(f)
	}
	return cmd
}

func (a *app) logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Discard the stored session credential",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.owner.Logout(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
			return nil
		},
	}
}

func (a *app) whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the current session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := a.session(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "User:    %s\n", s.Claims.Subject)
			fmt.Fprintf(out, "Role:    %s\n", s.Claims.Role)
			if !s.Claims.IssuedAt.IsZero() {
				fmt.Fprintf(out, "Issued:  %s\n", humanize.Time(s.Claims.IssuedAt))
			}
			if !s.Claims.Expiry.IsZero() {
				fmt.Fprintf(out, "Expires: %s\n", humanize.Time(s.Claims.Expiry))
			}
			return nil
		},
	}
}

func readLine(in io.Reader, out io.Writer, prompt string) (string, error) {
	fmt.Fprint(out, prompt)
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", fmt.Errorf("read input: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
