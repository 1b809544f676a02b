package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/rl1809/stockdesk/internal/adapter/gateway"
	"github.com/rl1809/stockdesk/internal/adapter/storage"
	"github.com/rl1809/stockdesk/internal/config"
	"github.com/rl1809/stockdesk/internal/core/domain"
	"github.com/rl1809/stockdesk/internal/core/service"
	"github.com/rl1809/stockdesk/internal/logging"
	"github.com/rl1809/stockdesk/internal/port"
)

var errNotLoggedIn = errors.New("not logged in; run 'stockctl login'")

// app holds what every command needs once flags and config are resolved.
type app struct {
	configPath string

	cfg    config.Client
	logger zerolog.Logger
	owner  *service.SessionOwner
	gw     *gateway.HTTPGateway
	redis  *redis.Client
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:               "stockctl",
		Short:             "Inventory and request desk client",
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.init,
		PersistentPostRun: func(*cobra.Command, []string) { a.close() },
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", "", "path to client YAML config")

	root.AddCommand(
		a.loginCmd(),
		a.registerCmd(),
		a.logoutCmd(),
		a.whoamiCmd(),
		a.dashboardCmd(),
		a.inventoryCmd(),
		a.requestsCmd(),
		a.healthCmd(),
	)
	return root
}

func (a *app) init(cmd *cobra.Command, _ []string) error {
	cfg, err := config.LoadClient(a.configPath)
	if err != nil {
		return err
	}
	a.cfg = cfg

	a.logger, err = logging.New(cmd.ErrOrStderr(), "stockctl", cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}

	store, err := a.credentialStore()
	if err != nil {
		return err
	}
	a.owner = service.NewSessionOwner(store, service.NewSessionResolver(cfg.FreshnessWindow), a.logger)
	a.gw = gateway.NewHTTPGateway(gateway.Endpoints{
		Dashboard: cfg.DashboardURL,
		Inventory: cfg.InventoryURL,
		Requests:  cfg.RequestsURL,
		Auth:      cfg.AuthURL,
	}, a.owner, a.logger, gateway.WithTimeout(cfg.Timeout))
	return nil
}

func (a *app) credentialStore() (port.CredentialStore, error) {
	switch a.cfg.CredentialStore {
	case "memory":
		return storage.NewMemoryCredentialStore(), nil
	case "redis":
		a.redis = redis.NewClient(&redis.Options{Addr: a.cfg.RedisAddr})
		return storage.NewRedisCredentialStore(a.redis, a.cfg.Profile, a.cfg.FreshnessWindow), nil
	case "file":
		return storage.NewFileCredentialStore(a.cfg.CredentialFile), nil
	default:
		return nil, fmt.Errorf("unknown credential store %q", a.cfg.CredentialStore)
	}
}

func (a *app) close() {
	if a.redis != nil {
		_ = a.redis.Close()
	}
}

// session returns the current session or explains why there is none.
func (a *app) session(ctx context.Context) (service.Session, error) {
	s, err := a.owner.Current(ctx)
	switch {
	case err == nil:
		return s, nil
	case errors.Is(err, domain.ErrUnauthorized):
		return service.Session{}, errNotLoggedIn
	case errors.Is(err, domain.ErrExpired), errors.Is(err, domain.ErrMalformedCredential):
		return service.Session{}, fmt.Errorf("%w; run 'stockctl login'", err)
	default:
		return service.Session{}, err
	}
}

// check lets the session owner see a remote failure and turns it into a
// message for the terminal.
func (a *app) check(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	a.owner.Observe(ctx, err)

	var conflict *domain.ConflictError
	switch {
	case gateway.IsTransport(err):
		return fmt.Errorf("cannot reach the service: %w", err)
	case errors.Is(err, domain.ErrUnauthorized):
		return fmt.Errorf("session rejected, log in again: %w", err)
	case errors.Is(err, domain.ErrForbidden):
		return fmt.Errorf("not allowed for your role: %w", err)
	case errors.As(err, &conflict):
		return errors.New(conflict.Detail)
	default:
		return err
	}
}
