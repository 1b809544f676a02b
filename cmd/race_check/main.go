package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http/httptest"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/rl1809/stockdesk/internal/adapter/gateway"
	"github.com/rl1809/stockdesk/internal/adapter/handler"
	"github.com/rl1809/stockdesk/internal/adapter/messaging"
	"github.com/rl1809/stockdesk/internal/adapter/storage"
	"github.com/rl1809/stockdesk/internal/core/backend"
	"github.com/rl1809/stockdesk/internal/core/domain"
	"github.com/rl1809/stockdesk/internal/core/service"
	"github.com/rl1809/stockdesk/internal/logging"
)

const (
	initialStock     = 20
	requestQuantity  = 5
	embeddedSecret   = "race-check-signing-secret"
	embeddedPassword = "race-check"
)

type options struct {
	baseURL       string
	adminUser     string
	adminPassword string
	user          string
	userPassword  string
	racers        int
}

func main() {
	var opts options
	flag.StringVar(&opts.baseURL, "base-url", "", "service URL; an in-process server on SQLite is used when empty")
	flag.StringVar(&opts.adminUser, "admin", "admin", "admin username")
	flag.StringVar(&opts.adminPassword, "admin-password", embeddedPassword, "admin password")
	flag.StringVar(&opts.user, "user", "requester", "requester username")
	flag.StringVar(&opts.userPassword, "user-password", embeddedPassword, "requester password")
	flag.IntVar(&opts.racers, "n", 50, "concurrent transition attempts")
	flag.Parse()

	logger, err := logging.Setup("race_check", "warn", "console")
	if err != nil {
		log.Fatal().Err(err).Msg("failed to configure logging")
	}

	ctx := context.Background()
	if opts.baseURL == "" {
		url, shutdown, err := startEmbedded(ctx, opts, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to start embedded server")
		}
		defer shutdown()
		opts.baseURL = url
	}

	if !run(ctx, opts, logger) {
		os.Exit(1)
	}
}

func newClient(baseURL string, logger zerolog.Logger) (*service.SessionOwner, *gateway.HTTPGateway) {
	owner := service.NewSessionOwner(storage.NewMemoryCredentialStore(), service.NewSessionResolver(0), logger)
	return owner, gateway.NewHTTPGateway(gateway.SingleHost(baseURL), owner, logger)
}

func run(ctx context.Context, opts options, logger zerolog.Logger) bool {
	adminOwner, adminGW := newClient(opts.baseURL, logger)
	if _, err := adminOwner.Login(ctx, adminGW, opts.adminUser, opts.adminPassword); err != nil {
		logger.Error().Err(err).Msg("admin login failed")
		return false
	}
	userOwner, userGW := newClient(opts.baseURL, logger)
	if _, err := userOwner.Login(ctx, userGW, opts.user, opts.userPassword); err != nil {
		logger.Error().Err(err).Msg("requester login failed")
		return false
	}

	// Fresh item and pending request for this run
	item, err := adminGW.CreateInventory(ctx, domain.InventoryDraft{Name: "race-" + uuid.NewString()[:8], Quantity: initialStock})
	if err != nil {
		logger.Error().Err(err).Msg("failed to create item")
		return false
	}
	rec, err := userGW.CreateRequest(ctx, domain.RequestDraft{InventoryID: item.ID, Quantity: requestQuantity})
	if err != nil {
		logger.Error().Err(err).Msg("failed to create request")
		return false
	}

	var (
		accepted, declined, rejected, other atomic.Int32
		wg                                  sync.WaitGroup
		ready                               = make(chan struct{})
	)
	start := time.Now()

	for i := 0; i < opts.racers; i++ {
		action := domain.ActionAccept
		if i%2 == 1 {
			action = domain.ActionDecline
		}
		wg.Add(1)
		go func(action domain.Action) {
			defer wg.Done()
			<-ready

			err := adminGW.TransitionRequest(ctx, rec.ID, action)
			switch {
			case err == nil && action == domain.ActionAccept:
				accepted.Add(1)
			case err == nil:
				declined.Add(1)
			case errors.Is(err, domain.ErrInvalidTransition):
				rejected.Add(1)
			default:
				logger.Warn().Err(err).Msg("unexpected transition error")
				other.Add(1)
			}
		}(action)
	}
	close(ready)
	wg.Wait()
	elapsed := time.Since(start)

	success := accepted.Load() + declined.Load()

	fmt.Println("========== RACE CHECK RESULTS ==========")
	fmt.Printf("Request ID:       %d\n", rec.ID)
	fmt.Printf("Attempts:         %d\n", opts.racers)
	fmt.Printf("Accepted:         %d\n", accepted.Load())
	fmt.Printf("Declined:         %d\n", declined.Load())
	fmt.Printf("Already settled:  %d\n", rejected.Load())
	fmt.Printf("Other errors:     %d\n", other.Load())
	fmt.Printf("Duration:         %v\n", elapsed)
	fmt.Println("========================================")

	pass := true
	if success == 1 && rejected.Load() == int32(opts.racers-1) {
		fmt.Printf("PASS: exactly 1 transition applied, %d rejected\n", opts.racers-1)
	} else {
		fmt.Printf("FAIL: expected 1 applied/%d rejected, got %d/%d\n", opts.racers-1, success, rejected.Load())
		pass = false
	}

	// Stock moves only when the accept won
	want := initialStock
	if accepted.Load() == 1 {
		want = initialStock - requestQuantity
	}
	items, err := adminGW.ListInventory(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("failed to read back inventory")
		return false
	}
	for _, it := range items {
		if it.ID != item.ID {
			continue
		}
		if it.Quantity == want {
			fmt.Printf("PASS: final stock %d\n", it.Quantity)
		} else {
			fmt.Printf("FAIL: expected stock %d, got %d\n", want, it.Quantity)
			pass = false
		}
	}
	return pass
}

// startEmbedded serves the full HTTP API from an in-memory SQLite store and
// seeds the two accounts the check logs in with.
func startEmbedded(ctx context.Context, opts options, logger zerolog.Logger) (string, func(), error) {
	store, err := storage.OpenSQLite(":memory:")
	if err != nil {
		return "", nil, err
	}
	if err := store.Migrate(ctx); err != nil {
		store.Close()
		return "", nil, err
	}

	events := backend.NewEventDispatcher(messaging.NewLogPublisher(logger), 256, logger)
	events.Start(2)

	auth := backend.NewAuthService(store, embeddedSecret, 0, logger)
	seed := []domain.Registration{
		{Username: opts.adminUser, Password: opts.adminPassword, Email: opts.adminUser + "@example.com", Role: domain.RoleAdmin},
		{Username: opts.user, Password: opts.userPassword, Email: opts.user + "@example.com", Role: domain.RoleRequester},
	}
	for _, reg := range seed {
		if err := auth.EnsureUser(ctx, reg); err != nil {
			events.Close()
			store.Close()
			return "", nil, fmt.Errorf("seed %s: %w", reg.Username, err)
		}
	}

	h := handler.NewHTTPHandler(
		auth,
		backend.NewInventoryService(store, store, events, logger),
		backend.NewRequestService(store, store, events, logger),
		store.DB(),
		logger,
	)
	srv := httptest.NewServer(h.Routes(nil))
	return srv.URL, func() {
		srv.Close()
		events.Close()
		store.Close()
	}, nil
}
