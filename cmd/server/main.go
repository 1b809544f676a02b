package main

import (
	"context"
	"errors"
	"flag"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"google.golang.org/grpc"

	"github.com/rl1809/stockdesk/internal/adapter/handler"
	"github.com/rl1809/stockdesk/internal/adapter/messaging"
	"github.com/rl1809/stockdesk/internal/adapter/storage"
	"github.com/rl1809/stockdesk/internal/config"
	"github.com/rl1809/stockdesk/internal/core/backend"
	"github.com/rl1809/stockdesk/internal/core/domain"
	"github.com/rl1809/stockdesk/internal/logging"
	"github.com/rl1809/stockdesk/internal/port"
)

const healthInterval = 10 * time.Second

func main() {
	configPath := flag.String("config", os.Getenv("STOCKDESK_SERVER_CONFIG"), "path to server YAML config")
	flag.Parse()

	cfg, err := config.LoadServer(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	logger, err := logging.Setup("stockdesk-server", cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to configure logging")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize storage
	store, err := openStore(cfg)
	if err != nil {
		logger.Fatal().Err(err).Str("driver", cfg.DBDriver).Msg("failed to open database")
	}
	if err := store.DB().PingContext(ctx); err != nil {
		logger.Fatal().Err(err).Msg("failed to ping database")
	}
	if err := store.Migrate(ctx); err != nil {
		logger.Fatal().Err(err).Msg("failed to migrate schema")
	}
	logger.Info().Str("driver", cfg.DBDriver).Msg("database ready")

	// Initialize event publishing
	var publisher port.EventPublisher = messaging.NewLogPublisher(logger)
	var rabbit *messaging.RabbitPublisher
	if cfg.RabbitURL != "" {
		rabbit, err = messaging.NewRabbitPublisher(cfg.RabbitURL, cfg.Exchange)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect rabbitmq")
		}
		publisher = rabbit
		logger.Info().Str("exchange", cfg.Exchange).Msg("publishing events to rabbitmq")
	}

	events := backend.NewEventDispatcher(publisher, cfg.EventQueue, logger)
	events.OnPublished(handler.ObserveEvent)
	events.Start(cfg.EventWorkers)
	logger.Info().Int("workers", cfg.EventWorkers).Msg("started event workers")

	// Initialize services
	auth := backend.NewAuthService(store, cfg.JWTSecret, cfg.TokenTTL, logger)
	inventory := backend.NewInventoryService(store, store, events, logger)
	requests := backend.NewRequestService(store, store, events, logger)

	if cfg.Admin.Username != "" {
		err := auth.EnsureUser(ctx, domain.Registration{
			Username: cfg.Admin.Username,
			Password: cfg.Admin.Password,
			Email:    cfg.Admin.Email,
			Role:     domain.RoleAdmin,
		})
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to seed admin user")
		}
		logger.Info().Str("username", cfg.Admin.Username).Msg("admin user ready")
	}

	// Initialize gRPC health server
	grpcServer := grpc.NewServer()
	health := handler.RegisterHealth(grpcServer)
	go handler.WatchDependency(ctx, health, store.DB(), healthInterval, logger)

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		logger.Fatal().Err(err).Str("addr", cfg.GRPCAddr).Msg("failed to listen")
	}

	go func() {
		logger.Info().Str("addr", cfg.GRPCAddr).Msg("gRPC health server listening")
		if err := grpcServer.Serve(lis); err != nil {
			logger.Error().Err(err).Msg("gRPC server error")
		}
	}()

	// Initialize HTTP server
	httpHandler := handler.NewHTTPHandler(auth, inventory, requests, store.DB(), logger)
	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           httpHandler.Routes(cfg.CORSOrigins),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", cfg.HTTPAddr).Msg("HTTP server listening")
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("HTTP server error")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("HTTP shutdown")
	}
	logger.Info().Msg("HTTP server stopped")

	health.Shutdown()
	grpcServer.GracefulStop()
	logger.Info().Msg("gRPC server stopped")

	// Drain queued events before closing the broker connection
	events.Close()
	logger.Info().Msg("event workers stopped")

	if rabbit != nil {
		rabbit.Close()
	}
	store.Close()
	logger.Info().Msg("connections closed")
}

func openStore(cfg config.Server) (*storage.SQLStore, error) {
	if cfg.DBDriver == "mysql" {
		return storage.OpenMySQL(cfg.DSN)
	}
	return storage.OpenSQLite(cfg.DSN)
}
