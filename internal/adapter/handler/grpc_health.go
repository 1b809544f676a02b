package handler

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

const HealthService = "stockdesk"

// RegisterHealth adds the standard gRPC health service to s. The overall
// status and the named service start as SERVING.
func RegisterHealth(s *grpc.Server) *health.Server {
	hs := health.NewServer()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	hs.SetServingStatus(HealthService, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(s, hs)
	return hs
}

// WatchDependency flips the named service between SERVING and NOT_SERVING as
// the dependency's ping succeeds or fails. It returns when ctx ends.
func WatchDependency(ctx context.Context, hs *health.Server, db Pinger, interval time.Duration, logger zerolog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	serving := true
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		pingCtx, cancel := context.WithTimeout(ctx, interval)
		err := db.PingContext(pingCtx)
		cancel()

		switch {
		case err != nil && serving:
			logger.Warn().Err(err).Msg("database unreachable")
			hs.SetServingStatus(HealthService, healthpb.HealthCheckResponse_NOT_SERVING)
			serving = false
		case err == nil && !serving:
			logger.Info().Msg("database reachable again")
			hs.SetServingStatus(HealthService, healthpb.HealthCheckResponse_SERVING)
			serving = true
		}
	}
}
