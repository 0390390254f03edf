package healthcheck

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"

	"permguard-lab/pkg/logger"
)

// ServiceName is the service reported alongside the overall ("") status
const ServiceName = "permguard.v1.ReportService"

// DefaultInterval is how often dependencies are probed
const DefaultInterval = 10 * time.Second

// Pinger is a dependency whose availability gates SERVING status
type Pinger interface {
	Ping(ctx context.Context) error
}

// Register registers the gRPC health service and keeps it updated until ctx
// is cancelled. Nil pingers are skipped.
func Register(ctx context.Context, grpcServer *grpc.Server, interval time.Duration, log *logger.Logger, deps map[string]Pinger) *health.Server {
	if interval <= 0 {
		interval = DefaultInterval
	}
	log = log.WithComponent("grpc-health")

	healthServer := health.NewServer()
	setStatus(healthServer, grpc_health_v1.HealthCheckResponse_SERVING)
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			status := grpc_health_v1.HealthCheckResponse_SERVING
			for name, dep := range deps {
				if dep == nil {
					continue
				}
				pingCtx, cancel := context.WithTimeout(ctx, interval/2)
				err := dep.Ping(pingCtx)
				cancel()
				if err != nil {
					log.Warn().Err(err).Str("dependency", name).Msg("health probe failed")
					status = grpc_health_v1.HealthCheckResponse_NOT_SERVING
				}
			}
			setStatus(healthServer, status)

			select {
			case <-ctx.Done():
				healthServer.Shutdown()
				return
			case <-ticker.C:
			}
		}
	}()

	return healthServer
}

func setStatus(s *health.Server, status grpc_health_v1.HealthCheckResponse_ServingStatus) {
	s.SetServingStatus("", status)
	s.SetServingStatus(ServiceName, status)
}
