package handler

import (
	"context"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName is the gRPC health service name reported next to the overall
// server status.
const ServiceName = "bricks.InventoryService"

const pingTimeout = 2 * time.Second

// Pinger reports whether a backing store is reachable.
type Pinger func(ctx context.Context) error

// GRPCHealth serves the standard gRPC health protocol. The server starts as
// NOT_SERVING and flips to SERVING once every ping succeeds.
type GRPCHealth struct {
	server  *health.Server
	pingers map[string]Pinger
	logger  *zap.Logger
}

func NewGRPCHealth(pingers map[string]Pinger, logger *zap.Logger) *GRPCHealth {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &GRPCHealth{
		server:  health.NewServer(),
		pingers: pingers,
		logger:  logger,
	}
	h.setStatus(healthpb.HealthCheckResponse_NOT_SERVING)
	return h
}

func (h *GRPCHealth) Register(s *grpc.Server) {
	healthpb.RegisterHealthServer(s, h.server)
}

// Check pings every store once and updates the served status.
func (h *GRPCHealth) Check(ctx context.Context) bool {
	serving := true
	for name, ping := range h.pingers {
		pctx, cancel := context.WithTimeout(ctx, pingTimeout)
		err := ping(pctx)
		cancel()
		if err != nil {
			h.logger.Warn("health ping failed", zap.String("store", name), zap.Error(err))
			serving = false
		}
	}

	if serving {
		h.setStatus(healthpb.HealthCheckResponse_SERVING)
	} else {
		h.setStatus(healthpb.HealthCheckResponse_NOT_SERVING)
	}
	return serving
}

// Watch re-runs the pingers every interval until ctx is done.
func (h *GRPCHealth) Watch(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	h.Check(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.Check(ctx)
		}
	}
}

// Shutdown marks everything NOT_SERVING and ignores later updates.
func (h *GRPCHealth) Shutdown() {
	h.server.Shutdown()
}

func (h *GRPCHealth) setStatus(status healthpb.HealthCheckResponse_ServingStatus) {
	h.server.SetServingStatus("", status)
	h.server.SetServingStatus(ServiceName, status)
}
