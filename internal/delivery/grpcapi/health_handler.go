package grpcapi

import (
	"context"
	"log/slog"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

const ServiceName = "currency.ExchangeRateService"

type HealthHandler struct {
	server   *health.Server
	check    func(ctx context.Context) error
	interval time.Duration
	logger   *slog.Logger
}

// NewHealthHandler reports SERVING until the first failed check. A nil check
// means the process is healthy while it runs.
func NewHealthHandler(check func(ctx context.Context) error, interval time.Duration, logger *slog.Logger) *HealthHandler {
	if logger == nil {
		logger = slog.Default()
	}
	h := &HealthHandler{
		server:   health.NewServer(),
		check:    check,
		interval: interval,
		logger:   logger,
	}
	h.set(healthpb.HealthCheckResponse_SERVING)
	return h
}

func (h *HealthHandler) Register(srv *grpc.Server) {
	healthpb.RegisterHealthServer(srv, h.server)
}

// Watch re-runs the dependency check until ctx is done, then flips every
// service to NOT_SERVING.
func (h *HealthHandler) Watch(ctx context.Context) error {
	if h.check == nil || h.interval <= 0 {
		<-ctx.Done()
		h.server.Shutdown()
		return nil
	}

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			h.server.Shutdown()
			return nil
		case <-ticker.C:
			h.probe(ctx)
		}
	}
}

func (h *HealthHandler) probe(ctx context.Context) {
	checkCtx, cancel := context.WithTimeout(ctx, h.interval)
	defer cancel()

	if err := h.check(checkCtx); err != nil {
		h.logger.Warn("grpc health check failed", "error", err)
		h.set(healthpb.HealthCheckResponse_NOT_SERVING)
		return
	}
	h.set(healthpb.HealthCheckResponse_SERVING)
}

func (h *HealthHandler) set(status healthpb.HealthCheckResponse_ServingStatus) {
	h.server.SetServingStatus("", status)
	h.server.SetServingStatus(ServiceName, status)
}
