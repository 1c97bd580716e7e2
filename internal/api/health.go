package api

import (
	"Go2AdversaryLab/internal/model"
	"context"
	"net"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// HealthService is the gRPC service name whose status follows the store.
const HealthService = "adversarylab.Store"

// GRPCHealth serves the standard gRPC health protocol. The status of
// HealthService and of the server as a whole tracks store.Ping.
type GRPCHealth struct {
	server   *grpc.Server
	health   *health.Server
	store    model.Store
	interval time.Duration
	logger   *logrus.Logger

	watching atomic.Bool
	stop     chan struct{}
	done     chan struct{}
}

func NewGRPCHealth(store model.Store, interval time.Duration, logger *logrus.Logger) *GRPCHealth {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	h := &GRPCHealth{
		server:   grpc.NewServer(),
		health:   health.NewServer(),
		store:    store,
		interval: interval,
		logger:   logger,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	healthpb.RegisterHealthServer(h.server, h.health)
	return h
}

// Check pings the store once and publishes the resulting status.
func (h *GRPCHealth) Check(ctx context.Context) healthpb.HealthCheckResponse_ServingStatus {
	status := healthpb.HealthCheckResponse_SERVING
	if err := h.store.Ping(ctx); err != nil {
		h.logger.Warnf("Store health check failed: %v", err)
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	h.health.SetServingStatus("", status)
	h.health.SetServingStatus(HealthService, status)
	return status
}

// Serve checks the store periodically and serves gRPC on lis until Stop.
func (h *GRPCHealth) Serve(lis net.Listener) error {
	h.Check(context.Background())
	if h.watching.CompareAndSwap(false, true) {
		go h.watch()
	}
	return h.server.Serve(lis)
}

func (h *GRPCHealth) watch() {
	defer close(h.done)
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), h.interval)
			h.Check(ctx)
			cancel()
		case <-h.stop:
			return
		}
	}
}

// Stop marks every service as not serving and stops the server gracefully.
func (h *GRPCHealth) Stop() {
	close(h.stop)
	h.health.Shutdown()
	h.server.GracefulStop()
	if h.watching.Load() {
		<-h.done
	}
}
