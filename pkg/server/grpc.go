package server

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/grpc/reflection"
)

// GRPCHealthServer exposes grpc.health.v1 for orchestrators that check health over gRPC.
// The overall status follows the refreshes of a HealthMonitor.
type GRPCHealthServer struct {
	port    int
	monitor *HealthMonitor
	logger  *logrus.Logger

	server *grpc.Server
	health *health.Server
}

// NewGRPCHealthServer creates a health-only gRPC server.
func NewGRPCHealthServer(port int, monitor *HealthMonitor, logger *logrus.Logger) *GRPCHealthServer {
	if logger == nil {
		logger = logrus.New()
	}
	if monitor == nil {
		monitor = NewHealthMonitor(nil, 0, logger)
	}

	opts := []grpc.ServerOption{
		grpc.KeepaliveEnforcementPolicy(keepalive.EnforcementPolicy{
			MinTime:             15 * time.Second,
			PermitWithoutStream: true,
		}),
		grpc.KeepaliveParams(keepalive.ServerParameters{
			MaxConnectionIdle:     5 * time.Minute,
			MaxConnectionAge:      30 * time.Minute,
			MaxConnectionAgeGrace: 5 * time.Second,
			Time:                  30 * time.Second,
			Timeout:               10 * time.Second,
		}),
	}

	s := grpc.NewServer(opts...)
	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(s, healthServer)
	reflection.Register(s)

	g := &GRPCHealthServer{
		port:    port,
		monitor: monitor,
		logger:  logger,
		server:  s,
		health:  healthServer,
	}
	monitor.Subscribe(g.publish)

	return g
}

func (g *GRPCHealthServer) publish(healthy bool) {
	status := grpc_health_v1.HealthCheckResponse_SERVING
	if !healthy {
		status = grpc_health_v1.HealthCheckResponse_NOT_SERVING
	}
	g.health.SetServingStatus("", status)
}

// Health returns the underlying health service.
func (g *GRPCHealthServer) Health() grpc_health_v1.HealthServer {
	return g.health
}

// Serve listens on the configured port and blocks until the server stops.
func (g *GRPCHealthServer) Serve(ctx context.Context) error {
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", g.port))
	if err != nil {
		return fmt.Errorf("failed to listen on port %d: %w", g.port, err)
	}

	_, healthy := g.monitor.Status(ctx)
	g.publish(healthy)

	g.logger.WithFields(logrus.Fields{
		"port": g.port,
	}).Info("gRPC health server listening")

	if err := g.server.Serve(lis); err != nil {
		return fmt.Errorf("failed to serve: %w", err)
	}
	return nil
}

// Stop marks the server NOT_SERVING and stops it, forcing the stop once ctx expires.
// Later monitor refreshes no longer change the status.
func (g *GRPCHealthServer) Stop(ctx context.Context) {
	g.health.Shutdown()

	stopped := make(chan struct{})
	go func() {
		g.server.GracefulStop()
		close(stopped)
	}()

	select {
	case <-stopped:
		g.logger.Info("gRPC server stopped gracefully")
	case <-ctx.Done():
		g.logger.Warn("Graceful shutdown timeout, forcing stop...")
		g.server.Stop()
	}
}
