// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package server

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/AccelByte/extend-play-session/pkg/common"
	"github.com/AccelByte/extend-play-session/pkg/handler"
	"github.com/AccelByte/extend-play-session/pkg/service"

	"github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/logging"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// healthInterval is how often the store is probed for the gRPC health status.
const healthInterval = 10 * time.Second

// GRPCServer manages the gRPC server lifecycle.
type GRPCServer struct {
	server *grpc.Server
	health *health.Server
	port   int
	svc    *service.Service
}

// NewGRPCServer creates a new gRPC server instance.
func NewGRPCServer(port int, svc *service.Service) *GRPCServer {
	return &GRPCServer{
		port: port,
		svc:  svc,
	}
}

// Setup configures the gRPC server with interceptors and registers handlers.
//
// ============================================================
// DEVELOPER: gRPC server configuration
// ============================================================
// This method sets up:
// 1. Interceptors (logging)
// 2. The play-session service (pkg/handler/grpc.go)
// 3. Server features (reflection, health checks)
// ============================================================
func (s *GRPCServer) Setup() error {
	// ============================================================
	// DEVELOPER: Add custom gRPC interceptors here
	// ============================================================
	// Example:
	// unaryInterceptors = append(unaryInterceptors, myAuthInterceptor)
	// ============================================================
	unaryInterceptors := []grpc.UnaryServerInterceptor{
		logging.UnaryServerInterceptor(common.InterceptorLogger(logrus.StandardLogger())),
	}
	streamInterceptors := []grpc.StreamServerInterceptor{
		logging.StreamServerInterceptor(common.InterceptorLogger(logrus.StandardLogger())),
	}

	// Create server with OpenTelemetry instrumentation
	s.server = grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(unaryInterceptors...),
		grpc.ChainStreamInterceptor(streamInterceptors...),
	)

	s.server.RegisterService(&handler.PlaySessionServiceDesc, handler.NewPlaySession(s.svc))
	logrus.Infof("registered gRPC service %s", handler.PlaySessionServiceName)

	// ============================================================
	// Enable gRPC server features
	// ============================================================
	// - Reflection: allows tools like grpcurl to list services
	// - Health check: for Kubernetes liveness/readiness probes
	// ============================================================
	reflection.Register(s.server)
	s.health = health.NewServer()
	s.health.SetServingStatus(handler.PlaySessionServiceName, grpc_health_v1.HealthCheckResponse_SERVING)
	grpc_health_v1.RegisterHealthServer(s.server, s.health)

	logrus.Infof("gRPC reflection and health check enabled")

	return nil
}

// Start begins listening and serving gRPC requests.
func (s *GRPCServer) Start(ctx context.Context) error {
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", s.port))
	if err != nil {
		return fmt.Errorf("failed to listen on port %d: %w", s.port, err)
	}

	go func() {
		logrus.Infof("gRPC server listening on port %d", s.port)
		if err := s.server.Serve(lis); err != nil {
			logrus.Fatalf("gRPC server failed: %v", err)
		}
	}()
	go s.watchHealth(ctx)

	return nil
}

// watchHealth mirrors session store reachability into the health service.
func (s *GRPCServer) watchHealth(ctx context.Context) {
	ticker := time.NewTicker(healthInterval)
	defer ticker.Stop()

	serving := true
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			healthy := s.svc.Ping(ctx) == nil
			if healthy == serving {
				continue
			}
			serving = healthy

			status := grpc_health_v1.HealthCheckResponse_SERVING
			if !healthy {
				status = grpc_health_v1.HealthCheckResponse_NOT_SERVING
			}
			s.health.SetServingStatus(handler.PlaySessionServiceName, status)
			logrus.Warnf("gRPC health status changed to %s", status)
		}
	}
}

// Shutdown marks the service as not serving and gracefully stops the server.
func (s *GRPCServer) Shutdown(ctx context.Context) error {
	logrus.Info("shutting down gRPC server...")
	s.health.Shutdown()
	s.server.GracefulStop()
	logrus.Info("gRPC server stopped")
	return nil
}
