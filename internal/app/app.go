// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package app

import (
	"context"
	"fmt"

	"github.com/AccelByte/extend-play-session/internal/bootstrap"
	"github.com/AccelByte/extend-play-session/internal/config"
	"github.com/AccelByte/extend-play-session/internal/server"
	"github.com/AccelByte/extend-play-session/pkg/broadcast"
	"github.com/AccelByte/extend-play-session/pkg/metrics"
	"github.com/AccelByte/extend-play-session/pkg/reconciler"
	"github.com/AccelByte/extend-play-session/pkg/service"
	"github.com/AccelByte/extend-play-session/pkg/store"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

// App holds all application dependencies and manages the application lifecycle.
type App struct {
	cfg               *config.Config
	redisClient       *redis.Client
	metrics           *metrics.Metrics
	store             store.Store
	service           *service.Service
	hub               *broadcast.Hub
	reconciler        *reconciler.Reconciler
	httpServer        *server.HTTPServer
	grpcServer        *server.GRPCServer
	metricsServer     *server.MetricsServer
	shutdownTelemetry func(context.Context) error
}

// New creates and initializes a new application instance.
//
// ============================================================
// DEVELOPER: Application initialization order
// ============================================================
// Components are initialized in dependency order:
// 1. Redis (only for STORE_BACKEND=redis)
// 2. Session store and grouping policy
// 3. Session service (coordinator, controller, projector)
// 4. Broadcast hub and reconciler
// 5. Servers (HTTP + websocket, gRPC, metrics)
// 6. Telemetry (OpenTelemetry tracing)
// ============================================================
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	logrus.Info("initializing application...")

	app := &App{cfg: cfg}
	if err := app.initCore(ctx); err != nil {
		return nil, err
	}

	// ============================================================
	// Step 4: Broadcast hub and reconciler
	// ============================================================
	app.hub = broadcast.NewHub()
	if cfg.ReconcileInterval > 0 {
		app.reconciler = reconciler.New(app.store, app.service.Controller(), cfg.ReconcileInterval)
	}

	// ============================================================
	// Step 5: Setup servers
	// ============================================================
	app.httpServer = server.NewHTTPServer(cfg.HTTPPort, app.service, app.hub, cfg.PublicBaseURL)
	if err := app.httpServer.Setup(); err != nil {
		return nil, fmt.Errorf("failed to setup HTTP server: %w", err)
	}

	app.grpcServer = server.NewGRPCServer(cfg.GRPCPort, app.service)
	if err := app.grpcServer.Setup(); err != nil {
		return nil, fmt.Errorf("failed to setup gRPC server: %w", err)
	}

	app.metricsServer = server.NewMetricsServer(cfg.MetricsPort, "/metrics", app.metrics)
	if err := app.metricsServer.Setup(); err != nil {
		return nil, fmt.Errorf("failed to setup metrics server: %w", err)
	}

	// ============================================================
	// Step 6: Setup telemetry
	// ============================================================
	if cfg.OtelEnabled {
		shutdownTelemetry, err := server.SetupTelemetry(ctx, cfg.ServiceName, cfg.Environment, 0, cfg.OtelZipkinEndpoint)
		if err != nil {
			return nil, fmt.Errorf("failed to setup telemetry: %w", err)
		}
		app.shutdownTelemetry = shutdownTelemetry
	}

	logrus.Info("application initialized successfully")

	return app, nil
}

// NewWorker builds only the storage and session service, for one-shot
// commands that do not serve traffic.
func NewWorker(ctx context.Context, cfg *config.Config) (*App, error) {
	app := &App{cfg: cfg}
	if err := app.initCore(ctx); err != nil {
		return nil, err
	}
	app.reconciler = reconciler.New(app.store, app.service.Controller(), cfg.ReconcileInterval)
	return app, nil
}

func (a *App) initCore(ctx context.Context) error {
	a.metrics = metrics.New()

	// ============================================================
	// Step 1: Initialize Redis
	// ============================================================
	if a.cfg.StoreBackend == config.StoreBackendRedis {
		client, err := bootstrap.InitRedisClient(ctx, a.cfg)
		if err != nil {
			return fmt.Errorf("failed to init Redis: %w", err)
		}
		a.redisClient = client
	}

	// ============================================================
	// Step 2: Session store and grouping policy
	// ============================================================
	var client redis.UniversalClient
	if a.redisClient != nil {
		client = a.redisClient
	}

	st, err := bootstrap.InitSessionStore(a.cfg, client, a.metrics)
	if err != nil {
		return fmt.Errorf("failed to init session store: %w", err)
	}
	a.store = st

	p, err := bootstrap.InitPolicy(a.cfg)
	if err != nil {
		return err
	}

	// ============================================================
	// Step 3: Session service
	// ============================================================
	svc, err := bootstrap.InitService(a.cfg, st, client, p, a.metrics)
	if err != nil {
		return err
	}
	a.service = svc

	return nil
}
