// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/AccelByte/extend-play-session/pkg/joincode"

	"github.com/sirupsen/logrus"
)

// Run starts the application and blocks until a shutdown signal is received.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Start servers
	if err := a.httpServer.Start(ctx); err != nil {
		return err
	}
	if err := a.grpcServer.Start(ctx); err != nil {
		return err
	}
	if err := a.metricsServer.Start(ctx); err != nil {
		return err
	}

	// Fan store changes out to websocket subscribers
	changes, err := a.store.Changes(ctx)
	if err != nil {
		return fmt.Errorf("failed to subscribe to session changes: %w", err)
	}
	go a.hub.Run(ctx, changes)

	if a.reconciler != nil {
		go func() {
			if err := a.reconciler.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logrus.Errorf("reconciler stopped: %v", err)
			}
		}()
	}

	logrus.Info("application started successfully")

	// Wait for shutdown signal
	<-ctx.Done()

	logrus.Info("shutdown signal received")
	return a.Shutdown(context.Background())
}

// ReconcileOnce locks every forming session that is ready, then shuts down.
func (a *App) ReconcileOnce(ctx context.Context) (int, error) {
	defer func() {
		_ = a.Shutdown(ctx)
	}()

	locked, err := a.reconciler.RunOnce(ctx)
	if err != nil {
		return locked, fmt.Errorf("reconcile failed: %w", err)
	}

	logrus.Infof("reconcile locked %d session(s)", locked)
	return locked, nil
}

// Shutdown gracefully shuts down all application components.
//
// ============================================================
// DEVELOPER: Shutdown order is critical
// ============================================================
// Components are shut down in reverse dependency order:
// 1. Stop accepting new requests (HTTP, gRPC, metrics servers)
// 2. Close the Redis connection
// 3. Flush telemetry data (OpenTelemetry)
//
// Shutdown errors are logged but don't stop the sequence.
// ============================================================
func (a *App) Shutdown(ctx context.Context) error {
	logrus.Info("shutting down application...")

	// ============================================================
	// Step 1: Shutdown servers (stop accepting new requests)
	// ============================================================
	if a.httpServer != nil {
		if err := a.httpServer.Shutdown(ctx); err != nil {
			logrus.Errorf("HTTP server shutdown error: %v", err)
		}
	}
	if a.grpcServer != nil {
		if err := a.grpcServer.Shutdown(ctx); err != nil {
			logrus.Errorf("gRPC server shutdown error: %v", err)
		}
	}
	if a.metricsServer != nil {
		if err := a.metricsServer.Shutdown(ctx); err != nil {
			logrus.Errorf("metrics server shutdown error: %v", err)
		}
	}

	// ============================================================
	// Step 2: Close external connections
	// ============================================================
	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			logrus.Errorf("Redis close error: %v", err)
		}
	}

	// ============================================================
	// Step 3: Flush telemetry data
	// ============================================================
	if a.shutdownTelemetry != nil {
		if err := a.shutdownTelemetry(ctx); err != nil {
			logrus.Errorf("telemetry shutdown error: %v", err)
		}
	}

	logrus.Info("application shutdown complete")
	return nil
}

// IssueJoinCode issues one join code through the session service.
func (a *App) IssueJoinCode(ctx context.Context) (*joincode.Code, error) {
	return a.service.IssueJoinCode(ctx)
}
