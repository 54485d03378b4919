// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/AccelByte/extend-play-session/pkg/broadcast"
	"github.com/AccelByte/extend-play-session/pkg/handler"
	"github.com/AccelByte/extend-play-session/pkg/service"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// HTTPServer manages the REST and websocket API.
type HTTPServer struct {
	server  *http.Server
	port    int
	svc     *service.Service
	hub     *broadcast.Hub
	baseURL string
}

// NewHTTPServer creates a new HTTP API server instance.
func NewHTTPServer(port int, svc *service.Service, hub *broadcast.Hub, baseURL string) *HTTPServer {
	return &HTTPServer{
		port:    port,
		svc:     svc,
		hub:     hub,
		baseURL: baseURL,
	}
}

// Setup mounts the routes behind OpenTelemetry instrumentation.
//
// ============================================================
// DEVELOPER: HTTP routes live in pkg/handler/http.go
// ============================================================
// Add new endpoints in HTTP.Routes(). Every request gets a span
// from otelhttp here and a child span from common.Scope in the
// handler.
// ============================================================
func (s *HTTPServer) Setup() error {
	routes := handler.NewHTTP(s.svc, s.hub, s.baseURL).Routes()

	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		Handler:           otelhttp.NewHandler(routes, "play-session-http"),
		ReadHeaderTimeout: 10 * time.Second,
	}

	return nil
}

// Start begins serving HTTP requests.
func (s *HTTPServer) Start(ctx context.Context) error {
	go func() {
		logrus.Infof("HTTP server listening on port %d", s.port)
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("HTTP server failed: %v", err)
		}
	}()
	return nil
}

// Shutdown gracefully stops the HTTP server.
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	logrus.Info("shutting down HTTP server...")
	if err := s.server.Shutdown(ctx); err != nil {
		return err
	}
	logrus.Info("HTTP server stopped")
	return nil
}
