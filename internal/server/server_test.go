// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package server

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/AccelByte/extend-play-session/pkg/broadcast"
	"github.com/AccelByte/extend-play-session/pkg/metrics"
	"github.com/AccelByte/extend-play-session/pkg/service"
	"github.com/AccelByte/extend-play-session/pkg/store"
)

func TestMetricsServer_Setup(t *testing.T) {
	domain := metrics.New()
	domain.Join(metrics.JoinAdded)

	m := NewMetricsServer(0, "/metrics", domain)
	if err := m.Setup(); err != nil {
		t.Fatalf("Setup() error = %v", err)
	}

	rec := httptest.NewRecorder()
	m.server.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, expected 200", rec.Code)
	}
	body, _ := io.ReadAll(rec.Body)
	for _, name := range []string{"play_session_joins_total", "play_session_sessions_created_total", "go_goroutines"} {
		if !strings.Contains(string(body), name) {
			t.Errorf("metrics output missing %s", name)
		}
	}
}

func TestHTTPServer_Setup(t *testing.T) {
	svc, err := service.New(store.NewMemoryStore(), service.Config{})
	if err != nil {
		t.Fatalf("service.New() error = %v", err)
	}

	s := NewHTTPServer(0, svc, broadcast.NewHub(), "")
	if err := s.Setup(); err != nil {
		t.Fatalf("Setup() error = %v", err)
	}

	rec := httptest.NewRecorder()
	s.server.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("GET /healthz status = %d, expected 200", rec.Code)
	}
}

func TestGRPCServer_Setup(t *testing.T) {
	svc, err := service.New(store.NewMemoryStore(), service.Config{})
	if err != nil {
		t.Fatalf("service.New() error = %v", err)
	}

	s := NewGRPCServer(0, svc)
	if err := s.Setup(); err != nil {
		t.Fatalf("Setup() error = %v", err)
	}

	info := s.server.GetServiceInfo()
	for _, name := range []string{"playsession.v1.PlaySessionService", "grpc.health.v1.Health"} {
		if _, ok := info[name]; !ok {
			t.Errorf("service %s not registered", name)
		}
	}
}
