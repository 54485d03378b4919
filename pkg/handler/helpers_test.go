package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/AccelByte/extend-play-session/pkg/broadcast"
	"github.com/AccelByte/extend-play-session/pkg/policy"
	"github.com/AccelByte/extend-play-session/pkg/projector"
	"github.com/AccelByte/extend-play-session/pkg/service"
	"github.com/AccelByte/extend-play-session/pkg/store"
)

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

// setupTestService wires a memory-backed service with auto-grouping at
// three players in groups of two. The hub follows the store change feed
// until the test ends.
func setupTestService(t *testing.T) (*service.Service, *broadcast.Hub) {
	t.Helper()

	s := store.NewMemoryStore()
	svc, err := service.New(s, service.Config{
		Policy:     policy.New(policy.Rules{GroupSize: 2, AutoGroupThreshold: 3}),
		LockOnRead: true,
	})
	if err != nil {
		t.Fatalf("service.New() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	changes, err := s.Changes(ctx)
	if err != nil {
		t.Fatalf("Changes() error = %v", err)
	}
	hub := broadcast.NewHub()
	go hub.Run(ctx, changes)

	return svc, hub
}

func setupTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	svc, hub := setupTestService(t)
	srv := httptest.NewServer(NewHTTP(svc, hub, "https://play.example.com").Routes())
	t.Cleanup(srv.Close)
	return srv
}

func doJSON(t *testing.T, method, url string, body interface{}) (int, envelope) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode body: %v", err)
		}
	}

	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatalf("NewRequest() error = %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s error = %v", method, url, err)
	}
	defer resp.Body.Close()

	var env envelope
	if resp.StatusCode != http.StatusNoContent {
		if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
			t.Fatalf("failed to decode response of %s %s: %v", method, url, err)
		}
	}
	return resp.StatusCode, env
}

func decodeState(t *testing.T, env envelope) *projector.PublicState {
	t.Helper()

	var state projector.PublicState
	if err := json.Unmarshal(env.Data, &state); err != nil {
		t.Fatalf("failed to decode state %s: %v", env.Data, err)
	}
	return &state
}
