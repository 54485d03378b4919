package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func dialSubscription(t *testing.T, baseURL, path string) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	return websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(baseURL, "http")+path, nil)
}

func readState(t *testing.T, conn *websocket.Conn) StateMessage {
	t.Helper()

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg StateMessage
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("ReadJSON() error = %v", err)
	}
	return msg
}

func TestSubscribe_PushesChanges(t *testing.T) {
	srv := setupTestServer(t)
	doJSON(t, http.MethodPost, srv.URL+"/api/sessions", map[string]string{"code": "room"})
	doJSON(t, http.MethodPost, srv.URL+"/api/sessions/room/join", map[string]string{"userId": "A"})

	conn, _, err := dialSubscription(t, srv.URL, "/api/sessions/room/ws?userId=A")
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer conn.Close()

	first := readState(t, conn)
	if first.Type != "state" || first.Data == nil || len(first.Data.Players) != 1 {
		t.Fatalf("first message = %+v, expected the current state with one player", first)
	}

	doJSON(t, http.MethodPost, srv.URL+"/api/sessions/room/join", map[string]string{"userId": "B"})
	doJSON(t, http.MethodPost, srv.URL+"/api/sessions/room/join", map[string]string{"userId": "C"})

	// signals coalesce, so keep reading until the grouped state arrives
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		msg := readState(t, conn)
		if msg.Data != nil && msg.Data.MyGroupID != nil {
			if *msg.Data.MyGroupID != "g1" {
				t.Errorf("MyGroupID = %q, expected g1", *msg.Data.MyGroupID)
			}
			return
		}
	}
	t.Fatal("never received the grouped state")
}

func TestSubscribe_UnknownSession(t *testing.T) {
	srv := setupTestServer(t)

	_, resp, err := dialSubscription(t, srv.URL, "/api/sessions/nope/ws")
	if err == nil {
		t.Fatal("Dial() should fail for an unknown session")
	}
	if resp == nil || resp.StatusCode != http.StatusNotFound {
		t.Errorf("handshake response = %v, expected 404", resp)
	}
}

func TestSubscribe_DetachesOnClose(t *testing.T) {
	svc, hub := setupTestService(t)
	srv := httptest.NewServer(NewHTTP(svc, hub, "").Routes())
	defer srv.Close()

	if _, err := svc.EnsureSession(context.Background(), "room"); err != nil {
		t.Fatalf("EnsureSession() error = %v", err)
	}

	conn, _, err := dialSubscription(t, srv.URL, "/api/sessions/room/ws")
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	readState(t, conn)

	if n := hub.Count("room"); n != 1 {
		t.Errorf("Count() = %d while connected, expected 1", n)
	}

	conn.Close()
	deadline := time.Now().Add(2 * time.Second)
	for hub.Count("room") != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("Count() = %d after close, expected 0", hub.Count("room"))
		}
		time.Sleep(10 * time.Millisecond)
	}
}
