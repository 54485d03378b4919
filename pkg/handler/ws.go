package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/AccelByte/extend-play-session/pkg/broadcast"
	"github.com/AccelByte/extend-play-session/pkg/common"
	"github.com/AccelByte/extend-play-session/pkg/projector"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// StateMessage is pushed to websocket subscribers.
type StateMessage struct {
	Type  string                 `json:"type"`
	Data  *projector.PublicState `json:"data,omitempty"`
	Error string                 `json:"error,omitempty"`
}

// Subscribe upgrades to a websocket and pushes the caller's view of the
// session after every committed change. Clients only listen; all writes
// go through the REST endpoints.
func (h *HTTP) Subscribe(w http.ResponseWriter, r *http.Request) {
	scope := common.GetScopeFromContext(r.Context(), "HTTP.Subscribe")
	defer scope.Finish()

	id := chi.URLParam(r, "id")
	userID := r.URL.Query().Get("userId")

	if _, err := h.svc.ReadState(scope.Ctx, id, userID); err != nil {
		writeError(w, scope, err)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		scope.Log.Warnf("websocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	sub := h.hub.Subscribe(id)
	defer sub.Close()
	scope.Log.Debugf("subscriber %s watching session %s (%d subscribers)", sub.ID, id, h.hub.Count(id))

	ctx, cancel := context.WithCancel(scope.Ctx)
	defer cancel()

	go readPump(conn, cancel)
	h.writePump(ctx, conn, sub, userID)
}

// readPump only handles control frames; it cancels ctx when the peer goes away.
func readPump(conn *websocket.Conn, cancel context.CancelFunc) {
	defer cancel()

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logrus.Debugf("websocket closed unexpectedly: %v", err)
			}
			return
		}
	}
}

func (h *HTTP) writePump(ctx context.Context, conn *websocket.Conn, sub *broadcast.Subscription, userID string) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	if !h.push(ctx, conn, sub.SessionID, userID) {
		return
	}

	for {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait))
			return
		case _, ok := <-sub.C:
			if !ok {
				return
			}
			if !h.push(ctx, conn, sub.SessionID, userID) {
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}

// push sends the current state; false means the connection is unusable.
func (h *HTTP) push(ctx context.Context, conn *websocket.Conn, sessionID, userID string) bool {
	msg := StateMessage{Type: "state"}
	state, err := h.svc.ReadState(ctx, sessionID, userID)
	if err != nil {
		msg = StateMessage{Type: "error", Error: err.Error()}
	} else {
		msg.Data = state
	}

	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(msg); err != nil {
		logrus.Debugf("websocket write to session %s subscriber failed: %v", sessionID, err)
		return false
	}
	return true
}
