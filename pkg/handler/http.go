package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/AccelByte/extend-play-session/pkg/broadcast"
	"github.com/AccelByte/extend-play-session/pkg/common"
	"github.com/AccelByte/extend-play-session/pkg/service"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

// Response is the envelope of every JSON reply.
type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

type ensureRequest struct {
	Code string `json:"code"`
}

type joinRequest struct {
	UserID string `json:"userId"`
	Name   string `json:"name"`
}

type groupsRequest struct {
	GroupSize     int            `json:"groupSize"`
	FixedByUserID map[string]int `json:"fixedByUserId,omitempty"`
	CountdownMs   *int64         `json:"countdownMs,omitempty"`
}

// HTTP serves the play-session REST API.
type HTTP struct {
	svc     *service.Service
	hub     *broadcast.Hub
	baseURL string

	// qr coalesces concurrent renders of the same join URL.
	qr singleflight.Group
}

// NewHTTP creates the REST handlers. baseURL is used for QR join links;
// when empty it is derived from the request.
func NewHTTP(svc *service.Service, hub *broadcast.Hub, baseURL string) *HTTP {
	return &HTTP{
		svc:     svc,
		hub:     hub,
		baseURL: strings.TrimSuffix(baseURL, "/"),
	}
}

// Routes returns the router with every endpoint mounted.
func (h *HTTP) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/healthz", h.Healthz)
	r.Route("/api", func(r chi.Router) {
		r.Post("/join-codes", h.IssueJoinCode)
		r.Post("/sessions", h.EnsureSession)
		r.Route("/sessions/{id}", func(r chi.Router) {
			r.Post("/join", h.Join)
			r.Post("/groups", h.CreateGroups)
			r.Post("/start", h.Start)
			r.Post("/finish", h.Finish)
			r.Post("/lock-if-ready", h.LockIfReady)
			r.Get("/state", h.State)
			r.Get("/ws", h.Subscribe)
			r.Get("/qr.png", h.QR)
		})
	})

	return r
}

func writeJSON(w http.ResponseWriter, status int, body Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logrus.Errorf("failed to write response: %v", err)
	}
}

func writeError(w http.ResponseWriter, scope *common.Scope, err error) {
	status := httpStatus(err)
	if status >= http.StatusInternalServerError {
		scope.TraceError(err)
		scope.Log.Errorf("request failed: %v", err)
	} else {
		scope.Log.Debugf("request rejected: %v", err)
	}
	writeJSON(w, status, Response{Success: false, Error: err.Error()})
}

func decode(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return badRequest("malformed JSON body: " + err.Error())
	}
	return nil
}

func (h *HTTP) Healthz(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Ping(r.Context()); err != nil {
		logrus.Warnf("health check failed: %v", err)
		writeJSON(w, http.StatusServiceUnavailable, Response{Success: false, Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, Response{Success: true, Message: "ok"})
}

func (h *HTTP) IssueJoinCode(w http.ResponseWriter, r *http.Request) {
	scope := common.GetScopeFromContext(r.Context(), "HTTP.IssueJoinCode")
	defer scope.Finish()

	code, err := h.svc.IssueJoinCode(scope.Ctx)
	if err != nil {
		writeError(w, scope, err)
		return
	}
	writeJSON(w, http.StatusCreated, Response{Success: true, Data: code})
}

// EnsureSession creates or returns the session for a code. An empty body
// code issues a fresh join code first.
func (h *HTTP) EnsureSession(w http.ResponseWriter, r *http.Request) {
	scope := common.GetScopeFromContext(r.Context(), "HTTP.EnsureSession")
	defer scope.Finish()

	var req ensureRequest
	if err := decode(r, &req); err != nil {
		writeError(w, scope, err)
		return
	}

	code := strings.TrimSpace(req.Code)
	if code == "" {
		issued, err := h.svc.IssueJoinCode(scope.Ctx)
		if err != nil {
			writeError(w, scope, err)
			return
		}
		code = issued.Value
	}

	id, err := h.svc.EnsureSession(scope.Ctx, code)
	if err != nil {
		writeError(w, scope, err)
		return
	}
	scope.SetAttributes("session.id", id)

	writeJSON(w, http.StatusOK, Response{
		Success: true,
		Data:    map[string]string{"sessionId": id},
	})
}

func (h *HTTP) Join(w http.ResponseWriter, r *http.Request) {
	scope := common.GetScopeFromContext(r.Context(), "HTTP.Join")
	defer scope.Finish()

	id := chi.URLParam(r, "id")
	var req joinRequest
	if err := decode(r, &req); err != nil {
		writeError(w, scope, err)
		return
	}
	scope.SetAttributes("session.id", id)

	if err := h.svc.JoinSession(scope.Ctx, id, req.UserID, req.Name); err != nil {
		writeError(w, scope, err)
		return
	}
	h.writeState(w, scope, id, req.UserID)
}

func (h *HTTP) CreateGroups(w http.ResponseWriter, r *http.Request) {
	scope := common.GetScopeFromContext(r.Context(), "HTTP.CreateGroups")
	defer scope.Finish()

	id := chi.URLParam(r, "id")
	var req groupsRequest
	if err := decode(r, &req); err != nil {
		writeError(w, scope, err)
		return
	}

	if err := h.svc.AdminCreateGroups(scope.Ctx, id, req.GroupSize, req.FixedByUserID, req.CountdownMs); err != nil {
		writeError(w, scope, err)
		return
	}
	h.writeState(w, scope, id, "")
}

func (h *HTTP) Start(w http.ResponseWriter, r *http.Request) {
	scope := common.GetScopeFromContext(r.Context(), "HTTP.Start")
	defer scope.Finish()

	id := chi.URLParam(r, "id")
	if err := h.svc.AdminStart(scope.Ctx, id); err != nil {
		writeError(w, scope, err)
		return
	}
	h.writeState(w, scope, id, "")
}

func (h *HTTP) Finish(w http.ResponseWriter, r *http.Request) {
	scope := common.GetScopeFromContext(r.Context(), "HTTP.Finish")
	defer scope.Finish()

	id := chi.URLParam(r, "id")
	if err := h.svc.Finish(scope.Ctx, id); err != nil {
		writeError(w, scope, err)
		return
	}
	h.writeState(w, scope, id, "")
}

// LockIfReady always answers 204.
func (h *HTTP) LockIfReady(w http.ResponseWriter, r *http.Request) {
	h.svc.LockIfReady(r.Context(), chi.URLParam(r, "id"))
	w.WriteHeader(http.StatusNoContent)
}

// State is the poll endpoint.
func (h *HTTP) State(w http.ResponseWriter, r *http.Request) {
	scope := common.GetScopeFromContext(r.Context(), "HTTP.State")
	defer scope.Finish()

	id := chi.URLParam(r, "id")
	state, err := h.svc.Poll(scope.Ctx, id, r.URL.Query().Get("userId"))
	if err != nil {
		writeError(w, scope, err)
		return
	}
	writeJSON(w, http.StatusOK, Response{Success: true, Data: state})
}

func (h *HTTP) writeState(w http.ResponseWriter, scope *common.Scope, id, forUserID string) {
	state, err := h.svc.ReadState(scope.Ctx, id, forUserID)
	if err != nil {
		writeError(w, scope, err)
		return
	}
	writeJSON(w, http.StatusOK, Response{Success: true, Data: state})
}
