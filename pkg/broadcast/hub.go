// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package broadcast

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Subscription receives a signal whenever its session changes. Signals
// coalesce: a subscriber that falls behind sees one pending signal and
// re-reads the latest state.
type Subscription struct {
	ID        string
	SessionID string
	C         <-chan struct{}

	hub  *Hub
	ch   chan struct{}
	once sync.Once
}

// Close unregisters the subscription. Safe to call more than once.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.hub.remove(s)
	})
}

// Hub tracks subscribers per session id.
type Hub struct {
	mu   sync.RWMutex
	subs map[string]map[string]*Subscription
}

func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[string]*Subscription)}
}

// Subscribe registers interest in sessionID.
func (h *Hub) Subscribe(sessionID string) *Subscription {
	ch := make(chan struct{}, 1)
	sub := &Subscription{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		C:         ch,
		hub:       h,
		ch:        ch,
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.subs[sessionID] == nil {
		h.subs[sessionID] = make(map[string]*Subscription)
	}
	h.subs[sessionID][sub.ID] = sub

	logrus.Debugf("subscriber %s attached to session %s", sub.ID, sessionID)
	return sub
}

func (h *Hub) remove(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if subs, ok := h.subs[sub.SessionID]; ok {
		delete(subs, sub.ID)
		if len(subs) == 0 {
			delete(h.subs, sub.SessionID)
		}
	}
	close(sub.ch)

	logrus.Debugf("subscriber %s detached from session %s", sub.ID, sub.SessionID)
}

// Notify signals every subscriber of sessionID without blocking.
func (h *Hub) Notify(sessionID string) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, sub := range h.subs[sessionID] {
		select {
		case sub.ch <- struct{}{}:
		default:
		}
	}
}

// Count returns the number of subscribers of sessionID.
func (h *Hub) Count(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[sessionID])
}

// Run forwards change notifications until ctx ends or changes is closed.
func (h *Hub) Run(ctx context.Context, changes <-chan string) {
	logrus.Info("broadcast hub started")
	defer logrus.Info("broadcast hub stopped")

	for {
		select {
		case <-ctx.Done():
			return
		case id, ok := <-changes:
			if !ok {
				return
			}
			h.Notify(id)
		}
	}
}
