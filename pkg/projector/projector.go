// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package projector

import (
	"context"
	"fmt"

	"github.com/AccelByte/extend-play-session/pkg/session"
	"github.com/AccelByte/extend-play-session/pkg/store"

	"github.com/sirupsen/logrus"
)

// PublicPlayer is the roster entry shown to clients.
type PublicPlayer struct {
	Name     string `json:"name"`
	JoinedAt int64  `json:"joinedAt"`
}

// PublicGroup is a group as shown to clients.
type PublicGroup struct {
	MemberUserIDs []string `json:"memberUserIds"`
}

// PublicState is the snapshot every client polls or receives.
type PublicState struct {
	Status          session.Status          `json:"status"`
	CreatedAt       int64                   `json:"createdAt"`
	UpdatedAt       int64                   `json:"updatedAt"`
	CountdownEndsAt *int64                  `json:"countdownEndsAt,omitempty"`
	Players         map[string]PublicPlayer `json:"players"`
	Groups          map[string]PublicGroup  `json:"groups"`
	MyGroupID       *string                 `json:"myGroupId,omitempty"`
}

// Project builds the public view of s. When forUserID is set and that user
// is grouped, MyGroupID carries the group id.
func Project(s *session.PlaySession, forUserID string) *PublicState {
	out := &PublicState{
		Status:    s.Status,
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
		Players:   make(map[string]PublicPlayer, len(s.Players)),
		Groups:    make(map[string]PublicGroup, len(s.Groups)),
	}

	if s.CountdownEndsAt != nil {
		v := *s.CountdownEndsAt
		out.CountdownEndsAt = &v
	}
	for id, p := range s.Players {
		out.Players[id] = PublicPlayer{Name: p.Name, JoinedAt: p.JoinedAt}
	}
	for id, g := range s.Groups {
		members := make([]string, len(g.MemberUserIDs))
		copy(members, g.MemberUserIDs)
		out.Groups[id] = PublicGroup{MemberUserIDs: members}
	}

	if forUserID != "" {
		if groupID, ok := s.GroupOf(forUserID); ok {
			out.MyGroupID = &groupID
		}
	}

	return out
}

// Projector serves snapshots from committed store state. Every snapshot is
// a fresh store read, so a caller always observes its own prior writes.
type Projector struct {
	store store.Store
}

func New(s store.Store) *Projector {
	return &Projector{store: s}
}

// Snapshot returns the public state of a session, or session.ErrNotFound.
func (p *Projector) Snapshot(ctx context.Context, id, forUserID string) (*PublicState, error) {
	s, err := p.store.Read(ctx, id)
	if err != nil {
		logrus.Debugf("snapshot of session %s failed: %v", id, err)
		return nil, fmt.Errorf("failed to read session: %w", err)
	}

	return Project(s, forUserID), nil
}
