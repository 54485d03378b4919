// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package session

import (
	"fmt"
	"sort"
	"time"

	"github.com/sirupsen/logrus"
)

// New returns a fresh forming session created at now.
func New(id string, now time.Time) *PlaySession {
	ms := now.UnixMilli()
	return &PlaySession{
		ID:        id,
		Status:    StatusForming,
		CreatedAt: ms,
		UpdatedAt: ms,
		Players:   map[string]Player{},
	}
}

// Clone returns a deep copy of s.
func (s *PlaySession) Clone() *PlaySession {
	if s == nil {
		return nil
	}

	out := *s
	if s.CountdownEndsAt != nil {
		v := *s.CountdownEndsAt
		out.CountdownEndsAt = &v
	}

	out.Players = make(map[string]Player, len(s.Players))
	for id, p := range s.Players {
		out.Players[id] = p
	}

	if s.Groups != nil {
		out.Groups = make(map[string]Group, len(s.Groups))
		for id, g := range s.Groups {
			members := make([]string, len(g.MemberUserIDs))
			copy(members, g.MemberUserIDs)
			out.Groups[id] = Group{MemberUserIDs: members}
		}
	}

	return &out
}

// HasPlayer reports whether userID is on the roster.
func (s *PlaySession) HasPlayer(userID string) bool {
	_, ok := s.Players[userID]
	return ok
}

// Touch bumps UpdatedAt without ever moving it backwards.
func (s *PlaySession) Touch(now time.Time) {
	if ms := now.UnixMilli(); ms > s.UpdatedAt {
		s.UpdatedAt = ms
	}
}

// AddPlayer inserts userID unless already present.
// Returns true if the roster changed; a re-join keeps the original entry.
func AddPlayer(s *PlaySession, userID, name string, now time.Time) bool {
	if s.HasPlayer(userID) {
		logrus.Debugf("user %s already in session %s, join is a no-op", userID, s.ID)
		return false
	}

	if s.Players == nil {
		s.Players = map[string]Player{}
	}
	s.Players[userID] = Player{Name: name, JoinedAt: now.UnixMilli()}
	s.Touch(now)
	return true
}

// Roster returns the user ids in join order.
// Players that joined within the same millisecond are ordered by user id.
func (s *PlaySession) Roster() []string {
	ids := make([]string, 0, len(s.Players))
	for id := range s.Players {
		ids = append(ids, id)
	}

	sort.Slice(ids, func(i, j int) bool {
		a, b := s.Players[ids[i]], s.Players[ids[j]]
		if a.JoinedAt != b.JoinedAt {
			return a.JoinedAt < b.JoinedAt
		}
		return ids[i] < ids[j]
	})

	return ids
}

// GroupOf returns the id of the group containing userID.
func (s *PlaySession) GroupOf(userID string) (string, bool) {
	for groupID, g := range s.Groups {
		for _, member := range g.MemberUserIDs {
			if member == userID {
				return groupID, true
			}
		}
	}
	return "", false
}

// Advance moves s exactly one step forward to the given status.
func Advance(s *PlaySession, to Status, now time.Time) error {
	next, ok := s.Status.Next()
	if !ok || next != to {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, s.Status, to)
	}

	logrus.Debugf("session %s: %s -> %s", s.ID, s.Status, to)
	s.Status = to
	s.Touch(now)
	return nil
}

// Validate checks the structural invariants of a stored record.
func Validate(s *PlaySession) error {
	if s.ID == "" {
		return fmt.Errorf("%w: empty session id", ErrInvalidArgument)
	}
	if !s.Status.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidArgument, s.Status)
	}
	if s.Status == StatusForming && len(s.Groups) > 0 {
		return fmt.Errorf("%w: forming session %s has groups", ErrInvalidArgument, s.ID)
	}

	seen := make(map[string]string)
	for groupID, g := range s.Groups {
		if len(g.MemberUserIDs) == 0 {
			return fmt.Errorf("%w: group %s is empty", ErrInvalidArgument, groupID)
		}
		for _, member := range g.MemberUserIDs {
			if !s.HasPlayer(member) {
				return fmt.Errorf("%w: group %s member %s has not joined", ErrInvalidArgument, groupID, member)
			}
			if other, dup := seen[member]; dup {
				return fmt.Errorf("%w: user %s in groups %s and %s", ErrInvalidArgument, member, other, groupID)
			}
			seen[member] = groupID
		}
	}

	return nil
}
