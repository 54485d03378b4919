// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package lifecycle

import (
	"fmt"
	"time"

	"github.com/AccelByte/extend-play-session/pkg/grouping"
	"github.com/AccelByte/extend-play-session/pkg/session"

	"github.com/sirupsen/logrus"
)

// LockOptions describes how a forming session is split into groups.
type LockOptions struct {
	GroupSize int
	// Fixed forces users into a group index.
	Fixed map[string]int
	// CountdownMs starts a countdown when positive.
	CountdownMs int64
}

func (o LockOptions) validate() error {
	if o.GroupSize < 1 {
		return fmt.Errorf("%w: group size must be at least 1, got %d", session.ErrInvalidArgument, o.GroupSize)
	}
	if o.CountdownMs < 0 {
		return fmt.Errorf("%w: countdown must not be negative, got %d", session.ErrInvalidArgument, o.CountdownMs)
	}
	return nil
}

// Lock groups the roster and moves a forming session to locked.
// Returns false without touching s when it is no longer forming.
func Lock(s *session.PlaySession, opts LockOptions, now time.Time) (bool, error) {
	if err := opts.validate(); err != nil {
		return false, err
	}

	if s.Status != session.StatusForming {
		logrus.Debugf("session %s is %s, keeping existing groups", s.ID, s.Status)
		return false, nil
	}

	roster := s.Roster()
	if len(roster) == 0 {
		return false, fmt.Errorf("%w: session %s has no players to group", session.ErrInvalidArgument, s.ID)
	}

	groups, err := grouping.ComputeGroups(roster, opts.GroupSize, opts.Fixed)
	if err != nil {
		return false, err
	}

	if err := session.Advance(s, session.StatusLocked, now); err != nil {
		return false, err
	}
	s.Groups = grouping.ToSessionGroups(groups)
	s.GroupSize = opts.GroupSize
	if opts.CountdownMs > 0 {
		endsAt := now.UnixMilli() + opts.CountdownMs
		s.CountdownEndsAt = &endsAt
	}

	logrus.Infof("locked session %s into %d groups of size %d", s.ID, len(groups), opts.GroupSize)
	return true, nil
}

// ReadyToLock reports whether a forming session has reached threshold players.
func ReadyToLock(s *session.PlaySession, threshold int) bool {
	return s.Status == session.StatusForming && len(s.Players) >= threshold
}

// Start moves a locked session to running. Starting a running session
// reports false; starting from any other status is an invalid transition.
func Start(s *session.PlaySession, now time.Time) (bool, error) {
	switch s.Status {
	case session.StatusRunning:
		return false, nil
	case session.StatusLocked:
		return true, session.Advance(s, session.StatusRunning, now)
	default:
		return false, fmt.Errorf("%w: cannot start session %s while %s",
			session.ErrInvalidTransition, s.ID, s.Status)
	}
}

// Finish moves a running session to done. Finishing twice reports false.
func Finish(s *session.PlaySession, now time.Time) (bool, error) {
	switch s.Status {
	case session.StatusDone:
		return false, nil
	case session.StatusRunning:
		return true, session.Advance(s, session.StatusDone, now)
	default:
		return false, fmt.Errorf("%w: cannot finish session %s while %s",
			session.ErrInvalidTransition, s.ID, s.Status)
	}
}
