// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package coordinator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/AccelByte/extend-play-session/pkg/lifecycle"
	"github.com/AccelByte/extend-play-session/pkg/metrics"
	"github.com/AccelByte/extend-play-session/pkg/policy"
	"github.com/AccelByte/extend-play-session/pkg/session"
	"github.com/AccelByte/extend-play-session/pkg/store"

	"github.com/sirupsen/logrus"
)

// Result describes what a join did.
type Result struct {
	Session *session.PlaySession
	// Added is false for a repeated join.
	Added bool
	// Grouped is true when this join crossed the threshold and locked the session.
	Grouped bool
}

// Coordinator admits players into sessions.
type Coordinator struct {
	store   store.Store
	policy  *policy.Policy
	clock   session.Clock
	metrics *metrics.Metrics
}

type Config struct {
	Policy  *policy.Policy
	Clock   session.Clock
	Metrics *metrics.Metrics
}

func New(s store.Store, cfg Config) *Coordinator {
	if cfg.Clock == nil {
		cfg.Clock = session.SystemClock
	}
	if cfg.Policy == nil {
		cfg.Policy = policy.New(policy.DefaultRules)
	}

	return &Coordinator{
		store:   s,
		policy:  cfg.Policy,
		clock:   cfg.Clock,
		metrics: cfg.Metrics,
	}
}

// Join adds userID to an existing session. A user already on the roster is
// left untouched. When the join brings a forming session to the
// auto-group threshold, the session is grouped and locked in the same write.
func (c *Coordinator) Join(ctx context.Context, sessionID, userID, name string) (*Result, error) {
	userID = strings.TrimSpace(userID)
	if sessionID == "" || userID == "" {
		c.metrics.Join(metrics.JoinRejected)
		return nil, fmt.Errorf("%w: session id and user id are required", session.ErrInvalidArgument)
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = userID
	}

	rules := c.policy.For(sessionID)
	res := &Result{}

	s, err := c.store.Mutate(ctx, sessionID, func(s *session.PlaySession) error {
		var err error
		res.Added, res.Grouped, err = apply(s, userID, name, rules, c.clock())
		return err
	})
	if err != nil {
		c.metrics.Join(metrics.JoinRejected)
		logrus.Errorf("failed to join user %s to session %s: %v", userID, sessionID, err)
		return nil, fmt.Errorf("failed to join session: %w", err)
	}
	res.Session = s

	if !res.Added {
		c.metrics.Join(metrics.JoinRepeated)
		return res, nil
	}

	c.metrics.Join(metrics.JoinAdded)
	logrus.Infof("user %s joined session %s (%d players)", userID, sessionID, len(s.Players))
	if res.Grouped {
		c.metrics.Grouped(metrics.TriggerJoin)
		c.metrics.Transition(string(session.StatusLocked))
	}
	return res, nil
}

// apply is the body of one join attempt.
func apply(s *session.PlaySession, userID, name string, rules policy.Rules, now time.Time) (added, grouped bool, err error) {
	if s.Status == session.StatusDone {
		return false, false, fmt.Errorf("%w: %s", session.ErrAlreadyDone, s.ID)
	}

	if !session.AddPlayer(s, userID, name, now) {
		return false, false, store.ErrNoChange
	}

	if lifecycle.ReadyToLock(s, rules.AutoGroupThreshold) {
		grouped, err = lifecycle.Lock(s, lifecycle.LockOptions{GroupSize: rules.GroupSize}, now)
		if err != nil {
			return false, false, err
		}
	}

	return true, grouped, nil
}
