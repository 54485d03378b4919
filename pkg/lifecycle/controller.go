// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/AccelByte/extend-play-session/pkg/metrics"
	"github.com/AccelByte/extend-play-session/pkg/policy"
	"github.com/AccelByte/extend-play-session/pkg/session"
	"github.com/AccelByte/extend-play-session/pkg/store"

	"github.com/sirupsen/logrus"
)

// Controller drives session status changes through the store.
type Controller struct {
	store   store.Store
	policy  *policy.Policy
	clock   session.Clock
	metrics *metrics.Metrics
}

type ControllerConfig struct {
	Policy  *policy.Policy
	Clock   session.Clock
	Metrics *metrics.Metrics
}

func NewController(s store.Store, cfg ControllerConfig) *Controller {
	if cfg.Clock == nil {
		cfg.Clock = session.SystemClock
	}
	if cfg.Policy == nil {
		cfg.Policy = policy.New(policy.DefaultRules)
	}

	return &Controller{
		store:   s,
		policy:  cfg.Policy,
		clock:   cfg.Clock,
		metrics: cfg.Metrics,
	}
}

// LockAndCreateGroups groups a forming session and locks it. On any other
// status the stored session is returned unchanged with locked=false.
func (c *Controller) LockAndCreateGroups(ctx context.Context, id string, opts LockOptions) (*session.PlaySession, bool, error) {
	if err := opts.validate(); err != nil {
		return nil, false, err
	}

	var locked bool
	s, err := c.store.Mutate(ctx, id, func(s *session.PlaySession) error {
		var err error
		locked, err = Lock(s, opts, c.clock())
		if err != nil {
			return err
		}
		if !locked {
			return store.ErrNoChange
		}
		return nil
	})
	if err != nil {
		logrus.Errorf("failed to lock session %s: %v", id, err)
		return nil, false, fmt.Errorf("failed to lock session: %w", err)
	}

	if locked {
		c.metrics.Grouped(metrics.TriggerAdmin)
		c.metrics.Transition(string(session.StatusLocked))
	}
	return s, locked, nil
}

// LockAndCreateGroupsIfReady locks the session with the default group size,
// no overrides and no countdown once it holds at least threshold players.
// A threshold below one uses the policy threshold. Errors are logged, never returned.
func (c *Controller) LockAndCreateGroupsIfReady(ctx context.Context, id string, threshold int) bool {
	return c.lockIfReady(ctx, id, threshold, metrics.TriggerReady)
}

// Reconcile is LockAndCreateGroupsIfReady with the policy threshold, counted
// as a background trigger.
func (c *Controller) Reconcile(ctx context.Context, id string) bool {
	return c.lockIfReady(ctx, id, 0, metrics.TriggerReconcile)
}

func (c *Controller) lockIfReady(ctx context.Context, id string, threshold int, trigger string) bool {
	rules := c.policy.For(id)
	if threshold < 1 {
		threshold = rules.AutoGroupThreshold
	}

	var locked bool
	_, err := c.store.Mutate(ctx, id, func(s *session.PlaySession) error {
		locked = false
		if !ReadyToLock(s, threshold) {
			return store.ErrNoChange
		}

		var err error
		locked, err = Lock(s, LockOptions{GroupSize: rules.GroupSize}, c.clock())
		if err != nil {
			return err
		}
		if !locked {
			return store.ErrNoChange
		}
		return nil
	})
	if errors.Is(err, session.ErrNotFound) {
		logrus.Debugf("lock-if-ready on unknown session %s ignored", id)
		return false
	}
	if err != nil {
		logrus.Warnf("lock-if-ready on session %s skipped: %v", id, err)
		return false
	}

	if locked {
		logrus.Infof("session %s reached %d players and was locked", id, threshold)
		c.metrics.Grouped(trigger)
		c.metrics.Transition(string(session.StatusLocked))
	}
	return locked
}

// Start moves a locked session to running. started is false when the
// session was already running.
func (c *Controller) Start(ctx context.Context, id string) (*session.PlaySession, bool, error) {
	return c.advance(ctx, id, session.StatusRunning, Start)
}

// Finish moves a running session to done.
func (c *Controller) Finish(ctx context.Context, id string) (*session.PlaySession, bool, error) {
	return c.advance(ctx, id, session.StatusDone, Finish)
}

func (c *Controller) advance(
	ctx context.Context,
	id string,
	to session.Status,
	step func(*session.PlaySession, time.Time) (bool, error),
) (*session.PlaySession, bool, error) {
	var moved bool
	s, err := c.store.Mutate(ctx, id, func(s *session.PlaySession) error {
		var err error
		moved, err = step(s, c.clock())
		if err != nil {
			return err
		}
		if !moved {
			return store.ErrNoChange
		}
		return nil
	})
	if err != nil {
		logrus.Errorf("failed to move session %s to %s: %v", id, to, err)
		return nil, false, fmt.Errorf("failed to move session to %s: %w", to, err)
	}

	if moved {
		logrus.Infof("session %s is now %s", id, to)
		c.metrics.Transition(string(to))
	} else {
		logrus.Debugf("session %s already %s", id, s.Status)
	}
	return s, moved, nil
}
