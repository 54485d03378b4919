// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package reconciler

import (
	"context"
	"fmt"
	"time"

	"github.com/AccelByte/extend-play-session/pkg/store"

	"github.com/sirupsen/logrus"
)

// Locker locks a forming session once it is ready. Implemented by
// lifecycle.Controller.
type Locker interface {
	Reconcile(ctx context.Context, id string) bool
}

// Reconciler periodically locks forming sessions that crossed the
// auto-group threshold without a join to trigger it, e.g. after the
// threshold was lowered in the grouping policy.
type Reconciler struct {
	store    store.Store
	locker   Locker
	interval time.Duration
}

func New(s store.Store, locker Locker, interval time.Duration) *Reconciler {
	return &Reconciler{
		store:    s,
		locker:   locker,
		interval: interval,
	}
}

// RunOnce scans every forming session and returns how many were locked.
func (r *Reconciler) RunOnce(ctx context.Context) (int, error) {
	ids, err := r.store.ListForming(ctx)
	if err != nil {
		logrus.Errorf("failed to list forming sessions: %v", err)
		return 0, fmt.Errorf("failed to list forming sessions: %w", err)
	}

	locked := 0
	for _, id := range ids {
		if ctx.Err() != nil {
			return locked, ctx.Err()
		}
		if r.locker.Reconcile(ctx, id) {
			locked++
		}
	}

	logrus.Debugf("reconcile pass: %d forming, %d locked", len(ids), locked)
	return locked, nil
}

// Run calls RunOnce on every tick until ctx ends.
func (r *Reconciler) Run(ctx context.Context) error {
	if r.interval <= 0 {
		return fmt.Errorf("reconcile interval must be positive, got %v", r.interval)
	}

	logrus.Infof("reconciler started (interval %v)", r.interval)
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logrus.Info("reconciler stopped")
			return nil
		case <-ticker.C:
			if _, err := r.RunOnce(ctx); err != nil && ctx.Err() == nil {
				logrus.Warnf("reconcile pass failed: %v", err)
			}
		}
	}
}
