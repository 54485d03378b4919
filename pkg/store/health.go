// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package store

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// HealthChecker reports whether the session store can be reached.
type HealthChecker struct {
	store   Store
	timeout time.Duration
}

// NewHealthChecker creates a new health checker
func NewHealthChecker(s Store) *HealthChecker {
	return &HealthChecker{store: s, timeout: 2 * time.Second}
}

// Check pings the store with a short deadline
func (h *HealthChecker) Check(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	if err := h.store.Ping(ctx); err != nil {
		logrus.Errorf("session store health check failed: %v", err)
		return err
	}

	logrus.Debugf("session store health check passed")
	return nil
}

// IsHealthy returns true if the store is accessible
func (h *HealthChecker) IsHealthy(ctx context.Context) bool {
	return h.Check(ctx) == nil
}
