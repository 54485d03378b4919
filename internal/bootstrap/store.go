// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package bootstrap

import (
	"fmt"

	"github.com/AccelByte/extend-play-session/internal/config"
	"github.com/AccelByte/extend-play-session/pkg/metrics"
	"github.com/AccelByte/extend-play-session/pkg/store"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

// InitSessionStore creates the session store selected by STORE_BACKEND.
// client is only used by the redis backend and may be nil otherwise.
//
// ============================================================
// DEVELOPER: Session store backends
// ============================================================
// - redis:  shared by every replica, required in production
// - memory: single process, for local development and demos
// ============================================================
func InitSessionStore(cfg *config.Config, client redis.UniversalClient, m *metrics.Metrics) (store.Store, error) {
	switch cfg.StoreBackend {
	case config.StoreBackendRedis:
		if client == nil {
			return nil, fmt.Errorf("redis store requires a Redis client")
		}
		logrus.Infof("using redis session store (ttl %v, max retries %d)", cfg.SessionTTL, cfg.MutateMaxRetries)
		return store.NewRedisStore(client, store.RedisStoreConfig{
			TTL:        cfg.SessionTTL,
			MaxRetries: cfg.MutateMaxRetries,
			Metrics:    m,
		}), nil
	case config.StoreBackendMemory:
		logrus.Warn("using in-memory session store, sessions are lost on restart")
		return store.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}
