// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package bootstrap

import (
	"fmt"

	"github.com/AccelByte/extend-play-session/internal/config"
	"github.com/AccelByte/extend-play-session/pkg/joincode"
	"github.com/AccelByte/extend-play-session/pkg/metrics"
	"github.com/AccelByte/extend-play-session/pkg/policy"
	"github.com/AccelByte/extend-play-session/pkg/service"
	"github.com/AccelByte/extend-play-session/pkg/store"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

// InitService wires the session operations on top of the store. Join codes
// are tracked in Redis when a client is available.
func InitService(
	cfg *config.Config,
	st store.Store,
	client redis.UniversalClient,
	p *policy.Policy,
	m *metrics.Metrics,
) (*service.Service, error) {
	svcCfg := service.Config{
		Policy:            p,
		Metrics:           m,
		LockOnRead:        cfg.LockOnRead,
		RequireIssuedCode: cfg.RequireIssuedCode,
	}
	if client != nil {
		svcCfg.Codes = joincode.NewStore(client, joincode.StoreConfig{TTL: cfg.JoinCodeTTL})
	}

	svc, err := service.New(st, svcCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create session service: %w", err)
	}

	logrus.Infof("initialized session service (lock on read: %v, issued codes required: %v)",
		cfg.LockOnRead, cfg.RequireIssuedCode)
	return svc, nil
}
