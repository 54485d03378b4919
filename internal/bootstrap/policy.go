// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package bootstrap

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/AccelByte/extend-play-session/internal/config"
	"github.com/AccelByte/extend-play-session/pkg/policy"

	"github.com/sirupsen/logrus"
)

// InitPolicy loads the grouping policy file. A missing file is not an
// error: the config defaults then apply to every session.
func InitPolicy(cfg *config.Config) (*policy.Policy, error) {
	defaults := policy.Rules{
		GroupSize:          cfg.DefaultGroupSize,
		AutoGroupThreshold: cfg.AutoGroupThreshold,
	}

	if cfg.PolicyPath == "" {
		return policy.New(defaults), nil
	}
	if _, err := os.Stat(cfg.PolicyPath); errors.Is(err, fs.ErrNotExist) {
		logrus.Infof("no grouping policy at %s, using defaults %+v", cfg.PolicyPath, defaults)
		return policy.New(defaults), nil
	}

	p, err := policy.Load(cfg.PolicyPath, defaults)
	if err != nil {
		return nil, fmt.Errorf("failed to load grouping policy: %w", err)
	}

	logrus.Infof("loaded grouping policy from %s (%d session overrides)", cfg.PolicyPath, len(p.Sessions))
	return p, nil
}
