// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package config

import (
	"fmt"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// Load reads configuration from environment variables.
// It attempts to load from .env file first (for local development),
// then parses environment variables into the Config struct.
func Load() (*Config, error) {
	// Load .env file if it exists (for local development)
	// In production (Docker/K8s), environment variables are injected directly
	if err := godotenv.Load(); err != nil {
		logrus.Warnf("no .env file found or error loading it: %v (this is normal in production)", err)
	} else {
		logrus.Infof("loaded environment variables from .env file")
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config from environment: %w", err)
	}

	return cfg, nil
}

// Validate performs custom validation on the configuration.
func (c *Config) Validate() error {
	ports := []struct {
		name string
		port int
	}{
		{"HTTP_PORT", c.HTTPPort},
		{"GRPC_PORT", c.GRPCPort},
		{"METRICS_PORT", c.MetricsPort},
	}
	for _, p := range ports {
		if p.port < 1 || p.port > 65535 {
			return fmt.Errorf("invalid %s: %d (must be 1-65535)", p.name, p.port)
		}
	}

	switch c.StoreBackend {
	case StoreBackendRedis:
	case StoreBackendMemory:
		if c.RequireIssuedCode {
			return fmt.Errorf("REQUIRE_ISSUED_CODE needs STORE_BACKEND=%s", StoreBackendRedis)
		}
	default:
		return fmt.Errorf("invalid STORE_BACKEND: %q (must be %s or %s)", c.StoreBackend, StoreBackendRedis, StoreBackendMemory)
	}

	if c.DefaultGroupSize < 1 {
		return fmt.Errorf("invalid DEFAULT_GROUP_SIZE: %d (must be at least 1)", c.DefaultGroupSize)
	}
	if c.AutoGroupThreshold < 1 {
		return fmt.Errorf("invalid AUTO_GROUP_THRESHOLD: %d (must be at least 1)", c.AutoGroupThreshold)
	}
	if c.MutateMaxRetries < 0 {
		return fmt.Errorf("invalid MUTATE_MAX_RETRIES: %d (must not be negative)", c.MutateMaxRetries)
	}
	if c.SessionTTL < 0 || c.ReconcileInterval < 0 || c.JoinCodeTTL < 0 {
		return fmt.Errorf("SESSION_TTL, RECONCILE_INTERVAL and JOIN_CODE_TTL must not be negative")
	}

	return nil
}
