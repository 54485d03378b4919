// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package config

import "time"

const (
	StoreBackendRedis  = "redis"
	StoreBackendMemory = "memory"
)

// Config holds all application configuration loaded from environment variables.
// This struct uses github.com/caarlos0/env for automatic environment variable parsing.
//
// ============================================================
// DEVELOPER: Add new configuration fields here.
// ============================================================
// Use struct tags to define:
// - `env:"VAR_NAME"` - the environment variable name
// - `env:",required"` - make it required
// - `envDefault:"value"` - set a default value
//
// After adding fields here, update loader.go Validate() if custom
// validation is needed.
// ============================================================
type Config struct {
	// ============================================================
	// Server configuration
	// ============================================================
	HTTPPort    int    `env:"HTTP_PORT" envDefault:"8000"`
	GRPCPort    int    `env:"GRPC_PORT" envDefault:"6565"`
	MetricsPort int    `env:"METRICS_PORT" envDefault:"8080"`
	Environment string `env:"ENVIRONMENT" envDefault:"dev"`
	ServiceName string `env:"SERVICE_NAME" envDefault:"ExtendPlaySession"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// PublicBaseURL is the client origin used in QR join links.
	PublicBaseURL string `env:"PUBLIC_BASE_URL"`

	// ============================================================
	// Session store configuration
	// ============================================================
	StoreBackend     string        `env:"STORE_BACKEND" envDefault:"redis"`
	SessionTTL       time.Duration `env:"SESSION_TTL" envDefault:"24h"`
	MutateMaxRetries int           `env:"MUTATE_MAX_RETRIES" envDefault:"8"`

	// ============================================================
	// Redis configuration
	// ============================================================
	RedisHost         string `env:"REDIS_HOST" envDefault:"localhost"`
	RedisPort         string `env:"REDIS_PORT" envDefault:"6379"`
	RedisPassword     string `env:"REDIS_PASSWORD"`
	RedisDB           int    `env:"REDIS_DB" envDefault:"0"`
	RedisMaxRetries   int    `env:"REDIS_MAX_RETRIES" envDefault:"5"`
	RedisRetryDelayMs int    `env:"REDIS_RETRY_DELAY_MS" envDefault:"1000"`

	// ============================================================
	// Grouping configuration
	// ============================================================
	DefaultGroupSize   int           `env:"DEFAULT_GROUP_SIZE" envDefault:"2"`
	AutoGroupThreshold int           `env:"AUTO_GROUP_THRESHOLD" envDefault:"3"`
	PolicyPath         string        `env:"POLICY_PATH" envDefault:"config/grouping.yaml"`
	LockOnRead         bool          `env:"LOCK_ON_READ" envDefault:"true"`
	ReconcileInterval  time.Duration `env:"RECONCILE_INTERVAL" envDefault:"0s"`

	// ============================================================
	// Join code configuration
	// ============================================================
	JoinCodeTTL       time.Duration `env:"JOIN_CODE_TTL" envDefault:"2h"`
	RequireIssuedCode bool          `env:"REQUIRE_ISSUED_CODE" envDefault:"false"`

	// ============================================================
	// Telemetry configuration
	// ============================================================
	OtelEnabled        bool   `env:"OTEL_ENABLED" envDefault:"true"`
	OtelZipkinEndpoint string `env:"OTEL_EXPORTER_ZIPKIN_ENDPOINT"`
}
