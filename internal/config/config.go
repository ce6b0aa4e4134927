// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package config

import "time"

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
	GRPCPort    int    `env:"GRPC_PORT" envDefault:"6565"`
	HTTPPort    int    `env:"HTTP_PORT" envDefault:"8080"`
	Environment string `env:"ENVIRONMENT" envDefault:"dev"`
	ServiceName string `env:"SERVICE_NAME" envDefault:"ExtendRelayMatch"`

	// ============================================================
	// Logging
	// ============================================================
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
	// LogFormat is "json" or "text". Empty picks json outside dev.
	LogFormat string `env:"LOG_FORMAT"`

	// ============================================================
	// AccelByte configuration
	// ============================================================
	// With AUTH_ENABLED=false the peer signs in locally without IAM,
	// which is how two peers are run against a local Redis.
	AuthEnabled    bool   `env:"AUTH_ENABLED" envDefault:"true"`
	ABNamespace    string `env:"AB_NAMESPACE" envDefault:"accelbyte"`
	ABBaseURL      string `env:"AB_BASE_URL"`
	ABClientID     string `env:"AB_CLIENT_ID"`
	ABClientSecret string `env:"AB_CLIENT_SECRET"`

	// ============================================================
	// Redis configuration
	// ============================================================
	RedisHost         string `env:"REDIS_HOST" envDefault:"localhost"`
	RedisPort         string `env:"REDIS_PORT" envDefault:"6379"`
	RedisPassword     string `env:"REDIS_PASSWORD"`
	RedisMaxRetries   int    `env:"REDIS_MAX_RETRIES" envDefault:"5"`
	RedisRetryDelayMs int    `env:"REDIS_RETRY_DELAY_MS" envDefault:"1000"`

	// ============================================================
	// Relay configuration
	// ============================================================
	RelayRegion       string        `env:"RELAY_REGION" envDefault:"local"`
	HeartbeatInterval time.Duration `env:"RELAY_HEARTBEAT_INTERVAL" envDefault:"1s"`
	PeerTimeout       time.Duration `env:"RELAY_PEER_TIMEOUT" envDefault:"5s"`
	KeepAliveInterval time.Duration `env:"RELAY_KEEPALIVE_INTERVAL" envDefault:"5m"`

	// ============================================================
	// Session configuration
	// ============================================================
	MaxPeers       int           `env:"SESSION_MAX_PEERS" envDefault:"2"`
	ConnectTimeout time.Duration `env:"SESSION_CONNECT_TIMEOUT" envDefault:"60s"`
	// AutoRecover runs VerifyAndRecover on startup instead of Initialise.
	AutoRecover bool `env:"SESSION_AUTO_RECOVER" envDefault:"false"`

	// ============================================================
	// Match configuration
	// ============================================================
	// MatchProfilePath is optional. Without it the built-in profile is used.
	MatchProfilePath string `env:"MATCH_PROFILE_PATH"`

	// ============================================================
	// Telemetry configuration
	// ============================================================
	OtelEnabled bool `env:"OTEL_ENABLED" envDefault:"true"`

	// ============================================================
	// DEVELOPER: Add your custom configuration fields below
	// ============================================================
}

// JSONLogs reports whether logs should use the JSON formatter.
func (c *Config) JSONLogs() bool {
	switch c.LogFormat {
	case "json":
		return true
	case "text":
		return false
	}
	return c.Environment != "dev"
}

// RedisRetryDelay returns RedisRetryDelayMs as a duration.
func (c *Config) RedisRetryDelay() time.Duration {
	return time.Duration(c.RedisRetryDelayMs) * time.Millisecond
}
