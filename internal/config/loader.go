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
//
// ============================================================
// DEVELOPER: Add custom validation logic here.
// ============================================================
// This function is called after environment variables are parsed.
// Add validation for:
// - Value ranges (e.g., port numbers must be 1-65535)
// - Business logic constraints
// - Cross-field validation
// - Format validation (URLs, emails, etc.)
//
// Example:
//   if c.MyTimeout < 0 {
//       return fmt.Errorf("timeout must be non-negative")
//   }
// ============================================================
func (c *Config) Validate() error {
	// Validate server ports
	if c.GRPCPort < 1 || c.GRPCPort > 65535 {
		return fmt.Errorf("invalid GRPC_PORT: %d (must be 1-65535)", c.GRPCPort)
	}

	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP_PORT: %d (must be 1-65535)", c.HTTPPort)
	}

	if c.GRPCPort == c.HTTPPort {
		return fmt.Errorf("GRPC_PORT and HTTP_PORT must differ (both %d)", c.GRPCPort)
	}

	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid LOG_LEVEL: %q", c.LogLevel)
	}

	switch c.LogFormat {
	case "", "json", "text":
	default:
		return fmt.Errorf("invalid LOG_FORMAT: %q (must be json or text)", c.LogFormat)
	}

	// Credentials are only needed when signing in through IAM
	if c.AuthEnabled {
		if c.ABBaseURL == "" {
			return fmt.Errorf("AB_BASE_URL is required when AUTH_ENABLED is true")
		}
		if c.ABClientID == "" || c.ABClientSecret == "" {
			return fmt.Errorf("AB_CLIENT_ID and AB_CLIENT_SECRET are required when AUTH_ENABLED is true")
		}
	}

	if c.ABNamespace == "" {
		return fmt.Errorf("AB_NAMESPACE is required")
	}

	if c.RedisMaxRetries < 1 {
		return fmt.Errorf("invalid REDIS_MAX_RETRIES: %d (must be at least 1)", c.RedisMaxRetries)
	}

	if c.RedisRetryDelayMs < 0 {
		return fmt.Errorf("invalid REDIS_RETRY_DELAY_MS: %d (must be non-negative)", c.RedisRetryDelayMs)
	}

	// ============================================================
	// DEVELOPER: Add your custom validation below
	// ============================================================
	if c.MaxPeers < 2 {
		return fmt.Errorf("invalid SESSION_MAX_PEERS: %d (must be at least 2)", c.MaxPeers)
	}

	if c.HeartbeatInterval <= 0 || c.PeerTimeout <= c.HeartbeatInterval {
		return fmt.Errorf("RELAY_PEER_TIMEOUT (%v) must exceed RELAY_HEARTBEAT_INTERVAL (%v)", c.PeerTimeout, c.HeartbeatInterval)
	}

	if c.KeepAliveInterval <= 0 || c.ConnectTimeout <= 0 {
		return fmt.Errorf("RELAY_KEEPALIVE_INTERVAL and SESSION_CONNECT_TIMEOUT must be positive")
	}

	return nil
}
