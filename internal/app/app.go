// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package app

import (
	"context"
	"fmt"

	"github.com/AccelByte/extend-relay-match/internal/bootstrap"
	"github.com/AccelByte/extend-relay-match/internal/config"
	"github.com/AccelByte/extend-relay-match/internal/server"
	"github.com/AccelByte/extend-relay-match/pkg/relay"
	"github.com/AccelByte/extend-relay-match/pkg/room"
	"github.com/AccelByte/extend-relay-match/pkg/service"
	"github.com/AccelByte/extend-relay-match/pkg/session"
	"github.com/AccelByte/extend-relay-match/pkg/state"

	sdkAuth "github.com/AccelByte/accelbyte-go-sdk/services-api/pkg/utils/auth"
	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

// App holds all application dependencies and manages the application lifecycle.
type App struct {
	cfg               *config.Config
	grpcServer        *server.GRPCServer
	httpServer        *server.HTTPServer
	redisClient       *redis.Client
	transport         *relay.Transport
	coordinator       *session.Coordinator
	room              *room.Room
	shutdownTelemetry func(context.Context) error
	untrack           []func()

	// AccelByte SDK repositories (shared across all services)
	configRepo *sdkAuth.ConfigRepositoryImpl
	tokenRepo  *sdkAuth.TokenRepositoryImpl
}

// New creates and initializes a new application instance.
//
// ============================================================
// DEVELOPER: Application initialization order
// ============================================================
// Components are initialized in dependency order:
// 1. Redis (relay directory, transport and join code store)
// 2. Sign-in service (AccelByte IAM, or local when disabled)
// 3. Match profile (YAML configuration)
// 4. Relay and session coordinator
// 5. Room (selections, match, health monitor)
// 6. Servers (gRPC health, HTTP control API + metrics)
// 7. Telemetry (OpenTelemetry tracing)
// ============================================================
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	logrus.Info("initializing application...")

	app := &App{cfg: cfg}

	// ============================================================
	// Step 1: Initialize Redis
	// ============================================================
	if err := app.initRedis(ctx); err != nil {
		return nil, fmt.Errorf("failed to init Redis: %w", err)
	}

	// ============================================================
	// Step 2: Initialize sign-in
	// ============================================================
	auth := app.initAuthService()

	// ============================================================
	// Step 3: Load match profile
	// ============================================================
	profile, err := bootstrap.LoadMatchProfile(cfg.MatchProfilePath)
	if err != nil {
		return nil, err
	}

	// ============================================================
	// Step 4: Relay and session coordinator
	// ============================================================
	directory, transport := bootstrap.InitRelay(app.redisClient, bootstrap.RelayOptions{
		Region:            cfg.RelayRegion,
		HeartbeatInterval: cfg.HeartbeatInterval,
		PeerTimeout:       cfg.PeerTimeout,
	})
	app.transport = transport

	app.coordinator, err = bootstrap.InitCoordinator(app.redisClient, auth, directory, transport, bootstrap.CoordinatorOptions{
		MaxPeers:       cfg.MaxPeers,
		ConnectTimeout: cfg.ConnectTimeout,
		Owner:          app.joinCodeOwner(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to init session coordinator: %w", err)
	}

	// ============================================================
	// Step 5: Room
	// ============================================================
	// DEVELOPER: pass a match.World here to drive a game scene.
	// ============================================================
	app.room = bootstrap.InitRoom(profile, app.coordinator, transport, cfg.KeepAliveInterval, nil)

	// ============================================================
	// Step 6: Setup servers
	// ============================================================
	app.grpcServer = server.NewGRPCServer(cfg.GRPCPort)
	if err := app.grpcServer.Setup(); err != nil {
		return nil, fmt.Errorf("failed to setup gRPC server: %w", err)
	}
	app.untrack = append(app.untrack, app.grpcServer.TrackSession(app.coordinator))

	redisHealth := state.NewHealthChecker(app.redisClient)
	app.httpServer = server.NewHTTPServer(cfg.HTTPPort, app.coordinator, app.room, server.NewMetricsRegistry(), redisHealth.Check)
	if err := app.httpServer.Setup(); err != nil {
		return nil, fmt.Errorf("failed to setup HTTP server: %w", err)
	}
	app.untrack = append(app.untrack, app.room.OnNotice(app.httpServer.RecordNotice))

	// ============================================================
	// Step 7: Setup telemetry
	// ============================================================
	if cfg.OtelEnabled {
		shutdownTelemetry, err := server.SetupTelemetry(cfg.ServiceName, cfg.Environment, cfg.RelayRegion)
		if err != nil {
			return nil, fmt.Errorf("failed to setup telemetry: %w", err)
		}
		app.shutdownTelemetry = shutdownTelemetry
	}

	logrus.Info("application initialized successfully")

	return app, nil
}

// initAuthService returns the relay sign-in used by the coordinator.
//
// ============================================================
// DEVELOPER: AccelByte Client Auth configuration
// ============================================================
// The Client Auth is configured via environment variables:
// - AB_BASE_URL: AccelByte platform base URL
// - AB_CLIENT_ID: OAuth2 client ID
// - AB_CLIENT_SECRET: OAuth2 client secret
// - AB_NAMESPACE: Game namespace
//
// The SDK uses automatic token refresh (RefreshRate: 0.8 = 80% of TTL).
// Sign-in itself happens in Initialise so that it gets the
// coordinator's retry schedule and error classification.
//
// IMPORTANT: The configRepo and tokenRepo are stored in the App struct
// and must be reused by all AccelByte services to share authentication.
// ============================================================
func (a *App) initAuthService() session.AuthService {
	if !a.cfg.AuthEnabled {
		logrus.Warn("AUTH_ENABLED is false, relay sign-in is skipped")
		return service.NoopAuthService{}
	}

	a.configRepo = sdkAuth.DefaultConfigRepositoryImpl()
	a.tokenRepo = sdkAuth.DefaultTokenRepositoryImpl()

	return service.NewIAMAuthService(
		service.NewOAuthService(a.configRepo, a.tokenRepo),
		service.IAMAuthServiceConfig{
			ClientID:     a.configRepo.GetClientId(),
			ClientSecret: a.configRepo.GetClientSecret(),
		},
	)
}

// initRedis initializes the Redis client.
func (a *App) initRedis(ctx context.Context) error {
	client, err := state.InitRedisClient(ctx, state.RedisOptions{
		Host:       a.cfg.RedisHost,
		Port:       a.cfg.RedisPort,
		Password:   a.cfg.RedisPassword,
		MaxRetries: a.cfg.RedisMaxRetries,
		RetryDelay: a.cfg.RedisRetryDelay(),
	})
	if err != nil {
		return err
	}

	a.redisClient = client
	logrus.Info("Redis client initialized")
	return nil
}

// joinCodeOwner scopes the persisted join code to this service identity.
func (a *App) joinCodeOwner() string {
	id := a.cfg.ABClientID
	if id == "" {
		id = a.cfg.ServiceName
	}
	return a.cfg.ABNamespace + ":" + id
}
