// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package app

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
)

const shutdownTimeout = 10 * time.Second

// Run starts the application and blocks until a shutdown signal is received.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Start servers
	if err := a.grpcServer.Start(ctx); err != nil {
		return err
	}
	if err := a.httpServer.Start(ctx); err != nil {
		return err
	}

	// The room must be listening before the coordinator changes state.
	roomCtx, stopRoom := context.WithCancel(context.Background())
	roomDone := make(chan struct{})
	go func() {
		defer close(roomDone)
		a.room.Run(roomCtx)
	}()

	go a.startSession(ctx)

	logrus.Info("application started successfully")

	<-ctx.Done()
	logrus.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	// Stop accepting requests before the room goes away.
	a.shutdownServers(shutdownCtx)
	stopRoom()
	select {
	case <-roomDone:
	case <-shutdownCtx.Done():
		logrus.Warn("room did not stop before the shutdown deadline")
	}

	return a.Shutdown(shutdownCtx)
}

// startSession signs in and, when configured, resumes a previous session.
func (a *App) startSession(ctx context.Context) {
	if a.cfg.AutoRecover {
		if err := a.coordinator.VerifyAndRecover(ctx); err != nil {
			logrus.Errorf("failed to recover relay session: %v", err)
		}
		return
	}
	if err := a.coordinator.Initialise(ctx); err != nil {
		logrus.Errorf("failed to initialise relay session: %v", err)
	}
}

func (a *App) shutdownServers(ctx context.Context) {
	if a.grpcServer != nil {
		if err := a.grpcServer.Shutdown(ctx); err != nil {
			logrus.Errorf("gRPC server shutdown error: %v", err)
		}
		a.grpcServer = nil
	}
	if a.httpServer != nil {
		if err := a.httpServer.Shutdown(ctx); err != nil {
			logrus.Errorf("HTTP server shutdown error: %v", err)
		}
		a.httpServer = nil
	}
}

// Shutdown gracefully shuts down all application components.
//
// ============================================================
// DEVELOPER: Shutdown order is critical
// ============================================================
// Components are shut down in reverse dependency order:
// 1. Stop accepting new requests (gRPC + HTTP servers)
// 2. Leave the relay session (coordinator, transport)
// 3. Close external connections (Redis)
// 4. Flush telemetry data (OpenTelemetry)
//
// IMPORTANT: Shutdown errors are logged but don't stop the
// shutdown sequence. Each component gets a chance to clean up.
// ============================================================
func (a *App) Shutdown(ctx context.Context) error {
	logrus.Info("shutting down application...")

	// ============================================================
	// Step 1: Shutdown servers (stop accepting new requests)
	// ============================================================
	a.shutdownServers(ctx)
	for _, untrack := range a.untrack {
		untrack()
	}
	a.untrack = nil

	// ============================================================
	// Step 2: Leave the relay session
	// ============================================================
	if a.coordinator != nil {
		a.coordinator.Cancel()
	}
	if a.transport != nil {
		if err := a.transport.Shutdown(ctx); err != nil {
			logrus.Errorf("relay transport shutdown error: %v", err)
		}
	}

	// ============================================================
	// Step 3: Close external connections
	// ============================================================
	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			logrus.Errorf("Redis close error: %v", err)
		}
	}

	// ============================================================
	// Step 4: Flush telemetry data
	// ============================================================
	if a.shutdownTelemetry != nil {
		if err := a.shutdownTelemetry(ctx); err != nil {
			logrus.Errorf("telemetry shutdown error: %v", err)
		}
	}

	logrus.Info("application shutdown complete")
	return nil
}
