// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package server

import (
	"context"
	"fmt"

	"github.com/AccelByte/extend-relay-match/pkg/common"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/propagators/b3"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

// SetupTelemetry installs the global tracer provider and propagators and
// returns the func that flushes pending spans.
//
// ============================================================
// DEVELOPER: Tracing
// ============================================================
// Spans are exported to Zipkin (see pkg/common/telemetry.go):
// - OTEL_EXPORTER_ZIPKIN_ENDPOINT: collector URL,
//   default http://localhost:9411/api/v2/spans
//
// Every session operation (relay.initialise, relay.recover,
// relay.create_session, relay.join_session) and every control API
// request (http.*) runs in its own span. Failed relay attempts show
// up as "retry" events on the operation's span. gRPC calls are traced
// by the otelgrpc stats handler.
//
// Incoming trace context is read from B3 headers first, then W3C
// traceparent and baggage.
// ============================================================
func SetupTelemetry(serviceName, environment, region string) (func(context.Context) error, error) {
	provider, err := common.NewTracerProvider(serviceName, environment, region)
	if err != nil {
		return nil, fmt.Errorf("failed to create tracer provider: %w", err)
	}
	otel.SetTracerProvider(provider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		b3.New(),
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	logrus.Infof("tracing enabled for %s (%s, region %s)", serviceName, environment, region)

	return func(ctx context.Context) error {
		if err := provider.Shutdown(ctx); err != nil {
			return fmt.Errorf("failed to flush spans: %w", err)
		}
		logrus.Info("telemetry stopped")
		return nil
	}, nil
}
