// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package common

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	traceIDLogField = "traceID"
	tracerName      = "relay-match"
)

// Scope pairs a span with a log entry tagged by its trace ID. Session
// operations and control API requests each run inside one.
type Scope struct {
	Ctx     context.Context
	TraceID string
	Log     *logrus.Entry

	span trace.Span
}

// StartScope starts a span named name, parented by any span already in ctx.
func StartScope(ctx context.Context, name string) *Scope {
	ctx, span := otel.Tracer(tracerName).Start(ctx, name)
	traceID := span.SpanContext().TraceID().String()

	return &Scope{
		Ctx:     ctx,
		TraceID: traceID,
		Log:     logrus.WithField(traceIDLogField, traceID),
		span:    span,
	}
}

func (s *Scope) Finish() {
	s.span.End()
}

// TraceError records err on the span and marks it failed.
func (s *Scope) TraceError(err error) {
	s.span.RecordError(err)
	s.span.SetStatus(codes.Error, err.Error())
}

func (s *Scope) TraceTag(key, value string) {
	s.span.SetAttributes(attribute.String(key, value))
}

// TraceRetry adds a "retry" event for a failed attempt. It has the
// signature of retry.Policy.OnRetry.
func (s *Scope) TraceRetry(attempt int, err error, next time.Duration) {
	s.span.AddEvent("retry", trace.WithAttributes(
		attribute.Int("attempt", attempt),
		attribute.String("error", err.Error()),
		attribute.Int64("next_delay_ms", next.Milliseconds()),
	))
}
