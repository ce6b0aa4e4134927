// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/AccelByte/extend-relay-match/pkg/room"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

const (
	metricsEndpoint = "/metrics"
	noticeHistory   = 20
)

// HTTPServer serves the control API, /healthz and the Prometheus metrics.
type HTTPServer struct {
	server   *http.Server
	port     int
	session  SessionControl
	room     RoomControl
	registry *prometheus.Registry
	check    func(ctx context.Context) error
	notices  *noticeLog
}

// NewHTTPServer creates a new HTTP server instance. check backs /healthz
// and may be nil.
func NewHTTPServer(port int, session SessionControl, rc RoomControl, registry *prometheus.Registry, check func(ctx context.Context) error) *HTTPServer {
	return &HTTPServer{
		port:     port,
		session:  session,
		room:     rc,
		registry: registry,
		check:    check,
		notices:  newNoticeLog(noticeHistory),
	}
}

// RecordNotice keeps n for the status endpoint. Pass it to room.OnNotice.
func (h *HTTPServer) RecordNotice(n room.Notice) {
	h.notices.add(n)
}

// Setup builds the router.
//
// ============================================================
// DEVELOPER: Add HTTP routes here
// ============================================================
func (h *HTTPServer) Setup() error {
	h.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", h.port),
		Handler:           h.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return nil
}

// Routes returns the router without binding a listener.
func (h *HTTPServer) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", Healthz(h.check))
	r.Handle(metricsEndpoint, promhttp.HandlerFor(h.registry, promhttp.HandlerOpts{}))

	r.Route("/session", func(r chi.Router) {
		r.Post("/create", CreateSession(h.session))
		r.Post("/join", JoinSession(h.session))
		r.Post("/reset", ResetSession(h.session))
		r.Post("/recover", RecoverSession(h.session))
		r.Post("/cancel", CancelSession(h.session))
	})

	r.Post("/selection", Select(h.room))
	r.Route("/match", func(r chi.Router) {
		r.Post("/start", StartMatch(h.room))
		r.Post("/goal", RecordGoal(h.room))
	})
	r.Get("/status", Status(h.room, h.notices))

	return r
}

// Start begins serving on the configured port.
func (h *HTTPServer) Start(ctx context.Context) error {
	go func() {
		logrus.Infof("HTTP server listening on port %d (metrics at %s)", h.port, metricsEndpoint)
		if err := h.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("HTTP server failed: %v", err)
		}
	}()
	return nil
}

// Shutdown gracefully stops the HTTP server.
func (h *HTTPServer) Shutdown(ctx context.Context) error {
	logrus.Info("shutting down HTTP server...")
	if err := h.server.Shutdown(ctx); err != nil {
		return err
	}
	logrus.Info("HTTP server stopped")
	return nil
}

// noticeLog keeps the most recent room notices.
type noticeLog struct {
	mu      sync.Mutex
	limit   int
	entries []room.Notice
}

func newNoticeLog(limit int) *noticeLog {
	return &noticeLog{limit: limit}
}

func (l *noticeLog) add(n room.Notice) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, n)
	if len(l.entries) > l.limit {
		l.entries = l.entries[len(l.entries)-l.limit:]
	}
}

func (l *noticeLog) recent() []room.Notice {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]room.Notice(nil), l.entries...)
}
