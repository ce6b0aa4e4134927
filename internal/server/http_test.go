// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/AccelByte/extend-relay-match/pkg/match"
	"github.com/AccelByte/extend-relay-match/pkg/protocol"
	"github.com/AccelByte/extend-relay-match/pkg/room"
	"github.com/AccelByte/extend-relay-match/pkg/selection"
	"github.com/AccelByte/extend-relay-match/pkg/session"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/health/grpc_health_v1"
)

type fakeSession struct {
	code      session.JoinCode
	createErr error
	joinErr   error
	joined    []string
	resets    int
	recovers  int
	cancels   int
}

func (f *fakeSession) CreateSession(context.Context) (session.JoinCode, error) {
	return f.code, f.createErr
}

func (f *fakeSession) JoinSession(_ context.Context, raw string) error {
	f.joined = append(f.joined, raw)
	return f.joinErr
}

func (f *fakeSession) Reset(context.Context) error {
	f.resets++
	return nil
}

func (f *fakeSession) VerifyAndRecover(context.Context) error {
	f.recovers++
	return nil
}

func (f *fakeSession) Cancel() { f.cancels++ }

type fakeRoom struct {
	choices  []int
	selErr   error
	startErr error
	goals    []protocol.Side
	status   room.Status
}

func (f *fakeRoom) Select(_ context.Context, choice int) error {
	f.choices = append(f.choices, choice)
	return f.selErr
}

func (f *fakeRoom) StartMatch(context.Context) error { return f.startErr }

func (f *fakeRoom) RecordGoal(_ context.Context, side protocol.Side) (bool, error) {
	f.goals = append(f.goals, side)
	return true, nil
}

func (f *fakeRoom) Status() room.Status { return f.status }

func newTestServer(t *testing.T, s *fakeSession, r *fakeRoom) (*HTTPServer, http.Handler) {
	t.Helper()
	h := NewHTTPServer(0, s, r, prometheus.NewRegistry(), nil)
	return h, h.Routes()
}

func do(t *testing.T, handler http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestHTTP_CreateSession(t *testing.T) {
	created := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	_, handler := newTestServer(t, &fakeSession{code: session.JoinCode{Code: "AB12CD", CreatedAt: created}}, &fakeRoom{})

	rec := do(t, handler, http.MethodPost, "/session/create", "")
	require.Equal(t, http.StatusCreated, rec.Code)

	var body joinCodeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "AB12CD", body.Code)
	assert.Equal(t, "2025-06-01T12:00:00Z", body.CreatedAt)
}

func TestHTTP_SessionErrorsCarryKindAndMessage(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		kind   string
	}{
		{"invalid code", &session.Error{Op: session.OpJoin, Kind: session.KindInvalidInput}, http.StatusBadRequest, "invalid input"},
		{"expired", &session.Error{Op: session.OpJoin, Kind: session.KindExpired}, http.StatusNotFound, "expired"},
		{"busy", &session.Error{Op: session.OpJoin, Kind: session.KindBusy}, http.StatusConflict, "busy"},
		{"timeout", &session.Error{Op: session.OpJoin, Kind: session.KindTimeout}, http.StatusGatewayTimeout, "timeout"},
		{"auth", &session.Error{Op: session.OpJoin, Kind: session.KindAuthFailure}, http.StatusUnauthorized, "auth failure"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &fakeSession{joinErr: tt.err}
			_, handler := newTestServer(t, s, &fakeRoom{})

			rec := do(t, handler, http.MethodPost, "/session/join", `{"code":"ab12cd"}`)
			require.Equal(t, tt.status, rec.Code)

			var body errorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.kind, body.Kind)
			assert.Equal(t, session.UserMessage(tt.err), body.Message)
			assert.Equal(t, []string{"ab12cd"}, s.joined)
		})
	}
}

func TestHTTP_SessionLifecycleRoutes(t *testing.T) {
	s := &fakeSession{}
	_, handler := newTestServer(t, s, &fakeRoom{})

	assert.Equal(t, http.StatusNoContent, do(t, handler, http.MethodPost, "/session/reset", "").Code)
	assert.Equal(t, http.StatusNoContent, do(t, handler, http.MethodPost, "/session/recover", "").Code)
	assert.Equal(t, http.StatusAccepted, do(t, handler, http.MethodPost, "/session/cancel", "").Code)

	assert.Equal(t, 1, s.resets)
	assert.Equal(t, 1, s.recovers)
	assert.Equal(t, 1, s.cancels)
}

func TestHTTP_Select(t *testing.T) {
	r := &fakeRoom{}
	_, handler := newTestServer(t, &fakeSession{}, r)

	assert.Equal(t, http.StatusBadRequest, do(t, handler, http.MethodPost, "/selection", `{}`).Code)
	assert.Equal(t, http.StatusNoContent, do(t, handler, http.MethodPost, "/selection", `{"choice":0}`).Code)
	assert.Equal(t, []int{0}, r.choices)

	r.selErr = selection.ErrLocked
	assert.Equal(t, http.StatusConflict, do(t, handler, http.MethodPost, "/selection", `{"choice":2}`).Code)

	r.selErr = selection.ErrInvalidChoice
	assert.Equal(t, http.StatusBadRequest, do(t, handler, http.MethodPost, "/selection", `{"choice":99}`).Code)
}

func TestHTTP_MatchRoutes(t *testing.T) {
	r := &fakeRoom{}
	_, handler := newTestServer(t, &fakeSession{}, r)

	assert.Equal(t, http.StatusAccepted, do(t, handler, http.MethodPost, "/match/start", "").Code)

	r.startErr = room.ErrNotHost
	assert.Equal(t, http.StatusForbidden, do(t, handler, http.MethodPost, "/match/start", "").Code)

	r.startErr = room.ErrNotEnoughPeers
	assert.Equal(t, http.StatusConflict, do(t, handler, http.MethodPost, "/match/start", "").Code)

	assert.Equal(t, http.StatusBadRequest, do(t, handler, http.MethodPost, "/match/goal", `{"side":"up"}`).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, handler, http.MethodPost, "/match/goal", `{"side":"none"}`).Code)

	rec := do(t, handler, http.MethodPost, "/match/goal", `{"side":"right"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"scored":true}`, rec.Body.String())
	assert.Equal(t, []protocol.Side{protocol.SideRight}, r.goals)
}

func TestHTTP_StatusIncludesNotices(t *testing.T) {
	r := &fakeRoom{status: room.Status{
		State:            session.StateHosting,
		Role:             "host",
		JoinCode:         "AB12CD",
		Self:             protocol.HostID,
		Participants:     []protocol.ParticipantID{0, 7},
		Selections:       []protocol.Selection{{ParticipantID: 0, ChoiceIndex: 1}},
		SelectionsLocked: true,
		Match:            match.State{Phase: match.PhaseActive, Player1Score: 1, TimeRemaining: 42},
		Pings:            map[protocol.ParticipantID]int{7: 120},
		Quality:          map[protocol.ParticipantID]string{7: "medium"},
	}}
	h, handler := newTestServer(t, &fakeSession{}, r)
	h.RecordNotice(room.Notice{Kind: room.NoticePeerLeft, Participant: 7, Message: "Your opponent left the match."})

	rec := do(t, handler, http.MethodGet, "/status", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body statusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "hosting", body.State)
	assert.Equal(t, "host", body.Role)
	assert.Equal(t, []uint64{0, 7}, body.Participants)
	assert.True(t, body.SelectionsLocked)
	assert.Equal(t, "active", body.Match.Phase)
	assert.Equal(t, 1, body.Match.Player1Score)
	assert.Equal(t, 120, body.Pings[7])
	assert.Equal(t, "medium", body.Quality[7])
	require.Len(t, body.Notices, 1)
	assert.Equal(t, "peer_left", body.Notices[0].Kind)
	assert.Equal(t, uint64(7), body.Notices[0].Participant)
}

func TestHTTP_Healthz(t *testing.T) {
	down := errors.New("redis unreachable")
	h := NewHTTPServer(0, &fakeSession{}, &fakeRoom{}, prometheus.NewRegistry(), func(context.Context) error { return down })

	rec := do(t, h.Routes(), http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	_, handler := newTestServer(t, &fakeSession{}, &fakeRoom{})
	assert.Equal(t, http.StatusOK, do(t, handler, http.MethodGet, "/healthz", "").Code)
}

func TestHTTP_MetricsEndpoint(t *testing.T) {
	h := NewHTTPServer(0, &fakeSession{}, &fakeRoom{}, NewMetricsRegistry(), nil)

	rec := do(t, h.Routes(), http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestNoticeLog_KeepsMostRecent(t *testing.T) {
	l := newNoticeLog(2)
	for i := 1; i <= 3; i++ {
		l.add(room.Notice{Participant: protocol.ParticipantID(i)})
	}

	got := l.recent()
	require.Len(t, got, 2)
	assert.Equal(t, protocol.ParticipantID(2), got[0].Participant)
	assert.Equal(t, protocol.ParticipantID(3), got[1].Participant)
}

func TestSessionServingStatus(t *testing.T) {
	serving := grpc_health_v1.HealthCheckResponse_SERVING
	notServing := grpc_health_v1.HealthCheckResponse_NOT_SERVING

	tests := map[session.State]grpc_health_v1.HealthCheckResponse_ServingStatus{
		session.StateUninitialised: notServing,
		session.StateInitialising:  notServing,
		session.StateReady:         serving,
		session.StateHosting:       serving,
		session.StateJoining:       serving,
		session.StateJoined:        serving,
		session.StateError:         notServing,
	}
	for state, want := range tests {
		assert.Equal(t, want, SessionServingStatus(state), state.String())
	}
}
