// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/AccelByte/extend-relay-match/pkg/common"
	"github.com/AccelByte/extend-relay-match/pkg/match"
	"github.com/AccelByte/extend-relay-match/pkg/protocol"
	"github.com/AccelByte/extend-relay-match/pkg/room"
	"github.com/AccelByte/extend-relay-match/pkg/selection"
	"github.com/AccelByte/extend-relay-match/pkg/session"

	"github.com/sirupsen/logrus"
)

// SessionControl is the relay session half of the control API.
type SessionControl interface {
	CreateSession(ctx context.Context) (session.JoinCode, error)
	JoinSession(ctx context.Context, raw string) error
	Reset(ctx context.Context) error
	VerifyAndRecover(ctx context.Context) error
	Cancel()
}

// RoomControl is the in-session half of the control API.
type RoomControl interface {
	Select(ctx context.Context, choice int) error
	StartMatch(ctx context.Context) error
	RecordGoal(ctx context.Context, side protocol.Side) (bool, error)
	Status() room.Status
}

type errorResponse struct {
	Error   string `json:"error"`
	Kind    string `json:"kind,omitempty"`
	Message string `json:"message,omitempty"`
}

type joinCodeResponse struct {
	Code      string `json:"code"`
	CreatedAt string `json:"createdAt"`
}

type joinRequest struct {
	Code string `json:"code"`
}

type selectRequest struct {
	Choice *int `json:"choice"`
}

type goalRequest struct {
	Side string `json:"side"`
}

type goalResponse struct {
	Scored bool `json:"scored"`
}

type matchView struct {
	Phase         string  `json:"phase"`
	Player1Score  int     `json:"player1Score"`
	Player2Score  int     `json:"player2Score"`
	TimeRemaining float64 `json:"timeRemaining"`
	Countdown     int     `json:"countdown"`
}

type noticeView struct {
	Kind        string `json:"kind"`
	Participant uint64 `json:"participant,omitempty"`
	Message     string `json:"message"`
}

type statusResponse struct {
	State            string               `json:"state"`
	Role             string               `json:"role,omitempty"`
	JoinCode         string               `json:"joinCode,omitempty"`
	Self             uint64               `json:"self"`
	Participants     []uint64             `json:"participants"`
	Selections       []protocol.Selection `json:"selections"`
	SelectionsLocked bool                 `json:"selectionsLocked"`
	Match            matchView            `json:"match"`
	Pings            map[uint64]int       `json:"pings"`
	Quality          map[uint64]string    `json:"quality"`
	Notices          []noticeView         `json:"notices"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logrus.Warnf("failed to encode response: %v", err)
	}
}

// writeError maps domain errors onto HTTP statuses.
func writeError(w http.ResponseWriter, err error) {
	var se *session.Error
	if errors.As(err, &se) {
		writeJSON(w, sessionStatus(se.Kind), errorResponse{
			Error:   err.Error(),
			Kind:    se.Kind.String(),
			Message: session.UserMessage(err),
		})
		return
	}

	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, room.ErrNoSession),
		errors.Is(err, room.ErrNotEnoughPeers),
		errors.Is(err, selection.ErrLocked),
		errors.Is(err, match.ErrAlreadyStarted),
		errors.Is(err, match.ErrNotEnoughParticipants):
		status = http.StatusConflict
	case errors.Is(err, room.ErrNotHost):
		status = http.StatusForbidden
	case errors.Is(err, selection.ErrInvalidChoice):
		status = http.StatusBadRequest
	case errors.Is(err, selection.ErrNotConfirmed),
		errors.Is(err, context.DeadlineExceeded):
		status = http.StatusGatewayTimeout
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func sessionStatus(k session.Kind) int {
	switch k {
	case session.KindInvalidInput:
		return http.StatusBadRequest
	case session.KindNotFound, session.KindExpired:
		return http.StatusNotFound
	case session.KindAuthFailure:
		return http.StatusUnauthorized
	case session.KindBusy, session.KindWrongState:
		return http.StatusConflict
	case session.KindTimeout:
		return http.StatusGatewayTimeout
	case session.KindCancelled:
		return http.StatusRequestTimeout
	case session.KindTransientNetwork:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func decode(r *http.Request, v any) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	return json.NewDecoder(r.Body).Decode(v)
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, errorResponse{Error: msg})
}

// traced runs fn inside a span named after the route.
func traced(name string, fn func(scope *common.Scope, w http.ResponseWriter, r *http.Request)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		scope := common.StartScope(r.Context(), name)
		defer scope.Finish()
		fn(scope, w, r)
	}
}

func CreateSession(s SessionControl) http.HandlerFunc {
	return traced("http.CreateSession", func(scope *common.Scope, w http.ResponseWriter, r *http.Request) {
		code, err := s.CreateSession(scope.Ctx)
		if err != nil {
			scope.Log.Warnf("create session failed: %v", err)
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, joinCodeResponse{
			Code:      code.Code,
			CreatedAt: code.CreatedAt.UTC().Format(time.RFC3339),
		})
	})
}

func JoinSession(s SessionControl) http.HandlerFunc {
	return traced("http.JoinSession", func(scope *common.Scope, w http.ResponseWriter, r *http.Request) {
		var req joinRequest
		if err := decode(r, &req); err != nil {
			badRequest(w, "malformed request body")
			return
		}
		if err := s.JoinSession(scope.Ctx, req.Code); err != nil {
			scope.Log.Warnf("join session failed: %v", err)
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})
}

func ResetSession(s SessionControl) http.HandlerFunc {
	return traced("http.ResetSession", func(scope *common.Scope, w http.ResponseWriter, r *http.Request) {
		if err := s.Reset(scope.Ctx); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})
}

func RecoverSession(s SessionControl) http.HandlerFunc {
	return traced("http.RecoverSession", func(scope *common.Scope, w http.ResponseWriter, r *http.Request) {
		if err := s.VerifyAndRecover(scope.Ctx); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})
}

func CancelSession(s SessionControl) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.Cancel()
		w.WriteHeader(http.StatusAccepted)
	}
}

func Select(rc RoomControl) http.HandlerFunc {
	return traced("http.Select", func(scope *common.Scope, w http.ResponseWriter, r *http.Request) {
		var req selectRequest
		if err := decode(r, &req); err != nil || req.Choice == nil {
			badRequest(w, "choice is required")
			return
		}
		if err := rc.Select(scope.Ctx, *req.Choice); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})
}

func StartMatch(rc RoomControl) http.HandlerFunc {
	return traced("http.StartMatch", func(scope *common.Scope, w http.ResponseWriter, r *http.Request) {
		if err := rc.StartMatch(scope.Ctx); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusAccepted)
	})
}

func RecordGoal(rc RoomControl) http.HandlerFunc {
	return traced("http.RecordGoal", func(scope *common.Scope, w http.ResponseWriter, r *http.Request) {
		var req goalRequest
		if err := decode(r, &req); err != nil {
			badRequest(w, "malformed request body")
			return
		}
		side, err := protocol.ParseSide(req.Side)
		if err != nil || side == protocol.SideNone {
			badRequest(w, "side must be left or right")
			return
		}
		scored, err := rc.RecordGoal(scope.Ctx, side)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, goalResponse{Scored: scored})
	})
}

func Status(rc RoomControl, notices *noticeLog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, statusView(rc.Status(), notices.recent()))
	}
}

func statusView(st room.Status, notices []room.Notice) statusResponse {
	resp := statusResponse{
		State:            st.State.String(),
		Role:             st.Role,
		JoinCode:         st.JoinCode,
		Self:             uint64(st.Self),
		Participants:     make([]uint64, 0, len(st.Participants)),
		Selections:       st.Selections,
		SelectionsLocked: st.SelectionsLocked,
		Match: matchView{
			Phase:         st.Match.Phase.String(),
			Player1Score:  st.Match.Player1Score,
			Player2Score:  st.Match.Player2Score,
			TimeRemaining: st.Match.TimeRemaining,
			Countdown:     st.Match.Countdown,
		},
		Pings:   make(map[uint64]int, len(st.Pings)),
		Quality: make(map[uint64]string, len(st.Quality)),
		Notices: make([]noticeView, 0, len(notices)),
	}
	if resp.Selections == nil {
		resp.Selections = []protocol.Selection{}
	}
	for _, id := range st.Participants {
		resp.Participants = append(resp.Participants, uint64(id))
	}
	for id, ms := range st.Pings {
		resp.Pings[uint64(id)] = ms
	}
	for id, q := range st.Quality {
		resp.Quality[uint64(id)] = q
	}
	for _, n := range notices {
		resp.Notices = append(resp.Notices, noticeView{
			Kind:        n.Kind.String(),
			Participant: uint64(n.Participant),
			Message:     n.Message,
		})
	}
	return resp
}

// Healthz reports whether Redis is reachable.
func Healthz(check func(ctx context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if check != nil {
			if err := check(r.Context()); err != nil {
				writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: err.Error()})
				return
			}
		}
		w.WriteHeader(http.StatusOK)
	}
}
