// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package protocol

import (
	"errors"
	"fmt"
	"strconv"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

var (
	// ErrUnknownKind is returned by Decode for a kind this build does not understand.
	ErrUnknownKind = errors.New("unknown message kind")

	// ErrMalformed is returned by Decode when a required field is missing or has the wrong type.
	ErrMalformed = errors.New("malformed message")
)

const kindField = "kind"

// Encode serialises a message as a protobuf Struct.
// 64-bit ids and sequence numbers travel as decimal strings so they survive
// the float64 number representation of structpb.
func Encode(m Message) ([]byte, error) {
	fields := map[string]interface{}{kindField: string(m.Kind())}

	switch v := m.(type) {
	case SelectionUpsert:
		fields["participant"] = v.ParticipantID.String()
		fields["choice"] = v.Choice
		fields["seq"] = strconv.FormatUint(v.Seq, 10)
	case SelectionRemove:
		fields["participant"] = v.ParticipantID.String()
		fields["seq"] = strconv.FormatUint(v.Seq, 10)
	case SelectionSubmit:
		fields["participant"] = v.ParticipantID.String()
		fields["choice"] = v.Choice
	case SelectionQuery:
		fields["participant"] = v.ParticipantID.String()
		fields["choice"] = v.Choice
	case SelectionConfirm:
		fields["participant"] = v.ParticipantID.String()
		fields["confirmed"] = v.Confirmed
	case MatchPhaseChanged:
		fields["phase"] = v.Phase
	case ScoreChanged:
		fields["p1"] = v.Player1
		fields["p2"] = v.Player2
	case GoalCelebration:
		fields["side"] = v.Side.String()
	case CelebrationEnded:
	case CountdownTick:
		fields["value"] = v.Value
	case TimerTick:
		fields["remaining"] = v.Remaining
	case MatchEnded:
		fields["winner"] = v.Winner.String()
		fields["draw"] = v.Draw
		fields["p1"] = v.Player1
		fields["p2"] = v.Player2
	case PingSample:
		fields["participant"] = v.ParticipantID.String()
		fields["rtt"] = v.RoundTripMillis
	case PeerLeft:
		fields["participant"] = v.ParticipantID.String()
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnknownKind, m)
	}

	st, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, fmt.Errorf("failed to build %s payload: %w", m.Kind(), err)
	}
	return proto.Marshal(st)
}

// Decode is the inverse of Encode.
func Decode(data []byte) (Message, error) {
	st := &structpb.Struct{}
	if err := proto.Unmarshal(data, st); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	r := &fieldReader{fields: st.GetFields()}
	kind := Kind(r.str(kindField))
	if r.err != nil {
		return nil, r.err
	}

	var m Message
	switch kind {
	case KindSelectionUpsert:
		m = SelectionUpsert{ParticipantID: r.id("participant"), Choice: r.int("choice"), Seq: r.uint("seq")}
	case KindSelectionRemove:
		m = SelectionRemove{ParticipantID: r.id("participant"), Seq: r.uint("seq")}
	case KindSelectionSubmit:
		m = SelectionSubmit{ParticipantID: r.id("participant"), Choice: r.int("choice")}
	case KindSelectionQuery:
		m = SelectionQuery{ParticipantID: r.id("participant"), Choice: r.int("choice")}
	case KindSelectionConfirm:
		m = SelectionConfirm{ParticipantID: r.id("participant"), Confirmed: r.bool("confirmed")}
	case KindMatchPhaseChanged:
		m = MatchPhaseChanged{Phase: r.str("phase")}
	case KindScoreChanged:
		m = ScoreChanged{Player1: r.int("p1"), Player2: r.int("p2")}
	case KindGoalCelebration:
		m = GoalCelebration{Side: r.side("side")}
	case KindCelebrationEnded:
		m = CelebrationEnded{}
	case KindCountdownTick:
		m = CountdownTick{Value: r.int("value")}
	case KindTimerTick:
		m = TimerTick{Remaining: r.float("remaining")}
	case KindMatchEnded:
		m = MatchEnded{Winner: r.side("winner"), Draw: r.bool("draw"), Player1: r.int("p1"), Player2: r.int("p2")}
	case KindPingSample:
		m = PingSample{ParticipantID: r.id("participant"), RoundTripMillis: r.int("rtt")}
	case KindPeerLeft:
		m = PeerLeft{ParticipantID: r.id("participant")}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}

	if r.err != nil {
		return nil, fmt.Errorf("decode %s: %w", kind, r.err)
	}
	return m, nil
}

// fieldReader keeps the first error so Decode can read every field unconditionally.
type fieldReader struct {
	fields map[string]*structpb.Value
	err    error
}

func (r *fieldReader) value(key string) *structpb.Value {
	v, ok := r.fields[key]
	if !ok && r.err == nil {
		r.err = fmt.Errorf("%w: missing field %q", ErrMalformed, key)
	}
	return v
}

func (r *fieldReader) str(key string) string {
	v := r.value(key)
	if v == nil {
		return ""
	}
	if _, ok := v.GetKind().(*structpb.Value_StringValue); !ok && r.err == nil {
		r.err = fmt.Errorf("%w: field %q is not a string", ErrMalformed, key)
	}
	return v.GetStringValue()
}

func (r *fieldReader) float(key string) float64 {
	v := r.value(key)
	if v == nil {
		return 0
	}
	if _, ok := v.GetKind().(*structpb.Value_NumberValue); !ok && r.err == nil {
		r.err = fmt.Errorf("%w: field %q is not a number", ErrMalformed, key)
	}
	return v.GetNumberValue()
}

func (r *fieldReader) int(key string) int {
	return int(r.float(key))
}

func (r *fieldReader) bool(key string) bool {
	v := r.value(key)
	if v == nil {
		return false
	}
	if _, ok := v.GetKind().(*structpb.Value_BoolValue); !ok && r.err == nil {
		r.err = fmt.Errorf("%w: field %q is not a bool", ErrMalformed, key)
	}
	return v.GetBoolValue()
}

func (r *fieldReader) uint(key string) uint64 {
	s := r.str(key)
	if r.err != nil {
		return 0
	}
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		r.err = fmt.Errorf("%w: field %q: %v", ErrMalformed, key, err)
	}
	return n
}

func (r *fieldReader) id(key string) ParticipantID {
	return ParticipantID(r.uint(key))
}

func (r *fieldReader) side(key string) Side {
	s := r.str(key)
	if r.err != nil {
		return SideNone
	}
	side, err := ParseSide(s)
	if err != nil {
		r.err = fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return side
}
