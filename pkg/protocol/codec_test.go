// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package protocol

import (
	"errors"
	"math"
	"testing"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

func TestEncodeDecode_LargeIdentifiersSurvive(t *testing.T) {
	in := SelectionUpsert{ParticipantID: ParticipantID(math.MaxUint64 - 1), Choice: 3, Seq: math.MaxUint64}

	data, err := Encode(in)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	out, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}

	got, ok := out.(SelectionUpsert)
	if !ok {
		t.Fatalf("Decode() returned %T, expected SelectionUpsert", out)
	}
	if got != in {
		t.Errorf("Decode() = %+v, expected %+v", got, in)
	}
}

func TestDecode_MatchEndedDraw(t *testing.T) {
	data, err := Encode(MatchEnded{Draw: true, Player1: 2, Player2: 2})
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	out, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	ended := out.(MatchEnded)
	if !ended.Draw || ended.Winner != SideNone {
		t.Errorf("Decode() = %+v, expected a draw without a winner", ended)
	}
}

func TestDecode_Errors(t *testing.T) {
	build := func(fields map[string]interface{}) []byte {
		st, err := structpb.NewStruct(fields)
		if err != nil {
			t.Fatalf("NewStruct() error = %v", err)
		}
		data, err := proto.Marshal(st)
		if err != nil {
			t.Fatalf("Marshal() error = %v", err)
		}
		return data
	}

	tests := []struct {
		name    string
		data    []byte
		wantErr error
	}{
		{
			name:    "garbage bytes",
			data:    []byte{0xff, 0xff, 0xff},
			wantErr: ErrMalformed,
		},
		{
			name:    "unknown kind",
			data:    build(map[string]interface{}{"kind": "lobby.chat"}),
			wantErr: ErrUnknownKind,
		},
		{
			name:    "missing kind",
			data:    build(map[string]interface{}{"phase": "active"}),
			wantErr: ErrMalformed,
		},
		{
			name:    "missing field",
			data:    build(map[string]interface{}{"kind": "selection.upsert", "participant": "1", "choice": 2}),
			wantErr: ErrMalformed,
		},
		{
			name:    "wrong field type",
			data:    build(map[string]interface{}{"kind": "match.countdown", "value": "three"}),
			wantErr: ErrMalformed,
		},
		{
			name:    "bad side",
			data:    build(map[string]interface{}{"kind": "match.goal", "side": "up"}),
			wantErr: ErrMalformed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.data)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Decode() error = %v, expected %v", err, tt.wantErr)
			}
		})
	}
}

func TestParseParticipantID(t *testing.T) {
	id, err := ParseParticipantID("42")
	if err != nil {
		t.Fatalf("ParseParticipantID() error = %v", err)
	}
	if id != 42 {
		t.Errorf("ParseParticipantID() = %d, expected 42", id)
	}
	if _, err := ParseParticipantID("-1"); err == nil {
		t.Error("ParseParticipantID(-1) expected error")
	}
}
