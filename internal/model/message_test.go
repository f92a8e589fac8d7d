package model

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestMessageType_String(t *testing.T) {
	t.Parallel()

	tests := []struct {
		typ  MessageType
		want string
	}{
		{MessagePro, "pro"},
		{MessageNote, "note"},
		{MessageCons, "cons"},
		{MessageTypeUnknown, "unknown"},
		{MessageType(42), "unknown"},
	}

	for _, tt := range tests {
		if got := tt.typ.String(); got != tt.want {
			t.Errorf("MessageType(%d).String() = %q, want %q", int(tt.typ), got, tt.want)
		}
	}
}

func TestParseMessageType(t *testing.T) {
	t.Parallel()

	t.Run("parses known types", func(t *testing.T) {
		t.Parallel()

		for in, want := range map[string]MessageType{
			"pro":   MessagePro,
			"NOTE":  MessageNote,
			" cons": MessageCons,
		} {
			got, err := ParseMessageType(in)
			if err != nil {
				t.Fatalf("ParseMessageType(%q) unexpected error: %v", in, err)
			}
			if got != want {
				t.Errorf("ParseMessageType(%q) = %v, want %v", in, got, want)
			}
		}
	})

	t.Run("rejects unknown type", func(t *testing.T) {
		t.Parallel()

		_, err := ParseMessageType("warning")
		if !errors.Is(err, ErrInvalidMessageType) {
			t.Errorf("expected ErrInvalidMessageType, got %v", err)
		}
	})
}

func TestMessage_JSON(t *testing.T) {
	t.Parallel()

	data, err := json.Marshal(Message{Type: MessageCons, Text: "Is very young", Metric: "age"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := `{"type":"cons","message":"Is very young","metric":"age"}`
	if string(data) != want {
		t.Errorf("got %s, want %s", data, want)
	}

	var decoded Message
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if decoded.Type != MessageCons {
		t.Errorf("expected cons, got %v", decoded.Type)
	}
}
