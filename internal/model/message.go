package model

import (
	"fmt"
	"strings"
)

// MessageType classifies a rendered explanation line.
// The zero value is deliberately invalid so that a rule declared without
// a type is caught the first time it fires.
type MessageType int

const (
	// MessageTypeUnknown is the zero value and never valid in a rule.
	MessageTypeUnknown MessageType = iota

	// MessagePro is a point in favour of adopting the package.
	MessagePro

	// MessageNote is neutral information worth reading.
	MessageNote

	// MessageCons is a point against adopting the package.
	MessageCons
)

// String returns the lowercase name used in configuration and JSON output.
func (t MessageType) String() string {
	switch t {
	case MessagePro:
		return "pro"
	case MessageNote:
		return "note"
	case MessageCons:
		return "cons"
	default:
		return "unknown"
	}
}

// Valid reports whether t is one of pro, note or cons.
func (t MessageType) Valid() bool {
	return t == MessagePro || t == MessageNote || t == MessageCons
}

// ParseMessageType parses "pro", "note" or "cons" (case-insensitive).
func ParseMessageType(s string) (MessageType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "pro", "pros":
		return MessagePro, nil
	case "note", "notes":
		return MessageNote, nil
	case "cons", "con":
		return MessageCons, nil
	default:
		return MessageTypeUnknown, fmt.Errorf("%w: %q", ErrInvalidMessageType, s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (t MessageType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *MessageType) UnmarshalText(text []byte) error {
	parsed, err := ParseMessageType(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Message is one rendered pro, note or cons line.
type Message struct {
	// Type is pro, note or cons.
	Type MessageType `json:"type" yaml:"type"`

	// Text is the rendered template output.
	Text string `json:"message" yaml:"message"`

	// Metric is the id of the metric whose rule produced the line.
	// It is empty for lines appended by processors without a metric.
	Metric string `json:"metric,omitempty" yaml:"metric,omitempty"`
}
