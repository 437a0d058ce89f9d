// Package agent defines the event stream produced by one assistant turn and
// the correlation of tool invocations within it. The engine that produces
// the events is opaque; this package only sees an ordered sequence of tagged
// events.
package agent

import "encoding/json"

type EventKind string

const (
	KindTextDelta  EventKind = "text-delta"
	KindToolCall   EventKind = "tool-call"
	KindToolResult EventKind = "tool-result"
	KindError      EventKind = "error"
	KindFinish     EventKind = "finish"
)

// Event is one raw item of a turn's stream. The kind determines which fields
// are set; unknown kinds pass through untouched so they can still be stored
// and broadcast.
type Event struct {
	Kind       EventKind      `json:"type"`
	TextDelta  string         `json:"textDelta,omitempty"`
	ToolCallID string         `json:"toolCallId,omitempty"`
	ToolName   string         `json:"toolName,omitempty"`
	Args       map[string]any `json:"args,omitempty"`
	Result     map[string]any `json:"result,omitempty"`
	Error      string         `json:"error,omitempty"`
}

func (e Event) Raw() json.RawMessage {
	data, err := json.Marshal(e)
	if err != nil {
		return json.RawMessage(`{}`)
	}
	return data
}

// Message is one prior turn handed to the engine as history.
type Message struct {
	Role    string
	Content string
}

// Stream is the ordered event sequence of one in-flight turn. Events is
// closed when the turn is over; Err reports a terminal engine failure and is
// valid only after Events is drained.
type Stream interface {
	Events() <-chan Event
	Err() error
}
