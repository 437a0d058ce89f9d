package agent

import "encoding/json"

// ToolInvocation is a tool-call event paired with its later result.
type ToolInvocation struct {
	ID     string
	Name   string
	Args   map[string]any
	Result map[string]any
}

// Collector folds one turn's events into accumulated text and completed tool
// invocations. It is not safe for concurrent use; each turn gets its own.
type Collector struct {
	text    []byte
	raw     []json.RawMessage
	pending map[string]Event
	done    []ToolInvocation
	errored bool
}

func NewCollector() *Collector {
	return &Collector{pending: map[string]Event{}}
}

// Observe consumes one event in arrival order.
func (c *Collector) Observe(event Event) {
	c.raw = append(c.raw, event.Raw())

	switch event.Kind {
	case KindTextDelta:
		c.text = append(c.text, event.TextDelta...)
	case KindToolCall:
		// Reusing an invocation id replaces the earlier call; the pair is
		// resolved by whichever result arrives after.
		c.pending[event.ToolCallID] = event
	case KindToolResult:
		call, ok := c.pending[event.ToolCallID]
		if !ok {
			// A result with no prior call has no name or args to persist.
			return
		}
		c.done = append(c.done, ToolInvocation{
			ID:     event.ToolCallID,
			Name:   call.ToolName,
			Args:   call.Args,
			Result: event.Result,
		})
		delete(c.pending, event.ToolCallID)
	case KindError:
		c.errored = true
	}
}

// Text returns the concatenation of all text deltas observed so far.
func (c *Collector) Text() string {
	return string(c.text)
}

// ToolInvocations returns the completed pairs in completion order. Calls
// still waiting for a result are dropped.
func (c *Collector) ToolInvocations() []ToolInvocation {
	return c.done
}

// RawEvents returns every observed event, in arrival order, as stored-form
// JSON.
func (c *Collector) RawEvents() []json.RawMessage {
	return c.raw
}

// SawError reports whether any error-kind event was observed.
func (c *Collector) SawError() bool {
	return c.errored
}
