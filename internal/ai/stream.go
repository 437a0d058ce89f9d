package ai

import (
	"context"

	"github.com/flitsinc/go-llms/content"
	"github.com/flitsinc/go-llms/llms"
	llmtools "github.com/flitsinc/go-llms/tools"

	"github.com/hireloop/hireloop/internal/agent"
	"github.com/hireloop/hireloop/internal/store"
)

type turnStream struct {
	ch  chan agent.Event
	err error
}

func (s *turnStream) Events() <-chan agent.Event { return s.ch }
func (s *turnStream) Err() error                 { return s.err }

// StreamTurn runs one assistant turn for the job's conversation. Text
// updates from the engine become text-delta events; each tool execution
// emits a tool-call event before it runs and a tool-result event after, so
// the two halves carry the same invocation id. The channel is closed when
// the engine is done; Err reports a terminal engine failure.
func (c *Client) StreamTurn(ctx context.Context, job store.Job, history []agent.Message) (agent.Stream, error) {
	stream := &turnStream{ch: make(chan agent.Event, 64)}
	emit := func(event agent.Event) {
		stream.ch <- event
	}

	tools := []llmtools.Tool{c.addCandidateTool(job, emit)}
	if c.Searcher != nil {
		tools = append(tools, c.searchCandidatesTool(emit))
	}
	llm, err := c.newLLM(tools...)
	if err != nil {
		return nil, err
	}
	system := recruiterPrompt(job)
	llm.SystemPrompt = func() content.Content { return content.FromText(system) }

	messages := make([]llms.Message, 0, len(history))
	for _, msg := range history {
		m := llms.Message{Content: content.FromText(msg.Content)}
		if msg.Role == "assistant" {
			m.Role = "assistant"
		} else {
			m.Role = "user"
		}
		messages = append(messages, m)
	}

	go func() {
		defer close(stream.ch)
		updates := llm.ChatUsingMessages(ctx, messages)
		for update := range updates {
			if textUpdate, ok := update.(llms.TextUpdate); ok {
				emit(agent.Event{Kind: agent.KindTextDelta, TextDelta: textUpdate.Text})
			}
		}
		if err := llm.Err(); err != nil {
			emit(agent.Event{Kind: agent.KindError, Error: err.Error()})
			stream.err = err
			return
		}
		emit(agent.Event{Kind: agent.KindFinish})
	}()

	return stream, nil
}
