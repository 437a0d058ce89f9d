// Package chat drives one user message through a full assistant turn:
// history load, agent invocation, live fan-out, and durable writes.
package chat

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/hireloop/hireloop/internal/agent"
	"github.com/hireloop/hireloop/internal/idgen"
	"github.com/hireloop/hireloop/internal/realtime"
	"github.com/hireloop/hireloop/internal/store"
)

// Engine produces the ordered event stream for one assistant turn.
type Engine interface {
	StreamTurn(ctx context.Context, job store.Job, history []agent.Message) (agent.Stream, error)
}

type Service struct {
	Store  *store.Store
	Hub    *realtime.Hub
	Engine Engine
}

// SendMessage runs one turn and returns the full assistant response text.
//
// The user turn is persisted before the agent is invoked, so an aborted turn
// leaves the conversation intact and a retry re-submits the same history.
// Chunk and tool-call rows are written after the stream drains, best-effort;
// by then the caller already has the response over the live channel.
func (s *Service) SendMessage(ctx context.Context, user store.User, jobID, text string) (string, error) {
	job, err := s.Store.GetOwnedJob(ctx, jobID, user.OrganizationHandle)
	if err != nil {
		return "", err
	}

	chat, err := s.Store.GetOrCreateChat(ctx, job.ID, "Chat for "+job.Title)
	if err != nil {
		return "", err
	}

	prior, err := s.Store.ListMessages(ctx, chat.ID)
	if err != nil {
		return "", err
	}

	userMsg, err := s.Store.CreateMessage(ctx, store.MessageInput{ChatID: chat.ID, Role: "user", Content: text})
	if err != nil {
		return "", err
	}

	history := historyFor(prior)
	history = append(history, agent.Message{Role: "user", Content: userMsg.Content})

	assistantID := idgen.New()
	audience := []string{user.ID}

	s.Hub.BroadcastToUsers(audience, realtime.ChatEnvelope(job.ID, realtime.KindMessageStarted, assistantID, nil))

	stream, err := s.Engine.StreamTurn(ctx, job, history)
	if err != nil {
		return "", fmt.Errorf("invoke agent: %w", err)
	}

	collector := agent.NewCollector()
	for event := range stream.Events() {
		s.Hub.BroadcastToUsers(audience, realtime.ChatEnvelope(job.ID, realtime.KindMessageChunk, assistantID, map[string]any{
			"chunk": event,
		}))
		collector.Observe(event)
	}
	if err := stream.Err(); err != nil {
		return "", fmt.Errorf("agent stream: %w", err)
	}
	if collector.SawError() {
		// The turn still completes with whatever text arrived.
		log.Printf("turn %s finished with provider errors", assistantID)
	}

	if _, err := s.Store.CreateMessage(ctx, store.MessageInput{
		ID:      assistantID,
		ChatID:  chat.ID,
		Role:    "assistant",
		Content: collector.Text(),
	}); err != nil {
		return "", err
	}

	s.Hub.BroadcastToUsers(audience, realtime.ChatEnvelope(job.ID, realtime.KindMessageComplete, assistantID, nil))

	s.persistTurnRecords(ctx, assistantID, collector)

	return collector.Text(), nil
}

// persistTurnRecords writes the audit trail for a finished turn. The two
// writes run independently; either one failing costs audit fidelity, not the
// turn.
func (s *Service) persistTurnRecords(ctx context.Context, assistantID string, collector *agent.Collector) {
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		if err := s.Store.AppendChunks(ctx, assistantID, collector.RawEvents()); err != nil {
			log.Printf("append chunks for %s: %v", assistantID, err)
		}
	}()
	go func() {
		defer wg.Done()
		calls := make([]store.ToolCall, 0, len(collector.ToolInvocations()))
		for _, inv := range collector.ToolInvocations() {
			calls = append(calls, store.ToolCall{ID: inv.ID, Name: inv.Name, Args: inv.Args, Result: inv.Result})
		}
		if err := s.Store.AppendToolCalls(ctx, assistantID, calls); err != nil {
			log.Printf("append tool calls for %s: %v", assistantID, err)
		}
	}()
	wg.Wait()
}

// History returns the conversation with ordered turns and tool invocations.
func (s *Service) History(ctx context.Context, user store.User, jobID string) (store.Chat, []store.Message, error) {
	job, err := s.Store.GetOwnedJob(ctx, jobID, user.OrganizationHandle)
	if err != nil {
		return store.Chat{}, nil, err
	}
	chat, err := s.Store.ChatByJob(ctx, job.ID)
	if errors.Is(err, store.ErrNotFound) {
		// No conversation yet reads as an empty one.
		return store.Chat{JobID: job.ID}, []store.Message{}, nil
	}
	if err != nil {
		return store.Chat{}, nil, err
	}
	messages, err := s.Store.ListMessages(ctx, chat.ID)
	if err != nil {
		return store.Chat{}, nil, err
	}
	return chat, messages, nil
}

// Delete removes the job's conversation and, by cascade, its turns.
func (s *Service) Delete(ctx context.Context, user store.User, jobID string) error {
	job, err := s.Store.GetOwnedJob(ctx, jobID, user.OrganizationHandle)
	if err != nil {
		return err
	}
	return s.Store.DeleteChat(ctx, job.ID)
}

// historyFor converts stored turns into agent history. An assistant turn with
// empty content is a previously aborted or still-streaming turn; replaying it
// confuses the agent, so it is excluded.
func historyFor(messages []store.Message) []agent.Message {
	out := make([]agent.Message, 0, len(messages))
	for _, msg := range messages {
		if msg.Role == "assistant" && strings.TrimSpace(msg.Content) == "" {
			continue
		}
		out = append(out, agent.Message{Role: msg.Role, Content: msg.Content})
	}
	return out
}
