package chat

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hireloop/hireloop/internal/agent"
	"github.com/hireloop/hireloop/internal/realtime"
	"github.com/hireloop/hireloop/internal/store"
	"github.com/hireloop/hireloop/internal/testutil"
)

type fakeStream struct {
	ch  chan agent.Event
	err error
}

func newFakeStream(events []agent.Event, err error) *fakeStream {
	ch := make(chan agent.Event, len(events))
	for _, e := range events {
		ch <- e
	}
	close(ch)
	return &fakeStream{ch: ch, err: err}
}

func (f *fakeStream) Events() <-chan agent.Event { return f.ch }
func (f *fakeStream) Err() error                 { return f.err }

type fakeEngine struct {
	events      []agent.Event
	streamErr   error
	invokeErr   error
	lastHistory []agent.Message
}

func (f *fakeEngine) StreamTurn(_ context.Context, _ store.Job, history []agent.Message) (agent.Stream, error) {
	f.lastHistory = history
	if f.invokeErr != nil {
		return nil, f.invokeErr
	}
	return newFakeStream(f.events, f.streamErr), nil
}

func newTestService(t *testing.T, engine Engine) (*Service, *store.Store, func()) {
	t.Helper()
	db, closeFn := testutil.OpenTestDB(t)
	st := store.NewStore(db)
	svc := &Service{Store: st, Hub: realtime.NewHub(), Engine: engine}
	return svc, st, closeFn
}

func seedJobAndUser(t *testing.T, st *store.Store) (store.Job, store.User) {
	t.Helper()
	ctx := context.Background()
	if _, err := st.CreateOrganization(ctx, "acme", "Acme"); err != nil {
		t.Fatalf("create org: %v", err)
	}
	user, err := st.CreateUser(ctx, "Recruiter", "r@acme.test", "acme")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	job, err := st.CreateJob(ctx, store.JobInput{
		Handle:                  "backend-eng",
		OwnerOrganizationHandle: "acme",
		Title:                   "Backend Engineer",
		Description:             "Build services",
	})
	if err != nil {
		t.Fatalf("create job: %v", err)
	}
	return job, user
}

func TestSendMessageFullTurn(t *testing.T) {
	engine := &fakeEngine{events: []agent.Event{
		{Kind: agent.KindToolCall, ToolCallID: "1", ToolName: "search", Args: map[string]any{"q": "go"}},
		{Kind: agent.KindTextDelta, TextDelta: "Hi"},
		{Kind: agent.KindToolResult, ToolCallID: "1", Result: map[string]any{"ok": true}},
		{Kind: agent.KindTextDelta, TextDelta: " there"},
	}}
	svc, st, closeFn := newTestService(t, engine)
	defer closeFn()
	ctx := context.Background()
	job, user := seedJobAndUser(t, st)

	conn := svc.Hub.Register(user.ID)
	defer svc.Hub.Unregister(conn)

	response, err := svc.SendMessage(ctx, user, job.ID, "find candidates")
	if err != nil {
		t.Fatalf("send message: %v", err)
	}
	if response != "Hi there" {
		t.Fatalf("response = %q, want %q", response, "Hi there")
	}

	chat, err := st.ChatByJob(ctx, job.ID)
	if err != nil {
		t.Fatalf("chat by job: %v", err)
	}
	messages, err := st.ListMessages(ctx, chat.ID)
	if err != nil {
		t.Fatalf("list messages: %v", err)
	}
	if len(messages) != 2 {
		t.Fatalf("expected user+assistant turns, got %d", len(messages))
	}
	assistant := messages[1]
	if assistant.Role != "assistant" || assistant.Content != "Hi there" {
		t.Fatalf("unexpected assistant turn: %+v", assistant)
	}
	if len(assistant.ToolCalls) != 1 {
		t.Fatalf("expected 1 tool call, got %d", len(assistant.ToolCalls))
	}
	if assistant.ToolCalls[0].ID != "1" || assistant.ToolCalls[0].Name != "search" {
		t.Fatalf("unexpected tool call: %+v", assistant.ToolCalls[0])
	}

	chunks, err := st.ListChunks(ctx, assistant.ID)
	if err != nil {
		t.Fatalf("list chunks: %v", err)
	}
	if len(chunks) != 4 {
		t.Fatalf("expected 4 stored chunks, got %d", len(chunks))
	}

	// started, 4 chunks, complete, in exact order with complete last.
	var got []string
	for i := 0; i < 6; i++ {
		select {
		case env := <-conn.Recv():
			got = append(got, env.MessageType)
		case <-time.After(time.Second):
			t.Fatalf("timeout waiting for notification %d (have %v)", i, got)
		}
	}
	if got[0] != realtime.Topic(job.ID, realtime.KindMessageStarted) {
		t.Fatalf("first notification = %s", got[0])
	}
	for i := 1; i <= 4; i++ {
		if got[i] != realtime.Topic(job.ID, realtime.KindMessageChunk) {
			t.Fatalf("notification %d = %s, want chunk", i, got[i])
		}
	}
	if got[5] != realtime.Topic(job.ID, realtime.KindMessageComplete) {
		t.Fatalf("last notification = %s, want complete", got[5])
	}
}

func TestSendMessageExcludesEmptyAssistantHistory(t *testing.T) {
	engine := &fakeEngine{events: []agent.Event{{Kind: agent.KindTextDelta, TextDelta: "ok"}}}
	svc, st, closeFn := newTestService(t, engine)
	defer closeFn()
	ctx := context.Background()
	job, user := seedJobAndUser(t, st)

	chat, err := st.GetOrCreateChat(ctx, job.ID, "Chat")
	if err != nil {
		t.Fatalf("create chat: %v", err)
	}
	if _, err := st.CreateMessage(ctx, store.MessageInput{ChatID: chat.ID, Role: "user", Content: "earlier"}); err != nil {
		t.Fatalf("seed user turn: %v", err)
	}
	// An aborted turn left an empty assistant row behind.
	if _, err := st.CreateMessage(ctx, store.MessageInput{ChatID: chat.ID, Role: "assistant", Content: ""}); err != nil {
		t.Fatalf("seed empty assistant turn: %v", err)
	}

	if _, err := svc.SendMessage(ctx, user, job.ID, "again"); err != nil {
		t.Fatalf("send message: %v", err)
	}

	for _, msg := range engine.lastHistory {
		if msg.Role == "assistant" && msg.Content == "" {
			t.Fatalf("empty assistant turn leaked into history: %+v", engine.lastHistory)
		}
	}
	if len(engine.lastHistory) != 2 {
		t.Fatalf("expected 2 history turns (earlier user + new user), got %d", len(engine.lastHistory))
	}
}

func TestSendMessageErrorEventDoesNotStopStream(t *testing.T) {
	engine := &fakeEngine{events: []agent.Event{
		{Kind: agent.KindTextDelta, TextDelta: "a"},
		{Kind: agent.KindError, Error: "upstream hiccup"},
		{Kind: agent.KindTextDelta, TextDelta: "b"},
	}}
	svc, st, closeFn := newTestService(t, engine)
	defer closeFn()
	ctx := context.Background()
	job, user := seedJobAndUser(t, st)

	response, err := svc.SendMessage(ctx, user, job.ID, "hello")
	if err != nil {
		t.Fatalf("send message: %v", err)
	}
	if response != "ab" {
		t.Fatalf("response = %q, want %q", response, "ab")
	}
}

func TestSendMessageStreamFailureLeavesUserTurn(t *testing.T) {
	engine := &fakeEngine{
		events:    []agent.Event{{Kind: agent.KindTextDelta, TextDelta: "partial"}},
		streamErr: errors.New("provider exploded"),
	}
	svc, st, closeFn := newTestService(t, engine)
	defer closeFn()
	ctx := context.Background()
	job, user := seedJobAndUser(t, st)

	if _, err := svc.SendMessage(ctx, user, job.ID, "hello"); err == nil {
		t.Fatalf("expected error from failed stream")
	}

	chat, err := st.ChatByJob(ctx, job.ID)
	if err != nil {
		t.Fatalf("chat by job: %v", err)
	}
	messages, err := st.ListMessages(ctx, chat.ID)
	if err != nil {
		t.Fatalf("list messages: %v", err)
	}
	if len(messages) != 1 || messages[0].Role != "user" {
		t.Fatalf("expected only the user turn to survive, got %+v", messages)
	}
}

func TestSendMessageUnknownJob(t *testing.T) {
	svc, st, closeFn := newTestService(t, &fakeEngine{})
	defer closeFn()
	_, user := seedJobAndUser(t, st)

	_, err := svc.SendMessage(context.Background(), user, "missing", "hello")
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSendMessageForeignJobForbidden(t *testing.T) {
	svc, st, closeFn := newTestService(t, &fakeEngine{})
	defer closeFn()
	ctx := context.Background()
	job, _ := seedJobAndUser(t, st)

	if _, err := st.CreateOrganization(ctx, "rival", "Rival"); err != nil {
		t.Fatalf("create org: %v", err)
	}
	outsider, err := st.CreateUser(ctx, "Outsider", "o@rival.test", "rival")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}

	_, sendErr := svc.SendMessage(ctx, outsider, job.ID, "hello")
	if !errors.Is(sendErr, store.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", sendErr)
	}
}

func TestDeleteChatCascades(t *testing.T) {
	engine := &fakeEngine{events: []agent.Event{{Kind: agent.KindTextDelta, TextDelta: "ok"}}}
	svc, st, closeFn := newTestService(t, engine)
	defer closeFn()
	ctx := context.Background()
	job, user := seedJobAndUser(t, st)

	if _, err := svc.SendMessage(ctx, user, job.ID, "hello"); err != nil {
		t.Fatalf("send message: %v", err)
	}
	if err := svc.Delete(ctx, user, job.ID); err != nil {
		t.Fatalf("delete chat: %v", err)
	}
	if _, err := st.ChatByJob(ctx, job.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected chat gone, got %v", err)
	}
}
