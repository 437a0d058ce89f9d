package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hireloop/hireloop/internal/idgen"
)

type Chat struct {
	ID        string    `json:"id"`
	JobID     string    `json:"job_id"`
	Title     string    `json:"title,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Message struct {
	ID        string     `json:"id"`
	ChatID    string     `json:"chat_id"`
	Role      string     `json:"role"`
	Content   string     `json:"content"`
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

type Chunk struct {
	ID            string          `json:"id"`
	ChatMessageID string          `json:"chat_message_id"`
	Seq           int             `json:"seq"`
	Chunk         json.RawMessage `json:"chunk"`
	CreatedAt     time.Time       `json:"created_at"`
}

type ToolCall struct {
	ID            string         `json:"id"`
	ChatMessageID string         `json:"chat_message_id"`
	Name          string         `json:"name"`
	Args          map[string]any `json:"args,omitempty"`
	Result        map[string]any `json:"result,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
}

// GetOrCreateChat returns the job's conversation, creating it on first use.
// A concurrent first turn may win the insert; the loser re-queries and
// proceeds with the existing row.
func (s *Store) GetOrCreateChat(ctx context.Context, jobID, title string) (Chat, error) {
	chat, err := s.ChatByJob(ctx, jobID)
	if err == nil {
		return chat, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return Chat{}, err
	}

	id := idgen.New()
	now := time.Now().UTC()
	_, err = s.db.ExecContext(ctx, `INSERT INTO chats (id, job_id, title, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		id, jobID, nullString(title), formatTime(now), formatTime(now))
	if err != nil {
		if isUniqueViolation(err) {
			return s.ChatByJob(ctx, jobID)
		}
		return Chat{}, fmt.Errorf("insert chat: %w", err)
	}
	return Chat{ID: id, JobID: jobID, Title: title, CreatedAt: now, UpdatedAt: now}, nil
}

func (s *Store) ChatByJob(ctx context.Context, jobID string) (Chat, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, job_id, title, created_at, updated_at FROM chats WHERE job_id = ?`, jobID)

	var chat Chat
	var title sql.NullString
	var createdAtStr, updatedAtStr string
	if err := row.Scan(&chat.ID, &chat.JobID, &title, &createdAtStr, &updatedAtStr); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Chat{}, fmt.Errorf("chat for job %s: %w", jobID, ErrNotFound)
		}
		return Chat{}, fmt.Errorf("load chat: %w", err)
	}
	chat.Title = title.String
	chat.CreatedAt = parseTime(createdAtStr)
	chat.UpdatedAt = parseTime(updatedAtStr)
	return chat, nil
}

func (s *Store) DeleteChat(ctx context.Context, jobID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM chats WHERE job_id = ?`, jobID); err != nil {
		return fmt.Errorf("delete chat: %w", err)
	}
	return nil
}

type MessageInput struct {
	ID      string
	ChatID  string
	Role    string
	Content string
}

// CreateMessage appends one turn. The id is caller-supplied so a retried
// write of the same turn is a no-op.
func (s *Store) CreateMessage(ctx context.Context, input MessageInput) (Message, error) {
	id := input.ID
	if id == "" {
		id = idgen.New()
	}
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx, `INSERT OR IGNORE INTO chat_messages (id, chat_id, role, content, created_at) VALUES (?, ?, ?, ?, ?)`,
		id, input.ChatID, input.Role, nullString(input.Content), formatTime(now))
	if err != nil {
		return Message{}, fmt.Errorf("insert message: %w", err)
	}
	return Message{ID: id, ChatID: input.ChatID, Role: input.Role, Content: input.Content, CreatedAt: now}, nil
}

// ListMessages returns the chat's turns in creation order with their tool
// invocations attached.
func (s *Store) ListMessages(ctx context.Context, chatID string) ([]Message, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, chat_id, role, content, created_at FROM chat_messages
		WHERE chat_id = ? ORDER BY created_at ASC, id ASC
	`, chatID)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	var out []Message
	byID := map[string]int{}
	for rows.Next() {
		var msg Message
		var content sql.NullString
		var createdAtStr string
		if err := rows.Scan(&msg.ID, &msg.ChatID, &msg.Role, &content, &createdAtStr); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		msg.Content = content.String
		msg.CreatedAt = parseTime(createdAtStr)
		byID[msg.ID] = len(out)
		out = append(out, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}
	if len(out) == 0 {
		return out, nil
	}

	callRows, err := s.db.QueryContext(ctx, `
		SELECT t.id, t.chat_message_id, t.name, t.args, t.result, t.created_at
		FROM tool_calls t JOIN chat_messages m ON m.id = t.chat_message_id
		WHERE m.chat_id = ? ORDER BY t.created_at ASC
	`, chatID)
	if err != nil {
		return nil, fmt.Errorf("list tool calls: %w", err)
	}
	defer callRows.Close()

	for callRows.Next() {
		call, err := scanToolCall(callRows)
		if err != nil {
			return nil, err
		}
		if idx, ok := byID[call.ChatMessageID]; ok {
			out[idx].ToolCalls = append(out[idx].ToolCalls, call)
		}
	}
	if err := callRows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tool calls: %w", err)
	}
	return out, nil
}

// AppendChunks stores the raw events of one assistant turn. Rows are keyed by
// (message, seq) so a replayed write cannot duplicate them.
func (s *Store) AppendChunks(ctx context.Context, messageID string, chunks []json.RawMessage) error {
	now := time.Now().UTC()
	for seq, raw := range chunks {
		id := idgen.New()
		_, err := s.db.ExecContext(ctx, `INSERT OR IGNORE INTO message_chunks (id, chat_message_id, seq, chunk, created_at) VALUES (?, ?, ?, ?, ?)`,
			id, messageID, seq, string(raw), formatTime(now))
		if err != nil {
			return fmt.Errorf("insert chunk %d: %w", seq, err)
		}
	}
	return nil
}

func (s *Store) ListChunks(ctx context.Context, messageID string) ([]Chunk, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, chat_message_id, seq, chunk, created_at FROM message_chunks
		WHERE chat_message_id = ? ORDER BY seq ASC
	`, messageID)
	if err != nil {
		return nil, fmt.Errorf("list chunks: %w", err)
	}
	defer rows.Close()

	var out []Chunk
	for rows.Next() {
		var chunk Chunk
		var raw sql.NullString
		var createdAtStr string
		if err := rows.Scan(&chunk.ID, &chunk.ChatMessageID, &chunk.Seq, &raw, &createdAtStr); err != nil {
			return nil, fmt.Errorf("scan chunk: %w", err)
		}
		if raw.Valid {
			chunk.Chunk = json.RawMessage(raw.String)
		}
		chunk.CreatedAt = parseTime(createdAtStr)
		out = append(out, chunk)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chunks: %w", err)
	}
	return out, nil
}

// AppendToolCalls stores the turn's completed invocations, keyed by the
// correlator-assigned invocation id.
func (s *Store) AppendToolCalls(ctx context.Context, messageID string, calls []ToolCall) error {
	now := time.Now().UTC()
	for _, call := range calls {
		argsJSON, err := encodeJSON(call.Args)
		if err != nil {
			return fmt.Errorf("encode args: %w", err)
		}
		resultJSON, err := encodeJSON(call.Result)
		if err != nil {
			return fmt.Errorf("encode result: %w", err)
		}
		_, err = s.db.ExecContext(ctx, `INSERT OR IGNORE INTO tool_calls (id, chat_message_id, name, args, result, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
			call.ID, messageID, call.Name, nullString(argsJSON), nullString(resultJSON), formatTime(now))
		if err != nil {
			return fmt.Errorf("insert tool call %s: %w", call.ID, err)
		}
	}
	return nil
}

func scanToolCall(rows *sql.Rows) (ToolCall, error) {
	var call ToolCall
	var args, result sql.NullString
	var createdAtStr string
	if err := rows.Scan(&call.ID, &call.ChatMessageID, &call.Name, &args, &result, &createdAtStr); err != nil {
		return ToolCall{}, fmt.Errorf("scan tool call: %w", err)
	}
	call.Args = decodeJSONMap(args.String)
	call.Result = decodeJSONMap(result.String)
	call.CreatedAt = parseTime(createdAtStr)
	return call, nil
}
