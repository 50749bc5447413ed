package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Message is one persisted conversation turn. Only user and assistant
// text turns are retained; tool-call plumbing stays within a request.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// SessionInfo summarizes a session for the inspection endpoint.
type SessionInfo struct {
	SessionID    string    `json:"session_id"`
	MessageCount int       `json:"message_count"`
	LastMessages []Message `json:"last_messages"`
}

// SessionStore keeps per-session conversation history in Redis as a
// sliding window: the newest `window` messages win, older ones are
// dropped. Storing sessions out of process also removes the shared
// in-memory map that made concurrent chats for one session racy.
type SessionStore struct {
	rdb    *redis.Client
	ttl    time.Duration
	window int
}

func NewSessionStore(rdb *redis.Client, ttl time.Duration, window int) *SessionStore {
	if window <= 0 {
		window = 20
	}
	return &SessionStore{
		rdb:    rdb,
		ttl:    ttl,
		window: window,
	}
}

func sessionKey(sessionID string) string {
	return "session:" + sessionID
}

// History returns the retained messages for a session, oldest first.
// An unknown session yields an empty history.
func (s *SessionStore) History(ctx context.Context, sessionID string) ([]Message, error) {
	data, err := s.rdb.Get(ctx, sessionKey(sessionID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("load session history: %w", err)
	}

	var history []Message
	if err := json.Unmarshal(data, &history); err != nil {
		return nil, fmt.Errorf("decode session history: %w", err)
	}
	return history, nil
}

// AppendTurn records one completed exchange: the user message first,
// then the assistant's final reply. The same rule applies whether or
// not tools ran, and nothing is written for a failed turn.
func (s *SessionStore) AppendTurn(ctx context.Context, sessionID string, user, assistant Message) error {
	history, err := s.History(ctx, sessionID)
	if err != nil {
		return err
	}

	history = append(history, user, assistant)
	if len(history) > s.window {
		history = history[len(history)-s.window:]
	}

	data, err := json.Marshal(history)
	if err != nil {
		return fmt.Errorf("encode session history: %w", err)
	}
	if err := s.rdb.Set(ctx, sessionKey(sessionID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("persist session history: %w", err)
	}
	return nil
}

// Reset drops a session's history.
func (s *SessionStore) Reset(ctx context.Context, sessionID string) error {
	if err := s.rdb.Del(ctx, sessionKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("reset session: %w", err)
	}
	return nil
}

// Info reports the message count and the last five messages.
func (s *SessionStore) Info(ctx context.Context, sessionID string) (*SessionInfo, error) {
	history, err := s.History(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	last := history
	if len(last) > 5 {
		last = last[len(last)-5:]
	}
	if last == nil {
		last = []Message{}
	}

	return &SessionInfo{
		SessionID:    sessionID,
		MessageCount: len(history),
		LastMessages: last,
	}, nil
}
