package service

import (
	"context"
	"encoding/json"

	"github.com/findit-id/cbt-backend/internal/config"
	"github.com/redis/go-redis/v9"
)

// SessionEventType enumerates the events fanned out on a session's channel.
type SessionEventType string

const (
	EventAnswerSaved   SessionEventType = "answer_saved"
	EventAnswerCleared SessionEventType = "answer_cleared"
	EventFlagToggled   SessionEventType = "flag_toggled"
	EventSubmitted     SessionEventType = "session_submitted"
)

// SessionEvent is one message on a session's pub/sub channel. Every team
// member with the paper open receives it, including the originator.
type SessionEvent struct {
	Type       SessionEventType `json:"type"`
	SessionID  string           `json:"session_id"`
	QuestionID int              `json:"question_id,omitempty"`
	TeamID     string           `json:"team_id,omitempty"`
	Flagged    *bool            `json:"flagged,omitempty"`
}

// RedisEventPublisher publishes session events on Redis pub/sub, which fans
// them out across server instances to every subscribed connection.
type RedisEventPublisher struct {
	rdb *redis.Client
}

// NewRedisEventPublisher creates a new RedisEventPublisher.
func NewRedisEventPublisher(rdb *redis.Client) *RedisEventPublisher {
	return &RedisEventPublisher{rdb: rdb}
}

// Publish sends the event on the session's channel.
func (p *RedisEventPublisher) Publish(ctx context.Context, sessionID string, event *SessionEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return p.rdb.Publish(ctx, config.CacheKey.SessionChannel(sessionID), payload).Err()
}
