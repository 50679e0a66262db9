package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// SessionStatus enumerates test session states. Transitions are monotonic:
// not-started → ongoing → finished, never backward.
type SessionStatus string

const (
	SessionStatusNotStarted SessionStatus = "not-started"
	SessionStatusOngoing    SessionStatus = "ongoing"
	SessionStatusFinished   SessionStatus = "finished"
)

// TestSession is a team's single attempt at a test. Its id is the composite
// "{team_id}-{test_id}", the natural idempotency key that guarantees at most
// one session per team per test. Other parts of the system parse these ids,
// so the format is a wire contract.
type TestSession struct {
	ID        string          `json:"id"`
	TeamID    string          `json:"team_id"`
	TestID    int             `json:"test_id"`
	Status    SessionStatus   `json:"status"`
	StartTime *time.Time      `json:"start_time,omitempty"`
	EndTime   *time.Time      `json:"end_time,omitempty"`
	// Answers is the denormalized snapshot written at finish time.
	// Audit only; the answers table stays the source of truth for scoring.
	Answers json.RawMessage `json:"answers,omitempty"`
}

// SessionID builds the deterministic session identity for a (team, test) pair.
func SessionID(teamID string, testID int) string {
	return fmt.Sprintf("%s-%d", teamID, testID)
}

// Answer is a team's answer to one question within a session. Its id is
// "{session_id}-{question_id}", so concurrent team members converge on one
// row (last write wins). Exactly one of ChoiceID/AnswerText is meaningful per
// question type; scoring reads only the type-appropriate field.
type Answer struct {
	ID         string    `json:"id"`
	SessionID  string    `json:"test_session_id"`
	TestID     int       `json:"test_id"`
	QuestionID int       `json:"question_id"`
	ChoiceID   *int      `json:"choice_id,omitempty"`
	AnswerText *string   `json:"answer_text,omitempty"`
	TeamID     string    `json:"team_id"`
	Timestamp  time.Time `json:"timestamp"`
}

// AnswerID builds the deterministic answer identity for a (session, question) pair.
func AnswerID(sessionID string, questionID int) string {
	return fmt.Sprintf("%s-%d", sessionID, questionID)
}

// Flag marks a question a participant wants to revisit. Presence-only; no
// payload semantics beyond existence.
type Flag struct {
	ID     string `json:"id"`
	TeamID string `json:"team_id"`
}

// FlagID builds the deterministic flag identity.
func FlagID(sessionID, teamID string, questionID int) string {
	return fmt.Sprintf("%s-%s-%d", sessionID, teamID, questionID)
}

// Score is the final score of a session, created exactly once after scoring.
type Score struct {
	ID        string    `json:"id"`
	TeamID    string    `json:"team_id"`
	TestID    int       `json:"test_id"`
	SessionID string    `json:"session_id"`
	Score     int       `json:"score"`
	CreatedAt time.Time `json:"created_at"`
}

// ScoreID builds the deterministic score identity.
func ScoreID(teamID string, testID int, sessionID string) string {
	return fmt.Sprintf("%s-%d-%s", teamID, testID, sessionID)
}

// RecordAnswerRequest is the payload for saving an answer.
type RecordAnswerRequest struct {
	ChoiceID   *int    `json:"choice_id" binding:"omitempty"`
	AnswerText *string `json:"answer_text" binding:"omitempty,max=5000"`
}

// SubmitSessionRequest carries the client-side answers snapshot stored on the
// session row at finish time.
type SubmitSessionRequest struct {
	Answers json.RawMessage `json:"answers" binding:"omitempty"`
}

// ForceSubmitRequest is the admin bulk force-submit payload.
type ForceSubmitRequest struct {
	SessionIDs []string `json:"session_ids" binding:"required,min=1"`
}

// ForceSubmitResult is the per-session outcome of a force submit.
type ForceSubmitResult struct {
	SessionID string `json:"session_id"`
	Success   bool   `json:"success"`
	Error     string `json:"error,omitempty"`
}
