package websocket

import "encoding/json"

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionSubmit Action = "submit"
	ActionPing   Action = "ping"
)

// RequestEnvelope is used to peek at the action before full parsing.
type RequestEnvelope struct {
	Action Action `json:"action"`
}

// SubmitRequest is sent by the client to finish the session, typically when
// its local countdown expires.
type SubmitRequest struct {
	Action Action `json:"action"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventError     Event = "error"
	EventTick      Event = "tick"
	EventSubmitted Event = "submitted"
	EventSession   Event = "session"
	EventPong      Event = "pong"
)

// TickResponse carries the countdown's remaining seconds, pushed once per
// second while the session runs.
type TickResponse struct {
	Event     Event `json:"event"`
	Remaining int64 `json:"remaining"`
}

// SubmittedResponse announces that the session has been finished, whether by
// this member, a teammate, expiry, or an admin.
type SubmittedResponse struct {
	Event     Event  `json:"event"`
	SessionID string `json:"session_id"`
}

// SessionResponse relays an answer or flag event from a teammate so every
// open paper stays in sync.
type SessionResponse struct {
	Event   Event           `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Error string `json:"error"`
}

type PongResponse struct {
	Event Event `json:"event"`
}
