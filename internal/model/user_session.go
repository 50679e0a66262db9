package model

import "time"

// UserSession is one login event of a member. At most one row per user may be
// active at any time; each successful login deactivates all prior rows.
type UserSession struct {
	ID           int64     `json:"id"`
	UserID       string    `json:"user_id"`
	SessionToken string    `json:"session_token"`
	DeviceInfo   string    `json:"device_info"`
	IP           string    `json:"ip"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
}

// UnfairnessCategory classifies unfairness report entries.
type UnfairnessCategory string

const (
	UnfairnessSessionRevoked UnfairnessCategory = "session_revoked"
)

// UnfairnessReport is an append-only audit entry written when a previously
// valid auth session is found revoked, preserving prior session details for
// dispute resolution.
type UnfairnessReport struct {
	ID            int64              `json:"id"`
	UserID        string             `json:"user_id"`
	Category      UnfairnessCategory `json:"category"`
	Detail        string             `json:"detail"`
	TestSessionID *string            `json:"test_session_id,omitempty"`
	CreatedAt     time.Time          `json:"created_at"`
}
