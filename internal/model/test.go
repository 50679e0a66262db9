package model

import (
	"time"
)

// Test represents a timed test that teams take together.
type Test struct {
	ID              int        `json:"id"`
	Slug            string     `json:"slug"`
	Title           string     `json:"title"`
	Description     string     `json:"description"`
	DurationMinutes int        `json:"duration"`
	StartTime       *time.Time `json:"start_time,omitempty"`
	EndTime         *time.Time `json:"end_time,omitempty"`
	PasswordHash    *string    `json:"-"`
	CreatedAt       time.Time  `json:"created_at"`
}

// EffectiveEndTime resolves the authoritative end of the test window.
// An explicit end_time wins; otherwise it is derived from start + duration.
func (t *Test) EffectiveEndTime() time.Time {
	if t.EndTime != nil {
		return *t.EndTime
	}
	if t.StartTime != nil {
		return t.StartTime.Add(time.Duration(t.DurationMinutes) * time.Minute)
	}
	return time.Time{}
}

// CreateTestRequest is the payload for creating a new test.
type CreateTestRequest struct {
	Slug            string     `json:"slug" binding:"required,min=2,max=64"`
	Title           string     `json:"title" binding:"required,min=1,max=255"`
	Description     string     `json:"description" binding:"max=5000"`
	DurationMinutes int        `json:"duration" binding:"required,min=1,max=1440"`
	StartTime       *time.Time `json:"start_time" binding:"omitempty"`
	EndTime         *time.Time `json:"end_time" binding:"omitempty,gtfield=StartTime"`
}

// UpdateTestRequest is the payload for updating an existing test.
type UpdateTestRequest struct {
	Title           string     `json:"title" binding:"omitempty,min=1,max=255"`
	Description     *string    `json:"description" binding:"omitempty,max=5000"`
	DurationMinutes int        `json:"duration" binding:"omitempty,min=1,max=1440"`
	StartTime       *time.Time `json:"start_time" binding:"omitempty"`
	EndTime         *time.Time `json:"end_time" binding:"omitempty"`
}

// SetTestPasswordRequest sets or replaces the entry password of a test.
type SetTestPasswordRequest struct {
	Password string `json:"password" binding:"required,min=4,max=72"`
}

// VerifyTestPasswordRequest is the payload for the entry password gate.
type VerifyTestPasswordRequest struct {
	Password string `json:"password" binding:"required"`
}
