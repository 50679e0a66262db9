package model

import "time"

// Team is the exam identity. Members authenticate individually but all exam
// state (sessions, answers, scores) is keyed on the team.
type Team struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Member belongs to exactly one team.
type Member struct {
	ID             int     `json:"id"`
	TeamID         string  `json:"team_id"`
	Email          string  `json:"email"`
	DisplayName    string  `json:"display_name"`
	HashedPassword *string `json:"-"`
	Salt           *string `json:"-"`
}

// SignInRequest is the member/admin login payload.
type SignInRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}
