package model

import "time"

// Participant represents a test-taker account.
type Participant struct {
	ID           int       `json:"id"`
	Username     string    `json:"username"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"`
	SectionID    int       `json:"section_id"`
	CreatedAt    time.Time `json:"created_at"`
}

// Section is a class/cohort grouping used to scope session targeting.
type Section struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// ParticipantLoginRequest is the payload for participant authentication.
type ParticipantLoginRequest struct {
	Username string `json:"username" binding:"required,min=3,max=50"`
	Password string `json:"password" binding:"required,min=4,max=128"`
}

// ParticipantLoginResponse is returned after successful participant login.
type ParticipantLoginResponse struct {
	Token       string      `json:"token"`
	Participant Participant `json:"participant"`
}
