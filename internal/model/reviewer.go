package model

import "time"

// Reviewer is a human grader with access to the essay grading surface.
type Reviewer struct {
	ID           int       `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// ReviewerLoginRequest is the payload for reviewer authentication.
type ReviewerLoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=4,max=128"`
}

// ReviewerLoginResponse is returned after successful reviewer login.
type ReviewerLoginResponse struct {
	Token    string   `json:"token"`
	Reviewer Reviewer `json:"reviewer"`
}
