package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// ParticipantLoginKey returns the cache key for a participant's device session
func (r *CacheKeyStruct) ParticipantLoginKey(participantID int) string {
	return fmt.Sprintf("login:%d", participantID)
}

// AttemptAnswersKey returns the cache key for an attempt's answer buffer
func (r *CacheKeyStruct) AttemptAnswersKey(attemptID string) string {
	return fmt.Sprintf("attempt:%s:answers", attemptID)
}

// SessionPayloadKey returns the cache key for a session's participant-facing payload
func (r *CacheKeyStruct) SessionPayloadKey(sessionID string) string {
	return fmt.Sprintf("session:%s:payload", sessionID)
}

// SessionAnswerKey returns the cache key for a session's answer key hash
func (r *CacheKeyStruct) SessionAnswerKey(sessionID string) string {
	return fmt.Sprintf("session:%s:key", sessionID)
}

var CacheKey = NewCacheKeyStruct()
