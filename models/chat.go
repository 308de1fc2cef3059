// models/chat.go
package models

import "time"

// ChatRequest is the inbound chat payload. The session token is optional;
// an absent or invalid token starts a new session.
type ChatRequest struct {
	Message      string            `json:"message" binding:"required,min=1,max=1000"`
	SessionToken string            `json:"session_token,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

// AnswerPayload is the part of a chat response that is safe to memoize:
// everything except the session token, which must be minted per request.
type AnswerPayload struct {
	Answer      string  `json:"answer"`
	Confidence  float64 `json:"confidence"`
	NeedsHuman  bool    `json:"needs_human"`
	ContextUsed bool    `json:"context_used"`
}

type ChatResponse struct {
	Answer       string    `json:"answer"`
	Confidence   float64   `json:"confidence"`
	NeedsHuman   bool      `json:"needs_human"`
	ContextUsed  bool      `json:"context_used"`
	SessionToken string    `json:"session_token"`
	IsNewSession bool      `json:"is_new_session"`
	Timestamp    time.Time `json:"timestamp"`
}

type ClearRequest struct {
	SessionToken string `json:"session_token" binding:"required"`
}

type ClearResponse struct {
	SessionToken string `json:"session_token"`
	Cleared      bool   `json:"cleared"`
}
