package chat

import "time"

// Session is one named conversation owned by a user. The turn sequence is
// append-only; UpdatedAt drives recency ordering in chat listings.
type Session struct {
	SessionID string    `json:"sessionId"`
	UserID    string    `json:"userId"`
	Title     string    `json:"title"`
	Turns     []Turn    `json:"conversation"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// SessionSummary is the listing projection of a session.
type SessionSummary struct {
	SessionID string `json:"sessionId"`
	Title     string `json:"title"`
}
