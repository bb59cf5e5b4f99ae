package chat

import "time"

// Senders recorded in the turn log.
const (
	SenderUser = "user"
	SenderBot  = "bot"
)

// Turn is a single immutable message in a session's transcript. The
// timestamp is assigned by the store at write time, never by the caller.
type Turn struct {
	Sender    string    `json:"sender"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}
