package domain

import "time"

// Notice is the most recent session-wide error shown to the operator.
type Notice struct {
	Message  string    `json:"message"`
	RaisedAt time.Time `json:"raised_at"`
}
