package events

import "time"

// EventType identifies auth lifecycle events.
type EventType string

const (
	UserRegistered EventType = "user.registered"
	UserLoggedIn   EventType = "user.logged_in"
	UserLoggedOut  EventType = "user.logged_out"
)

// Event carries auth lifecycle data to subscribers.
type Event struct {
	ID         string
	Type       EventType
	UserID     string
	Email      string
	OccurredAt time.Time
}
