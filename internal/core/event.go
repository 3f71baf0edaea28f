package core

// EventKind is a notification the core emits to clients.
type EventKind int

const (
	// EventDelivered carries a persisted message to a live connection.
	EventDelivered EventKind = iota
	// EventError notifies the originating connection about a domain error.
	EventError
)

// Event is sent to clients to describe what happened in the system.
type Event struct {
	Kind    EventKind
	Message Message
	Error   *CoreError
}
