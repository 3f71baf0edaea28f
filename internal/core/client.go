package core

// Client is one live connection handle bound to a username. A username
// may be bound to several clients at once (multi-device); the hub
// delivers to all of them.
type Client struct {
	ID       string
	Username string
	Commands chan *Command
	Events   chan *Event
}

// NewClient constructs a client with initialized channels. The username
// must already be verified by the identity service.
func NewClient(id, username string) *Client {
	return &Client{
		ID:       id,
		Username: username,
		Commands: make(chan *Command, 8),
		Events:   make(chan *Event, 8),
	}
}
