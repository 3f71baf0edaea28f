package core

// CommandKind describes what the client wants to do.
type CommandKind int

const (
	// CommandSendDirect delivers a direct message to another user.
	CommandSendDirect CommandKind = iota
)

// Command represents an action requested by a client. The sender is
// always resolved from the connection's bound identity, never from the
// command payload.
type Command struct {
	Kind    CommandKind
	To      string
	Content string
}
