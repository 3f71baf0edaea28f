package core

import "time"

// Message is the domain model for a delivered direct message.
type Message struct {
	Seq       int64
	From      string
	To        string
	Content   string
	CreatedAt time.Time
}
