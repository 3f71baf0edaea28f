package store

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrValidation is returned when a write carries an empty required field.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound is returned when a requested user does not exist.
	ErrNotFound = errors.New("not found")
)

// User represents a registered participant.
type User struct {
	ID        int64
	PublicID  string // opaque external-safe handle, distinct from Username
	Username  string
	CreatedAt time.Time
}

// Message represents a persisted direct message between two usernames.
// Seq is assigned at persistence time and is strictly increasing in
// insertion order; it drives history ordering, not identity.
type Message struct {
	Seq       int64
	From      string
	To        string
	Content   string
	CreatedAt time.Time
}

// UserStore handles user persistence.
type UserStore interface {
	// FindOrCreateUser returns the existing user with the given username,
	// creating it first if absent. Concurrent first calls for the same
	// username never produce a duplicate record.
	FindOrCreateUser(ctx context.Context, username string) (*User, error)

	// GetUserByUsername retrieves a user by username.
	// Returns ErrNotFound when absent.
	GetUserByUsername(ctx context.Context, username string) (*User, error)

	// GetUserByPublicID retrieves a user by its opaque public id.
	// Returns ErrNotFound when absent.
	GetUserByPublicID(ctx context.Context, publicID string) (*User, error)

	// ListUsersExcluding returns every known user other than the given one.
	ListUsersExcluding(ctx context.Context, username string) ([]*User, error)
}

// MessageStore handles message persistence. Append is the single write
// path; messages are never updated or deleted.
type MessageStore interface {
	// AppendMessage persists a message and assigns its sequence value.
	// Empty from, to, or content fails with ErrValidation.
	AppendMessage(ctx context.Context, from, to, content string) (*Message, error)

	// History returns all messages between the two usernames in either
	// direction, ordered by sequence ascending.
	History(ctx context.Context, userA, userB string) ([]*Message, error)

	// CounterpartiesOf returns the distinct set of other usernames
	// appearing opposite the given one across all messages. A user with
	// no messages yields an empty slice.
	CounterpartiesOf(ctx context.Context, username string) ([]string, error)
}

// Store aggregates all storage interfaces.
type Store interface {
	UserStore
	MessageStore

	// Close closes the underlying database connection.
	Close() error
}
