package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/nkoval/dmrelay-server/internal/store"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	public_id  TEXT NOT NULL UNIQUE,
	username   TEXT NOT NULL UNIQUE,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS messages (
	seq        INTEGER PRIMARY KEY AUTOINCREMENT,
	from_user  TEXT NOT NULL,
	to_user    TEXT NOT NULL,
	content    TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_messages_from ON messages(from_user);
CREATE INDEX IF NOT EXISTS idx_messages_to   ON messages(to_user);
`

// SQLiteStore implements store.Store for SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// New creates a new SQLite store and applies the schema.
// dbPath is the path to the SQLite database file.
func New(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// SQLite works best with a single connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// NewWithSetup creates a new SQLite store and runs a setup function
// after the schema is applied. Useful for tests to seed data.
func NewWithSetup(dbPath string, setup func(*sql.DB) error) (*SQLiteStore, error) {
	s, err := New(dbPath)
	if err != nil {
		return nil, err
	}

	if setup != nil {
		if err := setup(s.db); err != nil {
			s.db.Close()
			return nil, fmt.Errorf("setup: %w", err)
		}
	}

	return s, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ==== UserStore implementation ====

// FindOrCreateUser returns the user with the given username, creating it
// first if absent. The unique constraint on username makes concurrent
// first calls converge on a single row: a losing insert is a no-op and
// the read-back returns the winner's record.
func (s *SQLiteStore) FindOrCreateUser(ctx context.Context, username string) (*store.User, error) {
	if username == "" {
		return nil, fmt.Errorf("%w: username is required", store.ErrValidation)
	}

	query := `
		INSERT INTO users (public_id, username)
		VALUES (?, ?)
		ON CONFLICT(username) DO NOTHING
	`
	if _, err := s.db.ExecContext(ctx, query, uuid.NewString(), username); err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}

	return s.GetUserByUsername(ctx, username)
}

// GetUserByUsername retrieves a user by username.
func (s *SQLiteStore) GetUserByUsername(ctx context.Context, username string) (*store.User, error) {
	query := `
		SELECT id, public_id, username, created_at
		FROM users
		WHERE username = ?
	`
	return s.scanUser(s.db.QueryRowContext(ctx, query, username))
}

// GetUserByPublicID retrieves a user by its opaque public id.
func (s *SQLiteStore) GetUserByPublicID(ctx context.Context, publicID string) (*store.User, error) {
	query := `
		SELECT id, public_id, username, created_at
		FROM users
		WHERE public_id = ?
	`
	return s.scanUser(s.db.QueryRowContext(ctx, query, publicID))
}

// ListUsersExcluding returns every known user other than the given one.
func (s *SQLiteStore) ListUsersExcluding(ctx context.Context, username string) ([]*store.User, error) {
	query := `
		SELECT id, public_id, username, created_at
		FROM users
		WHERE username != ?
		ORDER BY username
	`
	rows, err := s.db.QueryContext(ctx, query, username)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	users := make([]*store.User, 0)
	for rows.Next() {
		var user store.User
		if err := rows.Scan(&user.ID, &user.PublicID, &user.Username, &user.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, &user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}

	return users, nil
}

func (s *SQLiteStore) scanUser(row *sql.Row) (*store.User, error) {
	var user store.User
	err := row.Scan(&user.ID, &user.PublicID, &user.Username, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user: %w", store.ErrNotFound)
		}
		return nil, fmt.Errorf("query user: %w", err)
	}

	return &user, nil
}

// ==== MessageStore implementation ====

// AppendMessage persists a message and assigns the next sequence value.
// Sequence assignment is delegated to the AUTOINCREMENT primary key, so
// values are strictly increasing and consistent with insertion order
// under concurrent appends.
func (s *SQLiteStore) AppendMessage(ctx context.Context, from, to, content string) (*store.Message, error) {
	if from == "" {
		return nil, fmt.Errorf("%w: from is required", store.ErrValidation)
	}
	if to == "" {
		return nil, fmt.Errorf("%w: to is required", store.ErrValidation)
	}
	if content == "" {
		return nil, fmt.Errorf("%w: content is required", store.ErrValidation)
	}

	query := `
		INSERT INTO messages (from_user, to_user, content)
		VALUES (?, ?, ?)
	`
	result, err := s.db.ExecContext(ctx, query, from, to, content)
	if err != nil {
		return nil, fmt.Errorf("insert message: %w", err)
	}

	seq, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("get last insert id: %w", err)
	}

	return s.getMessage(ctx, seq)
}

// History returns all messages between the two usernames in either
// direction, ordered by sequence ascending.
func (s *SQLiteStore) History(ctx context.Context, userA, userB string) ([]*store.Message, error) {
	query := `
		SELECT seq, from_user, to_user, content, created_at
		FROM messages
		WHERE (from_user = ? AND to_user = ?)
		   OR (from_user = ? AND to_user = ?)
		ORDER BY seq ASC
	`
	rows, err := s.db.QueryContext(ctx, query, userA, userB, userB, userA)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	messages := make([]*store.Message, 0)
	for rows.Next() {
		var msg store.Message
		if err := rows.Scan(&msg.Seq, &msg.From, &msg.To, &msg.Content, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		messages = append(messages, &msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}

	return messages, nil
}

// CounterpartiesOf returns the distinct set of other usernames appearing
// opposite the given one across all messages.
func (s *SQLiteStore) CounterpartiesOf(ctx context.Context, username string) ([]string, error) {
	query := `
		SELECT DISTINCT CASE WHEN from_user = ? THEN to_user ELSE from_user END
		FROM messages
		WHERE (from_user = ? OR to_user = ?) AND from_user != to_user
	`
	rows, err := s.db.QueryContext(ctx, query, username, username, username)
	if err != nil {
		return nil, fmt.Errorf("query counterparties: %w", err)
	}
	defer rows.Close()

	names := make([]string, 0)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan counterparty: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate counterparties: %w", err)
	}

	return names, nil
}

func (s *SQLiteStore) getMessage(ctx context.Context, seq int64) (*store.Message, error) {
	query := `
		SELECT seq, from_user, to_user, content, created_at
		FROM messages
		WHERE seq = ?
	`
	var msg store.Message
	err := s.db.QueryRowContext(ctx, query, seq).Scan(
		&msg.Seq,
		&msg.From,
		&msg.To,
		&msg.Content,
		&msg.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("query message: %w", err)
	}

	return &msg, nil
}
