package repository

import (
	"context"
	"database/sql"
	"time"
)

// DBTX is the query surface shared by *sql.DB and *sql.Tx, so repositories
// can run inside a transaction.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Conversation represents a conversation row.
type Conversation struct {
	ID              string
	Title           string
	SystemPurposeID string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Message represents one transcript entry.
type Message struct {
	ID             string
	ConversationID string
	Role           string
	Text           string
	CreatedAt      time.Time
}

// Message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)
