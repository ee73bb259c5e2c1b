package repository

import (
	"context"
	"database/sql"
)

// MessageRepo handles conversation transcripts.
type MessageRepo struct {
	db DBTX
}

func NewMessageRepo(db DBTX) *MessageRepo { return &MessageRepo{db: db} }

func (r *MessageRepo) Add(ctx context.Context, m Message) error {
	_, err := r.db.ExecContext(ctx, `
	INSERT INTO messages(id, conversation_id, role, text, created_at)
	VALUES (?, ?, ?, ?, ?);
	`, m.ID, m.ConversationID, m.Role, m.Text, m.CreatedAt)
	return err
}

func (r *MessageRepo) ListByConversation(ctx context.Context, conversationID string) ([]Message, error) {
	rows, err := r.db.QueryContext(ctx, `
	SELECT id, conversation_id, role, text, created_at
	FROM messages WHERE conversation_id = ?
	ORDER BY created_at, rowid`, conversationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.Role, &m.Text, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *MessageRepo) CountByConversation(ctx context.Context, conversationID string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM messages WHERE conversation_id = ?`, conversationID).Scan(&n)
	return n, err
}

func (r *MessageRepo) DeleteByConversation(ctx context.Context, conversationID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM messages WHERE conversation_id = ?`, conversationID)
	return err
}
