package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jask/personachat/internal/database"
)

// ConversationRepo handles conversations.
type ConversationRepo struct {
	db DBTX
}

func NewConversationRepo(db DBTX) *ConversationRepo { return &ConversationRepo{db: db} }

func (r *ConversationRepo) Upsert(ctx context.Context, c Conversation) error {
	_, err := r.db.ExecContext(ctx, `
	INSERT INTO conversations(id, title, system_purpose_id, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
	 title=excluded.title,
	 system_purpose_id=excluded.system_purpose_id,
	 updated_at=excluded.updated_at;
	`, c.ID, c.Title, c.SystemPurposeID, c.CreatedAt, c.UpdatedAt)
	return err
}

// Get returns nil, nil when the conversation does not exist.
func (r *ConversationRepo) Get(ctx context.Context, id string) (*Conversation, error) {
	row := r.db.QueryRowContext(ctx, `SELECT id, title, system_purpose_id, created_at, updated_at FROM conversations WHERE id = ?`, id)
	var c Conversation
	if err := row.Scan(&c.ID, &c.Title, &c.SystemPurposeID, &c.CreatedAt, &c.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &c, nil
}

func (r *ConversationRepo) List(ctx context.Context) ([]Conversation, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, title, system_purpose_id, created_at, updated_at FROM conversations ORDER BY created_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Conversation
	for rows.Next() {
		var c Conversation
		if err := rows.Scan(&c.ID, &c.Title, &c.SystemPurposeID, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *ConversationRepo) SetPurpose(ctx context.Context, id, purposeID string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE conversations SET system_purpose_id = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`, purposeID, id)
	if err != nil {
		return err
	}
	return expectOne(res)
}

// SetPurposes rebinds every listed conversation to purposeID. Either all of
// them change or none do.
func (r *ConversationRepo) SetPurposes(ctx context.Context, ids []string, purposeID string) error {
	apply := func(db DBTX) error {
		repo := NewConversationRepo(db)
		for _, id := range ids {
			if err := repo.SetPurpose(ctx, id, purposeID); err != nil {
				return fmt.Errorf("set purpose %s: %w", id, err)
			}
		}
		return nil
	}
	db, ok := r.db.(*sql.DB)
	if !ok {
		// already inside a transaction
		return apply(r.db)
	}
	return database.WithTx(ctx, db, func(tx *sql.Tx) error { return apply(tx) })
}

func (r *ConversationRepo) Rename(ctx context.Context, id, title string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE conversations SET title = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`, title, id)
	if err != nil {
		return err
	}
	return expectOne(res)
}

func (r *ConversationRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM conversations WHERE id = ?`, id)
	return err
}

func expectOne(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
