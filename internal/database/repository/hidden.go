package repository

import (
	"context"
	"database/sql"
)

// HiddenPersonaRepo stores the ids the user chose to hide from the persona tiles.
type HiddenPersonaRepo struct {
	db DBTX
}

func NewHiddenPersonaRepo(db DBTX) *HiddenPersonaRepo { return &HiddenPersonaRepo{db: db} }

// List returns hidden ids in the order they were hidden.
func (r *HiddenPersonaRepo) List(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT persona_id FROM hidden_personas ORDER BY position, persona_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func (r *HiddenPersonaRepo) Add(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `
	INSERT OR IGNORE INTO hidden_personas(persona_id, position)
	VALUES (?, (SELECT COALESCE(MAX(position), 0) + 1 FROM hidden_personas));
	`, id)
	return err
}

func (r *HiddenPersonaRepo) Remove(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM hidden_personas WHERE persona_id = ?`, id)
	return err
}
