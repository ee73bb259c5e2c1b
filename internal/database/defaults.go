package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
)

// DefaultConversationID is the id of the conversation created for a new database.
var DefaultConversationID = uuid.NewSHA1(uuid.NameSpaceOID, []byte("conversation:default")).String()

// SeedDefaults ensures at least one untitled conversation exists, bound to personaID.
// It is idempotent and safe to run on every startup.
func SeedDefaults(ctx context.Context, db *sql.DB, personaID string) error {
	return WithTx(ctx, db, func(tx *sql.Tx) error {
		var n int
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM conversations`).Scan(&n); err != nil {
			return fmt.Errorf("count conversations: %w", err)
		}
		if n > 0 {
			return nil
		}
		now := Now()
		_, err := tx.ExecContext(ctx, `
		INSERT INTO conversations(id, title, system_purpose_id, created_at, updated_at)
		VALUES (?, '', ?, ?, ?)`, DefaultConversationID, personaID, now, now)
		return err
	})
}
