package db

import (
	"context"
	"time"
)

// PutSessionToken upserts the single session record for a user. The ON
// CONFLICT clause makes concurrent puts for the same user serialize inside
// Postgres with last-write-wins on the token value.
func (db *Postgres) PutSessionToken(ctx context.Context, userID, tokenValue string) error {
	query := `
		INSERT INTO session_tokens (user_id, token_value, created_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (user_id) DO UPDATE
		SET token_value = EXCLUDED.token_value, created_at = NOW()
	`
	_, err := db.Pool.Exec(ctx, query, userID, tokenValue)
	return err
}

// RevokeSessionToken deletes the record for a user and reports whether one
// existed. Deleting an absent record is not an error.
func (db *Postgres) RevokeSessionToken(ctx context.Context, userID string) (bool, error) {
	query := `DELETE FROM session_tokens WHERE user_id = $1`
	tag, err := db.Pool.Exec(ctx, query, userID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// DeleteSessionTokensBefore removes records created before the cutoff and
// returns how many were swept.
func (db *Postgres) DeleteSessionTokensBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `DELETE FROM session_tokens WHERE created_at < $1`
	tag, err := db.Pool.Exec(ctx, query, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
