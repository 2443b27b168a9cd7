package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/cadence/internal/auth"
)

// CredentialRepository implements auth.Store on a SQLite database.
//
// The credentials table holds at most one row (id = 1); Save upserts it so
// every successful (re)issuance overwrites the previous credential.
type CredentialRepository struct {
	db *sql.DB
}

// NewCredentialRepository creates a repository backed by the given database.
func NewCredentialRepository(db *sql.DB) *CredentialRepository {
	return &CredentialRepository{db: db}
}

// Load returns the persisted credential, or nil when none has been saved.
func (r *CredentialRepository) Load(ctx context.Context) (*auth.Credential, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT access_token, refresh_token, expires_at FROM credentials WHERE id = 1")

	var cred auth.Credential
	err := row.Scan(&cred.AccessToken, &cred.RefreshToken, &cred.ExpiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load credential: %w", err)
	}

	return &cred, nil
}

// Save upserts the credential row.
func (r *CredentialRepository) Save(ctx context.Context, cred auth.Credential) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO credentials (id, access_token, refresh_token, expires_at, updated_at)
		VALUES (1, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			access_token = excluded.access_token,
			refresh_token = excluded.refresh_token,
			expires_at = excluded.expires_at,
			updated_at = excluded.updated_at`,
		cred.AccessToken, cred.RefreshToken, cred.ExpiresAt, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to save credential: %w", err)
	}

	return nil
}

// Clear removes the persisted credential. Clearing an empty store is not an
// error.
func (r *CredentialRepository) Clear(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM credentials WHERE id = 1"); err != nil {
		return fmt.Errorf("failed to clear credential: %w", err)
	}
	return nil
}
