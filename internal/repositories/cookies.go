package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/desertthunder/mixtape/internal/session"
)

// CookieRepository implements [session.CredentialStore] on the cookies table, so a login survives between runs.
type CookieRepository struct {
	db  *sql.DB
	now func() time.Time
}

func NewCookieRepository(db *sql.DB) *CookieRepository {
	return &CookieRepository{db: db, now: time.Now}
}

// Load reads both cookies. Missing rows leave their token empty.
func (r *CookieRepository) Load(ctx context.Context) (session.Tokens, error) {
	query := `
		SELECT name, value, expires_at
		FROM cookies
		WHERE name IN (?, ?)
	`

	rows, err := r.db.QueryContext(ctx, query, session.AccessTokenCookie, session.RefreshTokenCookie)
	if err != nil {
		return session.Tokens{}, fmt.Errorf("failed to query cookies: %w", err)
	}
	defer rows.Close()

	var t session.Tokens
	for rows.Next() {
		var (
			name, value string
			expiresAt   sql.NullTime
		)
		if err := rows.Scan(&name, &value, &expiresAt); err != nil {
			return session.Tokens{}, fmt.Errorf("failed to scan cookie: %w", err)
		}

		switch name {
		case session.AccessTokenCookie:
			t.AccessToken = value
			if expiresAt.Valid {
				t.Expiry = expiresAt.Time
			}
		case session.RefreshTokenCookie:
			t.RefreshToken = value
		}
	}

	if err := rows.Err(); err != nil {
		return session.Tokens{}, fmt.Errorf("row iteration error: %w", err)
	}
	return t, nil
}

// Save writes both cookies in one transaction. The refresh cookie carries no expiry.
func (r *CookieRepository) Save(ctx context.Context, t session.Tokens) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO cookies (name, value, expires_at, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (name) DO UPDATE SET
			value = excluded.value,
			expires_at = excluded.expires_at,
			updated_at = excluded.updated_at
	`

	var expires any
	if !t.Expiry.IsZero() {
		expires = t.Expiry.UTC()
	}

	now := r.now()
	if _, err := tx.ExecContext(ctx, query, session.AccessTokenCookie, t.AccessToken, expires, now); err != nil {
		return fmt.Errorf("failed to save access cookie: %w", err)
	}
	if _, err := tx.ExecContext(ctx, query, session.RefreshTokenCookie, t.RefreshToken, nil, now); err != nil {
		return fmt.Errorf("failed to save refresh cookie: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit cookies: %w", err)
	}
	return nil
}

// Clear removes both cookies together.
func (r *CookieRepository) Clear(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM cookies WHERE name IN (?, ?)", session.AccessTokenCookie, session.RefreshTokenCookie)
	if err != nil {
		return fmt.Errorf("failed to clear cookies: %w", err)
	}
	return nil
}

var _ session.CredentialStore = (*CookieRepository)(nil)
