package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/trogers1052/stock-screener/internal/models"
)

// GetLatestToken returns the stored credential, or nil when none exists
func (db *DB) GetLatestToken(ctx context.Context) (*models.Credential, error) {
	query := `
		SELECT id, access_token, refresh_token, expires_at, created_at
		FROM api_tokens
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`
	var (
		c         models.Credential
		refresh   sql.NullString
		expiresAt sql.NullTime
	)
	err := db.conn.QueryRowContext(ctx, query).Scan(&c.ID, &c.AccessToken, &refresh, &expiresAt, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest token: %w", err)
	}

	if refresh.Valid {
		c.RefreshToken = &refresh.String
	}
	if expiresAt.Valid {
		t := expiresAt.Time.UTC()
		c.ExpiresAt = &t
	}
	c.CreatedAt = c.CreatedAt.UTC()
	return &c, nil
}

// SaveToken replaces any stored credential with c
func (db *DB) SaveToken(ctx context.Context, c *models.Credential) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM api_tokens`); err != nil {
		return fmt.Errorf("failed to clear tokens: %w", err)
	}

	var refresh sql.NullString
	if c.RefreshToken != nil {
		refresh = sql.NullString{String: *c.RefreshToken, Valid: true}
	}
	var expiresAt sql.NullTime
	if c.ExpiresAt != nil {
		expiresAt = sql.NullTime{Time: *c.ExpiresAt, Valid: true}
	}
	createdAt := c.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	err = tx.QueryRowContext(ctx, `
		INSERT INTO api_tokens (access_token, refresh_token, expires_at, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, c.AccessToken, refresh, expiresAt, createdAt).Scan(&c.ID)
	if err != nil {
		return fmt.Errorf("failed to insert token: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	c.CreatedAt = createdAt
	return nil
}

// DeleteToken removes the stored credential
func (db *DB) DeleteToken(ctx context.Context) error {
	if _, err := db.conn.ExecContext(ctx, `DELETE FROM api_tokens`); err != nil {
		return fmt.Errorf("failed to delete token: %w", err)
	}
	return nil
}
