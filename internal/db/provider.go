package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// SaveProviderToken persists a provider token
func (db *DB) SaveProviderToken(ctx context.Context, tok ProviderToken) error {
	_, err := db.pool.Exec(ctx,
		`INSERT INTO provider_tokens (access_token, token_type, expires_at) VALUES ($1, $2, $3)`,
		tok.AccessToken, tok.TokenType, tok.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save provider token: %w", err)
	}
	return nil
}

// LatestProviderToken returns the newest token still valid at now,
// or nil, nil when there is none.
func (db *DB) LatestProviderToken(ctx context.Context, now time.Time) (*ProviderToken, error) {
	var tok ProviderToken
	err := db.pool.QueryRow(ctx,
		`SELECT access_token, token_type, expires_at FROM provider_tokens
		 WHERE expires_at > $1
		 ORDER BY created_at DESC LIMIT 1`,
		now,
	).Scan(&tok.AccessToken, &tok.TokenType, &tok.ExpiresAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get provider token: %w", err)
	}
	return &tok, nil
}

// InsertAPILog records a relay call
func (db *DB) InsertAPILog(ctx context.Context, entry APILogEntry) error {
	_, err := db.pool.Exec(ctx,
		`INSERT INTO provider_api_logs (user_id, action, request_data, response_data, success, error_message)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		entry.UserID, entry.Action, nullJSON(entry.RequestData), nullJSON(entry.ResponseData),
		entry.Success, entry.ErrorMessage,
	)
	if err != nil {
		return fmt.Errorf("failed to insert api log: %w", err)
	}
	return nil
}

func nullJSON(raw []byte) any {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}
