package db

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// ProviderToken is a persisted provider bearer token
type ProviderToken struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// APILogEntry records one relay call to the contact provider
type APILogEntry struct {
	UserID       *uuid.UUID      `json:"user_id,omitempty"`
	Action       string          `json:"action"`
	RequestData  json.RawMessage `json:"request_data,omitempty"`
	ResponseData json.RawMessage `json:"response_data,omitempty"`
	Success      bool            `json:"success"`
	ErrorMessage *string         `json:"error_message,omitempty"`
}
