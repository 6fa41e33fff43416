// Package salesrocks is a client for the Sales.rocks LinkedIn contact lookup API.
package salesrocks

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// MaxHandles caps the handles returned by a domain search.
const MaxHandles = 10

const (
	defaultTokenType = "Bearer"
	defaultExpiresIn = 3600
	maxErrorBody     = 4096
)

// ErrNoAccessToken is returned when authentication succeeds without a token.
var ErrNoAccessToken = errors.New("no access token received")

// APIError is a non-2xx response from the provider.
type APIError struct {
	Op         string // "Authentication", "LinkedIn search", "Email search"
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s failed: %d %s - %s", e.Op, e.StatusCode, http.StatusText(e.StatusCode), e.Body)
}

// AuthResult is the provider's token response.
type AuthResult struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// EmailResult is the provider's email lookup response. Empty fields mean unknown.
type EmailResult struct {
	Email    string `json:"contact_email"`
	FullName string `json:"full_name"`
	JobTitle string `json:"job_title"`
}

// ConnectionStatus reports the outcome of TestConnection.
type ConnectionStatus struct {
	Connected     bool   `json:"connected"`
	Message       string `json:"message"`
	TokenReceived bool   `json:"token_received"`
}

// Options configures a Client.
type Options struct {
	BaseURL           string
	Username          string
	Password          string
	RequestsPerSecond float64 // zero disables throttling
	Timeout           time.Duration
	HTTPClient        *http.Client
}

// Client calls the provider's REST API.
type Client struct {
	baseURL    string
	username   string
	password   string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewClient creates a provider client.
func NewClient(opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout == 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	limit := rate.Inf
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
	}

	return &Client{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		username:   opts.Username,
		password:   opts.Password,
		httpClient: httpClient,
		limiter:    rate.NewLimiter(limit, 1),
	}
}

// Authenticate exchanges the configured credentials for an access token.
func (c *Client) Authenticate(ctx context.Context) (*AuthResult, error) {
	body := map[string]string{"username": c.username, "password": c.password}

	var res AuthResult
	if err := c.post(ctx, "Authentication", "/auth/accessToken", "", body, &res); err != nil {
		return nil, err
	}
	if res.AccessToken == "" {
		return nil, ErrNoAccessToken
	}
	if res.TokenType == "" {
		res.TokenType = defaultTokenType
	}
	if res.ExpiresIn <= 0 {
		res.ExpiresIn = defaultExpiresIn
	}
	return &res, nil
}

// LinkedInContactsByDomain returns up to MaxHandles LinkedIn handles for a domain.
func (c *Client) LinkedInContactsByDomain(ctx context.Context, accessToken, domain string) ([]string, error) {
	var raw json.RawMessage
	if err := c.post(ctx, "LinkedIn search", "/search/linkedinContactsByDomain", accessToken,
		map[string]string{"domain": domain}, &raw); err != nil {
		return nil, err
	}
	return ParseHandles(raw, MaxHandles)
}

// ContactEmailByHandle looks up the email of a LinkedIn handle.
func (c *Client) ContactEmailByHandle(ctx context.Context, accessToken, handle string) (*EmailResult, error) {
	var res struct {
		Email    *string `json:"contact_email"`
		FullName *string `json:"full_name"`
		JobTitle *string `json:"job_title"`
	}
	if err := c.post(ctx, "Email search", "/search/contactEmailByContactLinkedinHandle", accessToken,
		map[string]string{"linkedin_handle": handle}, &res); err != nil {
		return nil, err
	}
	return &EmailResult{
		Email:    derefString(res.Email),
		FullName: derefString(res.FullName),
		JobTitle: derefString(res.JobTitle),
	}, nil
}

// TestConnection authenticates and reports whether a token was received.
func (c *Client) TestConnection(ctx context.Context) (*ConnectionStatus, error) {
	auth, err := c.Authenticate(ctx)
	if err != nil {
		return nil, fmt.Errorf("connection test failed: %w", err)
	}
	return &ConnectionStatus{
		Connected:     true,
		Message:       "Successfully connected to Sales.rocks API",
		TokenReceived: auth.AccessToken != "",
	}, nil
}

func (c *Client) post(ctx context.Context, op, path, accessToken string, in, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s request failed: %w", op, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &APIError{Op: op, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", strings.ToLower(op), err)
	}
	return nil
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
