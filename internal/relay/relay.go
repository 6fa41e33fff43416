// Package relay is the single path to the contact provider. Every call is
// dispatched by action name and recorded in the API log.
package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/jonathan/prospect-analyzer/internal/db"
	"github.com/jonathan/prospect-analyzer/internal/observability"
	"github.com/jonathan/prospect-analyzer/internal/salesrocks"
	"go.uber.org/zap"
)

// Action names a relay operation.
type Action string

// Supported actions
const (
	ActionAuthenticate        Action = "authenticate"
	ActionGetLinkedInContacts Action = "getLinkedInContacts"
	ActionGetContactEmail     Action = "getContactEmail"
	ActionTestConnection      Action = "testConnection"
)

// InvalidActionError is returned for an unknown action name.
type InvalidActionError struct {
	Action string
}

func (e *InvalidActionError) Error() string {
	return fmt.Sprintf("Invalid action: %s", e.Action)
}

// InvalidDataError is returned when an action's data cannot be used.
type InvalidDataError struct {
	Action  Action
	Message string
}

func (e *InvalidDataError) Error() string {
	return fmt.Sprintf("invalid data for %s: %s", e.Action, e.Message)
}

// Provider is the remote API the relay fronts.
type Provider interface {
	Authenticate(ctx context.Context) (*salesrocks.AuthResult, error)
	LinkedInContactsByDomain(ctx context.Context, accessToken, domain string) ([]string, error)
	ContactEmailByHandle(ctx context.Context, accessToken, handle string) (*salesrocks.EmailResult, error)
	TestConnection(ctx context.Context) (*salesrocks.ConnectionStatus, error)
}

// CallLogger records relay calls.
type CallLogger interface {
	InsertAPILog(ctx context.Context, entry db.APILogEntry) error
}

// ContactsResult is the getLinkedInContacts response.
type ContactsResult struct {
	Handles []string `json:"contact_linkedin_handles"`
}

// EmailResult is the getContactEmail response. Unknown fields are null.
type EmailResult struct {
	ContactEmail *string `json:"contact_email"`
	FullName     *string `json:"full_name"`
	JobTitle     *string `json:"job_title"`
}

type contactsData struct {
	Domain      string `json:"domain"`
	AccessToken string `json:"accessToken,omitempty"`
}

type emailData struct {
	LinkedInHandle string `json:"linkedinHandle"`
	AccessToken    string `json:"accessToken,omitempty"`
}

// Relay dispatches provider actions and logs each call.
type Relay struct {
	provider Provider
	tokens   *salesrocks.TokenManager
	logs     CallLogger // may be nil
	logger   *zap.Logger
	metrics  *observability.Metrics
}

// New creates a Relay. tokenStore and logs may be nil.
func New(provider Provider, tokenStore salesrocks.TokenStore, logs CallLogger, logger *zap.Logger, metrics *observability.Metrics) *Relay {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Relay{
		provider: provider,
		logs:     logs,
		logger:   logger.Named("relay"),
		metrics:  metrics,
	}
	r.tokens = salesrocks.NewTokenManager(r.authenticateForCaller, tokenStore, logger)
	return r
}

// Invoke runs a named action with its JSON data on behalf of userID.
func (r *Relay) Invoke(ctx context.Context, userID uuid.UUID, action Action, data json.RawMessage) (any, error) {
	switch action {
	case ActionAuthenticate:
		return r.call(ctx, userID, action, nil, func(ctx context.Context) (any, error) {
			return r.provider.Authenticate(ctx)
		})

	case ActionGetLinkedInContacts:
		var in contactsData
		if err := decodeData(action, data, &in); err != nil {
			return r.fail(ctx, userID, action, data, err)
		}
		if in.Domain == "" {
			return r.fail(ctx, userID, action, data, &InvalidDataError{Action: action, Message: "domain is required"})
		}
		return r.call(ctx, userID, action, in, func(ctx context.Context) (any, error) {
			return r.contacts(ctx, userID, in)
		})

	case ActionGetContactEmail:
		var in emailData
		if err := decodeData(action, data, &in); err != nil {
			return r.fail(ctx, userID, action, data, err)
		}
		if in.LinkedInHandle == "" {
			return r.fail(ctx, userID, action, data, &InvalidDataError{Action: action, Message: "linkedinHandle is required"})
		}
		return r.call(ctx, userID, action, in, func(ctx context.Context) (any, error) {
			return r.email(ctx, userID, in)
		})

	case ActionTestConnection:
		return r.call(ctx, userID, action, nil, func(ctx context.Context) (any, error) {
			return r.provider.TestConnection(ctx)
		})

	default:
		return r.fail(ctx, userID, action, data, &InvalidActionError{Action: string(action)})
	}
}

// LinkedInHandles searches the provider for a domain's LinkedIn handles
// using a managed access token.
func (r *Relay) LinkedInHandles(ctx context.Context, userID uuid.UUID, domain string) ([]string, error) {
	in := contactsData{Domain: domain}
	res, err := r.call(ctx, userID, ActionGetLinkedInContacts, in, func(ctx context.Context) (any, error) {
		return r.contacts(ctx, userID, in)
	})
	if err != nil {
		return nil, err
	}
	return res.(*ContactsResult).Handles, nil
}

// ContactEmail looks up a handle's email using a managed access token.
func (r *Relay) ContactEmail(ctx context.Context, userID uuid.UUID, handle string) (*salesrocks.EmailResult, error) {
	in := emailData{LinkedInHandle: handle}
	res, err := r.call(ctx, userID, ActionGetContactEmail, in, func(ctx context.Context) (any, error) {
		return r.email(ctx, userID, in)
	})
	if err != nil {
		return nil, err
	}
	er := res.(*EmailResult)
	return &salesrocks.EmailResult{
		Email:    deref(er.ContactEmail),
		FullName: deref(er.FullName),
		JobTitle: deref(er.JobTitle),
	}, nil
}

// TestConnection checks the provider credentials.
func (r *Relay) TestConnection(ctx context.Context, userID uuid.UUID) (*salesrocks.ConnectionStatus, error) {
	res, err := r.call(ctx, userID, ActionTestConnection, nil, func(ctx context.Context) (any, error) {
		return r.provider.TestConnection(ctx)
	})
	if err != nil {
		return nil, err
	}
	return res.(*salesrocks.ConnectionStatus), nil
}

func (r *Relay) contacts(ctx context.Context, userID uuid.UUID, in contactsData) (*ContactsResult, error) {
	token, err := r.accessToken(ctx, userID, in.AccessToken)
	if err != nil {
		return nil, err
	}
	handles, err := r.provider.LinkedInContactsByDomain(ctx, token, in.Domain)
	if err != nil {
		r.dropRejectedToken(in.AccessToken, err)
		return nil, err
	}
	return &ContactsResult{Handles: handles}, nil
}

func (r *Relay) email(ctx context.Context, userID uuid.UUID, in emailData) (*EmailResult, error) {
	token, err := r.accessToken(ctx, userID, in.AccessToken)
	if err != nil {
		return nil, err
	}
	res, err := r.provider.ContactEmailByHandle(ctx, token, in.LinkedInHandle)
	if err != nil {
		r.dropRejectedToken(in.AccessToken, err)
		return nil, err
	}
	return &EmailResult{
		ContactEmail: nonEmpty(res.Email),
		FullName:     nonEmpty(res.FullName),
		JobTitle:     nonEmpty(res.JobTitle),
	}, nil
}

// accessToken prefers a caller-supplied token over the managed one.
func (r *Relay) accessToken(ctx context.Context, userID uuid.UUID, supplied string) (string, error) {
	if supplied != "" {
		return supplied, nil
	}
	return r.tokens.Token(withCaller(ctx, userID))
}

// dropRejectedToken invalidates the managed token when the provider answered
// 401. Caller-supplied tokens are left alone.
func (r *Relay) dropRejectedToken(supplied string, err error) {
	var apiErr *salesrocks.APIError
	if supplied != "" || !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusUnauthorized {
		return
	}
	r.logger.Info("Provider rejected managed token, re-authenticating on next call")
	r.tokens.Invalidate()
}

// authenticateForCaller is the token manager's refresh path; it is logged
// like any other authenticate call.
func (r *Relay) authenticateForCaller(ctx context.Context) (*salesrocks.AuthResult, error) {
	userID, _ := callerFrom(ctx)
	res, err := r.call(ctx, userID, ActionAuthenticate, nil, func(ctx context.Context) (any, error) {
		return r.provider.Authenticate(ctx)
	})
	if err != nil {
		return nil, err
	}
	r.metrics.RecordTokenRefresh()
	return res.(*salesrocks.AuthResult), nil
}

// call runs fn and records the outcome. fn must return a non-nil pointer on success.
func (r *Relay) call(ctx context.Context, userID uuid.UUID, action Action, request any, fn func(context.Context) (any, error)) (any, error) {
	res, err := fn(ctx)
	if err != nil {
		return r.fail(ctx, userID, action, request, err)
	}

	r.record(ctx, userID, action, request, res, nil)
	r.logger.Debug("Provider call succeeded", zap.String("action", string(action)))
	return res, nil
}

func (r *Relay) fail(ctx context.Context, userID uuid.UUID, action Action, request any, err error) (any, error) {
	r.record(ctx, userID, action, request, nil, err)
	r.logger.Warn("Provider call failed", zap.String("action", string(action)), zap.Error(err))
	return nil, err
}

func (r *Relay) record(ctx context.Context, userID uuid.UUID, action Action, request, response any, callErr error) {
	r.metrics.RecordProviderCall(string(action), callErr == nil)
	if r.logs == nil {
		return
	}

	entry := db.APILogEntry{
		Action:       string(action),
		RequestData:  redact(request),
		ResponseData: redact(response),
		Success:      callErr == nil,
	}
	if userID != uuid.Nil {
		id := userID
		entry.UserID = &id
	}
	if callErr != nil {
		msg := callErr.Error()
		entry.ErrorMessage = &msg
	}

	// Logging never fails the call, and outlives a cancelled request.
	if err := r.logs.InsertAPILog(context.WithoutCancel(ctx), entry); err != nil {
		r.logger.Error("Failed to log API call", zap.String("action", string(action)), zap.Error(err))
	}
}

func decodeData(action Action, data json.RawMessage, out any) error {
	if len(data) == 0 {
		return &InvalidDataError{Action: action, Message: "data is required"}
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &InvalidDataError{Action: action, Message: err.Error()}
	}
	return nil
}

// IsClientError reports whether err was caused by the caller's input.
func IsClientError(err error) bool {
	var actionErr *InvalidActionError
	var dataErr *InvalidDataError
	return errors.As(err, &actionErr) || errors.As(err, &dataErr)
}

func nonEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
