// Package contacts manages the people stored against a user's companies.
package contacts

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jonathan/prospect-analyzer/internal/db"
	"github.com/jonathan/prospect-analyzer/internal/types"
	"go.uber.org/zap"
)

// SearchLimit caps the results of Search
const SearchLimit = 50

var validate = validator.New()

// Store is the persistence the service needs. *db.DB satisfies it.
type Store interface {
	GetUserCompany(ctx context.Context, userID, id uuid.UUID) (*db.Company, error)
	CreateContact(ctx context.Context, nc db.NewContact) (*db.Contact, error)
	GetUserContact(ctx context.Context, userID, contactID uuid.UUID) (*db.Contact, error)
	ListCompanyContacts(ctx context.Context, companyID uuid.UUID) ([]db.Contact, error)
	UpdateContactFields(ctx context.Context, userID, contactID uuid.UUID, fields map[string]any) (*db.Contact, error)
	SearchContacts(ctx context.Context, userID uuid.UUID, term string, limit int) ([]db.Contact, error)
	DeleteContact(ctx context.Context, userID, contactID uuid.UUID) (bool, error)
	GetContactStats(ctx context.Context, userID uuid.UUID) (*db.ContactStats, error)
}

// Service implements contact operations scoped to the owning user
type Service struct {
	store  Store
	logger *zap.Logger
}

// NewService creates a contact Service
func NewService(store Store, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, logger: logger.Named("contacts")}
}

// Get returns one of the user's contacts with its company details
func (s *Service) Get(ctx context.Context, userID, contactID uuid.UUID) (*db.Contact, error) {
	c, err := s.store.GetUserContact(ctx, userID, contactID)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, &types.NotFoundError{Resource: "contact", ID: contactID.String()}
	}
	return c, nil
}

// Update applies a partial update. Keys outside db.ContactUpdatableFields are
// dropped. Values must be strings or null; a null notes value clears the notes.
func (s *Service) Update(ctx context.Context, userID, contactID uuid.UUID, fields map[string]any) (*db.Contact, error) {
	clean, err := normalizeFields(fields)
	if err != nil {
		return nil, err
	}

	c, err := s.store.UpdateContactFields(ctx, userID, contactID, clean)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, &types.NotFoundError{Resource: "contact", ID: contactID.String()}
	}
	s.logger.Debug("Contact updated", zap.String("contact_id", contactID.String()), zap.Int("fields", len(clean)))
	return c, nil
}

func normalizeFields(fields map[string]any) (map[string]any, error) {
	clean := make(map[string]any, len(fields))
	for key, raw := range fields {
		if !db.IsUpdatableContactField(key) {
			continue
		}

		var value *string
		switch v := raw.(type) {
		case nil:
		case string:
			value = &v
		default:
			return nil, &types.ValidationError{Field: key, Message: "must be a string or null"}
		}

		switch key {
		case "status":
			if value == nil || !db.IsValidContactStatus(*value) {
				return nil, invalidStatus(value)
			}
			clean[key] = *value
		case "notes":
			if value == nil {
				clean[key] = ""
			} else {
				clean[key] = *value
			}
		case "email":
			if value != nil && *value != "" {
				if err := validate.Var(*value, "email"); err != nil {
					return nil, &types.ValidationError{Field: key, Message: "invalid email address"}
				}
			}
			clean[key] = value
		default:
			clean[key] = value
		}
	}
	return clean, nil
}

func invalidStatus(value *string) error {
	got := "null"
	if value != nil {
		got = *value
	}
	return &types.ValidationError{
		Field:   "status",
		Message: fmt.Sprintf("invalid status %q, must be one of: %s", got, strings.Join(db.ContactStatuses, ", ")),
	}
}

// CreateManual adds a contact by hand to one of the user's companies
func (s *Service) CreateManual(ctx context.Context, userID uuid.UUID, req types.CreateContactRequest) (*db.Contact, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	status := req.Status
	if status == "" {
		status = db.ContactStatusNotContacted
	}
	if !db.IsValidContactStatus(status) {
		return nil, invalidStatus(&status)
	}

	company, err := s.store.GetUserCompany(ctx, userID, req.CompanyID)
	if err != nil {
		return nil, err
	}
	if company == nil {
		return nil, &types.NotFoundError{Resource: "company", ID: req.CompanyID.String()}
	}

	created, err := s.store.CreateContact(ctx, db.NewContact{
		CompanyID:      company.ID,
		FirstName:      nonEmpty(req.FirstName),
		LastName:       nonEmpty(req.LastName),
		FullName:       nonEmpty(req.FullName),
		JobTitle:       nonEmpty(req.JobTitle),
		Email:          nonEmpty(req.Email),
		Phone:          nonEmpty(req.Phone),
		LinkedInHandle: nonEmpty(req.LinkedInHandle),
		ProfileURL:     nonEmpty(req.ProfileURL),
		Status:         status,
		Notes:          req.Notes,
		Source:         db.ContactSourceManual,
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("Manual contact created",
		zap.String("contact_id", created.ID.String()),
		zap.String("company_id", company.ID.String()))

	return created, nil
}

// ListByCompany returns the contacts of one of the user's companies, newest first
func (s *Service) ListByCompany(ctx context.Context, userID, companyID uuid.UUID) ([]db.Contact, error) {
	company, err := s.store.GetUserCompany(ctx, userID, companyID)
	if err != nil {
		return nil, err
	}
	if company == nil {
		return nil, &types.NotFoundError{Resource: "company", ID: companyID.String()}
	}
	return s.store.ListCompanyContacts(ctx, company.ID)
}

// Search finds the user's contacts by name, email, job title or company name
func (s *Service) Search(ctx context.Context, userID uuid.UUID, term string) ([]db.Contact, error) {
	return s.store.SearchContacts(ctx, userID, strings.TrimSpace(term), SearchLimit)
}

// Delete removes one of the user's contacts
func (s *Service) Delete(ctx context.Context, userID, contactID uuid.UUID) error {
	ok, err := s.store.DeleteContact(ctx, userID, contactID)
	if err != nil {
		return err
	}
	if !ok {
		return &types.NotFoundError{Resource: "contact", ID: contactID.String()}
	}
	s.logger.Info("Contact deleted", zap.String("contact_id", contactID.String()))
	return nil
}

// Stats counts the user's contacts
func (s *Service) Stats(ctx context.Context, userID uuid.UUID) (*db.ContactStats, error) {
	return s.store.GetContactStats(ctx, userID)
}

// UpdateNotes replaces a contact's notes
func (s *Service) UpdateNotes(ctx context.Context, userID, contactID uuid.UUID, notes string) (*db.Contact, error) {
	return s.Update(ctx, userID, contactID, map[string]any{"notes": notes})
}

// UpdateStatus moves a contact to another pipeline status
func (s *Service) UpdateStatus(ctx context.Context, userID, contactID uuid.UUID, status string) (*db.Contact, error) {
	return s.Update(ctx, userID, contactID, map[string]any{"status": status})
}

func nonEmpty(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
