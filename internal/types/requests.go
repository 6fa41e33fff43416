package types

import (
	"encoding/json"

	"github.com/google/uuid"
)

// AnalyzeCompanyRequest starts an enrichment run.
type AnalyzeCompanyRequest struct {
	Domain     string `json:"domain" validate:"required,max=255"`
	WebsiteURL string `json:"website_url,omitempty" validate:"omitempty,url"`
}

// UpdateCompanyProfileRequest sets a company's descriptive fields. Omitted fields are unchanged.
type UpdateCompanyProfileRequest struct {
	Industry    *string  `json:"industry,omitempty" validate:"omitempty,max=100"`
	Description *string  `json:"description,omitempty" validate:"omitempty,max=5000"`
	Values      []string `json:"values,omitempty" validate:"omitempty,max=50,dive,min=1,max=100"`
}

// CreateContactRequest adds a contact by hand.
type CreateContactRequest struct {
	CompanyID      uuid.UUID `json:"company_id" validate:"required"`
	FirstName      string    `json:"first_name,omitempty" validate:"max=100"`
	LastName       string    `json:"last_name,omitempty" validate:"max=100"`
	FullName       string    `json:"full_name,omitempty" validate:"max=200"`
	JobTitle       string    `json:"job_title,omitempty" validate:"max=200"`
	Email          string    `json:"email,omitempty" validate:"omitempty,email"`
	Phone          string    `json:"phone,omitempty" validate:"max=50"`
	LinkedInHandle string    `json:"linkedin_handle,omitempty" validate:"max=200"`
	ProfileURL     string    `json:"profile_url,omitempty" validate:"omitempty,url"`
	Status         string    `json:"status,omitempty"`
	Notes          string    `json:"notes,omitempty"`
}

// UpdateStatusRequest changes a contact's pipeline status.
type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// UpdateNotesRequest replaces a contact's notes.
type UpdateNotesRequest struct {
	Notes string `json:"notes"`
}

// SearchHistoryRequest records a catalog search.
type SearchHistoryRequest struct {
	Query   string            `json:"query" validate:"required,max=500"`
	Filters map[string]string `json:"filters,omitempty" validate:"max=20"`
	Results int               `json:"results" validate:"min=0"`
}

// RelayRequest invokes a provider action.
type RelayRequest struct {
	Action string          `json:"action" validate:"required"`
	Data   json.RawMessage `json:"data,omitempty"`
}

// RelayResponse wraps a provider action result.
type RelayResponse struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Validate validates the AnalyzeCompanyRequest using the validator.
func (r *AnalyzeCompanyRequest) Validate() error {
	return validate.Struct(r)
}

// Validate validates the UpdateCompanyProfileRequest using the validator.
func (r *UpdateCompanyProfileRequest) Validate() error {
	return validate.Struct(r)
}

// Validate checks field formats and that at least one name is present.
func (r *CreateContactRequest) Validate() error {
	if err := validate.Struct(r); err != nil {
		return err
	}
	if r.FullName == "" && r.FirstName == "" && r.LastName == "" {
		return &ValidationError{Field: "name", Message: "At least one name field is required"}
	}
	return nil
}

// Validate validates the UpdateStatusRequest using the validator.
func (r *UpdateStatusRequest) Validate() error {
	return validate.Struct(r)
}

// Validate validates the SearchHistoryRequest using the validator.
func (r *SearchHistoryRequest) Validate() error {
	return validate.Struct(r)
}

// Validate validates the RelayRequest using the validator.
func (r *RelayRequest) Validate() error {
	return validate.Struct(r)
}
