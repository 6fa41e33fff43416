package db

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Contact pipeline statuses
const (
	ContactStatusNotContacted     = "not_contacted"
	ContactStatusAttemptedContact = "attempted_contact"
	ContactStatusAwaitingResponse = "awaiting_response"
	ContactStatusFollowingUp      = "following_up"
	ContactStatusWon              = "won"
	ContactStatusLost             = "lost"
)

// ContactStatuses lists every contact status in pipeline order
var ContactStatuses = []string{
	ContactStatusNotContacted,
	ContactStatusAttemptedContact,
	ContactStatusAwaitingResponse,
	ContactStatusFollowingUp,
	ContactStatusWon,
	ContactStatusLost,
}

// ErrDuplicateContact is returned when a company already has a contact with
// the same LinkedIn handle.
var ErrDuplicateContact = errors.New("a contact with this LinkedIn handle already exists for the company")

// Contact sources
const (
	ContactSourceEnrichment = "enrichment"
	ContactSourceManual     = "manual"
)

// ContactUpdatableFields are the columns a caller may change on a contact
var ContactUpdatableFields = []string{
	"first_name", "last_name", "full_name", "job_title",
	"email", "phone", "linkedin_handle", "status", "notes",
}

// IsValidContactStatus reports whether s is a known contact status
func IsValidContactStatus(s string) bool {
	for _, status := range ContactStatuses {
		if status == s {
			return true
		}
	}
	return false
}

// IsUpdatableContactField reports whether a column may be changed by an update
func IsUpdatableContactField(field string) bool {
	for _, f := range ContactUpdatableFields {
		if f == field {
			return true
		}
	}
	return false
}

// Contact is a person at a prospect company
type Contact struct {
	ID             uuid.UUID  `json:"id"`
	CompanyID      uuid.UUID  `json:"company_id"`
	FirstName      *string    `json:"first_name"`
	LastName       *string    `json:"last_name"`
	FullName       *string    `json:"full_name"`
	JobTitle       *string    `json:"job_title"`
	Email          *string    `json:"email"`
	Phone          *string    `json:"phone"`
	LinkedInHandle *string    `json:"linkedin_handle"`
	ProfileURL     *string    `json:"profile_url"`
	Status         string     `json:"status"`
	Notes          string     `json:"notes"`
	Source         string     `json:"source"`
	EmailFoundAt   *time.Time `json:"email_found_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`

	// Joined from companies on single-contact and search reads
	CompanyName    *string `json:"company_name,omitempty"`
	CompanyDomain  *string `json:"company_domain,omitempty"`
	CompanyWebsite *string `json:"company_website,omitempty"`

	DisplayName *string `json:"display_name"`
}

// NewContact holds the fields for inserting a contact
type NewContact struct {
	CompanyID      uuid.UUID
	FirstName      *string
	LastName       *string
	FullName       *string
	JobTitle       *string
	Email          *string
	Phone          *string
	LinkedInHandle *string
	ProfileURL     *string
	Status         string
	Notes          string
	Source         string
}

// ContactStats summarizes a user's contacts
type ContactStats struct {
	Total     int            `json:"total"`
	WithEmail int            `json:"with_email"`
	ByStatus  map[string]int `json:"by_status"`
}

// computeDisplayName sets DisplayName to the full name, else "first last".
func (c *Contact) computeDisplayName() {
	switch {
	case c.FullName != nil && *c.FullName != "":
		name := *c.FullName
		c.DisplayName = &name
	case c.FirstName != nil && *c.FirstName != "" && c.LastName != nil && *c.LastName != "":
		name := *c.FirstName + " " + *c.LastName
		c.DisplayName = &name
	default:
		c.DisplayName = nil
	}
}
