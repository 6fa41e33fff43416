package db

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Company status values. A run moves pending -> analyzing -> completed|failed.
const (
	CompanyStatusPending   = "pending"
	CompanyStatusAnalyzing = "analyzing"
	CompanyStatusCompleted = "completed"
	CompanyStatusFailed    = "failed"
)

// companyTransitions lists the statuses each status may move to.
var companyTransitions = map[string][]string{
	CompanyStatusPending:   {CompanyStatusAnalyzing, CompanyStatusFailed},
	CompanyStatusAnalyzing: {CompanyStatusCompleted, CompanyStatusFailed},
	CompanyStatusCompleted: {CompanyStatusAnalyzing},
	CompanyStatusFailed:    {CompanyStatusAnalyzing},
}

// Company is a prospect company owned by a user
type Company struct {
	ID                  uuid.UUID   `json:"id"`
	UserID              uuid.UUID   `json:"user_id"`
	Domain              string      `json:"domain"`
	CompanyName         string      `json:"company_name"`
	WebsiteURL          *string     `json:"website_url,omitempty"`
	Status              string      `json:"status"`
	TotalContactsFound  int         `json:"total_contacts_found"`
	Industry            *string     `json:"industry,omitempty"`
	Description         *string     `json:"description,omitempty"`
	Values              StringArray `json:"values"`
	AnalysisCompletedAt *time.Time  `json:"analysis_completed_at,omitempty"`
	CreatedAt           time.Time   `json:"created_at"`
	UpdatedAt           time.Time   `json:"updated_at"`
}

// IsCorrupted reports whether c is missing a name, a domain or a status.
// Such rows are only ever cleaned up, never reused.
func (c *Company) IsCorrupted() bool {
	return strings.TrimSpace(c.CompanyName) == "" ||
		strings.TrimSpace(c.Domain) == "" ||
		strings.TrimSpace(c.Status) == ""
}

// NewCompany holds the fields needed to insert a company
type NewCompany struct {
	UserID      uuid.UUID
	Domain      string
	CompanyName string
	WebsiteURL  *string
}

// CompanyProfile holds the optional descriptive fields of a company.
// Nil fields are left unchanged on update.
type CompanyProfile struct {
	Industry    *string
	Description *string
	Values      []string
}

// IsValidCompanyStatus reports whether s is a known company status
func IsValidCompanyStatus(s string) bool {
	_, ok := companyTransitions[s]
	return ok
}

// CanTransition reports whether a company may move from one status to another.
// Re-setting the current status is allowed.
func CanTransition(from, to string) bool {
	if !IsValidCompanyStatus(to) {
		return false
	}
	if from == to {
		return true
	}
	for _, next := range companyTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
