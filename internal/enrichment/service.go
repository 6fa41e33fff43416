// Package enrichment turns a company domain into a list of contacts by
// driving the contact provider, and manages the resulting company records.
package enrichment

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/prospect-analyzer/internal/db"
	"github.com/jonathan/prospect-analyzer/internal/observability"
	"github.com/jonathan/prospect-analyzer/internal/salesrocks"
	"github.com/jonathan/prospect-analyzer/internal/types"
	"go.uber.org/zap"
)

// Store is the persistence the service needs. *db.DB satisfies it.
type Store interface {
	FindLatestCompany(ctx context.Context, userID uuid.UUID, domain string) (*db.Company, error)
	CreateCompany(ctx context.Context, nc db.NewCompany) (*db.Company, error)
	GetCompany(ctx context.Context, id uuid.UUID) (*db.Company, error)
	GetUserCompany(ctx context.Context, userID, id uuid.UUID) (*db.Company, error)
	ListUserCompanies(ctx context.Context, userID uuid.UUID) ([]db.Company, error)
	UpdateCompanyStatus(ctx context.Context, id uuid.UUID, status string, totalContacts *int) error
	UpdateCompanyProfile(ctx context.Context, userID, id uuid.UUID, p db.CompanyProfile) (*db.Company, error)
	DeleteCompany(ctx context.Context, userID, id uuid.UUID) (*db.Company, error)
	ListCorruptedCompanies(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error)

	InsertContacts(ctx context.Context, contacts []db.NewContact) (int, error)
	UpdateContactEmail(ctx context.Context, companyID uuid.UUID, handle, email string, fullName, jobTitle *string) error
	ListCompanyContacts(ctx context.Context, companyID uuid.UUID) ([]db.Contact, error)
}

// ContactSource is the provider path. *relay.Relay satisfies it.
type ContactSource interface {
	LinkedInHandles(ctx context.Context, userID uuid.UUID, domain string) ([]string, error)
	ContactEmail(ctx context.Context, userID uuid.UUID, handle string) (*salesrocks.EmailResult, error)
}

// Config controls batching of email lookups.
type Config struct {
	BatchSize   int
	BatchDelay  time.Duration
	MaxContacts int
}

// DefaultConfig returns three lookups per batch, 1.5s apart, ten contacts max.
func DefaultConfig() Config {
	return Config{
		BatchSize:   3,
		BatchDelay:  1500 * time.Millisecond,
		MaxContacts: 10,
	}
}

// Service runs company analyses and manages company records.
type Service struct {
	store   Store
	source  ContactSource
	cfg     Config
	logger  *zap.Logger
	metrics *observability.Metrics

	mu      sync.Mutex
	ongoing map[string]struct{}

	// sleep waits between batches; replaced in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewService creates a Service. Zero config fields take their defaults.
func NewService(store Store, source ContactSource, cfg Config, logger *zap.Logger, metrics *observability.Metrics) *Service {
	def := DefaultConfig()
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = def.BatchSize
	}
	if cfg.MaxContacts <= 0 {
		cfg.MaxContacts = def.MaxContacts
	}
	if cfg.BatchDelay < 0 {
		cfg.BatchDelay = 0
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:   store,
		source:  source,
		cfg:     cfg,
		logger:  logger.Named("enrichment"),
		metrics: metrics,
		ongoing: make(map[string]struct{}),
		sleep:   sleepContext,
	}
}

// acquire claims the in-progress slot for key.
func (s *Service) acquire(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.ongoing[key]; busy {
		return false
	}
	s.ongoing[key] = struct{}{}
	return true
}

func (s *Service) release(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.ongoing, key)
}

// InProgress reports whether a run for the user and domain is active.
func (s *Service) InProgress(userID uuid.UUID, domain string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, busy := s.ongoing[analysisKey(userID, salesrocks.ExtractDomain(domain))]
	return busy
}

func analysisKey(userID uuid.UUID, domain string) string {
	return userID.String() + "-" + domain
}

// CreateCompanyRecord cleans the domain and returns the user's newest record
// for it, creating a pending one when there is none.
func (s *Service) CreateCompanyRecord(ctx context.Context, userID uuid.UUID, domain, websiteURL string) (*db.Company, error) {
	clean := salesrocks.ExtractDomain(domain)
	if clean == "" {
		return nil, &types.ValidationError{Field: "domain", Message: "domain is required"}
	}

	existing, err := s.store.FindLatestCompany(ctx, userID, clean)
	if err != nil {
		return nil, err
	}
	if existing != nil && existing.IsCorrupted() {
		s.logger.Warn("Ignoring corrupted company record", zap.String("company_id", existing.ID.String()))
		existing = nil
	}
	if existing != nil {
		s.logger.Debug("Reusing company record", zap.String("company_id", existing.ID.String()))
		return existing, nil
	}

	nc := db.NewCompany{
		UserID:      userID,
		Domain:      clean,
		CompanyName: salesrocks.CompanyNameFromDomain(clean),
	}
	if websiteURL != "" {
		nc.WebsiteURL = &websiteURL
	}
	return s.store.CreateCompany(ctx, nc)
}

// UpdateCompanyStatus moves a company to status, enforcing the allowed
// transitions. totalContacts, when set, replaces the contact count.
func (s *Service) UpdateCompanyStatus(ctx context.Context, id uuid.UUID, status string, totalContacts *int) error {
	c, err := s.store.GetCompany(ctx, id)
	if err != nil {
		return err
	}
	if c == nil {
		return &types.NotFoundError{Resource: "company", ID: id.String()}
	}
	return s.setStatus(ctx, c, status, totalContacts)
}

func (s *Service) setStatus(ctx context.Context, c *db.Company, status string, totalContacts *int) error {
	if !db.IsValidCompanyStatus(status) {
		return &types.ValidationError{Field: "status", Message: fmt.Sprintf("invalid company status: %s", status)}
	}
	if !db.CanTransition(c.Status, status) {
		return &types.InvalidTransitionError{From: c.Status, To: status}
	}
	if err := s.store.UpdateCompanyStatus(ctx, c.ID, status, totalContacts); err != nil {
		return err
	}
	c.Status = status
	if totalContacts != nil {
		c.TotalContactsFound = *totalContacts
	}
	if status == db.CompanyStatusCompleted {
		now := time.Now()
		c.AnalysisCompletedAt = &now
	}
	return nil
}

// SaveContacts stores up to MaxContacts handles as contacts with names
// parsed from the handles.
func (s *Service) SaveContacts(ctx context.Context, companyID uuid.UUID, handles []string) (int, error) {
	if len(handles) > s.cfg.MaxContacts {
		handles = handles[:s.cfg.MaxContacts]
	}

	rows := make([]db.NewContact, 0, len(handles))
	for _, h := range handles {
		handle := h
		name := NameFromHandle(handle)
		profileURL := "https://linkedin.com/in/" + handle

		full := name.FullName()
		if full == "" {
			full = handle
		}

		rows = append(rows, db.NewContact{
			CompanyID:      companyID,
			FirstName:      optional(name.First),
			LastName:       optional(name.Last),
			FullName:       &full,
			LinkedInHandle: &handle,
			ProfileURL:     &profileURL,
			Status:         db.ContactStatusNotContacted,
			Source:         db.ContactSourceEnrichment,
		})
	}

	return s.store.InsertContacts(ctx, rows)
}

// UpdateContactEmail records a found email on the contact with the handle.
func (s *Service) UpdateContactEmail(ctx context.Context, companyID uuid.UUID, handle, email, fullName, jobTitle string) error {
	return s.store.UpdateContactEmail(ctx, companyID, handle, email, optional(fullName), optional(jobTitle))
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
