package enrichment

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jonathan/prospect-analyzer/internal/db"
	"github.com/jonathan/prospect-analyzer/internal/types"
	"go.uber.org/zap"
)

// CleanupResult reports a corrupted-record cleanup
type CleanupResult struct {
	DeletedCount int      `json:"deleted_count"`
	Errors       []string `json:"errors"`
}

// ParseID parses a canonical 36-character UUID. Other encodings that
// uuid.Parse tolerates are rejected.
func ParseID(field, raw string) (uuid.UUID, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return uuid.Nil, &types.ValidationError{Field: field, Message: "ID is required"}
	}
	if len(raw) != 36 {
		return uuid.Nil, &types.ValidationError{Field: field, Message: fmt.Sprintf("invalid ID format: %s", raw)}
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, &types.ValidationError{Field: field, Message: fmt.Sprintf("invalid ID format: %s", raw)}
	}
	return id, nil
}

// ListCompanies returns the user's companies, newest first
func (s *Service) ListCompanies(ctx context.Context, userID uuid.UUID) ([]db.Company, error) {
	return s.store.ListUserCompanies(ctx, userID)
}

// GetCompany returns one of the user's companies
func (s *Service) GetCompany(ctx context.Context, userID uuid.UUID, rawID string) (*db.Company, error) {
	id, err := ParseID("company_id", rawID)
	if err != nil {
		return nil, err
	}
	c, err := s.store.GetUserCompany(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, &types.NotFoundError{Resource: "company", ID: rawID}
	}
	return c, nil
}

// CompanyContacts returns the contacts of one of the user's companies, newest first
func (s *Service) CompanyContacts(ctx context.Context, userID uuid.UUID, rawID string) ([]db.Contact, error) {
	c, err := s.GetCompany(ctx, userID, rawID)
	if err != nil {
		return nil, err
	}
	return s.store.ListCompanyContacts(ctx, c.ID)
}

// UpdateProfile sets the descriptive fields used for product alignment
func (s *Service) UpdateProfile(ctx context.Context, userID uuid.UUID, rawID string, req types.UpdateCompanyProfileRequest) (*db.Company, error) {
	id, err := ParseID("company_id", rawID)
	if err != nil {
		return nil, err
	}

	profile := db.CompanyProfile{
		Industry:    trimmed(req.Industry),
		Description: trimmed(req.Description),
	}
	if req.Values != nil {
		profile.Values = make([]string, 0, len(req.Values))
		for _, v := range req.Values {
			if v = strings.TrimSpace(v); v != "" {
				profile.Values = append(profile.Values, v)
			}
		}
	}

	c, err := s.store.UpdateCompanyProfile(ctx, userID, id, profile)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, &types.NotFoundError{Resource: "company", ID: rawID}
	}
	return c, nil
}

// DeleteCompany removes one of the user's companies with its contacts and
// returns the deleted record
func (s *Service) DeleteCompany(ctx context.Context, userID uuid.UUID, rawID string) (*db.Company, error) {
	id, err := ParseID("company_id", rawID)
	if err != nil {
		return nil, err
	}
	c, err := s.store.DeleteCompany(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, &types.NotFoundError{Resource: "company", ID: rawID}
	}
	s.logger.Info("Company deleted", zap.String("company_id", c.ID.String()), zap.String("domain", c.Domain))
	return c, nil
}

// CleanupCorruptedRecords deletes the user's companies that lack a name,
// domain or status. Per-record failures are collected, not returned.
func (s *Service) CleanupCorruptedRecords(ctx context.Context, userID uuid.UUID) (*CleanupResult, error) {
	ids, err := s.store.ListCorruptedCompanies(ctx, userID)
	if err != nil {
		return nil, err
	}

	res := &CleanupResult{Errors: []string{}}
	for _, id := range ids {
		deleted, err := s.store.DeleteCompany(ctx, userID, id)
		switch {
		case err != nil:
			res.Errors = append(res.Errors, fmt.Sprintf("%s: %v", id, err))
		case deleted != nil:
			res.DeletedCount++
		}
	}

	s.logger.Info("Corrupted records cleaned up",
		zap.String("user_id", userID.String()),
		zap.Int("deleted", res.DeletedCount),
		zap.Int("errors", len(res.Errors)))
	return res, nil
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	return &v
}
