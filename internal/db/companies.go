package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// -----------------------------------------------------------------------------
// Company Methods
// -----------------------------------------------------------------------------

const companyColumns = `id, user_id, COALESCE(domain, ''), COALESCE(company_name, ''), website_url,
	COALESCE(status, ''), total_contacts_found, industry, description, company_values,
	analysis_completed_at, created_at, updated_at`

func scanCompany(row pgx.Row) (*Company, error) {
	var c Company
	err := row.Scan(&c.ID, &c.UserID, &c.Domain, &c.CompanyName, &c.WebsiteURL,
		&c.Status, &c.TotalContactsFound, &c.Industry, &c.Description, &c.Values,
		&c.AnalysisCompletedAt, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// FindLatestCompany returns the newest intact company of a user with the
// given domain, or nil, nil when there is none. Corrupted rows are skipped.
func (db *DB) FindLatestCompany(ctx context.Context, userID uuid.UUID, domain string) (*Company, error) {
	c, err := scanCompany(db.pool.QueryRow(ctx,
		`SELECT `+companyColumns+` FROM companies
		 WHERE user_id = $1 AND domain = $2
		   AND NULLIF(TRIM(company_name), '') IS NOT NULL
		   AND NULLIF(TRIM(status), '') IS NOT NULL
		 ORDER BY created_at DESC LIMIT 1`,
		userID, domain,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find company: %w", err)
	}
	return c, nil
}

// CreateCompany inserts a pending company
func (db *DB) CreateCompany(ctx context.Context, nc NewCompany) (*Company, error) {
	c, err := scanCompany(db.pool.QueryRow(ctx,
		`INSERT INTO companies (user_id, domain, company_name, website_url, status, total_contacts_found)
		 VALUES ($1, $2, $3, $4, 'pending', 0)
		 RETURNING `+companyColumns,
		nc.UserID, nc.Domain, nc.CompanyName, nc.WebsiteURL,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create company: %w", err)
	}
	return c, nil
}

// GetCompany retrieves a company by ID regardless of owner
func (db *DB) GetCompany(ctx context.Context, id uuid.UUID) (*Company, error) {
	c, err := scanCompany(db.pool.QueryRow(ctx,
		`SELECT `+companyColumns+` FROM companies WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get company: %w", err)
	}
	return c, nil
}

// GetUserCompany retrieves a company owned by userID
func (db *DB) GetUserCompany(ctx context.Context, userID, id uuid.UUID) (*Company, error) {
	c, err := scanCompany(db.pool.QueryRow(ctx,
		`SELECT `+companyColumns+` FROM companies WHERE id = $1 AND user_id = $2`, id, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get company: %w", err)
	}
	return c, nil
}

// ListUserCompanies returns a user's companies, newest first
func (db *DB) ListUserCompanies(ctx context.Context, userID uuid.UUID) ([]Company, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT `+companyColumns+` FROM companies WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list companies: %w", err)
	}
	defer rows.Close()

	companies := []Company{}
	for rows.Next() {
		c, err := scanCompany(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan company: %w", err)
		}
		companies = append(companies, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list companies: %w", err)
	}
	return companies, nil
}

// UpdateCompanyStatus sets a company's status and, when given, its contact count.
// Completing a company stamps analysis_completed_at.
func (db *DB) UpdateCompanyStatus(ctx context.Context, id uuid.UUID, status string, totalContacts *int) error {
	if !IsValidCompanyStatus(status) {
		return fmt.Errorf("invalid company status: %q", status)
	}

	tag, err := db.pool.Exec(ctx,
		`UPDATE companies SET
			status = $2,
			total_contacts_found = COALESCE($3, total_contacts_found),
			analysis_completed_at = CASE WHEN $2 = 'completed' THEN NOW() ELSE analysis_completed_at END,
			updated_at = NOW()
		 WHERE id = $1`,
		id, status, totalContacts,
	)
	if err != nil {
		return fmt.Errorf("failed to update company status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("failed to update company status: company %s not found", id)
	}
	return nil
}

// UpdateCompanyProfile updates the descriptive fields of a user's company and
// returns the updated record, or nil, nil when the company is not found.
func (db *DB) UpdateCompanyProfile(ctx context.Context, userID, id uuid.UUID, p CompanyProfile) (*Company, error) {
	var values any
	if p.Values != nil {
		values = StringArray(p.Values)
	}

	c, err := scanCompany(db.pool.QueryRow(ctx,
		`UPDATE companies SET
			industry = COALESCE($3, industry),
			description = COALESCE($4, description),
			company_values = COALESCE($5, company_values),
			updated_at = NOW()
		 WHERE id = $1 AND user_id = $2
		 RETURNING `+companyColumns,
		id, userID, p.Industry, p.Description, values,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to update company profile: %w", err)
	}
	return c, nil
}

// DeleteCompany removes a user's company and its contacts in one transaction.
// Returns the deleted record, or nil, nil when nothing matched.
func (db *DB) DeleteCompany(ctx context.Context, userID, id uuid.UUID) (*Company, error) {
	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx,
		`DELETE FROM company_contacts
		 WHERE company_id = (SELECT id FROM companies WHERE id = $1 AND user_id = $2)`,
		id, userID,
	); err != nil {
		return nil, fmt.Errorf("failed to delete company contacts: %w", err)
	}

	c, err := scanCompany(tx.QueryRow(ctx,
		`DELETE FROM companies WHERE id = $1 AND user_id = $2 RETURNING `+companyColumns,
		id, userID,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to delete company: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit delete: %w", err)
	}
	return c, nil
}

// ListCorruptedCompanies returns the IDs of a user's companies that are missing
// a name, a domain or a status.
func (db *DB) ListCorruptedCompanies(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT id FROM companies
		 WHERE user_id = $1
		   AND (NULLIF(TRIM(company_name), '') IS NULL
		     OR NULLIF(TRIM(domain), '') IS NULL
		     OR NULLIF(TRIM(status), '') IS NULL)`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list corrupted companies: %w", err)
	}
	defer rows.Close()

	ids := []uuid.UUID{}
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan company id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
