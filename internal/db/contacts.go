package db

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// -----------------------------------------------------------------------------
// Contact Methods
// -----------------------------------------------------------------------------

const contactColumns = `ct.id, ct.company_id, ct.first_name, ct.last_name, ct.full_name, ct.job_title,
	ct.email, ct.phone, ct.linkedin_handle, ct.profile_url, ct.status, ct.notes, ct.source,
	ct.email_found_at, ct.created_at, ct.updated_at`

const contactJoinColumns = contactColumns + `, c.company_name, c.domain, c.website_url`

func scanContact(row pgx.Row, joined bool) (*Contact, error) {
	var ct Contact
	dest := []any{
		&ct.ID, &ct.CompanyID, &ct.FirstName, &ct.LastName, &ct.FullName, &ct.JobTitle,
		&ct.Email, &ct.Phone, &ct.LinkedInHandle, &ct.ProfileURL, &ct.Status, &ct.Notes, &ct.Source,
		&ct.EmailFoundAt, &ct.CreatedAt, &ct.UpdatedAt,
	}
	if joined {
		dest = append(dest, &ct.CompanyName, &ct.CompanyDomain, &ct.CompanyWebsite)
	}
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	ct.computeDisplayName()
	return &ct, nil
}

func collectContacts(rows pgx.Rows, joined bool) ([]Contact, error) {
	defer rows.Close()
	contacts := []Contact{}
	for rows.Next() {
		ct, err := scanContact(rows, joined)
		if err != nil {
			return nil, fmt.Errorf("failed to scan contact: %w", err)
		}
		contacts = append(contacts, *ct)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read contacts: %w", err)
	}
	return contacts, nil
}

// InsertContacts inserts contacts in one batch. Rows whose (company, handle)
// already exists are skipped. Returns the number of rows inserted.
func (db *DB) InsertContacts(ctx context.Context, contacts []NewContact) (int, error) {
	if len(contacts) == 0 {
		return 0, nil
	}

	batch := &pgx.Batch{}
	for _, nc := range contacts {
		batch.Queue(
			`INSERT INTO company_contacts
				(company_id, first_name, last_name, full_name, job_title, email, phone,
				 linkedin_handle, profile_url, status, notes, source)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
			 ON CONFLICT (company_id, linkedin_handle) DO NOTHING`,
			nc.CompanyID, nc.FirstName, nc.LastName, nc.FullName, nc.JobTitle, nc.Email, nc.Phone,
			nc.LinkedInHandle, nc.ProfileURL, defaultString(nc.Status, ContactStatusNotContacted),
			nc.Notes, defaultString(nc.Source, ContactSourceEnrichment),
		)
	}

	results := db.pool.SendBatch(ctx, batch)
	defer func() { _ = results.Close() }()

	inserted := 0
	for range contacts {
		tag, err := results.Exec()
		if err != nil {
			return inserted, fmt.Errorf("failed to insert contacts: %w", err)
		}
		inserted += int(tag.RowsAffected())
	}
	return inserted, nil
}

// CreateContact inserts a single contact and returns it joined with its company
func (db *DB) CreateContact(ctx context.Context, nc NewContact) (*Contact, error) {
	var id uuid.UUID
	err := db.pool.QueryRow(ctx,
		`INSERT INTO company_contacts
			(company_id, first_name, last_name, full_name, job_title, email, phone,
			 linkedin_handle, profile_url, status, notes, source)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		 RETURNING id`,
		nc.CompanyID, nc.FirstName, nc.LastName, nc.FullName, nc.JobTitle, nc.Email, nc.Phone,
		nc.LinkedInHandle, nc.ProfileURL, defaultString(nc.Status, ContactStatusNotContacted),
		nc.Notes, defaultString(nc.Source, ContactSourceManual),
	).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("failed to create contact: %w", ErrDuplicateContact)
		}
		return nil, fmt.Errorf("failed to create contact: %w", err)
	}
	return db.getContact(ctx, id)
}

// UpdateContactEmail records the email found for a handle. Full name and job
// title are only overwritten when provided.
func (db *DB) UpdateContactEmail(ctx context.Context, companyID uuid.UUID, handle, email string, fullName, jobTitle *string) error {
	_, err := db.pool.Exec(ctx,
		`UPDATE company_contacts SET
			email = $3,
			full_name = COALESCE(NULLIF($4, ''), full_name),
			job_title = COALESCE(NULLIF($5, ''), job_title),
			email_found_at = NOW(),
			updated_at = NOW()
		 WHERE company_id = $1 AND linkedin_handle = $2`,
		companyID, handle, email, fullName, jobTitle,
	)
	if err != nil {
		return fmt.Errorf("failed to update contact email: %w", err)
	}
	return nil
}

// ListCompanyContacts returns the contacts of a company, newest first
func (db *DB) ListCompanyContacts(ctx context.Context, companyID uuid.UUID) ([]Contact, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT `+contactColumns+` FROM company_contacts ct
		 WHERE ct.company_id = $1
		 ORDER BY ct.created_at DESC, ct.id`,
		companyID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list contacts: %w", err)
	}
	return collectContacts(rows, false)
}

func (db *DB) getContact(ctx context.Context, id uuid.UUID) (*Contact, error) {
	ct, err := scanContact(db.pool.QueryRow(ctx,
		`SELECT `+contactJoinColumns+` FROM company_contacts ct
		 JOIN companies c ON c.id = ct.company_id
		 WHERE ct.id = $1`, id), true)
	if err != nil {
		return nil, fmt.Errorf("failed to get contact: %w", err)
	}
	return ct, nil
}

// GetUserContact retrieves a contact whose company belongs to userID.
// Returns nil, nil when not found.
func (db *DB) GetUserContact(ctx context.Context, userID, contactID uuid.UUID) (*Contact, error) {
	ct, err := scanContact(db.pool.QueryRow(ctx,
		`SELECT `+contactJoinColumns+` FROM company_contacts ct
		 JOIN companies c ON c.id = ct.company_id
		 WHERE ct.id = $1 AND c.user_id = $2`,
		contactID, userID,
	), true)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get contact: %w", err)
	}
	return ct, nil
}

// UpdateContactFields applies a partial update to a user's contact. Keys that
// are not in ContactUpdatableFields are ignored. Returns nil, nil when the
// contact is not found.
func (db *DB) UpdateContactFields(ctx context.Context, userID, contactID uuid.UUID, fields map[string]any) (*Contact, error) {
	var sets []string
	args := []any{contactID, userID}
	for _, col := range ContactUpdatableFields {
		v, ok := fields[col]
		if !ok {
			continue
		}
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	if len(sets) == 0 {
		return db.GetUserContact(ctx, userID, contactID)
	}
	sets = append(sets, "updated_at = NOW()")

	var id uuid.UUID
	err := db.pool.QueryRow(ctx,
		`UPDATE company_contacts ct SET `+strings.Join(sets, ", ")+`
		 FROM companies c
		 WHERE ct.id = $1 AND c.id = ct.company_id AND c.user_id = $2
		 RETURNING ct.id`,
		args...,
	).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("failed to update contact: %w", ErrDuplicateContact)
		}
		return nil, fmt.Errorf("failed to update contact: %w", err)
	}
	return db.getContact(ctx, id)
}

// SearchContacts matches a user's contacts by name, email, job title or
// company name, case-insensitively. An empty term returns the newest contacts.
func (db *DB) SearchContacts(ctx context.Context, userID uuid.UUID, term string, limit int) ([]Contact, error) {
	pattern := "%" + escapeLike(term) + "%"
	rows, err := db.pool.Query(ctx,
		`SELECT `+contactJoinColumns+` FROM company_contacts ct
		 JOIN companies c ON c.id = ct.company_id
		 WHERE c.user_id = $1
		   AND ($2 = '' OR ct.full_name ILIKE $3 OR ct.first_name ILIKE $3 OR ct.last_name ILIKE $3
		        OR ct.email ILIKE $3 OR ct.job_title ILIKE $3 OR c.company_name ILIKE $3)
		 ORDER BY ct.created_at DESC
		 LIMIT $4`,
		userID, term, pattern, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to search contacts: %w", err)
	}
	return collectContacts(rows, true)
}

// DeleteContact removes a user's contact. Returns false when nothing matched.
func (db *DB) DeleteContact(ctx context.Context, userID, contactID uuid.UUID) (bool, error) {
	tag, err := db.pool.Exec(ctx,
		`DELETE FROM company_contacts ct
		 USING companies c
		 WHERE ct.id = $1 AND c.id = ct.company_id AND c.user_id = $2`,
		contactID, userID,
	)
	if err != nil {
		return false, fmt.Errorf("failed to delete contact: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// GetContactStats counts a user's contacts overall, with email and per status.
// Statuses outside ContactStatuses are not reported.
func (db *DB) GetContactStats(ctx context.Context, userID uuid.UUID) (*ContactStats, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT ct.status, COUNT(*), COUNT(NULLIF(ct.email, ''))
		 FROM company_contacts ct
		 JOIN companies c ON c.id = ct.company_id
		 WHERE c.user_id = $1
		 GROUP BY ct.status`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get contact stats: %w", err)
	}
	defer rows.Close()

	stats := &ContactStats{ByStatus: make(map[string]int, len(ContactStatuses))}
	for _, s := range ContactStatuses {
		stats.ByStatus[s] = 0
	}
	for rows.Next() {
		var status string
		var total, withEmail int
		if err := rows.Scan(&status, &total, &withEmail); err != nil {
			return nil, fmt.Errorf("failed to scan contact stats: %w", err)
		}
		stats.Total += total
		stats.WithEmail += withEmail
		if IsValidContactStatus(status) {
			stats.ByStatus[status] = total
		}
	}
	return stats, rows.Err()
}

func defaultString(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
