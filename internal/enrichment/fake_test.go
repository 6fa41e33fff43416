package enrichment

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/prospect-analyzer/internal/db"
	"github.com/jonathan/prospect-analyzer/internal/salesrocks"
)

// memStore is an in-memory Store.
type memStore struct {
	mu        sync.Mutex
	companies map[uuid.UUID]*db.Company
	contacts  map[uuid.UUID][]db.Contact // by company
	seq       int

	createErr   error
	insertErr   error
	listErr     error
	emailErr    map[string]error
	statusCalls []string
	deleteErr   map[uuid.UUID]error
}

func newMemStore() *memStore {
	return &memStore{
		companies: make(map[uuid.UUID]*db.Company),
		contacts:  make(map[uuid.UUID][]db.Contact),
		emailErr:  make(map[string]error),
		deleteErr: make(map[uuid.UUID]error),
	}
}

func (m *memStore) tick() time.Time {
	m.seq++
	return time.Date(2026, 1, 1, 0, 0, m.seq, 0, time.UTC)
}

func (m *memStore) FindLatestCompany(_ context.Context, userID uuid.UUID, domain string) (*db.Company, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var latest *db.Company
	for _, c := range m.companies {
		if c.UserID == userID && c.Domain == domain && (latest == nil || c.CreatedAt.After(latest.CreatedAt)) {
			latest = c
		}
	}
	if latest == nil {
		return nil, nil
	}
	cp := *latest
	return &cp, nil
}

func (m *memStore) CreateCompany(_ context.Context, nc db.NewCompany) (*db.Company, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return nil, m.createErr
	}
	now := m.tick()
	c := &db.Company{
		ID: uuid.New(), UserID: nc.UserID, Domain: nc.Domain, CompanyName: nc.CompanyName,
		WebsiteURL: nc.WebsiteURL, Status: db.CompanyStatusPending, CreatedAt: now, UpdatedAt: now,
	}
	m.companies[c.ID] = c
	cp := *c
	return &cp, nil
}

func (m *memStore) add(c db.Company) *db.Company {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	c.CreatedAt = m.tick()
	m.companies[c.ID] = &c
	cp := c
	return &cp
}

func (m *memStore) GetCompany(_ context.Context, id uuid.UUID) (*db.Company, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.companies[id]
	if !ok {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

func (m *memStore) GetUserCompany(ctx context.Context, userID, id uuid.UUID) (*db.Company, error) {
	c, _ := m.GetCompany(ctx, id)
	if c == nil || c.UserID != userID {
		return nil, nil
	}
	return c, nil
}

func (m *memStore) ListUserCompanies(_ context.Context, userID uuid.UUID) ([]db.Company, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []db.Company{}
	for _, c := range m.companies {
		if c.UserID == userID {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *memStore) UpdateCompanyStatus(_ context.Context, id uuid.UUID, status string, total *int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.companies[id]
	if !ok {
		return errors.New("company not found")
	}
	m.statusCalls = append(m.statusCalls, status)
	c.Status = status
	if total != nil {
		c.TotalContactsFound = *total
	}
	return nil
}

func (m *memStore) UpdateCompanyProfile(_ context.Context, userID, id uuid.UUID, p db.CompanyProfile) (*db.Company, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.companies[id]
	if !ok || c.UserID != userID {
		return nil, nil
	}
	if p.Industry != nil {
		c.Industry = p.Industry
	}
	if p.Description != nil {
		c.Description = p.Description
	}
	if p.Values != nil {
		c.Values = p.Values
	}
	cp := *c
	return &cp, nil
}

func (m *memStore) DeleteCompany(_ context.Context, userID, id uuid.UUID) (*db.Company, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.deleteErr[id]; err != nil {
		return nil, err
	}
	c, ok := m.companies[id]
	if !ok || c.UserID != userID {
		return nil, nil
	}
	delete(m.companies, id)
	delete(m.contacts, id)
	return c, nil
}

func (m *memStore) ListCorruptedCompanies(_ context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := []uuid.UUID{}
	for _, c := range m.companies {
		if c.UserID == userID && (c.CompanyName == "" || c.Domain == "" || c.Status == "") {
			ids = append(ids, c.ID)
		}
	}
	return ids, nil
}

func (m *memStore) InsertContacts(_ context.Context, rows []db.NewContact) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.insertErr != nil {
		return 0, m.insertErr
	}
	n := 0
	for _, r := range rows {
		dup := false
		for _, existing := range m.contacts[r.CompanyID] {
			if existing.LinkedInHandle != nil && r.LinkedInHandle != nil && *existing.LinkedInHandle == *r.LinkedInHandle {
				dup = true
			}
		}
		if dup {
			continue
		}
		m.contacts[r.CompanyID] = append(m.contacts[r.CompanyID], db.Contact{
			ID: uuid.New(), CompanyID: r.CompanyID, FirstName: r.FirstName, LastName: r.LastName,
			FullName: r.FullName, LinkedInHandle: r.LinkedInHandle, ProfileURL: r.ProfileURL,
			Status: r.Status, Source: r.Source, CreatedAt: m.tick(),
		})
		n++
	}
	return n, nil
}

func (m *memStore) UpdateContactEmail(_ context.Context, companyID uuid.UUID, handle, email string, fullName, jobTitle *string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.emailErr[handle]; err != nil {
		return err
	}
	for i, c := range m.contacts[companyID] {
		if c.LinkedInHandle != nil && *c.LinkedInHandle == handle {
			e := email
			m.contacts[companyID][i].Email = &e
			if fullName != nil {
				m.contacts[companyID][i].FullName = fullName
			}
			if jobTitle != nil {
				m.contacts[companyID][i].JobTitle = jobTitle
			}
		}
	}
	return nil
}

func (m *memStore) ListCompanyContacts(_ context.Context, companyID uuid.UUID) ([]db.Contact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	out := append([]db.Contact{}, m.contacts[companyID]...)
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *memStore) company(id uuid.UUID) db.Company {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.companies[id]
}

// fakeSource is a scripted ContactSource.
type fakeSource struct {
	mu        sync.Mutex
	handles   []string
	searchErr error
	emails    map[string]string
	emailErr  map[string]error
	block     chan struct{} // when set, LinkedInHandles waits on it
	started   chan struct{} // closed when LinkedInHandles is entered
	lookups   []string
}

func (f *fakeSource) LinkedInHandles(ctx context.Context, _ uuid.UUID, _ string) ([]string, error) {
	if f.started != nil {
		close(f.started)
	}
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return f.handles, f.searchErr
}

func (f *fakeSource) ContactEmail(_ context.Context, _ uuid.UUID, handle string) (*salesrocks.EmailResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lookups = append(f.lookups, handle)
	if err := f.emailErr[handle]; err != nil {
		return nil, err
	}
	return &salesrocks.EmailResult{Email: f.emails[handle], JobTitle: "Engineer"}, nil
}

// eventLog collects progress events.
type eventLog struct {
	mu     sync.Mutex
	events []ProgressEvent
}

func (l *eventLog) record(ev ProgressEvent) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, ev)
}

func (l *eventLog) steps() []Stage {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Stage, len(l.events))
	for i, ev := range l.events {
		out[i] = ev.Step
	}
	return out
}

func (l *eventLog) last() ProgressEvent {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.events[len(l.events)-1]
}
