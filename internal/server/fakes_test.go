package server

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/prospect-analyzer/internal/db"
	"github.com/jonathan/prospect-analyzer/internal/enrichment"
	"github.com/jonathan/prospect-analyzer/internal/onepager"
	"github.com/jonathan/prospect-analyzer/internal/relay"
	"github.com/jonathan/prospect-analyzer/internal/salesrocks"
	"github.com/jonathan/prospect-analyzer/internal/types"
)

// fakeUserStore keeps users in memory.
type fakeUserStore struct {
	mu    sync.Mutex
	users map[uuid.UUID]*db.User
	err   error
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: map[uuid.UUID]*db.User{}}
}

func (f *fakeUserStore) CheckEmailExists(_ context.Context, email string) (bool, error) {
	u, err := f.GetUserByEmail(context.Background(), email)
	return u != nil, err
}

func (f *fakeUserStore) CreateUser(_ context.Context, name, email, phone string) (uuid.UUID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return uuid.Nil, f.err
	}
	now := time.Now()
	u := &db.User{ID: uuid.New(), Name: name, Email: email, Phone: phone, CreatedAt: now, UpdatedAt: now}
	f.users[u.ID] = u
	return u.ID, nil
}

func (f *fakeUserStore) GetUser(_ context.Context, id uuid.UUID) (*db.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	u, ok := f.users[id]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUserStore) GetUserByEmail(_ context.Context, email string) (*db.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	for _, u := range f.users {
		if strings.EqualFold(u.Email, email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeUserStore) UpdatePassword(_ context.Context, userID uuid.UUID, hash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[userID]
	if !ok {
		return errors.New("no such user")
	}
	u.PasswordHash = hash
	u.PasswordSet = true
	return nil
}

// fakeCompanies is a CompanyService over a fixed company list.
type fakeCompanies struct {
	mu        sync.Mutex
	companies []db.Company
	contacts  map[uuid.UUID][]db.Contact
	events    []enrichment.ProgressEvent
	analyzed  []enrichment.AnalyzeRequest
	err       error
}

func (f *fakeCompanies) Analyze(_ context.Context, req enrichment.AnalyzeRequest, cb enrichment.ProgressCallback) (*enrichment.Result, error) {
	f.mu.Lock()
	f.analyzed = append(f.analyzed, req)
	f.mu.Unlock()
	for _, ev := range f.events {
		if cb != nil {
			cb(ev)
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	c := db.Company{ID: uuid.New(), UserID: req.UserID, Domain: req.Domain, CompanyName: "Acme", Status: db.CompanyStatusCompleted}
	return &enrichment.Result{Company: &c, Contacts: []db.Contact{}, EmailsFound: 0}, nil
}

func (f *fakeCompanies) ListCompanies(_ context.Context, userID uuid.UUID) ([]db.Company, error) {
	var out []db.Company
	for _, c := range f.companies {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeCompanies) GetCompany(_ context.Context, userID uuid.UUID, rawID string) (*db.Company, error) {
	id, err := enrichment.ParseID("company_id", rawID)
	if err != nil {
		return nil, err
	}
	for i := range f.companies {
		if c := f.companies[i]; c.ID == id && c.UserID == userID {
			return &c, nil
		}
	}
	return nil, &types.NotFoundError{Resource: "company", ID: rawID}
}

func (f *fakeCompanies) CompanyContacts(ctx context.Context, userID uuid.UUID, rawID string) ([]db.Contact, error) {
	c, err := f.GetCompany(ctx, userID, rawID)
	if err != nil {
		return nil, err
	}
	return f.contacts[c.ID], nil
}

func (f *fakeCompanies) UpdateProfile(ctx context.Context, userID uuid.UUID, rawID string, req types.UpdateCompanyProfileRequest) (*db.Company, error) {
	c, err := f.GetCompany(ctx, userID, rawID)
	if err != nil {
		return nil, err
	}
	if req.Industry != nil {
		c.Industry = req.Industry
	}
	if req.Values != nil {
		c.Values = req.Values
	}
	return c, nil
}

func (f *fakeCompanies) DeleteCompany(ctx context.Context, userID uuid.UUID, rawID string) (*db.Company, error) {
	return f.GetCompany(ctx, userID, rawID)
}

func (f *fakeCompanies) CleanupCorruptedRecords(context.Context, uuid.UUID) (*enrichment.CleanupResult, error) {
	return &enrichment.CleanupResult{DeletedCount: 2, Errors: []string{}}, nil
}

// fakeContacts records the last call.
type fakeContacts struct {
	contact *db.Contact
	err     error
	term    string
	fields  map[string]any
	status  string
	notes   string
	deleted uuid.UUID
	created types.CreateContactRequest
}

func (f *fakeContacts) result() (*db.Contact, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.contact, nil
}

func (f *fakeContacts) Get(context.Context, uuid.UUID, uuid.UUID) (*db.Contact, error) {
	return f.result()
}

func (f *fakeContacts) Update(_ context.Context, _, _ uuid.UUID, fields map[string]any) (*db.Contact, error) {
	f.fields = fields
	return f.result()
}

func (f *fakeContacts) CreateManual(_ context.Context, _ uuid.UUID, req types.CreateContactRequest) (*db.Contact, error) {
	f.created = req
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return f.result()
}

func (f *fakeContacts) Search(_ context.Context, _ uuid.UUID, term string) ([]db.Contact, error) {
	f.term = term
	if f.contact == nil {
		return []db.Contact{}, f.err
	}
	return []db.Contact{*f.contact}, f.err
}

func (f *fakeContacts) Delete(_ context.Context, _, id uuid.UUID) error {
	f.deleted = id
	return f.err
}

func (f *fakeContacts) Stats(context.Context, uuid.UUID) (*db.ContactStats, error) {
	return &db.ContactStats{Total: 3, WithEmail: 1, ByStatus: map[string]int{"not_contacted": 3}}, f.err
}

func (f *fakeContacts) UpdateNotes(_ context.Context, _, _ uuid.UUID, notes string) (*db.Contact, error) {
	f.notes = notes
	return f.result()
}

func (f *fakeContacts) UpdateStatus(_ context.Context, _, _ uuid.UUID, status string) (*db.Contact, error) {
	f.status = status
	return f.result()
}

// fakeOnePager renders fixed output.
type fakeOnePager struct {
	companies *fakeCompanies
	pdfErr    error
}

func (f *fakeOnePager) Build(ctx context.Context, userID uuid.UUID, companyID string) (*onepager.OnePager, error) {
	c, err := f.companies.GetCompany(ctx, userID, companyID)
	if err != nil {
		return nil, err
	}
	return &onepager.OnePager{Company: c}, nil
}

func (f *fakeOnePager) HTML(op *onepager.OnePager, preparedBy string) (string, error) {
	return "<h1>" + op.Company.CompanyName + "</h1><p>" + preparedBy + "</p>", nil
}

func (f *fakeOnePager) PDF(context.Context, *onepager.OnePager, string) ([]byte, error) {
	if f.pdfErr != nil {
		return nil, f.pdfErr
	}
	return []byte("%PDF-1.4 fake"), nil
}

// fakeRelay answers every action with its name.
type fakeRelay struct {
	action relay.Action
	data   json.RawMessage
	err    error
}

func (f *fakeRelay) Invoke(_ context.Context, _ uuid.UUID, action relay.Action, data json.RawMessage) (any, error) {
	f.action, f.data = action, data
	if f.err != nil {
		return nil, f.err
	}
	return map[string]string{"action": string(action)}, nil
}

func (f *fakeRelay) TestConnection(context.Context, uuid.UUID) (*salesrocks.ConnectionStatus, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &salesrocks.ConnectionStatus{Connected: true, Message: "Successfully connected to Sales.rocks API", TokenReceived: true}, nil
}
