package server

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/prospect-analyzer/internal/catalog"
	"github.com/jonathan/prospect-analyzer/internal/db"
	"github.com/jonathan/prospect-analyzer/internal/enrichment"
	"github.com/jonathan/prospect-analyzer/internal/observability"
	"github.com/jonathan/prospect-analyzer/internal/onepager"
	"github.com/jonathan/prospect-analyzer/internal/relay"
	"github.com/jonathan/prospect-analyzer/internal/server/ratelimit"
	"github.com/jonathan/prospect-analyzer/internal/types"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	handler   http.Handler
	jwt       *JWTService
	users     *fakeUserStore
	companies *fakeCompanies
	contacts  *fakeContacts
	catalog   *catalog.Store
	onePager  *fakeOnePager
	relay     *fakeRelay
	userID    uuid.UUID
	token     string
	company   db.Company
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		jwt:     setupTestJWTService(t, 24),
		users:   newFakeUserStore(),
		catalog: catalog.NewStore(),
		relay:   &fakeRelay{},
		userID:  uuid.New(),
	}
	industry := "Healthcare"
	env.company = db.Company{
		ID:          uuid.New(),
		UserID:      env.userID,
		Domain:      "acmehealth.com",
		CompanyName: "Acme Health",
		Industry:    &industry,
		Values:      db.StringArray{"encryption"},
		Status:      db.CompanyStatusCompleted,
	}
	env.companies = &fakeCompanies{
		companies: []db.Company{env.company},
		contacts:  map[uuid.UUID][]db.Contact{env.company.ID: {{ID: uuid.New(), CompanyID: env.company.ID}}},
	}
	env.contacts = &fakeContacts{contact: &db.Contact{ID: uuid.New(), CompanyID: env.company.ID, Status: db.ContactStatusNotContacted}}
	env.onePager = &fakeOnePager{companies: env.companies}

	metrics, err := observability.NewMetrics(prometheus.NewRegistry())
	require.NoError(t, err)

	srv := New(Config{Port: 0}, Deps{
		Users:     env.users,
		Password:  testPasswordConfig(),
		JWT:       env.jwt,
		Companies: env.companies,
		Contacts:  env.contacts,
		Catalog:   env.catalog,
		OnePager:  env.onePager,
		Relay:     env.relay,
		Metrics:   metrics,
	})
	env.handler = srv.Handler()

	env.token, err = env.jwt.GenerateToken(env.userID)
	require.NoError(t, err)
	return env
}

// do sends an authenticated request; body may be a string or a value to encode.
func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	return e.send(t, method, path, body, e.token)
}

func (e *testEnv) send(t *testing.T, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		r = strings.NewReader(b)
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		r = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.handler.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestHealthEndpoint(t *testing.T) {
	env := newTestEnv(t)
	w := env.send(t, http.MethodGet, "/health", nil, "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t)
	env.send(t, http.MethodGet, "/health", nil, "")

	w := env.send(t, http.MethodGet, "/metrics", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `prospector_http_requests_total{method="GET",path="GET /health",status_code="200"} 1`)
}

func TestCORSMiddleware(t *testing.T) {
	env := newTestEnv(t)

	w := env.send(t, http.MethodOptions, "/companies", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Headers"), "Authorization")
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), "PATCH")
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	env := newTestEnv(t)
	routes := []struct{ method, path string }{
		{http.MethodGet, "/companies"},
		{http.MethodPost, "/companies/analyze"},
		{http.MethodGet, "/companies/" + env.company.ID.String() + "/onepager"},
		{http.MethodGet, "/contacts"},
		{http.MethodGet, "/catalog/products"},
		{http.MethodPost, "/relay"},
		{http.MethodPut, "/auth/password"},
	}
	for _, rt := range routes {
		t.Run(rt.method+" "+rt.path, func(t *testing.T) {
			w := env.send(t, rt.method, rt.path, nil, "")
			assert.Equal(t, http.StatusUnauthorized, w.Code)

			w = env.send(t, rt.method, rt.path, nil, "not-a-jwt")
			assert.Equal(t, http.StatusUnauthorized, w.Code)
		})
	}
}

func TestAuthFlow(t *testing.T) {
	env := newTestEnv(t)

	w := env.send(t, http.MethodPost, "/auth/register", map[string]string{
		"name": "Jordan", "email": "jordan@example.com", "password": "password123",
	}, "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	reg := decode[types.LoginResponse](t, w)
	assert.Equal(t, "jordan@example.com", reg.User.Email)
	assert.NotEmpty(t, reg.Token)

	w = env.send(t, http.MethodPost, "/auth/register", map[string]string{
		"name": "Jordan", "email": "jordan@example.com", "password": "password123",
	}, "")
	assert.Equal(t, http.StatusConflict, w.Code)

	w = env.send(t, http.MethodPost, "/auth/login", map[string]string{"email": "jordan@example.com", "password": "wrong-pass"}, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `{"error":"invalid email or password"}`, w.Body.String())

	w = env.send(t, http.MethodPost, "/auth/login", map[string]string{"email": "jordan@example.com", "password": "password123"}, "")
	require.Equal(t, http.StatusOK, w.Code)
	login := decode[types.LoginResponse](t, w)

	w = env.send(t, http.MethodPut, "/auth/password", map[string]string{
		"current_password": "password123", "new_password": "password456",
	}, login.Token)
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = env.send(t, http.MethodPost, "/auth/login", map[string]string{"email": "jordan@example.com", "password": "password456"}, "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAuthValidation(t *testing.T) {
	env := newTestEnv(t)
	tests := []struct {
		name string
		path string
		body any
	}{
		{"invalid json", "/auth/register", "invalid json"},
		{"empty body", "/auth/register", ""},
		{"missing name", "/auth/register", map[string]string{"email": "a@example.com", "password": "password123"}},
		{"invalid email", "/auth/register", map[string]string{"name": "A", "email": "nope", "password": "password123"}},
		{"short password", "/auth/register", map[string]string{"name": "A", "email": "a@example.com", "password": "short"}},
		{"login without password", "/auth/login", map[string]string{"email": "a@example.com"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.send(t, http.MethodPost, tt.path, tt.body, "")
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Contains(t, w.Body.String(), "validation error")
		})
	}
}

func TestCompanyRoutes(t *testing.T) {
	env := newTestEnv(t)
	id := env.company.ID.String()

	w := env.do(t, http.MethodGet, "/companies", nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[struct {
		Companies []db.Company `json:"companies"`
		Count     int          `json:"count"`
	}](t, w)
	assert.Equal(t, 1, list.Count)

	w = env.do(t, http.MethodGet, "/companies/"+id, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Acme Health", decode[db.Company](t, w).CompanyName)

	w = env.do(t, http.MethodGet, "/companies/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodGet, "/companies/"+uuid.NewString(), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(t, http.MethodGet, "/companies/"+id+"/contacts", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"count":1`)

	w = env.do(t, http.MethodPatch, "/companies/"+id, map[string]any{"industry": "Finance", "values": []string{"trust"}})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Finance", *decode[db.Company](t, w).Industry)

	w = env.do(t, http.MethodPatch, "/companies/"+id, map[string]any{"values": []string{""}})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodDelete, "/companies/"+id, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, http.MethodPost, "/companies/cleanup", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"deleted_count":2,"errors":[]}`, w.Body.String())
}

func TestCompaniesAreUserScoped(t *testing.T) {
	env := newTestEnv(t)
	other, err := env.jwt.GenerateToken(uuid.New())
	require.NoError(t, err)

	w := env.send(t, http.MethodGet, "/companies/"+env.company.ID.String(), nil, other)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.send(t, http.MethodGet, "/companies", nil, other)
	assert.Contains(t, w.Body.String(), `"count":0`)
}

func TestAnalyze(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/companies/analyze", map[string]string{"domain": "https://www.acme.com/about"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	res := decode[enrichment.Result](t, w)
	assert.Equal(t, "Acme", res.Company.CompanyName)
	require.Len(t, env.companies.analyzed, 1)
	assert.Equal(t, env.userID, env.companies.analyzed[0].UserID)
	assert.Equal(t, "https://www.acme.com/about", env.companies.analyzed[0].Domain)

	w = env.do(t, http.MethodPost, "/companies/analyze", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodPost, "/companies/analyze", map[string]string{"domain": "acme.com", "website_url": "not a url"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	env.companies.err = types.ErrAnalysisInProgress
	w = env.do(t, http.MethodPost, "/companies/analyze", map[string]string{"domain": "acme.com"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.JSONEq(t, `{"error":"analysis already in progress for this company"}`, w.Body.String())
}

// sseEvents parses an event stream into (event, data) pairs.
func sseEvents(t *testing.T, body string) [][2]string {
	t.Helper()
	var events [][2]string
	var name string
	sc := bufio.NewScanner(strings.NewReader(body))
	for sc.Scan() {
		line := sc.Text()
		switch {
		case strings.HasPrefix(line, "event: "):
			name = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			events = append(events, [2]string{name, strings.TrimPrefix(line, "data: ")})
		}
	}
	return events
}

func TestAnalyzeStream(t *testing.T) {
	env := newTestEnv(t)
	env.companies.events = []enrichment.ProgressEvent{
		{Step: enrichment.StageCreating, Message: "Creating company record..."},
		{Step: enrichment.StageSearching, Message: "Searching for LinkedIn contacts..."},
		{Step: enrichment.StageCompleted, Message: "Analysis completed! Found 0 contacts with 0 emails."},
	}

	w := env.do(t, http.MethodPost, "/companies/analyze/stream", map[string]string{"domain": "acme.com"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))

	events := sseEvents(t, w.Body.String())
	require.Len(t, events, 4)
	for i := 0; i < 3; i++ {
		assert.Equal(t, "progress", events[i][0])
	}
	assert.Contains(t, events[1][1], `"step":"searching"`)
	assert.Equal(t, "complete", events[3][0])
	assert.Contains(t, events[3][1], `"company_name":"Acme"`)
}

func TestAnalyzeStream_Failure(t *testing.T) {
	env := newTestEnv(t)
	env.companies.events = []enrichment.ProgressEvent{
		{Step: enrichment.StageCreating, Message: "Creating company record..."},
		{Step: enrichment.StageError, Message: "Analysis failed: provider down", Error: "provider down"},
	}
	env.companies.err = errors.New("provider down")

	w := env.do(t, http.MethodPost, "/companies/analyze/stream", map[string]string{"domain": "acme.com"})
	events := sseEvents(t, w.Body.String())
	require.Len(t, events, 3)
	assert.Equal(t, "error", events[2][0])
	assert.JSONEq(t, `{"error":"provider down"}`, events[2][1])
}

func TestAnalyzeStream_RejectedBeforeStart(t *testing.T) {
	env := newTestEnv(t)
	env.companies.err = types.ErrAnalysisInProgress

	w := env.do(t, http.MethodPost, "/companies/analyze/stream", map[string]string{"domain": "acme.com"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
}

func TestContactRoutes(t *testing.T) {
	env := newTestEnv(t)
	cid := env.contacts.contact.ID.String()

	w := env.do(t, http.MethodGet, "/contacts?q=%20jane%20", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, " jane ", env.contacts.term)
	assert.Contains(t, w.Body.String(), `"count":1`)

	w = env.do(t, http.MethodGet, "/contacts/stats", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"with_email":1`)

	w = env.do(t, http.MethodGet, "/contacts/"+cid, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, http.MethodGet, "/contacts/12345", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodPut, "/contacts/"+cid, map[string]any{"job_title": "CTO", "password": "x"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, map[string]any{"job_title": "CTO", "password": "x"}, env.contacts.fields)

	w = env.do(t, http.MethodPut, "/contacts/"+cid+"/status", map[string]string{"status": "contacted"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "contacted", env.contacts.status)

	w = env.do(t, http.MethodPut, "/contacts/"+cid+"/status", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodPut, "/contacts/"+cid+"/notes", map[string]string{"notes": "Met at conference"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Met at conference", env.contacts.notes)

	w = env.do(t, http.MethodDelete, "/contacts/"+cid, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, env.contacts.contact.ID, env.contacts.deleted)

	env.contacts.err = &types.NotFoundError{Resource: "contact", ID: cid}
	w = env.do(t, http.MethodDelete, "/contacts/"+cid, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCreateContact(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/contacts", map[string]string{
		"company_id": env.company.ID.String(), "full_name": "Jane Roe", "email": "jane@acme.com",
	})
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "Jane Roe", env.contacts.created.FullName)

	w = env.do(t, http.MethodPost, "/contacts", map[string]string{"company_id": env.company.ID.String()})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "At least one name field is required")
}

func TestCatalogRoutes(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/catalog/categories", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Consulting Services")

	w = env.do(t, http.MethodPost, "/catalog/categories", map[string]string{"name": "Security"})
	require.Equal(t, http.StatusCreated, w.Code)
	created := decode[catalog.Category](t, w)
	assert.Equal(t, 4, created.ID)

	w = env.do(t, http.MethodPut, "/catalog/categories/4", map[string]string{"name": "Cyber Security"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Cyber Security", decode[catalog.Category](t, w).Name)

	w = env.do(t, http.MethodPost, "/catalog/categories", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodDelete, "/catalog/categories/4", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = env.do(t, http.MethodDelete, "/catalog/categories/4", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = env.do(t, http.MethodDelete, "/catalog/categories/abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodPost, "/catalog/products", catalog.Product{
		Name: "ShieldDB", TargetIndustries: []string{"Finance"}, KeyFeatures: []string{"Audit trails"},
	})
	require.Equal(t, http.StatusCreated, w.Code)
	product := decode[catalog.Product](t, w)

	w = env.do(t, http.MethodGet, "/catalog/products/"+strconv.Itoa(product.ID), nil)
	assert.Equal(t, http.StatusOK, w.Code)

	product.Pricing = "$99/month"
	w = env.do(t, http.MethodPut, "/catalog/products/"+strconv.Itoa(product.ID), product)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "$99/month", decode[catalog.Product](t, w).Pricing)

	w = env.do(t, http.MethodGet, "/catalog/products", nil)
	assert.Contains(t, w.Body.String(), "ShieldDB")

	w = env.do(t, http.MethodPost, "/catalog/stories", catalog.SuccessStory{CompanyName: "FinCorp", Industry: "Finance"})
	require.Equal(t, http.StatusCreated, w.Code)
	story := decode[catalog.SuccessStory](t, w)

	story.Results = "30% faster audits"
	w = env.do(t, http.MethodPut, "/catalog/stories/"+strconv.Itoa(story.ID), story)
	assert.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, http.MethodGet, "/catalog/stories", nil)
	assert.Contains(t, w.Body.String(), "30% faster audits")

	w = env.do(t, http.MethodDelete, "/catalog/stories/"+strconv.Itoa(story.ID), nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = env.do(t, http.MethodDelete, "/catalog/products/"+strconv.Itoa(product.ID), nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestSearchHistoryRoutes(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/catalog/search-history", map[string]any{"query": "healthcare saas", "results": 12})
	assert.Equal(t, http.StatusCreated, w.Code)

	w = env.do(t, http.MethodPost, "/catalog/search-history", map[string]any{"results": 1})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodGet, "/catalog/search-history", nil)
	require.Equal(t, http.StatusOK, w.Code)
	hist := decode[struct {
		Searches []catalog.SearchEntry `json:"searches"`
	}](t, w)
	require.Len(t, hist.Searches, 1)
	assert.Equal(t, "healthcare saas", hist.Searches[0].Query)
	assert.Equal(t, 12, hist.Searches[0].Results)
}

func TestProductAlignment(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/catalog/products/alignment?company_id="+env.company.ID.String(), nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	res := decode[struct {
		Alignments []catalog.ProductAlignment `json:"alignments"`
	}](t, w)
	require.Len(t, res.Alignments, 1)
	assert.Equal(t, "CloudSync Pro", res.Alignments[0].Product.Name)
	assert.Equal(t, 70, res.Alignments[0].Score)

	w = env.do(t, http.MethodGet, "/catalog/products/alignment", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestOnePagerRoutes(t *testing.T) {
	env := newTestEnv(t)
	base := "/companies/" + env.company.ID.String() + "/onepager"

	w := env.do(t, http.MethodGet, base+"?prepared_by=Jordan", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/html; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Equal(t, "<h1>Acme Health</h1><p>Jordan</p>", w.Body.String())

	w = env.do(t, http.MethodGet, base+"?format=json", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Acme Health", decode[onepager.OnePager](t, w).Company.CompanyName)

	w = env.do(t, http.MethodGet, base+".pdf", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="Acme-Health-sales-onepager.pdf"`, w.Header().Get("Content-Disposition"))
	assert.True(t, strings.HasPrefix(w.Body.String(), "%PDF"))

	env.onePager.pdfErr = onepager.ErrPDFUnavailable
	w = env.do(t, http.MethodGet, base+".pdf", nil)
	assert.Equal(t, http.StatusNotImplemented, w.Code)

	w = env.do(t, http.MethodGet, "/companies/"+uuid.NewString()+"/onepager", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRelayRoutes(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/relay", map[string]any{"action": "getLinkedInContacts", "data": map[string]string{"domain": "acme.com"}})
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":true,"data":{"action":"getLinkedInContacts"}}`, w.Body.String())
	assert.Equal(t, relay.ActionGetLinkedInContacts, env.relay.action)
	assert.JSONEq(t, `{"domain":"acme.com"}`, string(env.relay.data))

	w = env.do(t, http.MethodPost, "/relay", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), `"success":false`)

	env.relay.err = &relay.InvalidActionError{Action: "explode"}
	w = env.do(t, http.MethodPost, "/relay", map[string]any{"action": "explode"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"success":false,"error":"Invalid action: explode"}`, w.Body.String())

	env.relay.err = errors.New("Authentication failed: 401 Unauthorized - bad creds")
	w = env.do(t, http.MethodPost, "/relay", map[string]any{"action": "authenticate"})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "Authentication failed: 401")

	env.relay.err = nil
	w = env.do(t, http.MethodGet, "/provider/status", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"connected":true`)
}

func TestRateLimitMiddleware(t *testing.T) {
	limiter := ratelimit.NewLimiter(&ratelimit.Config{
		Enabled:       true,
		DefaultLimit:  2,
		DefaultWindow: time.Minute,
	})
	defer limiter.Stop()
	srv := New(Config{}, Deps{Limiter: limiter})

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodGet, "/nothing-here", nil)
		w := httptest.NewRecorder()
		srv.Handler().ServeHTTP(w, req)
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, "2", w.Header().Get("X-RateLimit-Limit"))
	}

	req := httptest.NewRequest(http.MethodGet, "/nothing-here", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
	assert.Contains(t, w.Body.String(), "rate_limit_exceeded")

	// Health stays reachable
	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	w = httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestSSEWriter(t *testing.T) {
	w := httptest.NewRecorder()
	sse, err := NewSSEWriter(w)
	require.NoError(t, err)

	require.NoError(t, sse.WriteEvent("progress", map[string]string{"step": "creating"}))
	sse.WriteError("boom")

	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))
	assert.Equal(t, "event: progress\ndata: {\"step\":\"creating\"}\n\nevent: error\ndata: {\"error\":\"boom\"}\n\n", w.Body.String())
}

type noFlushWriter struct{ http.ResponseWriter }

func TestSSEWriter_RequiresFlusher(t *testing.T) {
	_, err := NewSSEWriter(noFlushWriter{httptest.NewRecorder()})
	assert.Error(t, err)
}
