package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/prospect-analyzer/internal/catalog"
	"github.com/jonathan/prospect-analyzer/internal/db"
	"github.com/jonathan/prospect-analyzer/internal/enrichment"
	"github.com/jonathan/prospect-analyzer/internal/observability"
	"github.com/jonathan/prospect-analyzer/internal/onepager"
	"github.com/jonathan/prospect-analyzer/internal/relay"
	"github.com/jonathan/prospect-analyzer/internal/salesrocks"
	"github.com/jonathan/prospect-analyzer/internal/server/middleware"
	"github.com/jonathan/prospect-analyzer/internal/server/ratelimit"
	"github.com/jonathan/prospect-analyzer/internal/types"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 1 << 20

// CompanyService runs analyses and manages the user's companies.
// *enrichment.Service satisfies it.
type CompanyService interface {
	Analyze(ctx context.Context, req enrichment.AnalyzeRequest, onProgress enrichment.ProgressCallback) (*enrichment.Result, error)
	ListCompanies(ctx context.Context, userID uuid.UUID) ([]db.Company, error)
	GetCompany(ctx context.Context, userID uuid.UUID, rawID string) (*db.Company, error)
	CompanyContacts(ctx context.Context, userID uuid.UUID, rawID string) ([]db.Contact, error)
	UpdateProfile(ctx context.Context, userID uuid.UUID, rawID string, req types.UpdateCompanyProfileRequest) (*db.Company, error)
	DeleteCompany(ctx context.Context, userID uuid.UUID, rawID string) (*db.Company, error)
	CleanupCorruptedRecords(ctx context.Context, userID uuid.UUID) (*enrichment.CleanupResult, error)
}

// ContactService manages contacts. *contacts.Service satisfies it.
type ContactService interface {
	Get(ctx context.Context, userID, contactID uuid.UUID) (*db.Contact, error)
	Update(ctx context.Context, userID, contactID uuid.UUID, fields map[string]any) (*db.Contact, error)
	CreateManual(ctx context.Context, userID uuid.UUID, req types.CreateContactRequest) (*db.Contact, error)
	Search(ctx context.Context, userID uuid.UUID, term string) ([]db.Contact, error)
	Delete(ctx context.Context, userID, contactID uuid.UUID) error
	Stats(ctx context.Context, userID uuid.UUID) (*db.ContactStats, error)
	UpdateNotes(ctx context.Context, userID, contactID uuid.UUID, notes string) (*db.Contact, error)
	UpdateStatus(ctx context.Context, userID, contactID uuid.UUID, status string) (*db.Contact, error)
}

// OnePagerService builds and renders one-pagers. *onepager.Builder satisfies it.
type OnePagerService interface {
	Build(ctx context.Context, userID uuid.UUID, companyID string) (*onepager.OnePager, error)
	HTML(op *onepager.OnePager, preparedBy string) (string, error)
	PDF(ctx context.Context, op *onepager.OnePager, preparedBy string) ([]byte, error)
}

// RelayService invokes provider actions. *relay.Relay satisfies it.
type RelayService interface {
	Invoke(ctx context.Context, userID uuid.UUID, action relay.Action, data json.RawMessage) (any, error)
	TestConnection(ctx context.Context, userID uuid.UUID) (*salesrocks.ConnectionStatus, error)
}

// Deps are the services behind the API. Users and JWT are required for
// the auth routes; a nil service leaves its routes unregistered.
type Deps struct {
	Users     UserStore
	Password  PasswordHasher
	JWT       *JWTService
	Companies CompanyService
	Contacts  ContactService
	Catalog   *catalog.Store
	OnePager  OnePagerService
	Relay     RelayService
	Limiter   *ratelimit.Limiter
	Metrics   *observability.Metrics
	Logger    *zap.Logger
}

// Server represents the HTTP server
type Server struct {
	httpServer  *http.Server
	handler     http.Handler
	rateLimiter *ratelimit.Limiter
	metrics     *observability.Metrics
	logger      *zap.Logger

	authHandler *AuthHandler
	companies   CompanyService
	contacts    ContactService
	catalog     *catalog.Store
	onePager    OnePagerService
	relay       RelayService
}

// Config holds server configuration
type Config struct {
	Port int
}

// New creates a new server instance
func New(cfg Config, deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		rateLimiter: deps.Limiter,
		metrics:     deps.Metrics,
		logger:      logger.Named("http"),
		companies:   deps.Companies,
		contacts:    deps.Contacts,
		catalog:     deps.Catalog,
		onePager:    deps.OnePager,
		relay:       deps.Relay,
	}
	if s.rateLimiter == nil {
		s.rateLimiter = ratelimit.NewLimiter(&ratelimit.Config{Enabled: false})
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	if reg := deps.Metrics.Registry(); reg != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	}

	var auth func(http.Handler) http.Handler
	if deps.JWT != nil {
		auth = middleware.AuthMiddleware(deps.JWT.AsTokenValidator())
		if deps.Users != nil {
			s.authHandler = NewAuthHandler(NewUserService(deps.Users, deps.Password), deps.JWT, s.logger)
			mux.HandleFunc("POST /auth/register", s.authHandler.Register)
			mux.HandleFunc("POST /auth/login", s.authHandler.Login)
			mux.Handle("PUT /auth/password", auth(http.HandlerFunc(s.authHandler.UpdatePassword)))
		}
	}
	protected := func(pattern string, h http.HandlerFunc) {
		if auth == nil {
			return
		}
		mux.Handle(pattern, auth(h))
	}

	if s.companies != nil {
		protected("GET /companies", s.handleListCompanies)
		protected("POST /companies/analyze", s.handleAnalyze)
		protected("POST /companies/analyze/stream", s.handleAnalyzeStream)
		protected("POST /companies/cleanup", s.handleCleanup)
		protected("GET /companies/{id}", s.handleGetCompany)
		protected("PATCH /companies/{id}", s.handleUpdateCompany)
		protected("DELETE /companies/{id}", s.handleDeleteCompany)
		protected("GET /companies/{id}/contacts", s.handleCompanyContacts)
	}
	if s.onePager != nil {
		protected("GET /companies/{id}/onepager", s.handleOnePagerHTML)
		protected("GET /companies/{id}/onepager.pdf", s.handleOnePagerPDF)
	}

	if s.contacts != nil {
		protected("GET /contacts", s.handleSearchContacts)
		protected("POST /contacts", s.handleCreateContact)
		protected("GET /contacts/stats", s.handleContactStats)
		protected("GET /contacts/{id}", s.handleGetContact)
		protected("PUT /contacts/{id}", s.handleUpdateContact)
		protected("DELETE /contacts/{id}", s.handleDeleteContact)
		protected("PUT /contacts/{id}/status", s.handleUpdateContactStatus)
		protected("PUT /contacts/{id}/notes", s.handleUpdateContactNotes)
	}

	if s.catalog != nil {
		protected("GET /catalog/categories", s.handleListCategories)
		protected("POST /catalog/categories", s.handleCreateCategory)
		protected("PUT /catalog/categories/{id}", s.handleUpdateCategory)
		protected("DELETE /catalog/categories/{id}", s.handleDeleteCategory)

		protected("GET /catalog/products", s.handleListProducts)
		protected("POST /catalog/products", s.handleCreateProduct)
		protected("GET /catalog/products/alignment", s.handleProductAlignment)
		protected("GET /catalog/products/{id}", s.handleGetProduct)
		protected("PUT /catalog/products/{id}", s.handleUpdateProduct)
		protected("DELETE /catalog/products/{id}", s.handleDeleteProduct)

		protected("GET /catalog/stories", s.handleListStories)
		protected("POST /catalog/stories", s.handleCreateStory)
		protected("PUT /catalog/stories/{id}", s.handleUpdateStory)
		protected("DELETE /catalog/stories/{id}", s.handleDeleteStory)

		protected("GET /catalog/search-history", s.handleSearchHistory)
		protected("POST /catalog/search-history", s.handleAddSearch)
	}

	if s.relay != nil {
		protected("POST /relay", s.handleRelay)
		protected("GET /provider/status", s.handleProviderStatus)
	}

	s.handler = s.withRateLimit(s.withLogging(s.withCORS(mux)))
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute, // analysis streams stay open for the whole run
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Handler returns the fully wrapped HTTP handler
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Server starting", zap.String("addr", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	s.rateLimiter.Stop()
	s.logger.Info("Server stopped")
	return nil
}

// withCORS adds CORS headers
func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// withRateLimit adds rate limiting middleware
func (s *Server) withRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		allowed, info := s.rateLimiter.Allow(s.extractClientID(r), r.URL.Path, r.Method)
		s.setRateLimitHeaders(w, info)
		if !allowed {
			s.rateLimitResponse(w, r, info)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// statusRecorder captures the response status for logging. It forwards
// Flush so SSE handlers keep working behind the logging middleware.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	if r.status == 0 {
		r.status = code
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.ResponseWriter.Write(b)
}

func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// withLogging adds request logging and metrics
func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w}
		next.ServeHTTP(rec, r)

		status := rec.status
		if status == 0 {
			status = http.StatusOK
		}
		elapsed := time.Since(start)
		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		s.metrics.RecordHTTPRequest(r.Method, route, status, elapsed)
		s.logger.Info("Request completed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", status),
			zap.Duration("elapsed", elapsed),
			zap.String("remote", r.RemoteAddr))
	})
}

// handleHealth returns server health status
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

// jsonResponse writes a JSON response
func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	writeJSON(s.logger, w, status, data)
}

// errorResponse writes an error JSON response
func (s *Server) errorResponse(w http.ResponseWriter, status int, message string) {
	writeJSON(s.logger, w, status, map[string]string{"error": message})
}

// writeError maps err to a status with HTTPStatus and writes it.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	writeErr(s.logger, w, r, err)
}

func writeJSON(logger *zap.Logger, w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("Error encoding JSON response", zap.Error(err))
	}
}

func writeErr(logger *zap.Logger, w http.ResponseWriter, r *http.Request, err error) {
	status := HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		logger.Error("Request failed", zap.String("path", r.URL.Path), zap.Error(err))
	}
	writeJSON(logger, w, status, map[string]string{"error": errorMessage(err)})
}

// decodeJSON reads a size-limited JSON body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return &ErrValidation{Field: "body", Message: "request body is empty"}
		}
		return &ErrValidation{Field: "body", Message: "invalid JSON: " + err.Error()}
	}
	return nil
}

// userID returns the authenticated caller. The auth middleware guarantees it
// on protected routes.
func (s *Server) userID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := middleware.GetUserID(r)
	if err != nil {
		s.errorResponse(w, http.StatusUnauthorized, "Unauthorized")
		return uuid.Nil, false
	}
	return id, true
}

// extractClientID extracts the client identifier from the request.
// X-Forwarded-For is not trusted.
func (s *Server) extractClientID(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// setRateLimitHeaders sets standard rate limit headers on the response.
func (s *Server) setRateLimitHeaders(w http.ResponseWriter, info ratelimit.Info) {
	if info.Limit > 0 {
		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(info.Limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(info.Remaining))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(info.ResetTime.Unix(), 10))
	}
}

// rateLimitResponse writes a 429 Too Many Requests response with rate limit information.
func (s *Server) rateLimitResponse(w http.ResponseWriter, r *http.Request, info ratelimit.Info) {
	response := map[string]any{
		"error":     "rate_limit_exceeded",
		"message":   "Rate limit exceeded. Please try again later.",
		"limit":     info.Limit,
		"remaining": info.Remaining,
		"reset_at":  info.ResetTime.Format(time.RFC3339),
	}

	if info.RetryAfter > 0 {
		secs := int(info.RetryAfter.Seconds())
		response["retry_after"] = secs
		w.Header().Set("Retry-After", strconv.Itoa(secs))
	}

	s.logger.Warn("Rate limit exceeded",
		zap.String("client", s.extractClientID(r)),
		zap.String("path", r.URL.Path),
		zap.Int("limit", info.Limit))

	s.jsonResponse(w, http.StatusTooManyRequests, response)
}
