package enrichment

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/prospect-analyzer/internal/db"
	"github.com/jonathan/prospect-analyzer/internal/salesrocks"
	"github.com/jonathan/prospect-analyzer/internal/types"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Stage names a step of an analysis run
type Stage string

// Analysis stages, in order. A run ends with StageCompleted or StageError.
const (
	StageCreating  Stage = "creating"
	StageSearching Stage = "searching"
	StageSaving    Stage = "saving"
	StageEmails    Stage = "emails"
	StageCompleted Stage = "completed"
	StageError     Stage = "error"
)

// ProgressEvent represents a progress update during an analysis run
type ProgressEvent struct {
	Step            Stage        `json:"step"`
	Message         string       `json:"message"`
	Company         *db.Company  `json:"company,omitempty"`
	Contacts        []db.Contact `json:"contacts,omitempty"`
	ContactsFound   int          `json:"contacts_found"`
	EmailsProcessed int          `json:"emails_processed"`
	EmailsFound     int          `json:"emails_found"`
	Error           string       `json:"error,omitempty"`
}

// ProgressCallback is called when analysis progress occurs. Calls are never concurrent.
type ProgressCallback func(event ProgressEvent)

// AnalyzeRequest identifies the company to analyze
type AnalyzeRequest struct {
	UserID     uuid.UUID
	Domain     string // a bare domain or a URL
	WebsiteURL string
}

// Result is the outcome of a successful run
type Result struct {
	Company     *db.Company  `json:"company"`
	Contacts    []db.Contact `json:"contacts"`
	EmailsFound int          `json:"emails_found"`
}

// emitter serializes progress callbacks and owns the email counters.
type emitter struct {
	mu        sync.Mutex
	cb        ProgressCallback
	processed int
	found     int
}

func (e *emitter) emit(ev ProgressEvent) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cb != nil {
		e.cb(ev)
	}
}

// emailDone counts one processed lookup and reports it.
func (e *emitter) emailDone(gotEmail bool, total int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.processed++
	if gotEmail {
		e.found++
	}
	if e.cb != nil {
		e.cb(ProgressEvent{
			Step:            StageEmails,
			Message:         fmt.Sprintf("Processing emails... %d/%d", e.processed, total),
			ContactsFound:   total,
			EmailsProcessed: e.processed,
			EmailsFound:     e.found,
		})
	}
}

func (e *emitter) emailsFound() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.found
}

// Analyze runs the enrichment workflow for one company: create or reuse the
// record, search the provider for LinkedIn handles, save them, then look up
// emails in delayed batches. A second run for the same user and domain while
// one is active fails with types.ErrAnalysisInProgress.
func (s *Service) Analyze(ctx context.Context, req AnalyzeRequest, onProgress ProgressCallback) (*Result, error) {
	domain := salesrocks.ExtractDomain(req.Domain)
	if domain == "" {
		return nil, &types.ValidationError{Field: "domain", Message: "domain is required"}
	}

	key := analysisKey(req.UserID, domain)
	if !s.acquire(key) {
		s.metrics.RunRejected()
		s.logger.Warn("Analysis already in progress", zap.String("domain", domain))
		return nil, types.ErrAnalysisInProgress
	}
	defer s.release(key)

	start := time.Now()
	s.metrics.RunStarted()
	logger := s.logger.With(zap.String("user_id", req.UserID.String()), zap.String("domain", domain))
	em := &emitter{cb: onProgress}

	var company *db.Company
	res, outcome, err := s.run(ctx, req, domain, em, logger, &company)
	if err != nil {
		if company != nil {
			// The run may have been cancelled; the failure must still be recorded.
			if ferr := s.setStatus(context.WithoutCancel(ctx), company, db.CompanyStatusFailed, nil); ferr != nil {
				logger.Error("Failed to mark company as failed", zap.Error(ferr))
			}
		}
		em.emit(ProgressEvent{
			Step:    StageError,
			Message: "Analysis failed: " + err.Error(),
			Company: company,
			Error:   err.Error(),
		})
		logger.Error("Analysis failed", zap.Error(err), zap.Duration("elapsed", time.Since(start)))
		s.metrics.RunFinished("failed", time.Since(start), 0, em.emailsFound())
		return nil, err
	}

	logger.Info("Analysis completed",
		zap.Int("contacts", len(res.Contacts)),
		zap.Int("emails", res.EmailsFound),
		zap.Duration("elapsed", time.Since(start)))
	s.metrics.RunFinished(outcome, time.Since(start), len(res.Contacts), res.EmailsFound)
	return res, nil
}

// run performs the workflow steps. The company, once created, is published
// through companyOut so the caller can mark it failed.
func (s *Service) run(ctx context.Context, req AnalyzeRequest, domain string, em *emitter, logger *zap.Logger, companyOut **db.Company) (*Result, string, error) {
	em.emit(ProgressEvent{Step: StageCreating, Message: "Creating company record..."})

	company, err := s.CreateCompanyRecord(ctx, req.UserID, domain, req.WebsiteURL)
	if err != nil {
		return nil, "", err
	}
	*companyOut = company

	if err := s.setStatus(ctx, company, db.CompanyStatusAnalyzing, nil); err != nil {
		return nil, "", err
	}

	em.emit(ProgressEvent{
		Step:    StageSearching,
		Message: fmt.Sprintf("Searching LinkedIn for contacts at %s...", company.Domain),
		Company: company,
	})

	handles, err := s.source.LinkedInHandles(ctx, req.UserID, company.Domain)
	if err != nil {
		return nil, "", err
	}
	if len(handles) > s.cfg.MaxContacts {
		handles = handles[:s.cfg.MaxContacts]
	}
	logger.Debug("LinkedIn search finished", zap.Int("handles", len(handles)))

	if len(handles) == 0 {
		zero := 0
		if err := s.setStatus(ctx, company, db.CompanyStatusCompleted, &zero); err != nil {
			return nil, "", err
		}
		em.emit(ProgressEvent{
			Step:    StageCompleted,
			Message: fmt.Sprintf("Analysis completed - no LinkedIn contacts found for %s", company.Domain),
			Company: company,
		})
		return &Result{Company: company, Contacts: []db.Contact{}}, "empty", nil
	}

	em.emit(ProgressEvent{
		Step:          StageSaving,
		Message:       fmt.Sprintf("Found %d LinkedIn contacts. Saving to database...", len(handles)),
		ContactsFound: len(handles),
	})

	if _, err := s.SaveContacts(ctx, company.ID, handles); err != nil {
		return nil, "", err
	}

	em.emit(ProgressEvent{
		Step:          StageEmails,
		Message:       "Searching for contact emails...",
		ContactsFound: len(handles),
	})

	if err := s.lookupEmails(ctx, req.UserID, company.ID, handles, em, logger); err != nil {
		return nil, "", err
	}
	emailsFound := em.emailsFound()

	contacts, err := s.store.ListCompanyContacts(ctx, company.ID)
	if err != nil {
		return nil, "", err
	}

	total := len(handles)
	if err := s.setStatus(ctx, company, db.CompanyStatusCompleted, &total); err != nil {
		return nil, "", err
	}

	em.emit(ProgressEvent{
		Step:          StageCompleted,
		Message:       fmt.Sprintf("Analysis completed! Found %d contacts, %d emails", total, emailsFound),
		Company:       company,
		Contacts:      contacts,
		ContactsFound: total,
		EmailsFound:   emailsFound,
	})

	return &Result{Company: company, Contacts: contacts, EmailsFound: emailsFound}, "completed", nil
}

// lookupEmails queries emails BatchSize at a time, pausing BatchDelay between
// batches. Individual lookup failures are logged and counted as processed.
// Only cancellation of ctx stops the loop.
func (s *Service) lookupEmails(ctx context.Context, userID, companyID uuid.UUID, handles []string, em *emitter, logger *zap.Logger) error {
	total := len(handles)
	for i := 0; i < total; i += s.cfg.BatchSize {
		if i > 0 {
			if err := s.sleep(ctx, s.cfg.BatchDelay); err != nil {
				return err
			}
		}

		var g errgroup.Group
		for _, handle := range handles[i:min(i+s.cfg.BatchSize, total)] {
			g.Go(func() error {
				em.emailDone(s.lookupEmail(ctx, userID, companyID, handle, logger), total)
				return nil
			})
		}
		_ = g.Wait()

		if err := ctx.Err(); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) lookupEmail(ctx context.Context, userID, companyID uuid.UUID, handle string, logger *zap.Logger) bool {
	res, err := s.source.ContactEmail(ctx, userID, handle)
	if err != nil {
		logger.Warn("Email lookup failed", zap.String("handle", handle), zap.Error(err))
		return false
	}
	if res == nil || res.Email == "" {
		logger.Debug("No email found", zap.String("handle", handle))
		return false
	}

	if err := s.UpdateContactEmail(ctx, companyID, handle, res.Email, res.FullName, res.JobTitle); err != nil {
		logger.Warn("Failed to save contact email", zap.String("handle", handle), zap.Error(err))
		return false
	}
	return true
}
