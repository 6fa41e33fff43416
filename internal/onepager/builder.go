// Package onepager assembles and renders the sales one-pager for a company:
// its contacts, the best-fitting product and success story, and talking points.
package onepager

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/prospect-analyzer/internal/catalog"
	"github.com/jonathan/prospect-analyzer/internal/db"
	"github.com/jonathan/prospect-analyzer/internal/fetch"
	"github.com/jonathan/prospect-analyzer/internal/llm"
	"github.com/jonathan/prospect-analyzer/internal/prompts"
	"github.com/jonathan/prospect-analyzer/internal/rendering"
	"github.com/jonathan/prospect-analyzer/internal/schemas"
	"go.uber.org/zap"
)

// ErrPDFUnavailable is returned by PDF when no printer is configured.
var ErrPDFUnavailable = errors.New("PDF export is not enabled")

// MaxContacts is how many decision makers a one-pager shows.
const MaxContacts = 6

// Insight sources
const (
	SourceAI      = "ai"
	SourceWebsite = "website"
)

// CompanySource reads the user's companies. *enrichment.Service satisfies it.
type CompanySource interface {
	GetCompany(ctx context.Context, userID uuid.UUID, rawID string) (*db.Company, error)
	CompanyContacts(ctx context.Context, userID uuid.UUID, rawID string) ([]db.Contact, error)
}

// Catalog lists products and stories. *catalog.Store satisfies it.
type Catalog interface {
	Products() []catalog.Product
	Stories() []catalog.SuccessStory
}

// WebsiteReader extracts homepage metadata. *fetch.SiteReader satisfies it.
type WebsiteReader interface {
	Meta(ctx context.Context, url string) (*fetch.PageMeta, error)
}

// PDFPrinter prints HTML to PDF. *fetch.Browser satisfies it.
type PDFPrinter interface {
	PrintPDF(ctx context.Context, html string) ([]byte, error)
}

// Options holds the optional collaborators of a Builder. Nil fields disable
// the feature they provide.
type Options struct {
	Website WebsiteReader
	LLM     llm.Client
	PDF     PDFPrinter
	Logger  *zap.Logger
}

// Builder assembles one-pagers
type Builder struct {
	companies CompanySource
	catalog   Catalog
	website   WebsiteReader
	llm       llm.Client
	pdf       PDFPrinter
	logger    *zap.Logger
	now       func() time.Time
}

// NewBuilder creates a Builder
func NewBuilder(companies CompanySource, cat Catalog, opts Options) *Builder {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Builder{
		companies: companies,
		catalog:   cat,
		website:   opts.Website,
		llm:       opts.LLM,
		pdf:       opts.PDF,
		logger:    logger.Named("onepager"),
		now:       time.Now,
	}
}

// PDFEnabled reports whether PDF export is available
func (b *Builder) PDFEnabled() bool {
	return b.pdf != nil
}

// OnePager is everything shown on a company's one-pager
type OnePager struct {
	Company     *db.Company               `json:"company"`
	Contacts    []db.Contact              `json:"contacts"`
	Product     *catalog.Product          `json:"product,omitempty"`
	Alignment   *catalog.ProductAlignment `json:"alignment,omitempty"`
	Story       *catalog.SuccessStory     `json:"story,omitempty"`
	Website     *fetch.PageMeta           `json:"website,omitempty"`
	Insights    rendering.Insights        `json:"insights"`
	GeneratedAt time.Time                 `json:"generated_at"`
}

// Build assembles the one-pager for one of the user's companies
func (b *Builder) Build(ctx context.Context, userID uuid.UUID, companyID string) (*OnePager, error) {
	company, err := b.companies.GetCompany(ctx, userID, companyID)
	if err != nil {
		return nil, err
	}
	contacts, err := b.companies.CompanyContacts(ctx, userID, companyID)
	if err != nil {
		return nil, err
	}

	op := &OnePager{
		Company:     company,
		Contacts:    keyContacts(contacts),
		GeneratedAt: b.now(),
	}

	industry := deref(company.Industry)
	if p, ok := catalog.RelevantProduct(b.catalog.Products(), industry); ok {
		align := catalog.Align(p, industry, company.Values)
		op.Product = &p
		op.Alignment = &align
	}
	if st, ok := catalog.RelevantStory(b.catalog.Stories(), industry); ok {
		op.Story = &st
	}

	op.Website = b.readWebsite(ctx, company)
	op.Insights = b.insights(ctx, op)

	b.logger.Info("One-pager built",
		zap.String("company_id", company.ID.String()),
		zap.Int("contacts", len(op.Contacts)),
		zap.String("insights", op.Insights.Source))
	return op, nil
}

// keyContacts picks up to MaxContacts, those with an email first.
func keyContacts(contacts []db.Contact) []db.Contact {
	out := append([]db.Contact{}, contacts...)
	sort.SliceStable(out, func(i, j int) bool {
		return hasEmail(out[i]) && !hasEmail(out[j])
	})
	if len(out) > MaxContacts {
		out = out[:MaxContacts]
	}
	return out
}

func hasEmail(c db.Contact) bool {
	return c.Email != nil && *c.Email != ""
}

func (b *Builder) readWebsite(ctx context.Context, company *db.Company) *fetch.PageMeta {
	if b.website == nil {
		return nil
	}
	url := deref(company.WebsiteURL)
	if url == "" {
		url = company.Domain
	}
	meta, err := b.website.Meta(ctx, fetch.NormalizeURL(url))
	if err != nil {
		b.logger.Warn("Website unavailable for one-pager", zap.String("url", url), zap.Error(err))
		return nil
	}
	return meta
}

// insights asks the model for talking points and falls back to ones built
// from the website and catalog when there is no model or its answer is unusable.
func (b *Builder) insights(ctx context.Context, op *OnePager) rendering.Insights {
	fallback := websiteInsights(op)
	if b.llm == nil {
		return fallback
	}

	prompt, err := prompts.Render("onepager.json", "insights", promptData(op))
	if err != nil {
		b.logger.Error("Failed to load insights prompt", zap.Error(err))
		return fallback
	}

	raw, err := b.llm.GenerateJSON(ctx, prompt, llm.TierStandard)
	if err != nil {
		b.logger.Warn("Insight generation failed", zap.Error(err))
		return fallback
	}
	if err := schemas.Validate(schemas.OnePagerInsights, raw); err != nil {
		b.logger.Warn("Generated insights rejected", zap.Error(err))
		return fallback
	}

	var ins rendering.Insights
	if err := json.Unmarshal([]byte(raw), &ins); err != nil {
		b.logger.Warn("Generated insights unreadable", zap.Error(err))
		return fallback
	}
	ins.Source = SourceAI
	return ins
}

func promptData(op *OnePager) map[string]string {
	c := op.Company
	data := map[string]string{
		"CompanyName":  c.CompanyName,
		"Domain":       c.Domain,
		"Industry":     orUnknown(deref(c.Industry)),
		"Description":  orUnknown(deref(c.Description)),
		"Values":       orUnknown(strings.Join(c.Values, ", ")),
		"ContactCount": fmt.Sprint(len(op.Contacts)),
	}
	if w := op.Website; w != nil {
		data["WebsiteTitle"] = orUnknown(w.Title)
		data["WebsiteDescription"] = orUnknown(w.Description)
		data["WebsiteHeadings"] = orUnknown(strings.Join(w.Headings, "; "))
	} else {
		data["WebsiteTitle"], data["WebsiteDescription"], data["WebsiteHeadings"] = "unknown", "unknown", "unknown"
	}
	if p := op.Product; p != nil {
		data["ProductName"] = p.Name
		data["ProductDescription"] = p.Description
		data["ProductFeatures"] = strings.Join(p.KeyFeatures, ", ")
	} else {
		data["ProductName"], data["ProductDescription"], data["ProductFeatures"] = "our solution", "", ""
	}
	if st := op.Story; st != nil {
		data["StoryCompany"] = st.CompanyName
		data["StoryResults"] = st.Results
	} else {
		data["StoryCompany"], data["StoryResults"] = "none", ""
	}
	return data
}

// websiteInsights derives talking points without a model.
func websiteInsights(op *OnePager) rendering.Insights {
	c := op.Company
	ins := rendering.Insights{Source: SourceWebsite}

	if op.Product != nil {
		ins.Headline = fmt.Sprintf("%s for %s", op.Product.Name, c.CompanyName)
	} else {
		ins.Headline = fmt.Sprintf("Opportunity brief: %s", c.CompanyName)
	}

	switch {
	case op.Website != nil && op.Website.Description != "":
		ins.Summary = op.Website.Description
	case deref(c.Description) != "":
		ins.Summary = deref(c.Description)
	default:
		ins.Summary = prompts.Format(prompts.MustGet("onepager.json", "fallback-summary"), promptData(op))
	}

	if a := op.Alignment; a != nil {
		if a.IndustryMatch {
			ins.TalkingPoints = append(ins.TalkingPoints,
				fmt.Sprintf("%s is built for %s organizations", a.Product.Name, deref(c.Industry)))
		}
		if a.MatchedValue != "" {
			ins.TalkingPoints = append(ins.TalkingPoints,
				fmt.Sprintf("Matches %s's focus on %s", c.CompanyName, strings.ToLower(a.MatchedValue)))
		}
	}
	if op.Product != nil {
		for i, f := range op.Product.KeyFeatures {
			if i == 3 {
				break
			}
			ins.TalkingPoints = append(ins.TalkingPoints, f)
		}
	}
	if st := op.Story; st != nil && st.Results != "" {
		ins.TalkingPoints = append(ins.TalkingPoints, fmt.Sprintf("%s: %s", st.CompanyName, st.Results))
		if st.Challenge != "" && strings.EqualFold(st.Industry, deref(c.Industry)) {
			ins.PainPoints = append(ins.PainPoints, st.Challenge)
		}
	}

	if len(op.Contacts) > 0 {
		lead := op.Contacts[0]
		name := contactName(lead)
		if title := deref(lead.JobTitle); title != "" {
			name += " (" + title + ")"
		}
		ins.RecommendedApproach = fmt.Sprintf("Open with %s and lead with the most relevant customer result.", name)
	}
	return ins
}

// HTML renders the one-pager as an HTML document
func (b *Builder) HTML(op *OnePager, preparedBy string) (string, error) {
	return rendering.RenderHTML(toPage(op, preparedBy))
}

// PDF renders the one-pager to an A4 PDF
func (b *Builder) PDF(ctx context.Context, op *OnePager, preparedBy string) ([]byte, error) {
	if b.pdf == nil {
		return nil, ErrPDFUnavailable
	}
	html, err := b.HTML(op, preparedBy)
	if err != nil {
		return nil, err
	}
	return b.pdf.PrintPDF(ctx, html)
}

var unsafeFilename = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// Filename is the download name of a company's one-pager PDF
func Filename(companyName string) string {
	name := strings.Trim(unsafeFilename.ReplaceAllString(strings.TrimSpace(companyName), "-"), "-.")
	if name == "" {
		name = "company"
	}
	return name + "-sales-onepager.pdf"
}

func toPage(op *OnePager, preparedBy string) *rendering.Page {
	c := op.Company
	page := &rendering.Page{
		CompanyName: c.CompanyName,
		Domain:      c.Domain,
		WebsiteURL:  deref(c.WebsiteURL),
		Industry:    deref(c.Industry),
		Description: deref(c.Description),
		Values:      c.Values,
		PreparedBy:  preparedBy,
		Date:        op.GeneratedAt.Format("January 2, 2006"),
		Insights:    op.Insights,
	}
	if page.Description == "" && op.Website != nil {
		page.Description = op.Website.Description
	}

	for _, ct := range op.Contacts {
		page.Contacts = append(page.Contacts, rendering.ContactCard{
			Name:        contactName(ct),
			Title:       deref(ct.JobTitle),
			Email:       deref(ct.Email),
			Phone:       deref(ct.Phone),
			LinkedInURL: deref(ct.ProfileURL),
		})
	}

	if p := op.Product; p != nil {
		section := &rendering.ProductSection{
			Name:        p.Name,
			Description: p.Description,
			Features:    p.KeyFeatures,
			Pricing:     p.Pricing,
		}
		if len(c.Values) > 0 {
			section.ValueProps = append(section.ValueProps,
				fmt.Sprintf("Aligns with %s's focus on %s", c.CompanyName, strings.ToLower(c.Values[0])))
		}
		if ind := deref(c.Industry); ind != "" {
			section.ValueProps = append(section.ValueProps, fmt.Sprintf("Supports %s industry requirements", ind))
		}
		if op.Alignment != nil {
			section.Score = op.Alignment.Score
		}
		page.Product = section
	}

	if st := op.Story; st != nil {
		page.Story = &rendering.StorySection{
			CompanyName:      st.CompanyName,
			Industry:         st.Industry,
			Challenge:        st.Challenge,
			Solution:         st.Solution,
			Results:          st.Results,
			CostSaving:       st.Metrics.CostSaving,
			ComplianceScore:  st.Metrics.ComplianceScore,
			UserSatisfaction: st.Metrics.UserSatisfaction,
		}
	}

	first := "the key decision maker"
	if len(op.Contacts) > 0 {
		first = contactName(op.Contacts[0])
	}
	page.NextSteps = []rendering.Step{
		{Title: "Discovery Call", Detail: "Schedule initial conversation with " + first},
		{Title: "Needs Assessment", Detail: "Understand specific challenges and requirements"},
		{Title: "Proposal & Demo", Detail: "Present tailored solution with live demonstration"},
	}
	return page
}

func contactName(c db.Contact) string {
	if c.DisplayName != nil && *c.DisplayName != "" {
		return *c.DisplayName
	}
	if n := deref(c.FullName); n != "" {
		return n
	}
	if n := strings.TrimSpace(deref(c.FirstName) + " " + deref(c.LastName)); n != "" {
		return n
	}
	return deref(c.LinkedInHandle)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func orUnknown(s string) string {
	if strings.TrimSpace(s) == "" {
		return "unknown"
	}
	return s
}
