// Package rendering renders the sales one-pager as a standalone HTML document.
package rendering

import (
	"bytes"
	"embed"
	"html/template"
	"strings"
	"sync"
)

//go:embed templates/*.html.tmpl
var templateFiles embed.FS

// Page is the data shown on a one-pager
type Page struct {
	CompanyName string
	Domain      string
	WebsiteURL  string
	Industry    string
	Description string
	Values      []string
	PreparedBy  string
	Date        string

	Contacts  []ContactCard
	Insights  Insights
	Product   *ProductSection
	Story     *StorySection
	NextSteps []Step
}

// ContactCard is one decision maker
type ContactCard struct {
	Name        string
	Title       string
	Email       string
	Phone       string
	LinkedInURL string
}

// Insights are the talking points for the call
type Insights struct {
	Headline            string   `json:"headline"`
	Summary             string   `json:"summary"`
	TalkingPoints       []string `json:"talking_points"`
	PainPoints          []string `json:"pain_points,omitempty"`
	RecommendedApproach string   `json:"recommended_approach,omitempty"`
	Source              string   `json:"source"` // "ai" or "website"
}

// ProductSection presents the proposed product
type ProductSection struct {
	Name        string
	Description string
	Features    []string
	Pricing     string
	ValueProps  []string
	Score       int
}

// StorySection presents a customer success story
type StorySection struct {
	CompanyName      string
	Industry         string
	Challenge        string
	Solution         string
	Results          string
	CostSaving       int
	ComplianceScore  int
	UserSatisfaction int
}

// Step is a recommended next step
type Step struct {
	Title  string
	Detail string
}

var (
	pageTmpl     *template.Template
	pageTmplErr  error
	pageTmplOnce sync.Once
)

func parseTemplate() (*template.Template, error) {
	pageTmplOnce.Do(func() {
		content, err := templateFiles.ReadFile("templates/onepager.html.tmpl")
		if err != nil {
			pageTmplErr = &TemplateError{Message: "template file not found", Cause: err}
			return
		}
		pageTmpl, err = template.New("onepager").Funcs(template.FuncMap{
			"initial": initial,
			"join":    strings.Join,
		}).Parse(string(content))
		if err != nil {
			pageTmplErr = &TemplateError{Message: "failed to parse template", Cause: err}
		}
	})
	return pageTmpl, pageTmplErr
}

// RenderHTML renders page as a complete HTML document. All values are escaped.
func RenderHTML(page *Page) (string, error) {
	if page == nil {
		return "", &RenderError{Message: "no page data"}
	}
	tmpl, err := parseTemplate()
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, page); err != nil {
		return "", &TemplateError{Message: "failed to execute template", Cause: err}
	}
	return buf.String(), nil
}

// initial returns the upper-cased first letter of s, for avatar badges.
func initial(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "?"
	}
	r := []rune(s)
	return strings.ToUpper(string(r[0]))
}
