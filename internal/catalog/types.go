package catalog

import "time"

// Category groups products
type Category struct {
	ID        int       `json:"id"`
	Name      string    `json:"name" validate:"required,max=100"`
	CreatedAt time.Time `json:"created_at"`
}

// Product is something the user sells
type Product struct {
	ID               int      `json:"id"`
	Name             string   `json:"name" validate:"required,max=200"`
	Category         string   `json:"category" validate:"max=100"`
	Description      string   `json:"description" validate:"max=5000"`
	TargetIndustries []string `json:"target_industries" validate:"dive,required,max=100"`
	KeyFeatures      []string `json:"key_features" validate:"dive,required,max=200"`
	Pricing          string   `json:"pricing" validate:"max=200"`
}

// StoryMetrics are the headline numbers of a success story, in percent
type StoryMetrics struct {
	CostSaving       int `json:"cost_saving"`
	ComplianceScore  int `json:"compliance_score"`
	UserSatisfaction int `json:"user_satisfaction"`
}

// SuccessStory is a customer case study
type SuccessStory struct {
	ID          int          `json:"id"`
	CompanyName string       `json:"company_name" validate:"required,max=200"`
	Industry    string       `json:"industry" validate:"max=100"`
	Category    string       `json:"category" validate:"max=100"`
	Challenge   string       `json:"challenge" validate:"max=5000"`
	Solution    string       `json:"solution" validate:"max=5000"`
	Results     string       `json:"results" validate:"max=5000"`
	Metrics     StoryMetrics `json:"metrics"`
}

// SearchEntry is one recorded prospect search
type SearchEntry struct {
	Query     string            `json:"query"`
	Filters   map[string]string `json:"filters,omitempty"`
	Results   int               `json:"results"`
	Timestamp time.Time         `json:"timestamp"`
}

// ProductAlignment pairs a product with its fit score for a company
type ProductAlignment struct {
	Product       Product `json:"product"`
	Score         int     `json:"score"`
	IndustryMatch bool    `json:"industry_match"`
	MatchedValue  string  `json:"matched_value,omitempty"`
}
