// Package catalog holds the seller's categories, products and success
// stories, plus recent prospect searches. Everything lives in memory and is
// reset when the process restarts.
package catalog

import (
	"sort"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jonathan/prospect-analyzer/internal/types"
)

// MaxSearchHistory is how many searches are kept
const MaxSearchHistory = 10

var validate = validator.New()

var seedDate = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// Store is a mutex-guarded in-memory catalog. The zero value is not usable;
// call NewStore.
type Store struct {
	mu         sync.RWMutex
	categories []Category
	products   []Product
	stories    []SuccessStory
	history    []SearchEntry
	nextID     int
	now        func() time.Time
}

// NewStore returns a catalog seeded with the default categories, product and story
func NewStore() *Store {
	return &Store{
		categories: []Category{
			{ID: 1, Name: "Software Solutions", CreatedAt: seedDate},
			{ID: 2, Name: "Consulting Services", CreatedAt: seedDate},
			{ID: 3, Name: "Cloud Services", CreatedAt: seedDate},
		},
		products: []Product{{
			ID:               1,
			Name:             "CloudSync Pro",
			Category:         "Software Solutions",
			Description:      "Enterprise-grade cloud storage and synchronization solution",
			TargetIndustries: []string{"Technology", "Finance", "Healthcare"},
			KeyFeatures:      []string{"99.9% uptime", "End-to-end encryption", "Real-time sync"},
			Pricing:          "$15/user/month",
		}},
		stories: []SuccessStory{{
			ID:          1,
			CompanyName: "MedTech Solutions",
			Industry:    "Healthcare",
			Category:    "Software Solutions",
			Challenge:   "Secure patient data storage and compliance",
			Solution:    "Implemented CloudSync Pro with HIPAA compliance",
			Results:     "40% reduction in data management costs, 100% compliance achieved",
			Metrics:     StoryMetrics{CostSaving: 40, ComplianceScore: 100, UserSatisfaction: 95},
		}},
		history: []SearchEntry{},
		nextID:  4,
		now:     time.Now,
	}
}

func (s *Store) newID() int {
	id := s.nextID
	s.nextID++
	return id
}

func notFound(resource string, id int) error {
	return &types.NotFoundError{Resource: resource, ID: itoa(id)}
}

// Categories returns all categories in insertion order
func (s *Store) Categories() []Category {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Category(nil), s.categories...)
}

// AddCategory stores a new category and returns it with its ID
func (s *Store) AddCategory(c Category) (Category, error) {
	if err := validate.Struct(c); err != nil {
		return Category{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c.ID = s.newID()
	c.CreatedAt = s.now()
	s.categories = append(s.categories, c)
	return c, nil
}

// UpdateCategory replaces the category with c.ID
func (s *Store) UpdateCategory(c Category) (Category, error) {
	if err := validate.Struct(c); err != nil {
		return Category{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.categories {
		if s.categories[i].ID == c.ID {
			c.CreatedAt = s.categories[i].CreatedAt
			s.categories[i] = c
			return c, nil
		}
	}
	return Category{}, notFound("category", c.ID)
}

// DeleteCategory removes a category. Products keep their category name.
func (s *Store) DeleteCategory(id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.categories {
		if s.categories[i].ID == id {
			s.categories = append(s.categories[:i], s.categories[i+1:]...)
			return nil
		}
	}
	return notFound("category", id)
}

// Products returns all products in insertion order
func (s *Store) Products() []Product {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Product, len(s.products))
	for i, p := range s.products {
		out[i] = p.clone()
	}
	return out
}

// Product returns the product with id
func (s *Store) Product(id int) (Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.products {
		if p.ID == id {
			return p.clone(), nil
		}
	}
	return Product{}, notFound("product", id)
}

// AddProduct stores a new product and returns it with its ID
func (s *Store) AddProduct(p Product) (Product, error) {
	if err := validate.Struct(p); err != nil {
		return Product{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p = p.clone()
	p.ID = s.newID()
	s.products = append(s.products, p)
	return p.clone(), nil
}

// UpdateProduct replaces the product with p.ID
func (s *Store) UpdateProduct(p Product) (Product, error) {
	if err := validate.Struct(p); err != nil {
		return Product{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.products {
		if s.products[i].ID == p.ID {
			s.products[i] = p.clone()
			return p, nil
		}
	}
	return Product{}, notFound("product", p.ID)
}

// DeleteProduct removes a product
func (s *Store) DeleteProduct(id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.products {
		if s.products[i].ID == id {
			s.products = append(s.products[:i], s.products[i+1:]...)
			return nil
		}
	}
	return notFound("product", id)
}

// Stories returns all success stories in insertion order
func (s *Store) Stories() []SuccessStory {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]SuccessStory(nil), s.stories...)
}

// AddStory stores a new success story and returns it with its ID
func (s *Store) AddStory(st SuccessStory) (SuccessStory, error) {
	if err := validate.Struct(st); err != nil {
		return SuccessStory{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	st.ID = s.newID()
	s.stories = append(s.stories, st)
	return st, nil
}

// UpdateStory replaces the success story with st.ID
func (s *Store) UpdateStory(st SuccessStory) (SuccessStory, error) {
	if err := validate.Struct(st); err != nil {
		return SuccessStory{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.stories {
		if s.stories[i].ID == st.ID {
			s.stories[i] = st
			return st, nil
		}
	}
	return SuccessStory{}, notFound("success story", st.ID)
}

// DeleteStory removes a success story
func (s *Store) DeleteStory(id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.stories {
		if s.stories[i].ID == id {
			s.stories = append(s.stories[:i], s.stories[i+1:]...)
			return nil
		}
	}
	return notFound("success story", id)
}

// AddSearch records a search. Only the newest MaxSearchHistory are kept.
func (s *Store) AddSearch(req types.SearchHistoryRequest) (SearchEntry, error) {
	if err := req.Validate(); err != nil {
		return SearchEntry{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	entry := SearchEntry{Query: req.Query, Filters: req.Filters, Results: req.Results, Timestamp: s.now()}
	keep := s.history
	if len(keep) >= MaxSearchHistory {
		keep = keep[:MaxSearchHistory-1]
	}
	s.history = append([]SearchEntry{entry}, keep...)
	return entry, nil
}

// SearchHistory returns recorded searches, newest first
func (s *Store) SearchHistory() []SearchEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]SearchEntry{}, s.history...)
}

// Alignments scores every product against a company's industry and values,
// best first. Ties keep catalog order.
func (s *Store) Alignments(industry string, values []string) []ProductAlignment {
	products := s.Products()
	out := make([]ProductAlignment, len(products))
	for i, p := range products {
		out[i] = Align(p, industry, values)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}

func (p Product) clone() Product {
	p.TargetIndustries = append([]string(nil), p.TargetIndustries...)
	p.KeyFeatures = append([]string(nil), p.KeyFeatures...)
	return p
}
