package catalog

import (
	"strconv"
	"strings"
)

// Alignment score weights
const (
	industryWeight = 40
	valueWeight    = 30
	maxScore       = 100
)

// Align scores how well p fits a company: industryWeight when p targets the
// industry, valueWeight when any company value appears in a key feature.
func Align(p Product, industry string, values []string) ProductAlignment {
	a := ProductAlignment{Product: p}

	if industry != "" && p.TargetsIndustry(industry) {
		a.IndustryMatch = true
		a.Score += industryWeight
	}
	if v, ok := matchValue(p.KeyFeatures, values); ok {
		a.MatchedValue = v
		a.Score += valueWeight
	}
	a.Score = min(a.Score, maxScore)
	return a
}

// TargetsIndustry reports whether industry is one of p's target industries, ignoring case
func (p Product) TargetsIndustry(industry string) bool {
	for _, t := range p.TargetIndustries {
		if strings.EqualFold(strings.TrimSpace(t), strings.TrimSpace(industry)) {
			return true
		}
	}
	return false
}

func matchValue(features, values []string) (string, bool) {
	for _, v := range values {
		needle := strings.ToLower(strings.TrimSpace(v))
		if needle == "" {
			continue
		}
		for _, f := range features {
			if strings.Contains(strings.ToLower(f), needle) {
				return v, true
			}
		}
	}
	return "", false
}

// RelevantProduct returns the first product targeting industry, else the
// first product. ok is false when there are no products.
func RelevantProduct(products []Product, industry string) (Product, bool) {
	if len(products) == 0 {
		return Product{}, false
	}
	for _, p := range products {
		if industry != "" && p.TargetsIndustry(industry) {
			return p, true
		}
	}
	return products[0], true
}

// RelevantStory returns the first story in industry, else the first story
func RelevantStory(stories []SuccessStory, industry string) (SuccessStory, bool) {
	if len(stories) == 0 {
		return SuccessStory{}, false
	}
	for _, st := range stories {
		if industry != "" && strings.EqualFold(st.Industry, industry) {
			return st, true
		}
	}
	return stories[0], true
}

func itoa(i int) string { return strconv.Itoa(i) }
