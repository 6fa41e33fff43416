package salesrocks

import (
	"strings"
)

// ExtractDomain reduces a URL or host to a bare lowercase domain: the scheme,
// a leading "www.", any path and any query are removed.
func ExtractDomain(raw string) string {
	s := strings.TrimSpace(raw)
	lower := strings.ToLower(s)
	for _, scheme := range []string{"https://", "http://"} {
		if strings.HasPrefix(lower, scheme) {
			s = s[len(scheme):]
			break
		}
	}
	if len(s) >= 4 && strings.EqualFold(s[:4], "www.") {
		s = s[4:]
	}
	if i := strings.IndexAny(s, "/?#"); i >= 0 {
		s = s[:i]
	}
	return strings.ToLower(s)
}

// CompanyNameFromDomain capitalizes the first label of a domain.
func CompanyNameFromDomain(domain string) string {
	d := strings.TrimPrefix(strings.ToLower(domain), "www.")
	label, _, _ := strings.Cut(d, ".")
	if label == "" {
		return ""
	}
	return strings.ToUpper(label[:1]) + label[1:]
}
