package ratelimit

import "strings"

// unlimited marks endpoints that are never throttled.
var unlimited = EndpointConfig{}

// MatchEndpoint returns the configuration for a request, or nil when the
// default limit applies. An exact path match wins, then a pattern with "*"
// segments ("/companies/*/onepager"), then the longest configured prefix
// ending in "/" ("/contacts/" matches "/contacts/{id}/notes").
func MatchEndpoint(path string, method string, configs []EndpointConfig) *EndpointConfig {
	if method == "GET" && (path == "/health" || path == "/metrics") {
		u := unlimited
		return &u
	}

	var best, wildcard *EndpointConfig
	for i := range configs {
		c := &configs[i]
		if c.Method != method {
			continue
		}
		if c.Path == path {
			return c
		}
		if wildcard == nil && strings.Contains(c.Path, "*") && matchSegments(c.Path, path) {
			wildcard = c
			continue
		}
		if strings.HasSuffix(c.Path, "/") && strings.HasPrefix(path, c.Path) {
			if best == nil || len(c.Path) > len(best.Path) {
				best = c
			}
		}
	}
	if wildcard != nil {
		return wildcard
	}
	return best
}

// matchSegments reports whether path matches pattern segment by segment,
// with "*" standing for any one non-empty segment.
func matchSegments(pattern, path string) bool {
	ps := strings.Split(pattern, "/")
	xs := strings.Split(path, "/")
	if len(ps) != len(xs) {
		return false
	}
	for i, p := range ps {
		if p == "*" {
			if xs[i] == "" {
				return false
			}
			continue
		}
		if p != xs[i] {
			return false
		}
	}
	return true
}
