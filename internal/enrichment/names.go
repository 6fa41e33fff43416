package enrichment

import (
	"strings"
	"unicode"
)

// HandleName is the name parsed from a LinkedIn handle. Either part may be empty.
type HandleName struct {
	First string
	Last  string
}

// NameFromHandle guesses a person's name from a LinkedIn handle such as
// "jane-doe-4b21a". Parts that look like numbers or random IDs are dropped.
func NameFromHandle(handle string) HandleName {
	clean := strings.ToLower(strings.TrimPrefix(handle, "@"))
	if clean == "" {
		return HandleName{}
	}

	var parts []string
	for _, part := range strings.Split(clean, "-") {
		if isNamePart(part) {
			parts = append(parts, part)
		}
	}

	switch {
	case len(parts) >= 2:
		return HandleName{First: capitalize(parts[0]), Last: capitalize(parts[1])}
	case len(parts) == 1:
		return HandleName{First: capitalize(parts[0])}
	default:
		return HandleName{}
	}
}

// FullName is "First Last", else First, else empty.
func (n HandleName) FullName() string {
	switch {
	case n.First != "" && n.Last != "":
		return n.First + " " + n.Last
	default:
		return n.First
	}
}

func isNamePart(part string) bool {
	if len(part) <= 1 || len(part) >= 15 {
		return false
	}
	if allDigits(part) {
		return false
	}
	if len(part) >= 4 && allDigits(part[:4]) {
		return false
	}
	return true
}

func allDigits(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return s != ""
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
