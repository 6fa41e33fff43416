package salesrocks

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// ParseHandles extracts LinkedIn handles from a domain search response.
// Accepted shapes, in order: a bare array, an object whose
// contact_linkedin_handles field is an array, or an object whose first
// array-valued field (in document order) holds the handles. A
// contact_linkedin_handles field holding a non-empty non-array value yields
// no handles.
// Non-string and empty elements are skipped. At most limit handles are
// returned when limit > 0.
func ParseHandles(raw []byte, limit int) ([]string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return []string{}, nil
	}

	var arr json.RawMessage
	switch raw[0] {
	case '[':
		arr = raw
	case '{':
		found, err := findHandleArray(raw)
		if err != nil {
			return nil, err
		}
		arr = found
	default:
		return []string{}, nil
	}
	if arr == nil {
		return []string{}, nil
	}

	var items []json.RawMessage
	if err := json.Unmarshal(arr, &items); err != nil {
		return nil, fmt.Errorf("failed to parse handles: %w", err)
	}

	handles := make([]string, 0, len(items))
	for _, item := range items {
		var h string
		if err := json.Unmarshal(item, &h); err != nil || h == "" {
			continue
		}
		handles = append(handles, h)
		if limit > 0 && len(handles) == limit {
			break
		}
	}
	return handles, nil
}

// findHandleArray walks the object's fields in document order.
func findHandleArray(raw []byte) (json.RawMessage, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	if _, err := dec.Token(); err != nil { // {
		return nil, fmt.Errorf("failed to parse handles: %w", err)
	}

	var firstArray json.RawMessage
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("failed to parse handles: %w", err)
		}
		key, _ := tok.(string)

		var val json.RawMessage
		if err := dec.Decode(&val); err != nil {
			return nil, fmt.Errorf("failed to parse handles: %w", err)
		}
		isArray := len(val) > 0 && val[0] == '['

		if key == "contact_linkedin_handles" && !isFalsy(val) {
			if isArray {
				return val, nil
			}
			return nil, nil
		}
		if isArray && firstArray == nil {
			firstArray = val
		}
	}
	return firstArray, nil
}

func isFalsy(val json.RawMessage) bool {
	switch string(val) {
	case "null", "false", "0", `""`:
		return true
	}
	return false
}
