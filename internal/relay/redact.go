package relay

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
)

const redacted = "[REDACTED]"

var secretKeys = map[string]bool{
	"accessToken":  true,
	"access_token": true,
	"password":     true,
}

// redact marshals v for the API log with token fields masked.
func redact(v any) json.RawMessage {
	if v == nil {
		return nil
	}
	raw, ok := v.(json.RawMessage)
	if !ok {
		b, err := json.Marshal(v)
		if err != nil {
			return nil
		}
		raw = b
	}

	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err != nil {
		// Not an object; keep as is when it is valid JSON.
		if json.Valid(raw) {
			return raw
		}
		return nil
	}
	for k := range obj {
		if secretKeys[k] {
			obj[k] = redacted
		}
	}
	out, err := json.Marshal(obj)
	if err != nil {
		return nil
	}
	return out
}

type callerKey struct{}

func withCaller(ctx context.Context, userID uuid.UUID) context.Context {
	return context.WithValue(ctx, callerKey{}, userID)
}

func callerFrom(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(callerKey{}).(uuid.UUID)
	return id, ok
}
