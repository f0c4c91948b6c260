package core

import "strings"

const RedactedValue = "[REDACTED]"

// RedactFields masks values whose keys name credential material. Trace and
// correlation identifiers always pass through.
func RedactFields(fields map[string]any) map[string]any {
	if len(fields) == 0 {
		return map[string]any{}
	}
	out := make(map[string]any, len(fields))
	for key, value := range fields {
		if shouldRedactKey(key) {
			out[key] = RedactedValue
			continue
		}
		out[key] = redactValue(value)
	}
	return out
}

func redactValue(value any) any {
	switch typed := value.(type) {
	case map[string]any:
		return RedactFields(typed)
	case []any:
		items := make([]any, len(typed))
		for index, item := range typed {
			items[index] = redactValue(item)
		}
		return items
	default:
		return value
	}
}

func shouldRedactKey(key string) bool {
	key = strings.ToLower(strings.TrimSpace(key))
	if key == "" || isTraceabilityKey(key) {
		return false
	}
	for _, token := range []string{
		"password",
		"secret",
		"principal",
		"user",
		"token",
		"authorization",
		"credential",
		"decrypt",
	} {
		if strings.Contains(key, token) {
			return true
		}
	}
	return false
}

func isTraceabilityKey(key string) bool {
	switch key {
	case MetadataKeyTraceID,
		MetadataKeyCorrelationID,
		MetadataKeyCommand,
		MetadataKeyAttempts,
		MetadataKeyStatusCode,
		"request_id",
		"endpoint",
		"protocol",
		"binding":
		return true
	default:
		return false
	}
}
