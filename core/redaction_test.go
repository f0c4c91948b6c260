package core

import "testing"

func TestRedactFieldsPreservesTraceabilityMetadata(t *testing.T) {
	redacted := RedactFields(map[string]any{
		"trace_id":       "trace_1",
		"correlation_id": "corr_1",
		"endpoint":       "https://security.example/token",
		"principal":      "svc-account",
		"secret":         "p@ss",
		"access_token":   "token-value",
		"authorization":  "Basic abc",
		"nested":         map[string]any{"user_password": "hunter2", "trace_id": "trace_nested"},
		"events":         []any{map[string]any{"credential": "c"}, map[string]any{"attempts": 2}},
	})

	if redacted["trace_id"] != "trace_1" {
		t.Fatalf("expected trace_id to remain visible, got %#v", redacted["trace_id"])
	}
	if redacted["correlation_id"] != "corr_1" {
		t.Fatalf("expected correlation_id to remain visible, got %#v", redacted["correlation_id"])
	}
	if redacted["endpoint"] != "https://security.example/token" {
		t.Fatalf("expected endpoint to remain visible, got %#v", redacted["endpoint"])
	}
	for _, key := range []string{"principal", "secret", "access_token", "authorization"} {
		if redacted[key] != RedactedValue {
			t.Fatalf("expected %s to be redacted, got %#v", key, redacted[key])
		}
	}
	nested, ok := redacted["nested"].(map[string]any)
	if !ok {
		t.Fatalf("expected nested redacted map")
	}
	if nested["user_password"] != RedactedValue {
		t.Fatalf("expected nested user_password to be redacted, got %#v", nested["user_password"])
	}
	if nested["trace_id"] != "trace_nested" {
		t.Fatalf("expected nested trace_id to remain visible, got %#v", nested["trace_id"])
	}
	events, ok := redacted["events"].([]any)
	if !ok || len(events) != 2 {
		t.Fatalf("expected events slice, got %#v", redacted["events"])
	}
	first, _ := events[0].(map[string]any)
	if first["credential"] != RedactedValue {
		t.Fatalf("expected credential inside slice to be redacted, got %#v", first["credential"])
	}
	second, _ := events[1].(map[string]any)
	if second["attempts"] != 2 {
		t.Fatalf("expected attempts inside slice to remain visible, got %#v", second["attempts"])
	}
}

func TestRedactFieldsEmptyInput(t *testing.T) {
	if got := RedactFields(nil); got == nil || len(got) != 0 {
		t.Fatalf("expected empty map, got %#v", got)
	}
}
