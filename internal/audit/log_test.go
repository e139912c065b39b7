package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/mikemajesty/monorepo/internal/auth"
	"github.com/mikemajesty/monorepo/internal/obs"
)

func captureEntry(t *testing.T, fn func()) map[string]any {
	t.Helper()
	var buf bytes.Buffer
	restore := obs.SetOutput(&buf)
	defer restore()
	fn()
	if buf.Len() == 0 {
		t.Fatal("expected log output")
	}
	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log not valid JSON: %v (%s)", err, buf.String())
	}
	return entry
}

func TestLogEvent(t *testing.T) {
	ctx := context.Background()
	ctx = WithRequestID(ctx, "req-123")
	ctx = auth.ContextWithIdentity(ctx, auth.Identity{UserID: "user-42"})

	entry := captureEntry(t, func() {
		if err := LogEvent(ctx, "audit.test", map[string]any{"foo": "bar"}); err != nil {
			t.Fatalf("LogEvent failed: %v", err)
		}
	})
	if entry["type"] != "audit" {
		t.Fatalf("unexpected type: %v", entry["type"])
	}
	if entry["event"] != "audit.test" {
		t.Fatalf("unexpected event: %v", entry["event"])
	}
	if entry["request_id"] != "req-123" {
		t.Fatalf("unexpected request id: %v", entry["request_id"])
	}
	if entry["user_id"] != "user-42" {
		t.Fatalf("unexpected user id: %v", entry["user_id"])
	}
	fields, ok := entry["fields"].(map[string]any)
	if !ok || fields["foo"] != "bar" {
		t.Fatalf("fields missing or incorrect: %v", entry["fields"])
	}
}

func TestLogEventRequiresName(t *testing.T) {
	if err := LogEvent(context.Background(), "  ", nil); err == nil {
		t.Fatal("expected error for blank event")
	}
}

func TestRecordFailureCarriesCode(t *testing.T) {
	obs.Init()
	in := map[string]any{"email": "a@b.co"}
	entry := captureEntry(t, func() {
		Record(context.Background(), "login", auth.BadRequest(auth.CodePasswordIsIncorrect), in)
	})
	fields := entry["fields"].(map[string]any)
	if fields["outcome"] != OutcomeFailure || fields["code"] != auth.CodePasswordIsIncorrect || fields["email"] != "a@b.co" {
		t.Fatalf("fields = %v", fields)
	}
	if _, mutated := in["outcome"]; mutated {
		t.Fatal("Record mutated caller fields")
	}
}
