package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	if ParseLevel("") != zerolog.InfoLevel {
		t.Fatal("empty level should default to info")
	}
	if ParseLevel("DEBUG") != zerolog.DebugLevel {
		t.Fatal("level parsing should be case-insensitive")
	}
	if ParseLevel("bogus") != zerolog.InfoLevel {
		t.Fatal("unknown level should default to info")
	}
}

func TestContextFieldsPropagate(t *testing.T) {
	var buf bytes.Buffer
	logg := New(Options{ServiceName: "test", Output: &buf})

	ctx := logg.WithRequestID(context.Background(), "req-123")
	ctx = logg.WithCampaignID(ctx, "camp-9")
	logg.Info(ctx, "hello")

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("log output is not JSON: %v", err)
	}
	if line["request_id"] != "req-123" || line["campaign_id"] != "camp-9" {
		t.Fatalf("context fields missing: %v", line)
	}
	if line["service"] != "test" {
		t.Fatalf("service field missing: %v", line)
	}
}

func TestErrorIncludesStack(t *testing.T) {
	var buf bytes.Buffer
	logg := New(Options{ServiceName: "test", Output: &buf})

	logg.Error(context.Background(), "boom", errors.New("cause"))

	out := buf.String()
	if !strings.Contains(out, "stack") || !strings.Contains(out, "cause") {
		t.Fatalf("error log missing stack or cause: %s", out)
	}
}
