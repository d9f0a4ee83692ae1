package logger

import (
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newObserved() (*Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return &Logger{SugaredLogger: zap.New(core).Sugar()}, logs
}

func TestRedactsSecrets(t *testing.T) {
	l, logs := newObserved()
	l.Info("login", "api_key", "abc123", "lesson_id", "l1")

	entry := logs.All()[0]
	fields := entry.ContextMap()
	if fields["api_key"] != "[REDACTED]" {
		t.Errorf("api_key = %v, want redacted", fields["api_key"])
	}
	if fields["lesson_id"] != "l1" {
		t.Errorf("lesson_id = %v, want l1", fields["lesson_id"])
	}
}

func TestHashesUserID(t *testing.T) {
	l, logs := newObserved()
	l.Warn("update", "user_id", "u-42")

	got, _ := logs.All()[0].ContextMap()["user_id"].(string)
	if !strings.HasPrefix(got, "hash:") {
		t.Fatalf("user_id = %q, want hashed", got)
	}
	if strings.Contains(got, "u-42") {
		t.Error("raw user id leaked into log")
	}
}

func TestHashDependsOnSalt(t *testing.T) {
	a := hashValue("", "u-1")
	b := hashValue("pepper", "u-1")
	if a == b {
		t.Error("expected salted hash to differ")
	}
	if hashValue("", "u-1") != a {
		t.Error("hash must be stable")
	}
}

func TestWithCarriesFields(t *testing.T) {
	l, logs := newObserved()
	l.With("service", "mastery").Debug("tick")
	if logs.All()[0].ContextMap()["service"] != "mastery" {
		t.Error("expected service field from With")
	}
}

func TestOddKeyValues(t *testing.T) {
	l := Nop()
	got := l.sanitize([]any{"a", 1, "dangling"})
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
}
