package logger

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestNew(t *testing.T) {
	for _, mode := range []string{"dev", "prod", ""} {
		l, err := New(mode, "debug")
		if err != nil {
			t.Fatalf("New(%q): %v", mode, err)
		}
		l.Info("hello", "mode", mode)
	}
	if _, err := New("dev", "loud"); err == nil {
		t.Error("expected error for unknown level")
	}
}

func TestRedaction(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	l := &Logger{SugaredLogger: zap.New(core).Sugar()}

	l.Info("connect", "amqp_password", "hunter2", "queue", "answers")

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["amqp_password"] != "[REDACTED]" {
		t.Errorf("amqp_password = %v, want redacted", fields["amqp_password"])
	}
	if fields["queue"] != "answers" {
		t.Errorf("queue = %v, want answers", fields["queue"])
	}
}

func TestWithAndNop(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	l := (&Logger{SugaredLogger: zap.New(core).Sugar()}).With("user_id", "u1")
	l.Debug("dropped")
	l.Warn("kept")
	if logs.Len() != 1 || logs.All()[0].ContextMap()["user_id"] != "u1" {
		t.Errorf("logs = %+v", logs.All())
	}
	Nop().Error("nothing")
}
