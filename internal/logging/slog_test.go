package logging

import (
	"bytes"
	"context"
	"strings"
	"testing"
)

func newTestLogger(t *testing.T, level string) (*SlogLogger, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	l, err := New(&buf, level)
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	return l, &buf
}

func TestSlogLoggerLevels(t *testing.T) {
	log, buf := newTestLogger(t, "debug")
	ctx := context.Background()

	log.Debug(ctx, "dbg", "a", 1)
	log.Info(ctx, "inf", "b", 2)
	log.Warn(ctx, "wrn", "c", 3)
	log.Error(ctx, "err", "d", 4)

	out := buf.String()
	tests := []struct {
		level string
		msg   string
		kv    string
	}{
		{"DEBUG", "dbg", "a=1"},
		{"INFO", "inf", "b=2"},
		{"WARN", "wrn", "c=3"},
		{"ERROR", "err", "d=4"},
	}
	for _, tc := range tests {
		if !strings.Contains(out, "level="+tc.level) || !strings.Contains(out, "msg="+tc.msg) || !strings.Contains(out, tc.kv) {
			t.Fatalf("missing %s line in output:\n%s", tc.level, out)
		}
	}
}

func TestSlogLoggerFiltersBelowLevel(t *testing.T) {
	log, buf := newTestLogger(t, "warn")
	log.Info(context.Background(), "hidden")
	if strings.Contains(buf.String(), "hidden") {
		t.Fatalf("info should be filtered at warn level:\n%s", buf.String())
	}
}

func TestSlogLoggerWith(t *testing.T) {
	log, buf := newTestLogger(t, "info")
	log.With("component", "roles").Info(context.Background(), "hello", "k", "v")

	out := buf.String()
	if !strings.Contains(out, "component=roles") || !strings.Contains(out, "k=v") {
		t.Fatalf("expected inherited attributes:\n%s", out)
	}
}

func TestParseLevel(t *testing.T) {
	for _, ok := range []string{"", "debug", "INFO", "warning", "error"} {
		if _, err := ParseLevel(ok); err != nil {
			t.Fatalf("ParseLevel(%q) error: %v", ok, err)
		}
	}
	if _, err := ParseLevel("loud"); err == nil {
		t.Fatal("expected unknown level error")
	}
}

func TestNopDiscards(t *testing.T) {
	Nop().Error(context.Background(), "nothing")
}
