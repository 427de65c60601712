package logger

import (
	"bytes"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]Level{
		"debug":   LevelDebug,
		" INFO ":  LevelInfo,
		"warning": LevelWarn,
		"warn":    LevelWarn,
		"error":   LevelError,
		"verbose": LevelInfo,
		"":        LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestLevelGating(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, "", LevelWarn)

	l.Debugf("debug %d", 1)
	l.Info("info")
	l.Warnf("warn %s", "two")
	l.Error("error", 3)

	out := buf.String()
	if strings.Contains(out, "debug 1") || strings.Contains(out, "INFO") {
		t.Errorf("lines below warn were written:\n%s", out)
	}
	if !strings.Contains(out, "WARN: warn two") {
		t.Errorf("missing warn line:\n%s", out)
	}
	if !strings.Contains(out, "ERROR: error 3") {
		t.Errorf("missing error line:\n%s", out)
	}
}

func TestWithComponent(t *testing.T) {
	var buf bytes.Buffer
	base := NewWithWriter(&buf, "[bidscout] ", LevelDebug)
	base.With("aggregator").Infof("merged %d listings", 12)

	line := buf.String()
	if !strings.Contains(line, "[bidscout] INFO: [aggregator] merged 12 listings") {
		t.Errorf("line = %q", line)
	}
}

func TestDiscard(t *testing.T) {
	l := Discard()
	if l.Enabled(LevelError) {
		t.Error("Discard logger should drop errors")
	}
	l.Errorf("nothing %d", 1)
}
