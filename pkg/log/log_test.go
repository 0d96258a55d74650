package log

import (
	"bytes"
	"strings"
	"testing"
)

func newTestLogger(t *testing.T, name string) (*Logger, *bytes.Buffer) {
	t.Helper()
	buf := &bytes.Buffer{}
	SetOutput(buf)
	return ForService(name), buf
}

func TestLevelsAndPrefix(t *testing.T) {
	SetGlobalDebug(false)

	const name = "levels_test"
	l, buf := newTestLogger(t, name)

	tests := []struct {
		level string
		log   func(string, ...any)
	}{
		{LevelInfo, l.Infof},
		{LevelWarn, l.Warnf},
		{LevelError, l.Errorf},
	}

	for _, tt := range tests {
		buf.Reset()
		tt.log("candidate %d indexed", 42)
		out := buf.String()
		want := tt.level + " [" + name + ">] candidate 42 indexed"
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output, got: %q", want, out)
		}
	}
}

func TestForServiceIsMemoized(t *testing.T) {
	a := ForService("memo_test")
	b := ForService("memo_test")
	if a != b {
		t.Fatalf("expected the same logger for the same name")
	}
	if a.Name() != "memo_test" {
		t.Errorf("unexpected name %q", a.Name())
	}
	if ForService("").Name() != "unknown" {
		t.Errorf("expected empty names to map to unknown")
	}
}

func TestDebugPerService(t *testing.T) {
	SetGlobalDebug(false)

	const name = "debug_service_specific"
	DisableDebugFor(name)
	l, buf := newTestLogger(t, name)

	l.Debugf("should not appear")
	if strings.Contains(buf.String(), "should not appear") {
		t.Fatalf("debug message appeared while debug disabled (per service & global)")
	}

	EnableDebugFor(name)
	defer DisableDebugFor(name)
	l.Debugf("visible now")
	if !strings.Contains(buf.String(), "visible now") {
		t.Fatalf("expected debug message after enabling per-service debug; got: %q", buf.String())
	}
}

func TestDebugGlobal(t *testing.T) {
	SetGlobalDebug(false)

	const name = "debug_service_global"
	DisableDebugFor(name)
	l, buf := newTestLogger(t, name)

	l.Debugf("hidden")
	if strings.Contains(buf.String(), "hidden") {
		t.Fatalf("debug message appeared while global debug disabled")
	}

	SetGlobalDebug(true)
	defer SetGlobalDebug(false)

	l.Debugf("global visible")
	if !strings.Contains(buf.String(), "global visible") {
		t.Fatalf("expected debug message after enabling global debug; got: %q", buf.String())
	}
}

func TestEnableDebugList(t *testing.T) {
	SetGlobalDebug(false)

	enabled := EnableDebugList(" list_a, ,list_b,")
	defer DisableDebugFor("list_a")
	defer DisableDebugFor("list_b")

	if len(enabled) != 2 || enabled[0] != "list_a" || enabled[1] != "list_b" {
		t.Fatalf("unexpected enabled services %v", enabled)
	}
	if !DebugEnabledFor("list_a") || !DebugEnabledFor("list_b") {
		t.Errorf("expected debug on for both services")
	}
	if DebugEnabledFor("list_c") {
		t.Errorf("expected debug off for unlisted services")
	}
}
