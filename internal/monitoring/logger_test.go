package monitoring

import (
	"fmt"
	"testing"
)

func captureLogs(t *testing.T) *[]string {
	t.Helper()
	original := Logf
	t.Cleanup(func() { Logf = original })

	var lines []string
	SetLogger(func(format string, v ...interface{}) {
		lines = append(lines, fmt.Sprintf(format, v...))
	})
	return &lines
}

func TestSetLogger(t *testing.T) {
	original := Logf
	defer func() { Logf = original }()

	called := false
	SetLogger(func(format string, v ...interface{}) { called = true })
	Logf("test message")
	if !called {
		t.Error("Custom logger was not called")
	}

	called = false
	SetLogger(nil)
	Logf("test message")
	if called {
		t.Error("No-op logger should not have triggered callback")
	}
}

func TestStagef(t *testing.T) {
	lines := captureLogs(t)
	Stagef("filter", "slow", "excluded %d of %d trials", 3, 120)

	if len(*lines) != 1 {
		t.Fatalf("expected 1 line, got %d", len(*lines))
	}
	if got, want := (*lines)[0], "[filter slow] excluded 3 of 120 trials"; got != want {
		t.Errorf("Stagef = %q, want %q", got, want)
	}
}

func TestWarnf(t *testing.T) {
	lines := captureLogs(t)
	Warnf("center", "fast", "%d degenerate participants", 2)

	if got, want := (*lines)[0], "WARNING: [center fast] 2 degenerate participants"; got != want {
		t.Errorf("Warnf = %q, want %q", got, want)
	}
}
