package executor

import (
	"context"
	"strings"
	"testing"
	"time"
)

func newTestExecutor(t *testing.T, timeout time.Duration) *Executor {
	t.Helper()
	e := New("python3", timeout)
	if !e.Available() {
		t.Skip("python3 not found in PATH")
	}
	return e
}

func TestExecuteCapturesStdout(t *testing.T) {
	e := newTestExecutor(t, 5*time.Second)

	res, err := e.Execute(context.Background(), "print('hello from python')")
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if !res.Success {
		t.Fatalf("expected success, got error %q", res.Error)
	}
	if !strings.Contains(res.Output, "hello from python") {
		t.Fatalf("unexpected output %q", res.Output)
	}
}

func TestExecuteReportsRuntimeError(t *testing.T) {
	e := newTestExecutor(t, 5*time.Second)

	res, err := e.Execute(context.Background(), "raise ValueError('boom')")
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if res.Success {
		t.Fatal("expected failure for raising snippet")
	}
	if !strings.Contains(res.Error, "ValueError") {
		t.Fatalf("expected traceback in error, got %q", res.Error)
	}
}

func TestExecuteReportsSyntaxError(t *testing.T) {
	e := newTestExecutor(t, 5*time.Second)

	res, err := e.Execute(context.Background(), "def broken(:\n  pass")
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if res.Success {
		t.Fatal("expected failure for invalid syntax")
	}
	if !strings.Contains(res.Error, "SyntaxError") {
		t.Fatalf("expected SyntaxError, got %q", res.Error)
	}
}

func TestExecuteTimesOut(t *testing.T) {
	e := newTestExecutor(t, 500*time.Millisecond)

	res, err := e.Execute(context.Background(), "while True:\n    pass")
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if res.Success {
		t.Fatal("expected failure for endless loop")
	}
	if !strings.Contains(res.Error, "Timeout") {
		t.Fatalf("expected timeout message, got %q", res.Error)
	}
}

func TestMissingInterpreter(t *testing.T) {
	e := New("definitely-not-a-real-python", time.Second)
	if e.Available() {
		t.Skip("surprising: fake interpreter exists")
	}
	if _, err := e.Execute(context.Background(), "print(1)"); err == nil {
		t.Fatal("expected launch error for missing interpreter")
	}
}
