package code

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDetectCode(t *testing.T) {
	m, err := NewManager(t.TempDir())
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}

	cases := []struct {
		text string
		want bool
	}{
		{"Here you go:\n```python\nprint('hi')\n```", true},
		{"def greet(name):\n    return name", true},
		{"import os", true},
		{"Just a plain sentence with no source in it", false},
		{"line one\n    a\n    b\n    c", true},
	}
	for _, tc := range cases {
		if got := m.DetectCode(tc.text); got != tc.want {
			t.Errorf("DetectCode(%q) = %v, want %v", tc.text, got, tc.want)
		}
	}
}

func TestExtractCodeFencedBlock(t *testing.T) {
	m, err := NewManager(t.TempDir())
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}

	text := "Try this:\n```python\nprint('hello')\n```\nand tell me how it goes"
	if got := m.ExtractCode(text); got != "print('hello')" {
		t.Fatalf("expected fenced body, got %q", got)
	}
}

func TestExtractCodeIndentFallback(t *testing.T) {
	m, err := NewManager(t.TempDir())
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}

	text := "Try this:\nfor i in range(3):\n    print(i)\n\nThat should work."
	got := strings.TrimSpace(m.ExtractCode(text))
	want := "for i in range(3):\n    print(i)"
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestSaveCodeWritesCategoryFolder(t *testing.T) {
	dir := t.TempDir()
	m, err := NewManager(dir)
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	m.now = func() time.Time { return time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC) }

	path, err := m.SaveCode("print('hi')", "data_analysis")
	if err != nil {
		t.Fatalf("SaveCode failed: %v", err)
	}
	want := filepath.Join(dir, "data_analysis", "code_20260314_092653.py")
	if path != want {
		t.Fatalf("expected path %q, got %q", want, path)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading saved snippet: %v", err)
	}
	if string(content) != "print('hi')" {
		t.Fatalf("unexpected file content %q", content)
	}
}

func TestSaveCodeDefaultsCategory(t *testing.T) {
	dir := t.TempDir()
	m, err := NewManager(dir)
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}

	path, err := m.SaveCode("x = 1", "")
	if err != nil {
		t.Fatalf("SaveCode failed: %v", err)
	}
	if filepath.Base(filepath.Dir(path)) != "general" {
		t.Fatalf("expected general category folder, got %q", path)
	}
}
