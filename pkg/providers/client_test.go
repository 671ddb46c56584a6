package providers

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestNewClientRequiresKeyAndBase(t *testing.T) {
	if _, err := NewClient("", "https://example.com/v1", "m", 0.7, ""); err == nil {
		t.Fatal("expected missing API key to be rejected")
	}
	if _, err := NewClient("sk-test", "", "m", 0.7, ""); err == nil {
		t.Fatal("expected missing API base to be rejected")
	}
	if _, err := NewClient("sk-test", "https://example.com/v1", "m", 0.7, "://bad"); err == nil {
		t.Fatal("expected malformed proxy to be rejected")
	}
}

func TestChatParsesResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sk-test" {
			t.Errorf("unexpected auth header %q", got)
		}
		fmt.Fprint(w, `{"choices":[{"message":{"content":"hello there"}}]}`)
	}))
	defer srv.Close()

	c, err := NewClient("sk-test", srv.URL+"/", "test-model", 0.7, "")
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	reply, err := c.Chat(context.Background(), []Message{{Role: "user", Content: "hi"}})
	if err != nil {
		t.Fatalf("Chat failed: %v", err)
	}
	if reply != "hello there" {
		t.Fatalf("expected %q, got %q", "hello there", reply)
	}
}

func TestChatReportsHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error":"invalid key"}`)
	}))
	defer srv.Close()

	c, err := NewClient("sk-test", srv.URL, "test-model", 0.7, "")
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	_, err = c.Chat(context.Background(), []Message{{Role: "user", Content: "hi"}})
	if err == nil {
		t.Fatal("expected error for 401 response")
	}
	if !strings.Contains(err.Error(), "401") {
		t.Fatalf("error should mention status code, got: %v", err)
	}
}

func TestChatRejectsEmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"choices":[]}`)
	}))
	defer srv.Close()

	c, err := NewClient("sk-test", srv.URL, "test-model", 0.7, "")
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	if _, err := c.Chat(context.Background(), []Message{{Role: "user", Content: "hi"}}); err == nil {
		t.Fatal("expected error for empty choices")
	}
}

func TestChatStreamCollectsDeltas(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"Hel\"}}]}\n\n")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"lo \"}}]}\n\n")
		fmt.Fprint(w, ": keep-alive comment\n\n")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"world\"}}]}\n\n")
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer srv.Close()

	c, err := NewClient("sk-test", srv.URL, "test-model", 0.7, "")
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}

	var deltas []string
	full, err := c.ChatStream(context.Background(), []Message{{Role: "user", Content: "hi"}}, func(d string) {
		deltas = append(deltas, d)
	})
	if err != nil {
		t.Fatalf("ChatStream failed: %v", err)
	}
	if full != "Hello world" {
		t.Fatalf("expected full text %q, got %q", "Hello world", full)
	}
	if len(deltas) != 3 {
		t.Fatalf("expected 3 deltas, got %d: %v", len(deltas), deltas)
	}
}

func TestChatStreamNilCallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"ok\"}}]}\n\n")
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer srv.Close()

	c, err := NewClient("sk-test", srv.URL, "test-model", 0.7, "")
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	full, err := c.ChatStream(context.Background(), []Message{{Role: "user", Content: "hi"}}, nil)
	if err != nil {
		t.Fatalf("ChatStream failed: %v", err)
	}
	if full != "ok" {
		t.Fatalf("expected %q, got %q", "ok", full)
	}
}
