package nlp

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) Model {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewOpenAI(OpenAIConfig{APIKey: "sk-test", BaseURL: srv.URL + "/", Model: "test-model"})
}

func TestOpenAI_Complete(t *testing.T) {
	m := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path: %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sk-test" {
			t.Errorf("auth: %q", got)
		}
		var req oaiRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if req.Model != "test-model" || len(req.Messages) != 1 || req.Messages[0].Content != "the prompt" {
			t.Errorf("request: %+v", req)
		}
		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"Sure.\n[SERVICE_ACTION: TASKS | action: LIST_TASKS]"}}]}`))
	})

	got, err := m.Complete(context.Background(), "the prompt")
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if got != "Sure.\n[SERVICE_ACTION: TASKS | action: LIST_TASKS]" {
		t.Errorf("got %q", got)
	}
	if m.Name() != "openai:test-model" {
		t.Errorf("Name: %s", m.Name())
	}
}

func TestOpenAI_Errors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{"rate limited", http.StatusTooManyRequests, `{}`, ErrRateLimited},
		{"no choices", http.StatusOK, `{"choices":[]}`, ErrEmptyReply},
		{"blank content", http.StatusOK, `{"choices":[{"message":{"content":"  "}}]}`, ErrEmptyReply},
		{"api error", http.StatusUnauthorized, `{"error":{"message":"bad key","type":"auth"}}`, nil},
		{"not json", http.StatusBadGateway, `<html>`, nil},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			m := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tc.status)
				w.Write([]byte(tc.body))
			})
			_, err := m.Complete(context.Background(), "p")
			if err == nil {
				t.Fatal("expected an error")
			}
			if tc.wantErr != nil && !errors.Is(err, tc.wantErr) {
				t.Errorf("got %v, want %v", err, tc.wantErr)
			}
		})
	}
}
