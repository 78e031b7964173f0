package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestHTTPClientGenerate(t *testing.T) {
	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer key" {
			t.Errorf("missing bearer header")
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"hola"}}]}`))
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL+"/", "key", "m1", "be nice", 100, nil)
	out, err := c.Generate(context.Background(), "hi", []Turn{{Role: TurnUser, Text: "a"}, {Role: TurnModel, Text: "b"}})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if out != "hola" {
		t.Fatalf("unexpected output %q", out)
	}
	roles := make([]string, 0)
	for _, m := range got.Messages {
		roles = append(roles, m.Role)
	}
	if strings.Join(roles, ",") != "system,user,assistant,user" {
		t.Fatalf("unexpected roles %v", roles)
	}
	if got.Model != "m1" || got.MaxTokens != 100 || got.Stream {
		t.Fatalf("unexpected request %+v", got)
	}
}

func TestHTTPClientErrors(t *testing.T) {
	t.Run("status error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
		}))
		defer srv.Close()
		c := NewHTTPClient(srv.URL, "key", "m", "", 0, nil)
		if _, err := c.Generate(context.Background(), "hi", nil); err == nil || !strings.Contains(err.Error(), "429") {
			t.Fatalf("expected status error, got %v", err)
		}
	})

	t.Run("empty choices", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"choices":[]}`))
		}))
		defer srv.Close()
		c := NewHTTPClient(srv.URL, "key", "m", "", 0, nil)
		if _, err := c.Generate(context.Background(), "hi", nil); err != ErrEmptyResponse {
			t.Fatalf("expected ErrEmptyResponse, got %v", err)
		}
	})
}

func TestHTTPClientGenerateStream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if !req.Stream {
			t.Errorf("expected stream=true")
		}
		w.Header().Set("Content-Type", "text/event-stream")
		for _, part := range []string{"Hel", "lo"} {
			fmt.Fprintf(w, "data: {\"choices\":[{\"delta\":{\"content\":%q}}]}\n\n", part)
		}
		fmt.Fprint(w, ": keepalive\n\n")
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, "key", "m", "", 0, nil)
	chunks, errs := c.GenerateStream(context.Background(), "hi", nil)

	var sb strings.Builder
	for chunk := range chunks {
		sb.WriteString(chunk)
	}
	if err := <-errs; err != nil {
		t.Fatalf("stream error: %v", err)
	}
	if sb.String() != "Hello" {
		t.Fatalf("unexpected stream output %q", sb.String())
	}
}
