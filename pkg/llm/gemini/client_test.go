package gemini

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/user/metareply/pkg/llm"
)

var _ llm.Provider = (*Client)(nil)

func TestComplete(t *testing.T) {
	var gotPath, gotKey string
	var gotBody map[string]any

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.URL.Query().Get("key")
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &gotBody)
		io.WriteString(w, `{
			"candidates": [{"content": {"role": "model", "parts": [{"text": "Hello back!"}]}}],
			"usageMetadata": {"promptTokenCount": 12, "candidatesTokenCount": 4, "totalTokenCount": 16}
		}`)
	}))
	defer srv.Close()

	c := New(&llm.Config{
		BaseURL:     srv.URL,
		APIKey:      "test-key",
		Model:       "gemini-2.0-flash",
		MaxTokens:   256,
		Temperature: 0.7,
	})

	resp, err := c.Complete(context.Background(), []llm.Message{{Role: "user", Content: "Hello"}})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}

	if resp.Content != "Hello back!" {
		t.Errorf("content = %q", resp.Content)
	}
	if resp.Usage.TotalTokens != 16 {
		t.Errorf("usage = %+v", resp.Usage)
	}

	if gotPath != "/v1beta/models/gemini-2.0-flash:generateContent" {
		t.Errorf("path = %q", gotPath)
	}
	if gotKey != "test-key" {
		t.Errorf("key param = %q", gotKey)
	}
	gc := gotBody["generationConfig"].(map[string]any)
	if gc["maxOutputTokens"] != float64(256) {
		t.Errorf("generationConfig = %v", gc)
	}
}

func TestCompleteAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		io.WriteString(w, `{"error": {"message": "API key not valid"}}`)
	}))
	defer srv.Close()

	c := New(&llm.Config{BaseURL: srv.URL, APIKey: "bad", Model: "gemini-2.0-flash"})
	_, err := c.Complete(context.Background(), []llm.Message{{Role: "user", Content: "hi"}})
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "status 400") {
		t.Errorf("error = %v", err)
	}
}

func TestCompleteNoCandidates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"candidates": []}`)
	}))
	defer srv.Close()

	c := New(&llm.Config{BaseURL: srv.URL, APIKey: "k", Model: "m"})
	_, err := c.Complete(context.Background(), []llm.Message{{Role: "user", Content: "hi"}})
	if err == nil || !strings.Contains(err.Error(), "no candidates") {
		t.Errorf("error = %v", err)
	}
}
