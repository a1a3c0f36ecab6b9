package challenge

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func feedArticle(title, source string) map[string]interface{} {
	return map[string]interface{}{
		"title":       title,
		"body":        strings.Repeat("lorem ipsum ", 100),
		"url":         "https://example.com/" + title,
		"source_info": map[string]string{"name": source},
	}
}

func TestNewsProvider_Fetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		feed := map[string]interface{}{
			"Data": []interface{}{
				feedArticle("a1", "Alpha News"),
				feedArticle("a2", "Beta Daily"),
				feedArticle("a3", "Gamma Post"),
				feedArticle("a4", "Delta Wire"),
				feedArticle("a5", "Epsilon Times"),
			},
		}
		json.NewEncoder(w).Encode(feed)
	}))
	defer srv.Close()

	p := NewNewsProvider(srv.URL, nil)
	content, err := p.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	if len(content.Options) != 4 {
		t.Fatalf("Expected 4 options, got %d", len(content.Options))
	}
	if content.CorrectIndex < 0 || content.CorrectIndex >= len(content.Options) {
		t.Fatalf("Correct index %d out of range", content.CorrectIndex)
	}
	if content.Options[content.CorrectIndex] != content.Source {
		t.Errorf("Expected options[%d] == source %q, got %q",
			content.CorrectIndex, content.Source, content.Options[content.CorrectIndex])
	}

	// Exactly one correct entry.
	count := 0
	for _, opt := range content.Options {
		if opt == content.Source {
			count++
		}
	}
	if count != 1 {
		t.Errorf("Expected exactly one correct option, got %d", count)
	}

	if len(content.Snippet) > snippetLimit {
		t.Errorf("Expected snippet truncated to %d chars, got %d", snippetLimit, len(content.Snippet))
	}
}

func TestNewsProvider_FewSourcesPadsWithFillers(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		feed := map[string]interface{}{
			"Data": []interface{}{feedArticle("only", "Solo Source")},
		}
		json.NewEncoder(w).Encode(feed)
	}))
	defer srv.Close()

	p := NewNewsProvider(srv.URL, nil)
	content, err := p.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(content.Options) != 4 {
		t.Errorf("Expected 4 options padded with fillers, got %d", len(content.Options))
	}
}

func TestNewsProvider_EmptyFeedErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{"Data": []interface{}{}})
	}))
	defer srv.Close()

	p := NewNewsProvider(srv.URL, nil)
	if _, err := p.Fetch(context.Background()); err == nil {
		t.Error("Expected error for empty feed")
	}
}

func TestNewsProvider_ServerErrorErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	p := NewNewsProvider(srv.URL, nil)
	if _, err := p.Fetch(context.Background()); err == nil {
		t.Error("Expected error for 502 response")
	}
}

func TestFallbackContent_Shape(t *testing.T) {
	c := FallbackContent()
	if len(c.Options) < 2 || len(c.Options) > 4 {
		t.Errorf("Expected 2-4 options, got %d", len(c.Options))
	}
	if c.CorrectIndex < 0 || c.CorrectIndex >= len(c.Options) {
		t.Errorf("Correct index %d out of range", c.CorrectIndex)
	}
}
