package tei

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ministryofjustice/rd-search-backend/internal/core/domain"
)

func TestRerankReordersByCrossEncoderScore(t *testing.T) {
	var gotReq rerankRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/rerank" {
			http.NotFound(w, r)
			return
		}
		_ = json.NewDecoder(r.Body).Decode(&gotReq)
		// Second document is the better match.
		_, _ = w.Write([]byte(`[{"index":1,"score":0.92},{"index":0,"score":0.31}]`))
	}))
	defer server.Close()

	docs := []domain.Document{
		{ID: "a", Content: "notice periods", Score: 0.8},
		{ID: "b", Content: "annual leave entitlement", Score: 0.6},
	}

	got, err := New(server.URL).Rerank(context.Background(), "annual leave", docs)
	if err != nil {
		t.Fatalf("Rerank() error = %v", err)
	}
	if len(got) != 2 || got[0].ID != "b" || got[1].ID != "a" {
		t.Fatalf("unexpected order: %+v", got)
	}
	if got[0].Score != 0.92 {
		t.Fatalf("retrieval score not replaced: %v", got[0].Score)
	}
	if gotReq.Query != "annual leave" || len(gotReq.Texts) != 2 {
		t.Fatalf("unexpected request: %+v", gotReq)
	}
}

func TestRerankClampsScoresToUnitInterval(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"index":0,"score":1.7},{"index":1,"score":-0.2}]`))
	}))
	defer server.Close()

	docs := []domain.Document{{ID: "a"}, {ID: "b"}}
	got, err := New(server.URL).Rerank(context.Background(), "q", docs)
	if err != nil {
		t.Fatalf("Rerank() error = %v", err)
	}
	if got[0].Score != 1 || got[1].Score != 0 {
		t.Fatalf("scores not clamped: %v, %v", got[0].Score, got[1].Score)
	}
}

func TestRerankEmptyInputSkipsRequest(t *testing.T) {
	client := New("http://127.0.0.1:1")
	got, err := client.Rerank(context.Background(), "q", nil)
	if err != nil {
		t.Fatalf("Rerank() error = %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty result, got %+v", got)
	}
}

func TestRerankSurfacesServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model overloaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	_, err := New(server.URL).Rerank(context.Background(), "q", []domain.Document{{ID: "a"}})
	if err == nil || !strings.Contains(err.Error(), "model overloaded") {
		t.Fatalf("expected error with response body, got %v", err)
	}
}
