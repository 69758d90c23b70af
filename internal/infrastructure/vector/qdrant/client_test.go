package qdrant

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/advogai/juris-rag/internal/core/domain"
)

type fakeEmbedder struct {
	lastTexts []string
	err       error
}

func (f *fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	f.lastTexts = texts
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{0.1, 0.2, 0.3}
	}
	return out, nil
}

func (f *fakeEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := f.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func TestSearchSendsTenantFilterAndParsesPayload(t *testing.T) {
	var gotBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/collections/legal_chunks/points/search" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &gotBody)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"result": []map[string]any{
				{
					"score": 0.87,
					"payload": map[string]any{
						"tenant_id":   "tenant-a",
						"document_id": "doc-9",
						"chunk_index": 1,
						"scope":       "global",
						"chunk_text":  "texto do ponto",
					},
				},
			},
		})
	}))
	defer server.Close()

	client := New(server.URL, "legal_chunks", &fakeEmbedder{})
	chunks, err := client.Search(context.Background(), "dano moral", 5, domain.SearchFilter{
		TenantID:      "tenant-a",
		IncludeGlobal: true,
	})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}

	body, _ := json.Marshal(gotBody)
	if !strings.Contains(string(body), `"tenant_id"`) || !strings.Contains(string(body), `"tenant-a"`) {
		t.Fatalf("tenant filter missing: %s", body)
	}
	if !strings.Contains(string(body), `"global"`) {
		t.Fatalf("global scope clause missing: %s", body)
	}

	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0].Source != domain.SourceVector || chunks[0].RawScore != 0.87 {
		t.Fatalf("chunk provenance wrong: %+v", chunks[0])
	}
	if chunks[0].Metadata.DocumentID != "doc-9" {
		t.Fatalf("payload metadata not parsed: %+v", chunks[0].Metadata)
	}
}

func TestSearchPropagatesEmbedderFailure(t *testing.T) {
	client := New("http://unused", "c", &fakeEmbedder{err: errors.New("model offline")})
	if _, err := client.Search(context.Background(), "q", 5, domain.SearchFilter{TenantID: "t"}); err == nil {
		t.Fatalf("expected embedder error to propagate")
	}
}

func TestIndexChunksEmbedsWithContextPrefix(t *testing.T) {
	embedder := &fakeEmbedder{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	client := New(server.URL, "legal_chunks", embedder)
	chunk := domain.RetrievedChunk{
		Text: "a responsabilidade é subsidiária",
		Metadata: domain.ChunkMetadata{
			TenantID:     "tenant-a",
			DocumentID:   "doc-1",
			SourceDomain: "jurisprudencia",
			Citations:    []string{"Súmula 331 do TST"},
		},
	}
	if err := client.IndexChunks(context.Background(), []domain.RetrievedChunk{chunk}); err != nil {
		t.Fatalf("IndexChunks() error = %v", err)
	}

	if len(embedder.lastTexts) != 1 {
		t.Fatalf("expected 1 embedded text, got %d", len(embedder.lastTexts))
	}
	embedded := embedder.lastTexts[0]
	if !strings.HasPrefix(embedded, "[fonte: jurisprudencia") {
		t.Fatalf("context prefix not applied before embedding: %q", embedded)
	}
	if !strings.HasSuffix(embedded, chunk.Text) {
		t.Fatalf("raw text not preserved after prefix: %q", embedded)
	}
}

func TestDeletePointsBuildsTenantFilter(t *testing.T) {
	var gotBody string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		gotBody = string(raw)
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	client := New(server.URL, "legal_chunks", &fakeEmbedder{})
	if err := client.DeletePoints(context.Background(), "tenant-a", "doc-1"); err != nil {
		t.Fatalf("DeletePoints() error = %v", err)
	}
	if !strings.Contains(gotBody, "tenant-a") || !strings.Contains(gotBody, "doc-1") {
		t.Fatalf("delete filter incomplete: %s", gotBody)
	}
}
