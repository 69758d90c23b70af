package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/advogai/juris-rag/internal/core/domain"
)

func TestGraphRouterLookupRequiresFlagAndIntent(t *testing.T) {
	graph := &fakeGraphStore{neighborhood: domain.GraphContext{Text: "a -[b]-> c"}}
	router := newGraphRouter(graph, NewKeywordIntentClassifier(), 2, nil)

	// Flag off: never consult the graph.
	if _, hit := router.Lookup(context.Background(), domain.Query{Text: "Art. 37 da CF"}, domain.SearchFilter{}); hit {
		t.Fatalf("lookup hit with graph disabled")
	}
	if graph.lookupCalls != 0 {
		t.Fatalf("graph consulted with flag off")
	}

	// Semantic question: intent is not graph-answerable.
	query := domain.Query{
		Text:  "como se caracteriza o dano moral coletivo",
		Flags: domain.RetrievalFlags{GraphEnabled: true},
	}
	if _, hit := router.Lookup(context.Background(), query, domain.SearchFilter{}); hit {
		t.Fatalf("lookup hit for non-graph intent")
	}

	// Direct citation: lookup path taken.
	query.Text = "Art. 37 da CF"
	gctx, hit := router.Lookup(context.Background(), query, domain.SearchFilter{})
	if !hit {
		t.Fatalf("expected lookup hit for citation query")
	}
	if gctx.Empty() {
		t.Fatalf("hit with empty graph context")
	}
}

func TestGraphRouterLookupEmptyNeighborhoodMisses(t *testing.T) {
	graph := &fakeGraphStore{}
	router := newGraphRouter(graph, NewKeywordIntentClassifier(), 2, nil)

	query := domain.Query{Text: "Súmula 331 do TST", Flags: domain.RetrievalFlags{GraphEnabled: true}}
	if _, hit := router.Lookup(context.Background(), query, domain.SearchFilter{}); hit {
		t.Fatalf("empty neighborhood should not short-circuit")
	}
	if graph.lookupCalls != 1 {
		t.Fatalf("graph should have been consulted once, got %d", graph.lookupCalls)
	}
}

func TestGraphRouterLookupErrorDegrades(t *testing.T) {
	graph := &fakeGraphStore{err: errors.New("bolt timeout")}
	router := newGraphRouter(graph, NewKeywordIntentClassifier(), 2, nil)

	query := domain.Query{Text: "Súmula 331 do TST", Flags: domain.RetrievalFlags{GraphEnabled: true}}
	if _, hit := router.Lookup(context.Background(), query, domain.SearchFilter{}); hit {
		t.Fatalf("graph error must degrade to hybrid, not short-circuit")
	}
}

func TestGraphRouterEnrichUsesChunkCitations(t *testing.T) {
	graph := &fakeGraphStore{cooccurrence: domain.GraphContext{Text: "Lei 8.666/93 -[REVOGADA_POR]-> Lei 14.133/2021"}}
	router := newGraphRouter(graph, NewKeywordIntentClassifier(), 2, nil)

	chunk := chunkAt("doc-1", 0, "aplicação da Lei 8.666/93 a contratos vigentes")
	query := domain.Query{Text: "q", Flags: domain.RetrievalFlags{GraphEnabled: true}}

	gctx := router.Enrich(context.Background(), query, []domain.RetrievedChunk{chunk}, domain.SearchFilter{})
	if gctx.Empty() {
		t.Fatalf("expected enrichment context")
	}
	if graph.cooccurCalls != 1 {
		t.Fatalf("cooccurrence calls = %d, want 1", graph.cooccurCalls)
	}
}

func TestGraphRouterEnrichWithoutEntitiesSkipsGraph(t *testing.T) {
	graph := &fakeGraphStore{}
	router := newGraphRouter(graph, NewKeywordIntentClassifier(), 2, nil)

	chunk := chunkAt("doc-1", 0, "texto sem nenhuma norma referida")
	query := domain.Query{Text: "q", Flags: domain.RetrievalFlags{GraphEnabled: true}}

	if gctx := router.Enrich(context.Background(), query, []domain.RetrievedChunk{chunk}, domain.SearchFilter{}); !gctx.Empty() {
		t.Fatalf("expected empty enrichment without entities")
	}
	if graph.cooccurCalls != 0 {
		t.Fatalf("graph consulted without entities")
	}
}
