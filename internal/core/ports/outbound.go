package ports

import (
	"context"

	"github.com/advogai/juris-rag/internal/core/domain"
)

// SearchBackend is one retriever in the fan-out. Implementations apply
// tenant scoping server-side, in the wire request itself.
type SearchBackend interface {
	Name() domain.SourceTag
	Search(ctx context.Context, query string, topK int, filter domain.SearchFilter) ([]domain.RetrievedChunk, error)
}

// Embedder builds vectors for chunks and query text.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// ExpansionGenerator is the external text-generation collaborator used by
// the query expander. Failures are non-fatal to retrieval.
type ExpansionGenerator interface {
	ExpandQuery(ctx context.Context, query string, max int) ([]string, error)
	HypotheticalDocument(ctx context.Context, query string) (string, error)
}

// GraphStore runs whitelisted graph query templates only; free-form query
// text never reaches the graph backend.
type GraphStore interface {
	Neighborhood(ctx context.Context, canonical string, hops int, filter domain.SearchFilter) (domain.GraphContext, error)
	Cooccurrence(ctx context.Context, entities []string, hops int, filter domain.SearchFilter) (domain.GraphContext, error)
}

// IntentClassifier decides whether a query is answerable by a direct graph
// lookup, and if so with which canonical lookup text.
type IntentClassifier interface {
	Classify(query string) domain.Intent
}

// ChunkNeighborStore fetches sibling chunks of a matched chunk from the same
// source document, by chunk index distance.
type ChunkNeighborStore interface {
	Siblings(ctx context.Context, tenantID, documentID string, chunkIndex, window, maxExtra int) ([]domain.RetrievedChunk, error)
}

// ResultCache is the process-local retrieval result cache. Advisory only:
// any failure falls through to a fresh backend query.
type ResultCache interface {
	Get(key string) (*domain.RetrievalResult, bool)
	Set(key string, value domain.RetrievalResult)
	InvalidateTenant(tenantID string)
	InvalidateCase(tenantID, caseID string)
}
