package usecase

import (
	"context"
	"log/slog"

	"github.com/advogai/juris-rag/internal/core/domain"
	"github.com/advogai/juris-rag/internal/core/ports"
)

// graphRouter decides between a direct graph lookup and full hybrid search,
// and enriches hybrid results with graph context when the lookup path was
// not taken.
type graphRouter struct {
	graph       ports.GraphStore
	classifier  ports.IntentClassifier
	defaultHops int
	logger      *slog.Logger
}

func newGraphRouter(graph ports.GraphStore, classifier ports.IntentClassifier, defaultHops int, logger *slog.Logger) *graphRouter {
	if defaultHops <= 0 {
		defaultHops = 2
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &graphRouter{
		graph:       graph,
		classifier:  classifier,
		defaultHops: defaultHops,
		logger:      logger,
	}
}

func (r *graphRouter) hops(flags domain.RetrievalFlags) int {
	if flags.GraphHops > 0 {
		return flags.GraphHops
	}
	return r.defaultHops
}

// Lookup tries the graph-primary path. A non-empty neighborhood short-
// circuits the lexical/vector fan-out entirely. Graph errors fall through
// to hybrid search.
func (r *graphRouter) Lookup(ctx context.Context, query domain.Query, filter domain.SearchFilter) (domain.GraphContext, bool) {
	if r.graph == nil || r.classifier == nil || !query.Flags.GraphEnabled {
		return domain.GraphContext{}, false
	}
	intent := r.classifier.Classify(query.Text)
	if !intent.GraphAnswerable {
		return domain.GraphContext{}, false
	}

	gctx, err := r.graph.Neighborhood(ctx, intent.Canonical, r.hops(query.Flags), filter)
	if err != nil {
		r.logger.Warn("graph_lookup_degraded", "canonical", intent.Canonical, "error", err)
		return domain.GraphContext{}, false
	}
	if gctx.Empty() {
		return domain.GraphContext{}, false
	}
	return gctx, true
}

// Enrich adds graph context around the entities mentioned in the top fused
// chunks. Enrichment never replaces chunks and its failure is non-fatal.
func (r *graphRouter) Enrich(ctx context.Context, query domain.Query, chunks []domain.RetrievedChunk, filter domain.SearchFilter) domain.GraphContext {
	if r.graph == nil || !query.Flags.GraphEnabled || len(chunks) == 0 {
		return domain.GraphContext{}
	}

	entities := topEntities(chunks, 5)
	if len(entities) == 0 {
		return domain.GraphContext{}
	}

	gctx, err := r.graph.Cooccurrence(ctx, entities, r.hops(query.Flags), filter)
	if err != nil {
		r.logger.Warn("graph_enrichment_degraded", "error", err)
		return domain.GraphContext{}
	}
	return gctx
}

// topEntities collects distinct citations from the highest-ranked chunks,
// preserving rank order.
func topEntities(chunks []domain.RetrievedChunk, max int) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, chunk := range chunks {
		citations := chunk.Metadata.Citations
		if len(citations) == 0 {
			citations = domain.ExtractCitations(chunk.Text)
		}
		for _, c := range citations {
			key := canonicalCitation(c)
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, key)
			if len(out) >= max {
				return out
			}
		}
	}
	return out
}
