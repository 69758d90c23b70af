package usecase

import (
	"context"
	"log/slog"
	"strings"

	"github.com/advogai/juris-rag/internal/core/ports"
)

// QueryExpander widens recall by asking the generation collaborator for
// paraphrases and sub-queries. Collaborator failure is never fatal: the
// retrieval proceeds with the original query only.
type QueryExpander struct {
	generator ports.ExpansionGenerator
	max       int
	logger    *slog.Logger
}

func NewQueryExpander(generator ports.ExpansionGenerator, max int, logger *slog.Logger) *QueryExpander {
	if max <= 0 {
		max = 3
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &QueryExpander{generator: generator, max: max, logger: logger}
}

// Expand returns up to max paraphrases, excluding empty lines and exact
// repeats of the original query.
func (e *QueryExpander) Expand(ctx context.Context, query string) []string {
	if e.generator == nil {
		return nil
	}
	raw, err := e.generator.ExpandQuery(ctx, query, e.max)
	if err != nil {
		e.logger.Warn("query_expansion_failed", "error", err)
		return nil
	}

	original := strings.ToLower(strings.TrimSpace(query))
	seen := map[string]struct{}{original: {}}
	out := make([]string, 0, e.max)
	for _, candidate := range raw {
		candidate = strings.TrimSpace(candidate)
		key := strings.ToLower(candidate)
		if candidate == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, candidate)
		if len(out) >= e.max {
			break
		}
	}
	return out
}

// Hypothetical returns a hypothetical answer document for HyDE-style vector
// search, or "" when the collaborator is unavailable.
func (e *QueryExpander) Hypothetical(ctx context.Context, query string) string {
	if e.generator == nil {
		return ""
	}
	doc, err := e.generator.HypotheticalDocument(ctx, query)
	if err != nil {
		e.logger.Warn("hypothetical_document_failed", "error", err)
		return ""
	}
	return strings.TrimSpace(doc)
}
