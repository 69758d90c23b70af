package usecase

import (
	"strings"
	"testing"

	"github.com/advogai/juris-rag/internal/core/domain"
)

func TestRenderContextGroupsSiblingsContiguously(t *testing.T) {
	c1 := chunkAt("doc-1", 2, "trecho dois do doc um")
	c1.Source = domain.SourceLexical
	c2 := chunkAt("doc-2", 0, "trecho do doc dois")
	c2.Source = domain.SourceVector
	sibling := chunkAt("doc-1", 1, "trecho um do doc um")
	sibling.Source = domain.SourceSibling

	out := renderContext([]domain.RetrievedChunk{c1, c2, sibling}, domain.GraphContext{})

	idxDoc1First := strings.Index(out, "doc=doc-1 trecho=1")
	idxDoc1Second := strings.Index(out, "doc=doc-1 trecho=2")
	idxDoc2 := strings.Index(out, "doc=doc-2 trecho=0")
	if idxDoc1First < 0 || idxDoc1Second < 0 || idxDoc2 < 0 {
		t.Fatalf("missing block headers:\n%s", out)
	}
	if !(idxDoc1First < idxDoc1Second && idxDoc1Second < idxDoc2) {
		t.Fatalf("doc-1 siblings not contiguous and index-ordered:\n%s", out)
	}
	if !strings.HasPrefix(out, "[1] ") {
		t.Fatalf("blocks not numbered from 1:\n%s", out)
	}
}

func TestRenderContextAppendsGraphNote(t *testing.T) {
	chunks := []domain.RetrievedChunk{chunkAt("doc-1", 0, "texto")}
	graph := domain.GraphContext{Text: "Súmula 331 -[INTERPRETA]-> CLT", Hops: 2}

	out := renderContext(chunks, graph)
	if !strings.Contains(out, graphCorroborationNote) {
		t.Fatalf("graph corroboration note missing:\n%s", out)
	}
	if !strings.Contains(out, "Súmula 331 -[INTERPRETA]-> CLT") {
		t.Fatalf("graph triples missing:\n%s", out)
	}
}

func TestRenderGraphContextEmpty(t *testing.T) {
	if got := renderGraphContext(domain.GraphContext{}); got != "" {
		t.Fatalf("empty graph context rendered %q", got)
	}
}
