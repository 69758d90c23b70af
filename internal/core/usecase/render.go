package usecase

import (
	"fmt"
	"sort"
	"strings"

	"github.com/advogai/juris-rag/internal/core/domain"
)

// graphCorroborationNote wraps graph-derived context so downstream drafting
// treats it as corroborating evidence, not sole authority.
const graphCorroborationNote = "[contexto de grafo: usar apenas como evidência corroborativa, não como autoridade única]"

// renderContext produces the citation-ready context string. Chunks are
// grouped by document in first-appearance order and each document's chunks
// are ordered by chunk index, so parent-child siblings read contiguously.
func renderContext(chunks []domain.RetrievedChunk, graph domain.GraphContext) string {
	var b strings.Builder

	docOrder := make([]string, 0, len(chunks))
	byDoc := make(map[string][]domain.RetrievedChunk)
	for _, chunk := range chunks {
		docID := chunk.Metadata.DocumentID
		if _, ok := byDoc[docID]; !ok {
			docOrder = append(docOrder, docID)
		}
		byDoc[docID] = append(byDoc[docID], chunk)
	}

	block := 0
	for _, docID := range docOrder {
		group := byDoc[docID]
		sort.SliceStable(group, func(i, j int) bool {
			return group[i].Metadata.ChunkIndex < group[j].Metadata.ChunkIndex
		})
		for _, chunk := range group {
			block++
			b.WriteString(fmt.Sprintf("[%d] doc=%s trecho=%d", block, docID, chunk.Metadata.ChunkIndex))
			if chunk.Metadata.SourceDomain != "" {
				b.WriteString(" fonte=" + chunk.Metadata.SourceDomain)
			}
			if chunk.Metadata.Jurisdiction != "" {
				b.WriteString(" jurisdição=" + chunk.Metadata.Jurisdiction)
			}
			b.WriteString(fmt.Sprintf(" origem=%s score=%.4f", chunk.Source, chunk.FusedScore))
			if len(chunk.Metadata.Citations) > 0 {
				b.WriteString(" normas=" + strings.Join(chunk.Metadata.Citations, "; "))
			}
			b.WriteString("\n")
			b.WriteString(strings.TrimSpace(chunk.Text))
			b.WriteString("\n\n")
		}
	}

	if !graph.Empty() {
		b.WriteString(renderGraphContext(graph))
	}

	return strings.TrimRight(b.String(), "\n")
}

func renderGraphContext(graph domain.GraphContext) string {
	if graph.Empty() {
		return ""
	}
	var b strings.Builder
	b.WriteString(graphCorroborationNote)
	b.WriteString("\n")
	b.WriteString(strings.TrimSpace(graph.Text))
	b.WriteString("\n")
	return b.String()
}
