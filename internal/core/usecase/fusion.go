package usecase

import (
	"sort"

	"github.com/advogai/juris-rag/internal/core/domain"
)

// rankedList is one backend's output for one query, with its fusion weight.
type rankedList struct {
	source domain.SourceTag
	weight float64
	chunks []domain.RetrievedChunk
}

type fusedCandidate struct {
	chunk    domain.RetrievedChunk
	score    float64
	bestRank int
}

// fuseRRF merges ranked lists with weighted reciprocal rank fusion. Pure
// function of its inputs: identical lists always produce identical output,
// including order.
func fuseRRF(lists []rankedList, rrfK int) domain.FusedResultSet {
	if rrfK <= 0 {
		rrfK = 60
	}

	acc := make(map[string]fusedCandidate)
	for _, list := range lists {
		weight := list.weight
		if weight <= 0 {
			weight = 1.0
		}
		for i, chunk := range list.chunks {
			rank := i + 1
			key := chunk.Key()
			candidate, ok := acc[key]
			if !ok {
				candidate.bestRank = rank
			}
			candidate.chunk = preferRicherChunk(candidate.chunk, chunk)
			candidate.score += weight / float64(rrfK+rank)
			if rank < candidate.bestRank {
				candidate.bestRank = rank
			}
			acc[key] = candidate
		}
	}

	out := make([]domain.RetrievedChunk, 0, len(acc))
	ranks := make(map[string]int, len(acc))
	for key, c := range acc {
		chunk := c.chunk
		chunk.FusedScore = c.score
		out = append(out, chunk)
		ranks[key] = c.bestRank
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].FusedScore != out[j].FusedScore {
			return out[i].FusedScore > out[j].FusedScore
		}
		ri, rj := ranks[out[i].Key()], ranks[out[j].Key()]
		if ri != rj {
			return ri < rj
		}
		if out[i].Metadata.DocumentID != out[j].Metadata.DocumentID {
			return out[i].Metadata.DocumentID < out[j].Metadata.DocumentID
		}
		return out[i].Metadata.ChunkIndex < out[j].Metadata.ChunkIndex
	})

	return domain.FusedResultSet{
		Chunks:  out,
		Metrics: gateMetrics(out),
	}
}

func gateMetrics(chunks []domain.RetrievedChunk) domain.GateMetrics {
	if len(chunks) == 0 {
		return domain.GateMetrics{}
	}
	top := 3
	if len(chunks) < top {
		top = len(chunks)
	}
	var sum float64
	for _, c := range chunks[:top] {
		sum += c.FusedScore
	}
	return domain.GateMetrics{
		BestScore: chunks[0].FusedScore,
		AvgTop3:   sum / float64(top),
	}
}

func trimChunks(chunks []domain.RetrievedChunk, limit int) []domain.RetrievedChunk {
	if limit <= 0 || len(chunks) <= limit {
		return chunks
	}
	return chunks[:limit]
}

// preferRicherChunk keeps the variant with the most metadata when the same
// chunk arrives from more than one backend.
func preferRicherChunk(current, candidate domain.RetrievedChunk) domain.RetrievedChunk {
	if current.Metadata.DocumentID == "" && current.Text == "" {
		return candidate
	}
	if current.Text == "" && candidate.Text != "" {
		current.Text = candidate.Text
	}
	if current.Metadata.SourceDomain == "" && candidate.Metadata.SourceDomain != "" {
		current.Metadata.SourceDomain = candidate.Metadata.SourceDomain
	}
	if current.Metadata.Jurisdiction == "" && candidate.Metadata.Jurisdiction != "" {
		current.Metadata.Jurisdiction = candidate.Metadata.Jurisdiction
	}
	if len(current.Metadata.Citations) == 0 && len(candidate.Metadata.Citations) > 0 {
		current.Metadata.Citations = candidate.Metadata.Citations
	}
	if current.Metadata.Scope == "" && candidate.Metadata.Scope != "" {
		current.Metadata.Scope = candidate.Metadata.Scope
	}
	if candidate.RawScore > current.RawScore {
		current.RawScore = candidate.RawScore
	}
	return current
}
