package domain

import "strconv"

// SourceTag identifies the backend that produced a retrieved chunk.
type SourceTag string

const (
	SourceLexical SourceTag = "lexical"
	SourceVector  SourceTag = "vector"
	SourceGraph   SourceTag = "graph"
	SourceSibling SourceTag = "sibling"
)

// ScopeGlobal marks chunks visible to every case of a tenant.
const ScopeGlobal = "global"

type RetrievalFlags struct {
	MultiQuery   bool `json:"multi_query"`
	Compression  bool `json:"compression"`
	ParentChild  bool `json:"parent_child"`
	Corrective   bool `json:"corrective"`
	GraphEnabled bool `json:"graph_enabled"`
	GraphHops    int  `json:"graph_hops"`
}

// Query is immutable for the duration of one retrieval call.
type Query struct {
	Text       string          `json:"text"`
	TenantID   string          `json:"tenant_id"`
	CaseID     string          `json:"case_id,omitempty"`
	Sources    []string        `json:"sources,omitempty"`
	TopK       int             `json:"top_k"`
	Flags      RetrievalFlags  `json:"flags"`
	Profile    Profile         `json:"profile,omitempty"`
	Thresholds *GateThresholds `json:"thresholds,omitempty"`
}

// SearchFilter carries the tenant boundary every backend call must respect.
type SearchFilter struct {
	TenantID      string
	CaseID        string
	Sources       []string
	IncludeGlobal bool
}

type ChunkMetadata struct {
	TenantID     string   `json:"tenant_id"`
	DocumentID   string   `json:"document_id"`
	ChunkIndex   int      `json:"chunk_index"`
	SourceDomain string   `json:"source_domain,omitempty"`
	Jurisdiction string   `json:"jurisdiction,omitempty"`
	Citations    []string `json:"citations,omitempty"`
	Scope        string   `json:"scope,omitempty"`
}

type RetrievedChunk struct {
	Text       string        `json:"text"`
	Metadata   ChunkMetadata `json:"metadata"`
	RawScore   float64       `json:"raw_score"`
	FusedScore float64       `json:"fused_score"`
	Source     SourceTag     `json:"source"`
}

// Key identifies a chunk across backends for fusion dedup.
func (c RetrievedChunk) Key() string {
	return c.Metadata.DocumentID + ":" + strconv.Itoa(c.Metadata.ChunkIndex)
}

type GateMetrics struct {
	BestScore float64 `json:"best_score"`
	AvgTop3   float64 `json:"avg_top3_score"`
}

// FusedResultSet is created once per retrieval attempt and never mutated
// after it reaches the quality gate.
type FusedResultSet struct {
	Chunks  []RetrievedChunk `json:"chunks"`
	Metrics GateMetrics      `json:"metrics"`
}

type GateDecision struct {
	Pass   bool   `json:"pass"`
	Reason string `json:"reason,omitempty"`
}

// RetrievalStrategy is the set of escalation knobs for one attempt. Knobs
// are only ever turned on, which keeps the escalation sequence monotonic.
type RetrievalStrategy struct {
	MultiQuery   bool `json:"multi_query"`
	Hypothetical bool `json:"hypothetical"`
	WideScope    bool `json:"wide_scope"`
}

// GraphContext is the rendered neighborhood returned by the graph backend.
type GraphContext struct {
	Text     string   `json:"text"`
	Entities []string `json:"entities,omitempty"`
	Hops     int      `json:"hops"`
}

func (g GraphContext) Empty() bool {
	return g.Text == ""
}

// Intent is the graph-intent classification contract.
type Intent struct {
	GraphAnswerable bool
	Canonical       string
}

// RetrievalResult is the inbound-contract response shape.
type RetrievalResult struct {
	RenderedContext string           `json:"rendered_context"`
	GraphContext    string           `json:"graph_context,omitempty"`
	Chunks          []RetrievedChunk `json:"chunks"`
	SafeMode        bool             `json:"safe_mode,omitempty"`
	NoEvidence      bool             `json:"no_evidence,omitempty"`
	Attempts        int              `json:"attempts"`
}
