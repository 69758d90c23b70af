package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/advogai/juris-rag/internal/core/domain"
	"github.com/advogai/juris-rag/internal/core/ports"
)

// Client is the semantic backend over the Qdrant HTTP API. Embeddings are
// computed through the injected embedder; chunk texts get their context
// prefix before embedding so near-identical fragments embed distinctly.
type Client struct {
	baseURL    string
	collection string
	embedder   ports.Embedder
	httpClient *http.Client

	ensureMu          sync.Mutex
	ensuredCollection bool
	ensuredVectorSize int
}

func New(baseURL, collection string, embedder ports.Embedder) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		collection: collection,
		embedder:   embedder,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

func (c *Client) Name() domain.SourceTag {
	return domain.SourceVector
}

func (c *Client) Search(ctx context.Context, query string, topK int, filter domain.SearchFilter) ([]domain.RetrievedChunk, error) {
	if topK <= 0 {
		topK = 10
	}

	queryVector, err := c.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	reqBody := map[string]any{
		"vector":       queryVector,
		"limit":        topK,
		"with_payload": true,
		"filter":       tenantFilter(filter),
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal search body: %w", err)
	}

	url := fmt.Sprintf("%s/collections/%s/points/search", c.baseURL, c.collection)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("qdrant search request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("qdrant search status: %s", resp.Status)
	}

	var searchResp struct {
		Result []struct {
			Score   float64        `json:"score"`
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&searchResp); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	out := make([]domain.RetrievedChunk, 0, len(searchResp.Result))
	for _, r := range searchResp.Result {
		out = append(out, domain.RetrievedChunk{
			Text:     getStringPayload(r.Payload, "chunk_text"),
			RawScore: r.Score,
			Source:   domain.SourceVector,
			Metadata: metadataFromPayload(r.Payload),
		})
	}
	return out, nil
}

// IndexChunks upserts chunks for the ingestion collaborator. Each text is
// embedded with its derived context prefix; the stored payload keeps the
// raw text.
func (c *Client) IndexChunks(ctx context.Context, chunks []domain.RetrievedChunk) error {
	if len(chunks) == 0 {
		return nil
	}

	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = domain.ContextPrefix(chunk.Metadata, chunk.Text) + chunk.Text
	}
	vectors, err := c.embedder.Embed(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed chunks: %w", err)
	}
	if len(vectors) != len(chunks) {
		return fmt.Errorf("chunks/vectors mismatch: %d != %d", len(chunks), len(vectors))
	}

	if err := c.ensureCollection(ctx, len(vectors[0])); err != nil {
		return err
	}

	type point struct {
		ID      string         `json:"id"`
		Vector  []float32      `json:"vector"`
		Payload map[string]any `json:"payload"`
	}

	points := make([]point, 0, len(chunks))
	for i, chunk := range chunks {
		points = append(points, point{
			ID:     uuid.NewString(),
			Vector: vectors[i],
			Payload: map[string]any{
				"tenant_id":     chunk.Metadata.TenantID,
				"document_id":   chunk.Metadata.DocumentID,
				"chunk_index":   chunk.Metadata.ChunkIndex,
				"source_domain": chunk.Metadata.SourceDomain,
				"jurisdiction":  chunk.Metadata.Jurisdiction,
				"citations":     chunk.Metadata.Citations,
				"scope":         chunk.Metadata.Scope,
				"chunk_text":    chunk.Text,
			},
		})
	}

	url := fmt.Sprintf("%s/collections/%s/points?wait=true", c.baseURL, c.collection)
	if err := c.doJSON(ctx, http.MethodPut, url, map[string]any{"points": points}); err != nil {
		return fmt.Errorf("qdrant upsert: %w", err)
	}
	return nil
}

// DeletePoints removes points by tenant/document filter, for the retention
// cleanup collaborator.
func (c *Client) DeletePoints(ctx context.Context, tenantID, documentID string) error {
	must := []map[string]any{
		{"key": "tenant_id", "match": map[string]any{"value": tenantID}},
	}
	if documentID != "" {
		must = append(must, map[string]any{
			"key": "document_id", "match": map[string]any{"value": documentID},
		})
	}

	url := fmt.Sprintf("%s/collections/%s/points/delete?wait=true", c.baseURL, c.collection)
	reqBody := map[string]any{"filter": map[string]any{"must": must}}
	if err := c.doJSON(ctx, http.MethodPost, url, reqBody); err != nil {
		return fmt.Errorf("qdrant delete points: %w", err)
	}
	return nil
}

func (c *Client) ensureCollection(ctx context.Context, vectorSize int) error {
	c.ensureMu.Lock()
	if c.ensuredCollection && c.ensuredVectorSize == vectorSize {
		c.ensureMu.Unlock()
		return nil
	}
	c.ensureMu.Unlock()

	reqBody := map[string]any{
		"vectors": map[string]any{
			"size":     vectorSize,
			"distance": "Cosine",
		},
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("marshal create collection body: %w", err)
	}

	url := fmt.Sprintf("%s/collections/%s", c.baseURL, c.collection)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create collection request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("qdrant ensure collection request: %w", err)
	}
	defer resp.Body.Close()

	// 200/201 for create, 409 if already exists (depends on version/config).
	if resp.StatusCode == http.StatusConflict {
		c.markCollectionEnsured(vectorSize)
		return nil
	}
	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		if msg := strings.TrimSpace(string(raw)); msg != "" {
			return fmt.Errorf("qdrant ensure collection status: %s: %s", resp.Status, msg)
		}
		return fmt.Errorf("qdrant ensure collection status: %s", resp.Status)
	}
	c.markCollectionEnsured(vectorSize)
	return nil
}

func (c *Client) markCollectionEnsured(vectorSize int) {
	c.ensureMu.Lock()
	defer c.ensureMu.Unlock()
	c.ensuredCollection = true
	c.ensuredVectorSize = vectorSize
}

func (c *Client) doJSON(ctx context.Context, method, url string, reqBody any) error {
	body, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("marshal body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("status: %s", resp.Status)
	}
	return nil
}

// tenantFilter is the server-side payload filter: the tenant's own points,
// plus global-scope points when include_global is set.
func tenantFilter(filter domain.SearchFilter) map[string]any {
	should := []map[string]any{
		{"key": "tenant_id", "match": map[string]any{"value": filter.TenantID}},
	}
	if filter.IncludeGlobal {
		should = append(should, map[string]any{
			"key": "scope", "match": map[string]any{"value": domain.ScopeGlobal},
		})
	}
	return map[string]any{"should": should}
}

func metadataFromPayload(payload map[string]any) domain.ChunkMetadata {
	return domain.ChunkMetadata{
		TenantID:     getStringPayload(payload, "tenant_id"),
		DocumentID:   getStringPayload(payload, "document_id"),
		ChunkIndex:   getIntPayload(payload, "chunk_index"),
		SourceDomain: getStringPayload(payload, "source_domain"),
		Jurisdiction: getStringPayload(payload, "jurisdiction"),
		Citations:    getStringsPayload(payload, "citations"),
		Scope:        getStringPayload(payload, "scope"),
	}
}

func getStringPayload(payload map[string]any, key string) string {
	v, ok := payload[key]
	if !ok {
		return ""
	}
	s, ok := v.(string)
	if ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

func getIntPayload(payload map[string]any, key string) int {
	switch v := payload[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	}
	return 0
}

func getStringsPayload(payload map[string]any, key string) []string {
	raw, ok := payload[key].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
