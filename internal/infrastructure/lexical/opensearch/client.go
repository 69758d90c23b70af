package opensearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/advogai/juris-rag/internal/core/domain"
)

// Client is the BM25 lexical backend over the OpenSearch HTTP API. One
// index per source domain, named "<prefix>-<source>". Tenant scoping is
// part of every request body, never applied client-side only.
type Client struct {
	baseURL     string
	indexPrefix string
	httpClient  *http.Client
}

func New(baseURL, indexPrefix string) *Client {
	return &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		indexPrefix: indexPrefix,
		httpClient:  &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *Client) Name() domain.SourceTag {
	return domain.SourceLexical
}

func (c *Client) Search(ctx context.Context, query string, topK int, filter domain.SearchFilter) ([]domain.RetrievedChunk, error) {
	if topK <= 0 {
		topK = 10
	}

	reqBody := map[string]any{
		"size": topK,
		"query": map[string]any{
			"bool": map[string]any{
				"must": []map[string]any{
					{
						"match": map[string]any{
							"chunk_text": map[string]any{"query": query},
						},
					},
				},
				"filter": []map[string]any{tenantFilter(filter)},
			},
		},
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal search body: %w", err)
	}

	url := fmt.Sprintf("%s/%s/_search", c.baseURL, c.indices(filter))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("opensearch search request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("opensearch search status: %s", resp.Status)
	}

	var searchResp struct {
		Hits struct {
			Hits []struct {
				Score  float64        `json:"_score"`
				Source map[string]any `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&searchResp); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	out := make([]domain.RetrievedChunk, 0, len(searchResp.Hits.Hits))
	for _, hit := range searchResp.Hits.Hits {
		out = append(out, domain.RetrievedChunk{
			Text:     getString(hit.Source, "chunk_text"),
			RawScore: hit.Score,
			Source:   domain.SourceLexical,
			Metadata: metadataFromSource(hit.Source),
		})
	}
	return out, nil
}

// DeleteByQuery removes every chunk of a tenant (optionally narrowed to a
// document) and returns the number of deletions. Used by the retention
// cleanup collaborator.
func (c *Client) DeleteByQuery(ctx context.Context, filter domain.SearchFilter, documentID string) (int64, error) {
	clauses := []map[string]any{tenantFilter(filter)}
	if documentID != "" {
		clauses = append(clauses, map[string]any{
			"term": map[string]any{"document_id": documentID},
		})
	}
	reqBody := map[string]any{
		"query": map[string]any{"bool": map[string]any{"filter": clauses}},
	}

	var deleteResp struct {
		Deleted int64 `json:"deleted"`
	}
	url := fmt.Sprintf("%s/%s/_delete_by_query", c.baseURL, c.indices(filter))
	if err := c.postJSON(ctx, url, reqBody, &deleteResp); err != nil {
		return 0, fmt.Errorf("opensearch delete by query: %w", err)
	}
	return deleteResp.Deleted, nil
}

// Count reports how many chunks match the tenant scope.
func (c *Client) Count(ctx context.Context, filter domain.SearchFilter) (int64, error) {
	reqBody := map[string]any{
		"query": map[string]any{
			"bool": map[string]any{"filter": []map[string]any{tenantFilter(filter)}},
		},
	}

	var countResp struct {
		Count int64 `json:"count"`
	}
	url := fmt.Sprintf("%s/%s/_count", c.baseURL, c.indices(filter))
	if err := c.postJSON(ctx, url, reqBody, &countResp); err != nil {
		return 0, fmt.Errorf("opensearch count: %w", err)
	}
	return countResp.Count, nil
}

func (c *Client) postJSON(ctx context.Context, url string, reqBody any, out any) error {
	body, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("marshal body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
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
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		if msg := strings.TrimSpace(string(raw)); msg != "" {
			return fmt.Errorf("status %s: %s", resp.Status, msg)
		}
		return fmt.Errorf("status %s", resp.Status)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// indices resolves the requested source domains to index names; empty
// sources mean every index under the prefix.
func (c *Client) indices(filter domain.SearchFilter) string {
	if len(filter.Sources) == 0 {
		return c.indexPrefix + "-*"
	}
	names := make([]string, 0, len(filter.Sources))
	for _, source := range filter.Sources {
		names = append(names, c.indexPrefix+"-"+source)
	}
	return strings.Join(names, ",")
}

// tenantFilter builds the server-side tenant predicate: the tenant's own
// chunks, plus the shared global corpus when include_global is set.
func tenantFilter(filter domain.SearchFilter) map[string]any {
	should := []map[string]any{
		{"term": map[string]any{"tenant_id": filter.TenantID}},
	}
	if filter.IncludeGlobal {
		should = append(should, map[string]any{
			"term": map[string]any{"scope": domain.ScopeGlobal},
		})
	}
	return map[string]any{
		"bool": map[string]any{
			"should":               should,
			"minimum_should_match": 1,
		},
	}
}

func metadataFromSource(source map[string]any) domain.ChunkMetadata {
	return domain.ChunkMetadata{
		TenantID:     getString(source, "tenant_id"),
		DocumentID:   getString(source, "document_id"),
		ChunkIndex:   getInt(source, "chunk_index"),
		SourceDomain: getString(source, "source_domain"),
		Jurisdiction: getString(source, "jurisdiction"),
		Citations:    getStrings(source, "citations"),
		Scope:        getString(source, "scope"),
	}
}

func getString(m map[string]any, key string) string {
	v, ok := m[key]
	if !ok {
		return ""
	}
	s, ok := v.(string)
	if ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

func getInt(m map[string]any, key string) int {
	switch v := m[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	}
	return 0
}

func getStrings(m map[string]any, key string) []string {
	raw, ok := m[key].([]any)
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
