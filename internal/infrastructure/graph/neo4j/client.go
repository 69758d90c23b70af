package neo4j

import (
	"context"
	"fmt"
	"strings"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/advogai/juris-rag/internal/core/domain"
)

const resultLimit = 50

// Client queries the legal knowledge graph through whitelisted Cypher
// templates. The driver is long-lived and safe for concurrent sessions.
type Client struct {
	driver   neo4j.DriverWithContext
	database string
}

func New(ctx context.Context, uri, user, password string) (*Client, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(user, password, ""))
	if err != nil {
		return nil, fmt.Errorf("create neo4j driver: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		return nil, fmt.Errorf("verify neo4j connectivity: %w", err)
	}
	return &Client{driver: driver, database: "neo4j"}, nil
}

func (c *Client) Close(ctx context.Context) error {
	return c.driver.Close(ctx)
}

// Neighborhood returns the bounded-hop neighborhood around the entity named
// by canonical, rendered as relation triples.
func (c *Client) Neighborhood(ctx context.Context, canonical string, hops int, filter domain.SearchFilter) (domain.GraphContext, error) {
	triples, err := c.run(ctx, opNeighbors, hops, map[string]any{
		"tenant_id": filter.TenantID,
		"name":      canonical,
		"limit":     resultLimit,
	})
	if err != nil {
		return domain.GraphContext{}, err
	}
	return renderTriples(triples, hops), nil
}

// Cooccurrence returns graph context shared by several entities at once,
// used to enrich hybrid results.
func (c *Client) Cooccurrence(ctx context.Context, entities []string, hops int, filter domain.SearchFilter) (domain.GraphContext, error) {
	if len(entities) == 0 {
		return domain.GraphContext{}, nil
	}
	triples, err := c.run(ctx, opCooccurrence, hops, map[string]any{
		"tenant_id": filter.TenantID,
		"names":     entities,
		"limit":     resultLimit,
	})
	if err != nil {
		return domain.GraphContext{}, err
	}
	return renderTriples(triples, hops), nil
}

// Path returns the shortest relation path between two entities.
func (c *Client) Path(ctx context.Context, from, to string, hops int, filter domain.SearchFilter) (domain.GraphContext, error) {
	triples, err := c.run(ctx, opPath, hops, map[string]any{
		"tenant_id": filter.TenantID,
		"from":      from,
		"to":        to,
		"limit":     resultLimit,
	})
	if err != nil {
		return domain.GraphContext{}, err
	}
	return renderTriples(triples, hops), nil
}

type triple struct {
	source   string
	relation string
	target   string
}

func (c *Client) run(ctx context.Context, operation string, hops int, params map[string]any) ([]triple, error) {
	cypher, err := renderTemplate(operation, hops)
	if err != nil {
		return nil, err
	}

	session := c.driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeRead,
		DatabaseName: c.database,
	})
	defer session.Close(ctx)

	result, err := session.Run(ctx, cypher, params)
	if err != nil {
		return nil, fmt.Errorf("run %s template: %w", operation, err)
	}

	var triples []triple
	for result.Next(ctx) {
		record := result.Record()
		triples = append(triples, triple{
			source:   recordString(record, "source"),
			relation: recordString(record, "relation"),
			target:   recordString(record, "target"),
		})
	}
	if err := result.Err(); err != nil {
		return nil, fmt.Errorf("read %s result: %w", operation, err)
	}
	return triples, nil
}

func recordString(record *neo4j.Record, key string) string {
	v, ok := record.Get(key)
	if !ok {
		return ""
	}
	s, ok := v.(string)
	if !ok {
		return ""
	}
	return s
}

func renderTriples(triples []triple, hops int) domain.GraphContext {
	if len(triples) == 0 {
		return domain.GraphContext{}
	}

	var b strings.Builder
	seen := make(map[string]struct{})
	var entities []string
	for _, t := range triples {
		b.WriteString(fmt.Sprintf("%s -[%s]-> %s\n", t.source, t.relation, t.target))
		for _, name := range []string{t.source, t.target} {
			if name == "" {
				continue
			}
			if _, ok := seen[name]; ok {
				continue
			}
			seen[name] = struct{}{}
			entities = append(entities, name)
		}
	}
	return domain.GraphContext{
		Text:     strings.TrimRight(b.String(), "\n"),
		Entities: entities,
		Hops:     hops,
	}
}
