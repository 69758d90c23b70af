package neo4j

import (
	"fmt"
	"strings"
)

// Whitelisted query template names. Free-form Cypher never reaches the
// graph backend: callers pick an operation and supply typed parameters.
const (
	opNeighbors    = "neighbors"
	opPath         = "path"
	opCooccurrence = "cooccurrence"
)

const (
	minHops = 1
	maxHops = 3
)

// Every template carries the tenant/scope predicate server-side. Hop count
// is validated and substituted as an integer because Cypher cannot
// parameterize variable-length bounds.
var queryTemplates = map[string]string{
	opNeighbors: `
MATCH (e:Entity)
WHERE (e.tenant_id = $tenant_id OR e.scope = 'global')
  AND (toLower(e.name) = toLower($name) OR toLower($name) IN [a IN coalesce(e.aliases, []) | toLower(a)])
MATCH p = (e)-[*1..%d]-(n:Entity)
WHERE all(x IN nodes(p) WHERE x.tenant_id = $tenant_id OR x.scope = 'global')
UNWIND relationships(p) AS r
RETURN DISTINCT startNode(r).name AS source, type(r) AS relation, endNode(r).name AS target
LIMIT $limit`,
	opPath: `
MATCH (a:Entity), (b:Entity)
WHERE (a.tenant_id = $tenant_id OR a.scope = 'global')
  AND (b.tenant_id = $tenant_id OR b.scope = 'global')
  AND toLower(a.name) = toLower($from) AND toLower(b.name) = toLower($to)
MATCH p = shortestPath((a)-[*..%d]-(b))
WHERE all(x IN nodes(p) WHERE x.tenant_id = $tenant_id OR x.scope = 'global')
UNWIND relationships(p) AS r
RETURN startNode(r).name AS source, type(r) AS relation, endNode(r).name AS target
LIMIT $limit`,
	opCooccurrence: `
MATCH (e:Entity)
WHERE (e.tenant_id = $tenant_id OR e.scope = 'global')
  AND toLower(e.name) IN [name IN $names | toLower(name)]
MATCH p = (e)-[*1..%d]-(n:Entity)
WHERE all(x IN nodes(p) WHERE x.tenant_id = $tenant_id OR x.scope = 'global')
UNWIND relationships(p) AS r
RETURN DISTINCT startNode(r).name AS source, type(r) AS relation, endNode(r).name AS target
LIMIT $limit`,
}

// renderTemplate resolves a whitelisted operation to runnable Cypher with a
// bounded hop count.
func renderTemplate(operation string, hops int) (string, error) {
	template, ok := queryTemplates[operation]
	if !ok {
		return "", fmt.Errorf("unknown graph operation %q", operation)
	}
	if hops < minHops {
		hops = minHops
	}
	if hops > maxHops {
		hops = maxHops
	}
	return strings.TrimSpace(fmt.Sprintf(template, hops)), nil
}
