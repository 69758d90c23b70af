package neo4j

import (
	"strings"
	"testing"
)

func TestRenderTemplateRejectsUnknownOperation(t *testing.T) {
	if _, err := renderTemplate("drop_everything", 2); err == nil {
		t.Fatalf("expected error for non-whitelisted operation")
	}
}

func TestRenderTemplateClampsHops(t *testing.T) {
	low, err := renderTemplate(opNeighbors, 0)
	if err != nil {
		t.Fatalf("renderTemplate() error = %v", err)
	}
	if !strings.Contains(low, "*1..1]") {
		t.Fatalf("hops below minimum not clamped:\n%s", low)
	}

	high, err := renderTemplate(opNeighbors, 10)
	if err != nil {
		t.Fatalf("renderTemplate() error = %v", err)
	}
	if !strings.Contains(high, "*1..3]") {
		t.Fatalf("hops above maximum not clamped:\n%s", high)
	}
}

func TestTemplatesCarryTenantPredicate(t *testing.T) {
	for _, op := range []string{opNeighbors, opPath, opCooccurrence} {
		query, err := renderTemplate(op, 2)
		if err != nil {
			t.Fatalf("renderTemplate(%q) error = %v", op, err)
		}
		if !strings.Contains(query, "$tenant_id") {
			t.Fatalf("template %q missing tenant parameter:\n%s", op, query)
		}
		if !strings.Contains(query, "scope = 'global'") {
			t.Fatalf("template %q missing global scope clause:\n%s", op, query)
		}
	}
}
