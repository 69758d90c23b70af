package usecase

import (
	"context"
	"errors"
	"testing"
)

type fakeExpansionGenerator struct {
	queries []string
	doc     string
	err     error
}

func (f *fakeExpansionGenerator) ExpandQuery(context.Context, string, int) ([]string, error) {
	return f.queries, f.err
}

func (f *fakeExpansionGenerator) HypotheticalDocument(context.Context, string) (string, error) {
	return f.doc, f.err
}

func TestExpandFiltersAndCaps(t *testing.T) {
	gen := &fakeExpansionGenerator{queries: []string{
		"  ",
		"dano moral em atraso de voo",
		"Dano Moral Em Atraso De Voo",
		"responsabilidade da companhia aérea",
		"indenização por cancelamento de voo",
		"overbooking e direitos do passageiro",
	}}
	expander := NewQueryExpander(gen, 3, nil)

	got := expander.Expand(context.Background(), "dano moral em atraso de voo")
	if len(got) != 3 {
		t.Fatalf("expected 3 expansions, got %d: %v", len(got), got)
	}
	// The original query and its case-variant are excluded.
	if got[0] != "responsabilidade da companhia aérea" {
		t.Fatalf("unexpected first expansion: %q", got[0])
	}
}

func TestExpandFailureIsNonFatal(t *testing.T) {
	expander := NewQueryExpander(&fakeExpansionGenerator{err: errors.New("model offline")}, 3, nil)
	if got := expander.Expand(context.Background(), "q"); got != nil {
		t.Fatalf("expected nil expansions on failure, got %v", got)
	}
}

func TestHypothetical(t *testing.T) {
	expander := NewQueryExpander(&fakeExpansionGenerator{doc: "  A responsabilidade é objetiva.  "}, 3, nil)
	if got := expander.Hypothetical(context.Background(), "q"); got != "A responsabilidade é objetiva." {
		t.Fatalf("hypothetical = %q", got)
	}

	failing := NewQueryExpander(&fakeExpansionGenerator{err: errors.New("down")}, 3, nil)
	if got := failing.Hypothetical(context.Background(), "q"); got != "" {
		t.Fatalf("expected empty on failure, got %q", got)
	}
}
