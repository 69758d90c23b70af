package domain

import (
	"strings"
	"testing"
)

func TestExtractCitations(t *testing.T) {
	text := "Conforme o art. 5º da CF e a Lei 8.078/90, ver também Súmula 297 do STJ. O art. 5º da CF é repetido aqui."

	got := ExtractCitations(text)
	if len(got) != 3 {
		t.Fatalf("expected 3 distinct citations, got %d: %v", len(got), got)
	}

	joined := strings.ToLower(strings.Join(got, "|"))
	for _, want := range []string{"súmula 297", "lei 8.078/90", "art. 5º da cf"} {
		if !strings.Contains(joined, want) {
			t.Fatalf("citation %q missing from %v", want, got)
		}
	}
}

func TestExtractCitationsNone(t *testing.T) {
	if got := ExtractCitations("texto sem qualquer norma citada"); len(got) != 0 {
		t.Fatalf("expected no citations, got %v", got)
	}
}

func TestContextPrefix(t *testing.T) {
	meta := ChunkMetadata{
		SourceDomain: "jurisprudencia",
		Jurisdiction: "TST",
		Citations:    []string{"Súmula 331 do TST"},
	}

	got := ContextPrefix(meta, "qualquer texto")
	want := "[fonte: jurisprudencia | jurisdição: TST | normas: Súmula 331 do TST]\n"
	if got != want {
		t.Fatalf("prefix = %q, want %q", got, want)
	}
}

func TestContextPrefixDerivesCitationsFromText(t *testing.T) {
	got := ContextPrefix(ChunkMetadata{}, "aplicação do art. 927 do CC ao caso")
	if !strings.Contains(got, "normas: art. 927") {
		t.Fatalf("prefix should derive citations from text, got %q", got)
	}
}

func TestContextPrefixCapsCitations(t *testing.T) {
	meta := ChunkMetadata{Citations: []string{"a 1", "a 2", "a 3", "a 4", "a 5"}}
	got := ContextPrefix(meta, "")
	if strings.Count(got, ";") != 2 {
		t.Fatalf("expected 3 citations max, got %q", got)
	}
}

func TestContextPrefixEmpty(t *testing.T) {
	if got := ContextPrefix(ChunkMetadata{}, "texto simples"); got != "" {
		t.Fatalf("expected empty prefix, got %q", got)
	}
}
