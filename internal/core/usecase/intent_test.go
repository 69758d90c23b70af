package usecase

import (
	"testing"
)

func TestKeywordIntentClassifier(t *testing.T) {
	classifier := NewKeywordIntentClassifier()

	tests := []struct {
		name           string
		query          string
		wantAnswerable bool
	}{
		{"bare article citation", "Art. 37 da CF", true},
		{"bare sumula citation", "Súmula 331 do TST", true},
		{"citation buried in prose", "Quais são os requisitos da responsabilidade civil do Estado conforme previsto no art. 37 da CF?", false},
		{"relationship phrasing", "qual a relação entre a Súmula 331 e a terceirização?", true},
		{"plain semantic question", "como funciona a prescrição intercorrente no processo do trabalho", false},
		{"empty query", "   ", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			intent := classifier.Classify(tt.query)
			if intent.GraphAnswerable != tt.wantAnswerable {
				t.Fatalf("Classify(%q).GraphAnswerable = %v, want %v", tt.query, intent.GraphAnswerable, tt.wantAnswerable)
			}
			if tt.wantAnswerable && intent.Canonical == "" {
				t.Fatalf("graph-answerable intent without canonical lookup text")
			}
		})
	}
}

func TestClassifyPrefersCitationAsCanonical(t *testing.T) {
	classifier := NewKeywordIntentClassifier()
	intent := classifier.Classify("precedentes de responsabilidade ligados à Súmula 331 do TST")
	if !intent.GraphAnswerable {
		t.Fatalf("expected graph-answerable intent")
	}
	if intent.Canonical != "Súmula 331 do TST" {
		t.Fatalf("canonical = %q, want the citation", intent.Canonical)
	}
}
