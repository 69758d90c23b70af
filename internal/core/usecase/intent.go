package usecase

import (
	"regexp"
	"strings"

	"github.com/advogai/juris-rag/internal/core/domain"
)

// relationship phrasings that point at a structured graph lookup rather
// than free-text search.
var relationKeywords = []string{
	"relação entre",
	"relacionado a",
	"cita",
	"citado por",
	"vinculado a",
	"conexão entre",
	"precedentes de",
	"relationship between",
	"cited by",
}

var whitespaceRun = regexp.MustCompile(`\s+`)

// KeywordIntentClassifier is the default graph-intent heuristic: a query is
// graph-answerable when it is dominated by a normative citation or uses an
// explicit relationship phrasing. Swappable behind ports.IntentClassifier.
type KeywordIntentClassifier struct{}

func NewKeywordIntentClassifier() *KeywordIntentClassifier {
	return &KeywordIntentClassifier{}
}

func (c *KeywordIntentClassifier) Classify(query string) domain.Intent {
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return domain.Intent{}
	}

	citations := domain.ExtractCitations(trimmed)
	if len(citations) > 0 {
		// A short query that is mostly the citation itself is a direct
		// lookup; longer prose around it still needs hybrid search.
		canonical := canonicalCitation(citations[0])
		if len(canonical)*2 >= len(trimmed) {
			return domain.Intent{GraphAnswerable: true, Canonical: canonical}
		}
	}

	lower := strings.ToLower(trimmed)
	for _, kw := range relationKeywords {
		if strings.Contains(lower, kw) {
			canonical := trimmed
			if len(citations) > 0 {
				canonical = canonicalCitation(citations[0])
			}
			return domain.Intent{GraphAnswerable: true, Canonical: canonical}
		}
	}
	return domain.Intent{}
}

func canonicalCitation(citation string) string {
	citation = whitespaceRun.ReplaceAllString(strings.TrimSpace(citation), " ")
	return citation
}
