package domain

import (
	"regexp"
	"strings"
)

// Normative citation shapes common in Brazilian legal text. Shared by the
// context-prefix builder and the graph-intent heuristic.
var (
	reArticle = regexp.MustCompile(`(?i)\bart(?:igo)?\.?\s*\d+(?:[º°o])?(?:\s*,?\s*(?:§\s*\d+[º°o]?|caput|inciso\s+[IVXLC]+))?(?:\s+(?:da|do|d[ao]\s+)?(?:CF(?:/88)?|C[PC]C?|CLT|CTN|CDC))?`)
	reSumula  = regexp.MustCompile(`(?i)\bs[úu]mula(?:\s+vinculante)?\s+(?:n[º°o]?\.?\s*)?\d+(?:\s+do\s+\w+)?`)
	reLei     = regexp.MustCompile(`(?i)\b(?:lei(?:\s+complementar)?|decreto(?:-lei)?|medida\s+provis[óo]ria)\s+(?:n[º°o]?\.?\s*)?[\d\.]+(?:/\d{2,4})?`)
)

// ExtractCitations returns the normative citations found in text, in order
// of first appearance, deduplicated case-insensitively.
func ExtractCitations(text string) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, re := range []*regexp.Regexp{reSumula, reLei, reArticle} {
		for _, m := range re.FindAllString(text, -1) {
			m = strings.TrimSpace(m)
			key := strings.ToLower(m)
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, m)
		}
	}
	return out
}

// ContextPrefix derives the short disambiguating prefix attached to a chunk
// before embedding, so near-identical fragments from different sources embed
// distinctly. Derived, never persisted on its own.
func ContextPrefix(meta ChunkMetadata, text string) string {
	var parts []string
	if meta.SourceDomain != "" {
		parts = append(parts, "fonte: "+meta.SourceDomain)
	}
	if meta.Jurisdiction != "" {
		parts = append(parts, "jurisdição: "+meta.Jurisdiction)
	}

	citations := meta.Citations
	if len(citations) == 0 {
		citations = ExtractCitations(text)
	}
	const maxCitations = 3
	if len(citations) > maxCitations {
		citations = citations[:maxCitations]
	}
	if len(citations) > 0 {
		parts = append(parts, "normas: "+strings.Join(citations, "; "))
	}

	if len(parts) == 0 {
		return ""
	}
	return "[" + strings.Join(parts, " | ") + "]\n"
}
