package ollama

import "fmt"

func buildExpansionPrompt(query string, max int) string {
	if max <= 0 {
		max = 3
	}
	return fmt.Sprintf(`You rewrite legal research queries.
Return strict JSON object with a single key "queries": an array of up to %d
paraphrases or sub-queries of the question below, in its original language.
Keep legal terms of art and normative citations intact. No markdown, no
extra keys.

Question:
%s`, max, query)
}

func buildHypotheticalPrompt(query string) string {
	return fmt.Sprintf(`Write one short paragraph (at most 120 words) that a
legal treatise or court decision would plausibly contain when answering the
question below, in its original language. Cite norms in the usual style
(e.g. "art. 37 da CF", "Súmula 331 do TST") when natural. Output the
paragraph only.

Question:
%s`, query)
}
