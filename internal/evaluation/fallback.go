package evaluation

import (
	"fmt"
	"strings"
	"unicode"

	prose "github.com/jdkato/prose/v2"

	"github.com/soc-review/backend/internal/rules"
)

// satisfiedThreshold is the matched-keyword fraction at which the fallback
// judges a rule satisfied. Exactly at the threshold counts as satisfied.
const satisfiedThreshold = 0.5

// stopwords are English function words stripped from rule descriptions
// before keyword matching. Tokens shorter than three runes never reach this
// check, so two-letter words are omitted.
var stopwords = map[string]struct{}{
	"the": {}, "and": {}, "are": {}, "was": {}, "were": {}, "been": {},
	"being": {}, "for": {}, "from": {}, "has": {}, "have": {}, "had": {},
	"its": {}, "that": {}, "this": {}, "these": {}, "those": {}, "with": {},
	"will": {}, "would": {}, "shall": {}, "should": {}, "can": {},
	"could": {}, "may": {}, "might": {}, "must": {}, "not": {}, "nor": {},
	"any": {}, "all": {}, "each": {}, "per": {}, "into": {}, "within": {},
	"about": {}, "above": {}, "below": {}, "under": {}, "over": {},
	"between": {}, "during": {}, "before": {}, "after": {}, "when": {},
	"where": {}, "which": {}, "who": {}, "whom": {}, "whose": {},
	"what": {}, "how": {}, "why": {}, "does": {}, "did": {}, "doing": {},
	"done": {}, "than": {}, "then": {}, "them": {}, "they": {}, "there": {},
	"here": {}, "such": {}, "same": {}, "other": {}, "more": {}, "most": {},
	"some": {}, "also": {}, "only": {}, "both": {}, "but": {}, "out": {},
	"off": {}, "too": {}, "very": {}, "just": {}, "now": {}, "upon": {},
}

// FallbackEvaluate is the deterministic keyword heuristic used when the
// model backend is unreachable or its answer is unusable. It is a pure
// function of its inputs: identical (rule, document) pairs always yield
// identical results, and it never fails for non-empty inputs.
func FallbackEvaluate(rule rules.Rule, documentText string) (satisfied bool, confidence float64, reasoning string) {
	keywords := DeriveKeywords(rule.Description)
	if len(keywords) == 0 {
		return false, FallbackConfidence,
			"keyword fallback: no significant keywords could be derived from the rule description"
	}

	docLower := strings.ToLower(documentText)
	var matched []string
	for _, kw := range keywords {
		if strings.Contains(docLower, kw) {
			matched = append(matched, kw)
		}
	}

	fraction := float64(len(matched)) / float64(len(keywords))
	satisfied = fraction >= satisfiedThreshold

	if len(matched) == 0 {
		reasoning = fmt.Sprintf("keyword fallback: none of %d keywords (%s) appear in the document",
			len(keywords), strings.Join(keywords, ", "))
	} else {
		reasoning = fmt.Sprintf("keyword fallback: matched %d of %d keywords (%s)",
			len(matched), len(keywords), strings.Join(matched, ", "))
	}

	return satisfied, FallbackConfidence, reasoning
}

// DeriveKeywords extracts the significant content words of a rule
// description: lowercased, minimum three runes, stop-words removed,
// deduplicated in order of first appearance.
func DeriveKeywords(description string) []string {
	tokens := tokenize(description)

	seen := make(map[string]struct{}, len(tokens))
	var keywords []string
	for _, tok := range tokens {
		word := strings.ToLower(strings.TrimFunc(tok, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsNumber(r)
		}))
		if len([]rune(word)) < 3 {
			continue
		}
		if _, stop := stopwords[word]; stop {
			continue
		}
		if _, dup := seen[word]; dup {
			continue
		}
		seen[word] = struct{}{}
		keywords = append(keywords, word)
	}

	return keywords
}

// tokenize prefers the prose tokenizer and degrades to a plain field split,
// so keyword derivation can never fail.
func tokenize(text string) []string {
	doc, err := prose.NewDocument(text, prose.WithTagging(false), prose.WithExtraction(false))
	if err == nil {
		toks := doc.Tokens()
		out := make([]string, 0, len(toks))
		for _, t := range toks {
			out = append(out, t.Text)
		}
		return out
	}

	return strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}
