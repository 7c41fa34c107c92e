package evaluation

import (
	"strings"
	"unicode/utf8"

	"github.com/soc-review/backend/internal/rules"
)

// BuildPrompt embeds the rule and a bounded excerpt of the document together
// with explicit output-format instructions. maxDocChars <= 0 disables
// truncation.
func BuildPrompt(rule rules.Rule, documentText string, maxDocChars int) string {
	doc := TruncateRunes(documentText, maxDocChars)

	var b strings.Builder
	b.WriteString("You are reviewing a SOC audit report for compliance.\n\n")
	b.WriteString("Requirement: ")
	b.WriteString(rule.Name)
	b.WriteString("\n")
	b.WriteString(rule.Description)
	b.WriteString("\n\nReport text:\n\"\"\"\n")
	b.WriteString(doc)
	b.WriteString("\n\"\"\"\n\n")
	b.WriteString("Does the report satisfy this requirement? Respond with ONLY a JSON object and no other text:\n")
	b.WriteString(`{"satisfied": true or false, "confidence": <number between 0.0 and 1.0>, "reasoning": "<one short paragraph>"}`)

	return b.String()
}

// TruncateRunes cuts s to at most max runes without splitting a rune.
func TruncateRunes(s string, max int) string {
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s
	}

	runes := 0
	for i := range s {
		if runes == max {
			return s[:i]
		}
		runes++
	}
	return s
}
