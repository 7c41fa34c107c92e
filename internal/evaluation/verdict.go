package evaluation

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrNoVerdict means no satisfied/unsatisfied judgment could be recovered
// from the model output. Callers must treat it as a fallback trigger, never
// as "satisfied".
var ErrNoVerdict = errors.New("no verdict found in model output")

// Verdict is the structured judgment recovered from free-form model output.
type Verdict struct {
	Satisfied  bool
	Confidence float64
	Reasoning  string
}

type rawVerdict struct {
	Satisfied  any    `json:"satisfied"`
	Confidence any    `json:"confidence"`
	Reasoning  string `json:"reasoning"`
}

// ParseVerdict recovers a verdict leniently: markdown fences are stripped,
// the outermost JSON object is decoded tolerating boolean/string/numeric
// variance, and a plain-text verdict token is the last resort. It fails
// closed: output with no recognizable verdict is an error.
func ParseVerdict(output string) (Verdict, error) {
	cleaned := stripFences(output)

	if strings.Contains(cleaned, "{") {
		if raw, ok := extractJSONObject(cleaned); ok {
			var rv rawVerdict
			if err := json.Unmarshal([]byte(raw), &rv); err == nil {
				if sat, ok := coerceBool(rv.Satisfied); ok {
					reasoning := strings.TrimSpace(rv.Reasoning)
					if reasoning == "" {
						reasoning = "model provided no reasoning"
					}
					return Verdict{
						Satisfied:  sat,
						Confidence: coerceConfidence(rv.Confidence),
						Reasoning:  reasoning,
					}, nil
				}
			}
		}
		// Brace-bearing output is an attempted JSON answer. It never
		// reaches the token scan below: the scan would read the
		// "satisfied" key name itself as the verdict.
		return Verdict{}, fmt.Errorf("%w: %q", ErrNoVerdict, snippet(output, 120))
	}

	// Plain-text answers. Negative forms first: "unsatisfied" contains
	// "satisfied".
	lower := strings.ToLower(cleaned)
	switch {
	case strings.Contains(lower, "not satisfied"), strings.Contains(lower, "unsatisfied"):
		return Verdict{Satisfied: false, Confidence: DefaultConfidence, Reasoning: strings.TrimSpace(cleaned)}, nil
	case strings.Contains(lower, "satisfied"):
		return Verdict{Satisfied: true, Confidence: DefaultConfidence, Reasoning: strings.TrimSpace(cleaned)}, nil
	}

	return Verdict{}, fmt.Errorf("%w: %q", ErrNoVerdict, snippet(output, 120))
}

// ClampConfidence forces a confidence into [0, 1]; non-numbers become the
// mid-value default.
func ClampConfidence(c float64) float64 {
	switch {
	case math.IsNaN(c):
		return DefaultConfidence
	case c < 0:
		return 0
	case c > 1:
		return 1
	}
	return c
}

func coerceBool(v any) (value, ok bool) {
	switch t := v.(type) {
	case bool:
		return t, true
	case string:
		s := strings.Trim(strings.ToLower(strings.TrimSpace(t)), ` ."'!?,:;`)
		switch s {
		case "true", "yes", "satisfied":
			return true, true
		case "false", "no", "unsatisfied", "not satisfied":
			return false, true
		}
	case float64:
		return t != 0, true
	}
	return false, false
}

func coerceConfidence(v any) float64 {
	switch t := v.(type) {
	case float64:
		return ClampConfidence(t)
	case string:
		s := strings.Trim(strings.TrimSpace(t), ` "'%`)
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return ClampConfidence(f)
		}
	}
	return DefaultConfidence
}

func extractJSONObject(s string) (string, bool) {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start == -1 || end <= start {
		return "", false
	}
	return s[start : end+1], true
}

func stripFences(s string) string {
	out := strings.TrimSpace(s)
	if strings.HasPrefix(out, "```") {
		if i := strings.Index(out, "\n"); i != -1 {
			out = out[i+1:]
		} else {
			out = strings.TrimPrefix(out, "```")
		}
		out = strings.TrimSuffix(strings.TrimSpace(out), "```")
	}
	return strings.TrimSpace(out)
}

func snippet(s string, max int) string {
	s = strings.TrimSpace(s)
	if len([]rune(s)) <= max {
		return s
	}
	return TruncateRunes(s, max) + "..."
}
