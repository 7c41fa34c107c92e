package evaluation

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseVerdictVariants(t *testing.T) {
	cases := []struct {
		name           string
		output         string
		wantSatisfied  bool
		wantConfidence float64
	}{
		{
			name:           "clean json",
			output:         `{"satisfied": true, "confidence": 0.92, "reasoning": "audit period is stated"}`,
			wantSatisfied:  true,
			wantConfidence: 0.92,
		},
		{
			name: "fenced json",
			output: "```json\n" +
				`{"satisfied": false, "confidence": 0.8, "reasoning": "no subservice section"}` +
				"\n```",
			wantSatisfied:  false,
			wantConfidence: 0.8,
		},
		{
			name:           "json with preamble and trailer",
			output:         `Sure, here is my verdict: {"satisfied": true, "confidence": 0.7, "reasoning": "found it"} Let me know if you need more.`,
			wantSatisfied:  true,
			wantConfidence: 0.7,
		},
		{
			name:           "string boolean yes",
			output:         `{"satisfied": "yes", "confidence": 0.6, "reasoning": "ok"}`,
			wantSatisfied:  true,
			wantConfidence: 0.6,
		},
		{
			name:           "string boolean not satisfied",
			output:         `{"satisfied": "Not Satisfied.", "confidence": 0.6, "reasoning": "missing"}`,
			wantSatisfied:  false,
			wantConfidence: 0.6,
		},
		{
			name:           "numeric boolean",
			output:         `{"satisfied": 1, "confidence": 0.4, "reasoning": "ok"}`,
			wantSatisfied:  true,
			wantConfidence: 0.4,
		},
		{
			name:           "numeric boolean zero",
			output:         `{"satisfied": 0, "confidence": 0.4, "reasoning": "no"}`,
			wantSatisfied:  false,
			wantConfidence: 0.4,
		},
		{
			name:           "string confidence",
			output:         `{"satisfied": true, "confidence": "0.85", "reasoning": "ok"}`,
			wantSatisfied:  true,
			wantConfidence: 0.85,
		},
		{
			name:           "confidence above range clamps to one",
			output:         `{"satisfied": true, "confidence": 1.7, "reasoning": "ok"}`,
			wantSatisfied:  true,
			wantConfidence: 1,
		},
		{
			name:           "negative confidence clamps to zero",
			output:         `{"satisfied": false, "confidence": -3, "reasoning": "no"}`,
			wantSatisfied:  false,
			wantConfidence: 0,
		},
		{
			name:           "missing confidence defaults",
			output:         `{"satisfied": true, "reasoning": "ok"}`,
			wantSatisfied:  true,
			wantConfidence: DefaultConfidence,
		},
		{
			name:           "unparseable confidence defaults",
			output:         `{"satisfied": true, "confidence": "high", "reasoning": "ok"}`,
			wantSatisfied:  true,
			wantConfidence: DefaultConfidence,
		},
		{
			name:           "bare positive token",
			output:         "The requirement is satisfied because the period is stated on page 2.",
			wantSatisfied:  true,
			wantConfidence: DefaultConfidence,
		},
		{
			name:           "bare negative token",
			output:         "Not satisfied. The report never names a service auditor.",
			wantSatisfied:  false,
			wantConfidence: DefaultConfidence,
		},
		{
			name:           "unsatisfied outranks its satisfied substring",
			output:         "UNSATISFIED",
			wantSatisfied:  false,
			wantConfidence: DefaultConfidence,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			v, err := ParseVerdict(tc.output)
			require.NoError(t, err)
			assert.Equal(t, tc.wantSatisfied, v.Satisfied)
			assert.InDelta(t, tc.wantConfidence, v.Confidence, 1e-9)
			assert.NotEmpty(t, v.Reasoning)
		})
	}
}

func TestParseVerdictDefaultsBlankReasoning(t *testing.T) {
	v, err := ParseVerdict(`{"satisfied": true, "confidence": 0.9, "reasoning": "  "}`)
	require.NoError(t, err)
	assert.Equal(t, "model provided no reasoning", v.Reasoning)
}

func TestParseVerdictFailsClosed(t *testing.T) {
	cases := []struct {
		name   string
		output string
	}{
		{"empty output", ""},
		{"whitespace only", "   \n\t  "},
		{"no verdict token", "I cannot determine this from the excerpt provided."},
		{"json without satisfied key", `{"verdict": "pass", "confidence": 0.9}`},
		{"uninterpretable satisfied value", `{"satisfied": "maybe", "confidence": 0.5}`},
		{"truncated json never scans its own keys", `{"satisfied": false, "reasoning": "the repo`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseVerdict(tc.output)
			assert.ErrorIs(t, err, ErrNoVerdict)
		})
	}
}

func TestClampConfidence(t *testing.T) {
	assert.Equal(t, 0.0, ClampConfidence(-0.2))
	assert.Equal(t, 1.0, ClampConfidence(4.5))
	assert.Equal(t, 0.75, ClampConfidence(0.75))
	assert.Equal(t, DefaultConfidence, ClampConfidence(math.NaN()))
}
