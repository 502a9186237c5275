package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const goodPayload = `{
  "functional_correctness": 28,
  "robustness": 17,
  "readability": 13,
  "conciseness": 12,
  "complexity_control": 9,
  "format_compliance": 8,
  "total": 87,
  "reasoning": "solid output with minor formatting drift"
}`

func TestParse(t *testing.T) {
	tt := map[string]struct {
		text      string
		expectErr bool
	}{
		"bare object": {
			text: goodPayload,
		},
		"fenced json block": {
			text: "```json\n" + goodPayload + "\n```",
		},
		"fence without language tag": {
			text: "```\n" + goodPayload + "\n```",
		},
		"chatter around the object": {
			text: "Here is my grading:\n\n" + goodPayload + "\n\nLet me know if you need detail.",
		},
		"no json object": {
			text:      "I cannot grade this output.",
			expectErr: true,
		},
		"not valid json": {
			text:      `{"functional_correctness": 28,`,
			expectErr: true,
		},
		"missing required dimension": {
			text:      `{"functional_correctness": 28, "total": 28}`,
			expectErr: true,
		},
		"dimension above schema max": {
			text: `{
				"functional_correctness": 31,
				"robustness": 17,
				"readability": 13,
				"conciseness": 12,
				"complexity_control": 9,
				"format_compliance": 8,
				"total": 90
			}`,
			expectErr: true,
		},
		"total not equal to sum": {
			text: `{
				"functional_correctness": 28,
				"robustness": 17,
				"readability": 13,
				"conciseness": 12,
				"complexity_control": 9,
				"format_compliance": 8,
				"total": 99
			}`,
			expectErr: true,
		},
	}

	for tn, tc := range tt {
		t.Run(tn, func(t *testing.T) {
			score, err := Parse(tc.text)
			if tc.expectErr {
				assert.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, 87, score.Total)
			assert.Equal(t, 28, score.FunctionalCorrectness)
			assert.NotEmpty(t, score.Reasoning)
			assert.NoError(t, score.Validate())
		})
	}
}

func TestBuildPrompts(t *testing.T) {
	system := BuildSystemPrompt()
	assert.Contains(t, system, "functional_correctness")
	assert.Contains(t, system, "0-30")

	user, err := BuildUserPrompt(PromptData{
		Input:    "reverse a linked list",
		Expected: "iterative reversal with O(1) space",
		Output:   "func reverse(head *Node) *Node { ... }",
	})
	require.NoError(t, err)
	assert.Contains(t, user, "reverse a linked list")
	assert.Contains(t, user, "iterative reversal with O(1) space")
}
