package scoring

import (
	"bytes"
	"text/template"
)

var (
	systemPromptTemplate = template.Must(template.New("systemPrompt").Parse(
		`You are a strict grading assistant. Your one and only job is to score a [MODEL_RESPONSE] against a fixed rubric, given the original [TASK_INPUT] and an [EXPECTED_OUTPUT] description.

### Rubric (score every dimension, integers only)

* functional_correctness (0-30): does the response accomplish what the task asked for, matching the expected output description?
* robustness (0-20): does the response handle edge cases, invalid input and failure modes?
* readability (0-15): is the response clearly structured and easy to follow?
* conciseness (0-15): is the response free of padding and repetition?
* complexity_control (0-10): does the response avoid unnecessary complexity?
* format_compliance (0-10): does the response follow the output format the task asked for?

You MUST respond with a single JSON object and nothing else:

{
  "functional_correctness": <int>,
  "robustness": <int>,
  "readability": <int>,
  "conciseness": <int>,
  "complexity_control": <int>,
  "format_compliance": <int>,
  "total": <int, sum of the six dimensions>,
  "reasoning": "<short justification referencing the rubric>"
}

Do not add any conversational text before or after the JSON object.
`))

	userPromptTemplate = template.Must(template.New("userPrompt").Parse(
		`<task_input>
{{.Input}}
</task_input>

<expected_output>
{{.Expected}}
</expected_output>

<model_response_to_score>
{{.Output}}
</model_response_to_score>

Score the content of <model_response_to_score> against the rubric. Remember: respond with the JSON object only.
`))
)

// PromptData carries the pieces embedded into the rubric scoring prompt.
type PromptData struct {
	Input    string
	Expected string
	Output   string
}

// BuildSystemPrompt renders the rubric system prompt.
func BuildSystemPrompt() string {
	var out bytes.Buffer
	// Template has no variables today; Execute kept so dimensions can be
	// templated later without changing callers.
	_ = systemPromptTemplate.Execute(&out, nil)
	return out.String()
}

// BuildUserPrompt renders the per-task scoring prompt.
func BuildUserPrompt(data PromptData) (string, error) {
	var out bytes.Buffer
	if err := userPromptTemplate.Execute(&out, data); err != nil {
		return "", err
	}
	return out.String(), nil
}
