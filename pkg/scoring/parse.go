package scoring

import (
	"encoding/json"
	"strings"
	"sync"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/pkg/errors"
	"k8s.io/utils/ptr"
)

var (
	scoreSchemaOnce sync.Once
	scoreSchema     *jsonschema.Resolved
	scoreSchemaErr  error
)

func dimensionSchema(max int) *jsonschema.Schema {
	return &jsonschema.Schema{
		Type:    "integer",
		Minimum: ptr.To(float64(0)),
		Maximum: ptr.To(float64(max)),
	}
}

// resolvedScoreSchema builds the JSON schema for the rubric payload once and
// caches it; the schema never changes at runtime.
func resolvedScoreSchema() (*jsonschema.Resolved, error) {
	scoreSchemaOnce.Do(func() {
		properties := map[string]*jsonschema.Schema{
			"total":     dimensionSchema(TotalMax),
			"reasoning": {Type: "string"},
		}
		required := make([]string, 0, len(Dimensions())+1)
		for _, d := range Dimensions() {
			properties[d.Name] = dimensionSchema(d.Max)
			required = append(required, d.Name)
		}
		required = append(required, "total")

		schema := jsonschema.Schema{
			Type:       "object",
			Properties: properties,
			Required:   required,
		}
		scoreSchema, scoreSchemaErr = schema.Resolve(nil)
	})
	return scoreSchema, scoreSchemaErr
}

// Parse extracts the rubric JSON object from an oracle reply and returns a
// validated Score. Fenced code blocks and chatter around the object are
// tolerated; anything that fails the schema or the sum invariant is not.
func Parse(text string) (*Score, error) {
	raw, err := extractJSONObject(text)
	if err != nil {
		return nil, err
	}

	schema, err := resolvedScoreSchema()
	if err != nil {
		return nil, errors.Wrap(err, "failed to resolve score schema")
	}

	var instance any
	if err := json.Unmarshal([]byte(raw), &instance); err != nil {
		return nil, errors.Wrap(err, "score payload is not valid JSON")
	}
	if err := schema.Validate(instance); err != nil {
		return nil, errors.Wrap(err, "score payload does not match rubric schema")
	}

	var score Score
	if err := json.Unmarshal([]byte(raw), &score); err != nil {
		return nil, errors.Wrap(err, "failed to decode score payload")
	}
	if err := score.Validate(); err != nil {
		return nil, err
	}

	return &score, nil
}

// extractJSONObject returns the outermost JSON object embedded in text.
func extractJSONObject(text string) (string, error) {
	text = strings.TrimSpace(text)

	// Strip a markdown fence if the whole reply is wrapped in one.
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
		text = strings.TrimSpace(text)
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return "", errors.New("no JSON object found in score response")
	}

	return text[start : end+1], nil
}
