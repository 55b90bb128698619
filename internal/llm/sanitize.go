package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	jsonrepair "github.com/RealAlexandreAI/json-repair"
)

// ErrNoJSONObject is returned when the model answer contains no '{' at all.
var ErrNoJSONObject = errors.New("llm: no JSON object in model output")

// ExtractJSONPayload recovers a JSON object from a raw model answer. It
// strips markdown fences, slices from the first '{' to the last '}', and
// when the slice still does not parse hands it to json-repair as a last
// resort. The returned bytes are valid JSON.
func ExtractJSONPayload(raw string) ([]byte, error) {
	s := raw
	if i := strings.Index(s, "```json"); i >= 0 {
		s = s[i+len("```json"):]
		if j := strings.Index(s, "```"); j >= 0 {
			s = s[:j]
		}
	} else if i := strings.Index(s, "```"); i >= 0 {
		s = s[i+len("```"):]
		if j := strings.Index(s, "```"); j >= 0 {
			s = s[:j]
		}
	}

	start := strings.Index(s, "{")
	if start < 0 {
		return nil, ErrNoJSONObject
	}
	if end := strings.LastIndex(s, "}"); end > start {
		s = s[start : end+1]
	} else {
		s = s[start:]
	}

	if json.Valid([]byte(s)) {
		return []byte(s), nil
	}

	repaired, err := jsonrepair.RepairJSON(s)
	if err != nil {
		return nil, fmt.Errorf("llm: repair failed: %w", err)
	}
	if !json.Valid([]byte(repaired)) {
		return nil, errors.New("llm: repaired output is not valid JSON")
	}
	return []byte(repaired), nil
}

// ParseObject runs ExtractJSONPayload and unmarshals the result into a map.
func ParseObject(raw string) (map[string]any, error) {
	payload, err := ExtractJSONPayload(raw)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal(payload, &out); err != nil {
		return nil, fmt.Errorf("llm: unmarshal object: %w", err)
	}
	return out, nil
}
