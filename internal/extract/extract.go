// Package extract turns a raw model response into a typed analysis payload.
//
// Model responses are not guaranteed to be bare JSON: they are often wrapped
// in code fences or explanatory prose. Extraction is lenient on shape and
// strict on the presence of usable content.
package extract

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/hugo-lorenzo-mato/marketlog/internal/core"
)

// fencedBlockRe matches ```json ... ``` or ``` ... ``` and captures the interior.
var fencedBlockRe = regexp.MustCompile("(?s)```(?:json|JSON)?[ \\t]*\\r?\\n?(.*?)```")

// rawPayload keeps every field undecoded so shape problems in one field do
// not discard the others.
type rawPayload struct {
	Headline    json.RawMessage `json:"headline"`
	Analysis    json.RawMessage `json:"analysis"`
	Differences json.RawMessage `json:"differences"`
}

// Extract parses raw in order: whole text as a JSON object, the interior of
// a fenced code block, the first balanced {...} object inside prose. When no
// object is found the whole response becomes the analysis (raw text branch).
// The only failure is a response with no usable content at all.
func Extract(raw string) (core.Extraction, error) {
	if strings.TrimSpace(raw) == "" {
		return core.Extraction{}, core.ErrExtraction("model response is empty", raw)
	}

	obj, ok := findObject(raw)
	if !ok {
		return core.Extraction{
			Kind:    core.ExtractionRawText,
			Payload: core.Payload{Analysis: raw},
		}, nil
	}

	result := core.Extraction{
		Kind: core.ExtractionStructured,
		Payload: core.Payload{
			Headline:    strings.TrimSpace(stringField(obj.Headline)),
			Analysis:    stringField(obj.Analysis),
			Differences: stringList(obj.Differences),
		},
	}
	if strings.TrimSpace(result.Payload.Analysis) == "" {
		result.Payload.Analysis = raw
		result.AnalysisFallback = true
	}
	return result, nil
}

// findObject runs the three structured strategies in order.
func findObject(raw string) (*rawPayload, bool) {
	if obj, ok := decodeObject(raw); ok {
		return obj, true
	}

	for _, m := range fencedBlockRe.FindAllStringSubmatch(raw, -1) {
		if obj, ok := decodeObject(m[1]); ok {
			return obj, true
		}
	}

	// A brace pair in prose ("{base case}") must not hide a later object.
	for start := strings.Index(raw, "{"); start != -1; {
		if candidate := balancedObjectAt(raw, start); candidate != "" {
			if obj, ok := decodeObject(candidate); ok {
				return obj, true
			}
		}
		next := strings.Index(raw[start+1:], "{")
		if next == -1 {
			break
		}
		start += next + 1
	}
	return nil, false
}

// decodeObject accepts only a JSON object; arrays, scalars and null are rejected.
func decodeObject(s string) (*rawPayload, bool) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "{") {
		return nil, false
	}
	var obj rawPayload
	if err := json.Unmarshal([]byte(s), &obj); err != nil {
		return nil, false
	}
	return &obj, true
}

// balancedObjectAt returns the brace-balanced {...} span opening at
// s[start], skipping braces inside JSON strings.
func balancedObjectAt(s string, start int) string {
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]

		if escaped {
			escaped = false
			continue
		}
		if c == '\\' && inString {
			escaped = true
			continue
		}
		if c == '"' {
			inString = !inString
			continue
		}
		if inString {
			continue
		}

		switch c {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return ""
}

// stringField decodes a JSON string; any other JSON type counts as absent.
func stringField(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

// stringList decodes a list of statements. A lone string is a one-item list,
// scalars are stringified, blanks and nested values are dropped. A result
// with no usable items is nil, meaning "not supplied".
func stringList(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}

	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		if s := strings.TrimSpace(single); s != "" {
			return []string{s}
		}
		return nil
	}

	var items []any
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil
	}

	var out []string
	for _, item := range items {
		var s string
		switch v := item.(type) {
		case string:
			s = v
		case float64, bool:
			s = fmt.Sprint(v)
		default:
			continue
		}
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
