package generation

import (
	"encoding/json"
	"regexp"
	"strings"
)

// ExtractJSON pulls the first well-formed JSON object or array out of model
// output, tolerating markdown fences and surrounding prose. Returns nil when
// no parseable JSON exists.
func ExtractJSON(text string) json.RawMessage {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil
	}

	if json.Valid([]byte(trimmed)) {
		return json.RawMessage(trimmed)
	}

	// Strip a markdown fence before scanning.
	if strings.HasPrefix(trimmed, "```") {
		trimmed = strings.TrimPrefix(trimmed, "```json")
		trimmed = strings.TrimPrefix(trimmed, "```")
		if end := strings.LastIndex(trimmed, "```"); end >= 0 {
			trimmed = trimmed[:end]
		}
		trimmed = strings.TrimSpace(trimmed)
		if json.Valid([]byte(trimmed)) {
			return json.RawMessage(trimmed)
		}
	}

	for _, pair := range [][2]byte{{'{', '}'}, {'[', ']'}} {
		start := strings.IndexByte(trimmed, pair[0])
		if start == -1 {
			continue
		}
		depth := 0
		inString := false
		escaped := false
		for i := start; i < len(trimmed); i++ {
			ch := trimmed[i]
			if inString {
				if escaped {
					escaped = false
				} else if ch == '\\' {
					escaped = true
				} else if ch == '"' {
					inString = false
				}
				continue
			}
			switch ch {
			case '"':
				inString = true
			case pair[0]:
				depth++
			case pair[1]:
				depth--
			}
			if depth == 0 && ch == pair[1] {
				candidate := trimmed[start : i+1]
				if json.Valid([]byte(candidate)) {
					return json.RawMessage(candidate)
				}
				break
			}
		}
	}
	return nil
}

// Wrapper keys models habitually nest the payload under, tried in priority
// order before generic descent.
var wrapperKeys = []string{
	"json", "response", "selected_question", "draft",
	"MCQ", "Short Notes", "Essay", "result", "output",
}

const maxUnwrapDepth = 6

// UnwrapQuestion locates the question payload inside arbitrarily wrapped
// model output. It fails closed: nil when no recognizable payload exists.
func UnwrapQuestion(raw json.RawMessage) *QuestionPayload {
	if len(raw) == 0 {
		return nil
	}
	var node map[string]json.RawMessage
	if err := json.Unmarshal(raw, &node); err != nil {
		return nil
	}
	return unwrapNode(node, 0)
}

func unwrapNode(node map[string]json.RawMessage, depth int) *QuestionPayload {
	if depth > maxUnwrapDepth {
		return nil
	}

	if raw, ok := node["question_text"]; ok {
		var text string
		if json.Unmarshal(raw, &text) == nil && text != "" {
			return payloadFromNode(node, text)
		}
	}
	// { "question": "...", "options": [...] } shape.
	if raw, ok := node["question"]; ok {
		var text string
		if json.Unmarshal(raw, &text) == nil && text != "" {
			return payloadFromNode(node, text)
		}
	}

	for _, key := range wrapperKeys {
		if raw, ok := node[key]; ok {
			var child map[string]json.RawMessage
			if json.Unmarshal(raw, &child) == nil {
				if p := unwrapNode(child, depth+1); p != nil {
					return p
				}
			}
		}
	}

	for _, raw := range node {
		var child map[string]json.RawMessage
		if json.Unmarshal(raw, &child) == nil {
			if p := unwrapNode(child, depth+1); p != nil {
				return p
			}
		}
	}
	return nil
}

func payloadFromNode(node map[string]json.RawMessage, text string) *QuestionPayload {
	p := &QuestionPayload{QuestionText: text}

	if raw, ok := node["options"]; ok {
		p.Options = coerceStringList(raw)
	}
	if len(p.Options) == 0 {
		if raw, ok := node["choices"]; ok {
			p.Options = coerceStringList(raw)
		}
	}
	if raw, ok := node["correct_answer"]; ok {
		p.CorrectAnswer = coerceString(raw)
	}
	if raw, ok := node["explanation"]; ok {
		p.Explanation = coerceString(raw)
	}
	if raw, ok := node["key_points"]; ok {
		p.KeyPoints = coerceStringList(raw)
	}
	if raw, ok := node["expected_structure"]; ok {
		p.ExpectedStruct = coerceStringList(raw)
	}
	if raw, ok := node["marks"]; ok {
		json.Unmarshal(raw, &p.Marks)
	}
	if raw, ok := node["word_limit"]; ok {
		json.Unmarshal(raw, &p.WordLimit)
	}
	if raw, ok := node["used_chunks"]; ok {
		p.UsedChunks = coerceStringList(raw)
	}
	if raw, ok := node["supporting_quotes"]; ok {
		p.SupportingQuotes = coerceStringList(raw)
	}
	return p
}

func coerceString(raw json.RawMessage) string {
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return s
	}
	var f float64
	if json.Unmarshal(raw, &f) == nil {
		return strings.TrimSuffix(strings.TrimSuffix(string(raw), ".0"), ".00")
	}
	return strings.Trim(string(raw), `"`)
}

// coerceStringList accepts a JSON list, a stringified list, or a bare
// string and always produces a flat []string.
func coerceStringList(raw json.RawMessage) []string {
	var list []string
	if json.Unmarshal(raw, &list) == nil {
		return list
	}

	var s string
	if json.Unmarshal(raw, &s) == nil {
		trimmed := strings.TrimSpace(s)
		if strings.HasPrefix(trimmed, "[") {
			if json.Unmarshal([]byte(trimmed), &list) == nil {
				return list
			}
		}
		if trimmed == "" {
			return nil
		}
		return []string{trimmed}
	}

	// Mixed-type lists: stringify each element.
	var anyList []json.RawMessage
	if json.Unmarshal(raw, &anyList) == nil {
		out := make([]string, 0, len(anyList))
		for _, el := range anyList {
			out = append(out, coerceString(el))
		}
		return out
	}
	return nil
}

var (
	optionLineRe   = regexp.MustCompile(`(?m)(?:^|\n)([A-D][\.\)]\s+.*)`)
	optionInlineRe = regexp.MustCompile(`([A-D][\.\)]\s+[^A-D\n]+)`)
)

// ExtractOptionsFromText recovers MCQ options embedded in the question text
// when the model omitted a structured options list.
func ExtractOptionsFromText(text string) []string {
	matches := optionLineRe.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		matches = optionInlineRe.FindAllStringSubmatch(text, -1)
	}
	if len(matches) == 0 {
		return nil
	}
	options := make([]string, 0, len(matches))
	for _, m := range matches {
		options = append(options, strings.TrimSpace(m[1]))
	}
	return options
}

// ParseArbitration decodes the chairman output, unwrapping the selected
// question payload. Returns nil when the output carries no parseable JSON.
func ParseArbitration(text string) *Arbitration {
	raw := ExtractJSON(text)
	if raw == nil {
		return nil
	}

	var node map[string]json.RawMessage
	if err := json.Unmarshal(raw, &node); err != nil {
		return nil
	}

	arb := &Arbitration{ConfidenceScore: 5.0, SelectedFrom: "Agent A", Action: ActionAccept}
	if r, ok := node["confidence_score"]; ok {
		json.Unmarshal(r, &arb.ConfidenceScore)
	}
	if r, ok := node["selected_from"]; ok {
		json.Unmarshal(r, &arb.SelectedFrom)
	}
	if r, ok := node["reasoning"]; ok {
		json.Unmarshal(r, &arb.Reasoning)
	}
	if r, ok := node["action"]; ok {
		var action string
		if json.Unmarshal(r, &action) == nil && strings.EqualFold(action, ActionRegenerate) {
			arb.Action = ActionRegenerate
		}
	}

	if r, ok := node["selected_question"]; ok {
		arb.SelectedQuestion = UnwrapQuestion(r)
	}
	if arb.SelectedQuestion == nil {
		arb.SelectedQuestion = UnwrapQuestion(raw)
	}
	if arb.ConfidenceScore < 1 {
		arb.ConfidenceScore = 1
	}
	if arb.ConfidenceScore > 10 {
		arb.ConfidenceScore = 10
	}
	return arb
}
