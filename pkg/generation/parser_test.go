package generation

import (
	"testing"
)

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want bool
	}{
		{"clean object", `{"question_text": "What?"}`, true},
		{"fenced", "```json\n{\"question_text\": \"What?\"}\n```", true},
		{"prose wrapped", `Here is the JSON you asked for: {"question_text": "What?"} Hope it helps!`, true},
		{"array", `[1, 2, 3]`, true},
		{"braces in strings", `{"a": "text with } brace", "b": 1}`, true},
		{"no json", "I cannot generate that question.", false},
		{"empty", "", false},
		{"unbalanced", `{"a": `, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractJSON(tt.in)
			if (got != nil) != tt.want {
				t.Errorf("ExtractJSON(%q) = %v, want present=%v", tt.in, got, tt.want)
			}
		})
	}
}

func TestUnwrapQuestionDirect(t *testing.T) {
	raw := ExtractJSON(`{"question_text": "Explain osmosis.", "options": ["A. one", "B. two"], "correct_answer": "A. one"}`)
	p := UnwrapQuestion(raw)
	if p == nil {
		t.Fatal("expected payload")
	}
	if p.QuestionText != "Explain osmosis." {
		t.Errorf("question text = %q", p.QuestionText)
	}
	if len(p.Options) != 2 || p.CorrectAnswer != "A. one" {
		t.Errorf("options/answer not carried: %+v", p)
	}
}

func TestUnwrapQuestionNested(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"json wrapper", `{"json": {"question_text": "Q?"}}`},
		{"selected_question wrapper", `{"selected_question": {"question_text": "Q?"}}`},
		{"format wrapper", `{"MCQ": {"question_text": "Q?"}}`},
		{"double wrapped", `{"response": {"draft": {"question_text": "Q?"}}}`},
		{"generic key", `{"payload": {"question_text": "Q?"}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := UnwrapQuestion(ExtractJSON(tt.in))
			if p == nil || p.QuestionText != "Q?" {
				t.Errorf("failed to unwrap %s: %+v", tt.in, p)
			}
		})
	}
}

func TestUnwrapQuestionFailsClosed(t *testing.T) {
	for _, in := range []string{
		`{"score": 8, "issues": []}`,
		`{"deeply": {"nested": {"but": {"empty": {}}}}}`,
		`[1, 2]`,
	} {
		if p := UnwrapQuestion(ExtractJSON(in)); p != nil {
			t.Errorf("UnwrapQuestion(%s) = %+v, want nil", in, p)
		}
	}
}

func TestCoerceOptionsFromString(t *testing.T) {
	p := UnwrapQuestion(ExtractJSON(`{"question_text": "Pick one of these items now", "options": "[\"A. x\", \"B. y\"]"}`))
	if p == nil || len(p.Options) != 2 {
		t.Fatalf("stringified list not coerced: %+v", p)
	}

	p = UnwrapQuestion(ExtractJSON(`{"question_text": "Pick one of these items now", "choices": ["A. x", "B. y"]}`))
	if p == nil || len(p.Options) != 2 {
		t.Fatalf("choices alias not honored: %+v", p)
	}
}

func TestExtractOptionsFromText(t *testing.T) {
	text := "Which organelle produces ATP?\nA. Nucleus\nB. Mitochondria\nC. Ribosome\nD. Golgi body"
	options := ExtractOptionsFromText(text)
	if len(options) != 4 {
		t.Fatalf("want 4 options, got %d: %v", len(options), options)
	}
	if options[1] != "B. Mitochondria" {
		t.Errorf("option[1] = %q", options[1])
	}

	if got := ExtractOptionsFromText("No options embedded here."); got != nil {
		t.Errorf("want nil for option-free text, got %v", got)
	}
}

func TestParseArbitration(t *testing.T) {
	out := `{"selected_question": {"question_text": "Analyze the cardiac cycle phases."}, "confidence_score": 8.5, "selected_from": "Agent C", "action": "accept", "reasoning": "Grounded in CO-1."}`
	arb := ParseArbitration(out)
	if arb == nil {
		t.Fatal("expected arbitration")
	}
	if arb.ConfidenceScore != 8.5 || arb.SelectedFrom != "Agent C" || arb.Action != ActionAccept {
		t.Errorf("arbitration fields: %+v", arb)
	}
	if arb.SelectedQuestion == nil || arb.SelectedQuestion.QuestionText == "" {
		t.Error("selected question not unwrapped")
	}
}

func TestParseArbitrationClampsConfidence(t *testing.T) {
	arb := ParseArbitration(`{"selected_question": {"question_text": "Q text here please."}, "confidence_score": 42}`)
	if arb == nil || arb.ConfidenceScore != 10 {
		t.Errorf("confidence not clamped: %+v", arb)
	}
	arb = ParseArbitration(`{"selected_question": {"question_text": "Q text here please."}, "confidence_score": -3}`)
	if arb == nil || arb.ConfidenceScore != 1 {
		t.Errorf("confidence not floored: %+v", arb)
	}
}

func TestParseArbitrationGarbage(t *testing.T) {
	if arb := ParseArbitration("total nonsense, no json at all"); arb != nil {
		t.Errorf("want nil for unparseable output, got %+v", arb)
	}
}
