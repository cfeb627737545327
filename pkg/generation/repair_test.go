package generation

import (
	"context"
	"testing"
)

func TestMechanicalRepairTruncatesKeepingCorrect(t *testing.T) {
	payload := &QuestionPayload{
		QuestionText:  "Which process moves water across a membrane?",
		Options:       []string{"A. Diffusion", "B. Active transport", "C. Endocytosis", "D. Exocytosis", "E. Osmosis"},
		CorrectAnswer: "E. Osmosis",
	}

	fixed := RepairMCQOptions(context.Background(), nil, "", payload)
	if len(fixed.Options) != RequiredMCQOptions {
		t.Fatalf("want %d options, got %d", RequiredMCQOptions, len(fixed.Options))
	}
	if !answerMatchesOption(fixed.CorrectAnswer, fixed.Options) {
		t.Errorf("correct answer %q lost during truncation: %v", fixed.CorrectAnswer, fixed.Options)
	}
}

func TestMechanicalRepairPads(t *testing.T) {
	payload := &QuestionPayload{
		QuestionText:  "Which organelle produces ATP?",
		Options:       []string{"A. Mitochondria", "B. Nucleus"},
		CorrectAnswer: "A. Mitochondria",
	}

	fixed := RepairMCQOptions(context.Background(), nil, "", payload)
	if len(fixed.Options) != RequiredMCQOptions {
		t.Fatalf("want %d options after padding, got %d", RequiredMCQOptions, len(fixed.Options))
	}
	if fixed.Options[0] != "A. Mitochondria" || fixed.Options[1] != "B. Nucleus" {
		t.Errorf("original options disturbed: %v", fixed.Options)
	}
	if !answerMatchesOption(fixed.CorrectAnswer, fixed.Options) {
		t.Errorf("correct answer lost: %v", fixed)
	}
}

func TestRepairNoOpAtCardinality(t *testing.T) {
	payload := validMCQ()
	fixed := RepairMCQOptions(context.Background(), nil, "", payload)
	if fixed != payload {
		t.Error("exact cardinality should pass through untouched")
	}
}

func TestAdjustConfidence(t *testing.T) {
	tests := []struct {
		name   string
		base   float64
		errs   []string
		chunks []string
		quotes []string
		bloom  string
		want   float64
	}{
		{"error caps at 4", 9.0, []string{"bad"}, []string{"c1", "c2"}, nil, "knowledge", 4.0},
		{"error below cap unchanged", 3.0, []string{"bad"}, nil, nil, "knowledge", 3.0},
		{"chunk boost", 7.0, nil, []string{"c1", "c2"}, nil, "knowledge", 7.5},
		{"chunk and quote boost", 7.0, nil, []string{"c1", "c2"}, []string{"q1", "q2"}, "knowledge", 8.0},
		{"boost capped at 10", 9.8, nil, []string{"c1", "c2"}, []string{"q1", "q2"}, "knowledge", 10.0},
		{"higher-order thin citation caps at 5", 8.0, nil, []string{"c1"}, nil, "evaluation", 5.0},
		{"base clamped to scale", 0.2, nil, nil, nil, "knowledge", 1.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload := &QuestionPayload{UsedChunks: tt.chunks, SupportingQuotes: tt.quotes}
			got := AdjustConfidence(tt.base, payload, tt.errs, tt.bloom)
			if got != tt.want {
				t.Errorf("AdjustConfidence = %v, want %v", got, tt.want)
			}
		})
	}
}
