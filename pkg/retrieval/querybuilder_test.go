package retrieval

import (
	"strings"
	"testing"
)

func TestResolveBloom(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"knowledge", "knowledge"},
		{"Remember", "knowledge"},
		{"understand", "comprehension"},
		{"Apply", "application"},
		{"analyse", "analysis"},
		{"analyze", "analysis"},
		{"create", "synthesis"},
		{"evaluate", "evaluation"},
		{"EVALUATION", "evaluation"},
		{"", "comprehension"},
		{"galactic", "comprehension"},
	}
	for _, tt := range tests {
		if got := ResolveBloom(tt.in); got != tt.want {
			t.Errorf("ResolveBloom(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestIsHigherOrderBloom(t *testing.T) {
	for _, level := range []string{"analysis", "synthesis", "evaluation", "create", "evaluate"} {
		if !IsHigherOrderBloom(level) {
			t.Errorf("expected %q to be higher order", level)
		}
	}
	for _, level := range []string{"knowledge", "comprehension", "application", "remember", ""} {
		if IsHigherOrderBloom(level) {
			t.Errorf("expected %q to be lower order", level)
		}
	}
}

func TestBuildQueryVariants(t *testing.T) {
	req := VariantRequest{
		TopicName:    "Cardiac Cycle",
		OutcomeText:  "Describe the phases of the cardiac cycle including systole and diastole pressure changes",
		CourseText:   "Cardiovascular physiology for first year medical students",
		BloomLevel:   "analysis",
		Difficulty:   "hard",
		QuestionType: "MCQ",
	}
	variants := BuildQueryVariants(req)

	if len(variants) < 4 || len(variants) > 10 {
		t.Fatalf("variant count %d outside [4,10]", len(variants))
	}

	if variants[0].Weight != 1.0 {
		t.Errorf("primary variant weight = %v, want 1.0", variants[0].Weight)
	}
	if !strings.Contains(variants[0].Text, req.TopicName) {
		t.Errorf("primary variant missing topic: %q", variants[0].Text)
	}

	seen := make(map[string]struct{})
	for _, v := range variants {
		if v.Weight <= 0 || v.Weight > 1.0 {
			t.Errorf("variant %q weight %v outside (0,1]", v.Strategy, v.Weight)
		}
		if v.Text == "" {
			t.Errorf("variant %q has empty text", v.Strategy)
		}
		if _, dup := seen[v.Text]; dup {
			t.Errorf("duplicate variant text %q", v.Text)
		}
		seen[v.Text] = struct{}{}
	}

	// Non-primary variants never outweigh the primary.
	for _, v := range variants[1:] {
		if v.Weight > variants[0].Weight {
			t.Errorf("variant %q weight %v exceeds primary", v.Strategy, v.Weight)
		}
	}
}

func TestBuildQueryVariantsMinimalInput(t *testing.T) {
	variants := BuildQueryVariants(VariantRequest{TopicName: "Photosynthesis"})
	if len(variants) < 4 {
		t.Fatalf("want at least 4 variants for bare topic, got %d", len(variants))
	}
	for _, v := range variants {
		if !strings.Contains(strings.ToLower(v.Text), "photosynthesis") {
			t.Errorf("variant %q lost the topic: %q", v.Strategy, v.Text)
		}
	}
}

func TestBuildQueryVariantsDeterministic(t *testing.T) {
	req := VariantRequest{
		TopicName:   "Osmosis",
		OutcomeText: "Explain osmotic pressure in plant cells",
		BloomLevel:  "comprehension",
	}
	a := BuildQueryVariants(req)
	b := BuildQueryVariants(req)
	if len(a) != len(b) {
		t.Fatalf("non-deterministic variant count: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Errorf("variant %d differs between runs: %+v vs %+v", i, a[i], b[i])
		}
	}
}

func TestExtractKeyTerms(t *testing.T) {
	terms := extractKeyTerms("The student will be able to describe osmotic pressure gradients in plant cells using diffusion models")
	if len(terms) == 0 {
		t.Fatal("expected key terms")
	}
	for _, term := range terms {
		if _, stop := keywordStopwords[term]; stop {
			t.Errorf("stopword %q leaked into key terms", term)
		}
	}
}
