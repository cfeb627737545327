package retrieval

import (
	"fmt"
	"regexp"
	"strings"

	"ai-examgen-be/pkg/store"
)

// Canonical Bloom taxonomy levels, ordered lowest to highest.
var BloomLevels = []string{
	"knowledge", "comprehension", "application", "analysis", "synthesis", "evaluation",
}

// Verbs per canonical level, used for action-oriented query variants.
var bloomVerbs = map[string][]string{
	"knowledge": {
		"define", "list", "identify", "describe", "name", "recall", "state",
		"recognize", "label", "outline",
	},
	"comprehension": {
		"explain", "summarize", "interpret", "classify", "compare",
		"distinguish", "discuss", "illustrate", "paraphrase",
	},
	"application": {
		"apply", "demonstrate", "implement", "solve", "use", "calculate",
		"execute", "practice", "operate", "employ",
	},
	"analysis": {
		"analyze", "differentiate", "examine", "investigate", "categorize",
		"compare and contrast", "deconstruct", "organize", "dissect",
	},
	"synthesis": {
		"design", "create", "construct", "develop", "formulate", "propose",
		"compose", "integrate", "plan", "devise",
	},
	"evaluation": {
		"evaluate", "assess", "justify", "critique", "judge", "appraise",
		"argue", "defend", "recommend", "prioritize",
	},
}

var bloomAlias = map[string]string{
	"remember":   "knowledge",
	"understand": "comprehension",
	"apply":      "application",
	"analyse":    "analysis",
	"analyze":    "analysis",
	"create":     "synthesis",
	"evaluate":   "evaluation",
}

// ResolveBloom collapses aliases to canonical keys; unknown or empty input
// defaults to the mid-level "comprehension".
func ResolveBloom(level string) string {
	if level == "" {
		return "comprehension"
	}
	lower := strings.ToLower(strings.TrimSpace(level))
	if _, ok := bloomVerbs[lower]; ok {
		return lower
	}
	if canonical, ok := bloomAlias[lower]; ok {
		return canonical
	}
	return "comprehension"
}

// IsHigherOrderBloom reports whether a canonical level sits in the upper
// half of the taxonomy (analysis and above).
func IsHigherOrderBloom(level string) bool {
	switch ResolveBloom(level) {
	case "analysis", "synthesis", "evaluation":
		return true
	}
	return false
}

var keywordStopwords = map[string]struct{}{}

func init() {
	for _, w := range strings.Fields(
		"the a an is are was were be been being have has had do does did will " +
			"would could should may might can shall to of in for on with at by " +
			"from as into through during and or but not no if that this these " +
			"those it its able using use based given students student learner " +
			"understand demonstrate describe explain identify apply analyze evaluate") {
		keywordStopwords[w] = struct{}{}
	}
}

var wordRe = regexp.MustCompile(`\b[a-zA-Z]{3,}\b`)

// extractKeyTerms pulls likely content terms from outcome/topic text using a
// stopword-filtered frequency-free heuristic that preserves first-seen order.
func extractKeyTerms(text string) []string {
	words := wordRe.FindAllString(strings.ToLower(text), -1)

	seen := make(map[string]struct{})
	var unique []string
	for _, w := range words {
		if _, stop := keywordStopwords[w]; stop {
			continue
		}
		if _, dup := seen[w]; dup {
			continue
		}
		seen[w] = struct{}{}
		unique = append(unique, w)
		if len(unique) == 8 {
			break
		}
	}
	return unique
}

// VariantRequest carries the structured pedagogical inputs the builder
// expands into query variants.
type VariantRequest struct {
	TopicName    string
	OutcomeText  string // learning-outcome text (primary target)
	CourseText   string // course-outcome context
	BloomLevel   string
	Difficulty   string
	QuestionType string
}

var questionTypeTemplates = map[string]string{
	"MCQ":         "factual concepts definitions about %s",
	"Short Notes": "key points important aspects of %s",
	"Essay":       "detailed comprehensive explanation of %s including significance applications",
}

// BuildQueryVariants generates 4-10 diverse query variants from structured
// inputs. Pure function: no external calls, deterministic for fixed input.
// The variant at index 0 is the primary query.
func BuildQueryVariants(req VariantRequest) []store.QueryVariant {
	var variants []store.QueryVariant
	bloomKey := ResolveBloom(req.BloomLevel)
	verbs := bloomVerbs[bloomKey]

	// Primary: topic (+ outcome) at full weight
	if req.OutcomeText != "" {
		variants = append(variants, store.QueryVariant{
			Text:     fmt.Sprintf("%s: %s", req.TopicName, req.OutcomeText),
			Strategy: "semantic_topic_lo",
			Weight:   1.0,
		})
	} else {
		variants = append(variants, store.QueryVariant{
			Text:     req.TopicName,
			Strategy: "semantic_topic",
			Weight:   0.9,
		})
	}

	// Secondary: topic in course context
	if req.CourseText != "" {
		variants = append(variants, store.QueryVariant{
			Text:     fmt.Sprintf("%s in context of %s", req.TopicName, req.CourseText),
			Strategy: "semantic_topic_co",
			Weight:   0.8,
		})
	}

	// Bloom verb variants: verb + target, weight stepping down slightly
	target := req.OutcomeText
	if target == "" {
		target = req.TopicName
	}
	for i, verb := range verbs {
		if i == 2 {
			break
		}
		variants = append(variants, store.QueryVariant{
			Text:     fmt.Sprintf("%s %s", capitalize(verb), target),
			Strategy: "bloom_verb_" + strings.ReplaceAll(verb, " ", "_"),
			Weight:   0.7 - float64(i)*0.05,
		})
	}

	// Keyword variants from the richest available text
	sourceText := req.OutcomeText
	if sourceText == "" {
		sourceText = req.CourseText
	}
	if sourceText == "" {
		sourceText = req.TopicName
	}
	keyTerms := extractKeyTerms(sourceText)

	if len(keyTerms) > 0 {
		dense := keyTerms
		if len(dense) > 5 {
			dense = dense[:5]
		}
		variants = append(variants, store.QueryVariant{
			Text:     strings.Join(dense, " "),
			Strategy: "keyword_dense",
			Weight:   0.6,
		})

		if len(keyTerms) >= 3 {
			variants = append(variants, store.QueryVariant{
				Text:     fmt.Sprintf("%s %s", req.TopicName, strings.Join(keyTerms[:3], " ")),
				Strategy: "keyword_topic_terms",
				Weight:   0.65,
			})
		}
	}

	// Question-type template variant
	template, ok := questionTypeTemplates[req.QuestionType]
	if !ok {
		template = questionTypeTemplates["MCQ"]
	}
	variants = append(variants, store.QueryVariant{
		Text:     fmt.Sprintf(template, req.TopicName),
		Strategy: "question_type_" + strings.ReplaceAll(strings.ToLower(req.QuestionType), " ", "_"),
		Weight:   0.5,
	})

	// Difficulty variants only at the extremes
	switch strings.ToLower(req.Difficulty) {
	case "hard":
		if req.OutcomeText != "" {
			variants = append(variants, store.QueryVariant{
				Text:     fmt.Sprintf("advanced complex aspects of %s: clinical applications complications", req.TopicName),
				Strategy: "difficulty_hard",
				Weight:   0.55,
			})
		}
	case "easy":
		variants = append(variants, store.QueryVariant{
			Text:     fmt.Sprintf("basic introduction fundamentals of %s", req.TopicName),
			Strategy: "difficulty_easy",
			Weight:   0.55,
		})
	}

	return variants
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
