package generation

import (
	"fmt"
	"strings"

	"ai-examgen-be/pkg/retrieval"
	"ai-examgen-be/pkg/store"
)

const minQuestionLength = 15

// Prefixes that signal pure recall phrasing, disallowed for higher-order
// cognitive levels and hard difficulty.
var recallPrefixes = []string{
	"what is",
	"define",
	"list the",
	"name the",
	"state the",
	"which of the following is the definition",
}

// ValidationContext carries the evidence and pedagogical inputs the gate
// checks citations against.
type ValidationContext struct {
	Evidence   *store.EvidenceSet
	BloomLevel string
	Difficulty string

	// DuplicateOf is set by the session dedup check before validation.
	DuplicateOf string
}

// Validate applies the fixed rule set to a candidate payload. An empty
// result means the attempt is acceptable.
func Validate(payload *QuestionPayload, questionType string, vctx ValidationContext) []string {
	var errs []string
	if payload == nil {
		return []string{"no structured question payload produced"}
	}

	text := strings.TrimSpace(payload.QuestionText)
	if len(text) < minQuestionLength {
		errs = append(errs, fmt.Sprintf("question text missing or too short (%d chars, need %d)", len(text), minQuestionLength))
	}

	if questionType == FormatMCQ {
		if len(payload.Options) != RequiredMCQOptions {
			errs = append(errs, fmt.Sprintf("MCQ must have exactly %d options, got %d", RequiredMCQOptions, len(payload.Options)))
		}
		if payload.CorrectAnswer == "" {
			errs = append(errs, "MCQ missing correct_answer")
		} else if !answerMatchesOption(payload.CorrectAnswer, payload.Options) {
			errs = append(errs, fmt.Sprintf("correct_answer %q does not match any option", payload.CorrectAnswer))
		}
	}

	higherOrder := retrieval.IsHigherOrderBloom(vctx.BloomLevel)
	minChunks := 1
	if higherOrder {
		minChunks = 2
	}
	distinct := distinctChunks(payload.UsedChunks)
	if distinct < minChunks {
		errs = append(errs, fmt.Sprintf("cited %d distinct chunks, cognitive level requires at least %d", distinct, minChunks))
	}

	if vctx.Evidence != nil {
		for _, quote := range payload.SupportingQuotes {
			if !quoteAppearsInEvidence(quote, payload.UsedChunks, vctx.Evidence) {
				errs = append(errs, fmt.Sprintf("supporting quote not found in cited chunks: %q", truncateForError(quote)))
			}
		}
	}

	if higherOrder || strings.EqualFold(vctx.Difficulty, "hard") {
		lower := strings.ToLower(text)
		for _, prefix := range recallPrefixes {
			if strings.HasPrefix(lower, prefix) {
				errs = append(errs, fmt.Sprintf("recall-style phrasing %q not allowed at this cognitive level", prefix))
				break
			}
		}
	}

	if vctx.DuplicateOf != "" {
		errs = append(errs, "too similar to an already accepted question in this session")
	}

	return errs
}

// answerMatchesOption requires an exact string match against one of the
// listed options, tolerating only surrounding whitespace. A bare letter
// answer matches an option carrying that letter label.
func answerMatchesOption(answer string, options []string) bool {
	trimmed := strings.TrimSpace(answer)
	for _, opt := range options {
		if strings.TrimSpace(opt) == trimmed {
			return true
		}
	}
	// "B" against "B. Something" or "B) Something".
	if len(trimmed) == 1 {
		upper := strings.ToUpper(trimmed)
		for _, opt := range options {
			o := strings.TrimSpace(opt)
			if strings.HasPrefix(o, upper+".") || strings.HasPrefix(o, upper+")") {
				return true
			}
		}
	}
	return false
}

func distinctChunks(ids []string) int {
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if id = strings.TrimSpace(id); id != "" {
			seen[id] = struct{}{}
		}
	}
	return len(seen)
}

// quoteAppearsInEvidence checks the quote's leading fragment against the
// cited chunks first, then any evidence chunk. Matching is case-insensitive
// on a bounded prefix so minor tail truncation by the model still passes.
func quoteAppearsInEvidence(quote string, citedIDs []string, evidence *store.EvidenceSet) bool {
	needle := strings.ToLower(strings.TrimSpace(quote))
	if needle == "" {
		return true
	}
	if len(needle) > 80 {
		needle = needle[:80]
	}

	for _, id := range citedIDs {
		if text, ok := evidence.TextByChunkID(store.ChunkID(strings.TrimSpace(id))); ok {
			if strings.Contains(strings.ToLower(text), needle) {
				return true
			}
		}
	}
	for _, text := range evidence.Texts() {
		if strings.Contains(strings.ToLower(text), needle) {
			return true
		}
	}
	return false
}

func truncateForError(s string) string {
	if len(s) > 60 {
		return s[:60] + "..."
	}
	return s
}
