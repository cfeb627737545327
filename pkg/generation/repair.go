package generation

import (
	"context"
	"fmt"

	"ai-examgen-be/pkg/llm"
)

// RepairMCQOptions enforces the fixed option cardinality. It tries one
// model-driven repair, then falls back to a deterministic mechanical fix.
// The returned payload always has exactly RequiredMCQOptions options.
func RepairMCQOptions(ctx context.Context, provider llm.Provider, model string, payload *QuestionPayload) *QuestionPayload {
	if len(payload.Options) == RequiredMCQOptions {
		return payload
	}

	if provider != nil {
		if repaired := llmOptionRepair(ctx, provider, model, payload); repaired != nil {
			return repaired
		}
	}
	return mechanicalOptionRepair(payload)
}

func llmOptionRepair(ctx context.Context, provider llm.Provider, model string, payload *QuestionPayload) *QuestionPayload {
	out, err := provider.Generate(ctx, BuildOptionRepairPrompt(payload), llm.WithModel(model), llm.WithTemperature(0.1))
	if err != nil {
		return nil
	}
	repaired := UnwrapQuestion(ExtractJSON(out))
	if repaired == nil || len(repaired.Options) != RequiredMCQOptions {
		return nil
	}
	if !answerMatchesOption(repaired.CorrectAnswer, repaired.Options) {
		return nil
	}
	// Keep citation data from the original; repair prompts do not carry it.
	repaired.UsedChunks = payload.UsedChunks
	repaired.SupportingQuotes = payload.SupportingQuotes
	if repaired.Explanation == "" {
		repaired.Explanation = payload.Explanation
	}
	return repaired
}

// mechanicalOptionRepair truncates keeping the correct option, or pads with
// generic distractors. Never returns a payload off-cardinality.
func mechanicalOptionRepair(payload *QuestionPayload) *QuestionPayload {
	fixed := *payload
	options := append([]string(nil), payload.Options...)

	if len(options) > RequiredMCQOptions {
		correctIdx := -1
		for i, opt := range options {
			if answerMatchesOption(payload.CorrectAnswer, []string{opt}) {
				correctIdx = i
				break
			}
		}
		kept := options[:RequiredMCQOptions]
		if correctIdx >= RequiredMCQOptions {
			kept[RequiredMCQOptions-1] = options[correctIdx]
		}
		fixed.Options = kept
		return &fixed
	}

	for i := len(options); i < RequiredMCQOptions; i++ {
		options = append(options, fmt.Sprintf("%c. None of the above alternatives apply", 'A'+i))
	}
	fixed.Options = options
	if fixed.CorrectAnswer == "" && len(payload.Options) > 0 {
		fixed.CorrectAnswer = payload.Options[0]
	}
	return &fixed
}
