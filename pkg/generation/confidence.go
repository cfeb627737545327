package generation

import (
	"ai-examgen-be/pkg/retrieval"
)

const (
	// Any validation error caps confidence at this value.
	confidenceErrorCap = 4.0

	// Higher-order questions citing too few chunks cap here.
	confidenceThinCitationCap = 5.0

	// Exhausted runs return the best attempt capped at this ceiling.
	ExhaustedConfidenceCap = 4.0

	citationBoost = 0.5
)

// AdjustConfidence reshapes the arbitration confidence using validation
// outcome and citation density.
func AdjustConfidence(base float64, payload *QuestionPayload, validationErrors []string, bloomLevel string) float64 {
	c := base
	if c < 1 {
		c = 1
	}
	if c > 10 {
		c = 10
	}

	if len(validationErrors) > 0 {
		if c > confidenceErrorCap {
			c = confidenceErrorCap
		}
		return c
	}

	chunks := 0
	quotes := 0
	if payload != nil {
		chunks = distinctChunks(payload.UsedChunks)
		quotes = len(payload.SupportingQuotes)
	}

	if chunks >= 2 {
		c += citationBoost
	}
	if quotes >= 2 {
		c += citationBoost
	}
	if c > 10 {
		c = 10
	}

	if retrieval.IsHigherOrderBloom(bloomLevel) && chunks < 2 && c > confidenceThinCitationCap {
		c = confidenceThinCitationCap
	}
	return c
}
