package retrieval

import (
	"strings"
	"unicode"

	"ai-examgen-be/pkg/store"
)

const (
	noiseMinLength = 50
	noiseMinAlpha  = 0.5
	relaxMinLength = 20
	relaxMinAlpha  = 0.3
)

var boilerplateMarkers = []string{
	"table of contents",
	"copyright",
	"all rights reserved",
	"references",
	"bibliography",
	"index",
	"appendix",
	"acknowledgement",
	"page intentionally left blank",
	"isbn",
}

func alphaRatio(text string) float64 {
	if text == "" {
		return 0
	}
	var alpha, total int
	for _, r := range text {
		if unicode.IsSpace(r) {
			continue
		}
		total++
		if unicode.IsLetter(r) {
			alpha++
		}
	}
	if total == 0 {
		return 0
	}
	return float64(alpha) / float64(total)
}

func isNoise(text string, minLength int, minAlpha float64) bool {
	trimmed := strings.TrimSpace(text)
	if len(trimmed) < minLength {
		return true
	}
	if alphaRatio(trimmed) < minAlpha {
		return true
	}
	lower := strings.ToLower(trimmed)
	// Markers only count as boilerplate when they dominate a short chunk.
	if len(trimmed) < 200 {
		for _, marker := range boilerplateMarkers {
			if strings.Contains(lower, marker) {
				return true
			}
		}
	}
	return false
}

// FilterNoise removes fragments, symbol-heavy chunks and boilerplate. When
// the strict pass leaves fewer than want survivors, thresholds are relaxed
// so retrieval does not starve on sparse material.
func FilterNoise(candidates []store.Candidate, want int) []store.Candidate {
	strict := make([]store.Candidate, 0, len(candidates))
	for _, c := range candidates {
		if !isNoise(c.Document, noiseMinLength, noiseMinAlpha) {
			strict = append(strict, c)
		}
	}
	if len(strict) >= want {
		return strict
	}

	relaxed := make([]store.Candidate, 0, len(candidates))
	for _, c := range candidates {
		if !isNoise(c.Document, relaxMinLength, relaxMinAlpha) {
			relaxed = append(relaxed, c)
		}
	}
	if len(relaxed) > len(strict) {
		return relaxed
	}
	return strict
}
