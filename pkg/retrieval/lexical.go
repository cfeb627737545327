package retrieval

import (
	"math"
	"regexp"
	"strings"
)

const (
	bm25K1 = 1.5
	bm25B  = 0.75
)

var tokenRe = regexp.MustCompile(`[a-z0-9]+`)

func tokenize(text string) []string {
	return tokenRe.FindAllString(strings.ToLower(text), -1)
}

// BM25Scorer holds the per-corpus statistics needed to score queries with
// the Okapi BM25 ranking function.
type BM25Scorer struct {
	docFreqs  []map[string]int
	docLens   []int
	avgDocLen float64
	idf       map[string]float64
}

// NewBM25Scorer indexes the corpus. An empty corpus yields a scorer whose
// ScoreNormalized returns all zeros.
func NewBM25Scorer(corpus []string) *BM25Scorer {
	s := &BM25Scorer{
		docFreqs: make([]map[string]int, len(corpus)),
		docLens:  make([]int, len(corpus)),
		idf:      make(map[string]float64),
	}

	termDocCount := make(map[string]int)
	totalLen := 0
	for i, doc := range corpus {
		tokens := tokenize(doc)
		freqs := make(map[string]int, len(tokens))
		for _, t := range tokens {
			freqs[t]++
		}
		s.docFreqs[i] = freqs
		s.docLens[i] = len(tokens)
		totalLen += len(tokens)
		for t := range freqs {
			termDocCount[t]++
		}
	}

	n := len(corpus)
	if n > 0 {
		s.avgDocLen = float64(totalLen) / float64(n)
	}
	for term, df := range termDocCount {
		// Okapi IDF with the +1 smoothing that keeps scores non-negative.
		s.idf[term] = math.Log(1 + (float64(n)-float64(df)+0.5)/(float64(df)+0.5))
	}
	return s
}

func (s *BM25Scorer) score(queryTokens []string, docIdx int) float64 {
	if s.avgDocLen == 0 {
		return 0
	}
	freqs := s.docFreqs[docIdx]
	docLen := float64(s.docLens[docIdx])

	var total float64
	for _, term := range queryTokens {
		tf := float64(freqs[term])
		if tf == 0 {
			continue
		}
		idf := s.idf[term]
		num := tf * (bm25K1 + 1)
		den := tf + bm25K1*(1-bm25B+bm25B*docLen/s.avgDocLen)
		total += idf * num / den
	}
	return total
}

// ScoreNormalized scores every indexed document against the query and
// max-normalizes the result into [0, 1].
func (s *BM25Scorer) ScoreNormalized(query string) []float64 {
	scores := make([]float64, len(s.docFreqs))
	queryTokens := tokenize(query)
	if len(queryTokens) == 0 {
		return scores
	}

	maxScore := 0.0
	for i := range s.docFreqs {
		scores[i] = s.score(queryTokens, i)
		if scores[i] > maxScore {
			maxScore = scores[i]
		}
	}
	if maxScore > 0 {
		for i := range scores {
			scores[i] /= maxScore
		}
	}
	return scores
}
