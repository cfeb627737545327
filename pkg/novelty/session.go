package novelty

import (
	"sync"

	"ai-examgen-be/pkg/store"
)

// acceptedOutput pairs an accepted question text with its embedding.
type acceptedOutput struct {
	Text      string
	Embedding []float32
}

// SessionState tracks per-scope accepted outputs and chunk usage within one
// generation job. State never leaks across scopes; each scope key owns an
// independent record.
type SessionState struct {
	mu       sync.RWMutex
	accepted map[string][]acceptedOutput
	usage    map[string]map[store.ChunkID]int
}

func NewSessionState() *SessionState {
	return &SessionState{
		accepted: make(map[string][]acceptedOutput),
		usage:    make(map[string]map[store.ChunkID]int),
	}
}

// Register records an accepted output and bumps usage counts for the chunks
// it consumed.
func (s *SessionState) Register(scope store.Scope, text string, embedding []float32, usedChunks []store.ChunkID) {
	key := scope.Key()
	s.mu.Lock()
	defer s.mu.Unlock()

	s.accepted[key] = append(s.accepted[key], acceptedOutput{Text: text, Embedding: embedding})
	if s.usage[key] == nil {
		s.usage[key] = make(map[store.ChunkID]int)
	}
	for _, id := range usedChunks {
		s.usage[key][id]++
	}
}

// AcceptedTexts returns the accepted question texts for a scope, oldest
// first.
func (s *SessionState) AcceptedTexts(scope store.Scope) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	outputs := s.accepted[scope.Key()]
	texts := make([]string, len(outputs))
	for i, o := range outputs {
		texts[i] = o.Text
	}
	return texts
}

// AcceptedEmbeddings returns embeddings of accepted outputs for a scope.
func (s *SessionState) AcceptedEmbeddings(scope store.Scope) [][]float32 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	outputs := s.accepted[scope.Key()]
	embs := make([][]float32, 0, len(outputs))
	for _, o := range outputs {
		if len(o.Embedding) > 0 {
			embs = append(embs, o.Embedding)
		}
	}
	return embs
}

// Usage returns a copy of the per-chunk usage counts for a scope.
func (s *SessionState) Usage(scope store.Scope) map[store.ChunkID]int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	src := s.usage[scope.Key()]
	out := make(map[store.ChunkID]int, len(src))
	for id, n := range src {
		out[id] = n
	}
	return out
}

// Reset clears all state for a scope. Idempotent.
func (s *SessionState) Reset(scope store.Scope) {
	key := scope.Key()
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.accepted, key)
	delete(s.usage, key)
}
