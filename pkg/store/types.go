package store

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/google/uuid"
)

// ChunkID is a content-addressed chunk identifier: the first 16 hex chars of
// the SHA-256 of the normalized chunk text. It is computed once at indexing
// time and treated as an opaque key everywhere else.
type ChunkID string

func NewChunkID(chunkText string) ChunkID {
	normalized := strings.ToLower(strings.TrimSpace(chunkText))
	sum := sha256.Sum256([]byte(normalized))
	return ChunkID(hex.EncodeToString(sum[:])[:16])
}

// QueryVariant is one weighted textual rendering of the structured request.
// Index 0 in a variant list is the primary query for reranking and novelty.
type QueryVariant struct {
	Text     string  `json:"text"`
	Strategy string  `json:"strategy"`
	Weight   float64 `json:"weight"`
}

// Candidate is a retrieved chunk moving through the scoring stages.
// It lives only for the duration of one retrieval request.
type Candidate struct {
	ChunkID      ChunkID   `json:"chunk_id"`
	Document     string    `json:"document"`
	Embedding    []float32 `json:"-"`
	VectorScore  float64   `json:"vector_score"`
	LexicalScore float64   `json:"lexical_score"`
	FusedScore   float64   `json:"fused_score"`
	VariantHits  int       `json:"variant_hits"`

	// Provenance for citation display and locality clustering.
	MaterialID uuid.UUID `json:"material_id"`
	PageStart  int       `json:"page_start"`
	PageEnd    int       `json:"page_end"`
	Section    string    `json:"section"`
	Position   int       `json:"position"`
}

// EvidenceSet is the final ordered selection handed to the generator.
// Chunks are pairwise distinct by ChunkID and len <= the requested n.
type EvidenceSet struct {
	Candidates []*Candidate `json:"candidates"`
}

func (e *EvidenceSet) Texts() []string {
	texts := make([]string, len(e.Candidates))
	for i, c := range e.Candidates {
		texts[i] = c.Document
	}
	return texts
}

func (e *EvidenceSet) ChunkIDs() []ChunkID {
	ids := make([]ChunkID, len(e.Candidates))
	for i, c := range e.Candidates {
		ids[i] = c.ChunkID
	}
	return ids
}

// TextByChunkID returns the evidence document for a cited chunk id.
func (e *EvidenceSet) TextByChunkID(id ChunkID) (string, bool) {
	for _, c := range e.Candidates {
		if c.ChunkID == id {
			return c.Document, true
		}
	}
	return "", false
}

// Scope identifies the locality a request operates on. SubjectID is always
// set; UnitID and TopicID narrow the search when present.
type Scope struct {
	SubjectID uuid.UUID  `json:"subject_id"`
	UnitID    *uuid.UUID `json:"unit_id,omitempty"`
	TopicID   *uuid.UUID `json:"topic_id,omitempty"`
}

// Key collapses a scope to the subject x topic pair used by the novelty
// history and the session caches.
func (s Scope) Key() string {
	topic := "all"
	if s.TopicID != nil {
		topic = s.TopicID.String()
	}
	return "s" + s.SubjectID.String() + "_t" + topic
}
