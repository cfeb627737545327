package novelty

import (
	"testing"

	"github.com/google/uuid"

	"ai-examgen-be/pkg/store"
)

func TestSessionRegisterAndUsage(t *testing.T) {
	s := NewSessionState()
	scope := store.Scope{SubjectID: uuid.New()}

	s.Register(scope, "first question", []float32{1, 0}, []store.ChunkID{"c1", "c2"})
	s.Register(scope, "second question", []float32{0, 1}, []store.ChunkID{"c1"})

	texts := s.AcceptedTexts(scope)
	if len(texts) != 2 || texts[0] != "first question" {
		t.Fatalf("accepted texts = %v", texts)
	}
	if got := len(s.AcceptedEmbeddings(scope)); got != 2 {
		t.Errorf("embeddings = %d, want 2", got)
	}

	usage := s.Usage(scope)
	if usage["c1"] != 2 || usage["c2"] != 1 {
		t.Errorf("usage counts = %v", usage)
	}

	// Returned map is a copy; mutating it must not affect state.
	usage["c1"] = 99
	if s.Usage(scope)["c1"] != 2 {
		t.Error("Usage must return a copy")
	}
}

func TestSessionScopeIsolation(t *testing.T) {
	s := NewSessionState()
	a := store.Scope{SubjectID: uuid.New()}
	b := store.Scope{SubjectID: uuid.New()}

	s.Register(a, "question for a", nil, []store.ChunkID{"c1"})

	if got := s.AcceptedTexts(b); len(got) != 0 {
		t.Errorf("scope b leaked state: %v", got)
	}
	if got := s.Usage(b); len(got) != 0 {
		t.Errorf("scope b leaked usage: %v", got)
	}
}

func TestSessionResetIdempotent(t *testing.T) {
	s := NewSessionState()
	scope := store.Scope{SubjectID: uuid.New()}
	s.Register(scope, "q", []float32{1}, []store.ChunkID{"c1"})

	s.Reset(scope)
	if len(s.AcceptedTexts(scope)) != 0 || len(s.Usage(scope)) != 0 {
		t.Fatal("reset did not clear state")
	}

	// Second reset of an empty scope is a no-op.
	s.Reset(scope)
	if len(s.AcceptedTexts(scope)) != 0 {
		t.Fatal("repeated reset misbehaved")
	}
}

func TestSessionTopicScopesAreDistinct(t *testing.T) {
	s := NewSessionState()
	subject := uuid.New()
	topicA := uuid.New()
	topicB := uuid.New()

	s.Register(store.Scope{SubjectID: subject, TopicID: &topicA}, "qa", nil, nil)

	if got := s.AcceptedTexts(store.Scope{SubjectID: subject, TopicID: &topicB}); len(got) != 0 {
		t.Errorf("topic scopes must be independent, got %v", got)
	}
}
