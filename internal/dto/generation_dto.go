package dto

import (
	"github.com/google/uuid"

	"ai-examgen-be/pkg/generation"
	"ai-examgen-be/pkg/retrieval"
)

type RetrieveEvidenceRequest struct {
	SubjectId    uuid.UUID  `json:"subject_id" validate:"required"`
	UnitId       *uuid.UUID `json:"unit_id"`
	TopicId      *uuid.UUID `json:"topic_id"`
	TopicName    string     `json:"topic_name" validate:"required"`
	OutcomeText  string     `json:"outcome_text"`
	CourseText   string     `json:"course_text"`
	BloomLevel   string     `json:"bloom_level"`
	Difficulty   string     `json:"difficulty"`
	QuestionType string     `json:"question_type"`
	NumResults   int        `json:"num_results"`
}

type EvidenceChunk struct {
	ChunkId    string    `json:"chunk_id"`
	Document   string    `json:"document"`
	Score      float64   `json:"score"`
	MaterialId uuid.UUID `json:"material_id"`
	PageStart  int       `json:"page_start"`
	PageEnd    int       `json:"page_end"`
	Section    string    `json:"section,omitempty"`
}

type RetrieveEvidenceResponse struct {
	Chunks      []EvidenceChunk        `json:"chunks"`
	Diagnostics *retrieval.Diagnostics `json:"diagnostics,omitempty"`
}

type GenerateQuestionRequest struct {
	SubjectId    uuid.UUID  `json:"subject_id" validate:"required"`
	UnitId       *uuid.UUID `json:"unit_id"`
	TopicId      *uuid.UUID `json:"topic_id"`
	Subject      string     `json:"subject" validate:"required"`
	TopicName    string     `json:"topic_name" validate:"required"`
	OutcomeText  string     `json:"outcome_text"`
	CourseText   string     `json:"course_text"`
	QuestionType string     `json:"question_type" validate:"required,oneof=MCQ 'Short Notes' Essay"`
	Difficulty   string     `json:"difficulty"`
	BloomLevel   string     `json:"bloom_level"`
	NumEvidence  int        `json:"num_evidence"`

	LearningOutcomes map[string]string  `json:"learning_outcomes"`
	CourseOutcomes   map[string]string  `json:"course_outcomes"`
	BloomWeights     map[string]float64 `json:"bloom_weights"`
	SampleQuestions  string             `json:"sample_questions"`
	SkillContent     string             `json:"skill_content"`

	IncludeDiagnostics bool `json:"include_diagnostics"`
}

type GenerateQuestionResponse struct {
	QuestionId   string                      `json:"question_id"`
	Question     *generation.QuestionPayload `json:"question"`
	Confidence   float64                     `json:"confidence"`
	Accepted     bool                        `json:"accepted"`
	SelectedFrom string                      `json:"selected_from"`
	Attempts     int                         `json:"attempts"`
	Novel        bool                        `json:"novel"`
	Grounded     bool                        `json:"grounded"`
	Errors       []string                    `json:"validation_errors,omitempty"`
	Drafts       generation.Drafts           `json:"drafts"`
	Evidence     []EvidenceChunk             `json:"evidence,omitempty"`
	ModelsUsed   map[string]string           `json:"models_used,omitempty"`
	TimingsMs    map[string]int64            `json:"timings_ms,omitempty"`
	Diagnostics  *retrieval.Diagnostics      `json:"diagnostics,omitempty"`
}

type ResetSessionRequest struct {
	SubjectId uuid.UUID  `json:"subject_id" validate:"required"`
	TopicId   *uuid.UUID `json:"topic_id"`
}

type ResetSessionResponse struct {
	ScopeKey string `json:"scope_key"`
}
