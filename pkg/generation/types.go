package generation

import (
	"ai-examgen-be/pkg/store"
)

// Question formats accepted by the council.
const (
	FormatMCQ        = "MCQ"
	FormatShortNotes = "Short Notes"
	FormatEssay      = "Essay"
)

// RequiredMCQOptions is the fixed option cardinality for multiple choice.
const RequiredMCQOptions = 4

// QuestionPayload is the structured candidate produced by the council and
// judged by the validation gate.
type QuestionPayload struct {
	QuestionText     string   `json:"question_text"`
	Options          []string `json:"options,omitempty"`
	CorrectAnswer    string   `json:"correct_answer,omitempty"`
	Explanation      string   `json:"explanation,omitempty"`
	KeyPoints        []string `json:"key_points,omitempty"`
	ExpectedStruct   []string `json:"expected_structure,omitempty"`
	Marks            int      `json:"marks,omitempty"`
	WordLimit        int      `json:"word_limit,omitempty"`
	UsedChunks       []string `json:"used_chunks,omitempty"`
	SupportingQuotes []string `json:"supporting_quotes,omitempty"`
}

// Arbitration is the chairman's decision over the competing drafts.
type Arbitration struct {
	SelectedQuestion *QuestionPayload `json:"selected_question"`
	ConfidenceScore  float64          `json:"confidence_score"`
	SelectedFrom     string           `json:"selected_from"`
	Action           string           `json:"action"`
	Reasoning        string           `json:"reasoning"`
}

// Arbitration action flags.
const (
	ActionAccept     = "accept"
	ActionRegenerate = "regenerate"
)

// Drafts preserves the raw agent outputs of an attempt for audit.
type Drafts struct {
	AgentADraft    string `json:"agent_a_draft,omitempty"`
	AgentBReview   string `json:"agent_b_review,omitempty"`
	AgentCDraft    string `json:"agent_c_draft,omitempty"`
	ChairmanOutput string `json:"chairman_output,omitempty"`
}

// Attempt records one pass through the council state machine.
type Attempt struct {
	Number           int              `json:"number"`
	Question         *QuestionPayload `json:"question"`
	Confidence       float64          `json:"confidence"`
	ValidationErrors []string         `json:"validation_errors"`
	SelectedFrom     string           `json:"selected_from"`
	Action           string           `json:"action"`
	Drafts           Drafts           `json:"drafts"`
	TimingsMS        map[string]int64 `json:"timings_ms,omitempty"`
}

// Result is the final outcome of a generation run.
type Result struct {
	Question         *QuestionPayload   `json:"question"`
	Confidence       float64            `json:"confidence"`
	SelectedFrom     string             `json:"selected_from"`
	Accepted         bool               `json:"accepted"`
	Attempts         int                `json:"attempts"`
	ValidationErrors []string           `json:"validation_errors,omitempty"`
	Novel            bool               `json:"novel"`
	Grounded         bool               `json:"grounded"`
	Drafts           Drafts             `json:"drafts"`
	ModelsUsed       map[string]string  `json:"models_used,omitempty"`
	TimingsMS        map[string]int64   `json:"timings_ms,omitempty"`
	Evidence         *store.EvidenceSet `json:"-"`
}

// Request carries the pedagogical inputs for one generation run.
type Request struct {
	Subject      string
	Topic        string
	QuestionType string
	Difficulty   string
	BloomLevel   string
	Scope        store.Scope

	// Structured syllabus guidance, keyed by accession code.
	LearningOutcomes map[string]string
	CourseOutcomes   map[string]string
	BloomWeights     map[string]float64

	SampleQuestions string
	SkillContent    string

	// Recently accepted question texts, injected as a diversity hint.
	RecentQuestions []string
}
