package generation

import (
	"fmt"
	"sort"
	"strings"
)

// Council roles, used as system prompts.
const (
	roleDrafter   = "Precise academic question setter. Derive questions strictly from provided material."
	roleReviewer  = "Critical reviewer. Judge factual grounding, clarity and alignment against the material."
	roleAlternate = "Technical question setter. Produce a rigorous alternative derived from the material."
	roleChairman  = "Final arbiter. Score drafts, select the best, assign confidence based on factual accuracy."
)

const formatInstructionMCQ = `Output JSON format:
{"question_text": "Question here...", "options": ["A. Option 1", "B. Option 2", "C. Option 3", "D. Option 4"], "correct_answer": "B. Option 2", "explanation": "Why B is correct...", "used_chunks": ["chunk id 1"], "supporting_quotes": ["verbatim quote from the material"]}`

const formatInstructionShortNotes = `Output JSON format:
{"question_text": "Question here...", "key_points": ["Point 1", "Point 2", "Point 3"], "marks": 5, "used_chunks": ["chunk id 1"], "supporting_quotes": ["verbatim quote from the material"]}`

const formatInstructionEssay = `Output JSON format:
{"question_text": "Question here...", "expected_structure": ["Intro...", "Body...", "Conclusion..."], "marks": 10, "word_limit": 500, "used_chunks": ["chunk id 1"], "supporting_quotes": ["verbatim quote from the material"]}`

func formatInstruction(questionType string) string {
	switch questionType {
	case FormatShortNotes:
		return formatInstructionShortNotes
	case FormatEssay:
		return formatInstructionEssay
	default:
		return formatInstructionMCQ
	}
}

func formatOutcomeLines(outcomes map[string]string) string {
	if len(outcomes) == 0 {
		return "None"
	}
	codes := make([]string, 0, len(outcomes))
	for code := range outcomes {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	var b strings.Builder
	for _, code := range codes {
		fmt.Fprintf(&b, "- %s: %s\n", code, outcomes[code])
	}
	return strings.TrimRight(b.String(), "\n")
}

func syllabusContext(req Request) string {
	if len(req.LearningOutcomes) == 0 && len(req.CourseOutcomes) == 0 && len(req.BloomWeights) == 0 {
		return "No specific syllabus mapping provided."
	}
	blooms := "None"
	if len(req.BloomWeights) > 0 {
		levels := make([]string, 0, len(req.BloomWeights))
		for level := range req.BloomWeights {
			levels = append(levels, level)
		}
		sort.Strings(levels)
		var b strings.Builder
		for _, level := range levels {
			fmt.Fprintf(&b, "- %s: %.0f%%\n", level, req.BloomWeights[level])
		}
		blooms = strings.TrimRight(b.String(), "\n")
	}
	return fmt.Sprintf(`SYLLABUS MAPPING:
Learning Outcomes (LOs):
%s
Course Outcomes (COs):
%s
Cognitive Weightage (Bloom's):
%s`, formatOutcomeLines(req.LearningOutcomes), formatOutcomeLines(req.CourseOutcomes), blooms)
}

// ExtractGuidelineSections keeps only the reference, format-rule and
// faculty-rule sections of a guideline document, skipping scope and worked
// examples. Falls back to a 1500-char truncation when the section markers
// are absent.
func ExtractGuidelineSections(content string) string {
	if content == "" {
		return ""
	}

	var kept []string
	include := false
	for _, line := range strings.Split(content, "\n") {
		stripped := strings.ToLower(strings.TrimSpace(line))
		if strings.Contains(stripped, "## 2") || strings.Contains(stripped, "co-bloom") ||
			strings.Contains(stripped, "co to bloom") || strings.Contains(stripped, "co reference") {
			include = true
		}
		if strings.Contains(stripped, "## 5") || strings.Contains(stripped, "gold example") {
			break
		}
		if include {
			kept = append(kept, line)
		}
	}

	extracted := strings.TrimSpace(strings.Join(kept, "\n"))
	if len(extracted) < 50 {
		if len(content) > 1500 {
			return content[:1500]
		}
		return content
	}
	return extracted
}

func guidelineContext(content string) string {
	filtered := ExtractGuidelineSections(content)
	if filtered == "" {
		return ""
	}
	return fmt.Sprintf(`
GENERATION GUIDELINES (from faculty training):
%s
Apply these guidelines strictly to avoid previous mistakes and align with faculty expectations.`, filtered)
}

func diversityHint(recent []string) string {
	if len(recent) == 0 {
		return ""
	}
	capped := recent
	if len(capped) > 5 {
		capped = capped[len(capped)-5:]
	}
	var b strings.Builder
	b.WriteString("\nALREADY GENERATED THIS SESSION (produce something clearly different):\n")
	for _, q := range capped {
		if len(q) > 200 {
			q = q[:200]
		}
		fmt.Fprintf(&b, "- %s\n", q)
	}
	return b.String()
}

func materialSection(evidence string) string {
	if evidence == "" {
		return "STUDY MATERIAL: None available. Rely on general academic knowledge aligned with syllabus."
	}
	return "STUDY MATERIAL (PRIMARY SOURCE):\n" + evidence
}

// BuildDraftPrompt produces the initial drafting prompt. attempt is
// 1-based; later attempts escalate pressure toward multi-source synthesis.
func BuildDraftPrompt(req Request, evidence string, attempt int) string {
	escalation := ""
	if attempt > 1 {
		escalation = fmt.Sprintf("\n- This is attempt %d. Previous attempts failed validation. SYNTHESIZE across MULTIPLE chunks of the material and cite at least 2 distinct chunk ids in used_chunks.", attempt)
	}

	return fmt.Sprintf(`You are an expert question paper setter for %s.

%s

%s
%s%s

Generate exactly 1 %s question about "%s".
Difficulty: %s
Cognitive level: %s

RULES:
- Question MUST be derived from the STUDY MATERIAL provided above (if available).
- Align with the Learning Outcomes and Course Outcomes if provided.
- Cite the chunk ids you used in "used_chunks" and include at least one verbatim "supporting_quotes" entry copied from the material.
- Do NOT hallucinate facts not in the material.%s
- Output RAW JSON ONLY. No markdown, no 'Here is the JSON', no wrapping.
- CRITICAL: "question_text" must be a plain text string at the top level of your JSON. Never nest the question inside wrapper objects.

%s`,
		req.Subject,
		materialSection(evidence),
		syllabusContext(req),
		guidelineContext(req.SkillContent),
		diversityHint(req.RecentQuestions),
		req.QuestionType, req.Topic, req.Difficulty, req.BloomLevel,
		escalation,
		formatInstruction(req.QuestionType))
}

// BuildReviewPrompt asks for a structured critique of a draft.
func BuildReviewPrompt(req Request, evidence, draft string) string {
	return fmt.Sprintf(`Review this %s question for "%s".

STUDY MATERIAL: %s
%s
DRAFT: %s

Evaluate: factual accuracy vs material, clarity, difficulty, option quality, alignment with LOs/COs.
OUTPUT JSON format: {"score":<1-10>, "issues":["..."], "improved_version_text": "...", "factually_grounded":<bool>}
RULES:
- "improved_version_text" should be the full text of the improved question (not JSON).
- CRITICAL: "improved_version_text" must be a simple string. Do NOT output a JSON object here.
- Output RAW JSON ONLY.
- NO COMMENTS inside the JSON.
- NO MARKDOWN.`,
		req.QuestionType, req.Topic, evidence, syllabusContext(req), draft)
}

// BuildAlternativePrompt produces the independent second draft prompt.
func BuildAlternativePrompt(req Request, evidence string, attempt int) string {
	escalation := ""
	if attempt > 1 {
		escalation = "\n- SYNTHESIZE across multiple chunks and cite at least 2 chunk ids."
	}
	return fmt.Sprintf(`You are an expert question paper setter for %s.

STUDY MATERIAL CONTEXT:
%s

%s
%s

Generate exactly 1 %s question about "%s".
Difficulty: %s

RULES:
- Question MUST be based on the study material above
- Align with the Learning Outcomes and Course Outcomes if provided
- Cite chunk ids in "used_chunks" and quote the material in "supporting_quotes"
- Do NOT hallucinate facts not in the material%s
- Output RAW JSON ONLY. No markdown, no wrapping.
- CRITICAL: "question_text" must be a plain text string at the top level.
- NO COMMENTS in JSON.

%s`,
		req.Subject, evidence, syllabusContext(req), guidelineContext(req.SkillContent),
		req.QuestionType, req.Topic, req.Difficulty,
		escalation,
		formatInstruction(req.QuestionType))
}

// BuildArbitrationPrompt asks the chairman to pick between drafts.
func BuildArbitrationPrompt(req Request, evidence, draft, review, altDraft string) string {
	return fmt.Sprintf(`You are The Chairman of the Academic Council. Your role is to select the absolute BEST question draft and provide a rigorous pedagogical justification.

STUDY MATERIAL: %s
%s

DRAFT 1 (Primary): %s
REVIEW: %s
DRAFT 2 (Alternative): %s

Your Selection Criteria:
1. FACTUAL ACCURACY: Is the question 100%% grounded in the Study Material?
2. SYLLABUS ALIGNMENT: Does it map perfectly to the provided Course Outcomes (COs) and Learning Outcomes (LOs)?
3. PEDAGOGICAL DEPTH: Is the language clear? Does it match the intended difficulty and Bloom's level?

OUTPUT JSON format: {"selected_question":<question json>,"confidence_score":<1.0-10.0>,"selected_from":"Agent A/Agent C/Combined","action":"accept or regenerate","reasoning":"[PROOF OF ALIGNMENT] Detailed paragraph citing CO and LO codes from the syllabus context and explaining why this question is the most pedagogically sound choice."}

RULES:
- "reasoning" MUST be a detailed, professional paragraph.
- Citation of CO/LO codes is MANDATORY when a syllabus mapping is provided.
- Set "action" to "regenerate" only if NO draft is factually grounded.
- Output RAW JSON ONLY.
- NO COMMENTS inside the JSON.
- NO MARKDOWN.
- CRITICAL: "selected_question" must be a flat JSON object with "question_text" as a direct key. Never double-wrap it.`,
		evidence, syllabusContext(req), draft, review, altDraft)
}

// BuildRepairPrompt asks for a single reformatting pass over broken output.
func BuildRepairPrompt(brokenOutput string) string {
	return fmt.Sprintf(`The following output was supposed to be valid JSON but failed to parse. Re-emit it as RAW valid JSON with "question_text" as a top-level string key. Preserve all content. Do not add commentary or markdown.

BROKEN OUTPUT:
%s`, brokenOutput)
}

// BuildOptionRepairPrompt asks for an MCQ reshaped to the required
// cardinality without changing the correct answer.
func BuildOptionRepairPrompt(payload *QuestionPayload) string {
	return fmt.Sprintf(`This multiple choice question must have exactly %d options, one of which is the correct answer. Fix the options list. Keep the correct answer "%s" unchanged and present. Output RAW JSON only with keys: question_text, options, correct_answer, explanation.

QUESTION: %s
CURRENT OPTIONS: %s
CORRECT ANSWER: %s`,
		RequiredMCQOptions, payload.CorrectAnswer, payload.QuestionText,
		strings.Join(payload.Options, " | "), payload.CorrectAnswer)
}
