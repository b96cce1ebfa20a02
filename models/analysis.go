package models

// Highlight categories accepted from the evaluation text. Anything else
// leaves the highlight's Type unset and the record is not emitted.
const (
	HighlightConceptUnderstanding = "개념이해"
	HighlightActiveParticipation  = "적극참여"
	HighlightPositiveFeedback     = "긍정피드백"
)

// RubricScore holds the five rubric dimensions, each 0-20. A dimension the
// evaluation text never mentioned stays at its zero value.
type RubricScore struct {
	StudentParticipation int `json:"score_student_participation"`
	ConceptExplanation   int `json:"score_concept_explanation"`
	Feedback             int `json:"score_feedback"`
	Structure            int `json:"score_structure"`
	Interaction          int `json:"score_interaction"`
}

// Total returns the sum of the five dimensions.
func (s RubricScore) Total() int {
	return s.StudentParticipation + s.ConceptExplanation + s.Feedback + s.Structure + s.Interaction
}

// Highlight is one notable teacher/student exchange extracted from the
// evaluation text. Timestamp is a display string ("5:12"), not seconds.
type Highlight struct {
	Timestamp   string `json:"timestamp"`
	TeacherText string `json:"teacherText"`
	StudentText string `json:"studentText"`
	Reason      string `json:"reason"`
	ReasonEn    string `json:"reason_en"`
	Type        string `json:"type"`
}

// HighlightEn is the English-facing projection of a Highlight; the reason
// falls back to the native rationale when no translation was parsed.
type HighlightEn struct {
	Timestamp   string `json:"timestamp"`
	TeacherText string `json:"teacherText"`
	StudentText string `json:"studentText"`
	Reason      string `json:"reason"`
	Type        string `json:"type"`
}

// English projects the highlight for the English report view.
func (h Highlight) English() HighlightEn {
	reason := h.ReasonEn
	if reason == "" {
		reason = h.Reason
	}
	return HighlightEn{
		Timestamp:   h.Timestamp,
		TeacherText: h.TeacherText,
		StudentText: h.StudentText,
		Reason:      reason,
		Type:        h.Type,
	}
}

// AnalysisResult is the typed form of the LLM's free-text evaluation.
type AnalysisResult struct {
	Scores         RubricScore `json:"scores"`
	Strengths      []string    `json:"strengths"`
	StrengthsEn    []string    `json:"strengths_en"`
	Improvements   []string    `json:"improvements"`
	ImprovementsEn []string    `json:"improvements_en"`
	Highlights     []Highlight `json:"highlights"`
}
