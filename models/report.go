package models

import "time"

// Report statuses persisted on the reports row. They double as the
// orchestrator's state machine: steps may be served by different process
// instances, so the current state lives here and never only in memory.
const (
	StatusAwaitingUpload = "awaiting_upload"
	StatusStaged         = "staged"
	StatusTranscribing   = "transcribing"
	StatusScoring        = "scoring"
	StatusCompleted      = "completed"
	StatusFailed         = "failed"
)

// Report represents a row of the reports table. Writes are upserts keyed by
// report_id, so re-submitting a completion overwrites instead of duplicating.
type Report struct {
	ReportID                  string        `json:"report_id"`
	TeacherName               string        `json:"teacher_name"`
	Title                     string        `json:"title"`
	Filename                  string        `json:"filename"`
	FileSize                  int64         `json:"file_size"`
	VideoDuration             *string       `json:"video_duration,omitempty"` // "M:SS", estimated from the transcript
	ScoreStudentParticipation int           `json:"score_student_participation"`
	ScoreConceptExplanation   int           `json:"score_concept_explanation"`
	ScoreFeedback             int           `json:"score_feedback"`
	ScoreStructure            int           `json:"score_structure"`
	ScoreInteraction          int           `json:"score_interaction"`
	TotalScore                int           `json:"total_score"`
	Strengths                 []string      `json:"strengths"`
	StrengthsEn               []string      `json:"strengths_en"`
	Improvements              []string      `json:"improvements"`
	ImprovementsEn            []string      `json:"improvements_en"`
	Highlights                []Highlight   `json:"highlights"`
	HighlightsEn              []HighlightEn `json:"highlights_en"`
	Status                    string        `json:"status"`
	StoragePath               *string       `json:"storage_path,omitempty"`
	TranscriptID              *string       `json:"transcript_id,omitempty"` // transcription job handle, kept durable for resumability
	ErrorMessage              *string       `json:"error_message,omitempty"`
	CreatedAt                 time.Time     `json:"created_at"`
	UpdatedAt                 time.Time     `json:"updated_at"`
}
