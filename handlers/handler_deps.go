package handlers

import (
	"context"
	"io"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"lessonlens/api-gateway/internal/transcription"
	"lessonlens/api-gateway/models"
)

// ReportStore persists analysis reports. Writes converge on a single row per
// report id, so re-running a pipeline step overwrites instead of duplicating.
type ReportStore interface {
	Upsert(report models.Report) (models.Report, error)
	Update(reportID string, fields map[string]interface{}) (models.Report, error)
	Get(reportID string) (models.Report, error)
	ListByTeacher(teacherName string) ([]models.Report, error)
}

// MediaStaging stages lesson recordings so the transcription service can
// fetch them by URL.
type MediaStaging interface {
	CreateUploadURL(path string) (url string, token string, err error)
	Upload(path string, media io.Reader, contentType string) error
	PublicURL(path string) string
}

// Transcriber runs asynchronous speech-to-text jobs with speaker labels.
// Language reports the recognition language submissions use, so downstream
// prompts can name the transcript's language.
type Transcriber interface {
	Submit(ctx context.Context, audioURL string) (transcription.Job, error)
	Get(ctx context.Context, transcriptID string) (transcription.Job, error)
	Language() string
}

// Scorer evaluates a reclassified transcript against the teaching rubric and
// returns the model's free-text evaluation.
type Scorer interface {
	Score(ctx context.Context, utterances []models.Utterance, locale string) (string, error)
}

// ApplicationHandler holds shared dependencies for handlers. Handlers hang
// off it so tests can swap in fakes without global state.
type ApplicationHandler struct {
	Logger      *logrus.Logger
	Store       ReportStore
	Staging     MediaStaging
	Transcriber Transcriber
	Scorer      Scorer
}

var validate = validator.New()

// NewApplicationHandler creates a new ApplicationHandler with the given dependencies.
func NewApplicationHandler(logger *logrus.Logger, store ReportStore, staging MediaStaging, transcriber Transcriber, scorer Scorer) *ApplicationHandler {
	return &ApplicationHandler{
		Logger:      logger,
		Store:       store,
		Staging:     staging,
		Transcriber: transcriber,
		Scorer:      scorer,
	}
}
