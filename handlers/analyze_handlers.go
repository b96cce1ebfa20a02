package handlers

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"lessonlens/api-gateway/internal/analysis"
	"lessonlens/api-gateway/internal/reportstore"
	"lessonlens/api-gateway/internal/transcription"
	"lessonlens/api-gateway/models"
	"lessonlens/api-gateway/utils"
)

// StartAnalysisRequest defines the expected request body for opening a new
// lesson analysis. TeacherName and Filename are required; LessonDate, when
// present, backdates the report to the day the lesson was held.
type StartAnalysisRequest struct {
	TeacherName string `json:"teacher_name" validate:"required"`
	Title       string `json:"title"`
	Filename    string `json:"filename" validate:"required"`
	FileSize    int64  `json:"file_size"`
	LessonDate  string `json:"lesson_date"`
}

// CompleteAnalysisRequest defines the optional body of the completion step.
// TranscriptID lets a caller resume a job whose row predates the durable
// transcript_id column; Locale selects the report's secondary language.
type CompleteAnalysisRequest struct {
	TranscriptID string `json:"transcript_id"`
	Locale       string `json:"locale"`
}

// Media types the transcription service can extract audio from.
var allowedExtensions = map[string]bool{
	".mp4": true, ".mov": true, ".webm": true, ".mkv": true,
	".mp3": true, ".m4a": true, ".wav": true,
}

// StartAnalysis opens a new analysis: it reserves a report row, stages an
// upload destination and hands the caller a signed URL to PUT the lesson
// recording to.
func (h *ApplicationHandler) StartAnalysis(c *fiber.Ctx) error {
	req := new(StartAnalysisRequest)
	if err := c.BodyParser(req); err != nil {
		return utils.RespondWithError(c, fiber.StatusBadRequest, fmt.Sprintf("Cannot parse analysis JSON: %v", err))
	}
	if err := validate.Struct(req); err != nil {
		return utils.RespondWithError(c, fiber.StatusBadRequest, strings.Join(utils.FormatValidationErrors(err), "; "))
	}
	ext := strings.ToLower(filepath.Ext(req.Filename))
	if !allowedExtensions[ext] {
		return utils.RespondWithError(c, fiber.StatusBadRequest, fmt.Sprintf("Unsupported media type %q", ext))
	}

	reportID := uuid.NewString()
	storagePath := fmt.Sprintf("lessons/%s/%s_%s",
		utils.SanitizeFileName(req.TeacherName), reportID, utils.SanitizeFileName(req.Filename))

	uploadURL, uploadToken, err := h.Staging.CreateUploadURL(storagePath)
	if err != nil {
		h.Logger.Errorf("Error creating upload URL for report %s: %v", reportID, err)
		return utils.RespondWithError(c, fiber.StatusInternalServerError, "Could not create upload destination")
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		base := filepath.Base(req.Filename)
		title = strings.TrimSuffix(base, filepath.Ext(base))
	}

	report := models.Report{
		ReportID:       reportID,
		TeacherName:    req.TeacherName,
		Title:          title,
		Filename:       req.Filename,
		FileSize:       req.FileSize,
		Strengths:      []string{},
		StrengthsEn:    []string{},
		Improvements:   []string{},
		ImprovementsEn: []string{},
		Highlights:     []models.Highlight{},
		HighlightsEn:   []models.HighlightEn{},
		Status:         models.StatusAwaitingUpload,
		StoragePath:    &storagePath,
	}
	if req.LessonDate != "" {
		lessonDate, err := time.Parse("2006-01-02", req.LessonDate)
		if err != nil {
			return utils.RespondWithError(c, fiber.StatusBadRequest, fmt.Sprintf("Invalid lesson_date %q, want YYYY-MM-DD", req.LessonDate))
		}
		// Pin to midday so timezone display never shifts the report onto a
		// neighboring day.
		report.CreatedAt = lessonDate.Add(12 * time.Hour)
	}

	stored, err := h.Store.Upsert(report)
	if err != nil {
		h.Logger.Errorf("Error creating report %s: %v", reportID, err)
		return utils.RespondWithError(c, fiber.StatusInternalServerError, "Could not create report")
	}

	stage, progress := progressFor(stored.Status, "")
	h.Logger.Infof("Opened analysis %s for teacher %s", reportID, req.TeacherName)
	return utils.RespondWithJSON(c, fiber.StatusCreated, fiber.Map{
		"report_id":    stored.ReportID,
		"status":       stage,
		"progress":     progress,
		"storage_path": storagePath,
		"upload_url":   uploadURL,
		"upload_token": uploadToken,
	})
}

// UploadMedia receives the lesson recording through the gateway and stages
// it directly, for callers that cannot PUT to the signed URL themselves.
// Accepts a multipart "file" field or a raw request body.
func (h *ApplicationHandler) UploadMedia(c *fiber.Ctx) error {
	reportID := c.Params("reportId")

	report, err := h.Store.Get(reportID)
	if err != nil {
		return h.respondStoreError(c, reportID, err)
	}
	if report.StoragePath == nil || *report.StoragePath == "" {
		return utils.RespondWithError(c, fiber.StatusConflict, "Report has no staging destination")
	}

	media := c.Body()
	contentType := c.Get(fiber.HeaderContentType)
	if file, ferr := c.FormFile("file"); ferr == nil {
		handle, oerr := file.Open()
		if oerr != nil {
			h.Logger.Errorf("Error opening uploaded file for report %s: %v", reportID, oerr)
			return utils.RespondWithError(c, fiber.StatusInternalServerError, "Could not read uploaded file")
		}
		defer handle.Close()
		buf := new(bytes.Buffer)
		if _, rerr := buf.ReadFrom(handle); rerr != nil {
			h.Logger.Errorf("Error reading uploaded file for report %s: %v", reportID, rerr)
			return utils.RespondWithError(c, fiber.StatusInternalServerError, "Could not read uploaded file")
		}
		media = buf.Bytes()
		if cts := file.Header["Content-Type"]; len(cts) > 0 {
			contentType = cts[0]
		}
	}
	if len(media) == 0 {
		return utils.RespondWithError(c, fiber.StatusBadRequest, "No media in request")
	}

	if err := h.Staging.Upload(*report.StoragePath, bytes.NewReader(media), contentType); err != nil {
		h.Logger.Errorf("Error staging media for report %s: %v", reportID, err)
		return utils.RespondWithError(c, fiber.StatusInternalServerError, "Could not stage media")
	}

	updated, err := h.Store.Update(reportID, map[string]interface{}{
		"status":    models.StatusStaged,
		"file_size": int64(len(media)),
	})
	if err != nil {
		return h.respondStoreError(c, reportID, err)
	}

	stage, progress := progressFor(updated.Status, "")
	h.Logger.Infof("Staged %d bytes for report %s", len(media), reportID)
	return utils.RespondWithJSON(c, fiber.StatusOK, fiber.Map{
		"report_id": reportID,
		"status":    stage,
		"progress":  progress,
	})
}

// BeginTranscription submits the staged recording to the speech-to-text
// service. Re-invoking it on a report that already holds a transcript id
// returns that id instead of starting a second job.
func (h *ApplicationHandler) BeginTranscription(c *fiber.Ctx) error {
	reportID := c.Params("reportId")

	report, err := h.Store.Get(reportID)
	if err != nil {
		return h.respondStoreError(c, reportID, err)
	}
	if report.TranscriptID != nil && *report.TranscriptID != "" {
		stage, progress := progressFor(report.Status, "")
		return utils.RespondWithJSON(c, fiber.StatusOK, fiber.Map{
			"report_id":     reportID,
			"transcript_id": *report.TranscriptID,
			"status":        stage,
			"progress":      progress,
		})
	}
	if report.Status != models.StatusStaged {
		return utils.RespondWithError(c, fiber.StatusConflict,
			fmt.Sprintf("Report %s is %s, want %s", reportID, report.Status, models.StatusStaged))
	}

	audioURL := h.Staging.PublicURL(*report.StoragePath)
	job, err := h.Transcriber.Submit(c.UserContext(), audioURL)
	if err != nil {
		h.Logger.Errorf("Error submitting transcription for report %s: %v", reportID, err)
		h.markFailed(reportID, fmt.Sprintf("transcription submit: %v", err))
		return utils.RespondWithError(c, fiber.StatusBadGateway, "Transcription service unavailable")
	}

	updated, err := h.Store.Update(reportID, map[string]interface{}{
		"status":        models.StatusTranscribing,
		"transcript_id": job.ID,
	})
	if err != nil {
		return h.respondStoreError(c, reportID, err)
	}

	stage, progress := progressFor(updated.Status, job.Status)
	h.Logger.Infof("Transcription %s started for report %s", job.ID, reportID)
	return utils.RespondWithJSON(c, fiber.StatusAccepted, fiber.Map{
		"report_id":     reportID,
		"transcript_id": job.ID,
		"status":        stage,
		"progress":      progress,
	})
}

// GetAnalysisStatus reports the pipeline stage and a monotonic progress
// percentage. While the row is transcribing it consults the live job; a
// remote job failure moves the row to failed, anything else leaves the row
// untouched.
func (h *ApplicationHandler) GetAnalysisStatus(c *fiber.Ctx) error {
	reportID := c.Params("reportId")

	report, err := h.Store.Get(reportID)
	if err != nil {
		return h.respondStoreError(c, reportID, err)
	}

	remote := ""
	if report.Status == models.StatusTranscribing && report.TranscriptID != nil && *report.TranscriptID != "" {
		job, jerr := h.Transcriber.Get(c.UserContext(), *report.TranscriptID)
		if jerr != nil {
			h.Logger.Warnf("Error polling transcription %s for report %s: %v", *report.TranscriptID, reportID, jerr)
			return utils.RespondWithError(c, fiber.StatusBadGateway, "Transcription service unavailable")
		}
		if job.Status == transcription.StatusError {
			h.markFailed(reportID, fmt.Sprintf("transcription failed: %s", job.Error))
			return utils.RespondWithJSON(c, fiber.StatusOK, fiber.Map{
				"report_id":     reportID,
				"status":        models.StatusFailed,
				"progress":      0,
				"error_message": job.Error,
			})
		}
		remote = job.Status
	}

	stage, progress := progressFor(report.Status, remote)
	payload := fiber.Map{
		"report_id": reportID,
		"status":    stage,
		"progress":  progress,
	}
	if report.TranscriptID != nil && *report.TranscriptID != "" {
		payload["transcript_id"] = *report.TranscriptID
	}
	if report.Status == models.StatusFailed && report.ErrorMessage != nil {
		payload["error_message"] = *report.ErrorMessage
	}
	return utils.RespondWithJSON(c, fiber.StatusOK, payload)
}

// CompleteAnalysis fetches the finished transcript, reclassifies speaker
// roles, asks the rubric model for an evaluation, parses it and upserts the
// finished report. The write is keyed by report id, so running it again
// replaces the previous result instead of adding a second one.
func (h *ApplicationHandler) CompleteAnalysis(c *fiber.Ctx) error {
	reportID := c.Params("reportId")

	req := new(CompleteAnalysisRequest)
	if len(c.Body()) > 0 {
		if err := c.BodyParser(req); err != nil {
			return utils.RespondWithError(c, fiber.StatusBadRequest, fmt.Sprintf("Cannot parse completion JSON: %v", err))
		}
	}

	report, err := h.Store.Get(reportID)
	if err != nil {
		return h.respondStoreError(c, reportID, err)
	}

	transcriptID := req.TranscriptID
	if transcriptID == "" && report.TranscriptID != nil {
		transcriptID = *report.TranscriptID
	}
	if transcriptID == "" {
		return utils.RespondWithError(c, fiber.StatusConflict, "Report has no transcription job")
	}

	job, err := h.Transcriber.Get(c.UserContext(), transcriptID)
	if err != nil {
		h.Logger.Errorf("Error fetching transcription %s for report %s: %v", transcriptID, reportID, err)
		if report.Status != models.StatusCompleted {
			h.markFailed(reportID, fmt.Sprintf("transcription fetch: %v", err))
		}
		return utils.RespondWithError(c, fiber.StatusBadGateway, "Transcription service unavailable")
	}
	switch job.Status {
	case transcription.StatusCompleted:
	case transcription.StatusError:
		if report.Status != models.StatusCompleted {
			h.markFailed(reportID, fmt.Sprintf("transcription failed: %s", job.Error))
		}
		return utils.RespondWithError(c, fiber.StatusBadGateway, fmt.Sprintf("Transcription failed: %s", job.Error))
	default:
		return utils.RespondWithError(c, fiber.StatusConflict,
			fmt.Sprintf("Transcription %s is %s, not completed yet", transcriptID, job.Status))
	}

	// A re-completion of a finished report must not disturb the stored row
	// until the replacement result is ready, so the intermediate scoring
	// status is only written on rows that have not completed yet.
	if report.Status != models.StatusCompleted {
		if _, err := h.Store.Update(reportID, map[string]interface{}{
			"status":        models.StatusScoring,
			"transcript_id": transcriptID,
		}); err != nil {
			return h.respondStoreError(c, reportID, err)
		}
	}

	utterances := analysis.Reclassify(job.Utterances)

	locale := req.Locale
	if locale == "" {
		locale = h.Transcriber.Language()
	}

	raw, err := h.Scorer.Score(c.UserContext(), utterances, locale)
	if err != nil {
		h.Logger.Errorf("Error scoring report %s: %v", reportID, err)
		if report.Status != models.StatusCompleted {
			h.markFailed(reportID, fmt.Sprintf("scoring: %v", err))
		}
		return utils.RespondWithError(c, fiber.StatusBadGateway, "Scoring service unavailable")
	}

	result := analysis.Parse(raw)

	report.ScoreStudentParticipation = result.Scores.StudentParticipation
	report.ScoreConceptExplanation = result.Scores.ConceptExplanation
	report.ScoreFeedback = result.Scores.Feedback
	report.ScoreStructure = result.Scores.Structure
	report.ScoreInteraction = result.Scores.Interaction
	report.TotalScore = result.Scores.Total()
	report.Strengths = result.Strengths
	report.StrengthsEn = result.StrengthsEn
	report.Improvements = result.Improvements
	report.ImprovementsEn = result.ImprovementsEn
	report.Highlights = result.Highlights
	report.HighlightsEn = make([]models.HighlightEn, 0, len(result.Highlights))
	for _, highlight := range result.Highlights {
		report.HighlightsEn = append(report.HighlightsEn, highlight.English())
	}
	report.Status = models.StatusCompleted
	report.TranscriptID = &transcriptID
	report.ErrorMessage = nil
	if duration, ok := analysis.EstimateDuration(utterances); ok {
		report.VideoDuration = &duration
	}

	stored, err := h.Store.Upsert(report)
	if err != nil {
		h.Logger.Errorf("Error storing report %s: %v", reportID, err)
		return utils.RespondWithError(c, fiber.StatusInternalServerError, "Could not store report")
	}

	h.Logger.Infof("Completed analysis %s with total score %d", reportID, stored.TotalScore)
	return utils.RespondWithJSON(c, fiber.StatusOK, stored)
}

// markFailed moves a report to failed unless it already completed; a late
// failure never downgrades a finished report.
func (h *ApplicationHandler) markFailed(reportID, message string) {
	report, err := h.Store.Get(reportID)
	if err == nil && report.Status == models.StatusCompleted {
		return
	}
	if _, err := h.Store.Update(reportID, map[string]interface{}{
		"status":        models.StatusFailed,
		"error_message": message,
	}); err != nil {
		h.Logger.Errorf("Error marking report %s failed: %v", reportID, err)
	}
}

func (h *ApplicationHandler) respondStoreError(c *fiber.Ctx, reportID string, err error) error {
	if errors.Is(err, reportstore.ErrNotFound) {
		return utils.RespondWithError(c, fiber.StatusNotFound, fmt.Sprintf("Report %s not found", reportID))
	}
	h.Logger.Errorf("Store error for report %s: %v", reportID, err)
	return utils.RespondWithError(c, fiber.StatusInternalServerError, "Could not access report store")
}
