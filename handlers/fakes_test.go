package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"lessonlens/api-gateway/internal/reportstore"
	"lessonlens/api-gateway/internal/transcription"
	"lessonlens/api-gateway/models"
)

type fakeStore struct {
	mu      sync.Mutex
	reports map[string]models.Report
	upserts int
}

func newFakeStore() *fakeStore {
	return &fakeStore{reports: make(map[string]models.Report)}
}

func (s *fakeStore) Upsert(report models.Report) (models.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	report.UpdatedAt = time.Now().UTC()
	if report.CreatedAt.IsZero() {
		report.CreatedAt = report.UpdatedAt
	}
	s.reports[report.ReportID] = report
	s.upserts++
	return report, nil
}

func (s *fakeStore) Update(reportID string, fields map[string]interface{}) (models.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	report, ok := s.reports[reportID]
	if !ok {
		return models.Report{}, fmt.Errorf("report %s: %w", reportID, reportstore.ErrNotFound)
	}
	for key, value := range fields {
		switch key {
		case "status":
			report.Status = value.(string)
		case "title":
			report.Title = value.(string)
		case "file_size":
			report.FileSize = value.(int64)
		case "transcript_id":
			id := value.(string)
			report.TranscriptID = &id
		case "error_message":
			msg := value.(string)
			report.ErrorMessage = &msg
		}
	}
	report.UpdatedAt = time.Now().UTC()
	s.reports[reportID] = report
	return report, nil
}

func (s *fakeStore) Get(reportID string) (models.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	report, ok := s.reports[reportID]
	if !ok {
		return models.Report{}, fmt.Errorf("report %s: %w", reportID, reportstore.ErrNotFound)
	}
	return report, nil
}

func (s *fakeStore) ListByTeacher(teacherName string) ([]models.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	reports := []models.Report{}
	for _, report := range s.reports {
		if report.TeacherName == teacherName {
			reports = append(reports, report)
		}
	}
	sort.Slice(reports, func(i, j int) bool {
		return reports[i].CreatedAt.After(reports[j].CreatedAt)
	})
	return reports, nil
}

func (s *fakeStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.reports)
}

type fakeStaging struct {
	mu       sync.Mutex
	uploaded map[string][]byte
}

func newFakeStaging() *fakeStaging {
	return &fakeStaging{uploaded: make(map[string][]byte)}
}

func (f *fakeStaging) CreateUploadURL(path string) (string, string, error) {
	return "https://blob.test/sign/" + path + "?token=tok123", "tok123", nil
}

func (f *fakeStaging) Upload(path string, media io.Reader, contentType string) error {
	data, err := io.ReadAll(media)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploaded[path] = data
	return nil
}

func (f *fakeStaging) PublicURL(path string) string {
	return "https://blob.test/public/" + path
}

type fakeTranscriber struct {
	mu        sync.Mutex
	jobs      map[string]transcription.Job
	submitErr error
	getErr    error
	submits   int
}

func newFakeTranscriber() *fakeTranscriber {
	return &fakeTranscriber{jobs: make(map[string]transcription.Job)}
}

func (f *fakeTranscriber) Submit(ctx context.Context, audioURL string) (transcription.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.submitErr != nil {
		return transcription.Job{}, f.submitErr
	}
	f.submits++
	job := transcription.Job{ID: fmt.Sprintf("tr_%d", f.submits), Status: transcription.StatusQueued}
	f.jobs[job.ID] = job
	return job, nil
}

func (f *fakeTranscriber) Get(ctx context.Context, transcriptID string) (transcription.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return transcription.Job{}, f.getErr
	}
	job, ok := f.jobs[transcriptID]
	if !ok {
		return transcription.Job{}, transcription.ErrUnavailable
	}
	return job, nil
}

func (f *fakeTranscriber) Language() string {
	return "en"
}

func (f *fakeTranscriber) setJob(job transcription.Job) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.jobs[job.ID] = job
}

type fakeScorer struct {
	mu         sync.Mutex
	response   string
	err        error
	calls      int
	lastSeen   []models.Utterance
	lastLocale string
}

func (f *fakeScorer) Score(ctx context.Context, utterances []models.Utterance, locale string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.lastSeen = utterances
	f.lastLocale = locale
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

func newTestApp(store ReportStore, staging MediaStaging, transcriber Transcriber, scorer Scorer) *fiber.App {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	h := NewApplicationHandler(logger, store, staging, transcriber, scorer)

	app := fiber.New()
	api := app.Group("/api/v1")
	api.Post("/analyses", h.StartAnalysis)
	api.Post("/analyses/:reportId/upload", h.UploadMedia)
	api.Post("/analyses/:reportId/transcribe", h.BeginTranscription)
	api.Get("/analyses/:reportId/status", h.GetAnalysisStatus)
	api.Post("/analyses/:reportId/complete", h.CompleteAnalysis)
	api.Get("/reports/:reportId", h.GetReport)
	api.Get("/teachers/:teacherName/reports", h.ListTeacherReports)
	api.Patch("/reports/:reportId/title", h.UpdateReportTitle)
	return app
}

type envelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func doJSON(t *testing.T, app *fiber.App, method, target string, payload any) (*http.Response, envelope) {
	t.Helper()
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal request: %v", err)
		}
		body = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, target, body)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", method, target, err)
	}
	defer resp.Body.Close()
	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		t.Fatalf("%s %s: decode envelope: %v", method, target, err)
	}
	return resp, env
}

func decodeData(t *testing.T, env envelope, out any) {
	t.Helper()
	if err := json.Unmarshal(env.Data, out); err != nil {
		t.Fatalf("decode data %s: %v", env.Data, err)
	}
}
