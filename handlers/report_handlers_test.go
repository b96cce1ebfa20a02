package handlers

import (
	"net/http"
	"testing"
	"time"

	"lessonlens/api-gateway/models"
)

func TestGetReportNotFound(t *testing.T) {
	app := newTestApp(newFakeStore(), newFakeStaging(), newFakeTranscriber(), &fakeScorer{})
	resp, env := doJSON(t, app, http.MethodGet, "/api/v1/reports/missing", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if env.Status != "error" {
		t.Errorf("envelope status = %q", env.Status)
	}
}

func TestListTeacherReportsNewestFirst(t *testing.T) {
	store := newFakeStore()
	app := newTestApp(store, newFakeStaging(), newFakeTranscriber(), &fakeScorer{})

	older := time.Now().UTC().Add(-48 * time.Hour)
	_, _ = store.Upsert(models.Report{ReportID: "r1", TeacherName: "김민지", Title: "first", CreatedAt: older})
	_, _ = store.Upsert(models.Report{ReportID: "r2", TeacherName: "김민지", Title: "second"})
	_, _ = store.Upsert(models.Report{ReportID: "r3", TeacherName: "other", Title: "elsewhere"})

	resp, env := doJSON(t, app, http.MethodGet, "/api/v1/teachers/%EA%B9%80%EB%AF%BC%EC%A7%80/reports", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var payload struct {
		TeacherName string          `json:"teacher_name"`
		Count       int             `json:"count"`
		Reports     []models.Report `json:"reports"`
	}
	decodeData(t, env, &payload)
	if payload.TeacherName != "김민지" || payload.Count != 2 {
		t.Fatalf("payload = %+v", payload)
	}
	if payload.Reports[0].ReportID != "r2" || payload.Reports[1].ReportID != "r1" {
		t.Errorf("order = %s, %s", payload.Reports[0].ReportID, payload.Reports[1].ReportID)
	}
}

func TestListTeacherReportsEmpty(t *testing.T) {
	app := newTestApp(newFakeStore(), newFakeStaging(), newFakeTranscriber(), &fakeScorer{})
	resp, env := doJSON(t, app, http.MethodGet, "/api/v1/teachers/nobody/reports", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var payload struct {
		Count   int             `json:"count"`
		Reports []models.Report `json:"reports"`
	}
	decodeData(t, env, &payload)
	if payload.Count != 0 || payload.Reports == nil {
		t.Errorf("payload = %+v", payload)
	}
}

func TestUpdateReportTitle(t *testing.T) {
	store := newFakeStore()
	app := newTestApp(store, newFakeStaging(), newFakeTranscriber(), &fakeScorer{})
	_, _ = store.Upsert(models.Report{ReportID: "r1", TeacherName: "t", Title: "before", Status: models.StatusCompleted})

	resp, env := doJSON(t, app, http.MethodPatch, "/api/v1/reports/r1/title", map[string]any{"title": "after"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, message %q", resp.StatusCode, env.Message)
	}
	var report models.Report
	decodeData(t, env, &report)
	if report.Title != "after" {
		t.Errorf("title = %q", report.Title)
	}
	if report.Status != models.StatusCompleted {
		t.Errorf("rename changed status to %s", report.Status)
	}
}

func TestUpdateReportTitleRejectsBlank(t *testing.T) {
	store := newFakeStore()
	app := newTestApp(store, newFakeStaging(), newFakeTranscriber(), &fakeScorer{})
	_, _ = store.Upsert(models.Report{ReportID: "r1", Title: "before"})

	resp, _ := doJSON(t, app, http.MethodPatch, "/api/v1/reports/r1/title", map[string]any{"title": "   "})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	report, _ := store.Get("r1")
	if report.Title != "before" {
		t.Errorf("title = %q", report.Title)
	}
}
