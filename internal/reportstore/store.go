package reportstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/supabase-community/postgrest-go"
	supa "github.com/supabase-community/supabase-go"

	"lessonlens/api-gateway/models"
)

const reportsTable = "reports"

// ErrNotFound is returned when no report row matches the requested id.
var ErrNotFound = errors.New("report not found")

// Store persists analysis reports in the reports table through PostgREST.
// All writes are keyed by report_id so repeated pipeline steps converge on a
// single row instead of accumulating duplicates.
type Store struct {
	supabase *supa.Client
}

// NewStore wraps an initialized Supabase client.
func NewStore(supabase *supa.Client) *Store {
	return &Store{supabase: supabase}
}

// Upsert writes the full report row, replacing any existing row with the
// same report_id, and returns the stored representation.
func (s *Store) Upsert(report models.Report) (models.Report, error) {
	report.UpdatedAt = time.Now().UTC()
	if report.CreatedAt.IsZero() {
		report.CreatedAt = report.UpdatedAt
	}

	body, _, err := s.supabase.From(reportsTable).
		Insert(report, true, "report_id", "representation", "").
		Execute()
	if err != nil {
		return models.Report{}, fmt.Errorf("upsert report %s: %w", report.ReportID, err)
	}
	return firstReport(body, report.ReportID)
}

// Update patches the named columns on an existing row and returns the
// updated representation. Missing rows surface as ErrNotFound.
func (s *Store) Update(reportID string, fields map[string]interface{}) (models.Report, error) {
	patch := make(map[string]interface{}, len(fields)+1)
	for k, v := range fields {
		patch[k] = v
	}
	patch["updated_at"] = time.Now().UTC()

	body, _, err := s.supabase.From(reportsTable).
		Update(patch, "representation", "").
		Eq("report_id", reportID).
		Execute()
	if err != nil {
		return models.Report{}, fmt.Errorf("update report %s: %w", reportID, err)
	}
	return firstReport(body, reportID)
}

// Get fetches a single report by its id.
func (s *Store) Get(reportID string) (models.Report, error) {
	body, _, err := s.supabase.From(reportsTable).
		Select("*", "", false).
		Eq("report_id", reportID).
		Execute()
	if err != nil {
		return models.Report{}, fmt.Errorf("get report %s: %w", reportID, err)
	}
	return firstReport(body, reportID)
}

// ListByTeacher returns all reports for a teacher, newest first.
func (s *Store) ListByTeacher(teacherName string) ([]models.Report, error) {
	body, _, err := s.supabase.From(reportsTable).
		Select("*", "", false).
		Eq("teacher_name", teacherName).
		Order("created_at", &postgrest.OrderOpts{Ascending: false}).
		Execute()
	if err != nil {
		return nil, fmt.Errorf("list reports for %s: %w", teacherName, err)
	}

	var reports []models.Report
	if err := json.Unmarshal(body, &reports); err != nil {
		return nil, fmt.Errorf("decode reports for %s: %w", teacherName, err)
	}
	if reports == nil {
		reports = []models.Report{}
	}
	return reports, nil
}

func firstReport(body []byte, reportID string) (models.Report, error) {
	var reports []models.Report
	if err := json.Unmarshal(body, &reports); err != nil {
		return models.Report{}, fmt.Errorf("decode report %s: %w", reportID, err)
	}
	if len(reports) == 0 {
		return models.Report{}, fmt.Errorf("report %s: %w", reportID, ErrNotFound)
	}
	return reports[0], nil
}
