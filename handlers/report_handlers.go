package handlers

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/gofiber/fiber/v2"

	"lessonlens/api-gateway/utils"
)

// UpdateReportTitleRequest defines the body for renaming a report.
type UpdateReportTitleRequest struct {
	Title string `json:"title" validate:"required"`
}

// GetReport returns a single stored report with scores, feedback lists and
// highlights in both languages.
func (h *ApplicationHandler) GetReport(c *fiber.Ctx) error {
	reportID := c.Params("reportId")

	report, err := h.Store.Get(reportID)
	if err != nil {
		return h.respondStoreError(c, reportID, err)
	}
	return utils.RespondWithJSON(c, fiber.StatusOK, report)
}

// ListTeacherReports returns all reports for a teacher, newest first.
func (h *ApplicationHandler) ListTeacherReports(c *fiber.Ctx) error {
	teacherName, err := decodeParam(c, "teacherName")
	if err != nil {
		return utils.RespondWithError(c, fiber.StatusBadRequest, "Invalid teacher name")
	}

	reports, err := h.Store.ListByTeacher(teacherName)
	if err != nil {
		h.Logger.Errorf("Error listing reports for teacher %s: %v", teacherName, err)
		return utils.RespondWithError(c, fiber.StatusInternalServerError, "Could not list reports")
	}

	return utils.RespondWithJSON(c, fiber.StatusOK, fiber.Map{
		"teacher_name": teacherName,
		"count":        len(reports),
		"reports":      reports,
	})
}

// UpdateReportTitle renames a report without touching the analysis payload.
func (h *ApplicationHandler) UpdateReportTitle(c *fiber.Ctx) error {
	reportID := c.Params("reportId")

	req := new(UpdateReportTitleRequest)
	if err := c.BodyParser(req); err != nil {
		return utils.RespondWithError(c, fiber.StatusBadRequest, fmt.Sprintf("Cannot parse title JSON: %v", err))
	}
	req.Title = strings.TrimSpace(req.Title)
	if err := validate.Struct(req); err != nil {
		return utils.RespondWithError(c, fiber.StatusBadRequest, strings.Join(utils.FormatValidationErrors(err), "; "))
	}

	updated, err := h.Store.Update(reportID, map[string]interface{}{"title": req.Title})
	if err != nil {
		return h.respondStoreError(c, reportID, err)
	}

	h.Logger.Infof("Renamed report %s", reportID)
	return utils.RespondWithJSON(c, fiber.StatusOK, updated)
}

// Teacher names may carry spaces and Hangul, so the path segment arrives
// percent-encoded.
func decodeParam(c *fiber.Ctx, name string) (string, error) {
	return url.PathUnescape(c.Params(name))
}
