package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/classroom-grades-api/internal/middleware"
	"github.com/noah-isme/classroom-grades-api/internal/models"
	"github.com/noah-isme/classroom-grades-api/internal/service"
	"github.com/noah-isme/classroom-grades-api/pkg/response"
)

type gradeSummaryService interface {
	Summarize(ctx context.Context, classID, studentID string) (*models.StudentGradeSummary, error)
	Gradebook(ctx context.Context, classID string) (*models.ClassGradebook, error)
	Export(ctx context.Context, classID, format string) (*service.ExportFile, error)
}

// GradeSummaryHandler serves computed grades. Nothing here is persisted.
type GradeSummaryHandler struct {
	summaries gradeSummaryService
}

// NewGradeSummaryHandler constructs handler.
func NewGradeSummaryHandler(summaries gradeSummaryService) *GradeSummaryHandler {
	return &GradeSummaryHandler{summaries: summaries}
}

// StudentSummary godoc
// @Summary Compute a student's weighted grade in a class
// @Tags Grade Summaries
// @Produce json
// @Param classId path string true "Class ID"
// @Param studentId path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /classes/{classId}/students/{studentId}/grade-summary [get]
func (h *GradeSummaryHandler) StudentSummary(c *gin.Context) {
	summary, err := h.summaries.Summarize(c.Request.Context(), c.Param("classId"), c.Param("studentId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil, middleware.ExtractMeta(c))
}

// Gradebook godoc
// @Summary Compute the grades of every student enrolled in a class
// @Tags Grade Summaries
// @Produce json
// @Param classId path string true "Class ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /classes/{classId}/gradebook [get]
func (h *GradeSummaryHandler) Gradebook(c *gin.Context) {
	gradebook, err := h.summaries.Gradebook(c.Request.Context(), c.Param("classId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetMeta(c, "students", len(gradebook.Students))
	response.JSON(c, http.StatusOK, gradebook, nil, middleware.ExtractMeta(c))
}

// Export godoc
// @Summary Download the class gradebook
// @Tags Grade Summaries
// @Produce text/csv
// @Produce application/pdf
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param classId path string true "Class ID"
// @Param format query string false "csv, xlsx or pdf" default(csv)
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /classes/{classId}/gradebook/export [get]
func (h *GradeSummaryHandler) Export(c *gin.Context) {
	file, err := h.summaries.Export(c.Request.Context(), c.Param("classId"), c.Query("format"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Body)
}
