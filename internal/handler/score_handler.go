package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/classroom-grades-api/internal/models"
	"github.com/noah-isme/classroom-grades-api/internal/service"
	"github.com/noah-isme/classroom-grades-api/pkg/response"
)

type scoreService interface {
	Record(ctx context.Context, assignmentID, graderID string, req service.RecordScoreRequest) (*models.RecordedScore, error)
	ListByAssignment(ctx context.Context, assignmentID string) ([]models.RecordedScore, error)
}

// ScoreHandler exposes score recording endpoints.
type ScoreHandler struct {
	scores scoreService
}

// NewScoreHandler constructs handler.
func NewScoreHandler(scores scoreService) *ScoreHandler {
	return &ScoreHandler{scores: scores}
}

// Record godoc
// @Summary Record or replace a student's score on an assignment
// @Tags Scores
// @Accept json
// @Produce json
// @Param assignmentId path string true "Assignment ID"
// @Param payload body service.RecordScoreRequest true "Score payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /assignments/{assignmentId}/scores [put]
func (h *ScoreHandler) Record(c *gin.Context) {
	actorID, ok := requireActor(c)
	if !ok {
		return
	}
	var req service.RecordScoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}

	score, err := h.scores.Record(c.Request.Context(), c.Param("assignmentId"), actorID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, score, nil)
}

// List godoc
// @Summary List scores recorded for an assignment
// @Tags Scores
// @Produce json
// @Param assignmentId path string true "Assignment ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /assignments/{assignmentId}/scores [get]
func (h *ScoreHandler) List(c *gin.Context) {
	scores, err := h.scores.ListByAssignment(c.Request.Context(), c.Param("assignmentId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, scores, nil)
}
