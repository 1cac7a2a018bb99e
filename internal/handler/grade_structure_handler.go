package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/classroom-grades-api/internal/models"
	"github.com/noah-isme/classroom-grades-api/internal/service"
	"github.com/noah-isme/classroom-grades-api/pkg/response"
)

type gradeStructureService interface {
	Activate(ctx context.Context, req service.ActivateGradeStructureRequest) (*models.GradeStructure, error)
	GetActive(ctx context.Context, classID string) (*models.GradeStructure, error)
	Get(ctx context.Context, id string) (*models.GradeStructure, error)
	ListByClass(ctx context.Context, classID string) ([]models.GradeStructure, error)
}

// GradeStructureHandler exposes grade structure endpoints.
type GradeStructureHandler struct {
	structures gradeStructureService
}

// NewGradeStructureHandler constructs handler.
func NewGradeStructureHandler(structures gradeStructureService) *GradeStructureHandler {
	return &GradeStructureHandler{structures: structures}
}

// Activate godoc
// @Summary Activate a new grade structure for a class
// @Description Replaces the class's active structure. Category weights must be positive and sum to 100.
// @Tags Grade Structures
// @Accept json
// @Produce json
// @Param classId path string true "Class ID"
// @Param payload body service.ActivateGradeStructureRequest true "Structure payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /classes/{classId}/grade-structures [post]
func (h *GradeStructureHandler) Activate(c *gin.Context) {
	actorID, ok := requireActor(c)
	if !ok {
		return
	}
	var req service.ActivateGradeStructureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	req.ClassID = c.Param("classId")
	req.TeacherID = actorID

	structure, err := h.structures.Activate(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, structure)
}

// Active godoc
// @Summary Get the active grade structure of a class
// @Tags Grade Structures
// @Produce json
// @Param classId path string true "Class ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /classes/{classId}/grade-structures/active [get]
func (h *GradeStructureHandler) Active(c *gin.Context) {
	structure, err := h.structures.GetActive(c.Request.Context(), c.Param("classId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, structure, nil)
}

// List godoc
// @Summary List grade structures of a class, newest first
// @Tags Grade Structures
// @Produce json
// @Param classId path string true "Class ID"
// @Success 200 {object} response.Envelope
// @Router /classes/{classId}/grade-structures [get]
func (h *GradeStructureHandler) List(c *gin.Context) {
	structures, err := h.structures.ListByClass(c.Request.Context(), c.Param("classId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, structures, nil)
}

// Get godoc
// @Summary Get grade structure
// @Tags Grade Structures
// @Produce json
// @Param id path string true "Structure ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /grade-structures/{id} [get]
func (h *GradeStructureHandler) Get(c *gin.Context) {
	structure, err := h.structures.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, structure, nil)
}
