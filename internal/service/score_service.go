package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/classroom-grades-api/internal/models"
	appErrors "github.com/noah-isme/classroom-grades-api/pkg/errors"
	"github.com/noah-isme/classroom-grades-api/pkg/events"
)

type scoreWriter interface {
	Upsert(ctx context.Context, score *models.RecordedScore) error
	ListByAssignment(ctx context.Context, assignmentID string) ([]models.RecordedScore, error)
}

type assignmentFinder interface {
	FindByID(ctx context.Context, id string) (*models.Assignment, error)
}

type studentFinder interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
}

type summaryEvictor interface {
	Delete(ctx context.Context, keys ...string) error
}

// RecordScoreRequest grades one student on one assignment. MaxPoints and CategoryID default to the assignment's.
type RecordScoreRequest struct {
	StudentID  string   `json:"student_id" validate:"required"`
	Points     *float64 `json:"points" validate:"required,gte=0"`
	MaxPoints  *float64 `json:"max_points" validate:"omitempty,gt=0"`
	CategoryID *string  `json:"category_id" validate:"omitempty,min=1"`
	Feedback   *string  `json:"feedback" validate:"omitempty,max=2000"`
}

// ScoreService records scores, keeping one score per assignment and student.
type ScoreService struct {
	scores      scoreWriter
	assignments assignmentFinder
	students    studentFinder
	cache       summaryEvictor
	events      eventSink
	metrics     *MetricsService
	validator   *validator.Validate
	logger      *zap.Logger
}

func NewScoreService(scores scoreWriter, assignments assignmentFinder, students studentFinder, cache summaryEvictor, sink eventSink, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *ScoreService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScoreService{
		scores:      scores,
		assignments: assignments,
		students:    students,
		cache:       cache,
		events:      sink,
		metrics:     metrics,
		validator:   validate,
		logger:      logger,
	}
}

// Record inserts the score or replaces the previous one for the same assignment and student.
func (s *ScoreService) Record(ctx context.Context, assignmentID, graderID string, req RecordScoreRequest) (*models.RecordedScore, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid score payload")
	}

	assignment, err := s.findAssignment(ctx, assignmentID)
	if err != nil {
		return nil, err
	}

	if _, err := s.students.FindByID(ctx, req.StudentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrStudentNotFound, "")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	maxPoints := assignment.MaxPoints
	if req.MaxPoints != nil {
		maxPoints = *req.MaxPoints
	}
	categoryID := assignment.CategoryID
	if req.CategoryID != nil {
		categoryID = req.CategoryID
	}
	points := *req.Points
	if points < 0 || points > maxPoints {
		return nil, appErrors.Clone(appErrors.ErrScoreOutOfRange, fmt.Sprintf("points must be between 0 and %g", maxPoints))
	}

	score := &models.RecordedScore{
		AssignmentID: assignment.ID,
		StudentID:    req.StudentID,
		CategoryID:   categoryID,
		Points:       points,
		MaxPoints:    maxPoints,
		Feedback:     req.Feedback,
		GradedBy:     graderID,
	}
	if err := s.scores.Upsert(ctx, score); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record score")
	}
	s.metrics.RecordScore()

	if s.cache != nil {
		_ = s.cache.Delete(ctx, summaryCacheKey(assignment.ClassID, score.StudentID))
	}
	s.publishRecorded(ctx, assignment.ClassID, score)

	return score, nil
}

// ListByAssignment returns the scores recorded on an assignment.
func (s *ScoreService) ListByAssignment(ctx context.Context, assignmentID string) ([]models.RecordedScore, error) {
	if _, err := s.findAssignment(ctx, assignmentID); err != nil {
		return nil, err
	}
	scores, err := s.scores.ListByAssignment(ctx, assignmentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list scores")
	}
	if scores == nil {
		scores = []models.RecordedScore{}
	}
	return scores, nil
}

func (s *ScoreService) findAssignment(ctx context.Context, id string) (*models.Assignment, error) {
	assignment, err := s.assignments.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assignment")
	}
	return assignment, nil
}

func (s *ScoreService) publishRecorded(ctx context.Context, classID string, score *models.RecordedScore) {
	if s.events == nil {
		return
	}
	event, err := events.New(events.TypeScoreRecorded, classID, events.ScoreRecorded{
		ScoreID:      score.ID,
		AssignmentID: score.AssignmentID,
		StudentID:    score.StudentID,
		Points:       score.Points,
		MaxPoints:    score.MaxPoints,
		GradedBy:     score.GradedBy,
	})
	if err != nil {
		s.logger.Warn("failed to build score event", zap.Error(err))
		return
	}
	s.events.Dispatch(ctx, event)
}
