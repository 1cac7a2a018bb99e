package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/classroom-grades-api/internal/grading"
	"github.com/noah-isme/classroom-grades-api/internal/models"
	"github.com/noah-isme/classroom-grades-api/internal/repository"
	"github.com/noah-isme/classroom-grades-api/pkg/config"
	appErrors "github.com/noah-isme/classroom-grades-api/pkg/errors"
	"github.com/noah-isme/classroom-grades-api/pkg/events"
)

type gradeStructureReader interface {
	FindActiveByClass(ctx context.Context, classID string) (*models.GradeStructure, error)
	FindByID(ctx context.Context, id string) (*models.GradeStructure, error)
	ListByClass(ctx context.Context, classID string) ([]models.GradeStructure, error)
}

type gradeStructureWriter interface {
	DeactivateByClass(ctx context.Context, classID string) (int64, error)
	Create(ctx context.Context, structure *models.GradeStructure) error
}

type classFinder interface {
	FindByID(ctx context.Context, id string) (*models.Class, error)
}

type summaryInvalidator interface {
	Invalidate(ctx context.Context, pattern string) error
}

type eventSink interface {
	Dispatch(ctx context.Context, event events.Event)
}

// ActivationBoundary runs the deactivate-previous then insert-active sequence for one class.
type ActivationBoundary interface {
	Activate(ctx context.Context, structure *models.GradeStructure) error
}

// DirectBoundary issues the two writes with no coordination. Concurrent activations for the
// same class can interleave; the partial unique index turns the losing insert into a conflict.
type DirectBoundary struct {
	writer gradeStructureWriter
}

func NewDirectBoundary(writer gradeStructureWriter) *DirectBoundary {
	return &DirectBoundary{writer: writer}
}

func (b *DirectBoundary) Activate(ctx context.Context, structure *models.GradeStructure) error {
	if _, err := b.writer.DeactivateByClass(ctx, structure.ClassID); err != nil {
		return err
	}
	structure.IsActive = true
	return b.writer.Create(ctx, structure)
}

// ClassLockBoundary serialises activations per class within this process.
type ClassLockBoundary struct {
	next  ActivationBoundary
	mu    sync.Mutex
	locks map[string]*classLock
}

type classLock struct {
	sync.Mutex
	refs int
}

func NewClassLockBoundary(next ActivationBoundary) *ClassLockBoundary {
	return &ClassLockBoundary{next: next, locks: make(map[string]*classLock)}
}

func (b *ClassLockBoundary) Activate(ctx context.Context, structure *models.GradeStructure) error {
	lock := b.acquire(structure.ClassID)
	defer b.release(structure.ClassID, lock)
	return b.next.Activate(ctx, structure)
}

func (b *ClassLockBoundary) acquire(classID string) *classLock {
	b.mu.Lock()
	lock, ok := b.locks[classID]
	if !ok {
		lock = &classLock{}
		b.locks[classID] = lock
	}
	lock.refs++
	b.mu.Unlock()

	lock.Lock()
	return lock
}

func (b *ClassLockBoundary) release(classID string, lock *classLock) {
	lock.Unlock()
	b.mu.Lock()
	lock.refs--
	if lock.refs == 0 {
		delete(b.locks, classID)
	}
	b.mu.Unlock()
}

// NewActivationBoundary picks the boundary for mode. transactional may be nil for direct and locked modes.
func NewActivationBoundary(mode string, writer gradeStructureWriter, transactional ActivationBoundary) (ActivationBoundary, error) {
	switch mode {
	case config.ActivationDirect:
		return NewDirectBoundary(writer), nil
	case config.ActivationLocked:
		return NewClassLockBoundary(NewDirectBoundary(writer)), nil
	case config.ActivationTransactional, "":
		if transactional == nil {
			return nil, errors.New("transactional activation requires a transaction boundary")
		}
		return transactional, nil
	default:
		return nil, fmt.Errorf("unknown activation mode %q", mode)
	}
}

// GradeCategoryInput is one proposed category. Weight rules are checked by the grading validator.
type GradeCategoryInput struct {
	Name        string  `json:"name" validate:"required,max=120"`
	Description string  `json:"description" validate:"max=500"`
	Weight      float64 `json:"weight"`
	MaxPoints   float64 `json:"max_points" validate:"gt=0"`
}

// ActivateGradeStructureRequest proposes a new grading scheme for a class.
type ActivateGradeStructureRequest struct {
	ClassID     string               `json:"-" validate:"required"`
	TeacherID   string               `json:"-" validate:"required"`
	Name        string               `json:"name" validate:"required,max=120"`
	Description string               `json:"description" validate:"max=1000"`
	Categories  []GradeCategoryInput `json:"categories" validate:"required,min=1,dive"`
}

// GradeStructureService keeps exactly one active grade structure per class.
type GradeStructureService struct {
	structures gradeStructureReader
	classes    classFinder
	boundary   ActivationBoundary
	mode       string
	cache      summaryInvalidator
	events     eventSink
	metrics    *MetricsService
	validator  *validator.Validate
	logger     *zap.Logger
}

func NewGradeStructureService(structures gradeStructureReader, classes classFinder, boundary ActivationBoundary, mode string, cache summaryInvalidator, sink eventSink, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *GradeStructureService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GradeStructureService{
		structures: structures,
		classes:    classes,
		boundary:   boundary,
		mode:       mode,
		cache:      cache,
		events:     sink,
		metrics:    metrics,
		validator:  validate,
		logger:     logger,
	}
}

// Activate validates the proposed categories and, only when they are valid, makes the new
// structure the single active one for the class.
func (s *GradeStructureService) Activate(ctx context.Context, req ActivateGradeStructureRequest) (*models.GradeStructure, error) {
	if err := s.validator.Struct(req); err != nil {
		s.metrics.RecordActivation(s.mode, "rejected")
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid grade structure payload")
	}

	categories := make([]models.GradeCategory, len(req.Categories))
	for i, input := range req.Categories {
		categories[i] = models.GradeCategory{
			ID:          uuid.NewString(),
			Name:        input.Name,
			Description: input.Description,
			Weight:      input.Weight,
			MaxPoints:   input.MaxPoints,
			Order:       i + 1,
		}
	}
	if err := grading.ValidateCategories(categories); err != nil {
		s.metrics.RecordActivation(s.mode, "rejected")
		return nil, translateValidation(err)
	}

	if _, err := s.classes.FindByID(ctx, req.ClassID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}

	structure := &models.GradeStructure{
		ID:          uuid.NewString(),
		ClassID:     req.ClassID,
		TeacherID:   req.TeacherID,
		Name:        req.Name,
		Description: req.Description,
		TotalPoints: grading.TotalPoints(categories),
		Categories:  categories,
	}

	if err := s.boundary.Activate(ctx, structure); err != nil {
		s.metrics.RecordActivation(s.mode, "error")
		if repository.IsUniqueViolation(err) {
			return nil, appErrors.Wrap(err, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, "another grade structure was activated concurrently; retry")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to activate grade structure")
	}
	s.metrics.RecordActivation(s.mode, "success")

	s.logger.Info("grade structure activated",
		zap.String("class_id", structure.ClassID),
		zap.String("structure_id", structure.ID),
		zap.String("mode", s.mode),
		zap.Int("categories", len(structure.Categories)),
	)

	if s.cache != nil {
		// Summaries of the class were computed against the previous structure.
		_ = s.cache.Invalidate(ctx, summaryCachePattern(structure.ClassID))
	}
	s.publishActivated(ctx, structure)

	return structure, nil
}

// GetActive returns the authoritative structure of a class.
func (s *GradeStructureService) GetActive(ctx context.Context, classID string) (*models.GradeStructure, error) {
	structure, err := s.structures.FindActiveByClass(ctx, classID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNoActiveStructure, "")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load active grade structure")
	}
	return structure, nil
}

func (s *GradeStructureService) Get(ctx context.Context, id string) (*models.GradeStructure, error) {
	structure, err := s.structures.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "grade structure not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load grade structure")
	}
	return structure, nil
}

// ListByClass returns every structure the class has had, newest first.
func (s *GradeStructureService) ListByClass(ctx context.Context, classID string) ([]models.GradeStructure, error) {
	structures, err := s.structures.ListByClass(ctx, classID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list grade structures")
	}
	if structures == nil {
		structures = []models.GradeStructure{}
	}
	return structures, nil
}

func (s *GradeStructureService) publishActivated(ctx context.Context, structure *models.GradeStructure) {
	if s.events == nil {
		return
	}
	event, err := events.New(events.TypeGradeStructureActivated, structure.ClassID, events.GradeStructureActivated{
		StructureID:   structure.ID,
		ClassID:       structure.ClassID,
		TeacherID:     structure.TeacherID,
		Name:          structure.Name,
		CategoryCount: len(structure.Categories),
		TotalPoints:   structure.TotalPoints,
	})
	if err != nil {
		s.logger.Warn("failed to build activation event", zap.Error(err))
		return
	}
	s.events.Dispatch(ctx, event)
}

// translateValidation maps a grading.ValidationError onto its API error, keeping it reachable through errors.As.
func translateValidation(err error) error {
	var vErr *grading.ValidationError
	if !errors.As(err, &vErr) {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	}
	switch vErr.Kind {
	case grading.NonPositiveWeight:
		return appErrors.Wrap(vErr, appErrors.ErrNonPositiveWeight.Code, appErrors.ErrNonPositiveWeight.Status, vErr.Error())
	default:
		return appErrors.Wrap(vErr, appErrors.ErrWeightSumInvalid.Code, appErrors.ErrWeightSumInvalid.Status, vErr.Error())
	}
}
