package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/classroom-grades-api/internal/grading"
	"github.com/noah-isme/classroom-grades-api/internal/models"
	appErrors "github.com/noah-isme/classroom-grades-api/pkg/errors"
	"github.com/noah-isme/classroom-grades-api/pkg/export"
)

const summaryCachePrefix = "grades:summary"

func summaryCacheKey(classID, studentID string) string {
	return fmt.Sprintf("%s:%s:%s", summaryCachePrefix, classID, studentID)
}

func summaryCachePattern(classID string) string {
	return fmt.Sprintf("%s:%s:*", summaryCachePrefix, classID)
}

type activeStructureFinder interface {
	FindActiveByClass(ctx context.Context, classID string) (*models.GradeStructure, error)
}

type classAssignmentLister interface {
	ListIDsByClass(ctx context.Context, classID string) ([]string, error)
}

type scoreReader interface {
	ListByAssignmentsAndStudent(ctx context.Context, assignmentIDs []string, studentID string) ([]models.RecordedScore, error)
	ListByAssignments(ctx context.Context, assignmentIDs []string) ([]models.RecordedScore, error)
}

type studentDirectory interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
	ListByClass(ctx context.Context, classID string) ([]models.Student, error)
}

type summaryCache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// GradeSummaryDeps collects the collaborators of GradeSummaryService.
type GradeSummaryDeps struct {
	Structures  activeStructureFinder
	Assignments classAssignmentLister
	Scores      scoreReader
	Students    studentDirectory
	Classes     classFinder
	Resolver    grading.Resolver
	Cache       summaryCache
	CacheTTL    time.Duration
	Metrics     *MetricsService
	Logger      *zap.Logger
}

// ExportFile is a rendered gradebook ready to be streamed.
type ExportFile struct {
	Filename    string
	ContentType string
	Body        []byte
}

// GradeSummaryService computes student grades on demand from the active structure and recorded scores.
// It never writes summaries to the database.
type GradeSummaryService struct {
	structures  activeStructureFinder
	assignments classAssignmentLister
	scores      scoreReader
	students    studentDirectory
	classes     classFinder
	resolver    grading.Resolver
	cache       summaryCache
	cacheTTL    time.Duration
	metrics     *MetricsService
	logger      *zap.Logger
	now         func() time.Time
}

func NewGradeSummaryService(deps GradeSummaryDeps) *GradeSummaryService {
	if deps.Resolver == nil {
		deps.Resolver = grading.FallbackResolver{}
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return &GradeSummaryService{
		structures:  deps.Structures,
		assignments: deps.Assignments,
		scores:      deps.Scores,
		students:    deps.Students,
		classes:     deps.Classes,
		resolver:    deps.Resolver,
		cache:       deps.Cache,
		cacheTTL:    deps.CacheTTL,
		metrics:     deps.Metrics,
		logger:      deps.Logger,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Summarize computes the grade of one student in one class.
func (s *GradeSummaryService) Summarize(ctx context.Context, classID, studentID string) (*models.StudentGradeSummary, error) {
	start := time.Now()
	defer func() { s.metrics.ObserveSummary("student", time.Since(start)) }()

	structure, err := s.activeStructure(ctx, classID)
	if err != nil {
		return nil, err
	}

	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrStudentNotFound, "")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	// Only the score aggregation is cached; structure and student existence are always checked.
	key := summaryCacheKey(classID, studentID)
	if s.cache != nil {
		var cached models.StudentGradeSummary
		if hit, _ := s.cache.Get(ctx, key, &cached); hit && cached.GradeStructureID == structure.ID {
			return &cached, nil
		}
	}

	assignmentIDs, err := s.assignmentIDs(ctx, classID)
	if err != nil {
		return nil, err
	}

	loadStart := time.Now()
	scores, err := s.scores.ListByAssignmentsAndStudent(ctx, assignmentIDs, studentID)
	s.metrics.ObserveDBQuery("student_scores", time.Since(loadStart))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load scores")
	}

	summary := s.compute(structure, *student, scores)
	if s.cache != nil {
		_ = s.cache.Set(ctx, key, summary, s.cacheTTL)
	}
	return &summary, nil
}

// Gradebook summarises every enrolled student of a class. Students with no scores get zero totals.
func (s *GradeSummaryService) Gradebook(ctx context.Context, classID string) (*models.ClassGradebook, error) {
	start := time.Now()
	defer func() { s.metrics.ObserveSummary("class", time.Since(start)) }()

	class, err := s.classes.FindByID(ctx, classID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}

	structure, err := s.activeStructure(ctx, classID)
	if err != nil {
		return nil, err
	}

	students, err := s.students.ListByClass(ctx, classID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class roster")
	}

	assignmentIDs, err := s.assignmentIDs(ctx, classID)
	if err != nil {
		return nil, err
	}

	loadStart := time.Now()
	scores, err := s.scores.ListByAssignments(ctx, assignmentIDs)
	s.metrics.ObserveDBQuery("class_scores", time.Since(loadStart))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load scores")
	}

	byStudent := make(map[string][]models.RecordedScore, len(students))
	for _, score := range scores {
		byStudent[score.StudentID] = append(byStudent[score.StudentID], score)
	}

	gradebook := &models.ClassGradebook{
		ClassID:          class.ID,
		ClassName:        class.Name,
		GradeStructureID: structure.ID,
		Categories:       orderedCategories(structure.Categories),
		Students:         make([]models.StudentGradeSummary, 0, len(students)),
		GeneratedAt:      s.now(),
	}
	for _, student := range students {
		gradebook.Students = append(gradebook.Students, s.compute(structure, student, byStudent[student.ID]))
	}
	return gradebook, nil
}

// Export renders the class gradebook as csv, xlsx or pdf.
func (s *GradeSummaryService) Export(ctx context.Context, classID, format string) (*ExportFile, error) {
	parsed, err := export.ParseFormat(format)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnsupportedFormat.Code, appErrors.ErrUnsupportedFormat.Status, err.Error())
	}
	renderer, err := export.RendererFor(parsed)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnsupportedFormat.Code, appErrors.ErrUnsupportedFormat.Status, err.Error())
	}

	gradebook, err := s.Gradebook(ctx, classID)
	if err != nil {
		return nil, err
	}

	body, err := renderer.Render(gradebookDataset(gradebook))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render gradebook")
	}

	return &ExportFile{
		Filename:    fmt.Sprintf("gradebook_%s_%s.%s", gradebook.ClassID, gradebook.GeneratedAt.Format("20060102"), renderer.Extension()),
		ContentType: renderer.ContentType(),
		Body:        body,
	}, nil
}

func (s *GradeSummaryService) activeStructure(ctx context.Context, classID string) (*models.GradeStructure, error) {
	structure, err := s.structures.FindActiveByClass(ctx, classID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNoActiveStructure, "")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load active grade structure")
	}
	return structure, nil
}

func (s *GradeSummaryService) assignmentIDs(ctx context.Context, classID string) ([]string, error) {
	ids, err := s.assignments.ListIDsByClass(ctx, classID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assignments")
	}
	return ids, nil
}

// compute is the pure part of the pipeline: resolve, summarise per category, aggregate, letter.
func (s *GradeSummaryService) compute(structure *models.GradeStructure, student models.Student, scores []models.RecordedScore) models.StudentGradeSummary {
	categories := orderedCategories(structure.Categories)
	resolved := make(map[string][]models.RecordedScore, len(categories))

	for _, score := range scores {
		resolution := s.resolver.Resolve(score, categories)
		s.metrics.RecordResolution(resolution.Decision.String())
		switch resolution.Decision {
		case grading.FallbackToFirst:
			s.logger.Debug("score attributed to first category",
				zap.String("assignment_id", score.AssignmentID),
				zap.String("student_id", score.StudentID),
				zap.Stringp("category_id", score.CategoryID),
				zap.String("fallback_category_id", resolution.Category.ID),
			)
		case grading.Unattributed:
			s.logger.Debug("score excluded from summary",
				zap.String("assignment_id", score.AssignmentID),
				zap.String("student_id", score.StudentID),
			)
			continue
		}
		resolved[resolution.Category.ID] = append(resolved[resolution.Category.ID], score)
	}

	summaries := make([]models.CategorySummary, len(categories))
	for i, category := range categories {
		summaries[i] = grading.SummarizeCategory(category, resolved[category.ID])
	}
	totals := grading.Aggregate(structure.TotalPoints, summaries)

	return models.StudentGradeSummary{
		StudentID:         student.ID,
		StudentName:       student.FullName,
		GradeStructureID:  structure.ID,
		Categories:        summaries,
		TotalEarnedPoints: totals.TotalEarnedPoints,
		TotalMaxPoints:    totals.TotalMaxPoints,
		FinalPercentage:   totals.FinalPercentage,
		FinalGrade:        grading.LetterGrade(totals.FinalPercentage),
		LastUpdated:       s.now(),
	}
}

func orderedCategories(categories []models.GradeCategory) []models.GradeCategory {
	out := make([]models.GradeCategory, len(categories))
	copy(out, categories)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out
}

func gradebookDataset(gradebook *models.ClassGradebook) export.Dataset {
	headers := []string{"Student ID", "Student"}
	categoryHeaders := categoryColumns(gradebook.Categories)
	headers = append(headers, categoryHeaders...)
	headers = append(headers, "Earned", "Max", "Final %", "Grade")

	rows := make([]map[string]string, 0, len(gradebook.Students))
	for _, summary := range gradebook.Students {
		row := map[string]string{
			"Student ID": summary.StudentID,
			"Student":    summary.StudentName,
			"Earned":     formatNumber(summary.TotalEarnedPoints),
			"Max":        formatNumber(summary.TotalMaxPoints),
			"Final %":    strconv.FormatFloat(summary.FinalPercentage, 'f', 2, 64),
			"Grade":      summary.FinalGrade,
		}
		for i, category := range summary.Categories {
			if i < len(categoryHeaders) {
				row[categoryHeaders[i]] = formatNumber(category.EarnedPoints)
			}
		}
		rows = append(rows, row)
	}

	return export.Dataset{
		Title:   fmt.Sprintf("%s gradebook", gradebook.ClassName),
		Headers: headers,
		Rows:    rows,
	}
}

// categoryColumns labels each category "<name> (<weight>%)". Labels that repeat get the
// category order appended so every category keeps its own column.
func categoryColumns(categories []models.GradeCategory) []string {
	base := make([]string, len(categories))
	counts := make(map[string]int, len(categories))
	for i, category := range categories {
		base[i] = fmt.Sprintf("%s (%s%%)", category.Name, formatNumber(category.Weight))
		counts[base[i]]++
	}

	used := make(map[string]struct{}, len(categories))
	columns := make([]string, len(categories))
	for i, category := range categories {
		label := base[i]
		if counts[label] > 1 {
			label = fmt.Sprintf("%s #%d", base[i], category.Order)
		}
		for n := 2; ; n++ {
			if _, taken := used[label]; !taken {
				break
			}
			label = fmt.Sprintf("%s #%d.%d", base[i], category.Order, n)
		}
		used[label] = struct{}{}
		columns[i] = label
	}
	return columns
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
