package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/classroom-grades-api/internal/models"
)

const scoreColumns = `id, assignment_id, student_id, category_id, points, max_points, feedback, graded_at, graded_by, created_at, updated_at`

// ScoreRepository stores recorded scores, one row per (assignment, student).
type ScoreRepository struct {
	db *sqlx.DB
}

func NewScoreRepository(db *sqlx.DB) *ScoreRepository {
	return &ScoreRepository{db: db}
}

// Upsert inserts the score or overwrites the existing one for the same assignment and student
// in a single statement. The stored id and created_at are written back to score.
func (r *ScoreRepository) Upsert(ctx context.Context, score *models.RecordedScore) error {
	now := time.Now().UTC()
	if score.ID == "" {
		score.ID = uuid.NewString()
	}
	if score.GradedAt.IsZero() {
		score.GradedAt = now
	}
	score.CreatedAt = now
	score.UpdatedAt = now

	const query = `INSERT INTO recorded_scores (` + scoreColumns + `)
        VALUES (:id, :assignment_id, :student_id, :category_id, :points, :max_points, :feedback, :graded_at, :graded_by, :created_at, :updated_at)
        ON CONFLICT (assignment_id, student_id) DO UPDATE SET
            category_id = EXCLUDED.category_id,
            points = EXCLUDED.points,
            max_points = EXCLUDED.max_points,
            feedback = EXCLUDED.feedback,
            graded_at = EXCLUDED.graded_at,
            graded_by = EXCLUDED.graded_by,
            updated_at = EXCLUDED.updated_at
        RETURNING id, created_at`

	rows, err := r.db.NamedQueryContext(ctx, query, score)
	if err != nil {
		return fmt.Errorf("upsert recorded score: %w", err)
	}
	defer rows.Close()
	if rows.Next() {
		if err := rows.Scan(&score.ID, &score.CreatedAt); err != nil {
			return fmt.Errorf("scan recorded score: %w", err)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("upsert recorded score: %w", err)
	}
	return nil
}

// ListByAssignmentsAndStudent returns the student's scores on any of the assignments.
func (r *ScoreRepository) ListByAssignmentsAndStudent(ctx context.Context, assignmentIDs []string, studentID string) ([]models.RecordedScore, error) {
	if len(assignmentIDs) == 0 {
		return []models.RecordedScore{}, nil
	}
	query := `SELECT ` + scoreColumns + ` FROM recorded_scores WHERE assignment_id = ANY($1) AND student_id = $2 ORDER BY graded_at`
	var scores []models.RecordedScore
	if err := r.db.SelectContext(ctx, &scores, query, pq.Array(assignmentIDs), studentID); err != nil {
		return nil, fmt.Errorf("list student scores: %w", err)
	}
	return scores, nil
}

// ListByAssignments returns every score recorded on the assignments.
func (r *ScoreRepository) ListByAssignments(ctx context.Context, assignmentIDs []string) ([]models.RecordedScore, error) {
	if len(assignmentIDs) == 0 {
		return []models.RecordedScore{}, nil
	}
	query := `SELECT ` + scoreColumns + ` FROM recorded_scores WHERE assignment_id = ANY($1) ORDER BY student_id, graded_at`
	var scores []models.RecordedScore
	if err := r.db.SelectContext(ctx, &scores, query, pq.Array(assignmentIDs)); err != nil {
		return nil, fmt.Errorf("list assignment scores: %w", err)
	}
	return scores, nil
}

// ListByAssignment returns the scores of one assignment.
func (r *ScoreRepository) ListByAssignment(ctx context.Context, assignmentID string) ([]models.RecordedScore, error) {
	query := `SELECT ` + scoreColumns + ` FROM recorded_scores WHERE assignment_id = $1 ORDER BY student_id`
	var scores []models.RecordedScore
	if err := r.db.SelectContext(ctx, &scores, query, assignmentID); err != nil {
		return nil, fmt.Errorf("list scores: %w", err)
	}
	return scores, nil
}
