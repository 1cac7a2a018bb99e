package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/classroom-grades-api/internal/models"
)

// AssignmentRepository reads assignments. They are authored by the coursework service.
type AssignmentRepository struct {
	db *sqlx.DB
}

func NewAssignmentRepository(db *sqlx.DB) *AssignmentRepository {
	return &AssignmentRepository{db: db}
}

// FindByID returns an assignment or sql.ErrNoRows.
func (r *AssignmentRepository) FindByID(ctx context.Context, id string) (*models.Assignment, error) {
	const query = `SELECT id, class_id, title, category_id, max_points, due_at, created_at, updated_at FROM assignments WHERE id = $1`
	var assignment models.Assignment
	if err := r.db.GetContext(ctx, &assignment, query, id); err != nil {
		return nil, err
	}
	return &assignment, nil
}

// ListIDsByClass returns the identifiers of every assignment in the class.
func (r *AssignmentRepository) ListIDsByClass(ctx context.Context, classID string) ([]string, error) {
	const query = `SELECT id FROM assignments WHERE class_id = $1 ORDER BY created_at`
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query, classID); err != nil {
		return nil, fmt.Errorf("list class assignments: %w", err)
	}
	return ids, nil
}
