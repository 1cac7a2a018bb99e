package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/classroom-grades-api/internal/models"
)

const structureColumns = `id, class_id, teacher_id, name, description, total_points, is_active, created_at, updated_at`

// uniqueViolation is the PostgreSQL SQLSTATE for unique constraint failures.
const uniqueViolation = "23505"

// GradeStructureRepository persists grade structures and their categories.
type GradeStructureRepository struct {
	db *sqlx.DB
}

func NewGradeStructureRepository(db *sqlx.DB) *GradeStructureRepository {
	return &GradeStructureRepository{db: db}
}

// FindActiveByClass returns the active structure of a class or sql.ErrNoRows.
func (r *GradeStructureRepository) FindActiveByClass(ctx context.Context, classID string) (*models.GradeStructure, error) {
	query := `SELECT ` + structureColumns + ` FROM grade_structures WHERE class_id = $1 AND is_active = TRUE`
	var structure models.GradeStructure
	if err := r.db.GetContext(ctx, &structure, query, classID); err != nil {
		return nil, err
	}
	if err := r.attachCategories(ctx, []*models.GradeStructure{&structure}); err != nil {
		return nil, err
	}
	return &structure, nil
}

// FindByID returns a structure with its categories or sql.ErrNoRows.
func (r *GradeStructureRepository) FindByID(ctx context.Context, id string) (*models.GradeStructure, error) {
	query := `SELECT ` + structureColumns + ` FROM grade_structures WHERE id = $1`
	var structure models.GradeStructure
	if err := r.db.GetContext(ctx, &structure, query, id); err != nil {
		return nil, err
	}
	if err := r.attachCategories(ctx, []*models.GradeStructure{&structure}); err != nil {
		return nil, err
	}
	return &structure, nil
}

// ListByClass returns the structure history of a class, newest first.
func (r *GradeStructureRepository) ListByClass(ctx context.Context, classID string) ([]models.GradeStructure, error) {
	query := `SELECT ` + structureColumns + ` FROM grade_structures WHERE class_id = $1 ORDER BY created_at DESC`
	var structures []models.GradeStructure
	if err := r.db.SelectContext(ctx, &structures, query, classID); err != nil {
		return nil, fmt.Errorf("list grade structures: %w", err)
	}
	refs := make([]*models.GradeStructure, len(structures))
	for i := range structures {
		refs[i] = &structures[i]
	}
	if err := r.attachCategories(ctx, refs); err != nil {
		return nil, err
	}
	return structures, nil
}

// DeactivateByClass clears the active flag of every structure of the class.
func (r *GradeStructureRepository) DeactivateByClass(ctx context.Context, classID string) (int64, error) {
	return deactivateByClass(ctx, r.db, classID)
}

// Create stores the structure and its categories in one transaction.
func (r *GradeStructureRepository) Create(ctx context.Context, structure *models.GradeStructure) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin grade structure tx: %w", err)
	}
	if err := insertStructure(ctx, tx, structure); err != nil {
		tx.Rollback() //nolint:errcheck
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit grade structure: %w", err)
	}
	return nil
}

func (r *GradeStructureRepository) attachCategories(ctx context.Context, structures []*models.GradeStructure) error {
	if len(structures) == 0 {
		return nil
	}
	ids := make([]string, len(structures))
	byID := make(map[string]*models.GradeStructure, len(structures))
	for i, s := range structures {
		ids[i] = s.ID
		byID[s.ID] = s
		s.Categories = []models.GradeCategory{}
	}

	const query = `SELECT id, structure_id, name, description, weight, max_points, sort_order
        FROM grade_categories WHERE structure_id = ANY($1) ORDER BY structure_id, sort_order`
	var categories []models.GradeCategory
	if err := r.db.SelectContext(ctx, &categories, query, pq.Array(ids)); err != nil {
		return fmt.Errorf("load grade categories: %w", err)
	}
	for _, category := range categories {
		if owner, ok := byID[category.StructureID]; ok {
			owner.Categories = append(owner.Categories, category)
		}
	}
	return nil
}

func deactivateByClass(ctx context.Context, exec sqlx.ExecerContext, classID string) (int64, error) {
	const query = `UPDATE grade_structures SET is_active = FALSE, updated_at = $2 WHERE class_id = $1 AND is_active = TRUE`
	res, err := exec.ExecContext(ctx, query, classID, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("deactivate grade structures: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("deactivate grade structures: %w", err)
	}
	return affected, nil
}

func insertStructure(ctx context.Context, exec sqlx.ExtContext, structure *models.GradeStructure) error {
	if structure.ID == "" {
		structure.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if structure.CreatedAt.IsZero() {
		structure.CreatedAt = now
	}
	structure.UpdatedAt = now

	const insert = `INSERT INTO grade_structures (` + structureColumns + `)
        VALUES (:id, :class_id, :teacher_id, :name, :description, :total_points, :is_active, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, exec, insert, structure); err != nil {
		return fmt.Errorf("insert grade structure: %w", err)
	}

	const insertCategory = `INSERT INTO grade_categories (id, structure_id, name, description, weight, max_points, sort_order)
        VALUES (:id, :structure_id, :name, :description, :weight, :max_points, :sort_order)`
	for i := range structure.Categories {
		structure.Categories[i].StructureID = structure.ID
		if _, err := sqlx.NamedExecContext(ctx, exec, insertCategory, structure.Categories[i]); err != nil {
			return fmt.Errorf("insert grade category: %w", err)
		}
	}
	return nil
}

// IsUniqueViolation reports whether err came from a unique constraint, such as the
// single-active-structure index.
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}
