package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/classroom-grades-api/internal/models"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

var structureCols = []string{"id", "class_id", "teacher_id", "name", "description", "total_points", "is_active", "created_at", "updated_at"}
var categoryCols = []string{"id", "structure_id", "name", "description", "weight", "max_points", "sort_order"}

func sampleStructure() *models.GradeStructure {
	return &models.GradeStructure{
		ID:          "gs-1",
		ClassID:     "class-1",
		TeacherID:   "teacher-1",
		Name:        "Semester 1",
		TotalPoints: 100,
		Categories: []models.GradeCategory{
			{ID: "cat-1", Name: "Homework", Weight: 40, MaxPoints: 40, Order: 1},
			{ID: "cat-2", Name: "Exam", Weight: 60, MaxPoints: 60, Order: 2},
		},
	}
}

func TestGradeStructureRepositoryFindActiveByClass(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewGradeStructureRepository(db)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("FROM grade_structures WHERE class_id = $1 AND is_active = TRUE")).
		WithArgs("class-1").
		WillReturnRows(sqlmock.NewRows(structureCols).AddRow("gs-1", "class-1", "teacher-1", "Semester 1", "", 100.0, true, now, now))
	mock.ExpectQuery(regexp.QuoteMeta("FROM grade_categories WHERE structure_id = ANY($1)")).
		WithArgs(pq.Array([]string{"gs-1"})).
		WillReturnRows(sqlmock.NewRows(categoryCols).
			AddRow("cat-1", "gs-1", "Homework", "", 40.0, 40.0, 1).
			AddRow("cat-2", "gs-1", "Exam", "", 60.0, 60.0, 2))

	structure, err := repo.FindActiveByClass(context.Background(), "class-1")
	require.NoError(t, err)
	assert.True(t, structure.IsActive)
	require.Len(t, structure.Categories, 2)
	assert.Equal(t, "Exam", structure.Categories[1].Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGradeStructureRepositoryFindActiveByClassNotFound(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewGradeStructureRepository(db)

	mock.ExpectQuery("FROM grade_structures WHERE class_id").
		WithArgs("class-x").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindActiveByClass(context.Background(), "class-x")
	assert.True(t, errors.Is(err, sql.ErrNoRows))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGradeStructureRepositoryListByClassGroupsCategories(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewGradeStructureRepository(db)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("FROM grade_structures WHERE class_id = $1 ORDER BY created_at DESC")).
		WithArgs("class-1").
		WillReturnRows(sqlmock.NewRows(structureCols).
			AddRow("gs-2", "class-1", "teacher-1", "v2", "", 100.0, true, now, now).
			AddRow("gs-1", "class-1", "teacher-1", "v1", "", 50.0, false, now.Add(-time.Hour), now))
	mock.ExpectQuery("FROM grade_categories").
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows(categoryCols).
			AddRow("a", "gs-1", "Only", "", 100.0, 50.0, 1).
			AddRow("b", "gs-2", "First", "", 50.0, 50.0, 1).
			AddRow("c", "gs-2", "Second", "", 50.0, 50.0, 2))

	structures, err := repo.ListByClass(context.Background(), "class-1")
	require.NoError(t, err)
	require.Len(t, structures, 2)
	assert.Len(t, structures[0].Categories, 2)
	assert.Len(t, structures[1].Categories, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGradeStructureRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewGradeStructureRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO grade_structures").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO grade_categories").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO grade_categories").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	structure := sampleStructure()
	require.NoError(t, repo.Create(context.Background(), structure))
	assert.Equal(t, "gs-1", structure.Categories[0].StructureID)
	assert.False(t, structure.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGradeStructureRepositoryCreateRollsBack(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewGradeStructureRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO grade_structures").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO grade_categories").WillReturnError(errors.New("boom"))
	mock.ExpectRollback()

	err := repo.Create(context.Background(), sampleStructure())
	assert.ErrorContains(t, err, "insert grade category")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGradeStructureRepositoryDeactivateByClass(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewGradeStructureRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE grade_structures SET is_active = FALSE")).
		WithArgs("class-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 2))

	n, err := repo.DeactivateByClass(context.Background(), "class-1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGradeStructureTxBoundaryActivate(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	boundary := NewGradeStructureTxBoundary(db, nil)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("SELECT pg_advisory_xact_lock(hashtext($1))")).
		WithArgs("class-1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("UPDATE grade_structures SET is_active = FALSE").
		WithArgs("class-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO grade_structures").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO grade_categories").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO grade_categories").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	structure := sampleStructure()
	require.NoError(t, boundary.Activate(context.Background(), structure))
	assert.True(t, structure.IsActive)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGradeStructureTxBoundaryRollsBackOnInsertFailure(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	boundary := NewGradeStructureTxBoundary(db, nil)

	mock.ExpectBegin()
	mock.ExpectExec("pg_advisory_xact_lock").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("UPDATE grade_structures").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO grade_structures").WillReturnError(&pq.Error{Code: uniqueViolation})
	mock.ExpectRollback()

	err := boundary.Activate(context.Background(), sampleStructure())
	require.Error(t, err)
	assert.True(t, IsUniqueViolation(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}
