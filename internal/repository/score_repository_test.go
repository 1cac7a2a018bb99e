package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/classroom-grades-api/internal/models"
)

var scoreCols = []string{"id", "assignment_id", "student_id", "category_id", "points", "max_points", "feedback", "graded_at", "graded_by", "created_at", "updated_at"}

func TestScoreRepositoryUpsertKeepsExistingID(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewScoreRepository(db)

	created := time.Now().Add(-24 * time.Hour)
	mock.ExpectQuery(regexp.QuoteMeta("ON CONFLICT (assignment_id, student_id) DO UPDATE SET")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow("score-existing", created))

	score := &models.RecordedScore{AssignmentID: "asg-1", StudentID: "stu-1", Points: 18, MaxPoints: 20, GradedBy: "teacher-1"}
	require.NoError(t, repo.Upsert(context.Background(), score))
	assert.Equal(t, "score-existing", score.ID)
	assert.WithinDuration(t, created, score.CreatedAt, time.Second)
	assert.False(t, score.GradedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScoreRepositoryListByAssignmentsAndStudent(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewScoreRepository(db)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("WHERE assignment_id = ANY($1) AND student_id = $2")).
		WithArgs(sqlmock.AnyArg(), "stu-1").
		WillReturnRows(sqlmock.NewRows(scoreCols).
			AddRow("s1", "asg-1", "stu-1", "cat-1", 25.0, 25.0, nil, now, "teacher-1", now, now).
			AddRow("s2", "asg-2", "stu-1", nil, 15.0, 20.0, "late", now, "teacher-1", now, now))

	scores, err := repo.ListByAssignmentsAndStudent(context.Background(), []string{"asg-1", "asg-2"}, "stu-1")
	require.NoError(t, err)
	require.Len(t, scores, 2)
	require.NotNil(t, scores[0].CategoryID)
	assert.Equal(t, "cat-1", *scores[0].CategoryID)
	assert.Nil(t, scores[1].CategoryID)
	require.NotNil(t, scores[1].Feedback)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScoreRepositoryEmptyAssignmentSetSkipsQuery(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewScoreRepository(db)

	scores, err := repo.ListByAssignmentsAndStudent(context.Background(), nil, "stu-1")
	require.NoError(t, err)
	assert.Empty(t, scores)

	scores, err = repo.ListByAssignments(context.Background(), []string{})
	require.NoError(t, err)
	assert.Empty(t, scores)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScoreRepositoryListByAssignment(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewScoreRepository(db)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("FROM recorded_scores WHERE assignment_id = $1")).
		WithArgs("asg-1").
		WillReturnRows(sqlmock.NewRows(scoreCols).AddRow("s1", "asg-1", "stu-1", nil, 10.0, 10.0, nil, now, "t", now, now))

	scores, err := repo.ListByAssignment(context.Background(), "asg-1")
	require.NoError(t, err)
	assert.Len(t, scores, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}
