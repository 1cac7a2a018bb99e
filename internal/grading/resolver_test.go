package grading

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/classroom-grades-api/internal/models"
)

func strPtr(v string) *string { return &v }

func sampleCategories() []models.GradeCategory {
	// Declared out of order on purpose; resolution must go by Order, not position.
	return []models.GradeCategory{
		{ID: "quiz", Name: "Quizzes", Weight: 20, MaxPoints: 20, Order: 2},
		{ID: "homework", Name: "Homework", Weight: 25, MaxPoints: 25, Order: 1},
		{ID: "midterm", Name: "Midterm", Weight: 25, MaxPoints: 25, Order: 3},
		{ID: "final", Name: "Final", Weight: 30, MaxPoints: 30, Order: 4},
	}
}

func TestFallbackResolver(t *testing.T) {
	categories := sampleCategories()
	tests := []struct {
		name         string
		categoryID   *string
		wantDecision Decision
		wantCategory string
	}{
		{name: "exact match", categoryID: strPtr("midterm"), wantDecision: ExactMatch, wantCategory: "midterm"},
		{name: "absent category", categoryID: nil, wantDecision: FallbackToFirst, wantCategory: "homework"},
		{name: "empty category", categoryID: strPtr(""), wantDecision: FallbackToFirst, wantCategory: "homework"},
		{name: "retired category", categoryID: strPtr("old-essay"), wantDecision: FallbackToFirst, wantCategory: "homework"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := FallbackResolver{}.Resolve(models.RecordedScore{CategoryID: tt.categoryID, Points: 5}, categories)
			assert.Equal(t, tt.wantDecision, res.Decision)
			assert.Equal(t, tt.wantCategory, res.Category.ID)
			assert.True(t, res.Attributed())
			if tt.wantDecision == FallbackToFirst {
				assert.Equal(t, 1, res.Category.Order)
			}
		})
	}
}

func TestFallbackResolverEmptyScheme(t *testing.T) {
	res := FallbackResolver{}.Resolve(models.RecordedScore{CategoryID: strPtr("quiz")}, nil)
	assert.Equal(t, Unattributed, res.Decision)
	assert.False(t, res.Attributed())
}

func TestFallbackResolverWithoutOrderOne(t *testing.T) {
	categories := []models.GradeCategory{{ID: "b", Order: 3}, {ID: "a", Order: 2}}
	res := FallbackResolver{}.Resolve(models.RecordedScore{}, categories)
	assert.Equal(t, FallbackToFirst, res.Decision)
	assert.Equal(t, "a", res.Category.ID)
}

func TestStrictResolver(t *testing.T) {
	categories := sampleCategories()

	res := StrictResolver{}.Resolve(models.RecordedScore{CategoryID: strPtr("quiz")}, categories)
	assert.Equal(t, ExactMatch, res.Decision)
	assert.Equal(t, "quiz", res.Category.ID)

	res = StrictResolver{}.Resolve(models.RecordedScore{CategoryID: strPtr("old-essay")}, categories)
	assert.Equal(t, Unattributed, res.Decision)

	res = StrictResolver{}.Resolve(models.RecordedScore{}, categories)
	assert.Equal(t, Unattributed, res.Decision)
}

func TestResolverForPolicy(t *testing.T) {
	assert.IsType(t, StrictResolver{}, ResolverForPolicy(PolicyExclude))
	assert.IsType(t, FallbackResolver{}, ResolverForPolicy(PolicyFallback))
	assert.IsType(t, FallbackResolver{}, ResolverForPolicy("unknown"))
	assert.Equal(t, "fallback_to_first", FallbackToFirst.String())
}
