package grading

import (
	"fmt"
	"math"

	"github.com/noah-isme/classroom-grades-api/internal/models"
)

// WeightTolerance is the allowed deviation of the weight sum from 100.
const WeightTolerance = 0.01

// FailureKind names why a proposed grading scheme was rejected.
type FailureKind string

const (
	// WeightSumInvalid means the category weights do not add up to 100.
	WeightSumInvalid FailureKind = "WEIGHT_SUM_INVALID"
	// NonPositiveWeight means at least one category has a weight <= 0.
	NonPositiveWeight FailureKind = "NON_POSITIVE_WEIGHT"
)

// ValidationError is the structured verdict of ValidateCategories.
type ValidationError struct {
	Kind  FailureKind
	Index int
	Sum   float64
}

func (e *ValidationError) Error() string {
	switch e.Kind {
	case NonPositiveWeight:
		return fmt.Sprintf("category %d must have a weight greater than 0", e.Index+1)
	case WeightSumInvalid:
		return fmt.Sprintf("category weights must sum to 100, got %.2f", e.Sum)
	default:
		return string(e.Kind)
	}
}

// ValidateCategories reports whether the categories form an acceptable grading scheme.
// It returns nil when valid and a *ValidationError otherwise.
func ValidateCategories(categories []models.GradeCategory) error {
	sum := 0.0
	for i, category := range categories {
		// NaN fails this comparison too.
		if !(category.Weight > 0) {
			return &ValidationError{Kind: NonPositiveWeight, Index: i}
		}
		sum += category.Weight
	}
	if math.Abs(sum-100) > WeightTolerance {
		return &ValidationError{Kind: WeightSumInvalid, Index: -1, Sum: sum}
	}
	return nil
}
