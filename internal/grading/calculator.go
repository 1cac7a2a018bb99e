package grading

import (
	"math"
	"math/big"
	"strconv"

	"github.com/noah-isme/classroom-grades-api/internal/models"
)

// Totals is the aggregate over all category summaries of one student.
type Totals struct {
	TotalEarnedPoints float64
	TotalMaxPoints    float64
	FinalPercentage   float64
}

// SummarizeCategory computes the contribution of the scores resolved to category.
// Every score is summed; the result does not depend on their order.
func SummarizeCategory(category models.GradeCategory, scores []models.RecordedScore) models.CategorySummary {
	earned := 0.0
	for _, score := range scores {
		earned += score.Points
	}
	percentage := Percentage(earned, category.MaxPoints)
	return models.CategorySummary{
		CategoryID:     category.ID,
		CategoryName:   category.Name,
		EarnedPoints:   earned,
		MaxPoints:      category.MaxPoints,
		Percentage:     percentage,
		Weight:         category.Weight,
		WeightedPoints: RoundHalfUp(percentage*category.Weight/100, 2),
	}
}

// Aggregate derives the final percentage from raw earned points over totalPoints.
// Per-category weighted points are informational and do not feed into it.
func Aggregate(totalPoints float64, summaries []models.CategorySummary) Totals {
	earned := 0.0
	for _, summary := range summaries {
		earned += summary.EarnedPoints
	}
	return Totals{
		TotalEarnedPoints: earned,
		TotalMaxPoints:    totalPoints,
		FinalPercentage:   RoundHalfUp(Percentage(earned, totalPoints), 2),
	}
}

// Percentage returns earned/max*100, or 0 when max is 0.
func Percentage(earned, max float64) float64 {
	if max == 0 {
		return 0
	}
	return earned / max * 100
}

// RoundHalfUp rounds value to the given number of decimal places, ties toward +Inf.
// It rounds the shortest decimal form of value, so 1.005 becomes 1.01 even though
// the nearest float64 is slightly below 1.005.
func RoundHalfUp(value float64, places int) float64 {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return value
	}
	exact, ok := new(big.Rat).SetString(strconv.FormatFloat(value, 'g', -1, 64))
	if !ok {
		return value
	}
	scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(places)), nil)
	exact.Mul(exact, new(big.Rat).SetInt(scale))
	exact.Add(exact, big.NewRat(1, 2))

	// Euclidean division by the positive denominator floors, negatives included.
	floored := new(big.Int).Div(exact.Num(), exact.Denom())
	rounded, _ := new(big.Rat).SetFrac(floored, scale).Float64()
	return rounded
}

// TotalPoints sums the maximum points of the categories.
func TotalPoints(categories []models.GradeCategory) float64 {
	total := 0.0
	for _, category := range categories {
		total += category.MaxPoints
	}
	return total
}
