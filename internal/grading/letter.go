package grading

// gradeBands are evaluated top-down; the first lower bound reached wins.
var gradeBands = []struct {
	min   float64
	grade string
}{
	{80, "A"},
	{75, "B+"},
	{70, "B"},
	{65, "C+"},
	{60, "C"},
	{55, "D+"},
	{50, "D"},
}

// FailingGrade is assigned below the lowest band, and to NaN.
const FailingGrade = "F"

// LetterGrade maps a final percentage to its letter grade.
func LetterGrade(percentage float64) string {
	for _, band := range gradeBands {
		if percentage >= band.min {
			return band.grade
		}
	}
	return FailingGrade
}
