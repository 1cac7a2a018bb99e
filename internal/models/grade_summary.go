package models

import "time"

// CategorySummary is the computed result for one category of a student's grade.
type CategorySummary struct {
	CategoryID     string  `json:"category_id"`
	CategoryName   string  `json:"category_name"`
	EarnedPoints   float64 `json:"earned_points"`
	MaxPoints      float64 `json:"max_points"`
	Percentage     float64 `json:"percentage"`
	Weight         float64 `json:"weight"`
	WeightedPoints float64 `json:"weighted_points"`
}

// StudentGradeSummary is the computed grade of a student in a class. It is never persisted.
type StudentGradeSummary struct {
	StudentID         string            `json:"student_id"`
	StudentName       string            `json:"student_name"`
	GradeStructureID  string            `json:"grade_structure_id"`
	Categories        []CategorySummary `json:"categories"`
	TotalEarnedPoints float64           `json:"total_earned_points"`
	TotalMaxPoints    float64           `json:"total_max_points"`
	FinalPercentage   float64           `json:"final_percentage"`
	FinalGrade        string            `json:"final_grade"`
	LastUpdated       time.Time         `json:"last_updated"`
}

// ClassGradebook aggregates the summaries of every student enrolled in a class.
type ClassGradebook struct {
	ClassID          string                `json:"class_id"`
	ClassName        string                `json:"class_name"`
	GradeStructureID string                `json:"grade_structure_id"`
	Categories       []GradeCategory       `json:"categories"`
	Students         []StudentGradeSummary `json:"students"`
	GeneratedAt      time.Time             `json:"generated_at"`
}
