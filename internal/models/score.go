package models

import "time"

// Assignment is a unit of graded work belonging to a class.
type Assignment struct {
	ID         string     `db:"id" json:"id"`
	ClassID    string     `db:"class_id" json:"class_id"`
	Title      string     `db:"title" json:"title"`
	CategoryID *string    `db:"category_id" json:"category_id,omitempty"`
	MaxPoints  float64    `db:"max_points" json:"max_points"`
	DueAt      *time.Time `db:"due_at" json:"due_at,omitempty"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time  `db:"updated_at" json:"updated_at"`
}

// RecordedScore is the grade a student earned on one assignment.
// At most one exists per (AssignmentID, StudentID).
type RecordedScore struct {
	ID           string    `db:"id" json:"id"`
	AssignmentID string    `db:"assignment_id" json:"assignment_id"`
	StudentID    string    `db:"student_id" json:"student_id"`
	CategoryID   *string   `db:"category_id" json:"category_id,omitempty"`
	Points       float64   `db:"points" json:"points"`
	MaxPoints    float64   `db:"max_points" json:"max_points"`
	Feedback     *string   `db:"feedback" json:"feedback,omitempty"`
	GradedAt     time.Time `db:"graded_at" json:"graded_at"`
	GradedBy     string    `db:"graded_by" json:"graded_by"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}
