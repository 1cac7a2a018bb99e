package models

import "time"

// GradeCategory is a weighted bucket of graded work embedded in a GradeStructure.
type GradeCategory struct {
	ID          string  `db:"id" json:"id"`
	StructureID string  `db:"structure_id" json:"-"`
	Name        string  `db:"name" json:"name"`
	Description string  `db:"description" json:"description"`
	Weight      float64 `db:"weight" json:"weight"`
	MaxPoints   float64 `db:"max_points" json:"max_points"`
	Order       int     `db:"sort_order" json:"order"`
}

// GradeStructure is a versioned grading scheme for a class. Only one per class is active.
type GradeStructure struct {
	ID          string          `db:"id" json:"id"`
	ClassID     string          `db:"class_id" json:"class_id"`
	TeacherID   string          `db:"teacher_id" json:"teacher_id"`
	Name        string          `db:"name" json:"name"`
	Description string          `db:"description" json:"description"`
	TotalPoints float64         `db:"total_points" json:"total_points"`
	IsActive    bool            `db:"is_active" json:"is_active"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time       `db:"updated_at" json:"updated_at"`
	Categories  []GradeCategory `json:"categories"`
}

// CategoryByID returns the category with the given id, if present.
func (s *GradeStructure) CategoryByID(id string) (GradeCategory, bool) {
	for _, category := range s.Categories {
		if category.ID == id {
			return category, true
		}
	}
	return GradeCategory{}, false
}
