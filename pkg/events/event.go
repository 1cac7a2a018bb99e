package events

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Type names a grading event.
type Type string

const (
	TypeGradeStructureActivated Type = "grade_structure.activated"
	TypeScoreRecorded           Type = "score.recorded"
)

const (
	source  = "classroom-grades-api"
	version = "1"
)

// Event is the envelope written to the bus. Payload holds one of the typed payloads below.
type Event struct {
	ID         string          `json:"id"`
	Type       Type            `json:"type"`
	Source     string          `json:"source"`
	Version    string          `json:"version"`
	ClassID    string          `json:"class_id"`
	OccurredAt time.Time       `json:"occurred_at"`
	Payload    json.RawMessage `json:"payload"`
}

// GradeStructureActivated is emitted after a structure becomes the active one for its class.
type GradeStructureActivated struct {
	StructureID   string  `json:"structure_id"`
	ClassID       string  `json:"class_id"`
	TeacherID     string  `json:"teacher_id"`
	Name          string  `json:"name"`
	CategoryCount int     `json:"category_count"`
	TotalPoints   float64 `json:"total_points"`
}

// ScoreRecorded is emitted after a score is inserted or overwritten.
type ScoreRecorded struct {
	ScoreID      string  `json:"score_id"`
	AssignmentID string  `json:"assignment_id"`
	StudentID    string  `json:"student_id"`
	Points       float64 `json:"points"`
	MaxPoints    float64 `json:"max_points"`
	GradedBy     string  `json:"graded_by"`
}

// New wraps payload in an envelope with a fresh id.
func New(eventType Type, classID string, payload interface{}) (Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Event{}, err
	}
	return Event{
		ID:         uuid.NewString(),
		Type:       eventType,
		Source:     source,
		Version:    version,
		ClassID:    classID,
		OccurredAt: time.Now().UTC(),
		Payload:    raw,
	}, nil
}
