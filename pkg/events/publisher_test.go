package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestBusPublisherDeliversEnvelope(t *testing.T) {
	bus := NewLocalBus(zap.NewNop())
	messages, err := bus.Subscribe(context.Background(), "grading")
	require.NoError(t, err)

	pub := NewBusPublisher(bus, "grading", nil)
	defer pub.Close()

	event, err := New(TypeScoreRecorded, "class-1", ScoreRecorded{
		ScoreID:      "score-1",
		AssignmentID: "asg-1",
		StudentID:    "stu-1",
		Points:       18,
		MaxPoints:    20,
		GradedBy:     "teacher-1",
	})
	require.NoError(t, err)
	require.NoError(t, pub.Publish(context.Background(), event))

	select {
	case msg := <-messages:
		msg.Ack()
		assert.Equal(t, event.ID, msg.UUID)
		assert.Equal(t, string(TypeScoreRecorded), msg.Metadata.Get("event_type"))
		assert.Equal(t, "class-1", msg.Metadata.Get("class_id"))

		var got Event
		require.NoError(t, json.Unmarshal(msg.Payload, &got))
		var payload ScoreRecorded
		require.NoError(t, json.Unmarshal(got.Payload, &payload))
		assert.Equal(t, "stu-1", payload.StudentID)
		assert.Equal(t, 18.0, payload.Points)
	case <-time.After(2 * time.Second):
		t.Fatal("event not delivered")
	}
}

func TestNewFillsEnvelope(t *testing.T) {
	event, err := New(TypeGradeStructureActivated, "class-9", GradeStructureActivated{StructureID: "gs-1"})
	require.NoError(t, err)

	assert.NotEmpty(t, event.ID)
	assert.Equal(t, source, event.Source)
	assert.Equal(t, version, event.Version)
	assert.False(t, event.OccurredAt.IsZero())
	assert.JSONEq(t, `{"structure_id":"gs-1","class_id":"","teacher_id":"","name":"","category_count":0,"total_points":0}`, string(event.Payload))
}
