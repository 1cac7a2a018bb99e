package service

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/noah-isme/classroom-grades-api/internal/models"
	"github.com/noah-isme/classroom-grades-api/pkg/events"
)

// mockStructureStore is an in-memory grade_structures table.
type mockStructureStore struct {
	mu         sync.Mutex
	structures []models.GradeStructure
	writeDelay time.Duration
	createErr  error
	inFlight   map[string]int
	maxFlight  map[string]int
}

func (m *mockStructureStore) FindActiveByClass(_ context.Context, classID string) (*models.GradeStructure, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.structures) - 1; i >= 0; i-- {
		if m.structures[i].ClassID == classID && m.structures[i].IsActive {
			s := m.structures[i]
			return &s, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockStructureStore) FindByID(_ context.Context, id string) (*models.GradeStructure, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.structures {
		if s.ID == id {
			found := s
			return &found, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockStructureStore) ListByClass(_ context.Context, classID string) ([]models.GradeStructure, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.GradeStructure
	for i := len(m.structures) - 1; i >= 0; i-- {
		if m.structures[i].ClassID == classID {
			out = append(out, m.structures[i])
		}
	}
	return out, nil
}

func (m *mockStructureStore) DeactivateByClass(_ context.Context, classID string) (int64, error) {
	m.enter(classID)
	time.Sleep(m.writeDelay)
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for i := range m.structures {
		if m.structures[i].ClassID == classID && m.structures[i].IsActive {
			m.structures[i].IsActive = false
			n++
		}
	}
	return n, nil
}

func (m *mockStructureStore) Create(_ context.Context, structure *models.GradeStructure) error {
	defer m.leave(structure.ClassID)
	time.Sleep(m.writeDelay)
	if m.createErr != nil {
		return m.createErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.structures = append(m.structures, *structure)
	return nil
}

func (m *mockStructureStore) enter(classID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.inFlight == nil {
		m.inFlight = map[string]int{}
		m.maxFlight = map[string]int{}
	}
	m.inFlight[classID]++
	if m.inFlight[classID] > m.maxFlight[classID] {
		m.maxFlight[classID] = m.inFlight[classID]
	}
}

func (m *mockStructureStore) leave(classID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.inFlight != nil {
		m.inFlight[classID]--
	}
}

func (m *mockStructureStore) activeCount(classID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, s := range m.structures {
		if s.ClassID == classID && s.IsActive {
			count++
		}
	}
	return count
}

type mockClassFinder struct {
	classes map[string]models.Class
}

func (m *mockClassFinder) FindByID(_ context.Context, id string) (*models.Class, error) {
	class, ok := m.classes[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &class, nil
}

type mockAssignments struct {
	assignments map[string]models.Assignment
	err         error
}

func (m *mockAssignments) FindByID(_ context.Context, id string) (*models.Assignment, error) {
	if m.err != nil {
		return nil, m.err
	}
	a, ok := m.assignments[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &a, nil
}

func (m *mockAssignments) ListIDsByClass(_ context.Context, classID string) ([]string, error) {
	if m.err != nil {
		return nil, m.err
	}
	var ids []string
	for id, a := range m.assignments {
		if a.ClassID == classID {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// mockScoreStore keys scores by assignment and student like the unique constraint does.
type mockScoreStore struct {
	mu     sync.Mutex
	scores map[[2]string]models.RecordedScore
	seq    int
}

func newMockScoreStore(scores ...models.RecordedScore) *mockScoreStore {
	m := &mockScoreStore{scores: map[[2]string]models.RecordedScore{}}
	for _, s := range scores {
		m.scores[[2]string{s.AssignmentID, s.StudentID}] = s
	}
	return m
}

func (m *mockScoreStore) Upsert(_ context.Context, score *models.RecordedScore) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := [2]string{score.AssignmentID, score.StudentID}
	if existing, ok := m.scores[key]; ok {
		score.ID = existing.ID
		score.CreatedAt = existing.CreatedAt
	} else {
		m.seq++
		score.ID = fmt.Sprintf("score-%d", m.seq)
		score.CreatedAt = time.Now()
	}
	m.scores[key] = *score
	return nil
}

func (m *mockScoreStore) ListByAssignment(_ context.Context, assignmentID string) ([]models.RecordedScore, error) {
	return m.filter(func(s models.RecordedScore) bool { return s.AssignmentID == assignmentID }), nil
}

func (m *mockScoreStore) ListByAssignmentsAndStudent(_ context.Context, assignmentIDs []string, studentID string) ([]models.RecordedScore, error) {
	set := toSet(assignmentIDs)
	return m.filter(func(s models.RecordedScore) bool { return set[s.AssignmentID] && s.StudentID == studentID }), nil
}

func (m *mockScoreStore) ListByAssignments(_ context.Context, assignmentIDs []string) ([]models.RecordedScore, error) {
	set := toSet(assignmentIDs)
	return m.filter(func(s models.RecordedScore) bool { return set[s.AssignmentID] }), nil
}

func (m *mockScoreStore) filter(keep func(models.RecordedScore) bool) []models.RecordedScore {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.RecordedScore
	for _, s := range m.scores {
		if keep(s) {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AssignmentID < out[j].AssignmentID })
	return out
}

func toSet(values []string) map[string]bool {
	set := make(map[string]bool, len(values))
	for _, v := range values {
		set[v] = true
	}
	return set
}

type mockStudents struct {
	students map[string]models.Student
	roster   map[string][]string
}

func (m *mockStudents) FindByID(_ context.Context, id string) (*models.Student, error) {
	s, ok := m.students[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &s, nil
}

func (m *mockStudents) ListByClass(_ context.Context, classID string) ([]models.Student, error) {
	var out []models.Student
	for _, id := range m.roster[classID] {
		out = append(out, m.students[id])
	}
	return out, nil
}

type recordingSink struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recordingSink) Dispatch(_ context.Context, event events.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recordingSink) types() []events.Type {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]events.Type, len(r.events))
	for i, e := range r.events {
		out[i] = e.Type
	}
	return out
}

// recordingCache is a map-backed summary cache.
type recordingCache struct {
	mu          sync.Mutex
	entries     map[string]models.StudentGradeSummary
	deleted     []string
	invalidated []string
}

func newRecordingCache() *recordingCache {
	return &recordingCache{entries: map[string]models.StudentGradeSummary{}}
}

func (c *recordingCache) Get(_ context.Context, key string, dest interface{}) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.entries[key]
	if !ok {
		return false, nil
	}
	*(dest.(*models.StudentGradeSummary)) = v
	return true, nil
}

func (c *recordingCache) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = value.(models.StudentGradeSummary)
	return nil
}

func (c *recordingCache) Delete(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.entries, k)
	}
	c.deleted = append(c.deleted, keys...)
	return nil
}

func (c *recordingCache) Invalidate(_ context.Context, pattern string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidated = append(c.invalidated, pattern)
	return nil
}
