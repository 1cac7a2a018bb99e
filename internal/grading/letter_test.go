package grading

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLetterGrade(t *testing.T) {
	tests := []struct {
		percentage float64
		want       string
	}{
		{100, "A"},
		{80, "A"},
		{79.99, "B+"},
		{75, "B+"},
		{74.99, "B"},
		{70, "B"},
		{65, "C+"},
		{60, "C"},
		{55, "D+"},
		{50, "D"},
		{49.99, "F"},
		{40, "F"},
		{0, "F"},
		{-5, "F"},
		{130, "A"},
		{math.NaN(), "F"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, LetterGrade(tt.percentage), "percentage %v", tt.percentage)
	}
}

func TestLetterGradeIsMonotonic(t *testing.T) {
	rank := map[string]int{"F": 0, "D": 1, "D+": 2, "C": 3, "C+": 4, "B": 5, "B+": 6, "A": 7}
	previous := rank[LetterGrade(-1)]
	for p := 0; p <= 10500; p++ {
		current := rank[LetterGrade(float64(p)/100)]
		if current < previous {
			t.Fatalf("grade dropped at %.2f", float64(p)/100)
		}
		previous = current
	}
}
