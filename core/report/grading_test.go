package report

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTotalScore(t *testing.T) {
	tests := []struct {
		name                        string
		exam, assessment, partic    float64
		want                        float64
	}{
		{"all zeros", 0, 0, 0, 0},
		{"all perfect", 100, 100, 100, 100},
		{"exam only", 100, 0, 0, 60},
		{"assessment only", 0, 100, 0, 25},
		{"participation only", 0, 0, 100, 15},
		{"mixed", 80, 60, 40, 69},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, TotalScore(tt.exam, tt.assessment, tt.partic), 1e-9)
		})
	}
}

func TestGradeFor(t *testing.T) {
	tests := []struct {
		score float64
		want  string
	}{
		{100, "A+"},
		{95, "A+"}, // lower bound is inclusive
		{94.99, "A"},
		{90, "A"},
		{89.99, "A-"},
		{87, "A-"},
		{84, "B+"},
		{80, "B"},
		{77, "B-"},
		{74, "C+"},
		{70, "C"},
		{67, "C-"},
		{64, "D+"},
		{60, "D"},
		{59.99, "F"},
		{0, "F"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, GradeFor(tt.score), "GradeFor(%v)", tt.score)
	}
}

func TestAttendancePercentage(t *testing.T) {
	assert.InDelta(t, 80.0, AttendancePercentage(48, 60, 12.5), 1e-9)
	assert.InDelta(t, 100.0, AttendancePercentage(60, 60, 0), 1e-9)

	// no school days recorded: the prior value survives
	assert.InDelta(t, 12.5, AttendancePercentage(0, 0, 12.5), 1e-9)
	assert.InDelta(t, 12.5, AttendancePercentage(3, -1, 12.5), 1e-9)
}
