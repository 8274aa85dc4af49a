package report

// Grading weights: 60% exam, 25% continuous assessment, 15% participation.
const (
	examWeight          = 0.60
	assessmentWeight    = 0.25
	participationWeight = 0.15
)

// TotalScore computes the weighted subject total from component scores, each
// on a 0-100 scale.
func TotalScore(exam, assessment, participation float64) float64 {
	return exam*examWeight + assessment*assessmentWeight + participation*participationWeight
}

// GradeFor maps a total score to its letter grade. Thresholds are inclusive
// at the lower bound, so 95.0 is an A+.
func GradeFor(score float64) string {
	switch {
	case score >= 95:
		return "A+"
	case score >= 90:
		return "A"
	case score >= 87:
		return "A-"
	case score >= 84:
		return "B+"
	case score >= 80:
		return "B"
	case score >= 77:
		return "B-"
	case score >= 74:
		return "C+"
	case score >= 70:
		return "C"
	case score >= 67:
		return "C-"
	case score >= 64:
		return "D+"
	case score >= 60:
		return "D"
	}
	return "F"
}

// AttendancePercentage derives a term attendance rate; when totalDays is not
// positive the prior value is kept as is.
func AttendancePercentage(daysPresent, totalDays int, prior float64) float64 {
	if totalDays > 0 {
		return float64(daysPresent) / float64(totalDays) * 100
	}
	return prior
}
