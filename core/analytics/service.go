package analytics

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/trezcool/shule/core/attendance"
	"github.com/trezcool/shule/core/profile"
	"github.com/trezcool/shule/core/report"
)

// Read-only reducers over the report hierarchy and the attendance ledger.
// Nothing in this package mutates.

type (
	Dashboard struct {
		TotalStudents        int                  `json:"total_students"`
		DailyCompletedToday  int                  `json:"daily_reports_completed_today"`
		DailyPendingToday    int                  `json:"daily_reports_pending_today"`
		WeeklyThisWeek       int                  `json:"weekly_reports_this_week"`
		TermFinalizedThisYear int                 `json:"term_reports_finalized_this_year"`
		AcademicYear         string               `json:"academic_year"`
		AttendanceRateToday  float64              `json:"attendance_rate_today"`
		RecentReports        []report.DailyReport `json:"recent_reports"`
	}

	SubjectProgressPoint struct {
		AcademicYear string      `json:"academic_year"`
		Term         report.Term `json:"term"`
		TotalScore   float64     `json:"total_score"`
		Grade        string      `json:"grade"`
		Rubric       report.Rubric `json:"rubric"`
	}

	TermAverage struct {
		AcademicYear string      `json:"academic_year"`
		Term         report.Term `json:"term"`
		Average      float64     `json:"average"`
	}

	StudentProgress struct {
		StudentID       string                            `json:"student_id"`
		DaysPresent     int                               `json:"days_present"`
		DaysAbsent      int                               `json:"days_absent"`
		DaysLate        int                               `json:"days_late"`
		AttendanceRate  float64                           `json:"attendance_rate"`
		SubjectProgress map[string][]SubjectProgressPoint `json:"subject_progress"`
		TermAverages    []TermAverage                     `json:"term_averages"`
	}

	ClassPerformance struct {
		ClassLevelID      string             `json:"class_level_id"`
		AcademicYear      string             `json:"academic_year"`
		Term              report.Term        `json:"term"`
		StudentCount      int                `json:"student_count"`
		ClassAverage      float64            `json:"class_average"`
		SubjectAverages   map[string]float64 `json:"subject_averages"`
		GradeDistribution map[string]int     `json:"grade_distribution"`
		AttendanceRate    float64            `json:"attendance_rate"`
	}

	Service struct {
		profiles   *profile.Service
		attendance *attendance.Service
		reports    *report.Service
	}
)

func NewService(profiles *profile.Service, att *attendance.Service, reports *report.Service) *Service {
	return &Service{profiles: profiles, attendance: att, reports: reports}
}

// academicYearFor computes the "YYYY-YYYY+1" academic year containing t; the
// year rolls over in September.
func academicYearFor(t time.Time) string {
	y := t.Year()
	if t.Month() < time.September {
		y--
	}
	return fmt.Sprintf("%d-%d", y, y+1)
}

// weekStartFor returns the Monday of t's week.
func weekStartFor(t time.Time) time.Time {
	weekday := int(t.Weekday())
	if weekday == 0 {
		weekday = 7
	}
	return t.AddDate(0, 0, 1-weekday)
}

// Dashboard summarizes today's activity for school staff. Pending counts are
// total students minus completed reports and can go negative when reports
// exist for students outside the roll; kept as the source data yields it.
func (svc *Service) Dashboard(ctx context.Context, today time.Time) (Dashboard, error) {
	students, err := svc.profiles.QueryStudents(ctx, "")
	if err != nil {
		return Dashboard{}, err
	}

	todaysDaily, err := svc.reports.QueryDaily(ctx, report.Filter{Date: today})
	if err != nil {
		return Dashboard{}, err
	}

	weekStart := weekStartFor(today)
	weekly, err := svc.reports.QueryWeekly(ctx, report.Filter{WeekStart: weekStart})
	if err != nil {
		return Dashboard{}, err
	}

	year := academicYearFor(today)
	finalized, err := svc.reports.QueryTerm(ctx, report.Filter{AcademicYear: year, FinalizedOnly: true})
	if err != nil {
		return Dashboard{}, err
	}

	recs, err := svc.attendance.QueryByDate(ctx, today)
	if err != nil {
		return Dashboard{}, err
	}
	var present int
	for _, rec := range recs {
		if rec.Status == attendance.StatusPresent {
			present++
		}
	}
	var rate float64
	if len(recs) > 0 {
		rate = float64(present) / float64(len(recs)) * 100
	}

	recent, err := svc.reports.QueryDaily(ctx, report.Filter{From: today.AddDate(0, 0, -7), To: today, Limit: 5})
	if err != nil {
		return Dashboard{}, err
	}

	return Dashboard{
		TotalStudents:         len(students),
		DailyCompletedToday:   len(todaysDaily),
		DailyPendingToday:     len(students) - len(todaysDaily),
		WeeklyThisWeek:        len(weekly),
		TermFinalizedThisYear: len(finalized),
		AcademicYear:          year,
		AttendanceRateToday:   rate,
		RecentReports:         recent,
	}, nil
}

// StudentProgress builds a per-subject score series over all of a student's
// term reports plus overall attendance totals.
func (svc *Service) StudentProgress(ctx context.Context, studentID string) (StudentProgress, error) {
	if _, err := svc.profiles.GetStudent(ctx, studentID); err != nil {
		return StudentProgress{}, err
	}

	sums, err := svc.attendance.RangeSummary(ctx, time.Time{}, time.Now().UTC(), attendance.SummaryFilter{StudentID: studentID})
	if err != nil {
		return StudentProgress{}, err
	}
	prog := StudentProgress{
		StudentID:       studentID,
		SubjectProgress: map[string][]SubjectProgressPoint{},
	}
	if len(sums) > 0 {
		prog.DaysPresent = sums[0].Present
		prog.DaysAbsent = sums[0].Absent
		prog.DaysLate = sums[0].Late
		prog.AttendanceRate = sums[0].Rate
	}

	terms, err := svc.reports.QueryTerm(ctx, report.Filter{StudentID: studentID})
	if err != nil {
		return StudentProgress{}, err
	}
	sort.Slice(terms, func(i, j int) bool {
		if terms[i].AcademicYear != terms[j].AcademicYear {
			return terms[i].AcademicYear < terms[j].AcademicYear
		}
		return termOrder(terms[i].Term) < termOrder(terms[j].Term)
	})
	for _, tr := range terms {
		var sum float64
		for _, sr := range tr.SubjectReports {
			prog.SubjectProgress[sr.SubjectID] = append(prog.SubjectProgress[sr.SubjectID], SubjectProgressPoint{
				AcademicYear: tr.AcademicYear,
				Term:         tr.Term,
				TotalScore:   sr.TotalScore,
				Grade:        sr.Grade,
				Rubric:       sr.OverallRubric,
			})
			sum += sr.TotalScore
		}
		avg := 0.0
		if n := len(tr.SubjectReports); n > 0 {
			avg = sum / float64(n)
		}
		prog.TermAverages = append(prog.TermAverages, TermAverage{
			AcademicYear: tr.AcademicYear,
			Term:         tr.Term,
			Average:      avg,
		})
	}
	return prog, nil
}

func termOrder(t report.Term) int {
	switch t {
	case report.TermFirst:
		return 1
	case report.TermSecond:
		return 2
	case report.TermThird:
		return 3
	}
	return 4
}

// ClassPerformance aggregates one class's term reports for a given year and
// term: class average, per-subject averages, grade histogram and the
// attendance rate over the class roll.
func (svc *Service) ClassPerformance(ctx context.Context, classLevelID, academicYear string, term report.Term) (ClassPerformance, error) {
	perf := ClassPerformance{
		ClassLevelID:      classLevelID,
		AcademicYear:      academicYear,
		Term:              term,
		SubjectAverages:   map[string]float64{},
		GradeDistribution: map[string]int{},
	}

	students, err := svc.profiles.QueryStudents(ctx, classLevelID)
	if err != nil {
		return ClassPerformance{}, err
	}
	perf.StudentCount = len(students)

	terms, err := svc.reports.QueryTerm(ctx, report.Filter{
		ClassLevelID: classLevelID,
		AcademicYear: academicYear,
		Term:         term,
	})
	if err != nil {
		return ClassPerformance{}, err
	}

	var (
		total        float64
		count        int
		subjectSums  = map[string]float64{}
		subjectCount = map[string]int{}
	)
	for _, tr := range terms {
		for _, sr := range tr.SubjectReports {
			total += sr.TotalScore
			count++
			subjectSums[sr.SubjectID] += sr.TotalScore
			subjectCount[sr.SubjectID]++
			perf.GradeDistribution[sr.Grade]++
		}
	}
	if count > 0 {
		perf.ClassAverage = total / float64(count)
	}
	for id, sum := range subjectSums {
		perf.SubjectAverages[id] = sum / float64(subjectCount[id])
	}

	var presentSum, totalSum int
	for _, tr := range terms {
		presentSum += tr.DaysPresent
		totalSum += tr.TotalSchoolDays
	}
	if totalSum > 0 {
		perf.AttendanceRate = float64(presentSum) / float64(totalSum) * 100
	}
	return perf, nil
}
