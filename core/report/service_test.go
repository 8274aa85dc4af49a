package report_test

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/report"
	"github.com/trezcool/shule/core/tenant"
	inmemdb "github.com/trezcool/shule/storage/database/inmem"
)

type knownStudents map[string]bool

func (ks knownStudents) StudentExists(ctx context.Context, studentID string) (bool, error) {
	return ks[studentID], nil
}

func setup(t *testing.T, studentIDs ...string) *report.Service {
	t.Helper()
	known := make(knownStudents, len(studentIDs))
	for _, id := range studentIDs {
		known[id] = true
	}
	return report.NewService(inmemdb.NewReportRepository(inmemdb.NewDB()), known)
}

func newDailyReport(studentID, date string) report.NewDailyReport {
	return report.NewDailyReport{
		StudentID:    studentID,
		Date:         date,
		ClassLevelID: "cl1",
		GeneralNotes: "a good day",
		MoodBehavior: "cheerful",
		SubjectReports: []report.NewDailySubjectReport{
			{
				SubjectID:          "math",
				LearningObjectives: "counting to 20",
				RubricRating:       report.RubricWorking,
				PerformanceNotes:   "getting there",
				EngagementLevel:    report.EngagementHigh,
			},
		},
	}
}

func fieldErrors(t *testing.T, err error) map[string]string {
	t.Helper()
	var verr *core.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected *core.ValidationError, got %v", err)
	}
	flds := make(map[string]string, len(verr.Fields))
	for _, f := range verr.Fields {
		flds[f.Field] = f.Error
	}
	return flds
}

func TestService_CreateDaily(t *testing.T) {
	ctx := context.Background()
	svc := setup(t, "st1")

	rpt, err := svc.CreateDaily(ctx, newDailyReport("st1", "2021-03-01"), "tch1")
	assert.NoError(t, err)
	assert.NotEmpty(t, rpt.ID)
	assert.Equal(t, "tch1", rpt.TeacherID)
	if assert.Len(t, rpt.SubjectReports, 1) {
		assert.NotEmpty(t, rpt.SubjectReports[0].ID)
	}

	t.Run("duplicate (student, date) rejected", func(t *testing.T) {
		_, err := svc.CreateDaily(ctx, newDailyReport("st1", "2021-03-01"), "tch1")
		assert.Contains(t, fieldErrors(t, err), "date")
	})

	t.Run("unknown student rejected", func(t *testing.T) {
		_, err := svc.CreateDaily(ctx, newDailyReport("nope", "2021-03-02"), "tch1")
		assert.Contains(t, fieldErrors(t, err), "student_id")
	})

	t.Run("bad date rejected", func(t *testing.T) {
		_, err := svc.CreateDaily(ctx, newDailyReport("st1", "01/03/2021"), "tch1")
		assert.Contains(t, fieldErrors(t, err), "date")
	})
}

func TestService_UpdateDaily_subjectReplacement(t *testing.T) {
	ctx := context.Background()
	svc := setup(t, "st1")

	rpt, err := svc.CreateDaily(ctx, newDailyReport("st1", "2021-03-01"), "tch1")
	assert.NoError(t, err)
	origSubjID := rpt.SubjectReports[0].ID

	// nil SubjectReports: nested rows untouched
	upd, err := svc.UpdateDaily(ctx, rpt.ID, report.UpdateDailyReport{GeneralNotes: "amended"})
	assert.NoError(t, err)
	assert.Equal(t, "amended", upd.GeneralNotes)
	if assert.Len(t, upd.SubjectReports, 1) {
		assert.Equal(t, origSubjID, upd.SubjectReports[0].ID)
	}

	// non-nil SubjectReports: the whole nested set is replaced
	upd, err = svc.UpdateDaily(ctx, rpt.ID, report.UpdateDailyReport{
		SubjectReports: []report.NewDailySubjectReport{
			{
				SubjectID:          "science",
				LearningObjectives: "plants",
				RubricRating:       report.RubricIntroduced,
				PerformanceNotes:   "curious",
				EngagementLevel:    report.EngagementMedium,
			},
			{
				SubjectID:          "art",
				LearningObjectives: "colors",
				RubricRating:       report.RubricMastered,
				PerformanceNotes:   "loves it",
				EngagementLevel:    report.EngagementHigh,
			},
		},
	})
	assert.NoError(t, err)
	if assert.Len(t, upd.SubjectReports, 2) {
		assert.Equal(t, "science", upd.SubjectReports[0].SubjectID)
		assert.NotEqual(t, origSubjID, upd.SubjectReports[0].ID)
	}
}

func TestService_SendToParent(t *testing.T) {
	ctx := context.Background()
	svc := setup(t, "st1")

	rpt, err := svc.CreateDaily(ctx, newDailyReport("st1", "2021-03-01"), "tch1")
	assert.NoError(t, err)
	assert.False(t, rpt.SentToParent)
	assert.Nil(t, rpt.SentAt)

	sent, err := svc.SendToParent(ctx, rpt.ID)
	assert.NoError(t, err)
	assert.True(t, sent.SentToParent)
	if assert.NotNil(t, sent.SentAt) {
		firstSentAt := *sent.SentAt

		// re-sending refreshes the timestamp
		time.Sleep(10 * time.Millisecond)
		resent, err := svc.SendToParent(ctx, rpt.ID)
		assert.NoError(t, err)
		assert.True(t, resent.SentToParent)
		assert.True(t, resent.SentAt.After(firstSentAt))
	}

	_, err = svc.SendToParent(ctx, "missing")
	assert.Equal(t, report.ErrNotFound, errors.Cause(err))
}

func TestService_BulkCreateDaily(t *testing.T) {
	ctx := context.Background()
	svc := setup(t, "st1", "st2")

	res := svc.BulkCreateDaily(ctx, report.BulkDailyReports{
		Reports: []report.NewDailyReport{
			newDailyReport("st1", "2021-03-01"),
			newDailyReport("ghost", "2021-03-01"), // unknown student
			newDailyReport("st2", "2021-03-01"),
		},
	}, "tch1")

	// one bad entry never aborts the batch
	assert.Len(t, res.SuccessfullyCreated, 2)
	if assert.Len(t, res.Errors, 1) {
		assert.Equal(t, 1, res.Errors[0].Index)
		assert.Equal(t, "ghost", res.Errors[0].IdentifyingField)
		assert.Contains(t, res.Errors[0].Errors, "student_id")
	}
}

func newWeeklyReport(studentID, start, end string) report.NewWeeklyReport {
	return report.NewWeeklyReport{
		StudentID:           studentID,
		WeekStart:           start,
		WeekEnd:             end,
		ClassLevelID:        "cl1",
		WeeklySummary:       "steady progress",
		Strengths:           "reading",
		AreasForImprovement: "writing",
		BehavioralSummary:   "calm",
		AcademicHighlights:  "first full sentence",
		DaysPresent:         4,
		DaysAbsent:          1,
		NextWeekFocus:       "writing",
	}
}

func TestService_CreateWeekly(t *testing.T) {
	ctx := context.Background()
	svc := setup(t, "st1")

	rpt, err := svc.CreateWeekly(ctx, newWeeklyReport("st1", "2021-03-01", "2021-03-07"), "tch1")
	assert.NoError(t, err)
	assert.NotEmpty(t, rpt.ID)
	assert.Equal(t, rpt.WeekStart.AddDate(0, 0, 6), rpt.WeekEnd)

	t.Run("window must span exactly 7 days", func(t *testing.T) {
		_, err := svc.CreateWeekly(ctx, newWeeklyReport("st1", "2021-03-08", "2021-03-13"), "tch1")
		assert.Contains(t, fieldErrors(t, err), "week_end_date")
	})

	t.Run("attendance tallies cannot exceed 7", func(t *testing.T) {
		nw := newWeeklyReport("st1", "2021-03-08", "2021-03-14")
		nw.DaysPresent, nw.DaysAbsent, nw.DaysLate = 5, 2, 1
		_, err := svc.CreateWeekly(ctx, nw, "tch1")
		assert.Contains(t, fieldErrors(t, err), "days_present")
	})

	t.Run("duplicate (student, week start) rejected", func(t *testing.T) {
		_, err := svc.CreateWeekly(ctx, newWeeklyReport("st1", "2021-03-01", "2021-03-07"), "tch1")
		assert.Contains(t, fieldErrors(t, err), "week_start_date")
	})
}

func newTermReport(studentID string, term report.Term) report.NewTermReport {
	return report.NewTermReport{
		StudentID:           studentID,
		AcademicYear:        "2020-2021",
		Term:                term,
		ClassLevelID:        "cl1",
		TotalSchoolDays:     60,
		DaysPresent:         54,
		DaysAbsent:          6,
		BehaviorRating:      "good",
		TeacherComment:      "a pleasure to teach",
		Strengths:           "numeracy",
		AreasForImprovement: "focus",
		Recommendations:     "keep reading at home",
		SubjectReports: []report.NewTermSubjectReport{
			{
				SubjectID:       "math",
				ExamScore:       90,
				ContinuousScore: 80,
				Participation:   100,
				OverallRubric:   report.RubricMastered,
				SubjectComment:  "strong",
			},
		},
	}
}

func TestService_CreateTerm(t *testing.T) {
	ctx := context.Background()
	svc := setup(t, "st1")

	rpt, err := svc.CreateTerm(ctx, newTermReport("st1", report.TermFirst), "tch1")
	assert.NoError(t, err)
	assert.NotEmpty(t, rpt.ID)
	assert.InDelta(t, 90.0, rpt.AttendancePercentage, 1e-9)
	assert.True(t, rpt.PromotedToNextLevel) // defaults to promoted

	// totals and grades are derived, never trusted from input
	if assert.Len(t, rpt.SubjectReports, 1) {
		sr := rpt.SubjectReports[0]
		assert.InDelta(t, 89.0, sr.TotalScore, 1e-9) // 90*.6 + 80*.25 + 100*.15
		assert.Equal(t, "A-", sr.Grade)
	}

	t.Run("duplicate (student, year, term) rejected", func(t *testing.T) {
		_, err := svc.CreateTerm(ctx, newTermReport("st1", report.TermFirst), "tch1")
		assert.Contains(t, fieldErrors(t, err), "term")
	})
}

func TestService_duplicateSubjectsRejected(t *testing.T) {
	ctx := context.Background()
	svc := setup(t, "st1")

	t.Run("daily", func(t *testing.T) {
		nd := newDailyReport("st1", "2021-04-01")
		nd.SubjectReports = append(nd.SubjectReports, nd.SubjectReports[0])
		_, err := svc.CreateDaily(ctx, nd, "tch1")
		assert.Contains(t, fieldErrors(t, err), "subject_reports[1].subject_id")

		rpt, err := svc.CreateDaily(ctx, newDailyReport("st1", "2021-04-02"), "tch1")
		assert.NoError(t, err)
		_, err = svc.UpdateDaily(ctx, rpt.ID, report.UpdateDailyReport{
			SubjectReports: []report.NewDailySubjectReport{{SubjectID: "math"}, {SubjectID: "math"}},
		})
		assert.Contains(t, fieldErrors(t, err), "subject_reports[1].subject_id")
	})

	t.Run("weekly", func(t *testing.T) {
		nw := newWeeklyReport("st1", "2021-04-05", "2021-04-11")
		nw.SubjectSummaries = []report.NewWeeklySubjectSummary{{SubjectID: "math"}, {SubjectID: "math"}}
		_, err := svc.CreateWeekly(ctx, nw, "tch1")
		assert.Contains(t, fieldErrors(t, err), "subject_summaries[1].subject_id")
	})

	t.Run("term", func(t *testing.T) {
		nt := newTermReport("st1", report.TermThird)
		nt.SubjectReports = append(nt.SubjectReports, nt.SubjectReports[0])
		_, err := svc.CreateTerm(ctx, nt, "tch1")
		assert.Contains(t, fieldErrors(t, err), "subject_reports[1].subject_id")
	})
}

func TestService_FinalizeTerm(t *testing.T) {
	ctx := context.Background()
	svc := setup(t, "st1", "st2")

	t.Run("requires at least one subject report", func(t *testing.T) {
		nt := newTermReport("st2", report.TermFirst)
		nt.SubjectReports = nil
		rpt, err := svc.CreateTerm(ctx, nt, "tch1")
		assert.NoError(t, err)

		_, err = svc.Finalize(ctx, rpt.ID)
		assert.Equal(t, report.ErrMissingSubjectReports, errors.Cause(err))
		assert.Contains(t, fieldErrors(t, err), "subject_reports")
	})

	rpt, err := svc.CreateTerm(ctx, newTermReport("st1", report.TermFirst), "tch1")
	assert.NoError(t, err)

	fin, err := svc.Finalize(ctx, rpt.ID)
	assert.NoError(t, err)
	assert.True(t, fin.Finalized)
	assert.NotNil(t, fin.FinalizedAt)

	t.Run("finalizing twice is a no-op", func(t *testing.T) {
		again, err := svc.Finalize(ctx, rpt.ID)
		assert.NoError(t, err)
		assert.True(t, again.Finalized)
		assert.Equal(t, fin.FinalizedAt, again.FinalizedAt)
	})

	t.Run("unfinalize reopens the report", func(t *testing.T) {
		unf, err := svc.Unfinalize(ctx, rpt.ID)
		assert.NoError(t, err)
		assert.False(t, unf.Finalized)
		assert.Nil(t, unf.FinalizedAt)
	})
}

func TestService_parentReads(t *testing.T) {
	ctx := context.Background()
	svc := setup(t, "st1")

	sent, err := svc.CreateDaily(ctx, newDailyReport("st1", "2021-03-01"), "tch1")
	assert.NoError(t, err)
	_, err = svc.CreateDaily(ctx, newDailyReport("st1", "2021-03-02"), "tch1")
	assert.NoError(t, err)
	_, err = svc.SendToParent(ctx, sent.ID)
	assert.NoError(t, err)

	// only sent daily reports are visible to parents
	daily, err := svc.DailyForParent(ctx, "st1")
	assert.NoError(t, err)
	if assert.Len(t, daily, 1) {
		assert.Equal(t, sent.ID, daily[0].ID)
	}

	// only finalized term reports are visible to parents
	tr, err := svc.CreateTerm(ctx, newTermReport("st1", report.TermFirst), "tch1")
	assert.NoError(t, err)
	terms, err := svc.TermForParent(ctx, "st1")
	assert.NoError(t, err)
	assert.Empty(t, terms)

	_, err = svc.Finalize(ctx, tr.ID)
	assert.NoError(t, err)
	terms, err = svc.TermForParent(ctx, "st1")
	assert.NoError(t, err)
	assert.Len(t, terms, 1)
}

func TestService_tenantIsolation(t *testing.T) {
	svc := setup(t, "st1")
	ctxA := tenant.NewContext(context.Background(), tenant.School{Name: "Acacia", SchemaName: "acacia"})
	ctxB := tenant.NewContext(context.Background(), tenant.School{Name: "Baobab", SchemaName: "baobab"})

	rpt, err := svc.CreateDaily(ctxA, newDailyReport("st1", "2021-03-01"), "tch1")
	assert.NoError(t, err)

	_, err = svc.GetDaily(ctxB, rpt.ID)
	assert.Equal(t, report.ErrNotFound, errors.Cause(err))

	got, err := svc.GetDaily(ctxA, rpt.ID)
	assert.NoError(t, err)
	assert.Equal(t, rpt.ID, got.ID)
}
