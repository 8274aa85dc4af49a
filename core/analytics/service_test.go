package analytics_test

import (
	"context"
	"io"
	"log"
	"testing"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/analytics"
	"github.com/trezcool/shule/core/attendance"
	"github.com/trezcool/shule/core/profile"
	"github.com/trezcool/shule/core/report"
	"github.com/trezcool/shule/core/tenant"
	"github.com/trezcool/shule/core/user"
	inmemdb "github.com/trezcool/shule/storage/database/inmem"
)

const schoolName = "Acacia Primary"

type testEnv struct {
	ctx           context.Context
	profileSvc    *profile.Service
	attendanceSvc *attendance.Service
	reportSvc     *report.Service
	analyticsSvc  *analytics.Service
}

func setup(t *testing.T) *testEnv {
	t.Helper()
	conf := &core.Config{AppName: "Shule", TestMode: true, DefaultAdminPassword: "Default_password12345!"}
	logger := core.NewStdLogger(log.New(io.Discard, "", 0))

	validate := validator.New()
	lang := en.New()
	translator, _ := ut.New(lang, lang).GetTranslator("en")
	core.InitValidators(validate, translator)
	user.RegisterValidators(validate, translator)

	db := inmemdb.NewDB()
	usrSvc := user.NewService(inmemdb.NewUserRepository(db), nil, conf, validate)
	tenantSvc := tenant.NewService(inmemdb.NewSchoolRepository(db), nil, logger)
	profileSvc := profile.NewService(inmemdb.NewProfileRepository(db), usrSvc, tenantSvc, conf, logger)
	tenantSvc.SetBootstrapper(profileSvc)
	attendanceSvc := attendance.NewService(inmemdb.NewAttendanceRepository(db), profileSvc)
	reportSvc := report.NewService(inmemdb.NewReportRepository(db), profileSvc)
	analyticsSvc := analytics.NewService(profileSvc, attendanceSvc, reportSvc)

	sch := tenant.School{Name: schoolName, SchemaName: tenant.SchemaNameFor(schoolName)}
	if _, err := inmemdb.NewSchoolRepository(db).CreateSchool(context.Background(), sch); err != nil {
		t.Fatalf("setup() failed: %v", err)
	}

	return &testEnv{
		ctx:           tenant.NewContext(context.Background(), sch),
		profileSvc:    profileSvc,
		attendanceSvc: attendanceSvc,
		reportSvc:     reportSvc,
		analyticsSvc:  analyticsSvc,
	}
}

func (env *testEnv) createStudent(t *testing.T, admission, classLevelID string) string {
	t.Helper()
	res, err := env.profileSvc.CreateStudent(env.ctx, profile.NewStudent{
		Username:        "student-" + admission,
		FirstName:       "Amani",
		LastName:        "Mwangi",
		Email:           admission + "@students.example.com",
		Password:        "LeKePa55#",
		School:          schoolName,
		AdmissionNumber: admission,
		DateOfBirth:     "2016-04-12",
		ParentName:      "Grace Mwangi",
		ParentContact:   "+254700000000",
		ParentEmail:     admission + ".parent@example.com",
		Address:         "12 Acacia Lane",
		ClassLevelID:    classLevelID,
		AcademicYear:    "2020-2021",
	})
	if err != nil {
		t.Fatalf("createStudent() failed: %v", err)
	}
	return res.ID
}

func (env *testEnv) createTermReport(t *testing.T, studentID, year string, term report.Term, scores map[string]float64) report.TermReport {
	t.Helper()
	nt := report.NewTermReport{
		StudentID:           studentID,
		AcademicYear:        year,
		Term:                term,
		ClassLevelID:        "cl1",
		TotalSchoolDays:     60,
		DaysPresent:         54,
		DaysAbsent:          6,
		BehaviorRating:      "good",
		TeacherComment:      "solid term",
		Strengths:           "numeracy",
		AreasForImprovement: "focus",
		Recommendations:     "keep reading",
	}
	for subj, exam := range scores {
		nt.SubjectReports = append(nt.SubjectReports, report.NewTermSubjectReport{
			SubjectID:       subj,
			ExamScore:       exam,
			ContinuousScore: exam,
			Participation:   exam,
			OverallRubric:   report.RubricWorking,
			SubjectComment:  "noted",
		})
	}
	tr, err := env.reportSvc.CreateTerm(env.ctx, nt, "tch1")
	if err != nil {
		t.Fatalf("createTermReport() failed: %v", err)
	}
	return tr
}

func TestService_Dashboard(t *testing.T) {
	env := setup(t)
	today := time.Date(2021, 5, 10, 0, 0, 0, 0, time.UTC)

	st1 := env.createStudent(t, "ADM001", "cl1")
	st2 := env.createStudent(t, "ADM002", "cl1")

	_, err := env.reportSvc.CreateDaily(env.ctx, report.NewDailyReport{
		StudentID:    st1,
		Date:         "2021-05-10",
		ClassLevelID: "cl1",
		GeneralNotes: "a good day",
		MoodBehavior: "cheerful",
	}, "tch1")
	assert.NoError(t, err)

	_, err = env.attendanceSvc.Upsert(env.ctx, attendance.UpsertRecord{StudentID: st1, Date: "2021-05-10", Status: attendance.StatusPresent}, "tch1")
	assert.NoError(t, err)

	dash, err := env.analyticsSvc.Dashboard(env.ctx, today)
	assert.NoError(t, err)
	assert.Equal(t, 2, dash.TotalStudents)
	assert.Equal(t, 1, dash.DailyCompletedToday)
	assert.Equal(t, 1, dash.DailyPendingToday)
	assert.Equal(t, "2020-2021", dash.AcademicYear) // May sits in the prior September's year
	assert.InDelta(t, 100.0, dash.AttendanceRateToday, 1e-9)
	assert.Len(t, dash.RecentReports, 1)

	t.Run("academic year rolls over in September", func(t *testing.T) {
		dash, err := env.analyticsSvc.Dashboard(env.ctx, time.Date(2021, 9, 1, 0, 0, 0, 0, time.UTC))
		assert.NoError(t, err)
		assert.Equal(t, "2021-2022", dash.AcademicYear)
	})

	t.Run("pending can go negative when students leave the roll", func(t *testing.T) {
		assert.NoError(t, env.profileSvc.DeleteStudent(env.ctx, st1))
		assert.NoError(t, env.profileSvc.DeleteStudent(env.ctx, st2))

		dash, err := env.analyticsSvc.Dashboard(env.ctx, today)
		assert.NoError(t, err)
		assert.Equal(t, 0, dash.TotalStudents)
		assert.Equal(t, -1, dash.DailyPendingToday)
	})
}

func TestService_StudentProgress(t *testing.T) {
	env := setup(t)
	st := env.createStudent(t, "ADM001", "cl1")

	env.createTermReport(t, st, "2020-2021", report.TermSecond, map[string]float64{"math": 80})
	env.createTermReport(t, st, "2020-2021", report.TermFirst, map[string]float64{"math": 60})
	env.createTermReport(t, st, "2021-2022", report.TermFirst, map[string]float64{"math": 90})

	for _, day := range []string{"2021-03-01", "2021-03-02", "2021-03-03", "2021-03-04"} {
		status := attendance.StatusPresent
		if day == "2021-03-04" {
			status = attendance.StatusAbsent
		}
		_, err := env.attendanceSvc.Upsert(env.ctx, attendance.UpsertRecord{StudentID: st, Date: day, Status: status}, "tch1")
		assert.NoError(t, err)
	}

	prog, err := env.analyticsSvc.StudentProgress(env.ctx, st)
	assert.NoError(t, err)
	assert.Equal(t, st, prog.StudentID)
	assert.Equal(t, 3, prog.DaysPresent)
	assert.Equal(t, 1, prog.DaysAbsent)
	assert.InDelta(t, 75.0, prog.AttendanceRate, 1e-9)

	// the score series is ordered by year then term
	if assert.Len(t, prog.SubjectProgress["math"], 3) {
		series := prog.SubjectProgress["math"]
		assert.Equal(t, report.TermFirst, series[0].Term)
		assert.InDelta(t, 60.0, series[0].TotalScore, 1e-9)
		assert.Equal(t, report.TermSecond, series[1].Term)
		assert.Equal(t, "2021-2022", series[2].AcademicYear)
		assert.InDelta(t, 90.0, series[2].TotalScore, 1e-9)
	}
	if assert.Len(t, prog.TermAverages, 3) {
		assert.InDelta(t, 60.0, prog.TermAverages[0].Average, 1e-9)
	}

	t.Run("unknown student", func(t *testing.T) {
		_, err := env.analyticsSvc.StudentProgress(env.ctx, "ghost")
		assert.Error(t, err)
	})
}

func TestService_ClassPerformance(t *testing.T) {
	env := setup(t)
	st1 := env.createStudent(t, "ADM001", "cl1")
	st2 := env.createStudent(t, "ADM002", "cl1")

	env.createTermReport(t, st1, "2020-2021", report.TermFirst, map[string]float64{"math": 90, "science": 70})
	env.createTermReport(t, st2, "2020-2021", report.TermFirst, map[string]float64{"math": 50, "science": 90})

	perf, err := env.analyticsSvc.ClassPerformance(env.ctx, "cl1", "2020-2021", report.TermFirst)
	assert.NoError(t, err)
	assert.Equal(t, 2, perf.StudentCount)
	assert.InDelta(t, 75.0, perf.ClassAverage, 1e-9)
	assert.InDelta(t, 70.0, perf.SubjectAverages["math"], 1e-9)
	assert.InDelta(t, 80.0, perf.SubjectAverages["science"], 1e-9)
	assert.Equal(t, map[string]int{"A": 2, "C": 1, "F": 1}, perf.GradeDistribution)
	assert.InDelta(t, 90.0, perf.AttendanceRate, 1e-9) // 54 of 60 days, both reports

	t.Run("empty class", func(t *testing.T) {
		perf, err := env.analyticsSvc.ClassPerformance(env.ctx, "empty", "2020-2021", report.TermFirst)
		assert.NoError(t, err)
		assert.Zero(t, perf.StudentCount)
		assert.Zero(t, perf.ClassAverage)
		assert.Empty(t, perf.GradeDistribution)
	})
}
