package report

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
)

var (
	// errors
	ErrNotFound              = errors.New("report not found")
	ErrDailyExists           = errors.New("a daily report already exists for this student and date")
	ErrWeeklyExists          = errors.New("a weekly report already exists for this student and week")
	ErrTermExists            = errors.New("a term report already exists for this student, year and term")
	ErrMissingSubjectReports = errors.New("cannot finalize a term report without subject reports")
)

type (
	// StudentChecker answers whether a student exists in the pinned tenant.
	StudentChecker interface {
		StudentExists(ctx context.Context, studentID string) (bool, error)
	}

	// Filter narrows report listings. Zero values are ignored.
	Filter struct {
		StudentID    string
		TeacherID    string
		ClassLevelID string
		Date         time.Time
		From         time.Time
		To           time.Time
		AcademicYear string
		Term         Term
		WeekStart    time.Time
		SentOnly     bool
		FinalizedOnly bool
		Limit        int
	}

	Repository interface {
		CreateDailyReport(ctx context.Context, rpt DailyReport) (DailyReport, error)
		GetDailyReportByID(ctx context.Context, id string) (DailyReport, error)
		GetDailyReport(ctx context.Context, studentID string, date time.Time) (DailyReport, error)
		QueryDailyReports(ctx context.Context, f Filter) ([]DailyReport, error)
		// UpdateDailyReport persists the report; when replaceSubjects is true
		// the nested rows are deleted and replaced with rpt.SubjectReports
		// atomically.
		UpdateDailyReport(ctx context.Context, rpt DailyReport, replaceSubjects bool) (DailyReport, error)
		DeleteDailyReport(ctx context.Context, id string) error

		CreateWeeklyReport(ctx context.Context, rpt WeeklyReport) (WeeklyReport, error)
		GetWeeklyReportByID(ctx context.Context, id string) (WeeklyReport, error)
		GetWeeklyReport(ctx context.Context, studentID string, weekStart time.Time) (WeeklyReport, error)
		QueryWeeklyReports(ctx context.Context, f Filter) ([]WeeklyReport, error)
		UpdateWeeklyReport(ctx context.Context, rpt WeeklyReport, replaceSubjects bool) (WeeklyReport, error)
		DeleteWeeklyReport(ctx context.Context, id string) error

		CreateTermReport(ctx context.Context, rpt TermReport) (TermReport, error)
		GetTermReportByID(ctx context.Context, id string) (TermReport, error)
		GetTermReport(ctx context.Context, studentID, academicYear string, term Term) (TermReport, error)
		QueryTermReports(ctx context.Context, f Filter) ([]TermReport, error)
		UpdateTermReport(ctx context.Context, rpt TermReport, replaceSubjects bool) (TermReport, error)
		DeleteTermReport(ctx context.Context, id string) error
	}

	Service struct {
		repo     Repository
		students StudentChecker
	}
)

func NewService(repo Repository, students StudentChecker) *Service {
	return &Service{repo: repo, students: students}
}

func (svc *Service) checkStudent(ctx context.Context, studentID string) error {
	ok, err := svc.students.StudentExists(ctx, studentID)
	if err != nil {
		return errors.Wrap(err, "checking student")
	}
	if !ok {
		return core.NewValidationError(
			errors.New("unknown student"),
			core.FieldError{Field: "student_id", Error: "student '" + studentID + "' does not exist"},
		)
	}
	return nil
}

func parseDate(field, val string) (time.Time, error) {
	d, err := time.Parse("2006-01-02", val)
	if err != nil {
		return time.Time{}, core.NewValidationError(err, core.FieldError{Field: field, Error: "invalid date, expected YYYY-MM-DD"})
	}
	return d, nil
}

// checkUniqueSubjects rejects payloads carrying the same subject twice; a
// report holds at most one entry per subject.
func checkUniqueSubjects(field string, subjectIDs []string) error {
	seen := make(map[string]int, len(subjectIDs))
	for i, id := range subjectIDs {
		if prev, dup := seen[id]; dup {
			return core.NewValidationError(
				errors.New("duplicate subject"),
				core.FieldError{
					Field: fmt.Sprintf("%s[%d].subject_id", field, i),
					Error: fmt.Sprintf("duplicate of entry %d", prev),
				},
			)
		}
		seen[id] = i
	}
	return nil
}

func checkUniqueDailySubjects(in []NewDailySubjectReport) error {
	ids := make([]string, len(in))
	for i, s := range in {
		ids[i] = s.SubjectID
	}
	return checkUniqueSubjects("subject_reports", ids)
}

func checkUniqueWeeklySubjects(in []NewWeeklySubjectSummary) error {
	ids := make([]string, len(in))
	for i, s := range in {
		ids[i] = s.SubjectID
	}
	return checkUniqueSubjects("subject_summaries", ids)
}

func checkUniqueTermSubjects(in []NewTermSubjectReport) error {
	ids := make([]string, len(in))
	for i, s := range in {
		ids[i] = s.SubjectID
	}
	return checkUniqueSubjects("subject_reports", ids)
}

// ---------------------------------------------------------------------------
// daily

func dailySubjectsFromInput(in []NewDailySubjectReport) []DailySubjectReport {
	out := make([]DailySubjectReport, 0, len(in))
	for _, s := range in {
		out = append(out, DailySubjectReport{
			SubjectID:          s.SubjectID,
			TopicsCovered:      s.TopicsCovered,
			LearningObjectives: s.LearningObjectives,
			RubricRating:       s.RubricRating,
			PerformanceNotes:   s.PerformanceNotes,
			ActivitiesDone:     s.ActivitiesDone,
			EngagementLevel:    s.EngagementLevel,
		})
	}
	return out
}

func (svc *Service) CreateDaily(ctx context.Context, nd NewDailyReport, teacherID string) (DailyReport, error) {
	if err := svc.checkStudent(ctx, nd.StudentID); err != nil {
		return DailyReport{}, err
	}
	if err := checkUniqueDailySubjects(nd.SubjectReports); err != nil {
		return DailyReport{}, err
	}
	date, err := parseDate("date", nd.Date)
	if err != nil {
		return DailyReport{}, err
	}
	if _, err := svc.repo.GetDailyReport(ctx, nd.StudentID, date); err == nil {
		return DailyReport{}, core.NewValidationError(ErrDailyExists, core.FieldError{Field: "date", Error: ErrDailyExists.Error()})
	} else if errors.Cause(err) != ErrNotFound {
		return DailyReport{}, err
	}

	now := time.Now().UTC()
	return svc.repo.CreateDailyReport(ctx, DailyReport{
		StudentID:            nd.StudentID,
		TeacherID:            teacherID,
		Date:                 date,
		ClassLevelID:         nd.ClassLevelID,
		GeneralNotes:         nd.GeneralNotes,
		MoodBehavior:         nd.MoodBehavior,
		SocialInteraction:    nd.SocialInteraction,
		PottyActivities:      nd.PottyActivities,
		MealNotes:            nd.MealNotes,
		NapTime:              nd.NapTime,
		DiaperChanges:        nd.DiaperChanges,
		HomeworkCompleted:    nd.HomeworkCompleted,
		HomeworkNotes:        nd.HomeworkNotes,
		ParentMessage:        nd.ParentMessage,
		RequiresParentAction: nd.RequiresParentAction,
		ParentActionRequired: nd.ParentActionRequired,
		SubjectReports:       dailySubjectsFromInput(nd.SubjectReports),
		CreatedAt:            now,
		UpdatedAt:            now,
	})
}

func (svc *Service) GetDaily(ctx context.Context, id string) (DailyReport, error) {
	return svc.repo.GetDailyReportByID(ctx, id)
}

func (svc *Service) QueryDaily(ctx context.Context, f Filter) ([]DailyReport, error) {
	return svc.repo.QueryDailyReports(ctx, f)
}

func (svc *Service) UpdateDaily(ctx context.Context, id string, ud UpdateDailyReport) (DailyReport, error) {
	rpt, err := svc.repo.GetDailyReportByID(ctx, id)
	if err != nil {
		return DailyReport{}, err
	}
	if ud.GeneralNotes != "" {
		rpt.GeneralNotes = ud.GeneralNotes
	}
	if ud.MoodBehavior != "" {
		rpt.MoodBehavior = ud.MoodBehavior
	}
	if ud.SocialInteraction != "" {
		rpt.SocialInteraction = ud.SocialInteraction
	}
	if ud.PottyActivities != "" {
		rpt.PottyActivities = ud.PottyActivities
	}
	if ud.MealNotes != "" {
		rpt.MealNotes = ud.MealNotes
	}
	if ud.NapTime != "" {
		rpt.NapTime = ud.NapTime
	}
	if ud.DiaperChanges != nil {
		rpt.DiaperChanges = ud.DiaperChanges
	}
	if ud.HomeworkCompleted != nil {
		rpt.HomeworkCompleted = *ud.HomeworkCompleted
	}
	if ud.HomeworkNotes != "" {
		rpt.HomeworkNotes = ud.HomeworkNotes
	}
	if ud.ParentMessage != "" {
		rpt.ParentMessage = ud.ParentMessage
	}
	if ud.RequiresParentAction != nil {
		rpt.RequiresParentAction = *ud.RequiresParentAction
	}
	if ud.ParentActionRequired != "" {
		rpt.ParentActionRequired = ud.ParentActionRequired
	}
	replace := ud.SubjectReports != nil
	if replace {
		if err := checkUniqueDailySubjects(ud.SubjectReports); err != nil {
			return DailyReport{}, err
		}
		rpt.SubjectReports = dailySubjectsFromInput(ud.SubjectReports)
	}
	rpt.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateDailyReport(ctx, rpt, replace)
}

func (svc *Service) DeleteDaily(ctx context.Context, id string) error {
	return svc.repo.DeleteDailyReport(ctx, id)
}

// SendToParent marks the report as delivered. The timestamp is refreshed on
// every call, including re-sends of an already sent report.
func (svc *Service) SendToParent(ctx context.Context, id string) (DailyReport, error) {
	rpt, err := svc.repo.GetDailyReportByID(ctx, id)
	if err != nil {
		return DailyReport{}, err
	}
	now := time.Now().UTC()
	rpt.SentToParent = true
	rpt.SentAt = &now
	rpt.UpdatedAt = now
	return svc.repo.UpdateDailyReport(ctx, rpt, false)
}

// BulkCreateDaily creates each report independently; failures never abort the
// batch. The result pairs created reports with indexed per-entry errors.
func (svc *Service) BulkCreateDaily(ctx context.Context, bulk BulkDailyReports, teacherID string) BulkResult {
	var res BulkResult
	res.SuccessfullyCreated = []DailyReport{}
	res.Errors = []BulkEntryError{}
	for i, nd := range bulk.Reports {
		rpt, err := svc.CreateDaily(ctx, nd, teacherID)
		if err != nil {
			res.Errors = append(res.Errors, bulkEntryError(i, nd.StudentID, err))
			continue
		}
		res.SuccessfullyCreated = append(res.SuccessfullyCreated, rpt)
	}
	return res
}

func bulkEntryError(idx int, studentID string, err error) BulkEntryError {
	e := BulkEntryError{Index: idx, IdentifyingField: studentID, Errors: map[string]string{}}
	var verr *core.ValidationError
	if errors.As(err, &verr) {
		for _, f := range verr.Fields {
			e.Errors[f.Field] = f.Error
		}
	} else {
		e.Errors["detail"] = err.Error()
	}
	return e
}

// ---------------------------------------------------------------------------
// weekly

func weeklySubjectsFromInput(in []NewWeeklySubjectSummary) []WeeklySubjectSummary {
	out := make([]WeeklySubjectSummary, 0, len(in))
	for _, s := range in {
		out = append(out, WeeklySubjectSummary{
			SubjectID:        s.SubjectID,
			TopicsCovered:    s.TopicsCovered,
			OverallRubric:    s.OverallRubric,
			ProgressNotes:    s.ProgressNotes,
			ImprovementAreas: s.ImprovementAreas,
		})
	}
	return out
}

func (svc *Service) CreateWeekly(ctx context.Context, nw NewWeeklyReport, teacherID string) (WeeklyReport, error) {
	if err := svc.checkStudent(ctx, nw.StudentID); err != nil {
		return WeeklyReport{}, err
	}
	if err := checkUniqueWeeklySubjects(nw.SubjectSummaries); err != nil {
		return WeeklyReport{}, err
	}
	start, err := parseDate("week_start_date", nw.WeekStart)
	if err != nil {
		return WeeklyReport{}, err
	}
	end, err := parseDate("week_end_date", nw.WeekEnd)
	if err != nil {
		return WeeklyReport{}, err
	}
	if !start.AddDate(0, 0, 6).Equal(end) {
		return WeeklyReport{}, core.NewValidationError(
			errors.New("invalid week window"),
			core.FieldError{Field: "week_end_date", Error: "week must span exactly 7 days (end = start + 6 days)"},
		)
	}
	if total := nw.DaysPresent + nw.DaysAbsent + nw.DaysLate; total > 7 {
		return WeeklyReport{}, core.NewValidationError(
			errors.New("invalid attendance tally"),
			core.FieldError{Field: "days_present", Error: "attendance tallies cannot exceed 7 days"},
		)
	}
	if _, err := svc.repo.GetWeeklyReport(ctx, nw.StudentID, start); err == nil {
		return WeeklyReport{}, core.NewValidationError(ErrWeeklyExists, core.FieldError{Field: "week_start_date", Error: ErrWeeklyExists.Error()})
	} else if errors.Cause(err) != ErrNotFound {
		return WeeklyReport{}, err
	}

	now := time.Now().UTC()
	return svc.repo.CreateWeeklyReport(ctx, WeeklyReport{
		StudentID:              nw.StudentID,
		TeacherID:              teacherID,
		WeekStart:              start,
		WeekEnd:                end,
		ClassLevelID:           nw.ClassLevelID,
		WeeklySummary:          nw.WeeklySummary,
		Strengths:              nw.Strengths,
		AreasForImprovement:    nw.AreasForImprovement,
		BehavioralSummary:      nw.BehavioralSummary,
		AcademicHighlights:     nw.AcademicHighlights,
		HomeworkCompletionRate: nw.HomeworkCompletionRate,
		DaysPresent:            nw.DaysPresent,
		DaysAbsent:             nw.DaysAbsent,
		DaysLate:               nw.DaysLate,
		HomeSupportSuggestions: nw.HomeSupportSuggestions,
		NextWeekFocus:          nw.NextWeekFocus,
		AdditionalNotes:        nw.AdditionalNotes,
		SubjectSummaries:       weeklySubjectsFromInput(nw.SubjectSummaries),
		CreatedAt:              now,
		UpdatedAt:              now,
	})
}

func (svc *Service) GetWeekly(ctx context.Context, id string) (WeeklyReport, error) {
	return svc.repo.GetWeeklyReportByID(ctx, id)
}

func (svc *Service) QueryWeekly(ctx context.Context, f Filter) ([]WeeklyReport, error) {
	return svc.repo.QueryWeeklyReports(ctx, f)
}

func (svc *Service) UpdateWeekly(ctx context.Context, id string, nw NewWeeklyReport) (WeeklyReport, error) {
	rpt, err := svc.repo.GetWeeklyReportByID(ctx, id)
	if err != nil {
		return WeeklyReport{}, err
	}
	if total := nw.DaysPresent + nw.DaysAbsent + nw.DaysLate; total > 7 {
		return WeeklyReport{}, core.NewValidationError(
			errors.New("invalid attendance tally"),
			core.FieldError{Field: "days_present", Error: "attendance tallies cannot exceed 7 days"},
		)
	}
	rpt.WeeklySummary = nw.WeeklySummary
	rpt.Strengths = nw.Strengths
	rpt.AreasForImprovement = nw.AreasForImprovement
	rpt.BehavioralSummary = nw.BehavioralSummary
	rpt.AcademicHighlights = nw.AcademicHighlights
	rpt.HomeworkCompletionRate = nw.HomeworkCompletionRate
	rpt.DaysPresent = nw.DaysPresent
	rpt.DaysAbsent = nw.DaysAbsent
	rpt.DaysLate = nw.DaysLate
	rpt.HomeSupportSuggestions = nw.HomeSupportSuggestions
	rpt.NextWeekFocus = nw.NextWeekFocus
	rpt.AdditionalNotes = nw.AdditionalNotes
	replace := nw.SubjectSummaries != nil
	if replace {
		if err := checkUniqueWeeklySubjects(nw.SubjectSummaries); err != nil {
			return WeeklyReport{}, err
		}
		rpt.SubjectSummaries = weeklySubjectsFromInput(nw.SubjectSummaries)
	}
	rpt.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateWeeklyReport(ctx, rpt, replace)
}

func (svc *Service) DeleteWeekly(ctx context.Context, id string) error {
	return svc.repo.DeleteWeeklyReport(ctx, id)
}

// ---------------------------------------------------------------------------
// term

// termSubjectsFromInput recomputes total and grade from the component scores;
// client-supplied values are never trusted.
func termSubjectsFromInput(in []NewTermSubjectReport) []TermSubjectReport {
	out := make([]TermSubjectReport, 0, len(in))
	for _, s := range in {
		total := TotalScore(s.ExamScore, s.ContinuousScore, s.Participation)
		out = append(out, TermSubjectReport{
			SubjectID:         s.SubjectID,
			ExamScore:         s.ExamScore,
			ContinuousScore:   s.ContinuousScore,
			Participation:     s.Participation,
			TotalScore:        total,
			Grade:             GradeFor(total),
			OverallRubric:     s.OverallRubric,
			SubjectComment:    s.SubjectComment,
			TopicsMastered:    s.TopicsMastered,
			TopicsNeedingWork: s.TopicsNeedingWork,
		})
	}
	return out
}

func (svc *Service) CreateTerm(ctx context.Context, nt NewTermReport, teacherID string) (TermReport, error) {
	if err := svc.checkStudent(ctx, nt.StudentID); err != nil {
		return TermReport{}, err
	}
	if err := checkUniqueTermSubjects(nt.SubjectReports); err != nil {
		return TermReport{}, err
	}
	if _, err := svc.repo.GetTermReport(ctx, nt.StudentID, nt.AcademicYear, nt.Term); err == nil {
		return TermReport{}, core.NewValidationError(ErrTermExists, core.FieldError{Field: "term", Error: ErrTermExists.Error()})
	} else if errors.Cause(err) != ErrNotFound {
		return TermReport{}, err
	}

	promoted := true
	if nt.PromotedToNextLevel != nil {
		promoted = *nt.PromotedToNextLevel
	}
	now := time.Now().UTC()
	return svc.repo.CreateTermReport(ctx, TermReport{
		StudentID:            nt.StudentID,
		TeacherID:            teacherID,
		AcademicYear:         nt.AcademicYear,
		Term:                 nt.Term,
		ClassLevelID:         nt.ClassLevelID,
		TotalSchoolDays:      nt.TotalSchoolDays,
		DaysPresent:          nt.DaysPresent,
		DaysAbsent:           nt.DaysAbsent,
		DaysLate:             nt.DaysLate,
		AttendancePercentage: AttendancePercentage(nt.DaysPresent, nt.TotalSchoolDays, 0),
		OverallGrade:         nt.OverallGrade,
		BehaviorRating:       nt.BehaviorRating,
		TeacherComment:       nt.TeacherComment,
		PrincipalComment:     nt.PrincipalComment,
		Strengths:            nt.Strengths,
		AreasForImprovement:  nt.AreasForImprovement,
		Recommendations:      nt.Recommendations,
		PromotedToNextLevel:  promoted,
		PromotionNotes:       nt.PromotionNotes,
		SubjectReports:       termSubjectsFromInput(nt.SubjectReports),
		CreatedAt:            now,
		UpdatedAt:            now,
	})
}

func (svc *Service) GetTerm(ctx context.Context, id string) (TermReport, error) {
	return svc.repo.GetTermReportByID(ctx, id)
}

func (svc *Service) QueryTerm(ctx context.Context, f Filter) ([]TermReport, error) {
	return svc.repo.QueryTermReports(ctx, f)
}

func (svc *Service) UpdateTerm(ctx context.Context, id string, nt NewTermReport) (TermReport, error) {
	rpt, err := svc.repo.GetTermReportByID(ctx, id)
	if err != nil {
		return TermReport{}, err
	}
	rpt.TotalSchoolDays = nt.TotalSchoolDays
	rpt.DaysPresent = nt.DaysPresent
	rpt.DaysAbsent = nt.DaysAbsent
	rpt.DaysLate = nt.DaysLate
	rpt.AttendancePercentage = AttendancePercentage(nt.DaysPresent, nt.TotalSchoolDays, rpt.AttendancePercentage)
	rpt.OverallGrade = nt.OverallGrade
	rpt.BehaviorRating = nt.BehaviorRating
	rpt.TeacherComment = nt.TeacherComment
	rpt.PrincipalComment = nt.PrincipalComment
	rpt.Strengths = nt.Strengths
	rpt.AreasForImprovement = nt.AreasForImprovement
	rpt.Recommendations = nt.Recommendations
	if nt.PromotedToNextLevel != nil {
		rpt.PromotedToNextLevel = *nt.PromotedToNextLevel
	}
	rpt.PromotionNotes = nt.PromotionNotes
	replace := nt.SubjectReports != nil
	if replace {
		if err := checkUniqueTermSubjects(nt.SubjectReports); err != nil {
			return TermReport{}, err
		}
		rpt.SubjectReports = termSubjectsFromInput(nt.SubjectReports)
	}
	rpt.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateTermReport(ctx, rpt, replace)
}

func (svc *Service) DeleteTerm(ctx context.Context, id string) error {
	return svc.repo.DeleteTermReport(ctx, id)
}

// Finalize locks a term report. It fails with ErrMissingSubjectReports when
// the report has no subject rows.
func (svc *Service) Finalize(ctx context.Context, id string) (TermReport, error) {
	rpt, err := svc.repo.GetTermReportByID(ctx, id)
	if err != nil {
		return TermReport{}, err
	}
	if len(rpt.SubjectReports) == 0 {
		return TermReport{}, core.NewValidationError(ErrMissingSubjectReports, core.FieldError{
			Field: "subject_reports", Error: ErrMissingSubjectReports.Error(),
		})
	}
	if rpt.Finalized {
		return rpt, nil
	}
	now := time.Now().UTC()
	rpt.Finalized = true
	rpt.FinalizedAt = &now
	rpt.UpdatedAt = now
	return svc.repo.UpdateTermReport(ctx, rpt, false)
}

// Unfinalize is the explicit admin reverse of Finalize.
func (svc *Service) Unfinalize(ctx context.Context, id string) (TermReport, error) {
	rpt, err := svc.repo.GetTermReportByID(ctx, id)
	if err != nil {
		return TermReport{}, err
	}
	rpt.Finalized = false
	rpt.FinalizedAt = nil
	rpt.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateTermReport(ctx, rpt, false)
}

// ---------------------------------------------------------------------------
// parent reads

// DailyForParent lists a child's daily reports visible to a parent: sent ones
// only, most recent first, capped at 10.
func (svc *Service) DailyForParent(ctx context.Context, studentID string) ([]DailyReport, error) {
	return svc.repo.QueryDailyReports(ctx, Filter{StudentID: studentID, SentOnly: true, Limit: 10})
}

// WeeklyForParent lists a child's weekly reports, most recent first, capped
// at 5.
func (svc *Service) WeeklyForParent(ctx context.Context, studentID string) ([]WeeklyReport, error) {
	return svc.repo.QueryWeeklyReports(ctx, Filter{StudentID: studentID, Limit: 5})
}

// TermForParent lists a child's finalized term reports only.
func (svc *Service) TermForParent(ctx context.Context, studentID string) ([]TermReport, error) {
	return svc.repo.QueryTermReports(ctx, Filter{StudentID: studentID, FinalizedOnly: true})
}
