package sqlxrepos

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core/report"
)

type reportRepository struct {
	db *sqlx.DB
}

func NewReportRepository(db *sqlx.DB) report.Repository {
	return &reportRepository{db: db}
}

// cond accumulates WHERE clauses with positional args.
type cond struct {
	clauses []string
	args    []interface{}
}

func (c *cond) add(expr string, arg interface{}) {
	c.clauses = append(c.clauses, fmt.Sprintf(expr, len(c.args)+1))
	c.args = append(c.args, arg)
}

func (c *cond) where() string {
	if len(c.clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(c.clauses, " AND ")
}

// ---------------------------------------------------------------------------
// daily

const dailyCols = `id, student_id, teacher_id, date, class_level_id, general_notes, mood_behavior,
	social_interaction, potty_activities, meal_notes, nap_time, diaper_changes, homework_completed,
	homework_notes, parent_message, requires_parent_action, parent_action_required, sent_to_parent,
	sent_at, created_at, updated_at`

type dailyRow struct {
	ID                   string         `db:"id"`
	StudentID            string         `db:"student_id"`
	TeacherID            string         `db:"teacher_id"`
	Date                 time.Time      `db:"date"`
	ClassLevelID         sql.NullString `db:"class_level_id"`
	GeneralNotes         string         `db:"general_notes"`
	MoodBehavior         string         `db:"mood_behavior"`
	SocialInteraction    string         `db:"social_interaction"`
	PottyActivities      string         `db:"potty_activities"`
	MealNotes            string         `db:"meal_notes"`
	NapTime              string         `db:"nap_time"`
	DiaperChanges        sql.NullInt64  `db:"diaper_changes"`
	HomeworkCompleted    bool           `db:"homework_completed"`
	HomeworkNotes        string         `db:"homework_notes"`
	ParentMessage        string         `db:"parent_message"`
	RequiresParentAction bool           `db:"requires_parent_action"`
	ParentActionRequired string         `db:"parent_action_required"`
	SentToParent         bool           `db:"sent_to_parent"`
	SentAt               sql.NullTime   `db:"sent_at"`
	CreatedAt            sql.NullTime   `db:"created_at"`
	UpdatedAt            sql.NullTime   `db:"updated_at"`
}

func (r dailyRow) daily() report.DailyReport {
	rpt := report.DailyReport{
		ID:                   r.ID,
		StudentID:            r.StudentID,
		TeacherID:            r.TeacherID,
		Date:                 r.Date,
		ClassLevelID:         r.ClassLevelID.String,
		GeneralNotes:         r.GeneralNotes,
		MoodBehavior:         r.MoodBehavior,
		SocialInteraction:    r.SocialInteraction,
		PottyActivities:      r.PottyActivities,
		MealNotes:            r.MealNotes,
		NapTime:              r.NapTime,
		HomeworkCompleted:    r.HomeworkCompleted,
		HomeworkNotes:        r.HomeworkNotes,
		ParentMessage:        r.ParentMessage,
		RequiresParentAction: r.RequiresParentAction,
		ParentActionRequired: r.ParentActionRequired,
		SentToParent:         r.SentToParent,
		CreatedAt:            r.CreatedAt.Time,
		UpdatedAt:            r.UpdatedAt.Time,
	}
	if r.DiaperChanges.Valid {
		n := int(r.DiaperChanges.Int64)
		rpt.DiaperChanges = &n
	}
	if r.SentAt.Valid {
		t := r.SentAt.Time
		rpt.SentAt = &t
	}
	return rpt
}

type dailySubjectRow struct {
	ID                 string   `db:"id"`
	DailyReportID      string   `db:"daily_report_id"`
	SubjectID          string   `db:"subject_id"`
	TopicsCovered      strSlice `db:"topics_covered"`
	LearningObjectives string   `db:"learning_objectives"`
	RubricRating       string   `db:"rubric_rating"`
	PerformanceNotes   string   `db:"performance_notes"`
	ActivitiesDone     strSlice `db:"activities_completed"`
	EngagementLevel    string   `db:"engagement_level"`
}

func (r dailySubjectRow) subject() report.DailySubjectReport {
	return report.DailySubjectReport{
		ID:                 r.ID,
		SubjectID:          r.SubjectID,
		TopicsCovered:      r.TopicsCovered,
		LearningObjectives: r.LearningObjectives,
		RubricRating:       report.Rubric(r.RubricRating),
		PerformanceNotes:   r.PerformanceNotes,
		ActivitiesDone:     r.ActivitiesDone,
		EngagementLevel:    report.Engagement(r.EngagementLevel),
	}
}

func insertDailySubjects(ctx context.Context, tx *sqlx.Tx, reportID string, subs []report.DailySubjectReport) ([]report.DailySubjectReport, error) {
	for i := range subs {
		subs[i].ID = uuid.NewString()
		_, err := tx.ExecContext(ctx,
			`INSERT INTO `+table(ctx, "daily_subject_report")+`
			 (id, daily_report_id, subject_id, topics_covered, learning_objectives, rubric_rating,
			  performance_notes, activities_completed, engagement_level)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			subs[i].ID, reportID, subs[i].SubjectID, strSlice(subs[i].TopicsCovered), subs[i].LearningObjectives,
			string(subs[i].RubricRating), subs[i].PerformanceNotes, strSlice(subs[i].ActivitiesDone), string(subs[i].EngagementLevel),
		)
		if err != nil {
			return nil, errors.Wrap(err, "inserting daily subject report")
		}
	}
	return subs, nil
}

func (repo *reportRepository) CreateDailyReport(ctx context.Context, rpt report.DailyReport) (report.DailyReport, error) {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return report.DailyReport{}, errors.Wrap(err, "beginning tx")
	}
	rpt.ID = uuid.NewString()
	var diaper sql.NullInt64
	if rpt.DiaperChanges != nil {
		diaper = sql.NullInt64{Int64: int64(*rpt.DiaperChanges), Valid: true}
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO `+table(ctx, "daily_report")+` (`+dailyCols+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)`,
		rpt.ID, rpt.StudentID, rpt.TeacherID, rpt.Date, nullStr(rpt.ClassLevelID), rpt.GeneralNotes,
		rpt.MoodBehavior, rpt.SocialInteraction, rpt.PottyActivities, rpt.MealNotes, rpt.NapTime,
		diaper, rpt.HomeworkCompleted, rpt.HomeworkNotes, rpt.ParentMessage, rpt.RequiresParentAction,
		rpt.ParentActionRequired, rpt.SentToParent, rpt.SentAt, rpt.CreatedAt, rpt.UpdatedAt,
	)
	if err != nil {
		_ = tx.Rollback()
		return report.DailyReport{}, errors.Wrap(err, "inserting daily report")
	}
	if rpt.SubjectReports, err = insertDailySubjects(ctx, tx, rpt.ID, rpt.SubjectReports); err != nil {
		_ = tx.Rollback()
		return report.DailyReport{}, err
	}
	if err := tx.Commit(); err != nil {
		return report.DailyReport{}, errors.Wrap(err, "committing tx")
	}
	return rpt, nil
}

func (repo *reportRepository) loadDailySubjects(ctx context.Context, rpts []report.DailyReport) error {
	for i := range rpts {
		var rows []dailySubjectRow
		err := repo.db.SelectContext(ctx, &rows,
			`SELECT id, daily_report_id, subject_id, topics_covered, learning_objectives, rubric_rating,
			        performance_notes, activities_completed, engagement_level
			 FROM `+table(ctx, "daily_subject_report")+` WHERE daily_report_id = $1 ORDER BY subject_id`, rpts[i].ID)
		if err != nil {
			return errors.Wrap(err, "querying daily subject reports")
		}
		rpts[i].SubjectReports = make([]report.DailySubjectReport, 0, len(rows))
		for _, row := range rows {
			rpts[i].SubjectReports = append(rpts[i].SubjectReports, row.subject())
		}
	}
	return nil
}

func (repo *reportRepository) getDaily(ctx context.Context, q string, args ...interface{}) (report.DailyReport, error) {
	var row dailyRow
	err := repo.db.GetContext(ctx, &row, q, args...)
	if err == sql.ErrNoRows {
		return report.DailyReport{}, report.ErrNotFound
	}
	if err != nil {
		return report.DailyReport{}, errors.Wrap(err, "getting daily report")
	}
	rpts := []report.DailyReport{row.daily()}
	if err := repo.loadDailySubjects(ctx, rpts); err != nil {
		return report.DailyReport{}, err
	}
	return rpts[0], nil
}

func (repo *reportRepository) GetDailyReportByID(ctx context.Context, id string) (report.DailyReport, error) {
	return repo.getDaily(ctx, `SELECT `+dailyCols+` FROM `+table(ctx, "daily_report")+` WHERE id = $1`, id)
}

func (repo *reportRepository) GetDailyReport(ctx context.Context, studentID string, date time.Time) (report.DailyReport, error) {
	return repo.getDaily(ctx,
		`SELECT `+dailyCols+` FROM `+table(ctx, "daily_report")+` WHERE student_id = $1 AND date = $2`,
		studentID, date)
}

func (repo *reportRepository) QueryDailyReports(ctx context.Context, f report.Filter) ([]report.DailyReport, error) {
	var c cond
	if f.StudentID != "" {
		c.add("student_id = $%d", f.StudentID)
	}
	if f.TeacherID != "" {
		c.add("teacher_id = $%d", f.TeacherID)
	}
	if f.ClassLevelID != "" {
		c.add("class_level_id = $%d", f.ClassLevelID)
	}
	if !f.Date.IsZero() {
		c.add("date = $%d", f.Date)
	}
	if !f.From.IsZero() {
		c.add("date >= $%d", f.From)
	}
	if !f.To.IsZero() {
		c.add("date <= $%d", f.To)
	}
	if f.SentOnly {
		c.clauses = append(c.clauses, "sent_to_parent")
	}

	q := `SELECT ` + dailyCols + ` FROM ` + table(ctx, "daily_report") + c.where() + ` ORDER BY date DESC, student_id`
	if f.Limit > 0 {
		q += fmt.Sprintf(" LIMIT %d", f.Limit)
	}

	var rows []dailyRow
	if err := repo.db.SelectContext(ctx, &rows, q, c.args...); err != nil {
		return nil, errors.Wrap(err, "querying daily reports")
	}
	rpts := make([]report.DailyReport, 0, len(rows))
	for _, row := range rows {
		rpts = append(rpts, row.daily())
	}
	if err := repo.loadDailySubjects(ctx, rpts); err != nil {
		return nil, err
	}
	return rpts, nil
}

func (repo *reportRepository) UpdateDailyReport(ctx context.Context, rpt report.DailyReport, replaceSubjects bool) (report.DailyReport, error) {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return report.DailyReport{}, errors.Wrap(err, "beginning tx")
	}
	var diaper sql.NullInt64
	if rpt.DiaperChanges != nil {
		diaper = sql.NullInt64{Int64: int64(*rpt.DiaperChanges), Valid: true}
	}
	res, err := tx.ExecContext(ctx,
		`UPDATE `+table(ctx, "daily_report")+`
		 SET general_notes = $1, mood_behavior = $2, social_interaction = $3, potty_activities = $4,
		     meal_notes = $5, nap_time = $6, diaper_changes = $7, homework_completed = $8,
		     homework_notes = $9, parent_message = $10, requires_parent_action = $11,
		     parent_action_required = $12, sent_to_parent = $13, sent_at = $14, updated_at = $15
		 WHERE id = $16`,
		rpt.GeneralNotes, rpt.MoodBehavior, rpt.SocialInteraction, rpt.PottyActivities,
		rpt.MealNotes, rpt.NapTime, diaper, rpt.HomeworkCompleted, rpt.HomeworkNotes,
		rpt.ParentMessage, rpt.RequiresParentAction, rpt.ParentActionRequired,
		rpt.SentToParent, rpt.SentAt, rpt.UpdatedAt, rpt.ID,
	)
	if err != nil {
		_ = tx.Rollback()
		return report.DailyReport{}, errors.Wrap(err, "updating daily report")
	}
	if count, err := res.RowsAffected(); err == nil && count == 0 {
		_ = tx.Rollback()
		return report.DailyReport{}, report.ErrNotFound
	}
	if replaceSubjects {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM `+table(ctx, "daily_subject_report")+` WHERE daily_report_id = $1`, rpt.ID); err != nil {
			_ = tx.Rollback()
			return report.DailyReport{}, errors.Wrap(err, "clearing daily subject reports")
		}
		if rpt.SubjectReports, err = insertDailySubjects(ctx, tx, rpt.ID, rpt.SubjectReports); err != nil {
			_ = tx.Rollback()
			return report.DailyReport{}, err
		}
	}
	if err := tx.Commit(); err != nil {
		return report.DailyReport{}, errors.Wrap(err, "committing tx")
	}
	if !replaceSubjects {
		rpts := []report.DailyReport{rpt}
		if err := repo.loadDailySubjects(ctx, rpts); err != nil {
			return report.DailyReport{}, err
		}
		rpt = rpts[0]
	}
	return rpt, nil
}

func (repo *reportRepository) DeleteDailyReport(ctx context.Context, id string) error {
	if _, err := repo.db.ExecContext(ctx, `DELETE FROM `+table(ctx, "daily_report")+` WHERE id = $1`, id); err != nil {
		return errors.Wrap(err, "deleting daily report")
	}
	return nil
}

// ---------------------------------------------------------------------------
// weekly

const weeklyCols = `id, student_id, teacher_id, week_start_date, week_end_date, class_level_id,
	weekly_summary, strengths, areas_for_improvement, behavioral_summary, academic_highlights,
	homework_completion_rate, days_present, days_absent, days_late, home_support_suggestions,
	next_week_focus, additional_notes, created_at, updated_at`

type weeklyRow struct {
	ID                     string         `db:"id"`
	StudentID              string         `db:"student_id"`
	TeacherID              string         `db:"teacher_id"`
	WeekStart              time.Time      `db:"week_start_date"`
	WeekEnd                time.Time      `db:"week_end_date"`
	ClassLevelID           sql.NullString `db:"class_level_id"`
	WeeklySummary          string         `db:"weekly_summary"`
	Strengths              string         `db:"strengths"`
	AreasForImprovement    string         `db:"areas_for_improvement"`
	BehavioralSummary      string         `db:"behavioral_summary"`
	AcademicHighlights     string         `db:"academic_highlights"`
	HomeworkCompletionRate int            `db:"homework_completion_rate"`
	DaysPresent            int            `db:"days_present"`
	DaysAbsent             int            `db:"days_absent"`
	DaysLate               int            `db:"days_late"`
	HomeSupportSuggestions string         `db:"home_support_suggestions"`
	NextWeekFocus          string         `db:"next_week_focus"`
	AdditionalNotes        string         `db:"additional_notes"`
	CreatedAt              sql.NullTime   `db:"created_at"`
	UpdatedAt              sql.NullTime   `db:"updated_at"`
}

func (r weeklyRow) weekly() report.WeeklyReport {
	return report.WeeklyReport{
		ID:                     r.ID,
		StudentID:              r.StudentID,
		TeacherID:              r.TeacherID,
		WeekStart:              r.WeekStart,
		WeekEnd:                r.WeekEnd,
		ClassLevelID:           r.ClassLevelID.String,
		WeeklySummary:          r.WeeklySummary,
		Strengths:              r.Strengths,
		AreasForImprovement:    r.AreasForImprovement,
		BehavioralSummary:      r.BehavioralSummary,
		AcademicHighlights:     r.AcademicHighlights,
		HomeworkCompletionRate: r.HomeworkCompletionRate,
		DaysPresent:            r.DaysPresent,
		DaysAbsent:             r.DaysAbsent,
		DaysLate:               r.DaysLate,
		HomeSupportSuggestions: r.HomeSupportSuggestions,
		NextWeekFocus:          r.NextWeekFocus,
		AdditionalNotes:        r.AdditionalNotes,
		CreatedAt:              r.CreatedAt.Time,
		UpdatedAt:              r.UpdatedAt.Time,
	}
}

type weeklySubjectRow struct {
	ID               string   `db:"id"`
	WeeklyReportID   string   `db:"weekly_report_id"`
	SubjectID        string   `db:"subject_id"`
	TopicsCovered    strSlice `db:"topics_covered"`
	OverallRubric    string   `db:"overall_rubric"`
	ProgressNotes    string   `db:"progress_notes"`
	ImprovementAreas string   `db:"improvement_areas"`
}

func insertWeeklySubjects(ctx context.Context, tx *sqlx.Tx, reportID string, subs []report.WeeklySubjectSummary) ([]report.WeeklySubjectSummary, error) {
	for i := range subs {
		subs[i].ID = uuid.NewString()
		_, err := tx.ExecContext(ctx,
			`INSERT INTO `+table(ctx, "weekly_subject_summary")+`
			 (id, weekly_report_id, subject_id, topics_covered, overall_rubric, progress_notes, improvement_areas)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			subs[i].ID, reportID, subs[i].SubjectID, strSlice(subs[i].TopicsCovered),
			string(subs[i].OverallRubric), subs[i].ProgressNotes, subs[i].ImprovementAreas,
		)
		if err != nil {
			return nil, errors.Wrap(err, "inserting weekly subject summary")
		}
	}
	return subs, nil
}

func (repo *reportRepository) loadWeeklySubjects(ctx context.Context, rpts []report.WeeklyReport) error {
	for i := range rpts {
		var rows []weeklySubjectRow
		err := repo.db.SelectContext(ctx, &rows,
			`SELECT id, weekly_report_id, subject_id, topics_covered, overall_rubric, progress_notes, improvement_areas
			 FROM `+table(ctx, "weekly_subject_summary")+` WHERE weekly_report_id = $1 ORDER BY subject_id`, rpts[i].ID)
		if err != nil {
			return errors.Wrap(err, "querying weekly subject summaries")
		}
		rpts[i].SubjectSummaries = make([]report.WeeklySubjectSummary, 0, len(rows))
		for _, row := range rows {
			rpts[i].SubjectSummaries = append(rpts[i].SubjectSummaries, report.WeeklySubjectSummary{
				ID:               row.ID,
				SubjectID:        row.SubjectID,
				TopicsCovered:    row.TopicsCovered,
				OverallRubric:    report.Rubric(row.OverallRubric),
				ProgressNotes:    row.ProgressNotes,
				ImprovementAreas: row.ImprovementAreas,
			})
		}
	}
	return nil
}

func (repo *reportRepository) CreateWeeklyReport(ctx context.Context, rpt report.WeeklyReport) (report.WeeklyReport, error) {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return report.WeeklyReport{}, errors.Wrap(err, "beginning tx")
	}
	rpt.ID = uuid.NewString()
	_, err = tx.ExecContext(ctx,
		`INSERT INTO `+table(ctx, "weekly_report")+` (`+weeklyCols+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)`,
		rpt.ID, rpt.StudentID, rpt.TeacherID, rpt.WeekStart, rpt.WeekEnd, nullStr(rpt.ClassLevelID),
		rpt.WeeklySummary, rpt.Strengths, rpt.AreasForImprovement, rpt.BehavioralSummary,
		rpt.AcademicHighlights, rpt.HomeworkCompletionRate, rpt.DaysPresent, rpt.DaysAbsent,
		rpt.DaysLate, rpt.HomeSupportSuggestions, rpt.NextWeekFocus, rpt.AdditionalNotes,
		rpt.CreatedAt, rpt.UpdatedAt,
	)
	if err != nil {
		_ = tx.Rollback()
		return report.WeeklyReport{}, errors.Wrap(err, "inserting weekly report")
	}
	if rpt.SubjectSummaries, err = insertWeeklySubjects(ctx, tx, rpt.ID, rpt.SubjectSummaries); err != nil {
		_ = tx.Rollback()
		return report.WeeklyReport{}, err
	}
	if err := tx.Commit(); err != nil {
		return report.WeeklyReport{}, errors.Wrap(err, "committing tx")
	}
	return rpt, nil
}

func (repo *reportRepository) getWeekly(ctx context.Context, q string, args ...interface{}) (report.WeeklyReport, error) {
	var row weeklyRow
	err := repo.db.GetContext(ctx, &row, q, args...)
	if err == sql.ErrNoRows {
		return report.WeeklyReport{}, report.ErrNotFound
	}
	if err != nil {
		return report.WeeklyReport{}, errors.Wrap(err, "getting weekly report")
	}
	rpts := []report.WeeklyReport{row.weekly()}
	if err := repo.loadWeeklySubjects(ctx, rpts); err != nil {
		return report.WeeklyReport{}, err
	}
	return rpts[0], nil
}

func (repo *reportRepository) GetWeeklyReportByID(ctx context.Context, id string) (report.WeeklyReport, error) {
	return repo.getWeekly(ctx, `SELECT `+weeklyCols+` FROM `+table(ctx, "weekly_report")+` WHERE id = $1`, id)
}

func (repo *reportRepository) GetWeeklyReport(ctx context.Context, studentID string, weekStart time.Time) (report.WeeklyReport, error) {
	return repo.getWeekly(ctx,
		`SELECT `+weeklyCols+` FROM `+table(ctx, "weekly_report")+` WHERE student_id = $1 AND week_start_date = $2`,
		studentID, weekStart)
}

func (repo *reportRepository) QueryWeeklyReports(ctx context.Context, f report.Filter) ([]report.WeeklyReport, error) {
	var c cond
	if f.StudentID != "" {
		c.add("student_id = $%d", f.StudentID)
	}
	if f.TeacherID != "" {
		c.add("teacher_id = $%d", f.TeacherID)
	}
	if f.ClassLevelID != "" {
		c.add("class_level_id = $%d", f.ClassLevelID)
	}
	if !f.WeekStart.IsZero() {
		c.add("week_start_date = $%d", f.WeekStart)
	}

	q := `SELECT ` + weeklyCols + ` FROM ` + table(ctx, "weekly_report") + c.where() + ` ORDER BY week_start_date DESC, student_id`
	if f.Limit > 0 {
		q += fmt.Sprintf(" LIMIT %d", f.Limit)
	}

	var rows []weeklyRow
	if err := repo.db.SelectContext(ctx, &rows, q, c.args...); err != nil {
		return nil, errors.Wrap(err, "querying weekly reports")
	}
	rpts := make([]report.WeeklyReport, 0, len(rows))
	for _, row := range rows {
		rpts = append(rpts, row.weekly())
	}
	if err := repo.loadWeeklySubjects(ctx, rpts); err != nil {
		return nil, err
	}
	return rpts, nil
}

func (repo *reportRepository) UpdateWeeklyReport(ctx context.Context, rpt report.WeeklyReport, replaceSubjects bool) (report.WeeklyReport, error) {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return report.WeeklyReport{}, errors.Wrap(err, "beginning tx")
	}
	res, err := tx.ExecContext(ctx,
		`UPDATE `+table(ctx, "weekly_report")+`
		 SET weekly_summary = $1, strengths = $2, areas_for_improvement = $3, behavioral_summary = $4,
		     academic_highlights = $5, homework_completion_rate = $6, days_present = $7, days_absent = $8,
		     days_late = $9, home_support_suggestions = $10, next_week_focus = $11, additional_notes = $12,
		     updated_at = $13
		 WHERE id = $14`,
		rpt.WeeklySummary, rpt.Strengths, rpt.AreasForImprovement, rpt.BehavioralSummary,
		rpt.AcademicHighlights, rpt.HomeworkCompletionRate, rpt.DaysPresent, rpt.DaysAbsent,
		rpt.DaysLate, rpt.HomeSupportSuggestions, rpt.NextWeekFocus, rpt.AdditionalNotes,
		rpt.UpdatedAt, rpt.ID,
	)
	if err != nil {
		_ = tx.Rollback()
		return report.WeeklyReport{}, errors.Wrap(err, "updating weekly report")
	}
	if count, err := res.RowsAffected(); err == nil && count == 0 {
		_ = tx.Rollback()
		return report.WeeklyReport{}, report.ErrNotFound
	}
	if replaceSubjects {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM `+table(ctx, "weekly_subject_summary")+` WHERE weekly_report_id = $1`, rpt.ID); err != nil {
			_ = tx.Rollback()
			return report.WeeklyReport{}, errors.Wrap(err, "clearing weekly subject summaries")
		}
		if rpt.SubjectSummaries, err = insertWeeklySubjects(ctx, tx, rpt.ID, rpt.SubjectSummaries); err != nil {
			_ = tx.Rollback()
			return report.WeeklyReport{}, err
		}
	}
	if err := tx.Commit(); err != nil {
		return report.WeeklyReport{}, errors.Wrap(err, "committing tx")
	}
	if !replaceSubjects {
		rpts := []report.WeeklyReport{rpt}
		if err := repo.loadWeeklySubjects(ctx, rpts); err != nil {
			return report.WeeklyReport{}, err
		}
		rpt = rpts[0]
	}
	return rpt, nil
}

func (repo *reportRepository) DeleteWeeklyReport(ctx context.Context, id string) error {
	if _, err := repo.db.ExecContext(ctx, `DELETE FROM `+table(ctx, "weekly_report")+` WHERE id = $1`, id); err != nil {
		return errors.Wrap(err, "deleting weekly report")
	}
	return nil
}

// ---------------------------------------------------------------------------
// term

const termCols = `id, student_id, teacher_id, academic_year, term, class_level_id, total_school_days,
	days_present, days_absent, days_late, attendance_percentage, overall_grade, behavior_rating,
	teacher_comment, principal_comment, strengths, areas_for_improvement, recommendations,
	promoted_to_next_level, promotion_notes, finalized, finalized_at, created_at, updated_at`

type termRow struct {
	ID                   string         `db:"id"`
	StudentID            string         `db:"student_id"`
	TeacherID            string         `db:"teacher_id"`
	AcademicYear         string         `db:"academic_year"`
	Term                 string         `db:"term"`
	ClassLevelID         sql.NullString `db:"class_level_id"`
	TotalSchoolDays      int            `db:"total_school_days"`
	DaysPresent          int            `db:"days_present"`
	DaysAbsent           int            `db:"days_absent"`
	DaysLate             int            `db:"days_late"`
	AttendancePercentage float64        `db:"attendance_percentage"`
	OverallGrade         string         `db:"overall_grade"`
	BehaviorRating       string         `db:"behavior_rating"`
	TeacherComment       string         `db:"teacher_comment"`
	PrincipalComment     string         `db:"principal_comment"`
	Strengths            string         `db:"strengths"`
	AreasForImprovement  string         `db:"areas_for_improvement"`
	Recommendations      string         `db:"recommendations"`
	PromotedToNextLevel  bool           `db:"promoted_to_next_level"`
	PromotionNotes       string         `db:"promotion_notes"`
	Finalized            bool           `db:"finalized"`
	FinalizedAt          sql.NullTime   `db:"finalized_at"`
	CreatedAt            sql.NullTime   `db:"created_at"`
	UpdatedAt            sql.NullTime   `db:"updated_at"`
}

func (r termRow) term() report.TermReport {
	rpt := report.TermReport{
		ID:                   r.ID,
		StudentID:            r.StudentID,
		TeacherID:            r.TeacherID,
		AcademicYear:         r.AcademicYear,
		Term:                 report.Term(r.Term),
		ClassLevelID:         r.ClassLevelID.String,
		TotalSchoolDays:      r.TotalSchoolDays,
		DaysPresent:          r.DaysPresent,
		DaysAbsent:           r.DaysAbsent,
		DaysLate:             r.DaysLate,
		AttendancePercentage: r.AttendancePercentage,
		OverallGrade:         r.OverallGrade,
		BehaviorRating:       r.BehaviorRating,
		TeacherComment:       r.TeacherComment,
		PrincipalComment:     r.PrincipalComment,
		Strengths:            r.Strengths,
		AreasForImprovement:  r.AreasForImprovement,
		Recommendations:      r.Recommendations,
		PromotedToNextLevel:  r.PromotedToNextLevel,
		PromotionNotes:       r.PromotionNotes,
		Finalized:            r.Finalized,
		CreatedAt:            r.CreatedAt.Time,
		UpdatedAt:            r.UpdatedAt.Time,
	}
	if r.FinalizedAt.Valid {
		t := r.FinalizedAt.Time
		rpt.FinalizedAt = &t
	}
	return rpt
}

type termSubjectRow struct {
	ID                string   `db:"id"`
	TermReportID      string   `db:"term_report_id"`
	SubjectID         string   `db:"subject_id"`
	ExamScore         float64  `db:"exam_score"`
	ContinuousScore   float64  `db:"continuous_assessment"`
	Participation     float64  `db:"class_participation"`
	TotalScore        float64  `db:"total_score"`
	Grade             string   `db:"grade"`
	OverallRubric     string   `db:"overall_rubric"`
	SubjectComment    string   `db:"subject_comment"`
	TopicsMastered    strSlice `db:"key_topics_mastered"`
	TopicsNeedingWork strSlice `db:"topics_needing_work"`
}

func insertTermSubjects(ctx context.Context, tx *sqlx.Tx, reportID string, subs []report.TermSubjectReport) ([]report.TermSubjectReport, error) {
	for i := range subs {
		subs[i].ID = uuid.NewString()
		_, err := tx.ExecContext(ctx,
			`INSERT INTO `+table(ctx, "term_subject_report")+`
			 (id, term_report_id, subject_id, exam_score, continuous_assessment, class_participation,
			  total_score, grade, overall_rubric, subject_comment, key_topics_mastered, topics_needing_work)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
			subs[i].ID, reportID, subs[i].SubjectID, subs[i].ExamScore, subs[i].ContinuousScore,
			subs[i].Participation, subs[i].TotalScore, subs[i].Grade, string(subs[i].OverallRubric),
			subs[i].SubjectComment, strSlice(subs[i].TopicsMastered), strSlice(subs[i].TopicsNeedingWork),
		)
		if err != nil {
			return nil, errors.Wrap(err, "inserting term subject report")
		}
	}
	return subs, nil
}

func (repo *reportRepository) loadTermSubjects(ctx context.Context, rpts []report.TermReport) error {
	for i := range rpts {
		var rows []termSubjectRow
		err := repo.db.SelectContext(ctx, &rows,
			`SELECT id, term_report_id, subject_id, exam_score, continuous_assessment, class_participation,
			        total_score, grade, overall_rubric, subject_comment, key_topics_mastered, topics_needing_work
			 FROM `+table(ctx, "term_subject_report")+` WHERE term_report_id = $1 ORDER BY subject_id`, rpts[i].ID)
		if err != nil {
			return errors.Wrap(err, "querying term subject reports")
		}
		rpts[i].SubjectReports = make([]report.TermSubjectReport, 0, len(rows))
		for _, row := range rows {
			rpts[i].SubjectReports = append(rpts[i].SubjectReports, report.TermSubjectReport{
				ID:                row.ID,
				SubjectID:         row.SubjectID,
				ExamScore:         row.ExamScore,
				ContinuousScore:   row.ContinuousScore,
				Participation:     row.Participation,
				TotalScore:        row.TotalScore,
				Grade:             row.Grade,
				OverallRubric:     report.Rubric(row.OverallRubric),
				SubjectComment:    row.SubjectComment,
				TopicsMastered:    row.TopicsMastered,
				TopicsNeedingWork: row.TopicsNeedingWork,
			})
		}
	}
	return nil
}

func (repo *reportRepository) CreateTermReport(ctx context.Context, rpt report.TermReport) (report.TermReport, error) {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return report.TermReport{}, errors.Wrap(err, "beginning tx")
	}
	rpt.ID = uuid.NewString()
	_, err = tx.ExecContext(ctx,
		`INSERT INTO `+table(ctx, "term_report")+` (`+termCols+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24)`,
		rpt.ID, rpt.StudentID, rpt.TeacherID, rpt.AcademicYear, string(rpt.Term), nullStr(rpt.ClassLevelID),
		rpt.TotalSchoolDays, rpt.DaysPresent, rpt.DaysAbsent, rpt.DaysLate, rpt.AttendancePercentage,
		rpt.OverallGrade, rpt.BehaviorRating, rpt.TeacherComment, rpt.PrincipalComment, rpt.Strengths,
		rpt.AreasForImprovement, rpt.Recommendations, rpt.PromotedToNextLevel, rpt.PromotionNotes,
		rpt.Finalized, rpt.FinalizedAt, rpt.CreatedAt, rpt.UpdatedAt,
	)
	if err != nil {
		_ = tx.Rollback()
		return report.TermReport{}, errors.Wrap(err, "inserting term report")
	}
	if rpt.SubjectReports, err = insertTermSubjects(ctx, tx, rpt.ID, rpt.SubjectReports); err != nil {
		_ = tx.Rollback()
		return report.TermReport{}, err
	}
	if err := tx.Commit(); err != nil {
		return report.TermReport{}, errors.Wrap(err, "committing tx")
	}
	return rpt, nil
}

func (repo *reportRepository) getTerm(ctx context.Context, q string, args ...interface{}) (report.TermReport, error) {
	var row termRow
	err := repo.db.GetContext(ctx, &row, q, args...)
	if err == sql.ErrNoRows {
		return report.TermReport{}, report.ErrNotFound
	}
	if err != nil {
		return report.TermReport{}, errors.Wrap(err, "getting term report")
	}
	rpts := []report.TermReport{row.term()}
	if err := repo.loadTermSubjects(ctx, rpts); err != nil {
		return report.TermReport{}, err
	}
	return rpts[0], nil
}

func (repo *reportRepository) GetTermReportByID(ctx context.Context, id string) (report.TermReport, error) {
	return repo.getTerm(ctx, `SELECT `+termCols+` FROM `+table(ctx, "term_report")+` WHERE id = $1`, id)
}

func (repo *reportRepository) GetTermReport(ctx context.Context, studentID, academicYear string, term report.Term) (report.TermReport, error) {
	return repo.getTerm(ctx,
		`SELECT `+termCols+` FROM `+table(ctx, "term_report")+` WHERE student_id = $1 AND academic_year = $2 AND term = $3`,
		studentID, academicYear, string(term))
}

func (repo *reportRepository) QueryTermReports(ctx context.Context, f report.Filter) ([]report.TermReport, error) {
	var c cond
	if f.StudentID != "" {
		c.add("student_id = $%d", f.StudentID)
	}
	if f.TeacherID != "" {
		c.add("teacher_id = $%d", f.TeacherID)
	}
	if f.ClassLevelID != "" {
		c.add("class_level_id = $%d", f.ClassLevelID)
	}
	if f.AcademicYear != "" {
		c.add("academic_year = $%d", f.AcademicYear)
	}
	if f.Term != "" {
		c.add("term = $%d", string(f.Term))
	}
	if f.FinalizedOnly {
		c.clauses = append(c.clauses, "finalized")
	}

	q := `SELECT ` + termCols + ` FROM ` + table(ctx, "term_report") + c.where() + ` ORDER BY academic_year, student_id`
	if f.Limit > 0 {
		q += fmt.Sprintf(" LIMIT %d", f.Limit)
	}

	var rows []termRow
	if err := repo.db.SelectContext(ctx, &rows, q, c.args...); err != nil {
		return nil, errors.Wrap(err, "querying term reports")
	}
	rpts := make([]report.TermReport, 0, len(rows))
	for _, row := range rows {
		rpts = append(rpts, row.term())
	}
	if err := repo.loadTermSubjects(ctx, rpts); err != nil {
		return nil, err
	}
	return rpts, nil
}

func (repo *reportRepository) UpdateTermReport(ctx context.Context, rpt report.TermReport, replaceSubjects bool) (report.TermReport, error) {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return report.TermReport{}, errors.Wrap(err, "beginning tx")
	}
	res, err := tx.ExecContext(ctx,
		`UPDATE `+table(ctx, "term_report")+`
		 SET total_school_days = $1, days_present = $2, days_absent = $3, days_late = $4,
		     attendance_percentage = $5, overall_grade = $6, behavior_rating = $7, teacher_comment = $8,
		     principal_comment = $9, strengths = $10, areas_for_improvement = $11, recommendations = $12,
		     promoted_to_next_level = $13, promotion_notes = $14, finalized = $15, finalized_at = $16,
		     updated_at = $17
		 WHERE id = $18`,
		rpt.TotalSchoolDays, rpt.DaysPresent, rpt.DaysAbsent, rpt.DaysLate, rpt.AttendancePercentage,
		rpt.OverallGrade, rpt.BehaviorRating, rpt.TeacherComment, rpt.PrincipalComment, rpt.Strengths,
		rpt.AreasForImprovement, rpt.Recommendations, rpt.PromotedToNextLevel, rpt.PromotionNotes,
		rpt.Finalized, rpt.FinalizedAt, rpt.UpdatedAt, rpt.ID,
	)
	if err != nil {
		_ = tx.Rollback()
		return report.TermReport{}, errors.Wrap(err, "updating term report")
	}
	if count, err := res.RowsAffected(); err == nil && count == 0 {
		_ = tx.Rollback()
		return report.TermReport{}, report.ErrNotFound
	}
	if replaceSubjects {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM `+table(ctx, "term_subject_report")+` WHERE term_report_id = $1`, rpt.ID); err != nil {
			_ = tx.Rollback()
			return report.TermReport{}, errors.Wrap(err, "clearing term subject reports")
		}
		if rpt.SubjectReports, err = insertTermSubjects(ctx, tx, rpt.ID, rpt.SubjectReports); err != nil {
			_ = tx.Rollback()
			return report.TermReport{}, err
		}
	}
	if err := tx.Commit(); err != nil {
		return report.TermReport{}, errors.Wrap(err, "committing tx")
	}
	if !replaceSubjects {
		rpts := []report.TermReport{rpt}
		if err := repo.loadTermSubjects(ctx, rpts); err != nil {
			return report.TermReport{}, err
		}
		rpt = rpts[0]
	}
	return rpt, nil
}

func (repo *reportRepository) DeleteTermReport(ctx context.Context, id string) error {
	if _, err := repo.db.ExecContext(ctx, `DELETE FROM `+table(ctx, "term_report")+` WHERE id = $1`, id); err != nil {
		return errors.Wrap(err, "deleting term report")
	}
	return nil
}
