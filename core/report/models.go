package report

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/shule/core"
)

// Rubric is the four-level mastery scale used in subject assessments.
type Rubric string

const (
	RubricIntroduced    Rubric = "introduced"
	RubricWorking       Rubric = "working"
	RubricMastered      Rubric = "mastered"
	RubricNotApplicable Rubric = "not_applicable"
)

type Engagement string

const (
	EngagementHigh       Engagement = "high"
	EngagementMedium     Engagement = "medium"
	EngagementLow        Engagement = "low"
	EngagementNotEngaged Engagement = "not_engaged"
)

type Term string

const (
	TermFirst  Term = "first"
	TermSecond Term = "second"
	TermThird  Term = "third"
)

type (
	// DailySubjectReport is one subject's entry on a daily report. Owned by
	// its parent report; deleted and replaced wholesale on update.
	DailySubjectReport struct {
		ID                 string     `json:"id"`
		SubjectID          string     `json:"subject_id"`
		TopicsCovered      []string   `json:"topics_covered"`
		LearningObjectives string     `json:"learning_objectives"`
		RubricRating       Rubric     `json:"rubric_rating"`
		PerformanceNotes   string     `json:"performance_notes"`
		ActivitiesDone     []string   `json:"activities_completed"`
		EngagementLevel    Engagement `json:"engagement_level"`
	}

	// DailyReport covers one student's day. Unique per (student, date).
	DailyReport struct {
		ID           string    `json:"id"`
		StudentID    string    `json:"student_id"`
		TeacherID    string    `json:"teacher_id"`
		Date         time.Time `json:"date"`
		ClassLevelID string    `json:"class_level_id"`

		GeneralNotes      string `json:"general_notes"`
		MoodBehavior      string `json:"mood_behavior"`
		SocialInteraction string `json:"social_interaction,omitempty"`

		// toddler classes only
		PottyActivities string `json:"potty_activities,omitempty"`
		MealNotes       string `json:"meal_notes,omitempty"`
		NapTime         string `json:"nap_time,omitempty"`
		DiaperChanges   *int   `json:"diaper_changes,omitempty"`

		HomeworkCompleted bool   `json:"homework_completed"`
		HomeworkNotes     string `json:"homework_notes,omitempty"`

		ParentMessage        string `json:"parent_message,omitempty"`
		RequiresParentAction bool   `json:"requires_parent_action"`
		ParentActionRequired string `json:"parent_action_required,omitempty"`

		SubjectReports []DailySubjectReport `json:"subject_reports"`

		SentToParent bool       `json:"sent_to_parent"`
		SentAt       *time.Time `json:"sent_at,omitempty"`
		CreatedAt    time.Time  `json:"created_at"`
		UpdatedAt    time.Time  `json:"updated_at"`
	}

	WeeklySubjectSummary struct {
		ID               string   `json:"id"`
		SubjectID        string   `json:"subject_id"`
		TopicsCovered    []string `json:"topics_covered"`
		OverallRubric    Rubric   `json:"overall_rubric_rating"`
		ProgressNotes    string   `json:"progress_notes"`
		ImprovementAreas string   `json:"improvement_areas,omitempty"`
	}

	// WeeklyReport summarizes one student's week. Unique per
	// (student, week start); the window is exactly 7 days inclusive.
	WeeklyReport struct {
		ID           string    `json:"id"`
		StudentID    string    `json:"student_id"`
		TeacherID    string    `json:"teacher_id"`
		WeekStart    time.Time `json:"week_start_date"`
		WeekEnd      time.Time `json:"week_end_date"`
		ClassLevelID string    `json:"class_level_id"`

		WeeklySummary       string `json:"weekly_summary"`
		Strengths           string `json:"strengths"`
		AreasForImprovement string `json:"areas_for_improvement"`
		BehavioralSummary   string `json:"behavioral_summary"`

		AcademicHighlights     string `json:"academic_highlights"`
		HomeworkCompletionRate int    `json:"homework_completion_rate"`

		DaysPresent int `json:"days_present"`
		DaysAbsent  int `json:"days_absent"`
		DaysLate    int `json:"days_late"`

		HomeSupportSuggestions string `json:"home_support_suggestions,omitempty"`
		NextWeekFocus          string `json:"next_week_focus"`
		AdditionalNotes        string `json:"additional_notes,omitempty"`

		SubjectSummaries []WeeklySubjectSummary `json:"subject_summaries"`

		CreatedAt time.Time `json:"created_at"`
		UpdatedAt time.Time `json:"updated_at"`
	}

	// TermSubjectReport carries component scores plus the derived total and
	// grade, which are recomputed on every write and never trusted from input.
	TermSubjectReport struct {
		ID                string `json:"id"`
		SubjectID         string `json:"subject_id"`
		ExamScore         float64 `json:"exam_score"`
		ContinuousScore   float64 `json:"continuous_assessment"`
		Participation     float64 `json:"class_participation"`
		TotalScore        float64 `json:"total_score"`
		Grade             string  `json:"grade"`
		OverallRubric     Rubric  `json:"overall_rubric"`
		SubjectComment    string  `json:"subject_comment"`
		TopicsMastered    []string `json:"key_topics_mastered"`
		TopicsNeedingWork []string `json:"topics_needing_work"`
	}

	// TermReport is the end-of-term record. Unique per
	// (student, academic year, term). Finalize is one-way; Unfinalize is the
	// explicit admin reverse.
	TermReport struct {
		ID           string `json:"id"`
		StudentID    string `json:"student_id"`
		TeacherID    string `json:"teacher_id"`
		AcademicYear string `json:"academic_year"`
		Term         Term   `json:"term"`
		ClassLevelID string `json:"class_level_id"`

		TotalSchoolDays      int     `json:"total_school_days"`
		DaysPresent          int     `json:"days_present"`
		DaysAbsent           int     `json:"days_absent"`
		DaysLate             int     `json:"days_late"`
		AttendancePercentage float64 `json:"attendance_percentage"`

		OverallGrade   string `json:"overall_grade,omitempty"`
		BehaviorRating string `json:"behavior_rating"`

		TeacherComment   string `json:"teacher_comment"`
		PrincipalComment string `json:"principal_comment,omitempty"`

		Strengths           string `json:"strengths"`
		AreasForImprovement string `json:"areas_for_improvement"`
		Recommendations     string `json:"recommendations"`

		PromotedToNextLevel bool   `json:"promoted_to_next_level"`
		PromotionNotes      string `json:"promotion_notes,omitempty"`

		SubjectReports []TermSubjectReport `json:"subject_reports"`

		Finalized   bool       `json:"finalized"`
		FinalizedAt *time.Time `json:"finalized_at,omitempty"`
		CreatedAt   time.Time  `json:"created_at"`
		UpdatedAt   time.Time  `json:"updated_at"`
	}
)

// ---------------------------------------------------------------------------
// inputs

type (
	NewDailySubjectReport struct {
		SubjectID          string     `json:"subject_id" validate:"required"`
		TopicsCovered      []string   `json:"topics_covered"`
		LearningObjectives string     `json:"learning_objectives" validate:"required"`
		RubricRating       Rubric     `json:"rubric_rating" validate:"required,oneof=introduced working mastered not_applicable"`
		PerformanceNotes   string     `json:"performance_notes" validate:"required"`
		ActivitiesDone     []string   `json:"activities_completed"`
		EngagementLevel    Engagement `json:"engagement_level" validate:"required,oneof=high medium low not_engaged"`
	}

	NewDailyReport struct {
		StudentID    string `json:"student_id" validate:"required"`
		Date         string `json:"date" validate:"required,datetime=2006-01-02"`
		ClassLevelID string `json:"class_level_id" validate:"required"`

		GeneralNotes      string `json:"general_notes" validate:"required"`
		MoodBehavior      string `json:"mood_behavior" validate:"required"`
		SocialInteraction string `json:"social_interaction"`

		PottyActivities string `json:"potty_activities"`
		MealNotes       string `json:"meal_notes"`
		NapTime         string `json:"nap_time"`
		DiaperChanges   *int   `json:"diaper_changes"`

		HomeworkCompleted bool   `json:"homework_completed"`
		HomeworkNotes     string `json:"homework_notes"`

		ParentMessage        string `json:"parent_message"`
		RequiresParentAction bool   `json:"requires_parent_action"`
		ParentActionRequired string `json:"parent_action_required"`

		SubjectReports []NewDailySubjectReport `json:"subject_reports" validate:"dive"`
	}

	// UpdateDailyReport patches the free-text payload; a non-nil
	// SubjectReports replaces the nested set wholesale.
	UpdateDailyReport struct {
		GeneralNotes      string `json:"general_notes"`
		MoodBehavior      string `json:"mood_behavior"`
		SocialInteraction string `json:"social_interaction"`

		PottyActivities string `json:"potty_activities"`
		MealNotes       string `json:"meal_notes"`
		NapTime         string `json:"nap_time"`
		DiaperChanges   *int   `json:"diaper_changes"`

		HomeworkCompleted *bool  `json:"homework_completed"`
		HomeworkNotes     string `json:"homework_notes"`

		ParentMessage        string `json:"parent_message"`
		RequiresParentAction *bool  `json:"requires_parent_action"`
		ParentActionRequired string `json:"parent_action_required"`

		SubjectReports []NewDailySubjectReport `json:"subject_reports" validate:"omitempty,dive"`
	}

	NewWeeklySubjectSummary struct {
		SubjectID        string   `json:"subject_id" validate:"required"`
		TopicsCovered    []string `json:"topics_covered"`
		OverallRubric    Rubric   `json:"overall_rubric_rating" validate:"required,oneof=introduced working mastered not_applicable"`
		ProgressNotes    string   `json:"progress_notes" validate:"required"`
		ImprovementAreas string   `json:"improvement_areas"`
	}

	NewWeeklyReport struct {
		StudentID    string `json:"student_id" validate:"required"`
		WeekStart    string `json:"week_start_date" validate:"required,datetime=2006-01-02"`
		WeekEnd      string `json:"week_end_date" validate:"required,datetime=2006-01-02"`
		ClassLevelID string `json:"class_level_id" validate:"required"`

		WeeklySummary       string `json:"weekly_summary" validate:"required"`
		Strengths           string `json:"strengths" validate:"required"`
		AreasForImprovement string `json:"areas_for_improvement" validate:"required"`
		BehavioralSummary   string `json:"behavioral_summary" validate:"required"`

		AcademicHighlights     string `json:"academic_highlights" validate:"required"`
		HomeworkCompletionRate int    `json:"homework_completion_rate" validate:"min=0,max=100"`

		DaysPresent int `json:"days_present" validate:"min=0"`
		DaysAbsent  int `json:"days_absent" validate:"min=0"`
		DaysLate    int `json:"days_late" validate:"min=0"`

		HomeSupportSuggestions string `json:"home_support_suggestions"`
		NextWeekFocus          string `json:"next_week_focus" validate:"required"`
		AdditionalNotes        string `json:"additional_notes"`

		SubjectSummaries []NewWeeklySubjectSummary `json:"subject_summaries" validate:"dive"`
	}

	NewTermSubjectReport struct {
		SubjectID         string   `json:"subject_id" validate:"required"`
		ExamScore         float64  `json:"exam_score" validate:"min=0,max=100"`
		ContinuousScore   float64  `json:"continuous_assessment" validate:"min=0,max=100"`
		Participation     float64  `json:"class_participation" validate:"min=0,max=100"`
		OverallRubric     Rubric   `json:"overall_rubric" validate:"required,oneof=introduced working mastered not_applicable"`
		SubjectComment    string   `json:"subject_comment" validate:"required"`
		TopicsMastered    []string `json:"key_topics_mastered"`
		TopicsNeedingWork []string `json:"topics_needing_work"`
	}

	NewTermReport struct {
		StudentID    string `json:"student_id" validate:"required"`
		AcademicYear string `json:"academic_year" validate:"required"`
		Term         Term   `json:"term" validate:"required,oneof=first second third"`
		ClassLevelID string `json:"class_level_id" validate:"required"`

		TotalSchoolDays int `json:"total_school_days" validate:"min=0"`
		DaysPresent     int `json:"days_present" validate:"min=0"`
		DaysAbsent      int `json:"days_absent" validate:"min=0"`
		DaysLate        int `json:"days_late" validate:"min=0"`

		OverallGrade   string `json:"overall_grade" validate:"omitempty,oneof=A+ A A- B+ B B- C+ C C- D+ D F"`
		BehaviorRating string `json:"behavior_rating" validate:"required,oneof=excellent good satisfactory needs_improvement"`

		TeacherComment   string `json:"teacher_comment" validate:"required"`
		PrincipalComment string `json:"principal_comment"`

		Strengths           string `json:"strengths" validate:"required"`
		AreasForImprovement string `json:"areas_for_improvement" validate:"required"`
		Recommendations     string `json:"recommendations" validate:"required"`

		PromotedToNextLevel *bool  `json:"promoted_to_next_level"`
		PromotionNotes      string `json:"promotion_notes"`

		SubjectReports []NewTermSubjectReport `json:"subject_reports" validate:"dive"`
	}

	// BulkDailyReports creates several daily reports in one call with
	// partial-success semantics.
	BulkDailyReports struct {
		Reports []NewDailyReport `json:"reports" validate:"required,min=1"`
	}

	BulkEntryError struct {
		Index            int               `json:"index"`
		Errors           map[string]string `json:"errors"`
		IdentifyingField string            `json:"identifying_field,omitempty"`
	}

	BulkResult struct {
		SuccessfullyCreated []DailyReport    `json:"successfully_created"`
		Errors              []BulkEntryError `json:"errors"`
	}
)

func (nd *NewDailyReport) Validate(validate *validator.Validate) error {
	nd.GeneralNotes = core.CleanString(nd.GeneralNotes)
	nd.MoodBehavior = core.CleanString(nd.MoodBehavior)
	return validate.Struct(nd)
}

func (ud *UpdateDailyReport) Validate(validate *validator.Validate) error {
	ud.GeneralNotes = core.CleanString(ud.GeneralNotes)
	ud.MoodBehavior = core.CleanString(ud.MoodBehavior)
	return validate.Struct(ud)
}

func (nw *NewWeeklyReport) Validate(validate *validator.Validate) error {
	nw.WeeklySummary = core.CleanString(nw.WeeklySummary)
	return validate.Struct(nw)
}

func (nt *NewTermReport) Validate(validate *validator.Validate) error {
	nt.AcademicYear = core.CleanString(nt.AcademicYear)
	nt.TeacherComment = core.CleanString(nt.TeacherComment)
	return validate.Struct(nt)
}
