package inmemdb

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/trezcool/shule/core/report"
)

type reportRepository struct {
	db *DB
}

func NewReportRepository(db *DB) report.Repository {
	return &reportRepository{db: db}
}

// ---------------------------------------------------------------------------
// daily

func (repo *reportRepository) CreateDailyReport(ctx context.Context, rpt report.DailyReport) (report.DailyReport, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	rpt.ID = uuid.NewString()
	for i := range rpt.SubjectReports {
		rpt.SubjectReports[i].ID = uuid.NewString()
	}
	repo.db.partition(ctx).dailyReports[rpt.ID] = &rpt
	return rpt, nil
}

func (repo *reportRepository) GetDailyReportByID(ctx context.Context, id string) (report.DailyReport, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if rpt, ok := repo.db.partition(ctx).dailyReports[id]; ok {
		return *rpt, nil
	}
	return report.DailyReport{}, report.ErrNotFound
}

func (repo *reportRepository) GetDailyReport(ctx context.Context, studentID string, date time.Time) (report.DailyReport, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, rpt := range repo.db.partition(ctx).dailyReports {
		if rpt.StudentID == studentID && sameDay(rpt.Date, date) {
			return *rpt, nil
		}
	}
	return report.DailyReport{}, report.ErrNotFound
}

func matchDaily(rpt *report.DailyReport, f report.Filter) bool {
	if f.StudentID != "" && rpt.StudentID != f.StudentID {
		return false
	}
	if f.TeacherID != "" && rpt.TeacherID != f.TeacherID {
		return false
	}
	if f.ClassLevelID != "" && rpt.ClassLevelID != f.ClassLevelID {
		return false
	}
	if !f.Date.IsZero() && !sameDay(rpt.Date, f.Date) {
		return false
	}
	if !f.From.IsZero() && rpt.Date.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && rpt.Date.After(f.To) {
		return false
	}
	if f.SentOnly && !rpt.SentToParent {
		return false
	}
	return true
}

func (repo *reportRepository) QueryDailyReports(ctx context.Context, f report.Filter) ([]report.DailyReport, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var rpts []report.DailyReport
	for _, rpt := range repo.db.partition(ctx).dailyReports {
		if matchDaily(rpt, f) {
			rpts = append(rpts, *rpt)
		}
	}
	// most recent first
	sort.Slice(rpts, func(i, j int) bool {
		if !rpts[i].Date.Equal(rpts[j].Date) {
			return rpts[i].Date.After(rpts[j].Date)
		}
		return rpts[i].StudentID < rpts[j].StudentID
	})
	if f.Limit > 0 && len(rpts) > f.Limit {
		rpts = rpts[:f.Limit]
	}
	return rpts, nil
}

func (repo *reportRepository) UpdateDailyReport(ctx context.Context, rpt report.DailyReport, replaceSubjects bool) (report.DailyReport, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	p := repo.db.partition(ctx)
	orig, ok := p.dailyReports[rpt.ID]
	if !ok {
		return report.DailyReport{}, report.ErrNotFound
	}
	if replaceSubjects {
		for i := range rpt.SubjectReports {
			rpt.SubjectReports[i].ID = uuid.NewString()
		}
	} else {
		rpt.SubjectReports = orig.SubjectReports
	}
	p.dailyReports[rpt.ID] = &rpt
	return rpt, nil
}

func (repo *reportRepository) DeleteDailyReport(ctx context.Context, id string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	delete(repo.db.partition(ctx).dailyReports, id)
	return nil
}

// ---------------------------------------------------------------------------
// weekly

func (repo *reportRepository) CreateWeeklyReport(ctx context.Context, rpt report.WeeklyReport) (report.WeeklyReport, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	rpt.ID = uuid.NewString()
	for i := range rpt.SubjectSummaries {
		rpt.SubjectSummaries[i].ID = uuid.NewString()
	}
	repo.db.partition(ctx).weeklyReports[rpt.ID] = &rpt
	return rpt, nil
}

func (repo *reportRepository) GetWeeklyReportByID(ctx context.Context, id string) (report.WeeklyReport, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if rpt, ok := repo.db.partition(ctx).weeklyReports[id]; ok {
		return *rpt, nil
	}
	return report.WeeklyReport{}, report.ErrNotFound
}

func (repo *reportRepository) GetWeeklyReport(ctx context.Context, studentID string, weekStart time.Time) (report.WeeklyReport, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, rpt := range repo.db.partition(ctx).weeklyReports {
		if rpt.StudentID == studentID && sameDay(rpt.WeekStart, weekStart) {
			return *rpt, nil
		}
	}
	return report.WeeklyReport{}, report.ErrNotFound
}

func matchWeekly(rpt *report.WeeklyReport, f report.Filter) bool {
	if f.StudentID != "" && rpt.StudentID != f.StudentID {
		return false
	}
	if f.TeacherID != "" && rpt.TeacherID != f.TeacherID {
		return false
	}
	if f.ClassLevelID != "" && rpt.ClassLevelID != f.ClassLevelID {
		return false
	}
	if !f.WeekStart.IsZero() && !sameDay(rpt.WeekStart, f.WeekStart) {
		return false
	}
	return true
}

func (repo *reportRepository) QueryWeeklyReports(ctx context.Context, f report.Filter) ([]report.WeeklyReport, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var rpts []report.WeeklyReport
	for _, rpt := range repo.db.partition(ctx).weeklyReports {
		if matchWeekly(rpt, f) {
			rpts = append(rpts, *rpt)
		}
	}
	sort.Slice(rpts, func(i, j int) bool {
		if !rpts[i].WeekStart.Equal(rpts[j].WeekStart) {
			return rpts[i].WeekStart.After(rpts[j].WeekStart)
		}
		return rpts[i].StudentID < rpts[j].StudentID
	})
	if f.Limit > 0 && len(rpts) > f.Limit {
		rpts = rpts[:f.Limit]
	}
	return rpts, nil
}

func (repo *reportRepository) UpdateWeeklyReport(ctx context.Context, rpt report.WeeklyReport, replaceSubjects bool) (report.WeeklyReport, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	p := repo.db.partition(ctx)
	orig, ok := p.weeklyReports[rpt.ID]
	if !ok {
		return report.WeeklyReport{}, report.ErrNotFound
	}
	if replaceSubjects {
		for i := range rpt.SubjectSummaries {
			rpt.SubjectSummaries[i].ID = uuid.NewString()
		}
	} else {
		rpt.SubjectSummaries = orig.SubjectSummaries
	}
	p.weeklyReports[rpt.ID] = &rpt
	return rpt, nil
}

func (repo *reportRepository) DeleteWeeklyReport(ctx context.Context, id string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	delete(repo.db.partition(ctx).weeklyReports, id)
	return nil
}

// ---------------------------------------------------------------------------
// term

func (repo *reportRepository) CreateTermReport(ctx context.Context, rpt report.TermReport) (report.TermReport, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	rpt.ID = uuid.NewString()
	for i := range rpt.SubjectReports {
		rpt.SubjectReports[i].ID = uuid.NewString()
	}
	repo.db.partition(ctx).termReports[rpt.ID] = &rpt
	return rpt, nil
}

func (repo *reportRepository) GetTermReportByID(ctx context.Context, id string) (report.TermReport, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if rpt, ok := repo.db.partition(ctx).termReports[id]; ok {
		return *rpt, nil
	}
	return report.TermReport{}, report.ErrNotFound
}

func (repo *reportRepository) GetTermReport(ctx context.Context, studentID, academicYear string, term report.Term) (report.TermReport, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, rpt := range repo.db.partition(ctx).termReports {
		if rpt.StudentID == studentID && rpt.AcademicYear == academicYear && rpt.Term == term {
			return *rpt, nil
		}
	}
	return report.TermReport{}, report.ErrNotFound
}

func matchTerm(rpt *report.TermReport, f report.Filter) bool {
	if f.StudentID != "" && rpt.StudentID != f.StudentID {
		return false
	}
	if f.TeacherID != "" && rpt.TeacherID != f.TeacherID {
		return false
	}
	if f.ClassLevelID != "" && rpt.ClassLevelID != f.ClassLevelID {
		return false
	}
	if f.AcademicYear != "" && rpt.AcademicYear != f.AcademicYear {
		return false
	}
	if f.Term != "" && rpt.Term != f.Term {
		return false
	}
	if f.FinalizedOnly && !rpt.Finalized {
		return false
	}
	return true
}

func (repo *reportRepository) QueryTermReports(ctx context.Context, f report.Filter) ([]report.TermReport, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var rpts []report.TermReport
	for _, rpt := range repo.db.partition(ctx).termReports {
		if matchTerm(rpt, f) {
			rpts = append(rpts, *rpt)
		}
	}
	sort.Slice(rpts, func(i, j int) bool {
		if rpts[i].AcademicYear != rpts[j].AcademicYear {
			return rpts[i].AcademicYear < rpts[j].AcademicYear
		}
		return rpts[i].StudentID < rpts[j].StudentID
	})
	if f.Limit > 0 && len(rpts) > f.Limit {
		rpts = rpts[:f.Limit]
	}
	return rpts, nil
}

func (repo *reportRepository) UpdateTermReport(ctx context.Context, rpt report.TermReport, replaceSubjects bool) (report.TermReport, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	p := repo.db.partition(ctx)
	orig, ok := p.termReports[rpt.ID]
	if !ok {
		return report.TermReport{}, report.ErrNotFound
	}
	if replaceSubjects {
		for i := range rpt.SubjectReports {
			rpt.SubjectReports[i].ID = uuid.NewString()
		}
	} else {
		rpt.SubjectReports = orig.SubjectReports
	}
	p.termReports[rpt.ID] = &rpt
	return rpt, nil
}

func (repo *reportRepository) DeleteTermReport(ctx context.Context, id string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	delete(repo.db.partition(ctx).termReports, id)
	return nil
}
