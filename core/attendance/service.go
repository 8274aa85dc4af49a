package attendance

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
)

var ErrNotFound = errors.New("attendance record not found")

type (
	// StudentChecker answers whether a student exists in the pinned tenant,
	// and which students belong to a class level.
	StudentChecker interface {
		StudentExists(ctx context.Context, studentID string) (bool, error)
		StudentIDsByClassLevel(ctx context.Context, classLevelID string) ([]string, error)
	}

	Repository interface {
		// UpsertRecord creates or overwrites the record keyed by
		// (StudentID, Date), preserving ID and CreatedAt on overwrite.
		UpsertRecord(ctx context.Context, rec Record) (Record, error)
		// UpsertRecords applies the whole batch atomically.
		UpsertRecords(ctx context.Context, recs []Record) ([]Record, error)
		GetRecordByID(ctx context.Context, id string) (Record, error)
		GetRecord(ctx context.Context, studentID string, date time.Time) (Record, error)
		QueryRecordsByDate(ctx context.Context, date time.Time) ([]Record, error)
		QueryRecordsInRange(ctx context.Context, start, end time.Time, studentIDs []string) ([]Record, error)
		DeleteRecord(ctx context.Context, id string) error
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

// Upsert records a student's attendance for a date, overwriting any existing
// record for that (student, date) pair.
func (svc *Service) Upsert(ctx context.Context, ur UpsertRecord, recordedByID string) (Record, error) {
	if err := svc.checkStudent(ctx, ur.StudentID); err != nil {
		return Record{}, err
	}
	date, err := time.Parse("2006-01-02", ur.Date)
	if err != nil {
		return Record{}, core.NewValidationError(err, core.FieldError{Field: "date", Error: "invalid date, expected YYYY-MM-DD"})
	}
	now := time.Now().UTC()
	return svc.repo.UpsertRecord(ctx, Record{
		StudentID:    ur.StudentID,
		Date:         date,
		Status:       ur.Status,
		TimeIn:       ur.TimeIn,
		TimeOut:      ur.TimeOut,
		Notes:        ur.Notes,
		RecordedByID: recordedByID,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
}

// BulkUpsert validates every entry before any write and applies the batch
// atomically. One bad entry fails the whole batch; the error names the
// offending index.
func (svc *Service) BulkUpsert(ctx context.Context, bu BulkUpsert, recordedByID string) ([]Record, error) {
	date, err := time.Parse("2006-01-02", bu.Date)
	if err != nil {
		return nil, core.NewValidationError(err, core.FieldError{Field: "date", Error: "invalid date, expected YYYY-MM-DD"})
	}

	seen := make(map[string]int, len(bu.Entries))
	for i, e := range bu.Entries {
		if !e.Status.Valid() {
			return nil, core.NewValidationError(
				errors.New("invalid entry"),
				core.FieldError{Field: fmt.Sprintf("entries[%d].status", i), Error: "invalid status '" + string(e.Status) + "'"},
			)
		}
		ok, err := svc.students.StudentExists(ctx, e.StudentID)
		if err != nil {
			return nil, errors.Wrap(err, "checking student")
		}
		if !ok {
			return nil, core.NewValidationError(
				errors.New("invalid entry"),
				core.FieldError{Field: fmt.Sprintf("entries[%d].student_id", i), Error: "student '" + e.StudentID + "' does not exist"},
			)
		}
		if prev, dup := seen[e.StudentID]; dup {
			return nil, core.NewValidationError(
				errors.New("invalid entry"),
				core.FieldError{Field: fmt.Sprintf("entries[%d].student_id", i), Error: fmt.Sprintf("duplicate of entry %d", prev)},
			)
		}
		seen[e.StudentID] = i
	}

	now := time.Now().UTC()
	recs := make([]Record, 0, len(bu.Entries))
	for _, e := range bu.Entries {
		recs = append(recs, Record{
			StudentID:    e.StudentID,
			Date:         date,
			Status:       e.Status,
			TimeIn:       e.TimeIn,
			TimeOut:      e.TimeOut,
			Notes:        e.Notes,
			RecordedByID: recordedByID,
			CreatedAt:    now,
			UpdatedAt:    now,
		})
	}
	return svc.repo.UpsertRecords(ctx, recs)
}

func (svc *Service) Get(ctx context.Context, id string) (Record, error) {
	return svc.repo.GetRecordByID(ctx, id)
}

func (svc *Service) QueryByDate(ctx context.Context, date time.Time) ([]Record, error) {
	return svc.repo.QueryRecordsByDate(ctx, date)
}

func (svc *Service) Delete(ctx context.Context, id string) error {
	return svc.repo.DeleteRecord(ctx, id)
}

// RangeSummary aggregates attendance per student over [start, end], narrowed
// by the filter. Results are ordered by student ID. A student with no records
// in the window gets a rate of 0.
func (svc *Service) RangeSummary(ctx context.Context, start, end time.Time, f SummaryFilter) ([]StudentSummary, error) {
	var studentIDs []string
	switch {
	case f.StudentID != "":
		if err := svc.checkStudent(ctx, f.StudentID); err != nil {
			return nil, err
		}
		studentIDs = []string{f.StudentID}
	case f.ClassLevelID != "":
		ids, err := svc.students.StudentIDsByClassLevel(ctx, f.ClassLevelID)
		if err != nil {
			return nil, errors.Wrap(err, "listing class students")
		}
		studentIDs = ids
	}

	recs, err := svc.repo.QueryRecordsInRange(ctx, start, end, studentIDs)
	if err != nil {
		return nil, err
	}

	byStudent := make(map[string]*StudentSummary)
	for _, id := range studentIDs {
		byStudent[id] = &StudentSummary{StudentID: id}
	}
	for _, rec := range recs {
		sum, ok := byStudent[rec.StudentID]
		if !ok {
			sum = &StudentSummary{StudentID: rec.StudentID}
			byStudent[rec.StudentID] = sum
		}
		switch rec.Status {
		case StatusPresent:
			sum.Present++
		case StatusAbsent:
			sum.Absent++
		case StatusLate:
			sum.Late++
		case StatusExcused:
			sum.Excused++
		}
		sum.Total++
	}

	sums := make([]StudentSummary, 0, len(byStudent))
	for _, sum := range byStudent {
		if sum.Total > 0 {
			sum.Rate = float64(sum.Present) / float64(sum.Total) * 100
		}
		sums = append(sums, *sum)
	}
	sort.Slice(sums, func(i, j int) bool { return sums[i].StudentID < sums[j].StudentID })
	return sums, nil
}
