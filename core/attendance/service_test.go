package attendance_test

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/attendance"
	inmemdb "github.com/trezcool/shule/storage/database/inmem"
)

type stubStudents struct {
	known   map[string]bool
	byClass map[string][]string
}

func (s stubStudents) StudentExists(ctx context.Context, studentID string) (bool, error) {
	return s.known[studentID], nil
}

func (s stubStudents) StudentIDsByClassLevel(ctx context.Context, classLevelID string) ([]string, error) {
	return s.byClass[classLevelID], nil
}

func setup(t *testing.T, students stubStudents) *attendance.Service {
	t.Helper()
	return attendance.NewService(inmemdb.NewAttendanceRepository(inmemdb.NewDB()), students)
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

func TestService_Upsert(t *testing.T) {
	ctx := context.Background()
	svc := setup(t, stubStudents{known: map[string]bool{"st1": true}})

	rec, err := svc.Upsert(ctx, attendance.UpsertRecord{
		StudentID: "st1",
		Date:      "2021-03-01",
		Status:    attendance.StatusPresent,
		TimeIn:    "08:05",
	}, "teacher-user")
	assert.NoError(t, err)
	assert.NotEmpty(t, rec.ID)
	assert.Equal(t, "teacher-user", rec.RecordedByID)

	t.Run("same (student, date) overwrites in place", func(t *testing.T) {
		upd, err := svc.Upsert(ctx, attendance.UpsertRecord{
			StudentID: "st1",
			Date:      "2021-03-01",
			Status:    attendance.StatusLate,
			TimeIn:    "09:30",
		}, "teacher-user")
		assert.NoError(t, err)
		assert.Equal(t, rec.ID, upd.ID) // ID survives the overwrite
		assert.Equal(t, attendance.StatusLate, upd.Status)
		assert.Equal(t, rec.CreatedAt, upd.CreatedAt)

		recs, err := svc.QueryByDate(ctx, time.Date(2021, 3, 1, 0, 0, 0, 0, time.UTC))
		assert.NoError(t, err)
		assert.Len(t, recs, 1)
	})

	t.Run("unknown student rejected", func(t *testing.T) {
		_, err := svc.Upsert(ctx, attendance.UpsertRecord{
			StudentID: "ghost",
			Date:      "2021-03-01",
			Status:    attendance.StatusPresent,
		}, "teacher-user")
		assert.Contains(t, fieldErrors(t, err), "student_id")
	})
}

func TestService_BulkUpsert(t *testing.T) {
	ctx := context.Background()
	svc := setup(t, stubStudents{known: map[string]bool{"st1": true, "st2": true}})

	recs, err := svc.BulkUpsert(ctx, attendance.BulkUpsert{
		Date: "2021-03-01",
		Entries: []attendance.BulkEntry{
			{StudentID: "st1", Status: attendance.StatusPresent},
			{StudentID: "st2", Status: attendance.StatusAbsent},
		},
	}, "teacher-user")
	assert.NoError(t, err)
	assert.Len(t, recs, 2)

	t.Run("one bad entry fails the whole batch", func(t *testing.T) {
		_, err := svc.BulkUpsert(ctx, attendance.BulkUpsert{
			Date: "2021-03-02",
			Entries: []attendance.BulkEntry{
				{StudentID: "st1", Status: attendance.StatusPresent},
				{StudentID: "ghost", Status: attendance.StatusPresent},
			},
		}, "teacher-user")
		assert.Contains(t, fieldErrors(t, err), "entries[1].student_id")

		// nothing was written
		recs, err := svc.QueryByDate(ctx, time.Date(2021, 3, 2, 0, 0, 0, 0, time.UTC))
		assert.NoError(t, err)
		assert.Empty(t, recs)
	})

	t.Run("invalid status named by index", func(t *testing.T) {
		_, err := svc.BulkUpsert(ctx, attendance.BulkUpsert{
			Date: "2021-03-02",
			Entries: []attendance.BulkEntry{
				{StudentID: "st1", Status: "vanished"},
			},
		}, "teacher-user")
		assert.Contains(t, fieldErrors(t, err), "entries[0].status")
	})

	t.Run("duplicate student named by index", func(t *testing.T) {
		_, err := svc.BulkUpsert(ctx, attendance.BulkUpsert{
			Date: "2021-03-02",
			Entries: []attendance.BulkEntry{
				{StudentID: "st1", Status: attendance.StatusPresent},
				{StudentID: "st1", Status: attendance.StatusAbsent},
			},
		}, "teacher-user")
		assert.Contains(t, fieldErrors(t, err), "entries[1].student_id")
	})
}

func TestService_RangeSummary(t *testing.T) {
	ctx := context.Background()
	svc := setup(t, stubStudents{
		known:   map[string]bool{"st1": true, "st2": true, "st3": true},
		byClass: map[string][]string{"cl1": {"st3", "st1", "st2"}},
	})

	seed := []struct {
		student string
		date    string
		status  attendance.Status
	}{
		{"st1", "2021-03-01", attendance.StatusPresent},
		{"st1", "2021-03-02", attendance.StatusPresent},
		{"st1", "2021-03-03", attendance.StatusLate},
		{"st1", "2021-03-04", attendance.StatusAbsent},
		{"st2", "2021-03-01", attendance.StatusExcused},
		{"st2", "2021-03-02", attendance.StatusPresent},
	}
	for _, s := range seed {
		_, err := svc.Upsert(ctx, attendance.UpsertRecord{StudentID: s.student, Date: s.date, Status: s.status}, "teacher-user")
		assert.NoError(t, err)
	}

	start := time.Date(2021, 3, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2021, 3, 7, 0, 0, 0, 0, time.UTC)

	sums, err := svc.RangeSummary(ctx, start, end, attendance.SummaryFilter{ClassLevelID: "cl1"})
	assert.NoError(t, err)

	// ordered by student ID; st3 has no records and a rate of 0
	if assert.Len(t, sums, 3) {
		assert.Equal(t, "st1", sums[0].StudentID)
		assert.Equal(t, 2, sums[0].Present)
		assert.Equal(t, 1, sums[0].Late)
		assert.Equal(t, 1, sums[0].Absent)
		assert.Equal(t, 4, sums[0].Total)
		assert.InDelta(t, 50.0, sums[0].Rate, 1e-9)

		assert.Equal(t, "st2", sums[1].StudentID)
		assert.Equal(t, 1, sums[1].Excused)
		assert.InDelta(t, 50.0, sums[1].Rate, 1e-9)

		assert.Equal(t, "st3", sums[2].StudentID)
		assert.Equal(t, 0, sums[2].Total)
		assert.Zero(t, sums[2].Rate)
	}

	t.Run("single student filter", func(t *testing.T) {
		sums, err := svc.RangeSummary(ctx, start, end, attendance.SummaryFilter{StudentID: "st2"})
		assert.NoError(t, err)
		if assert.Len(t, sums, 1) {
			assert.Equal(t, "st2", sums[0].StudentID)
			assert.Equal(t, 2, sums[0].Total)
		}
	})

	t.Run("window bounds are inclusive", func(t *testing.T) {
		sums, err := svc.RangeSummary(ctx, start, time.Date(2021, 3, 2, 0, 0, 0, 0, time.UTC), attendance.SummaryFilter{StudentID: "st1"})
		assert.NoError(t, err)
		if assert.Len(t, sums, 1) {
			assert.Equal(t, 2, sums[0].Total)
		}
	})
}
