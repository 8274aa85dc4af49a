package inmemdb

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/trezcool/shule/core/attendance"
)

type attendanceRepository struct {
	db *DB
}

func NewAttendanceRepository(db *DB) attendance.Repository {
	return &attendanceRepository{db: db}
}

func sameDay(a, b time.Time) bool {
	return a.Year() == b.Year() && a.YearDay() == b.YearDay()
}

// upsertLocked overwrites the record keyed by (student, date), preserving ID
// and CreatedAt. Callers must hold the write lock.
func (repo *attendanceRepository) upsertLocked(ctx context.Context, rec attendance.Record) attendance.Record {
	p := repo.db.partition(ctx)
	for _, orig := range p.attendance {
		if orig.StudentID == rec.StudentID && sameDay(orig.Date, rec.Date) {
			rec.ID = orig.ID
			rec.CreatedAt = orig.CreatedAt
			p.attendance[rec.ID] = &rec
			return rec
		}
	}
	rec.ID = uuid.NewString()
	p.attendance[rec.ID] = &rec
	return rec
}

func (repo *attendanceRepository) UpsertRecord(ctx context.Context, rec attendance.Record) (attendance.Record, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	return repo.upsertLocked(ctx, rec), nil
}

func (repo *attendanceRepository) UpsertRecords(ctx context.Context, recs []attendance.Record) ([]attendance.Record, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	out := make([]attendance.Record, 0, len(recs))
	for _, rec := range recs {
		out = append(out, repo.upsertLocked(ctx, rec))
	}
	return out, nil
}

func (repo *attendanceRepository) GetRecordByID(ctx context.Context, id string) (attendance.Record, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if rec, ok := repo.db.partition(ctx).attendance[id]; ok {
		return *rec, nil
	}
	return attendance.Record{}, attendance.ErrNotFound
}

func (repo *attendanceRepository) GetRecord(ctx context.Context, studentID string, date time.Time) (attendance.Record, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, rec := range repo.db.partition(ctx).attendance {
		if rec.StudentID == studentID && sameDay(rec.Date, date) {
			return *rec, nil
		}
	}
	return attendance.Record{}, attendance.ErrNotFound
}

func (repo *attendanceRepository) QueryRecordsByDate(ctx context.Context, date time.Time) ([]attendance.Record, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var recs []attendance.Record
	for _, rec := range repo.db.partition(ctx).attendance {
		if sameDay(rec.Date, date) {
			recs = append(recs, *rec)
		}
	}
	sort.Slice(recs, func(i, j int) bool { return recs[i].StudentID < recs[j].StudentID })
	return recs, nil
}

func (repo *attendanceRepository) QueryRecordsInRange(ctx context.Context, start, end time.Time, studentIDs []string) ([]attendance.Record, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var wanted map[string]bool
	if len(studentIDs) > 0 {
		wanted = make(map[string]bool, len(studentIDs))
		for _, id := range studentIDs {
			wanted[id] = true
		}
	}

	var recs []attendance.Record
	for _, rec := range repo.db.partition(ctx).attendance {
		if rec.Date.Before(start) || rec.Date.After(end) {
			continue
		}
		if wanted != nil && !wanted[rec.StudentID] {
			continue
		}
		recs = append(recs, *rec)
	}
	sort.Slice(recs, func(i, j int) bool {
		if recs[i].StudentID != recs[j].StudentID {
			return recs[i].StudentID < recs[j].StudentID
		}
		return recs[i].Date.Before(recs[j].Date)
	})
	return recs, nil
}

func (repo *attendanceRepository) DeleteRecord(ctx context.Context, id string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	delete(repo.db.partition(ctx).attendance, id)
	return nil
}
