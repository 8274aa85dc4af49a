package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core/attendance"
)

type attendanceRepository struct {
	db *sqlx.DB
}

func NewAttendanceRepository(db *sqlx.DB) attendance.Repository {
	return &attendanceRepository{db: db}
}

const attendanceCols = `id, student_id, date, status, time_in, time_out, notes, recorded_by_id, created_at, updated_at`

type attendanceRow struct {
	ID           string         `db:"id"`
	StudentID    string         `db:"student_id"`
	Date         time.Time      `db:"date"`
	Status       string         `db:"status"`
	TimeIn       string         `db:"time_in"`
	TimeOut      string         `db:"time_out"`
	Notes        string         `db:"notes"`
	RecordedByID sql.NullString `db:"recorded_by_id"`
	CreatedAt    sql.NullTime   `db:"created_at"`
	UpdatedAt    sql.NullTime   `db:"updated_at"`
}

func (r attendanceRow) record() attendance.Record {
	return attendance.Record{
		ID:           r.ID,
		StudentID:    r.StudentID,
		Date:         r.Date,
		Status:       attendance.Status(r.Status),
		TimeIn:       r.TimeIn,
		TimeOut:      r.TimeOut,
		Notes:        r.Notes,
		RecordedByID: r.RecordedByID.String,
		CreatedAt:    r.CreatedAt.Time,
		UpdatedAt:    r.UpdatedAt.Time,
	}
}

func upsertRecordTx(ctx context.Context, tx *sqlx.Tx, rec attendance.Record) (attendance.Record, error) {
	rec.ID = uuid.NewString()
	var row attendanceRow
	err := tx.GetContext(ctx, &row,
		`INSERT INTO `+table(ctx, "attendance")+` (`+attendanceCols+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 ON CONFLICT (student_id, date) DO UPDATE
		 SET status = EXCLUDED.status, time_in = EXCLUDED.time_in, time_out = EXCLUDED.time_out,
		     notes = EXCLUDED.notes, recorded_by_id = EXCLUDED.recorded_by_id, updated_at = EXCLUDED.updated_at
		 RETURNING `+attendanceCols,
		rec.ID, rec.StudentID, rec.Date, string(rec.Status), rec.TimeIn, rec.TimeOut,
		rec.Notes, nullStr(rec.RecordedByID), rec.CreatedAt, rec.UpdatedAt,
	)
	if err != nil {
		return attendance.Record{}, errors.Wrap(err, "upserting attendance")
	}
	return row.record(), nil
}

func (repo *attendanceRepository) UpsertRecord(ctx context.Context, rec attendance.Record) (attendance.Record, error) {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return attendance.Record{}, errors.Wrap(err, "beginning tx")
	}
	out, err := upsertRecordTx(ctx, tx, rec)
	if err != nil {
		_ = tx.Rollback()
		return attendance.Record{}, err
	}
	if err := tx.Commit(); err != nil {
		return attendance.Record{}, errors.Wrap(err, "committing tx")
	}
	return out, nil
}

// UpsertRecords applies the whole batch in one transaction.
func (repo *attendanceRepository) UpsertRecords(ctx context.Context, recs []attendance.Record) ([]attendance.Record, error) {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, errors.Wrap(err, "beginning tx")
	}
	out := make([]attendance.Record, 0, len(recs))
	for _, rec := range recs {
		saved, err := upsertRecordTx(ctx, tx, rec)
		if err != nil {
			_ = tx.Rollback()
			return nil, err
		}
		out = append(out, saved)
	}
	if err := tx.Commit(); err != nil {
		return nil, errors.Wrap(err, "committing tx")
	}
	return out, nil
}

func (repo *attendanceRepository) GetRecordByID(ctx context.Context, id string) (attendance.Record, error) {
	var row attendanceRow
	err := repo.db.GetContext(ctx, &row,
		`SELECT `+attendanceCols+` FROM `+table(ctx, "attendance")+` WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return attendance.Record{}, attendance.ErrNotFound
	}
	if err != nil {
		return attendance.Record{}, errors.Wrap(err, "getting attendance")
	}
	return row.record(), nil
}

func (repo *attendanceRepository) GetRecord(ctx context.Context, studentID string, date time.Time) (attendance.Record, error) {
	var row attendanceRow
	err := repo.db.GetContext(ctx, &row,
		`SELECT `+attendanceCols+` FROM `+table(ctx, "attendance")+` WHERE student_id = $1 AND date = $2`,
		studentID, date)
	if err == sql.ErrNoRows {
		return attendance.Record{}, attendance.ErrNotFound
	}
	if err != nil {
		return attendance.Record{}, errors.Wrap(err, "getting attendance")
	}
	return row.record(), nil
}

func (repo *attendanceRepository) QueryRecordsByDate(ctx context.Context, date time.Time) ([]attendance.Record, error) {
	var rows []attendanceRow
	err := repo.db.SelectContext(ctx, &rows,
		`SELECT `+attendanceCols+` FROM `+table(ctx, "attendance")+` WHERE date = $1 ORDER BY student_id`, date)
	if err != nil {
		return nil, errors.Wrap(err, "querying attendance")
	}
	return recordsFromRows(rows), nil
}

func (repo *attendanceRepository) QueryRecordsInRange(ctx context.Context, start, end time.Time, studentIDs []string) ([]attendance.Record, error) {
	q := `SELECT ` + attendanceCols + ` FROM ` + table(ctx, "attendance") + ` WHERE date >= $1 AND date <= $2`
	args := []interface{}{start, end}
	if len(studentIDs) > 0 {
		q += ` AND student_id = ANY($3)`
		args = append(args, pq.Array(studentIDs))
	}
	q += ` ORDER BY student_id, date`

	var rows []attendanceRow
	if err := repo.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying attendance")
	}
	return recordsFromRows(rows), nil
}

func recordsFromRows(rows []attendanceRow) []attendance.Record {
	recs := make([]attendance.Record, 0, len(rows))
	for _, row := range rows {
		recs = append(recs, row.record())
	}
	return recs
}

func (repo *attendanceRepository) DeleteRecord(ctx context.Context, id string) error {
	if _, err := repo.db.ExecContext(ctx, `DELETE FROM `+table(ctx, "attendance")+` WHERE id = $1`, id); err != nil {
		return errors.Wrap(err, "deleting attendance")
	}
	return nil
}
