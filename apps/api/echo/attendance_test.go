package echoapi

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/trezcool/shule/core/attendance"
)

func TestAttendanceAPI(t *testing.T) {
	teacherToken := getToken(t, teacherUsr)

	t.Run("teachers and admins only", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/attendance", getToken(t, parentUsr), attendance.UpsertRecord{})
		do(req, rec)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	var recID string
	t.Run("upsert", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/attendance", teacherToken, attendance.UpsertRecord{
			StudentID: studentID,
			Date:      "2021-05-03",
			Status:    attendance.StatusLate,
			TimeIn:    "08:45",
		})
		do(req, rec)
		assert.Equal(t, http.StatusOK, rec.Code)

		var r attendance.Record
		decode(t, rec, &r)
		assert.NotEmpty(t, r.ID)
		assert.Equal(t, attendance.StatusLate, r.Status)
		assert.Equal(t, teacherUsr.ID, r.RecordedByID)
		recID = r.ID

		// same (student, date) overwrites in place
		req, rec = newAuthRequest(http.MethodPost, "/v1/attendance", teacherToken, attendance.UpsertRecord{
			StudentID: studentID,
			Date:      "2021-05-03",
			Status:    attendance.StatusPresent,
		})
		do(req, rec)
		assert.Equal(t, http.StatusOK, rec.Code)

		decode(t, rec, &r)
		assert.Equal(t, recID, r.ID)
		assert.Equal(t, attendance.StatusPresent, r.Status)
	})

	t.Run("unknown student rejected", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/attendance", teacherToken, attendance.UpsertRecord{
			StudentID: "ghost",
			Date:      "2021-05-03",
			Status:    attendance.StatusPresent,
		})
		do(req, rec)
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		var fields map[string]string
		decode(t, rec, &fields)
		assert.Contains(t, fields, "student_id")
	})

	t.Run("bulk is all or nothing", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/attendance/bulk", teacherToken, attendance.BulkUpsert{
			Date: "2021-05-04",
			Entries: []attendance.BulkEntry{
				{StudentID: studentID, Status: attendance.StatusPresent},
				{StudentID: "ghost", Status: attendance.StatusPresent},
			},
		})
		do(req, rec)
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		var fields map[string]string
		decode(t, rec, &fields)
		assert.Contains(t, fields, "entries[1].student_id")

		// nothing was written for that date
		req, rec = newAuthRequest(http.MethodGet, "/v1/attendance?date=2021-05-04", teacherToken)
		do(req, rec)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "[]\n", rec.Body.String())

		req, rec = newAuthRequest(http.MethodPost, "/v1/attendance/bulk", teacherToken, attendance.BulkUpsert{
			Date:    "2021-05-04",
			Entries: []attendance.BulkEntry{{StudentID: studentID, Status: attendance.StatusExcused}},
		})
		do(req, rec)
		assert.Equal(t, http.StatusOK, rec.Code)

		var records []attendance.Record
		decode(t, rec, &records)
		assert.Len(t, records, 1)
	})

	t.Run("query by date", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/attendance?date=2021-05-03", teacherToken)
		do(req, rec)
		assert.Equal(t, http.StatusOK, rec.Code)

		var records []attendance.Record
		decode(t, rec, &records)
		if assert.Len(t, records, 1) {
			assert.Equal(t, recID, records[0].ID)
		}
	})

	t.Run("range summary", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet,
			"/v1/attendance/summary?start_date=2021-05-01&end_date=2021-05-31&student_id="+studentID, teacherToken)
		do(req, rec)
		assert.Equal(t, http.StatusOK, rec.Code)

		var summaries []attendance.StudentSummary
		decode(t, rec, &summaries)
		if assert.Len(t, summaries, 1) {
			s := summaries[0]
			assert.Equal(t, studentID, s.StudentID)
			assert.Equal(t, 1, s.Present)
			assert.Equal(t, 1, s.Excused)
			assert.Equal(t, 2, s.Total)
			assert.InDelta(t, 50, s.Rate, 0.001)
		}
	})

	t.Run("range summary requires a window", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/attendance/summary?end_date=2021-05-31", teacherToken)
		do(req, rec)
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		var fields map[string]string
		decode(t, rec, &fields)
		assert.Contains(t, fields, "start_date")
	})

	t.Run("retrieve and destroy", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/attendance/"+recID, teacherToken)
		do(req, rec)
		assert.Equal(t, http.StatusOK, rec.Code)

		req, rec = newAuthRequest(http.MethodDelete, "/v1/attendance/"+recID, teacherToken)
		do(req, rec)
		assert.Equal(t, http.StatusNoContent, rec.Code)

		req, rec = newAuthRequest(http.MethodGet, "/v1/attendance/"+recID, teacherToken)
		do(req, rec)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}
