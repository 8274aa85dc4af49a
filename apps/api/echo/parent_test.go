package echoapi

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/trezcool/shule/core/profile"
	"github.com/trezcool/shule/core/report"
)

func TestParentAPI(t *testing.T) {
	parentToken := getToken(t, parentUsr)
	teacherToken := getToken(t, teacherUsr)

	t.Run("parents only", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/parent/children", teacherToken)
		do(req, rec)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("children", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/parent/children", parentToken)
		do(req, rec)
		assert.Equal(t, http.StatusOK, rec.Code)

		var children []profile.Student
		decode(t, rec, &children)
		if assert.Len(t, children, 1) {
			assert.Equal(t, studentID, children[0].ID)
			assert.Equal(t, "ADM001", children[0].AdmissionNumber)
		}
	})

	t.Run("other families' children are a 404", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/parent/children/ghost/reports/daily", parentToken)
		do(req, rec)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("only sent daily reports are visible", func(t *testing.T) {
		// two reports, one of which gets sent
		req, rec := newAuthRequest(http.MethodPost, "/v1/reports/daily", teacherToken,
			newDailyReportPayload(studentID, "2021-03-01"))
		do(req, rec)
		if rec.Code != http.StatusCreated {
			t.Fatalf("creating daily report: %d: %s", rec.Code, rec.Body.String())
		}
		var sent report.DailyReport
		decode(t, rec, &sent)

		req, rec = newAuthRequest(http.MethodPost, "/v1/reports/daily", teacherToken,
			newDailyReportPayload(studentID, "2021-03-02"))
		do(req, rec)
		if rec.Code != http.StatusCreated {
			t.Fatalf("creating daily report: %d: %s", rec.Code, rec.Body.String())
		}

		req, rec = newAuthRequest(http.MethodPost, "/v1/reports/daily/"+sent.ID+"/send-to-parent", teacherToken)
		do(req, rec)
		assert.Equal(t, http.StatusOK, rec.Code)

		req, rec = newAuthRequest(http.MethodGet, "/v1/parent/children/"+studentID+"/reports/daily", parentToken)
		do(req, rec)
		assert.Equal(t, http.StatusOK, rec.Code)

		var rpts []report.DailyReport
		decode(t, rec, &rpts)
		if assert.Len(t, rpts, 1) {
			assert.Equal(t, sent.ID, rpts[0].ID)
			assert.NotNil(t, rpts[0].SentAt)
		}
	})

	t.Run("only finalized term reports are visible", func(t *testing.T) {
		payload := newTermReportPayload(studentID, report.TermFirst, report.NewTermSubjectReport{
			SubjectID:       "sub-math",
			ExamScore:       80,
			ContinuousScore: 80,
			Participation:   80,
			OverallRubric:   report.RubricMastered,
			SubjectComment:  "consistent",
		})
		payload.AcademicYear = "2019-2020"
		req, rec := newAuthRequest(http.MethodPost, "/v1/reports/term", teacherToken, payload)
		do(req, rec)
		if rec.Code != http.StatusCreated {
			t.Fatalf("creating term report: %d: %s", rec.Code, rec.Body.String())
		}
		var rpt report.TermReport
		decode(t, rec, &rpt)

		req, rec = newAuthRequest(http.MethodGet, "/v1/parent/children/"+studentID+"/reports/term", parentToken)
		do(req, rec)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "[]\n", rec.Body.String())

		req, rec = newAuthRequest(http.MethodPost, "/v1/reports/term/"+rpt.ID+"/finalize", teacherToken)
		do(req, rec)
		assert.Equal(t, http.StatusOK, rec.Code)

		req, rec = newAuthRequest(http.MethodGet, "/v1/parent/children/"+studentID+"/reports/term", parentToken)
		do(req, rec)
		assert.Equal(t, http.StatusOK, rec.Code)

		var rpts []report.TermReport
		decode(t, rec, &rpts)
		if assert.Len(t, rpts, 1) {
			assert.Equal(t, rpt.ID, rpts[0].ID)
			assert.True(t, rpts[0].Finalized)
		}
	})

	t.Run("weekly reports are visible without gating", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/parent/children/"+studentID+"/reports/weekly", parentToken)
		do(req, rec)
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}
