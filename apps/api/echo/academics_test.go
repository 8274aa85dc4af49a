package echoapi

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/trezcool/shule/core/academics"
)

func TestAcademicsAPI(t *testing.T) {
	adminToken := getToken(t, adminUsr)
	teacherToken := getToken(t, teacherUsr)

	t.Run("mutations are admin only", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/class-levels", teacherToken, academics.NewClassLevel{
			Name: "Grade 9", Code: "GR9",
		})
		do(req, rec)
		assert.Equal(t, http.StatusForbidden, rec.Code)

		req, rec = newAuthRequest(http.MethodPost, "/v1/subjects", teacherToken, academics.NewSubject{
			Name: "Music", Code: "MUS",
		})
		do(req, rec)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	var grade1 academics.ClassLevel
	t.Run("create class level", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/class-levels", adminToken, academics.NewClassLevel{
			Name:     "Grade 1",
			Code:     "GR1",
			AgeRange: "6-7",
		})
		do(req, rec)
		assert.Equal(t, http.StatusCreated, rec.Code)

		decode(t, rec, &grade1)
		assert.NotEmpty(t, grade1.ID)
		assert.Equal(t, "GR1", grade1.Code)
	})

	t.Run("duplicate code rejected", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/class-levels", adminToken, academics.NewClassLevel{
			Name: "Grade One", Code: "GR1",
		})
		do(req, rec)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("reads are open to the tenant", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/class-levels", teacherToken)
		do(req, rec)
		assert.Equal(t, http.StatusOK, rec.Code)

		var levels []academics.ClassLevel
		decode(t, rec, &levels)
		assert.NotEmpty(t, levels)
	})

	t.Run("subjects", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/subjects", adminToken, academics.NewSubject{
			Name:            "Mathematics",
			Code:            "MATH",
			ClassLevelNames: []string{"Grade 1"},
		})
		do(req, rec)
		assert.Equal(t, http.StatusCreated, rec.Code)

		var sub academics.Subject
		decode(t, rec, &sub)

		// filtered query
		req, rec = newAuthRequest(http.MethodGet, "/v1/subjects?class_level=Grade+1", teacherToken)
		do(req, rec)
		assert.Equal(t, http.StatusOK, rec.Code)

		var subjects []academics.Subject
		decode(t, rec, &subjects)
		if assert.Len(t, subjects, 1) {
			assert.Equal(t, sub.ID, subjects[0].ID)
		}

		req, rec = newAuthRequest(http.MethodGet, "/v1/subjects?class_level=Grade+4", teacherToken)
		do(req, rec)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "[]\n", rec.Body.String())
	})

	t.Run("update class level", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPut, "/v1/class-levels/"+grade1.ID, adminToken, academics.NewClassLevel{
			Name:     "Grade 1",
			Code:     "GR1",
			AgeRange: "6-8",
		})
		do(req, rec)
		assert.Equal(t, http.StatusOK, rec.Code)

		var cl academics.ClassLevel
		decode(t, rec, &cl)
		assert.Equal(t, "6-8", cl.AgeRange)
	})
}
