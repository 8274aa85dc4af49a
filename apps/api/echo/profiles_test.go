package echoapi

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/trezcool/shule/core/profile"
)

func newStudentPayload(admission, email, username string) profile.NewStudent {
	return profile.NewStudent{
		Username:        username,
		FirstName:       "Zuri",
		LastName:        "Kamau",
		Email:           email,
		Password:        "LeKePa55#",
		School:          schoolName,
		AdmissionNumber: admission,
		DateOfBirth:     "2016-08-30",
		ParentName:      "Neema Kamau",
		ParentContact:   "+254711111111",
		ParentEmail:     "neema@example.com",
		Address:         "4 Baobab Rd",
		AcademicYear:    "2020-2021",
	}
}

func TestTenantMiddleware(t *testing.T) {
	t.Run("staff needs a target school", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/teachers", getToken(t, staffUsr))
		do(req, rec)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("staff may target any school", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/teachers", getToken(t, staffUsr))
		req.Header.Set(schoolHeader, schoolName)
		do(req, rec)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("unknown school is rejected", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/teachers", getToken(t, staffUsr))
		req.Header.Set(schoolHeader, "Ghost School")
		do(req, rec)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("public tenant is never a target", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/teachers", getToken(t, staffUsr))
		req.Header.Set(schoolHeader, "Public")
		do(req, rec)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})
}

func TestProfileAPI_teachers(t *testing.T) {
	adminToken := getToken(t, adminUsr)

	t.Run("admin only", func(t *testing.T) {
		for _, token := range []string{getToken(t, teacherUsr), getToken(t, parentUsr)} {
			req, rec := newAuthRequest(http.MethodPost, "/v1/teachers", token, profile.NewTeacher{})
			do(req, rec)
			assert.Equal(t, http.StatusForbidden, rec.Code)
		}
	})

	var created profile.TeacherResult
	t.Run("create", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/teachers", adminToken, profile.NewTeacher{
			Username:  "kmutiso",
			Email:     "mutiso@acacia.example.com",
			Password:  "LeKePa55#",
			School:    schoolName,
			FirstName: "Kioko",
			LastName:  "Mutiso",
		})
		do(req, rec)
		assert.Equal(t, http.StatusCreated, rec.Code)

		decode(t, rec, &created)
		assert.NotEmpty(t, created.ID)
		assert.Equal(t, "mutiso@acacia.example.com", created.Email)
		assert.Equal(t, schoolName, created.School)
	})

	t.Run("duplicate email rejected", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/teachers", adminToken, profile.NewTeacher{
			Username: "kmutiso2",
			Email:    "Mutiso@Acacia.Example.COM",
			Password: "LeKePa55#",
			School:   schoolName,
		})
		do(req, rec)
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		var fields map[string]string
		decode(t, rec, &fields)
		assert.Contains(t, fields, "email")
	})

	t.Run("retrieve and destroy", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/teachers/"+created.ID, adminToken)
		do(req, rec)
		assert.Equal(t, http.StatusOK, rec.Code)

		var tch profile.Teacher
		decode(t, rec, &tch)
		assert.Equal(t, created.ID, tch.ID)

		req, rec = newAuthRequest(http.MethodDelete, "/v1/teachers/"+created.ID, adminToken)
		do(req, rec)
		assert.Equal(t, http.StatusNoContent, rec.Code)

		req, rec = newAuthRequest(http.MethodGet, "/v1/teachers/"+created.ID, adminToken)
		do(req, rec)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestProfileAPI_students(t *testing.T) {
	adminToken := getToken(t, adminUsr)

	var created profile.StudentResult
	t.Run("create provisions parent", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/students", adminToken,
			newStudentPayload("ADM100", "zuri@acacia.example.com", "zkamau"))
		do(req, rec)
		assert.Equal(t, http.StatusCreated, rec.Code)

		decode(t, rec, &created)
		assert.NotEmpty(t, created.ID)
		assert.Equal(t, "ADM100", created.AdmissionNumber)
		assert.Equal(t, "parent_neema", created.ParentUsername)
	})

	t.Run("duplicate admission number rejected", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/students", adminToken,
			newStudentPayload("ADM100", "zuri2@acacia.example.com", "zkamau2"))
		do(req, rec)
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		var fields map[string]string
		decode(t, rec, &fields)
		assert.Contains(t, fields, "admission_number")
	})

	t.Run("bulk reports per-entry errors", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/students/bulk", adminToken, BulkStudentsRequest{
			Students: []profile.NewStudent{
				newStudentPayload("ADM101", "abc@acacia.example.com", "abc"),
				newStudentPayload("ADM100", "dupe@acacia.example.com", "dupe"), // taken
			},
		})
		do(req, rec)
		assert.Equal(t, http.StatusMultiStatus, rec.Code)

		var res profile.BulkStudentsResult
		decode(t, rec, &res)
		assert.Len(t, res.SuccessfullyCreated, 1)
		if assert.Len(t, res.Errors, 1) {
			assert.Equal(t, 1, res.Errors[0].Index)
			assert.Equal(t, "ADM100", res.Errors[0].IdentifyingField)
		}
	})

	t.Run("bulk all good is a 201", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/students/bulk", adminToken, BulkStudentsRequest{
			Students: []profile.NewStudent{newStudentPayload("ADM102", "def@acacia.example.com", "def")},
		})
		do(req, rec)
		assert.Equal(t, http.StatusCreated, rec.Code)
	})

	t.Run("update", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPut, "/v1/students/"+created.ID, adminToken,
			profile.UpdateStudent{Address: "99 Marula Close"})
		do(req, rec)
		assert.Equal(t, http.StatusOK, rec.Code)

		var st profile.Student
		decode(t, rec, &st)
		assert.Equal(t, "99 Marula Close", st.Address)
		assert.Equal(t, "ADM100", st.AdmissionNumber)
	})

	t.Run("query and destroy", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/students", adminToken)
		do(req, rec)
		assert.Equal(t, http.StatusOK, rec.Code)

		var students []profile.Student
		decode(t, rec, &students)
		assert.NotEmpty(t, students)

		req, rec = newAuthRequest(http.MethodDelete, "/v1/students/"+created.ID, adminToken)
		do(req, rec)
		assert.Equal(t, http.StatusNoContent, rec.Code)

		req, rec = newAuthRequest(http.MethodGet, "/v1/students/"+created.ID, adminToken)
		do(req, rec)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}
