package echoapi

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/trezcool/shule/core/tenant"
)

func TestSchoolAPI(t *testing.T) {
	staffToken := getToken(t, staffUsr)

	t.Run("staff only", func(t *testing.T) {
		for _, token := range []string{getToken(t, adminUsr), getToken(t, teacherUsr), getToken(t, parentUsr)} {
			req, rec := newAuthRequest(http.MethodGet, "/v1/schools", token)
			do(req, rec)
			assert.Equal(t, http.StatusForbidden, rec.Code)
		}

		req, rec := newRequest(http.MethodGet, "/v1/schools")
		do(req, rec)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	var created tenant.School
	t.Run("create", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/schools", staffToken, tenant.NewSchool{
			Name:           "Baobab Academy",
			AdminEmail:     "head@baobab.example.com",
			AdminFirstName: "Juma",
			AdminLastName:  "Otieno",
		})
		do(req, rec)
		assert.Equal(t, http.StatusCreated, rec.Code)

		decode(t, rec, &created)
		assert.NotEmpty(t, created.ID)
		assert.Equal(t, "Baobab Academy", created.Name)
		assert.Equal(t, "baobab_academy", created.SchemaName)

		// the school is bootstrapped with a working admin account
		req, rec = newRequest(http.MethodPost, "/v1/accounts/login", LoginRequest{
			Email:    "head@baobab.example.com",
			Password: conf.DefaultAdminPassword,
		})
		do(req, rec)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("create duplicate name rejected", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/schools", staffToken, tenant.NewSchool{
			Name:       "Baobab Academy",
			AdminEmail: "other@baobab.example.com",
		})
		do(req, rec)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("create requires admin email", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/schools", staffToken, tenant.NewSchool{Name: "Marula Prep"})
		do(req, rec)
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		var fields map[string]string
		decode(t, rec, &fields)
		assert.Contains(t, fields, "admin_email")
	})

	t.Run("query and retrieve", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/schools", staffToken)
		do(req, rec)
		assert.Equal(t, http.StatusOK, rec.Code)

		var schools []tenant.School
		decode(t, rec, &schools)
		names := make([]string, 0, len(schools))
		for _, sch := range schools {
			names = append(names, sch.Name)
		}
		assert.Contains(t, names, schoolName)
		assert.Contains(t, names, "Baobab Academy")

		req, rec = newAuthRequest(http.MethodGet, "/v1/schools/"+created.ID, staffToken)
		do(req, rec)
		assert.Equal(t, http.StatusOK, rec.Code)

		var sch tenant.School
		decode(t, rec, &sch)
		assert.Equal(t, created, sch)
	})

	t.Run("destroy", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodDelete, "/v1/schools/"+created.ID, staffToken)
		do(req, rec)
		assert.Equal(t, http.StatusNoContent, rec.Code)

		req, rec = newAuthRequest(http.MethodGet, "/v1/schools/"+created.ID, staffToken)
		do(req, rec)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}
