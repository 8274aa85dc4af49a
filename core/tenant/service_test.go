package tenant_test

import (
	"context"
	"io"
	"log"
	"testing"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/profile"
	"github.com/trezcool/shule/core/tenant"
	"github.com/trezcool/shule/core/user"
	inmemdb "github.com/trezcool/shule/storage/database/inmem"
)

type testEnv struct {
	usrSvc     *user.Service
	tenantSvc  *tenant.Service
	profileSvc *profile.Service
}

func setup(t *testing.T) *testEnv {
	t.Helper()
	conf := &core.Config{AppName: "Shule", TestMode: true, DefaultAdminPassword: "Default_password12345!"}
	logger := core.NewStdLogger(log.New(io.Discard, "", 0))

	validate := validator.New()
	lang := en.New()
	translator, _ := ut.New(lang, lang).GetTranslator("en")
	core.InitValidators(validate, translator)
	user.RegisterValidators(validate, translator)

	db := inmemdb.NewDB()
	usrSvc := user.NewService(inmemdb.NewUserRepository(db), nil, conf, validate)
	tenantSvc := tenant.NewService(inmemdb.NewSchoolRepository(db), nil, logger)
	profileSvc := profile.NewService(inmemdb.NewProfileRepository(db), usrSvc, tenantSvc, conf, logger)
	tenantSvc.SetBootstrapper(profileSvc)
	return &testEnv{usrSvc: usrSvc, tenantSvc: tenantSvc, profileSvc: profileSvc}
}

func TestSchemaNameFor(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"Acacia Primary", "acacia_primary"},
		{"  St. Mary's  ", "st_mary_s"},
		{"ABC-123", "abc_123"},
		{"Public", "public"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tenant.SchemaNameFor(tt.name), "SchemaNameFor(%q)", tt.name)
	}
}

func TestService_Create_bootstrapsAdmin(t *testing.T) {
	ctx := context.Background()
	env := setup(t)

	sch, err := env.tenantSvc.Create(ctx, tenant.NewSchool{
		Name:           "Acacia Primary",
		AdminEmail:     "head@acacia.example.com",
		AdminFirstName: "Mary",
		AdminLastName:  "Wanjiru",
	})
	assert.NoError(t, err)
	assert.NotEmpty(t, sch.ID)
	assert.Equal(t, "acacia_primary", sch.SchemaName)

	// the bootstrap admin exists with the well-known default password
	usr, err := env.usrSvc.GetByEmail(ctx, "head@acacia.example.com")
	assert.NoError(t, err)
	assert.True(t, usr.IsStaff)
	assert.Equal(t, sch.ID, usr.SchoolID)
	assert.NoError(t, usr.CheckPassword("Default_password12345!"))

	// with an Admin profile inside the new partition
	roles, err := env.profileSvc.RolesFor(tenant.NewContext(ctx, sch), usr.ID)
	assert.NoError(t, err)
	assert.Equal(t, []profile.Role{profile.RoleAdmin}, roles)
}

func TestService_Create_publicTenantSkipsBootstrap(t *testing.T) {
	ctx := context.Background()
	env := setup(t)

	sch, err := env.tenantSvc.Create(ctx, tenant.NewSchool{Name: tenant.PublicName})
	assert.NoError(t, err)
	assert.True(t, sch.IsPublic())

	users, err := env.usrSvc.QueryAll(ctx)
	assert.NoError(t, err)
	assert.Empty(t, users)
}

func TestService_Create_duplicateName(t *testing.T) {
	ctx := context.Background()
	env := setup(t)

	_, err := env.tenantSvc.Create(ctx, tenant.NewSchool{Name: "Acacia Primary", AdminEmail: "head@acacia.example.com"})
	assert.NoError(t, err)

	_, err = env.tenantSvc.Create(ctx, tenant.NewSchool{Name: "Acacia Primary", AdminEmail: "other@acacia.example.com"})
	assert.Equal(t, tenant.ErrNameExists, errors.Cause(err))
}

func TestService_Create_bootstrapFailureRollsBack(t *testing.T) {
	ctx := context.Background()
	env := setup(t)

	// occupy the admin email so bootstrap fails on email uniqueness
	_, err := env.usrSvc.Create(ctx, user.NewUser{Username: "squatter", Email: "head@acacia.example.com", Password: "LeKePa55#"})
	assert.NoError(t, err)

	_, err = env.tenantSvc.Create(ctx, tenant.NewSchool{Name: "Acacia Primary", AdminEmail: "head@acacia.example.com"})
	assert.Error(t, err)

	// a school never exists without its admin
	_, err = env.tenantSvc.Resolve(ctx, "Acacia Primary")
	assert.Equal(t, tenant.ErrNotFound, errors.Cause(err))
}

func TestService_Resolve(t *testing.T) {
	ctx := context.Background()
	env := setup(t)

	sch, err := env.tenantSvc.Create(ctx, tenant.NewSchool{Name: "Acacia Primary", AdminEmail: "head@acacia.example.com"})
	assert.NoError(t, err)

	got, err := env.tenantSvc.Resolve(ctx, "  Acacia Primary ")
	assert.NoError(t, err)
	assert.Equal(t, sch.ID, got.ID)

	_, err = env.tenantSvc.Resolve(ctx, "Nowhere Academy")
	assert.Equal(t, tenant.ErrNotFound, errors.Cause(err))
}
