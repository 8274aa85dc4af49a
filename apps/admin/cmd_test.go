package main

import (
	"context"
	"io"
	"log"
	"testing"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/profile"
	"github.com/trezcool/shule/core/tenant"
	"github.com/trezcool/shule/core/user"
	inmemdb "github.com/trezcool/shule/storage/database/inmem"
)

func setup(t *testing.T) *commandLine {
	t.Helper()

	conf := &core.Config{
		TestMode:             true,
		AppName:              "Shule",
		DefaultAdminPassword: "Default_password12345!",
	}
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

	return &commandLine{conf: conf, usrSvc: usrSvc, tenantSvc: tenantSvc}
}

func Test_commandLine_run(t *testing.T) {
	cli := setup(t)

	t.Run("no args prints usage", func(t *testing.T) {
		assert.Equal(t, errHelp, cli.run([]string{"admin"}))
	})

	t.Run("unknown command prints usage", func(t *testing.T) {
		assert.Equal(t, errHelp, cli.run([]string{"admin", "frobnicate"}))
	})

	t.Run("createschool", func(t *testing.T) {
		t.Run("name and email are required", func(t *testing.T) {
			assert.Equal(t, errHelp, cli.run([]string{"admin", "createschool"}))
			assert.Equal(t, errHelp, cli.run([]string{"admin", "createschool", "-name", "Acacia Primary"}))
			assert.Equal(t, errHelp, cli.run([]string{"admin", "createschool", "-email", "head@acacia.example.com"}))
		})

		t.Run("ok", func(t *testing.T) {
			err := cli.run([]string{
				"admin", "createschool",
				"-name", "Acacia Primary",
				"-email", "head@acacia.example.com",
				"-firstname", "Mary",
				"-lastname", "Wanjiru",
			})
			assert.NoError(t, err)

			ctx := context.Background()
			sch, err := cli.tenantSvc.Resolve(ctx, "Acacia Primary")
			if err != nil {
				t.Fatalf("resolving school: %v", err)
			}
			assert.Equal(t, "acacia_primary", sch.SchemaName)

			// the bootstrap admin can log in with the default password
			usr, err := cli.usrSvc.GetByEmail(ctx, "head@acacia.example.com")
			if err != nil {
				t.Fatalf("finding admin: %v", err)
			}
			assert.NoError(t, usr.CheckPassword(cli.conf.DefaultAdminPassword))
		})

		t.Run("duplicate name rejected", func(t *testing.T) {
			err := cli.run([]string{
				"admin", "createschool",
				"-name", "Acacia Primary",
				"-email", "other@acacia.example.com",
			})
			assert.Error(t, err)
		})
	})

	t.Run("resetpassword", func(t *testing.T) {
		origReadPwd := readPasswordFunc
		defer func() { readPasswordFunc = origReadPwd }()

		t.Run("email is required", func(t *testing.T) {
			assert.Equal(t, errHelp, cli.run([]string{"admin", "resetpassword"}))
		})

		t.Run("empty password prints usage", func(t *testing.T) {
			readPasswordFunc = func(fd int) ([]byte, error) { return nil, nil }
			assert.Equal(t, errHelp, cli.run([]string{"admin", "resetpassword", "-email", "head@acacia.example.com"}))
		})

		t.Run("ok", func(t *testing.T) {
			readPasswordFunc = func(fd int) ([]byte, error) { return []byte("N3w-Secret!"), nil }
			err := cli.run([]string{"admin", "resetpassword", "-email", "head@acacia.example.com"})
			assert.NoError(t, err)

			usr, err := cli.usrSvc.GetByEmail(context.Background(), "head@acacia.example.com")
			if err != nil {
				t.Fatalf("finding user: %v", err)
			}
			assert.NoError(t, usr.CheckPassword("N3w-Secret!"))
			assert.Error(t, usr.CheckPassword(cli.conf.DefaultAdminPassword))
		})

		t.Run("unknown email", func(t *testing.T) {
			readPasswordFunc = func(fd int) ([]byte, error) { return []byte("N3w-Secret!"), nil }
			err := cli.run([]string{"admin", "resetpassword", "-email", "nobody@example.com"})
			assert.Error(t, err)
		})
	})
}
