package echoapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/academics"
	"github.com/trezcool/shule/core/analytics"
	"github.com/trezcool/shule/core/attendance"
	"github.com/trezcool/shule/core/profile"
	"github.com/trezcool/shule/core/report"
	"github.com/trezcool/shule/core/tenant"
	"github.com/trezcool/shule/core/user"
	inmemdb "github.com/trezcool/shule/storage/database/inmem"
)

const schoolName = "Acacia Primary"

var (
	conf *core.Config
	app  Server

	usrSvc     *user.Service
	tenantSvc  *tenant.Service
	profileSvc *profile.Service

	school     tenant.School
	staffUsr   user.User
	adminUsr   user.User
	teacherUsr user.User
	parentUsr  user.User
	studentID  string

	errMissingToken = httpErr{Error: "missing or malformed jwt"}
)

func TestMain(m *testing.M) {
	conf = &core.Config{
		Env:                  "test",
		TestMode:             true,
		AppName:              "Shule",
		SecretKey:            "secret",
		DefaultAdminPassword: "Default_password12345!",
		Server: core.ServerConfig{
			JWTExpirationDelta:        10 * time.Minute,
			JWTRefreshExpirationDelta: 4 * time.Hour,
		},
	}
	logger := core.NewStdLogger(log.New(io.Discard, "", 0))

	validate := validator.New()
	translator := newTestTranslator()
	core.InitValidators(validate, translator)
	user.RegisterValidators(validate, translator)

	// set up repos & services
	db := inmemdb.NewDB()
	usrSvc = user.NewService(inmemdb.NewUserRepository(db), nil, conf, validate)
	tenantSvc = tenant.NewService(inmemdb.NewSchoolRepository(db), nil, logger)
	profileSvc = profile.NewService(inmemdb.NewProfileRepository(db), usrSvc, tenantSvc, conf, logger)
	tenantSvc.SetBootstrapper(profileSvc)
	academicsSvc := academics.NewService(inmemdb.NewAcademicsRepository(db))
	attendanceSvc := attendance.NewService(inmemdb.NewAttendanceRepository(db), profileSvc)
	reportSvc := report.NewService(inmemdb.NewReportRepository(db), profileSvc)
	analyticsSvc := analytics.NewService(profileSvc, attendanceSvc, reportSvc)

	// seed fixtures
	seed()

	// set up server
	app = NewServer(ServerDeps{
		Conf:           conf,
		Logger:         logger,
		UserSvc:        usrSvc,
		TenantSvc:      tenantSvc,
		ProfileSvc:     profileSvc,
		AcademicsSvc:   academicsSvc,
		AttendanceSvc:  attendanceSvc,
		ReportSvc:      reportSvc,
		AnalyticsSvc:   analyticsSvc,
		Validate:       validate,
		Translator:     translator,
		DisableReqLogs: true,
	})

	os.Exit(m.Run())
}

func newTestTranslator() ut.Translator {
	lang := en.New()
	translator, _ := ut.New(lang, lang).GetTranslator("en")
	return translator
}

func seed() {
	ctx := context.Background()
	var err error

	if school, err = tenantSvc.Create(ctx, tenant.NewSchool{
		Name:           schoolName,
		AdminEmail:     "head@acacia.example.com",
		AdminFirstName: "Mary",
		AdminLastName:  "Wanjiru",
	}); err != nil {
		log.Fatalf("seed(): creating school: %v", err)
	}
	if adminUsr, err = usrSvc.GetByEmail(ctx, "head@acacia.example.com"); err != nil {
		log.Fatalf("seed(): finding admin: %v", err)
	}

	if staffUsr, err = usrSvc.Create(ctx, user.NewUser{
		Username: "root",
		Email:    "staff@shule.app",
		Password: "LeKePa55#",
		IsStaff:  true,
	}); err != nil {
		log.Fatalf("seed(): creating staff: %v", err)
	}

	if _, err = profileSvc.CreateTeacher(ctx, profile.NewTeacher{
		Username: "twambui",
		Email:    "wambui@acacia.example.com",
		Password: "LeKePa55#",
		School:   schoolName,
	}); err != nil {
		log.Fatalf("seed(): creating teacher: %v", err)
	}
	if teacherUsr, err = usrSvc.GetByEmail(ctx, "wambui@acacia.example.com"); err != nil {
		log.Fatalf("seed(): finding teacher: %v", err)
	}

	res, err := profileSvc.CreateStudent(ctx, profile.NewStudent{
		Username:        "samani",
		FirstName:       "Amani",
		LastName:        "Mwangi",
		Email:           "amani@acacia.example.com",
		Password:        "LeKePa55#",
		School:          schoolName,
		AdmissionNumber: "ADM001",
		DateOfBirth:     "2016-04-12",
		ParentName:      "Grace Mwangi",
		ParentContact:   "+254700000000",
		ParentEmail:     "grace@example.com",
		Address:         "12 Acacia Lane",
		AcademicYear:    "2020-2021",
	})
	if err != nil {
		log.Fatalf("seed(): creating student: %v", err)
	}
	studentID = res.ID
	if parentUsr, err = usrSvc.GetByEmail(ctx, "grace@example.com"); err != nil {
		log.Fatalf("seed(): finding parent: %v", err)
	}
}

type httpErr struct {
	Error string `json:"error"`
}

func getToken(t *testing.T, usr user.User) string {
	t.Helper()
	ctx := context.Background()

	var sch tenant.School
	var roles []profile.Role
	var err error
	if usr.SchoolID != "" {
		if sch, err = tenantSvc.GetByID(ctx, usr.SchoolID); err != nil {
			t.Fatalf("getToken(): %v", err)
		}
		if roles, err = profileSvc.RolesFor(tenant.NewContext(ctx, sch), usr.ID); err != nil {
			t.Fatalf("getToken(): %v", err)
		}
	}

	token, err := GenerateToken(conf, GetUserClaims(conf, usr, sch, roles))
	if err != nil {
		t.Fatalf("getToken(): %v", err)
	}
	return token
}

func newAuthRequest(method, path, token string, data ...interface{}) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		_ = json.NewEncoder(&body).Encode(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...interface{}) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

func do(req *http.Request, rec *httptest.ResponseRecorder) *httptest.ResponseRecorder {
	app.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
		t.Fatalf("decode(): %v; body: %s", err, rec.Body.String())
	}
}

func TestHomeAPI(t *testing.T) {
	req, rec := newRequest(http.MethodGet, "/")
	do(req, rec)
	if rec.Code != http.StatusOK {
		t.Fatalf("GET / = %d, want 200", rec.Code)
	}
	if rec.Body.String() != "Welcome to Shule API!" {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}
}
