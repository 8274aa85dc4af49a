package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core/profile"
)

type profileApi struct {
	deps ServerDeps
}

func registerProfileAPI(g *echo.Group, deps ServerDeps) {
	api := profileApi{deps: deps}

	admin := adminMiddleware()

	g.POST("/admins", api.createAdmin, admin)

	tg := g.Group("/teachers", admin)
	tg.POST("", api.createTeacher)
	tg.GET("", api.queryTeachers)
	tg.GET("/:id", api.retrieveTeacher)
	tg.DELETE("/:id", api.destroyTeacher)

	sg := g.Group("/students", admin)
	sg.POST("", api.createStudent)
	sg.POST("/bulk", api.bulkCreateStudents)
	sg.GET("", api.queryStudents)
	sg.GET("/:id", api.retrieveStudent)
	sg.PUT("/:id", api.updateStudent)
	sg.DELETE("/:id", api.destroyStudent)
}

func (api *profileApi) createAdmin(ctx echo.Context) error {
	var data profile.NewAdmin
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewAdmin")
	}
	if err := data.Validate(api.deps.Validate); err != nil {
		return err
	}

	res, err := api.deps.ProfileSvc.CreateAdmin(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating admin")
	}
	return ctx.JSON(http.StatusCreated, res)
}

func (api *profileApi) createTeacher(ctx echo.Context) error {
	var data profile.NewTeacher
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewTeacher")
	}
	if err := data.Validate(api.deps.Validate); err != nil {
		return err
	}

	res, err := api.deps.ProfileSvc.CreateTeacher(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating teacher")
	}
	return ctx.JSON(http.StatusCreated, res)
}

func (api *profileApi) queryTeachers(ctx echo.Context) error {
	teachers, err := api.deps.ProfileSvc.QueryTeachers(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying teachers")
	}
	if teachers == nil {
		teachers = []profile.Teacher{}
	}
	return ctx.JSON(http.StatusOK, teachers)
}

func (api *profileApi) retrieveTeacher(ctx echo.Context) error {
	t, err := api.deps.ProfileSvc.GetTeacher(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding teacher by ID")
	}
	return ctx.JSON(http.StatusOK, t)
}

func (api *profileApi) destroyTeacher(ctx echo.Context) error {
	if err := api.deps.ProfileSvc.DeleteTeacher(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting teacher")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *profileApi) createStudent(ctx echo.Context) error {
	var data profile.NewStudent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewStudent")
	}
	if err := data.Validate(api.deps.Validate); err != nil {
		return err
	}

	res, err := api.deps.ProfileSvc.CreateStudent(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating student")
	}
	return ctx.JSON(http.StatusCreated, res)
}

// bulkCreateStudents applies entries independently: good ones are created,
// bad ones are reported per-index. Any failure turns the response into a 207.
func (api *profileApi) bulkCreateStudents(ctx echo.Context) error {
	var data BulkStudentsRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to BulkStudentsRequest")
	}

	res := api.deps.ProfileSvc.BulkCreateStudents(ctx.Request().Context(), data.Students)
	code := http.StatusCreated
	if len(res.Errors) > 0 {
		code = http.StatusMultiStatus
	}
	return ctx.JSON(code, res)
}

func (api *profileApi) queryStudents(ctx echo.Context) error {
	students, err := api.deps.ProfileSvc.QueryStudents(ctx.Request().Context(), ctx.QueryParam("class_level_id"))
	if err != nil {
		return errors.Wrap(err, "querying students")
	}
	if students == nil {
		students = []profile.Student{}
	}
	return ctx.JSON(http.StatusOK, students)
}

func (api *profileApi) retrieveStudent(ctx echo.Context) error {
	st, err := api.deps.ProfileSvc.GetStudent(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding student by ID")
	}
	return ctx.JSON(http.StatusOK, st)
}

func (api *profileApi) updateStudent(ctx echo.Context) error {
	var data profile.UpdateStudent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateStudent")
	}
	if err := data.Validate(api.deps.Validate); err != nil {
		return err
	}

	st, err := api.deps.ProfileSvc.UpdateStudent(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating student")
	}
	return ctx.JSON(http.StatusOK, st)
}

func (api *profileApi) destroyStudent(ctx echo.Context) error {
	if err := api.deps.ProfileSvc.DeleteStudent(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting student")
	}
	return ctx.NoContent(http.StatusNoContent)
}

type BulkStudentsRequest struct {
	Students []profile.NewStudent `json:"students"`
}
