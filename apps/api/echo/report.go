package echoapi

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core/profile"
	"github.com/trezcool/shule/core/report"
)

type reportApi struct {
	deps ServerDeps
}

func registerReportAPI(g *echo.Group, deps ServerDeps) {
	api := reportApi{deps: deps}

	teacher := teacherMiddleware()
	admin := adminMiddleware()

	dg := g.Group("/reports/daily", teacher)
	dg.POST("", api.createDaily)
	dg.POST("/bulk", api.bulkCreateDaily)
	dg.GET("", api.queryDaily)
	dg.GET("/:id", api.retrieveDaily)
	dg.PUT("/:id", api.updateDaily)
	dg.DELETE("/:id", api.destroyDaily)
	dg.POST("/:id/send-to-parent", api.sendToParent)

	wg := g.Group("/reports/weekly", teacher)
	wg.POST("", api.createWeekly)
	wg.GET("", api.queryWeekly)
	wg.GET("/:id", api.retrieveWeekly)
	wg.PUT("/:id", api.updateWeekly)
	wg.DELETE("/:id", api.destroyWeekly)

	tg := g.Group("/reports/term", teacher)
	tg.POST("", api.createTerm)
	tg.GET("", api.queryTerm)
	tg.GET("/:id", api.retrieveTerm)
	tg.PUT("/:id", api.updateTerm)
	tg.DELETE("/:id", api.destroyTerm)
	tg.POST("/:id/finalize", api.finalizeTerm)
	tg.POST("/:id/unfinalize", api.unfinalizeTerm, admin)
}

// currentTeacherID maps the authenticated user to their teacher profile in
// the pinned tenant, or "" for admins and staff without one.
func (api *reportApi) currentTeacherID(ctx echo.Context) (string, error) {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return "", errors.Wrap(err, "getting context claims")
	}
	if !claims.IsTeacher {
		return "", nil
	}
	t, err := api.deps.ProfileSvc.GetTeacherByUserID(ctx.Request().Context(), claims.Subject)
	if err != nil {
		if errors.Cause(err) == profile.ErrNotFound {
			return "", nil
		}
		return "", errors.Wrap(err, "finding teacher profile")
	}
	return t.ID, nil
}

// scopeFilter binds the query-param filters, restricting non-admin teachers
// to reports they authored.
func (api *reportApi) scopeFilter(ctx echo.Context) (report.Filter, error) {
	var f report.Filter
	f.StudentID = ctx.QueryParam("student_id")
	f.ClassLevelID = ctx.QueryParam("class_level_id")
	f.AcademicYear = ctx.QueryParam("academic_year")
	f.Term = report.Term(ctx.QueryParam("term"))

	var err error
	if f.Date, err = parseDateParam(ctx.QueryParam("date"), "date", time.Time{}); err != nil {
		return f, err
	}
	if f.From, err = parseDateParam(ctx.QueryParam("start_date"), "start_date", time.Time{}); err != nil {
		return f, err
	}
	if f.To, err = parseDateParam(ctx.QueryParam("end_date"), "end_date", time.Time{}); err != nil {
		return f, err
	}
	if f.WeekStart, err = parseDateParam(ctx.QueryParam("week_start_date"), "week_start_date", time.Time{}); err != nil {
		return f, err
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return f, errors.Wrap(err, "getting context claims")
	}
	if claims.IsTeacher && !(claims.IsAdmin || claims.IsStaff) {
		if f.TeacherID, err = api.currentTeacherID(ctx); err != nil {
			return f, err
		}
	}
	return f, nil
}

// daily

func (api *reportApi) createDaily(ctx echo.Context) error {
	var data report.NewDailyReport
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewDailyReport")
	}
	if err := data.Validate(api.deps.Validate); err != nil {
		return err
	}

	teacherID, err := api.currentTeacherID(ctx)
	if err != nil {
		return err
	}
	rpt, err := api.deps.ReportSvc.CreateDaily(ctx.Request().Context(), data, teacherID)
	if err != nil {
		return errors.Wrap(err, "creating daily report")
	}
	return ctx.JSON(http.StatusCreated, rpt)
}

// bulkCreateDaily applies entries independently; any failure turns the
// response into a 207 with per-index errors.
func (api *reportApi) bulkCreateDaily(ctx echo.Context) error {
	var data report.BulkDailyReports
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to BulkDailyReports")
	}

	teacherID, err := api.currentTeacherID(ctx)
	if err != nil {
		return err
	}
	res := api.deps.ReportSvc.BulkCreateDaily(ctx.Request().Context(), data, teacherID)
	code := http.StatusCreated
	if len(res.Errors) > 0 {
		code = http.StatusMultiStatus
	}
	return ctx.JSON(code, res)
}

func (api *reportApi) queryDaily(ctx echo.Context) error {
	f, err := api.scopeFilter(ctx)
	if err != nil {
		return err
	}
	rpts, err := api.deps.ReportSvc.QueryDaily(ctx.Request().Context(), f)
	if err != nil {
		return errors.Wrap(err, "querying daily reports")
	}
	if rpts == nil {
		rpts = []report.DailyReport{}
	}
	return ctx.JSON(http.StatusOK, rpts)
}

func (api *reportApi) retrieveDaily(ctx echo.Context) error {
	rpt, err := api.deps.ReportSvc.GetDaily(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding daily report by ID")
	}
	return ctx.JSON(http.StatusOK, rpt)
}

func (api *reportApi) updateDaily(ctx echo.Context) error {
	var data report.UpdateDailyReport
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateDailyReport")
	}
	if err := data.Validate(api.deps.Validate); err != nil {
		return err
	}

	rpt, err := api.deps.ReportSvc.UpdateDaily(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating daily report")
	}
	return ctx.JSON(http.StatusOK, rpt)
}

func (api *reportApi) destroyDaily(ctx echo.Context) error {
	if err := api.deps.ReportSvc.DeleteDaily(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting daily report")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *reportApi) sendToParent(ctx echo.Context) error {
	rpt, err := api.deps.ReportSvc.SendToParent(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "sending daily report to parent")
	}
	return ctx.JSON(http.StatusOK, rpt)
}

// weekly

func (api *reportApi) createWeekly(ctx echo.Context) error {
	var data report.NewWeeklyReport
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewWeeklyReport")
	}
	if err := data.Validate(api.deps.Validate); err != nil {
		return err
	}

	teacherID, err := api.currentTeacherID(ctx)
	if err != nil {
		return err
	}
	rpt, err := api.deps.ReportSvc.CreateWeekly(ctx.Request().Context(), data, teacherID)
	if err != nil {
		return errors.Wrap(err, "creating weekly report")
	}
	return ctx.JSON(http.StatusCreated, rpt)
}

func (api *reportApi) queryWeekly(ctx echo.Context) error {
	f, err := api.scopeFilter(ctx)
	if err != nil {
		return err
	}
	rpts, err := api.deps.ReportSvc.QueryWeekly(ctx.Request().Context(), f)
	if err != nil {
		return errors.Wrap(err, "querying weekly reports")
	}
	if rpts == nil {
		rpts = []report.WeeklyReport{}
	}
	return ctx.JSON(http.StatusOK, rpts)
}

func (api *reportApi) retrieveWeekly(ctx echo.Context) error {
	rpt, err := api.deps.ReportSvc.GetWeekly(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding weekly report by ID")
	}
	return ctx.JSON(http.StatusOK, rpt)
}

func (api *reportApi) updateWeekly(ctx echo.Context) error {
	var data report.NewWeeklyReport
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewWeeklyReport")
	}
	if err := data.Validate(api.deps.Validate); err != nil {
		return err
	}

	rpt, err := api.deps.ReportSvc.UpdateWeekly(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating weekly report")
	}
	return ctx.JSON(http.StatusOK, rpt)
}

func (api *reportApi) destroyWeekly(ctx echo.Context) error {
	if err := api.deps.ReportSvc.DeleteWeekly(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting weekly report")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// term

func (api *reportApi) createTerm(ctx echo.Context) error {
	var data report.NewTermReport
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewTermReport")
	}
	if err := data.Validate(api.deps.Validate); err != nil {
		return err
	}

	teacherID, err := api.currentTeacherID(ctx)
	if err != nil {
		return err
	}
	rpt, err := api.deps.ReportSvc.CreateTerm(ctx.Request().Context(), data, teacherID)
	if err != nil {
		return errors.Wrap(err, "creating term report")
	}
	return ctx.JSON(http.StatusCreated, rpt)
}

func (api *reportApi) queryTerm(ctx echo.Context) error {
	f, err := api.scopeFilter(ctx)
	if err != nil {
		return err
	}
	rpts, err := api.deps.ReportSvc.QueryTerm(ctx.Request().Context(), f)
	if err != nil {
		return errors.Wrap(err, "querying term reports")
	}
	if rpts == nil {
		rpts = []report.TermReport{}
	}
	return ctx.JSON(http.StatusOK, rpts)
}

func (api *reportApi) retrieveTerm(ctx echo.Context) error {
	rpt, err := api.deps.ReportSvc.GetTerm(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding term report by ID")
	}
	return ctx.JSON(http.StatusOK, rpt)
}

func (api *reportApi) updateTerm(ctx echo.Context) error {
	var data report.NewTermReport
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewTermReport")
	}
	if err := data.Validate(api.deps.Validate); err != nil {
		return err
	}

	rpt, err := api.deps.ReportSvc.UpdateTerm(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating term report")
	}
	return ctx.JSON(http.StatusOK, rpt)
}

func (api *reportApi) destroyTerm(ctx echo.Context) error {
	if err := api.deps.ReportSvc.DeleteTerm(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting term report")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *reportApi) finalizeTerm(ctx echo.Context) error {
	teacherID, err := api.currentTeacherID(ctx)
	if err != nil {
		return err
	}
	// teachers can only finalize their own reports; admins any
	if teacherID != "" {
		rpt, err := api.deps.ReportSvc.GetTerm(ctx.Request().Context(), ctx.Param("id"))
		if err != nil {
			return errors.Wrap(err, "getting term report")
		}
		if rpt.TeacherID != teacherID {
			return errHttpForbidden
		}
	}
	rpt, err := api.deps.ReportSvc.Finalize(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finalizing term report")
	}
	return ctx.JSON(http.StatusOK, rpt)
}

func (api *reportApi) unfinalizeTerm(ctx echo.Context) error {
	rpt, err := api.deps.ReportSvc.Unfinalize(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "unfinalizing term report")
	}
	return ctx.JSON(http.StatusOK, rpt)
}
