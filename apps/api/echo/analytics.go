package echoapi

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core/report"
)

type analyticsApi struct {
	deps ServerDeps
}

func registerAnalyticsAPI(g *echo.Group, deps ServerDeps) {
	api := analyticsApi{deps: deps}

	ag := g.Group("/analytics", teacherMiddleware())
	ag.GET("/dashboard", api.dashboard)
	ag.GET("/students/:id/progress", api.studentProgress)
	ag.GET("/class-levels/:id/performance", api.classPerformance)
}

func (api *analyticsApi) dashboard(ctx echo.Context) error {
	dash, err := api.deps.AnalyticsSvc.Dashboard(ctx.Request().Context(), time.Now().UTC())
	if err != nil {
		return errors.Wrap(err, "building dashboard")
	}
	return ctx.JSON(http.StatusOK, dash)
}

func (api *analyticsApi) studentProgress(ctx echo.Context) error {
	progress, err := api.deps.AnalyticsSvc.StudentProgress(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "building student progress")
	}
	return ctx.JSON(http.StatusOK, progress)
}

func (api *analyticsApi) classPerformance(ctx echo.Context) error {
	perf, err := api.deps.AnalyticsSvc.ClassPerformance(
		ctx.Request().Context(),
		ctx.Param("id"),
		ctx.QueryParam("academic_year"),
		report.Term(ctx.QueryParam("term")),
	)
	if err != nil {
		return errors.Wrap(err, "building class performance")
	}
	return ctx.JSON(http.StatusOK, perf)
}
