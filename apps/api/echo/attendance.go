package echoapi

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/attendance"
)

type attendanceApi struct {
	deps ServerDeps
}

func registerAttendanceAPI(g *echo.Group, deps ServerDeps) {
	api := attendanceApi{deps: deps}

	ag := g.Group("/attendance", teacherMiddleware())
	ag.POST("", api.upsert)
	ag.POST("/bulk", api.bulkUpsert)
	ag.GET("", api.queryByDate)
	ag.GET("/summary", api.rangeSummary)
	ag.GET("/:id", api.retrieve)
	ag.DELETE("/:id", api.destroy)
}

func (api *attendanceApi) upsert(ctx echo.Context) error {
	var data attendance.UpsertRecord
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpsertRecord")
	}
	if err := data.Validate(api.deps.Validate); err != nil {
		return err
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	rec, err := api.deps.AttendanceSvc.Upsert(ctx.Request().Context(), data, claims.Subject)
	if err != nil {
		return errors.Wrap(err, "upserting attendance record")
	}
	return ctx.JSON(http.StatusOK, rec)
}

// bulkUpsert is all-or-nothing: one bad entry fails the whole batch.
func (api *attendanceApi) bulkUpsert(ctx echo.Context) error {
	var data attendance.BulkUpsert
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to BulkUpsert")
	}
	if err := data.Validate(api.deps.Validate); err != nil {
		return err
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	recs, err := api.deps.AttendanceSvc.BulkUpsert(ctx.Request().Context(), data, claims.Subject)
	if err != nil {
		return errors.Wrap(err, "bulk upserting attendance")
	}
	return ctx.JSON(http.StatusOK, recs)
}

func (api *attendanceApi) queryByDate(ctx echo.Context) error {
	date, err := parseDateParam(ctx.QueryParam("date"), "date", time.Now().UTC())
	if err != nil {
		return err
	}

	recs, err := api.deps.AttendanceSvc.QueryByDate(ctx.Request().Context(), date)
	if err != nil {
		return errors.Wrap(err, "querying attendance by date")
	}
	if recs == nil {
		recs = []attendance.Record{}
	}
	return ctx.JSON(http.StatusOK, recs)
}

func (api *attendanceApi) rangeSummary(ctx echo.Context) error {
	start, err := parseDateParam(ctx.QueryParam("start_date"), "start_date", time.Time{})
	if err != nil {
		return err
	}
	end, err := parseDateParam(ctx.QueryParam("end_date"), "end_date", time.Time{})
	if err != nil {
		return err
	}
	if start.IsZero() || end.IsZero() {
		return core.NewValidationError(
			errors.New("missing range"),
			core.FieldError{Field: "start_date", Error: "start_date and end_date are required"},
		)
	}

	filter := attendance.SummaryFilter{
		StudentID:    ctx.QueryParam("student_id"),
		ClassLevelID: ctx.QueryParam("class_level_id"),
	}
	summaries, err := api.deps.AttendanceSvc.RangeSummary(ctx.Request().Context(), start, end, filter)
	if err != nil {
		return errors.Wrap(err, "summarizing attendance")
	}
	if summaries == nil {
		summaries = []attendance.StudentSummary{}
	}
	return ctx.JSON(http.StatusOK, summaries)
}

func (api *attendanceApi) retrieve(ctx echo.Context) error {
	rec, err := api.deps.AttendanceSvc.Get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding attendance record by ID")
	}
	return ctx.JSON(http.StatusOK, rec)
}

func (api *attendanceApi) destroy(ctx echo.Context) error {
	if err := api.deps.AttendanceSvc.Delete(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting attendance record")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// parseDateParam parses a YYYY-MM-DD query param, falling back to def when
// the param is absent.
func parseDateParam(val, field string, def time.Time) (time.Time, error) {
	if val == "" {
		return def, nil
	}
	d, err := time.Parse("2006-01-02", val)
	if err != nil {
		return time.Time{}, core.NewValidationError(err, core.FieldError{
			Field: field, Error: "invalid date, expected YYYY-MM-DD",
		})
	}
	return d, nil
}
