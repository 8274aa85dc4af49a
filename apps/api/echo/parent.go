package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core/profile"
	"github.com/trezcool/shule/core/report"
)

type parentApi struct {
	deps ServerDeps
}

func registerParentAPI(g *echo.Group, deps ServerDeps) {
	api := parentApi{deps: deps}

	pg := g.Group("/parent", parentMiddleware())
	pg.GET("/children", api.children)

	cg := pg.Group("/children/:id", api.ownChildMiddleware)
	cg.GET("/reports/daily", api.dailyReports)
	cg.GET("/reports/weekly", api.weeklyReports)
	cg.GET("/reports/term", api.termReports)
}

func (api *parentApi) currentParent(ctx echo.Context) (profile.Parent, error) {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return profile.Parent{}, errors.Wrap(err, "getting context claims")
	}
	par, err := api.deps.ProfileSvc.GetParentByUserID(ctx.Request().Context(), claims.Subject)
	if err != nil {
		return profile.Parent{}, errors.Wrap(err, "finding parent profile")
	}
	return par, nil
}

// ownChildMiddleware 404s when the requested student is not linked to the
// authenticated parent; a parent never sees other families' reports.
func (api *parentApi) ownChildMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		par, err := api.currentParent(ctx)
		if err != nil {
			return err
		}
		childID := ctx.Param("id")
		for _, id := range par.ChildIDs {
			if id == childID {
				return next(ctx)
			}
		}
		return errHttpNotFound
	}
}

func (api *parentApi) children(ctx echo.Context) error {
	par, err := api.currentParent(ctx)
	if err != nil {
		return err
	}

	children := make([]profile.Student, 0, len(par.ChildIDs))
	for _, id := range par.ChildIDs {
		st, err := api.deps.ProfileSvc.GetStudent(ctx.Request().Context(), id)
		if err != nil {
			if errors.Cause(err) == profile.ErrNotFound {
				continue
			}
			return errors.Wrap(err, "finding child student")
		}
		children = append(children, st)
	}
	return ctx.JSON(http.StatusOK, children)
}

func (api *parentApi) dailyReports(ctx echo.Context) error {
	rpts, err := api.deps.ReportSvc.DailyForParent(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "querying daily reports for parent")
	}
	if rpts == nil {
		rpts = []report.DailyReport{}
	}
	return ctx.JSON(http.StatusOK, rpts)
}

func (api *parentApi) weeklyReports(ctx echo.Context) error {
	rpts, err := api.deps.ReportSvc.WeeklyForParent(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "querying weekly reports for parent")
	}
	if rpts == nil {
		rpts = []report.WeeklyReport{}
	}
	return ctx.JSON(http.StatusOK, rpts)
}

func (api *parentApi) termReports(ctx echo.Context) error {
	rpts, err := api.deps.ReportSvc.TermForParent(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "querying term reports for parent")
	}
	if rpts == nil {
		rpts = []report.TermReport{}
	}
	return ctx.JSON(http.StatusOK, rpts)
}
