package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core/academics"
)

type academicsApi struct {
	deps ServerDeps
}

func registerAcademicsAPI(g *echo.Group, deps ServerDeps) {
	api := academicsApi{deps: deps}

	admin := adminMiddleware()

	cg := g.Group("/class-levels")
	cg.GET("", api.queryClassLevels)
	cg.GET("/:id", api.retrieveClassLevel)
	cg.POST("", api.createClassLevel, admin)
	cg.PUT("/:id", api.updateClassLevel, admin)
	cg.DELETE("/:id", api.destroyClassLevel, admin)

	sg := g.Group("/subjects")
	sg.GET("", api.querySubjects)
	sg.GET("/:id", api.retrieveSubject)
	sg.POST("", api.createSubject, admin)
	sg.PUT("/:id", api.updateSubject, admin)
	sg.DELETE("/:id", api.destroySubject, admin)
}

func (api *academicsApi) createClassLevel(ctx echo.Context) error {
	var data academics.NewClassLevel
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewClassLevel")
	}
	if err := data.Validate(api.deps.Validate); err != nil {
		return err
	}

	cl, err := api.deps.AcademicsSvc.CreateClassLevel(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating class level")
	}
	return ctx.JSON(http.StatusCreated, cl)
}

func (api *academicsApi) queryClassLevels(ctx echo.Context) error {
	levels, err := api.deps.AcademicsSvc.QueryClassLevels(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying class levels")
	}
	if levels == nil {
		levels = []academics.ClassLevel{}
	}
	return ctx.JSON(http.StatusOK, levels)
}

func (api *academicsApi) retrieveClassLevel(ctx echo.Context) error {
	cl, err := api.deps.AcademicsSvc.GetClassLevel(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding class level by ID")
	}
	return ctx.JSON(http.StatusOK, cl)
}

func (api *academicsApi) updateClassLevel(ctx echo.Context) error {
	var data academics.NewClassLevel
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewClassLevel")
	}
	if err := data.Validate(api.deps.Validate); err != nil {
		return err
	}

	cl, err := api.deps.AcademicsSvc.UpdateClassLevel(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating class level")
	}
	return ctx.JSON(http.StatusOK, cl)
}

func (api *academicsApi) destroyClassLevel(ctx echo.Context) error {
	if err := api.deps.AcademicsSvc.DeleteClassLevel(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting class level")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *academicsApi) createSubject(ctx echo.Context) error {
	var data academics.NewSubject
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSubject")
	}
	if err := data.Validate(api.deps.Validate); err != nil {
		return err
	}

	sub, err := api.deps.AcademicsSvc.CreateSubject(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating subject")
	}
	return ctx.JSON(http.StatusCreated, sub)
}

func (api *academicsApi) querySubjects(ctx echo.Context) error {
	subjects, err := api.deps.AcademicsSvc.QuerySubjects(ctx.Request().Context(), ctx.QueryParam("class_level"))
	if err != nil {
		return errors.Wrap(err, "querying subjects")
	}
	if subjects == nil {
		subjects = []academics.Subject{}
	}
	return ctx.JSON(http.StatusOK, subjects)
}

func (api *academicsApi) retrieveSubject(ctx echo.Context) error {
	sub, err := api.deps.AcademicsSvc.GetSubject(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding subject by ID")
	}
	return ctx.JSON(http.StatusOK, sub)
}

func (api *academicsApi) updateSubject(ctx echo.Context) error {
	var data academics.NewSubject
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSubject")
	}
	if err := data.Validate(api.deps.Validate); err != nil {
		return err
	}

	sub, err := api.deps.AcademicsSvc.UpdateSubject(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating subject")
	}
	return ctx.JSON(http.StatusOK, sub)
}

func (api *academicsApi) destroySubject(ctx echo.Context) error {
	if err := api.deps.AcademicsSvc.DeleteSubject(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting subject")
	}
	return ctx.NoContent(http.StatusNoContent)
}
