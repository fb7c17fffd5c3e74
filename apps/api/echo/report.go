package echoapi

import (
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-admin/core/report"
)

type reportApi struct {
	svc      report.ServiceInterface
	validate *validator.Validate
}

func registerReportAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc report.ServiceInterface, validate *validator.Validate) {
	api := reportApi{svc: svc, validate: validate}

	rg := g.Group("/reports", jwt, instituteMiddleware())
	rg.GET("/progress", api.progress)
	rg.GET("/timeline", api.timeline)
	rg.GET("/leaderboard", api.leaderboard)
	rg.GET("/:kind/export", api.export)
	rg.POST("/:kind/email", api.email)
}

func (api *reportApi) filter(ctx echo.Context) (report.Filter, error) {
	var filter report.Filter
	err := bindAndValidate(ctx, api.validate, &filter, "Filter")
	return filter, err
}

// Handlers

func (api *reportApi) progress(ctx echo.Context) error {
	filter, err := api.filter(ctx)
	if err != nil {
		return err
	}
	entries, err := api.svc.Progress(ctx.Request().Context(), contextInstitute(ctx), filter)
	if err != nil {
		return errors.Wrap(err, "getting progress report")
	}
	return ctx.JSON(http.StatusOK, entries)
}

func (api *reportApi) timeline(ctx echo.Context) error {
	filter, err := api.filter(ctx)
	if err != nil {
		return err
	}
	entries, err := api.svc.Timeline(ctx.Request().Context(), contextInstitute(ctx), filter)
	if err != nil {
		return errors.Wrap(err, "getting timeline report")
	}
	return ctx.JSON(http.StatusOK, entries)
}

func (api *reportApi) leaderboard(ctx echo.Context) error {
	filter, err := api.filter(ctx)
	if err != nil {
		return err
	}
	entries, err := api.svc.Leaderboard(ctx.Request().Context(), contextInstitute(ctx), filter)
	if err != nil {
		return errors.Wrap(err, "getting leaderboard")
	}
	return ctx.JSON(http.StatusOK, entries)
}

func (api *reportApi) kind(ctx echo.Context) (report.Kind, error) {
	kind := report.Kind(ctx.Param("kind"))
	if !kind.IsValid() {
		return "", report.ErrUnknownKind
	}
	return kind, nil
}

func (api *reportApi) export(ctx echo.Context) error {
	kind, err := api.kind(ctx)
	if err != nil {
		return err
	}
	var data report.ExportRequest
	if err = bindAndValidate(ctx, api.validate, &data, "ExportRequest"); err != nil {
		return err
	}

	exp, err := api.svc.Export(ctx.Request().Context(), contextInstitute(ctx), kind, data.Format, data.Filter)
	if err != nil {
		return errors.Wrap(err, "exporting report")
	}
	ctx.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", exp.Filename))
	return ctx.Blob(http.StatusOK, exp.ContentType, exp.Content)
}

type emailedExport struct {
	Filename   string   `json:"filename"`
	Recipients []string `json:"recipients"`
}

func (api *reportApi) email(ctx echo.Context) error {
	kind, err := api.kind(ctx)
	if err != nil {
		return err
	}
	var data report.ExportRequest
	if err = bindAndValidate(ctx, api.validate, &data, "ExportRequest"); err != nil {
		return err
	}

	exp, err := api.svc.EmailExport(ctx.Request().Context(), contextInstitute(ctx), kind, data)
	if err != nil {
		return errors.Wrap(err, "emailing report")
	}
	return ctx.JSON(http.StatusAccepted, emailedExport{Filename: exp.Filename, Recipients: data.Recipients})
}
