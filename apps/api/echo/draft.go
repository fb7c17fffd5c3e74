package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-admin/core/paymentplan"
)

type draftApi struct {
	svc      paymentplan.ServiceInterface
	validate *validator.Validate
}

func registerDraftAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc paymentplan.ServiceInterface, validate *validator.Validate) {
	api := draftApi{svc: svc, validate: validate}

	dg := g.Group("/payment-plans/drafts", jwt, instituteMiddleware())
	dg.POST("", api.create)
	dg.GET("/:id", api.retrieve)
	dg.PUT("/:id", api.update)
	dg.DELETE("/:id", api.destroy)

	// wizard navigation
	dg.POST("/:id/next", api.next)
	dg.POST("/:id/back", api.back)

	// configuration
	dg.POST("/:id/features", api.addFeature)
	dg.DELETE("/:id/features", api.removeFeature)
	dg.PUT("/:id/unit", api.setUnit)
	dg.POST("/:id/intervals", api.addInterval)
	dg.DELETE("/:id/intervals/:interval", api.removeInterval)
	dg.PUT("/:id/discounts/:key", api.setDiscount)
}

// Handlers

func (api *draftApi) create(ctx echo.Context) error {
	var data paymentplan.NewDraft
	if err := bindAndValidate(ctx, api.validate, &data, "NewDraft"); err != nil {
		return err
	}
	d, err := api.svc.NewDraft(ctx.Request().Context(), contextInstitute(ctx), data)
	if err != nil {
		return errors.Wrap(err, "creating draft")
	}
	return ctx.JSON(http.StatusCreated, d)
}

func (api *draftApi) retrieve(ctx echo.Context) error {
	d, err := api.svc.Draft(ctx.Request().Context(), contextInstitute(ctx), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting draft")
	}
	return ctx.JSON(http.StatusOK, d)
}

func (api *draftApi) update(ctx echo.Context) error {
	var data paymentplan.UpdateDraft
	if err := bindAndValidate(ctx, api.validate, &data, "UpdateDraft"); err != nil {
		return err
	}
	d, err := api.svc.UpdateDraft(ctx.Request().Context(), contextInstitute(ctx), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating draft")
	}
	return ctx.JSON(http.StatusOK, d)
}

func (api *draftApi) destroy(ctx echo.Context) error {
	if err := api.svc.DiscardDraft(ctx.Request().Context(), contextInstitute(ctx), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "discarding draft")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *draftApi) next(ctx echo.Context) error {
	d, err := api.svc.Next(ctx.Request().Context(), contextInstitute(ctx), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "moving to next step")
	}
	return ctx.JSON(http.StatusOK, d)
}

func (api *draftApi) back(ctx echo.Context) error {
	d, err := api.svc.Back(ctx.Request().Context(), contextInstitute(ctx), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "moving to previous step")
	}
	return ctx.JSON(http.StatusOK, d)
}

func (api *draftApi) addFeature(ctx echo.Context) error {
	var data paymentplan.FeatureRequest
	if err := bindAndValidate(ctx, api.validate, &data, "FeatureRequest"); err != nil {
		return err
	}
	d, err := api.svc.AddFeature(ctx.Request().Context(), contextInstitute(ctx), ctx.Param("id"), data.Feature)
	if err != nil {
		return errors.Wrap(err, "adding feature")
	}
	return ctx.JSON(http.StatusOK, d)
}

func (api *draftApi) removeFeature(ctx echo.Context) error {
	var data paymentplan.FeatureRequest
	if err := bindAndValidate(ctx, api.validate, &data, "FeatureRequest"); err != nil {
		return err
	}
	d, err := api.svc.RemoveFeature(ctx.Request().Context(), contextInstitute(ctx), ctx.Param("id"), data.Feature)
	if err != nil {
		return errors.Wrap(err, "removing feature")
	}
	return ctx.JSON(http.StatusOK, d)
}

func (api *draftApi) setUnit(ctx echo.Context) error {
	var data paymentplan.SetUnitRequest
	if err := bindAndValidate(ctx, api.validate, &data, "SetUnitRequest"); err != nil {
		return err
	}
	d, err := api.svc.SetUnit(ctx.Request().Context(), contextInstitute(ctx), ctx.Param("id"), data.Unit)
	if err != nil {
		return errors.Wrap(err, "setting unit")
	}
	return ctx.JSON(http.StatusOK, d)
}

func (api *draftApi) addInterval(ctx echo.Context) error {
	var data paymentplan.NewInterval
	if err := bindAndValidate(ctx, api.validate, &data, "NewInterval"); err != nil {
		return err
	}
	d, err := api.svc.AddInterval(ctx.Request().Context(), contextInstitute(ctx), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "adding interval")
	}
	return ctx.JSON(http.StatusCreated, d)
}

func (api *draftApi) removeInterval(ctx echo.Context) error {
	d, err := api.svc.RemoveInterval(ctx.Request().Context(), contextInstitute(ctx), ctx.Param("id"), ctx.Param("interval"))
	if err != nil {
		return errors.Wrap(err, "removing interval")
	}
	return ctx.JSON(http.StatusOK, d)
}

func (api *draftApi) setDiscount(ctx echo.Context) error {
	var data paymentplan.DiscountRequest
	if err := bindAndValidate(ctx, api.validate, &data, "DiscountRequest"); err != nil {
		return err
	}
	d, err := api.svc.SetDiscount(ctx.Request().Context(), contextInstitute(ctx), ctx.Param("id"), ctx.Param("key"), data)
	if err != nil {
		return errors.Wrap(err, "setting discount")
	}
	return ctx.JSON(http.StatusOK, d)
}
