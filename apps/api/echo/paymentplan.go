package echoapi

import (
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-admin/core"
	"github.com/trezcool/masomo-admin/core/paymentplan"
)

type planApi struct {
	svc      paymentplan.ServiceInterface
	validate *validator.Validate
}

func registerPlanAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc paymentplan.ServiceInterface, validate *validator.Validate) {
	api := planApi{svc: svc, validate: validate}

	pg := g.Group("/payment-plans", jwt, instituteMiddleware())

	// engine endpoints
	pg.POST("/quote", api.quote)
	pg.GET("/convert", api.convert)
	pg.GET("/free-plan-rules", api.freePlanRules)

	pg.GET("", api.query)
	pg.GET("/:id", api.retrieve)
	pg.PUT("/:id/default", api.makeDefault)
	pg.DELETE("/:id", api.destroy)
}

// Handlers

func (api *planApi) query(ctx echo.Context) error {
	var filter paymentplan.QueryFilter
	if err := bindAndValidate(ctx, api.validate, &filter, "QueryFilter"); err != nil {
		return err
	}
	var ordering Ordering
	ordering.Bind(ctx)
	filter.Orderings = ordering.Orderings

	plans, err := api.svc.Query(ctx.Request().Context(), contextInstitute(ctx), filter)
	if err != nil {
		return errors.Wrap(err, "querying plans")
	}
	return ctx.JSON(http.StatusOK, plans)
}

func (api *planApi) retrieve(ctx echo.Context) error {
	plan, err := api.svc.Get(ctx.Request().Context(), contextInstitute(ctx), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting plan")
	}
	return ctx.JSON(http.StatusOK, plan)
}

func (api *planApi) makeDefault(ctx echo.Context) error {
	plan, err := api.svc.MakeDefault(ctx.Request().Context(), contextInstitute(ctx), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "making plan default")
	}
	return ctx.JSON(http.StatusOK, plan)
}

func (api *planApi) destroy(ctx echo.Context) error {
	if err := api.svc.Delete(ctx.Request().Context(), contextInstitute(ctx), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting plan")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *planApi) freePlanRules(ctx echo.Context) error {
	pt := paymentplan.PlanType(ctx.QueryParam("type"))
	if pt != "" && !pt.IsValid() {
		return core.NewValidationError(nil, core.FieldError{Field: "type", Error: "must be one of SUBSCRIPTION, UPFRONT, DONATION or FREE"})
	}
	rules, err := api.svc.FreePlanRules(ctx.Request().Context(), contextInstitute(ctx), pt, ctx.QueryParam("exclude"))
	if err != nil {
		return errors.Wrap(err, "getting free plan rules")
	}
	return ctx.JSON(http.StatusOK, rules)
}

func (api *planApi) quote(ctx echo.Context) error {
	var data paymentplan.QuoteRequest
	if err := bindAndValidate(ctx, api.validate, &data, "QuoteRequest"); err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, paymentplan.NewQuote(data))
}

type conversion struct {
	Value int              `json:"value"`
	From  paymentplan.Unit `json:"from"`
	To    paymentplan.Unit `json:"to"`
	Days  int              `json:"days"`
	Out   int              `json:"result"`
}

func (api *planApi) convert(ctx echo.Context) error {
	var flds []core.FieldError
	value, err := strconv.Atoi(ctx.QueryParam("value"))
	if err != nil || value < 0 {
		flds = append(flds, core.FieldError{Field: "value", Error: "must be a positive integer"})
	}
	from, to := paymentplan.Unit(ctx.QueryParam("from")), paymentplan.Unit(ctx.QueryParam("to"))
	if !from.IsValid() {
		flds = append(flds, core.FieldError{Field: "from", Error: "must be one of days or months"})
	}
	if !to.IsValid() {
		flds = append(flds, core.FieldError{Field: "to", Error: "must be one of days or months"})
	}
	if len(flds) > 0 {
		return core.NewValidationError(nil, flds...)
	}

	return ctx.JSON(http.StatusOK, conversion{
		Value: value,
		From:  from,
		To:    to,
		Days:  paymentplan.ToDays(value, from),
		Out:   paymentplan.ConvertValue(value, from, to),
	})
}
