package paymentplan

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/masomo-admin/core"
)

var (
	planTypeTag  = "plantype"
	planTypeText = "{0} " + msgPlanType

	unitTag  = "unit"
	unitText = "{0} " + msgUnit

	discountTypeTag  = "discounttype"
	discountTypeText = "{0} " + msgDiscountType
)

// InitValidators registers the payment plan validation tags.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(planTypeTag, func(fl validator.FieldLevel) bool {
		return PlanType(fl.Field().String()).IsValid()
	})
	core.RegisterCustomTranslation(validate, translator, planTypeTag, planTypeText)

	_ = validate.RegisterValidation(unitTag, func(fl validator.FieldLevel) bool {
		return Unit(fl.Field().String()).IsValid()
	})
	core.RegisterCustomTranslation(validate, translator, unitTag, unitText)

	_ = validate.RegisterValidation(discountTypeTag, func(fl validator.FieldLevel) bool {
		return DiscountType(fl.Field().String()).IsValid()
	})
	core.RegisterCustomTranslation(validate, translator, discountTypeTag, discountTypeText)
}
