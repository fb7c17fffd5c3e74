package paymentplan

import "errors"

var (
	ErrNotFound           = errors.New("payment plan not found")
	ErrDraftNotFound      = errors.New("draft not found")
	ErrIntervalNotFound   = errors.New("interval not found")
	ErrUnknownDiscountKey = errors.New("unknown discount key")
	ErrInvalidDiscount    = errors.New("invalid discount")
	ErrInvalidPlan        = errors.New("invalid payment plan")
	ErrFreePlanLimit      = errors.New("free plan limit reached")
	ErrDuplicateName      = errors.New("a payment plan with this name already exists")
	ErrDraftSaved         = errors.New("draft already saved")
	ErrNotSubscription    = errors.New("only subscription plans have intervals")
)

// validation messages
const (
	msgRequired        = "this field is required"
	msgPlanType        = "must be one of SUBSCRIPTION, UPFRONT, DONATION or FREE"
	msgCurrency        = "must be a 3-letter currency code"
	msgValidityRange   = "must be between 1 and 365 days"
	msgNoIntervals     = "at least one interval is required"
	msgIntervalValue   = "must be at least 1"
	msgUnit            = "must be one of days or months"
	msgAmount          = "must be a positive number"
	msgDiscountType    = "must be one of none, percentage or fixed"
	msgPercentageRange = "a percentage must be between 0 and 100"
	msgDiscountKey     = "does not match any pricing unit of this plan"
	msgMinimumAmount   = "must not exceed the smallest suggested amount"
	msgRewardType      = "must be one of percentage, fixed or free_days"
)
