package paymentplan

import (
	"fmt"
	"regexp"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/trezcool/masomo-admin/core"
)

const (
	MinValidityDays = 1
	MaxValidityDays = 365
)

var (
	currencyRegex = regexp.MustCompile(`^[A-Z]{3}$`)
	hundred       = decimal.NewFromInt(100)
)

// Reason explains why one field is invalid.
type Reason struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Result is the outcome of a validation: valid when it holds no reasons.
type Result struct {
	Reasons []Reason `json:"reasons,omitempty"`
}

func Invalid(reasons ...Reason) Result { return Result{Reasons: reasons} }

func (r Result) Valid() bool { return len(r.Reasons) == 0 }

func (r *Result) add(field, msg string) {
	r.Reasons = append(r.Reasons, Reason{Field: field, Message: msg})
}

func (r *Result) merge(o Result) {
	r.Reasons = append(r.Reasons, o.Reasons...)
}

// Err returns nil when valid, a *core.ValidationError otherwise.
func (r Result) Err() error {
	if r.Valid() {
		return nil
	}
	flds := make([]core.FieldError, 0, len(r.Reasons))
	for _, rs := range r.Reasons {
		flds = append(flds, core.FieldError{Field: rs.Field, Error: rs.Message})
	}
	return core.NewValidationError(ErrInvalidPlan, flds...)
}

// Check validates the whole plan without side effects.
func (p Plan) Check() Result {
	var r Result
	r.merge(p.checkBasics())
	r.merge(p.checkConfig())
	r.merge(p.checkDiscounts())
	r.merge(p.checkReferral())
	return r
}

func (p Plan) checkBasics() Result {
	var r Result
	if core.CleanString(p.Name) == "" {
		r.add("name", msgRequired)
	}
	if p.Type == "" {
		r.add("type", msgRequired)
	} else if !p.Type.IsValid() {
		r.add("type", msgPlanType)
	}
	if p.Currency != "" && !currencyRegex.MatchString(p.Currency) {
		r.add("currency", msgCurrency)
	}
	return r
}

func (p Plan) checkConfig() Result {
	var r Result
	switch p.Type {
	case TypeFree:
		if d := p.Config.Free.ValidityDays; d < MinValidityDays || d > MaxValidityDays {
			r.add("config.free.validityDays", msgValidityRange)
		}
	case TypeSubscription:
		ivs := p.Config.Subscription.CustomIntervals
		if len(ivs) == 0 {
			r.add("config.subscription.customIntervals", msgNoIntervals)
		}
		for i, iv := range ivs {
			fld := fmt.Sprintf("config.subscription.customIntervals[%d]", i)
			if iv.Value < 1 {
				r.add(fld+".value", msgIntervalValue)
			}
			if !iv.Unit.IsValid() {
				r.add(fld+".unit", msgUnit)
			}
			checkAmount(&r, fld+".price", iv.Price, true)
		}
	case TypeUpfront:
		checkAmount(&r, "config.upfront.fullPrice", p.Config.Upfront.FullPrice, true)
	case TypeDonation:
		d := p.Config.Donation
		minOk := checkAmount(&r, "config.donation.minimumAmount", d.MinimumAmount, false)

		suggested := core.SplitCSV(d.SuggestedAmounts)
		if len(suggested) == 0 && !d.AllowCustomAmount {
			r.add("config.donation.suggestedAmounts", msgRequired)
		}
		var lowest *decimal.Decimal
		for _, s := range suggested {
			a, err := decimal.NewFromString(s)
			if err != nil || a.IsNegative() {
				r.add("config.donation.suggestedAmounts", msgAmount)
				lowest = nil
				break
			}
			if lowest == nil || a.LessThan(*lowest) {
				lowest = &a
			}
		}
		if minOk && lowest != nil && !d.MinimumAmount.IsBlank() {
			if m, _ := d.MinimumAmount.Decimal(); m.GreaterThan(*lowest) {
				r.add("config.donation.minimumAmount", msgMinimumAmount)
			}
		}
	}
	return r
}

func (p Plan) checkDiscounts() Result {
	var r Result
	keys := make([]string, 0, len(p.Config.PlanDiscounts))
	for key := range p.Config.PlanDiscounts {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		d := p.Config.PlanDiscounts[key]
		fld := "config.planDiscounts." + key
		if !p.hasDiscountKey(key) {
			if d.Type != DiscountNone && d.Type != "" {
				r.add(fld, msgDiscountKey)
			}
			continue
		}
		if d.Type == "" || d.Type == DiscountNone {
			continue
		}
		if !d.Type.IsValid() {
			r.add(fld+".type", msgDiscountType)
			continue
		}
		if !checkAmount(&r, fld+".amount", d.Amount, true) {
			continue
		}
		if a, _ := d.Amount.Decimal(); d.Type == DiscountPercentage && a.GreaterThan(hundred) {
			r.add(fld+".amount", msgPercentageRange)
		}
	}
	return r
}

func (p Plan) checkReferral() Result {
	var r Result
	ref := p.Config.Referral
	if !ref.Enabled {
		return r
	}
	if !ref.RewardType.IsValid() {
		r.add("config.referral.rewardType", msgRewardType)
	}
	if checkAmount(&r, "config.referral.rewardValue", ref.RewardValue, true) && ref.RewardType == RewardPercentage {
		if a, _ := ref.RewardValue.Decimal(); a.GreaterThan(hundred) {
			r.add("config.referral.rewardValue", msgPercentageRange)
		}
	}
	return r
}

// checkAmount reports `a` unless it is a non-negative number. Blank amounts are only allowed when not required.
func checkAmount(r *Result, field string, a Amount, required bool) bool {
	if a.IsBlank() {
		if required {
			r.add(field, msgRequired)
			return false
		}
		return true
	}
	d, err := a.Decimal()
	if err != nil || d.IsNegative() {
		r.add(field, msgAmount)
		return false
	}
	return true
}
