package paymentplan

import "math"

// DaysInMonth is the one normalization constant used by every unit conversion.
const DaysInMonth = 30

// ToDays converts `value` expressed in `unit` to days.
func ToDays(value int, unit Unit) int {
	if unit == UnitMonths {
		return value * DaysInMonth
	}
	return value
}

// ToDisplayValue expresses `days` in `unit`, rounding to the nearest whole month.
func ToDisplayValue(days int, unit Unit) int {
	if unit == UnitMonths {
		return int(math.Round(float64(days) / DaysInMonth))
	}
	return days
}

// ConvertValue re-expresses `value` from one unit to another through days.
// days -> months is lossy: 45 days becomes 2 months.
func ConvertValue(value int, from, to Unit) int {
	return ToDisplayValue(ToDays(value, from), to)
}

// SetUnit re-expresses every interval in `unit`, keeping the real duration as close as rounding allows.
func (p *Plan) SetUnit(unit Unit) {
	for i := range p.Config.Subscription.CustomIntervals {
		iv := &p.Config.Subscription.CustomIntervals[i]
		from := iv.Unit
		if from == "" {
			from = p.Unit
		}
		iv.Value = ConvertValue(iv.Value, from, unit)
		iv.Unit = unit
	}
	p.Unit = unit
	p.ValidityDays = p.ComputeValidityDays()
}

// ComputeValidityDays derives the plan validity:
// FREE uses the configured days, SUBSCRIPTION the first interval only, anything else has none.
func (p Plan) ComputeValidityDays() int {
	switch p.Type {
	case TypeFree:
		return p.Config.Free.ValidityDays
	case TypeSubscription:
		ivs := p.Config.Subscription.CustomIntervals
		if len(ivs) == 0 {
			return 0
		}
		unit := ivs[0].Unit
		if unit == "" {
			unit = p.Unit
		}
		return ToDays(ivs[0].Value, unit)
	default:
		return 0
	}
}
