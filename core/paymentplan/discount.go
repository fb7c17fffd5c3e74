package paymentplan

import (
	"math"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-admin/core"
)

const (
	DiscountKeyUpfront     = "upfront"
	intervalDiscountPrefix = "interval_"
)

// IntervalDiscountKey keys a discount by the stable ID of its interval, so removing
// or reordering intervals never shifts the other discounts.
func IntervalDiscountKey(intervalID string) string {
	return intervalDiscountPrefix + intervalID
}

// FinalPrice applies a discount to `original`.
// A percentage is not clamped to [0,100]: out-of-range input shows up as a visibly wrong price.
// A fixed discount never brings the price below zero.
// Blank or unparseable amounts leave the price unchanged; validation reports them.
func FinalPrice(original float64, dt DiscountType, amount string) float64 {
	amount = strings.TrimSpace(amount)
	if dt == DiscountNone || amount == "" {
		return original
	}
	a, err := strconv.ParseFloat(amount, 64)
	if err != nil {
		return original
	}
	switch dt {
	case DiscountPercentage:
		return original * (1 - a/100)
	case DiscountFixed:
		return math.Max(0, original-a)
	default:
		return original
	}
}

// DiscountKeys lists the keys a discount may be stored under for this plan.
func (p Plan) DiscountKeys() []string {
	switch p.Type {
	case TypeUpfront:
		return []string{DiscountKeyUpfront}
	case TypeSubscription:
		keys := make([]string, 0, len(p.Config.Subscription.CustomIntervals))
		for _, iv := range p.Config.Subscription.CustomIntervals {
			keys = append(keys, IntervalDiscountKey(iv.ID))
		}
		return keys
	default:
		return nil
	}
}

func (p Plan) hasDiscountKey(key string) bool {
	for _, k := range p.DiscountKeys() {
		if k == key {
			return true
		}
	}
	return false
}

// SetDiscount stores the discount for `key`. The amount is cleared when the type is none.
func (p *Plan) SetDiscount(key string, dt DiscountType, amount Amount) error {
	if !p.hasDiscountKey(key) {
		return errors.Wrapf(ErrUnknownDiscountKey, "key %q", key)
	}
	if p.Config.PlanDiscounts == nil {
		p.Config.PlanDiscounts = make(map[string]Discount)
	}
	d := Discount{Type: dt, Amount: Amount(amount.String())}
	if dt == DiscountNone {
		d.Amount = ""
	}
	p.Config.PlanDiscounts[key] = d
	return nil
}

// Discount returns the discount stored under `key`, none if there is none.
func (p Plan) Discount(key string) Discount {
	if d, ok := p.Config.PlanDiscounts[key]; ok && d.Type != "" {
		return d
	}
	return Discount{Type: DiscountNone}
}

// Coupons

// Coupon is a display-only discount offer. An empty Key applies plan-wide.
type Coupon struct {
	Code   string       `json:"code"`
	Key    string       `json:"key,omitempty"`
	Type   DiscountType `json:"type" validate:"required,discounttype"`
	Amount Amount       `json:"amount" validate:"amount"`
	Active bool         `json:"active"`
}

func (c Coupon) appliesTo(key string) bool {
	return c.Active && c.Type != DiscountNone && (c.Key == "" || c.Key == key)
}

// Coupons projects the plan discounts into active coupons coded by their key.
func (p Plan) Coupons() []Coupon {
	coupons := make([]Coupon, 0, len(p.Config.PlanDiscounts))
	for _, key := range p.DiscountKeys() {
		d := p.Discount(key)
		if d.Type == DiscountNone || d.Amount.IsBlank() {
			continue
		}
		coupons = append(coupons, Coupon{Code: key, Key: key, Type: d.Type, Amount: d.Amount, Active: true})
	}
	return coupons
}

// BestCoupon returns the applicable coupon yielding the lowest price for `key`.
// Ties keep the first encountered. ok is false when no coupon applies.
func BestCoupon(price float64, key string, coupons []Coupon) (best Coupon, final float64, ok bool) {
	final = price
	for _, c := range coupons {
		if !c.appliesTo(key) {
			continue
		}
		f := FinalPrice(price, c.Type, c.Amount.String())
		if !ok || f < final {
			best, final, ok = c, f, true
		}
	}
	return best, final, ok
}

// PricePreview is the priced view of one pricing unit of a plan.
type PricePreview struct {
	Key           string  `json:"key"`
	Label         string  `json:"label"`
	OriginalPrice float64 `json:"originalPrice"`
	FinalPrice    float64 `json:"finalPrice"`
	Original      string  `json:"original"`
	Display       string  `json:"display"`
	Discounted    bool    `json:"discounted"`
	ValidityDays  int     `json:"validityDays,omitempty"`
	Coupon        *Coupon `json:"coupon,omitempty"`
}

// Preview prices every pricing unit of the plan with the best of its own discounts and `extra` coupons.
// It is for display only; the stored discount per key stays authoritative.
func (p Plan) Preview(extra ...Coupon) []PricePreview {
	coupons := append(p.Coupons(), extra...)

	price := func(key, label string, original float64, days int) PricePreview {
		pp := PricePreview{
			Key:           key,
			Label:         label,
			OriginalPrice: original,
			FinalPrice:    original,
			Original:      FormatPrice(p.Currency, original),
			ValidityDays:  days,
		}
		if key != "" {
			if c, final, ok := BestCoupon(original, key, coupons); ok {
				c := c
				pp.Coupon = &c
				pp.FinalPrice = final
				pp.Discounted = final != original
			}
		}
		pp.Display = FormatPrice(p.Currency, pp.FinalPrice)
		return pp
	}

	switch p.Type {
	case TypeSubscription:
		previews := make([]PricePreview, 0, len(p.Config.Subscription.CustomIntervals))
		for _, iv := range p.Config.Subscription.CustomIntervals {
			f, _ := iv.Price.Float()
			previews = append(previews, price(IntervalDiscountKey(iv.ID), iv.Label(), f, ToDays(iv.Value, iv.Unit)))
		}
		return previews
	case TypeUpfront:
		f, _ := p.Config.Upfront.FullPrice.Float()
		return []PricePreview{price(DiscountKeyUpfront, "Full price", f, 0)}
	case TypeDonation:
		f, _ := p.Config.Donation.MinimumAmount.Float()
		return []PricePreview{price("", "Minimum donation", f, 0)}
	case TypeFree:
		return []PricePreview{price("", "Free", 0, p.Config.Free.ValidityDays)}
	default:
		return nil
	}
}

// Label is the interval title or its duration, e.g. "3 months".
func (iv Interval) Label() string {
	if iv.Title != "" {
		return iv.Title
	}
	unit := string(iv.Unit)
	if iv.Value == 1 {
		unit = strings.TrimSuffix(unit, "s")
	}
	return strconv.Itoa(iv.Value) + " " + unit
}

// Quotes

type (
	QuoteRequest struct {
		Price    Amount   `json:"price" validate:"required,amount"`
		Currency string   `json:"currency" validate:"omitempty,currencycode"`
		Key      string   `json:"key"`
		Discount Discount `json:"discount"`
		Coupons  []Coupon `json:"coupons" validate:"omitempty,dive"`
	}

	Quote struct {
		OriginalPrice float64 `json:"originalPrice"`
		FinalPrice    float64 `json:"finalPrice"`
		Display       string  `json:"display"`
		Coupon        *Coupon `json:"coupon,omitempty"`
	}
)

func (qr *QuoteRequest) Validate(validate *validator.Validate) error {
	if qr.Discount.Type == "" {
		qr.Discount.Type = DiscountNone
	}
	if !qr.Discount.Type.IsValid() {
		return core.NewValidationError(ErrInvalidDiscount, core.FieldError{Field: "discount", Error: msgDiscountType})
	}
	return validate.Struct(qr)
}

// NewQuote prices a single amount with its discount, then lets the best coupon undercut it.
func NewQuote(qr QuoteRequest) Quote {
	original, _ := qr.Price.Float()
	q := Quote{OriginalPrice: original}
	q.FinalPrice = FinalPrice(original, qr.Discount.Type, qr.Discount.Amount.String())
	if c, final, ok := BestCoupon(original, qr.Key, qr.Coupons); ok && final < q.FinalPrice {
		c := c
		q.Coupon = &c
		q.FinalPrice = final
	}
	q.Display = FormatPrice(qr.Currency, q.FinalPrice)
	return q
}
