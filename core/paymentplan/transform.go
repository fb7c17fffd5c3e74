package paymentplan

import (
	"strconv"
	"strings"
	"time"

	"github.com/trezcool/masomo-admin/core"
)

type (
	// APIPlan is the payment-option payload of the backend API.
	APIPlan struct {
		ID                string                 `json:"id,omitempty"`
		Name              string                 `json:"name"`
		Type              string                 `json:"type"`
		Currency          string                 `json:"currency"`
		IsDefault         bool                   `json:"is_default"`
		Tag               string                 `json:"tag,omitempty"`
		RequireApproval   bool                   `json:"require_approval"`
		ValidityDays      int                    `json:"validity_days"`
		Unit              string                 `json:"unit,omitempty"`
		Features          []string               `json:"features"`
		Intervals         []APIInterval          `json:"intervals,omitempty"`
		FullPrice         string                 `json:"full_price,omitempty"`
		SuggestedAmounts  []string               `json:"suggested_amounts,omitempty"`
		MinimumAmount     string                 `json:"minimum_amount,omitempty"`
		AllowCustomAmount bool                   `json:"allow_custom_amount,omitempty"`
		Discounts         map[string]APIDiscount `json:"discounts,omitempty"` // interval_<idx> | upfront
		Referral          *APIReferral           `json:"referral,omitempty"`
		CreatedAt         *time.Time             `json:"created_at,omitempty"`
		UpdatedAt         *time.Time             `json:"updated_at,omitempty"`
	}

	APIInterval struct {
		ClientID string   `json:"client_id,omitempty"`
		Value    int      `json:"value"`
		Unit     string   `json:"unit"`
		Price    Amount   `json:"price"`
		Title    string   `json:"title,omitempty"`
		Features []string `json:"features,omitempty"`
	}

	APIDiscount struct {
		Type   string `json:"type"`
		Amount Amount `json:"amount,omitempty"`
	}

	APIReferral struct {
		RewardType  string `json:"reward_type"`
		RewardValue Amount `json:"reward_value"`
	}
)

// positional discount keys of the backend
func apiIntervalKey(idx int) string { return intervalDiscountPrefix + strconv.Itoa(idx) }

// ToAPI converts a plan to the backend payload.
// Interval discounts are re-keyed by position; discounts of removed intervals are left out.
func ToAPI(p Plan) APIPlan {
	ap := APIPlan{
		ID:              p.ID,
		Name:            p.Name,
		Type:            string(p.Type),
		Currency:        p.Currency,
		IsDefault:       p.IsDefault,
		Tag:             p.Tag,
		RequireApproval: p.RequireApproval,
		ValidityDays:    p.ComputeValidityDays(),
		Features:        append(make([]string, 0, len(p.Features)), p.Features...),
		Discounts:       make(map[string]APIDiscount),
	}
	if !p.CreatedAt.IsZero() {
		t := p.CreatedAt
		ap.CreatedAt = &t
	}
	if !p.UpdatedAt.IsZero() {
		t := p.UpdatedAt
		ap.UpdatedAt = &t
	}

	putDiscount := func(localKey, apiKey string) {
		if d, ok := p.Config.PlanDiscounts[localKey]; ok {
			if d.Type == "" {
				d.Type = DiscountNone
			}
			ap.Discounts[apiKey] = APIDiscount{Type: string(d.Type), Amount: d.Amount}
		}
	}

	switch p.Type {
	case TypeSubscription:
		ap.Unit = string(p.Unit)
		for i, iv := range p.Config.Subscription.CustomIntervals {
			ap.Intervals = append(ap.Intervals, APIInterval{
				ClientID: iv.ID,
				Value:    iv.Value,
				Unit:     string(iv.Unit),
				Price:    iv.Price,
				Title:    iv.Title,
				Features: append([]string(nil), iv.Features...),
			})
			putDiscount(IntervalDiscountKey(iv.ID), apiIntervalKey(i))
		}
	case TypeUpfront:
		ap.FullPrice = p.Config.Upfront.FullPrice.String()
		putDiscount(DiscountKeyUpfront, DiscountKeyUpfront)
	case TypeDonation:
		ap.SuggestedAmounts = core.SplitCSV(p.Config.Donation.SuggestedAmounts)
		ap.MinimumAmount = p.Config.Donation.MinimumAmount.String()
		ap.AllowCustomAmount = p.Config.Donation.AllowCustomAmount
	}

	if ref := p.Config.Referral; ref.Enabled {
		ap.Referral = &APIReferral{RewardType: string(ref.RewardType), RewardValue: ref.RewardValue}
	}
	if len(ap.Discounts) == 0 {
		ap.Discounts = nil
	}
	return ap
}

// FromAPI reconstructs a plan from the backend payload. Intervals without a client ID get a new one.
func FromAPI(instituteID string, ap APIPlan) Plan {
	p := Plan{
		ID:              ap.ID,
		InstituteID:     instituteID,
		Name:            ap.Name,
		Type:            PlanType(strings.ToUpper(ap.Type)),
		Currency:        strings.ToUpper(ap.Currency),
		IsDefault:       ap.IsDefault,
		Tag:             ap.Tag,
		RequireApproval: ap.RequireApproval,
		Features:        append(make([]string, 0, len(ap.Features)), ap.Features...),
		Config:          Config{PlanDiscounts: make(map[string]Discount)},
	}
	if ap.CreatedAt != nil {
		p.CreatedAt = *ap.CreatedAt
	}
	if ap.UpdatedAt != nil {
		p.UpdatedAt = *ap.UpdatedAt
	}

	getDiscount := func(apiKey, localKey string) {
		if d, ok := ap.Discounts[apiKey]; ok && d.Type != "" {
			p.Config.PlanDiscounts[localKey] = Discount{Type: DiscountType(d.Type), Amount: d.Amount}
		}
	}

	switch p.Type {
	case TypeSubscription:
		p.Unit = Unit(ap.Unit)
		for i, aiv := range ap.Intervals {
			iv := Interval{
				ID:       aiv.ClientID,
				Value:    aiv.Value,
				Unit:     Unit(aiv.Unit),
				Price:    aiv.Price,
				Title:    aiv.Title,
				Features: append([]string(nil), aiv.Features...),
			}
			if iv.ID == "" {
				iv.ID = newIntervalID()
			}
			if iv.Unit == "" {
				iv.Unit = p.Unit
			}
			p.Config.Subscription.CustomIntervals = append(p.Config.Subscription.CustomIntervals, iv)
			getDiscount(apiIntervalKey(i), IntervalDiscountKey(iv.ID))
		}
		if p.Unit == "" && len(p.Config.Subscription.CustomIntervals) > 0 {
			p.Unit = p.Config.Subscription.CustomIntervals[0].Unit
		}
	case TypeUpfront:
		p.Config.Upfront.FullPrice = Amount(ap.FullPrice)
		getDiscount(DiscountKeyUpfront, DiscountKeyUpfront)
	case TypeDonation:
		p.Config.Donation = DonationConfig{
			SuggestedAmounts:  strings.Join(ap.SuggestedAmounts, ","),
			MinimumAmount:     Amount(ap.MinimumAmount),
			AllowCustomAmount: ap.AllowCustomAmount,
		}
	case TypeFree:
		p.Config.Free.ValidityDays = ap.ValidityDays
	}

	if ap.Referral != nil {
		p.Config.Referral = ReferralConfig{
			Enabled:     true,
			RewardType:  RewardType(ap.Referral.RewardType),
			RewardValue: ap.Referral.RewardValue,
		}
	}
	p.ValidityDays = p.ComputeValidityDays()
	return p
}
