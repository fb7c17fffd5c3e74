package paymentplan

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestToAPI_FromAPI_roundTrip(t *testing.T) {
	created := time.Date(2021, 3, 1, 8, 0, 0, 0, time.UTC)

	sub := NewPlan("Tiers", TypeSubscription, "USD")
	sub.ID, sub.InstituteID, sub.CreatedAt = "plan_1", "inst", created
	sub.AddFeature("Videos")
	sub.Config.Subscription.CustomIntervals[0].Price = "100"
	second := sub.AddInterval(6, "500", "Half year")
	assert.NoError(t, sub.SetDiscount(IntervalDiscountKey(second.ID), DiscountPercentage, "15"))
	sub.Config.Referral = ReferralConfig{Enabled: true, RewardType: RewardFreeDays, RewardValue: "7"}
	sub.Normalize("USD")

	up := NewPlan("Once", TypeUpfront, "EUR")
	up.InstituteID = "inst"
	up.Config.Upfront.FullPrice = "250.5"
	assert.NoError(t, up.SetDiscount(DiscountKeyUpfront, DiscountFixed, "20"))
	up.Normalize("USD")

	don := NewPlan("Give", TypeDonation, "USD")
	don.InstituteID = "inst"
	don.Config.Donation = DonationConfig{SuggestedAmounts: "5,10,20", MinimumAmount: "5", AllowCustomAmount: true}
	don.Normalize("USD")

	free := NewPlan("Trial", TypeFree, "USD")
	free.InstituteID = "inst"
	free.RequireApproval = true
	free.Config.Free.ValidityDays = 14
	free.Normalize("USD")

	for _, p := range []Plan{sub, up, don, free} {
		t.Run(string(p.Type), func(t *testing.T) {
			// through the wire as the backend would
			b, err := json.Marshal(ToAPI(p))
			assert.NoError(t, err)
			var ap APIPlan
			assert.NoError(t, json.Unmarshal(b, &ap))

			got := FromAPI("inst", ap)
			assert.Equal(t, p.Config, got.Config)
			assert.Equal(t, p.ValidityDays, got.ValidityDays)
			assert.Equal(t, p.Features, got.Features)
			assert.Equal(t, p.Unit, got.Unit)
			assert.Equal(t, p.RequireApproval, got.RequireApproval)
			assert.True(t, p.CreatedAt.Equal(got.CreatedAt))
		})
	}
}

func TestToAPI_positionalDiscounts(t *testing.T) {
	p := NewPlan("Tiers", TypeSubscription, "USD")
	first := p.Config.Subscription.CustomIntervals[0]
	second := p.AddInterval(3, "250", "")
	third := p.AddInterval(12, "900", "")
	assert.NoError(t, p.SetDiscount(IntervalDiscountKey(third.ID), DiscountFixed, "100"))
	assert.NoError(t, p.RemoveInterval(second.ID))

	ap := ToAPI(p)
	assert.Equal(t, map[string]APIDiscount{"interval_1": {Type: "fixed", Amount: "100"}}, ap.Discounts)
	assert.Equal(t, first.ID, ap.Intervals[0].ClientID)
	assert.Equal(t, third.ID, ap.Intervals[1].ClientID)
	assert.Equal(t, DaysInMonth, ap.ValidityDays)
}

func TestFromAPI_backendPayload(t *testing.T) {
	payload := `{
		"id": "plan_42",
		"name": "Monthly",
		"type": "subscription",
		"currency": "usd",
		"validity_days": 30,
		"unit": "months",
		"features": ["Videos"],
		"intervals": [{"value": 1, "unit": "months", "price": 100}, {"value": 12, "unit": "months", "price": "1000"}],
		"discounts": {"interval_0": {"type": "percentage", "amount": 10}}
	}`
	var ap APIPlan
	assert.NoError(t, json.Unmarshal([]byte(payload), &ap))

	p := FromAPI("inst", ap)
	assert.Equal(t, TypeSubscription, p.Type)
	assert.Equal(t, "USD", p.Currency)
	assert.Equal(t, "inst", p.InstituteID)
	if assert.Len(t, p.Config.Subscription.CustomIntervals, 2) {
		iv := p.Config.Subscription.CustomIntervals[0]
		assert.NotEmpty(t, iv.ID, "intervals without a client id get one")
		assert.Equal(t, Amount("100"), iv.Price)
		assert.Equal(t, Discount{Type: DiscountPercentage, Amount: "10"}, p.Discount(IntervalDiscountKey(iv.ID)))
	}
	assert.Equal(t, 30, p.ValidityDays)
	assert.True(t, p.Check().Valid())
}
