package paymentplan

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAmount_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		want    Amount
		wantErr bool
	}{
		{name: "number", data: `12.5`, want: "12.5"},
		{name: "integer", data: `100`, want: "100"},
		{name: "string", data: `" 9.99 "`, want: "9.99"},
		{name: "empty string", data: `""`, want: ""},
		{name: "null", data: `null`, want: ""},
		{name: "bool", data: `true`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var a Amount
			err := json.Unmarshal([]byte(tt.data), &a)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, a)
		})
	}
}

func TestAmount(t *testing.T) {
	f, ok := Amount(" 4.5").Float()
	assert.True(t, ok)
	assert.Equal(t, 4.5, f)

	_, ok = Amount("four").Float()
	assert.False(t, ok)

	d, err := Amount("").Decimal()
	assert.NoError(t, err)
	assert.True(t, d.IsZero())
}

func TestNewPlanID(t *testing.T) {
	defer func(f func() time.Time) { nowFunc = f }(nowFunc)
	frozen := time.Unix(1600000000, 0)
	nowFunc = func() time.Time { return frozen }

	first := NewPlanID()
	second := NewPlanID()
	assert.True(t, strings.HasPrefix(first, "plan_"))
	assert.NotEqual(t, first, second, "ids stay unique within the same millisecond")
}

func TestNewPlan(t *testing.T) {
	sub := NewPlan("  Monthly ", TypeSubscription, " usd")
	assert.Equal(t, "Monthly", sub.Name)
	assert.Equal(t, "USD", sub.Currency)
	assert.Equal(t, UnitMonths, sub.Unit)
	if assert.Len(t, sub.Config.Subscription.CustomIntervals, 1) {
		iv := sub.Config.Subscription.CustomIntervals[0]
		assert.NotEmpty(t, iv.ID)
		assert.Equal(t, 1, iv.Value)
		assert.Equal(t, UnitMonths, iv.Unit)
	}

	free := NewPlan("Trial", TypeFree, "USD")
	assert.Equal(t, DaysInMonth, free.Config.Free.ValidityDays)
	assert.Empty(t, free.Config.Subscription.CustomIntervals)
}

func TestPlan_Normalize(t *testing.T) {
	p := Plan{
		Name:            " Give ",
		Type:            TypeDonation,
		RequireApproval: true,
		Unit:            UnitDays,
		Config: Config{
			Donation:      DonationConfig{SuggestedAmounts: " 5, ,10 "},
			PlanDiscounts: map[string]Discount{"upfront": {Amount: "3"}},
		},
	}
	p.Normalize("cdf")

	assert.Equal(t, "Give", p.Name)
	assert.Equal(t, "CDF", p.Currency)
	assert.Equal(t, "donation", p.Tag)
	assert.False(t, p.RequireApproval, "only free plans require approval")
	assert.Empty(t, p.Unit)
	assert.NotNil(t, p.Features)
	assert.Equal(t, "5,10", p.Config.Donation.SuggestedAmounts)
	assert.Equal(t, Discount{Type: DiscountNone}, p.Config.PlanDiscounts["upfront"])

	def := Plan{Name: "Basic", Type: TypeUpfront, IsDefault: true, Tag: " "}
	def.Normalize("USD")
	assert.Equal(t, "default", def.Tag)

	sub := Plan{
		Name: "Sub",
		Type: TypeSubscription,
		Config: Config{Subscription: SubscriptionConfig{CustomIntervals: []Interval{
			{Value: 2, Unit: UnitMonths, Price: "10"},
			{Value: 90, Price: "40"},
		}}},
	}
	sub.Normalize("USD")
	assert.Equal(t, UnitMonths, sub.Unit)
	assert.NotEmpty(t, sub.Config.Subscription.CustomIntervals[0].ID)
	assert.Equal(t, UnitMonths, sub.Config.Subscription.CustomIntervals[1].Unit)
	assert.Equal(t, 60, sub.ValidityDays)
}

func TestPlan_Features(t *testing.T) {
	p := NewPlan("Tiers", TypeSubscription, "USD")
	p.AddInterval(12, "900", "")

	assert.True(t, p.AddFeature(" Live classes "))
	assert.False(t, p.AddFeature("live CLASSES"), "duplicates are case-insensitive")
	assert.False(t, p.AddFeature("  "))
	assert.Equal(t, []string{"Live classes"}, p.Features)
	for _, iv := range p.Config.Subscription.CustomIntervals {
		assert.Equal(t, []string{"Live classes"}, iv.Features)
	}

	// new intervals share the vocabulary
	iv := p.AddInterval(6, "500", "")
	assert.Equal(t, []string{"Live classes"}, iv.Features)

	assert.True(t, p.RemoveFeature("LIVE classes"))
	assert.False(t, p.RemoveFeature("Live classes"))
	assert.Empty(t, p.Features)
	for _, iv := range p.Config.Subscription.CustomIntervals {
		assert.Empty(t, iv.Features)
	}
}

func TestPlan_Clone(t *testing.T) {
	p := NewPlan("Tiers", TypeSubscription, "USD")
	p.AddFeature("Videos")
	key := IntervalDiscountKey(p.Config.Subscription.CustomIntervals[0].ID)
	assert.NoError(t, p.SetDiscount(key, DiscountFixed, "5"))

	c := p.Clone()
	c.AddFeature("Quizzes")
	c.Config.Subscription.CustomIntervals[0].Price = "1"
	c.Config.PlanDiscounts[key] = Discount{Type: DiscountNone}

	assert.Equal(t, []string{"Videos"}, p.Features)
	assert.Equal(t, []string{"Videos"}, p.Config.Subscription.CustomIntervals[0].Features)
	assert.Empty(t, p.Config.Subscription.CustomIntervals[0].Price)
	assert.Equal(t, DiscountFixed, p.Discount(key).Type)
}

func TestQueryFilter_Match(t *testing.T) {
	p := Plan{Name: "Monthly Premium", Type: TypeSubscription, Tag: "subscription"}

	tests := []struct {
		name   string
		filter QueryFilter
		want   bool
	}{
		{name: "empty", filter: QueryFilter{}, want: true},
		{name: "type", filter: QueryFilter{Type: TypeSubscription}, want: true},
		{name: "other type", filter: QueryFilter{Type: TypeFree}, want: false},
		{name: "tag", filter: QueryFilter{Tag: "Subscription"}, want: true},
		{name: "search", filter: QueryFilter{Search: "premium"}, want: true},
		{name: "search miss", filter: QueryFilter{Search: "yearly"}, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.filter.Match(p))
		})
	}
}
