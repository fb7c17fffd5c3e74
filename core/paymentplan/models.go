package paymentplan

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/trezcool/masomo-admin/core"
)

// PlanType is the payment model variant of a Plan.
type PlanType string

const (
	TypeSubscription PlanType = "SUBSCRIPTION"
	TypeUpfront      PlanType = "UPFRONT"
	TypeDonation     PlanType = "DONATION"
	TypeFree         PlanType = "FREE"
)

var PlanTypes = []PlanType{TypeSubscription, TypeUpfront, TypeDonation, TypeFree}

func (t PlanType) IsValid() bool {
	for _, pt := range PlanTypes {
		if t == pt {
			return true
		}
	}
	return false
}

// Unit of a subscription interval.
type Unit string

const (
	UnitDays   Unit = "days"
	UnitMonths Unit = "months"
)

func (u Unit) IsValid() bool { return u == UnitDays || u == UnitMonths }

type DiscountType string

const (
	DiscountNone       DiscountType = "none"
	DiscountPercentage DiscountType = "percentage"
	DiscountFixed      DiscountType = "fixed"
)

func (t DiscountType) IsValid() bool {
	return t == DiscountNone || t == DiscountPercentage || t == DiscountFixed
}

type RewardType string

const (
	RewardPercentage RewardType = "percentage"
	RewardFixed      RewardType = "fixed"
	RewardFreeDays   RewardType = "free_days"
)

func (t RewardType) IsValid() bool {
	return t == RewardPercentage || t == RewardFixed || t == RewardFreeDays
}

// Amount is a numeric string. It decodes from JSON numbers and strings alike.
type Amount string

func (a *Amount) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case bytes.Equal(b, []byte("null")):
		*a = ""
	case len(b) > 0 && b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*a = Amount(strings.TrimSpace(s))
	default:
		var n json.Number
		if err := json.Unmarshal(b, &n); err != nil {
			return fmt.Errorf("amount: expected a number or a string, got %s", b)
		}
		*a = Amount(n.String())
	}
	return nil
}

func (a Amount) String() string { return strings.TrimSpace(string(a)) }
func (a Amount) IsBlank() bool  { return a.String() == "" }

// Decimal parses the amount; blank amounts are zero.
func (a Amount) Decimal() (decimal.Decimal, error) {
	if a.IsBlank() {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(a.String())
}

// Float returns the amount as a float and whether it could be parsed.
func (a Amount) Float() (float64, bool) {
	f, err := strconv.ParseFloat(a.String(), 64)
	return f, err == nil
}

type (
	Interval struct {
		ID       string   `json:"id"`
		Value    int      `json:"value"`
		Unit     Unit     `json:"unit"`
		Price    Amount   `json:"price"`
		Title    string   `json:"title,omitempty"`
		Features []string `json:"features,omitempty"`
	}

	SubscriptionConfig struct {
		CustomIntervals []Interval `json:"customIntervals"`
	}

	UpfrontConfig struct {
		FullPrice Amount `json:"fullPrice"`
	}

	DonationConfig struct {
		SuggestedAmounts  string `json:"suggestedAmounts"` // comma-joined
		MinimumAmount     Amount `json:"minimumAmount"`
		AllowCustomAmount bool   `json:"allowCustomAmount"`
	}

	FreeConfig struct {
		ValidityDays int `json:"validityDays"`
	}

	Discount struct {
		Type   DiscountType `json:"type"`
		Amount Amount       `json:"amount"`
	}

	ReferralConfig struct {
		Enabled     bool       `json:"enabled"`
		RewardType  RewardType `json:"rewardType,omitempty"`
		RewardValue Amount     `json:"rewardValue,omitempty"`
	}

	// Config holds one populated shape per plan type; the others are ignored.
	Config struct {
		Subscription  SubscriptionConfig  `json:"subscription"`
		Upfront       UpfrontConfig       `json:"upfront"`
		Donation      DonationConfig      `json:"donation"`
		Free          FreeConfig          `json:"free"`
		PlanDiscounts map[string]Discount `json:"planDiscounts"`
		Referral      ReferralConfig      `json:"referral"`
	}

	Plan struct {
		ID              string    `json:"id"`
		InstituteID     string    `json:"instituteId"`
		Name            string    `json:"name"`
		Type            PlanType  `json:"type"`
		Currency        string    `json:"currency"`
		IsDefault       bool      `json:"isDefault"`
		Tag             string    `json:"tag"`
		RequireApproval bool      `json:"requireApproval"`
		Unit            Unit      `json:"unit,omitempty"`
		Features        []string  `json:"features"`
		Config          Config    `json:"config"`
		ValidityDays    int       `json:"validityDays"`
		CreatedAt       time.Time `json:"createdAt"`
		UpdatedAt       time.Time `json:"updatedAt"`
	}

	// FreePlanInfo is the projection of an existing FREE plan used by the free-plan rules.
	FreePlanInfo struct {
		ID              string `json:"id"`
		RequireApproval bool   `json:"requireApproval"`
	}
)

var (
	nowFunc = time.Now // mockable

	lastPlanID int64
	planIDMu   sync.Mutex
)

// NewPlanID returns `plan_<unix millis>`, strictly increasing within the process.
func NewPlanID() string {
	planIDMu.Lock()
	defer planIDMu.Unlock()

	ms := nowFunc().UnixMilli()
	if ms <= lastPlanID {
		ms = lastPlanID + 1
	}
	lastPlanID = ms
	return fmt.Sprintf("plan_%d", ms)
}

func newIntervalID() string { return uuid.New().String() }

// NewPlan returns an empty plan of type `pt`, ready to be configured.
func NewPlan(name string, pt PlanType, currency string) Plan {
	p := Plan{
		Name:     core.CleanString(name),
		Type:     pt,
		Currency: strings.ToUpper(core.CleanString(currency)),
		Features: make([]string, 0),
		Config:   Config{PlanDiscounts: make(map[string]Discount)},
	}
	if pt == TypeSubscription {
		p.Unit = UnitMonths
		p.AddInterval(1, "", "")
	}
	if pt == TypeFree {
		p.Config.Free.ValidityDays = DaysInMonth
	}
	return p
}

// DefaultTag is the tag given to plans saved without one.
func DefaultTag(pt PlanType, isDefault bool) string {
	if isDefault {
		return "default"
	}
	return strings.ToLower(string(pt))
}

// Normalize cleans user input and recomputes the derived fields.
func (p *Plan) Normalize(defaultCurrency string) {
	p.Name = core.CleanString(p.Name)
	p.Currency = strings.ToUpper(core.CleanString(p.Currency))
	if p.Currency == "" {
		p.Currency = strings.ToUpper(defaultCurrency)
	}
	p.Tag = core.CleanString(p.Tag, true /* lower */)
	if p.Tag == "" {
		p.Tag = DefaultTag(p.Type, p.IsDefault)
	}
	if p.Type != TypeFree {
		p.RequireApproval = false
	}
	if p.Features == nil {
		p.Features = make([]string, 0)
	}
	if p.Config.PlanDiscounts == nil {
		p.Config.PlanDiscounts = make(map[string]Discount)
	}
	for key, d := range p.Config.PlanDiscounts {
		if d.Type == "" {
			d.Type = DiscountNone
		}
		if d.Type == DiscountNone {
			d.Amount = ""
		}
		p.Config.PlanDiscounts[key] = d
	}
	if p.Type == TypeSubscription {
		if p.Unit == "" && len(p.Config.Subscription.CustomIntervals) > 0 {
			p.Unit = p.Config.Subscription.CustomIntervals[0].Unit
		}
		for i := range p.Config.Subscription.CustomIntervals {
			iv := &p.Config.Subscription.CustomIntervals[i]
			if iv.ID == "" {
				iv.ID = newIntervalID()
			}
			if iv.Unit == "" {
				iv.Unit = p.Unit
			}
		}
	} else {
		p.Unit = ""
	}
	p.Config.Donation.SuggestedAmounts = strings.Join(core.SplitCSV(p.Config.Donation.SuggestedAmounts), ",")
	p.ValidityDays = p.ComputeValidityDays()
}

// FreePlanInfo projects the plan for the free-plan rules.
func (p Plan) FreePlanInfo() FreePlanInfo {
	return FreePlanInfo{ID: p.ID, RequireApproval: p.RequireApproval}
}

// Clone deep copies the plan.
func (p Plan) Clone() Plan {
	c := p
	c.Features = append(make([]string, 0, len(p.Features)), p.Features...)
	c.Config.Subscription.CustomIntervals = make([]Interval, len(p.Config.Subscription.CustomIntervals))
	for i, iv := range p.Config.Subscription.CustomIntervals {
		iv.Features = append([]string(nil), iv.Features...)
		c.Config.Subscription.CustomIntervals[i] = iv
	}
	c.Config.PlanDiscounts = make(map[string]Discount, len(p.Config.PlanDiscounts))
	for k, d := range p.Config.PlanDiscounts {
		c.Config.PlanDiscounts[k] = d
	}
	return c
}

// Features

// AddFeature appends `feature` to the plan vocabulary and to every interval.
// It reports false when the feature is blank or already present.
func (p *Plan) AddFeature(feature string) bool {
	feature = core.CleanString(feature)
	if feature == "" || containsFold(p.Features, feature) {
		return false
	}
	p.Features = append(p.Features, feature)
	for i := range p.Config.Subscription.CustomIntervals {
		iv := &p.Config.Subscription.CustomIntervals[i]
		if !containsFold(iv.Features, feature) {
			iv.Features = append(iv.Features, feature)
		}
	}
	return true
}

// RemoveFeature drops `feature` from the plan vocabulary and from every interval.
func (p *Plan) RemoveFeature(feature string) bool {
	feature = core.CleanString(feature)
	var removed bool
	p.Features, removed = removeFold(p.Features, feature)
	for i := range p.Config.Subscription.CustomIntervals {
		iv := &p.Config.Subscription.CustomIntervals[i]
		iv.Features, _ = removeFold(iv.Features, feature)
	}
	return removed
}

func containsFold(items []string, s string) bool {
	for _, item := range items {
		if strings.EqualFold(item, s) {
			return true
		}
	}
	return false
}

func removeFold(items []string, s string) ([]string, bool) {
	out := items[:0]
	var removed bool
	for _, item := range items {
		if strings.EqualFold(item, s) {
			removed = true
			continue
		}
		out = append(out, item)
	}
	return out, removed
}

// Intervals

// Interval returns the interval identified by `id` and its position.
func (p Plan) Interval(id string) (Interval, int, bool) {
	for i, iv := range p.Config.Subscription.CustomIntervals {
		if iv.ID == id {
			return iv, i, true
		}
	}
	return Interval{}, -1, false
}

// AddInterval appends a new interval expressed in the plan unit, sharing the plan features.
func (p *Plan) AddInterval(value int, price Amount, title string) Interval {
	if p.Unit == "" {
		p.Unit = UnitMonths
	}
	iv := Interval{
		ID:       newIntervalID(),
		Value:    value,
		Unit:     p.Unit,
		Price:    Amount(price.String()),
		Title:    core.CleanString(title),
		Features: append([]string(nil), p.Features...),
	}
	p.Config.Subscription.CustomIntervals = append(p.Config.Subscription.CustomIntervals, iv)
	return iv
}

// RemoveInterval drops the interval and its discount. Other discount keys are unaffected.
func (p *Plan) RemoveInterval(id string) error {
	_, idx, ok := p.Interval(id)
	if !ok {
		return ErrIntervalNotFound
	}
	ivs := p.Config.Subscription.CustomIntervals
	p.Config.Subscription.CustomIntervals = append(ivs[:idx:idx], ivs[idx+1:]...)
	delete(p.Config.PlanDiscounts, IntervalDiscountKey(id))
	return nil
}

// DTOs

type (
	// NewDraft starts a wizard, either blank or editing the existing plan PlanID.
	NewDraft struct {
		Name     string   `json:"name"`
		Type     PlanType `json:"type" validate:"omitempty,plantype"`
		Currency string   `json:"currency" validate:"omitempty,currencycode"`
		PlanID   string   `json:"plan_id"`
	}

	IntervalPatch struct {
		ID    string  `json:"id" validate:"required"`
		Value *int    `json:"value" validate:"omitempty,min=1"`
		Price *Amount `json:"price"`
		Title *string `json:"title"`
	}

	// UpdateDraft defines what may be modified on a draft plan. Nil fields are left untouched.
	UpdateDraft struct {
		Name              *string         `json:"name"`
		Type              *PlanType       `json:"type" validate:"omitempty,plantype"`
		Currency          *string         `json:"currency" validate:"omitempty,currencycode"`
		Tag               *string         `json:"tag"`
		RequireApproval   *bool           `json:"require_approval"`
		Intervals         []IntervalPatch `json:"intervals" validate:"omitempty,dive"`
		FullPrice         *Amount         `json:"full_price"`
		SuggestedAmounts  *string         `json:"suggested_amounts"`
		MinimumAmount     *Amount         `json:"minimum_amount"`
		AllowCustomAmount *bool           `json:"allow_custom_amount"`
		ValidityDays      *int            `json:"validity_days"`
		Referral          *ReferralConfig `json:"referral"`
	}

	NewInterval struct {
		Value int    `json:"value" validate:"required,min=1"`
		Price Amount `json:"price" validate:"amount"`
		Title string `json:"title"`
	}

	SetUnitRequest struct {
		Unit Unit `json:"unit" validate:"required,unit"`
	}

	FeatureRequest struct {
		Feature string `json:"feature" validate:"required"`
	}

	DiscountRequest struct {
		Type   DiscountType `json:"type" validate:"required,discounttype"`
		Amount Amount       `json:"amount" validate:"amount"`
	}

	QueryFilter struct {
		Type      PlanType          `query:"type" validate:"omitempty,plantype"`
		Tag       string            `query:"tag"`
		Search    string            `query:"search"`
		Orderings []core.DBOrdering `query:"-"`
	}
)

func (nd *NewDraft) Validate(validate *validator.Validate) error {
	nd.Name = core.CleanString(nd.Name)
	nd.Currency = strings.ToUpper(core.CleanString(nd.Currency))
	nd.PlanID = core.CleanString(nd.PlanID)
	return validate.Struct(nd)
}

func (ud *UpdateDraft) Validate(validate *validator.Validate) error {
	if ud.Currency != nil {
		c := strings.ToUpper(core.CleanString(*ud.Currency))
		ud.Currency = &c
	}
	return validate.Struct(ud)
}

func (ni *NewInterval) Validate(validate *validator.Validate) error {
	ni.Title = core.CleanString(ni.Title)
	return validate.Struct(ni)
}

func (sr *SetUnitRequest) Validate(validate *validator.Validate) error { return validate.Struct(sr) }

func (fr *FeatureRequest) Validate(validate *validator.Validate) error {
	fr.Feature = core.CleanString(fr.Feature)
	return validate.Struct(fr)
}

func (dr *DiscountRequest) Validate(validate *validator.Validate) error { return validate.Struct(dr) }

func (qf *QueryFilter) Validate(validate *validator.Validate) error {
	qf.Search = core.CleanString(qf.Search, true /* lower */)
	qf.Tag = core.CleanString(qf.Tag, true /* lower */)
	return validate.Struct(qf)
}

// Match reports whether `p` satisfies every set field of the filter.
func (qf QueryFilter) Match(p Plan) bool {
	if qf.Type != "" && p.Type != qf.Type {
		return false
	}
	if qf.Tag != "" && !strings.EqualFold(p.Tag, qf.Tag) {
		return false
	}
	if qf.Search != "" && !strings.Contains(strings.ToLower(p.Name), strings.ToLower(qf.Search)) {
		return false
	}
	return true
}
