package paymentplan

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/pmezard/go-difflib/difflib"

	"github.com/trezcool/masomo-admin/core"
)

const similarNameRatio = .95

// OrderingFields maps the orderable fields to their column names.
var OrderingFields = map[string]string{
	"name":       "name",
	"type":       "type",
	"created_at": "created_at",
	"updated_at": "updated_at",
}

type (
	// Repository persists the plans of an institute.
	Repository interface {
		QueryPlans(ctx context.Context, instituteID string, filter QueryFilter) ([]Plan, error)
		GetPlan(ctx context.Context, instituteID, id string) (Plan, error)
		// SavePlan creates the plan or overwrites the one with the same ID.
		SavePlan(ctx context.Context, instituteID string, plan Plan) (Plan, error)
		// MakeDefault flags the plan as the institute default, unflagging any other.
		MakeDefault(ctx context.Context, instituteID, id string) error
		DeletePlan(ctx context.Context, instituteID, id string) error
	}

	// Draft is a wizard in progress, owned by one institute.
	Draft struct {
		ID          string         `json:"id"`
		InstituteID string         `json:"instituteId"`
		Wizard      Wizard         `json:"wizard"`
		TotalSteps  int            `json:"totalSteps"`
		StepKind    StepKind       `json:"stepKind"`
		Preview     []PricePreview `json:"preview"`
		UpdatedAt   time.Time      `json:"updatedAt"`
	}

	DraftStore interface {
		GetDraft(ctx context.Context, id string) (Draft, error)
		SaveDraft(ctx context.Context, draft Draft) error
		DeleteDraft(ctx context.Context, id string) error
	}

	ServiceInterface interface {
		NewDraft(ctx context.Context, instituteID string, nd NewDraft) (Draft, error)
		Draft(ctx context.Context, instituteID, id string) (Draft, error)
		UpdateDraft(ctx context.Context, instituteID, id string, ud UpdateDraft) (Draft, error)
		AddFeature(ctx context.Context, instituteID, id, feature string) (Draft, error)
		RemoveFeature(ctx context.Context, instituteID, id, feature string) (Draft, error)
		SetUnit(ctx context.Context, instituteID, id string, unit Unit) (Draft, error)
		AddInterval(ctx context.Context, instituteID, id string, ni NewInterval) (Draft, error)
		RemoveInterval(ctx context.Context, instituteID, id, intervalID string) (Draft, error)
		SetDiscount(ctx context.Context, instituteID, id, key string, dr DiscountRequest) (Draft, error)
		Next(ctx context.Context, instituteID, id string) (Draft, error)
		Back(ctx context.Context, instituteID, id string) (Draft, error)
		DiscardDraft(ctx context.Context, instituteID, id string) error

		Save(ctx context.Context, instituteID string, plan Plan) (Plan, error)
		Query(ctx context.Context, instituteID string, filter QueryFilter) ([]Plan, error)
		Get(ctx context.Context, instituteID, id string) (Plan, error)
		MakeDefault(ctx context.Context, instituteID, id string) (Plan, error)
		Delete(ctx context.Context, instituteID, id string) error
		FreePlanRules(ctx context.Context, instituteID string, pt PlanType, excludeID string) (FreePlanRules, error)
	}

	Service struct {
		repo    Repository
		drafts  DraftStore
		mailSvc core.EmailService
		logger  core.Logger
		conf    *core.Config
	}
)

var _ ServiceInterface = (*Service)(nil)

func NewService(repo Repository, drafts DraftStore, mailSvc core.EmailService, logger core.Logger, conf *core.Config) *Service {
	return &Service{
		repo:    repo,
		drafts:  drafts,
		mailSvc: mailSvc,
		logger:  logger,
		conf:    conf,
	}
}

// refresh recomputes the derived draft fields shown to clients.
func (d *Draft) refresh() {
	d.Wizard.ClampStep()
	d.Wizard.Plan.ValidityDays = d.Wizard.Plan.ComputeValidityDays()
	d.TotalSteps = d.Wizard.TotalSteps()
	d.StepKind = d.Wizard.StepKind()
	d.Preview = d.Wizard.Plan.Preview()
}

// Drafts

func (svc *Service) freePlans(ctx context.Context, instituteID, excludeID string) ([]FreePlanInfo, error) {
	plans, err := svc.repo.QueryPlans(ctx, instituteID, QueryFilter{Type: TypeFree})
	if err != nil {
		return nil, errors.Wrap(err, "querying free plans")
	}
	return FreePlanInfos(plans, excludeID), nil
}

func (svc *Service) NewDraft(ctx context.Context, instituteID string, nd NewDraft) (Draft, error) {
	currency := nd.Currency
	if currency == "" {
		currency = svc.conf.Plans.DefaultCurrency
	}
	plan := NewPlan(nd.Name, nd.Type, currency)
	plan.InstituteID = instituteID

	if nd.PlanID != "" {
		existing, err := svc.repo.GetPlan(ctx, instituteID, nd.PlanID)
		if err != nil {
			return Draft{}, errors.Wrap(err, "getting plan to edit")
		}
		plan = existing.Clone()
		plan.Normalize(svc.conf.Plans.DefaultCurrency)
	}

	freePlans, err := svc.freePlans(ctx, instituteID, plan.ID)
	if err != nil {
		return Draft{}, err
	}
	if ApprovalToggleDisabled(plan.Type, freePlans) {
		plan.RequireApproval = RequiredApprovalForNewFreePlan(freePlans)
	}

	d := Draft{
		ID:          uuid.New().String(),
		InstituteID: instituteID,
		Wizard:      NewWizard(plan, svc.conf.Plans.ReferralStep, freePlans),
	}
	return d, svc.saveDraft(ctx, &d)
}

func (svc *Service) saveDraft(ctx context.Context, d *Draft) error {
	d.refresh()
	d.UpdatedAt = nowFunc().UTC()
	return errors.Wrap(svc.drafts.SaveDraft(ctx, *d), "saving draft")
}

func (svc *Service) Draft(ctx context.Context, instituteID, id string) (Draft, error) {
	d, err := svc.drafts.GetDraft(ctx, id)
	if err != nil {
		return Draft{}, err
	}
	if d.InstituteID != instituteID {
		return Draft{}, ErrDraftNotFound
	}
	return d, nil
}

// editDraft loads a draft still being authored, applies `fn` and stores it back.
func (svc *Service) editDraft(ctx context.Context, instituteID, id string, fn func(d *Draft) error) (Draft, error) {
	d, err := svc.Draft(ctx, instituteID, id)
	if err != nil {
		return Draft{}, err
	}
	if d.Wizard.Saved {
		return Draft{}, core.NewValidationError(ErrDraftSaved)
	}
	if err = fn(&d); err != nil {
		return Draft{}, err
	}
	if err = svc.saveDraft(ctx, &d); err != nil {
		return Draft{}, err
	}
	return d, nil
}

func (svc *Service) UpdateDraft(ctx context.Context, instituteID, id string, ud UpdateDraft) (Draft, error) {
	return svc.editDraft(ctx, instituteID, id, func(d *Draft) error {
		p := &d.Wizard.Plan
		if ud.Name != nil {
			p.Name = core.CleanString(*ud.Name)
		}
		if ud.Type != nil && *ud.Type != p.Type {
			typ := *ud.Type
			changed := NewPlan(p.Name, typ, p.Currency)
			changed.ID, changed.InstituteID, changed.Tag = p.ID, p.InstituteID, p.Tag
			changed.IsDefault, changed.CreatedAt = p.IsDefault, p.CreatedAt
			for _, f := range p.Features {
				changed.AddFeature(f)
			}
			changed.Config.Referral = p.Config.Referral
			*p = changed
		}
		if ud.Currency != nil {
			p.Currency = *ud.Currency
		}
		if ud.Tag != nil {
			p.Tag = core.CleanString(*ud.Tag, true /* lower */)
		}
		if ud.RequireApproval != nil && p.Type == TypeFree {
			p.RequireApproval = *ud.RequireApproval
		}
		if ApprovalToggleDisabled(p.Type, d.Wizard.FreePlans) {
			p.RequireApproval = RequiredApprovalForNewFreePlan(d.Wizard.FreePlans)
		}
		for _, patch := range ud.Intervals {
			_, idx, ok := p.Interval(patch.ID)
			if !ok {
				return core.NewValidationError(ErrIntervalNotFound, core.FieldError{Field: "intervals", Error: ErrIntervalNotFound.Error()})
			}
			iv := &p.Config.Subscription.CustomIntervals[idx]
			if patch.Value != nil {
				iv.Value = *patch.Value
			}
			if patch.Price != nil {
				iv.Price = Amount(patch.Price.String())
			}
			if patch.Title != nil {
				iv.Title = core.CleanString(*patch.Title)
			}
		}
		if ud.FullPrice != nil {
			p.Config.Upfront.FullPrice = Amount(ud.FullPrice.String())
		}
		if ud.SuggestedAmounts != nil {
			p.Config.Donation.SuggestedAmounts = strings.Join(core.SplitCSV(*ud.SuggestedAmounts), ",")
		}
		if ud.MinimumAmount != nil {
			p.Config.Donation.MinimumAmount = Amount(ud.MinimumAmount.String())
		}
		if ud.AllowCustomAmount != nil {
			p.Config.Donation.AllowCustomAmount = *ud.AllowCustomAmount
		}
		if ud.ValidityDays != nil {
			p.Config.Free.ValidityDays = *ud.ValidityDays
		}
		if ud.Referral != nil {
			p.Config.Referral = *ud.Referral
		}
		return nil
	})
}

func (svc *Service) AddFeature(ctx context.Context, instituteID, id, feature string) (Draft, error) {
	return svc.editDraft(ctx, instituteID, id, func(d *Draft) error {
		d.Wizard.Plan.AddFeature(feature)
		return nil
	})
}

func (svc *Service) RemoveFeature(ctx context.Context, instituteID, id, feature string) (Draft, error) {
	return svc.editDraft(ctx, instituteID, id, func(d *Draft) error {
		d.Wizard.Plan.RemoveFeature(feature)
		return nil
	})
}

func (svc *Service) SetUnit(ctx context.Context, instituteID, id string, unit Unit) (Draft, error) {
	return svc.editDraft(ctx, instituteID, id, func(d *Draft) error {
		if d.Wizard.Plan.Type != TypeSubscription {
			return core.NewValidationError(ErrNotSubscription, core.FieldError{Field: "unit", Error: ErrNotSubscription.Error()})
		}
		d.Wizard.Plan.SetUnit(unit)
		return nil
	})
}

func (svc *Service) AddInterval(ctx context.Context, instituteID, id string, ni NewInterval) (Draft, error) {
	return svc.editDraft(ctx, instituteID, id, func(d *Draft) error {
		if d.Wizard.Plan.Type != TypeSubscription {
			return core.NewValidationError(ErrNotSubscription, core.FieldError{Field: "type", Error: ErrNotSubscription.Error()})
		}
		d.Wizard.Plan.AddInterval(ni.Value, ni.Price, ni.Title)
		return nil
	})
}

func (svc *Service) RemoveInterval(ctx context.Context, instituteID, id, intervalID string) (Draft, error) {
	return svc.editDraft(ctx, instituteID, id, func(d *Draft) error {
		return d.Wizard.Plan.RemoveInterval(intervalID)
	})
}

func (svc *Service) SetDiscount(ctx context.Context, instituteID, id, key string, dr DiscountRequest) (Draft, error) {
	return svc.editDraft(ctx, instituteID, id, func(d *Draft) error {
		if err := d.Wizard.Plan.SetDiscount(key, dr.Type, dr.Amount); err != nil {
			if errors.Cause(err) == ErrUnknownDiscountKey {
				return core.NewValidationError(err, core.FieldError{Field: "key", Error: msgDiscountKey})
			}
			return err
		}
		return nil
	})
}

// Next validates the current step and advances the wizard, saving the plan after the last step.
// A rejected step returns a *core.ValidationError and leaves the draft untouched.
func (svc *Service) Next(ctx context.Context, instituteID, id string) (Draft, error) {
	d, err := svc.Draft(ctx, instituteID, id)
	if err != nil {
		return Draft{}, err
	}
	if d.Wizard.Saved {
		return Draft{}, core.NewValidationError(ErrDraftSaved)
	}

	// the plan list is the source of truth: refresh the free plans wholesale
	if d.Wizard.FreePlans, err = svc.freePlans(ctx, instituteID, d.Wizard.Plan.ID); err != nil {
		return Draft{}, err
	}

	action, res := d.Wizard.Next()
	if !res.Valid() {
		return Draft{}, res.Err()
	}
	if action == ActionSave {
		saved, err := svc.Save(ctx, instituteID, d.Wizard.Plan)
		if err != nil {
			return Draft{}, err
		}
		d.Wizard.MarkSaved(saved)
	}
	if err = svc.saveDraft(ctx, &d); err != nil {
		return Draft{}, err
	}
	return d, nil
}

func (svc *Service) Back(ctx context.Context, instituteID, id string) (Draft, error) {
	d, err := svc.Draft(ctx, instituteID, id)
	if err != nil {
		return Draft{}, err
	}
	if !d.Wizard.Back() {
		return d, nil
	}
	if err = svc.saveDraft(ctx, &d); err != nil {
		return Draft{}, err
	}
	return d, nil
}

func (svc *Service) DiscardDraft(ctx context.Context, instituteID, id string) error {
	if _, err := svc.Draft(ctx, instituteID, id); err != nil {
		return err
	}
	return svc.drafts.DeleteDraft(ctx, id)
}

// Plans

// Save validates and persists the plan, then notifies the institute owners.
// The free-plan limits and name uniqueness are checked against the current plan list.
func (svc *Service) Save(ctx context.Context, instituteID string, plan Plan) (Plan, error) {
	plan = plan.Clone()
	plan.InstituteID = instituteID
	plan.Normalize(svc.conf.Plans.DefaultCurrency)
	if err := plan.Check().Err(); err != nil {
		return Plan{}, err
	}

	plans, err := svc.repo.QueryPlans(ctx, instituteID, QueryFilter{})
	if err != nil {
		return Plan{}, errors.Wrap(err, "querying plans")
	}

	if plan.Type == TypeFree {
		freePlans := FreePlanInfos(plans, plan.ID)
		if !CanCreateFreePlan(freePlans) {
			return Plan{}, core.NewValidationError(ErrFreePlanLimit, core.FieldError{Field: "type", Error: FreePlanRestriction(freePlans)})
		}
		if ApprovalToggleDisabled(plan.Type, freePlans) {
			plan.RequireApproval = RequiredApprovalForNewFreePlan(freePlans)
		}
	}

	created := true
	for _, other := range plans {
		if plan.ID != "" && other.ID == plan.ID {
			created = false
			plan.CreatedAt = other.CreatedAt
			plan.IsDefault = other.IsDefault
			continue
		}
		switch {
		case sameName(plan.Name, other.Name):
			return Plan{}, core.NewValidationError(ErrDuplicateName, core.FieldError{Field: "name", Error: ErrDuplicateName.Error()})
		case similarNames(plan.Name, other.Name):
			svc.logger.Warn(
				fmt.Sprintf("payment plan name %q is close to %q", plan.Name, other.Name),
				map[string]interface{}{"institute_id": instituteID, "plan_id": other.ID},
			)
		}
	}

	now := nowFunc().UTC()
	if plan.ID == "" {
		plan.ID = NewPlanID()
	}
	if plan.CreatedAt.IsZero() {
		plan.CreatedAt = now
	}
	plan.UpdatedAt = now

	saved, err := svc.repo.SavePlan(ctx, instituteID, plan)
	if err != nil {
		return Plan{}, errors.Wrap(err, "saving plan")
	}
	svc.logger.Debug(fmt.Sprintf("payment plan %s saved", saved.ID), map[string]interface{}{"institute_id": instituteID, "created": created})

	svc.notifyOwners("plan_saved", fmt.Sprintf("Payment plan %q saved", saved.Name), newPlanEmailData(saved, created))
	return saved, nil
}

func normalizeName(name string) string { return strings.ToLower(core.CleanString(name)) }

func sameName(a, b string) bool { return normalizeName(a) == normalizeName(b) }

func similarNames(a, b string) bool {
	a, b = normalizeName(a), normalizeName(b)
	if a == "" || b == "" {
		return false
	}
	return difflib.NewMatcher(strings.Split(a, ""), strings.Split(b, "")).Ratio() >= similarNameRatio
}

func (svc *Service) Query(ctx context.Context, instituteID string, filter QueryFilter) ([]Plan, error) {
	plans, err := svc.repo.QueryPlans(ctx, instituteID, filter)
	if err != nil {
		return nil, errors.Wrap(err, "querying plans")
	}
	return plans, nil
}

func (svc *Service) Get(ctx context.Context, instituteID, id string) (Plan, error) {
	return svc.repo.GetPlan(ctx, instituteID, id)
}

// MakeDefault flags the plan as the institute default and notifies the owners.
func (svc *Service) MakeDefault(ctx context.Context, instituteID, id string) (Plan, error) {
	if err := svc.repo.MakeDefault(ctx, instituteID, id); err != nil {
		return Plan{}, err
	}
	plan, err := svc.repo.GetPlan(ctx, instituteID, id)
	if err != nil {
		return Plan{}, errors.Wrap(err, "getting default plan")
	}
	svc.notifyOwners("plan_default", fmt.Sprintf("%q is now the default payment plan", plan.Name), newPlanEmailData(plan, false))
	return plan, nil
}

func (svc *Service) Delete(ctx context.Context, instituteID, id string) error {
	return svc.repo.DeletePlan(ctx, instituteID, id)
}

func (svc *Service) FreePlanRules(ctx context.Context, instituteID string, pt PlanType, excludeID string) (FreePlanRules, error) {
	freePlans, err := svc.freePlans(ctx, instituteID, excludeID)
	if err != nil {
		return FreePlanRules{}, err
	}
	if pt == "" {
		pt = TypeFree
	}
	return NewFreePlanRules(pt, freePlans), nil
}

// Notifications

type planEmailData struct {
	ID           string
	Name         string
	Type         PlanType
	Created      bool
	ValidityDays int
	Prices       []PricePreview
}

func newPlanEmailData(p Plan, created bool) planEmailData {
	return planEmailData{
		ID:           p.ID,
		Name:         p.Name,
		Type:         p.Type,
		Created:      created,
		ValidityDays: p.ValidityDays,
		Prices:       p.Preview(),
	}
}

func (svc *Service) notifyOwners(tmpl, subject string, data planEmailData) {
	to := core.Addresses(svc.conf.OwnerEmails...)
	if len(to) == 0 || svc.mailSvc == nil {
		return
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           to,
		Subject:      subject,
		TemplateName: tmpl,
		TemplateData: data,
	})
}

// SortPlans orders plans in place; without orderings the newest come first.
func SortPlans(plans []Plan, orderings []core.DBOrdering) {
	if len(orderings) == 0 {
		orderings = []core.DBOrdering{{Field: "created_at"}}
	}
	less := func(a, b Plan, field string) (bool, bool) { // less, equal
		switch field {
		case "name":
			an, bn := strings.ToLower(a.Name), strings.ToLower(b.Name)
			return an < bn, an == bn
		case "type":
			return a.Type < b.Type, a.Type == b.Type
		case "updated_at":
			return a.UpdatedAt.Before(b.UpdatedAt), a.UpdatedAt.Equal(b.UpdatedAt)
		default:
			return a.CreatedAt.Before(b.CreatedAt), a.CreatedAt.Equal(b.CreatedAt)
		}
	}
	sort.SliceStable(plans, func(i, j int) bool {
		for _, ord := range orderings {
			l, eq := less(plans[i], plans[j], ord.Field)
			if eq {
				continue
			}
			if ord.Ascending {
				return l
			}
			return !l
		}
		return plans[i].ID < plans[j].ID
	})
}
