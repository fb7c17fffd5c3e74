package paymentplan

// StepKind names what a wizard step edits.
type StepKind string

const (
	StepBasics        StepKind = "basics"        // type & name
	StepConfiguration StepKind = "configuration" // type-specific config
	StepDiscounts     StepKind = "discounts"
	StepReferral      StepKind = "referral"
)

// Action is what the caller must do after a successful Next.
type Action string

const (
	ActionAdvance Action = "advance"
	ActionSave    Action = "save"
)

// TotalSteps is a pure function of the plan type: FREE and DONATION have no discount step.
// The referral step, when enabled, adds one step to every type.
func TotalSteps(pt PlanType, referral bool) int {
	total := 3
	if pt == TypeFree || pt == TypeDonation {
		total = 2
	}
	if referral {
		total++
	}
	return total
}

// Wizard walks a draft plan through its authoring steps.
// Steps are 1-based; the referral step, when enabled, is always the last one.
type Wizard struct {
	Step      int            `json:"step"`
	Referral  bool           `json:"referral"`
	Saved     bool           `json:"saved"`
	Plan      Plan           `json:"plan"`
	FreePlans []FreePlanInfo `json:"freePlans"`
}

func NewWizard(plan Plan, referral bool, freePlans []FreePlanInfo) Wizard {
	return Wizard{Step: 1, Referral: referral, Plan: plan, FreePlans: freePlans}
}

func (w Wizard) TotalSteps() int { return TotalSteps(w.Plan.Type, w.Referral) }

// StepKind returns the kind of the current step.
func (w Wizard) StepKind() StepKind { return w.kindOf(w.Step) }

func (w Wizard) kindOf(step int) StepKind {
	total := w.TotalSteps()
	switch {
	case step <= 1:
		return StepBasics
	case w.Referral && step == total:
		return StepReferral
	case step == 2:
		return StepConfiguration
	default:
		return StepDiscounts
	}
}

// IsLastStep reports whether Next would save.
func (w Wizard) IsLastStep() bool { return w.Step >= w.TotalSteps() }

// CheckStep validates only what the current step edits.
func (w Wizard) CheckStep() Result {
	var r Result
	switch w.StepKind() {
	case StepBasics:
		r.merge(w.Plan.checkBasics())
		if w.Plan.Type == TypeFree && !CanCreateFreePlan(w.FreePlans) {
			r.add("type", FreePlanRestriction(w.FreePlans))
		}
	case StepConfiguration:
		r.merge(w.Plan.checkConfig())
	case StepDiscounts:
		r.merge(w.Plan.checkDiscounts())
	case StepReferral:
		r.merge(w.Plan.checkReferral())
	}
	return r
}

// Next validates the current step then advances, or asks the caller to save on the last step.
// An invalid result leaves the wizard untouched.
func (w *Wizard) Next() (Action, Result) {
	if w.Saved {
		return "", Invalid(Reason{Field: "step", Message: ErrDraftSaved.Error()})
	}
	if r := w.CheckStep(); !r.Valid() {
		return "", r
	}
	if !w.IsLastStep() {
		w.Step++
		return ActionAdvance, Result{}
	}

	// full check before saving: earlier steps may have been edited since
	r := w.Plan.Check()
	if w.Plan.Type == TypeFree && !CanCreateFreePlan(w.FreePlans) {
		r.add("type", FreePlanRestriction(w.FreePlans))
	}
	if !r.Valid() {
		return "", r
	}
	return ActionSave, r
}

// Back goes one step back. It is a no-op on the first step and once saved.
func (w *Wizard) Back() bool {
	if w.Saved || w.Step <= 1 {
		return false
	}
	w.Step--
	return true
}

// MarkSaved terminates the wizard with the persisted plan.
func (w *Wizard) MarkSaved(p Plan) {
	w.Plan = p
	w.Saved = true
}

// ClampStep keeps the step in range after a plan type change.
func (w *Wizard) ClampStep() {
	if total := w.TotalSteps(); w.Step > total {
		w.Step = total
	}
	if w.Step < 1 {
		w.Step = 1
	}
}
