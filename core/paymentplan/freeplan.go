package paymentplan

import "fmt"

// MaxFreePlans is the institute-wide limit of FREE plans.
const MaxFreePlans = 2

// FreePlanInfos projects the FREE plans among `plans`, leaving out `excludeID` (the plan being edited).
func FreePlanInfos(plans []Plan, excludeID string) []FreePlanInfo {
	infos := make([]FreePlanInfo, 0, MaxFreePlans)
	for _, p := range plans {
		if p.Type == TypeFree && (excludeID == "" || p.ID != excludeID) {
			infos = append(infos, p.FreePlanInfo())
		}
	}
	return infos
}

// CanCreateFreePlan is false once the institute has MaxFreePlans free plans.
func CanCreateFreePlan(existing []FreePlanInfo) bool {
	return len(existing) < MaxFreePlans
}

// RequiredApprovalForNewFreePlan returns the approval setting a new free plan is forced to:
// the opposite of the existing one, or false when there is none.
func RequiredApprovalForNewFreePlan(existing []FreePlanInfo) bool {
	for _, fp := range existing {
		if fp.RequireApproval {
			return false
		}
	}
	return len(existing) > 0
}

// ApprovalToggleDisabled reports whether the approval setting is forced rather than chosen.
func ApprovalToggleDisabled(pt PlanType, existing []FreePlanInfo) bool {
	return pt == TypeFree && len(existing) > 0
}

// FreePlanRestriction explains the current free-plan limits. It is empty when no free plan exists.
func FreePlanRestriction(existing []FreePlanInfo) string {
	var withApproval int
	for _, fp := range existing {
		if fp.RequireApproval {
			withApproval++
		}
	}
	switch {
	case len(existing) == 0:
		return ""
	case !CanCreateFreePlan(existing):
		return fmt.Sprintf("Your institute already has %d free plans. Edit or delete one to create another.", len(existing))
	case withApproval > 0:
		return "A free plan requiring approval already exists: a new free plan will not require approval."
	default:
		return "A free plan without approval already exists: a new free plan will require approval."
	}
}

// FreePlanRules bundles every free-plan rule for the wizard.
type FreePlanRules struct {
	CanCreate              bool           `json:"canCreate"`
	RequiredApproval       bool           `json:"requiredApproval"`
	ApprovalToggleDisabled bool           `json:"approvalToggleDisabled"`
	Restriction            string         `json:"restriction,omitempty"`
	Existing               []FreePlanInfo `json:"existing"`
}

func NewFreePlanRules(pt PlanType, existing []FreePlanInfo) FreePlanRules {
	return FreePlanRules{
		CanCreate:              CanCreateFreePlan(existing),
		RequiredApproval:       RequiredApprovalForNewFreePlan(existing),
		ApprovalToggleDisabled: ApprovalToggleDisabled(pt, existing),
		Restriction:            FreePlanRestriction(existing),
		Existing:               existing,
	}
}

// IsFreePlanDisabled reports whether FREE can no longer be picked as a plan type.
func (r FreePlanRules) IsFreePlanDisabled() bool { return !r.CanCreate }
