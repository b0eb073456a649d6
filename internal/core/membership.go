package core

import (
	"database/sql/driver"
	"strings"
)

// Plan is a membership plan the business sells.
type Plan string

const (
	PlanMonthly   Plan = "monthly"
	PlanQuarterly Plan = "quarterly"
	PlanAnnual    Plan = "annual"
	PlanDropIn    Plan = "drop_in"
	PlanClassPack Plan = "class_pack"
	PlanTrial     Plan = "trial"
)

// Plans lists the known plans in display order.
var Plans = []Plan{PlanMonthly, PlanQuarterly, PlanAnnual, PlanDropIn, PlanClassPack, PlanTrial}

// planAliases is keyed by NormalizeFieldName of the accepted spelling.
var planAliases = map[string]Plan{
	"monthly":     PlanMonthly,
	"month":       PlanMonthly,
	"mensuel":     PlanMonthly,
	"quarterly":   PlanQuarterly,
	"quarter":     PlanQuarterly,
	"trimestriel": PlanQuarterly,
	"annual":      PlanAnnual,
	"yearly":      PlanAnnual,
	"year":        PlanAnnual,
	"annuel":      PlanAnnual,
	"dropin":      PlanDropIn,
	"classpack":   PlanClassPack,
	"trial":       PlanTrial,
	"essai":       PlanTrial,
}

// MembershipType is either a known Plan or a custom label the business uses
// but the engine does not recognize. Exactly one of the two is set.
type MembershipType struct {
	plan   Plan
	custom string
}

// KnownMembership wraps a known plan.
func KnownMembership(p Plan) MembershipType { return MembershipType{plan: p} }

// CustomMembership wraps an unrecognized label.
func CustomMembership(label string) MembershipType { return MembershipType{custom: label} }

// ParseMembershipType maps plan spellings (including French ones) to a known
// plan and keeps anything else as a custom label.
func ParseMembershipType(s string) MembershipType {
	s = strings.TrimSpace(s)
	if p, ok := planAliases[NormalizeFieldName(s)]; ok {
		return KnownMembership(p)
	}
	return CustomMembership(s)
}

// Known returns the plan when the type is recognized.
func (m MembershipType) Known() (Plan, bool) {
	return m.plan, m.plan != ""
}

// Custom returns the label when the type is not recognized.
func (m MembershipType) Custom() (string, bool) {
	return m.custom, m.plan == ""
}

// String returns the stored form: the plan name or the custom label.
func (m MembershipType) String() string {
	if m.plan != "" {
		return string(m.plan)
	}
	return m.custom
}

// Value implements driver.Valuer so the type can be bound as a SQL argument.
func (m MembershipType) Value() (driver.Value, error) {
	return m.String(), nil
}
