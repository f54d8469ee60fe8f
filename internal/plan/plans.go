// Package plan holds the static plan catalog. Plans never change at runtime;
// this is plain data, not state.
package plan

import "time"

// Plan describes a purchasable (or free) subscription plan. HoursPerMonth is
// ignored when Unlimited is set.
type Plan struct {
	ID            string  `json:"id"`
	Type          string  `json:"type"`
	Name          string  `json:"name"`
	Currency      string  `json:"currency"`
	PricePerMonth float64 `json:"pricePerMonth"`
	HoursPerMonth float64 `json:"hoursPerMonth,omitempty"`
	Unlimited     bool    `json:"unlimited,omitempty"`
}

// MaxParallelWorkspaces caps concurrent workspaces even on unlimited plans.
const MaxParallelWorkspaces = 16

// AbsoluteMaxUsage is the theoretical monthly hour maximum: all permitted
// workspaces running around the clock for 31 days.
const AbsoluteMaxUsage = MaxParallelWorkspaces * 24 * 31

// Free50StartDate: users created at or after this instant get the 50h free
// plan instead of the original 100h one.
var Free50StartDate = time.Date(2019, 12, 19, 0, 0, 0, 0, time.UTC)

var (
	Free = Plan{
		ID: "free", Type: "free", Name: "Open Source",
		Currency: "USD", PricePerMonth: 0, HoursPerMonth: 100,
	}
	Free50 = Plan{
		ID: "free-50", Type: "free-50", Name: "Open Source",
		Currency: "USD", PricePerMonth: 0, HoursPerMonth: 50,
	}
	FreeOpenSource = Plan{
		ID: "free-open-source", Type: "free-open-source", Name: "Professional Open Source",
		Currency: "USD", PricePerMonth: 0, Unlimited: true,
	}
	BasicEUR = Plan{
		ID: "basic-eur", Type: "basic", Name: "Standard",
		Currency: "EUR", PricePerMonth: 17, HoursPerMonth: 100,
	}
	BasicUSD = Plan{
		ID: "basic-usd", Type: "basic", Name: "Standard",
		Currency: "USD", PricePerMonth: 19, HoursPerMonth: 100,
	}
	PersonalEUR = Plan{
		ID: "personal-eur", Type: "personal", Name: "Personal",
		Currency: "EUR", PricePerMonth: 8, HoursPerMonth: 100,
	}
	PersonalUSD = Plan{
		ID: "personal-usd", Type: "personal", Name: "Personal",
		Currency: "USD", PricePerMonth: 9, HoursPerMonth: 100,
	}
	ProfessionalEUR = Plan{
		ID: "professional-eur", Type: "professional", Name: "Unleashed",
		Currency: "EUR", PricePerMonth: 35, Unlimited: true,
	}
	ProfessionalUSD = Plan{
		ID: "professional-usd", Type: "professional", Name: "Unleashed",
		Currency: "USD", PricePerMonth: 39, Unlimited: true,
	}
	ProfessionalNewEUR = Plan{
		ID: "professional-new-eur", Type: "professional-new", Name: "Professional",
		Currency: "EUR", PricePerMonth: 23, Unlimited: true,
	}
	ProfessionalNewUSD = Plan{
		ID: "professional-new-usd", Type: "professional-new", Name: "Professional",
		Currency: "USD", PricePerMonth: 25, Unlimited: true,
	}
	StudentEUR = Plan{
		ID: "professional-student-eur", Type: "student", Name: "Student Unleashed",
		Currency: "EUR", PricePerMonth: 8, Unlimited: true,
	}
	StudentUSD = Plan{
		ID: "professional-student-usd", Type: "student", Name: "Student Unleashed",
		Currency: "USD", PricePerMonth: 9, Unlimited: true,
	}
)

var all = []Plan{
	Free, Free50, FreeOpenSource,
	BasicEUR, BasicUSD,
	PersonalEUR, PersonalUSD,
	ProfessionalEUR, ProfessionalUSD,
	ProfessionalNewEUR, ProfessionalNewUSD,
	StudentEUR, StudentUSD,
}

// All returns the catalog.
func All() []Plan {
	out := make([]Plan, len(all))
	copy(out, all)
	return out
}

// GetByID looks up a plan by its id.
func GetByID(id string) (Plan, bool) {
	for _, p := range all {
		if p.ID == id {
			return p, true
		}
	}
	return Plan{}, false
}

// IsUnlimited reports whether the plan id belongs to an unlimited-hours plan.
func IsUnlimited(id string) bool {
	p, ok := GetByID(id)
	return ok && p.Unlimited
}

// FreeFor returns the free plan applicable to a user created at creationDate.
func FreeFor(creationDate time.Time) Plan {
	if creationDate.Before(Free50StartDate) {
		return Free
	}
	return Free50
}
