package accounting

import (
	"encoding/json"
	"time"

	subscriptiondomain "github.com/smallbiznis/creditledger/internal/subscription/domain"
)

// DebitKind tags the debit side of a statement. Only these three kinds exist;
// credits are a separate type so that a loss can never carry an expiry date
// and a credit can never carry a credit reference.
type DebitKind string

const (
	// DebitKindSession is usage charged against a credit.
	DebitKindSession DebitKind = "debit"
	// DebitKindLoss is usage no credit could cover.
	DebitKindLoss DebitKind = "loss"
	// DebitKindExpiry compensates credit that outlived its window unconsumed.
	DebitKindExpiry DebitKind = "expiry"
)

// Credit is a fixed-period grant of usage hours. RemainingAmount decreases as
// debits are matched against it and reaches 0 when exhausted or expired.
type Credit struct {
	UID             string    `json:"uid"`
	UserID          string    `json:"userId"`
	Amount          float64   `json:"amount"`
	Date            time.Time `json:"date"`
	ExpiryDate      time.Time `json:"expiryDate"`
	RemainingAmount float64   `json:"remainingAmount"`
	SubscriptionID  string    `json:"subscriptionId,omitempty"`
	PlanID          string    `json:"planId,omitempty"`
	Description     string    `json:"description,omitempty"`
}

// Valid reports whether the credit's validity interval contains t.
func (c *Credit) Valid(t time.Time) bool {
	return Within(t, c.Date, c.ExpiryDate)
}

// Debit is consumed usage. Amount is always negative for kind "debit" and
// "expiry"; losses carry the unmatched usage as a positive amount. CreditID
// references the consumed credit and is empty for losses.
type Debit struct {
	UID         string    `json:"uid"`
	UserID      string    `json:"userId"`
	Amount      float64   `json:"amount"`
	Date        time.Time `json:"date"`
	Kind        DebitKind `json:"kind"`
	CreditID    string    `json:"creditId,omitempty"`
	Description string    `json:"description,omitempty"`
}

// OpenDebit is the transient projection of a usage session used during the
// matching pass only. Amount is the negative duration in hours of the clipped
// [Date, EndDate] interval.
type OpenDebit struct {
	UserID      string
	Amount      float64
	Date        time.Time
	EndDate     time.Time
	Description string
}

// RemainingHours is the credit left at the statement end, or "unlimited" when
// any contributing plan has no hour cap.
type RemainingHours struct {
	Unlimited bool
	Hours     float64
}

// MarshalJSON renders the value as a number or the string "unlimited".
func (r RemainingHours) MarshalJSON() ([]byte, error) {
	if r.Unlimited {
		return json.Marshal("unlimited")
	}
	return json.Marshal(r.Hours)
}

// UnmarshalJSON accepts either form.
func (r *RemainingHours) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*r = RemainingHours{Unlimited: s == "unlimited"}
		return nil
	}
	var hours float64
	if err := json.Unmarshal(data, &hours); err != nil {
		return err
	}
	*r = RemainingHours{Hours: hours}
	return nil
}

// Statement is the reconciled account view for [StartDate, EndDate).
type Statement struct {
	UserID        string                            `json:"userId"`
	Subscriptions []subscriptiondomain.Subscription `json:"subscriptions"`
	StartDate     time.Time                         `json:"startDate"`
	EndDate       time.Time                         `json:"endDate"`
	Credits       []Credit                          `json:"credits"`
	Debits        []Debit                           `json:"debits"`
	RemainingHrs  RemainingHours                    `json:"remainingHours"`
}

func orderByExpiryDateDesc(c1, c2 *Credit) int {
	return c2.ExpiryDate.Compare(c1.ExpiryDate)
}

func orderByDateDesc(d1, d2 OpenDebit) int {
	return d2.Date.Compare(d1.Date)
}

// orderCreditFirst puts standalone grants before subscription-derived credits.
// Presentation order only; matching order is governed by expiry date.
func orderCreditFirst(c1, c2 *Credit) int {
	switch {
	case c1.SubscriptionID == "" && c2.SubscriptionID != "":
		return -1
	case c1.SubscriptionID != "" && c2.SubscriptionID == "":
		return 1
	default:
		return 0
	}
}

func doesOverlap(d OpenDebit, c *Credit) bool {
	return c.Valid(d.Date) || c.Valid(d.EndDate)
}
