// Package accounting implements the statement computation core: it projects
// credit sources (subscriptions, one-time grants) and debit sources (workspace
// sessions) onto a fixed window, matches debits against credits and produces
// an auditable statement. The package is pure in-memory computation; all reads
// and writes happen in the statement service.
package accounting

import "time"

// GoodwillInHours is the tolerance below which leftover debit remainders are
// forgiven instead of being re-entered for another matching pass. Also used as
// the grace period when projecting the zero-credit crossing.
const GoodwillInHours = 1.0 / 60.0

// Window is the fixed statement period [Start, End).
type Window struct {
	Start time.Time
	End   time.Time
}

// DebitDatePolicy selects how the recorded date of a debit entry relates to
// the end of the charged interval. The original billing fixtures pin the date
// right before the session end whenever the session runs up to or past the
// statement window end; DebitDatePinRightBefore reproduces that exactly.
type DebitDatePolicy int

const (
	// DebitDatePinRightBefore records debit dates at the session end, except
	// when the session end reaches the window end, where the date is pinned
	// one millisecond before it.
	DebitDatePinRightBefore DebitDatePolicy = iota
	// DebitDatePinSessionEnd always records the clipped session end.
	DebitDatePinSessionEnd
)

// ParseDebitDatePolicy maps a config value to a policy. Unknown values fall
// back to the default pinning behavior.
func ParseDebitDatePolicy(s string) DebitDatePolicy {
	if s == "session-end" {
		return DebitDatePinSessionEnd
	}
	return DebitDatePinRightBefore
}
