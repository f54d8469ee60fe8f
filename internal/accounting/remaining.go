package accounting

import "time"

// creditChange is a projected future change to the usable credit balance: a
// positive amount when a credit's validity starts, a negative one when it
// expires.
type creditChange struct {
	date   time.Time
	amount float64
}

// Same-instant changes apply additions before removals, so a seamless renewal
// never shows a transient zero.
func orderByDateAscPosFirst(c1, c2 creditChange) int {
	if c := c1.date.Compare(c2.date); c != 0 {
		return c
	}
	switch {
	case c1.amount > 0:
		return -1
	case c2.amount > 0:
		return 1
	default:
		return 0
	}
}

// RemainingUsageHours answers "how many usage hours are left before the
// balance hits zero", assuming numInstances workspaces run nonstop from the
// statement end onward. It walks every projected credit change ascending and
// checks whether the balance crosses zero inside each interval; a crossing
// cured by a change within the goodwill tolerance does not count. When the
// balance survives all changes, the remaining balance itself is returned.
func (e *Engine) RemainingUsageHours(statement *Statement, numInstances int, considerNextPeriod bool) float64 {
	if numInstances < 1 {
		numInstances = 1
	}

	changes := e.projectCreditChanges(statement, considerNextPeriod)
	creditChangesSorted := NewSortedArray(changes, orderByDateAscPosFirst)

	// Starting point: the cumulated remaining amounts of all credits still
	// valid at the statement end.
	var creditsNow float64
	for i := range statement.Credits {
		c := &statement.Credits[i]
		if c.Valid(statement.EndDate) {
			creditsNow += c.RemainingAmount
		}
	}

	credits := HoursToMillis(creditsNow)
	var debits int64
	lastChangeDate := statement.EndDate
	var hitZeroDate time.Time
	hitZero := credits == 0
	if hitZero {
		hitZeroDate = lastChangeDate
	}

	change, ok := creditChangesSorted.PopFront()
	for ok {
		duration := DurationMillis(lastChangeDate, change.date)
		debits += duration * int64(numInstances)
		if credits-debits <= 0 {
			if !hitZero {
				// We hit zero. Maybe some change within goodwill cures us?
				timeLeft := credits / int64(numInstances)
				hitZeroDate = lastChangeDate.Add(time.Duration(timeLeft) * time.Millisecond)
				hitZero = true
			}
			if hitZero && DurationHours(hitZeroDate, change.date) > GoodwillInHours {
				// No cure in sight.
				break
			}
		}

		credits += HoursToMillis(change.amount)
		if credits < 0 {
			credits = 0
		}
		if hitZero && credits > 0 {
			// Cured.
			hitZero = false
		}

		lastChangeDate = change.date
		change, ok = creditChangesSorted.PopFront()
	}

	if hitZero {
		return DurationHours(statement.EndDate, hitZeroDate)
	}
	return MillisToHours(credits)
}

// projectCreditChanges projects all expected credit changes from the
// statement end up to and including the first regular subscription period
// after the last known credit expired. With considerNextPeriod set, changes
// beyond that horizon are kept as well.
func (e *Engine) projectCreditChanges(statement *Statement, considerNextPeriod bool) []creditChange {
	var changes []creditChange
	add := func(date, expiryDate time.Time, remaining float64) {
		if remaining > 0 {
			changes = append(changes,
				creditChange{date: date, amount: remaining},
				creditChange{date: expiryDate, amount: -remaining},
			)
		}
	}
	for i := range statement.Credits {
		c := &statement.Credits[i]
		add(c.Date, c.ExpiryDate, c.RemainingAmount)
	}

	// Only the first full subscription cycle after the last (possibly
	// irregular) credit expired is of interest.
	lastCreditExpiryDate := statement.EndDate
	for i := range statement.Credits {
		if statement.Credits[i].ExpiryDate.After(lastCreditExpiryDate) {
			lastCreditExpiryDate = statement.Credits[i].ExpiryDate
		}
	}
	lastDateOfInterest := OneMonthLater(lastCreditExpiryDate, 0)
	subscriptionCredits := e.ProjectSubscriptionsCredits(statement.Subscriptions, statement.UserID, statement.EndDate, lastDateOfInterest, false)
	for _, c := range subscriptionCredits {
		add(c.Date, c.ExpiryDate, c.RemainingAmount)
	}

	filtered := changes[:0]
	for _, c := range changes {
		if !c.date.After(statement.EndDate) {
			continue
		}
		if !considerNextPeriod && !c.date.Before(lastDateOfInterest) {
			continue
		}
		filtered = append(filtered, c)
	}
	return filtered
}
