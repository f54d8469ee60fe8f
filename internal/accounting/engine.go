package accounting

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/zap"

	"github.com/smallbiznis/creditledger/internal/plan"
	subscriptiondomain "github.com/smallbiznis/creditledger/internal/subscription/domain"
	usagedomain "github.com/smallbiznis/creditledger/internal/usage/domain"
)

// Engine computes statements. It holds no per-user state; one instance serves
// all concurrent computations.
type Engine struct {
	genID      *snowflake.Node
	log        *zap.Logger
	datePolicy DebitDatePolicy
}

// NewEngine wires an engine with the given ID source and debit date policy.
func NewEngine(genID *snowflake.Node, log *zap.Logger, datePolicy DebitDatePolicy) *Engine {
	return &Engine{
		genID:      genID,
		log:        log.Named("accounting.engine"),
		datePolicy: datePolicy,
	}
}

// StatementInput carries everything a statement computation reads. The
// subscription history must cover the whole window, gaps already filled with
// free plan subscriptions.
type StatementInput struct {
	UserID string
	Window Window

	// Subscriptions is the full coverage history overlapping the window.
	Subscriptions []subscriptiondomain.Subscription
	// ActiveSubscriptions are those not yet cancelled at the window end; they
	// are reported on the statement but do not affect matching.
	ActiveSubscriptions []subscriptiondomain.Subscription
	// Grants are one-time credits already projected onto the window.
	Grants []*Credit
	// Sessions are the workspace sessions overlapping the window.
	Sessions []usagedomain.WorkspaceSession
}

// ComputeStatement matches the window's debits against its credits and
// returns the reconciled statement. Debits are entered oldest first, each
// against the valid credit expiring soonest; debits spanning a credit
// boundary are split at it. Usage no credit covers becomes a loss entry,
// credit that expires unconsumed within the window an expiry entry.
func (e *Engine) ComputeStatement(in StatementInput) *Statement {
	openCredits := NewSortedArray(e.projectCreditSources(in), orderByExpiryDateDesc)
	openDebits := NewSortedArray(e.ProjectDebits(in.Sessions, in.UserID, in.Window), orderByDateDesc)

	credits, debits := e.enterDebits(in.UserID, openDebits, openCredits, in.Window.End)
	credits, debits = e.handleExpiry(in.UserID, in.Window, openCredits, credits, debits)

	out := make([]Credit, len(credits))
	for i, c := range credits {
		out[i] = *c
	}
	return &Statement{
		UserID:        in.UserID,
		Subscriptions: in.ActiveSubscriptions,
		StartDate:     in.Window.Start,
		EndDate:       in.Window.End,
		Credits:       out,
		Debits:        debits,
		RemainingHrs:  e.remainingHoursAt(credits, in.Window.End),
	}
}

// enterDebits drains the debit queue against the credit queue. Two orders are
// in play: debits leave the queue oldest first, while the credit chosen for
// each debit is the overlapping one with the earliest expiry. Splitting
// debits at credit boundaries keeps both orders honest.
func (e *Engine) enterDebits(userID string, openDebits *SortedArray[OpenDebit], openCredits *SortedArray[*Credit], endDate time.Time) ([]*Credit, []Debit) {
	var credits []*Credit
	var debits []Debit

	openDebit, ok := openDebits.Pop()
	for ok {
		// Scan from the back: the comparator sorts expiry descending, so the
		// earliest-expiring overlapping credit is found first.
		var openCredit *Credit
		for i := openCredits.Len() - 1; i >= 0; i-- {
			if oc := openCredits.Get(i); doesOverlap(openDebit, oc) {
				openCredit = oc
				openCredits.Splice(i)
				break
			}
		}

		// No credit to pay our debit with: enter as loss.
		if openCredit == nil {
			debits = append(debits, Debit{
				UID:         e.genID.Generate().String(),
				UserID:      userID,
				Amount:      -openDebit.Amount,
				Date:        openDebit.EndDate,
				Kind:        DebitKindLoss,
				Description: openDebit.Description,
			})
			openDebit, ok = openDebits.Pop()
			continue
		}

		if openDebit.Date.Before(openCredit.Date) {
			before, after := truncateDebitLeft(openDebit, openCredit.Date)
			if before != nil {
				// The part before the credit's start must get a fresh chance
				// at an older credit. Requeue everything and start over.
				openDebits.Push(*before)
				openDebits.Push(after)
				openCredits.Push(openCredit)
				openDebit, ok = openDebits.Pop()
				continue
			}
			openDebit = after
		}

		before, after := truncateDebitRight(openDebit, openCredit.ExpiryDate)
		if after != nil {
			openDebits.Push(*after)
		}
		openDebit = before

		e.enterDebit(openDebit, openCredit, openDebits, openCredits, &debits, &credits, endDate)
		openDebit, ok = openDebits.Pop()
	}
	return credits, debits
}

// enterDebit charges as much of openDebit against openCredit as the credit's
// remaining amount covers. Leftover debit above the goodwill tolerance goes
// back on the queue; leftovers below it are forgiven.
func (e *Engine) enterDebit(openDebit OpenDebit, openCredit *Credit, openDebits *SortedArray[OpenDebit], openCredits *SortedArray[*Credit], debits *[]Debit, credits *[]*Credit, endDate time.Time) {
	debitAmountPos := -HoursToMillis(openDebit.Amount)
	creditAmount := HoursToMillis(openCredit.RemainingAmount)
	accountableAmount := min(debitAmountPos, creditAmount)
	remainingCreditAmount := creditAmount - accountableAmount

	*debits = append(*debits, e.toDebitEntry(openDebit, openCredit.UID, -accountableAmount, endDate))

	openCredit.RemainingAmount = MillisToHours(remainingCreditAmount)
	if remainingCreditAmount == 0 {
		*credits = append(*credits, openCredit)
	} else {
		openCredits.Push(openCredit)
	}

	remainingDebitAmount := MillisToHours(debitAmountPos - accountableAmount)
	if remainingDebitAmount > GoodwillInHours {
		remainingDebit := openDebit
		remainingDebit.Amount = -remainingDebitAmount
		openDebits.Push(remainingDebit)
	}
}

// truncateDebitLeft splits debit at date. The part before ends right before
// date; before is nil when the debit does not reach left of date.
func truncateDebitLeft(debit OpenDebit, date time.Time) (before *OpenDebit, after OpenDebit) {
	if !debit.Date.Before(date) {
		return nil, debit
	}
	b := debit
	b.Amount = -DurationHours(debit.Date, date)
	b.EndDate = RightBefore(date)
	after = debit
	after.Amount = -DurationHours(date, debit.EndDate)
	after.Date = date
	return &b, after
}

// truncateDebitRight splits debit at date. A zero date means no bound; after
// is nil when the debit ends at or before date.
func truncateDebitRight(debit OpenDebit, date time.Time) (before OpenDebit, after *OpenDebit) {
	if date.IsZero() || debit.EndDate.Compare(date) <= 0 {
		return debit, nil
	}
	before = debit
	before.Amount = -DurationHours(debit.Date, date)
	before.EndDate = RightBefore(date)
	a := debit
	a.Amount = -DurationHours(date, debit.EndDate)
	a.Date = date
	return before, &a
}

func (e *Engine) toDebitEntry(debit OpenDebit, creditID string, amountMillis int64, endDate time.Time) Debit {
	date := debit.EndDate
	if e.datePolicy == DebitDatePinRightBefore && !debit.EndDate.Before(endDate) {
		date = RightBefore(debit.EndDate)
	}
	return Debit{
		UID:         e.genID.Generate().String(),
		UserID:      debit.UserID,
		Amount:      MillisToHours(amountMillis),
		Date:        date,
		Kind:        DebitKindSession,
		CreditID:    creditID,
		Description: debit.Description,
	}
}

// handleExpiry closes out credits left on the queue after matching. A credit
// whose expiry falls inside the window and that still has amount left gets an
// expiry debit over the leftover; everything else passes through unchanged.
func (e *Engine) handleExpiry(userID string, w Window, openCredits *SortedArray[*Credit], credits []*Credit, debits []Debit) ([]*Credit, []Debit) {
	openCredits.ForEach(func(c *Credit) {
		expired := c.RemainingAmount > 0 &&
			!c.ExpiryDate.IsZero() &&
			!c.ExpiryDate.Before(w.Start) &&
			c.ExpiryDate.Compare(w.End) <= 0
		if expired {
			debits = append(debits, Debit{
				UID:         e.genID.Generate().String(),
				UserID:      userID,
				Amount:      -c.RemainingAmount,
				Date:        RightBefore(c.ExpiryDate),
				Kind:        DebitKindExpiry,
				CreditID:    c.UID,
				Description: c.Description,
			})
			c.RemainingAmount = 0
		}
		credits = append(credits, c)
	})
	return credits, debits
}

// remainingHoursAt sums the remaining amounts of credits valid at date, or
// reports unlimited if any such credit stems from an unlimited plan.
func (e *Engine) remainingHoursAt(credits []*Credit, date time.Time) RemainingHours {
	for _, c := range credits {
		if c.Valid(date) && c.PlanID != "" && plan.IsUnlimited(c.PlanID) {
			return RemainingHours{Unlimited: true}
		}
	}
	var sum float64
	for _, c := range credits {
		if c.Valid(date) {
			sum += c.RemainingAmount
		}
	}
	return RemainingHours{Hours: sum}
}
