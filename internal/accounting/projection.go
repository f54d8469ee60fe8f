package accounting

import (
	"sort"
	"time"

	"go.uber.org/zap"

	subscriptiondomain "github.com/smallbiznis/creditledger/internal/subscription/domain"
	usagedomain "github.com/smallbiznis/creditledger/internal/usage/domain"
)

// projectCreditSources turns all credit sources, grants and subscription
// billing periods alike, into fixed-validity credits within the window.
// Grants sort before subscription credits; matching order is decided later by
// expiry date.
func (e *Engine) projectCreditSources(in StatementInput) []*Credit {
	subscriptionCredits := e.ProjectSubscriptionsCredits(in.Subscriptions, in.UserID, in.Window.Start, in.Window.End, true)

	combined := make([]*Credit, 0, len(in.Grants)+len(subscriptionCredits))
	combined = append(combined, in.Grants...)
	combined = append(combined, subscriptionCredits...)
	sort.SliceStable(combined, func(i, j int) bool {
		return orderCreditFirst(combined[i], combined[j]) < 0
	})
	return combined
}

// ProjectSubscriptionsCredits slices possibly unbounded subscriptions into
// monthly billing periods clipped to [startDate, endDate). Period boundaries
// anchor on the subscription's start day of month, clamping at shorter month
// ends. When includeFirstTruncatedPeriod is unset, the period straddling
// startDate is skipped entirely rather than truncated.
func (e *Engine) ProjectSubscriptionsCredits(subscriptions []subscriptiondomain.Subscription, userID string, startDate, endDate time.Time, includeFirstTruncatedPeriod bool) []*Credit {
	var creditEntries []*Credit
	for i := range subscriptions {
		sub := &subscriptions[i]
		if !sub.StartDate.Before(endDate) {
			continue
		}
		if sub.EndDate != nil && sub.EndDate.Compare(startDate) <= 0 {
			continue
		}

		anchorDay := sub.StartDate.Day()
		billingPeriodStart := sub.StartDate
		for billingPeriodStart.Before(endDate) && (sub.EndDate == nil || billingPeriodStart.Before(*sub.EndDate)) {
			firstPeriod := false
			billingPeriodEnd := OneMonthLater(billingPeriodStart, anchorDay)
			if billingPeriodEnd.Compare(startDate) <= 0 {
				// Still waiting to hit the first overlapping period.
				billingPeriodStart = billingPeriodEnd
				continue
			}
			if billingPeriodStart.Before(startDate) {
				firstPeriod = true
				if includeFirstTruncatedPeriod {
					billingPeriodStart = startDate
				} else {
					billingPeriodStart = billingPeriodEnd
					continue
				}
			}
			if sub.EndDate != nil {
				billingPeriodEnd = Earliest(billingPeriodEnd, *sub.EndDate)
			}
			amount := sub.Amount
			if firstPeriod && sub.FirstMonthAmount != nil {
				amount = *sub.FirstMonthAmount
			}
			creditEntries = append(creditEntries, &Credit{
				UID:             e.genID.Generate().String(),
				UserID:          userID,
				Amount:          amount,
				Date:            billingPeriodStart,
				ExpiryDate:      billingPeriodEnd,
				RemainingAmount: amount,
				SubscriptionID:  sub.UID(),
				PlanID:          sub.PlanID,
			})
			billingPeriodStart = billingPeriodEnd
		}
	}
	return creditEntries
}

// ProjectDebits turns workspace sessions into open debits clipped to the
// window. Sessions that never started consume nothing; still running sessions
// are charged up to the window end.
func (e *Engine) ProjectDebits(sessions []usagedomain.WorkspaceSession, userID string, w Window) []OpenDebit {
	var debits []OpenDebit
	for i := range sessions {
		s := &sessions[i]
		if s.StartedAt == nil {
			continue
		}
		if !e.shouldGetBilled(s) {
			continue
		}
		sessionStartDate := Oldest(*s.StartedAt, w.Start)
		sessionEndDate := s.EffectiveEnd()
		if sessionEndDate.IsZero() {
			sessionEndDate = w.End
		}
		sessionEndDate = Earliest(sessionEndDate, w.End)
		debits = append(debits, OpenDebit{
			UserID:      userID,
			Amount:      -DurationHours(sessionStartDate, sessionEndDate),
			Date:        sessionStartDate,
			EndDate:     sessionEndDate,
			Description: sessionDescription(s),
		})
	}
	return debits
}

// Regular workspaces get billed; prebuilds and probes do not.
func (e *Engine) shouldGetBilled(s *usagedomain.WorkspaceSession) bool {
	switch s.WorkspaceType {
	case usagedomain.WorkspaceTypeRegular:
		return true
	case usagedomain.WorkspaceTypePrebuild, usagedomain.WorkspaceTypeProbe:
		return false
	default:
		e.log.Warn("unknown workspace type, not billing session",
			zap.String("workspace_id", s.WorkspaceID),
			zap.String("workspace_instance_id", s.InstanceID),
			zap.String("workspace_type", string(s.WorkspaceType)),
		)
		return false
	}
}

func sessionDescription(s *usagedomain.WorkspaceSession) string {
	if s.ContextTitle != "" {
		return s.ContextTitle
	}
	return s.WorkspaceID
}
