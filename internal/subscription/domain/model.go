package domain

import (
	"sort"
	"time"

	"github.com/bwmarrin/snowflake"

	"github.com/smallbiznis/creditledger/internal/plan"
)

// Delta is the pending change set a SubscriptionModel accumulates. Writes are
// applied transactionally per user by the repository.
type Delta struct {
	Updates []Subscription
	Inserts []Subscription
}

// Empty reports whether the delta carries no changes.
func (d Delta) Empty() bool { return len(d.Updates) == 0 && len(d.Inserts) == 0 }

// Period is a contiguous span of paid coverage. A zero End means unbounded.
type Period struct {
	StartDate time.Time
	EndDate   time.Time
}

// SubscriptionModel maintains the invariant that a user is covered by exactly
// one active subscription concept at every instant from account creation
// onward: paid subscriptions where they exist, a synthesized free plan filling
// every gap. Mutations never touch the base snapshot; they accumulate in a
// delta and surface through Merged and GetResult.
type SubscriptionModel struct {
	genID        *snowflake.Node
	userID       string
	creationDate time.Time
	base         []Subscription
	delta        Delta
}

// NewSubscriptionModel snapshots base; later mutations to the caller's slice
// do not leak in.
func NewSubscriptionModel(genID *snowflake.Node, userID string, creationDate time.Time, base []Subscription) *SubscriptionModel {
	snapshot := make([]Subscription, len(base))
	copy(snapshot, base)
	return &SubscriptionModel{
		genID:        genID,
		userID:       userID,
		creationDate: creationDate.UTC(),
		base:         snapshot,
	}
}

// Add records a new subscription as a pending insert. A zero ID is assigned.
func (m *SubscriptionModel) Add(sub Subscription) Subscription {
	if sub.ID == 0 {
		sub.ID = m.genID.Generate()
	}
	sub.UserID = m.userID
	m.delta.Inserts = append(m.delta.Inserts, sub)
	return sub
}

// Cancel marks the subscription as not renewing. endDate, when non-nil, also
// bounds the coverage.
func (m *SubscriptionModel) Cancel(sub Subscription, cancellationDate time.Time, endDate *time.Time) Subscription {
	cd := cancellationDate.UTC()
	sub.CancellationDate = &cd
	if endDate != nil {
		ed := endDate.UTC()
		sub.EndDate = &ed
	}
	return m.Update(sub)
}

// Update records a modified subscription as a pending update. The latest
// update for an ID wins.
func (m *SubscriptionModel) Update(sub Subscription) Subscription {
	for i := range m.delta.Updates {
		if m.delta.Updates[i].ID == sub.ID {
			m.delta.Updates[i] = sub
			return sub
		}
	}
	for i := range m.delta.Inserts {
		if m.delta.Inserts[i].ID == sub.ID {
			m.delta.Inserts[i] = sub
			return sub
		}
	}
	m.delta.Updates = append(m.delta.Updates, sub)
	return sub
}

// GetResult returns the accumulated delta.
func (m *SubscriptionModel) GetResult() Delta { return m.delta }

// Merged returns the base list with pending updates and inserts applied,
// sorted end-date-desc then start-date-desc. Open-ended subscriptions sort
// before any with a concrete end date.
func (m *SubscriptionModel) Merged() []Subscription {
	merged := make([]Subscription, 0, len(m.base)+len(m.delta.Inserts))
	for _, sub := range m.base {
		if upd, ok := m.findUpdate(sub.ID); ok {
			merged = append(merged, upd)
		} else {
			merged = append(merged, sub)
		}
	}
	merged = append(merged, m.delta.Inserts...)
	sort.SliceStable(merged, func(i, j int) bool {
		return compareEndDateDescStartDateDesc(merged[i], merged[j]) < 0
	})
	return merged
}

func (m *SubscriptionModel) findUpdate(id snowflake.ID) (Subscription, bool) {
	for _, upd := range m.delta.Updates {
		if upd.ID == id {
			return upd, true
		}
	}
	return Subscription{}, false
}

func compareEndDateDescStartDateDesc(a, b Subscription) int {
	switch {
	case a.EndDate == nil && b.EndDate != nil:
		return -1
	case a.EndDate != nil && b.EndDate == nil:
		return 1
	case a.EndDate != nil && b.EndDate != nil:
		if c := b.EndDate.Compare(*a.EndDate); c != 0 {
			return c
		}
	}
	return b.StartDate.Compare(a.StartDate)
}

// MergedWithFreeSubscriptions returns the merged list plus synthesized free
// plan subscriptions spanning every gap in paid coverage, so that the union
// of all validity intervals covers [creationDate, +inf) without overlaps
// between paid periods and fillers.
func (m *SubscriptionModel) MergedWithFreeSubscriptions() []Subscription {
	merged := m.Merged()
	periods := coveragePeriods(merged)

	freePlan := plan.FreeFor(m.creationDate)
	result := append([]Subscription(nil), merged...)
	addFree := func(start time.Time, end *time.Time) {
		sub := Subscription{
			ID:        m.genID.Generate(),
			UserID:    m.userID,
			PlanID:    freePlan.ID,
			Amount:    freePlan.HoursPerMonth,
			StartDate: start,
		}
		if end != nil {
			e := *end
			sub.EndDate = &e
			sub.CancellationDate = &e
		}
		result = append(result, sub)
	}

	cursor := m.creationDate
	for _, p := range periods {
		if cursor.Before(p.StartDate) {
			end := p.StartDate
			addFree(cursor, &end)
		}
		if p.EndDate.IsZero() {
			// Unbounded paid coverage; nothing left to fill.
			return result
		}
		if p.EndDate.After(cursor) {
			cursor = p.EndDate
		}
	}
	addFree(cursor, nil)
	return result
}

// coveragePeriods coalesces overlapping or adjacent subscriptions into
// contiguous periods, sorted ascending by start then end. A subscription
// fully contained in the current period is dropped; one starting strictly
// within the current bound extends it.
func coveragePeriods(subs []Subscription) []Period {
	ordered := make([]Subscription, len(subs))
	copy(ordered, subs)
	sort.SliceStable(ordered, func(i, j int) bool {
		if c := ordered[i].StartDate.Compare(ordered[j].StartDate); c != 0 {
			return c < 0
		}
		// Open-ended last so that bounded coverage is considered first.
		switch {
		case ordered[i].EndDate == nil:
			return false
		case ordered[j].EndDate == nil:
			return true
		default:
			return ordered[i].EndDate.Before(*ordered[j].EndDate)
		}
	})

	var periods []Period
	for _, sub := range ordered {
		start := sub.StartDate
		var end time.Time
		if sub.EndDate != nil {
			end = *sub.EndDate
		}
		if len(periods) == 0 {
			periods = append(periods, Period{StartDate: start, EndDate: end})
			continue
		}
		current := &periods[len(periods)-1]
		unbounded := current.EndDate.IsZero()
		if unbounded || start.Compare(current.EndDate) <= 0 {
			// Overlapping or adjacent: extend, or drop if fully contained.
			if !unbounded && (end.IsZero() || end.After(current.EndDate)) {
				current.EndDate = end
			}
			continue
		}
		periods = append(periods, Period{StartDate: start, EndDate: end})
	}
	return periods
}

// FindSubscriptionByPaymentReference locates a subscription by its payment
// provider reference. Missing references indicate a data-consistency problem
// upstream and fail with ErrSubscriptionNotFound.
func (m *SubscriptionModel) FindSubscriptionByPaymentReference(ref string) (Subscription, error) {
	for _, sub := range m.Merged() {
		if sub.PaymentReference != nil && *sub.PaymentReference == ref {
			return sub, nil
		}
	}
	return Subscription{}, ErrSubscriptionNotFound
}

// FindSubscriptionByTeamSubscriptionSlotID locates the subscription assigned
// to a team slot. Slots legitimately may have no assignee; absence is not an
// error.
func (m *SubscriptionModel) FindSubscriptionByTeamSubscriptionSlotID(slotID string) *Subscription {
	for _, sub := range m.Merged() {
		if sub.TeamSubscriptionSlotID != nil && *sub.TeamSubscriptionSlotID == slotID {
			out := sub
			return &out
		}
	}
	return nil
}
