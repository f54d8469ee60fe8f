package domain

import (
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smallbiznis/creditledger/internal/plan"
)

var (
	jan1 = time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	feb1 = time.Date(2020, 2, 1, 0, 0, 0, 0, time.UTC)
	mar1 = time.Date(2020, 3, 1, 0, 0, 0, 0, time.UTC)
	apr1 = time.Date(2020, 4, 1, 0, 0, 0, 0, time.UTC)
)

func newTestNode(t *testing.T) *snowflake.Node {
	t.Helper()
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	return node
}

func paidSub(id int64, start time.Time, end *time.Time) Subscription {
	return Subscription{
		ID:        snowflake.ID(id),
		UserID:    "user-1",
		PlanID:    "basic-eur",
		Amount:    100,
		StartDate: start,
		EndDate:   end,
	}
}

func freeSubs(subs []Subscription) []Subscription {
	var out []Subscription
	for _, s := range subs {
		if p, ok := plan.GetByID(s.PlanID); ok && p.PricePerMonth == 0 {
			out = append(out, s)
		}
	}
	return out
}

func TestMergedWithFreeSubscriptionsFillsGaps(t *testing.T) {
	model := NewSubscriptionModel(newTestNode(t), "user-1", jan1,
		[]Subscription{paidSub(1, feb1, &mar1)})

	all := model.MergedWithFreeSubscriptions()
	fillers := freeSubs(all)
	require.Len(t, fillers, 2)

	// Sorted by end date: the open-ended filler after Mar 1 first.
	var before, after Subscription
	for _, f := range fillers {
		if f.EndDate == nil {
			after = f
		} else {
			before = f
		}
	}
	assert.True(t, before.StartDate.Equal(jan1))
	require.NotNil(t, before.EndDate)
	assert.True(t, before.EndDate.Equal(feb1))
	require.NotNil(t, before.CancellationDate, "bounded fillers are cancelled at the gap end")

	assert.True(t, after.StartDate.Equal(mar1))
	assert.Nil(t, after.CancellationDate)

	// The user is created after the 50h cutover.
	assert.Equal(t, plan.Free50.ID, before.PlanID)
	assert.Equal(t, plan.Free50.HoursPerMonth, before.Amount)
}

func TestMergedWithFreeSubscriptionsNoPaidCoverage(t *testing.T) {
	model := NewSubscriptionModel(newTestNode(t), "user-1", jan1, nil)

	all := model.MergedWithFreeSubscriptions()
	require.Len(t, all, 1)
	assert.True(t, all[0].StartDate.Equal(jan1))
	assert.Nil(t, all[0].EndDate)
	assert.Equal(t, plan.Free50.ID, all[0].PlanID)
}

func TestMergedWithFreeSubscriptionsUnboundedPaid(t *testing.T) {
	model := NewSubscriptionModel(newTestNode(t), "user-1", jan1,
		[]Subscription{paidSub(1, jan1, nil)})

	all := model.MergedWithFreeSubscriptions()
	assert.Empty(t, freeSubs(all), "open-ended paid coverage leaves no gap")
}

func TestMergedWithFreeSubscriptionsCoalescesOverlap(t *testing.T) {
	// Two overlapping paid subscriptions form one coverage period; only the
	// leading and trailing gaps get fillers.
	model := NewSubscriptionModel(newTestNode(t), "user-1", jan1,
		[]Subscription{
			paidSub(1, feb1, &apr1),
			paidSub(2, mar1.AddDate(0, 0, -7), &mar1),
		})

	fillers := freeSubs(model.MergedWithFreeSubscriptions())
	require.Len(t, fillers, 2)
	for _, f := range fillers {
		if f.EndDate != nil {
			assert.True(t, f.EndDate.Equal(feb1))
		} else {
			assert.True(t, f.StartDate.Equal(apr1))
		}
	}
}

func TestMergedOrdering(t *testing.T) {
	model := NewSubscriptionModel(newTestNode(t), "user-1", jan1,
		[]Subscription{
			paidSub(1, jan1, &feb1),
			paidSub(2, feb1, nil),
			paidSub(3, jan1, &mar1),
		})

	merged := model.Merged()
	require.Len(t, merged, 3)
	assert.Equal(t, snowflake.ID(2), merged[0].ID, "open-ended sorts first")
	assert.Equal(t, snowflake.ID(3), merged[1].ID)
	assert.Equal(t, snowflake.ID(1), merged[2].ID)
}

func TestCancelRecordsUpdate(t *testing.T) {
	base := paidSub(1, jan1, nil)
	model := NewSubscriptionModel(newTestNode(t), "user-1", jan1, []Subscription{base})

	model.Cancel(base, feb1, &mar1)

	delta := model.GetResult()
	require.Len(t, delta.Updates, 1)
	assert.Empty(t, delta.Inserts)
	require.NotNil(t, delta.Updates[0].CancellationDate)
	assert.True(t, delta.Updates[0].CancellationDate.Equal(feb1))
	require.NotNil(t, delta.Updates[0].EndDate)
	assert.True(t, delta.Updates[0].EndDate.Equal(mar1))

	// The merged view reflects the pending cancellation without a write.
	merged := model.Merged()
	require.Len(t, merged, 1)
	assert.True(t, merged[0].IsCancelled())
}

func TestAddAssignsIDAndTracksInsert(t *testing.T) {
	model := NewSubscriptionModel(newTestNode(t), "user-1", jan1, nil)

	created := model.Add(Subscription{PlanID: "basic-eur", Amount: 100, StartDate: feb1})
	assert.NotZero(t, created.ID)
	assert.Equal(t, "user-1", created.UserID)

	delta := model.GetResult()
	require.Len(t, delta.Inserts, 1)
	assert.Equal(t, created.ID, delta.Inserts[0].ID)
}

func TestFindSubscriptionByPaymentReference(t *testing.T) {
	ref := "pay-123"
	sub := paidSub(1, jan1, nil)
	sub.PaymentReference = &ref
	model := NewSubscriptionModel(newTestNode(t), "user-1", jan1, []Subscription{sub})

	found, err := model.FindSubscriptionByPaymentReference("pay-123")
	require.NoError(t, err)
	assert.Equal(t, snowflake.ID(1), found.ID)

	_, err = model.FindSubscriptionByPaymentReference("pay-999")
	assert.ErrorIs(t, err, ErrSubscriptionNotFound)
}

func TestFindSubscriptionByTeamSubscriptionSlotID(t *testing.T) {
	slot := "slot-1"
	sub := paidSub(1, jan1, nil)
	sub.TeamSubscriptionSlotID = &slot
	model := NewSubscriptionModel(newTestNode(t), "user-1", jan1, []Subscription{sub})

	found := model.FindSubscriptionByTeamSubscriptionSlotID("slot-1")
	require.NotNil(t, found)
	assert.Equal(t, snowflake.ID(1), found.ID)

	assert.Nil(t, model.FindSubscriptionByTeamSubscriptionSlotID("slot-2"),
		"unassigned slots are not an error")
}
