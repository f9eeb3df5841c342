package lottery

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resolved(id int64, winning string) Draw {
	d := draw(id, "Daily", LotteryTypeTraditional, -time.Hour, false)
	d.WinningStr = strPtr(winning)
	d.BonusCredit = 500
	d.BonusCreditVIP = 750
	return d
}

func TestReconcileTicket_UnresolvedIsActive(t *testing.T) {
	d := draw(1, "Daily", LotteryTypeTraditional, 3661*time.Second, true)

	for _, value := range []string{"", "1,2,3", "anything"} {
		ticket := UserTicket{ID: 10, DrawID: 1, ValueStr: value, Status: TicketWon, WinAmount: new(float64)}
		got := ReconcileTicket(base, ticket, d, ExactMatchScorer{}, false)

		assert.Equal(t, TicketActive, got.Status)
		assert.Nil(t, got.WinAmount)
		require.NotNil(t, got.Remaining)
		assert.Equal(t, CountdownValue{Hours: 1, Minutes: 1, Seconds: 1}, *got.Remaining)
	}
}

func TestReconcileTicket_UnresolvedButClosed(t *testing.T) {
	d := draw(1, "Daily", LotteryTypeTraditional, -time.Minute, false)
	got := ReconcileTicket(base, UserTicket{ID: 1, DrawID: 1, ValueStr: "1"}, d, nil, false)

	assert.Equal(t, TicketActive, got.Status)
	require.NotNil(t, got.Remaining)
	assert.True(t, got.Remaining.Expired)
}

func TestReconcileTicket_Won(t *testing.T) {
	d := resolved(1, "3,14,15")

	got := ReconcileTicket(base, UserTicket{ID: 1, DrawID: 1, ValueStr: " 3,14,15 "}, d, ExactMatchScorer{}, false)
	assert.Equal(t, TicketWon, got.Status)
	require.NotNil(t, got.WinAmount)
	assert.Greater(t, *got.WinAmount, 0.0)
	assert.Equal(t, 500.0, *got.WinAmount)
	assert.Nil(t, got.Remaining)

	vip := ReconcileTicket(base, UserTicket{ID: 1, DrawID: 1, ValueStr: "3,14,15"}, d, ExactMatchScorer{}, true)
	require.NotNil(t, vip.WinAmount)
	assert.Equal(t, 750.0, *vip.WinAmount)
}

func TestReconcileTicket_Expired(t *testing.T) {
	d := resolved(1, "3,14,15")
	got := ReconcileTicket(base, UserTicket{ID: 1, DrawID: 1, ValueStr: "1,2,3", Status: TicketActive}, d, ExactMatchScorer{}, false)

	assert.Equal(t, TicketExpired, got.Status)
	assert.Nil(t, got.WinAmount)
}

func TestReconcileTicket_CustomScorer(t *testing.T) {
	d := resolved(1, "ABC")
	calls := 0
	scorer := ScorerFunc(func(draw *Draw, value string, vip bool) (bool, float64) {
		calls++
		return value[0] == (*draw.WinningStr)[0], 42
	})

	got := ReconcileTicket(base, UserTicket{ID: 1, DrawID: 1, ValueStr: "AXX"}, d, scorer, false)
	assert.Equal(t, 1, calls)
	assert.Equal(t, TicketWon, got.Status)
	assert.Equal(t, 42.0, *got.WinAmount)
}

func TestReconcile_MissingDraw(t *testing.T) {
	draws := []Draw{resolved(1, "7"), draw(2, "Daily", LotteryTypeTraditional, time.Hour, true)}
	tickets := []UserTicket{
		{ID: 1, DrawID: 1, ValueStr: "7"},
		{ID: 2, DrawID: 99, ValueStr: "7"},
		{ID: 3, DrawID: 2, ValueStr: "7"},
	}

	result := Reconcile(base, draws, tickets, ExactMatchScorer{}, false)
	require.Len(t, result.Tickets, 2)
	assert.Equal(t, TicketWon, result.Tickets[0].Status)
	assert.Equal(t, TicketActive, result.Tickets[1].Status)

	require.Len(t, result.Missing, 1)
	assert.Equal(t, int64(2), result.Missing[0].TicketID)
	assert.Equal(t, int64(99), result.Missing[0].DrawID)

	err := result.Err()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInconsistentData))
}

func TestReconcile_Idempotent(t *testing.T) {
	draws := SeedDraws(base)
	tickets := []UserTicket{
		{ID: 1, DrawID: 3, ValueStr: "3,14,15,26,35,42"},
		{ID: 2, DrawID: 3, ValueStr: "1,2,3,4,5,6"},
		{ID: 3, DrawID: 1, ValueStr: "1,2,3,4,5,6"},
		{ID: 4, DrawID: 7, ValueStr: "A3-B1-C2"},
	}

	first := Reconcile(base, draws, tickets, ExactMatchScorer{}, false)
	second := Reconcile(base, draws, tickets, ExactMatchScorer{}, false)
	assert.Equal(t, first, second)
	assert.NoError(t, first.Err())

	statuses := make([]TicketStatus, 0, len(first.Tickets))
	for _, et := range first.Tickets {
		statuses = append(statuses, et.Status)
	}
	assert.Equal(t, []TicketStatus{TicketWon, TicketExpired, TicketActive, TicketWon}, statuses)
}
