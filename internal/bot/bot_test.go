package bot

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	tele "gopkg.in/telebot.v3"

	"github.com/smysle/sakura-lottery-go/internal/database/models"
	"github.com/smysle/sakura-lottery-go/internal/lottery"
	"github.com/smysle/sakura-lottery-go/internal/service"
)

type fakeSender struct {
	to   []int64
	fail map[int64]bool
}

func (f *fakeSender) Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error) {
	u := to.(*tele.User)
	if f.fail[u.ID] {
		return nil, errors.New("blocked by user")
	}
	f.to = append(f.to, u.ID)
	return &tele.Message{}, nil
}

type fakeBindings struct {
	list []models.Binding
	err  error
}

func (f *fakeBindings) ListByProfiles(profileIDs []int64) ([]models.Binding, error) {
	return f.list, f.err
}

func winner(profileID int64) service.Winner {
	amount := 100.0
	return service.Winner{
		ProfileID: profileID,
		Ticket: lottery.EnrichedTicket{
			UserTicket: lottery.UserTicket{DrawID: 1, ValueStr: "1,2", WinAmount: &amount},
			Draw:       lottery.Draw{ID: 1, Name: "Daily"},
		},
	}
}

func TestNotifyWinners(t *testing.T) {
	s := &fakeSender{fail: map[int64]bool{30: true}}
	b := &fakeBindings{list: []models.Binding{
		{TG: 10, ProfileID: 1},
		{TG: 11, ProfileID: 1},
		{TG: 30, ProfileID: 3},
	}}

	sent := notifyWinners(s, b, []service.Winner{winner(1), winner(2), winner(3)})
	assert.Equal(t, 2, sent)
	assert.Equal(t, []int64{10, 11}, s.to)
}

func TestNotifyWinners_Empty(t *testing.T) {
	assert.Zero(t, notifyWinners(&fakeSender{}, &fakeBindings{err: errors.New("should not query")}, nil))
}

func TestNotifyWinners_LookupFailure(t *testing.T) {
	s := &fakeSender{}
	assert.Zero(t, notifyWinners(s, &fakeBindings{err: errors.New("db down")}, []service.Winner{winner(1)}))
	assert.Empty(t, s.to)
}
