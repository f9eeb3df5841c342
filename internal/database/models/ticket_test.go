package models

import (
	"testing"
	"time"

	"github.com/smysle/sakura-lottery-go/internal/lottery"
)

func TestTicket_IsFinal(t *testing.T) {
	tests := []struct {
		name     string
		status   lottery.TicketStatus
		expected bool
	}{
		{"未开奖", lottery.TicketActive, false},
		{"已中奖", lottery.TicketWon, true},
		{"未中奖", lottery.TicketExpired, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ticket := &Ticket{Status: tt.status}
			if got := ticket.IsFinal(); got != tt.expected {
				t.Errorf("IsFinal() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestTicket_ToUserTicket(t *testing.T) {
	amount := 500.0
	bought := time.Date(2026, 1, 16, 10, 0, 0, 0, time.UTC)
	ticket := &Ticket{
		ID:           4,
		UUID:         "9a3c",
		ProfileID:    7,
		DrawID:       3,
		ValueStr:     "1,2,3",
		PurchaseDate: bought,
		Status:       lottery.TicketWon,
		WinAmount:    &amount,
	}

	ut := ticket.ToUserTicket()
	if ut.ID != 4 || ut.DrawID != 3 || ut.ValueStr != "1,2,3" {
		t.Errorf("ToUserTicket() = %+v", ut)
	}
	if !ut.PurchaseDate.Equal(bought) || ut.Status != lottery.TicketWon {
		t.Errorf("ToUserTicket() = %+v", ut)
	}
	if ut.WinAmount == nil || *ut.WinAmount != 500 {
		t.Errorf("WinAmount = %v, want 500", ut.WinAmount)
	}
}

func TestTicket_BeforeCreateKeepsUUID(t *testing.T) {
	ticket := &Ticket{UUID: "fixed"}
	if err := ticket.BeforeCreate(nil); err != nil {
		t.Fatal(err)
	}
	if ticket.UUID != "fixed" {
		t.Errorf("UUID = %s, want fixed", ticket.UUID)
	}

	fresh := &Ticket{}
	_ = fresh.BeforeCreate(nil)
	if len(fresh.UUID) != 36 {
		t.Errorf("UUID = %q, want generated uuid", fresh.UUID)
	}
}
