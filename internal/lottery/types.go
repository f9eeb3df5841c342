// Package lottery 抽奖核心模型与派生计算
package lottery

import (
	"fmt"
	"time"
)

// LotteryType 彩票类型（传输时编码为 1/2）
type LotteryType int

const (
	LotteryTypeUnknown     LotteryType = 0 // 未知或组内类型不一致
	LotteryTypeTraditional LotteryType = 1 // 传统型
	LotteryTypeStrategic   LotteryType = 2 // 策略型
)

// String 类型名称
func (t LotteryType) String() string {
	switch t {
	case LotteryTypeTraditional:
		return "traditional"
	case LotteryTypeStrategic:
		return "strategic"
	default:
		return fmt.Sprintf("unknown(%d)", int(t))
	}
}

// Valid 是否为已知类型
func (t LotteryType) Valid() bool {
	return t == LotteryTypeTraditional || t == LotteryTypeStrategic
}

// Draw 一期抽奖（某个命名彩票的一次开奖）
type Draw struct {
	ID             int64       `json:"id"`
	Name           string      `json:"name"`
	LotteryType    LotteryType `json:"lottery_type"`
	PriceCurrency  float64     `json:"price_currency"`
	PriceCredits   float64     `json:"price_credits"`
	BonusCredit    float64     `json:"bonus_credit"`
	BonusCreditVIP float64     `json:"bonus_credit_vip"`
	TicketAmount   int         `json:"ticket_amount"`
	BattlepassLvl  int         `json:"battlepass_lvl"`
	StartDate      time.Time   `json:"start_date"`
	EndDate        time.Time   `json:"end_date"`
	DescriptionMD  string      `json:"description_md"`
	WinningStr     *string     `json:"winning_str"`
	IsActive       bool        `json:"is_active"`
}

// IsResolved 是否已开奖
func (d *Draw) IsResolved() bool {
	return d.WinningStr != nil
}

// IsExpired 倒计时是否已结束（不代表已开奖）
func (d *Draw) IsExpired(now time.Time) bool {
	return !d.EndDate.After(now)
}

// PaymentRail 购票使用的货币类型
func (d *Draw) PaymentRail() (PaymentRail, float64) {
	if d.PriceCurrency > 0 {
		return RailCurrency, d.PriceCurrency
	}
	return RailCredits, d.PriceCredits
}

// PaymentRail 支付通道
type PaymentRail string

const (
	RailCurrency PaymentRail = "currency"
	RailCredits  PaymentRail = "credits"
)

// GroupedLottery 同名抽奖的分组视图（派生，不持久化）
type GroupedLottery struct {
	Name         string      `json:"name"`
	Type         LotteryType `json:"type"`
	Draws        []Draw      `json:"draws"`
	NextDraw     *Draw       `json:"nextDraw"`
	TotalDraws   int         `json:"totalDraws"`
	Inconsistent bool        `json:"inconsistent,omitempty"`
}

// TicketsSold 组内所有期数的售票总数
func (g *GroupedLottery) TicketsSold() int {
	total := 0
	for i := range g.Draws {
		total += g.Draws[i].TicketAmount
	}
	return total
}

// TicketStatus 彩票状态
type TicketStatus string

const (
	TicketActive  TicketStatus = "active"
	TicketWon     TicketStatus = "won"
	TicketExpired TicketStatus = "expired"
)

// UserTicket 用户购票记录
type UserTicket struct {
	ID           int64        `json:"id"`
	DrawID       int64        `json:"draw_id"`
	ValueStr     string       `json:"value_str"`
	PurchaseDate time.Time    `json:"purchase_date"`
	Status       TicketStatus `json:"status"`
	WinAmount    *float64     `json:"winAmount,omitempty"`
}

// EnrichedTicket 关联了所属抽奖的彩票
type EnrichedTicket struct {
	UserTicket
	Draw      Draw            `json:"draw"`
	Remaining *CountdownValue `json:"remaining,omitempty"`
}
