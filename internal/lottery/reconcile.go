package lottery

import (
	"errors"
	"strings"
	"time"
)

// Scorer 中奖判定规则，按彩票类型比较 value_str 与 winning_str
type Scorer interface {
	Score(draw *Draw, valueStr string, vip bool) (won bool, amount float64)
}

// ScorerFunc 函数适配 Scorer
type ScorerFunc func(draw *Draw, valueStr string, vip bool) (bool, float64)

// Score 实现 Scorer
func (f ScorerFunc) Score(draw *Draw, valueStr string, vip bool) (bool, float64) {
	return f(draw, valueStr, vip)
}

// ExactMatchScorer 完全匹配才中奖，奖金为 bonus_credit（VIP 为 bonus_credit_vip）
type ExactMatchScorer struct{}

// Score 实现 Scorer
func (ExactMatchScorer) Score(draw *Draw, valueStr string, vip bool) (bool, float64) {
	if draw.WinningStr == nil {
		return false, 0
	}
	if strings.TrimSpace(valueStr) != strings.TrimSpace(*draw.WinningStr) {
		return false, 0
	}
	if vip && draw.BonusCreditVIP > 0 {
		return true, draw.BonusCreditVIP
	}
	return true, draw.BonusCredit
}

// ReconcileResult 对账结果
type ReconcileResult struct {
	Tickets []EnrichedTicket
	Missing []*MissingDrawError
}

// Err 缺失引用合并后的错误，无缺失返回 nil
func (r *ReconcileResult) Err() error {
	errs := make([]error, 0, len(r.Missing))
	for _, m := range r.Missing {
		errs = append(errs, m)
	}
	return errors.Join(errs...)
}

// ReconcileTicket 根据抽奖状态重新判定单张彩票，结果只取决于输入
func ReconcileTicket(now time.Time, ticket UserTicket, draw Draw, scorer Scorer, vip bool) EnrichedTicket {
	out := EnrichedTicket{UserTicket: ticket, Draw: draw}

	if !draw.IsResolved() {
		out.Status = TicketActive
		out.WinAmount = nil
		r := Remaining(now, draw.EndDate)
		out.Remaining = &r
		return out
	}

	if scorer == nil {
		scorer = ExactMatchScorer{}
	}
	won, amount := scorer.Score(&draw, ticket.ValueStr, vip)
	if won {
		out.Status = TicketWon
		out.WinAmount = &amount
	} else {
		out.Status = TicketExpired
		out.WinAmount = nil
	}
	return out
}

// Reconcile 将用户彩票与抽奖列表关联并重新判定状态
//
// 引用了不存在抽奖的彩票不会被丢弃，而是记录在 Missing 中。
func Reconcile(now time.Time, draws []Draw, tickets []UserTicket, scorer Scorer, vip bool) ReconcileResult {
	byID := make(map[int64]Draw, len(draws))
	for _, d := range draws {
		byID[d.ID] = d
	}

	result := ReconcileResult{Tickets: make([]EnrichedTicket, 0, len(tickets))}
	for _, t := range tickets {
		d, ok := byID[t.DrawID]
		if !ok {
			result.Missing = append(result.Missing, &MissingDrawError{TicketID: t.ID, DrawID: t.DrawID})
			continue
		}
		result.Tickets = append(result.Tickets, ReconcileTicket(now, t, d, scorer, vip))
	}
	return result
}
