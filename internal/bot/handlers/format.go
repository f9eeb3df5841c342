package handlers

import (
	"fmt"
	"strings"
	"time"

	"github.com/smysle/sakura-lottery-go/internal/backend"
	"github.com/smysle/sakura-lottery-go/internal/lottery"
	"github.com/smysle/sakura-lottery-go/internal/service"
	"github.com/smysle/sakura-lottery-go/pkg/utils"
)

var mdEscaper = strings.NewReplacer("_", "\\_", "*", "\\*", "`", "\\`", "[", "\\[")

// escapeMD 转义 Markdown 特殊字符
func escapeMD(s string) string {
	return mdEscaper.Replace(s)
}

func typeLabel(t lottery.LotteryType) string {
	switch t {
	case lottery.LotteryTypeTraditional:
		return "🎱 传统型"
	case lottery.LotteryTypeStrategic:
		return "♟ 策略型"
	default:
		return "❓ 未知"
	}
}

func priceLabel(d *lottery.Draw) string {
	rail, price := d.PaymentRail()
	if rail == lottery.RailCurrency {
		return fmt.Sprintf("%g 💎", price)
	}
	return fmt.Sprintf("%g 🪙", price)
}

// drawStatus 单期状态描述
func drawStatus(d *lottery.Draw, now time.Time) string {
	switch {
	case d.IsResolved():
		return "🏁 已开奖 `" + escapeMD(*d.WinningStr) + "`"
	case d.IsExpired(now):
		return "⌛ 等待开奖"
	default:
		return "⏱ " + lottery.Remaining(now, d.EndDate).String()
	}
}

// pageBounds 当前页的切片范围，page 从 1 开始
func pageBounds(total, page, pageSize int) (start, end int) {
	if pageSize <= 0 {
		pageSize = total
	}
	start = (page - 1) * pageSize
	if start > total {
		start = total
	}
	if start < 0 {
		start = 0
	}
	end = start + pageSize
	if end > total {
		end = total
	}
	return start, end
}

// FormatGroupList 抽奖分组列表
func FormatGroupList(groups []lottery.GroupedLottery, page, pageSize int, query string, now time.Time) string {
	var sb strings.Builder
	sb.WriteString("🎰 **抽奖列表**")
	if query != "" {
		sb.WriteString(" · 搜索 `" + escapeMD(query) + "`")
	}
	sb.WriteString("\n\n")

	if len(groups) == 0 {
		sb.WriteString("暂无抽奖")
		return sb.String()
	}

	start, end := pageBounds(len(groups), page, pageSize)
	for i := start; i < end; i++ {
		g := &groups[i]
		fmt.Fprintf(&sb, "**%d. %s** %s\n", i+1, escapeMD(g.Name), typeLabel(g.Type))
		if g.Inconsistent {
			sb.WriteString("   ⚠️ 数据不一致\n")
		}
		if n := g.NextDraw; n != nil {
			fmt.Fprintf(&sb, "   #%d · %s · %s\n", n.ID, priceLabel(n), drawStatus(n, now))
		}
		fmt.Fprintf(&sb, "   共 %d 期 · 已售 %d 张\n", g.TotalDraws, g.TicketsSold())
	}
	sb.WriteString("\n使用 /draw <ID> 查看详情")
	return sb.String()
}

// FormatDraw 单期详情
func FormatDraw(d lottery.Draw, now time.Time) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "**%s** #%d\n%s\n\n", escapeMD(d.Name), d.ID, typeLabel(d.LotteryType))
	fmt.Fprintf(&sb, "· 票价 | %s\n", priceLabel(&d))
	fmt.Fprintf(&sb, "· 奖金 | %g", d.BonusCredit)
	if d.BonusCreditVIP > 0 {
		fmt.Fprintf(&sb, " (VIP %g)", d.BonusCreditVIP)
	}
	sb.WriteString("\n")
	fmt.Fprintf(&sb, "· 已售 | %d 张\n", d.TicketAmount)
	if d.BattlepassLvl > 0 {
		fmt.Fprintf(&sb, "· 战令等级 | %d\n", d.BattlepassLvl)
	}
	fmt.Fprintf(&sb, "· 截止 | %s\n", utils.FormatTimeCST(d.EndDate, "2006-01-02 15:04"))
	fmt.Fprintf(&sb, "· 状态 | %s\n", drawStatus(&d, now))
	if desc := strings.TrimSpace(d.DescriptionMD); desc != "" {
		sb.WriteString("\n" + utils.Truncate(desc, 300))
	}
	return sb.String()
}

func ticketLabel(s lottery.TicketStatus) string {
	switch s {
	case lottery.TicketWon:
		return "🎉 中奖"
	case lottery.TicketExpired:
		return "❌ 未中奖"
	default:
		return "⏳ 待开奖"
	}
}

// FormatTickets 用户彩票列表
func FormatTickets(result *lottery.ReconcileResult, page, pageSize int) string {
	var sb strings.Builder
	sb.WriteString("🎫 **我的彩票**\n\n")

	if len(result.Tickets) == 0 && len(result.Missing) == 0 {
		sb.WriteString("还没有购买过彩票")
		return sb.String()
	}

	start, end := pageBounds(len(result.Tickets), page, pageSize)
	for _, t := range result.Tickets[start:end] {
		fmt.Fprintf(&sb, "**%s** #%d · `%s`\n", escapeMD(t.Draw.Name), t.DrawID, escapeMD(t.ValueStr))
		sb.WriteString("   " + ticketLabel(t.Status))
		switch {
		case t.WinAmount != nil:
			fmt.Fprintf(&sb, " +%g", *t.WinAmount)
		case t.Remaining != nil && !t.Remaining.Expired:
			sb.WriteString(" · " + t.Remaining.String())
		}
		sb.WriteString("\n")
	}
	if n := len(result.Missing); n > 0 {
		fmt.Fprintf(&sb, "\n⚠️ %d 张彩票对应的抽奖已不存在", n)
	}
	return sb.String()
}

// FormatProfile 用户资料
func FormatProfile(p *backend.Profile) string {
	vip := "否"
	if p.IsVIP {
		vip = "是"
	}
	return fmt.Sprintf(
		"👤 **我的资料**\n\n"+
			"· 🆔 资料ID | `%d`\n"+
			"· 💎 货币 | %g\n"+
			"· 🪙 积分 | %g\n"+
			"· 🏆 战令等级 | %d\n"+
			"· ⭐ VIP | %s\n",
		p.ID, p.Currency, p.Credits, p.BattlepassLvl, vip,
	)
}

// FormatBattlePass 战令进度
func FormatBattlePass(bp *service.BattlePassProgress) string {
	var sb strings.Builder
	sb.WriteString("🏆 **战令**\n\n")
	if bp.Remaining.Expired {
		sb.WriteString("本赛季已结束\n")
	} else {
		fmt.Fprintf(&sb, "赛季剩余 %s\n", bp.Remaining.String())
	}
	fmt.Fprintf(&sb, "当前等级 %d\n\n", bp.Level)

	line := func(r backend.BattlePassReward, mark string) {
		fmt.Fprintf(&sb, "%s Lv.%d %s", mark, r.Level, escapeMD(r.Reward))
		if r.Amount > 0 {
			fmt.Fprintf(&sb, " ×%g", r.Amount)
		}
		if r.Premium {
			sb.WriteString(" ⭐")
		}
		sb.WriteString("\n")
	}
	for _, r := range bp.Unlocked {
		line(r, "✅")
	}
	for _, r := range bp.Locked {
		line(r, "🔒")
	}
	return sb.String()
}

// FormatWinner 中奖通知
func FormatWinner(w service.Winner) string {
	amount := 0.0
	if w.Ticket.WinAmount != nil {
		amount = *w.Ticket.WinAmount
	}
	return fmt.Sprintf(
		"🎉 **恭喜中奖！**\n\n"+
			"**%s** #%d\n"+
			"· 号码 | `%s`\n"+
			"· 奖金 | %g\n",
		escapeMD(w.Ticket.Draw.Name), w.Ticket.DrawID, escapeMD(w.Ticket.ValueStr), amount,
	)
}
