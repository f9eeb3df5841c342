package service

import (
	"fmt"
	"time"

	"github.com/smysle/sakura-lottery-go/internal/lottery"
	"github.com/smysle/sakura-lottery-go/pkg/imggen"
)

// RenderDrawCard 生成单期抽奖卡片
func RenderDrawCard(d lottery.Draw, now time.Time) ([]byte, error) {
	return imggen.GenerateDrawCard(DrawCardOf(d, now))
}

// DrawCardOf 抽奖卡片展示数据
func DrawCardOf(d lottery.Draw, now time.Time) imggen.DrawCard {
	rail, price := d.PaymentRail()
	card := imggen.DrawCard{
		Title:       fmt.Sprintf("%s #%d", d.Name, d.ID),
		Kind:        d.LotteryType.String(),
		Price:       fmt.Sprintf("%g %s", price, rail),
		Prize:       fmt.Sprintf("%g credits", d.BonusCredit),
		Tickets:     d.TicketAmount,
		Active:      d.IsActive && !d.IsExpired(now),
		GeneratedAt: now,
	}
	if d.BonusCreditVIP > 0 {
		card.Prize = fmt.Sprintf("%g credits (VIP %g)", d.BonusCredit, d.BonusCreditVIP)
	}

	switch {
	case d.IsResolved():
		card.WinningStr = *d.WinningStr
	case !d.IsExpired(now):
		card.Countdown = lottery.Remaining(now, d.EndDate).String()
	}
	return card
}
