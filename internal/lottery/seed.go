package lottery

import (
	"strings"
	"time"
)

// MockLottery 本地兜底数据的结构（与接口结构不同，通过 AdaptMock 转换）
type MockLottery struct {
	ID           int64
	Title        string
	Kind         string  // "traditional" / "strategic"，其他值按传统型处理
	Price        float64 // 票价
	Currency     string  // "currency" 或 "credits"，默认 credits
	Prize        float64
	VIPPrize     float64 // 为 0 时沿用 Prize
	Participants int
	Level        int
	StartOffset  time.Duration // 相对锚点的开始时间
	EndOffset    time.Duration // 相对锚点的开奖时间
	Description  string
	Winner       string // 空字符串表示未开奖
	Closed       bool   // 已停售
}

// AdaptMock 将兜底数据转换为 Draw
//
// 默认值：未知类型为传统型；未知货币按 credits 计价；VIPPrize 为 0 时取 Prize；
// Winner 非空即视为已开奖且必然停售。
func AdaptMock(m MockLottery, anchor time.Time) Draw {
	d := Draw{
		ID:             m.ID,
		Name:           m.Title,
		LotteryType:    LotteryTypeTraditional,
		BonusCredit:    m.Prize,
		BonusCreditVIP: m.VIPPrize,
		TicketAmount:   m.Participants,
		BattlepassLvl:  m.Level,
		StartDate:      anchor.Add(m.StartOffset),
		EndDate:        anchor.Add(m.EndOffset),
		DescriptionMD:  m.Description,
		IsActive:       !m.Closed,
	}

	if strings.EqualFold(m.Kind, "strategic") {
		d.LotteryType = LotteryTypeStrategic
	}

	if strings.EqualFold(m.Currency, string(RailCurrency)) {
		d.PriceCurrency = m.Price
	} else {
		d.PriceCredits = m.Price
	}

	if d.BonusCreditVIP == 0 {
		d.BonusCreditVIP = d.BonusCredit
	}

	if m.Winner != "" {
		w := m.Winner
		d.WinningStr = &w
		d.IsActive = false
	}

	return d
}

// mockLotteries 固定的兜底数据
var mockLotteries = []MockLottery{
	{
		ID: 1, Title: "Daily Lucky", Kind: "traditional", Price: 10, Currency: "credits",
		Prize: 500, VIPPrize: 750, Participants: 128, Level: 1,
		StartOffset: -22 * time.Hour, EndOffset: 2 * time.Hour,
		Description: "Pick your numbers, the draw runs **every day**.",
	},
	{
		ID: 2, Title: "Daily Lucky", Kind: "traditional", Price: 10, Currency: "credits",
		Prize: 500, VIPPrize: 750, Participants: 12, Level: 1,
		StartOffset: 2 * time.Hour, EndOffset: 26 * time.Hour,
		Description: "Pick your numbers, the draw runs **every day**.",
	},
	{
		ID: 3, Title: "Daily Lucky", Kind: "traditional", Price: 10, Currency: "credits",
		Prize: 500, VIPPrize: 750, Participants: 342, Level: 1,
		StartOffset: -46 * time.Hour, EndOffset: -22 * time.Hour,
		Description: "Pick your numbers, the draw runs **every day**.",
		Winner:      "3,14,15,26,35,42", Closed: true,
	},
	{
		ID: 4, Title: "Weekly Jackpot", Kind: "traditional", Price: 2, Currency: "currency",
		Prize: 10000, VIPPrize: 12500, Participants: 2048, Level: 5,
		StartOffset: -72 * time.Hour, EndOffset: 96 * time.Hour,
		Description: "The big one. Six numbers, one **jackpot**.",
	},
	{
		ID: 5, Title: "Strategy Cup", Kind: "strategic", Price: 25, Currency: "credits",
		Prize: 2000, Participants: 64, Level: 10,
		StartOffset: -10 * time.Hour, EndOffset: 14 * time.Hour,
		Description: "Allocate your points across the board, outsmart the field.",
	},
	{
		ID: 6, Title: "Strategy Cup", Kind: "strategic", Price: 25, Currency: "credits",
		Prize: 2000, Participants: 80, Level: 10,
		StartOffset: -34 * time.Hour, EndOffset: -10 * time.Hour,
		Description: "Allocate your points across the board, outsmart the field.",
		Closed:      true,
	},
	{
		ID: 7, Title: "Season Finale", Kind: "strategic", Price: 5, Currency: "currency",
		Prize: 25000, VIPPrize: 30000, Participants: 4096, Level: 30,
		StartOffset: -30 * 24 * time.Hour, EndOffset: -1 * time.Hour,
		Description: "Battle Pass season finale draw.",
		Winner:      "A3-B1-C2", Closed: true,
	},
}

// SeedDraws 返回固定的兜底抽奖列表，时间相对 anchor 计算
func SeedDraws(anchor time.Time) []Draw {
	draws := make([]Draw, 0, len(mockLotteries))
	for _, m := range mockLotteries {
		draws = append(draws, AdaptMock(m, anchor))
	}
	return draws
}
