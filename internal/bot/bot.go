// Package bot Telegram Bot 核心
package bot

import (
	"time"

	tele "gopkg.in/telebot.v3"

	"github.com/smysle/sakura-lottery-go/internal/bot/handlers"
	"github.com/smysle/sakura-lottery-go/internal/bot/middleware"
	"github.com/smysle/sakura-lottery-go/internal/config"
	"github.com/smysle/sakura-lottery-go/internal/database/models"
	"github.com/smysle/sakura-lottery-go/internal/database/repository"
	"github.com/smysle/sakura-lottery-go/internal/service"
	"github.com/smysle/sakura-lottery-go/pkg/logger"
)

// rateLimitPerMinute 普通用户每分钟请求上限
const rateLimitPerMinute = 30

// Deps Bot 依赖
type Deps struct {
	Store    handlers.DrawStore
	Tickets  *service.TicketService
	Profiles *service.ProfileService
	Bindings *repository.BindingRepository
	Backups  *service.BackupService // 可选
	Cache    handlers.Purger        // 可选，/refresh 前清空
}

// sender 发送消息的最小接口
type sender interface {
	Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error)
}

// bindingLister 按资料 ID 查询绑定
type bindingLister interface {
	ListByProfiles(profileIDs []int64) ([]models.Binding, error)
}

// Bot Telegram Bot 实例
type Bot struct {
	*tele.Bot
	cfg      *config.Config
	h        *handlers.Handler
	bindings bindingLister
	send     sender
}

// New 创建新的 Bot 实例
func New(cfg *config.Config, deps Deps) (*Bot, error) {
	pref := tele.Settings{
		Token:  cfg.BotToken,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
		OnError: func(err error, c tele.Context) {
			logger.Error().Err(err).Msg("Bot 错误")
		},
	}

	b, err := tele.NewBot(pref)
	if err != nil {
		return nil, err
	}

	bot := &Bot{
		Bot:      b,
		cfg:      cfg,
		h:        handlers.New(cfg, deps.Store, deps.Tickets, deps.Profiles, deps.Bindings),
		bindings: deps.Bindings,
	}
	bot.send = b
	if deps.Backups != nil {
		bot.h.SetBackups(deps.Backups)
	}
	if deps.Cache != nil {
		bot.h.SetCache(deps.Cache)
	}

	bot.registerMiddleware()
	bot.registerHandlers()
	bot.setCommands()

	return bot, nil
}

// registerMiddleware 注册中间件
func (b *Bot) registerMiddleware() {
	b.Use(middleware.Logger())
	b.Use(middleware.Recover())
	b.Use(middleware.RateLimit(rateLimitPerMinute, b.cfg.IsAdmin))
}

// registerHandlers 注册所有处理器
func (b *Bot) registerHandlers() {
	h := b.h

	// 用户命令
	b.Handle("/start", h.Start)
	b.Handle("/lotteries", h.Lotteries)
	b.Handle("/draw", h.Draw)
	b.Handle("/bind", h.Bind, middleware.PrivateOnly())
	b.Handle("/buy", h.Buy)
	b.Handle("/tickets", h.Tickets)
	b.Handle("/profile", h.Profile)
	b.Handle("/battlepass", h.BattlePass)

	// 管理员命令
	adminGroup := b.Group()
	adminGroup.Use(middleware.AdminOnly(b.cfg))
	adminGroup.Handle("/refresh", h.Refresh)

	// Owner 命令
	ownerGroup := b.Group()
	ownerGroup.Use(middleware.OwnerOnly(b.cfg))
	ownerGroup.Handle("/proadmin", h.ProAdmin)
	ownerGroup.Handle("/revadmin", h.RevAdmin)
	ownerGroup.Handle("/backup_db", h.BackupDB)

	// 回调查询
	b.Handle(tele.OnCallback, h.OnCallback)
}

// setCommands 设置命令列表
func (b *Bot) setCommands() {
	userCmds := []tele.Command{
		{Text: "start", Description: "开启面板"},
		{Text: "lotteries", Description: "查看抽奖列表"},
		{Text: "draw", Description: "查看单期详情"},
		{Text: "bind", Description: "[私聊] 绑定资料"},
		{Text: "buy", Description: "购买彩票"},
		{Text: "tickets", Description: "我的彩票"},
		{Text: "profile", Description: "我的资料"},
		{Text: "battlepass", Description: "战令进度"},
	}

	adminCmds := append(append([]tele.Command{}, userCmds...),
		tele.Command{Text: "refresh", Description: "刷新抽奖数据 [管理]"},
	)

	ownerCmds := append(append([]tele.Command{}, adminCmds...),
		tele.Command{Text: "proadmin", Description: "添加bot管理 [owner]"},
		tele.Command{Text: "revadmin", Description: "移除bot管理 [owner]"},
		tele.Command{Text: "backup_db", Description: "手动备份数据 [owner]"},
	)

	if err := b.SetCommands(userCmds); err != nil {
		logger.Warn().Err(err).Msg("设置命令列表失败")
	}
	for _, adminID := range b.cfg.Admins {
		if err := b.SetCommands(adminCmds, tele.CommandScope{Type: tele.CommandScopeChat, ChatID: adminID}); err != nil {
			logger.Warn().Err(err).Int64("admin", adminID).Msg("设置管理员命令失败")
		}
	}
	if b.cfg.Owner != 0 {
		if err := b.SetCommands(ownerCmds, tele.CommandScope{Type: tele.CommandScopeChat, ChatID: b.cfg.Owner}); err != nil {
			logger.Warn().Err(err).Msg("设置 Owner 命令失败")
		}
	}
}

// NotifyWinners 私聊通知中奖用户，返回成功发送数
func (b *Bot) NotifyWinners(winners []service.Winner) int {
	return notifyWinners(b.send, b.bindings, winners)
}

func notifyWinners(s sender, bindings bindingLister, winners []service.Winner) int {
	if len(winners) == 0 {
		return 0
	}

	profileIDs := make([]int64, 0, len(winners))
	for _, w := range winners {
		profileIDs = append(profileIDs, w.ProfileID)
	}

	list, err := bindings.ListByProfiles(profileIDs)
	if err != nil {
		logger.Error().Err(err).Msg("查询中奖用户绑定失败")
		return 0
	}

	byProfile := make(map[int64][]int64, len(list))
	for _, bd := range list {
		byProfile[bd.ProfileID] = append(byProfile[bd.ProfileID], bd.TG)
	}

	sent := 0
	for _, w := range winners {
		tgs := byProfile[w.ProfileID]
		if len(tgs) == 0 {
			logger.Debug().Int64("profile_id", w.ProfileID).Msg("中奖资料未绑定 TG，跳过通知")
			continue
		}
		text := handlers.FormatWinner(w)
		for _, tg := range tgs {
			if _, err := s.Send(&tele.User{ID: tg}, text, tele.ModeMarkdown); err != nil {
				logger.Warn().Err(err).Int64("tg", tg).Msg("发送中奖通知失败")
				continue
			}
			sent++
		}
	}
	return sent
}

// Run 运行 Bot
func (b *Bot) Run() {
	logger.Info().Str("bot", b.cfg.BotName).Msg("Bot 启动中...")
	b.Start()
}

// Stop 停止 Bot
func (b *Bot) Stop() {
	logger.Info().Msg("Bot 停止中...")
	b.Bot.Stop()
}
