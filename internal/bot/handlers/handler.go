// Package handlers Bot 命令处理器
package handlers

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	tele "gopkg.in/telebot.v3"
	"gorm.io/gorm"

	"github.com/smysle/sakura-lottery-go/internal/bot/keyboards"
	"github.com/smysle/sakura-lottery-go/internal/config"
	"github.com/smysle/sakura-lottery-go/internal/database/repository"
	"github.com/smysle/sakura-lottery-go/internal/lottery"
	"github.com/smysle/sakura-lottery-go/internal/service"
	"github.com/smysle/sakura-lottery-go/internal/store"
	"github.com/smysle/sakura-lottery-go/pkg/imggen"
	"github.com/smysle/sakura-lottery-go/pkg/logger"
)

const requestTimeout = 15 * time.Second

// maxQueryLen 回调数据上限 64 字节，搜索词需截断
const maxQueryLen = 32

// DrawStore 抽奖仓库
type DrawStore interface {
	Snapshot() store.Snapshot
	Draw(id int64) (lottery.Draw, error)
	Refresh(ctx context.Context) error
}

// Purger 可清空的接口缓存
type Purger interface {
	Purge()
}

// Handler 命令处理器
type Handler struct {
	cfg      *config.Config
	store    DrawStore
	tickets  *service.TicketService
	profiles *service.ProfileService
	bindings *repository.BindingRepository
	backups  *service.BackupService
	cache    Purger
	now      func() time.Time
}

// New 创建处理器
func New(cfg *config.Config, s DrawStore, tickets *service.TicketService, profiles *service.ProfileService, bindings *repository.BindingRepository) *Handler {
	return &Handler{
		cfg:      cfg,
		store:    s,
		tickets:  tickets,
		profiles: profiles,
		bindings: bindings,
		now:      time.Now,
	}
}

// SetBackups 启用 /backup_db
func (h *Handler) SetBackups(b *service.BackupService) {
	h.backups = b
}

// SetCache /refresh 时一并清空后端缓存
func (h *Handler) SetCache(p Purger) {
	h.cache = p
}

func (h *Handler) ctx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), requestTimeout)
}

// Start /start
func (h *Handler) Start(c tele.Context) error {
	user := c.Sender()
	text := fmt.Sprintf(
		"**🎰 欢迎来到 %s**\n\n"+
			"🍉 你好 [%s](tg://user?id=%d)，请选择功能👇\n\n"+
			"/lotteries [关键词] 查看抽奖\n"+
			"/draw <ID> 查看单期详情\n"+
			"/bind <资料ID> 绑定账号\n"+
			"/buy <ID> <号码> 购买彩票\n"+
			"/tickets 我的彩票",
		escapeMD(h.cfg.BotName), escapeMD(user.FirstName), user.ID,
	)
	return c.Send(text, keyboards.StartKeyboard(h.cfg.IsAdmin(user.ID)), tele.ModeMarkdown)
}

// Lotteries /lotteries [关键词]
func (h *Handler) Lotteries(c tele.Context) error {
	query := strings.TrimSpace(strings.Join(c.Args(), " "))
	return h.showLotteries(c, 1, query, false)
}

func (h *Handler) showLotteries(c tele.Context, page int, query string, edit bool) error {
	query = truncateBytes(query, maxQueryLen)

	sortBy, err := lottery.ParseSortBy(h.cfg.Lottery.DefaultSort, lottery.SortByDate)
	if err != nil {
		sortBy = lottery.SortByDate
	}
	dir, err := lottery.ParseSortDirection(h.cfg.Lottery.DefaultDirection, lottery.SortAsc)
	if err != nil {
		dir = lottery.SortAsc
	}

	snap := h.store.Snapshot()
	groups := lottery.ApplyFilter(snap.Groups, lottery.FilterSpec{
		SortBy:        sortBy,
		SortDirection: dir,
		Query:         query,
		Locale:        h.cfg.Lottery.Locale,
	})

	pageSize := h.cfg.Lottery.PageSize
	total := keyboards.PageCount(len(groups), pageSize)
	if page > total {
		page = total
	}

	text := FormatGroupList(groups, page, pageSize, query, h.now())
	if snap.Err != nil {
		text += "\n\n⚠️ 后端暂不可用，当前为缓存数据"
	}
	markup := keyboards.LotteriesPagination(page, total, query)

	if edit {
		return editOrReply(c, text, markup, tele.ModeMarkdown)
	}
	return c.Send(text, markup, tele.ModeMarkdown)
}

// Draw /draw <ID>
func (h *Handler) Draw(c tele.Context) error {
	args := c.Args()
	if len(args) == 0 {
		return c.Send("用法: /draw <抽奖ID>")
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return c.Send("❌ 无效的抽奖ID")
	}

	d, err := h.store.Draw(id)
	if err != nil {
		return c.Send("❌ 抽奖不存在")
	}

	now := h.now()
	caption := FormatDraw(d, now)
	markup := keyboards.DrawKeyboard(d.ID, truncateBytes(d.Name, maxQueryLen))

	img, err := service.RenderDrawCard(d, now)
	if err != nil {
		logger.Warn().Err(err).Int64("draw", id).Msg("生成抽奖卡片失败")
		return c.Send(caption, markup, tele.ModeMarkdown)
	}

	photo := &tele.Photo{File: tele.FromReader(bytesReader(img)), Caption: caption}
	return c.Send(photo, markup, tele.ModeMarkdown)
}

// Bind /bind <资料ID>
func (h *Handler) Bind(c tele.Context) error {
	args := c.Args()
	if len(args) == 0 {
		return c.Send("用法: /bind <资料ID>")
	}
	profileID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || profileID <= 0 {
		return c.Send("❌ 无效的资料ID")
	}

	ctx, cancel := h.ctx()
	defer cancel()

	p, err := h.profiles.Get(ctx, profileID)
	if err != nil {
		logger.Warn().Err(err).Int64("profile", profileID).Msg("绑定时查询资料失败")
		return c.Send("❌ 资料不存在或后端不可用")
	}

	if err := h.bindings.Bind(c.Sender().ID, p.ID, p.IsVIP); err != nil {
		logger.Error().Err(err).Int64("tg", c.Sender().ID).Msg("保存绑定失败")
		return c.Send("❌ 系统错误，请稍后重试")
	}

	logger.Info().Int64("tg", c.Sender().ID).Int64("profile", p.ID).Msg("账号绑定成功")
	return c.Send(fmt.Sprintf("✅ 已绑定资料 `%d`", p.ID), tele.ModeMarkdown)
}

// profileOf 当前用户绑定的资料
func (h *Handler) profileOf(c tele.Context) (profileID int64, err error) {
	b, err := h.bindings.GetByTG(c.Sender().ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, c.Send("💢 请先使用 /bind <资料ID> 绑定账号")
		}
		return 0, err
	}
	return b.ProfileID, nil
}

// Buy /buy <抽奖ID> <号码>
func (h *Handler) Buy(c tele.Context) error {
	args := c.Args()
	if len(args) < 2 {
		return c.Send("用法: /buy <抽奖ID> <号码>\n传统型号码如 `3,14,15`，策略型为任意 1-64 个字符", tele.ModeMarkdown)
	}
	drawID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return c.Send("❌ 无效的抽奖ID")
	}

	profileID, err := h.profileOf(c)
	if err != nil || profileID == 0 {
		return err
	}

	ctx, cancel := h.ctx()
	defer cancel()

	ticket, err := h.tickets.Purchase(ctx, service.PurchaseRequest{
		ProfileID: profileID,
		DrawID:    drawID,
		ValueStr:  strings.Join(args[1:], " "),
	})
	switch {
	case errors.Is(err, service.ErrDrawNotFound):
		return c.Send("❌ 抽奖不存在")
	case errors.Is(err, service.ErrDrawClosed):
		return c.Send("⌛ 该期抽奖已截止")
	case errors.Is(err, service.ErrInvalidCombination):
		return c.Send("❌ " + err.Error())
	case err != nil:
		return c.Send("❌ 购票失败，请稍后重试")
	}

	text := fmt.Sprintf(
		"✅ 购票成功\n\n· 号码 | `%s`\n· 花费 | %g %s\n· 凭证 | `%s`",
		escapeMD(ticket.ValueStr), ticket.Price, ticket.Rail, ticket.UUID,
	)
	qr, err := imggen.GenerateTicketQR(ticket.UUID, 256)
	if err != nil {
		logger.Warn().Err(err).Str("ticket", ticket.UUID).Msg("生成二维码失败，改为发送文本")
		return c.Send(text, tele.ModeMarkdown)
	}
	photo := &tele.Photo{File: tele.FromReader(bytesReader(qr)), Caption: text}
	return c.Send(photo, tele.ModeMarkdown)
}

// Tickets /tickets
func (h *Handler) Tickets(c tele.Context) error {
	return h.showTickets(c, 1, false)
}

func (h *Handler) showTickets(c tele.Context, page int, edit bool) error {
	profileID, err := h.profileOf(c)
	if err != nil || profileID == 0 {
		return err
	}

	ctx, cancel := h.ctx()
	defer cancel()

	result, err := h.tickets.List(ctx, profileID)
	if err != nil {
		logger.Error().Err(err).Int64("profile", profileID).Msg("查询彩票失败")
		return c.Send("❌ 查询失败，请稍后重试")
	}

	pageSize := h.cfg.Lottery.PageSize
	total := keyboards.PageCount(len(result.Tickets), pageSize)
	if page > total {
		page = total
	}

	text := FormatTickets(result, page, pageSize)
	markup := keyboards.TicketsPagination(page, total)
	if edit {
		return editOrReply(c, text, markup, tele.ModeMarkdown)
	}
	return c.Send(text, markup, tele.ModeMarkdown)
}

// Profile /profile
func (h *Handler) Profile(c tele.Context) error {
	profileID, err := h.profileOf(c)
	if err != nil || profileID == 0 {
		return err
	}

	ctx, cancel := h.ctx()
	defer cancel()

	p, err := h.profiles.Get(ctx, profileID)
	if err != nil {
		return c.Send("❌ 后端暂不可用，请稍后重试")
	}
	return c.Send(FormatProfile(p), keyboards.CloseKeyboard(), tele.ModeMarkdown)
}

// BattlePass /battlepass
func (h *Handler) BattlePass(c tele.Context) error {
	var profileID int64
	if b, err := h.bindings.GetByTG(c.Sender().ID); err == nil {
		profileID = b.ProfileID
	}

	ctx, cancel := h.ctx()
	defer cancel()

	bp, err := h.profiles.BattlePass(ctx, profileID)
	if err != nil {
		return c.Send("❌ 后端暂不可用，请稍后重试")
	}
	return c.Send(FormatBattlePass(bp), keyboards.CloseKeyboard(), tele.ModeMarkdown)
}

// Refresh /refresh 立即从后端刷新 [管理]
func (h *Handler) Refresh(c tele.Context) error {
	ctx, cancel := h.ctx()
	defer cancel()

	if h.cache != nil {
		h.cache.Purge()
	}
	err := h.store.Refresh(ctx)
	snap := h.store.Snapshot()
	if err != nil && !errors.Is(err, store.ErrStaleResponse) {
		return c.Send(fmt.Sprintf("⚠️ 刷新失败，已使用兜底数据\n\n`%s`", escapeMD(err.Error())), tele.ModeMarkdown)
	}
	return c.Send(fmt.Sprintf("✅ 刷新完成\n\n· 期数 | %d\n· 分组 | %d\n· 版本 | %d", len(snap.Draws), len(snap.Groups), snap.Version))
}

// BackupDB /backup_db 立即备份并发送文件 [owner]
func (h *Handler) BackupDB(c tele.Context) error {
	if h.backups == nil {
		return c.Send("ℹ️ 未启用备份")
	}
	res, err := h.backups.Backup(true)
	if err != nil {
		logger.Error().Err(err).Msg("手动备份失败")
		return c.Send("❌ 备份失败: " + err.Error())
	}
	caption := fmt.Sprintf("✅ 备份完成\n· 记录 | %d\n· 大小 | %s\n· 耗时 | %s",
		res.Records, service.FormatSize(res.Size), res.Duration.Round(time.Millisecond))
	doc := &tele.Document{
		File:     tele.FromDisk(res.FilePath),
		FileName: res.Filename,
		Caption:  caption,
	}
	return c.Send(doc)
}

// ProAdmin /proadmin 添加管理员 [owner]
func (h *Handler) ProAdmin(c tele.Context) error {
	return h.updateAdmin(c, "/proadmin", func(cfg *config.Config, id int64) bool { return cfg.AddAdmin(id) }, "已添加为管理员")
}

// RevAdmin /revadmin 移除管理员 [owner]
func (h *Handler) RevAdmin(c tele.Context) error {
	return h.updateAdmin(c, "/revadmin", func(cfg *config.Config, id int64) bool { return cfg.RemoveAdmin(id) }, "已移除管理员")
}

func (h *Handler) updateAdmin(c tele.Context, cmd string, apply func(*config.Config, int64) bool, done string) error {
	args := c.Args()
	if len(args) == 0 {
		return c.Send(fmt.Sprintf("用法: %s <用户ID>", cmd))
	}
	tgID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return c.Send("❌ 无效的用户ID")
	}

	changed := false
	err = config.UpdateAndSave(func(cfg *config.Config) {
		changed = apply(cfg, tgID)
	})
	if err != nil {
		logger.Error().Err(err).Msg("保存配置失败")
		return c.Send("❌ 保存配置失败")
	}
	if !changed {
		return c.Send("ℹ️ 无需变更")
	}
	return c.Send(fmt.Sprintf("✅ 用户 %d %s", tgID, done))
}

// truncateBytes 按字节截断且不拆分 UTF-8 字符
func truncateBytes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

func utf8RuneStart(b byte) bool {
	return b&0xC0 != 0x80
}
